// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package ws281x

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// DefaultFreq clocks eight peripheral bits into each 1.25 us WS281x bit
// slot.
const DefaultFreq = 6400 * physic.KiloHertz

// DefaultLatchBytes of zero hold the line low ~80 us at DefaultFreq, past
// the longest reset latch in the WS281x family.
const DefaultLatchBytes = 64

// SPIOpts configures an SPI-backed peripheral. Zero values select the
// defaults.
type SPIOpts struct {
	Freq       physic.Frequency
	LatchBytes int
}

// SPIPeripheral clocks pattern bytes through a spidev-style SPI port. Only
// MOSI is wired to the strip's data line; the shift clock supplies the
// pulse timing and the chip-select is unused.
type SPIPeripheral struct {
	port    spi.PortCloser
	conn    spi.Conn
	scratch [1]byte
	latch   []byte
}

// NewSPI opens the registry port named by name ("" selects the first
// available port) and prepares it for pattern output.
func NewSPI(name string, opts *SPIOpts) (*SPIPeripheral, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open SPI port %q: %w", name, err)
	}
	p, err := NewSPIFromPort(port, opts)
	if err != nil {
		port.Close()
		return nil, err
	}
	return p, nil
}

// NewSPIFromPort wraps an already-open port. Close closes the port.
func NewSPIFromPort(port spi.PortCloser, opts *SPIOpts) (*SPIPeripheral, error) {
	o := SPIOpts{}
	if opts != nil {
		o = *opts
	}
	if o.Freq == 0 {
		o.Freq = DefaultFreq
	}
	if o.LatchBytes == 0 {
		o.LatchBytes = DefaultLatchBytes
	}

	conn, err := port.Connect(o.Freq, spi.Mode3|spi.NoCS, 8)
	if err != nil {
		return nil, fmt.Errorf("configure SPI port: %w", err)
	}

	return &SPIPeripheral{
		port:  port,
		conn:  conn,
		latch: make([]byte, o.LatchBytes),
	}, nil
}

// WriteByte clocks one byte out and returns when the transfer completes.
func (s *SPIPeripheral) WriteByte(b byte) error {
	s.scratch[0] = b
	return s.conn.Tx(s.scratch[:], nil)
}

// Flush writes the reset latch: a run of zeroes long enough for the strip
// to latch the shifted colors.
func (s *SPIPeripheral) Flush() error {
	return s.conn.Tx(s.latch, nil)
}

// Close releases the underlying port.
func (s *SPIPeripheral) Close() error {
	return s.port.Close()
}
