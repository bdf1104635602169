// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package device

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// StreamEndpoint adapts any byte stream to the Endpoint contract. A
// background reader stages one chunk at a time and waits for the rearm
// credit before reading the next, so host data never outruns the parser.
type StreamEndpoint struct {
	rw io.ReadWriteCloser

	staged  chan []byte
	rearm   chan struct{}
	done    chan struct{}
	pending []byte

	closed   atomic.Bool
	sendBusy atomic.Bool
}

// NewStreamEndpoint wraps rw. The endpoint starts armed for one chunk.
func NewStreamEndpoint(rw io.ReadWriteCloser) *StreamEndpoint {
	e := &StreamEndpoint{
		rw:     rw,
		staged: make(chan []byte, 1),
		rearm:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	e.rearm <- struct{}{}
	go e.readLoop()
	return e
}

// NewSerialEndpoint opens the named serial port at baudRate and adapts it.
func NewSerialEndpoint(portName string, baudRate int) (*StreamEndpoint, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	log.Info().Str("port", portName).Int("baud", baudRate).Msg("serial endpoint open")
	return NewStreamEndpoint(port), nil
}

// readLoop reads one chunk per rearm credit and stages it for the
// controller.
func (e *StreamEndpoint) readLoop() {
	buf := make([]byte, ChunkSize)
	for {
		select {
		case <-e.done:
			return
		case <-e.rearm:
		}

		n, err := e.rw.Read(buf)
		if n > 0 {
			select {
			case e.staged <- append([]byte(nil), buf[:n]...):
			case <-e.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF && !e.closed.Load() {
				log.Warn().Err(err).Msg("endpoint read failed")
			}
			e.closed.Store(true)
			return
		}
		if n == 0 {
			// Spurious wakeup; the credit is still unspent.
			select {
			case e.rearm <- struct{}{}:
			default:
			}
		}
	}
}

// Poll is a no-op: stream state advances in the background reader.
func (e *StreamEndpoint) Poll() {}

// IsReady reports whether the underlying stream is still open.
func (e *StreamEndpoint) IsReady() bool {
	return !e.closed.Load()
}

// OutboundBusy reports whether a previous send is still in flight.
func (e *StreamEndpoint) OutboundBusy() bool {
	return e.sendBusy.Load()
}

// SendOutbound writes p to the host without blocking the caller.
func (e *StreamEndpoint) SendOutbound(p []byte) {
	if len(p) == 0 || !e.sendBusy.CompareAndSwap(false, true) {
		return
	}
	buf := append([]byte(nil), p...)
	go func() {
		defer e.sendBusy.Store(false)
		if _, err := e.rw.Write(buf); err != nil {
			log.Warn().Err(err).Msg("endpoint write failed")
			e.closed.Store(true)
		}
	}()
}

// InboundAvailable reports whether a chunk is staged, claiming it from the
// reader if one just arrived.
func (e *StreamEndpoint) InboundAvailable() bool {
	if e.pending != nil {
		return true
	}
	select {
	case chunk := <-e.staged:
		e.pending = chunk
		return true
	default:
		return false
	}
}

// ReadInboundChunk hands over the staged chunk.
func (e *StreamEndpoint) ReadInboundChunk() []byte {
	chunk := e.pending
	e.pending = nil
	return chunk
}

// RearmInbound returns the read credit to the background reader.
func (e *StreamEndpoint) RearmInbound() {
	select {
	case e.rearm <- struct{}{}:
	default:
	}
}

// Close tears down the stream; a blocked read unblocks with an error.
func (e *StreamEndpoint) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		close(e.done)
	}
	return e.rw.Close()
}
