// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package ws281x

import (
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"
)

// Preview renders frames to the terminal instead of a physical strip. It
// collects the pulse stream exactly as hardware would receive it, then
// decodes and draws each flushed frame as a row of colored cells, one per
// LED. This keeps the whole transmit path exercised on machines without an
// SPI port.
type Preview struct {
	drawer display.Drawer
	count  int
	stream []byte
}

// NewPreview creates a terminal sink for count LEDs.
func NewPreview(count int) *Preview {
	return &Preview{
		drawer: screen.New(count),
		count:  count,
		stream: make([]byte, 0, count*24+1),
	}
}

// WriteByte collects one pulse-pattern byte.
func (p *Preview) WriteByte(b byte) error {
	p.stream = append(p.stream, b)
	return nil
}

// Flush decodes the collected stream and draws it as one frame.
func (p *Preview) Flush() error {
	defer func() { p.stream = p.stream[:0] }()

	raw, err := DecodePatterns(p.stream)
	if err != nil {
		return err
	}

	img := image.NewNRGBA(image.Rect(0, 0, p.count, 1))
	for i := 0; i < p.count && i*3+2 < len(raw); i++ {
		g, r, b := raw[i*3], raw[i*3+1], raw[i*3+2]
		img.SetNRGBA(i, 0, color.NRGBA{R: r, G: g, B: b, A: 0xFF})
	}
	return p.drawer.Draw(p.drawer.Bounds(), img, image.Point{})
}

// Close halts the drawer.
func (p *Preview) Close() error {
	return p.drawer.Halt()
}
