// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package filament

// FrameBuffer holds one complete strip frame in wire order.
//
// WS281x strips shift the green channel first, so each LED occupies three
// consecutive bytes stored (G, R, B) even though hosts send (R, G, B). The
// backing storage is allocated once and reused for every frame; the parser
// writes into it only while the output stage is idle.
type FrameBuffer struct {
	count int
	data  []byte
}

// NewFrameBuffer allocates storage for count LEDs. A count below one falls
// back to DefaultLEDCount.
func NewFrameBuffer(count int) *FrameBuffer {
	if count < 1 {
		count = DefaultLEDCount
	}
	return &FrameBuffer{
		count: count,
		data:  make([]byte, count*BytesPerLED),
	}
}

// Count returns the number of LED slots.
func (f *FrameBuffer) Count() int {
	return f.count
}

// Size returns the backing storage length in bytes.
func (f *FrameBuffer) Size() int {
	return len(f.data)
}

// Bytes returns the live backing storage in wire order. The transmitter
// reads this slice directly during a hand-off, so callers must not write
// through it while the strip is busy.
func (f *FrameBuffer) Bytes() []byte {
	return f.data
}

// Triple returns the stored wire-order channels for LED i.
func (f *FrameBuffer) Triple(i int) (g, r, b byte) {
	base := i * BytesPerLED
	return f.data[base], f.data[base+1], f.data[base+2]
}

// Clear zeroes every channel.
func (f *FrameBuffer) Clear() {
	for i := range f.data {
		f.data[i] = 0
	}
}
