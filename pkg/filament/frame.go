// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package filament

import "time"

// Frame records one completed protocol frame as seen by the parser.
//
// Frames are immutable once returned. For a bulk load, Stored counts the
// triples written into the frame buffer and Discarded counts payload bytes
// absorbed after the buffer filled or after the frame was dropped.
type Frame struct {
	command   byte
	length    int
	stored    int
	discarded int
	dropped   bool
	timestamp time.Time
}

// Command returns the frame's command byte.
func (f *Frame) Command() byte {
	return f.command
}

// Length returns the payload length declared in the header.
func (f *Frame) Length() int {
	return f.length
}

// Stored returns the number of complete triples written to the frame buffer.
func (f *Frame) Stored() int {
	return f.stored
}

// Discarded returns the number of payload bytes consumed without being stored.
func (f *Frame) Discarded() int {
	return f.discarded
}

// Dropped reports whether the whole frame was discarded because the strip
// was still transmitting when the header completed.
func (f *Frame) Dropped() bool {
	return f.dropped
}

// Timestamp returns when the frame's final byte was parsed.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// IsBulkLoad reports whether the frame carries LED color data.
func (f *Frame) IsBulkLoad() bool {
	return f.command == CmdBulkLoad
}
