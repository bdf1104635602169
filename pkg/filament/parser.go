// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package filament

import "time"

// Strip is the output stage a completed bulk load is handed to.
//
// Busy reports whether a previous hand-off is still being clocked out to
// the LEDs. Show starts transmission of the current frame buffer contents
// and returns without blocking; ownership of the buffer passes to the
// strip until Busy reads false again.
type Strip interface {
	Busy() bool
	Show()
}

// Parser implements incremental parsing of Filament frames.
//
// Feed bytes one at a time with ParseByte; frames may be split across
// reads at any position. The parser never fails: unknown commands are
// consumed by their declared length, and a corrupted length only shifts
// where the next header is read. There is no framing byte to hunt for,
// so resynchronization is positional rather than scanned.
type Parser struct {
	buf   *FrameBuffer
	strip Strip
	stats *Statistics

	state   int
	command byte
	lenLow  byte
	length  int
	left    int

	phase      int
	cursor     int
	cursorLive bool
	dropped    bool
	discarded  int

	acks []byte
}

// NewParser creates a parser filling buf with decoded bulk loads.
func NewParser(buf *FrameBuffer) *Parser {
	return &Parser{
		buf:   buf,
		stats: NewStatistics(),
		acks:  make([]byte, 0, 16),
	}
}

// SetStrip attaches the output stage used for bulk-load hand-offs. With no
// strip attached (the default) the parser fills the buffer without
// transmitting, which the offline tools rely on.
func (p *Parser) SetStrip(s Strip) {
	p.strip = s
}

// Buffer returns the frame buffer the parser writes into.
func (p *Parser) Buffer() *FrameBuffer {
	return p.buf
}

// Stats returns the live statistics tracker.
func (p *Parser) Stats() *Statistics {
	return p.stats
}

// Reset returns the parser to the await-command state. The frame buffer,
// statistics, and any queued acknowledgements are left untouched.
func (p *Parser) Reset() {
	p.state = stateCommand
	p.lenLow = 0
	p.length = 0
	p.left = 0
	p.cursorLive = false
}

// ParseByte consumes one byte from the host stream. It returns a non-nil
// Frame exactly when that byte completes a frame.
func (p *Parser) ParseByte(b byte) *Frame {
	p.stats.TotalBytes++

	switch p.state {
	case stateCommand:
		p.beginFrame(b)
		p.state = stateLengthLow

	case stateLengthLow:
		// Held back, not committed: the length takes effect only once
		// its high byte arrives.
		p.lenLow = b
		p.state = stateLengthHigh

	case stateLengthHigh:
		p.length = int(b)<<8 | int(p.lenLow)
		p.left = p.length
		if p.length == 0 {
			return p.finishFrame()
		}
		if p.command == CmdBulkLoad && p.strip != nil && p.strip.Busy() {
			// The buffer is still being clocked out. Writing now would
			// tear the frame on the wire, so consume this one whole.
			p.cursorLive = false
			p.dropped = true
			p.stats.FramesDropped++
		}
		p.state = statePayload

	case statePayload:
		p.left--
		if p.command == CmdBulkLoad {
			p.storePayloadByte(b)
		}
		if p.left == 0 {
			return p.finishFrame()
		}
	}

	return nil
}

// Feed consumes a chunk of host bytes and returns the frames completed
// within it, in order.
func (p *Parser) Feed(chunk []byte) []*Frame {
	var frames []*Frame
	for _, b := range chunk {
		if f := p.ParseByte(b); f != nil {
			frames = append(frames, f)
		}
	}
	return frames
}

// PendingAcks returns the number of queued acknowledgement bytes.
func (p *Parser) PendingAcks() int {
	return len(p.acks)
}

// TakeAcks returns the queued acknowledgement bytes in completion order
// and clears the queue. It returns nil when nothing is pending.
func (p *Parser) TakeAcks() []byte {
	if len(p.acks) == 0 {
		return nil
	}
	out := make([]byte, len(p.acks))
	copy(out, p.acks)
	p.acks = p.acks[:0]
	return out
}

// beginFrame latches a new command byte and rearms the payload cursor.
func (p *Parser) beginFrame(command byte) {
	p.command = command
	p.phase = phaseRed
	p.cursor = 0
	p.cursorLive = true
	p.dropped = false
	p.discarded = 0
}

// storePayloadByte places one bulk-load payload byte. Hosts send (R, G, B);
// storage is wire order (G, R, B), so red and green swap offsets within the
// triple and the cursor advances only after blue lands.
func (p *Parser) storePayloadByte(b byte) {
	if !p.cursorLive {
		p.discarded++
		p.stats.BytesDiscarded++
		p.phase = (p.phase + 1) % BytesPerLED
		return
	}

	base := p.cursor * BytesPerLED
	switch p.phase {
	case phaseRed:
		p.buf.data[base+1] = b
		p.phase = phaseGreen
	case phaseGreen:
		p.buf.data[base] = b
		p.phase = phaseBlue
	case phaseBlue:
		p.buf.data[base+2] = b
		p.cursor++
		p.stats.TriplesStored++
		if p.cursor == p.buf.count {
			// Buffer full. The rest of the payload is absorbed so the
			// stream stays in sync.
			p.cursorLive = false
		}
		p.phase = phaseRed
	}
}

// finishFrame closes out the current frame: it queues the acknowledgement,
// hands the buffer to the strip, updates counters, and rearms for the next
// header.
func (p *Parser) finishFrame() *Frame {
	frame := &Frame{
		command:   p.command,
		length:    p.length,
		stored:    p.cursor,
		discarded: p.discarded,
		dropped:   p.dropped,
		timestamp: time.Now(),
	}

	p.stats.FramesTotal++
	switch {
	case p.length == 0:
		p.stats.EmptyFrames++
	case p.command == CmdBulkLoad:
		p.stats.BulkFrames++
	default:
		p.stats.OtherFrames++
	}

	if p.command == CmdBulkLoad && p.length > 0 {
		// Dropped frames are still acknowledged. The host paces itself on
		// acks, and a silent drop would stall it.
		p.acks = append(p.acks, AckByte)
		p.stats.AcksQueued++
		if p.strip != nil && !p.dropped {
			p.strip.Show()
		}
	}

	p.state = stateCommand
	return frame
}
