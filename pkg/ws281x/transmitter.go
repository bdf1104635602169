// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

// Package ws281x drives WS281x addressable strips by synthesizing the
// one-wire NRZ bit-stream through a repurposed synchronous-serial
// peripheral.
//
// Each LED bit becomes one peripheral byte: 0xFF clocks out as a long high
// pulse (a one), 0xF0 as a short one (a zero). With the peripheral clocked
// at 6.4 MHz, eight peripheral bits span one 1.25 us WS281x bit slot, which
// sits inside the timing tolerance of the whole device family.
package ws281x

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Pulse patterns and the hand-off kick.
const (
	PatternHigh = 0xFF // LED bit 1: long high pulse
	PatternLow  = 0xF0 // LED bit 0: short high pulse
	KickByte    = 0x00 // first write of a hand-off, starts the peripheral clock
)

// Peripheral is a clocked byte-serial output. WriteByte returns once the
// byte has been clocked out, which is what paces the bit-stream. Flush
// marks the end of a stream; implementations use it to hold the line low
// long enough for the strip's reset latch.
type Peripheral interface {
	WriteByte(b byte) error
	Flush() error
	Close() error
}

// Transmitter converts a wire-order frame into the WS281x pulse stream.
//
// A transmitter is either Idle or Active. Show hands it the source buffer
// and kicks the peripheral clock; it then emits exactly one pattern byte
// per clock event until every source byte has been shifted out, at which
// point it returns to Idle on its own. While Active the source buffer
// belongs to the transmitter alone; the parser checks Busy before
// accepting a new frame into the buffer.
type Transmitter struct {
	per Peripheral
	src []byte

	busy atomic.Bool

	// Cursor state, touched only while Active.
	pos    int
	bitPos uint8
	cur    byte
}

// New creates a transmitter clocking frames from src out through per.
func New(per Peripheral, src []byte) *Transmitter {
	return &Transmitter{per: per, src: src}
}

// Busy reports whether a hand-off is still being clocked out.
func (t *Transmitter) Busy() bool {
	return t.busy.Load()
}

// Show starts transmission of the current source buffer contents and
// returns immediately. A hand-off while a previous transmission is still
// active is ignored; callers gate on Busy first.
func (t *Transmitter) Show() {
	if !t.busy.CompareAndSwap(false, true) {
		return
	}
	t.pos = 0
	t.bitPos = 0
	t.cur = 0
	go t.pump()
}

// WaitIdle blocks until the transmitter returns to Idle or the timeout
// elapses, reporting whether it went idle. Shutdown and test convenience;
// the hand-off path never waits.
func (t *Transmitter) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for t.busy.Load() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Microsecond)
	}
	return true
}

// clock produces the pattern for the next bit. When the bit position wraps
// it loads the next source byte; once every byte has been loaded and
// shifted it resets the byte counter for the next hand-off and reports
// done via ok=false, emitting nothing for that event.
func (t *Transmitter) clock() (pattern byte, ok bool) {
	if t.bitPos == 0 {
		if t.pos == len(t.src) {
			t.pos = 0
			return 0, false
		}
		t.cur = t.src[t.pos]
		t.pos++
	}

	pattern = PatternLow
	if t.cur&0x80 != 0 {
		pattern = PatternHigh
	}
	t.cur <<= 1
	t.bitPos = (t.bitPos + 1) & 0x7
	return pattern, true
}

// pump runs one hand-off to completion: kick, one pattern byte per clock
// event, then the latch flush. Ownership of the source buffer returns to
// the parser when busy drops, including on write errors.
func (t *Transmitter) pump() {
	defer t.busy.Store(false)

	if err := t.per.WriteByte(KickByte); err != nil {
		log.Error().Err(err).Msg("strip kick write failed")
		t.pos, t.bitPos, t.cur = 0, 0, 0
		return
	}

	for {
		pattern, ok := t.clock()
		if !ok {
			break
		}
		if err := t.per.WriteByte(pattern); err != nil {
			log.Error().Err(err).Int("offset", t.pos).Msg("strip write failed, aborting frame")
			t.pos, t.bitPos, t.cur = 0, 0, 0
			return
		}
	}

	if err := t.per.Flush(); err != nil {
		log.Error().Err(err).Msg("strip latch flush failed")
	}
}
