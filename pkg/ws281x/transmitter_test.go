// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package ws281x_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Irradiant/lampion/pkg/ws281x"
)

// capturePeripheral records the pulse stream a transmitter emits. A gate
// channel, when set, blocks every write until the channel is closed; failAt
// makes the Nth write (1-based) and all later ones fail.
type capturePeripheral struct {
	mu      sync.Mutex
	stream  []byte
	flushes int
	writes  int
	failAt  int
	gate    chan struct{}
}

func (c *capturePeripheral) WriteByte(b byte) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.failAt > 0 && c.writes >= c.failAt {
		return errors.New("peripheral gone")
	}
	c.stream = append(c.stream, b)
	return nil
}

func (c *capturePeripheral) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	return nil
}

func (c *capturePeripheral) Close() error {
	return nil
}

func (c *capturePeripheral) snapshot() ([]byte, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.stream...), c.flushes
}

func (c *capturePeripheral) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stream = nil
	c.flushes = 0
	c.writes = 0
	c.failAt = 0
}

func TestTransmitter_PatternEncoding(t *testing.T) {
	per := &capturePeripheral{}
	tx := ws281x.New(per, []byte{0x80, 0x01, 0xFF})

	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second), "transmitter should go idle")

	stream, flushes := per.snapshot()
	expected := []byte{
		ws281x.KickByte,
		// 0x80: MSB first
		0xFF, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0,
		// 0x01
		0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xFF,
		// 0xFF
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	assert.Equal(t, expected, stream)
	assert.Equal(t, 1, flushes, "one latch flush per frame")
	assert.False(t, tx.Busy())
}

func TestTransmitter_EmptySource(t *testing.T) {
	per := &capturePeripheral{}
	tx := ws281x.New(per, nil)

	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second))

	stream, flushes := per.snapshot()
	assert.Equal(t, []byte{ws281x.KickByte}, stream, "empty source emits only the kick")
	assert.Equal(t, 1, flushes)
}

func TestTransmitter_BusyDuringTransmission(t *testing.T) {
	per := &capturePeripheral{gate: make(chan struct{})}
	tx := ws281x.New(per, []byte{0xAA})

	tx.Show()
	assert.True(t, tx.Busy(), "transmitter should be busy while the stream is gated")

	// A second hand-off while active is ignored rather than restarting
	tx.Show()

	close(per.gate)
	require.True(t, tx.WaitIdle(2*time.Second))

	stream, flushes := per.snapshot()
	assert.Len(t, stream, 1+8, "exactly one frame despite the second Show")
	assert.Equal(t, 1, flushes)
}

func TestTransmitter_SequentialShows(t *testing.T) {
	per := &capturePeripheral{}
	src := []byte{0x55}
	tx := ws281x.New(per, src)

	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second))
	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second))

	stream, flushes := per.snapshot()
	assert.Len(t, stream, 2*(1+8), "two complete frames")
	assert.Equal(t, 2, flushes)

	decoded, err := ws281x.DecodePatterns(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x55}, decoded)
}

func TestTransmitter_WriteErrorReturnsOwnership(t *testing.T) {
	per := &capturePeripheral{failAt: 5}
	tx := ws281x.New(per, []byte{0x12, 0x34})

	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second), "a failing stream must still go idle")

	// The peripheral recovers; the next hand-off restarts from byte zero
	per.reset()
	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second))

	stream, flushes := per.snapshot()
	decoded, err := ws281x.DecodePatterns(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34}, decoded, "retry transmits the full frame")
	assert.Equal(t, 1, flushes)
}

func TestTransmitter_SourceRoundTrip(t *testing.T) {
	src := []byte{0x00, 0x14, 0x0A, 0x1E, 0x81, 0x7E}
	per := &capturePeripheral{}
	tx := ws281x.New(per, src)

	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second))

	stream, _ := per.snapshot()
	decoded, err := ws281x.DecodePatterns(stream)
	require.NoError(t, err)
	assert.Equal(t, src, decoded)
}

// ============================================================
// Pattern Decoding Tests
// ============================================================

func TestDecodePatterns_SkipsKickFiller(t *testing.T) {
	stream := []byte{
		ws281x.KickByte,
		0xFF, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0,
		ws281x.KickByte, ws281x.KickByte,
		0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xF0, 0xFF,
	}
	decoded, err := ws281x.DecodePatterns(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x01}, decoded)
}

func TestDecodePatterns_RejectsUnknownPattern(t *testing.T) {
	_, err := ws281x.DecodePatterns([]byte{0xFF, 0xAB})
	assert.Error(t, err)
}

func TestDecodePatterns_RejectsPartialByte(t *testing.T) {
	_, err := ws281x.DecodePatterns([]byte{0xFF, 0xF0, 0xFF})
	assert.Error(t, err)
}

func TestDecodePatterns_Empty(t *testing.T) {
	decoded, err := ws281x.DecodePatterns(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
