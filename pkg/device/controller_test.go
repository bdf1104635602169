// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package device_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Irradiant/lampion/pkg/device"
	"github.com/Irradiant/lampion/pkg/filament"
)

// scriptEndpoint is a hand-cranked Endpoint. Inbound chunks are queued up
// front and staged one per credit during Poll, sends are recorded, and
// every call lands in a trace so tests can assert the loop's ordering.
type scriptEndpoint struct {
	ready bool
	busy  bool

	chunks [][]byte
	staged []byte
	armed  bool

	sent   [][]byte
	rearms int
	trace  []string
}

func newScriptEndpoint(chunks ...[]byte) *scriptEndpoint {
	return &scriptEndpoint{
		ready:  true,
		chunks: chunks,
		armed:  true,
	}
}

func (s *scriptEndpoint) Poll() {
	s.trace = append(s.trace, "poll")
	if s.staged == nil && s.armed && len(s.chunks) > 0 {
		s.staged = s.chunks[0]
		s.chunks = s.chunks[1:]
		s.armed = false
	}
}

func (s *scriptEndpoint) IsReady() bool {
	s.trace = append(s.trace, "ready")
	return s.ready
}

func (s *scriptEndpoint) OutboundBusy() bool {
	s.trace = append(s.trace, "outbusy")
	return s.busy
}

func (s *scriptEndpoint) SendOutbound(p []byte) {
	s.trace = append(s.trace, "send")
	s.sent = append(s.sent, append([]byte(nil), p...))
}

func (s *scriptEndpoint) InboundAvailable() bool {
	s.trace = append(s.trace, "avail")
	return s.staged != nil
}

func (s *scriptEndpoint) ReadInboundChunk() []byte {
	s.trace = append(s.trace, "read")
	chunk := s.staged
	s.staged = nil
	return chunk
}

func (s *scriptEndpoint) RearmInbound() {
	s.trace = append(s.trace, "rearm")
	s.armed = true
	s.rearms++
}

func (s *scriptEndpoint) Close() error {
	return nil
}

func newTestController(ep device.Endpoint, ledCount int) (*device.Controller, *filament.Parser) {
	parser := filament.NewParser(filament.NewFrameBuffer(ledCount))
	return device.NewController(ep, parser), parser
}

// ============================================================
// Controller loop tests
// ============================================================

func TestController_AcksFlushOnNextStep(t *testing.T) {
	ep := newScriptEndpoint([]byte{0x02, 0x03, 0x00, 0x0A, 0x14, 0x1E})
	ctrl, parser := newTestController(ep, 4)

	ctrl.Step()

	// The frame completed and queued its acknowledgement, but the send
	// slot for this iteration was already past. Nothing is on the wire.
	assert.Empty(t, ep.sent, "ack sent in the same step it was generated")
	assert.Equal(t, 0, parser.PendingAcks(), "ack left behind in the parser")

	ctrl.Step()

	require.Len(t, ep.sent, 1)
	assert.Equal(t, []byte{filament.AckByte}, ep.sent[0])
}

func TestController_StepOrdering(t *testing.T) {
	ep := newScriptEndpoint([]byte{0x02, 0x03, 0x00, 0x01, 0x02, 0x03})
	ctrl, _ := newTestController(ep, 4)

	ctrl.Step()
	assert.Equal(t, []string{"poll", "ready", "outbusy", "avail", "read", "rearm"},
		ep.trace, "first step trace mismatch")

	ep.trace = nil
	ctrl.Step()
	assert.Equal(t, []string{"poll", "ready", "outbusy", "send", "avail"},
		ep.trace, "flush step trace mismatch")
}

func TestController_NotReadySkipsEverything(t *testing.T) {
	ep := newScriptEndpoint([]byte{0x02, 0x00, 0x00})
	ep.ready = false
	ctrl, _ := newTestController(ep, 4)

	for i := 0; i < 3; i++ {
		ctrl.Step()
	}

	assert.Empty(t, ep.sent)
	assert.Equal(t, 0, ep.rearms)
	assert.NotContains(t, ep.trace, "outbusy", "loop continued past the ready gate")
}

func TestController_OutboundBusyDefersTraffic(t *testing.T) {
	ep := newScriptEndpoint(
		[]byte{0x02, 0x03, 0x00, 0x01, 0x02, 0x03},
		[]byte{0x02, 0x03, 0x00, 0x04, 0x05, 0x06},
	)
	ctrl, _ := newTestController(ep, 4)

	ctrl.Step()
	require.Empty(t, ep.sent)

	// A send in flight stalls the loop: no flush, no inbound read.
	ep.busy = true
	ctrl.Step()
	ctrl.Step()
	assert.Empty(t, ep.sent, "flushed while outbound was busy")
	assert.Equal(t, 1, ep.rearms, "consumed a chunk while outbound was busy")

	ep.busy = false
	ctrl.Step()
	require.Len(t, ep.sent, 1)
	assert.Equal(t, []byte{filament.AckByte}, ep.sent[0])
}

func TestController_OneChunkPerStep(t *testing.T) {
	ep := newScriptEndpoint(
		[]byte{0x07, 0x02, 0x00, 0xAA, 0xBB},
		[]byte{0x07, 0x01, 0x00, 0xCC},
		[]byte{0x07, 0x00, 0x00},
	)
	ctrl, parser := newTestController(ep, 4)

	for step := 1; step <= 3; step++ {
		ctrl.Step()
		assert.Equal(t, step, ep.rearms, "rearm count mismatch at step %d", step)
	}

	assert.Empty(t, ep.chunks, "chunks left unconsumed")
	assert.Equal(t, uint64(3), parser.Stats().FramesTotal)
	assert.Empty(t, ep.sent, "non-bulk frames must not be acknowledged")
}

func TestController_FrameSplitAcrossChunks(t *testing.T) {
	ep := newScriptEndpoint(
		[]byte{0x02, 0x03},
		[]byte{0x00, 0x0A, 0x14, 0x1E},
	)
	ctrl, parser := newTestController(ep, 4)

	ctrl.Step()
	assert.Empty(t, ep.sent, "acknowledged a frame that is still incomplete")

	ctrl.Step()
	ctrl.Step()

	require.Len(t, ep.sent, 1)
	assert.Equal(t, []byte{filament.AckByte}, ep.sent[0])

	g, r, b := parser.Buffer().Triple(0)
	assert.Equal(t, byte(0x14), g, "green mismatch")
	assert.Equal(t, byte(0x0A), r, "red mismatch")
	assert.Equal(t, byte(0x1E), b, "blue mismatch")
}

func TestController_BatchesAcksFromOneChunk(t *testing.T) {
	chunk := append(
		filament.MustEncodeBulkLoad([]byte{0x01, 0x02, 0x03}),
		filament.MustEncodeBulkLoad([]byte{0x04, 0x05, 0x06})...,
	)
	ep := newScriptEndpoint(chunk)
	ctrl, _ := newTestController(ep, 4)

	ctrl.Step()
	ctrl.Step()

	require.Len(t, ep.sent, 1, "acks from one chunk should flush together")
	assert.Equal(t, []byte{filament.AckByte, filament.AckByte}, ep.sent[0])
}

func TestController_RunStopsOnCancel(t *testing.T) {
	ep := newScriptEndpoint([]byte{0x02, 0x03, 0x00, 0x01, 0x02, 0x03})
	ctrl, parser := newTestController(ep, 4)
	ctrl.SetPollInterval(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := ctrl.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, uint64(1), parser.Stats().FramesTotal, "loop never consumed the chunk")
	require.Len(t, ep.sent, 1)
	assert.Equal(t, []byte{filament.AckByte}, ep.sent[0])
}

func TestController_StatsPassthrough(t *testing.T) {
	ep := newScriptEndpoint([]byte{0x02, 0x03, 0x00, 0x01, 0x02, 0x03})
	ctrl, parser := newTestController(ep, 4)

	ctrl.Step()

	assert.Same(t, parser.Stats(), ctrl.Stats())
	assert.Equal(t, uint64(6), ctrl.Stats().TotalBytes)
	assert.Equal(t, uint64(1), ctrl.Stats().BulkFrames)
}
