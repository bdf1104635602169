// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package device

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Irradiant/lampion/pkg/filament"
)

// DefaultPollInterval is the cadence of the controller loop.
const DefaultPollInterval = time.Millisecond

// Controller is the device main loop: it polls the endpoint, feeds inbound
// chunks to the parser, and returns acknowledgement bytes to the host in
// frame-completion order. All protocol work happens on the loop goroutine;
// only the strip's bit clock runs elsewhere.
type Controller struct {
	ep       Endpoint
	parser   *filament.Parser
	interval time.Duration
	acks     []byte
}

// NewController wires an endpoint to a parser.
func NewController(ep Endpoint, parser *filament.Parser) *Controller {
	return &Controller{
		ep:       ep,
		parser:   parser,
		interval: DefaultPollInterval,
	}
}

// SetPollInterval overrides the loop cadence; values below one
// millisecond are kept as given.
func (c *Controller) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// Step runs one loop iteration. The shape mirrors a USB device loop:
// service the stack, bail if the bus cannot move data, flush pending
// acknowledgements, then consume at most one inbound chunk and rearm.
func (c *Controller) Step() {
	c.ep.Poll()

	if !c.ep.IsReady() {
		return
	}
	if c.ep.OutboundBusy() {
		return
	}

	if len(c.acks) > 0 {
		c.ep.SendOutbound(c.acks)
		c.acks = c.acks[:0]
	}

	if !c.ep.InboundAvailable() {
		return
	}

	chunk := c.ep.ReadInboundChunk()
	for _, frame := range c.parser.Feed(chunk) {
		log.Debug().
			Str("command", filament.FormatCommand(frame.Command())).
			Int("length", frame.Length()).
			Int("stored", frame.Stored()).
			Bool("dropped", frame.Dropped()).
			Msg("frame")
	}
	c.acks = append(c.acks, c.parser.TakeAcks()...)

	c.ep.RearmInbound()
}

// Run drives Step at the poll cadence until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Step()
		}
	}
}

// Stats exposes the parser's stream statistics.
func (c *Controller) Stats() *filament.Statistics {
	return c.parser.Stats()
}
