// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

// Package device runs the device side of the Filament protocol: a polled
// main loop that moves bytes between an endpoint (USB-style byte pipe) and
// the protocol parser, and returns acknowledgement bytes to the host.
package device

// ChunkSize bounds a single inbound transfer, matching the 64-byte packet
// capacity of a full-speed USB bulk endpoint.
const ChunkSize = 64

// Endpoint is the flow-controlled byte pipe the controller polls. It
// mirrors a USB device endpoint pair: chunked inbound transfers that must
// be rearmed one at a time, and fire-and-forget outbound sends.
//
// Endpoint methods are driven from the controller's single loop goroutine
// and are not safe for concurrent use.
type Endpoint interface {
	// Poll advances endpoint state; called every loop iteration, never
	// blocks.
	Poll()

	// IsReady reports whether the endpoint is connected and able to move
	// data in either direction.
	IsReady() bool

	// OutboundBusy reports whether a previous send is still in flight.
	OutboundBusy() bool

	// SendOutbound hands bytes to the host. Fire-and-forget; callers gate
	// on OutboundBusy first.
	SendOutbound(p []byte)

	// InboundAvailable reports whether a chunk of host data is staged.
	InboundAvailable() bool

	// ReadInboundChunk retrieves the staged chunk, at most ChunkSize
	// bytes. Valid only after InboundAvailable reports true.
	ReadInboundChunk() []byte

	// RearmInbound signals readiness for another chunk; called exactly
	// once per consumed chunk, after processing.
	RearmInbound()

	// Close tears the endpoint down.
	Close() error
}
