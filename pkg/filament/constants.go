// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

// Package filament provides a reference Go implementation of the Filament strip protocol.
//
// Filament is the binary protocol a lighting host streams over a USB byte pipe
// to drive an addressable WS281x strip. Frames are length-prefixed with no
// delimiters and no checksums; recovery from a corrupted stream is purely
// positional. This package provides the incremental device-side parser, the
// frame buffer it fills, the host-side encoder, and stream statistics.
//
// See the Filament specification at origin/documentation/source/specifications/filament/
package filament

// Frame header layout: command byte followed by a 16-bit little-endian
// payload length.
const (
	HeaderSize    = 3
	MaxPayloadLen = 0xFFFF
)

// Commands
const (
	CmdBulkLoad = 0x02 // payload carries one host-order (R,G,B) triple per LED
)

// AckByte is queued device->host once per completed bulk load.
const AckByte = 0xFF

// Strip geometry
const (
	DefaultLEDCount = 128
	BytesPerLED     = 3
)

// Parser states (internal)
const (
	stateCommand = iota
	stateLengthLow
	stateLengthHigh
	statePayload
)

// Payload channel phases (internal). Hosts send red first; storage is
// wire order, so each phase lands at a different offset in the triple.
const (
	phaseRed = iota
	phaseGreen
	phaseBlue
)
