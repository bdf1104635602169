// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package ws281x

import "fmt"

// DecodePatterns reconstructs wire-order bytes from a captured pulse
// stream. Kick filler (0x00) is skipped wherever it appears; any other
// byte that is not a recognized pulse pattern is an error, as is a stream
// that ends partway through a byte.
func DecodePatterns(stream []byte) ([]byte, error) {
	var out []byte
	var cur byte
	bits := 0

	for i, p := range stream {
		switch p {
		case KickByte:
			continue
		case PatternHigh:
			cur = cur<<1 | 1
		case PatternLow:
			cur = cur << 1
		default:
			return nil, fmt.Errorf("unrecognized pulse pattern 0x%02X at offset %d", p, i)
		}
		bits++
		if bits == 8 {
			out = append(out, cur)
			cur = 0
			bits = 0
		}
	}

	if bits != 0 {
		return nil, fmt.Errorf("pulse stream ends mid-byte (%d stray bits)", bits)
	}
	return out, nil
}
