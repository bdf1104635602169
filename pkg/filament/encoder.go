// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package filament

import "fmt"

// EncodeFrame creates a complete wire-formatted frame: the command byte,
// the 16-bit little-endian payload length, then the payload.
func EncodeFrame(command byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadLen)
	}
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), command, payload), nil
}

// AppendFrame appends a wire-formatted frame to dst and returns the
// extended slice. The payload length must already fit in 16 bits.
func AppendFrame(dst []byte, command byte, payload []byte) []byte {
	dst = append(dst, command, byte(len(payload)), byte(len(payload)>>8))
	return append(dst, payload...)
}

// EncodeBulkLoad builds a bulk-load frame from host-order (R, G, B)
// triples, one per LED.
func EncodeBulkLoad(rgb []byte) ([]byte, error) {
	if len(rgb)%BytesPerLED != 0 {
		return nil, fmt.Errorf("bulk load payload must be whole triples, got %d bytes", len(rgb))
	}
	return EncodeFrame(CmdBulkLoad, rgb)
}

// MustEncodeBulkLoad encodes like EncodeBulkLoad but panics on error
// (use EncodeBulkLoad for error handling).
func MustEncodeBulkLoad(rgb []byte) []byte {
	data, err := EncodeBulkLoad(rgb)
	if err != nil {
		panic(fmt.Sprintf("filament: encode error: %v", err))
	}
	return data
}

// EncodeFill builds a bulk-load frame repeating a single host-order color
// across count LEDs.
func EncodeFill(r, g, b byte, count int) ([]byte, error) {
	if count < 0 || count*BytesPerLED > MaxPayloadLen {
		return nil, fmt.Errorf("fill count out of range: %d", count)
	}
	rgb := make([]byte, 0, count*BytesPerLED)
	for i := 0; i < count; i++ {
		rgb = append(rgb, r, g, b)
	}
	return EncodeBulkLoad(rgb)
}
