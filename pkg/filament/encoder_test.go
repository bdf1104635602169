// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package filament

import (
	"bytes"
	"testing"
)

// ============================================================
// Encoder Tests
// ============================================================

func TestEncodeFrame_Header(t *testing.T) {
	data, err := EncodeFrame(0x05, []byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !bytes.Equal(data, []byte{0x05, 0x02, 0x00, 0xAA, 0xBB}) {
		t.Errorf("Wire bytes mismatch: % 02X", data)
	}
}

func TestEncodeFrame_LengthLittleEndian(t *testing.T) {
	payload := make([]byte, 0x0201)
	data, err := EncodeFrame(CmdBulkLoad, payload)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if data[1] != 0x01 || data[2] != 0x02 {
		t.Errorf("Length bytes mismatch: low=0x%02X high=0x%02X", data[1], data[2])
	}
}

func TestEncodeFrame_EmptyPayload(t *testing.T) {
	data, err := EncodeFrame(0x07, nil)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !bytes.Equal(data, []byte{0x07, 0x00, 0x00}) {
		t.Errorf("Wire bytes mismatch: % 02X", data)
	}
}

func TestEncodeFrame_TooLarge(t *testing.T) {
	_, err := EncodeFrame(CmdBulkLoad, make([]byte, MaxPayloadLen+1))
	if err == nil {
		t.Error("Expected error for oversized payload")
	}
}

func TestEncodeBulkLoad_PartialTriple(t *testing.T) {
	_, err := EncodeBulkLoad([]byte{0x01, 0x02})
	if err == nil {
		t.Error("Expected error for partial triple")
	}
}

func TestMustEncodeBulkLoad(t *testing.T) {
	data := MustEncodeBulkLoad([]byte{0x0A, 0x14, 0x1E})
	if !bytes.Equal(data, []byte{0x02, 0x03, 0x00, 0x0A, 0x14, 0x1E}) {
		t.Errorf("Wire bytes mismatch: % 02X", data)
	}
}

func TestMustEncodeBulkLoad_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustEncodeBulkLoad should panic on partial triple")
		}
	}()
	MustEncodeBulkLoad([]byte{0x01})
}

func TestEncodeFill(t *testing.T) {
	data, err := EncodeFill(0x0A, 0x14, 0x1E, 2)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !bytes.Equal(data, []byte{0x02, 0x06, 0x00, 0x0A, 0x14, 0x1E, 0x0A, 0x14, 0x1E}) {
		t.Errorf("Wire bytes mismatch: % 02X", data)
	}
}

func TestEncodeFill_CountOutOfRange(t *testing.T) {
	if _, err := EncodeFill(0, 0, 0, -1); err == nil {
		t.Error("Expected error for negative count")
	}
	if _, err := EncodeFill(0, 0, 0, MaxPayloadLen); err == nil {
		t.Error("Expected error for count exceeding the length field")
	}
}

func TestAppendFrame_BackToBack(t *testing.T) {
	stream := AppendFrame(nil, CmdBulkLoad, []byte{0x01, 0x02, 0x03})
	stream = AppendFrame(stream, 0x05, []byte{0xAA})

	p := NewParser(NewFrameBuffer(2))
	frames := p.Feed(stream)
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if frames[0].Command() != CmdBulkLoad || frames[1].Command() != 0x05 {
		t.Errorf("Command sequence mismatch: 0x%02X, 0x%02X", frames[0].Command(), frames[1].Command())
	}
}

// ============================================================
// Round-Trip Tests
// ============================================================

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rgb := []byte{
		0x11, 0x22, 0x33,
		0x44, 0x55, 0x66,
		0x77, 0x88, 0x99,
	}
	wire, err := EncodeBulkLoad(rgb)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	p := NewParser(NewFrameBuffer(3))
	frames := p.Feed(wire)
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0].Stored() != 3 {
		t.Errorf("Stored mismatch: expected 3, got %d", frames[0].Stored())
	}

	for i := 0; i < 3; i++ {
		g, r, b := p.Buffer().Triple(i)
		if r != rgb[i*3] || g != rgb[i*3+1] || b != rgb[i*3+2] {
			t.Errorf("Triple %d mismatch: got (%02X, %02X, %02X)", i, g, r, b)
		}
	}
}
