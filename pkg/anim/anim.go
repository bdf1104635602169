// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

// Package anim stores strip animations as CBOR sequence files: a short
// header plus raw RGB frames played back at a fixed rate. The format is
// self-describing, so players can reject a sequence authored for a
// different strip length before any byte goes on the wire.
package anim

import (
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Sequence is one stored animation. Frames hold host-order RGB triples,
// one byte slice per frame, each exactly LEDCount*3 bytes.
type Sequence struct {
	Name     string   `cbor:"1,keyasint,omitempty"`
	FPS      int      `cbor:"2,keyasint"`
	LEDCount int      `cbor:"3,keyasint"`
	Frames   [][]byte `cbor:"4,keyasint"`
}

// New creates an empty sequence.
func New(name string, fps, ledCount int) *Sequence {
	return &Sequence{
		Name:     name,
		FPS:      fps,
		LEDCount: ledCount,
	}
}

// AppendFrame adds one frame of host-order RGB data.
func (s *Sequence) AppendFrame(rgb []byte) error {
	if len(rgb) != s.LEDCount*3 {
		return fmt.Errorf("frame size mismatch: expected %d bytes, got %d",
			s.LEDCount*3, len(rgb))
	}
	s.Frames = append(s.Frames, append([]byte(nil), rgb...))
	return nil
}

// FrameCount returns the number of stored frames.
func (s *Sequence) FrameCount() int {
	return len(s.Frames)
}

// Frame returns frame i without copying.
func (s *Sequence) Frame(i int) []byte {
	return s.Frames[i]
}

// FrameDuration returns how long one frame holds on the strip.
func (s *Sequence) FrameDuration() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// Validate checks the sequence header and that every frame matches the
// declared strip length.
func (s *Sequence) Validate() error {
	if s.FPS < 1 {
		return fmt.Errorf("invalid FPS: %d", s.FPS)
	}
	if s.LEDCount < 1 {
		return fmt.Errorf("invalid LED count: %d", s.LEDCount)
	}
	want := s.LEDCount * 3
	for i, frame := range s.Frames {
		if len(frame) != want {
			return fmt.Errorf("frame %d size mismatch: expected %d bytes, got %d",
				i, want, len(frame))
		}
	}
	return nil
}

// Encode serializes the sequence to CBOR.
func (s *Sequence) Encode() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sequence: %w", err)
	}
	return data, nil
}

// Decode parses and validates a CBOR sequence.
func Decode(data []byte) (*Sequence, error) {
	var s Sequence
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode sequence: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a sequence file.
func Load(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Save writes the sequence to a file.
func (s *Sequence) Save(path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
