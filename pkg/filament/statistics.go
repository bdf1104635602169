// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package filament

import (
	"fmt"
	"time"
)

// Statistics tracks stream health counters for a parser session.
type Statistics struct {
	StartTime time.Time

	// Raw counters
	TotalBytes     uint64
	FramesTotal    uint64
	BulkFrames     uint64
	EmptyFrames    uint64
	OtherFrames    uint64
	AcksQueued     uint64
	TriplesStored  uint64
	BytesDiscarded uint64
	FramesDropped  uint64

	// Calculated rates
	BytesPerSecond  float64
	FramesPerSecond float64
}

// NewStatistics creates a statistics tracker starting now.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// CalculateRates updates the per-second rates from the elapsed session time.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return
	}
	s.BytesPerSecond = float64(s.TotalBytes) / elapsed
	s.FramesPerSecond = float64(s.FramesTotal) / elapsed
}

// String formats the statistics for display.
func (s *Statistics) String() string {
	s.CalculateRates()
	elapsed := time.Since(s.StartTime).Round(time.Second)

	result := fmt.Sprintf("=== Stream Statistics (%s) ===\n", elapsed)
	result += fmt.Sprintf("Total Bytes:    %d (%.1f/s)\n", s.TotalBytes, s.BytesPerSecond)
	result += fmt.Sprintf("Frames:         %d (%.1f/s)\n", s.FramesTotal, s.FramesPerSecond)
	result += fmt.Sprintf("  Bulk Loads:   %d\n", s.BulkFrames)

	if s.EmptyFrames > 0 {
		result += fmt.Sprintf("  Empty:        %d\n", s.EmptyFrames)
	}
	if s.OtherFrames > 0 {
		result += fmt.Sprintf("  Unknown Cmd:  %d\n", s.OtherFrames)
	}

	result += fmt.Sprintf("Triples Stored: %d\n", s.TriplesStored)
	result += fmt.Sprintf("Acks Queued:    %d\n", s.AcksQueued)

	if s.BytesDiscarded > 0 {
		result += fmt.Sprintf("Discarded:      %d bytes\n", s.BytesDiscarded)
	}
	if s.FramesDropped > 0 {
		result += fmt.Sprintf("Dropped Frames: %d\n", s.FramesDropped)
	}

	return result
}

// Reset clears all counters and restarts the session clock.
func (s *Statistics) Reset() {
	*s = Statistics{StartTime: time.Now()}
}
