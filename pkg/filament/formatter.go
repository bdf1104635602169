// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package filament

import "fmt"

// FormatCommand returns the mnemonic for a command byte.
func FormatCommand(command byte) string {
	switch command {
	case CmdBulkLoad:
		return "BULK_LOAD"
	default:
		return "UNKNOWN"
	}
}

// FormatFrame renders a one-line human-readable summary of a completed
// frame, suitable for stream logging.
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d",
		timestamp, FormatCommand(f.Command()), f.Command(), f.Length())

	if f.IsBulkLoad() {
		result += fmt.Sprintf(" triples=%d", f.Stored())
		if f.Discarded() > 0 {
			result += fmt.Sprintf(" discarded=%d", f.Discarded())
		}
		if f.Dropped() {
			result += " DROPPED"
		}
	}

	return result
}
