// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Irradiant/lampion/pkg/filament"
)

var (
	decodeLEDs int
	decodeHex  bool
	decodeAll  bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a captured host-to-bridge byte stream",
	Long: `Replay a captured Filament stream through the parser and summarize it.

Reads raw bytes from the given file, or from stdin when the file is "-"
or omitted. Each completed frame prints as one line; a statistics block
follows at the end. --hex accepts whitespace-separated hex text instead
of raw bytes, which is handy for pasting logic-analyzer exports.

The parser never rejects input, so this also shows how a bridge would
chew through corrupted captures: bad lengths simply shift where the next
header is read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().IntVar(&decodeLEDs, "leds", filament.DefaultLEDCount, "Strip length to decode against")
	decodeCmd.Flags().BoolVar(&decodeHex, "hex", false, "Input is hex text, not raw bytes")
	decodeCmd.Flags().BoolVar(&decodeAll, "show-empty", false, "Show empty frames too")
}

func runDecode(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read stream: %v", err)
	}

	if decodeHex {
		data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
		if err != nil {
			return fmt.Errorf("invalid hex input: %v", err)
		}
	}

	parser := filament.NewParser(filament.NewFrameBuffer(decodeLEDs))

	for _, b := range data {
		frame := parser.ParseByte(b)
		if frame == nil {
			continue
		}
		if frame.Length() == 0 && !decodeAll {
			continue
		}
		fmt.Println(filament.FormatFrame(frame))
	}

	stats := parser.Stats()
	fmt.Printf("\n%s", stats.String())
	fmt.Printf("Acks a bridge would have sent: %d\n", parser.PendingAcks())

	return nil
}
