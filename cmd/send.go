// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Irradiant/lampion/pkg/filament"
)

var (
	sendColor   string
	sendLEDs    int
	sendTimeout int
)

var sendCmd = &cobra.Command{
	Use:   "send [RRGGBB...]",
	Short: "Send one color frame to a bridge",
	Long: `Encode one bulk color load, send it, and wait for the acknowledgement.

With positional arguments, each RRGGBB value colors one LED in order.
Without arguments, --color fills the whole strip (--leds sets its length).

Examples:
  # Paint a 128-LED strip solid orange
  lampion send --port /dev/ttyACM0 --color FF8800

  # Set the first three LEDs individually
  lampion send --port /dev/ttyACM0 FF0000 00FF00 0000FF

Exit codes:
  0 - Frame acknowledged
  1 - No acknowledgement before timeout
  2 - Connection error`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendColor, "color", "FFFFFF", "Fill color as RRGGBB hex")
	sendCmd.Flags().IntVar(&sendLEDs, "leds", filament.DefaultLEDCount, "Strip length for --color fills")
	sendCmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Seconds to wait for the acknowledgement")
}

func runSend(cmd *cobra.Command, args []string) error {
	frame, described, err := buildSendFrame(args)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Lampion - Send Frame\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Frame: %s (%d bytes on the wire)\n\n", described, len(frame))

	acks := NewAckStream(conn)
	start := time.Now()

	if _, err := conn.Write(frame); err != nil {
		fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
		os.Exit(2)
	}

	err = acks.Await(time.Duration(sendTimeout) * time.Second)
	switch {
	case err == nil:
		fmt.Printf("SUCCESS: acknowledged in %v\n", time.Since(start).Round(time.Microsecond))
	case errors.Is(err, ErrAckTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: no acknowledgement within %d seconds\n", sendTimeout)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)
	}

	return nil
}

// buildSendFrame assembles the bulk load from args or the fill flags.
func buildSendFrame(args []string) (frame []byte, described string, err error) {
	if len(args) == 0 {
		r, g, b, err := parseHexColor(sendColor)
		if err != nil {
			return nil, "", err
		}
		frame, err = filament.EncodeFill(r, g, b, sendLEDs)
		if err != nil {
			return nil, "", err
		}
		return frame, fmt.Sprintf("fill %02X%02X%02X x %d LEDs", r, g, b, sendLEDs), nil
	}

	rgb := make([]byte, 0, len(args)*filament.BytesPerLED)
	for _, arg := range args {
		r, g, b, err := parseHexColor(arg)
		if err != nil {
			return nil, "", err
		}
		rgb = append(rgb, r, g, b)
	}
	frame, err = filament.EncodeBulkLoad(rgb)
	if err != nil {
		return nil, "", err
	}
	return frame, fmt.Sprintf("%d explicit LEDs", len(args)), nil
}

// parseHexColor parses RRGGBB (with or without a leading #).
func parseHexColor(s string) (r, g, b byte, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid color %q: want RRGGBB", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %v", s, err)
	}
	return byte(v >> 16), byte(v >> 8), byte(v), nil
}
