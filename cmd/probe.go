// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Irradiant/lampion/pkg/filament"
)

var (
	probeCount   int
	probeTimeout int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test a bridge by round-tripping minimal frames",
	Long: `Send a minimal one-LED color load and wait for the acknowledgement.

The probe frame paints a single black LED, so it is invisible on strips
longer than zero and exercises the whole path: transport, parser, frame
hand-off, and the acknowledgement channel back.

This is useful for verifying:
  - The serial device or WebSocket URL reaches a live bridge
  - HTTP Basic authentication works
  - The bridge is parsing and acknowledging frames

Exit codes:
  0 - All probes acknowledged
  1 - One or more probes timed out
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeCount, "count", 3, "Number of probes to send")
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 5, "Timeout in seconds for each probe")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Lampion - Bridge Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per probe\n", probeTimeout)
	fmt.Printf("Count: %d probes\n\n", probeCount)

	acks := NewAckStream(conn)
	wire := filament.MustEncodeBulkLoad([]byte{0x00, 0x00, 0x00})

	acked := 0
	var rtts []time.Duration

	for i := 1; i <= probeCount; i++ {
		start := time.Now()

		if _, err := conn.Write(wire); err != nil {
			fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
			os.Exit(2)
		}

		err := acks.Await(time.Duration(probeTimeout) * time.Second)
		switch {
		case err == nil:
			rtt := time.Since(start)
			rtts = append(rtts, rtt)
			acked++
			fmt.Printf("probe %d: acknowledged in %v\n", i, rtt.Round(time.Microsecond))
		case errors.Is(err, ErrAckTimeout):
			fmt.Printf("probe %d: TIMEOUT after %d seconds\n", i, probeTimeout)
		default:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		}

		if i < probeCount {
			time.Sleep(250 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Probe summary ---\n")
	fmt.Printf("Acknowledged: %d/%d\n", acked, probeCount)
	if len(rtts) > 0 {
		min, max, sum := rtts[0], rtts[0], time.Duration(0)
		for _, rtt := range rtts {
			if rtt < min {
				min = rtt
			}
			if rtt > max {
				max = rtt
			}
			sum += rtt
		}
		avg := sum / time.Duration(len(rtts))
		fmt.Printf("RTT min/avg/max: %v / %v / %v\n",
			min.Round(time.Microsecond), avg.Round(time.Microsecond), max.Round(time.Microsecond))
	}

	if acked < probeCount {
		os.Exit(1)
	}
	return nil
}
