// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/Irradiant/lampion/pkg/filament"
)

var (
	discoverProbe   bool
	discoverTimeout int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List serial ports and find bridges",
	Long: `Enumerate serial ports, optionally probing each for a live bridge.

Without --probe the command just lists the ports the OS reports. With
--probe it opens each port in turn, sends a minimal color load, and
reports the ports that answer with an acknowledgement.

Probing writes a few bytes to every port, which can confuse unrelated
serial devices. Leave it off on machines with instruments attached.

Exit codes:
  0 - Ports listed (and, with --probe, at least one bridge found)
  1 - No ports found, or no bridge answered a probe
  2 - Enumeration error`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().BoolVar(&discoverProbe, "probe", false, "Probe each port for a responding bridge")
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 2, "Timeout in seconds per probed port")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Enumeration error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Lampion - Port Discovery\n\n")

	if len(ports) == 0 {
		fmt.Printf("No serial ports found.\n")
		os.Exit(1)
	}

	if !discoverProbe {
		for _, port := range ports {
			fmt.Printf("  %s\n", port)
		}
		fmt.Printf("\n%d port(s). Re-run with --probe to look for bridges.\n", len(ports))
		return nil
	}

	wire := filament.MustEncodeBulkLoad([]byte{0x00, 0x00, 0x00})
	found := 0

	for _, port := range ports {
		fmt.Printf("  %s: ", port)

		conn, err := OpenSerialConnection(port, baudRate)
		if err != nil {
			fmt.Printf("skipped (%v)\n", err)
			continue
		}

		acks := NewAckStream(conn)
		if _, err := conn.Write(wire); err != nil {
			fmt.Printf("write failed (%v)\n", err)
			conn.Close()
			continue
		}

		err = acks.Await(time.Duration(discoverTimeout) * time.Second)
		switch {
		case err == nil:
			fmt.Printf("BRIDGE\n")
			found++
		case errors.Is(err, ErrAckTimeout):
			fmt.Printf("no answer\n")
		default:
			fmt.Printf("read failed (%v)\n", err)
		}
		conn.Close()
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Bridges found: %d of %d port(s)\n", found, len(ports))

	if found == 0 {
		os.Exit(1)
	}
	return nil
}
