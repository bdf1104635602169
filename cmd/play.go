// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Irradiant/lampion/pkg/anim"
	"github.com/Irradiant/lampion/pkg/filament"
)

var (
	playLoop    bool
	playFPS     int
	playTimeout int
)

var playCmd = &cobra.Command{
	Use:   "play <sequence file>",
	Short: "Stream an animation sequence to a bridge",
	Long: `Play a CBOR animation sequence frame by frame.

Each frame is sent as one bulk color load. The player waits for the
bridge's acknowledgement before pacing the next frame, so a slow strip
throttles playback instead of overflowing it.

Exit codes:
  0 - Playback finished (or interrupted by the user)
  1 - Bridge stopped acknowledging
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "Repeat the sequence until interrupted")
	playCmd.Flags().IntVar(&playFPS, "fps", 0, "Override the sequence frame rate")
	playCmd.Flags().IntVar(&playTimeout, "timeout", 5, "Seconds to wait for each acknowledgement")
}

func runPlay(cmd *cobra.Command, args []string) error {
	seq, err := anim.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load sequence: %v", err)
	}
	if playFPS > 0 {
		seq.FPS = playFPS
	}
	if seq.FrameCount() == 0 {
		return fmt.Errorf("sequence %q has no frames", args[0])
	}

	// Encode every frame up front so the pacing loop only writes.
	wires := make([][]byte, seq.FrameCount())
	for i := range wires {
		wires[i], err = filament.EncodeBulkLoad(seq.Frame(i))
		if err != nil {
			return fmt.Errorf("frame %d: %v", i, err)
		}
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	name := seq.Name
	if name == "" {
		name = args[0]
	}
	fmt.Printf("Lampion - Play Sequence\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Sequence: %s (%d frames, %d LEDs, %d fps)\n", name, seq.FrameCount(), seq.LEDCount, seq.FPS)
	if playLoop {
		fmt.Printf("Looping until interrupted\n")
	}
	fmt.Printf("\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	acks := NewAckStream(conn)
	frameTime := seq.FrameDuration()
	sent := 0
	start := time.Now()

playback:
	for {
		for _, wire := range wires {
			select {
			case <-ctx.Done():
				break playback
			default:
			}

			frameStart := time.Now()
			if _, err := conn.Write(wire); err != nil {
				fmt.Fprintf(os.Stderr, "SEND FAILED after %d frames: %v\n", sent, err)
				os.Exit(2)
			}

			err := acks.Await(time.Duration(playTimeout) * time.Second)
			switch {
			case err == nil:
			case errors.Is(err, ErrAckTimeout):
				fmt.Fprintf(os.Stderr, "TIMEOUT: bridge stopped acknowledging after %d frames\n", sent)
				os.Exit(1)
			default:
				fmt.Fprintf(os.Stderr, "Read error after %d frames: %v\n", sent, err)
				os.Exit(2)
			}
			sent++

			if remain := frameTime - time.Since(frameStart); remain > 0 {
				select {
				case <-time.After(remain):
				case <-ctx.Done():
					break playback
				}
			}
		}

		if !playLoop {
			break
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("\nSent %d frames in %v", sent, elapsed.Round(time.Millisecond))
	if sent > 0 && elapsed > 0 {
		fmt.Printf(" (%.1f fps effective)", float64(sent)/elapsed.Seconds())
	}
	fmt.Printf("\n")

	return nil
}
