// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/Irradiant/lampion/pkg/device"
	"github.com/Irradiant/lampion/pkg/filament"
	"github.com/Irradiant/lampion/pkg/ws281x"
)

var (
	runConfigPath string
	runLEDCount   int
	runListenAddr string
	runPreview    bool
	runSPIPort    string
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge daemon",
	Long: `Run the strip side of a Filament link on this machine.

The daemon reads the Filament byte stream from a host, decodes bulk color
loads into the frame buffer, clocks the buffer out to a WS281x strip over
SPI, and answers each completed frame with an acknowledgement byte.

The host attaches over a serial device (--port, typically a USB gadget
tty) or over WebSocket when --listen is set. Without an SPI port the
daemon falls back to drawing the strip in the terminal, which --preview
forces.

Settings come from an optional YAML profile (--config), overridden by
flags.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "YAML profile path")
	runCmd.Flags().IntVar(&runLEDCount, "leds", 0, "Number of LEDs on the strip")
	runCmd.Flags().StringVar(&runListenAddr, "listen", "", "Serve the WebSocket endpoint on this address (e.g. :8337)")
	runCmd.Flags().BoolVar(&runPreview, "preview", false, "Draw the strip in the terminal instead of SPI output")
	runCmd.Flags().StringVar(&runSPIPort, "spi", "", "SPI port registry name (default: first available)")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Log every decoded frame")
}

func runBridge(cmd *cobra.Command, args []string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if runVerbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	profile, err := loadRunProfile()
	if err != nil {
		return err
	}

	strip, err := openStrip(profile)
	if err != nil {
		return err
	}
	defer strip.Close()

	buf := filament.NewFrameBuffer(profile.LEDCount)
	tx := ws281x.New(strip, buf.Bytes())
	parser := filament.NewParser(buf)
	parser.SetStrip(tx)

	ep, srv, err := openEndpoint(profile)
	if err != nil {
		return err
	}
	defer ep.Close()

	ctrl := device.NewController(ep, parser)
	ctrl.SetPollInterval(time.Duration(profile.PollUs) * time.Microsecond)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("leds", profile.LEDCount).
		Str("output", profile.Output).
		Int("poll_us", profile.PollUs).
		Msg("bridge running")

	err = ctrl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	log.Info().Msg("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		srv.Shutdown(shutdownCtx)
		cancel()
	}
	if !tx.WaitIdle(2 * time.Second) {
		log.Warn().Msg("strip transmission still active at shutdown")
	}

	stats := ctrl.Stats()
	stats.CalculateRates()
	fmt.Println()
	fmt.Print(stats.String())

	return err
}

// loadRunProfile merges the optional YAML profile with flag overrides.
func loadRunProfile() (*device.Profile, error) {
	profile := device.DefaultProfile()
	if runConfigPath != "" {
		p, err := device.LoadProfile(runConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %v", err)
		}
		profile = p
	}

	if runLEDCount > 0 {
		profile.LEDCount = runLEDCount
	}
	if runListenAddr != "" {
		profile.Listen = runListenAddr
	}
	if runPreview {
		profile.Output = "preview"
	}
	if runSPIPort != "" {
		profile.SPI.Port = runSPIPort
	}
	if portName != "" {
		profile.Serial.Port = portName
	}
	if baudRate > 0 {
		profile.Serial.Baud = baudRate
	}

	return profile, nil
}

// openStrip picks the output peripheral: SPI when a port exists, the
// terminal drawer otherwise.
func openStrip(profile *device.Profile) (ws281x.Peripheral, error) {
	if profile.Output == "preview" {
		return ws281x.NewPreview(profile.LEDCount), nil
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init failed: %v", err)
	}

	opts := &ws281x.SPIOpts{
		Freq:       physic.Frequency(profile.SPI.FreqKHz) * physic.KiloHertz,
		LatchBytes: profile.SPI.LatchBytes,
	}
	per, err := ws281x.NewSPI(profile.SPI.Port, opts)
	if err != nil {
		log.Warn().Err(err).Msg("no SPI port available, drawing to terminal")
		return ws281x.NewPreview(profile.LEDCount), nil
	}

	log.Info().
		Str("port", profile.SPI.Port).
		Int("freq_khz", profile.SPI.FreqKHz).
		Msg("SPI output open")
	return per, nil
}

// openEndpoint opens the host-facing byte pipe. The returned server is
// non-nil only in WebSocket mode.
func openEndpoint(profile *device.Profile) (device.Endpoint, *http.Server, error) {
	if profile.Listen != "" {
		ep := device.NewWSEndpoint()
		srv := &http.Server{Addr: profile.Listen, Handler: ep}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("websocket listener failed")
			}
		}()
		log.Info().Str("listen", profile.Listen).Msg("websocket endpoint open")
		return ep, srv, nil
	}

	if profile.Serial.Port == "" {
		return nil, nil, fmt.Errorf("no endpoint configured: set --port or --listen")
	}
	ep, err := device.NewSerialEndpoint(profile.Serial.Port, profile.Serial.Baud)
	if err != nil {
		return nil, nil, err
	}
	return ep, nil, nil
}
