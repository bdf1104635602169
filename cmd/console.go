// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Irradiant/lampion/pkg/filament"
)

var (
	consoleLEDs       int
	consoleFPS        int
	consolePattern    string
	consoleColor      string
	consoleBrightness int
	consoleTUI        bool
	consoleStatsEvery int
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console for driving a strip",
	Long: `Drive a bridge interactively with live patterns and statistics.

The console streams generated frames to the bridge at a fixed rate and
tracks the acknowledgements coming back, so stalls and drops show up
immediately. The TUI shows a live swatch row of the strip contents,
pattern and color controls, and an event log; --tui=false falls back to
a plain text loop that just streams one pattern and prints periodic
statistics.

Patterns: solid, rainbow, gradient, chase

The connection reconnects automatically with backoff if the bridge
drops.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().IntVar(&consoleLEDs, "leds", filament.DefaultLEDCount, "Strip length")
	consoleCmd.Flags().IntVar(&consoleFPS, "fps", 30, "Frames per second to stream")
	consoleCmd.Flags().StringVar(&consolePattern, "pattern", "rainbow", "Initial pattern")
	consoleCmd.Flags().StringVar(&consoleColor, "color", "FF8800", "Base color as RRGGBB hex")
	consoleCmd.Flags().IntVar(&consoleBrightness, "brightness", 255, "Brightness 0-255")
	consoleCmd.Flags().BoolVar(&consoleTUI, "tui", true, "Use terminal UI (false for text mode)")
	consoleCmd.Flags().IntVar(&consoleStatsEvery, "stats-interval", 10, "Statistics interval in text mode (seconds)")
}

func runConsole(cmd *cobra.Command, args []string) error {
	base, err := parseConsoleColor(consoleColor)
	if err != nil {
		return err
	}
	if consoleFPS < 1 || consoleFPS > 120 {
		return fmt.Errorf("fps must be between 1 and 120")
	}
	if !validConsolePattern(consolePattern) {
		return fmt.Errorf("unknown pattern %q (solid, rainbow, gradient, chase)", consolePattern)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	cm := &consoleManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	if consoleTUI {
		m := initialConsoleModel(cm, connInfo, consoleLEDs, consoleFPS, consolePattern, base, consoleBrightness)
		p := tea.NewProgram(m, tea.WithAltScreen())
		cm.p = p

		go cm.readerLoop()

		if _, err := p.Run(); err != nil {
			close(cm.done)
			cm.getConn().Close()
			return fmt.Errorf("TUI error: %v", err)
		}

		close(cm.done)
		cm.getConn().Close()
		return nil
	}

	return runConsoleText(cm, base)
}

// consoleManager owns the connection for the console: it reads
// acknowledgements in the background and reconnects with backoff when the
// link drops.
type consoleManager struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
}

func (cm *consoleManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *consoleManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

// readerLoop counts acknowledgements into the TUI until shutdown,
// reconnecting as needed.
func (cm *consoleManager) readerLoop() {
	for {
		select {
		case <-cm.done:
			return
		default:
		}

		if cm.readAcks() {
			cm.p.Send(consoleConnLostMsg{})
			if !cm.reconnect() {
				return
			}
		} else {
			return
		}
	}
}

// readAcks pumps ack counts into the TUI until the connection fails.
// Returns true if the connection was lost, false on shutdown.
func (cm *consoleManager) readAcks() bool {
	buf := make([]byte, 64)
	for {
		select {
		case <-cm.done:
			return false
		default:
		}

		conn := cm.getConn()
		if conn == nil {
			return true
		}

		n, err := conn.Read(buf)
		if err != nil {
			select {
			case <-cm.done:
				return false
			default:
				return true
			}
		}

		acked := 0
		for _, b := range buf[:n] {
			if b == filament.AckByte {
				acked++
			}
		}
		if acked > 0 {
			cm.p.Send(consoleAckMsg{count: acked})
		}
	}
}

// reconnect retries the connection with exponential backoff. Returns
// false if shutdown was requested while waiting.
func (cm *consoleManager) reconnect() bool {
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)
			cm.p.Send(consoleReconnectedMsg{connInfo: connInfo})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runConsoleText streams one pattern and prints periodic statistics, for
// terminals where the TUI is unwelcome.
func runConsoleText(cm *consoleManager, base [3]byte) error {
	conn := cm.getConn()
	defer conn.Close()

	fmt.Printf("Lampion - Console (text mode)\n")
	fmt.Printf("Connection: %s\n", cm.connInfo)
	fmt.Printf("Pattern: %s @ %d fps, %d LEDs\n", consolePattern, consoleFPS, consoleLEDs)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	acks := NewAckStream(conn)
	rgb := make([]byte, consoleLEDs*filament.BytesPerLED)

	frameTicker := time.NewTicker(time.Second / time.Duration(consoleFPS))
	defer frameTicker.Stop()
	statsTicker := time.NewTicker(time.Duration(consoleStatsEvery) * time.Second)
	defer statsTicker.Stop()

	sent, acked, stalled := 0, 0, 0
	step := 0
	start := time.Now()

	for {
		select {
		case <-sig:
			fmt.Printf("\nSent %d frames, %d acknowledged in %v\n",
				sent, acked, time.Since(start).Round(time.Second))
			return nil

		case <-frameTicker.C:
			// Skip a frame when the bridge is more than two behind.
			for acks.Pending() > 0 {
				if err := acks.Await(time.Millisecond); err != nil {
					break
				}
				acked++
			}
			if sent-acked >= 2 {
				stalled++
				continue
			}

			renderConsolePattern(consolePattern, rgb, step, base, byte(consoleBrightness))
			step++

			wire, err := filament.EncodeBulkLoad(rgb)
			if err != nil {
				return err
			}
			if _, err := conn.Write(wire); err != nil {
				return fmt.Errorf("send failed after %d frames: %v", sent, err)
			}
			sent++

		case <-statsTicker.C:
			elapsed := time.Since(start).Seconds()
			fmt.Printf("[%s] sent=%d acked=%d outstanding=%d skipped=%d rate=%.1f fps\n",
				time.Now().Format("15:04:05"), sent, acked, sent-acked, stalled,
				float64(sent)/elapsed)
		}
	}
}

// parseConsoleColor converts RRGGBB text to a color triple.
func parseConsoleColor(s string) ([3]byte, error) {
	r, g, b, err := parseHexColor(s)
	if err != nil {
		return [3]byte{}, err
	}
	return [3]byte{r, g, b}, nil
}

func validConsolePattern(name string) bool {
	for _, p := range consolePatterns {
		if p == name {
			return true
		}
	}
	return false
}

// renderConsolePattern fills rgb with one animation step. step advances
// once per frame; brightness scales every channel.
func renderConsolePattern(pattern string, rgb []byte, step int, base [3]byte, brightness byte) {
	count := len(rgb) / filament.BytesPerLED
	if count == 0 {
		return
	}

	for i := 0; i < count; i++ {
		var r, g, b byte

		switch pattern {
		case "solid":
			r, g, b = base[0], base[1], base[2]

		case "rainbow":
			r, g, b = colorWheel(byte((i*256/count + step) & 0xFF))

		case "gradient":
			// Base color ramping to black along the strip.
			fade := 255
			if count > 1 {
				fade = 255 - i*255/(count-1)
			}
			r = byte(int(base[0]) * fade / 255)
			g = byte(int(base[1]) * fade / 255)
			b = byte(int(base[2]) * fade / 255)

		case "chase":
			if i == step%count {
				r, g, b = base[0], base[1], base[2]
			}
		}

		rgb[i*3] = scaleChannel(r, brightness)
		rgb[i*3+1] = scaleChannel(g, brightness)
		rgb[i*3+2] = scaleChannel(b, brightness)
	}
}

func scaleChannel(v, brightness byte) byte {
	return byte(int(v) * int(brightness) / 255)
}

// colorWheel maps 0-255 onto the RGB color wheel.
func colorWheel(pos byte) (r, g, b byte) {
	switch {
	case pos < 85:
		return 255 - pos*3, pos * 3, 0
	case pos < 170:
		pos -= 85
		return 0, 255 - pos*3, pos * 3
	default:
		pos -= 170
		return pos * 3, 0, 255 - pos*3
	}
}
