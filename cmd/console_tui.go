// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Dana Sorel, Irradiant

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Irradiant/lampion/pkg/filament"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxFramesInFlight = 2  // Skip frames when the bridge falls this far behind
	brightnessStep    = 15 // Brightness change per keypress
	fpsStep           = 5  // Frame rate change per keypress
	minConsoleFPS     = 1
	maxConsoleFPS     = 120
)

// Focus states
const (
	focusPatterns = iota
	focusColorInput
)

var consolePatterns = []string{"solid", "rainbow", "gradient", "chase"}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// consoleLogEntry is one line in the event log
type consoleLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// consoleModel is the Bubble Tea model for the strip console
type consoleModel struct {
	// Connection manager (for sending frames and reconnection)
	cm       *consoleManager
	connInfo string

	// Strip state
	ledCount   int
	rgb        []byte
	pattern    int // index into consolePatterns
	base       [3]byte
	brightness int
	paused     bool
	step       int

	// Pacing
	fps         int
	outstanding int // frames sent but not yet acknowledged

	// Statistics
	framesSent    int
	acksSeen      int
	framesSkipped int
	startTime     time.Time

	// Color input
	colorInput   textinput.Model
	focusedField int

	// Event log
	eventLog      []consoleLogEntry
	maxLogEntries int

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type consoleFrameMsg time.Time

type consoleAckMsg struct {
	count int
}

type consoleConnLostMsg struct{}

type consoleReconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialConsoleModel(cm *consoleManager, connInfo string, ledCount, fps int, pattern string, base [3]byte, brightness int) consoleModel {
	// Initialize text input for the base color
	ti := textinput.New()
	ti.Placeholder = "RRGGBB"
	ti.CharLimit = 7
	ti.Width = 10

	patternIdx := 0
	for i, p := range consolePatterns {
		if p == pattern {
			patternIdx = i
		}
	}

	return consoleModel{
		cm:            cm,
		connInfo:      connInfo,
		ledCount:      ledCount,
		rgb:           make([]byte, ledCount*filament.BytesPerLED),
		pattern:       patternIdx,
		base:          base,
		brightness:    brightness,
		fps:           fps,
		startTime:     time.Now(),
		colorInput:    ti,
		focusedField:  focusPatterns,
		eventLog:      make([]consoleLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return consoleFrameCmd(m.fps)
}

func consoleFrameCmd(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return consoleFrameMsg(t)
	})
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case consoleFrameMsg:
		m.advanceFrame()
		return m, consoleFrameCmd(m.fps)

	case consoleAckMsg:
		m.acksSeen += msg.count
		m.outstanding -= msg.count
		if m.outstanding < 0 {
			m.outstanding = 0
		}

	case consoleConnLostMsg:
		m.connectionLost = true
		m.outstanding = 0
		m.addLogEntry("Connection lost - reconnecting...", true)

	case consoleReconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.outstanding = 0
		m.addLogEntry("Reconnected", false)
	}

	// Update child components
	var cmd tea.Cmd
	if m.focusedField == focusColorInput {
		m.colorInput, cmd = m.colorInput.Update(msg)
	}

	return m, cmd
}

func (m *consoleModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		return m.cycleFocus(), nil

	case "enter":
		if m.focusedField == focusColorInput {
			return m.applyColorInput()
		}

	case "esc":
		if m.focusedField == focusColorInput {
			m.colorInput.Blur()
			m.focusedField = focusPatterns
		}

	case "left", "h":
		if m.focusedField == focusPatterns {
			m.pattern = (m.pattern + len(consolePatterns) - 1) % len(consolePatterns)
		}

	case "right", "l", "p":
		if m.focusedField == focusPatterns {
			m.pattern = (m.pattern + 1) % len(consolePatterns)
		}

	case "+", "=":
		m.brightness += brightnessStep
		if m.brightness > 255 {
			m.brightness = 255
		}

	case "-", "_":
		m.brightness -= brightnessStep
		if m.brightness < 0 {
			m.brightness = 0
		}

	case "[":
		if m.fps-fpsStep >= minConsoleFPS {
			m.fps -= fpsStep
		} else {
			m.fps = minConsoleFPS
		}

	case "]":
		m.fps += fpsStep
		if m.fps > maxConsoleFPS {
			m.fps = maxConsoleFPS
		}

	case " ":
		m.paused = !m.paused
		if m.paused {
			m.addLogEntry("Paused", false)
		} else {
			m.addLogEntry("Resumed", false)
		}

	case "x":
		return m.blackout()
	}

	// Pass through to focused component
	if m.focusedField == focusColorInput {
		var cmd tea.Cmd
		m.colorInput, cmd = m.colorInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *consoleModel) cycleFocus() *consoleModel {
	if m.focusedField == focusPatterns {
		m.focusedField = focusColorInput
		m.colorInput.Focus()
	} else {
		m.focusedField = focusPatterns
		m.colorInput.Blur()
	}
	return m
}

func (m *consoleModel) applyColorInput() (tea.Model, tea.Cmd) {
	val := m.colorInput.Value()
	if val == "" {
		m.colorInput.Blur()
		m.focusedField = focusPatterns
		return m, nil
	}

	base, err := parseConsoleColor(val)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid color: %s", val), true)
		return m, nil
	}

	m.base = base
	m.addLogEntry(fmt.Sprintf("Base color set to %02X%02X%02X", base[0], base[1], base[2]), false)
	m.colorInput.SetValue("")
	m.colorInput.Blur()
	m.focusedField = focusPatterns
	return m, nil
}

// blackout pauses the animation and turns the strip off.
func (m *consoleModel) blackout() (tea.Model, tea.Cmd) {
	m.paused = true
	for i := range m.rgb {
		m.rgb[i] = 0
	}
	if m.sendFrame() {
		m.addLogEntry("Blackout", false)
	}
	return m, nil
}

//////////////////////////////////////////////////////////////
// Frame Streaming
//////////////////////////////////////////////////////////////

// advanceFrame renders the next animation step and sends it, unless the
// bridge has fallen behind on acknowledgements.
func (m *consoleModel) advanceFrame() {
	if m.paused || m.connectionLost {
		return
	}

	if m.outstanding >= maxFramesInFlight {
		m.framesSkipped++
		return
	}

	renderConsolePattern(consolePatterns[m.pattern], m.rgb, m.step, m.base, byte(m.brightness))
	m.step++

	m.sendFrame()
}

// sendFrame writes the current frame buffer to the bridge. Returns true
// if the frame went out.
func (m *consoleModel) sendFrame() bool {
	wire, err := filament.EncodeBulkLoad(m.rgb)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Frame encode failed: %v", err), true)
		return false
	}

	conn := m.cm.getConn()
	if conn == nil {
		m.addLogEntry("Cannot send frame: connection lost", true)
		return false
	}

	if _, err := conn.Write(wire); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send frame: %v", err), true)
		return false
	}

	m.framesSent++
	m.outstanding++
	return true
}

func (m *consoleModel) addLogEntry(message string, isError bool) {
	entry := consoleLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	helpText := "q=quit Tab=color arrows=pattern +/-=brightness [/]=fps Space=pause x=blackout"
	s.WriteString(titleStyle.Render("LAMPION CONSOLE"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s", connStatus)))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(helpText))
	s.WriteString("\n\n")

	// Strip swatch row
	s.WriteString(m.renderSwatches(statsLabelStyle, boxStyle))
	s.WriteString("\n\n")

	// Controls panel
	s.WriteString(m.renderControls(statsLabelStyle, statsValueStyle, headerStyle, warningStyle, boxStyle, focusedBoxStyle))
	s.WriteString("\n\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

// renderSwatches draws the strip contents as a row of colored cells,
// sampling evenly when the strip is wider than the terminal.
func (m consoleModel) renderSwatches(statsLabelStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("STRIP"))
	s.WriteString("\n")

	maxCells := (m.width - 8) / 2
	if maxCells < 1 {
		maxCells = 1
	}

	stride := 1
	if m.ledCount > maxCells {
		stride = (m.ledCount + maxCells - 1) / maxCells
	}

	for i := 0; i < m.ledCount; i += stride {
		r := m.rgb[i*3]
		g := m.rgb[i*3+1]
		b := m.rgb[i*3+2]
		cell := lipgloss.NewStyle().
			Background(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, b))).
			Render("  ")
		s.WriteString(cell)
	}

	if stride > 1 {
		s.WriteString(fmt.Sprintf("\n(1 cell = %d LEDs)", stride))
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

func (m consoleModel) renderControls(statsLabelStyle, statsValueStyle, headerStyle, warningStyle, boxStyle, focusedBoxStyle lipgloss.Style) string {
	var s strings.Builder

	// Pattern selector
	s.WriteString(statsLabelStyle.Render("Pattern: "))
	for i, name := range consolePatterns {
		if i == m.pattern {
			s.WriteString(statsValueStyle.Render(fmt.Sprintf("[%s]", name)))
		} else {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" %s ", name)))
		}
		s.WriteString(" ")
	}
	s.WriteString("\n")

	// Base color
	s.WriteString(statsLabelStyle.Render("Color:   "))
	if m.focusedField == focusColorInput {
		s.WriteString(m.colorInput.View())
	} else {
		s.WriteString(fmt.Sprintf("[%02X%02X%02X]", m.base[0], m.base[1], m.base[2]))
	}
	s.WriteString("\n")

	// Brightness bar
	filled := m.brightness / 16
	s.WriteString(statsLabelStyle.Render("Bright:  "))
	s.WriteString(statsValueStyle.Render(strings.Repeat("#", filled)))
	s.WriteString(headerStyle.Render(strings.Repeat(".", 16-filled)))
	s.WriteString(fmt.Sprintf(" %d", m.brightness))
	s.WriteString("\n")

	// Frame rate and pause state
	s.WriteString(statsLabelStyle.Render("Rate:    "))
	s.WriteString(statsValueStyle.Render(fmt.Sprintf("%d fps", m.fps)))
	if m.paused {
		s.WriteString("  ")
		s.WriteString(warningStyle.Render("PAUSED"))
	}

	style := boxStyle
	if m.focusedField == focusColorInput {
		style = focusedBoxStyle
	}
	return style.Width(m.width - 4).Render(s.String())
}

func (m consoleModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	elapsed := time.Since(m.startTime).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(m.framesSent) / elapsed
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", m.framesSent)),
		statsLabelStyle.Render("Acked:"), statsValueStyle.Render(fmt.Sprintf("%d", m.acksSeen)),
		statsLabelStyle.Render("In flight:"), statsValueStyle.Render(fmt.Sprintf("%d", m.outstanding)),
		statsLabelStyle.Render("Skipped:"), func() string {
			if m.framesSkipped > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.framesSkipped))
			}
			return statsValueStyle.Render("0")
		}(),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f fps", rate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m consoleModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}

	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}
