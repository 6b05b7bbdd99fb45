// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/pkg/ekg"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxLogEntries = 100

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// kettleSession is the part of *kettle.Session the TUI uses.
type kettleSession interface {
	ReadState(ctx context.Context) (ekg.State, error)
	Apply(ctx context.Context, cmd ekg.Command) (ekg.State, error)
	LinkState() kettle.LinkState
}

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// watchModel is the Bubble Tea model for the watch TUI
type watchModel struct {
	ctx          context.Context
	session      kettleSession
	connInfo     string
	pollInterval time.Duration

	state ekg.State
	known bool

	busy    string // description of the running operation, empty when idle
	spinner spinner.Model
	log     []logEntry

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type pollTickMsg time.Time

type kettleEventMsg kettle.Event

type opDoneMsg struct {
	what string
	err  error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialWatchModel(ctx context.Context, session kettleSession, connInfo string, pollInterval time.Duration) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return watchModel{
		ctx:          ctx,
		session:      session,
		connInfo:     connInfo,
		pollInterval: pollInterval,
		busy:         "refresh",
		spinner:      sp,
		log:          make([]logEntry, 0),
		width:        80,
		height:       24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startOp("refresh", nil))
}

func pollTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pollTickMsg:
		if m.busy != "" {
			return m, pollTickCmd(m.pollInterval)
		}
		cmd := m.startOp("refresh", nil)
		m.busy = "refresh"
		return m, cmd

	case kettleEventMsg:
		m.handleEvent(kettle.Event(msg))

	case opDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.what, msg.err), true)
		} else if msg.what != "refresh" {
			m.addLogEntry(msg.what+" applied", false)
		}
		return m, pollTickCmd(m.pollInterval)
	}

	return m, nil
}

func (m watchModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.busy != "" {
		return m, nil
	}

	command := m.commandForKey(msg.String())
	if command == nil && msg.String() != "r" {
		return m, nil
	}
	what := "refresh"
	if command != nil {
		what = command.String()
	}
	cmd := m.startOp(what, command)
	m.busy = what
	return m, cmd
}

// commandForKey maps a quick-command key to a kettle command. Keys that
// need a known state return nil until the first read completes.
func (m watchModel) commandForKey(key string) ekg.Command {
	if !m.known {
		return nil
	}
	step := 0.5
	current := m.state.TargetTemp.Celsius()
	unit := ekg.Celsius
	if m.state.Units == ekg.Fahrenheit {
		step = 1
		current = m.state.TargetTemp.Fahrenheit()
		unit = ekg.Fahrenheit
	}

	switch key {
	case "+", "=":
		return ekg.SetTargetTemp{Value: current + step, Unit: unit}
	case "-":
		return ekg.SetTargetTemp{Value: current - step, Unit: unit}
	case "p":
		return ekg.SetPreboil{Enabled: !m.state.Preboil}
	case "u":
		if m.state.Units == ekg.Celsius {
			return ekg.SetUnits{Units: ekg.Fahrenheit}
		}
		return ekg.SetUnits{Units: ekg.Celsius}
	}
	return nil
}

// startOp returns a tea.Cmd that reads the kettle, or applies command when
// it is not nil. Results arrive as opDoneMsg; state arrives as cache events.
func (m watchModel) startOp(what string, command ekg.Command) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		var err error
		if command == nil {
			_, err = session.ReadState(ctx)
		} else {
			_, err = session.Apply(ctx, command)
		}
		return opDoneMsg{what: what, err: err}
	}
}

func (m *watchModel) handleEvent(ev kettle.Event) {
	switch ev.Kind {
	case kettle.Refreshed:
		m.state = ev.State
		m.known = true
	case kettle.FieldChanged:
		// The first read reports every field; only log real changes
		if ev.Change.Old != nil && ev.Change.Field != ekg.FieldCounter {
			m.addLogEntry(fmt.Sprintf("%s: %s -> %s", ev.Change.Field,
				ekg.FormatValue(ev.Change.Old), ekg.FormatValue(ev.Change.New)), false)
		}
	}
}

func (m *watchModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, logEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.log) > maxLogEntries {
		m.log = m.log[len(m.log)-maxLogEntries:]
	}
}

func (m watchModel) View() string {
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

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
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

	// Header
	s.WriteString(titleStyle.Render("STAGG WATCH"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s | q=quit r=refresh +/-=temp p=preboil u=units",
		m.connInfo, m.session.LinkState())))
	s.WriteString("\n")
	if m.busy != "" {
		s.WriteString(fmt.Sprintf(" %s %s", m.spinner.View(), warningStyle.Render(m.busy+"...")))
	}
	s.WriteString("\n\n")

	if !m.known {
		s.WriteString(boxStyle.Width(m.width - 4).Render(warningStyle.Render("Waiting for the first read...")))
	} else {
		s.WriteString(m.renderState(labelStyle, valueStyle, boxStyle))
	}
	s.WriteString("\n")
	s.WriteString(m.renderEventLog(labelStyle, headerStyle, warningStyle, errorStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m watchModel) renderState(labelStyle, valueStyle, boxStyle lipgloss.Style) string {
	st := m.state
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), valueStyle.Render(value))
	}

	target := ekg.FormatTemp(st.TargetTemp, st.Units)
	preboil := "off"
	if st.Preboil {
		preboil = "on"
	}
	hold := "off"
	if st.HoldMinutes > 0 {
		hold = fmt.Sprintf("%d min", st.HoldMinutes)
	}

	var left, right strings.Builder
	left.WriteString(row("Target", target))
	left.WriteString(row("Pre-boil", preboil))
	left.WriteString(row("Hold", hold))
	left.WriteString(row("Units", st.Units.String()))
	right.WriteString(row("Schedule", ekg.FormatSchedule(st)))
	right.WriteString(row("Clock", fmt.Sprintf("%02d:%02d (%s)", st.ClockHour, st.ClockMinute, st.ClockMode)))
	right.WriteString(row("Altitude", fmt.Sprintf("%d m", st.AltitudeM)))
	right.WriteString(row("Chime", fmt.Sprintf("%d/%d", st.ChimeVolume, ekg.ChimeMax)))

	half := (m.width - 8) / 2
	content := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(half).Render(left.String()),
		lipgloss.NewStyle().Width(half).Render(right.String()))
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m watchModel) renderEventLog(labelStyle, headerStyle, warningStyle, errorStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	// Calculate available height for log
	logHeight := max(m.height-16, 3)
	startIdx := max(len(m.log)-logHeight, 0)

	if len(m.log) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.log[startIdx:] {
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}
