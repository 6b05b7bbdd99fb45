// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/pkg/ekg"
)

type stubSession struct {
	applied []ekg.Command
	reads   int
	err     error
}

func (s *stubSession) ReadState(context.Context) (ekg.State, error) {
	s.reads++
	return ekg.State{}, s.err
}

func (s *stubSession) Apply(_ context.Context, cmd ekg.Command) (ekg.State, error) {
	s.applied = append(s.applied, cmd)
	return ekg.State{}, s.err
}

func (s *stubSession) LinkState() kettle.LinkState { return kettle.Connected }

func knownModel(t *testing.T, session kettleSession) watchModel {
	t.Helper()
	b, err := parseHex([]string{sampleHex})
	require.NoError(t, err)
	s, err := ekg.Decode(b)
	require.NoError(t, err)

	m := initialWatchModel(context.Background(), session, "test", time.Second)
	m.busy = ""
	m.handleEvent(kettle.Event{Kind: kettle.Refreshed, State: s})
	return m
}

func TestWatch_CommandForKey(t *testing.T) {
	m := knownModel(t, &stubSession{})

	assert.Equal(t, ekg.SetTargetTemp{Value: 85.5, Unit: ekg.Celsius}, m.commandForKey("+"))
	assert.Equal(t, ekg.SetTargetTemp{Value: 84.5, Unit: ekg.Celsius}, m.commandForKey("-"))
	assert.Equal(t, ekg.SetPreboil{Enabled: true}, m.commandForKey("p"))
	assert.Equal(t, ekg.SetUnits{Units: ekg.Fahrenheit}, m.commandForKey("u"))
	assert.Nil(t, m.commandForKey("x"))

	m.state.Units = ekg.Fahrenheit
	assert.Equal(t, ekg.SetTargetTemp{Value: 186, Unit: ekg.Fahrenheit}, m.commandForKey("+"))
}

func TestWatch_KeyRunsCommand(t *testing.T) {
	session := &stubSession{}
	m := knownModel(t, session)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	require.NotNil(t, cmd)
	assert.Equal(t, "set preboil true", next.(watchModel).busy)

	msg := cmd()
	assert.Equal(t, opDoneMsg{what: "set preboil true"}, msg)
	assert.Equal(t, []ekg.Command{ekg.SetPreboil{Enabled: true}}, session.applied)

	// Keys are ignored while an operation runs
	_, cmd = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd)
}

func TestWatch_LogsChangesAndErrors(t *testing.T) {
	m := knownModel(t, &stubSession{})
	assert.Empty(t, m.log, "first read must not be logged")

	m.handleEvent(kettle.Event{Kind: kettle.FieldChanged, Change: ekg.Change{
		Field: ekg.FieldPreboil, Old: false, New: true,
	}})
	require.Len(t, m.log, 1)
	assert.Equal(t, "preboil: off -> on", m.log[0].message)

	next, _ := m.Update(opDoneMsg{what: "refresh", err: errors.New("link lost")})
	wm := next.(watchModel)
	require.Len(t, wm.log, 2)
	assert.True(t, wm.log[1].isError)
	assert.Empty(t, wm.busy)
}

func TestWatch_ViewRenders(t *testing.T) {
	m := knownModel(t, &stubSession{})
	view := m.View()
	assert.Contains(t, view, "STAGG WATCH")
	assert.Contains(t, view, "85.0°C")
}
