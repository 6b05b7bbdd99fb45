// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/internal/kettle"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive TUI showing live kettle settings",
	Long: `Show the kettle settings in a terminal UI and refresh them every
poll_interval. Changes made on the kettle itself appear in the event log.

Keys:
  r      refresh now
  + / -  raise or lower the target temperature
  p      toggle pre-boil
  u      switch between Celsius and Fahrenheit
  q      quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	session, connInfo, err := OpenSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ctx, cancel := signalContext()
	defer cancel()

	m := initialWatchModel(ctx, session, connInfo, cfg.PollInterval)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Cache events arrive on session goroutines; hand them to the program
	unsubscribe := session.Subscribe(func(ev kettle.Event) {
		p.Send(kettleEventMsg(ev))
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
