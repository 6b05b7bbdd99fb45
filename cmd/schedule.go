// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

// rearmDelay separates the disable and enable writes of --rearm.
const rearmDelay = 300 * time.Millisecond

var (
	scheduleHour   int
	scheduleMinute int
	scheduleTemp   string
	scheduleRearm  bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <off|once|daily>",
	Short: "Set or clear the scheduled boil",
	Long: `Set the time and temperature of the scheduled boil, or turn it off.

The hour, minute and temperature are checked together: if any of them is out
of range nothing is written.

Some kettles ignore a schedule that is changed while enabled. --rearm turns
the schedule off first, waits briefly, then writes the new schedule.`,
	Example: `  staggctl schedule daily --hour 6 --minute 30 --temp 90
  staggctl schedule off`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"off", "once", "daily"},
	RunE:      runSchedule,
}

func init() {
	scheduleCmd.Flags().IntVar(&scheduleHour, "hour", ekg.DefaultScheduleHour, "Hour (0-23)")
	scheduleCmd.Flags().IntVar(&scheduleMinute, "minute", ekg.DefaultScheduleMinute, "Minute (0-59)")
	scheduleCmd.Flags().StringVar(&scheduleTemp, "temp", fmt.Sprint(ekg.DefaultScheduleTempC), "Temperature, e.g. 85 or 185F")
	scheduleCmd.Flags().BoolVar(&scheduleRearm, "rearm", false, "Turn the schedule off before writing it")
	rootCmd.AddCommand(scheduleCmd)
}

// scheduleCommand builds the SetSchedule for the parsed arguments.
func scheduleCommand(mode string, hour, minute int, temp string) (ekg.SetSchedule, error) {
	m, err := ekg.ParseScheduleMode(mode)
	if err != nil {
		return ekg.SetSchedule{}, err
	}
	value, unit, err := ekg.ParseTemp(temp)
	if err != nil {
		return ekg.SetSchedule{}, err
	}
	if unit == ekg.Fahrenheit {
		value = ekg.TempFromFahrenheit(value).Celsius()
	}
	command := ekg.SetSchedule{Mode: m, Hour: hour, Minute: minute, TempC: value}
	// Validate now so a bad group fails before connecting
	if _, err := command.Apply(ekg.State{}); err != nil {
		return ekg.SetSchedule{}, err
	}
	return command, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	command, err := scheduleCommand(args[0], scheduleHour, scheduleMinute, scheduleTemp)
	if err != nil {
		return usageError{err}
	}

	if !scheduleRearm || command.Mode == ekg.ScheduleOff {
		return applyAndReport(command)
	}

	session, _, err := OpenSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := session.Apply(ctx, ekg.SetSchedule{Mode: ekg.ScheduleOff}); err != nil {
		return fmt.Errorf("disabling schedule: %w", err)
	}
	select {
	case <-time.After(rearmDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	s, err := session.Apply(ctx, command)
	if err != nil {
		return err
	}
	fmt.Printf("Schedule: %s\n", ekg.FormatSchedule(s))
	return nil
}
