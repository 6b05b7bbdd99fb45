// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/pkg/ekg"
)

var setCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Change one kettle setting",
	Long: `Change one setting and confirm the kettle accepted it.

Fields:
  target_temp   temperature, e.g. 93.5, 93.5C or 200F (Celsius if no unit)
  units         C or F
  preboil       on or off
  altitude_m    metres above sea level, rounded to 30 m (0-3000)
  hold_minutes  minutes to hold temperature (0-63, off = 0)
  chime_volume  0-10 (mute = 0)
  clock_mode    off, digital or analog
  language      en, fr, es, zh-Hans, zh-Hant or a numeric code

Values outside a field's range are clamped.`,
	Example: `  staggctl set target_temp 93
  staggctl set preboil on
  staggctl set hold 30`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	command, err := ekg.ParseCommand(args[0], args[1])
	if err != nil {
		return usageError{fmt.Errorf("%w (fields: %s)", err, strings.Join(ekg.SettableFields(), ", "))}
	}
	return applyAndReport(command)
}

// applyAndReport applies command on a fresh session and prints the fields
// that changed.
func applyAndReport(command ekg.Command) error {
	session, _, err := OpenSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ctx, cancel := signalContext()
	defer cancel()

	var rec changeRecorder
	unsubscribe := session.Subscribe(rec.record)
	defer unsubscribe()

	if _, err := session.Apply(ctx, command); err != nil {
		return err
	}

	changes := rec.changes()
	if len(changes) == 0 {
		fmt.Println("No change")
		return nil
	}
	fmt.Print(ekg.FormatChanges(changes))
	return nil
}

// changeRecorder collects user-visible field changes. Pushed records are
// delivered on the transport goroutine, so access is locked.
type changeRecorder struct {
	mu   sync.Mutex
	list []ekg.Change
}

func (r *changeRecorder) record(ev kettle.Event) {
	if ev.Kind != kettle.FieldChanged || ev.Change.Old == nil || ev.Change.Field == ekg.FieldCounter {
		return
	}
	r.mu.Lock()
	r.list = append(r.list, ev.Change)
	r.mu.Unlock()
}

func (r *changeRecorder) changes() []ekg.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ekg.Change(nil), r.list...)
}
