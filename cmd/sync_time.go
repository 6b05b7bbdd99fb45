// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

var syncTimeCmd = &cobra.Command{
	Use:   "sync-time",
	Short: "Set the kettle clock to the local time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyAndReport(ekg.SyncClock{})
	},
}

func init() {
	rootCmd.AddCommand(syncTimeCmd)
}
