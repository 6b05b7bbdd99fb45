// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/internal/kettle"
)

var (
	scanAll  bool
	scanJSON bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List nearby kettles",
	Long: `Scan for BLE advertisements and list devices that look like a Stagg
kettle. Use --all to list every device seen.

The scan runs for device.scan_timeout (default 10s).`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "List every device, not only kettles")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner, err := openScanner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !scanJSON {
		fmt.Fprintf(os.Stderr, "Scanning for %s...\n", cfg.Device.ScanTimeout)
	}
	found, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	candidates := filterCandidates(found, scanAll)
	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}

	if len(candidates) == 0 {
		fmt.Println("No kettles found")
		return nil
	}
	for _, c := range candidates {
		fmt.Printf("%-20s %-24s %4d dBm\n", c.Address, c.Name, c.RSSI)
	}
	return nil
}

// filterCandidates keeps kettle-like names unless all is set and sorts by
// signal strength, strongest first.
func filterCandidates(found []kettle.Candidate, all bool) []kettle.Candidate {
	out := make([]kettle.Candidate, 0, len(found))
	for _, c := range found {
		if all || kettle.IsKettleName(c.Name) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b kettle.Candidate) int {
		if a.RSSI != b.RSSI {
			return b.RSSI - a.RSSI
		}
		return strings.Compare(a.Address, b.Address)
	})
	return out
}
