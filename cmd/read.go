// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

var (
	readJSON bool
	readRaw  bool
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read and print the kettle settings",
	Long: `Read the configuration record from the kettle and print it.

Output formats:
  (default)  human-readable summary
  --json     JSON object, temperatures in Celsius
  --raw      the 17 record bytes in hex`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

func init() {
	readCmd.Flags().BoolVar(&readJSON, "json", false, "Print JSON")
	readCmd.Flags().BoolVar(&readRaw, "raw", false, "Print the raw record in hex")
	readCmd.MarkFlagsMutuallyExclusive("json", "raw")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	session, _, err := OpenSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ctx, cancel := signalContext()
	defer cancel()

	s, err := session.ReadState(ctx)
	if err != nil {
		return err
	}
	return printState(os.Stdout, s, readJSON, readRaw)
}

func printState(w io.Writer, s ekg.State, asJSON, raw bool) error {
	switch {
	case asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ekg.NewSnapshot(s))
	case raw:
		_, err := fmt.Fprintln(w, ekg.FormatRecord(s.Raw))
		return err
	default:
		_, err := fmt.Fprint(w, ekg.FormatState(s))
		return err
	}
}
