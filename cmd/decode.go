// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

var decodeJSON bool

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a configuration record offline",
	Long: `Decode a 17-byte configuration record given in hex, without connecting
to a kettle. Spaces, colons and a 0x prefix are ignored.`,
	Example: `  staggctl decode "08 02 00 80 AA 00 C0 00 1E 07 00 08 01 00 05 00 01"`,
	Args:    cobra.MinimumNArgs(1),
	// No kettle config is needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(decodeCmd)
}

// parseHex reads hex bytes, ignoring separators and 0x prefixes.
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.ReplaceAll(s, "0X", "")
	s = strings.NewReplacer(" ", "", ":", "", "-", "", ",", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	b, err := parseHex(args)
	if err != nil {
		return usageError{err}
	}
	s, err := ekg.Decode(b)
	if err != nil {
		return err
	}
	return printState(os.Stdout, s, decodeJSON, false)
}
