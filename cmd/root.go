// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Thermoquad/staggctl/internal/config"
	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/internal/logging"
)

// Exit codes
const (
	ExitOK         = 0
	ExitFailed     = 1
	ExitConnection = 2
)

var (
	v      = viper.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "staggctl",
	Short: "Fellow Stagg EKG Pro kettle controller",
	Long: `staggctl - Read and change the settings of a Fellow Stagg EKG Pro kettle.

The kettle keeps its whole configuration in one 17-byte record. Every command
reads the record, changes the requested fields and writes it back, then reads
it again to confirm the kettle accepted the change.

Connection modes:
  BLE:       --transport ble (host Bluetooth adapter)
  Serial:    --transport serial --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --transport websocket --url ws://host/path [--username user]

Serial and WebSocket reach the kettle through a BLE relay. For WebSocket
authentication, the password is read from the STAGG_PASSWORD environment
variable, or prompted interactively if not set. The --password flag is
intentionally not provided to avoid leaking credentials in shell history.

Every flag can also be set in a YAML file (--config) or with STAGG_*
environment variables, e.g. STAGG_DEVICE_ADDRESS. A .env file in the working
directory is loaded into the environment first.`,
	Version:           versioninfo.Short(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (YAML)")
	flags.StringP("address", "a", "", "Kettle BLE address")
	flags.StringP("transport", "t", config.TransportBLE, "Transport: ble, serial or websocket")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.Duration("timeout", kettle.DefaultTimeout, "Time budget for each kettle operation")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	for key, flag := range map[string]string{
		"config":                  "config",
		"device.address":          "address",
		"transport":               "transport",
		"serial.port":             "port",
		"serial.baud":             "baud",
		"websocket.url":           "url",
		"websocket.username":      "username",
		"websocket.no_ssl_verify": "no-ssl-verify",
		"log_level":               "log-level",
		"log_format":              "log-format",
		"session.timeout":         "timeout",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(v)
	if err != nil {
		return usageError{err}
	}
	l, err := logging.New(c.LogLevel, c.LogFormat)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	cfg, logger = c, l
	logger.Debug("config loaded", zap.Any("config", c.Redacted()))
	return nil
}

// usageError marks errors caused by bad input rather than a failed
// operation. They exit with ExitFailed but also print a usage hint.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, kettle.ErrConnectFailed), errors.Is(err, kettle.ErrLinkLost):
		return ExitConnection
	default:
		return ExitFailed
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", rootCmd.CommandPath())
		}
	}
	_ = logger.Sync()
	return ExitCode(err)
}
