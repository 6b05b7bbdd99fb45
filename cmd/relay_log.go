// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/staggctl/internal/config"
	"github.com/Thermoquad/staggctl/internal/transport/gateway"
	"github.com/Thermoquad/staggctl/pkg/relay"
)

var (
	relayLogScan    bool
	relayLogErrors  bool
	relayLogStatsIv int
)

var relayLogCmd = &cobra.Command{
	Use:   "relay-log",
	Short: "Display relay frames in human-readable format",
	Long: `Continuously decode and display frames arriving from a BLE relay.

Useful when diagnosing a serial or WebSocket relay: every frame is printed
with its timestamp, op and fields, and framing or CRC errors are highlighted.
A statistics summary is printed every --stats-interval seconds and on exit.

--scan asks the relay to scan first so there is traffic to look at.`,
	Args: cobra.NoArgs,
	RunE: runRelayLog,
}

func init() {
	relayLogCmd.Flags().BoolVar(&relayLogScan, "scan", false, "Send a SCAN request after connecting")
	relayLogCmd.Flags().BoolVar(&relayLogErrors, "errors-only", false, "Only print frames that failed to decode")
	relayLogCmd.Flags().IntVar(&relayLogStatsIv, "stats-interval", 10, "Statistics interval (seconds, 0 disables)")
	rootCmd.AddCommand(relayLogCmd)
}

type frameResult struct {
	msg *relay.Message
	err error
}

func runRelayLog(cmd *cobra.Command, args []string) error {
	if cfg.Transport == config.TransportBLE {
		return usageError{errors.New("relay-log needs --transport serial or websocket")}
	}
	dial, connInfo, err := openDialer(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("staggctl - Relay Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if relayLogScan {
		frame, err := relay.Encode(relay.Scan(int(cfg.Device.ScanTimeout / time.Millisecond)))
		if err != nil {
			return err
		}
		if _, err := conn.Write(frame); err != nil {
			return fmt.Errorf("sending scan: %w", err)
		}
	}

	frames := make(chan frameResult, 16)
	readErr := make(chan error, 1)
	go func() {
		r := relay.NewReader(conn)
		for {
			m, err := r.ReadMessage()
			if err != nil && !relay.IsFrameError(err) {
				readErr <- err
				return
			}
			if err != nil {
				frames <- frameResult{err: err}
			} else {
				frames <- frameResult{msg: &m}
			}
		}
	}()

	stats := relay.NewStatistics()
	var tick <-chan time.Time
	if relayLogStatsIv > 0 {
		ticker := time.NewTicker(time.Duration(relayLogStatsIv) * time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Print("\n" + stats.String())
			return nil
		case err := <-readErr:
			fmt.Print("\n" + stats.String())
			if errors.Is(err, io.EOF) || errors.Is(err, gateway.ErrConnectionClosed) {
				fmt.Println("Connection closed")
				return nil
			}
			return err
		case <-tick:
			fmt.Print(stats.String() + "\n")
		case f := <-frames:
			stats.Update(f.msg, f.err)
			if f.err != nil {
				fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", time.Now().Format("15:04:05.000"), f.err)
				continue
			}
			if !relayLogErrors {
				fmt.Print(relay.FormatMessage(*f.msg, time.Now()))
			}
		}
	}
}
