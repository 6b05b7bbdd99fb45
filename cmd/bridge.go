// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/staggctl/internal/bridge"
)

const mqttTimeout = 10 * time.Second

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Mirror the kettle to MQTT and serve its state over HTTP",
	Long: `Poll the kettle every poll_interval and publish its state to MQTT.

Topics (under mqtt.base_topic, default "stagg"):
  <base>/bridge/state    online / offline (retained, last will)
  <base>/state           JSON state (retained)
  <base>/<field>         one value per field (retained)
  <base>/<field>/set     change a field, same values as "staggctl set"
  <base>/schedule/set    {"mode":"daily","hour":7,"minute":0,"temp_c":85}
  <base>/sync_clock/set  set the kettle clock
  <base>/refresh/set     poll now

With mqtt.ha_discovery_enable, Home Assistant discovery configs are
published under mqtt.ha_discovery_topic.

With http.enable, GET /healthcheck and GET /state are served on http.port.`,
	Args: cobra.NoArgs,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	session, connInfo, err := OpenSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.Named("bridge")
	log.Info("starting bridge", zap.String("kettle", connInfo), zap.Any("config", cfg.Redacted()))

	var b *bridge.Bridge
	client := bridge.NewMQTTClient(bridge.OptsFromConfig(cfg.MQTT), mqttTimeout,
		func() {
			log.Info("mqtt connected")
			// Publishing from the connect callback would block paho's router
			go func() {
				if err := b.Announce(); err != nil {
					log.Error("announce failed", zap.Error(err))
				}
			}()
		},
		func(err error) { log.Warn("mqtt connection lost", zap.Error(err)) },
	)
	b = bridge.New(session, client, bridge.Options{
		BaseTopic:       cfg.MQTT.BaseTopic,
		Address:         cfg.Device.Address,
		PollInterval:    cfg.PollInterval,
		HADiscovery:     cfg.MQTT.HADiscoveryEnable,
		DiscoveryPrefix: cfg.MQTT.HADiscoveryTopic,
	}, log)

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connecting to mqtt broker %s:%d: %w", cfg.MQTT.Host, cfg.MQTT.Port, err)
	}
	defer client.Disconnect(b.Topics().BridgeState())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx) })
	if cfg.HTTP.Enable {
		g.Go(func() error { return b.Serve(ctx, cfg.HTTP.Port) })
	}
	return g.Wait()
}
