// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/pkg/ekg"
)

// Kettle is the session API the bridge drives. *kettle.Session implements it.
type Kettle interface {
	ReadState(ctx context.Context) (ekg.State, error)
	Apply(ctx context.Context, cmd ekg.Command) (ekg.State, error)
	Subscribe(fn kettle.Listener) (unsubscribe func())
	Cache() *kettle.Cache
	LinkState() kettle.LinkState
}

// Options configures a Bridge.
type Options struct {
	BaseTopic       string
	Address         string
	PollInterval    time.Duration
	HADiscovery     bool
	DiscoveryPrefix string
}

// SchedulePayload is the JSON body accepted on the schedule command topic.
type SchedulePayload struct {
	Mode   string   `json:"mode"`
	Hour   *int     `json:"hour,omitempty"`
	Minute *int     `json:"minute,omitempty"`
	TempC  *float64 `json:"temp_c,omitempty"`
}

type incoming struct {
	name    string
	payload []byte
}

// Bridge mirrors kettle state to MQTT and turns command topics into kettle
// commands. Commands and polls run on the Run goroutine one at a time.
type Bridge struct {
	kettle   Kettle
	broker   Broker
	opts     Options
	topics   Topics
	logger   *zap.Logger
	commands chan incoming

	mu       sync.Mutex
	lastPoll time.Time
	lastErr  error
}

func New(k Kettle, broker Broker, opts Options, logger *zap.Logger) *Bridge {
	return &Bridge{
		kettle:   k,
		broker:   broker,
		opts:     opts,
		topics:   NewTopics(opts.BaseTopic),
		logger:   logger,
		commands: make(chan incoming, 16),
	}
}

func (b *Bridge) Topics() Topics { return b.topics }

// Announce publishes availability and discovery and subscribes to the
// command topics. Call it after every broker (re)connection.
func (b *Bridge) Announce() error {
	if err := b.broker.Publish(b.topics.BridgeState(), true, []byte(PayloadOnline)); err != nil {
		return fmt.Errorf("publishing availability: %w", err)
	}
	if b.opts.HADiscovery {
		for _, msg := range HADiscoveryMessages(b.opts.DiscoveryPrefix, b.topics, b.opts.Address) {
			data, err := json.Marshal(msg.Config)
			if err != nil {
				return err
			}
			if err := b.broker.Publish(msg.Topic, true, data); err != nil {
				return fmt.Errorf("publishing discovery %s: %w", msg.Topic, err)
			}
		}
	}
	if err := b.broker.Subscribe(b.topics.CommandWildcard(), b.handleMessage); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	if s, ok := b.kettle.Cache().Current(); ok {
		b.publishState(s)
		for _, f := range ekg.Fields() {
			b.publishField(f, s.Value(f))
		}
	}
	return nil
}

// Run polls the kettle and executes queued commands until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	unsubscribe := b.kettle.Subscribe(b.onEvent)
	defer unsubscribe()

	b.poll(ctx)
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.poll(ctx)
		case cmd := <-b.commands:
			b.execute(ctx, cmd)
		}
	}
}

// Healthy reports whether a poll succeeded recently.
func (b *Bridge) Healthy(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr == nil && !b.lastPoll.IsZero() && now.Sub(b.lastPoll) <= 3*b.opts.PollInterval
}

func (b *Bridge) poll(ctx context.Context) {
	_, err := b.kettle.ReadState(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	b.mu.Lock()
	b.lastErr = err
	if err == nil {
		b.lastPoll = time.Now()
	}
	b.mu.Unlock()
	if err != nil {
		b.logger.Warn("poll failed", zap.Error(err))
	}
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	name, ok := b.topics.ParseCommand(topic)
	if !ok {
		return
	}
	select {
	case b.commands <- incoming{name: name, payload: payload}:
	default:
		b.logger.Warn("command queue full, dropping", zap.String("command", name))
		b.publishError(name, errQueueFull)
	}
}

func (b *Bridge) execute(ctx context.Context, in incoming) {
	if in.name == CommandRefresh {
		b.poll(ctx)
		return
	}
	cmd, err := CommandFromMessage(in.name, in.payload)
	if err == nil {
		b.logger.Info("applying command", zap.Stringer("command", cmd))
		_, err = b.kettle.Apply(ctx, cmd)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		b.logger.Warn("command failed", zap.String("command", in.name), zap.Error(err))
		b.publishError(in.name, err)
	}
}

func (b *Bridge) publishError(command string, err error) {
	if perr := b.broker.Publish(b.topics.BridgeError(), false, []byte(fmt.Sprintf("%s: %v", command, err))); perr != nil {
		b.logger.Debug("publishing error", zap.Error(perr))
	}
}

// CommandFromMessage maps a command topic name and payload to a command.
func CommandFromMessage(name string, payload []byte) (ekg.Command, error) {
	switch name {
	case CommandSyncClock:
		return ekg.SyncClock{}, nil
	case CommandSchedule:
		var p SchedulePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: schedule payload: %w", ekg.ErrInvalidCommand, err)
		}
		mode, err := ekg.ParseScheduleMode(p.Mode)
		if err != nil {
			return nil, err
		}
		cmd := ekg.SetSchedule{
			Mode:   mode,
			Hour:   ekg.DefaultScheduleHour,
			Minute: ekg.DefaultScheduleMinute,
			TempC:  ekg.DefaultScheduleTempC,
		}
		if p.Hour != nil {
			cmd.Hour = *p.Hour
		}
		if p.Minute != nil {
			cmd.Minute = *p.Minute
		}
		if p.TempC != nil {
			cmd.TempC = *p.TempC
		}
		return cmd, nil
	}
	return ekg.ParseCommand(name, string(payload))
}

func (b *Bridge) onEvent(ev kettle.Event) {
	switch ev.Kind {
	case kettle.FieldChanged:
		b.publishField(ev.Change.Field, ev.Change.New)
	case kettle.Refreshed:
		b.publishState(ev.State)
	}
}

func (b *Bridge) publishField(f ekg.Field, v any) {
	if err := b.broker.Publish(b.topics.Field(f.String()), true, []byte(ekg.FormatValue(v))); err != nil {
		b.logger.Debug("publishing field", zap.Stringer("field", f), zap.Error(err))
	}
}

func (b *Bridge) publishState(s ekg.State) {
	data, err := json.Marshal(ekg.NewSnapshot(s))
	if err != nil {
		b.logger.Error("encoding state", zap.Error(err))
		return
	}
	if err := b.broker.Publish(b.topics.State(), true, data); err != nil {
		b.logger.Debug("publishing state", zap.Error(err))
	}
}

var (
	errNoState   = errors.New("no state read yet")
	errQueueFull = errors.New("command queue full, command dropped")
)
