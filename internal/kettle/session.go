// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

// Default session timings
const (
	DefaultTimeout        = 20 * time.Second
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 5 * time.Second
	DefaultWriteSpacing   = 200 * time.Millisecond
	DefaultVerifyTimeout  = 5 * time.Second
)

// clockTolerance is how far the kettle clock may advance between a write
// and its read-back.
const clockTolerance = 1 // minutes

// Config tunes a Session. Zero fields take the defaults above.
type Config struct {
	// Timeout bounds one operation from connect to verified write.
	Timeout time.Duration
	// BackoffInitial and BackoffMax bound the delay between connect attempts.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// MaxConnectAttempts caps connect attempts per operation. Zero means the
	// attempts are bounded only by Timeout.
	MaxConnectAttempts int
	// WriteSpacing is the minimum time between two writes. A negative value
	// disables spacing.
	WriteSpacing time.Duration
	// VerifyTimeout bounds the read-back once a write has been sent. It is
	// independent of Timeout so a sent write is always verified.
	VerifyTimeout time.Duration
	// Clock supplies the time injected into writes.
	Clock Clock
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = DefaultBackoffInitial
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = max(DefaultBackoffMax, c.BackoffInitial)
	}
	if c.WriteSpacing < 0 {
		c.WriteSpacing = 0
	} else if c.WriteSpacing == 0 {
		c.WriteSpacing = DefaultWriteSpacing
	}
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = DefaultVerifyTimeout
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return c
}

// Session owns the link to one kettle and serialises every operation on it.
//
// Operations queue on a FIFO command lock, so at most one read or
// read-modify-write cycle touches the kettle at a time and callers are
// served in arrival order.
type Session struct {
	transport Transport
	cfg       Config
	cache     *Cache
	logger    *zap.Logger

	cmdLock *semaphore.Weighted

	mu        sync.Mutex
	link      Link
	linkState LinkState
	lastWrite time.Time
}

// NewSession creates a session. No connection is made until the first
// operation.
func NewSession(transport Transport, cfg Config, cache *Cache, logger *zap.Logger) *Session {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		transport: transport,
		cfg:       cfg.withDefaults(),
		cache:     cache,
		logger:    logger,
		cmdLock:   semaphore.NewWeighted(1),
	}
}

// Cache returns the state cache fed by this session.
func (s *Session) Cache() *Cache {
	return s.cache
}

// Subscribe registers a cache listener.
func (s *Session) Subscribe(fn Listener) (unsubscribe func()) {
	return s.cache.Subscribe(fn)
}

// LinkState reports the current link state.
func (s *Session) LinkState() LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkState
}

// ReadState reads and decodes the current kettle state, connecting first if
// needed, and updates the cache.
func (s *Session) ReadState(ctx context.Context) (ekg.State, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return ekg.State{}, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	state, err := s.read(ctx)
	if err != nil {
		return ekg.State{}, err
	}
	s.cache.Update(state)
	return state, nil
}

// Apply runs one read-modify-write cycle: read the current state, apply cmd
// to it, stamp the current time and the next write counter, write, then read
// back and verify. The verified state is returned and sent to the cache.
func (s *Session) Apply(ctx context.Context, cmd ekg.Command) (ekg.State, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return ekg.State{}, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	logger := s.logger.With(zap.Stringer("command", cmd))

	current, err := s.read(ctx)
	if err != nil {
		return ekg.State{}, err
	}
	s.cache.Update(current)

	intended, err := cmd.Apply(current)
	if err != nil {
		return ekg.State{}, fmt.Errorf("%w: %s: %w", ErrInvalidUpdate, cmd, err)
	}

	now := s.cfg.Clock.Now()
	intended.ClockHour = now.Hour()
	intended.ClockMinute = now.Minute()
	intended.Counter = ekg.NextCounter(current.Counter)

	record := ekg.Encode(intended)
	if err := s.write(ctx, record); err != nil {
		return ekg.State{}, err
	}
	logger.Debug("record written",
		zap.String("record", ekg.FormatRecord(record)),
		zap.Uint8("counter", intended.Counter))

	confirmed, err := s.verify(ctx, intended)
	if err != nil {
		logger.Warn("write not confirmed", zap.Error(err))
		return ekg.State{}, err
	}

	s.cache.Update(confirmed)
	logger.Info("command applied", zap.Uint8("counter", confirmed.Counter))
	return confirmed, nil
}

// Disconnect closes the link. It is safe to call at any time and more than
// once; an operation in flight fails with a link error.
func (s *Session) Disconnect() error {
	link := s.takeLink()
	if link == nil {
		return nil
	}
	s.logger.Debug("disconnecting")
	return link.Close()
}

// Scan lists nearby kettles when the transport supports scanning.
func (s *Session) Scan(ctx context.Context) ([]Candidate, error) {
	scanner, ok := s.transport.(Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}
	found, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	var kettles []Candidate
	for _, c := range found {
		if IsKettleName(c.Name) {
			kettles = append(kettles, c)
		}
	}
	return kettles, nil
}

// acquire waits for the command lock.
func (s *Session) acquire(ctx context.Context) (release func(), err error) {
	if err := s.cmdLock.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("kettle: waiting for command lock: %w", err)
	}
	return func() { s.cmdLock.Release(1) }, nil
}

// read connects if needed and reads one record. The command lock must be held.
func (s *Session) read(ctx context.Context) (ekg.State, error) {
	link, err := s.connect(ctx)
	if err != nil {
		return ekg.State{}, err
	}

	s.setLinkState(Reading)
	raw, err := link.ReadRecord(ctx)
	if err != nil {
		s.dropLink("read failed", err)
		if ctx.Err() != nil {
			return ekg.State{}, fmt.Errorf("%w: read: %w", ErrTimeout, err)
		}
		return ekg.State{}, fmt.Errorf("%w: read: %w", ErrLinkLost, err)
	}
	s.setLinkState(Connected)

	state, err := ekg.Decode(raw)
	if err != nil {
		s.logger.Warn("undecodable record", zap.Binary("record", raw), zap.Error(err))
		return ekg.State{}, err
	}
	return state, nil
}

// write sends one record, keeping the minimum spacing from the previous
// write. The command lock must be held.
func (s *Session) write(ctx context.Context, record ekg.Record) error {
	s.mu.Lock()
	link := s.link
	wait := s.cfg.WriteSpacing - time.Since(s.lastWrite)
	s.mu.Unlock()

	if link == nil {
		return fmt.Errorf("%w: no link before write", ErrLinkLost)
	}
	if wait > 0 {
		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("%w: waiting to write: %w", ErrTimeout, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: before write: %w", ErrTimeout, err)
	}

	s.setLinkState(Writing)
	err := link.WriteRecord(ctx, record.Bytes())

	s.mu.Lock()
	s.lastWrite = time.Now()
	s.mu.Unlock()

	if err != nil {
		s.dropLink("write failed", err)
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	s.setLinkState(Connected)
	return nil
}

// verify reads the record back and checks it against intended.
func (s *Session) verify(ctx context.Context, intended ekg.State) (ekg.State, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.VerifyTimeout)
	defer cancel()

	s.mu.Lock()
	link := s.link
	s.mu.Unlock()
	if link == nil {
		return ekg.State{}, fmt.Errorf("%w: link closed before read-back", ErrVerificationFailed)
	}

	s.setLinkState(Reading)
	raw, err := link.ReadRecord(ctx)
	if err != nil {
		s.dropLink("read-back failed", err)
		return ekg.State{}, fmt.Errorf("%w: read-back: %w", ErrVerificationFailed, err)
	}
	s.setLinkState(Connected)

	confirmed, err := ekg.Decode(raw)
	if err != nil {
		return ekg.State{}, fmt.Errorf("%w: read-back: %w", ErrVerificationFailed, err)
	}
	if fields := mismatchedFields(intended, confirmed); len(fields) > 0 {
		return ekg.State{}, fmt.Errorf("%w: kettle reports different %v", ErrVerificationFailed, fields)
	}
	return confirmed, nil
}

// connect returns the open link or establishes one, retrying with
// exponential backoff until ctx expires or the attempt cap is reached.
func (s *Session) connect(ctx context.Context) (Link, error) {
	s.mu.Lock()
	if s.link != nil {
		link := s.link
		s.mu.Unlock()
		return link, nil
	}
	s.mu.Unlock()
	s.setLinkState(Connecting)

	backoff := s.cfg.BackoffInitial
	var lastErr error
	for attempt := 1; ; attempt++ {
		link, err := s.transport.Connect(ctx)
		if err == nil {
			s.mu.Lock()
			s.link = link
			s.mu.Unlock()
			s.setLinkState(Connected)
			if nl, ok := link.(NotifyingLink); ok {
				nl.OnRecord(s.handlePushedRecord)
			}
			s.logger.Info("connected", zap.Int("attempt", attempt))
			return link, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if s.cfg.MaxConnectAttempts > 0 && attempt >= s.cfg.MaxConnectAttempts {
			s.setLinkState(Disconnected)
			return nil, fmt.Errorf("%w: %d attempts: %w", ErrConnectFailed, attempt, lastErr)
		}

		s.logger.Warn("connect failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		if sleep(ctx, backoff) != nil {
			break
		}
		backoff = min(backoff*2, s.cfg.BackoffMax)
	}

	s.setLinkState(Disconnected)
	return nil, fmt.Errorf("%w: %w: %w", ErrTimeout, ErrConnectFailed, lastErr)
}

// handlePushedRecord feeds a record pushed by the kettle into the cache.
func (s *Session) handlePushedRecord(raw []byte) {
	state, err := ekg.Decode(raw)
	if err != nil {
		s.logger.Warn("undecodable pushed record", zap.Binary("record", raw), zap.Error(err))
		return
	}
	s.logger.Debug("record pushed by kettle", zap.Uint8("counter", state.Counter))
	s.cache.Update(state)
}

func (s *Session) takeLink() Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	link := s.link
	s.link = nil
	s.setLinkStateLocked(Disconnected)
	return link
}

func (s *Session) dropLink(reason string, err error) {
	s.logger.Warn("dropping link", zap.String("reason", reason), zap.Error(err))
	if link := s.takeLink(); link != nil {
		_ = link.Close()
	}
}

func (s *Session) setLinkState(state LinkState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLinkStateLocked(state)
}

func (s *Session) setLinkStateLocked(state LinkState) {
	if s.linkState != state {
		s.logger.Debug("link state", zap.Stringer("from", s.linkState), zap.Stringer("to", state))
		s.linkState = state
	}
}

// mismatchedFields compares a read-back state against the intended one. The
// write counter is not compared; the clock may have moved on by up to
// clockTolerance minutes.
func mismatchedFields(intended, confirmed ekg.State) []ekg.Field {
	var fields []ekg.Field
	for _, c := range ekg.Diff(intended, confirmed) {
		switch c.Field {
		case ekg.FieldCounter, ekg.FieldClockHour, ekg.FieldClockMinute:
			continue
		}
		fields = append(fields, c.Field)
	}

	written := intended.ClockHour*60 + intended.ClockMinute
	read := confirmed.ClockHour*60 + confirmed.ClockMinute
	if drift := (read - written + 24*60) % (24 * 60); drift > clockTolerance {
		fields = append(fields, ekg.FieldClockMinute)
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
