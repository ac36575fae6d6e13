// Package gate decides whether an outbound request may be issued. It
// combines in-memory session counters (hourly quota), the durable ledger
// (daily quota), and a randomized pacing delay that keeps outbound
// traffic close to a human browsing cadence.
package gate

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/propdata-cli/internal/ledger"
)

// Scope identifies which quota was exhausted.
type Scope string

const (
	// ScopeHourly is the in-memory session quota, reset every hour.
	ScopeHourly Scope = "hourly"
	// ScopeDaily is the ledger-backed quota, reset at local midnight.
	ScopeDaily Scope = "daily"
)

// QuotaError is returned by Acquire when a quota is exhausted. It is a
// caller-visible condition, never retried by the transport.
type QuotaError struct {
	Scope      Scope
	Limit      int
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s limit of %d requests reached, retry after %s",
		e.Scope, e.Limit, e.RetryAfter.Round(time.Second))
}

// warnFraction is the quota share past which Acquire logs a warning.
const warnFraction = 0.8

// Config holds the gate's limits and pacing bounds.
type Config struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	HourlyLimit int
	DailyLimit  int
}

// Option overrides a Gate dependency, used by tests to pin time,
// randomness, and sleeping.
type Option func(*Gate)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithSleep replaces the pacing sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gate) { g.sleep = sleep }
}

// WithRand replaces the random source. The function must return values
// in [0, 1).
func WithRand(randFloat func() float64) Option {
	return func(g *Gate) { g.randFloat = randFloat }
}

// Gate serializes outbound requests. The mutex is held across the
// pacing sleep, so concurrent callers queue up and requests never burst.
type Gate struct {
	mu     sync.Mutex
	cfg    Config
	ledger *ledger.Ledger

	sessionStart time.Time
	sessionCount int
	lastRequest  time.Time

	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// New creates a Gate over the given ledger.
func New(led *ledger.Ledger, cfg Config, opts ...Option) *Gate {
	g := &Gate{
		cfg:       cfg,
		ledger:    led,
		now:       time.Now,
		sleep:     sleepContext,
		randFloat: randomFloat,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.sessionStart = g.now()
	return g
}

// Acquire blocks until the caller may issue one request, or returns a
// *QuotaError when a limit is exhausted. A context cancelled during the
// pacing sleep aborts the acquisition without counting the request.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := g.now()

	// Hourly quota: session counters reset after an hour.
	sessionAge := now.Sub(g.sessionStart)
	if sessionAge >= time.Hour {
		g.sessionStart = now
		g.sessionCount = 0
	} else if g.sessionCount >= g.cfg.HourlyLimit {
		return &QuotaError{
			Scope:      ScopeHourly,
			Limit:      g.cfg.HourlyLimit,
			RetryAfter: time.Hour - sessionAge,
		}
	} else if float64(g.sessionCount) >= warnFraction*float64(g.cfg.HourlyLimit) {
		zap.L().Warn("gate: approaching hourly limit",
			zap.Int("remaining", g.cfg.HourlyLimit-g.sessionCount),
			zap.Int("limit", g.cfg.HourlyLimit),
		)
	}

	// Daily quota, read from the durable ledger.
	dailyCount := g.ledger.CountSince(now)
	if dailyCount >= g.cfg.DailyLimit {
		return &QuotaError{
			Scope:      ScopeDaily,
			Limit:      g.cfg.DailyLimit,
			RetryAfter: untilNextLocalDay(now),
		}
	}
	if float64(dailyCount) >= warnFraction*float64(g.cfg.DailyLimit) {
		zap.L().Warn("gate: approaching daily limit",
			zap.Int("remaining", g.cfg.DailyLimit-dailyCount),
			zap.Int("limit", g.cfg.DailyLimit),
		)
	}

	// Pacing: randomized inter-request spacing. The first request in the
	// process gets a short random delay instead, to avoid a startup burst.
	var wait time.Duration
	if g.lastRequest.IsZero() {
		wait = 100*time.Millisecond + time.Duration(g.randFloat()*float64(400*time.Millisecond))
	} else {
		delay := g.cfg.MinDelay + time.Duration(g.randFloat()*float64(g.cfg.MaxDelay-g.cfg.MinDelay))
		if elapsed := now.Sub(g.lastRequest); elapsed < delay {
			wait = delay - elapsed
		}
	}
	if wait > 0 {
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}

	now = g.now()
	g.lastRequest = now
	g.sessionCount++
	g.ledger.Record(now)
	return nil
}

// Snapshot holds a point-in-time view of the gate's counters. Reading a
// snapshot never mutates state or touches the network.
type Snapshot struct {
	SessionRequests int
	SessionDuration time.Duration
	HourlyLimit     int
	HourlyRemaining int
	DailyRequests   int
	DailyLimit      int
	DailyRemaining  int
}

// Snapshot returns the current usage counters.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	daily := g.ledger.CountSince(now)
	return Snapshot{
		SessionRequests: g.sessionCount,
		SessionDuration: now.Sub(g.sessionStart),
		HourlyLimit:     g.cfg.HourlyLimit,
		HourlyRemaining: max(0, g.cfg.HourlyLimit-g.sessionCount),
		DailyRequests:   daily,
		DailyLimit:      g.cfg.DailyLimit,
		DailyRemaining:  max(0, g.cfg.DailyLimit-daily),
	}
}

func untilNextLocalDay(now time.Time) time.Duration {
	local := now.Local()
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, local.Location())
	return midnight.Sub(local)
}

func randomFloat() float64 { return rand.Float64() }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
