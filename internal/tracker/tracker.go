package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/visago/payments/internal/facade"
	"github.com/visago/payments/internal/gateway"
	"github.com/visago/payments/internal/obs"
)

// StatusChecker is the single facade capability the tracker depends on.
type StatusChecker interface {
	CheckStatus(ctx context.Context, transactionID string) (facade.TransactionStatus, error)
}

// Callbacks carries the caller-supplied notifications for one tracking handle.
// OnStatus receives a fresh snapshot for every successful check; OnTimeout
// fires when the attempt bound is exhausted without a terminal status. Exactly
// one terminal notification is delivered per handle: a terminal snapshot via
// OnStatus or a single OnTimeout. A cancelled handle delivers neither.
type Callbacks struct {
	OnStatus  func(facade.TransactionStatus)
	OnTimeout func()
}

// Config controls tracker construction.
type Config struct {
	Checker     StatusChecker
	Interval    time.Duration
	MaxAttempts int
	Logger      zerolog.Logger
}

// Tracker owns the bounded polling loops for in-flight transactions. Handles
// are independent: each runs on its own goroutine with its own timer, and only
// the handle registry is shared.
type Tracker struct {
	checker     StatusChecker
	interval    time.Duration
	maxAttempts int
	logger      zerolog.Logger

	mu      sync.Mutex
	handles map[string]*handle
}

type handle struct {
	id            string
	transactionID string
	gateway       gateway.ID
	attempts      int
	ctx           context.Context
	cancel        context.CancelFunc

	// deliverMu serialises callback delivery against cancellation so that no
	// callback can fire once Cancel has returned, even for a check that was
	// already in flight.
	deliverMu sync.Mutex
	cancelled bool
}

// New constructs a tracker. Interval and attempt bounds fall back to the
// 2s x 60 default policy when unset.
func New(cfg Config) *Tracker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &Tracker{
		checker:     cfg.Checker,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      cfg.Logger.With().Str("component", "tracker").Logger(),
		handles:     make(map[string]*handle),
	}
}

// Track starts a polling loop for the transaction and returns its opaque
// handle id without blocking. The first check happens one interval after the
// call.
func (t *Tracker) Track(transactionID string, gw gateway.ID, cb Callbacks) (string, error) {
	if t == nil || t.checker == nil {
		return "", errors.New("tracker: status checker not configured")
	}
	if strings.TrimSpace(transactionID) == "" {
		return "", errors.New("tracker: transaction id is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		id:            uuid.NewString(),
		transactionID: transactionID,
		gateway:       gw,
		ctx:           ctx,
		cancel:        cancel,
	}
	t.mu.Lock()
	t.handles[h.id] = h
	t.mu.Unlock()
	if obs.ActiveTrackingHandles != nil {
		obs.ActiveTrackingHandles.Inc()
	}
	t.logger.Debug().
		Str("handle_id", h.id).
		Str("transaction_id", transactionID).
		Str("gateway", string(gw)).
		Msg("tracking started")

	go t.run(h, cb)
	return h.id, nil
}

// Cancel stops the handle's polling loop without firing any callback. It is
// idempotent: cancelling an unknown, finished or already-cancelled handle is a
// no-op.
func (t *Tracker) Cancel(handleID string) {
	t.mu.Lock()
	h, ok := t.handles[handleID]
	if ok {
		delete(t.handles, handleID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	t.silence(h)
	t.recordOutcome(h.gateway, "cancelled")
	t.logger.Debug().Str("handle_id", h.id).Str("transaction_id", h.transactionID).Msg("tracking cancelled")
}

// CancelAll cancels every active handle. Safe to call during active polling
// and repeatedly; the active set is empty when it returns.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	active := make([]*handle, 0, len(t.handles))
	for _, h := range t.handles {
		active = append(active, h)
	}
	t.handles = make(map[string]*handle)
	t.mu.Unlock()

	for _, h := range active {
		t.silence(h)
		t.recordOutcome(h.gateway, "cancelled")
	}
	if len(active) > 0 {
		t.logger.Info().Int("handles", len(active)).Msg("all tracking cancelled")
	}
}

// Active returns the number of live handles.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

func (t *Tracker) run(h *handle, cb Callbacks) {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-timer.C:
		}

		h.attempts++
		status, err := t.checker.CheckStatus(h.ctx, h.transactionID)
		switch {
		case h.ctx.Err() != nil:
			// Cancelled while the check was in flight: discard the result.
			return
		case err != nil:
			// Transient miss: consumes the attempt, polling continues.
			t.recordTick(h.gateway, "transient_error")
			t.logger.Warn().Err(err).
				Str("transaction_id", h.transactionID).
				Int("attempt", h.attempts).
				Msg("status check failed")
		default:
			t.recordTick(h.gateway, "success")
			if !t.deliver(h, func() {
				if cb.OnStatus != nil {
					cb.OnStatus(status)
				}
			}) {
				return
			}
			if status.Status.Terminal() {
				if t.detach(h.id) {
					t.recordOutcome(h.gateway, string(status.Status))
					t.logger.Info().
						Str("transaction_id", h.transactionID).
						Str("status", string(status.Status)).
						Int("attempts", h.attempts).
						Msg("tracking finished")
				}
				return
			}
		}

		if h.attempts >= t.maxAttempts {
			if t.detach(h.id) && t.deliver(h, func() {
				if cb.OnTimeout != nil {
					cb.OnTimeout()
				}
			}) {
				t.recordOutcome(h.gateway, "timeout")
				t.logger.Warn().
					Str("transaction_id", h.transactionID).
					Int("attempts", h.attempts).
					Msg("tracking timed out")
			}
			return
		}
		timer.Reset(t.interval)
	}
}

// deliver runs fn under the handle's delivery lock, skipping it when the
// handle has been cancelled. Reports whether the handle is still live.
func (t *Tracker) deliver(h *handle, fn func()) bool {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	if h.cancelled {
		return false
	}
	fn()
	return true
}

func (t *Tracker) silence(h *handle) {
	h.deliverMu.Lock()
	h.cancelled = true
	h.deliverMu.Unlock()
	h.cancel()
	if obs.ActiveTrackingHandles != nil {
		obs.ActiveTrackingHandles.Dec()
	}
}

// detach removes the handle from the registry; only the winner of a race with
// Cancel observes true.
func (t *Tracker) detach(handleID string) bool {
	t.mu.Lock()
	_, ok := t.handles[handleID]
	if ok {
		delete(t.handles, handleID)
	}
	t.mu.Unlock()
	if ok && obs.ActiveTrackingHandles != nil {
		obs.ActiveTrackingHandles.Dec()
	}
	return ok
}

func (t *Tracker) recordTick(gw gateway.ID, result string) {
	if obs.PollTicksTotal != nil {
		obs.PollTicksTotal.WithLabelValues(string(gw), result).Inc()
	}
}

func (t *Tracker) recordOutcome(gw gateway.ID, outcome string) {
	if obs.TrackingOutcomeTotal != nil {
		obs.TrackingOutcomeTotal.WithLabelValues(string(gw), outcome).Inc()
	}
}
