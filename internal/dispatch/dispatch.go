// Package dispatch runs the launch-time payload dispatch: one shot per
// application load, reconciling the host launch parameter and URL
// query/hash sources, suppressing duplicates with a session-scoped marker,
// and invoking the redemption client at most once per distinct payload.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/karaobingo/stagepass/internal/payload"
	"github.com/karaobingo/stagepass/internal/redeem"
)

// Input carries the possible launch payload sources in priority order:
// host platform start parameter, then URL query, then URL hash. The first
// non-empty source wins; sources are never merged.
type Input struct {
	StartParam string
	URL        string
}

// Extract returns the raw payload string from the highest-priority
// non-empty source, or "" when no source carries one.
func (in Input) Extract() string {
	if in.StartParam != "" {
		return in.StartParam
	}
	if in.URL == "" {
		return ""
	}
	u, err := url.Parse(in.URL)
	if err != nil {
		return ""
	}
	for _, key := range payload.LaunchParamKeys {
		if v := u.Query().Get(key); v != "" {
			return v
		}
	}
	if frag, err := url.ParseQuery(u.Fragment); err == nil {
		for _, key := range payload.LaunchParamKeys {
			if v := frag.Get(key); v != "" {
				return v
			}
		}
	}
	if u.Fragment != "" {
		return u.Fragment
	}
	return ""
}

// MarkerStore records which launch payloads were already dispatched during
// this session. Owned exclusively by the dispatcher.
type MarkerStore interface {
	Seen(marker string) bool
	Mark(marker string)
}

// SessionMarkers is the in-memory MarkerStore scoped to one session. It is
// never cleared explicitly; it goes away with the session.
type SessionMarkers struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func NewSessionMarkers() *SessionMarkers {
	return &SessionMarkers{m: make(map[string]struct{})}
}

func (s *SessionMarkers) Seen(marker string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[marker]
	return ok
}

func (s *SessionMarkers) Mark(marker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[marker] = struct{}{}
}

// Feedback receives user-facing dispatch results. Implementations surface
// toasts and the celebration animation.
type Feedback interface {
	Success(message string)
	Failure(message string)
	Celebrate()
}

// Invalidator refreshes locally cached profile state after a successful
// dispatch changed the balance or achievements.
type Invalidator interface {
	InvalidateProfile()
}

// Redeemer is the subset of the redemption client the dispatcher uses.
type Redeemer interface {
	RegisterEvent(ctx context.Context, code string) (*redeem.Registration, error)
	RedeemPurchase(ctx context.Context, code string) (*redeem.Purchase, error)
	ClaimPrize(ctx context.Context, token string) (*redeem.Claim, error)
}

// Outcome describes how an activation ended.
type Outcome string

const (
	OutcomeNoPayload  Outcome = "no_payload"  // nothing extracted or grammar rejected
	OutcomeDuplicate  Outcome = "duplicate"   // marker already recorded
	OutcomeDispatched Outcome = "dispatched"  // network call made and succeeded
	OutcomeFailed     Outcome = "failed"      // network call made and failed
	OutcomeAlreadyRan Outcome = "already_ran" // one-shot guard tripped
)

// Dispatcher owns the one-shot guard and the marker store. It must not
// share them with the interactive flow.
type Dispatcher struct {
	client     Redeemer
	markers    MarkerStore
	feedback   Feedback
	invalidate Invalidator
	logger     *slog.Logger

	mu    sync.Mutex
	fired bool
}

// New creates a Dispatcher. markers may be shared across loads within one
// session; the fired guard is per-Dispatcher (per load).
func New(client Redeemer, markers MarkerStore, feedback Feedback, invalidate Invalidator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if markers == nil {
		markers = NewSessionMarkers()
	}
	return &Dispatcher{
		client:     client,
		markers:    markers,
		feedback:   feedback,
		invalidate: invalidate,
		logger:     logger,
	}
}

// Run performs the launch dispatch. Re-entrant activations (render storms)
// are no-ops: the guard flips before any network call, and the marker is
// written before the call so a concurrent activation with the same payload
// cannot dispatch twice.
func (d *Dispatcher) Run(ctx context.Context, in Input) Outcome {
	d.mu.Lock()
	if d.fired {
		d.mu.Unlock()
		return OutcomeAlreadyRan
	}

	raw := in.Extract()
	if raw == "" {
		d.mu.Unlock()
		return OutcomeNoPayload
	}
	// Launch input goes through the same normalizer as keypad/scan entry so
	// both surfaces submit identical values and markers for the same link.
	p := payload.Parse(payload.Normalize(raw))
	if p == nil {
		// Launch-time parse failures are silent: no toast, no retry.
		d.logger.Debug("launch payload not recognized", "raw", raw)
		d.mu.Unlock()
		return OutcomeNoPayload
	}

	marker := p.Marker()
	if d.markers.Seen(marker) {
		d.logger.Info("launch payload already processed", "marker", marker)
		d.mu.Unlock()
		return OutcomeDuplicate
	}

	// Marker and guard are written before the network call starts so a
	// second activation cannot re-enter while this one is in flight.
	d.markers.Mark(marker)
	d.fired = true
	d.mu.Unlock()

	if err := d.dispatch(ctx, p); err != nil {
		d.logger.Warn("launch dispatch failed", "marker", marker, "err", err)
		d.feedback.Failure(errorMessage(err))
		return OutcomeFailed
	}

	d.logger.Info("launch payload dispatched", "marker", marker)
	return OutcomeDispatched
}

func (d *Dispatcher) dispatch(ctx context.Context, p *payload.Payload) error {
	switch p.Kind {
	case payload.KindRegistration:
		reg, err := d.client.RegisterEvent(ctx, p.Value)
		if err != nil {
			return err
		}
		d.resolve("Registered for " + reg.EventTitle)
		return nil

	case payload.KindPurchase:
		if p.Ambiguous {
			return d.dispatchBare(ctx, p.Value)
		}
		purchase, err := d.client.RedeemPurchase(ctx, p.Value)
		if err != nil {
			return err
		}
		d.resolve("Ticket issued: " + purchase.Item.Title)
		return nil

	case payload.KindPrize:
		if _, err := d.client.ClaimPrize(ctx, p.Value); err != nil {
			return err
		}
		d.resolve("Prize claimed")
		return nil
	}
	return nil
}

// dispatchBare probes a bare five-digit code as a registration and falls
// back to a purchase redemption on NotFound, exactly once. A second
// NotFound is a genuine error.
func (d *Dispatcher) dispatchBare(ctx context.Context, code string) error {
	reg, err := d.client.RegisterEvent(ctx, code)
	if err == nil {
		d.resolve("Registered for " + reg.EventTitle)
		return nil
	}
	if redeem.KindOf(err) != redeem.KindNotFound {
		return err
	}
	purchase, err := d.client.RedeemPurchase(ctx, code)
	if err != nil {
		return err
	}
	d.resolve("Ticket issued: " + purchase.Item.Title)
	return nil
}

// resolve sequences the success side effects: celebration first, then cache
// invalidation, then the toast.
func (d *Dispatcher) resolve(message string) {
	d.feedback.Celebrate()
	if d.invalidate != nil {
		d.invalidate.InvalidateProfile()
	}
	d.feedback.Success(message)
}

func errorMessage(err error) string {
	var re *redeem.Error
	if errors.As(err, &re) {
		return re.Message
	}
	return "something went wrong, try again"
}
