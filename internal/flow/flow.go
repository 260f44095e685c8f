// Package flow drives manual keypad and camera-scan code entry through
// classification, confirmation, and submission to a terminal success or
// error state. It is UI-agnostic: surfaces plug in a Presenter and the flow
// tells them when to close, celebrate, and toast.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/karaobingo/stagepass/internal/payload"
	"github.com/karaobingo/stagepass/internal/redeem"
)

// State names the flow's position in the entry state machine.
type State string

const (
	StateEntering   State = "entering"
	StateConfirming State = "confirming_registration"
	StateResolved   State = "resolved"
)

// ErrNothingPending is returned by Confirm when no registration awaits
// confirmation.
var ErrNothingPending = errors.New("nothing to confirm")

// Presenter receives user-facing flow effects. CloseEntry dismisses the
// input surface; Celebrate plays the reward animation.
type Presenter interface {
	CloseEntry()
	Celebrate()
	Success(message string)
	Failure(message string)
}

// Invalidator refreshes cached profile/achievement state after a success.
type Invalidator interface {
	InvalidateProfile()
}

// Redeemer is the subset of the redemption client the flow uses.
type Redeemer interface {
	ValidateEventCode(ctx context.Context, code string) (*redeem.EventPreview, error)
	RegisterEvent(ctx context.Context, code string) (*redeem.Registration, error)
	RedeemPurchase(ctx context.Context, code string) (*redeem.Purchase, error)
	ClaimPrize(ctx context.Context, token string) (*redeem.Claim, error)
	LookupCodeType(ctx context.Context, code string) (payload.Kind, error)
}

// Result is the terminal outcome of one redemption attempt.
type Result struct {
	Registration *redeem.Registration
	Purchase     *redeem.Purchase
	Claim        *redeem.Claim
	Err          error
}

// Option configures a Flow.
type Option func(*Flow)

// WithLookup makes the flow disambiguate bare codes with the lookup
// endpoint instead of the legacy probe-and-fallback path.
func WithLookup() Option {
	return func(f *Flow) { f.useLookup = true }
}

// WithToastDelay overrides the delay between the celebration animation and
// the success toast.
func WithToastDelay(d time.Duration) Option {
	return func(f *Flow) { f.toastDelay = d }
}

// WithSleep overrides the sleep function. Tests pass a no-op.
func WithSleep(fn func(time.Duration)) Option {
	return func(f *Flow) { f.sleep = fn }
}

// Flow is one entry surface's redemption state machine. Methods are meant
// to be called from a single goroutine (UI events interleave, they do not
// run in parallel); the internal lock makes stray duplicates safe rather
// than enabling concurrency.
type Flow struct {
	client     Redeemer
	presenter  Presenter
	invalidate Invalidator
	logger     *slog.Logger
	useLookup  bool
	toastDelay time.Duration
	sleep      func(time.Duration)

	mu       sync.Mutex
	state    State
	slots    [payload.CodeLength]byte
	pending  *payload.Payload     // payload being confirmed/submitted
	preview  *redeem.EventPreview // validated event awaiting confirmation
	inflight map[string]bool      // one pending attempt per value
}

// New creates a Flow in the Entering state.
func New(client Redeemer, presenter Presenter, invalidate Invalidator, logger *slog.Logger, opts ...Option) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Flow{
		client:     client,
		presenter:  presenter,
		invalidate: invalidate,
		logger:     logger,
		toastDelay: 1200 * time.Millisecond,
		sleep:      time.Sleep,
		state:      StateEntering,
		inflight:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Code returns the currently entered slot characters.
func (f *Flow) Code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code()
}

func (f *Flow) code() string {
	var b strings.Builder
	for _, c := range f.slots {
		if c != 0 {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Type enters one character into the next empty slot. When the last slot
// fills and every slot is non-empty the code auto-submits; the returned
// Result is nil until then.
func (f *Flow) Type(ctx context.Context, ch byte) (*Result, error) {
	f.mu.Lock()
	if f.state != StateEntering {
		f.mu.Unlock()
		return nil, errors.New("not entering")
	}
	placed := false
	full := true
	for i := range f.slots {
		if f.slots[i] == 0 {
			if !placed {
				f.slots[i] = ch
				placed = true
			} else {
				full = false
			}
		}
	}
	if !placed || !full {
		f.mu.Unlock()
		return nil, nil
	}
	code := f.code()
	f.mu.Unlock()

	return f.submitRaw(ctx, code)
}

// ClearSlots empties the entry slots without leaving the Entering state.
func (f *Flow) ClearSlots() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = [payload.CodeLength]byte{}
}

// Reset rearms a resolved flow for the next attempt: back to Entering with
// empty slots and no pending confirmation.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateEntering
	f.slots = [payload.CodeLength]byte{}
	f.pending = nil
	f.preview = nil
}

// Scan feeds a full scanned or pasted string through the same machine,
// bypassing slot entry.
func (f *Flow) Scan(ctx context.Context, raw string) (*Result, error) {
	return f.submitRaw(ctx, raw)
}

// submitRaw normalizes and parses raw input, then classifies it. A grammar
// rejection surfaces as a format error and keeps the surface open.
func (f *Flow) submitRaw(ctx context.Context, raw string) (*Result, error) {
	p := payload.Parse(payload.Normalize(raw))
	if p == nil {
		f.presenter.Failure("unrecognized code format")
		return nil, &redeem.Error{Kind: redeem.KindParse, Message: "unrecognized code format"}
	}

	f.mu.Lock()
	if f.inflight[p.Value] {
		f.mu.Unlock()
		return nil, errors.New("attempt already pending")
	}
	f.inflight[p.Value] = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.inflight, p.Value)
		f.mu.Unlock()
	}()

	return f.classify(ctx, p)
}

// classify decides how to redeem the payload. Bare codes need a server
// round trip to tell registrations from purchases; prefixed codes go
// straight to their operation (registrations via validation+confirmation).
func (f *Flow) classify(ctx context.Context, p *payload.Payload) (*Result, error) {
	switch {
	case p.Kind == payload.KindPrize:
		claim, err := f.client.ClaimPrize(ctx, p.Value)
		if err != nil {
			return f.fail(err)
		}
		return f.succeed(&Result{Claim: claim}, "Prize claimed")

	case p.Kind == payload.KindRegistration:
		return f.validateRegistration(ctx, p)

	case p.Ambiguous:
		return f.classifyBare(ctx, p)

	default: // unambiguous purchase
		return f.submitPurchase(ctx, p.Value)
	}
}

func (f *Flow) classifyBare(ctx context.Context, p *payload.Payload) (*Result, error) {
	if f.useLookup {
		kind, err := f.client.LookupCodeType(ctx, p.Value)
		if err != nil {
			return f.fail(err)
		}
		if kind == payload.KindRegistration {
			return f.validateRegistration(ctx, &payload.Payload{Kind: kind, Value: p.Value})
		}
		return f.submitPurchase(ctx, p.Value)
	}

	// Legacy path: try the registration interpretation first; a NotFound
	// falls back to a purchase redemption exactly once. Any other error
	// surfaces without fallback.
	res, err := f.validateRegistration(ctx, p)
	if err != nil && redeem.KindOf(err) == redeem.KindNotFound {
		return f.submitPurchase(ctx, p.Value)
	}
	return res, err
}

// validateRegistration previews the event and enters ConfirmingRegistration.
// The user must explicitly confirm; validation never submits by itself.
func (f *Flow) validateRegistration(ctx context.Context, p *payload.Payload) (*Result, error) {
	preview, err := f.client.ValidateEventCode(ctx, p.Value)
	if err != nil {
		// NotFound propagates untoasted so classifyBare can fall back.
		if redeem.KindOf(err) == redeem.KindNotFound && p.Ambiguous {
			return nil, err
		}
		return f.fail(err)
	}
	if preview.AlreadyRegistered {
		// No point confirming a registration that already happened.
		return f.fail(&redeem.Error{
			Kind:    redeem.KindAlreadyRegistered,
			Message: "already registered for " + preview.Event.Title,
		})
	}

	f.mu.Lock()
	f.state = StateConfirming
	f.pending = &payload.Payload{Kind: payload.KindRegistration, Value: p.Value}
	f.preview = preview
	f.mu.Unlock()
	return nil, nil
}

// Preview returns the validated event awaiting confirmation, or nil.
func (f *Flow) Preview() *redeem.EventPreview {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preview
}

// Confirm submits the registration the user just approved. It is the only
// path to registration submission: there is no way to register without
// passing through the confirmation state.
func (f *Flow) Confirm(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	if f.state != StateConfirming || f.pending == nil {
		f.mu.Unlock()
		return nil, ErrNothingPending
	}
	code := f.pending.Value
	f.mu.Unlock()

	reg, err := f.client.RegisterEvent(ctx, code)
	if err != nil {
		return f.fail(err)
	}
	return f.succeed(&Result{Registration: reg}, "Registered for "+reg.EventTitle)
}

// Dismiss abandons a pending confirmation and returns to entry.
func (f *Flow) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateConfirming {
		f.state = StateEntering
		f.pending = nil
		f.preview = nil
	}
}

func (f *Flow) submitPurchase(ctx context.Context, code string) (*Result, error) {
	purchase, err := f.client.RedeemPurchase(ctx, code)
	if err != nil {
		return f.fail(err)
	}
	return f.succeed(&Result{Purchase: purchase}, "Ticket issued: "+purchase.Item.Title)
}

// succeed closes the surface and sequences the success effects in order:
// celebration animation, cache invalidation, then the toast after a delay
// so it does not collide with the animation.
func (f *Flow) succeed(res *Result, message string) (*Result, error) {
	f.mu.Lock()
	f.state = StateResolved
	f.pending = nil
	f.preview = nil
	f.mu.Unlock()

	f.presenter.CloseEntry()
	f.presenter.Celebrate()
	if f.invalidate != nil {
		f.invalidate.InvalidateProfile()
	}
	f.sleep(f.toastDelay)
	f.presenter.Success(message)
	return res, nil
}

// fail routes an error by its kind. Terminal conflicts close the surface —
// the code was consumed by the user's own earlier action, retrying cannot
// help. Everything else keeps the surface open with the entered code
// preserved.
func (f *Flow) fail(err error) (*Result, error) {
	message := "something went wrong, try again"
	var re *redeem.Error
	if errors.As(err, &re) {
		message = re.Message
	}

	if redeem.Terminal(err) {
		f.mu.Lock()
		f.state = StateResolved
		f.pending = nil
		f.preview = nil
		f.mu.Unlock()
		f.presenter.CloseEntry()
		f.presenter.Failure(message)
		return &Result{Err: err}, err
	}

	f.mu.Lock()
	f.state = StateEntering
	f.pending = nil
	f.preview = nil
	f.mu.Unlock()
	f.presenter.Failure(message)
	return nil, err
}
