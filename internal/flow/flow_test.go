package flow_test

import (
	"context"
	"testing"
	"time"

	"github.com/karaobingo/stagepass/internal/flow"
	"github.com/karaobingo/stagepass/internal/payload"
	"github.com/karaobingo/stagepass/internal/redeem"
)

type fakeClient struct {
	validateCalls int
	registerCalls int
	purchaseCalls int
	lookupCalls   int

	preview     *redeem.EventPreview
	validateErr error
	registerErr error
	purchaseErr error
	lookupKind  payload.Kind
}

func (f *fakeClient) ValidateEventCode(ctx context.Context, code string) (*redeem.EventPreview, error) {
	f.validateCalls++
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	if f.preview != nil {
		return f.preview, nil
	}
	return &redeem.EventPreview{Event: redeem.Event{ID: 7, Title: "Friday Bingo"}, CoinsReward: 50}, nil
}

func (f *fakeClient) RegisterEvent(ctx context.Context, code string) (*redeem.Registration, error) {
	f.registerCalls++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &redeem.Registration{EventTitle: "Friday Bingo", NewBalance: 150, CoinsEarned: 50}, nil
}

func (f *fakeClient) RedeemPurchase(ctx context.Context, code string) (*redeem.Purchase, error) {
	f.purchaseCalls++
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return &redeem.Purchase{
		Ticket:     redeem.Ticket{Code: "TCK-1", ItemID: 3},
		Item:       redeem.Item{ID: 3, Title: "House Cocktail"},
		NewBalance: 80,
	}, nil
}

func (f *fakeClient) ClaimPrize(ctx context.Context, token string) (*redeem.Claim, error) {
	return &redeem.Claim{CoinsAdded: 25}, nil
}

func (f *fakeClient) LookupCodeType(ctx context.Context, code string) (payload.Kind, error) {
	f.lookupCalls++
	if f.lookupKind == "" {
		return payload.KindPurchase, nil
	}
	return f.lookupKind, nil
}

type surface struct {
	closed    bool
	events    []string
	successes []string
	failures  []string
}

func (s *surface) CloseEntry() { s.closed = true; s.events = append(s.events, "close") }
func (s *surface) Celebrate()  { s.events = append(s.events, "celebrate") }
func (s *surface) Success(msg string) {
	s.successes = append(s.successes, msg)
	s.events = append(s.events, "success")
}
func (s *surface) Failure(msg string) {
	s.failures = append(s.failures, msg)
	s.events = append(s.events, "failure")
}
func (s *surface) InvalidateProfile() { s.events = append(s.events, "invalidate") }

func newFlow(client *fakeClient, s *surface, opts ...flow.Option) *flow.Flow {
	opts = append(opts, flow.WithSleep(func(time.Duration) {}))
	return flow.New(client, s, s, nil, opts...)
}

// Scenario A: reg-12345 → validate → confirm → register → success.
func TestRegistrationHappyPath(t *testing.T) {
	client := &fakeClient{}
	s := &surface{}
	f := newFlow(client, s)
	ctx := context.Background()

	res, err := f.Scan(ctx, "reg-12345")
	if err != nil || res != nil {
		t.Fatalf("scan should park in confirmation, got res=%v err=%v", res, err)
	}
	if f.State() != flow.StateConfirming {
		t.Fatalf("state = %s, want confirming", f.State())
	}
	if client.registerCalls != 0 {
		t.Fatal("registration submitted without confirmation")
	}
	p := f.Preview()
	if p == nil || p.Event.Title != "Friday Bingo" || p.CoinsReward != 50 {
		t.Fatalf("preview = %+v", p)
	}

	res, err = f.Confirm(ctx)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Registration == nil || res.Registration.CoinsEarned != 50 {
		t.Fatalf("result = %+v", res)
	}
	if client.registerCalls != 1 {
		t.Errorf("register calls = %d", client.registerCalls)
	}
	want := []string{"close", "celebrate", "invalidate", "success"}
	if len(s.events) != len(want) {
		t.Fatalf("events = %v, want %v", s.events, want)
	}
	for i := range want {
		if s.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", s.events, want)
		}
	}
}

// Scenario B: bare 12345 → validate-as-registration NotFound → fall back to
// purchase redemption → ticket.
func TestBareCodeFallback(t *testing.T) {
	client := &fakeClient{validateErr: &redeem.Error{Kind: redeem.KindNotFound, Message: "event not found"}}
	s := &surface{}
	f := newFlow(client, s)

	res, err := f.Scan(context.Background(), "12345")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res == nil || res.Purchase == nil || res.Purchase.Ticket.Code != "TCK-1" {
		t.Fatalf("result = %+v", res)
	}
	if client.validateCalls != 1 || client.purchaseCalls != 1 {
		t.Errorf("calls = %d validate / %d purchase", client.validateCalls, client.purchaseCalls)
	}
	if !s.closed {
		t.Error("surface should close on success")
	}
}

// Scenario C: shop-99999 → AlreadyRedeemed → surface closes, error toast,
// no retry.
func TestAlreadyRedeemedCloses(t *testing.T) {
	client := &fakeClient{purchaseErr: &redeem.Error{Kind: redeem.KindAlreadyRedeemed, Message: "code already used"}}
	s := &surface{}
	f := newFlow(client, s)

	res, err := f.Scan(context.Background(), "shop-99999")
	if redeem.KindOf(err) != redeem.KindAlreadyRedeemed {
		t.Fatalf("err = %v", err)
	}
	if res == nil || res.Err == nil {
		t.Fatal("terminal failures still produce a resolved result")
	}
	if !s.closed {
		t.Error("surface must close on already_redeemed")
	}
	if len(s.failures) != 1 || s.failures[0] != "code already used" {
		t.Errorf("failures = %v", s.failures)
	}
	if client.purchaseCalls != 1 {
		t.Errorf("no automatic retry allowed, calls = %d", client.purchaseCalls)
	}
	if f.State() != flow.StateResolved {
		t.Errorf("state = %s", f.State())
	}
}

func TestNetworkFailureKeepsSurfaceOpen(t *testing.T) {
	client := &fakeClient{
		validateErr: &redeem.Error{Kind: redeem.KindNotFound, Message: "event not found"},
		purchaseErr: &redeem.Error{Kind: redeem.KindNetwork, Message: "network error, try again"},
	}
	s := &surface{}
	f := newFlow(client, s)
	ctx := context.Background()

	// Enter the code slot by slot; the last keystroke auto-submits.
	for _, ch := range []byte("9999") {
		if res, err := f.Type(ctx, ch); res != nil || err != nil {
			t.Fatalf("premature submit: res=%v err=%v", res, err)
		}
	}
	_, err := f.Type(ctx, '9')
	if redeem.KindOf(err) != redeem.KindNetwork {
		t.Fatalf("err = %v", err)
	}
	if s.closed {
		t.Error("surface must stay open on transient failure")
	}
	if f.State() != flow.StateEntering {
		t.Errorf("state = %s, want entering", f.State())
	}
	if f.Code() != "99999" {
		t.Errorf("entered code must be preserved, got %q", f.Code())
	}
	f.ClearSlots()
	if f.Code() != "" {
		t.Error("ClearSlots should empty the slots")
	}
}

func TestAlreadyRegisteredShortCircuitsConfirmation(t *testing.T) {
	client := &fakeClient{preview: &redeem.EventPreview{
		Event:             redeem.Event{ID: 7, Title: "Friday Bingo"},
		CoinsReward:       50,
		AlreadyRegistered: true,
	}}
	s := &surface{}
	f := newFlow(client, s)

	_, err := f.Scan(context.Background(), "reg-12345")
	if redeem.KindOf(err) != redeem.KindAlreadyRegistered {
		t.Fatalf("err = %v", err)
	}
	if f.State() != flow.StateResolved || !s.closed {
		t.Error("already-registered must be terminal and close the surface")
	}
	if client.registerCalls != 0 {
		t.Error("no registration call may be made")
	}
}

func TestLookupPath(t *testing.T) {
	client := &fakeClient{lookupKind: payload.KindRegistration}
	s := &surface{}
	f := newFlow(client, s, flow.WithLookup())

	if _, err := f.Scan(context.Background(), "12345"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if client.lookupCalls != 1 {
		t.Errorf("lookup calls = %d", client.lookupCalls)
	}
	if f.State() != flow.StateConfirming {
		t.Errorf("state = %s, want confirming", f.State())
	}
}

func TestUnrecognizedFormat(t *testing.T) {
	client := &fakeClient{}
	s := &surface{}
	f := newFlow(client, s)

	_, err := f.Scan(context.Background(), "wat?")
	if redeem.KindOf(err) != redeem.KindParse {
		t.Fatalf("err = %v", err)
	}
	if len(s.failures) != 1 || s.failures[0] != "unrecognized code format" {
		t.Errorf("failures = %v", s.failures)
	}
	if s.closed {
		t.Error("parse failures keep the surface open")
	}
}

func TestDismissReturnsToEntry(t *testing.T) {
	client := &fakeClient{}
	s := &surface{}
	f := newFlow(client, s)
	ctx := context.Background()

	if _, err := f.Scan(ctx, "reg-12345"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	f.Dismiss()
	if f.State() != flow.StateEntering {
		t.Errorf("state = %s, want entering", f.State())
	}
	if _, err := f.Confirm(ctx); err == nil {
		t.Error("Confirm after Dismiss must fail")
	}
	if client.registerCalls != 0 {
		t.Error("dismissed confirmation must not register")
	}
}

func TestConfirmRequiredEvenAfterValidation(t *testing.T) {
	client := &fakeClient{}
	s := &surface{}
	f := newFlow(client, s)

	if _, err := f.Scan(context.Background(), "registration-12345"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// Validation happened, but nothing may be submitted until Confirm.
	if client.validateCalls != 1 || client.registerCalls != 0 {
		t.Errorf("calls = %d validate / %d register", client.validateCalls, client.registerCalls)
	}
}
