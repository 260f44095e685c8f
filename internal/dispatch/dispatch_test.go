package dispatch_test

import (
	"context"
	"testing"

	"github.com/karaobingo/stagepass/internal/dispatch"
	"github.com/karaobingo/stagepass/internal/redeem"
)

type fakeRedeemer struct {
	registerCalls int
	purchaseCalls int
	prizeCalls    int
	prizeToken    string
	registerErr   error
	purchaseErr   error
}

func (f *fakeRedeemer) RegisterEvent(ctx context.Context, code string) (*redeem.Registration, error) {
	f.registerCalls++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &redeem.Registration{EventTitle: "Friday Bingo", NewBalance: 150, CoinsEarned: 50}, nil
}

func (f *fakeRedeemer) RedeemPurchase(ctx context.Context, code string) (*redeem.Purchase, error) {
	f.purchaseCalls++
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return &redeem.Purchase{Item: redeem.Item{Title: "House Cocktail"}, NewBalance: 80}, nil
}

func (f *fakeRedeemer) ClaimPrize(ctx context.Context, token string) (*redeem.Claim, error) {
	f.prizeCalls++
	f.prizeToken = token
	return &redeem.Claim{CoinsAdded: 25}, nil
}

// recorder captures feedback and invalidation ordering.
type recorder struct {
	events []string
}

func (r *recorder) Success(msg string) { r.events = append(r.events, "success") }
func (r *recorder) Failure(msg string) { r.events = append(r.events, "failure") }
func (r *recorder) Celebrate()         { r.events = append(r.events, "celebrate") }
func (r *recorder) InvalidateProfile() { r.events = append(r.events, "invalidate") }

func TestExtractPriority(t *testing.T) {
	tests := []struct {
		in   dispatch.Input
		want string
	}{
		{dispatch.Input{StartParam: "reg-12345", URL: "https://x/?code=shop-11111"}, "reg-12345"},
		{dispatch.Input{URL: "https://x/?startapp=shop-22222&code=reg-33333"}, "shop-22222"},
		{dispatch.Input{URL: "https://x/?code=c-44444"}, "c-44444"},
		{dispatch.Input{URL: "https://x/#code=55555"}, "55555"},
		{dispatch.Input{URL: "https://x/#prize-AB"}, "prize-AB"},
		{dispatch.Input{URL: "https://x/"}, ""},
		{dispatch.Input{}, ""},
	}
	for _, tt := range tests {
		if got := tt.in.Extract(); got != tt.want {
			t.Errorf("Extract(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDispatchOncePerPayload(t *testing.T) {
	client := &fakeRedeemer{}
	markers := dispatch.NewSessionMarkers()
	rec := &recorder{}
	in := dispatch.Input{StartParam: "prize-ABC123"}

	d := dispatch.New(client, markers, rec, rec, nil)
	if out := d.Run(context.Background(), in); out != dispatch.OutcomeDispatched {
		t.Fatalf("first run: %s", out)
	}
	// Render storm on the same dispatcher.
	for i := 0; i < 5; i++ {
		if out := d.Run(context.Background(), in); out != dispatch.OutcomeAlreadyRan {
			t.Fatalf("re-entrant run %d: %s", i, out)
		}
	}
	// Fresh activation in the same session (new load, same marker store).
	d2 := dispatch.New(client, markers, rec, rec, nil)
	if out := d2.Run(context.Background(), in); out != dispatch.OutcomeDuplicate {
		t.Fatalf("second load: %s", out)
	}

	if client.prizeCalls != 1 {
		t.Errorf("expected exactly one network call, got %d", client.prizeCalls)
	}
}

func TestDispatchSuccessOrdering(t *testing.T) {
	client := &fakeRedeemer{}
	rec := &recorder{}
	d := dispatch.New(client, nil, rec, rec, nil)

	if out := d.Run(context.Background(), dispatch.Input{StartParam: "reg-12345"}); out != dispatch.OutcomeDispatched {
		t.Fatalf("run: %s", out)
	}
	want := []string{"celebrate", "invalidate", "success"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", rec.events, want)
		}
	}
}

func TestDispatchBareFallback(t *testing.T) {
	client := &fakeRedeemer{registerErr: &redeem.Error{Kind: redeem.KindNotFound, Message: "event not found"}}
	rec := &recorder{}
	d := dispatch.New(client, nil, rec, rec, nil)

	if out := d.Run(context.Background(), dispatch.Input{StartParam: "12345"}); out != dispatch.OutcomeDispatched {
		t.Fatalf("run: %s", out)
	}
	if client.registerCalls != 1 || client.purchaseCalls != 1 {
		t.Errorf("expected one probe and one fallback, got %d/%d", client.registerCalls, client.purchaseCalls)
	}
}

func TestDispatchBareDoubleNotFound(t *testing.T) {
	client := &fakeRedeemer{
		registerErr: &redeem.Error{Kind: redeem.KindNotFound, Message: "event not found"},
		purchaseErr: &redeem.Error{Kind: redeem.KindNotFound, Message: "code not found"},
	}
	rec := &recorder{}
	d := dispatch.New(client, nil, rec, rec, nil)

	if out := d.Run(context.Background(), dispatch.Input{StartParam: "12345"}); out != dispatch.OutcomeFailed {
		t.Fatalf("run: %s", out)
	}
	// Exactly one fallback; the second NotFound surfaces as a failure.
	if client.registerCalls != 1 || client.purchaseCalls != 1 {
		t.Errorf("got %d register / %d purchase calls", client.registerCalls, client.purchaseCalls)
	}
	if len(rec.events) != 1 || rec.events[0] != "failure" {
		t.Errorf("expected a single failure toast, got %v", rec.events)
	}
}

// A lower-case deep link must submit the same token (and write the same
// marker) as the keypad surface, which upper-cases input before parsing.
func TestDispatchNormalizesInput(t *testing.T) {
	client := &fakeRedeemer{}
	markers := dispatch.NewSessionMarkers()
	rec := &recorder{}

	d := dispatch.New(client, markers, rec, rec, nil)
	if out := d.Run(context.Background(), dispatch.Input{StartParam: "prize-abc123"}); out != dispatch.OutcomeDispatched {
		t.Fatalf("run: %s", out)
	}
	if client.prizeToken != "ABC123" {
		t.Errorf("submitted token %q, want %q", client.prizeToken, "ABC123")
	}

	// A differently-cased spelling of the same link is the same payload.
	d2 := dispatch.New(client, markers, rec, rec, nil)
	if out := d2.Run(context.Background(), dispatch.Input{StartParam: " PRIZE-abc123 "}); out != dispatch.OutcomeDuplicate {
		t.Fatalf("recased link: %s", out)
	}
	if client.prizeCalls != 1 {
		t.Errorf("expected one network call across casings, got %d", client.prizeCalls)
	}
}

func TestDispatchGarbageIsSilent(t *testing.T) {
	client := &fakeRedeemer{}
	rec := &recorder{}
	d := dispatch.New(client, nil, rec, rec, nil)

	if out := d.Run(context.Background(), dispatch.Input{StartParam: "not a code"}); out != dispatch.OutcomeNoPayload {
		t.Fatalf("run: %s", out)
	}
	if len(rec.events) != 0 {
		t.Errorf("parse failures at launch must be silent, got %v", rec.events)
	}
	// A later activation with a real payload still works: garbage does not
	// trip the one-shot guard.
	if out := d.Run(context.Background(), dispatch.Input{StartParam: "reg-12345"}); out != dispatch.OutcomeDispatched {
		t.Fatalf("second run: %s", out)
	}
}

func TestFailedDispatchKeepsMarker(t *testing.T) {
	client := &fakeRedeemer{purchaseErr: &redeem.Error{Kind: redeem.KindNetwork, Message: "network error"}}
	markers := dispatch.NewSessionMarkers()
	rec := &recorder{}

	d := dispatch.New(client, markers, rec, rec, nil)
	if out := d.Run(context.Background(), dispatch.Input{StartParam: "shop-77777"}); out != dispatch.OutcomeFailed {
		t.Fatalf("run: %s", out)
	}
	// No automatic retry: a fresh activation sees the marker.
	d2 := dispatch.New(client, markers, rec, rec, nil)
	if out := d2.Run(context.Background(), dispatch.Input{StartParam: "shop-77777"}); out != dispatch.OutcomeDuplicate {
		t.Fatalf("second load: %s", out)
	}
	if client.purchaseCalls != 1 {
		t.Errorf("expected no retry, got %d calls", client.purchaseCalls)
	}
}
