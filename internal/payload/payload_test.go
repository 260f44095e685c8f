package payload_test

import (
	"testing"

	"github.com/karaobingo/stagepass/internal/payload"
)

func TestParsePrefixedCodes(t *testing.T) {
	tests := []struct {
		in    string
		kind  payload.Kind
		value string
	}{
		{"reg-12345", payload.KindRegistration, "12345"},
		{"registration-12345", payload.KindRegistration, "12345"},
		{"REG-12345", payload.KindRegistration, "12345"},
		{"Registration-54321", payload.KindRegistration, "54321"},
		{"reg-12 34 5", payload.KindRegistration, "12345"},
		{"shop-99999", payload.KindPurchase, "99999"},
		{"c-00001", payload.KindPurchase, "00001"},
		{"SHOP-12345", payload.KindPurchase, "12345"},
		{"prize-ABC123", payload.KindPrize, "ABC123"},
		{"p-gold_star-7", payload.KindPrize, "gold_star-7"},
		{"prize-a.b/c", payload.KindPrize, "abc"},
	}

	for _, tt := range tests {
		p := payload.Parse(tt.in)
		if p == nil {
			t.Errorf("Parse(%q) = nil, want %s:%s", tt.in, tt.kind, tt.value)
			continue
		}
		if p.Kind != tt.kind || p.Value != tt.value {
			t.Errorf("Parse(%q) = %s:%s, want %s:%s", tt.in, p.Kind, p.Value, tt.kind, tt.value)
		}
		if p.Ambiguous {
			t.Errorf("Parse(%q) marked ambiguous, prefixed codes never are", tt.in)
		}
	}
}

func TestParseBareCode(t *testing.T) {
	for _, in := range []string{"12345", " 12345 ", "12-345", "12 34 5"} {
		p := payload.Parse(in)
		if p == nil {
			t.Fatalf("Parse(%q) = nil, want a bare-code payload", in)
		}
		if p.Value != "12345" {
			t.Errorf("Parse(%q).Value = %q, want 12345", in, p.Value)
		}
		if !p.Ambiguous {
			t.Errorf("Parse(%q) not marked ambiguous", in)
		}
		if p.Kind != payload.KindRegistration && p.Kind != payload.KindPurchase {
			t.Errorf("Parse(%q).Kind = %s, want registration or purchase", in, p.Kind)
		}
	}
}

func TestParseRejects(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"1234",   // too short
		"123456", // too long
		"reg-1234",
		"reg-123456",
		"reg-",
		"shop-abc",
		"prize-",
		"prize-...",
		"hello world",
		"reg_12345", // wrong separator
	}

	for _, in := range tests {
		if p := payload.Parse(in); p != nil {
			t.Errorf("Parse(%q) = %s:%s, want nil", in, p.Kind, p.Value)
		}
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in    string
		kind  payload.Kind
		value string
	}{
		{"https://t.me/karaobingo_bot/app?startapp=reg-12345", payload.KindRegistration, "12345"},
		{"https://t.me/karaobingo_bot/app?tgWebAppStartParam=shop-54321", payload.KindPurchase, "54321"},
		{"https://club.example.com/?code=prize-ABC123", payload.KindPrize, "ABC123"},
		{"https://club.example.com/#code=12345", payload.KindPurchase, "12345"},
		{"https://club.example.com/app#reg-12345", payload.KindRegistration, "12345"},
		{"/app?startapp=c-77777", payload.KindPurchase, "77777"},
	}

	for _, tt := range tests {
		p := payload.Parse(tt.in)
		if p == nil {
			t.Errorf("Parse(%q) = nil, want %s:%s", tt.in, tt.kind, tt.value)
			continue
		}
		if p.Kind != tt.kind || p.Value != tt.value {
			t.Errorf("Parse(%q) = %s:%s, want %s:%s", tt.in, p.Kind, p.Value, tt.kind, tt.value)
		}
	}
}

func TestParseURLPriority(t *testing.T) {
	// startapp wins over code when both are present.
	p := payload.Parse("https://club.example.com/?code=shop-11111&startapp=reg-22222")
	if p == nil || p.Kind != payload.KindRegistration || p.Value != "22222" {
		t.Fatalf("expected startapp to win, got %+v", p)
	}
}

func TestParseURLBareFallback(t *testing.T) {
	// No recognizable launch parameter, but the full URL strips down to
	// exactly five digits.
	p := payload.Parse("https://club.example.com/e/12345?x=y")
	if p == nil {
		t.Fatal("expected bare-code fallback for URL")
	}
	if p.Value != "12345" || !p.Ambiguous {
		t.Errorf("got %+v, want ambiguous value 12345", p)
	}

	// Too many digits overall: no fallback.
	if p := payload.Parse("https://club.example.com/e/123456?x=y"); p != nil {
		t.Errorf("expected nil for URL with six digits, got %+v", p)
	}
}

func TestMarker(t *testing.T) {
	p := payload.Parse("prize-ABC123")
	if p == nil {
		t.Fatal("parse failed")
	}
	if got := p.Marker(); got != "prize:ABC123" {
		t.Errorf("Marker() = %q, want prize:ABC123", got)
	}
}
