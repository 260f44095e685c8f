// Package payload turns raw launch input — a scanned QR string, a pasted
// code, or a deep-link URL — into a typed action descriptor. Parsing is pure:
// no I/O, no side effects, total over all string inputs.
package payload

import (
	"net/url"
	"strings"
)

// Kind discriminates what a parsed payload asks the app to do.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindPurchase     Kind = "purchase"
	KindPrize        Kind = "prize"
)

// CodeLength is the exact length of event and purchase codes.
const CodeLength = 5

// Payload is a classified, validated action descriptor. Registration and
// purchase values are exactly CodeLength digits; prize values are opaque
// tokens restricted to [A-Za-z0-9_-].
type Payload struct {
	Kind  Kind
	Value string

	// Ambiguous marks a bare code with no type-indicating prefix. The
	// grammar cannot tell a registration code from a purchase code without
	// a server round trip, so callers of an ambiguous payload must either
	// look the type up or probe one interpretation and fall back.
	Ambiguous bool
}

// Marker returns the durable "{kind}:{value}" form used to suppress
// duplicate launch-time dispatch of the same payload.
func (p Payload) Marker() string {
	return string(p.Kind) + ":" + p.Value
}

// rule maps a textual prefix to a payload kind and value extractor. Rules
// are tried in order; once a prefix matches, extractor failure fails the
// whole parse with no fallback to later rules or the bare-code heuristic.
type rule struct {
	prefix  string
	kind    Kind
	extract func(rest string) (string, bool)
}

func extractDigits(rest string) (string, bool) {
	d := DigitsOnly(rest)
	if len(d) != CodeLength {
		return "", false
	}
	return d, true
}

func extractToken(rest string) (string, bool) {
	t := SanitizeToken(rest)
	if t == "" {
		return "", false
	}
	return t, true
}

var rules = []rule{
	{"registration-", KindRegistration, extractDigits},
	{"reg-", KindRegistration, extractDigits},
	{"shop-", KindPurchase, extractDigits},
	{"c-", KindPurchase, extractDigits},
	{"prize-", KindPrize, extractToken},
	{"p-", KindPrize, extractToken},
}

// LaunchParamKeys are the URL query/hash keys that may carry a launch
// payload, checked in priority order. Exported so launch-input extraction
// checks the same keys the URL grammar does.
var LaunchParamKeys = []string{"startapp", "tgWebAppStartParam", "code"}

// Parse maps a raw input string to a Payload, or nil when the input is not
// recognized. Prefix matching is case-insensitive; values are normalized per
// sub-type (digits for codes, sanitized token for prizes).
func Parse(raw string) *Payload {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	lower := strings.ToLower(s)
	for _, r := range rules {
		if !strings.HasPrefix(lower, r.prefix) {
			continue
		}
		value, ok := r.extract(s[len(r.prefix):])
		if !ok {
			return nil
		}
		return &Payload{Kind: r.kind, Value: value}
	}

	if looksLikeURL(s) {
		if p := parseURL(s); p != nil {
			return p
		}
	}

	return parseBare(s)
}

// parseBare classifies a string that is exactly CodeLength digits after
// stripping separators (spaces, dashes). Strings containing letters are not
// bare codes — a mistyped prefix must fail, not silently classify. Purchase
// and event codes share the same shape, so the static classification is
// provisional: the payload is marked Ambiguous and callers resolve it
// against the server.
func parseBare(s string) *Payload {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return nil
		}
	}
	return bareFromDigits(s)
}

// bareFromDigits applies only the digit-strip length check. Used directly
// for URL fallback, where the surrounding text is a URL rather than a typo.
func bareFromDigits(s string) *Payload {
	d := DigitsOnly(s)
	if len(d) != CodeLength {
		return nil
	}
	return &Payload{Kind: KindPurchase, Value: d, Ambiguous: true}
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "://") || strings.Contains(s, "?") || strings.Contains(s, "#")
}

// parseURL extracts a launch-parameter value from a URL's query or hash
// fragment and recursively parses it with the same grammar. When no
// parameter parses, the full URL string may still qualify as a bare code.
func parseURL(s string) *Payload {
	u, err := url.Parse(s)
	if err != nil {
		return nil
	}

	query := u.Query()
	// Hash-carried parameters ("#code=12345") are parsed the same way as
	// the query string.
	frag, fragErr := url.ParseQuery(u.Fragment)

	for _, key := range LaunchParamKeys {
		if v := query.Get(key); v != "" {
			if p := Parse(v); p != nil {
				return p
			}
		}
		if fragErr == nil {
			if v := frag.Get(key); v != "" {
				if p := Parse(v); p != nil {
					return p
				}
			}
		}
	}

	// A bare fragment with no key=value shape ("#reg-12345") is treated as
	// the payload itself.
	if fragErr != nil || (u.Fragment != "" && len(frag) <= 1 && !strings.Contains(u.Fragment, "=")) {
		if p := Parse(u.Fragment); p != nil {
			return p
		}
	}

	return bareFromDigits(s)
}
