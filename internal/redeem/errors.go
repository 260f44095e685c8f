package redeem

import (
	"errors"
	"fmt"

	"github.com/karaobingo/stagepass/internal/session"
)

// ErrorKind classifies a failed redemption call. Callers pattern-match on
// the kind instead of inspecting message text.
type ErrorKind string

const (
	// KindParse: the input never reached the network.
	KindParse ErrorKind = "parse"
	// KindNoSession: no token after one silent refresh. The action is
	// abandoned, not queued.
	KindNoSession ErrorKind = "no_session"
	// KindAlreadyRegistered / KindAlreadyRedeemed: terminal, non-retryable
	// conflict — the code was consumed by the caller's own earlier action.
	KindAlreadyRegistered ErrorKind = "already_registered"
	KindAlreadyRedeemed   ErrorKind = "already_redeemed"
	// KindNotFound: wrong code type. Triggers the registration/purchase
	// cross-fallback exactly once.
	KindNotFound  ErrorKind = "not_found"
	KindForbidden ErrorKind = "forbidden"
	// KindInvalidResponse: 2xx with a malformed body. Treated like a
	// network failure, never a crash.
	KindInvalidResponse ErrorKind = "invalid_response"
	KindNetwork         ErrorKind = "network"
	KindUnknown         ErrorKind = "unknown"
)

// Error is the typed failure result of a redemption call. Message is always
// human-readable; raw transport errors never reach the caller unwrapped.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int // HTTP status when applicable, else 0
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from an error returned by this package.
// session.ErrNoSession maps to KindNoSession; anything else unknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, session.ErrNoSession) {
		return KindNoSession
	}
	return KindUnknown
}

// Terminal reports whether the failure is non-retryable for the surface
// that initiated it: the entry surface closes instead of offering a retry.
func Terminal(err error) bool {
	switch KindOf(err) {
	case KindAlreadyRegistered, KindAlreadyRedeemed:
		return true
	}
	return false
}
