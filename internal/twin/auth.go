package twin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/karaobingo/stagepass/internal/kit"
)

// tokenTTL is the lifetime of minted session tokens. Short enough that the
// client's silent-refresh path gets exercised in development.
const tokenTTL = 15 * time.Minute

type tokenClaims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

type ctxKey int

const userKey ctxKey = iota

// userFrom returns the authenticated user stored by RequireAuth.
func userFrom(r *http.Request) User {
	return r.Context().Value(userKey).(User)
}

// MintToken issues a signed session token for the user.
func (h *Handler) MintToken(u User) (string, error) {
	now := h.store.Clock.Now()
	claims := tokenClaims{
		Staff: u.Staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

// IssueToken handles POST /auth/token. It stands in for the host platform's
// identity exchange: a user ID goes in, a short-lived bearer token comes out.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, ok := h.store.GetUser(req.UserID)
	if !ok {
		kit.Error(w, http.StatusNotFound, "user not found")
		return
	}
	token, err := h.MintToken(u)
	if err != nil {
		kit.Error(w, http.StatusInternalServerError, "minting token")
		return
	}
	kit.JSON(w, http.StatusOK, map[string]string{"token": token})
}

// RequireAuth validates the bearer token against the simulated clock and
// loads the user into the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			kit.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		var claims tokenClaims
		_, err := jwt.ParseWithClaims(raw, &claims,
			func(t *jwt.Token) (any, error) { return h.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(h.store.Clock.Now),
		)
		if err != nil {
			kit.Error(w, http.StatusUnauthorized, "token expired or invalid")
			return
		}

		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			kit.Error(w, http.StatusUnauthorized, "token expired or invalid")
			return
		}
		u, ok := h.store.GetUser(id)
		if !ok {
			kit.Error(w, http.StatusUnauthorized, "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}
