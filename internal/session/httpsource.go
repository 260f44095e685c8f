package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPSource issues tokens from the backend's identity-exchange endpoint:
// POST {authURL}/auth/token with the platform user ID.
type HTTPSource struct {
	authURL string
	userID  int64
	http    *http.Client
}

// NewHTTPSource creates a token source against the given auth base URL.
func NewHTTPSource(authURL string, userID int64) *HTTPSource {
	return &HTTPSource{
		authURL: strings.TrimRight(authURL, "/"),
		userID:  userID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Issue exchanges the user ID for a fresh bearer token.
func (s *HTTPSource) Issue(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]int64{"userId": s.userID})
	if err != nil {
		return "", fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange: HTTP %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if out.Token == "" {
		return "", ErrNoSession
	}
	return out.Token, nil
}
