// Package redeem wraps the privileged redemption API with typed operations.
// It is the only place that knows request shapes, auth-header attachment,
// and response validation; callers get typed results or a typed *Error and
// own all side effects (cache refresh, feedback) themselves.
package redeem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/karaobingo/stagepass/internal/session"
)

// Client talks to the privileged redemption API on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	logger  *slog.Logger
}

// New creates a Client. The 15-second transport timeout is the only timeout
// in the core; flows above it do not cancel in-flight attempts.
func New(baseURL string, sess *session.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: sess,
		logger:  logger,
	}
}

// call describes one HTTP call to the privileged API.
type call struct {
	op       string    // metrics/log label
	method   string    // http method
	path     string    // path with query, relative to base URL
	body     any       // JSON request body, nil for none
	conflict ErrorKind // what a 409 means for this operation
}

// do performs the call and decodes a 2xx JSON body into out. All failures
// come back as *Error; nothing escapes as a raw transport error.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	timer := time.Now()
	err := c.doOnce(ctx, cl, out, true)
	requestDuration.WithLabelValues(cl.op).Observe(time.Since(timer).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	requestsTotal.WithLabelValues(cl.op, outcome).Inc()
	return err
}

func (c *Client) doOnce(ctx context.Context, cl call, out any, retryAuth bool) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return newError(KindNoSession, "session unavailable, reload")
	}

	var reqBody io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return newError(KindUnknown, "encoding request: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reqBody)
	if err != nil {
		return newError(KindUnknown, "building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("redemption call failed", "operation", cl.op, "err", err)
		return newError(KindNetwork, "network error, try again")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(KindNetwork, "reading response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && retryAuth {
			// The server rejected a token our expiry check considered
			// valid. Drop it and retry with a freshly issued one, once.
			c.session.Invalidate()
			return c.doOnce(ctx, cl, out, false)
		}
		return c.statusError(cl, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.logger.Warn("malformed response body", "operation", cl.op, "status", resp.StatusCode)
			return newError(KindInvalidResponse, "unexpected server response")
		}
	}
	return nil
}

// statusError maps a non-2xx response to a typed error. The body convention
// is {error: string}; an unparseable body falls back to generic status text.
func (c *Client) statusError(cl call, status int, body []byte) *Error {
	message := fmt.Sprintf("HTTP %d", status)
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error != "" {
		message = errBody.Error
	}

	kind := KindUnknown
	switch status {
	case http.StatusUnauthorized:
		kind = KindNoSession
	case http.StatusForbidden:
		kind = KindForbidden
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusConflict:
		kind = cl.conflict
		if kind == "" {
			kind = KindUnknown
		}
	}

	c.logger.Info("redemption rejected",
		"operation", cl.op,
		"status", status,
		"kind", string(kind),
	)
	return &Error{Kind: kind, Message: message, Status: status}
}

type codeRequest struct {
	Code string `json:"code"`
}
