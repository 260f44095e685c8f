// Package kiosk is the HTTP surface run on staff scanner devices. It drives
// the interactive redemption flow over a small JSON API, handles
// launch-parameter dispatch, and exposes staff ticket scanning.
package kiosk

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karaobingo/stagepass/internal/dispatch"
	"github.com/karaobingo/stagepass/internal/flow"
	"github.com/karaobingo/stagepass/internal/kit"
	"github.com/karaobingo/stagepass/internal/notify"
	"github.com/karaobingo/stagepass/internal/redeem"
)

// Handler serves one kiosk session: one flow, one marker store, one
// notifier. Attempts are serialized; the kiosk is a single physical device.
type Handler struct {
	client   *redeem.Client
	server   *kit.Server
	notifier *notify.Notifier
	markers  *dispatch.SessionMarkers
	userID   int64

	mu    sync.Mutex
	flow  *flow.Flow
	panel *panel
}

// NewHandler creates a kiosk handler around a redemption client.
func NewHandler(client *redeem.Client, server *kit.Server, notifier *notify.Notifier, userID int64) *Handler {
	h := &Handler{
		client:   client,
		server:   server,
		notifier: notifier,
		markers:  dispatch.NewSessionMarkers(),
		userID:   userID,
		panel:    &panel{},
	}
	h.flow = flow.New(client, h.panel, h, server.Logger,
		flow.WithLookup(),
		flow.WithToastDelay(0),
		flow.WithSleep(func(time.Duration) {}),
	)
	return h
}

// InvalidateProfile publishes a profile change so cached balance views
// refresh. Implements the flow and dispatch Invalidator interfaces.
func (h *Handler) InvalidateProfile() {
	h.notifier.Publish(notify.Change{
		Entity: "profiles",
		ID:     strconv.FormatInt(h.userID, 10),
		Type:   "update",
	})
}

// Routes mounts the kiosk API.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/redeem", h.Redeem)
		r.Post("/confirm", h.Confirm)
		r.Post("/scan", h.Scan)
		r.Post("/launch", h.Launch)
	})
	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Redeem handles POST /api/redeem {code}: one full interactive attempt.
// Registration codes park in a confirmation response instead of finishing.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		observe("redeem", "bad_request")
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.panel.reset()
	if h.flow.State() == flow.StateResolved {
		h.flow.Reset()
	}

	res, err := h.flow.Scan(r.Context(), req.Code)
	if err != nil {
		observe("redeem", string(redeem.KindOf(err)))
		h.writeFlowError(w, err)
		return
	}
	if h.flow.State() == flow.StateConfirming {
		observe("redeem", "confirm_pending")
		preview := h.flow.Preview()
		kit.JSON(w, http.StatusOK, map[string]any{
			"status":            "confirm",
			"event":             preview.Event,
			"coinsReward":       preview.CoinsReward,
			"alreadyRegistered": preview.AlreadyRegistered,
		})
		return
	}

	observe("redeem", "ok")
	h.writeFlowResult(w, res)
}

// Confirm handles POST /api/confirm: submit the pending registration.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panel.reset()

	res, err := h.flow.Confirm(r.Context())
	if err != nil {
		if errors.Is(err, flow.ErrNothingPending) {
			observe("confirm", "nothing_pending")
			kit.Error(w, http.StatusConflict, "nothing to confirm")
			return
		}
		observe("confirm", string(redeem.KindOf(err)))
		h.writeFlowError(w, err)
		return
	}
	observe("confirm", "ok")
	h.writeFlowResult(w, res)
}

// Scan handles POST /api/scan {code}: staff ticket consumption.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		observe("scan", "bad_request")
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	scan, err := h.client.ScanTicket(r.Context(), req.Code)
	if err != nil {
		observe("scan", string(redeem.KindOf(err)))
		kit.Error(w, statusFor(err), errorMessage(err))
		return
	}

	h.notifier.Publish(notify.Change{Entity: "tickets", ID: req.Code, Type: "update"})
	observe("scan", "ok")
	kit.JSON(w, http.StatusOK, map[string]any{
		"participant": scan.Participant,
		"item":        scan.Item,
	})
}

// Launch handles POST /api/launch {startParam, url}: launch-time payload
// dispatch with the session marker store suppressing duplicates.
func (h *Handler) Launch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartParam string `json:"startParam"`
		URL        string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		observe("launch", "bad_request")
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.panel.reset()

	// Each activation gets a fresh dispatcher; the marker store carries the
	// session-scoped dedup across activations.
	d := dispatch.New(h.client, h.markers, h.panel, h, h.server.Logger)
	outcome := d.Run(r.Context(), dispatch.Input{StartParam: req.StartParam, URL: req.URL})

	observe("launch", string(outcome))
	kit.JSON(w, http.StatusOK, map[string]any{
		"outcome": string(outcome),
		"message": h.panel.message(),
		"effects": h.panel.effects(),
	})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	kit.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeFlowResult(w http.ResponseWriter, res *flow.Result) {
	switch {
	case res == nil:
		kit.Error(w, http.StatusInternalServerError, "no result")
	case res.Registration != nil:
		kit.JSON(w, http.StatusOK, map[string]any{
			"status":      "registered",
			"eventTitle":  res.Registration.EventTitle,
			"newBalance":  res.Registration.NewBalance,
			"coinsEarned": res.Registration.CoinsEarned,
			"message":     h.panel.message(),
		})
	case res.Purchase != nil:
		kit.JSON(w, http.StatusOK, map[string]any{
			"status":     "ticket",
			"ticket":     res.Purchase.Ticket,
			"item":       res.Purchase.Item,
			"newBalance": res.Purchase.NewBalance,
			"message":    h.panel.message(),
		})
	case res.Claim != nil:
		kit.JSON(w, http.StatusOK, map[string]any{
			"status":     "claimed",
			"coinsAdded": res.Claim.CoinsAdded,
			"newBalance": res.Claim.NewBalance,
			"message":    h.panel.message(),
		})
	default:
		kit.Error(w, http.StatusInternalServerError, "no result")
	}
}

func (h *Handler) writeFlowError(w http.ResponseWriter, err error) {
	kit.Error(w, statusFor(err), errorMessage(err))
}

// statusFor maps a redemption error kind back onto an HTTP status for the
// kiosk's own API.
func statusFor(err error) int {
	switch redeem.KindOf(err) {
	case redeem.KindParse:
		return http.StatusBadRequest
	case redeem.KindNoSession:
		return http.StatusUnauthorized
	case redeem.KindForbidden:
		return http.StatusForbidden
	case redeem.KindNotFound:
		return http.StatusNotFound
	case redeem.KindAlreadyRegistered, redeem.KindAlreadyRedeemed:
		return http.StatusConflict
	case redeem.KindNetwork, redeem.KindInvalidResponse:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	var re *redeem.Error
	if errors.As(err, &re) {
		return re.Message
	}
	return "something went wrong, try again"
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
