package twin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler holds all twin handler state.
type Handler struct {
	store  *MemoryStore
	secret []byte
}

// NewHandler creates a twin handler signing tokens with the given secret.
func NewHandler(s *MemoryStore, secret []byte) *Handler {
	return &Handler{store: s, secret: secret}
}

// Routes mounts the loyalty API, auth, and admin routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/token", h.IssueToken)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Post("/codes/events/validate", h.ValidateEventCode)
		r.Post("/codes/events/register", h.RegisterEvent)
		r.Post("/codes/purchases/redeem", h.RedeemPurchase)
		r.Get("/codes/lookup", h.LookupCode)

		r.Post("/rewards/visits/claim", h.ClaimVisitReward)
		r.Post("/rewards/purchases/claim", h.ClaimPurchaseReward)
		r.Post("/prizes/claim", h.ClaimPrize)

		r.Post("/tickets/scan", h.ScanTicket)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", h.AdminHealth)
		r.Get("/state", h.AdminState)
		r.Post("/state", h.AdminLoadState)
		r.Post("/reset", h.AdminReset)
		r.Post("/time/advance", h.AdminAdvanceTime)
	})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
