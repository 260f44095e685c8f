package twin

import (
	"io"
	"net/http"
	"time"

	"github.com/karaobingo/stagepass/internal/kit"
)

// Milestone cadence: a visit reward unlocks every 5 registrations, a
// purchase reward every 3 redemptions.
const (
	visitMilestone     = 5
	visitRewardCoins   = 100
	purchaseMilestone  = 3
	purchaseRewardCoin = 150
)

type codeRequest struct {
	Code string `json:"code"`
}

// ValidateEventCode handles POST /codes/events/validate.
func (h *Handler) ValidateEventCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, ok := h.store.Events.Get(req.Code)
	if !ok {
		kit.Error(w, http.StatusNotFound, "event not found")
		return
	}

	u := userFrom(r)
	kit.JSON(w, http.StatusOK, map[string]any{
		"event":             map[string]any{"id": event.ID, "title": event.Title},
		"coinsReward":       event.CoinsReward,
		"alreadyRegistered": h.store.IsRegistered(u.ID, event.ID),
	})
}

// RegisterEvent handles POST /codes/events/register.
func (h *Handler) RegisterEvent(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, ok := h.store.Events.Get(req.Code)
	if !ok {
		kit.Error(w, http.StatusNotFound, "event not found")
		return
	}

	u := userFrom(r)
	if h.store.IsRegistered(u.ID, event.ID) {
		kit.Error(w, http.StatusConflict, "already registered for "+event.Title)
		return
	}

	h.store.Register(u.ID, event.ID)

	var achievements []string
	if u.Visits == 0 {
		achievements = append(achievements, "first-event")
	}
	u.Visits++
	u.Balance += event.CoinsReward
	h.store.PutUser(u)

	kit.JSON(w, http.StatusOK, map[string]any{
		"success":                   true,
		"event":                     map[string]any{"id": event.ID, "title": event.Title},
		"newBalance":                u.Balance,
		"coinsEarned":               event.CoinsReward,
		"newlyUnlockedAchievements": achievements,
	})
}

// RedeemPurchase handles POST /codes/purchases/redeem.
func (h *Handler) RedeemPurchase(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pc, ok := h.store.PurchaseCodes.Get(req.Code)
	if !ok {
		kit.Error(w, http.StatusNotFound, "code not found")
		return
	}
	if pc.Used {
		kit.Error(w, http.StatusConflict, "code already used")
		return
	}
	item, ok := h.store.GetItem(pc.ItemID)
	if !ok {
		kit.Error(w, http.StatusNotFound, "code not found")
		return
	}

	u := userFrom(r)
	pc.Used = true
	pc.UsedBy = u.ID
	h.store.PurchaseCodes.Set(pc.Code, pc)

	ticket := Ticket{
		Code:   h.store.Tickets.NextID(),
		ItemID: item.ID,
		UserID: u.ID,
	}
	h.store.Tickets.Set(ticket.Code, ticket)

	var achievements []string
	if u.Purchases == 0 {
		achievements = append(achievements, "first-purchase")
	}
	u.Purchases++
	u.Balance += pc.Coins
	h.store.PutUser(u)

	kit.JSON(w, http.StatusOK, map[string]any{
		"success":                   true,
		"ticket":                    ticket,
		"item":                      item,
		"newBalance":                u.Balance,
		"newlyUnlockedAchievements": achievements,
	})
}

// LookupCode handles GET /codes/lookup?code=.
func (h *Handler) LookupCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if _, ok := h.store.Events.Get(code); ok {
		kit.JSON(w, http.StatusOK, map[string]string{"type": "registration"})
		return
	}
	if _, ok := h.store.PurchaseCodes.Get(code); ok {
		kit.JSON(w, http.StatusOK, map[string]string{"type": "purchase"})
		return
	}
	kit.Error(w, http.StatusNotFound, "code not found")
}

// ClaimVisitReward handles POST /rewards/visits/claim.
func (h *Handler) ClaimVisitReward(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)
	if u.Visits/visitMilestone <= u.VisitRewardsClaimed {
		kit.Error(w, http.StatusConflict, "nothing to claim")
		return
	}
	u.VisitRewardsClaimed++
	u.Balance += visitRewardCoins
	h.store.PutUser(u)

	kit.JSON(w, http.StatusOK, map[string]any{
		"coinsAdded": visitRewardCoins,
		"newBalance": u.Balance,
	})
}

// ClaimPurchaseReward handles POST /rewards/purchases/claim.
func (h *Handler) ClaimPurchaseReward(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)
	if u.Purchases/purchaseMilestone <= u.PurchaseRewardsClaimed {
		kit.Error(w, http.StatusConflict, "nothing to claim")
		return
	}
	u.PurchaseRewardsClaimed++
	u.Balance += purchaseRewardCoin
	h.store.PutUser(u)

	kit.JSON(w, http.StatusOK, map[string]any{
		"coinsAdded": purchaseRewardCoin,
		"newBalance": u.Balance,
	})
}

// ClaimPrize handles POST /prizes/claim.
func (h *Handler) ClaimPrize(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prize, ok := h.store.Prizes.Get(req.Code)
	if !ok {
		kit.Error(w, http.StatusNotFound, "prize not found")
		return
	}
	if prize.Claimed {
		kit.Error(w, http.StatusConflict, "prize already claimed")
		return
	}

	u := userFrom(r)
	prize.Claimed = true
	h.store.Prizes.Set(prize.Token, prize)
	u.Balance += prize.Coins
	h.store.PutUser(u)

	kit.JSON(w, http.StatusOK, map[string]any{
		"coinsAdded": prize.Coins,
		"newBalance": u.Balance,
	})
}

// ScanTicket handles POST /tickets/scan. Staff only; consuming the ticket
// and reporting success are one atomic step.
func (h *Handler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)
	if !u.Staff {
		kit.Error(w, http.StatusForbidden, "staff role required")
		return
	}

	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ticket, ok := h.store.Tickets.Get(req.Code)
	if !ok {
		kit.Error(w, http.StatusNotFound, "ticket not found")
		return
	}
	if ticket.Used {
		kit.Error(w, http.StatusConflict, "ticket already used")
		return
	}
	item, ok := h.store.GetItem(ticket.ItemID)
	if !ok {
		kit.Error(w, http.StatusNotFound, "ticket not found")
		return
	}
	holder, ok := h.store.GetUser(ticket.UserID)
	if !ok {
		kit.Error(w, http.StatusNotFound, "ticket not found")
		return
	}

	ticket.Used = true
	h.store.Tickets.Set(ticket.Code, ticket)

	kit.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"participant": map[string]any{"userId": holder.ID, "name": holder.Name},
		"item":        item,
	})
}

// AdminHealth handles GET /admin/health.
func (h *Handler) AdminHealth(w http.ResponseWriter, r *http.Request) {
	kit.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AdminState handles GET /admin/state.
func (h *Handler) AdminState(w http.ResponseWriter, r *http.Request) {
	kit.JSON(w, http.StatusOK, h.store.Snapshot())
}

// AdminLoadState handles POST /admin/state.
func (h *Handler) AdminLoadState(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		kit.Error(w, http.StatusBadRequest, "reading body")
		return
	}
	if err := h.store.LoadState(data); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid state body")
		return
	}
	kit.JSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// AdminReset handles POST /admin/reset.
func (h *Handler) AdminReset(w http.ResponseWriter, r *http.Request) {
	h.store.Reset()
	kit.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// AdminAdvanceTime handles POST /admin/time/advance.
func (h *Handler) AdminAdvanceTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration string `json:"duration"`
	}
	if err := decodeJSON(r, &req); err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		kit.Error(w, http.StatusBadRequest, "invalid duration")
		return
	}
	h.store.Clock.Advance(d)
	kit.JSON(w, http.StatusOK, map[string]string{"offset": h.store.Clock.Offset().String()})
}
