package redeem

import (
	"context"
	"net/http"
	"net/url"

	"github.com/karaobingo/stagepass/internal/payload"
)

// ValidateEventCode previews the event behind a registration code without
// registering. AlreadyRegistered in the result is an indicator, not an
// error: it lets callers skip a pointless confirmation dialog.
func (c *Client) ValidateEventCode(ctx context.Context, code string) (*EventPreview, error) {
	if err := checkCode(code); err != nil {
		return nil, err
	}

	var body struct {
		Event *struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"event"`
		CoinsReward       *int `json:"coinsReward"`
		AlreadyRegistered bool `json:"alreadyRegistered"`
	}
	err := c.do(ctx, call{
		op:       "validate_event_code",
		method:   http.MethodPost,
		path:     "/codes/events/validate",
		body:     codeRequest{Code: code},
		conflict: KindAlreadyRegistered,
	}, &body)
	if err != nil {
		return nil, err
	}
	if body.Event == nil || body.CoinsReward == nil {
		return nil, newError(KindInvalidResponse, "unexpected server response")
	}
	return &EventPreview{
		Event:             Event{ID: body.Event.ID, Title: body.Event.Title},
		CoinsReward:       *body.CoinsReward,
		AlreadyRegistered: body.AlreadyRegistered,
	}, nil
}

// RegisterEvent registers the session's user for the event behind the code
// and credits the registration reward.
func (c *Client) RegisterEvent(ctx context.Context, code string) (*Registration, error) {
	if err := checkCode(code); err != nil {
		return nil, err
	}

	var body struct {
		Success bool `json:"success"`
		Event   *struct {
			Title string `json:"title"`
		} `json:"event"`
		NewBalance   *int     `json:"newBalance"`
		CoinsEarned  *int     `json:"coinsEarned"`
		Achievements []string `json:"newlyUnlockedAchievements"`
	}
	err := c.do(ctx, call{
		op:       "register_event",
		method:   http.MethodPost,
		path:     "/codes/events/register",
		body:     codeRequest{Code: code},
		conflict: KindAlreadyRegistered,
	}, &body)
	if err != nil {
		return nil, err
	}
	if !body.Success || body.Event == nil || body.NewBalance == nil || body.CoinsEarned == nil {
		return nil, newError(KindInvalidResponse, "unexpected server response")
	}
	return &Registration{
		EventTitle:   body.Event.Title,
		NewBalance:   *body.NewBalance,
		CoinsEarned:  *body.CoinsEarned,
		Achievements: body.Achievements,
	}, nil
}

// RedeemPurchase exchanges a purchase code for a ticket.
func (c *Client) RedeemPurchase(ctx context.Context, code string) (*Purchase, error) {
	if err := checkCode(code); err != nil {
		return nil, err
	}

	var body struct {
		Success      bool     `json:"success"`
		Ticket       *Ticket  `json:"ticket"`
		Item         *Item    `json:"item"`
		NewBalance   *int     `json:"newBalance"`
		Achievements []string `json:"newlyUnlockedAchievements"`
	}
	err := c.do(ctx, call{
		op:       "redeem_purchase",
		method:   http.MethodPost,
		path:     "/codes/purchases/redeem",
		body:     codeRequest{Code: code},
		conflict: KindAlreadyRedeemed,
	}, &body)
	if err != nil {
		return nil, err
	}
	if !body.Success || body.Ticket == nil || body.Item == nil || body.NewBalance == nil {
		return nil, newError(KindInvalidResponse, "unexpected server response")
	}
	return &Purchase{
		Ticket:       *body.Ticket,
		Item:         *body.Item,
		NewBalance:   *body.NewBalance,
		Achievements: body.Achievements,
	}, nil
}

// ClaimVisitReward claims the visit-milestone reward. Claiming with nothing
// claimable is a defined conflict, not undefined behavior.
func (c *Client) ClaimVisitReward(ctx context.Context) (*Claim, error) {
	return c.claim(ctx, "claim_visit_reward", "/rewards/visits/claim", nil)
}

// ClaimPurchaseReward claims the purchase-milestone reward.
func (c *Client) ClaimPurchaseReward(ctx context.Context) (*Claim, error) {
	return c.claim(ctx, "claim_purchase_reward", "/rewards/purchases/claim", nil)
}

// ClaimPrize redeems a prize-certificate token for coins.
func (c *Client) ClaimPrize(ctx context.Context, token string) (*Claim, error) {
	if payload.SanitizeToken(token) != token || token == "" {
		return nil, newError(KindParse, "unrecognized code format")
	}
	return c.claim(ctx, "claim_prize", "/prizes/claim", codeRequest{Code: token})
}

func (c *Client) claim(ctx context.Context, op, path string, reqBody any) (*Claim, error) {
	var body struct {
		CoinsAdded *int `json:"coinsAdded"`
		NewBalance int  `json:"newBalance"`
	}
	err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     path,
		body:     reqBody,
		conflict: KindAlreadyRedeemed,
	}, &body)
	if err != nil {
		return nil, err
	}
	if body.CoinsAdded == nil {
		return nil, newError(KindInvalidResponse, "unexpected server response")
	}
	return &Claim{CoinsAdded: *body.CoinsAdded, NewBalance: body.NewBalance}, nil
}

// ScanTicket consumes a ticket on behalf of staff and reports who to serve.
// Requires a staff-role session; the server enforces the privilege. Success
// is only assumed once the structured response confirms it.
func (c *Client) ScanTicket(ctx context.Context, code string) (*Scan, error) {
	if code == "" {
		return nil, newError(KindParse, "unrecognized code format")
	}

	var body struct {
		Success     bool         `json:"success"`
		Participant *Participant `json:"participant"`
		Item        *Item        `json:"item"`
	}
	err := c.do(ctx, call{
		op:       "scan_ticket",
		method:   http.MethodPost,
		path:     "/tickets/scan",
		body:     codeRequest{Code: code},
		conflict: KindAlreadyRedeemed,
	}, &body)
	if err != nil {
		return nil, err
	}
	if !body.Success || body.Participant == nil || body.Item == nil {
		return nil, newError(KindInvalidResponse, "unexpected server response")
	}
	return &Scan{Participant: *body.Participant, Item: *body.Item}, nil
}

// LookupCodeType disambiguates a bare five-digit code server-side. Preferred
// over probe-and-fallback when available.
func (c *Client) LookupCodeType(ctx context.Context, code string) (payload.Kind, error) {
	if err := checkCode(code); err != nil {
		return "", err
	}

	var body struct {
		Type string `json:"type"`
	}
	err := c.do(ctx, call{
		op:     "lookup_code_type",
		method: http.MethodGet,
		path:   "/codes/lookup?code=" + url.QueryEscape(code),
	}, &body)
	if err != nil {
		return "", err
	}
	switch body.Type {
	case string(payload.KindRegistration):
		return payload.KindRegistration, nil
	case string(payload.KindPurchase):
		return payload.KindPurchase, nil
	}
	return "", newError(KindInvalidResponse, "unexpected server response")
}

// checkCode guards operations against values that never came through the
// grammar. Invalid length is a hard rejection, never corrected.
func checkCode(code string) error {
	if len(code) != payload.CodeLength || payload.DigitsOnly(code) != code {
		return newError(KindParse, "unrecognized code format")
	}
	return nil
}
