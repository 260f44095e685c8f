package redeem

// Event identifies a live event a code registers the user for.
type Event struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// EventPreview is the result of validating an event code before the user
// confirms registration.
type EventPreview struct {
	Event             Event
	CoinsReward       int
	AlreadyRegistered bool
}

// Registration is the result of a confirmed event registration.
type Registration struct {
	EventTitle   string
	NewBalance   int
	CoinsEarned  int
	Achievements []string // newly unlocked achievement slugs
}

// Item is a catalog item handed over against a ticket.
type Item struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price int    `json:"price"`
}

// Ticket is a QR-coded voucher produced by a purchase-code redemption.
type Ticket struct {
	Code   string `json:"code"`
	ItemID int64  `json:"itemId"`
	Used   bool   `json:"used"`
}

// Purchase is the result of redeeming a purchase code.
type Purchase struct {
	Ticket       Ticket
	Item         Item
	NewBalance   int
	Achievements []string
}

// Claim is the result of claiming a milestone reward or prize certificate.
type Claim struct {
	CoinsAdded int
	NewBalance int // 0 when the endpoint does not report a balance
}

// Participant identifies the ticket holder during a staff scan.
type Participant struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

// Scan is the result of a staff ticket scan: who showed the ticket and what
// to hand over. The ticket is consumed server-side only when this result is
// returned with Success.
type Scan struct {
	Participant Participant
	Item        Item
}
