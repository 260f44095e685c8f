package twin

// User is a loyalty-program participant or staff member.
type User struct {
	ID                     int64  `json:"id"`
	Name                   string `json:"name"`
	Balance                int    `json:"balance"`
	Staff                  bool   `json:"staff"`
	Visits                 int    `json:"visits"`
	Purchases              int    `json:"purchases"`
	VisitRewardsClaimed    int    `json:"visitRewardsClaimed"`
	PurchaseRewardsClaimed int    `json:"purchaseRewardsClaimed"`
}

// Event is a live event reachable through a registration code.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Code        string `json:"code"` // five-digit registration code
	CoinsReward int    `json:"coinsReward"`
}

// Registration marks one user as registered for one event.
type Registration struct {
	UserID  int64 `json:"userId"`
	EventID int64 `json:"eventId"`
	At      int64 `json:"at"`
}

// Item is a catalog item handed over against a ticket.
type Item struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price int    `json:"price"`
}

// PurchaseCode is a single-use five-digit code printed on a receipt.
type PurchaseCode struct {
	Code   string `json:"code"`
	ItemID int64  `json:"itemId"`
	Coins  int    `json:"coins"` // coins credited on redemption
	Used   bool   `json:"used"`
	UsedBy int64  `json:"usedBy,omitempty"`
}

// PrizeCert is a single-use prize certificate token.
type PrizeCert struct {
	Token   string `json:"token"`
	Coins   int    `json:"coins"`
	Claimed bool   `json:"claimed"`
}

// Ticket is a QR voucher minted by a purchase redemption and consumed by a
// staff scan.
type Ticket struct {
	Code   string `json:"code"`
	ItemID int64  `json:"itemId"`
	UserID int64  `json:"userId"`
	Used   bool   `json:"used"`
}
