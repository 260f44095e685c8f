// Package twin is an in-memory emulation of the privileged loyalty API used
// for development and tests. It implements every endpoint the redemption
// client calls, with the real error signatures, plus a token-minting auth
// endpoint and a small admin control plane.
package twin

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/karaobingo/stagepass/internal/store"
)

// MemoryStore holds all twin state in memory.
type MemoryStore struct {
	Users         *store.Collection[User]
	Events        *store.Collection[Event]        // keyed by registration code
	Registrations *store.Collection[Registration] // keyed by "{userID}:{eventID}"
	Items         *store.Collection[Item]
	PurchaseCodes *store.Collection[PurchaseCode] // keyed by code
	Prizes        *store.Collection[PrizeCert]    // keyed by token
	Tickets       *store.Collection[Ticket]       // keyed by ticket code
	Clock         *store.Clock
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Users:         store.New[User]("usr"),
		Events:        store.New[Event]("evt"),
		Registrations: store.New[Registration]("reg"),
		Items:         store.New[Item]("itm"),
		PurchaseCodes: store.New[PurchaseCode]("pcc"),
		Prizes:        store.New[PrizeCert]("prz"),
		Tickets:       store.New[Ticket]("tck"),
		Clock:         store.NewClock(),
	}
}

// SeedDefaults loads the fixture state used by development and tests.
func (s *MemoryStore) SeedDefaults() {
	s.Users.Set("1", User{ID: 1, Name: "Ana", Balance: 100})
	s.Users.Set("2", User{ID: 2, Name: "Sam", Balance: 0, Staff: true})

	s.Items.Set("3", Item{ID: 3, Title: "House Cocktail", Price: 120})
	s.Items.Set("4", Item{ID: 4, Title: "Nachos", Price: 80})

	s.Events.Set("12345", Event{ID: 7, Title: "Friday Bingo", Code: "12345", CoinsReward: 50})
	s.Events.Set("54321", Event{ID: 8, Title: "Karaoke Night", Code: "54321", CoinsReward: 40})

	s.PurchaseCodes.Set("99999", PurchaseCode{Code: "99999", ItemID: 3, Coins: 12})
	s.PurchaseCodes.Set("88888", PurchaseCode{Code: "88888", ItemID: 4, Coins: 8})

	s.Prizes.Set("ABC123", PrizeCert{Token: "ABC123", Coins: 25})
}

// GetUser fetches a user by numeric ID.
func (s *MemoryStore) GetUser(id int64) (User, bool) {
	return s.Users.Get(strconv.FormatInt(id, 10))
}

// PutUser stores a user under its numeric ID.
func (s *MemoryStore) PutUser(u User) {
	s.Users.Set(strconv.FormatInt(u.ID, 10), u)
}

// GetItem fetches an item by numeric ID.
func (s *MemoryStore) GetItem(id int64) (Item, bool) {
	return s.Items.Get(strconv.FormatInt(id, 10))
}

// regKey builds the registration key for a user/event pair.
func regKey(userID, eventID int64) string {
	return fmt.Sprintf("%d:%d", userID, eventID)
}

// IsRegistered reports whether the user is registered for the event.
func (s *MemoryStore) IsRegistered(userID, eventID int64) bool {
	_, ok := s.Registrations.Get(regKey(userID, eventID))
	return ok
}

// Register records the registration.
func (s *MemoryStore) Register(userID, eventID int64) {
	s.Registrations.Set(regKey(userID, eventID), Registration{
		UserID:  userID,
		EventID: eventID,
		At:      s.Clock.Now().Unix(),
	})
}

// stateSnapshot is the JSON-serializable state for the admin endpoints.
type stateSnapshot struct {
	Users         map[string]User         `json:"users"`
	Events        map[string]Event        `json:"events"`
	Registrations map[string]Registration `json:"registrations"`
	Items         map[string]Item         `json:"items"`
	PurchaseCodes map[string]PurchaseCode `json:"purchaseCodes"`
	Prizes        map[string]PrizeCert    `json:"prizes"`
	Tickets       map[string]Ticket       `json:"tickets"`
}

// Snapshot returns the full state as a JSON-serializable value.
func (s *MemoryStore) Snapshot() any {
	return stateSnapshot{
		Users:         s.Users.Snapshot(),
		Events:        s.Events.Snapshot(),
		Registrations: s.Registrations.Snapshot(),
		Items:         s.Items.Snapshot(),
		PurchaseCodes: s.PurchaseCodes.Snapshot(),
		Prizes:        s.Prizes.Snapshot(),
		Tickets:       s.Tickets.Snapshot(),
	}
}

// LoadState replaces the full state from a JSON body. Sections absent from
// the body are left untouched.
func (s *MemoryStore) LoadState(data []byte) error {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Users != nil {
		s.Users.LoadSnapshot(snap.Users)
	}
	if snap.Events != nil {
		s.Events.LoadSnapshot(snap.Events)
	}
	if snap.Registrations != nil {
		s.Registrations.LoadSnapshot(snap.Registrations)
	}
	if snap.Items != nil {
		s.Items.LoadSnapshot(snap.Items)
	}
	if snap.PurchaseCodes != nil {
		s.PurchaseCodes.LoadSnapshot(snap.PurchaseCodes)
	}
	if snap.Prizes != nil {
		s.Prizes.LoadSnapshot(snap.Prizes)
	}
	if snap.Tickets != nil {
		s.Tickets.LoadSnapshot(snap.Tickets)
	}
	return nil
}

// Reset clears all state and reloads the default fixtures.
func (s *MemoryStore) Reset() {
	s.Users.Reset()
	s.Events.Reset()
	s.Registrations.Reset()
	s.Items.Reset()
	s.PurchaseCodes.Reset()
	s.Prizes.Reset()
	s.Tickets.Reset()
	s.Clock.Reset()
	s.SeedDefaults()
}
