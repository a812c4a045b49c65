package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoleAdmin grants access to the back-office operations
const RoleAdmin = "admin"

// StartingBalance is credited to every newly registered account
var StartingBalance = decimal.NewFromInt(100)

// Deposit is one append-only top-up record
type Deposit struct {
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// PurchaseRecord is one append-only purchase-history record
type PurchaseRecord struct {
	RaffleID  int64     `json:"raffleId"`
	Title     string    `json:"title"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// User represents a storefront account keyed by username
type User struct {
	Username string `json:"username"`
	// Stored and compared as plaintext, matching the storefront's advisory
	// security model. Not suitable for a trusted deployment as-is.
	Password    string           `json:"password"`
	Balance     decimal.Decimal  `json:"balance"`
	Entries     map[int64]int    `json:"entries"`     // raffle id -> tickets owned
	FreeEntries map[int64]bool   `json:"freeEntries"` // raffle ids already claimed
	Deposits    []Deposit        `json:"deposits"`
	History     []PurchaseRecord `json:"history"`
	Favorites   []int64          `json:"favorites"`
	Roles       []string         `json:"roles"`

	// Login streak markers
	LastLoginDay  string `json:"lastLoginDay"` // 2006-01-02
	DailyStreak   int    `json:"dailyStreak"`
	LastLoginWeek string `json:"lastLoginWeek"` // 2006-W01
	WeeklyStreak  int    `json:"weeklyStreak"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates an account with the default starting balance
func NewUser(username, password string) *User {
	now := time.Now().UTC()
	return &User{
		Username:    username,
		Password:    password,
		Balance:     StartingBalance,
		Entries:     make(map[int64]int),
		FreeEntries: make(map[int64]bool),
		Deposits:    []Deposit{},
		History:     []PurchaseRecord{},
		Favorites:   []int64{},
		Roles:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsAdmin returns true if the account carries the admin role
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// ToggleRole adds the role if absent, removes it if present
func (u *User) ToggleRole(role string) {
	for i, r := range u.Roles {
		if r == role {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			return
		}
	}
	u.Roles = append(u.Roles, role)
}

// CanAfford checks the balance against a total price
func (u *User) CanAfford(amount decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(amount)
}

// Debit subtracts amount from the balance
func (u *User) Debit(amount decimal.Decimal) {
	u.Balance = u.Balance.Sub(amount)
}

// Credit adds amount to the balance
func (u *User) Credit(amount decimal.Decimal) {
	u.Balance = u.Balance.Add(amount)
}

// EntryCount returns the tickets this account holds in a raffle
func (u *User) EntryCount(raffleID int64) int {
	return u.Entries[raffleID]
}

// AddEntries records count additional tickets against a raffle
func (u *User) AddEntries(raffleID int64, count int) {
	if u.Entries == nil {
		u.Entries = make(map[int64]int)
	}
	u.Entries[raffleID] += count
}

// HasClaimedFreeEntry returns true once the one free ticket has been taken
func (u *User) HasClaimedFreeEntry(raffleID int64) bool {
	return u.FreeEntries[raffleID]
}

// MarkFreeEntryClaimed flags the raffle's free ticket as used
func (u *User) MarkFreeEntryClaimed(raffleID int64) {
	if u.FreeEntries == nil {
		u.FreeEntries = make(map[int64]bool)
	}
	u.FreeEntries[raffleID] = true
}

// AppendPurchase adds an append-only purchase-history record
func (u *User) AppendPurchase(raffleID int64, title string, count int, at time.Time) {
	u.History = append(u.History, PurchaseRecord{
		RaffleID:  raffleID,
		Title:     title,
		Count:     count,
		Timestamp: at,
	})
}

// AppendDeposit adds an append-only deposit record
func (u *User) AppendDeposit(amount decimal.Decimal, at time.Time) {
	u.Deposits = append(u.Deposits, Deposit{Amount: amount, Timestamp: at})
}

// ToggleFavorite adds or removes a raffle from the favorites list
func (u *User) ToggleFavorite(raffleID int64) {
	for i, id := range u.Favorites {
		if id == raffleID {
			u.Favorites = append(u.Favorites[:i], u.Favorites[i+1:]...)
			return
		}
	}
	u.Favorites = append(u.Favorites, raffleID)
}

// Clone returns a deep copy, used by snapshot-based stores
func (u *User) Clone() *User {
	c := *u
	c.Entries = make(map[int64]int, len(u.Entries))
	for k, v := range u.Entries {
		c.Entries[k] = v
	}
	c.FreeEntries = make(map[int64]bool, len(u.FreeEntries))
	for k, v := range u.FreeEntries {
		c.FreeEntries[k] = v
	}
	c.Deposits = make([]Deposit, len(u.Deposits))
	copy(c.Deposits, u.Deposits)
	c.History = make([]PurchaseRecord, len(u.History))
	copy(c.History, u.History)
	c.Favorites = make([]int64, len(u.Favorites))
	copy(c.Favorites, u.Favorites)
	c.Roles = make([]string, len(u.Roles))
	copy(c.Roles, u.Roles)
	return &c
}
