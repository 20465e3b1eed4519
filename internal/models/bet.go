// internal/models/bet.go
package models

import "time"

type BetStatus string

const (
	BetActive   BetStatus = "active"
	BetPaid     BetStatus = "paid"
	BetRefunded BetStatus = "refunded"
)

// Bet is one party's wager against one lobby. There is at most one bet per
// (lobby, bettor) pair; Address is derived from both.
type Bet struct {
	Address    string     `json:"address"`
	Bettor     string     `json:"bettor"`
	Lobby      string     `json:"lobby"`
	PlayerName string     `json:"player_name"`
	Amount     uint64     `json:"amount"`
	PlacedAt   time.Time  `json:"placed_at"`
	Status     BetStatus  `json:"status"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}
