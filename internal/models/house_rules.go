// internal/models/house_rules.go
package models

// TableRules captures the poker table configuration the lobby was opened
// with. The ledger stores these for clients but never interprets them.
type TableRules struct {
	// StartingChips is the stack each seated model starts with.
	StartingChips uint64 `json:"starting_chips"`

	SmallBlind uint64 `json:"small_blind"`
	BigBlind   uint64 `json:"big_blind"`

	// MaxHands caps the contest length (0 => no cap).
	MaxHands uint64 `json:"max_hands"`
}
