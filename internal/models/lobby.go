// internal/models/lobby.go
package models

import "time"

// LobbyStatus drives every permission check on a lobby.
type LobbyStatus string

const (
	LobbyWaiting  LobbyStatus = "waiting"
	LobbyRunning  LobbyStatus = "running"
	LobbyFinished LobbyStatus = "finished"
)

// Valid reports whether s is one of the known statuses.
func (s LobbyStatus) Valid() bool {
	switch s {
	case LobbyWaiting, LobbyRunning, LobbyFinished:
		return true
	}
	return false
}

// AcceptsBets is true while the contest has not finished.
func (s LobbyStatus) AcceptsBets() bool {
	return s == LobbyWaiting || s == LobbyRunning
}

// Lobby is a single contest's betting pool and configuration record.
// Address and Escrow are derived from GameID and never change.
type Lobby struct {
	Address string `json:"address"`
	Escrow  string `json:"escrow"`
	Owner   string `json:"owner"`
	GameID  string `json:"game_id"`

	// ModelNames is the ordered set of outcomes a bet may target.
	ModelNames []string `json:"model_names"`

	// TableRules holds the contest parameters, see house_rules.go
	TableRules

	Status    LobbyStatus `json:"status"`
	TotalBets uint64      `json:"total_bets"`

	// CustodyReserve is what the owner paid into escrow at creation. It is
	// never paid out.
	CustodyReserve uint64 `json:"custody_reserve"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasModel reports whether name is a registered outcome.
func (l *Lobby) HasModel(name string) bool {
	for _, m := range l.ModelNames {
		if m == name {
			return true
		}
	}
	return false
}
