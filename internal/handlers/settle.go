// internal/handlers/settle.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/pokerbets/internal/address"
)

type settleRequest struct {
	// Bet defaults to the bet address derived from the lobby and bettor.
	Bet        string `json:"bet"`
	Bettor     string `json:"bettor" validate:"required"`
	WinnerName string `json:"winner_name" validate:"required"`
}

// SettleHandler pays one winning bet. Owner only.
func SettleHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerFromRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req settleRequest
		if err := s.decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		bettor, err := address.Parse(req.Bettor)
		if err != nil {
			writeError(w, badRequest("bettor: %v", err))
			return
		}
		lobby := lobbyAddr(r)
		betAddr := address.Bet(lobby, bettor)
		if req.Bet != "" {
			if betAddr, err = address.Parse(req.Bet); err != nil {
				writeError(w, badRequest("bet: %v", err))
				return
			}
		}

		bet, err := s.Ledger.DistributeSingleWinning(r.Context(), caller, lobby, betAddr, bettor, req.WinnerName)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bet)
	}
}
