// internal/handlers/bet.go
package handlers

import (
	"net/http"
)

type placeBetRequest struct {
	PlayerName string `json:"player_name"`
	Amount     uint64 `json:"amount"`
}

// PlaceBetHandler wagers from the authenticated caller's balance.
func PlaceBetHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerFromRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req placeBetRequest
		if err := s.decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		bet, err := s.Ledger.PlaceBet(r.Context(), caller, lobbyAddr(r), req.PlayerName, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, bet)
	}
}

// ListBetsHandler returns the lobby's bets in placement order.
func ListBetsHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bets, err := s.Ledger.Bets(r.Context(), lobbyAddr(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bets)
	}
}
