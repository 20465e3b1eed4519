// internal/handlers/lobby.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
	"github.com/jason-s-yu/pokerbets/internal/models"
)

type createLobbyRequest struct {
	GameID        string   `json:"game_id" validate:"required"`
	ModelNames    []string `json:"model_names" validate:"dive,required"`
	StartingChips uint64   `json:"starting_chips"`
	SmallBlind    uint64   `json:"small_blind"`
	BigBlind      uint64   `json:"big_blind"`
	MaxHands      uint64   `json:"max_hands"`
}

type lobbyResponse struct {
	Lobby   *models.Lobby `json:"lobby"`
	Custody uint64        `json:"custody"`
}

// lobbyAddr derives the lobby address from the {gameID} URL parameter.
func lobbyAddr(r *http.Request) address.Address {
	return address.Lobby(chi.URLParam(r, "gameID"))
}

// CreateLobbyHandler opens a lobby owned by the authenticated caller.
func CreateLobbyHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerFromRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req createLobbyRequest
		if err := s.decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}

		lob, err := s.Ledger.CreateLobby(r.Context(), caller, ledger.LobbyParams{
			GameID:     req.GameID,
			ModelNames: req.ModelNames,
			TableRules: models.TableRules{
				StartingChips: req.StartingChips,
				SmallBlind:    req.SmallBlind,
				BigBlind:      req.BigBlind,
				MaxHands:      req.MaxHands,
			},
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, lob)
	}
}

// GetLobbyHandler returns the lobby and its escrow balance.
func GetLobbyHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lob, err := s.Ledger.Lobby(r.Context(), lobbyAddr(r))
		if err != nil {
			writeError(w, err)
			return
		}
		custody, err := s.Ledger.Balance(r.Context(), address.Address(lob.Escrow))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lobbyResponse{Lobby: lob, Custody: custody})
	}
}

type statusRequest struct {
	Status models.LobbyStatus `json:"status" validate:"required"`
}

// UpdateStatusHandler lets the owner move the lobby between statuses.
func UpdateStatusHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerFromRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req statusRequest
		if err := s.decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		lob, err := s.Ledger.UpdateLobbyStatus(r.Context(), caller, lobbyAddr(r), req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lob)
	}
}

// AuditHandler reconciles the lobby. A failed reconciliation still returns
// the report, with status 500.
func AuditHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := s.Ledger.Audit(r.Context(), lobbyAddr(r))
		if rep == nil {
			writeError(w, err)
			return
		}
		if err != nil {
			s.Logger.WithError(err).WithField("lobby", rep.Lobby).Error("audit failed")
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"report": rep,
				"error":  err.Error(),
				"kind":   ledger.ErrInvariantViolated.Kind,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"report": rep})
	}
}
