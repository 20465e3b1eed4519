// internal/handlers/account.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/auth"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
)

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// BalanceHandler returns any address's balance.
func BalanceHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := address.Parse(chi.URLParam(r, "address"))
		if err != nil {
			writeError(w, badRequest("%v", err))
			return
		}
		bal, err := s.Ledger.Balance(r.Context(), addr)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{Address: addr.String(), Balance: bal})
	}
}

type fundRequest struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"gt=0"`
}

// FundHandler is the development faucet.
func FundHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fundRequest
		if err := s.decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		addr, err := address.Parse(req.Address)
		if err != nil {
			writeError(w, badRequest("%v", err))
			return
		}
		bal, err := s.Ledger.Fund(r.Context(), addr, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{Address: addr.String(), Balance: bal})
	}
}

type devTokenRequest struct {
	// Address to issue for; a fresh one is derived from Seed if empty.
	Address string `json:"address"`
	Seed    string `json:"seed" validate:"required_without=Address"`
}

type devTokenResponse struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

// DevTokenHandler issues a session token without any proof of key
// ownership. Development only. Lobby escrow accounts never get a session.
func DevTokenHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req devTokenRequest
		if err := s.decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		addr := address.FromPubKey([]byte(req.Seed))
		if req.Address != "" {
			var err error
			if addr, err = address.Parse(req.Address); err != nil {
				writeError(w, badRequest("%v", err))
				return
			}
		}
		custody, err := s.Ledger.IsCustody(r.Context(), addr)
		if err != nil {
			writeError(w, err)
			return
		}
		if custody {
			writeError(w, fmt.Errorf("%w: %s is a lobby escrow", ledger.ErrUnauthorized, addr))
			return
		}
		token, err := auth.CreateJWT(addr)
		if err != nil {
			writeError(w, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     "auth_token",
			Value:    token,
			Path:     "/",
			HttpOnly: true,
		})
		writeJSON(w, http.StatusOK, devTokenResponse{Address: addr.String(), Token: token})
	}
}
