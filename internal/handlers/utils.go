// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jason-s-yu/pokerbets/internal/auth"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken reads a bearer token, falling back to the auth_token cookie.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return extractCookieToken(r.Header.Get("Cookie"), "auth_token")
}

// callerFromRequest turns the request's token into a ledger caller. No
// token yields an unsigned caller, which the ledger rejects on writes; a
// bad token is an error.
func callerFromRequest(r *http.Request) (ledger.Caller, error) {
	token := requestToken(r)
	if token == "" {
		return ledger.Caller{}, nil
	}
	addr, err := auth.AuthenticateJWT(token)
	if err != nil {
		return ledger.Caller{}, fmt.Errorf("%w: %v", ledger.ErrSignatureRequired, err)
	}
	return ledger.Signer(addr), nil
}

// decodeBody reads a JSON body into dst and validates its struct tags.
func (s *APIServer) decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("bad request payload: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return badRequest("field %s failed %s", verrs[0].Field(), verrs[0].Tag())
		}
		return badRequest("%v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
