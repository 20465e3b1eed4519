// internal/handlers/errors.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jason-s-yu/pokerbets/internal/ledger"
	log "github.com/sirupsen/logrus"
)

// requestError is a client mistake caught before the ledger runs.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var kindStatus = map[ledger.Kind]int{
	ledger.ErrSignatureRequired.Kind:   http.StatusUnauthorized,
	ledger.ErrUnauthorized.Kind:        http.StatusForbidden,
	ledger.ErrLobbyNotFound.Kind:       http.StatusNotFound,
	ledger.ErrBetNotFound.Kind:         http.StatusNotFound,
	ledger.ErrDuplicateLobby.Kind:      http.StatusConflict,
	ledger.ErrDuplicateBet.Kind:        http.StatusConflict,
	ledger.ErrBetAlreadyProcessed.Kind: http.StatusConflict,
	ledger.ErrInvalidAddress.Kind:      http.StatusBadRequest,
}

// statusFor maps an error to its HTTP status and client-facing kind.
func statusFor(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, "BadRequest"
	}
	kind, ok := ledger.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "Internal"
	}
	if status, ok := kindStatus[kind]; ok {
		return status, string(kind)
	}
	return http.StatusUnprocessableEntity, string(kind)
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}
