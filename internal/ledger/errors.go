// internal/ledger/errors.go
package ledger

import (
	"errors"
	"fmt"
)

// Kind names a ledger failure. Kinds are stable and safe to show to clients.
type Kind string

// Error is a typed ledger failure. Operations return one of the sentinels
// below, possibly wrapped with detail; compare with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrLobbyNotOpenForBets     = newError("LobbyNotOpenForBets", "lobby is not open for bets")
	ErrInvalidPlayerName       = newError("InvalidPlayerName", "invalid player name")
	ErrBetAmountMustBePositive = newError("BetAmountMustBePositive", "bet amount must be positive")
	ErrUnauthorized            = newError("Unauthorized", "unauthorized")
	ErrLobbyNotFinished        = newError("LobbyNotFinished", "lobby is not finished")
	ErrInvalidBetAccount       = newError("InvalidBetAccount", "bet does not belong to this lobby")
	ErrInvalidBettor           = newError("InvalidBettor", "bettor does not match bet")
	ErrBetOnWrongPlayer        = newError("BetOnWrongPlayer", "bet was placed on a different player")
	ErrBetAlreadyProcessed     = newError("BetAlreadyProcessed", "bet already processed")
	ErrOverflow                = newError("Overflow", "arithmetic overflow")

	ErrDuplicateLobby      = newError("DuplicateLobby", "lobby already exists")
	ErrDuplicateBet        = newError("DuplicateBet", "bettor already has a bet in this lobby")
	ErrLobbyNotFound       = newError("LobbyNotFound", "lobby not found")
	ErrBetNotFound         = newError("BetNotFound", "bet not found")
	ErrInsufficientFunds   = newError("InsufficientFunds", "insufficient funds")
	ErrInsufficientCustody = newError("InsufficientCustody", "custody account cannot cover payout")
	ErrInvalidLobbyParams  = newError("InvalidLobbyParams", "invalid lobby parameters")
	ErrInvalidStatus       = newError("InvalidStatus", "invalid lobby status")
	ErrLobbyFinalized      = newError("LobbyFinalized", "lobby is finished and cannot change status")
	ErrSignatureRequired   = newError("SignatureRequired", "operation requires a signed caller")
	ErrInvariantViolated   = newError("InvariantViolated", "ledger invariant violated")
	ErrInvalidAddress      = newError("InvalidAddress", "invalid address")
	ErrInvalidAmount       = newError("InvalidAmount", "amount must be positive")
)

// KindOf returns the kind of a ledger error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}

// fail wraps a sentinel with detail.
func fail(sentinel *Error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
