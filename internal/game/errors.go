package game

import (
	"errors"

	"teenpatti-game/internal/shared"
)

// Validation errors. They are reported to the acting caller and never mutate state.
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidBet        = errors.New("invalid bet")
	ErrInvalidAction     = errors.New("invalid action")
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadyJoined     = errors.New("player already seated")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrRoundNotStarted   = errors.New("round has not started")
	ErrRoundInProgress   = errors.New("round already in progress")
	ErrCannotStart       = errors.New("not enough players to start")
	ErrPlayerNotFound    = errors.New("player not found")
)

// Invariant violations. A round that hits one of these is aborted back to the lobby.
var (
	ErrEmptyDeck      = shared.ErrEmptyDeck
	ErrSeatOutOfRange = errors.New("seat index out of range")
)

var validationErrors = []error{
	ErrNotYourTurn,
	ErrInvalidBet,
	ErrInvalidAction,
	ErrRoomFull,
	ErrAlreadyJoined,
	ErrInsufficientChips,
	ErrRoundNotStarted,
	ErrRoundInProgress,
	ErrCannotStart,
	ErrPlayerNotFound,
}

// IsValidation reports whether err is a recoverable validation failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
