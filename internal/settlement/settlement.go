// Package settlement turns round results into payout instructions for an external
// escrow and provides the fee arithmetic the escrow applies.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"teenpatti-game/internal/game"

	"cosmossdk.io/math"
)

const (
	// BasisPoints is the denominator for fee rates.
	BasisPoints = 10_000
	// MaxRakeBps caps the rake at 10% of the pot.
	MaxRakeBps = 1_000
	// DefaultRakeBps is a 5% rake.
	DefaultRakeBps = 500
)

var (
	ErrRakeTooHigh    = errors.New("rake fee too high")
	ErrFeeTooHigh     = errors.New("fee too high")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrNoWinner       = errors.New("settlement has no winner")
)

// Payout is the instruction submitted to the escrow after a round.
type Payout struct {
	RoomID     string
	WinnerIDs  []string
	Pot        math.Int // Chips committed during the round
	Rake       math.Int // Fee kept by the house
	Amount     math.Int // Pot minus rake, shared by the winners
	Settlement game.Settlement
}

// Oracle is the external ledger that holds buy-ins and pays out pots.
type Oracle interface {
	// ConfirmBuyIns checks that every listed player's buy-in is locked before a round starts.
	ConfirmBuyIns(ctx context.Context, roomID string, playerIDs []string) error

	// SubmitPayout records the winners and amount for a finished round.
	SubmitPayout(ctx context.Context, payout Payout) error
}

// ApplyRake splits a pot into the winner's payout and the house rake.
func ApplyRake(pot math.Int, rakeBps uint32) (payout, rake math.Int, err error) {
	if rakeBps > MaxRakeBps {
		return math.Int{}, math.Int{}, fmt.Errorf("%w: %d bps", ErrRakeTooHigh, rakeBps)
	}
	if pot.IsNegative() {
		return math.Int{}, math.Int{}, ErrNegativeAmount
	}
	rake = pot.MulRaw(int64(rakeBps)).QuoRaw(BasisPoints)
	return pot.Sub(rake), rake, nil
}

// NewPayout builds the payout instruction for a settlement.
func NewPayout(s game.Settlement, rakeBps uint32) (Payout, error) {
	if len(s.WinnerIDs) == 0 {
		return Payout{}, ErrNoWinner
	}
	pot := math.NewInt(s.Pot)
	amount, rake, err := ApplyRake(pot, rakeBps)
	if err != nil {
		return Payout{}, err
	}
	return Payout{
		RoomID:     s.RoomID,
		WinnerIDs:  append([]string(nil), s.WinnerIDs...),
		Pot:        pot,
		Rake:       rake,
		Amount:     amount,
		Settlement: s,
	}, nil
}
