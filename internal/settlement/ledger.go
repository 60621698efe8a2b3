package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teenpatti-game/internal/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder persists settled rounds.
type Recorder interface {
	Insert(result database.RoundResult) error
}

// LedgerOracle settles rounds against in-memory chip balances and records every payout.
// Buy-ins are always confirmed because chips never leave the server.
type LedgerOracle struct {
	store Recorder
	log   *zap.Logger
	now   func() time.Time
}

// NewLedgerOracle creates an oracle that writes payouts to store.
func NewLedgerOracle(store Recorder, logger *zap.Logger) *LedgerOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerOracle{store: store, log: logger, now: time.Now}
}

func (o *LedgerOracle) ConfirmBuyIns(ctx context.Context, roomID string, playerIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.log.Debug("buy-ins confirmed", zap.String("room", roomID), zap.Strings("players", playerIDs))
	return nil
}

func (o *LedgerOracle) SubmitPayout(ctx context.Context, payout Payout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := payout.Settlement
	result := database.RoundResult{
		ID:        uuid.NewString(),
		RoomID:    payout.RoomID,
		CreatedAt: o.now().UTC().Format(time.RFC3339Nano),
		WinnerID:  strings.Join(payout.WinnerIDs, ","),
		Pot:       payout.Pot.Int64(),
		Rake:      payout.Rake.Int64(),
		Payout:    payout.Amount.Int64(),
	}
	var names []string
	for _, b := range s.Balances {
		result.Players = append(result.Players, database.PlayerResult{PlayerID: b.PlayerID, Name: b.Name, Chips: b.Chips})
		for _, id := range payout.WinnerIDs {
			if id == b.PlayerID {
				names = append(names, b.Name)
			}
		}
	}
	result.WinnerName = strings.Join(names, ",")

	if err := o.store.Insert(result); err != nil {
		return fmt.Errorf("record payout for room %s: %w", payout.RoomID, err)
	}
	o.log.Info("payout recorded",
		zap.String("room", payout.RoomID),
		zap.String("round", result.ID),
		zap.Strings("winners", payout.WinnerIDs),
		zap.String("amount", payout.Amount.String()),
		zap.String("rake", payout.Rake.String()))
	return nil
}
