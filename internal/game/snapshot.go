package game

import "teenpatti-game/internal/shared"

// Balance is a player's chip count after settlement.
type Balance struct {
	PlayerID string `json:"id"`
	Name     string `json:"name"`
	Chips    int64  `json:"chips"`
}

// Settlement is the result of EndRound, handed to external settlement and display.
type Settlement struct {
	RoomID    string    `json:"room_id"`
	WinnerID  string    `json:"winner_id,omitempty"`  // Set for a single winner
	WinnerIDs []string  `json:"winner_ids,omitempty"` // All winners, more than one on a split pot
	Pot       int64     `json:"pot"`
	Turns     int       `json:"turns"`
	Balances  []Balance `json:"player_chips"`
	Removed   []string  `json:"removed,omitempty"` // Players unseated after leaving mid-round
}

// SeatView is the public view of one seat. It never includes cards.
type SeatView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Chips      int64  `json:"chips"`
	CurrentBet int64  `json:"current_bet"`
	TotalBet   int64  `json:"total_bet"`
	Folded     bool   `json:"is_folded"`
	Blind      bool   `json:"is_blind"`
	Seen       bool   `json:"has_seen_cards"`
	CardCount  int    `json:"card_count"`
}

// Snapshot is the public room state broadcast after every change.
type Snapshot struct {
	RoomID             string     `json:"room_id"`
	Players            []SeatView `json:"players"`
	Pot                int64      `json:"pot"`
	CurrentStake       int64      `json:"current_bet"`
	CurrentPlayerIndex int        `json:"current_player_index"`
	CurrentPlayerID    string     `json:"current_player_id,omitempty"`
	DealerIndex        int        `json:"dealer_index"`
	Started            bool       `json:"game_started"`
	RoundCounter       int        `json:"round_number"`
}

// Snapshot builds the public view of the room.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		RoomID:             g.ID,
		Players:            make([]SeatView, len(g.Players)),
		Pot:                g.Pot,
		CurrentStake:       g.CurrentStake,
		CurrentPlayerIndex: g.CurrentPlayerIndex,
		DealerIndex:        g.DealerIndex,
		Started:            g.Started(),
		RoundCounter:       g.RoundCounter,
	}
	for i, p := range g.Players {
		s.Players[i] = seatView(p)
	}
	if g.Started() {
		if p := g.CurrentPlayer(); p != nil {
			s.CurrentPlayerID = p.ID
		}
	}
	return s
}

func seatView(p *shared.Player) SeatView {
	return SeatView{
		ID:         p.ID,
		Name:       p.Name,
		Chips:      p.Chips,
		CurrentBet: p.CurrentBet,
		TotalBet:   p.TotalBet,
		Folded:     p.Folded,
		Blind:      p.Blind,
		Seen:       p.Seen,
		CardCount:  len(p.Hand),
	}
}

// RevealHands returns the cards of every player still in play, for display after a showdown.
func (g *Game) RevealHands() map[string][]shared.Card {
	hands := make(map[string][]shared.Card)
	for _, p := range g.ActivePlayers() {
		hand := make([]shared.Card, len(p.Hand))
		copy(hand, p.Hand)
		hands[p.ID] = hand
	}
	return hands
}
