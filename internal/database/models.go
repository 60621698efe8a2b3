package database

// RoundResult is one settled round as stored in the ledger.
type RoundResult struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"room_id"`
	CreatedAt  string         `json:"created_at"`
	WinnerID   string         `json:"winner_id"`
	WinnerName string         `json:"winner_name"`
	Pot        int64          `json:"pot"`
	Rake       int64          `json:"rake"`
	Payout     int64          `json:"payout"`
	Players    []PlayerResult `json:"players"`
}

// PlayerResult is a player's chip balance at the end of a round.
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Chips    int64  `json:"chips"`
}
