package shared

// DefaultStartingChips is the chip balance given to a newly seated player.
const DefaultStartingChips int64 = 1_000_000

// Player represents one seated participant in a Teen Patti room.
type Player struct {
	ID         string // Stable identity, independent of the connection
	Name       string // Display name
	SessionID  string // Transport session currently bound to this player
	Hand       []Card
	Chips      int64
	CurrentBet int64 // Amount committed by the most recent bet
	TotalBet   int64 // Amount committed to the pot this round
	Active     bool
	Folded     bool
	Blind      bool // Has not looked at own cards
	Seen       bool
}

// NewPlayer creates a blind, active player with the given chip balance.
func NewPlayer(id, name, sessionID string, chips int64) *Player {
	if chips < 0 {
		chips = 0
	}
	return &Player{
		ID:        id,
		Name:      name,
		SessionID: sessionID,
		Hand:      []Card{},
		Chips:     chips,
		Active:    true,
		Blind:     true,
	}
}

// AddCard adds a card to the player's hand.
func (p *Player) AddCard(card Card) {
	p.Hand = append(p.Hand, card)
}

// SeeCards marks the player as having looked at their cards.
func (p *Player) SeeCards() {
	p.Seen = true
	p.Blind = false
}

// Fold takes the player out of the current round.
func (p *Player) Fold() {
	p.Folded = true
	p.Active = false
}

// InPlay reports whether the player is still contesting the pot.
func (p *Player) InPlay() bool {
	return p.Active && !p.Folded
}

// Bet moves up to amount chips into the player's bet and returns what was actually committed.
// The commitment is capped at the player's balance.
func (p *Player) Bet(amount int64) int64 {
	if amount < 0 {
		amount = 0
	}
	committed := min(amount, p.Chips)
	p.Chips -= committed
	p.CurrentBet = committed
	p.TotalBet += committed
	return committed
}

// Reset prepares the player for a new round.
func (p *Player) Reset() {
	p.Hand = []Card{}
	p.CurrentBet = 0
	p.TotalBet = 0
	p.Active = true
	p.Folded = false
	p.Blind = true
	p.Seen = false
}
