package game

import (
	"fmt"
	"math/rand/v2"

	"teenpatti-game/internal/shared"

	"go.uber.org/zap"
)

// State is the room's position in the lobby/round cycle.
type State string

const (
	Lobby   State = "lobby"    // Accepting seats, no cards dealt
	InRound State = "in_round" // Cards dealt, betting in progress
)

const (
	DefaultMinPlayers       = 2
	DefaultMaxPlayers       = 6
	DefaultMinStake   int64 = 10
)

// Config holds the table rules for a room.
type Config struct {
	MinPlayers int
	MaxPlayers int
	MinStake   int64       // Ante and opening stake level
	Rand       *rand.Rand  // Shuffle source; nil means randomly seeded
	Logger     *zap.Logger // nil means no logging
}

func (c Config) withDefaults() Config {
	if c.MinPlayers <= 0 {
		c.MinPlayers = DefaultMinPlayers
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = DefaultMaxPlayers
	}
	if c.MinStake <= 0 {
		c.MinStake = DefaultMinStake
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Game is the authoritative state of one Teen Patti room.
// It is not safe for concurrent use; callers serialize access (see Room).
type Game struct {
	ID                 string
	Players            []*shared.Player // Seating order
	Deck               *shared.Deck
	Pot                int64
	CurrentStake       int64 // Current minimum bet level
	CurrentPlayerIndex int
	DealerIndex        int
	State              State
	RoundCounter       int // Turns taken in the current round
	MinPlayers         int
	MaxPlayers         int
	MinStake           int64

	leaving map[string]bool
	log     *zap.Logger
}

// ActionResult describes the effect of a successful action.
type ActionResult struct {
	PlayerID     string
	Action       ActionKind
	Amount       int64 // Chips committed by a bet
	TurnAdvanced bool
	NextPlayerID string
}

// LeaveResult describes what happened to a leaving player.
type LeaveResult struct {
	Removed bool          // Seat was freed immediately
	Fold    *ActionResult // Set when the player was folded out of a running round
}

// NewGame initializes an empty room in the lobby.
func NewGame(id string, cfg Config) *Game {
	cfg = cfg.withDefaults()
	return &Game{
		ID:         id,
		Players:    []*shared.Player{},
		Deck:       shared.NewDeck(cfg.Rand),
		State:      Lobby,
		MinPlayers: cfg.MinPlayers,
		MaxPlayers: cfg.MaxPlayers,
		MinStake:   cfg.MinStake,
		leaving:    make(map[string]bool),
		log:        cfg.Logger.With(zap.String("room", id)),
	}
}

// Started reports whether a round is in progress.
func (g *Game) Started() bool {
	return g.State == InRound
}

// Seat appends a player in the next seat. A player seated mid-round sits out until the next deal.
func (g *Game) Seat(p *shared.Player) error {
	if g.PlayerIndex(p.ID) != -1 {
		return fmt.Errorf("%w: %s", ErrAlreadyJoined, p.ID)
	}
	if len(g.Players) >= g.MaxPlayers {
		return ErrRoomFull
	}
	if g.State == InRound {
		p.Reset()
		p.Fold()
	}
	g.Players = append(g.Players, p)
	g.log.Debug("player seated", zap.String("player", p.ID), zap.Int("seats", len(g.Players)))
	return nil
}

// Unseat removes a player between rounds. It returns false if the player is not seated
// or a round is running; use Leave to take a player out of a running round.
func (g *Game) Unseat(playerID string) bool {
	if g.State == InRound {
		return false
	}
	i := g.PlayerIndex(playerID)
	if i == -1 {
		return false
	}
	g.removeAt(i)
	return true
}

// CanStart reports whether enough players are seated and no round is running.
func (g *Game) CanStart() bool {
	return len(g.Players) >= g.MinPlayers && g.State == Lobby
}

// Start deals a new round: fresh deck, three cards each dealt round-robin, ante from every seat.
// On a dealing failure the room stays in the lobby with no player state touched.
func (g *Game) Start() error {
	if g.State == InRound {
		return ErrRoundInProgress
	}
	if !g.CanStart() {
		return ErrCannotStart
	}

	g.Deck.Reset()
	hands := make([][]shared.Card, len(g.Players))
	for pass := 0; pass < shared.HandSize; pass++ {
		for i := range g.Players {
			card, err := g.Deck.Deal()
			if err != nil {
				g.log.Error("dealing failed, round aborted",
					zap.Error(err), zap.Int("seats", len(g.Players)), zap.Int("pass", pass))
				g.State = Lobby
				return fmt.Errorf("start round in room %s: %w", g.ID, err)
			}
			hands[i] = append(hands[i], card)
		}
	}

	g.State = InRound
	g.Pot = 0
	g.CurrentStake = g.MinStake
	g.RoundCounter = 0
	for i, p := range g.Players {
		p.Reset()
		for _, card := range hands[i] {
			p.AddCard(card)
		}
	}
	for _, p := range g.Players {
		g.Pot += p.Bet(g.MinStake)
	}

	g.DealerIndex %= len(g.Players)
	g.CurrentPlayerIndex = (g.DealerIndex + 1) % len(g.Players)
	g.log.Info("round started",
		zap.Int("seats", len(g.Players)), zap.Int64("pot", g.Pot), zap.Int("dealer", g.DealerIndex))
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil if no seat is valid.
func (g *Game) CurrentPlayer() *shared.Player {
	p, err := g.currentPlayer()
	if err != nil {
		return nil
	}
	return p
}

func (g *Game) currentPlayer() (*shared.Player, error) {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSeatOutOfRange, g.CurrentPlayerIndex, len(g.Players))
	}
	return g.Players[g.CurrentPlayerIndex], nil
}

// BetRange returns the legal bet bounds for p at the current stake.
// Blind players bet 1x-2x the stake, seen players 2x-4x.
func (g *Game) BetRange(p *shared.Player) (lo, hi int64) {
	if p.Blind {
		return g.CurrentStake, 2 * g.CurrentStake
	}
	return 2 * g.CurrentStake, 4 * g.CurrentStake
}

// PlayerAction applies an in-turn action. A rejected action leaves every field untouched,
// including whose turn it is.
func (g *Game) PlayerAction(playerID string, action Action) (ActionResult, error) {
	if g.State != InRound {
		return ActionResult{}, ErrRoundNotStarted
	}
	current, err := g.currentPlayer()
	if err != nil {
		g.log.Error("turn pointer invalid", zap.Error(err))
		return ActionResult{}, err
	}
	if current.ID != playerID {
		return ActionResult{}, ErrNotYourTurn
	}

	result := ActionResult{PlayerID: playerID, Action: action.Kind}
	switch action.Kind {
	case ActionFold:
		current.Fold()
		g.advanceTurn()
		result.TurnAdvanced = true

	case ActionSee:
		current.SeeCards()

	case ActionBet:
		lo, hi := g.BetRange(current)
		if action.Amount < lo || action.Amount > hi {
			return ActionResult{}, fmt.Errorf("%w: bet must be between %d and %d", ErrInvalidBet, lo, hi)
		}
		if action.Amount > current.Chips {
			return ActionResult{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientChips, current.Chips, action.Amount)
		}
		committed := current.Bet(action.Amount)
		g.Pot += committed
		g.CurrentStake = max(g.CurrentStake, action.Amount)
		g.advanceTurn()
		result.Amount = committed
		result.TurnAdvanced = true

	default:
		return ActionResult{}, fmt.Errorf("%w: %s", ErrInvalidAction, action.Kind)
	}

	if next := g.CurrentPlayer(); next != nil {
		result.NextPlayerID = next.ID
	}
	return result, nil
}

// ForceFold folds a player out of turn, e.g. on disconnect.
// The turn only moves if the folded player held it.
func (g *Game) ForceFold(playerID string) (ActionResult, error) {
	if g.State != InRound {
		return ActionResult{}, ErrRoundNotStarted
	}
	i := g.PlayerIndex(playerID)
	if i == -1 {
		return ActionResult{}, ErrPlayerNotFound
	}
	p := g.Players[i]
	result := ActionResult{PlayerID: playerID, Action: ActionFold}
	if !p.Folded {
		p.Fold()
		if i == g.CurrentPlayerIndex {
			g.advanceTurn()
			result.TurnAdvanced = true
		}
	}
	if next := g.CurrentPlayer(); next != nil {
		result.NextPlayerID = next.ID
	}
	return result, nil
}

// Leave takes a player out of the room. In the lobby the seat is freed at once;
// during a round the player is folded and removed when the round ends.
func (g *Game) Leave(playerID string) (LeaveResult, error) {
	if g.PlayerIndex(playerID) == -1 {
		return LeaveResult{}, ErrPlayerNotFound
	}
	if g.State == Lobby {
		return LeaveResult{Removed: g.Unseat(playerID)}, nil
	}
	fold, err := g.ForceFold(playerID)
	if err != nil {
		return LeaveResult{}, err
	}
	g.leaving[playerID] = true
	return LeaveResult{Fold: &fold}, nil
}

// advanceTurn moves the turn to the next unfolded seat, at most one lap.
func (g *Game) advanceTurn() {
	n := len(g.Players)
	if n == 0 {
		return
	}
	for step := 1; step <= n; step++ {
		next := (g.CurrentPlayerIndex + step) % n
		if g.Players[next].InPlay() {
			g.CurrentPlayerIndex = next
			break
		}
	}
	g.RoundCounter++
}

// ActivePlayers returns the players still contesting the pot, in seat order.
func (g *Game) ActivePlayers() []*shared.Player {
	var active []*shared.Player
	for _, p := range g.Players {
		if p.InPlay() {
			active = append(active, p)
		}
	}
	return active
}

// CheckWinner reports whether the round is decided without a showdown.
// One player left: that player wins. None left: decided with no winner.
func (g *Game) CheckWinner() (winner *shared.Player, decided bool) {
	active := g.ActivePlayers()
	switch len(active) {
	case 0:
		return nil, true
	case 1:
		return active[0], true
	default:
		return nil, false
	}
}

// Showdown compares the hands of all players still in play and returns the best,
// more than one on a tie.
func (g *Game) Showdown() ([]*shared.Player, error) {
	if g.State != InRound {
		return nil, ErrRoundNotStarted
	}
	var (
		best    []*shared.Player
		bestKey shared.HandKey
	)
	for _, p := range g.ActivePlayers() {
		key, err := shared.EvaluateHand(p.Hand)
		if err != nil {
			g.log.Error("unrankable hand at showdown", zap.String("player", p.ID), zap.Error(err))
			return nil, fmt.Errorf("showdown in room %s: %w", g.ID, err)
		}
		switch cmp := key.Compare(bestKey); {
		case len(best) == 0 || cmp > 0:
			best = []*shared.Player{p}
			bestKey = key
		case cmp == 0:
			best = append(best, p)
		}
	}
	return best, nil
}

// EndRound pays the whole pot to winner and returns the room to the lobby.
// A nil winner means nobody is left in play; every bet is refunded.
// This departs from a close that credits nobody: the pot is returned,
// so the settlement's balances already include each player's refund.
func (g *Game) EndRound(winner *shared.Player) (Settlement, error) {
	if winner == nil {
		return g.settle(nil)
	}
	return g.settle([]*shared.Player{winner})
}

// SplitPot divides the pot evenly between tied winners. The odd chips go to the
// first winner clockwise from the dealer.
func (g *Game) SplitPot(winners []*shared.Player) (Settlement, error) {
	return g.settle(winners)
}

func (g *Game) settle(winners []*shared.Player) (Settlement, error) {
	if g.State != InRound {
		return Settlement{}, ErrRoundNotStarted
	}
	for _, w := range winners {
		if g.PlayerIndex(w.ID) == -1 {
			return Settlement{}, fmt.Errorf("%w: winner %s", ErrPlayerNotFound, w.ID)
		}
	}

	pot := g.Pot
	if len(winners) == 0 {
		for _, p := range g.Players {
			p.Chips += p.TotalBet
		}
	} else {
		ordered := g.clockwiseFromDealer(winners)
		share, rem := pot/int64(len(ordered)), pot%int64(len(ordered))
		for i, w := range ordered {
			w.Chips += share
			if i == 0 {
				w.Chips += rem
			}
		}
	}

	s := Settlement{
		RoomID:   g.ID,
		Pot:      pot,
		Turns:    g.RoundCounter,
		Balances: make([]Balance, len(g.Players)),
	}
	for _, w := range winners {
		s.WinnerIDs = append(s.WinnerIDs, w.ID)
	}
	if len(winners) == 1 {
		s.WinnerID = winners[0].ID
	}
	for i, p := range g.Players {
		s.Balances[i] = Balance{PlayerID: p.ID, Name: p.Name, Chips: p.Chips}
	}

	g.Pot = 0
	g.State = Lobby
	if len(g.Players) > 0 {
		g.DealerIndex = (g.DealerIndex + 1) % len(g.Players)
	}
	for id := range g.leaving {
		if i := g.PlayerIndex(id); i != -1 {
			g.removeAt(i)
			s.Removed = append(s.Removed, id)
		}
	}
	clear(g.leaving)

	g.log.Info("round ended",
		zap.Strings("winners", s.WinnerIDs), zap.Int64("pot", pot), zap.Int("turns", s.Turns))
	return s, nil
}

func (g *Game) clockwiseFromDealer(players []*shared.Player) []*shared.Player {
	n := len(g.Players)
	ordered := make([]*shared.Player, 0, len(players))
	for step := 1; step <= n; step++ {
		seat := g.Players[(g.DealerIndex+step)%n]
		for _, p := range players {
			if p.ID == seat.ID {
				ordered = append(ordered, p)
			}
		}
	}
	return ordered
}

// removeAt deletes seat i, keeping the dealer and turn pointers on the same players where possible.
func (g *Game) removeAt(i int) {
	delete(g.leaving, g.Players[i].ID)
	g.Players = append(g.Players[:i], g.Players[i+1:]...)
	if i < g.DealerIndex {
		g.DealerIndex--
	}
	if i < g.CurrentPlayerIndex {
		g.CurrentPlayerIndex--
	}
	if n := len(g.Players); n == 0 {
		g.DealerIndex, g.CurrentPlayerIndex = 0, 0
	} else {
		g.DealerIndex %= n
		g.CurrentPlayerIndex %= n
	}
}

// Player finds a seated player by ID.
func (g *Game) Player(playerID string) *shared.Player {
	if i := g.PlayerIndex(playerID); i != -1 {
		return g.Players[i]
	}
	return nil
}

// PlayerIndex returns the seat of a player, or -1 if not seated.
func (g *Game) PlayerIndex(playerID string) int {
	for i, p := range g.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// Hand returns a copy of a player's cards for private delivery.
func (g *Game) Hand(playerID string) ([]shared.Card, error) {
	p := g.Player(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	hand := make([]shared.Card, len(p.Hand))
	copy(hand, p.Hand)
	return hand, nil
}
