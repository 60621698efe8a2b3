package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"teenpatti-game/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, seats int) *Game {
	t.Helper()
	g := NewGame("room-1", Config{Rand: rand.New(rand.NewPCG(1, 2))})
	for i := 0; i < seats; i++ {
		p := shared.NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i), "", 1000)
		require.NoError(t, g.Seat(p))
	}
	return g
}

func startedGame(t *testing.T, seats int) *Game {
	t.Helper()
	g := newTestGame(t, seats)
	require.NoError(t, g.Start())
	return g
}

func totalBets(g *Game) int64 {
	var sum int64
	for _, p := range g.Players {
		sum += p.TotalBet
	}
	return sum
}

func totalChips(g *Game) int64 {
	var sum int64
	for _, p := range g.Players {
		sum += p.Chips
	}
	return sum
}

func TestStart_TwoPlayers(t *testing.T) {
	g := startedGame(t, 2)

	assert.Equal(t, InRound, g.State)
	assert.True(t, g.Started())
	assert.Equal(t, int64(20), g.Pot)
	assert.Equal(t, DefaultMinStake, g.CurrentStake)
	assert.Equal(t, 1, g.CurrentPlayerIndex)
	assert.Equal(t, 0, g.RoundCounter)
	assert.Equal(t, shared.DeckSize-6, g.Deck.Remaining())

	seen := map[shared.Card]bool{}
	for _, p := range g.Players {
		require.Len(t, p.Hand, 3)
		assert.Equal(t, int64(990), p.Chips)
		assert.Equal(t, int64(10), p.TotalBet)
		assert.True(t, p.Blind)
		for _, c := range p.Hand {
			assert.False(t, seen[c], "card %s dealt twice", c)
			seen[c] = true
		}
	}
	assert.Equal(t, g.Pot, totalBets(g))
}

func TestStart_DealsRoundRobin(t *testing.T) {
	g := NewGame("room-rr", Config{Rand: rand.New(rand.NewPCG(5, 6))})
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Seat(shared.NewPlayer(fmt.Sprintf("p%d", i), "", "", 1000)))
	}
	require.NoError(t, g.Start())

	// Same seed: one shuffle at construction, one at Start.
	ref := shared.NewDeck(rand.New(rand.NewPCG(5, 6)))
	ref.Reset()
	top := len(ref.Cards) - 1
	for pass := 0; pass < 3; pass++ {
		for i, p := range g.Players {
			assert.Equal(t, ref.Cards[top-(pass*3+i)], p.Hand[pass], "pass %d seat %d", pass, i)
		}
	}
}

func TestStart_Refused(t *testing.T) {
	g := newTestGame(t, 1)
	assert.False(t, g.CanStart())
	assert.ErrorIs(t, g.Start(), ErrCannotStart)
	assert.Equal(t, Lobby, g.State)

	require.NoError(t, g.Seat(shared.NewPlayer("p1", "", "", 1000)))
	require.NoError(t, g.Start())
	assert.False(t, g.CanStart())
	assert.ErrorIs(t, g.Start(), ErrRoundInProgress)
}

func TestStart_EmptyDeckAbortsToLobby(t *testing.T) {
	g := NewGame("room-big", Config{MaxPlayers: 18})
	for i := 0; i < 18; i++ {
		require.NoError(t, g.Seat(shared.NewPlayer(fmt.Sprintf("p%d", i), "", "", 1000)))
	}

	err := g.Start()
	require.ErrorIs(t, err, ErrEmptyDeck)
	assert.False(t, IsValidation(err))
	assert.Equal(t, Lobby, g.State)
	assert.Zero(t, g.Pot)
	for _, p := range g.Players {
		assert.Empty(t, p.Hand)
		assert.Equal(t, int64(1000), p.Chips)
	}
}

func TestPlayerAction_BetRange(t *testing.T) {
	tests := []struct {
		name   string
		seen   bool
		amount int64
		ok     bool
	}{
		{"blind at minimum", false, 10, true},
		{"blind at maximum", false, 20, true},
		{"blind below range", false, 9, false},
		{"blind above range", false, 21, false},
		{"seen at minimum", true, 20, true},
		{"seen at maximum", true, 40, true},
		{"seen below range", true, 19, false},
		{"seen above range", true, 41, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := startedGame(t, 3)
			current := g.CurrentPlayer()
			if tt.seen {
				_, err := g.PlayerAction(current.ID, See())
				require.NoError(t, err)
			}
			pot, turn, stake := g.Pot, g.CurrentPlayerIndex, g.CurrentStake
			chips := current.Chips

			res, err := g.PlayerAction(current.ID, Bet(tt.amount))
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.amount, res.Amount)
				assert.True(t, res.TurnAdvanced)
				assert.Equal(t, pot+tt.amount, g.Pot)
				assert.NotEqual(t, turn, g.CurrentPlayerIndex)
				return
			}
			require.ErrorIs(t, err, ErrInvalidBet)
			assert.True(t, IsValidation(err))
			assert.Equal(t, pot, g.Pot)
			assert.Equal(t, turn, g.CurrentPlayerIndex)
			assert.Equal(t, stake, g.CurrentStake)
			assert.Equal(t, chips, current.Chips)
		})
	}
}

func TestPlayerAction_BetRaisesStake(t *testing.T) {
	g := startedGame(t, 3)
	p1 := g.CurrentPlayer()

	_, err := g.PlayerAction(p1.ID, Bet(20))
	require.NoError(t, err)
	assert.Equal(t, int64(20), g.CurrentStake)

	p2 := g.CurrentPlayer()
	lo, hi := g.BetRange(p2)
	assert.Equal(t, int64(20), lo)
	assert.Equal(t, int64(40), hi)

	_, err = g.PlayerAction(p2.ID, Bet(20))
	require.NoError(t, err)
	assert.Equal(t, int64(20), g.CurrentStake, "stake never drops")
	assert.Equal(t, g.Pot, totalBets(g))
}

func TestPlayerAction_NotYourTurn(t *testing.T) {
	g := startedGame(t, 3)
	other := g.Players[0]
	require.NotEqual(t, other.ID, g.CurrentPlayer().ID)
	turn := g.CurrentPlayerIndex

	for _, action := range []Action{Fold(), See(), Bet(10)} {
		_, err := g.PlayerAction(other.ID, action)
		assert.ErrorIs(t, err, ErrNotYourTurn)
	}
	_, err := g.PlayerAction("stranger", Fold())
	assert.ErrorIs(t, err, ErrNotYourTurn)

	assert.Equal(t, turn, g.CurrentPlayerIndex)
	assert.False(t, other.Folded)
	assert.False(t, other.Seen)
}

func TestPlayerAction_SeeKeepsTurn(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()
	counter := g.RoundCounter

	res, err := g.PlayerAction(current.ID, See())
	require.NoError(t, err)
	assert.False(t, res.TurnAdvanced)
	assert.Equal(t, current.ID, res.NextPlayerID)
	assert.True(t, current.Seen)
	assert.False(t, current.Blind)
	assert.Equal(t, counter, g.RoundCounter)

	_, err = g.PlayerAction(current.ID, See())
	require.NoError(t, err)
	assert.Equal(t, current.ID, g.CurrentPlayer().ID)

	_, err = g.PlayerAction(current.ID, Bet(20))
	require.NoError(t, err)
	assert.NotEqual(t, current.ID, g.CurrentPlayer().ID)
}

func TestPlayerAction_InvalidAction(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()
	pot := g.Pot

	_, err := g.PlayerAction(current.ID, Action{Kind: ActionKind(99)})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, current.ID, g.CurrentPlayer().ID)
	assert.Equal(t, pot, g.Pot)
}

func TestPlayerAction_InsufficientChips(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()
	current.Chips = 5
	pot := g.Pot

	_, err := g.PlayerAction(current.ID, Bet(10))
	assert.ErrorIs(t, err, ErrInsufficientChips)
	assert.Equal(t, int64(5), current.Chips)
	assert.Equal(t, pot, g.Pot)
	assert.Equal(t, current.ID, g.CurrentPlayer().ID)
}

func TestPlayerAction_RoundNotStarted(t *testing.T) {
	g := newTestGame(t, 2)
	_, err := g.PlayerAction("p0", Fold())
	assert.ErrorIs(t, err, ErrRoundNotStarted)
}

func TestTurnRotation_SkipsFolded(t *testing.T) {
	g := newTestGame(t, 4)
	g.DealerIndex = 3
	require.NoError(t, g.Start())
	require.Equal(t, 0, g.CurrentPlayerIndex)

	g.Players[1].Fold()
	g.Players[2].Fold()

	_, err := g.PlayerAction("p0", Bet(10))
	require.NoError(t, err)
	assert.Equal(t, 3, g.CurrentPlayerIndex)

	_, err = g.PlayerAction("p3", Bet(10))
	require.NoError(t, err)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.Equal(t, 2, g.RoundCounter)
}

func TestTurnRotation_WrapsAround(t *testing.T) {
	g := startedGame(t, 3)
	var order []string
	for i := 0; i < 4; i++ {
		p := g.CurrentPlayer()
		order = append(order, p.ID)
		_, err := g.PlayerAction(p.ID, Bet(10))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"p1", "p2", "p0", "p1"}, order)
}

func TestPotInvariant(t *testing.T) {
	g := startedGame(t, 4)
	assert.Equal(t, g.Pot, totalBets(g))

	steps := []Action{Bet(10), See(), Bet(40), Bet(40), Fold(), Bet(80)}
	for _, a := range steps {
		_, err := g.PlayerAction(g.CurrentPlayer().ID, a)
		require.NoError(t, err, "action %v", a)
		assert.Equal(t, g.Pot, totalBets(g))
	}
}

func TestEndToEnd_FoldOut(t *testing.T) {
	g := startedGame(t, 2)
	chipsBefore := totalChips(g) + g.Pot

	folder := g.CurrentPlayer()
	_, err := g.PlayerAction(folder.ID, Fold())
	require.NoError(t, err)

	winner, decided := g.CheckWinner()
	require.True(t, decided)
	require.NotNil(t, winner)
	assert.Equal(t, "p0", winner.ID)

	s, err := g.EndRound(winner)
	require.NoError(t, err)
	assert.Equal(t, "p0", s.WinnerID)
	assert.Equal(t, []string{"p0"}, s.WinnerIDs)
	assert.Equal(t, int64(20), s.Pot)
	assert.Equal(t, int64(1010), winner.Chips)
	assert.Equal(t, int64(990), folder.Chips)
	assert.Equal(t, []Balance{
		{PlayerID: "p0", Name: "Player 0", Chips: 1010},
		{PlayerID: "p1", Name: "Player 1", Chips: 990},
	}, s.Balances)

	assert.Zero(t, g.Pot)
	assert.Equal(t, 1, g.DealerIndex)
	assert.Equal(t, Lobby, g.State)
	assert.Equal(t, chipsBefore, totalChips(g))

	// Next round starts after the new dealer.
	require.NoError(t, g.Start())
	assert.Equal(t, 0, g.CurrentPlayerIndex)
}

func TestCheckWinner(t *testing.T) {
	g := startedGame(t, 3)
	_, decided := g.CheckWinner()
	assert.False(t, decided)

	for _, p := range g.Players {
		p.Fold()
	}
	winner, decided := g.CheckWinner()
	assert.True(t, decided)
	assert.Nil(t, winner)
}

func TestEndRound_NoWinnerRefunds(t *testing.T) {
	g := startedGame(t, 3)
	_, err := g.PlayerAction(g.CurrentPlayer().ID, Bet(20))
	require.NoError(t, err)

	s, err := g.EndRound(nil)
	require.NoError(t, err)
	assert.Empty(t, s.WinnerID)
	assert.Equal(t, int64(50), s.Pot)
	for _, p := range g.Players {
		assert.Equal(t, int64(1000), p.Chips)
	}
	assert.Zero(t, g.Pot)
}

func TestEndRound_OutsideRound(t *testing.T) {
	g := newTestGame(t, 2)
	_, err := g.EndRound(g.Players[0])
	assert.ErrorIs(t, err, ErrRoundNotStarted)
	assert.Equal(t, 0, g.DealerIndex)
}

func TestEndRound_UnknownWinner(t *testing.T) {
	g := startedGame(t, 2)
	_, err := g.EndRound(shared.NewPlayer("ghost", "", "", 0))
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Equal(t, InRound, g.State)
}

func TestShowdown_AndSplitPot(t *testing.T) {
	g := startedGame(t, 3)
	g.Players[0].Hand = []shared.Card{{Rank: shared.King, Suit: shared.Spades}, {Rank: shared.King, Suit: shared.Diamonds}, {Rank: shared.Five, Suit: shared.Hearts}}
	g.Players[1].Hand = []shared.Card{{Rank: shared.Ace, Suit: shared.Spades}, {Rank: shared.Seven, Suit: shared.Diamonds}, {Rank: shared.Two, Suit: shared.Hearts}}
	g.Players[2].Hand = []shared.Card{{Rank: shared.King, Suit: shared.Clubs}, {Rank: shared.King, Suit: shared.Hearts}, {Rank: shared.Five, Suit: shared.Spades}}

	_, err := g.PlayerAction("p1", Bet(11))
	require.NoError(t, err)
	require.Equal(t, int64(41), g.Pot)

	best, err := g.Showdown()
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.ElementsMatch(t, []string{"p0", "p2"}, []string{best[0].ID, best[1].ID})

	s, err := g.SplitPot(best)
	require.NoError(t, err)
	assert.Empty(t, s.WinnerID)
	assert.ElementsMatch(t, []string{"p0", "p2"}, s.WinnerIDs)
	assert.Equal(t, int64(1010), g.Players[0].Chips)
	assert.Equal(t, int64(979), g.Players[1].Chips)
	assert.Equal(t, int64(1011), g.Players[2].Chips, "first winner after the dealer takes the odd chip")
	assert.Equal(t, int64(3000), totalChips(g))
}

func TestShowdown_SingleBest(t *testing.T) {
	g := startedGame(t, 2)
	g.Players[0].Hand = []shared.Card{{Rank: shared.Two, Suit: shared.Hearts}, {Rank: shared.Three, Suit: shared.Hearts}, {Rank: shared.Four, Suit: shared.Hearts}}
	g.Players[1].Hand = []shared.Card{{Rank: shared.Ace, Suit: shared.Spades}, {Rank: shared.Ace, Suit: shared.Diamonds}, {Rank: shared.King, Suit: shared.Hearts}}

	best, err := g.Showdown()
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, "p0", best[0].ID)

	hands := g.RevealHands()
	assert.Len(t, hands, 2)
}

func TestShowdown_IgnoresFolded(t *testing.T) {
	g := startedGame(t, 3)
	g.Players[2].Hand = []shared.Card{{Rank: shared.Ace, Suit: shared.Spades}, {Rank: shared.Ace, Suit: shared.Diamonds}, {Rank: shared.Ace, Suit: shared.Hearts}}
	g.Players[2].Fold()

	best, err := g.Showdown()
	require.NoError(t, err)
	for _, p := range best {
		assert.NotEqual(t, "p2", p.ID)
	}
}

func TestSeat(t *testing.T) {
	g := newTestGame(t, 6)
	err := g.Seat(shared.NewPlayer("p6", "", "", 1000))
	assert.ErrorIs(t, err, ErrRoomFull)

	g = newTestGame(t, 2)
	err = g.Seat(shared.NewPlayer("p0", "", "", 1000))
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Len(t, g.Players, 2)
}

func TestSeat_MidRoundSitsOut(t *testing.T) {
	g := startedGame(t, 2)
	late := shared.NewPlayer("late", "", "", 1000)
	require.NoError(t, g.Seat(late))

	assert.True(t, late.Folded)
	assert.Empty(t, late.Hand)
	assert.Len(t, g.ActivePlayers(), 2)
	assert.Equal(t, g.Pot, totalBets(g))
}

func TestUnseat(t *testing.T) {
	g := newTestGame(t, 3)
	assert.False(t, g.Unseat("nobody"))
	assert.True(t, g.Unseat("p1"))
	assert.Len(t, g.Players, 2)
	assert.Equal(t, -1, g.PlayerIndex("p1"))

	require.NoError(t, g.Start())
	assert.False(t, g.Unseat("p0"), "seats are not freed mid-round")
	assert.Len(t, g.Players, 2)
}

func TestForceFold(t *testing.T) {
	g := startedGame(t, 3)
	current := g.CurrentPlayer()

	res, err := g.ForceFold("p0")
	require.NoError(t, err)
	assert.False(t, res.TurnAdvanced)
	assert.Equal(t, current.ID, g.CurrentPlayer().ID)
	assert.True(t, g.Players[0].Folded)

	res, err = g.ForceFold(current.ID)
	require.NoError(t, err)
	assert.True(t, res.TurnAdvanced)
	assert.Equal(t, "p2", g.CurrentPlayer().ID)

	counter := g.RoundCounter
	_, err = g.ForceFold(current.ID)
	require.NoError(t, err)
	assert.Equal(t, counter, g.RoundCounter, "folding twice does not advance again")

	_, err = g.ForceFold("nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestLeave_MidRoundDefersRemoval(t *testing.T) {
	g := startedGame(t, 3)
	require.Equal(t, "p1", g.CurrentPlayer().ID)

	res, err := g.Leave("p1")
	require.NoError(t, err)
	assert.False(t, res.Removed)
	require.NotNil(t, res.Fold)
	assert.True(t, res.Fold.TurnAdvanced)
	assert.Len(t, g.Players, 3)
	assert.Equal(t, "p2", g.CurrentPlayer().ID)

	_, err = g.PlayerAction("p2", Fold())
	require.NoError(t, err)
	winner, decided := g.CheckWinner()
	require.True(t, decided)

	s, err := g.EndRound(winner)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, s.Removed)
	assert.Len(t, s.Balances, 3)
	assert.Len(t, g.Players, 2)
	assert.Equal(t, -1, g.PlayerIndex("p1"))
	assert.Less(t, g.DealerIndex, len(g.Players))
	assert.Equal(t, "p2", g.Players[g.DealerIndex].ID, "dealer button stays on the next seat")
}

func TestLeave_Lobby(t *testing.T) {
	g := newTestGame(t, 2)
	res, err := g.Leave("p0")
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Nil(t, res.Fold)

	_, err = g.Leave("p0")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSnapshot_HidesCards(t *testing.T) {
	g := startedGame(t, 2)
	s := g.Snapshot()

	assert.Equal(t, "room-1", s.RoomID)
	assert.True(t, s.Started)
	assert.Equal(t, "p1", s.CurrentPlayerID)
	assert.Equal(t, int64(20), s.Pot)
	require.Len(t, s.Players, 2)
	assert.Equal(t, 3, s.Players[0].CardCount)

	hand, err := g.Hand("p0")
	require.NoError(t, err)
	hand[0] = shared.Card{}
	assert.NotEqual(t, shared.Card{}, g.Players[0].Hand[0], "Hand returns a copy")
}
