package shared

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestNewDeck_HasAllUniqueCards(t *testing.T) {
	d := NewDeck(seededRand(1))
	require.Len(t, d.Cards, DeckSize)

	seen := make(map[Card]bool, DeckSize)
	for _, c := range d.Cards {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			assert.True(t, seen[Card{Rank: rank, Suit: suit}], "missing %s of %s", rank, suit)
		}
	}
}

func TestDeck_ShuffleIsPermutation(t *testing.T) {
	d := NewDeck(seededRand(2))
	before := make(map[Card]int)
	for _, c := range d.Cards {
		before[c]++
	}
	order := append([]Card(nil), d.Cards...)

	changed := false
	for i := 0; i < 5; i++ {
		d.Shuffle()
		after := make(map[Card]int)
		for _, c := range d.Cards {
			after[c]++
		}
		assert.Equal(t, before, after)
		if !assert.ObjectsAreEqual(order, d.Cards) {
			changed = true
		}
	}
	assert.True(t, changed, "five shuffles never changed the order")
}

func TestDeck_ShuffleDeterministicWithSeed(t *testing.T) {
	a := NewDeck(seededRand(42))
	b := NewDeck(seededRand(42))
	assert.Equal(t, a.Cards, b.Cards)
}

func TestDeck_ShuffleUnbiasedFirstPosition(t *testing.T) {
	const trials = 52 * 400
	counts := make(map[Card]int)
	d := NewDeck(seededRand(7))
	for i := 0; i < trials; i++ {
		d.Reset()
		counts[d.Cards[0]]++
	}
	require.Len(t, counts, DeckSize)
	expected := float64(trials) / DeckSize
	for c, n := range counts {
		assert.InDelta(t, expected, float64(n), expected*0.5, "card %s landed first %d times", c, n)
	}
}

func TestDeck_DealFromTail(t *testing.T) {
	d := NewDeck(seededRand(3))
	last := d.Cards[len(d.Cards)-1]

	c, err := d.Deal()
	require.NoError(t, err)
	assert.Equal(t, last, c)
	assert.Equal(t, DeckSize-1, d.Remaining())
}

func TestDeck_DealEmpty(t *testing.T) {
	d := NewDeck(seededRand(4))
	for i := 0; i < DeckSize; i++ {
		_, err := d.Deal()
		require.NoError(t, err)
	}
	_, err := d.Deal()
	assert.ErrorIs(t, err, ErrEmptyDeck)

	d.Reset()
	assert.Equal(t, DeckSize, d.Remaining())
}

func TestCard_ValueAndString(t *testing.T) {
	assert.Equal(t, 0, Card{Rank: Two, Suit: Hearts}.Value())
	assert.Equal(t, 12, Card{Rank: Ace, Suit: Hearts}.Value())
	assert.Equal(t, "A♠", Card{Rank: Ace, Suit: Spades}.String())
	assert.Equal(t, "10♦", Card{Rank: Ten, Suit: Diamonds}.String())
}

func TestRank_TextRoundTrip(t *testing.T) {
	text, err := Queen.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Q", string(text))

	var r Rank
	require.NoError(t, r.UnmarshalText([]byte("q")))
	assert.Equal(t, Queen, r)

	assert.Error(t, r.UnmarshalText([]byte("1")))
}
