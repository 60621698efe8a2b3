package shared

import (
	"errors"
	"math/rand/v2"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// ErrEmptyDeck is returned when dealing from a deck with no cards left.
var ErrEmptyDeck = errors.New("deck is empty")

// Deck is an ordered pile of cards; the back of the slice is the draw point.
type Deck struct {
	Cards []Card
	rng   *rand.Rand
}

// NewDeck creates a full, shuffled deck. A nil rng uses a randomly seeded source.
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	d := &Deck{rng: rng}
	d.Reset()
	return d
}

// Reset restores all 52 cards in generation order (suit-major, rank-minor) and shuffles them.
func (d *Deck) Reset() {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	d.Cards = cards
	d.Shuffle()
}

// Shuffle permutes the deck in place with Fisher-Yates.
func (d *Deck) Shuffle() {
	for i := len(d.Cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	}
}

// Deal removes and returns the last card of the deck.
func (d *Deck) Deal() (Card, error) {
	n := len(d.Cards)
	if n == 0 {
		return Card{}, ErrEmptyDeck
	}
	card := d.Cards[n-1]
	d.Cards = d.Cards[:n-1]
	return card, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.Cards)
}
