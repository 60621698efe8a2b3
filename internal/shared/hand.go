package shared

import (
	"errors"
	"fmt"
	"sort"
)

// HandSize is the number of cards in a Teen Patti hand.
const HandSize = 3

// ErrInvalidHand is returned when evaluating a hand that is not exactly three cards.
var ErrInvalidHand = errors.New("hand must contain exactly 3 cards")

// HandCategory ranks the kind of hand, higher is better.
type HandCategory int

const (
	HighCard     HandCategory = iota // no other category
	Pair                             // two cards of one rank
	Color                            // three cards of one suit
	Sequence                         // three consecutive ranks
	PureSequence                     // consecutive ranks in one suit
	Trio                             // three cards of one rank
)

var categoryNames = []string{"High Card", "Pair", "Color", "Sequence", "Pure Sequence", "Trio"}

func (c HandCategory) String() string {
	if c < HighCard || c > Trio {
		return fmt.Sprintf("HandCategory(%d)", int(c))
	}
	return categoryNames[c]
}

func (c HandCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// HandKey is the comparable ranking of a hand: its category and rank values sorted high to low.
type HandKey struct {
	Category HandCategory  `json:"category"`
	Values   [HandSize]int `json:"values"`
}

// EvaluateHand ranks a three-card hand.
func EvaluateHand(cards []Card) (HandKey, error) {
	if len(cards) != HandSize {
		return HandKey{}, fmt.Errorf("%w: got %d", ErrInvalidHand, len(cards))
	}

	sorted := make([]Card, HandSize)
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Value() > sorted[j].Value()
	})

	var key HandKey
	for i, c := range sorted {
		key.Values[i] = c.Value()
	}
	v := key.Values

	sequence := isSequence(v)
	flush := sorted[0].Suit == sorted[1].Suit && sorted[1].Suit == sorted[2].Suit

	switch {
	case v[0] == v[1] && v[1] == v[2]:
		key.Category = Trio
	case sequence && flush:
		key.Category = PureSequence
	case sequence:
		key.Category = Sequence
	case flush:
		key.Category = Color
	case v[0] == v[1] || v[1] == v[2] || v[0] == v[2]:
		key.Category = Pair
	default:
		key.Category = HighCard
	}
	return key, nil
}

// isSequence expects values sorted descending. A-2-3 ([12 1 0]) is the only wrap.
func isSequence(v [HandSize]int) bool {
	if v[0] == int(Ace) && v[1] == int(Three) && v[2] == int(Two) {
		return true
	}
	return v[0] == v[1]+1 && v[1] == v[2]+1
}

// Compare returns 1 if k beats other, -1 if other beats k, 0 on a tie.
func (k HandKey) Compare(other HandKey) int {
	if k.Category != other.Category {
		if k.Category > other.Category {
			return 1
		}
		return -1
	}
	for i := range k.Values {
		if k.Values[i] != other.Values[i] {
			if k.Values[i] > other.Values[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// CompareHands evaluates and compares two hands with the same contract as HandKey.Compare.
func CompareHands(a, b []Card) (int, error) {
	ka, err := EvaluateHand(a)
	if err != nil {
		return 0, err
	}
	kb, err := EvaluateHand(b)
	if err != nil {
		return 0, err
	}
	return ka.Compare(kb), nil
}
