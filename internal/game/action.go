package game

import (
	"fmt"
	"strings"
)

// ActionKind is the closed set of in-turn player actions.
type ActionKind int

const (
	ActionFold ActionKind = iota + 1
	ActionSee
	ActionBet
)

func (k ActionKind) String() string {
	switch k {
	case ActionFold:
		return "fold"
	case ActionSee:
		return "see"
	case ActionBet:
		return "bet"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is a player's move with its payload. Amount is only used by ActionBet.
type Action struct {
	Kind   ActionKind
	Amount int64
}

func Fold() Action            { return Action{Kind: ActionFold} }
func See() Action             { return Action{Kind: ActionSee} }
func Bet(amount int64) Action { return Action{Kind: ActionBet, Amount: amount} }

// ParseAction maps a wire token to an Action. "pack" is a synonym for fold and "chaal" for bet.
func ParseAction(token string, amount int64) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "fold", "pack":
		return Fold(), nil
	case "see":
		return See(), nil
	case "bet", "chaal":
		return Bet(amount), nil
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, token)
	}
}
