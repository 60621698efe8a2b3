package protocol

import (
	"encoding/json"

	"teenpatti-game/internal/game"
	"teenpatti-game/internal/shared"
)

// Message represents a generic WebSocket message structure.
type Message struct {
	Type    string          `json:"type"`              // e.g. "join_room", "player_action"
	Payload json.RawMessage `json:"payload,omitempty"` // Decoded per type
}

// Client -> server message types.
const (
	TypeCreateRoom   = "create_room"
	TypeJoinRoom     = "join_room"
	TypeStartGame    = "start_game"
	TypeSeeCards     = "see_cards"
	TypePlayerAction = "player_action"
	TypeShow         = "show"
	TypeLeaveRoom    = "leave_room"
	TypePing         = "ping"
)

// Server -> client message types.
const (
	TypeRoomCreated    = "room_created"
	TypeRoomJoined     = "room_joined"
	TypePlayerJoined   = "player_joined"
	TypeGameStarted    = "game_started"
	TypeYourCards      = "your_cards"
	TypePlayerSawCards = "player_saw_cards"
	TypeActionDone     = "action_performed"
	TypeTurnChanged    = "turn_changed"
	TypeGameEnded      = "game_ended"
	TypePlayerLeft     = "player_left"
	TypeError          = "error"
	TypePong           = "pong"
)

// Reasons carried by game_ended.
const (
	ReasonFold     = "fold"
	ReasonShowdown = "showdown"
	ReasonNoPlayer = "no_players"
)

// --- Client -> Server Payload Structs ---

type CreateRoomPayload struct {
	Name string `json:"name"`
}

type JoinRoomPayload struct {
	Name     string `json:"name"`
	RoomCode string `json:"room_code"` // Short code or full room id
}

type PlayerActionPayload struct {
	Action string `json:"action"` // fold, pack, see, bet, chaal
	Amount int64  `json:"amount,omitempty"`
}

// --- Server -> Client Payload Structs ---

type RoomPayload struct {
	RoomID      string        `json:"room_id"`
	ShortRoomID string        `json:"short_room_id"`
	DisplayName string        `json:"display_name"`
	PlayerID    string        `json:"player_id"`
	GameState   game.Snapshot `json:"game_state"`
}

type PlayerJoinedPayload struct {
	PlayerID  string        `json:"player_id"`
	Name      string        `json:"name"`
	GameState game.Snapshot `json:"game_state"`
}

type GameStatePayload struct {
	GameState game.Snapshot `json:"game_state"`
}

type YourCardsPayload struct {
	Cards []shared.Card       `json:"cards"`
	Hand  shared.HandCategory `json:"hand"`
}

type PlayerSawCardsPayload struct {
	PlayerID  string        `json:"player_id"`
	GameState game.Snapshot `json:"game_state"`
}

type ActionPerformedPayload struct {
	PlayerID  string        `json:"player_id"`
	Action    string        `json:"action"`
	Amount    int64         `json:"amount,omitempty"`
	GameState game.Snapshot `json:"game_state"`
}

type TurnChangedPayload struct {
	CurrentPlayerID    string `json:"current_player_id"`
	CurrentPlayerName  string `json:"current_player_name"`
	CurrentPlayerIndex int    `json:"current_player_index"`
	MinBet             int64  `json:"min_bet"` // Legal bet range for the player to act
	MaxBet             int64  `json:"max_bet"`
}

type GameEndedPayload struct {
	Winner     string                   `json:"winner,omitempty"`
	Winners    []string                 `json:"winners,omitempty"`
	Pot        int64                    `json:"pot"`
	Reason     string                   `json:"reason"`
	AllCards   map[string][]shared.Card `json:"all_cards,omitempty"` // Only after a showdown
	Settlement game.Settlement          `json:"settlement"`
}

type PlayerLeftPayload struct {
	PlayerID  string        `json:"player_id"`
	Name      string        `json:"player_name"`
	GameState game.Snapshot `json:"game_state"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewMessage encodes a typed envelope. A nil payload is omitted.
func NewMessage(msgType string, payload any) ([]byte, error) {
	msg := Message{Type: msgType}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = b
	}
	return json.Marshal(msg)
}
