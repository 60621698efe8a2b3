package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"teenpatti-game/internal/database"
	"teenpatti-game/internal/game"
	"teenpatti-game/internal/settlement"

	"cosmossdk.io/math"
	"go.uber.org/zap"
)

// ResultStore is the read side of the round ledger.
type ResultStore interface {
	GetAll() ([]database.RoundResult, error)
	GetByPlayer(name string) ([]database.RoundResult, error)
}

// API serves the read-only HTTP endpoints.
type API struct {
	Results  ResultStore
	Rooms    *game.Registry
	Exchange settlement.Exchange
	Log      *zap.Logger
}

type roomView struct {
	ShortRoomID string        `json:"short_room_id"`
	DisplayName string        `json:"display_name"`
	GameState   game.Snapshot `json:"game_state"`
}

type quoteView struct {
	Wei          math.Int `json:"wei"`
	Tokens       math.Int `json:"tokens"`
	TokensPerWei int64    `json:"tokens_per_wei"`
	BuyFeeBps    uint32   `json:"buy_fee_bps"`
}

// HandleRoutes registers the API on mux.
func HandleRoutes(mux *http.ServeMux, api *API) {
	if api.Log == nil {
		api.Log = zap.NewNop()
	}
	mux.HandleFunc("GET /api/results", api.GetResultsHandler)
	mux.HandleFunc("GET /api/results/player/{name}", api.GetResultsByPlayerHandler)
	mux.HandleFunc("GET /api/rooms", api.ListRoomsHandler)
	mux.HandleFunc("GET /api/rooms/{code}", api.GetRoomHandler)
	mux.HandleFunc("GET /api/exchange/quote", api.QuoteHandler)
	api.Log.Debug("registered api routes")
}

func (a *API) GetResultsByPlayerHandler(w http.ResponseWriter, r *http.Request) {
	player := r.PathValue("name")
	if player == "" {
		http.Error(w, "Player name is required", http.StatusBadRequest)
		return
	}

	results, err := a.Results.GetByPlayer(player)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "No results found for player", http.StatusNotFound)
		return
	}
	if err != nil {
		a.Log.Error("fetch results by player", zap.String("player", player), zap.Error(err))
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, results)
}

func (a *API) GetResultsHandler(w http.ResponseWriter, r *http.Request) {
	results, err := a.Results.GetAll()
	if err != nil {
		a.Log.Error("fetch results", zap.Error(err))
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, results)
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.Rooms.List())
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := a.Rooms.Lookup(r.PathValue("code"))
	if err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	a.writeJSON(w, roomView{
		ShortRoomID: room.ShortCode,
		DisplayName: game.FormatRoomID(room.ID),
		GameState:   room.Snapshot(),
	})
}

func (a *API) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	wei, ok := math.NewIntFromString(r.URL.Query().Get("wei"))
	if !ok {
		http.Error(w, "wei must be an integer", http.StatusBadRequest)
		return
	}
	tokens, err := a.Exchange.TokensForWei(wei)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.writeJSON(w, quoteView{
		Wei:          wei,
		Tokens:       tokens,
		TokensPerWei: a.Exchange.TokensPerWei,
		BuyFeeBps:    a.Exchange.BuyFeeBps,
	})
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Log.Warn("encode response", zap.Error(err))
	}
}
