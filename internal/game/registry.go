package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrShortCodeTaken = errors.New("room code already in use")
)

const maxCodeAttempts = 32

// Room owns one Game behind a lock. All access to the game goes through Do.
type Room struct {
	ID        string
	ShortCode string

	mu   sync.Mutex
	game *Game
}

// Do runs fn with exclusive access to the room's game.
func (r *Room) Do(fn func(g *Game) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.game)
}

// Snapshot returns the room's public state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Snapshot()
}

// RoomInfo summarizes a room for listings.
type RoomInfo struct {
	ID        string `json:"room_id"`
	ShortCode string `json:"short_room_id"`
	Seats     int    `json:"seats"`
	MaxSeats  int    `json:"max_seats"`
	Started   bool   `json:"game_started"`
}

// Registry maps room ids to rooms. Rooms are independent; the registry lock only guards the maps.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	byShort map[string]string // short code -> room id
	log     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		byShort: make(map[string]string),
		log:     logger,
	}
}

// Create opens a room with a generated id whose short code is unique among live rooms.
func (reg *Registry) Create(cfg Config) (*Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")
		room, err := reg.Register(id, cfg)
		if errors.Is(err, ErrShortCodeTaken) {
			reg.log.Debug("generated room code collided, retrying", zap.String("code", ShortCode(id)))
			continue
		}
		return room, err
	}
	return nil, fmt.Errorf("create room: %w after %d attempts", ErrShortCodeTaken, maxCodeAttempts)
}

// Register opens a room under an externally chosen id, e.g. an escrow contract's room id.
func (reg *Registry) Register(id string, cfg Config) (*Room, error) {
	if id == "" {
		return nil, errors.New("register room: empty id")
	}
	code := ShortCode(id)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomExists, id)
	}
	if _, ok := reg.byShort[code]; ok {
		return nil, fmt.Errorf("%w: %s", ErrShortCodeTaken, code)
	}
	if cfg.Logger == nil {
		cfg.Logger = reg.log
	}
	room := &Room{ID: id, ShortCode: code, game: NewGame(id, cfg)}
	reg.rooms[id] = room
	reg.byShort[code] = id
	reg.log.Info("room opened", zap.String("room", id), zap.String("code", code))
	return room, nil
}

// Get returns a room by its full id.
func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	return room, ok
}

// Lookup resolves a short code (any case) or a full id.
func (reg *Registry) Lookup(codeOrID string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if room, ok := reg.rooms[codeOrID]; ok {
		return room, nil
	}
	if IsValidShortCode(codeOrID) {
		if id, ok := reg.byShort[strings.ToUpper(codeOrID)]; ok {
			return reg.rooms[id], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, codeOrID)
}

// Remove closes a room. It returns false if the room did not exist.
func (reg *Registry) Remove(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok {
		return false
	}
	delete(reg.rooms, id)
	delete(reg.byShort, room.ShortCode)
	reg.log.Info("room closed", zap.String("room", id))
	return true
}

// Len returns the number of open rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// List summarizes all open rooms ordered by short code.
func (reg *Registry) List() []RoomInfo {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		_ = room.Do(func(g *Game) error {
			infos = append(infos, RoomInfo{
				ID:        room.ID,
				ShortCode: room.ShortCode,
				Seats:     len(g.Players),
				MaxSeats:  g.MaxPlayers,
				Started:   g.Started(),
			})
			return nil
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ShortCode < infos[j].ShortCode })
	return infos
}
