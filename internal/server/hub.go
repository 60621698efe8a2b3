package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"teenpatti-game/internal/game"
	"teenpatti-game/internal/protocol"
	"teenpatti-game/internal/settlement"
	"teenpatti-game/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const oracleTimeout = 5 * time.Second

var (
	errShowNotAllowed = fmt.Errorf("%w: show needs exactly two players in play", game.ErrInvalidAction)
	errNameTaken      = errors.New("name already taken in this room")
)

// clientMessage is a helper struct to pass messages along with the client reference.
type clientMessage struct {
	client  *Client
	message protocol.Message
}

// turnTimeout is posted by a room's watchdog timer when a player stalls.
type turnTimeout struct {
	roomID   string
	playerID string
	seq      uint64
}

type watchdog struct {
	timer *time.Timer
	seq   uint64
}

// Options are the table settings applied to every room the hub opens.
type Options struct {
	Game          game.Config
	StartingChips int64
	TurnTimeout   time.Duration // 0 disables the watchdog
	RakeBps       uint32
}

// Hub binds WebSocket sessions to rooms and runs every room mutation on one goroutine.
// Hub state is only touched from Run (or directly by tests that do not start Run).
type Hub struct {
	clients  map[*Client]bool
	sessions map[*Client]string              // client -> room id
	members  map[string]map[*Client]struct{} // room id -> bound clients
	turns    map[string]*watchdog            // room id -> turn timer

	registry *game.Registry
	oracle   settlement.Oracle
	opts     Options

	processMessage chan clientMessage
	register       chan *Client
	unregister     chan *Client
	timeouts       chan turnTimeout
	done           chan struct{}

	log *zap.Logger
}

// NewHub creates a new Hub instance.
func NewHub(registry *game.Registry, oracle settlement.Oracle, opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StartingChips <= 0 {
		opts.StartingChips = shared.DefaultStartingChips
	}
	return &Hub{
		clients:        make(map[*Client]bool),
		sessions:       make(map[*Client]string),
		members:        make(map[string]map[*Client]struct{}),
		turns:          make(map[string]*watchdog),
		registry:       registry,
		oracle:         oracle,
		opts:           opts,
		processMessage: make(chan clientMessage),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		timeouts:       make(chan turnTimeout),
		done:           make(chan struct{}),
		log:            logger.Named("hub"),
	}
}

// Run starts the Hub's main loop. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for roomID := range h.turns {
			h.stopTurnTimer(roomID)
		}
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub stopped", zap.Int("clients", len(h.clients)))
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case cm := <-h.processMessage:
			if !h.clients[cm.client] {
				continue // already unregistered, its read pump has not noticed yet
			}
			h.handleMessage(cm.client, cm.message)

		case ev := <-h.timeouts:
			h.handleTimeout(ev)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	h.clients[client] = true
	h.log.Debug("client connected", zap.String("client", client.ID))
}

func (h *Hub) removeClient(client *Client) {
	if !h.clients[client] {
		return
	}
	if _, ok := h.sessions[client]; ok {
		h.leave(client)
	}
	delete(h.clients, client)
	close(client.send)
	h.log.Info("client disconnected", zap.String("client", client.ID), zap.String("name", client.Name))
}

// handleMessage processes a message received from a client.
func (h *Hub) handleMessage(client *Client, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeCreateRoom:
		h.handleCreateRoom(client, msg)
	case protocol.TypeJoinRoom:
		h.handleJoinRoom(client, msg)
	case protocol.TypeStartGame:
		h.handleStartGame(client)
	case protocol.TypeSeeCards:
		h.handleAction(client, game.See())
	case protocol.TypePlayerAction:
		var payload protocol.PlayerActionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.sendError(client, "Invalid player_action message format.")
			return
		}
		action, err := game.ParseAction(payload.Action, payload.Amount)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		h.handleAction(client, action)
	case protocol.TypeShow:
		h.handleShow(client)
	case protocol.TypeLeaveRoom:
		if _, ok := h.sessions[client]; !ok {
			h.sendError(client, "You are not in a room.")
			return
		}
		h.leave(client)
	case protocol.TypePing:
		h.send(client, protocol.TypePong, nil)
	default:
		h.log.Debug("unknown message type", zap.String("type", msg.Type), zap.String("client", client.ID))
		h.sendError(client, "Unknown message type.")
	}
}

func (h *Hub) handleCreateRoom(client *Client, msg protocol.Message) {
	if _, ok := h.sessions[client]; ok {
		h.sendError(client, "Already in a room.")
		return
	}
	var payload protocol.CreateRoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendError(client, "Invalid create_room message format.")
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		h.sendError(client, "Name cannot be empty.")
		return
	}

	room, err := h.registry.Create(h.opts.Game)
	if err != nil {
		h.log.Error("create room failed", zap.Error(err))
		h.sendError(client, "Could not create room.")
		return
	}
	var state game.Snapshot
	err = room.Do(func(g *game.Game) error {
		if err := g.Seat(shared.NewPlayer(client.ID, name, client.ID, h.opts.StartingChips)); err != nil {
			return err
		}
		state = g.Snapshot()
		return nil
	})
	if err != nil {
		h.registry.Remove(room.ID)
		h.sendError(client, err.Error())
		return
	}
	client.Name = name
	h.bind(client, room.ID)

	h.log.Info("room created", zap.String("room", room.ID), zap.String("code", room.ShortCode), zap.String("player", client.ID))
	h.send(client, protocol.TypeRoomCreated, roomPayload(room, client.ID, state))
}

func (h *Hub) handleJoinRoom(client *Client, msg protocol.Message) {
	if _, ok := h.sessions[client]; ok {
		h.sendError(client, "Already in a room.")
		return
	}
	var payload protocol.JoinRoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendError(client, "Invalid join_room message format.")
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		h.sendError(client, "Name cannot be empty.")
		return
	}
	if payload.RoomCode == "" {
		h.sendError(client, "Room code cannot be empty.")
		return
	}
	room, err := h.registry.Lookup(strings.TrimSpace(payload.RoomCode))
	if err != nil {
		h.sendError(client, "Room not found.")
		return
	}

	var state game.Snapshot
	err = room.Do(func(g *game.Game) error {
		for _, p := range g.Players {
			if p.Name == name {
				return errNameTaken
			}
		}
		if err := g.Seat(shared.NewPlayer(client.ID, name, client.ID, h.opts.StartingChips)); err != nil {
			return err
		}
		state = g.Snapshot()
		return nil
	})
	if err != nil {
		h.sendError(client, err.Error())
		return
	}
	client.Name = name
	h.bind(client, room.ID)

	h.log.Info("player joined", zap.String("room", room.ID), zap.String("player", client.ID), zap.Int("seats", len(state.Players)))
	h.send(client, protocol.TypeRoomJoined, roomPayload(room, client.ID, state))
	h.broadcastExcept(room.ID, client, protocol.TypePlayerJoined, protocol.PlayerJoinedPayload{
		PlayerID:  client.ID,
		Name:      name,
		GameState: state,
	})
}

func (h *Hub) handleStartGame(client *Client) {
	room, ok := h.roomOf(client)
	if !ok {
		return
	}
	var (
		state game.Snapshot
		turn  protocol.TurnChangedPayload
	)
	err := room.Do(func(g *game.Game) error {
		if !g.CanStart() {
			if g.Started() {
				return game.ErrRoundInProgress
			}
			return game.ErrCannotStart
		}
		ids := make([]string, len(g.Players))
		for i, p := range g.Players {
			ids[i] = p.ID
		}
		ctx, cancel := context.WithTimeout(context.Background(), oracleTimeout)
		defer cancel()
		if err := h.oracle.ConfirmBuyIns(ctx, g.ID, ids); err != nil {
			h.log.Warn("buy-ins not confirmed", zap.String("room", g.ID), zap.Error(err))
			return fmt.Errorf("buy-ins not confirmed: %w", err)
		}
		if err := g.Start(); err != nil {
			return err
		}
		state = g.Snapshot()
		turn = turnChanged(g)
		return nil
	})
	if err != nil {
		h.reportError(client, err)
		return
	}
	h.broadcast(room.ID, protocol.TypeGameStarted, protocol.GameStatePayload{GameState: state})
	h.broadcast(room.ID, protocol.TypeTurnChanged, turn)
	h.armTurnTimer(room.ID, turn.CurrentPlayerID)
}

// outcome is everything a mutation needs to announce, captured under the room lock.
type outcome struct {
	state game.Snapshot
	turn  *protocol.TurnChangedPayload
	ended *protocol.GameEndedPayload
}

// resolve ends the round if it is decided, otherwise reports the new turn when it moved.
func resolve(g *game.Game, turnAdvanced bool) (outcome, error) {
	var out outcome
	if winner, decided := g.CheckWinner(); decided {
		s, err := g.EndRound(winner)
		if err != nil {
			return out, err
		}
		reason := protocol.ReasonFold
		if winner == nil {
			reason = protocol.ReasonNoPlayer
		}
		out.ended = gameEnded(s, reason, nil)
	} else if turnAdvanced {
		t := turnChanged(g)
		out.turn = &t
	}
	out.state = g.Snapshot()
	return out, nil
}

func (h *Hub) handleAction(client *Client, action game.Action) {
	room, ok := h.roomOf(client)
	if !ok {
		return
	}
	var (
		out   outcome
		res   game.ActionResult
		cards protocol.YourCardsPayload
	)
	err := room.Do(func(g *game.Game) error {
		var err error
		res, err = g.PlayerAction(client.ID, action)
		if err != nil {
			return err
		}
		if action.Kind == game.ActionSee {
			hand, err := g.Hand(client.ID)
			if err != nil {
				return err
			}
			cards.Cards = hand
			if key, err := shared.EvaluateHand(hand); err == nil {
				cards.Hand = key.Category
			}
		}
		out, err = resolve(g, res.TurnAdvanced)
		return err
	})
	if err != nil {
		h.reportError(client, err)
		return
	}

	if action.Kind == game.ActionSee {
		h.send(client, protocol.TypeYourCards, cards)
		h.broadcast(room.ID, protocol.TypePlayerSawCards, protocol.PlayerSawCardsPayload{PlayerID: client.ID, GameState: out.state})
		return
	}
	h.broadcast(room.ID, protocol.TypeActionDone, protocol.ActionPerformedPayload{
		PlayerID:  client.ID,
		Action:    res.Action.String(),
		Amount:    res.Amount,
		GameState: out.state,
	})
	h.publish(room.ID, out)
}

func (h *Hub) handleShow(client *Client) {
	room, ok := h.roomOf(client)
	if !ok {
		return
	}
	var out outcome
	err := room.Do(func(g *game.Game) error {
		if !g.Started() {
			return game.ErrRoundNotStarted
		}
		if cur := g.CurrentPlayer(); cur == nil || cur.ID != client.ID {
			return game.ErrNotYourTurn
		}
		if len(g.ActivePlayers()) != 2 {
			return errShowNotAllowed
		}
		winners, err := g.Showdown()
		if err != nil {
			return err
		}
		hands := g.RevealHands()
		var s game.Settlement
		if len(winners) == 1 {
			s, err = g.EndRound(winners[0])
		} else {
			s, err = g.SplitPot(winners)
		}
		if err != nil {
			return err
		}
		out.ended = gameEnded(s, protocol.ReasonShowdown, hands)
		out.state = g.Snapshot()
		return nil
	})
	if err != nil {
		h.reportError(client, err)
		return
	}
	h.publish(room.ID, out)
}

// leave takes a client out of its room, folding it first if a round is running.
func (h *Hub) leave(client *Client) {
	roomID := h.sessions[client]
	h.unbind(client)
	room, ok := h.registry.Get(roomID)
	if !ok {
		return
	}

	var (
		out   outcome
		empty bool
	)
	err := room.Do(func(g *game.Game) error {
		res, err := g.Leave(client.ID)
		if err != nil {
			return err
		}
		turnAdvanced := res.Fold != nil && res.Fold.TurnAdvanced
		if g.Started() {
			out, err = resolve(g, turnAdvanced)
			if err != nil {
				return err
			}
		} else {
			out.state = g.Snapshot()
		}
		empty = len(g.Players) == 0
		return nil
	})
	if err != nil {
		h.log.Error("leave failed", zap.String("room", roomID), zap.String("player", client.ID), zap.Error(err))
		return
	}

	h.log.Info("player left", zap.String("room", roomID), zap.String("player", client.ID))
	h.broadcast(roomID, protocol.TypePlayerLeft, protocol.PlayerLeftPayload{
		PlayerID:  client.ID,
		Name:      client.Name,
		GameState: out.state,
	})
	h.publish(roomID, out)
	if empty || len(h.members[roomID]) == 0 {
		h.closeRoom(roomID)
	}
}

func (h *Hub) handleTimeout(ev turnTimeout) {
	w, ok := h.turns[ev.roomID]
	if !ok || w.seq != ev.seq {
		return // stale timer
	}
	delete(h.turns, ev.roomID)
	room, ok := h.registry.Get(ev.roomID)
	if !ok {
		return
	}

	var (
		out outcome
		res game.ActionResult
	)
	err := room.Do(func(g *game.Game) error {
		cur := g.CurrentPlayer()
		if !g.Started() || cur == nil || cur.ID != ev.playerID {
			return nil
		}
		var err error
		res, err = g.PlayerAction(ev.playerID, game.Fold())
		if err != nil {
			return err
		}
		out, err = resolve(g, res.TurnAdvanced)
		return err
	})
	if err != nil {
		h.log.Error("turn timeout fold failed", zap.String("room", ev.roomID), zap.Error(err))
		return
	}
	if res.PlayerID == "" {
		return
	}

	h.log.Info("turn timed out", zap.String("room", ev.roomID), zap.String("player", ev.playerID))
	h.broadcast(ev.roomID, protocol.TypeActionDone, protocol.ActionPerformedPayload{
		PlayerID:  ev.playerID,
		Action:    res.Action.String(),
		GameState: out.state,
	})
	h.publish(ev.roomID, out)
}

// publish announces a turn change or a finished round and settles the payout.
func (h *Hub) publish(roomID string, out outcome) {
	switch {
	case out.ended != nil:
		h.stopTurnTimer(roomID)
		h.broadcast(roomID, protocol.TypeGameEnded, out.ended)
		h.submitPayout(out.ended.Settlement)
	case out.turn != nil:
		h.broadcast(roomID, protocol.TypeTurnChanged, out.turn)
		h.armTurnTimer(roomID, out.turn.CurrentPlayerID)
	}
}

func (h *Hub) submitPayout(s game.Settlement) {
	payout, err := settlement.NewPayout(s, h.opts.RakeBps)
	if errors.Is(err, settlement.ErrNoWinner) {
		h.log.Info("round refunded", zap.String("room", s.RoomID), zap.Int64("pot", s.Pot))
		return
	}
	if err != nil {
		h.log.Error("build payout", zap.String("room", s.RoomID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), oracleTimeout)
	defer cancel()
	if err := h.oracle.SubmitPayout(ctx, payout); err != nil {
		h.log.Error("submit payout", zap.String("room", s.RoomID), zap.Error(err))
	}
}

func (h *Hub) armTurnTimer(roomID, playerID string) {
	if h.opts.TurnTimeout <= 0 || playerID == "" {
		return
	}
	var seq uint64 = 1
	if w, ok := h.turns[roomID]; ok {
		w.timer.Stop()
		seq = w.seq + 1
	}
	ev := turnTimeout{roomID: roomID, playerID: playerID, seq: seq}
	h.turns[roomID] = &watchdog{
		seq: seq,
		timer: time.AfterFunc(h.opts.TurnTimeout, func() {
			select {
			case h.timeouts <- ev:
			case <-h.done:
			}
		}),
	}
}

func (h *Hub) stopTurnTimer(roomID string) {
	if w, ok := h.turns[roomID]; ok {
		w.timer.Stop()
		delete(h.turns, roomID)
	}
}

func (h *Hub) closeRoom(roomID string) {
	h.stopTurnTimer(roomID)
	for c := range h.members[roomID] {
		h.unbind(c)
	}
	h.registry.Remove(roomID)
}

func (h *Hub) bind(client *Client, roomID string) {
	h.sessions[client] = roomID
	if h.members[roomID] == nil {
		h.members[roomID] = make(map[*Client]struct{})
	}
	h.members[roomID][client] = struct{}{}
}

func (h *Hub) unbind(client *Client) {
	roomID, ok := h.sessions[client]
	if !ok {
		return
	}
	delete(h.sessions, client)
	delete(h.members[roomID], client)
	if len(h.members[roomID]) == 0 {
		delete(h.members, roomID)
	}
}

// roomOf resolves the client's room, reporting an error to the client when it has none.
func (h *Hub) roomOf(client *Client) (*game.Room, bool) {
	roomID, ok := h.sessions[client]
	if !ok {
		h.sendError(client, "You are not in a room.")
		return nil, false
	}
	room, ok := h.registry.Get(roomID)
	if !ok {
		h.unbind(client)
		h.sendError(client, "Room no longer exists.")
		return nil, false
	}
	return room, true
}

func (h *Hub) reportError(client *Client, err error) {
	if game.IsValidation(err) {
		h.log.Debug("action rejected", zap.String("client", client.ID), zap.Error(err))
	} else {
		h.log.Error("action failed", zap.String("client", client.ID), zap.Error(err))
	}
	h.sendError(client, err.Error())
}

func (h *Hub) sendError(client *Client, message string) {
	h.send(client, protocol.TypeError, protocol.ErrorPayload{Message: message})
}

// send queues a message without blocking the hub. A client whose buffer is full is dropped.
func (h *Hub) send(client *Client, msgType string, payload any) {
	b, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		h.log.Error("encode message", zap.String("type", msgType), zap.Error(err))
		return
	}
	h.deliver(client, b)
}

func (h *Hub) deliver(client *Client, b []byte) {
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- b:
	default:
		h.log.Warn("client send buffer full, disconnecting", zap.String("client", client.ID))
		go func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		}()
	}
}

func (h *Hub) broadcast(roomID, msgType string, payload any) {
	h.broadcastExcept(roomID, nil, msgType, payload)
}

func (h *Hub) broadcastExcept(roomID string, skip *Client, msgType string, payload any) {
	b, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		h.log.Error("encode broadcast", zap.String("type", msgType), zap.Error(err))
		return
	}
	for c := range h.members[roomID] {
		if c != skip {
			h.deliver(c, b)
		}
	}
}

func roomPayload(room *game.Room, playerID string, state game.Snapshot) protocol.RoomPayload {
	return protocol.RoomPayload{
		RoomID:      room.ID,
		ShortRoomID: room.ShortCode,
		DisplayName: game.FormatRoomID(room.ID),
		PlayerID:    playerID,
		GameState:   state,
	}
}

func turnChanged(g *game.Game) protocol.TurnChangedPayload {
	t := protocol.TurnChangedPayload{CurrentPlayerIndex: g.CurrentPlayerIndex}
	if p := g.CurrentPlayer(); p != nil {
		t.CurrentPlayerID = p.ID
		t.CurrentPlayerName = p.Name
		t.MinBet, t.MaxBet = g.BetRange(p)
	}
	return t
}

func gameEnded(s game.Settlement, reason string, hands map[string][]shared.Card) *protocol.GameEndedPayload {
	return &protocol.GameEndedPayload{
		Winner:     s.WinnerID,
		Winners:    s.WinnerIDs,
		Pot:        s.Pot,
		Reason:     reason,
		AllCards:   hands,
		Settlement: s,
	}
}
