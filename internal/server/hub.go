package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/propdeal/propdeal-server-go/internal/ai"
	"github.com/propdeal/propdeal-server-go/internal/cache"
	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"github.com/propdeal/propdeal-server-go/internal/repository"
	"go.uber.org/zap"
)

var (
	// ErrNotYourTurn is returned when a seat sends a move it may not make.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrGameOver is returned when joining a game that has finished.
	ErrGameOver = errors.New("game is over")
)

var (
	// errMoveIgnored tells a client the engine did not accept its move.
	errMoveIgnored = errors.New("move ignored")
	errInternal    = errors.New("internal error")
)

const storeTimeout = 5 * time.Second

// SnapshotStore keeps the latest snapshot envelope per game.
type SnapshotStore interface {
	Put(ctx context.Context, gameID string, data []byte) error
	Get(ctx context.Context, gameID string) ([]byte, error)
}

// ResultStore keeps finished games.
type ResultStore interface {
	SaveResult(ctx context.Context, result repository.GameResult) error
	ListRecent(ctx context.Context, limit int) ([]repository.GameResult, error)
}

// DeckSource loads named card catalogs.
type DeckSource interface {
	LoadDeck(ctx context.Context, name string) ([]cards.Card, error)
}

// Options wires a hub. Only Manager is required.
type Options struct {
	Manager        *game.Manager
	Seats          *SeatRegistry
	Proposer       ai.Proposer
	Driver         ai.DriverConfig
	Snapshots      SnapshotStore
	Results        ResultStore
	Decks          DeckSource
	DeckName       string
	PublicURL      string
	AllowedOrigins []string
	Logger         *zap.Logger
}

type delivery struct {
	gameID  string
	payload []byte
}

// agent runs the automated seats of one game. Wakes are coalesced.
type agent struct {
	session *game.Session
	driver  *ai.Driver
	wake    chan struct{}
	stop    context.CancelFunc
}

// Hub routes websocket traffic to game sessions and fans state out to every client
// following a game.
type Hub struct {
	opts    Options
	logger  *zap.Logger
	manager *game.Manager
	seats   *SeatRegistry

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	// notifyMu keeps the order in which snapshots are read and queued.
	notifyMu sync.Mutex

	agentsMu sync.Mutex
	agents   map[string]*agent
	finished map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub and subscribes it to the manager's notifications.
func NewHub(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Seats == nil {
		opts.Seats = NewSeatRegistry(0)
	}
	if opts.Proposer == nil {
		opts.Proposer = ai.NewHeuristicProposer()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		opts:       opts,
		logger:     logger,
		manager:    opts.Manager,
		seats:      opts.Seats,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 64),
		agents:     make(map[string]*agent),
		finished:   make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
	opts.Manager.SetNotificationHandler(h.Notify)
	return h
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.cancel()
		for client := range h.clients {
			client.close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client registered", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				h.logger.Debug("client unregistered",
					zap.String("game_id", client.following()),
					zap.Int("clients", len(h.clients)),
				)
			}

		case d := <-h.deliver:
			for client := range h.clients {
				if client.following() != d.gameID {
					continue
				}
				if !client.enqueue(d.payload) {
					delete(h.clients, client)
					client.close()
					h.logger.Warn("dropping slow client", zap.String("game_id", d.gameID))
				}
			}
		}
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) handleMessage(c *Client, msg Message) {
	var err error
	switch msg.Type {
	case MsgCreateGame:
		err = h.createGame(c, msg)
	case MsgJoinGame:
		err = h.joinGame(c, msg)
	case MsgMove:
		err = h.applyMove(msg)
	case MsgSnapshot:
		err = h.sendSnapshot(c, msg.GameID)
	case MsgSync:
		err = h.syncSnapshot(msg)
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}
	if err != nil {
		h.logger.Debug("request rejected",
			zap.String("type", msg.Type),
			zap.String("game_id", msg.GameID),
			zap.Error(err),
		)
		c.sendError(msg.GameID, err)
	}
}

func (h *Hub) createGame(c *Client, msg Message) error {
	var req CreateGameRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("bad create_game data: %w", err)
		}
	}
	seats := [rules.PlayerCount]game.Seat{
		{Name: req.Name},
		{Name: req.Opponent, IsAI: req.VsAI},
	}
	if seats[0].Name == "" {
		seats[0].Name = "Player 1"
	}
	if seats[1].Name == "" {
		seats[1].Name = "Player 2"
		if req.VsAI {
			seats[1].Name = "Computer"
		}
	}
	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}

	deck, err := h.loadDeck()
	if err != nil {
		return err
	}
	session, err := h.manager.CreateGame(seats, deck, seed)
	if err != nil {
		return err
	}
	token, err := h.seats.Claim(session.ID, 0)
	if err != nil {
		return err
	}
	if err := h.seat(c, session, 0, token); err != nil {
		return err
	}
	h.startIfReady(session)
	return nil
}

func (h *Hub) loadDeck() ([]cards.Card, error) {
	if h.opts.Decks == nil || h.opts.DeckName == "" || h.opts.DeckName == "standard" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
	defer cancel()
	deck, err := h.opts.Decks.LoadDeck(ctx, h.opts.DeckName)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck %s: %w", h.opts.DeckName, err)
	}
	return deck, nil
}

// joinGame reconnects a seat holder, or claims the first free human seat.
func (h *Hub) joinGame(c *Client, msg Message) error {
	session, err := h.session(msg.GameID)
	if err != nil {
		return err
	}

	if msg.Token != "" {
		if err := h.seats.Verify(session.ID, msg.Seat, msg.Token); err != nil {
			return err
		}
		return h.seat(c, session, msg.Seat, "")
	}

	state := session.Snapshot()
	for seat, p := range state.Players {
		if p.IsAI || h.seats.Claimed(session.ID, seat) {
			continue
		}
		token, err := h.seats.Claim(session.ID, seat)
		if errors.Is(err, ErrSeatTaken) {
			continue
		}
		if err != nil {
			return err
		}
		if err := h.seat(c, session, seat, token); err != nil {
			return err
		}
		h.startIfReady(session)
		return nil
	}
	return ErrSeatTaken
}

// seat attaches the client to a game and sends it the current state.
func (h *Hub) seat(c *Client, session *game.Session, seat int, token string) error {
	c.join(session.ID, seat)
	payload, err := encode(MsgJoined, session.ID, seat, JoinedPayload{GameID: session.ID, Seat: seat, Token: token})
	if err != nil {
		return err
	}
	c.enqueue(payload)
	h.logger.Info("seat joined", zap.String("game_id", session.ID), zap.Int("seat", seat))
	return h.sendSnapshot(c, session.ID)
}

// startIfReady deals once every human seat has a holder.
func (h *Hub) startIfReady(session *game.Session) {
	state := session.Snapshot()
	if state.Phase != rules.PhaseLobby {
		return
	}
	for seat, p := range state.Players {
		if !p.IsAI && !h.seats.Claimed(session.ID, seat) {
			return
		}
	}
	session.Apply(game.Move{Action: game.MoveStartGame})
	session.Apply(game.Move{Action: game.MoveStartTurn})
	h.kick(session)
}

// session finds a running game, falling back to the snapshot cache.
func (h *Hub) session(gameID string) (*game.Session, error) {
	session, err := h.manager.Get(gameID)
	if err == nil || h.opts.Snapshots == nil {
		return session, err
	}
	ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
	defer cancel()
	data, cacheErr := h.opts.Snapshots.Get(ctx, gameID)
	if cacheErr != nil {
		if !errors.Is(cacheErr, cache.ErrMiss) {
			h.logger.Warn("snapshot cache lookup failed", zap.String("game_id", gameID), zap.Error(cacheErr))
		}
		return nil, err
	}
	restored, err := h.manager.Restore(data)
	if err != nil {
		return nil, err
	}
	if restored.Snapshot().Over() {
		h.manager.EndGame(gameID)
		return nil, fmt.Errorf("%w: %s", ErrGameOver, gameID)
	}
	return restored, nil
}

func (h *Hub) applyMove(msg Message) error {
	session, err := h.manager.Get(msg.GameID)
	if err != nil {
		return err
	}
	if err := h.seats.Verify(session.ID, msg.Seat, msg.Token); err != nil {
		return err
	}
	var move game.Move
	if err := json.Unmarshal(msg.Data, &move); err != nil {
		return fmt.Errorf("bad move: %w", err)
	}
	if !mayMove(session.Snapshot(), msg.Seat, move) {
		return ErrNotYourTurn
	}

	next, applied := session.Apply(move)
	if !applied {
		return errMoveIgnored
	}
	if next.Phase == rules.PhaseStartTurn {
		session.Apply(game.Move{Action: game.MoveStartTurn})
	}
	h.kick(session)
	return nil
}

// mayMove reports whether seat is the one that has to act for this move.
func mayMove(s *game.State, seat int, move game.Move) bool {
	if move.Action == game.MoveRespond {
		responder, open := s.AwaitingResponse()
		return open && responder == seat
	}
	return seat == s.ActivePlayer
}

func (h *Hub) syncSnapshot(msg Message) error {
	session, err := h.manager.Get(msg.GameID)
	if err != nil {
		return err
	}
	if err := h.seats.Verify(session.ID, msg.Seat, msg.Token); err != nil {
		return err
	}
	if err := session.Replace(msg.Data); err != nil {
		return err
	}
	h.Notify(game.Notification{GameID: session.ID, State: session.Snapshot(), Timestamp: time.Now()})
	h.kick(session)
	return nil
}

// sendSnapshot sends the running state, or the cached one of a finished game.
func (h *Hub) sendSnapshot(c *Client, gameID string) error {
	var snapshot []byte
	if session, err := h.manager.Get(gameID); err == nil {
		snapshot, err = game.MarshalSnapshot(session.Snapshot())
		if err != nil {
			return err
		}
	} else {
		if h.opts.Snapshots == nil {
			return err
		}
		ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
		defer cancel()
		if snapshot, err = h.opts.Snapshots.Get(ctx, gameID); err != nil {
			return fmt.Errorf("%w: %s", game.ErrGameNotFound, gameID)
		}
	}
	payload, err := encode(MsgState, gameID, -1, StatePayload{Snapshot: snapshot})
	if err != nil {
		return err
	}
	c.enqueue(payload)
	return nil
}

func statePayload(gameID string, state *game.State, events []rules.Event) ([]byte, []byte, error) {
	snapshot, err := game.MarshalSnapshot(state)
	if err != nil {
		return nil, nil, err
	}
	payload, err := encode(MsgState, gameID, -1, StatePayload{Snapshot: snapshot, Events: events})
	if err != nil {
		return nil, nil, err
	}
	return payload, snapshot, nil
}

// Notify broadcasts a session change. It is the manager's notification handler.
func (h *Hub) Notify(n game.Notification) {
	if h.isFinished(n.GameID) {
		return
	}
	h.notifyMu.Lock()
	state := n.State
	if session, err := h.manager.Get(n.GameID); err == nil {
		// The newest state, so a late notification never rolls clients back.
		state = session.Snapshot()
	}
	payload, snapshot, err := statePayload(n.GameID, state, n.Events)
	if err != nil {
		h.notifyMu.Unlock()
		h.logger.Error("failed to encode state", zap.String("game_id", n.GameID), zap.Error(err))
		return
	}
	select {
	case h.deliver <- delivery{gameID: n.GameID, payload: payload}:
	case <-h.ctx.Done():
	}
	h.notifyMu.Unlock()

	if h.opts.Snapshots != nil {
		ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
		if err := h.opts.Snapshots.Put(ctx, n.GameID, snapshot); err != nil {
			h.logger.Warn("failed to cache snapshot", zap.String("game_id", n.GameID), zap.Error(err))
		}
		cancel()
	}
	if state.Over() {
		h.finish(n.GameID, state)
	}
}

func (h *Hub) isFinished(gameID string) bool {
	h.agentsMu.Lock()
	defer h.agentsMu.Unlock()
	return h.finished[gameID]
}

// finish stores a finished game once and releases its resources.
func (h *Hub) finish(gameID string, final *game.State) {
	h.agentsMu.Lock()
	if h.finished[gameID] {
		h.agentsMu.Unlock()
		return
	}
	h.finished[gameID] = true
	if ag, ok := h.agents[gameID]; ok {
		ag.stop()
		delete(h.agents, gameID)
	}
	h.agentsMu.Unlock()

	if h.opts.Results != nil {
		result, err := repository.NewGameResult(final)
		if err == nil {
			ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
			err = h.opts.Results.SaveResult(ctx, result)
			cancel()
		}
		if err != nil {
			h.logger.Error("failed to save game result", zap.String("game_id", gameID), zap.Error(err))
		}
	}
	if err := h.manager.EndGame(gameID); err != nil && !errors.Is(err, game.ErrGameNotFound) {
		h.logger.Error("failed to end game", zap.String("game_id", gameID), zap.Error(err))
	}
	h.seats.Forget(gameID)
}

// kick wakes the automated player of a game that has one.
func (h *Hub) kick(session *game.Session) {
	state := session.Snapshot()
	hasAI := false
	for _, p := range state.Players {
		hasAI = hasAI || p.IsAI
	}
	if !hasAI || state.Over() {
		return
	}

	h.agentsMu.Lock()
	ag, ok := h.agents[session.ID]
	if !ok {
		if h.finished[session.ID] {
			h.agentsMu.Unlock()
			return
		}
		ctx, stop := context.WithCancel(h.ctx)
		ag = &agent{
			session: session,
			driver:  ai.NewDriver(h.opts.Proposer, h.opts.Driver, h.logger.With(zap.String("game_id", session.ID))),
			wake:    make(chan struct{}, 1),
			stop:    stop,
		}
		h.agents[session.ID] = ag
		go h.runAgent(ctx, ag)
	}
	h.agentsMu.Unlock()

	select {
	case ag.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) runAgent(ctx context.Context, ag *agent) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ag.wake:
			err := ag.driver.Run(ctx, ag.session)
			if err != nil && ctx.Err() == nil {
				h.logger.Warn("automated player stopped", zap.String("game_id", ag.session.ID), zap.Error(err))
			}
		}
	}
}

// Close stops every automated player.
func (h *Hub) Close() {
	h.cancel()
}
