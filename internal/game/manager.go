package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"go.uber.org/zap"
)

var (
	// ErrGameNotFound is returned for an unknown game id.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameMismatch is returned when an imported snapshot belongs to another game.
	ErrGameMismatch = errors.New("snapshot belongs to a different game")
)

// Notification is sent to the notification handler after every applied move.
type Notification struct {
	GameID    string
	State     *State
	Events    []rules.Event
	Timestamp time.Time
}

// NotificationHandler receives notifications for UI and network peers.
type NotificationHandler func(notification Notification)

// Session is the single writer for one game. Moves are serialised by its mutex and
// every reader gets its own copy of the state.
type Session struct {
	ID string

	engine   *Engine
	logger   *zap.Logger
	bus      *rules.EventBus
	recorder *ReplayRecorder
	notify   func() NotificationHandler

	mu    sync.Mutex
	state *State
}

// Apply runs a move against the current state. It reports whether the move changed
// anything; ignored moves leave the session untouched.
func (s *Session) Apply(move Move) (*State, bool) {
	s.mu.Lock()
	next, events := s.engine.Step(s.state, move)
	changed := next != s.state
	if changed {
		s.state = next
		// Recorded under the lock so frames keep the order moves were applied in.
		if s.recorder != nil {
			s.recorder.RecordMove(s.ID, move, next)
		}
	}
	s.mu.Unlock()

	if !changed {
		return next.Clone(), false
	}

	now := time.Now()
	for i := range events {
		events[i].Timestamp = now
	}
	s.bus.PublishBatch(events)

	if s.logger != nil {
		s.logger.Debug("move applied",
			zap.String("game_id", s.ID),
			zap.String("action", string(move.Action)),
			zap.String("phase", next.Phase.String()),
			zap.Int("events", len(events)),
		)
	}

	if handler := s.notify(); handler != nil {
		go handler(Notification{
			GameID:    s.ID,
			State:     next.Clone(),
			Events:    events,
			Timestamp: now,
		})
	}
	return next.Clone(), true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// Replace installs a snapshot received from a peer after checking its checksum.
func (s *Session) Replace(data []byte) error {
	state, err := UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	if state.GameID != s.ID {
		return fmt.Errorf("%w: %s", ErrGameMismatch, state.GameID)
	}

	s.mu.Lock()
	s.state = state
	if s.recorder != nil && s.recorder.IsRecording(s.ID) {
		// Earlier frames no longer lead to this state.
		if err := s.recorder.StartRecording(s.ID, state); err != nil && s.logger != nil {
			s.logger.Warn("failed to restart replay", zap.String("game_id", s.ID), zap.Error(err))
		}
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("session state replaced",
			zap.String("game_id", s.ID),
			zap.Int("turn", state.Turn),
		)
	}
	return nil
}

// Events exposes the session's event bus.
func (s *Session) Events() *rules.EventBus {
	return s.bus
}

// Manager owns the running sessions.
type Manager struct {
	logger   *zap.Logger
	engine   *Engine
	recorder *ReplayRecorder

	mu                  sync.RWMutex
	sessions            map[string]*Session
	notificationHandler NotificationHandler
}

// NewManager creates a manager. recorder may be nil to disable replays.
func NewManager(logger *zap.Logger, recorder *ReplayRecorder) *Manager {
	return &Manager{
		logger:   logger,
		engine:   NewEngine(logger),
		recorder: recorder,
		sessions: make(map[string]*Session),
	}
}

// Engine returns the engine shared by every session.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// SetNotificationHandler sets the handler called after each applied move.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationHandler = handler
}

func (m *Manager) handler() NotificationHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notificationHandler
}

// CreateGame opens a new session in the lobby. A nil deck uses the standard deck.
func (m *Manager) CreateGame(seats [rules.PlayerCount]Seat, deck []cards.Card, seed uint64) (*Session, error) {
	if deck == nil {
		deck = cards.StandardDeck()
	}
	if len(deck) < rules.PlayerCount*rules.StartingHand {
		return nil, fmt.Errorf("deck has %d cards, need at least %d", len(deck), rules.PlayerCount*rules.StartingHand)
	}

	id := uuid.NewString()
	session := &Session{
		ID:       id,
		engine:   m.engine,
		logger:   m.logger,
		bus:      rules.NewEventBus(),
		recorder: m.recorder,
		notify:   m.handler,
		state:    NewState(id, seats, deck, seed),
	}
	if m.recorder != nil {
		if err := m.recorder.StartRecording(id, session.state); err != nil {
			return nil, fmt.Errorf("failed to start replay: %w", err)
		}
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("game created",
			zap.String("game_id", id),
			zap.String("seat0", seats[0].Name),
			zap.String("seat1", seats[1].Name),
			zap.Uint64("seed", seed),
		)
	}
	return session, nil
}

// Restore reopens a game from a snapshot envelope, for instance one kept in a cache
// across a restart. An already running game is left alone.
func (m *Manager) Restore(data []byte) (*Session, error) {
	state, err := UnmarshalSnapshot(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[state.GameID]; ok {
		return existing, nil
	}
	session := &Session{
		ID:       state.GameID,
		engine:   m.engine,
		logger:   m.logger,
		bus:      rules.NewEventBus(),
		recorder: m.recorder,
		notify:   m.handler,
		state:    state,
	}
	if m.recorder != nil {
		if err := m.recorder.StartRecording(state.GameID, state); err != nil {
			return nil, fmt.Errorf("failed to start replay: %w", err)
		}
	}
	m.sessions[state.GameID] = session

	if m.logger != nil {
		m.logger.Info("game restored",
			zap.String("game_id", state.GameID),
			zap.Int("turn", state.Turn),
		)
	}
	return session, nil
}

// Get returns a running session.
func (m *Manager) Get(gameID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return session, nil
}

// List returns the ids of running games in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EndGame closes a session and writes its replay to disk.
func (m *Manager) EndGame(gameID string) error {
	m.mu.Lock()
	session, ok := m.sessions[gameID]
	delete(m.sessions, gameID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	if m.recorder != nil {
		m.recorder.StopRecording(gameID)
		if err := m.recorder.SaveReplay(gameID); err != nil {
			return err
		}
	}

	if m.logger != nil {
		final := session.Snapshot()
		fields := []zap.Field{zap.String("game_id", gameID), zap.Int("turns", final.Turn)}
		if final.Winner != nil {
			fields = append(fields, zap.String("winner", final.Players[*final.Winner].Name))
		}
		m.logger.Info("game ended", fields...)
	}
	return nil
}
