package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/propdeal/propdeal-server-go/internal/cache"
	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/game/assets"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"github.com/propdeal/propdeal-server-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memorySnapshots struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memorySnapshots) Put(_ context.Context, gameID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[gameID] = append([]byte(nil), data...)
	return nil
}

func (m *memorySnapshots) Get(_ context.Context, gameID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[gameID]
	if !ok {
		return nil, cache.ErrMiss
	}
	return data, nil
}

func (m *memorySnapshots) has(gameID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[gameID]
	return ok
}

type memoryResults struct {
	mu    sync.Mutex
	saved []repository.GameResult
}

func (m *memoryResults) SaveResult(_ context.Context, result repository.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, result)
	return nil
}

func (m *memoryResults) ListRecent(_ context.Context, limit int) ([]repository.GameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.saved) {
		limit = len(m.saved)
	}
	return append([]repository.GameResult(nil), m.saved[:limit]...), nil
}

func (m *memoryResults) all() []repository.GameResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.GameResult(nil), m.saved...)
}

type testHub struct {
	hub       *Hub
	server    *httptest.Server
	snapshots *memorySnapshots
	results   *memoryResults
}

// newTestHub runs a hub behind a test server. Background goroutines outlive each
// test briefly, so the hub logs to a no-op logger.
func newTestHub(t *testing.T) *testHub {
	t.Helper()
	th := &testHub{
		snapshots: &memorySnapshots{data: make(map[string][]byte)},
		results:   &memoryResults{},
	}
	th.hub = NewHub(Options{
		Manager:   game.NewManager(zap.NewNop(), nil),
		Seats:     NewSeatRegistry(bcrypt.MinCost),
		Snapshots: th.snapshots,
		Results:   th.results,
		PublicURL: "https://deal.example",
		Logger:    zap.NewNop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	go th.hub.Run(ctx)
	th.server = httptest.NewServer(th.hub.Handler())
	t.Cleanup(func() {
		th.server.Close()
		cancel()
	})
	return th
}

func (th *testHub) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(th.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg Message, data any) {
	t.Helper()
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		msg.Data = raw
	}
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Message) bool) Message {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func decodeState(t *testing.T, msg Message) *game.State {
	t.Helper()
	var payload StatePayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	state, err := game.UnmarshalSnapshot(payload.Snapshot)
	require.NoError(t, err)
	return state
}

func isType(msgType string) func(Message) bool {
	return func(msg Message) bool { return msg.Type == msgType }
}

func joined(t *testing.T, conn *websocket.Conn) JoinedPayload {
	t.Helper()
	msg := readUntil(t, conn, isType(MsgJoined))
	var payload JoinedPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	return payload
}

func TestHubGameAgainstComputer(t *testing.T) {
	th := newTestHub(t)
	conn := th.dial(t)

	send(t, conn, Message{Type: MsgCreateGame}, CreateGameRequest{Name: "Alice", VsAI: true, Seed: new(uint64)})
	seat := joined(t, conn)
	assert.Equal(t, 0, seat.Seat)
	require.NotEmpty(t, seat.Token)

	readUntil(t, conn, func(msg Message) bool {
		if msg.Type != MsgState {
			return false
		}
		s := decodeState(t, msg)
		return s.Phase == rules.PhasePlay && s.ActivePlayer == 0 && s.Turn == 1
	})
	assert.Eventually(t, func() bool { return th.snapshots.has(seat.GameID) }, 5*time.Second, 10*time.Millisecond)

	endTurn := Message{Type: MsgMove, GameID: seat.GameID, Seat: 0, Token: "wrong"}
	send(t, conn, endTurn, game.Move{Action: game.MoveEndTurn})
	errMsg := readUntil(t, conn, isType(MsgError))
	assert.Contains(t, string(errMsg.Data), ErrInvalidToken.Error())

	endTurn.Token = seat.Token
	send(t, conn, endTurn, game.Move{Action: game.MoveEndTurn})

	// The computer plays its turn and hands the game back. Any window it opens
	// against us is answered without a counter.
	final := readUntil(t, conn, func(msg Message) bool {
		if msg.Type != MsgState {
			return false
		}
		s := decodeState(t, msg)
		if responder, open := s.AwaitingResponse(); open && responder == 0 {
			send(t, conn, Message{Type: MsgMove, GameID: seat.GameID, Seat: 0, Token: seat.Token}, game.RespondMove(false))
			return false
		}
		return s.Over() || (s.Turn == 3 && s.ActivePlayer == 0 && s.Phase == rules.PhasePlay)
	})
	s := decodeState(t, final)
	assert.Equal(t, "Computer", s.Players[1].Name)
	assert.True(t, s.Players[1].IsAI)
}

func TestHubTwoHumans(t *testing.T) {
	th := newTestHub(t)
	alice := th.dial(t)
	bob := th.dial(t)

	send(t, alice, Message{Type: MsgCreateGame}, CreateGameRequest{Name: "Alice", Opponent: "Bob"})
	aliceSeat := joined(t, alice)
	lobby := decodeState(t, readUntil(t, alice, isType(MsgState)))
	assert.Equal(t, rules.PhaseLobby, lobby.Phase)

	send(t, bob, Message{Type: MsgJoinGame, GameID: aliceSeat.GameID}, nil)
	bobSeat := joined(t, bob)
	assert.Equal(t, 1, bobSeat.Seat)

	for _, conn := range []*websocket.Conn{alice, bob} {
		readUntil(t, conn, func(msg Message) bool {
			return msg.Type == MsgState && decodeState(t, msg).Phase == rules.PhasePlay
		})
	}

	send(t, bob, Message{Type: MsgMove, GameID: bobSeat.GameID, Seat: 1, Token: bobSeat.Token}, game.Move{Action: game.MoveEndTurn})
	errMsg := readUntil(t, bob, isType(MsgError))
	assert.Contains(t, string(errMsg.Data), ErrNotYourTurn.Error())

	// Reconnecting with the token keeps the seat.
	again := th.dial(t)
	send(t, again, Message{Type: MsgJoinGame, GameID: bobSeat.GameID, Seat: 1, Token: bobSeat.Token}, nil)
	rejoined := joined(t, again)
	assert.Equal(t, 1, rejoined.Seat)
	assert.Empty(t, rejoined.Token)

	late := th.dial(t)
	send(t, late, Message{Type: MsgJoinGame, GameID: aliceSeat.GameID}, nil)
	errMsg = readUntil(t, late, isType(MsgError))
	assert.Contains(t, string(errMsg.Data), ErrSeatTaken.Error())
}

// winningState has Alice one Brown card away from her third set.
func winningState(gameID string) *game.State {
	deck := []cards.Card{cards.NewMoney("d1", 1), cards.NewMoney("d2", 1)}
	s := game.NewState(gameID, [rules.PlayerCount]game.Seat{{Name: "Alice"}, {Name: "Computer", IsAI: true}}, deck, 3)
	s.Phase = rules.PhasePlay
	s.Turn = 9
	alice := s.Players[0]
	for _, c := range []cards.Card{
		cards.NewProperty("db1", "Park Place", cards.ColorDarkBlue, 4),
		cards.NewProperty("db2", "Boardwalk", cards.ColorDarkBlue, 4),
		cards.NewProperty("u1", "Electric Company", cards.ColorUtility, 2),
		cards.NewProperty("u2", "Water Works", cards.ColorUtility, 2),
		cards.NewProperty("b1", "Mediterranean Avenue", cards.ColorBrown, 1),
	} {
		assets.AssignToProperty(alice, c)
	}
	alice.Hand = append(alice.Hand, cards.NewProperty("b2", "Baltic Avenue", cards.ColorBrown, 1))
	return s
}

func TestHubFinishedGameIsStored(t *testing.T) {
	th := newTestHub(t)
	conn := th.dial(t)

	send(t, conn, Message{Type: MsgCreateGame}, CreateGameRequest{Name: "Alice", VsAI: true})
	seat := joined(t, conn)
	auth := Message{GameID: seat.GameID, Seat: 0, Token: seat.Token}

	snapshot, err := game.MarshalSnapshot(winningState(seat.GameID))
	require.NoError(t, err)
	syncMsg := auth
	syncMsg.Type = MsgSync
	syncMsg.Data = snapshot
	require.NoError(t, conn.WriteJSON(syncMsg))

	readUntil(t, conn, func(msg Message) bool {
		return msg.Type == MsgState && decodeState(t, msg).Turn == 9
	})

	move := auth
	move.Type = MsgMove
	send(t, conn, move, game.PropertyMove("b2"))

	won := readUntil(t, conn, func(msg Message) bool {
		return msg.Type == MsgState && decodeState(t, msg).Over()
	})
	s := decodeState(t, won)
	require.NotNil(t, s.Winner)
	assert.Equal(t, 0, *s.Winner)

	require.Eventually(t, func() bool { return len(th.results.all()) == 1 }, 5*time.Second, 10*time.Millisecond)
	result := th.results.all()[0]
	assert.Equal(t, seat.GameID, result.GameID)
	assert.Equal(t, "Alice", result.Winner)
	assert.Equal(t, []string{"Alice", "Computer"}, result.Players)

	require.Eventually(t, func() bool {
		_, err := th.hub.manager.Get(seat.GameID)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)

	// The final state is still served from the snapshot cache.
	send(t, conn, Message{Type: MsgSnapshot, GameID: seat.GameID}, nil)
	cached := readUntil(t, conn, isType(MsgState))
	assert.True(t, decodeState(t, cached).Over())

	send(t, conn, Message{Type: MsgJoinGame, GameID: seat.GameID}, nil)
	errMsg := readUntil(t, conn, isType(MsgError))
	assert.Contains(t, string(errMsg.Data), ErrGameOver.Error())
}

func TestHubRejectsUnknownRequests(t *testing.T) {
	th := newTestHub(t)
	conn := th.dial(t)

	send(t, conn, Message{Type: "dance"}, nil)
	assert.Contains(t, string(readUntil(t, conn, isType(MsgError)).Data), "unknown message type")

	send(t, conn, Message{Type: MsgJoinGame, GameID: "missing"}, nil)
	assert.Contains(t, string(readUntil(t, conn, isType(MsgError)).Data), game.ErrGameNotFound.Error())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	readUntil(t, conn, isType(MsgError))
}

func TestHTTPRoutes(t *testing.T) {
	th := newTestHub(t)
	session, err := th.hub.manager.CreateGame([rules.PlayerCount]game.Seat{{Name: "Alice"}, {Name: "Bob"}}, nil, 4)
	require.NoError(t, err)

	get := func(path string) (*http.Response, []byte) {
		resp, err := http.Get(th.server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, body
	}

	resp, body := get("/api/games")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"games":["`+session.ID+`"]}`, string(body))

	resp, body = get("/api/games/" + session.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	state, err := game.UnmarshalSnapshot(body)
	require.NoError(t, err)
	assert.Equal(t, session.ID, state.GameID)

	resp, body = get("/api/games/" + session.ID + "/qr")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	resp, _ = get("/api/games/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get("/api/games/missing/qr")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, th.results.SaveResult(context.Background(), repository.GameResult{
		GameID: "old", Players: []string{"A", "B"}, WinnerSeat: 1, Winner: "B", Turns: 30,
	}))
	resp, body = get("/api/results?limit=5")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"gameId":"old"`)
	resp, _ = get("/api/results?limit=zero")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get("/healthz")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestJoinURL(t *testing.T) {
	hub := NewHub(Options{Manager: game.NewManager(zap.NewNop(), nil), PublicURL: "https://deal.example/"})
	defer hub.Close()
	r := httptest.NewRequest(http.MethodGet, "/api/games/g1/qr", nil)
	assert.Equal(t, "https://deal.example/?game=g1", hub.joinURL(r, "g1"))

	local := NewHub(Options{Manager: game.NewManager(zap.NewNop(), nil)})
	defer local.Close()
	r.Host = "localhost:8080"
	assert.Equal(t, "http://localhost:8080/?game=g1", local.joinURL(r, "g1"))
}

func TestMayMove(t *testing.T) {
	s := winningState("g")
	assert.True(t, mayMove(s, 0, game.Move{Action: game.MoveEndTurn}))
	assert.False(t, mayMove(s, 1, game.Move{Action: game.MoveEndTurn}))
	assert.False(t, mayMove(s, 1, game.RespondMove(false)), "no window open")

	s.Pending = &game.PendingAction{Type: cards.ActionBirthday, AttackerIndex: 0, TargetIndex: 1}
	assert.True(t, mayMove(s, 1, game.RespondMove(true)))
	assert.False(t, mayMove(s, 0, game.RespondMove(true)))
}

func TestDispatchRecoversFromHandlerPanic(t *testing.T) {
	h := &Hub{logger: zap.NewNop()}
	c := newClient(h, nil)

	require.NotPanics(t, func() { c.dispatch(Message{Type: MsgSnapshot, GameID: "g1"}) })

	require.Len(t, c.send, 1)
	var msg Message
	require.NoError(t, json.Unmarshal(<-c.send, &msg))
	assert.Equal(t, MsgError, msg.Type)
	assert.Equal(t, "g1", msg.GameID)
	assert.Contains(t, string(msg.Data), errInternal.Error())
}
