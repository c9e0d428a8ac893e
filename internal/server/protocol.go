package server

import (
	"encoding/json"

	"github.com/propdeal/propdeal-server-go/internal/game/rules"
)

// Message types sent by clients.
const (
	MsgCreateGame = "create_game"
	MsgJoinGame   = "join_game"
	MsgMove       = "move"
	MsgSnapshot   = "snapshot"
	MsgSync       = "sync"
)

// Message types sent by the server.
const (
	MsgJoined = "joined"
	MsgState  = "state"
	MsgError  = "error"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type   string          `json:"type"`
	GameID string          `json:"gameId,omitempty"`
	Seat   int             `json:"seat"`
	Token  string          `json:"token,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// CreateGameRequest is the data of a create_game message.
type CreateGameRequest struct {
	Name     string  `json:"name"`
	Opponent string  `json:"opponent,omitempty"`
	VsAI     bool    `json:"vsAI"`
	Seed     *uint64 `json:"seed,omitempty"`
}

// JoinedPayload tells a client which seat it holds. The token is only sent once.
type JoinedPayload struct {
	GameID string `json:"gameId"`
	Seat   int    `json:"seat"`
	Token  string `json:"token,omitempty"`
}

// StatePayload carries a snapshot envelope and the events that led to it.
type StatePayload struct {
	Snapshot json.RawMessage `json:"snapshot"`
	Events   []rules.Event   `json:"events,omitempty"`
}

// ErrorPayload reports a rejected request.
type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(msgType, gameID string, seat int, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, GameID: gameID, Seat: seat, Data: raw})
}
