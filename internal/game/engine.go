package game

import (
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// MoveKind names a move request.
type MoveKind string

const (
	MoveStartGame    MoveKind = "START_GAME"
	MoveStartTurn    MoveKind = "START_TURN"
	MoveEndTurn      MoveKind = "END_TURN"
	MoveBank         MoveKind = "BANK"
	MoveProperty     MoveKind = "PROPERTY"
	MoveActionPlay   MoveKind = "ACTION_PLAY"
	MoveSelectTarget MoveKind = "SELECT_TARGET"
	MoveRespond      MoveKind = "RESPOND"
	MoveCancel       MoveKind = "CANCEL"
)

// Move is a request to change the game. Fields not used by the action are ignored.
type Move struct {
	Action         MoveKind `json:"action"`
	CardID         string   `json:"cardId,omitempty"`
	MySetIndex     *int     `json:"mySetIndex,omitempty"`
	TargetSetIndex *int     `json:"targetSetIndex,omitempty"`
	UseCounter     bool     `json:"useCounter,omitempty"`
}

// BankMove banks a card from hand.
func BankMove(cardID string) Move { return Move{Action: MoveBank, CardID: cardID} }

// PropertyMove lays a property or wildcard from hand.
func PropertyMove(cardID string) Move { return Move{Action: MoveProperty, CardID: cardID} }

// ActionMove plays an action or rent card from hand.
func ActionMove(cardID string) Move { return Move{Action: MoveActionPlay, CardID: cardID} }

// RentTargetMove picks the set to charge rent for.
func RentTargetMove(mySet int) Move {
	return Move{Action: MoveSelectTarget, MySetIndex: IntPtr(mySet)}
}

// SlyDealTargetMove picks the opponent set to steal from.
func SlyDealTargetMove(targetSet int) Move {
	return Move{Action: MoveSelectTarget, TargetSetIndex: IntPtr(targetSet)}
}

// ForceDealTargetMove picks both sets of a swap.
func ForceDealTargetMove(mySet, targetSet int) Move {
	return Move{Action: MoveSelectTarget, MySetIndex: IntPtr(mySet), TargetSetIndex: IntPtr(targetSet)}
}

// RespondMove answers a counter-play window.
func RespondMove(useCounter bool) Move { return Move{Action: MoveRespond, UseCounter: useCounter} }

// Engine applies moves to game states. It holds no game data of its own.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// transition is one move being applied to a private copy of the state.
type transition struct {
	state  *State
	events []rules.Event
}

func (tx *transition) emit(evt rules.Event) {
	evt.GameID = tx.state.GameID
	tx.events = append(tx.events, evt)
}

// Apply returns the state after the move. Invalid moves return s itself.
func (e *Engine) Apply(s *State, move Move) *State {
	next, _ := e.Step(s, move)
	return next
}

// Step is Apply that also reports the events the move produced.
func (e *Engine) Step(s *State, move Move) (*State, []rules.Event) {
	if s == nil || s.Phase.Terminal() {
		return s, nil
	}

	tx := &transition{state: s.Clone()}
	if !e.dispatch(tx, move) {
		if e.logger != nil {
			e.logger.Debug("move ignored",
				zap.String("game_id", s.GameID),
				zap.String("action", string(move.Action)),
				zap.String("card_id", move.CardID),
				zap.String("phase", s.Phase.String()),
			)
		}
		return s, nil
	}
	return tx.state, tx.events
}

func (e *Engine) dispatch(tx *transition, move Move) bool {
	switch move.Action {
	case MoveStartGame:
		return e.startGame(tx)
	case MoveStartTurn:
		return e.startTurn(tx)
	case MoveEndTurn:
		return e.endTurn(tx)
	case MoveBank:
		return e.bank(tx, move)
	case MoveProperty:
		return e.playProperty(tx, move)
	case MoveActionPlay:
		return e.playAction(tx, move)
	case MoveSelectTarget:
		return e.selectTarget(tx, move)
	case MoveRespond:
		return e.respond(tx, move)
	case MoveCancel:
		return e.cancel(tx)
	default:
		return false
	}
}
