package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/propdeal/propdeal-server-go/internal/game/assets"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
)

// PendingAction is a contested action waiting on targets or counter-play answers.
type PendingAction struct {
	Type           cards.ActionKind `json:"type"`
	Card           cards.Card       `json:"card"`
	AttackerIndex  int              `json:"attackerIndex"`
	TargetIndex    int              `json:"targetIndex"`
	TargetSetIndex *int             `json:"targetSetIndex,omitempty"`
	MySetIndex     *int             `json:"mySetIndex,omitempty"`
	// JSNStack counts consecutive counters laid on the action.
	JSNStack int `json:"jsnStack"`
	// AwaitingTargets is set until Force Deal / Sly Deal targets are chosen.
	AwaitingTargets bool `json:"awaitingTargets"`
}

// Responder returns the seat that must answer next.
func (p *PendingAction) Responder() int {
	return rules.Responder(p.AttackerIndex, p.JSNStack)
}

func (p *PendingAction) clone() *PendingAction {
	if p == nil {
		return nil
	}
	cpy := *p
	cpy.TargetSetIndex = copyInt(p.TargetSetIndex)
	cpy.MySetIndex = copyInt(p.MySetIndex)
	return &cpy
}

// InteractionKind names a half-finished move awaiting a choice from the active player.
type InteractionKind string

// InteractionRentSet waits for the player to pick the set to charge rent for.
const InteractionRentSet InteractionKind = "CHOOSE_RENT_SET"

// Interaction is an armed, uncommitted choice. It costs no action until completed.
type Interaction struct {
	Kind   InteractionKind `json:"kind"`
	Seat   int             `json:"seat"`
	CardID string          `json:"cardId"`
}

// State is the whole game. A new State is produced for every applied move; a State
// handed out is never written again.
type State struct {
	GameID           string           `json:"gameId"`
	Players          []*assets.Player `json:"players"`
	Deck             []cards.Card     `json:"deck"`
	Discard          []cards.Card     `json:"discard"`
	Phase            rules.Phase      `json:"phase"`
	ActivePlayer     int              `json:"activePlayerIndex"`
	ActionsRemaining int              `json:"actionsRemaining"`
	Turn             int              `json:"turn"`
	// Logs is newest first.
	Logs        []string       `json:"logs"`
	Winner      *int           `json:"winner"`
	Pending     *PendingAction `json:"pendingAction,omitempty"`
	Interaction *Interaction   `json:"interaction,omitempty"`
	Seed        uint64         `json:"seed"`
	RandCounter uint64         `json:"randCounter"`
}

// Seat describes one player at game creation.
type Seat struct {
	Name string
	IsAI bool
}

// NewState creates a game in the lobby. The deck is taken in the given order and
// shuffled when the game starts.
func NewState(gameID string, seats [rules.PlayerCount]Seat, deck []cards.Card, seed uint64) *State {
	players := make([]*assets.Player, 0, rules.PlayerCount)
	for _, seat := range seats {
		players = append(players, assets.NewPlayer(seat.Name, seat.IsAI))
	}
	return &State{
		GameID:           gameID,
		Players:          players,
		Deck:             append([]cards.Card(nil), deck...),
		Discard:          make([]cards.Card, 0, len(deck)),
		Phase:            rules.PhaseLobby,
		ActionsRemaining: rules.ActionsPerTurn,
		Logs:             make([]string, 0, 64),
		Seed:             seed,
	}
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cpy := *s
	cpy.Players = make([]*assets.Player, len(s.Players))
	for i, p := range s.Players {
		cpy.Players[i] = p.Clone()
	}
	cpy.Deck = append([]cards.Card(nil), s.Deck...)
	cpy.Discard = append([]cards.Card(nil), s.Discard...)
	cpy.Logs = append([]string(nil), s.Logs...)
	cpy.Winner = copyInt(s.Winner)
	cpy.Pending = s.Pending.clone()
	if s.Interaction != nil {
		interaction := *s.Interaction
		cpy.Interaction = &interaction
	}
	return &cpy
}

// Active returns the player whose turn it is.
func (s *State) Active() *assets.Player {
	return s.Players[s.ActivePlayer]
}

// Opponent returns the player who is not taking the turn.
func (s *State) Opponent() *assets.Player {
	return s.Players[rules.Opponent(s.ActivePlayer)]
}

// Over reports whether the game has a winner.
func (s *State) Over() bool {
	return s.Winner != nil
}

// AwaitingResponse reports whether a counter-play window is open, and for whom.
func (s *State) AwaitingResponse() (int, bool) {
	if s.Pending == nil || s.Pending.AwaitingTargets {
		return 0, false
	}
	return s.Pending.Responder(), true
}

// CardIDs lists every card in the game, wherever it sits.
func (s *State) CardIDs() []string {
	ids := make([]string, 0, 128)
	add := func(list []cards.Card) {
		for _, c := range list {
			ids = append(ids, c.ID)
		}
	}
	add(s.Deck)
	add(s.Discard)
	for _, p := range s.Players {
		add(p.Hand)
		add(p.Bank)
		for _, set := range p.Properties {
			add(set.Cards)
		}
	}
	if s.Pending != nil {
		ids = append(ids, s.Pending.Card.ID)
	}
	return ids
}

// logf prepends a line to the game log.
func (s *State) logf(format string, args ...any) {
	s.Logs = append([]string{fmt.Sprintf(format, args...)}, s.Logs...)
}

// rng returns the next deterministic random source derived from the game seed.
func (s *State) rng() *rand.Rand {
	r := rand.New(rand.NewPCG(s.Seed, s.RandCounter))
	s.RandCounter++
	return r
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// IntPtr returns a pointer to n, for optional move fields.
func IntPtr(n int) *int {
	return &n
}
