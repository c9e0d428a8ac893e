package rules

import (
	"encoding/json"
	"fmt"
)

// Phase is the coarse state of a game.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseStartTurn
	PhasePlay
	PhaseEndTurn
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseLobby:     "LOBBY",
	PhaseStartTurn: "START_TURN",
	PhasePlay:      "PLAY_PHASE",
	PhaseEndTurn:   "END_TURN",
	PhaseGameOver:  "GAME_OVER",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Valid reports whether p is one of the named phases.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// MarshalJSON encodes the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParsePhase(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase maps a phase name back to its value.
func ParsePhase(name string) (Phase, error) {
	for phase, n := range phaseNames {
		if n == name {
			return phase, nil
		}
	}
	return PhaseLobby, fmt.Errorf("unknown phase %q", name)
}

// transitions lists the phases reachable from each phase.
var transitions = map[Phase][]Phase{
	PhaseLobby:     {PhaseStartTurn},
	PhaseStartTurn: {PhasePlay},
	PhasePlay:      {PhaseEndTurn, PhaseGameOver},
	PhaseEndTurn:   {PhaseStartTurn},
	PhaseGameOver:  nil,
}

// CanTransition reports whether the phase table allows moving from one phase to another.
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether nothing can follow the phase.
func (p Phase) Terminal() bool {
	return len(transitions[p]) == 0
}

const (
	// PlayerCount is fixed; the game is strictly two-player.
	PlayerCount = 2
	// ActionsPerTurn is the action budget reset at every turn start.
	ActionsPerTurn = 3
	// StartingHand is dealt at game start and drawn into an empty hand.
	StartingHand = 5
	// TurnDraw is drawn at the start of a turn into a non-empty hand.
	TurnDraw = 2
	// SetsToWin is the number of complete sets that ends the game.
	SetsToWin = 3
	// DebtCollectorAmount is what Debt Collector demands.
	DebtCollectorAmount = 5
	// BirthdayAmount is what It's My Birthday demands.
	BirthdayAmount = 2
	// PassGoDraw is how many cards Pass Go draws.
	PassGoDraw = 2
)

// DrawCount returns how many cards a player draws at turn start.
func DrawCount(handSize int) int {
	if handSize == 0 {
		return StartingHand
	}
	return TurnDraw
}

// Opponent returns the other seat.
func Opponent(seat int) int {
	return 1 - seat
}
