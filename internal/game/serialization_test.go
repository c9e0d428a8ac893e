package game

import (
	"encoding/json"
	"testing"

	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestState builds a mid-game state with an open counter-play window.
func createTestState(t *testing.T) *State {
	engine := newTestEngine(t)
	s := engine.Apply(lobbyState(11), Move{Action: MoveStartGame})
	s = engine.Apply(s, Move{Action: MoveStartTurn})
	s = s.Clone()
	give(s.Players[0], cards.NewAction("t-debt", cards.ActionDebtCollector, 3))
	lay(s.Players[1], brown("t-b1"))
	return engine.Apply(s, ActionMove("t-debt"))
}

func TestChecksumIsStable(t *testing.T) {
	s := createTestState(t)

	first, err := Checksum(s)
	require.NoError(t, err)
	second, err := Checksum(s.Clone())
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.Equal(t, first, second)
}

func TestChecksumDetectsChanges(t *testing.T) {
	s := createTestState(t)
	base, err := Checksum(s)
	require.NoError(t, err)

	mutations := map[string]func(*State){
		"actions":  func(s *State) { s.ActionsRemaining-- },
		"phase":    func(s *State) { s.Phase = rules.PhaseEndTurn },
		"hand":     func(s *State) { s.Players[0].Hand = s.Players[0].Hand[1:] },
		"jsn":      func(s *State) { s.Pending.JSNStack++ },
		"winner":   func(s *State) { s.Winner = IntPtr(0) },
		"rng":      func(s *State) { s.RandCounter++ },
		"log":      func(s *State) { s.logf("extra") },
		"property": func(s *State) { s.Players[1].Properties[0].IsComplete = true },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cpy := s.Clone()
			mutate(cpy)
			sum, err := Checksum(cpy)
			require.NoError(t, err)
			assert.NotEqual(t, base, sum)
		})
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	s := createTestState(t)

	data, err := MarshalSnapshot(s)
	require.NoError(t, err)

	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, s.GameID, decoded.GameID)
	assert.Equal(t, s.Phase, decoded.Phase)
	assert.Equal(t, s.Logs, decoded.Logs)
	assert.Equal(t, s.Seed, decoded.Seed)
	assert.Equal(t, s.RandCounter, decoded.RandCounter)
	require.NotNil(t, decoded.Pending)
	assert.Equal(t, cards.ActionDebtCollector, decoded.Pending.Type)
	assert.ElementsMatch(t, s.CardIDs(), decoded.CardIDs())

	require.NoError(t, ValidateSerializationRoundtrip(s))
}

func TestSnapshotKeepsZeroSeatPointers(t *testing.T) {
	s := playState(false, false)
	s.Winner = IntPtr(0)
	s.Phase = rules.PhaseGameOver

	data, err := MarshalSnapshot(s)
	require.NoError(t, err)
	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	require.NotNil(t, decoded.Winner)
	assert.Equal(t, 0, *decoded.Winner)
}

func TestSnapshotUsesWireNames(t *testing.T) {
	data, err := MarshalSnapshot(createTestState(t))
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	state := raw["state"]
	assert.Equal(t, "PLAY_PHASE", state["phase"])
	assert.Contains(t, state, "activePlayerIndex")
	assert.Contains(t, state, "pendingAction")
}

func TestUnmarshalSnapshotRejectsTampering(t *testing.T) {
	s := createTestState(t)
	snap, err := NewSnapshot(s)
	require.NoError(t, err)

	tampered := *snap
	tampered.State = s.Clone()
	tampered.State.Players[0].Bank = append(tampered.State.Players[0].Bank, cards.NewMoney("forged", 10))
	data, err := json.Marshal(&tampered)
	require.NoError(t, err)

	_, err = UnmarshalSnapshot(data)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	future := *snap
	future.Version = SnapshotVersion + 1
	data, err = json.Marshal(&future)
	require.NoError(t, err)
	_, err = UnmarshalSnapshot(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = UnmarshalSnapshot([]byte(`{"version":1}`))
	assert.ErrorIs(t, err, ErrEmptySnapshot)

	_, err = UnmarshalSnapshot([]byte(`not json`))
	assert.Error(t, err)
}

// forge re-checksums a mutated state so only the state checks can reject it.
func forge(t *testing.T, s *State) []byte {
	t.Helper()
	data, err := MarshalSnapshot(s)
	require.NoError(t, err)
	return data
}

func TestUnmarshalSnapshotRejectsImpossibleStates(t *testing.T) {
	cases := map[string]func(*State){
		"one player":        func(s *State) { s.Players = s.Players[:1] },
		"missing player":    func(s *State) { s.Players[1] = nil },
		"active seat":       func(s *State) { s.ActivePlayer = 2 },
		"negative winner":   func(s *State) { s.Winner = IntPtr(-1) },
		"too many actions":  func(s *State) { s.ActionsRemaining = rules.ActionsPerTurn + 1 },
		"attacker seat":     func(s *State) { s.Pending.AttackerIndex = 1; s.Pending.TargetIndex = 0 },
		"target seat":       func(s *State) { s.Pending.TargetIndex = 5 },
		"negative counters": func(s *State) { s.Pending.JSNStack = -1 },
		"pending in lobby":  func(s *State) { s.Phase = rules.PhaseLobby },
		"uncontested kind":  func(s *State) { s.Pending.Type = cards.ActionPassGo },
		"interaction seat": func(s *State) {
			s.Pending = nil
			s.Interaction = &Interaction{Kind: InteractionRentSet, Seat: 1}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := createTestState(t).Clone()
			mutate(s)

			_, err := UnmarshalSnapshot(forge(t, s))
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestUnmarshalSnapshotAcceptsFinishedGame(t *testing.T) {
	s := playState(false, false)
	s.Phase = rules.PhaseGameOver
	s.Winner = IntPtr(1)

	decoded, err := UnmarshalSnapshot(forge(t, s))
	require.NoError(t, err)
	assert.True(t, decoded.Over())
}
