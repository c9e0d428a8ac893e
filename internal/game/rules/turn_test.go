package rules

import (
	"encoding/json"
	"testing"
)

func TestPhaseTransitions(t *testing.T) {
	cycle := []Phase{PhaseLobby, PhaseStartTurn, PhasePlay, PhaseEndTurn, PhaseStartTurn}
	for i := 0; i < len(cycle)-1; i++ {
		if !CanTransition(cycle[i], cycle[i+1]) {
			t.Fatalf("expected %s -> %s to be allowed", cycle[i], cycle[i+1])
		}
	}

	if !CanTransition(PhasePlay, PhaseGameOver) {
		t.Fatalf("expected PLAY_PHASE -> GAME_OVER to be allowed")
	}
	if CanTransition(PhaseLobby, PhasePlay) {
		t.Fatalf("expected LOBBY -> PLAY_PHASE to be refused")
	}
	if !PhaseGameOver.Terminal() {
		t.Fatalf("expected GAME_OVER to be terminal")
	}
	if PhasePlay.Terminal() {
		t.Fatalf("expected PLAY_PHASE not to be terminal")
	}
}

func TestPhaseJSON(t *testing.T) {
	data, err := json.Marshal(PhasePlay)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"PLAY_PHASE"` {
		t.Fatalf("expected \"PLAY_PHASE\", got %s", data)
	}

	var phase Phase
	if err := json.Unmarshal([]byte(`"GAME_OVER"`), &phase); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if phase != PhaseGameOver {
		t.Fatalf("expected GAME_OVER, got %s", phase)
	}

	if err := json.Unmarshal([]byte(`"SIDEBOARD"`), &phase); err == nil {
		t.Fatalf("expected unknown phase to fail")
	}
}

func TestDrawCount(t *testing.T) {
	if DrawCount(0) != 5 {
		t.Fatalf("expected 5 cards into an empty hand, got %d", DrawCount(0))
	}
	if DrawCount(3) != 2 {
		t.Fatalf("expected 2 cards into a non-empty hand, got %d", DrawCount(3))
	}
	if Opponent(0) != 1 || Opponent(1) != 0 {
		t.Fatalf("opponent seats are wrong")
	}
}

func TestPhaseStringUnknown(t *testing.T) {
	if Phase(42).String() != "PHASE_42" {
		t.Fatalf("unexpected name for unknown phase: %s", Phase(42))
	}
	if Phase(42).Valid() || !PhaseGameOver.Valid() {
		t.Fatalf("expected only named phases to be valid")
	}
}
