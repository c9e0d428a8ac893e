package main

import (
	"testing"

	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "BANK m1", describe(game.BankMove("m1")))
	assert.Equal(t, "SELECT_TARGET mine=0 theirs=2", describe(game.ForceDealTargetMove(0, 2)))
	assert.Equal(t, "RESPOND counter=true", describe(game.RespondMove(true)))
}

func TestViewerWalksSavedReplay(t *testing.T) {
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)
	manager := game.NewManager(logger, game.NewReplayRecorder(logger, dir))
	session, err := manager.CreateGame([rules.PlayerCount]game.Seat{{Name: "Alice"}, {Name: "Bob"}}, nil, 5)
	require.NoError(t, err)
	session.Apply(game.Move{Action: game.MoveStartGame})
	session.Apply(game.Move{Action: game.MoveStartTurn})
	require.NoError(t, manager.EndGame(session.ID))

	replay, err := game.NewReplayRecorder(logger, dir).LoadReplay(session.ID)
	require.NoError(t, err)
	require.NoError(t, replay.Verify(game.NewEngine(logger)))

	v := &viewer{replay: replay}
	v.step(replay.Next)
	v.step(replay.Next)
	assert.Equal(t, 2, replay.CurrentIndex)
	v.step(replay.Next)
	assert.Equal(t, 2, replay.CurrentIndex, "stays on the last frame")
	v.step(replay.Previous)
	assert.Equal(t, 1, replay.CurrentIndex)
}
