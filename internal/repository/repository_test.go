package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/propdeal/propdeal-server-go/internal/config"
	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func finishedState() *game.State {
	s := game.NewState("result-test", [rules.PlayerCount]game.Seat{{Name: "Alice"}, {Name: "Bob"}}, cards.StandardDeck(), 3)
	s.Turn = 12
	s.Phase = rules.PhaseGameOver
	s.Winner = game.IntPtr(1)
	return s
}

func TestNewGameResult(t *testing.T) {
	result, err := NewGameResult(finishedState())
	require.NoError(t, err)

	assert.Equal(t, "result-test", result.GameID)
	assert.Equal(t, []string{"Alice", "Bob"}, result.Players)
	assert.Equal(t, 1, result.WinnerSeat)
	assert.Equal(t, "Bob", result.Winner)
	assert.Equal(t, 12, result.Turns)

	restored, err := game.UnmarshalSnapshot(result.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, "result-test", restored.GameID)
}

func TestNewGameResultWithoutWinner(t *testing.T) {
	s := finishedState()
	s.Winner = nil

	result, err := NewGameResult(s)
	require.NoError(t, err)
	assert.Equal(t, -1, result.WinnerSeat)
	assert.Empty(t, result.Winner)
}

// openTestDB connects to the database named by DEAL_TEST_DATABASE_URL.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DEAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DEAL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 4, ConnectTimeout: 5 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, EnsureSchema(ctx, db))
	return db
}

func TestGameRepositoryIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewGameRepository(db)

	result, err := NewGameResult(finishedState())
	require.NoError(t, err)
	result.GameID = "it-" + time.Now().Format("150405.000000")
	require.NoError(t, repo.SaveResult(ctx, result))
	require.NoError(t, repo.SaveResult(ctx, result), "saving twice upserts")

	loaded, err := repo.GetResult(ctx, result.GameID)
	require.NoError(t, err)
	assert.Equal(t, result.Players, loaded.Players)
	assert.Equal(t, "Bob", loaded.Winner)
	_, err = game.UnmarshalSnapshot(loaded.Snapshot)
	require.NoError(t, err)

	recent, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)

	_, err = repo.GetResult(ctx, "missing-game")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeckRepositoryIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDeckRepository(db)

	name := "it-deck-" + time.Now().Format("150405.000000")
	deck := cards.StandardDeck()
	require.NoError(t, repo.ReplaceDeck(ctx, name, deck))
	require.NoError(t, repo.ReplaceDeck(ctx, name, deck[:20]))

	loaded, err := repo.LoadDeck(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, deck[:20], loaded)

	names, err := repo.ListDecks(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, name)

	_, err = repo.LoadDeck(ctx, "missing-deck")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.ReplaceDeck(ctx, name, nil), cards.ErrEmptyCatalog)
}
