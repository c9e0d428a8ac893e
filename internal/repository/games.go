package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/propdeal/propdeal-server-go/internal/game"
)

// GameResult is the stored outcome of a finished game.
type GameResult struct {
	GameID     string
	Players    []string
	WinnerSeat int // -1 when the game was abandoned
	Winner     string
	Turns      int
	Snapshot   []byte
	FinishedAt time.Time
}

// NewGameResult summarises a final state together with its snapshot envelope.
func NewGameResult(s *game.State) (GameResult, error) {
	snapshot, err := game.MarshalSnapshot(s)
	if err != nil {
		return GameResult{}, err
	}
	result := GameResult{
		GameID:     s.GameID,
		Players:    make([]string, 0, len(s.Players)),
		WinnerSeat: -1,
		Turns:      s.Turn,
		Snapshot:   snapshot,
		FinishedAt: time.Now().UTC(),
	}
	for _, p := range s.Players {
		result.Players = append(result.Players, p.Name)
	}
	if s.Winner != nil {
		result.WinnerSeat = *s.Winner
		result.Winner = s.Players[*s.Winner].Name
	}
	return result, nil
}

// GameRepository stores finished games.
type GameRepository struct {
	q Querier
}

// NewGameRepository creates a repository over q.
func NewGameRepository(q Querier) *GameRepository {
	return &GameRepository{q: q}
}

// SaveResult inserts or replaces a game's result.
func (r *GameRepository) SaveResult(ctx context.Context, result GameResult) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO game_results (game_id, players, winner_seat, winner, turns, snapshot, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id) DO UPDATE SET
			players = EXCLUDED.players,
			winner_seat = EXCLUDED.winner_seat,
			winner = EXCLUDED.winner,
			turns = EXCLUDED.turns,
			snapshot = EXCLUDED.snapshot,
			finished_at = EXCLUDED.finished_at
	`,
		result.GameID,
		result.Players,
		result.WinnerSeat,
		result.Winner,
		result.Turns,
		string(result.Snapshot),
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", result.GameID, err)
	}
	return nil
}

const resultColumns = `game_id, players, winner_seat, winner, turns, snapshot::text, finished_at`

func scanResult(row pgx.Row) (GameResult, error) {
	var result GameResult
	var snapshot string
	if err := row.Scan(
		&result.GameID,
		&result.Players,
		&result.WinnerSeat,
		&result.Winner,
		&result.Turns,
		&snapshot,
		&result.FinishedAt,
	); err != nil {
		return GameResult{}, err
	}
	result.Snapshot = []byte(snapshot)
	return result, nil
}

// GetResult loads one game's result.
func (r *GameRepository) GetResult(ctx context.Context, gameID string) (*GameResult, error) {
	row := r.q.QueryRow(ctx, `SELECT `+resultColumns+` FROM game_results WHERE game_id = $1`, gameID)
	result, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result for %s: %w", gameID, err)
	}
	return &result, nil
}

// ListRecent returns the most recently finished games, newest first.
func (r *GameRepository) ListRecent(ctx context.Context, limit int) ([]GameResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.Query(ctx, `SELECT `+resultColumns+` FROM game_results ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameResult, error) {
		return scanResult(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan results: %w", err)
	}
	return results, nil
}
