package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
)

// DeckRepository stores custom card catalogs by name.
type DeckRepository struct {
	q Querier
}

// NewDeckRepository creates a repository over q.
func NewDeckRepository(q Querier) *DeckRepository {
	return &DeckRepository{q: q}
}

// LoadDeck returns a stored deck in its stored order.
func (r *DeckRepository) LoadDeck(ctx context.Context, name string) ([]cards.Card, error) {
	rows, err := r.q.Query(ctx, `
		SELECT card_id, name, type, value, color, secondary_color, action
		FROM deck_cards WHERE deck = $1 ORDER BY position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck %s: %w", name, err)
	}
	deck, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cards.Card, error) {
		var c cards.Card
		var typ, color, secondary, action string
		if err := row.Scan(&c.ID, &c.Name, &typ, &c.Value, &color, &secondary, &action); err != nil {
			return cards.Card{}, err
		}
		c.Type = cards.Type(typ)
		c.Color = cards.Color(color)
		c.SecondaryColor = cards.Color(secondary)
		c.Action = cards.ActionKind(action)
		if !c.Type.Valid() {
			return cards.Card{}, fmt.Errorf("card %s has unknown type %q", c.ID, typ)
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan deck %s: %w", name, err)
	}
	if len(deck) == 0 {
		return nil, fmt.Errorf("%w: deck %s", ErrNotFound, name)
	}
	return deck, nil
}

// ReplaceDeck stores deck under name, replacing any previous version atomically.
func (r *DeckRepository) ReplaceDeck(ctx context.Context, name string, deck []cards.Card) error {
	if len(deck) == 0 {
		return cards.ErrEmptyCatalog
	}
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM deck_cards WHERE deck = $1`, name); err != nil {
		return fmt.Errorf("failed to clear deck %s: %w", name, err)
	}

	batch := &pgx.Batch{}
	for i, c := range deck {
		batch.Queue(`
			INSERT INTO deck_cards (deck, position, card_id, name, type, value, color, secondary_color, action)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, name, i, c.ID, c.Name, string(c.Type), c.Value, string(c.Color), string(c.SecondaryColor), string(c.Action))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit deck %s: %w", name, err)
	}
	return nil
}

// ListDecks returns the names of stored decks.
func (r *DeckRepository) ListDecks(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT deck FROM deck_cards ORDER BY deck`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan decks: %w", err)
	}
	return names, nil
}
