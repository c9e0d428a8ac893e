package ai

import (
	"context"
	"errors"
	"time"

	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when the driver is already playing.
var ErrBusy = errors.New("automated player is already running")

// maxProposalMoves bounds a single pass however long the proposal is.
const maxProposalMoves = 16

// Target is the game a driver plays in. *game.Session satisfies it.
type Target interface {
	Snapshot() *game.State
	Apply(move game.Move) (*game.State, bool)
}

// DriverConfig holds the driver's pacing.
type DriverConfig struct {
	// Cooldown separates consecutive moves.
	Cooldown time.Duration
	// RespondDelay is waited before answering a counter-play window.
	RespondDelay time.Duration
}

// Driver plays every automated seat of one game.
type Driver struct {
	proposer Proposer
	cfg      DriverConfig
	logger   *zap.Logger
	guard    *semaphore.Weighted
}

// NewDriver creates a driver around a proposer.
func NewDriver(proposer Proposer, cfg DriverConfig, logger *zap.Logger) *Driver {
	return &Driver{
		proposer: proposer,
		cfg:      cfg,
		logger:   logger,
		guard:    semaphore.NewWeighted(1),
	}
}

// Run plays for automated seats until a human has to act or the game is over. A second
// call while one is in flight returns ErrBusy.
func (d *Driver) Run(ctx context.Context, t Target) error {
	if !d.guard.TryAcquire(1) {
		return ErrBusy
	}
	defer d.guard.Release(1)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := t.Snapshot()
		if s.Over() || s.Phase == rules.PhaseLobby {
			return nil
		}

		if responder, open := s.AwaitingResponse(); open {
			if !s.Players[responder].IsAI {
				return nil
			}
			if err := d.respond(ctx, t, s, responder); err != nil {
				return err
			}
			continue
		}

		if !s.Active().IsAI {
			return nil
		}
		progressed, err := d.takeTurn(ctx, t, s)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// respond answers an open window after the configured delay: counter if possible.
func (d *Driver) respond(ctx context.Context, t Target, s *game.State, seat int) error {
	depth := s.Pending.JSNStack
	if err := sleep(ctx, d.cfg.RespondDelay); err != nil {
		return err
	}

	cur := t.Snapshot()
	if responder, open := cur.AwaitingResponse(); !open || responder != seat || cur.Pending.JSNStack != depth {
		return nil
	}
	useCounter := cur.Players[seat].HasCounter()
	_, applied := t.Apply(game.RespondMove(useCounter))

	if d.logger != nil {
		d.logger.Debug("automated response",
			zap.Int("seat", seat),
			zap.Bool("counter", useCounter),
			zap.Bool("applied", applied),
		)
	}
	return nil
}

// takeTurn runs one pass of the active automated seat's turn. It reports whether the
// game moved on.
func (d *Driver) takeTurn(ctx context.Context, t Target, s *game.State) (bool, error) {
	seat := s.ActivePlayer
	switch s.Phase {
	case rules.PhaseStartTurn:
		_, applied := t.Apply(game.Move{Action: game.MoveStartTurn})
		return applied, nil
	case rules.PhasePlay:
	default:
		return false, nil
	}

	proposal, err := d.proposer.Propose(ctx, s, seat)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if d.logger != nil {
			d.logger.Warn("proposal failed, ending turn", zap.Int("seat", seat), zap.Error(err))
		}
		proposal = Proposal{}
	}

	for i, move := range proposal.Moves {
		if i >= maxProposalMoves {
			break
		}
		if err := sleep(ctx, d.cfg.Cooldown); err != nil {
			return true, err
		}

		next, applied := t.Apply(move)
		if !applied {
			if d.logger != nil {
				d.logger.Debug("proposed move ignored",
					zap.Int("seat", seat),
					zap.String("action", string(move.Action)),
					zap.String("card_id", move.CardID),
				)
			}
			continue
		}

		switch {
		case next.Over(), next.Pending != nil:
			return true, nil
		case next.ActivePlayer != seat || next.Phase != rules.PhasePlay:
			// The proposal ended the turn itself.
			t.Apply(game.Move{Action: game.MoveStartTurn})
			return true, nil
		case next.ActionsRemaining == 0:
			return d.endTurn(ctx, t)
		}
	}
	return d.endTurn(ctx, t)
}

// endTurn hands the game to the other seat and starts their turn.
func (d *Driver) endTurn(ctx context.Context, t Target) (bool, error) {
	if err := sleep(ctx, d.cfg.Cooldown); err != nil {
		return true, err
	}
	if _, ended := t.Apply(game.Move{Action: game.MoveEndTurn}); !ended {
		return false, nil
	}
	t.Apply(game.Move{Action: game.MoveStartTurn})
	return true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
