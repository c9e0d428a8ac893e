package ai

import (
	"context"
	"fmt"

	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/game/assets"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
)

// Proposal is an ordered list of moves for one pass of a turn. An END_TURN move ends
// the turn explicitly; a proposal that stops short ends it implicitly.
type Proposal struct {
	Moves []game.Move `json:"moves"`
}

// Proposer suggests moves for an automated seat. The state must not be modified.
type Proposer interface {
	Propose(ctx context.Context, s *game.State, seat int) (Proposal, error)
}

// HeuristicProposer is the built-in player: grow sets, take when it can, bank cash.
type HeuristicProposer struct{}

// NewHeuristicProposer creates the built-in proposer.
func NewHeuristicProposer() *HeuristicProposer {
	return &HeuristicProposer{}
}

// Propose implements Proposer.
func (h *HeuristicProposer) Propose(ctx context.Context, s *game.State, seat int) (Proposal, error) {
	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}
	if seat < 0 || seat >= len(s.Players) {
		return Proposal{}, fmt.Errorf("seat %d out of range", seat)
	}

	p := s.Players[seat]
	opp := s.Players[rules.Opponent(seat)]
	budget := s.ActionsRemaining
	var moves []game.Move

	// Pass Go first so the extra cards are there for the next pass.
	for _, c := range p.Hand {
		if budget > 0 && c.Action == cards.ActionPassGo {
			moves = append(moves, game.ActionMove(c.ID))
			budget--
		}
	}

	for _, c := range p.Hand {
		if budget > 0 && c.Type == cards.TypeProperty {
			moves = append(moves, game.PropertyMove(c.ID))
			budget--
		}
	}
	for _, c := range p.Hand {
		if budget > 0 && c.Type == cards.TypeWild {
			moves = append(moves, game.PropertyMove(c.ID))
			budget--
		}
	}

	// One contested action per pass; its window ends the pass anyway.
	if budget > 0 {
		if c, ok := pickAttack(p, opp); ok {
			moves = append(moves, game.ActionMove(c.ID))
			budget--
		}
	}

	for _, c := range p.Hand {
		if budget == 0 || c.Type != cards.TypeRent {
			continue
		}
		if set, ok := bestRentSet(p, c); ok {
			moves = append(moves, game.ActionMove(c.ID), game.RentTargetMove(set))
			budget--
		}
	}

	for _, c := range p.Hand {
		if budget > 0 && c.Type == cards.TypeMoney {
			moves = append(moves, game.BankMove(c.ID))
			budget--
		}
	}

	moves = append(moves, game.Move{Action: game.MoveEndTurn})
	return Proposal{Moves: moves}, nil
}

// pickAttack returns the first contested action in hand that has something to hit.
func pickAttack(p, opp *assets.Player) (cards.Card, bool) {
	for _, c := range p.Hand {
		if c.Type != cards.TypeAction {
			continue
		}
		switch c.Action {
		case cards.ActionDealBreaker:
			if assets.FirstCompleteSet(opp) >= 0 {
				return c, true
			}
		case cards.ActionSlyDeal:
			if len(assets.StealableSets(opp)) > 0 {
				return c, true
			}
		case cards.ActionForceDeal:
			if len(assets.StealableSets(opp)) > 0 && len(assets.StealableSets(p)) > 0 {
				return c, true
			}
		case cards.ActionDebtCollector, cards.ActionBirthday:
			if opp.AssetValue() > 0 {
				return c, true
			}
		}
	}
	return cards.Card{}, false
}

// bestRentSet finds the set the rent card charges most for.
func bestRentSet(p *assets.Player, rent cards.Card) (int, bool) {
	best, bestAmount := -1, 0
	for i, set := range p.Properties {
		if !rent.RentAllows(set.Color) {
			continue
		}
		if amount := cards.Rent(set.Color, len(set.Cards)); amount > bestAmount {
			best, bestAmount = i, amount
		}
	}
	return best, best >= 0
}
