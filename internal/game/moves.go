package game

import (
	"github.com/propdeal/propdeal-server-go/internal/game/assets"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"github.com/propdeal/propdeal-server-go/internal/game/settlement"
)

// canAct holds the preconditions shared by every card move.
func canAct(s *State) bool {
	return s.Phase == rules.PhasePlay &&
		s.ActionsRemaining > 0 &&
		s.Winner == nil &&
		s.Pending == nil
}

func spendAction(s *State) {
	if s.ActionsRemaining > 0 {
		s.ActionsRemaining--
	}
}

func (e *Engine) bank(tx *transition, move Move) bool {
	s := tx.state
	if !canAct(s) {
		return false
	}
	p := s.Active()
	card, ok := p.TakeFromHand(move.CardID)
	if !ok {
		return false
	}

	s.Interaction = nil
	p.Bank = append(p.Bank, card)
	spendAction(s)
	s.logf("%s banked %s", p.Name, card)
	tx.emit(rules.NewEventWithAmount(rules.EventCardBanked, s.ActivePlayer, card.ID, card.String(), card.Value))
	return true
}

func (e *Engine) playProperty(tx *transition, move Move) bool {
	s := tx.state
	if !canAct(s) {
		return false
	}
	p := s.Active()
	idx := p.HandIndex(move.CardID)
	if idx < 0 || !p.Hand[idx].Placeable() {
		return false
	}
	card, _ := p.TakeFromHand(move.CardID)

	s.Interaction = nil
	setIdx := assets.AssignToProperty(p, card)
	spendAction(s)
	s.logf("%s played %s to %s", p.Name, card.Name, p.Properties[setIdx].Color)
	tx.emit(rules.NewEvent(rules.EventPropertyPlayed, s.ActivePlayer, card.ID, card.Name))
	e.checkWinCondition(tx, s.ActivePlayer)
	return true
}

func (e *Engine) playAction(tx *transition, move Move) bool {
	s := tx.state
	if !canAct(s) {
		return false
	}
	seat := s.ActivePlayer
	p := s.Active()
	idx := p.HandIndex(move.CardID)
	if idx < 0 {
		return false
	}
	card := p.Hand[idx]

	switch {
	case card.Type == cards.TypeRent:
		return e.armRent(tx, card)

	case card.Type != cards.TypeAction:
		return false

	case card.Action.NeedsTargets():
		p.TakeFromHand(card.ID)
		s.Interaction = nil
		tx.emit(rules.NewEvent(rules.EventActionPlayed, seat, card.ID, card.Name))
		if !p.IsAI {
			if !hasTargets(s, card.Action) {
				wasteCard(tx, card)
				return true
			}
			s.Pending = &PendingAction{
				Type:            card.Action,
				Card:            card,
				AttackerIndex:   seat,
				TargetIndex:     rules.Opponent(seat),
				AwaitingTargets: true,
			}
			s.logf("%s played %s and is choosing a target", p.Name, card.Name)
			return true
		}
		mySet, targetSet, ok := pickTargets(s, card.Action)
		if !ok {
			wasteCard(tx, card)
			return true
		}
		s.Pending = &PendingAction{
			Type:           card.Action,
			Card:           card,
			AttackerIndex:  seat,
			TargetIndex:    rules.Opponent(seat),
			TargetSetIndex: IntPtr(targetSet),
			MySetIndex:     mySet,
		}
		s.logf("%s played %s targeting %s", p.Name, card.Name, s.Opponent().Properties[targetSet].Color)
		return true

	case card.Action.Contested():
		p.TakeFromHand(card.ID)
		s.Interaction = nil
		s.Pending = &PendingAction{
			Type:          card.Action,
			Card:          card,
			AttackerIndex: seat,
			TargetIndex:   rules.Opponent(seat),
		}
		s.logf("%s played %s", p.Name, card.Name)
		tx.emit(rules.NewEvent(rules.EventActionPlayed, seat, card.ID, card.Name))
		return true

	case card.Action == cards.ActionPassGo:
		p.TakeFromHand(card.ID)
		s.Interaction = nil
		drawn := e.draw(tx, seat, rules.PassGoDraw)
		s.Discard = append(s.Discard, card)
		spendAction(s)
		s.logf("%s played %s and drew %d cards", p.Name, card.Name, drawn)
		tx.emit(rules.NewEvent(rules.EventActionPlayed, seat, card.ID, card.Name))
		return true

	default:
		// Counters only answer contested actions.
		return false
	}
}

// pickTargets chooses random targets for an automated attacker among incomplete,
// non-empty sets. mySet is nil for Sly Deal.
// hasTargets reports whether a chosen-target action has any set to aim at.
// Completeness is judged when the action resolves.
func hasTargets(s *State, kind cards.ActionKind) bool {
	if len(s.Opponent().Properties) == 0 {
		return false
	}
	return kind != cards.ActionForceDeal || len(s.Active().Properties) > 0
}

// wasteCard discards an action that had nothing to aim at. It still costs an action.
func wasteCard(tx *transition, card cards.Card) {
	s := tx.state
	s.Discard = append(s.Discard, card)
	spendAction(s)
	s.logf("%s played %s but there was nothing to take", s.Active().Name, card.Name)
	tx.emit(rules.NewEvent(rules.EventCardWasted, s.ActivePlayer, card.ID, card.Name))
}

func pickTargets(s *State, kind cards.ActionKind) (*int, int, bool) {
	theirs := assets.StealableSets(s.Opponent())
	if len(theirs) == 0 {
		return nil, 0, false
	}
	var mine []int
	if kind == cards.ActionForceDeal {
		mine = assets.StealableSets(s.Active())
		if len(mine) == 0 {
			return nil, 0, false
		}
	}

	rng := s.rng()
	target := theirs[rng.IntN(len(theirs))]
	if kind != cards.ActionForceDeal {
		return nil, target, true
	}
	return IntPtr(mine[rng.IntN(len(mine))]), target, true
}

func (e *Engine) armRent(tx *transition, card cards.Card) bool {
	s := tx.state
	if s.Interaction != nil && s.Interaction.CardID == card.ID {
		return false
	}
	s.Interaction = &Interaction{Kind: InteractionRentSet, Seat: s.ActivePlayer, CardID: card.ID}
	s.logf("%s is choosing a set to charge rent for", s.Active().Name)
	tx.emit(rules.NewEvent(rules.EventRentArmed, s.ActivePlayer, card.ID, card.Name))
	return true
}

func (e *Engine) cancel(tx *transition) bool {
	s := tx.state
	if s.Interaction == nil {
		return false
	}
	cardID := s.Interaction.CardID
	s.Interaction = nil
	tx.emit(rules.NewEvent(rules.EventRentCancelled, s.ActivePlayer, cardID, ""))
	return true
}

func (e *Engine) selectTarget(tx *transition, move Move) bool {
	s := tx.state
	switch {
	case s.Interaction != nil && s.Interaction.Kind == InteractionRentSet:
		return e.chargeRent(tx, move)
	case s.Pending != nil && s.Pending.AwaitingTargets:
		return e.chooseTargets(tx, move)
	default:
		return false
	}
}

func (e *Engine) chargeRent(tx *transition, move Move) bool {
	s := tx.state
	if !canAct(s) || move.MySetIndex == nil {
		return false
	}
	seat := s.ActivePlayer
	p := s.Active()
	setIdx := *move.MySetIndex
	if setIdx < 0 || setIdx >= len(p.Properties) {
		return false
	}
	handIdx := p.HandIndex(s.Interaction.CardID)
	if handIdx < 0 {
		return false
	}
	card := p.Hand[handIdx]
	set := p.Properties[setIdx]
	if !card.RentAllows(set.Color) {
		return false
	}

	amount := cards.Rent(set.Color, len(set.Cards))
	p.TakeFromHand(card.ID)
	s.Discard = append(s.Discard, card)
	s.Interaction = nil
	s.logf("%s charged %dM rent for %s", p.Name, amount, set.Color)
	tx.emit(rules.NewEventWithAmount(rules.EventRentCharged, seat, card.ID, string(set.Color), amount))

	e.settle(tx, rules.Opponent(seat), seat, amount)
	spendAction(s)
	e.checkWinCondition(tx, seat)
	return true
}

func (e *Engine) chooseTargets(tx *transition, move Move) bool {
	s := tx.state
	pending := s.Pending
	if s.Winner != nil || move.TargetSetIndex == nil {
		return false
	}
	defender := s.Players[pending.TargetIndex]
	attacker := s.Players[pending.AttackerIndex]

	target := *move.TargetSetIndex
	if target < 0 || target >= len(defender.Properties) {
		return false
	}
	if pending.Type == cards.ActionForceDeal {
		if move.MySetIndex == nil || *move.MySetIndex < 0 || *move.MySetIndex >= len(attacker.Properties) {
			return false
		}
		pending.MySetIndex = IntPtr(*move.MySetIndex)
	}
	pending.TargetSetIndex = IntPtr(target)
	pending.AwaitingTargets = false

	s.logf("%s aimed %s at %s's %s", attacker.Name, pending.Card.Name, defender.Name, defender.Properties[target].Color)
	tx.emit(rules.NewEvent(rules.EventTargetsChosen, pending.AttackerIndex, pending.Card.ID, string(defender.Properties[target].Color)))
	return true
}

// settle runs a settlement between two seats and logs every transfer.
func (e *Engine) settle(tx *transition, debtorSeat, creditorSeat, amount int) {
	s := tx.state
	debtor := s.Players[debtorSeat]
	creditor := s.Players[creditorSeat]

	result := settlement.Settle(debtor, creditor, amount)
	for _, transfer := range result.Transfers {
		line := transfer.Describe(debtor.Name, creditor.Name)
		s.logf("%s", line)
		tx.emit(rules.NewEventWithAmount(rules.EventPayment, debtorSeat, transfer.Card.ID, line, transfer.Card.Value))
	}
	if len(result.Transfers) == 0 && amount > 0 {
		s.logf("%s had nothing to pay %s with", debtor.Name, creditor.Name)
	}
}
