package game

import (
	"github.com/propdeal/propdeal-server-go/internal/game/assets"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
)

// respond applies the current responder's answer to the open counter-play window.
// Who sent the answer is not checked here.
func (e *Engine) respond(tx *transition, move Move) bool {
	s := tx.state
	pending := s.Pending
	if pending == nil || pending.AwaitingTargets || s.Winner != nil {
		return false
	}

	responderSeat := pending.Responder()
	responder := s.Players[responderSeat]
	if move.UseCounter {
		if idx := responder.CounterIndex(); idx >= 0 {
			counter := responder.Hand[idx]
			responder.Hand = append(responder.Hand[:idx], responder.Hand[idx+1:]...)
			s.Discard = append(s.Discard, counter)
			pending.JSNStack++
			s.logf("%s said %s! (chain depth %d)", responder.Name, counter.Name, pending.JSNStack)
			tx.emit(rules.NewEventWithAmount(rules.EventCounterPlayed, responderSeat, counter.ID, counter.Name, pending.JSNStack))
			return true
		}
	}

	attacker := s.Players[pending.AttackerIndex]
	switch rules.Settle(pending.JSNStack) {
	case rules.OutcomeBlocked:
		s.logf("%s's %s was blocked", attacker.Name, pending.Card.Name)
		tx.emit(rules.NewEvent(rules.EventActionBlocked, pending.AttackerIndex, pending.Card.ID, pending.Card.Name))
	default:
		e.execute(tx, pending)
		tx.emit(rules.NewEvent(rules.EventActionResolved, pending.AttackerIndex, pending.Card.ID, pending.Card.Name))
	}

	s.Discard = append(s.Discard, pending.Card)
	s.Pending = nil
	spendAction(s)
	// Only the attacker is checked here, never the defender.
	e.checkWinCondition(tx, pending.AttackerIndex)
	return true
}

// execute applies the effect of an unblocked contested action.
func (e *Engine) execute(tx *transition, pending *PendingAction) {
	s := tx.state
	attacker := s.Players[pending.AttackerIndex]
	defender := s.Players[pending.TargetIndex]

	switch pending.Type {
	case cards.ActionForceDeal:
		mine, okMine := setAt(attacker, pending.MySetIndex)
		theirs, okTheirs := setAt(defender, pending.TargetSetIndex)
		if !okMine || !okTheirs || len(mine.Cards) == 0 || len(theirs.Cards) == 0 {
			e.fizzle(tx, pending, "there was no card to swap")
			return
		}
		given, _ := assets.RemoveFromProperty(attacker, *pending.MySetIndex)
		taken, _ := assets.RemoveFromProperty(defender, *pending.TargetSetIndex)
		assets.Reassign(defender, given)
		assets.Reassign(attacker, taken)
		s.logf("%s swapped %s for %s's %s", attacker.Name, given.Name, defender.Name, taken.Name)

	case cards.ActionSlyDeal:
		theirs, ok := setAt(defender, pending.TargetSetIndex)
		if !ok || len(theirs.Cards) == 0 {
			e.fizzle(tx, pending, "the set was empty")
			return
		}
		if theirs.IsComplete {
			e.fizzle(tx, pending, "the set is already complete")
			return
		}
		taken, _ := assets.RemoveFromProperty(defender, *pending.TargetSetIndex)
		assets.Reassign(attacker, taken)
		s.logf("%s stole %s from %s", attacker.Name, taken.Name, defender.Name)

	case cards.ActionDealBreaker:
		idx := assets.FirstCompleteSet(defender)
		if idx < 0 {
			e.fizzle(tx, pending, "there was no complete set")
			return
		}
		set, _ := assets.TakeSet(defender, idx)
		assets.AddSet(attacker, set)
		s.logf("%s took %s's complete %s set", attacker.Name, defender.Name, set.Color)

	case cards.ActionDebtCollector:
		s.logf("%s collects %dM from %s", attacker.Name, rules.DebtCollectorAmount, defender.Name)
		e.settle(tx, pending.TargetIndex, pending.AttackerIndex, rules.DebtCollectorAmount)

	case cards.ActionBirthday:
		s.logf("It's %s's birthday! %s pays %dM", attacker.Name, defender.Name, rules.BirthdayAmount)
		e.settle(tx, pending.TargetIndex, pending.AttackerIndex, rules.BirthdayAmount)
	}
}

func (e *Engine) fizzle(tx *transition, pending *PendingAction, reason string) {
	s := tx.state
	s.logf("%s had no effect: %s", cards.ActionName(pending.Type), reason)
	tx.emit(rules.NewEvent(rules.EventActionFizzled, pending.AttackerIndex, pending.Card.ID, reason))
}

func setAt(p *assets.Player, idx *int) (assets.PropertySet, bool) {
	if idx == nil || *idx < 0 || *idx >= len(p.Properties) {
		return assets.PropertySet{}, false
	}
	return p.Properties[*idx], true
}
