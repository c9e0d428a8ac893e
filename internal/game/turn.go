package game

import (
	"github.com/propdeal/propdeal-server-go/internal/game/assets"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
)

func (e *Engine) startGame(tx *transition) bool {
	s := tx.state
	if s.Phase != rules.PhaseLobby || len(s.Players) != rules.PlayerCount || !s.enter(rules.PhaseStartTurn) {
		return false
	}

	cards.Shuffle(s.Deck, s.rng())
	for round := 0; round < rules.StartingHand; round++ {
		for seat := range s.Players {
			e.draw(tx, seat, 1)
		}
	}
	s.ActivePlayer = 0
	s.ActionsRemaining = rules.ActionsPerTurn
	s.logf("%s and %s sit down to play", s.Players[0].Name, s.Players[1].Name)
	tx.emit(rules.NewEvent(rules.EventGameStarted, 0, "", ""))
	return true
}

func (e *Engine) startTurn(tx *transition) bool {
	s := tx.state
	if s.Winner != nil || !s.enter(rules.PhasePlay) {
		return false
	}

	seat := s.ActivePlayer
	p := s.Active()
	drawn := e.draw(tx, seat, rules.DrawCount(len(p.Hand)))
	s.ActionsRemaining = rules.ActionsPerTurn
	s.Turn++
	s.logf("Turn %d: %s drew %d cards", s.Turn, p.Name, drawn)
	tx.emit(rules.NewEventWithAmount(rules.EventTurnStarted, seat, "", p.Name, s.Turn))
	return true
}

func (e *Engine) endTurn(tx *transition) bool {
	s := tx.state
	if s.Winner != nil {
		return false
	}
	if _, open := s.AwaitingResponse(); open || !s.enter(rules.PhaseEndTurn) {
		return false
	}

	seat := s.ActivePlayer
	if s.Pending != nil {
		// Played but never aimed: the card is spent.
		s.Discard = append(s.Discard, s.Pending.Card)
		s.logf("%s's %s was discarded without a target", s.Active().Name, s.Pending.Card.Name)
		s.Pending = nil
	}
	s.Interaction = nil
	s.logf("%s ended their turn", s.Active().Name)
	tx.emit(rules.NewEvent(rules.EventTurnEnded, seat, "", ""))

	s.ActivePlayer = rules.Opponent(seat)
	s.ActionsRemaining = rules.ActionsPerTurn
	s.enter(rules.PhaseStartTurn)
	return true
}

// enter moves the state to the phase if the phase table allows it.
func (s *State) enter(to rules.Phase) bool {
	if !rules.CanTransition(s.Phase, to) {
		return false
	}
	s.Phase = to
	return true
}

// draw moves up to n cards from the top of the deck into a hand, refilling the deck
// from the discard pile when it runs dry. It returns how many cards were drawn.
func (e *Engine) draw(tx *transition, seat, n int) int {
	s := tx.state
	p := s.Players[seat]
	drawn := 0
	for ; drawn < n; drawn++ {
		if len(s.Deck) == 0 && !e.refillDeck(tx) {
			break
		}
		p.Hand = append(p.Hand, s.Deck[0])
		s.Deck = s.Deck[1:]
	}
	if drawn > 0 {
		tx.emit(rules.NewEventWithAmount(rules.EventCardsDrawn, seat, "", "", drawn))
	}
	return drawn
}

func (e *Engine) refillDeck(tx *transition) bool {
	s := tx.state
	if len(s.Discard) == 0 {
		return false
	}
	s.Deck = append(s.Deck, s.Discard...)
	s.Discard = s.Discard[:0]
	cards.Shuffle(s.Deck, s.rng())
	s.logf("The discard pile was shuffled into a new deck")
	tx.emit(rules.NewEventWithAmount(rules.EventDeckRefill, s.ActivePlayer, "", "", len(s.Deck)))
	return true
}

// checkWinCondition ends the game if the seat holds enough complete sets.
func (e *Engine) checkWinCondition(tx *transition, seat int) bool {
	s := tx.state
	if s.Winner != nil {
		return true
	}
	p := s.Players[seat]
	if assets.CompleteSetCount(p) < rules.SetsToWin || !s.enter(rules.PhaseGameOver) {
		return false
	}
	s.Winner = IntPtr(seat)
	s.Interaction = nil
	s.logf("%s wins with %d complete sets!", p.Name, assets.CompleteSetCount(p))
	tx.emit(rules.NewEventWithAmount(rules.EventGameWon, seat, "", p.Name, s.Turn))
	return true
}

// CheckWinCondition reports whether the seat has won in the given state.
func CheckWinCondition(s *State, seat int) bool {
	if seat < 0 || seat >= len(s.Players) {
		return false
	}
	return assets.CompleteSetCount(s.Players[seat]) >= rules.SetsToWin
}
