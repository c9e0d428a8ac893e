package assets

import (
	"testing"

	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brown(id string) cards.Card {
	return cards.NewProperty(id, "Brown "+id, cards.ColorBrown, 1)
}

func TestAssignToPropertyCompletesSet(t *testing.T) {
	p := NewPlayer("Alice", false)

	idx := AssignToProperty(p, brown("b1"))
	require.Equal(t, 0, idx)
	assert.False(t, p.Properties[0].IsComplete)

	idx = AssignToProperty(p, brown("b2"))
	require.Equal(t, 0, idx)
	assert.True(t, p.Properties[0].IsComplete)
	assert.Len(t, p.Properties, 1, "one set per colour")
}

func TestAssignColourlessWildGoesToAny(t *testing.T) {
	p := NewPlayer("Alice", false)
	AssignToProperty(p, cards.NewWild("w1", cards.ColorNone, cards.ColorNone, 0))
	AssignToProperty(p, cards.NewWild("w2", cards.ColorNone, cards.ColorNone, 0))
	AssignToProperty(p, cards.NewWild("w3", cards.ColorNone, cards.ColorNone, 0))

	require.Len(t, p.Properties, 1)
	assert.Equal(t, cards.ColorAny, p.Properties[0].Color)
	assert.False(t, p.Properties[0].IsComplete, "ANY never completes")
}

func TestReassignPrefersIncompleteSecondaryOverCompletePrimary(t *testing.T) {
	p := NewPlayer("Bob", false)
	AssignToProperty(p, cards.NewProperty("lb1", "LB1", cards.ColorLightBlue, 1))
	AssignToProperty(p, cards.NewProperty("lb2", "LB2", cards.ColorLightBlue, 1))
	AssignToProperty(p, cards.NewProperty("lb3", "LB3", cards.ColorLightBlue, 1))
	AssignToProperty(p, brown("b1"))
	require.True(t, p.Properties[0].IsComplete)

	wild := cards.NewWild("w1", cards.ColorLightBlue, cards.ColorBrown, 1)
	idx := Reassign(p, wild)

	assert.Equal(t, 1, idx)
	assert.Equal(t, cards.ColorBrown, p.Properties[1].Color)
	assert.True(t, p.Properties[1].IsComplete)
	assert.Len(t, p.Properties[0].Cards, 3)
}

func TestReassignFallsBackToCompletePrimary(t *testing.T) {
	p := NewPlayer("Bob", false)
	AssignToProperty(p, brown("b1"))
	AssignToProperty(p, brown("b2"))

	idx := Reassign(p, brown("b3"))
	assert.Equal(t, 0, idx)
	assert.Len(t, p.Properties[0].Cards, 3)
	assert.True(t, p.Properties[0].IsComplete)
}

func TestReassignOpensNewSet(t *testing.T) {
	p := NewPlayer("Bob", false)
	idx := Reassign(p, cards.NewProperty("g1", "G1", cards.ColorGreen, 4))
	assert.Equal(t, 0, idx)
	assert.Equal(t, cards.ColorGreen, p.Properties[0].Color)
}

func TestRemoveFromProperty(t *testing.T) {
	p := NewPlayer("Alice", false)
	AssignToProperty(p, brown("b1"))
	AssignToProperty(p, brown("b2"))

	card, ok := RemoveFromProperty(p, 0)
	require.True(t, ok)
	assert.Equal(t, "b2", card.ID, "top card is the most recently added")
	require.Len(t, p.Properties, 1)
	assert.False(t, p.Properties[0].IsComplete)

	card, ok = RemoveFromProperty(p, 0)
	require.True(t, ok)
	assert.Equal(t, "b1", card.ID)
	assert.Empty(t, p.Properties, "emptied set is deleted")

	_, ok = RemoveFromProperty(p, 0)
	assert.False(t, ok)
	_, ok = RemoveFromProperty(p, -1)
	assert.False(t, ok)
}

func TestTakeAndAddSet(t *testing.T) {
	victim := NewPlayer("Bob", false)
	AssignToProperty(victim, brown("b1"))
	AssignToProperty(victim, brown("b2"))

	thief := NewPlayer("Alice", false)
	AssignToProperty(thief, cards.NewProperty("g1", "G1", cards.ColorGreen, 4))

	set, ok := TakeSet(victim, FirstCompleteSet(victim))
	require.True(t, ok)
	assert.Empty(t, victim.Properties)

	idx := AddSet(thief, set)
	assert.Equal(t, 1, idx)
	assert.True(t, thief.Properties[1].IsComplete)
	assert.Equal(t, 1, CompleteSetCount(thief))
}

func TestAddSetMergesSameColour(t *testing.T) {
	thief := NewPlayer("Alice", false)
	AssignToProperty(thief, brown("b0"))

	AddSet(thief, PropertySet{Color: cards.ColorBrown, Cards: []cards.Card{brown("b1"), brown("b2")}, IsComplete: true})

	require.Len(t, thief.Properties, 1)
	assert.Len(t, thief.Properties[0].Cards, 3)
	assert.True(t, thief.Properties[0].IsComplete)
}

func TestStealableSets(t *testing.T) {
	p := NewPlayer("Bob", false)
	AssignToProperty(p, brown("b1"))
	AssignToProperty(p, brown("b2"))
	AssignToProperty(p, cards.NewProperty("g1", "G1", cards.ColorGreen, 4))

	assert.Equal(t, []int{1}, StealableSets(p))
}

func TestPlayerHandAndValues(t *testing.T) {
	p := NewPlayer("Alice", false)
	p.Hand = append(p.Hand, cards.NewMoney("m1", 2), cards.NewAction("j1", cards.ActionJustSayNo, 4))
	p.Bank = append(p.Bank, cards.NewMoney("m2", 5))
	AssignToProperty(p, brown("b1"))

	assert.True(t, p.HasCounter())
	assert.Equal(t, 1, p.CounterIndex())
	assert.Equal(t, 5, p.BankValue())
	assert.Equal(t, 6, p.AssetValue())
	assert.Equal(t, 4, p.CardCount())

	card, ok := p.TakeFromHand("m1")
	require.True(t, ok)
	assert.Equal(t, 2, card.Value)
	_, ok = p.TakeFromHand("m1")
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewPlayer("Alice", false)
	AssignToProperty(p, brown("b1"))
	p.Bank = append(p.Bank, cards.NewMoney("m1", 1))

	cpy := p.Clone()
	AssignToProperty(cpy, brown("b2"))
	cpy.Bank = cpy.Bank[:0]

	assert.Len(t, p.Properties[0].Cards, 1)
	assert.False(t, p.Properties[0].IsComplete)
	assert.Len(t, p.Bank, 1)
}
