package assets

import "github.com/propdeal/propdeal-server-go/internal/game/cards"

// PropertySet is a group of cards laid down under one colour.
type PropertySet struct {
	Color      cards.Color  `json:"color"`
	Cards      []cards.Card `json:"cards"`
	IsComplete bool         `json:"isComplete"`
}

// Refresh recomputes the completion flag from the card count.
func (s *PropertySet) Refresh() {
	s.IsComplete = len(s.Cards) >= cards.SetLimit(s.Color)
}

// Top returns the most recently added card.
func (s *PropertySet) Top() (cards.Card, bool) {
	if len(s.Cards) == 0 {
		return cards.Card{}, false
	}
	return s.Cards[len(s.Cards)-1], true
}

// Value is the summed card value of the set.
func (s *PropertySet) Value() int {
	total := 0
	for _, card := range s.Cards {
		total += card.Value
	}
	return total
}

func (s PropertySet) clone() PropertySet {
	s.Cards = append([]cards.Card(nil), s.Cards...)
	return s
}

// findSet returns the index of the player's set of the given colour, or -1.
// With incompleteOnly set, a complete set does not match.
func (p *Player) findSet(color cards.Color, incompleteOnly bool) int {
	for i := range p.Properties {
		if p.Properties[i].Color != color {
			continue
		}
		if incompleteOnly && p.Properties[i].IsComplete {
			continue
		}
		return i
	}
	return -1
}

func (p *Player) appendToSet(idx int, color cards.Color, card cards.Card) int {
	if idx < 0 {
		p.Properties = append(p.Properties, PropertySet{Color: color})
		idx = len(p.Properties) - 1
	}
	set := &p.Properties[idx]
	set.Cards = append(set.Cards, card)
	set.Refresh()
	return idx
}

// AssignToProperty lays a card into the set of its placement colour, creating the
// set if needed. It returns the index of the receiving set.
func AssignToProperty(p *Player, card cards.Card) int {
	color := card.PlacementColor()
	return p.appendToSet(p.findSet(color, false), color, card)
}

// Reassign places a card received from another player. An incomplete set of the
// primary colour wins, then an incomplete set of the secondary colour, then any set
// of the primary colour, else a new set is opened.
func Reassign(p *Player, card cards.Card) int {
	primary := card.PlacementColor()
	if idx := p.findSet(primary, true); idx >= 0 {
		return p.appendToSet(idx, primary, card)
	}
	if secondary := card.SecondaryColor; secondary != cards.ColorNone {
		if idx := p.findSet(secondary, true); idx >= 0 {
			return p.appendToSet(idx, secondary, card)
		}
	}
	return p.appendToSet(p.findSet(primary, false), primary, card)
}

// RemoveFromProperty pops the top card of the set at setIndex. An emptied set is
// deleted; a shrunk set has its completion recomputed.
func RemoveFromProperty(p *Player, setIndex int) (cards.Card, bool) {
	if setIndex < 0 || setIndex >= len(p.Properties) {
		return cards.Card{}, false
	}
	set := &p.Properties[setIndex]
	card, ok := set.Top()
	if !ok {
		p.Properties = append(p.Properties[:setIndex], p.Properties[setIndex+1:]...)
		return cards.Card{}, false
	}
	set.Cards = set.Cards[:len(set.Cards)-1]
	if len(set.Cards) == 0 {
		p.Properties = append(p.Properties[:setIndex], p.Properties[setIndex+1:]...)
	} else {
		set.Refresh()
	}
	return card, true
}

// TakeSet removes and returns the whole set at setIndex.
func TakeSet(p *Player, setIndex int) (PropertySet, bool) {
	if setIndex < 0 || setIndex >= len(p.Properties) {
		return PropertySet{}, false
	}
	set := p.Properties[setIndex]
	p.Properties = append(p.Properties[:setIndex], p.Properties[setIndex+1:]...)
	return set, true
}

// AddSet gives a whole set to the player. A set of the same colour already held
// absorbs the cards so the player keeps one set per colour.
func AddSet(p *Player, set PropertySet) int {
	if idx := p.findSet(set.Color, false); idx >= 0 {
		existing := &p.Properties[idx]
		existing.Cards = append(existing.Cards, set.Cards...)
		existing.Refresh()
		return idx
	}
	set = set.clone()
	set.Refresh()
	p.Properties = append(p.Properties, set)
	return len(p.Properties) - 1
}

// FirstCompleteSet returns the index of the player's first complete set, or -1.
func FirstCompleteSet(p *Player) int {
	for i := range p.Properties {
		if p.Properties[i].IsComplete {
			return i
		}
	}
	return -1
}

// CompleteSetCount counts the player's complete sets.
func CompleteSetCount(p *Player) int {
	n := 0
	for i := range p.Properties {
		if p.Properties[i].IsComplete {
			n++
		}
	}
	return n
}

// StealableSets lists the indices of non-empty incomplete sets.
func StealableSets(p *Player) []int {
	var out []int
	for i := range p.Properties {
		if !p.Properties[i].IsComplete && len(p.Properties[i].Cards) > 0 {
			out = append(out, i)
		}
	}
	return out
}
