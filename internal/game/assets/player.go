package assets

import "github.com/propdeal/propdeal-server-go/internal/game/cards"

// Player holds everything one seat owns.
type Player struct {
	Name       string        `json:"name"`
	Hand       []cards.Card  `json:"hand"`
	Bank       []cards.Card  `json:"bank"`
	Properties []PropertySet `json:"properties"`
	// IsAI marks a seat driven by an automated player. The engine only uses it to
	// pick targets on the player's behalf.
	IsAI bool `json:"isAI"`
}

// NewPlayer creates an empty player.
func NewPlayer(name string, isAI bool) *Player {
	return &Player{
		Name:       name,
		Hand:       make([]cards.Card, 0, 12),
		Bank:       make([]cards.Card, 0, 12),
		Properties: make([]PropertySet, 0, 4),
		IsAI:       isAI,
	}
}

// Clone deep-copies the player so the copy shares no slices with p.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cpy := &Player{
		Name:       p.Name,
		Hand:       append([]cards.Card(nil), p.Hand...),
		Bank:       append([]cards.Card(nil), p.Bank...),
		Properties: make([]PropertySet, len(p.Properties)),
		IsAI:       p.IsAI,
	}
	for i := range p.Properties {
		cpy.Properties[i] = p.Properties[i].clone()
	}
	return cpy
}

// HandIndex returns the position of the card in the hand, or -1.
func (p *Player) HandIndex(cardID string) int {
	for i, card := range p.Hand {
		if card.ID == cardID {
			return i
		}
	}
	return -1
}

// TakeFromHand removes a card from the hand by id.
func (p *Player) TakeFromHand(cardID string) (cards.Card, bool) {
	idx := p.HandIndex(cardID)
	if idx < 0 {
		return cards.Card{}, false
	}
	card := p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return card, true
}

// CounterIndex returns the hand position of a counter card, or -1.
func (p *Player) CounterIndex() int {
	for i, card := range p.Hand {
		if card.IsCounter() {
			return i
		}
	}
	return -1
}

// HasCounter reports whether the player holds a counter card.
func (p *Player) HasCounter() bool {
	return p.CounterIndex() >= 0
}

// BankValue sums the bank.
func (p *Player) BankValue() int {
	total := 0
	for _, card := range p.Bank {
		total += card.Value
	}
	return total
}

// PropertyValue sums every laid-down card.
func (p *Player) PropertyValue() int {
	total := 0
	for i := range p.Properties {
		total += p.Properties[i].Value()
	}
	return total
}

// AssetValue is everything a debt can be paid from.
func (p *Player) AssetValue() int {
	return p.BankValue() + p.PropertyValue()
}

// CardCount counts cards across hand, bank and properties.
func (p *Player) CardCount() int {
	n := len(p.Hand) + len(p.Bank)
	for i := range p.Properties {
		n += len(p.Properties[i].Cards)
	}
	return n
}
