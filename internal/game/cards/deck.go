package cards

import (
	"fmt"
	"math/rand/v2"
)

type propertyDef struct {
	name  string
	color Color
	value int
}

var standardProperties = []propertyDef{
	{"Mediterranean Avenue", ColorBrown, 1},
	{"Baltic Avenue", ColorBrown, 1},
	{"Oriental Avenue", ColorLightBlue, 1},
	{"Vermont Avenue", ColorLightBlue, 1},
	{"Connecticut Avenue", ColorLightBlue, 1},
	{"St. Charles Place", ColorPink, 2},
	{"States Avenue", ColorPink, 2},
	{"Virginia Avenue", ColorPink, 2},
	{"St. James Place", ColorOrange, 2},
	{"Tennessee Avenue", ColorOrange, 2},
	{"New York Avenue", ColorOrange, 2},
	{"Kentucky Avenue", ColorRed, 3},
	{"Indiana Avenue", ColorRed, 3},
	{"Illinois Avenue", ColorRed, 3},
	{"Atlantic Avenue", ColorYellow, 3},
	{"Ventnor Avenue", ColorYellow, 3},
	{"Marvin Gardens", ColorYellow, 3},
	{"Pacific Avenue", ColorGreen, 4},
	{"North Carolina Avenue", ColorGreen, 4},
	{"Pennsylvania Avenue", ColorGreen, 4},
	{"Park Place", ColorDarkBlue, 4},
	{"Boardwalk", ColorDarkBlue, 4},
	{"Reading Railroad", ColorRailroad, 2},
	{"Pennsylvania Railroad", ColorRailroad, 2},
	{"B. & O. Railroad", ColorRailroad, 2},
	{"Short Line", ColorRailroad, 2},
	{"Electric Company", ColorUtility, 2},
	{"Water Works", ColorUtility, 2},
}

type pairDef struct {
	primary, secondary Color
	value              int
	count              int
}

var standardWilds = []pairDef{
	{ColorDarkBlue, ColorGreen, 4, 1},
	{ColorGreen, ColorRailroad, 4, 1},
	{ColorLightBlue, ColorBrown, 1, 1},
	{ColorLightBlue, ColorRailroad, 4, 1},
	{ColorPink, ColorOrange, 2, 2},
	{ColorRailroad, ColorUtility, 2, 1},
	{ColorRed, ColorYellow, 3, 2},
	{ColorNone, ColorNone, 0, 2},
}

var standardRents = []pairDef{
	{ColorDarkBlue, ColorGreen, 1, 2},
	{ColorRed, ColorYellow, 1, 2},
	{ColorPink, ColorOrange, 1, 2},
	{ColorLightBlue, ColorBrown, 1, 2},
	{ColorRailroad, ColorUtility, 1, 2},
	{ColorNone, ColorNone, 3, 3},
}

var standardActions = []struct {
	kind  ActionKind
	value int
	count int
}{
	{ActionDealBreaker, 5, 2},
	{ActionJustSayNo, 4, 3},
	{ActionSlyDeal, 3, 3},
	{ActionForceDeal, 3, 4},
	{ActionDebtCollector, 3, 3},
	{ActionBirthday, 2, 3},
	{ActionPassGo, 1, 10},
}

var standardMoney = []struct{ value, count int }{
	{1, 6}, {2, 5}, {3, 3}, {4, 3}, {5, 2}, {10, 1},
}

// StandardDeck returns the full deck in a fixed, unshuffled order.
func StandardDeck() []Card {
	deck := make([]Card, 0, 100)
	seq := 0
	nextID := func() string {
		seq++
		return fmt.Sprintf("c%03d", seq)
	}

	for _, m := range standardMoney {
		for i := 0; i < m.count; i++ {
			deck = append(deck, NewMoney(nextID(), m.value))
		}
	}
	for _, p := range standardProperties {
		deck = append(deck, NewProperty(nextID(), p.name, p.color, p.value))
	}
	for _, w := range standardWilds {
		for i := 0; i < w.count; i++ {
			deck = append(deck, NewWild(nextID(), w.primary, w.secondary, w.value))
		}
	}
	for _, r := range standardRents {
		for i := 0; i < r.count; i++ {
			deck = append(deck, NewRent(nextID(), r.primary, r.secondary, r.value))
		}
	}
	for _, a := range standardActions {
		for i := 0; i < a.count; i++ {
			deck = append(deck, NewAction(nextID(), a.kind, a.value))
		}
	}
	return deck
}

// Shuffle permutes cards in place using rng.
func Shuffle(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}
