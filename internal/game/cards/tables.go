package cards

import "math"

// setLimits is the number of cards that completes each colour group.
var setLimits = map[Color]int{
	ColorBrown:     2,
	ColorDarkBlue:  2,
	ColorUtility:   2,
	ColorLightBlue: 3,
	ColorPink:      3,
	ColorOrange:    3,
	ColorRed:       3,
	ColorYellow:    3,
	ColorGreen:     3,
	ColorRailroad:  4,
}

// rentSchedules maps a colour to the rent owed for 1..n cards in the set.
var rentSchedules = map[Color][]int{
	ColorBrown:     {1, 2},
	ColorDarkBlue:  {3, 8},
	ColorUtility:   {1, 2},
	ColorLightBlue: {1, 2, 3},
	ColorPink:      {1, 2, 4},
	ColorOrange:    {1, 3, 5},
	ColorRed:       {2, 3, 6},
	ColorYellow:    {2, 4, 6},
	ColorGreen:     {2, 4, 7},
	ColorRailroad:  {1, 2, 3, 4},
}

// Colors lists the real property colours in table order.
var Colors = []Color{
	ColorBrown, ColorLightBlue, ColorPink, ColorOrange, ColorRed,
	ColorYellow, ColorGreen, ColorDarkBlue, ColorRailroad, ColorUtility,
}

// SetLimit returns how many cards complete a set of the given colour.
// ANY and unknown colours can never complete.
func SetLimit(color Color) int {
	if limit, ok := setLimits[color]; ok {
		return limit
	}
	return math.MaxInt
}

// Rent returns the rent owed for a set of the given colour holding count cards.
func Rent(color Color, count int) int {
	schedule, ok := rentSchedules[color]
	if !ok || count <= 0 {
		return 0
	}
	if count > len(schedule) {
		count = len(schedule)
	}
	return schedule[count-1]
}
