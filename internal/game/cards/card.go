package cards

import "fmt"

// Type is the broad category of a card.
type Type string

const (
	TypeProperty Type = "PROPERTY"
	TypeAction   Type = "ACTION"
	TypeRent     Type = "RENT"
	TypeMoney    Type = "MONEY"
	TypeWild     Type = "WILD"
)

// Valid reports whether t is one of the known card types.
func (t Type) Valid() bool {
	switch t {
	case TypeProperty, TypeAction, TypeRent, TypeMoney, TypeWild:
		return true
	}
	return false
}

// Color identifies a property group.
type Color string

const (
	ColorNone      Color = ""
	ColorBrown     Color = "BROWN"
	ColorLightBlue Color = "LIGHT_BLUE"
	ColorPink      Color = "PINK"
	ColorOrange    Color = "ORANGE"
	ColorRed       Color = "RED"
	ColorYellow    Color = "YELLOW"
	ColorGreen     Color = "GREEN"
	ColorDarkBlue  Color = "DARK_BLUE"
	ColorRailroad  Color = "RAILROAD"
	ColorUtility   Color = "UTILITY"
	// ColorAny is the placement of a colourless wildcard. It never completes.
	ColorAny Color = "ANY"
)

// ActionKind is the behaviour of an action or rent card, fixed when the card is built.
type ActionKind string

const (
	ActionNone          ActionKind = ""
	ActionForceDeal     ActionKind = "FORCE_DEAL"
	ActionSlyDeal       ActionKind = "SLY_DEAL"
	ActionDealBreaker   ActionKind = "DEAL_BREAKER"
	ActionDebtCollector ActionKind = "DEBT_COLLECTOR"
	ActionBirthday      ActionKind = "BIRTHDAY"
	ActionJustSayNo     ActionKind = "JUST_SAY_NO"
	ActionPassGo        ActionKind = "PASS_GO"
	ActionRent          ActionKind = "RENT"
	// ActionRentAll is reserved. No card in any deck is built with it.
	ActionRentAll ActionKind = "RENT_ALL"
)

// Contested reports whether playing the action opens a counter-play window.
func (k ActionKind) Contested() bool {
	switch k {
	case ActionForceDeal, ActionSlyDeal, ActionDealBreaker, ActionDebtCollector, ActionBirthday:
		return true
	}
	return false
}

// NeedsTargets reports whether the action needs set targets before its window opens.
func (k ActionKind) NeedsTargets() bool {
	return k == ActionForceDeal || k == ActionSlyDeal
}

// Card is an immutable game card. Only its container ever changes.
type Card struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           Type       `json:"type"`
	Value          int        `json:"value"`
	Color          Color      `json:"color,omitempty"`
	SecondaryColor Color      `json:"secondaryColor,omitempty"`
	Action         ActionKind `json:"action,omitempty"`
}

// PlacementColor is the colour a card is placed under when played as a property.
func (c Card) PlacementColor() Color {
	if c.Color == ColorNone {
		return ColorAny
	}
	return c.Color
}

// Placeable reports whether the card may be laid down as a property.
func (c Card) Placeable() bool {
	return c.Type == TypeProperty || c.Type == TypeWild
}

// IsCounter reports whether the card can cancel a contested action.
func (c Card) IsCounter() bool {
	return c.Action == ActionJustSayNo
}

// RentAllows reports whether a rent card may charge rent for a set of the given colour.
// Rent cards without a colour charge for any real colour.
func (c Card) RentAllows(color Color) bool {
	if c.Type != TypeRent || color == ColorAny || color == ColorNone {
		return false
	}
	if c.Color == ColorNone {
		return true
	}
	return c.Color == color || c.SecondaryColor == color
}

func (c Card) String() string {
	return fmt.Sprintf("%s (%dM)", c.Name, c.Value)
}

// NewMoney builds a money card.
func NewMoney(id string, value int) Card {
	return Card{ID: id, Name: fmt.Sprintf("%dM", value), Type: TypeMoney, Value: value}
}

// NewProperty builds a single-colour property card.
func NewProperty(id, name string, color Color, value int) Card {
	return Card{ID: id, Name: name, Type: TypeProperty, Value: value, Color: color}
}

// NewWild builds a property wildcard. Both colours empty means a multi-colour wild.
func NewWild(id string, primary, secondary Color, value int) Card {
	name := "Property Wild"
	if primary != ColorNone {
		name = fmt.Sprintf("Wild %s/%s", primary, secondary)
	}
	return Card{ID: id, Name: name, Type: TypeWild, Value: value, Color: primary, SecondaryColor: secondary}
}

// NewRent builds a rent card. Both colours empty means a wild rent card.
func NewRent(id string, primary, secondary Color, value int) Card {
	name := "Rent (any colour)"
	if primary != ColorNone {
		name = fmt.Sprintf("Rent %s/%s", primary, secondary)
	}
	return Card{ID: id, Name: name, Type: TypeRent, Value: value, Color: primary, SecondaryColor: secondary, Action: ActionRent}
}

// NewAction builds an action card of the given kind.
func NewAction(id string, kind ActionKind, value int) Card {
	return Card{ID: id, Name: ActionName(kind), Type: TypeAction, Value: value, Action: kind}
}

var actionNames = map[ActionKind]string{
	ActionForceDeal:     "Force Deal",
	ActionSlyDeal:       "Sly Deal",
	ActionDealBreaker:   "Deal Breaker",
	ActionDebtCollector: "Debt Collector",
	ActionBirthday:      "It's My Birthday",
	ActionJustSayNo:     "Just Say No",
	ActionPassGo:        "Pass Go",
}

// ActionName returns the display name of an action kind.
func ActionName(kind ActionKind) string {
	if name, ok := actionNames[kind]; ok {
		return name
	}
	return string(kind)
}
