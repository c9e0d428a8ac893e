package cards

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CatalogHeader is the column layout of a deck catalog CSV file.
var CatalogHeader = []string{"id", "name", "type", "value", "color", "secondary_color", "action"}

// ErrEmptyCatalog is returned when a catalog contains no card rows.
var ErrEmptyCatalog = errors.New("catalog has no cards")

// ParseCatalog reads a deck catalog in CSV form. The first row must be the header.
func ParseCatalog(r io.Reader) ([]Card, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CatalogHeader)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(records)-1)
	deck := make([]Card, 0, len(records)-1)
	for i, record := range records[1:] {
		card, err := parseCatalogRow(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if seen[card.ID] {
			return nil, fmt.Errorf("row %d: duplicate card id %q", i+2, card.ID)
		}
		seen[card.ID] = true
		deck = append(deck, card)
	}
	return deck, nil
}

func parseCatalogRow(record []string) (Card, error) {
	value, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil || value < 0 {
		return Card{}, fmt.Errorf("invalid value %q", record[3])
	}

	card := Card{
		ID:             strings.TrimSpace(record[0]),
		Name:           strings.TrimSpace(record[1]),
		Type:           Type(strings.ToUpper(strings.TrimSpace(record[2]))),
		Value:          value,
		Color:          Color(strings.ToUpper(strings.TrimSpace(record[4]))),
		SecondaryColor: Color(strings.ToUpper(strings.TrimSpace(record[5]))),
		Action:         ActionKind(strings.ToUpper(strings.TrimSpace(record[6]))),
	}
	if card.ID == "" {
		return Card{}, errors.New("missing id")
	}
	if !card.Type.Valid() {
		return Card{}, fmt.Errorf("unknown type %q", record[2])
	}
	if card.Action == ActionRentAll {
		return Card{}, errors.New("RENT_ALL cards are not supported")
	}
	if card.Type == TypeRent {
		card.Action = ActionRent
	}
	if card.Type == TypeAction {
		if _, ok := actionNames[card.Action]; !ok {
			return Card{}, fmt.Errorf("unknown action %q", record[6])
		}
	}
	if card.Type == TypeProperty {
		if _, ok := setLimits[card.Color]; !ok {
			return Card{}, fmt.Errorf("property %q needs a real colour", card.Name)
		}
	}
	return card, nil
}

// WriteCatalog writes cards in the CSV layout read by ParseCatalog.
func WriteCatalog(w io.Writer, deck []Card) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CatalogHeader); err != nil {
		return err
	}
	for _, card := range deck {
		row := []string{
			card.ID,
			card.Name,
			string(card.Type),
			strconv.Itoa(card.Value),
			string(card.Color),
			string(card.SecondaryColor),
			string(card.Action),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
