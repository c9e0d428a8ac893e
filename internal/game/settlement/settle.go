// Package settlement turns an owed amount into concrete card transfers.
package settlement

import (
	"fmt"
	"sort"

	"github.com/propdeal/propdeal-server-go/internal/game/assets"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
)

// Source says which container a transferred card left.
type Source string

const (
	SourceBank     Source = "BANK"
	SourceProperty Source = "PROPERTY"
)

// Transfer records one card moving from debtor to creditor.
type Transfer struct {
	Card      cards.Card
	Source    Source
	Remaining int // amount still owed after this card
}

// Describe renders the transfer as a log line.
func (t Transfer) Describe(debtor, creditor string) string {
	switch t.Source {
	case SourceBank:
		return fmt.Sprintf("%s paid %s %dM from the bank (%s)", debtor, creditor, t.Card.Value, t.Card.Name)
	default:
		return fmt.Sprintf("%s gave %s the property %s worth %dM", debtor, creditor, t.Card.Name, t.Card.Value)
	}
}

// Result summarises a settlement.
type Result struct {
	Transfers []Transfer
	Paid      int
	Owed      int
}

// Settle pays amount from debtor to creditor. Bank cards go first, cheapest first,
// then properties from the first set downwards. Overpayment is kept by the creditor.
// A debtor who runs out of assets owes nothing further.
func Settle(debtor, creditor *assets.Player, amount int) Result {
	result := Result{Owed: amount}
	remaining := amount
	if debtor == nil || creditor == nil || remaining <= 0 {
		return result
	}

	sort.SliceStable(debtor.Bank, func(i, j int) bool {
		return debtor.Bank[i].Value < debtor.Bank[j].Value
	})
	for remaining > 0 && len(debtor.Bank) > 0 {
		card := debtor.Bank[0]
		debtor.Bank = debtor.Bank[1:]
		creditor.Bank = append(creditor.Bank, card)
		remaining -= card.Value
		result.Paid += card.Value
		result.Transfers = append(result.Transfers, Transfer{Card: card, Source: SourceBank, Remaining: max(remaining, 0)})
	}

	for remaining > 0 && len(debtor.Properties) > 0 {
		card, ok := assets.RemoveFromProperty(debtor, 0)
		if !ok {
			continue
		}
		assets.Reassign(creditor, card)
		remaining -= card.Value
		result.Paid += card.Value
		result.Transfers = append(result.Transfers, Transfer{Card: card, Source: SourceProperty, Remaining: max(remaining, 0)})
	}

	return result
}
