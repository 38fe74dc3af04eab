// Package importer maps delimited bank exports onto core.BankLine values.
//
// A Layout says which column holds which field and how dates and amounts are
// written. The mapper is best-effort: a row that cannot be read, has too few
// columns or holds an unparseable value is left out, the others are kept in
// their original order.
package importer

import (
	"errors"
	"fmt"
	"strings"

	"releve/internal/core"
)

var (
	ErrInvalidLayout = errors.New("invalid layout")
	ErrUnknownLayout = errors.New("unknown layout")
)

// Layout binds column positions and field parsers for one export format.
type Layout struct {
	Name      string
	Delimiter rune

	DateOp  int
	DateVal int
	Label   int
	// Category lists the columns of the category hierarchy, broadest first.
	// The order here is the order of BankLine.Category, whatever the order
	// of the columns in the file.
	Category       []int
	Counterparty   int
	Amount         int
	Comment        int
	AccountNumber  int
	AccountLabel   int
	AccountBalance int

	ParseDate   func(string) (core.Date, bool)
	ParseAmount func(string) (core.Amount, bool)
}

// Validate reports configuration mistakes that would make every row fail.
func (l Layout) Validate() error {
	var problems []string

	if l.Delimiter == 0 || l.Delimiter == '"' || l.Delimiter == '\r' || l.Delimiter == '\n' {
		problems = append(problems, fmt.Sprintf("unusable delimiter %q", l.Delimiter))
	}
	if l.ParseDate == nil {
		problems = append(problems, "missing date parser")
	}
	if l.ParseAmount == nil {
		problems = append(problems, "missing amount parser")
	}

	columns := map[string]int{
		"date_op":         l.DateOp,
		"date_val":        l.DateVal,
		"label":           l.Label,
		"counterparty":    l.Counterparty,
		"amount":          l.Amount,
		"comment":         l.Comment,
		"account_number":  l.AccountNumber,
		"account_label":   l.AccountLabel,
		"account_balance": l.AccountBalance,
	}
	for name, idx := range columns {
		if idx < 0 {
			problems = append(problems, fmt.Sprintf("negative column for %s: %d", name, idx))
		}
	}
	for i, idx := range l.Category {
		if idx < 0 {
			problems = append(problems, fmt.Sprintf("negative category column at position %d: %d", i, idx))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidLayout, l.Name, strings.Join(problems, "; "))
	}
	return nil
}
