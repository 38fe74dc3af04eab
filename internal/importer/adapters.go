package importer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"releve/internal/core"
)

const (
	LayoutBoursobank = "boursobank"
)

// builtins holds the export formats known out of the box, keyed by lower
// case name.
var builtins = map[string]func() Layout{
	LayoutBoursobank: Boursobank,
}

// Boursobank is the layout of BoursoBank CSV exports:
//
//	dateOp;dateVal;label;category;categoryParent;supplierFound;amount;comment;accountNum;accountLabel;accountbalance
//
// The file lists the child category before its parent, so the category
// columns are taken as [4, 3] to get the parent first.
func Boursobank() Layout {
	return Layout{
		Name:           LayoutBoursobank,
		Delimiter:      ';',
		DateOp:         0,
		DateVal:        1,
		Label:          2,
		Category:       []int{4, 3},
		Counterparty:   5,
		Amount:         6,
		Comment:        7,
		AccountNumber:  8,
		AccountLabel:   9,
		AccountBalance: 10,
		ParseDate:      ISODate('-'),
		ParseAmount:    EuropeanAmount,
	}
}

// FromBoursobankCSV reads a BoursoBank export.
func FromBoursobankCSV(r io.Reader) []core.BankLine {
	return FromCSV(r, Boursobank())
}

// ISODate returns a date parser for YYYY<sep>MM<sep>DD fields.
func ISODate(sep rune) func(string) (core.Date, bool) {
	return func(s string) (core.Date, bool) {
		return core.ParseDate(s, sep)
	}
}

var europeanAmountReplacer = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	",", ".",
)

// EuropeanAmount parses amounts written with a decimal comma, such as
// "-101,00" or "1 057,24".
func EuropeanAmount(s string) (core.Amount, bool) {
	return core.ParseAmount(europeanAmountReplacer.Replace(s))
}

// LookupLayout returns the built-in layout registered under name.
func LookupLayout(name string) (Layout, error) {
	build, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLayout, name, strings.Join(LayoutNames(), ", "))
	}
	return build(), nil
}

// LayoutNames lists the built-in layouts, sorted.
func LayoutNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
