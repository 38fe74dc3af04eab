package importer

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"releve/internal/core"
)

// LayoutFile is the JSON description of a custom export format, for banks
// without a built-in layout.
//
//	{
//	  "name": "mybank",
//	  "delimiter": ",",
//	  "date_separator": "/",
//	  "decimal_comma": false,
//	  "columns": {"date_op": 0, "date_val": 1, ...},
//	  "category": [3, 4]
//	}
type LayoutFile struct {
	Name          string         `json:"name"`
	Delimiter     string         `json:"delimiter"`
	DateSeparator string         `json:"date_separator"`
	DecimalComma  bool           `json:"decimal_comma"`
	Columns       map[string]int `json:"columns"`
	Category      []int          `json:"category"`
}

var layoutColumns = []string{
	"date_op",
	"date_val",
	"label",
	"counterparty",
	"amount",
	"comment",
	"account_number",
	"account_label",
	"account_balance",
}

// LoadLayout parses a JSON layout description.
func LoadLayout(data []byte) (Layout, error) {
	var f LayoutFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Layout{}, fmt.Errorf("%w: decode: %v", ErrInvalidLayout, err)
	}
	return f.Layout()
}

// Layout builds the mapper configuration described by f.
func (f LayoutFile) Layout() (Layout, error) {
	delim, err := singleRune("delimiter", f.Delimiter, ',')
	if err != nil {
		return Layout{}, err
	}
	dateSep, err := singleRune("date_separator", f.DateSeparator, '-')
	if err != nil {
		return Layout{}, err
	}

	for _, name := range layoutColumns {
		if _, ok := f.Columns[name]; !ok {
			return Layout{}, fmt.Errorf("%w %q: missing column %q", ErrInvalidLayout, f.Name, name)
		}
	}

	parseAmount := core.ParseAmount
	if f.DecimalComma {
		parseAmount = EuropeanAmount
	}

	l := Layout{
		Name:           f.Name,
		Delimiter:      delim,
		DateOp:         f.Columns["date_op"],
		DateVal:        f.Columns["date_val"],
		Label:          f.Columns["label"],
		Category:       append([]int(nil), f.Category...),
		Counterparty:   f.Columns["counterparty"],
		Amount:         f.Columns["amount"],
		Comment:        f.Columns["comment"],
		AccountNumber:  f.Columns["account_number"],
		AccountLabel:   f.Columns["account_label"],
		AccountBalance: f.Columns["account_balance"],
		ParseDate:      ISODate(dateSep),
		ParseAmount:    parseAmount,
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func singleRune(field, s string, def rune) (rune, error) {
	if s == "" {
		return def, nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("%w: %s must be a single character, got %q", ErrInvalidLayout, field, s)
	}
	return r, nil
}
