package google

import (
	"fmt"
	"strconv"
	"strings"

	"releve/internal/core"
)

const categorySeparator = " > "

// lineRow lays a line out on columns A to K.
func lineRow(l core.BankLine, importID string) []any {
	return []any{
		l.DateOp().Format('-'),
		l.DateVal().Format('-'),
		l.Label(),
		strings.Join(l.Category(), categorySeparator),
		l.Counterparty(),
		l.Amount().Value(),
		l.Comment(),
		l.AccountNumber(),
		l.AccountLabel(),
		l.AccountBalance().Value(),
		importID,
	}
}

// parseLineRow is the inverse of lineRow. Empty trailing cells may be
// omitted by the API.
func parseLineRow(row []any) (core.BankLine, bool) {
	cells := toStrings(row)
	get := func(i int) string { return safeGet(cells, i) }

	dateOp, ok := core.ParseDate(get(0), '-')
	if !ok {
		return core.BankLine{}, false
	}
	dateVal, ok := core.ParseDate(get(1), '-')
	if !ok {
		return core.BankLine{}, false
	}
	amount, ok := core.ParseAmount(get(5))
	if !ok {
		return core.BankLine{}, false
	}
	account, err := strconv.ParseUint(get(7), 10, 32)
	if err != nil {
		return core.BankLine{}, false
	}
	balance, ok := core.ParseAmount(get(9))
	if !ok {
		return core.BankLine{}, false
	}

	var category []string
	if c := get(3); c != "" {
		category = strings.Split(c, categorySeparator)
	}

	return core.NewBankLine(core.BankLineParams{
		DateOp:         dateOp,
		DateVal:        dateVal,
		Label:          get(2),
		Category:       category,
		Counterparty:   get(4),
		Amount:         amount,
		Comment:        get(6),
		AccountNumber:  uint32(account),
		AccountLabel:   get(8),
		AccountBalance: balance,
	}), true
}

// parseCategories splits a column of joined category paths into distinct
// top level categories and sub categories, in first-seen order.
func parseCategories(values [][]any) ([]string, []string) {
	var cats, subs []string
	seenCat := map[string]bool{}
	seenSub := map[string]bool{}
	for _, row := range values {
		path := strings.TrimSpace(safeGet(toStrings(row), 0))
		if path == "" {
			continue
		}
		parts := strings.Split(path, categorySeparator)
		if top := strings.TrimSpace(parts[0]); top != "" && !seenCat[top] {
			seenCat[top] = true
			cats = append(cats, top)
		}
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if p != "" && !seenSub[p] {
				seenSub[p] = true
				subs = append(subs, p)
			}
		}
	}
	return cats, subs
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
