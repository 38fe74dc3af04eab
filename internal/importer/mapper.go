package importer

import (
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"strconv"

	"releve/internal/core"
)

// FromCSV reads every row of r and returns the lines that map cleanly under
// l, in source order. It never fails: an empty or unreadable source gives an
// empty slice.
func FromCSV(r io.Reader, l Layout) []core.BankLine {
	lines := make([]core.BankLine, 0)
	for line := range Lines(r, l) {
		lines = append(lines, line)
	}
	return lines
}

// Lines is the lazy form of FromCSV. The sequence can be ranged over once;
// r is read as the consumer advances and left alone once it stops.
func Lines(r io.Reader, l Layout) iter.Seq[core.BankLine] {
	return func(yield func(core.BankLine) bool) {
		if l.Validate() != nil {
			return
		}
		for record := range records(r, l.Delimiter) {
			line, ok := MapRecord(record, l)
			if !ok {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// records tokenizes r, skipping rows the CSV reader rejects. Any other read
// error ends the sequence.
func records(r io.Reader, delimiter rune) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		reader := csv.NewReader(r)
		reader.Comma = delimiter
		reader.FieldsPerRecord = -1

		for {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					continue
				}
				return
			}
			if !yield(record) {
				return
			}
		}
	}
}

// MapRecord converts one tokenized row. It reports false as soon as a column
// is missing or a field does not parse.
func MapRecord(record []string, l Layout) (core.BankLine, bool) {
	field := func(idx int) (string, bool) {
		if idx < 0 || idx >= len(record) {
			return "", false
		}
		return record[idx], true
	}

	var p core.BankLineParams
	var ok bool
	var s string

	if s, ok = field(l.DateOp); !ok {
		return core.BankLine{}, false
	}
	if p.DateOp, ok = l.ParseDate(s); !ok {
		return core.BankLine{}, false
	}

	if s, ok = field(l.DateVal); !ok {
		return core.BankLine{}, false
	}
	if p.DateVal, ok = l.ParseDate(s); !ok {
		return core.BankLine{}, false
	}

	if p.Label, ok = field(l.Label); !ok {
		return core.BankLine{}, false
	}

	p.Category = make([]string, 0, len(l.Category))
	for _, idx := range l.Category {
		if s, ok = field(idx); !ok {
			return core.BankLine{}, false
		}
		p.Category = append(p.Category, s)
	}

	if p.Counterparty, ok = field(l.Counterparty); !ok {
		return core.BankLine{}, false
	}

	if s, ok = field(l.Amount); !ok {
		return core.BankLine{}, false
	}
	if p.Amount, ok = l.ParseAmount(s); !ok {
		return core.BankLine{}, false
	}

	if p.Comment, ok = field(l.Comment); !ok {
		return core.BankLine{}, false
	}

	if s, ok = field(l.AccountNumber); !ok {
		return core.BankLine{}, false
	}
	number, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return core.BankLine{}, false
	}
	p.AccountNumber = uint32(number)

	if p.AccountLabel, ok = field(l.AccountLabel); !ok {
		return core.BankLine{}, false
	}

	if s, ok = field(l.AccountBalance); !ok {
		return core.BankLine{}, false
	}
	if p.AccountBalance, ok = l.ParseAmount(s); !ok {
		return core.BankLine{}, false
	}

	return core.NewBankLine(p), true
}
