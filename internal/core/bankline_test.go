package core

import "testing"

func TestNewBankLineCopiesCategory(t *testing.T) {
	d, _ := NewDate(26, August, 2025)
	cats := []string{"Loisirs", "Bar"}

	l := NewBankLine(BankLineParams{
		DateOp:         d,
		DateVal:        d,
		Label:          "FOO1",
		Category:       cats,
		Amount:         Euro(-101),
		AccountNumber:  42,
		AccountBalance: Euro(1057.24),
	})

	cats[0] = "changed"
	if got := l.Category(); got[0] != "Loisirs" {
		t.Fatalf("line changed through caller slice: %v", got)
	}

	got := l.Category()
	got[1] = "changed"
	if l.Category()[1] != "Bar" {
		t.Fatalf("line changed through accessor slice: %v", l.Category())
	}

	if l.String() != "26 août 2025 | FOO1 | -101.00€" {
		t.Fatalf("unexpected display %q", l.String())
	}

	if l.AccountNumber() != 42 || l.AccountBalance() != Euro(1057.24) || l.DateVal() != d {
		t.Fatalf("unexpected accessors: %v", l)
	}
}
