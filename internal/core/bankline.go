// Package core holds the value types of an imported bank statement:
// calendar dates, euro amounts and the transaction line itself.
package core

import "fmt"

// BankLine is one movement on a bank account, in or out. It is immutable
// once built.
type BankLine struct {
	dateOp         Date
	dateVal        Date
	label          string
	category       []string
	counterparty   string
	amount         Amount
	comment        string
	accountNumber  uint32
	accountLabel   string
	accountBalance Amount
}

// BankLineParams carries the already-validated components of a BankLine.
type BankLineParams struct {
	DateOp         Date
	DateVal        Date
	Label          string
	Category       []string // broadest first
	Counterparty   string
	Amount         Amount
	Comment        string
	AccountNumber  uint32
	AccountLabel   string
	AccountBalance Amount
}

// NewBankLine builds a line from its parts. The category slice is copied.
func NewBankLine(p BankLineParams) BankLine {
	return BankLine{
		dateOp:         p.DateOp,
		dateVal:        p.DateVal,
		label:          p.Label,
		category:       append([]string(nil), p.Category...),
		counterparty:   p.Counterparty,
		amount:         p.Amount,
		comment:        p.Comment,
		accountNumber:  p.AccountNumber,
		accountLabel:   p.AccountLabel,
		accountBalance: p.AccountBalance,
	}
}

// DateOp is the date the operation occurred.
func (l BankLine) DateOp() Date { return l.dateOp }

// DateVal is the date the operation was settled.
func (l BankLine) DateVal() Date { return l.dateVal }

func (l BankLine) Label() string { return l.label }

// Category returns a copy of the category hierarchy, broadest first.
func (l BankLine) Category() []string {
	return append([]string(nil), l.category...)
}

// Counterparty is who the money came from or went to.
func (l BankLine) Counterparty() string { return l.counterparty }

// Amount is signed: positive is a gain.
func (l BankLine) Amount() Amount { return l.amount }

func (l BankLine) Comment() string { return l.comment }

func (l BankLine) AccountNumber() uint32 { return l.accountNumber }

func (l BankLine) AccountLabel() string { return l.accountLabel }

// AccountBalance is the balance right after this operation.
func (l BankLine) AccountBalance() Amount { return l.accountBalance }

func (l BankLine) String() string {
	return fmt.Sprintf("%s | %s | %s", l.dateOp, l.label, l.amount)
}
