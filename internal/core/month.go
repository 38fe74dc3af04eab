package core

import (
	"errors"
	"fmt"
)

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// Month is a month of the year, numbered 1 to 12.
type Month uint8

var ErrInvalidMonth = errors.New("invalid month")

// MonthError reports a number that does not name a month.
type MonthError struct {
	Number int
}

func (e *MonthError) Error() string {
	return fmt.Sprintf("month %d does not exist", e.Number)
}

func (e *MonthError) Unwrap() error {
	return ErrInvalidMonth
}

// MonthFromNumber returns the month numbered n (1 = January).
func MonthFromNumber(n int) (Month, error) {
	if n < int(January) || n > int(December) {
		return 0, &MonthError{Number: n}
	}
	return Month(n), nil
}

// Number returns the month number, 1 to 12.
func (m Month) Number() int {
	return int(m)
}

// Valid reports whether m is one of January..December.
func (m Month) Valid() bool {
	return m >= January && m <= December
}

var monthNames = [...]string{
	January:   "janvier",
	February:  "février",
	March:     "mars",
	April:     "avril",
	May:       "mai",
	June:      "juin",
	July:      "juillet",
	August:    "août",
	September: "septembre",
	October:   "octobre",
	November:  "novembre",
	December:  "décembre",
}

// String returns the French name of the month.
func (m Month) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Month(%d)", uint8(m))
	}
	return monthNames[m]
}
