package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrDayTooLow     = errors.New("day too low")
	ErrDayOutOfMonth = errors.New("day exceeds days in month")
)

// Date is a calendar day. The zero value is not a valid date; build one
// with NewDate or ParseDate.
type Date struct {
	day   uint8
	month Month
	year  uint16
}

// DateError describes a day/month/year combination that is not in the calendar.
type DateError struct {
	Day    uint8
	Month  Month
	Year   uint16
	MaxDay uint8
	Err    error
}

func (e *DateError) Error() string {
	if errors.Is(e.Err, ErrDayTooLow) {
		return fmt.Sprintf("day %d does not exist, days start at 1", e.Day)
	}
	return fmt.Sprintf("in %d, %s has %d days: day %d does not exist", e.Year, e.Month, e.MaxDay, e.Day)
}

func (e *DateError) Unwrap() error {
	return e.Err
}

// NewDate builds a date, failing if it does not exist in the calendar.
func NewDate(day uint8, month Month, year uint16) (Date, error) {
	if !month.Valid() {
		return Date{}, &MonthError{Number: int(month)}
	}
	maxDay := DaysIn(month, year)
	switch {
	case day < 1:
		return Date{}, &DateError{Day: day, Month: month, Year: year, MaxDay: maxDay, Err: ErrDayTooLow}
	case day > maxDay:
		return Date{}, &DateError{Day: day, Month: month, Year: year, MaxDay: maxDay, Err: ErrDayOutOfMonth}
	}
	return Date{day: day, month: month, year: year}, nil
}

// ParseDate parses text laid out as YYYY<sep>MM<sep>DD. Every component
// must have its exact width. It returns false instead of an error so it can
// feed best-effort row mapping.
func ParseDate(text string, sep rune) (Date, bool) {
	parts := strings.Split(text, string(sep))
	if len(parts) != 3 {
		return Date{}, false
	}

	year, ok := parseDigits(parts[0], 4)
	if !ok {
		return Date{}, false
	}
	month, ok := parseDigits(parts[1], 2)
	if !ok {
		return Date{}, false
	}
	day, ok := parseDigits(parts[2], 2)
	if !ok {
		return Date{}, false
	}

	m, err := MonthFromNumber(month)
	if err != nil {
		return Date{}, false
	}
	d, err := NewDate(uint8(day), m, uint16(year))
	if err != nil {
		return Date{}, false
	}
	return d, true
}

// parseDigits accepts exactly width ASCII digits.
func parseDigits(s string, width int) (int, bool) {
	if len(s) != width {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (d Date) Day() uint8 {
	return d.day
}

func (d Date) Month() Month {
	return d.month
}

func (d Date) Year() uint16 {
	return d.year
}

// IsLeapYear reports whether the date falls in a year with 29 days in February.
func (d Date) IsLeapYear() bool {
	return IsLeapYear(d.year)
}

// DaysInMonth returns the number of days of month m in the date's year.
func (d Date) DaysInMonth(m Month) uint8 {
	return DaysIn(m, d.year)
}

// IsLeapYear applies the Gregorian rule: divisible by 4 and not by 100,
// or divisible by 400.
func IsLeapYear(year uint16) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysIn returns the number of days of month m in year. It returns 0 for an
// invalid month.
func DaysIn(m Month, year uint16) uint8 {
	switch m {
	case January, March, May, July, August, October, December:
		return 31
	case April, June, September, November:
		return 30
	case February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	}
	return 0
}

// Format renders the date as YYYY<sep>MM<sep>DD, the layout ParseDate reads.
func (d Date) Format(sep rune) string {
	s := string(sep)
	return fmt.Sprintf("%04d%s%02d%s%02d", d.year, s, uint8(d.month), s, d.day)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(int(d.year), time.Month(d.month), int(d.day), 0, 0, 0, 0, time.UTC)
}

// String renders the date as "26 août 2025".
func (d Date) String() string {
	return fmt.Sprintf("%d %s %d", d.day, d.month, d.year)
}
