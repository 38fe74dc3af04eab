package core

import (
	"fmt"
	"math"
	"strconv"
)

// Amount is a quantity of euros. Positive amounts are inflows, negative
// amounts outflows.
type Amount struct {
	value float64
}

// AmountFromValue wraps a value in euros.
func AmountFromValue(x float64) Amount {
	return Amount{value: x}
}

// Euro is an alias of AmountFromValue that reads better at call sites.
func Euro(x float64) Amount {
	return AmountFromValue(x)
}

// ParseAmount parses a plain decimal number using '.' as decimal separator.
// No currency symbol, no grouping. Locale conversion belongs to the caller.
func ParseAmount(text string) (Amount, bool) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}, false
	}
	return Amount{value: v}, true
}

// Value returns the amount in euros, at full precision.
func (a Amount) Value() float64 {
	return a.value
}

// Cents returns the amount rounded to the nearest cent.
func (a Amount) Cents() int64 {
	return int64(math.Round(a.value * 100))
}

// String renders the amount with two decimals and the euro sign, e.g. "1057.20€".
func (a Amount) String() string {
	return fmt.Sprintf("%.2f€", a.value)
}
