// Package money formats signed integer cents for the JSON responses
// described in spec §6: every monetary field ships as both a raw
// <name>Cents integer and a human <name>Formatted string. Multi-currency
// support is explicitly out of scope, so unlike the teacher's multi-asset
// Money type this operates on a single implicit currency.
package money

import "fmt"

// Formatted renders signed cents as "D.CC", preserving the sign on negative
// amounts (e.g. -150 -> "-1.50").
func Formatted(cents int64) string {
	sign := ""
	abs := cents
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}
