package utils

import (
	"math"
	"strconv"
)

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// StrToInt64 converts a string to an int64.
// Returns 0 and an error if the conversion fails.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

// RoundMoney rounds a currency amount to two decimals, half-up.
// All service-layer money values pass through this before hitting the store.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// MoneyToCents converts a currency amount to whole cents after half-up
// rounding. Comparisons on payment balances are done in cents so that two
// amounts equal to the displayed cent compare equal.
func MoneyToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
