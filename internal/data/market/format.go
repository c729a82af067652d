package market

import (
	"fmt"
	"math"
)

// FormatPrice renders a currency value. Values under 1 get six
// fractional digits so sub-cent coins stay readable, everything else
// gets the usual two.
func FormatPrice(price float64) string {
	decimals := 2
	if math.Abs(price) < 1 {
		decimals = 6
	}
	return "$" + formatWithCommas(price, decimals)
}

// FormatLargeNumber compacts market caps and volumes to K/M/B/T.
func FormatLargeNumber(num float64) string {
	abs := math.Abs(num)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", num/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", num/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", num/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", num/1e3)
	default:
		return fmt.Sprintf("%.2f", num)
	}
}

// FormatPercentage renders a signed percentage change with two decimals.
func FormatPercentage(change float64) string {
	sign := ""
	if change >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, change)
}

// FearGreedClass maps an index value to its display band.
func FearGreedClass(value int) string {
	switch {
	case value <= 25:
		return "fear"
	case value <= 45:
		return "neutral"
	case value <= 75:
		return "greed"
	default:
		return "extreme-greed"
	}
}

// formatWithCommas renders num with the given fraction digits and
// thousands separators in the integer part.
func formatWithCommas(num float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, math.Abs(num))

	intPart := s
	fracPart := ""
	if decimals > 0 {
		intPart = s[:len(s)-decimals-1]
		fracPart = s[len(s)-decimals-1:]
	}

	var grouped []byte
	for i, digit := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, digit)
	}

	out := string(grouped) + fracPart
	if num < 0 {
		out = "-" + out
	}
	return out
}
