package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the number of fractional digits of every broadcast price
const PriceDecimals = 4

var (
	// GramsPerOunce converts a per-ounce feed price to a per-gram price
	GramsPerOunce = decimal.RequireFromString("28.34952")

	two = decimal.NewFromInt(2)
)

// MidpointPerGram computes (bid+ask)/2/GramsPerOunce rounded half up to PriceDecimals.
// Both inputs must be strictly positive.
func MidpointPerGram(bid, ask decimal.Decimal) (decimal.Decimal, error) {
	if !bid.IsPositive() || !ask.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: bid=%s ask=%s", ErrNonPositiveQuote, bid, ask)
	}

	// (bid+ask) / (2*grams) rounds once, on the exact quotient.
	return bid.Add(ask).DivRound(two.Mul(GramsPerOunce), PriceDecimals), nil
}

// ComputeMidpointPerGram is MidpointPerGram formatted as a fixed 4-digit string
func ComputeMidpointPerGram(bid, ask decimal.Decimal) (string, error) {
	m, err := MidpointPerGram(bid, ask)
	if err != nil {
		return "", err
	}
	return FormatPrice(m), nil
}

// FormatPrice renders a price with exactly PriceDecimals fractional digits
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(PriceDecimals)
}
