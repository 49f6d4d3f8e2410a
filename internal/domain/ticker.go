package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is the quote currency requested from a feed
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// Source identifies the upstream spot-price feed
type Source string

const (
	SourceSwissQuote    Source = "SwissQuote"
	SourceSilverBullion Source = "SilverBullion"
)

// ParseSource maps a configured source name to a Source.
// Anything other than "SwissQuote" selects SilverBullion.
func ParseSource(name string) Source {
	if name == string(SourceSwissQuote) {
		return SourceSwissQuote
	}
	return SourceSilverBullion
}

// PriceQuote is a normalized bid/ask pair per troy ounce.
// Fields are unexported so a quote cannot be modified after NewPriceQuote.
type PriceQuote struct {
	bid decimal.Decimal
	ask decimal.Decimal
}

// NewPriceQuote validates that both sides are strictly positive
func NewPriceQuote(bid, ask decimal.Decimal) (PriceQuote, error) {
	if !bid.IsPositive() || !ask.IsPositive() {
		return PriceQuote{}, fmt.Errorf("%w: bid=%s ask=%s", ErrNonPositiveQuote, bid, ask)
	}
	return PriceQuote{bid: bid, ask: ask}, nil
}

func (q PriceQuote) Bid() decimal.Decimal { return q.bid }
func (q PriceQuote) Ask() decimal.Decimal { return q.ask }

// MidpointPerGram returns the rounded per-gram midpoint of the quote
func (q PriceQuote) MidpointPerGram() decimal.Decimal {
	m, _ := MidpointPerGram(q.bid, q.ask) // a constructed quote is always positive
	return m
}

// BroadcastMessage is the single wire message pushed to subscribers
type BroadcastMessage struct {
	USDPerGram string `json:"usd_per_gram_aux"`
	EURPerGram string `json:"eur_per_gram_aux,omitempty"`
	Source     Source `json:"source"`
	MarketOpen bool   `json:"market_open"`
}
