package infra

import (
	"context"
	"errors"
	"strings"
	"time"

	"aux_relay/internal/domain"

	"github.com/shopspring/decimal"
)

// swissQuoteQuote is one platform entry of the SwissQuote bboquotes response
type swissQuoteQuote struct {
	Topo struct {
		Platform string `json:"platform"`
		Server   string `json:"server"`
	} `json:"topo"`
	SpreadProfilePrices []struct {
		SpreadProfile string          `json:"spreadProfile"`
		BidSpread     decimal.Decimal `json:"bidSpread"`
		AskSpread     decimal.Decimal `json:"askSpread"`
		Bid           decimal.Decimal `json:"bid"`
		Ask           decimal.Decimal `json:"ask"`
	} `json:"spreadProfilePrices"`
	Ts int64 `json:"ts"`
}

// SwissQuoteSource fetches XAU quotes, one request per currency
type SwissQuoteSource struct {
	feedClient
	baseURL string
}

// NewSwissQuoteSource creates an adapter for the instrument endpoint at baseURL
// (the currency code is appended as the last path segment).
func NewSwissQuoteSource(baseURL string, timeout time.Duration) *SwissQuoteSource {
	return &SwissQuoteSource{
		feedClient: newFeedClient(domain.SourceSwissQuote, timeout),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (s *SwissQuoteSource) Name() domain.Source {
	return domain.SourceSwissQuote
}

// Fetch returns the first spread profile of the first platform entry
func (s *SwissQuoteSource) Fetch(ctx context.Context, cur domain.Currency) (domain.PriceQuote, error) {
	var data []swissQuoteQuote
	if err := s.getJSON(ctx, s.baseURL+"/"+string(cur), cur, &data); err != nil {
		return domain.PriceQuote{}, err
	}

	if len(data) == 0 {
		return domain.PriceQuote{}, domain.NewParseError(s.source, cur, errors.New("empty quote list"))
	}
	if len(data[0].SpreadProfilePrices) == 0 {
		return domain.PriceQuote{}, domain.NewParseError(s.source, cur, errors.New("no spread profile prices"))
	}

	profile := data[0].SpreadProfilePrices[0]
	q, err := domain.NewPriceQuote(profile.Bid, profile.Ask)
	if err != nil {
		return domain.PriceQuote{}, domain.NewParseError(s.source, cur, err)
	}

	s.logQuote(cur, q)
	return q, nil
}
