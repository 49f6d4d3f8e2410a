package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aux_relay/internal/domain"

	"github.com/shopspring/decimal"
)

// goldMetalCode identifies the gold entry in the SilverBullion price list
const goldMetalCode = "au"

type silverBullionPrice struct {
	MetalCode string          `json:"metalCode"`
	BidUSD    decimal.Decimal `json:"bidUsd"`
	AskUSD    decimal.Decimal `json:"askUsd"`
}

// SilverBullionSource fetches all metal prices in one call and keeps gold in USD
type SilverBullionSource struct {
	feedClient
	url string
}

func NewSilverBullionSource(url string, timeout time.Duration) *SilverBullionSource {
	return &SilverBullionSource{
		feedClient: newFeedClient(domain.SourceSilverBullion, timeout),
		url:        url,
	}
}

func (s *SilverBullionSource) Name() domain.Source {
	return domain.SourceSilverBullion
}

// Fetch only supports USD; the feed carries no other currency
func (s *SilverBullionSource) Fetch(ctx context.Context, cur domain.Currency) (domain.PriceQuote, error) {
	if cur != domain.USD {
		return domain.PriceQuote{}, domain.NewParseError(s.source, cur, fmt.Errorf("currency %s not offered", cur))
	}

	var prices []silverBullionPrice
	if err := s.getJSON(ctx, s.url, cur, &prices); err != nil {
		return domain.PriceQuote{}, err
	}

	for _, p := range prices {
		if !strings.EqualFold(p.MetalCode, goldMetalCode) {
			continue
		}
		q, err := domain.NewPriceQuote(p.BidUSD, p.AskUSD)
		if err != nil {
			return domain.PriceQuote{}, domain.NewParseError(s.source, cur, err)
		}
		s.logQuote(cur, q)
		return q, nil
	}

	return domain.PriceQuote{}, domain.NewParseError(s.source, cur, errors.New("no gold entry in price list"))
}

// NewPriceSource builds the adapter selected by cfg
func NewPriceSource(cfg *Config) domain.PriceSource {
	if cfg.Source() == domain.SourceSwissQuote {
		return NewSwissQuoteSource(cfg.Feed.SwissQuoteURL, cfg.FetchTimeout())
	}
	return NewSilverBullionSource(cfg.Feed.SilverBullionURL, cfg.FetchTimeout())
}
