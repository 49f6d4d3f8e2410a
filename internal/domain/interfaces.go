package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource is a single upstream feed adapter
type PriceSource interface {
	Name() Source
	Fetch(ctx context.Context, cur Currency) (PriceQuote, error)
}

// Broadcaster fans a message out to its subscribers. Delivery is best effort.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg BroadcastMessage)
}

// CacheStore persists the single fallback cache slot across restarts
type CacheStore interface {
	SaveCachedPrice(entry PriceCacheEntry) error
	LoadCachedPrice() (*PriceCacheEntry, error)
}

// PriceCacheEntry is the last-known-good per-gram price pair
type PriceCacheEntry struct {
	USDPerGram decimal.Decimal
	EURPerGram decimal.Decimal
	WrittenOn  time.Time
}

// IsEmpty reports whether the entry can serve as a fallback
func (e PriceCacheEntry) IsEmpty() bool {
	return e.USDPerGram.IsZero() && e.EURPerGram.IsZero()
}
