package service

import (
	"log/slog"
	"sync"
	"time"

	"aux_relay/internal/domain"

	"github.com/shopspring/decimal"
)

// PriceCache holds the single last-known-good per-gram price pair.
// A zero pair means nothing was cached yet.
type PriceCache struct {
	mu    sync.RWMutex
	entry domain.PriceCacheEntry
	store domain.CacheStore
	now   func() time.Time
}

// NewPriceCache creates an in-memory cache. store may be nil; when set, every write
// is mirrored to it and Restore reloads the last persisted entry.
func NewPriceCache(store domain.CacheStore) *PriceCache {
	return &PriceCache{
		entry: domain.PriceCacheEntry{USDPerGram: decimal.Zero, EURPerGram: decimal.Zero},
		store: store,
		now:   time.Now,
	}
}

// Restore loads the persisted entry, if any
func (c *PriceCache) Restore() error {
	if c.store == nil {
		return nil
	}
	entry, err := c.store.LoadCachedPrice()
	if err != nil || entry == nil {
		return err
	}

	c.mu.Lock()
	c.entry = *entry
	c.mu.Unlock()

	slog.Info("Restored cached price",
		slog.String("usd_per_gram", domain.FormatPrice(entry.USDPerGram)),
		slog.String("eur_per_gram", domain.FormatPrice(entry.EURPerGram)),
		slog.Time("written_on", entry.WrittenOn),
	)
	return nil
}

// Write unconditionally overwrites both fields.
// A persistence failure is logged; the in-memory value is still updated.
func (c *PriceCache) Write(usd, eur decimal.Decimal) {
	entry := domain.PriceCacheEntry{USDPerGram: usd, EURPerGram: eur, WrittenOn: c.now().UTC()}

	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveCachedPrice(entry); err != nil {
			slog.Warn("Failed to persist cached price", slog.Any("error", err))
		}
	}
}

// Read returns the last written pair, or (0, 0) if never written
func (c *PriceCache) Read() (usd, eur decimal.Decimal) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry.USDPerGram, c.entry.EURPerGram
}

// Entry returns a copy of the whole cache slot
func (c *PriceCache) Entry() domain.PriceCacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry
}
