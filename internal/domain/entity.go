package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedPriceSlot is the only primary key value of the cached_prices table
const CachedPriceSlot = 1

// CachedPrice is the persisted form of PriceCacheEntry (single row)
type CachedPrice struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	USDPerGram decimal.Decimal `gorm:"type:varchar(32)" json:"usd_per_gram"`
	EURPerGram decimal.Decimal `gorm:"type:varchar(32)" json:"eur_per_gram"`
	WrittenOn  time.Time       `json:"written_on"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ToEntry converts the row back to a cache entry
func (c *CachedPrice) ToEntry() PriceCacheEntry {
	return PriceCacheEntry{
		USDPerGram: c.USDPerGram,
		EURPerGram: c.EURPerGram,
		WrittenOn:  c.WrittenOn,
	}
}
