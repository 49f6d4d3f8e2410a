package service

import (
	"errors"
	"testing"
	"time"

	"aux_relay/internal/domain"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	saved   *domain.PriceCacheEntry
	saveErr error
	loadErr error
}

func (m *memoryStore) SaveCachedPrice(entry domain.PriceCacheEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &entry
	return nil
}

func (m *memoryStore) LoadCachedPrice() (*domain.PriceCacheEntry, error) {
	return m.saved, m.loadErr
}

func TestPriceCache_ZeroBeforeWrite(t *testing.T) {
	c := NewPriceCache(nil)
	usd, eur := c.Read()
	if !usd.IsZero() || !eur.IsZero() {
		t.Errorf("Expected (0, 0), got (%s, %s)", usd, eur)
	}
	if !c.Entry().IsEmpty() {
		t.Error("Expected empty entry")
	}
}

func TestPriceCache_RoundTrip(t *testing.T) {
	c := NewPriceCache(nil)
	u, e := decimal.RequireFromString("67.0382"), decimal.RequireFromString("61.7471")

	c.Write(u, e)
	usd, eur := c.Read()
	if !usd.Equal(u) || !eur.Equal(e) {
		t.Fatalf("Read = (%s, %s), want (%s, %s)", usd, eur, u, e)
	}
	// Reads do not change the slot.
	usd, eur = c.Read()
	if !usd.Equal(u) || !eur.Equal(e) {
		t.Fatalf("second Read = (%s, %s)", usd, eur)
	}

	c.Write(decimal.NewFromInt(1), decimal.NewFromInt(2))
	usd, eur = c.Read()
	if !usd.Equal(decimal.NewFromInt(1)) || !eur.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Write did not overwrite: (%s, %s)", usd, eur)
	}
}

func TestPriceCache_PersistsAndRestores(t *testing.T) {
	store := &memoryStore{}
	written := time.Date(2026, time.October, 18, 0, 30, 0, 0, time.UTC)

	c := NewPriceCache(store)
	c.now = func() time.Time { return written }
	c.Write(decimal.RequireFromString("50.0000"), decimal.RequireFromString("45.0000"))

	if store.saved == nil || !store.saved.WrittenOn.Equal(written) {
		t.Fatalf("Expected persisted entry, got %+v", store.saved)
	}

	restored := NewPriceCache(store)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	usd, eur := restored.Read()
	if domain.FormatPrice(usd) != "50.0000" || domain.FormatPrice(eur) != "45.0000" {
		t.Errorf("Restored (%s, %s)", usd, eur)
	}
}

func TestPriceCache_StoreFailures(t *testing.T) {
	t.Run("save failure keeps memory value", func(t *testing.T) {
		c := NewPriceCache(&memoryStore{saveErr: errors.New("disk full")})
		c.Write(decimal.NewFromInt(50), decimal.NewFromInt(45))
		if usd, _ := c.Read(); !usd.Equal(decimal.NewFromInt(50)) {
			t.Errorf("Expected in-memory write to succeed, got %s", usd)
		}
	})

	t.Run("load failure is returned", func(t *testing.T) {
		c := NewPriceCache(&memoryStore{loadErr: errors.New("corrupt")})
		if err := c.Restore(); err == nil {
			t.Error("Expected Restore error")
		}
	})

	t.Run("nothing persisted", func(t *testing.T) {
		c := NewPriceCache(&memoryStore{})
		if err := c.Restore(); err != nil {
			t.Errorf("Restore failed: %v", err)
		}
		if !c.Entry().IsEmpty() {
			t.Error("Expected empty cache")
		}
	})
}
