package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aux_relay/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists the fallback cache slot
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at dbPath
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.CachedPrice{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// SaveCachedPrice overwrites the single cache row
func (s *Storage) SaveCachedPrice(entry domain.PriceCacheEntry) error {
	row := domain.CachedPrice{
		ID:         domain.CachedPriceSlot,
		USDPerGram: entry.USDPerGram,
		EURPerGram: entry.EURPerGram,
		WrittenOn:  entry.WrittenOn.UTC(),
	}
	return s.db.Save(&row).Error
}

// LoadCachedPrice returns the cache row, or nil if nothing was ever saved
func (s *Storage) LoadCachedPrice() (*domain.PriceCacheEntry, error) {
	var row domain.CachedPrice
	err := s.db.First(&row, domain.CachedPriceSlot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	entry := row.ToEntry()
	return &entry, nil
}

// LastWrite returns when the cache row was last updated (zero if never)
func (s *Storage) LastWrite() (time.Time, error) {
	entry, err := s.LoadCachedPrice()
	if err != nil || entry == nil {
		return time.Time{}, err
	}
	return entry.WrittenOn, nil
}

// Close releases the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.CacheStore = (*Storage)(nil)
