package domain

import "time"

// MarketWindow decides market-hours questions for a configured feed.
// All checks are done on the UTC wall clock.
type MarketWindow struct {
	Source Source
}

// IsMarketOpen reports false from Saturday 23:00 UTC through the whole of Sunday.
func IsMarketOpen(now time.Time) bool {
	now = now.UTC()
	switch now.Weekday() {
	case time.Saturday:
		return now.Hour() < 23
	case time.Sunday:
		return false
	default:
		return true
	}
}

// IsFeedUnreliable reports the Sunday 22:00-23:59 UTC window in which SwissQuote
// publishes unstable pre-open quotes. Other sources are never flagged.
func (w MarketWindow) IsFeedUnreliable(now time.Time) bool {
	if w.Source != SourceSwissQuote {
		return false
	}
	now = now.UTC()
	return now.Weekday() == time.Sunday && now.Hour() >= 22
}

// IsCacheWriteWindow reports the hour after midnight UTC while the market is closed,
// i.e. Sunday 00:00-00:59 UTC.
func IsCacheWriteWindow(now time.Time) bool {
	now = now.UTC()
	return !IsMarketOpen(now) && now.Hour() == 0
}

func (w MarketWindow) IsMarketOpen(now time.Time) bool       { return IsMarketOpen(now) }
func (w MarketWindow) IsCacheWriteWindow(now time.Time) bool { return IsCacheWriteWindow(now) }
