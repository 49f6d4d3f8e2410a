package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// FetchErrorKind classifies a failed feed call
type FetchErrorKind int

const (
	KindTransport FetchErrorKind = iota + 1
	KindUpstreamStatus
	KindParse
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUpstreamStatus:
		return "upstream_status"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

var (
	// ErrTransport matches any FetchError of KindTransport
	ErrTransport = errors.New("feed transport error")
	// ErrUpstreamStatus matches any FetchError of KindUpstreamStatus
	ErrUpstreamStatus = errors.New("feed returned non-success status")
	// ErrParse matches any FetchError of KindParse
	ErrParse = errors.New("unexpected feed response")
)

// FetchError is returned by every PriceSource
type FetchError struct {
	Kind       FetchErrorKind
	Source     Source
	Currency   Currency
	StatusCode int   // Only set for KindUpstreamStatus
	Err        error // Underlying error, may be nil
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s fetch: %s", e.Source, e.Currency, e.Kind)
	if e.Kind == KindUpstreamStatus {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a FetchError against the kind sentinels
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrUpstreamStatus:
		return e.Kind == KindUpstreamStatus
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}

// IsRetriable is informational: the poller never retries inside a cycle.
func (e *FetchError) IsRetriable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindUpstreamStatus:
		return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// NewTransportError wraps a network failure reaching the feed
func NewTransportError(src Source, cur Currency, err error) *FetchError {
	return &FetchError{Kind: KindTransport, Source: src, Currency: cur, Err: err}
}

// NewStatusError reports a non-2xx feed response
func NewStatusError(src Source, cur Currency, status int) *FetchError {
	return &FetchError{Kind: KindUpstreamStatus, Source: src, Currency: cur, StatusCode: status}
}

// NewParseError reports an unexpected feed payload
func NewParseError(src Source, cur Currency, err error) *FetchError {
	return &FetchError{Kind: KindParse, Source: src, Currency: cur, Err: err}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrNonPositiveQuote is returned when a bid or ask is zero or negative
	ErrNonPositiveQuote = errors.New("bid and ask must be positive")

	// ErrNoFallback is returned when the feed is unreliable and nothing was cached yet
	ErrNoFallback = errors.New("no cached price available for fallback")
)
