package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFetchError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("transport error", func(t *testing.T) {
		err := NewTransportError(SourceSwissQuote, USD, baseErr)

		if !errors.Is(err, ErrTransport) {
			t.Error("Expected error to match ErrTransport")
		}
		if errors.Is(err, ErrParse) || errors.Is(err, ErrUpstreamStatus) {
			t.Error("Transport error must not match other kinds")
		}
		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
		if !IsRetriable(err) {
			t.Error("Transport errors should be retriable")
		}

		want := "SwissQuote USD fetch: transport: connection refused"
		if err.Error() != want {
			t.Errorf("Error message = %q, want %q", err.Error(), want)
		}
	})

	t.Run("status error", func(t *testing.T) {
		err := NewStatusError(SourceSilverBullion, USD, http.StatusBadGateway)

		if !errors.Is(err, ErrUpstreamStatus) {
			t.Error("Expected error to match ErrUpstreamStatus")
		}
		if !IsRetriable(err) {
			t.Error("5xx should be retriable")
		}
		if IsRetriable(NewStatusError(SourceSilverBullion, USD, http.StatusNotFound)) {
			t.Error("404 should not be retriable")
		}

		want := "SilverBullion USD fetch: upstream_status (status 502)"
		if err.Error() != want {
			t.Errorf("Error message = %q, want %q", err.Error(), want)
		}
	})

	t.Run("parse error", func(t *testing.T) {
		err := NewParseError(SourceSilverBullion, USD, errors.New("no gold entry"))

		if !errors.Is(err, ErrParse) {
			t.Error("Expected error to match ErrParse")
		}
		if IsRetriable(err) {
			t.Error("Parse errors should not be retriable")
		}
	})

	t.Run("wrapped fetch error keeps kind", func(t *testing.T) {
		err := fmt.Errorf("poll cycle: %w", NewParseError(SourceSwissQuote, EUR, errors.New("empty")))

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatal("Expected errors.As to find FetchError")
		}
		if fe.Currency != EUR || fe.Kind != KindParse {
			t.Errorf("Unexpected fetch error %+v", fe)
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("missing value")
	err := &ConfigError{Field: "server.port", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [server.port]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
