package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"aux_relay/internal/domain"
)

// maxFeedBody bounds how much of an upstream response is read
const maxFeedBody = 1 << 20

// feedClient is the HTTP plumbing shared by the feed adapters
type feedClient struct {
	source     domain.Source
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

func newFeedClient(src domain.Source, timeout time.Duration) feedClient {
	return feedClient{
		source:  src,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "feed", "source", string(src)),
	}
}

// getJSON issues a bounded GET and decodes the body into dst.
// Every failure is returned as a *domain.FetchError.
func (c *feedClient) getJSON(ctx context.Context, url string, cur domain.Currency, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewTransportError(c.source, cur, err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewTransportError(c.source, cur, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBody))
		return domain.NewStatusError(c.source, cur, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return domain.NewTransportError(c.source, cur, err)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return domain.NewParseError(c.source, cur, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// logQuote writes the raw bid/ask/midpoint of a successful fetch
func (c *feedClient) logQuote(cur domain.Currency, q domain.PriceQuote) {
	c.logger.Info("Quote fetched",
		slog.String("currency", string(cur)),
		slog.String("bid", q.Bid().String()),
		slog.String("ask", q.Ask().String()),
		slog.String("per_gram", domain.FormatPrice(q.MidpointPerGram())),
	)
}
