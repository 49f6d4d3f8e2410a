package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"aux_relay/internal/domain"
	"aux_relay/internal/infra"

	"github.com/shopspring/decimal"
)

// ErrPollBusy is returned by Tick when the previous cycle is still running
var ErrPollBusy = errors.New("poll cycle already in flight")

// Poller runs the fetch-compute-cache-broadcast cycle
type Poller struct {
	source  domain.PriceSource
	window  domain.MarketWindow
	cache   *PriceCache
	sinks   []domain.Broadcaster
	metrics *infra.Metrics
	now     func() time.Time
	logger  *slog.Logger

	busy atomic.Bool
}

// NewPoller wires a poller for source. metrics may be nil.
func NewPoller(source domain.PriceSource, cache *PriceCache, metrics *infra.Metrics, sinks ...domain.Broadcaster) *Poller {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Poller{
		source:  source,
		window:  domain.MarketWindow{Source: source.Name()},
		cache:   cache,
		sinks:   sinks,
		metrics: metrics,
		now:     time.Now,
		logger:  slog.Default().With("module", "poller"),
	}
}

// SetClock replaces the wall clock used for market-window decisions
func (p *Poller) SetClock(now func() time.Time) {
	p.now = now
}

// Tick runs one cycle unless another is still in flight.
// Failures are logged and swallowed; the next tick simply tries again.
func (p *Poller) Tick(ctx context.Context) error {
	if !p.busy.CompareAndSwap(false, true) {
		p.metrics.RecordPollSkipped()
		p.logger.Debug("Previous poll cycle still running, skipping tick")
		return ErrPollBusy
	}
	defer p.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Poll cycle panic recovered", slog.Any("panic", r))
		}
	}()

	start := time.Now()
	_, err := p.Poll(ctx)
	p.metrics.RecordPoll(time.Since(start))

	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			p.metrics.RecordFetchError()
			p.logger.Warn("Poll cycle aborted",
				slog.String("kind", fe.Kind.String()),
				slog.String("currency", string(fe.Currency)),
				slog.Bool("retriable", domain.IsRetriable(err)),
				slog.Any("error", err),
			)
		} else {
			p.logger.Warn("Poll cycle aborted", slog.Any("error", err))
		}
	}
	return err
}

// Poll executes a single cycle and returns the broadcast message.
// On error nothing is broadcast and the cache is untouched.
func (p *Poller) Poll(ctx context.Context) (*domain.BroadcastMessage, error) {
	now := p.now()

	var (
		msg *domain.BroadcastMessage
		err error
	)
	switch p.source.Name() {
	case domain.SourceSwissQuote:
		msg, err = p.pollSwissQuote(ctx, now)
	default:
		msg, err = p.pollSilverBullion(ctx, now)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("Broadcasting price",
		slog.String("usd_per_gram_aux", msg.USDPerGram),
		slog.String("eur_per_gram_aux", msg.EURPerGram),
		slog.String("source", string(msg.Source)),
		slog.Bool("market_open", msg.MarketOpen),
	)
	for _, sink := range p.sinks {
		sink.Broadcast(ctx, *msg)
	}
	p.metrics.RecordBroadcast(now)

	return msg, nil
}

func (p *Poller) pollSwissQuote(ctx context.Context, now time.Time) (*domain.BroadcastMessage, error) {
	var usd, eur decimal.Decimal

	if p.window.IsFeedUnreliable(now) {
		usd, eur = p.cache.Read()
		if !usd.IsPositive() || !eur.IsPositive() {
			return nil, fmt.Errorf("feed unreliable at %s: %w", now.UTC().Format(time.RFC3339), domain.ErrNoFallback)
		}
		p.metrics.RecordCacheFallback()
		p.logger.Info("Feed unreliable, using cached price")
	} else {
		// USD first: a failure here never reaches the EUR call.
		usdQuote, err := p.source.Fetch(ctx, domain.USD)
		if err != nil {
			return nil, err
		}
		eurQuote, err := p.source.Fetch(ctx, domain.EUR)
		if err != nil {
			return nil, err
		}
		usd, eur = usdQuote.MidpointPerGram(), eurQuote.MidpointPerGram()
	}

	if p.window.IsCacheWriteWindow(now) {
		p.cache.Write(usd, eur)
		p.metrics.RecordCacheWrite()
		p.logger.Info("Cached fallback price",
			slog.String("usd_per_gram", domain.FormatPrice(usd)),
			slog.String("eur_per_gram", domain.FormatPrice(eur)),
		)
	}

	return &domain.BroadcastMessage{
		USDPerGram: domain.FormatPrice(usd),
		EURPerGram: domain.FormatPrice(eur),
		Source:     domain.SourceSwissQuote,
		MarketOpen: p.window.IsMarketOpen(now),
	}, nil
}

func (p *Poller) pollSilverBullion(ctx context.Context, now time.Time) (*domain.BroadcastMessage, error) {
	q, err := p.source.Fetch(ctx, domain.USD)
	if err != nil {
		return nil, err
	}
	return &domain.BroadcastMessage{
		USDPerGram: domain.FormatPrice(q.MidpointPerGram()),
		Source:     domain.SourceSilverBullion,
		MarketOpen: p.window.IsMarketOpen(now),
	}, nil
}
