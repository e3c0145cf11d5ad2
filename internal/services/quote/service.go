// Package quote resolves engine quotes (price plus scoring fundamentals)
// from the market data provider.
package quote

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const (
	DefaultConcurrency     = 5
	DefaultFundamentalsTTL = 6 * time.Hour
)

type cachedFundamentals struct {
	data      *models.Fundamentals
	fetchedAt time.Time
}

// Service implements interfaces.QuoteService on top of EODHD.
type Service struct {
	eodhd       interfaces.EODHDClient
	fx          interfaces.FXService
	logger      *common.Logger
	suffix      string
	concurrency int
	ttl         time.Duration
	now         func() time.Time

	mu           sync.Mutex
	fundamentals map[string]cachedFundamentals
}

// NewService creates a quote service. exchangeSuffix is appended to bare
// tickers ("AAPL" -> "AAPL.US"). fx may be nil, in which case prices are
// assumed to already be in USD. A nil eodhd client yields no quotes.
func NewService(eodhd interfaces.EODHDClient, fx interfaces.FXService, exchangeSuffix string, concurrency int, logger *common.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		eodhd:        eodhd,
		fx:           fx,
		logger:       logger,
		suffix:       strings.ToUpper(strings.TrimSpace(exchangeSuffix)),
		concurrency:  concurrency,
		ttl:          DefaultFundamentalsTTL,
		now:          time.Now,
		fundamentals: make(map[string]cachedFundamentals),
	}
}

// ProviderCode maps a user ticker to the provider symbol.
func ProviderCode(ticker, suffix string) string {
	key := analytics.TickerKey(ticker)
	if key == "" || strings.Contains(key, ".") || suffix == "" {
		return key
	}
	return key + "." + suffix
}

// GetQuotes fetches quotes concurrently. Tickers whose price cannot be
// fetched are left out of the result; the engine treats them as absent.
func (s *Service) GetQuotes(ctx context.Context, tickers []string) map[string]models.Quote {
	if s.eodhd == nil {
		return map[string]models.Quote{}
	}

	seen := make(map[string]bool, len(tickers))
	keys := make([]string, 0, len(tickers))
	for _, t := range tickers {
		key := analytics.TickerKey(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	result := make(map[string]models.Quote, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for _, key := range keys {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			defer func() { <-sem }()

			q, ok := s.fetchQuote(ctx, key)
			if !ok {
				return
			}
			mu.Lock()
			result[key] = q
			mu.Unlock()
		}(key)
	}

	wg.Wait()

	s.logger.Debug().Int("requested", len(keys)).Int("resolved", len(result)).Msg("Quotes fetched")
	return result
}

func (s *Service) fetchQuote(ctx context.Context, key string) (models.Quote, bool) {
	code := ProviderCode(key, s.suffix)

	rt, err := s.eodhd.GetRealTimeQuote(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", key).Str("code", code).Msg("Quote fetch failed")
		return models.Quote{}, false
	}

	price := rt.Close
	if price <= 0 {
		price = rt.PreviousClose
	}

	q := models.Quote{Price: price}

	if f := s.getFundamentals(ctx, code); f != nil {
		q.Beta = f.Beta
		q.Sector = f.Sector
		q.Growth = f.Growth5Y
		q.PEGRatio = f.PEGRatio
		q.TotalCash = f.TotalCash
		q.TotalDebt = f.TotalDebt

		if s.fx != nil && f.Currency != "" && !strings.EqualFold(f.Currency, "USD") {
			if rate := s.fx.Rate(ctx, f.Currency); rate > 0 {
				q.Price = price / rate
			}
		}
	}

	return q, true
}

// getFundamentals returns cached fundamentals when fresh. A failed refresh
// falls back to the stale entry; with nothing cached the quote carries a
// price only.
func (s *Service) getFundamentals(ctx context.Context, code string) *models.Fundamentals {
	s.mu.Lock()
	cached, ok := s.fundamentals[code]
	s.mu.Unlock()
	if ok && s.now().Sub(cached.fetchedAt) < s.ttl {
		return cached.data
	}

	f, err := s.eodhd.GetFundamentals(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Fundamentals fetch failed")
		if ok {
			return cached.data
		}
		return nil
	}

	s.mu.Lock()
	s.fundamentals[code] = cachedFundamentals{data: f, fetchedAt: s.now()}
	s.mu.Unlock()
	return f
}

var _ interfaces.QuoteService = (*Service)(nil)
