// Package fx converts USD amounts into display currencies.
package fx

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// BaseCurrency is the currency all engine values are denominated in.
const BaseCurrency = "USD"

// DefaultFallbacks are used when neither the provider nor config has a rate.
var DefaultFallbacks = map[string]float64{
	"SGD": 1.35,
	"EUR": 0.92,
	"GBP": 0.79,
	"CNY": 7.20,
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// Service implements interfaces.FXService with a short-lived rate cache.
type Service struct {
	eodhd     interfaces.EODHDClient
	logger    *common.Logger
	ttl       time.Duration
	fallbacks map[string]float64
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cachedRate
}

// NewService creates an FX service. eodhd may be nil, in which case only
// fallback rates are used.
func NewService(eodhd interfaces.EODHDClient, config common.FXConfig, logger *common.Logger) *Service {
	fallbacks := make(map[string]float64, len(DefaultFallbacks)+len(config.Fallbacks))
	for k, v := range DefaultFallbacks {
		fallbacks[k] = v
	}
	for k, v := range config.Fallbacks {
		if v > 0 {
			fallbacks[strings.ToUpper(k)] = v
		}
	}

	return &Service{
		eodhd:     eodhd,
		logger:    logger,
		ttl:       config.GetCacheTTL(),
		fallbacks: fallbacks,
		now:       time.Now,
		cache:     make(map[string]cachedRate),
	}
}

// Rate returns display-currency units per 1 USD. USD and unrecognised
// currencies without a fallback return 1.
func (s *Service) Rate(ctx context.Context, currency string) float64 {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" || code == BaseCurrency {
		return 1
	}

	s.mu.Lock()
	cached, ok := s.cache[code]
	s.mu.Unlock()
	if ok && s.now().Sub(cached.fetchedAt) < s.ttl {
		return cached.rate
	}

	rate, err := s.fetch(ctx, code)
	if err == nil {
		s.mu.Lock()
		s.cache[code] = cachedRate{rate: rate, fetchedAt: s.now()}
		s.mu.Unlock()
		return rate
	}
	s.logger.Warn().Err(err).Str("currency", code).Msg("Live FX rate unavailable, using fallback")

	if ok {
		return cached.rate
	}
	if rate, ok := s.fallbacks[code]; ok {
		return rate
	}
	return 1
}

func (s *Service) fetch(ctx context.Context, code string) (float64, error) {
	if s.eodhd == nil {
		return 0, errNoProvider
	}
	q, err := s.eodhd.GetRealTimeQuote(ctx, BaseCurrency+code+".FOREX")
	if err != nil {
		return 0, err
	}
	rate := q.Close
	if rate <= 0 {
		rate = q.PreviousClose
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, errInvalidRate
	}
	return rate, nil
}

var _ interfaces.FXService = (*Service)(nil)
