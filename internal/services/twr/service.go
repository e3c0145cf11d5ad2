// Package twr computes time-weighted returns for a set of lots from
// end-of-day price history.
package twr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/quote"
)

const (
	// historyLead fetches closes before the first purchase so weekend and
	// holiday purchases have a prior close available.
	historyLead = 7 * day

	cacheKey      = "performance"
	baseCurrency  = "USD"
	maxConcurrent = 5
)

// cacheEntry is the stored TWR result for one user.
type cacheEntry struct {
	InputHash string             `json:"input_hash"`
	Day       string             `json:"day"`
	Result    *models.TWRDataset `json:"result"`
}

// Service implements interfaces.TWRService.
type Service struct {
	eodhd    interfaces.EODHDClient
	fx       interfaces.FXService
	store    interfaces.UserDataStore
	logger   *common.Logger
	suffix   string
	useCache bool
	now      func() time.Time

	mu         sync.Mutex
	currencies map[string]string // provider code -> listing currency
}

// NewService creates a TWR service. store may be nil to disable caching.
// fx supplies a spot rate when a currency's rate history is unavailable and
// may be nil.
func NewService(eodhd interfaces.EODHDClient, fx interfaces.FXService, store interfaces.UserDataStore, exchangeSuffix string, useCache bool, logger *common.Logger) *Service {
	return &Service{
		eodhd:      eodhd,
		fx:         fx,
		store:      store,
		logger:     logger,
		suffix:     exchangeSuffix,
		useCache:   useCache && store != nil,
		now:        time.Now,
		currencies: make(map[string]string),
	}
}

// Compute returns the portfolio and per-ticker TWR for lots. Results are
// cached per user and reused while the inputs are unchanged on the same
// UTC day. Lots with invalid dates are ignored; when none remain the result
// is a zero total with no tickers.
func (s *Service) Compute(ctx context.Context, lots []models.Lot, userID string, comparisonTickers []string) (*models.TWRDataset, error) {
	if len(lots) == 0 {
		return emptyDataset(), nil
	}

	today := truncateDay(s.now().UTC())
	hash, err := inputHash(lots, comparisonTickers)
	if err != nil {
		return nil, fmt.Errorf("failed to hash TWR input: %w", err)
	}

	if s.useCache && userID != "" {
		if cached := s.loadCache(ctx, userID, hash, today); cached != nil {
			s.logger.Debug().Str("user_id", userID).Msg("TWR served from cache")
			return cached, nil
		}
	}

	flows, tickers := collectFlows(lots)
	if len(flows) == 0 {
		return emptyDataset(), nil
	}

	start := firstFlowDate(flows)
	from := start.Add(-historyLead)

	comparisons := normalizeTickers(comparisonTickers)
	history := s.fetchHistory(ctx, normalizeTickers(append(append([]string{}, tickers...), comparisons...)), from, today)

	result := calculate(flows, tickers, history, today)
	if len(comparisons) > 0 {
		result.Comparisons = make(map[string][]models.TWRPoint, len(comparisons))
		for _, c := range comparisons {
			if points := rebase(history[c], start, today); len(points) > 0 {
				result.Comparisons[c] = points
			}
		}
	}

	s.logger.Info().Int("lots", len(lots)).Int("tickers", len(tickers)).Float64("total_twr", *result.TotalTWR).Msg("TWR computed")

	if s.useCache && userID != "" {
		s.saveCache(ctx, userID, cacheEntry{InputHash: hash, Day: today.Format(dateLayout), Result: result})
	}

	return result, nil
}

// fetchHistory loads EOD closes for every ticker concurrently and converts
// them to USD, the currency lot costs are recorded in. Tickers whose history
// cannot be fetched or converted get an empty series and fall back to cost
// prices.
func (s *Service) fetchHistory(ctx context.Context, tickers []string, from, to time.Time) map[string]series {
	history := make(map[string]series, len(tickers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrent)
	rates := &rateHistory{byCurrency: make(map[string]series)}

	for _, ticker := range tickers {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			code := quote.ProviderCode(ticker, s.suffix)
			resp, err := s.eodhd.GetEOD(ctx, code, interfaces.WithDateRange(from, to), interfaces.WithOrder("a"))
			if err != nil {
				s.logger.Warn().Err(err).Str("ticker", ticker).Msg("EOD history fetch failed")
				return
			}
			sr, ok := s.inBaseCurrency(ctx, code, newSeries(resp.Data), rates, from, to)
			if !ok {
				return
			}
			mu.Lock()
			history[ticker] = sr
			mu.Unlock()
		}(ticker)
	}

	wg.Wait()
	return history
}

// rateHistory holds USD<CCY> closes loaded during one computation.
type rateHistory struct {
	mu         sync.Mutex
	byCurrency map[string]series
}

// inBaseCurrency converts a listing-currency series to USD using the day's
// forex close. Without a rate history it falls back to the current spot
// rate; with neither the series is dropped.
func (s *Service) inBaseCurrency(ctx context.Context, code string, sr series, rates *rateHistory, from, to time.Time) (series, bool) {
	ccy := s.listingCurrency(ctx, code)
	if ccy == "" || ccy == baseCurrency {
		return sr, true
	}

	if converted, ok := sr.toBase(s.rateSeries(ctx, ccy, rates, from, to)); ok {
		return converted, true
	}

	if s.fx != nil {
		if rate := s.fx.Rate(ctx, ccy); rate > 0 {
			s.logger.Warn().Str("code", code).Str("currency", ccy).Float64("rate", rate).Msg("No FX history, converting at spot rate")
			return sr.scale(1 / rate), true
		}
	}

	s.logger.Warn().Str("code", code).Str("currency", ccy).Msg("No FX rate for listing currency, history ignored")
	return series{}, false
}

// listingCurrency returns the upper-case trading currency of a provider
// code, or "" when it is unknown. Known currencies are remembered.
func (s *Service) listingCurrency(ctx context.Context, code string) string {
	s.mu.Lock()
	ccy, ok := s.currencies[code]
	s.mu.Unlock()
	if ok {
		return ccy
	}

	f, err := s.eodhd.GetFundamentals(ctx, code)
	if err != nil {
		s.logger.Debug().Err(err).Str("code", code).Msg("Listing currency unknown, assuming USD")
		return ""
	}

	ccy = strings.ToUpper(strings.TrimSpace(f.Currency))
	s.mu.Lock()
	s.currencies[code] = ccy
	s.mu.Unlock()
	return ccy
}

// rateSeries loads the USD<CCY>.FOREX closes once per computation.
func (s *Service) rateSeries(ctx context.Context, ccy string, rates *rateHistory, from, to time.Time) series {
	rates.mu.Lock()
	defer rates.mu.Unlock()

	if sr, ok := rates.byCurrency[ccy]; ok {
		return sr
	}

	var sr series
	resp, err := s.eodhd.GetEOD(ctx, baseCurrency+ccy+".FOREX", interfaces.WithDateRange(from, to), interfaces.WithOrder("a"))
	if err != nil {
		s.logger.Warn().Err(err).Str("currency", ccy).Msg("FX history fetch failed")
	} else {
		sr = newSeries(resp.Data)
	}
	rates.byCurrency[ccy] = sr
	return sr
}

func (s *Service) loadCache(ctx context.Context, userID, hash string, today time.Time) *models.TWRDataset {
	rec, err := s.store.Get(ctx, userID, models.SubjectTWRCache, cacheKey)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("TWR cache read failed")
		}
		return nil
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(rec.Value), &entry); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("TWR cache entry unreadable")
		return nil
	}
	if entry.InputHash != hash || entry.Day != today.Format(dateLayout) || entry.Result == nil {
		return nil
	}
	return entry.Result
}

func (s *Service) saveCache(ctx context.Context, userID string, entry cacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Msg("TWR cache encode failed")
		return
	}
	rec := &models.UserRecord{
		UserID:   userID,
		Subject:  models.SubjectTWRCache,
		Key:      cacheKey,
		Value:    string(data),
		DateTime: s.now().UTC(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("TWR cache write failed")
	}
}

// inputHash fingerprints lots and comparison tickers independent of order.
func inputHash(lots []models.Lot, comparisonTickers []string) (string, error) {
	type hashLot struct {
		ID     string  `json:"id"`
		Ticker string  `json:"ticker"`
		Shares float64 `json:"shares"`
		Cost   float64 `json:"cost"`
		Date   string  `json:"date"`
	}
	sorted := make([]hashLot, 0, len(lots))
	for _, l := range lots {
		sorted = append(sorted, hashLot{
			ID:     l.ID,
			Ticker: analytics.TickerKey(l.Ticker),
			Shares: l.Shares.Float(),
			Cost:   l.TotalCost.Float(),
			Date:   l.PurchaseDate,
		})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		return a.Date < b.Date
	})

	payload := struct {
		Lots        []hashLot `json:"lots"`
		Comparisons []string  `json:"comparisons"`
	}{sorted, normalizeTickers(comparisonTickers)}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		key := analytics.TickerKey(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

var _ interfaces.TWRService = (*Service)(nil)
