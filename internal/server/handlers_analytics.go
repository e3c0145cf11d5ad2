package server

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/fx"
	"github.com/bobmcallan/folio/internal/services/quote"
)

// maxAnalyzeLots bounds the stateless endpoints' request size.
const maxAnalyzeLots = 5000

type analyzeRequest struct {
	Lots   []models.Lot            `json:"lots"`
	Quotes map[string]models.Quote `json:"quotes"`
	Rate   float64                 `json:"rate"`
	TWR    *models.TWRDataset      `json:"twr"`
}

// handleAnalyze runs the engine over caller-supplied lots, quotes, rate and
// TWR. Nothing is fetched or stored.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req analyzeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Lots) > maxAnalyzeLots {
		WriteError(w, http.StatusRequestEntityTooLarge, "too many lots")
		return
	}

	snap := analytics.Analyze(analytics.Input{
		Lots:   req.Lots,
		Quotes: req.Quotes,
		Rate:   req.Rate,
		TWR:    req.TWR,
	})

	WriteJSON(w, http.StatusOK, snap)
}

type twrRequest struct {
	Lots              []models.Lot `json:"lots"`
	ComparisonTickers []string     `json:"comparison_tickers"`
}

// handlePortfolioTWR computes time-weighted returns for caller-supplied lots.
// Without comparison_tickers the configured benchmarks are used.
func (s *Server) handlePortfolioTWR(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.TWRService == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "price history provider is not configured", "unavailable")
		return
	}

	var req twrRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Lots) > maxAnalyzeLots {
		WriteError(w, http.StatusRequestEntityTooLarge, "too many lots")
		return
	}

	comparisons := req.ComparisonTickers
	if comparisons == nil {
		comparisons = s.app.Config.Analytics.ComparisonTickers
	}

	dataset, err := s.app.TWRService.Compute(r.Context(), req.Lots, common.ResolveUserID(r.Context()), comparisons)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, dataset)
}

// handleCurrencyRate returns display-currency units per 1 USD. The currency
// comes from ?currency=, then the user context, then the configured default.
func (s *Server) handleCurrencyRate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if currency == "" {
		currency = common.ResolveDisplayCurrency(r.Context(), s.app.Config.DisplayCurrency)
	}
	if len(currency) != 3 {
		WriteError(w, http.StatusBadRequest, "currency must be a 3-letter ISO code")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"base":     fx.BaseCurrency,
		"currency": currency,
		"rate":     s.app.FXService.Rate(r.Context(), currency),
	})
}

const defaultHistoryPeriod = "20y"

type historyPoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// handleStockHistory returns daily closes for one ticker, oldest first.
// ?period= takes Nd, Nmo, Ny or max and defaults to 20y.
func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := analytics.TickerKey(PathParam(r, "/api/stock/history/", ""))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = defaultHistoryPeriod
	}
	from, err := historyStart(period, time.Now().UTC())
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.app.EODHDClient == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "price history provider is not configured", "unavailable")
		return
	}

	code := quote.ProviderCode(ticker, s.app.Config.Clients.EODHD.ExchangeSuffix)
	resp, err := s.app.EODHDClient.GetEOD(r.Context(), code, interfaces.WithDateRange(from, time.Time{}), interfaces.WithOrder("a"))
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Stock history fetch failed")
		WriteJSON(w, http.StatusOK, []historyPoint{})
		return
	}

	points := make([]historyPoint, 0, len(resp.Data))
	for _, b := range resp.Data {
		price := b.AdjClose
		if price <= 0 {
			price = b.Close
		}
		if b.Date.IsZero() || price <= 0 {
			continue
		}
		points = append(points, historyPoint{Date: b.Date.Format("2006-01-02"), Close: price})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	WriteJSON(w, http.StatusOK, points)
}

// historyStart resolves a period such as 5d, 6mo, 20y or max to its first
// date. max returns the zero time.
func historyStart(period string, now time.Time) (time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "max" {
		return time.Time{}, nil
	}

	unit := strings.TrimLeft(period, "0123456789")
	n, err := strconv.Atoi(strings.TrimSuffix(period, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid period %q", period)
	}

	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	case "y":
		return now.AddDate(-n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid period %q", period)
}
