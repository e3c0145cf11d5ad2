// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	if string(data) == "null" {
		*f = 0
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the EODHDClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// realTimeResponse is the /real-time payload. EODHD sends "NA" for
// fields it has no value for.
type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     int64       `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexFloat64 `json:"volume"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangePct     flexFloat64 `json:"change_p"`
}

// GetRealTimeQuote retrieves the latest (15-20 min delayed) price for a ticker
func (c *Client) GetRealTimeQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error) {
	var resp realTimeResponse
	if err := c.get(ctx, fmt.Sprintf("/real-time/%s", ticker), nil, &resp); err != nil {
		return nil, err
	}

	code := resp.Code
	if code == "" {
		code = ticker
	}

	return &models.RealTimeQuote{
		Code:          code,
		Open:          float64(resp.Open),
		High:          float64(resp.High),
		Low:           float64(resp.Low),
		Close:         float64(resp.Close),
		PreviousClose: float64(resp.PreviousClose),
		Change:        float64(resp.Change),
		ChangePct:     float64(resp.ChangePct),
		Volume:        int64(resp.Volume),
		Timestamp:     time.Unix(resp.Timestamp, 0),
	}, nil
}

// GetEOD retrieves end-of-day price data
func (c *Client) GetEOD(ctx context.Context, ticker string, opts ...interfaces.EODOption) (*models.EODResponse, error) {
	params := &interfaces.EODParams{
		Period: "d",
		Order:  "d", // descending (most recent first)
	}

	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("period", params.Period)
	urlParams.Set("order", params.Order)

	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}

	var bars []eodBarResponse
	if err := c.get(ctx, fmt.Sprintf("/eod/%s", ticker), urlParams, &bars); err != nil {
		return nil, err
	}

	result := &models.EODResponse{
		Ticker: ticker,
		Data:   make([]models.EODBar, 0, len(bars)),
	}

	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			c.logger.Warn().Str("ticker", ticker).Str("date", bar.Date).Msg("Skipping EOD bar with unparseable date")
			continue
		}
		result.Data = append(result.Data, models.EODBar{
			Date:     date,
			Open:     float64(bar.Open),
			High:     float64(bar.High),
			Low:      float64(bar.Low),
			Close:    float64(bar.Close),
			AdjClose: float64(bar.AdjustedClose),
			Volume:   int64(bar.Volume),
		})
	}

	return result, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        flexFloat64 `json:"volume"`
}

// GetFundamentals retrieves the company data used for health scoring:
// sector, beta, PEG, the analysts' +5y growth trend and the most recent
// quarterly balance sheet cash and debt.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	var resp fundamentalsResponse
	if err := c.get(ctx, fmt.Sprintf("/fundamentals/%s", ticker), nil, &resp); err != nil {
		return nil, err
	}

	isETF := resp.General.Type == "ETF" ||
		strings.Contains(strings.ToUpper(resp.General.Name), " ETF")

	f := &models.Fundamentals{
		Ticker:      ticker,
		Name:        resp.General.Name,
		Currency:    resp.General.CurrencyCode,
		Sector:      resp.General.Sector,
		Industry:    resp.General.Industry,
		IsETF:       isETF,
		Beta:        float64(resp.Technicals.Beta),
		PE:          float64(resp.Highlights.PERatio),
		PEGRatio:    float64(resp.Highlights.PEGRatio),
		Growth5Y:    resp.Earnings.growth5Y(),
		LastUpdated: time.Now(),
	}

	if sheet, ok := resp.Financials.BalanceSheet.latest(); ok {
		f.TotalCash = sheet.cash()
		f.TotalDebt = sheet.debt()
	}

	return f, nil
}

// fundamentalsResponse represents the API response structure
type fundamentalsResponse struct {
	General struct {
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		Type         string `json:"Type"` // "Common Stock", "ETF", etc.
		CurrencyCode string `json:"CurrencyCode"`
		Sector       string `json:"Sector"`
		Industry     string `json:"Industry"`
	} `json:"General"`
	Highlights struct {
		PERatio  flexFloat64 `json:"PERatio"`
		PEGRatio flexFloat64 `json:"PEGRatio"`
	} `json:"Highlights"`
	Technicals struct {
		Beta flexFloat64 `json:"Beta"`
	} `json:"Technicals"`
	Earnings   earningsSection `json:"Earnings"`
	Financials struct {
		BalanceSheet balanceSheets `json:"Balance_Sheet"`
	} `json:"Financials"`
}

type earningsSection struct {
	Trend map[string]struct {
		Date   string      `json:"date"`
		Period string      `json:"period"`
		Growth flexFloat64 `json:"growth"`
	} `json:"Trend"`
}

// growth5Y returns the most recent "+5y" growth estimate as a percentage.
func (e earningsSection) growth5Y() float64 {
	keys := make([]string, 0, len(e.Trend))
	for k, t := range e.Trend {
		if t.Period == "+5y" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return 0
	}
	sort.Strings(keys)
	return float64(e.Trend[keys[len(keys)-1]].Growth) * 100
}

type balanceSheet struct {
	Cash                   flexFloat64 `json:"cash"`
	CashAndShortTermInvest flexFloat64 `json:"cashAndShortTermInvestments"`
	ShortLongTermDebtTotal flexFloat64 `json:"shortLongTermDebtTotal"`
	LongTermDebt           flexFloat64 `json:"longTermDebt"`
	ShortLongTermDebt      flexFloat64 `json:"shortLongTermDebt"`
}

func (b balanceSheet) cash() float64 {
	if b.CashAndShortTermInvest > 0 {
		return float64(b.CashAndShortTermInvest)
	}
	return float64(b.Cash)
}

func (b balanceSheet) debt() float64 {
	if b.ShortLongTermDebtTotal > 0 {
		return float64(b.ShortLongTermDebtTotal)
	}
	return float64(b.LongTermDebt + b.ShortLongTermDebt)
}

type balanceSheets struct {
	Quarterly map[string]balanceSheet `json:"quarterly"`
	Yearly    map[string]balanceSheet `json:"yearly"`
}

// latest returns the newest quarterly sheet, falling back to yearly.
func (b balanceSheets) latest() (balanceSheet, bool) {
	for _, sheets := range []map[string]balanceSheet{b.Quarterly, b.Yearly} {
		if len(sheets) == 0 {
			continue
		}
		dates := make([]string, 0, len(sheets))
		for d := range sheets {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		return sheets[dates[len(dates)-1]], true
	}
	return balanceSheet{}, false
}

// Ensure Client implements EODHDClient
var _ interfaces.EODHDClient = (*Client)(nil)
