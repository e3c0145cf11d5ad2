package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// --- Mocks ---

type mockEODHDClient struct {
	mu           sync.Mutex
	quotes       map[string]*models.RealTimeQuote
	fundamentals map[string]*models.Fundamentals
	fundErr      error
	fundCalls    int
}

func (m *mockEODHDClient) GetRealTimeQuote(_ context.Context, code string) (*models.RealTimeQuote, error) {
	if q, ok := m.quotes[code]; ok {
		return q, nil
	}
	return nil, errors.New("ticker not found")
}

func (m *mockEODHDClient) GetEOD(_ context.Context, _ string, _ ...interfaces.EODOption) (*models.EODResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEODHDClient) GetFundamentals(_ context.Context, code string) (*models.Fundamentals, error) {
	m.mu.Lock()
	m.fundCalls++
	m.mu.Unlock()
	if m.fundErr != nil {
		return nil, m.fundErr
	}
	if f, ok := m.fundamentals[code]; ok {
		return f, nil
	}
	return nil, errors.New("no fundamentals")
}

type fixedFX map[string]float64

func (f fixedFX) Rate(_ context.Context, code string) float64 {
	if r, ok := f[code]; ok {
		return r
	}
	return 1
}

func TestProviderCode(t *testing.T) {
	assert.Equal(t, "AAPL.US", ProviderCode(" aapl", "US"))
	assert.Equal(t, "BHP.AU", ProviderCode("bhp.au", "US"))
	assert.Equal(t, "AAPL", ProviderCode("AAPL", ""))
	assert.Equal(t, "", ProviderCode("  ", "US"))
}

func TestGetQuotes_MergesPriceAndFundamentals(t *testing.T) {
	client := &mockEODHDClient{
		quotes: map[string]*models.RealTimeQuote{
			"AAPL.US": {Close: 190},
			"VOD.LSE": {Close: 0, PreviousClose: 79},
		},
		fundamentals: map[string]*models.Fundamentals{
			"AAPL.US": {Beta: 1.2, Sector: "Technology", Growth5Y: 11, PEGRatio: 2.4, TotalCash: 60, TotalDebt: 100, Currency: "USD"},
			"VOD.LSE": {Beta: 0.6, Sector: "Communication Services", Currency: "GBP"},
		},
	}
	svc := NewService(client, fixedFX{"GBP": 0.79}, "US", 2, common.NewSilentLogger())

	quotes := svc.GetQuotes(context.Background(), []string{"aapl", "AAPL", "vod.lse", "MISSING"})

	require.Len(t, quotes, 2)
	assert.Equal(t, models.Quote{Price: 190, Beta: 1.2, Sector: "Technology", Growth: 11, PEGRatio: 2.4, TotalCash: 60, TotalDebt: 100}, quotes["AAPL"])
	assert.InDelta(t, 100.0, quotes["VOD.LSE"].Price, 1e-9)
	_, ok := quotes["MISSING"]
	assert.False(t, ok)
}

func TestGetQuotes_FundamentalsFailureKeepsPrice(t *testing.T) {
	client := &mockEODHDClient{
		quotes:  map[string]*models.RealTimeQuote{"MSFT.US": {Close: 400}},
		fundErr: errors.New("quota exceeded"),
	}
	svc := NewService(client, nil, "US", 0, common.NewSilentLogger())

	quotes := svc.GetQuotes(context.Background(), []string{"MSFT"})
	assert.Equal(t, models.Quote{Price: 400}, quotes["MSFT"])
}

func TestGetQuotes_CachesFundamentals(t *testing.T) {
	client := &mockEODHDClient{
		quotes:       map[string]*models.RealTimeQuote{"KO.US": {Close: 60}},
		fundamentals: map[string]*models.Fundamentals{"KO.US": {Beta: 0.6}},
	}
	svc := NewService(client, nil, "US", 1, common.NewSilentLogger())
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.GetQuotes(context.Background(), []string{"KO"})
	svc.GetQuotes(context.Background(), []string{"KO"})
	assert.Equal(t, 1, client.fundCalls)

	now = now.Add(DefaultFundamentalsTTL + time.Minute)
	svc.GetQuotes(context.Background(), []string{"KO"})
	assert.Equal(t, 2, client.fundCalls)
}

func TestGetQuotes_CancelledContext(t *testing.T) {
	client := &mockEODHDClient{quotes: map[string]*models.RealTimeQuote{"A.US": {Close: 1}}}
	svc := NewService(client, nil, "US", 1, common.NewSilentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var quotes map[string]models.Quote
	assert.NotPanics(t, func() {
		quotes = svc.GetQuotes(ctx, []string{"A", "B", "C"})
	})
	assert.Empty(t, quotes)
}

func TestGetQuotes_NoProvider(t *testing.T) {
	svc := NewService(nil, nil, "US", 2, common.NewSilentLogger())
	quotes := svc.GetQuotes(context.Background(), []string{"AAPL"})
	assert.NotNil(t, quotes)
	assert.Empty(t, quotes)
}
