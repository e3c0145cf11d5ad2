package twr

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

type mockEODHD struct {
	mu         sync.Mutex
	history    map[string][]models.EODBar
	currencies map[string]string
	calls      []string
}

func (m *mockEODHD) GetRealTimeQuote(context.Context, string) (*models.RealTimeQuote, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEODHD) GetEOD(_ context.Context, code string, _ ...interfaces.EODOption) (*models.EODResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, code)
	m.mu.Unlock()
	data, ok := m.history[code]
	if !ok {
		return nil, errors.New("no data")
	}
	return &models.EODResponse{Ticker: code, Data: data}, nil
}

func (m *mockEODHD) GetFundamentals(_ context.Context, code string) (*models.Fundamentals, error) {
	ccy, ok := m.currencies[code]
	if !ok {
		return nil, errors.New("no fundamentals")
	}
	return &models.Fundamentals{Ticker: code, Currency: ccy}, nil
}

type fixedFX map[string]float64

func (f fixedFX) Rate(_ context.Context, code string) float64 {
	if r, ok := f[code]; ok {
		return r
	}
	return 1
}

func (m *mockEODHD) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type memoryStore struct {
	records map[string]*models.UserRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*models.UserRecord)}
}

func (s *memoryStore) Get(_ context.Context, userID, subject, key string) (*models.UserRecord, error) {
	if r, ok := s.records[userID+"/"+subject+"/"+key]; ok {
		return r, nil
	}
	return nil, models.ErrNotFound
}

func (s *memoryStore) Put(_ context.Context, r *models.UserRecord) error {
	s.records[r.UserID+"/"+r.Subject+"/"+r.Key] = r
	return nil
}

func (s *memoryStore) Delete(_ context.Context, userID, subject, key string) error {
	delete(s.records, userID+"/"+subject+"/"+key)
	return nil
}

func (s *memoryStore) List(context.Context, string, string) ([]*models.UserRecord, error) {
	return nil, nil
}

func newTestService(client *mockEODHD, store interfaces.UserDataStore, now time.Time) *Service {
	svc := NewService(client, nil, store, "US", true, common.NewSilentLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func sampleHistory() map[string][]models.EODBar {
	return map[string][]models.EODBar{
		"AAPL.US": bars(map[string]float64{"2026-01-05": 110, "2026-01-06": 121}),
		"SPY.US":  bars(map[string]float64{"2026-01-02": 500, "2026-01-05": 505, "2026-01-06": 510}),
	}
}

func TestCompute_WithComparisons(t *testing.T) {
	client := &mockEODHD{history: sampleHistory()}
	svc := newTestService(client, nil, date("2026-01-06").Add(15*time.Hour))

	result, err := svc.Compute(context.Background(), []models.Lot{lot("a", "AAPL", 10, 1000, "2026-01-05")}, "u1", []string{"spy", "SPY"})
	require.NoError(t, err)

	assert.InDelta(t, 21.0, *result.TotalTWR, 1e-9)
	require.Contains(t, result.Comparisons, "SPY")
	spy := result.Comparisons["SPY"]
	require.Len(t, spy, 2)
	assert.InDelta(t, 0.0, spy[0].Value, 1e-9)
	assert.InDelta(t, (510.0/505.0-1)*100, spy[1].Value, 1e-9)
	assert.ElementsMatch(t, []string{"AAPL.US", "SPY.US"}, client.calls)
}

func TestCompute_EmptyInput(t *testing.T) {
	svc := newTestService(&mockEODHD{}, nil, time.Now())

	result, err := svc.Compute(context.Background(), nil, "u1", nil)
	require.NoError(t, err)
	assert.Zero(t, *result.TotalTWR)
	assert.Empty(t, result.Tickers)

	result, err = svc.Compute(context.Background(), []models.Lot{lot("a", "AAPL", 1, 1, "garbage")}, "u1", nil)
	require.NoError(t, err)
	assert.Zero(t, *result.TotalTWR)
	assert.Empty(t, result.Tickers)
}

func TestCompute_CacheSameDay(t *testing.T) {
	client := &mockEODHD{history: sampleHistory()}
	store := newMemoryStore()
	now := date("2026-01-06").Add(10 * time.Hour)
	svc := newTestService(client, store, now)
	lots := []models.Lot{lot("a", "AAPL", 10, 1000, "2026-01-05")}

	first, err := svc.Compute(context.Background(), lots, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())

	second, err := svc.Compute(context.Background(), lots, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())
	assert.InDelta(t, *first.TotalTWR, *second.TotalTWR, 1e-12)

	// Another user never shares the cache.
	_, err = svc.Compute(context.Background(), lots, "u2", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, client.callCount())

	// Changed inputs miss.
	changed := append([]models.Lot{}, lots...)
	changed[0].Shares = 11
	_, err = svc.Compute(context.Background(), changed, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, client.callCount())
}

func TestCompute_CacheExpiresNextDay(t *testing.T) {
	client := &mockEODHD{history: sampleHistory()}
	store := newMemoryStore()
	now := date("2026-01-06").Add(23 * time.Hour)
	svc := newTestService(client, store, now)
	svc.now = func() time.Time { return now }
	lots := []models.Lot{lot("a", "AAPL", 10, 1000, "2026-01-05")}

	_, err := svc.Compute(context.Background(), lots, "u1", nil)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.Compute(context.Background(), lots, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, client.callCount())
}

func TestInputHash_OrderIndependent(t *testing.T) {
	a := lot("a", "AAPL", 1, 10, "2026-01-01")
	b := lot("b", "MSFT", 2, 20, "2026-01-02")

	h1, err := inputHash([]models.Lot{a, b}, []string{"SPY"})
	require.NoError(t, err)
	h2, err := inputHash([]models.Lot{b, a}, []string{"spy"})
	require.NoError(t, err)
	h3, err := inputHash([]models.Lot{a, b}, nil)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestCompute_ConvertsListingCurrencyToUSD(t *testing.T) {
	// 135 SGD at USD/SGD 1.35 is the 100 USD a share the lot cost.
	client := &mockEODHD{
		history: map[string][]models.EODBar{
			"D05.SI":       bars(map[string]float64{"2026-01-05": 135, "2026-01-06": 135, "2026-01-07": 135}),
			"USDSGD.FOREX": bars(map[string]float64{"2026-01-05": 1.35}),
		},
		currencies: map[string]string{"D05.SI": "sgd"},
	}
	svc := newTestService(client, nil, date("2026-01-07").Add(12*time.Hour))

	result, err := svc.Compute(context.Background(), []models.Lot{lot("a", "D05.SI", 10, 1000, "2026-01-05")}, "u1", nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, *result.TotalTWR, 1e-9)
	assert.InDelta(t, 0.0, result.Tickers["D05.SI"], 1e-9)
	assert.ElementsMatch(t, []string{"D05.SI", "USDSGD.FOREX"}, client.calls)
}

func TestCompute_FXMoveIsReturn(t *testing.T) {
	// Flat local price, SGD strengthens from 1.35 to 1.25 per USD.
	client := &mockEODHD{
		history: map[string][]models.EODBar{
			"D05.SI":       bars(map[string]float64{"2026-01-05": 135, "2026-01-06": 135}),
			"USDSGD.FOREX": bars(map[string]float64{"2026-01-05": 1.35, "2026-01-06": 1.25}),
		},
		currencies: map[string]string{"D05.SI": "SGD"},
	}
	svc := newTestService(client, nil, date("2026-01-06").Add(12*time.Hour))

	result, err := svc.Compute(context.Background(), []models.Lot{lot("a", "D05.SI", 10, 1000, "2026-01-05")}, "u1", nil)
	require.NoError(t, err)
	assert.InDelta(t, (1.35/1.25-1)*100, *result.TotalTWR, 1e-9)
}

func TestCompute_SpotRateWithoutFXHistory(t *testing.T) {
	client := &mockEODHD{
		history:    map[string][]models.EODBar{"D05.SI": bars(map[string]float64{"2026-01-05": 135, "2026-01-06": 148.5})},
		currencies: map[string]string{"D05.SI": "SGD"},
	}
	svc := newTestService(client, nil, date("2026-01-06").Add(12*time.Hour))
	svc.fx = fixedFX{"SGD": 1.35}

	result, err := svc.Compute(context.Background(), []models.Lot{lot("a", "D05.SI", 10, 1000, "2026-01-05")}, "u1", nil)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, *result.TotalTWR, 1e-9)
}

func TestCompute_UnconvertibleHistoryHoldsCost(t *testing.T) {
	client := &mockEODHD{
		history:    map[string][]models.EODBar{"D05.SI": bars(map[string]float64{"2026-01-05": 135, "2026-01-06": 150})},
		currencies: map[string]string{"D05.SI": "SGD"},
	}
	svc := newTestService(client, nil, date("2026-01-06").Add(12*time.Hour))

	result, err := svc.Compute(context.Background(), []models.Lot{lot("a", "D05.SI", 10, 1000, "2026-01-05")}, "u1", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, *result.TotalTWR, 1e-9)
}
