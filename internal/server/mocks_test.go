package server

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// --- Storage ---

type memoryStorage struct {
	internal *memoryInternalStore
	user     *memoryUserStore
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		internal: &memoryInternalStore{kv: make(map[string]string)},
		user:     &memoryUserStore{records: make(map[string]*models.UserRecord)},
	}
}

func (m *memoryStorage) InternalStore() interfaces.InternalStore { return m.internal }
func (m *memoryStorage) UserDataStore() interfaces.UserDataStore { return m.user }
func (m *memoryStorage) Close() error                            { return nil }

type memoryInternalStore struct {
	mu sync.Mutex
	kv map[string]string
}

func (s *memoryInternalStore) GetSystemKV(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.kv[key]; ok {
		return v, nil
	}
	return "", models.ErrNotFound
}

func (s *memoryInternalStore) SetSystemKV(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

type memoryUserStore struct {
	mu      sync.Mutex
	records map[string]*models.UserRecord
}

func userRecordKey(userID, subject, key string) string {
	return userID + "/" + subject + "/" + key
}

func (s *memoryUserStore) Get(_ context.Context, userID, subject, key string) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[userRecordKey(userID, subject, key)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (s *memoryUserStore) Put(_ context.Context, r *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[userRecordKey(r.UserID, r.Subject, r.Key)] = &cp
	return nil
}

func (s *memoryUserStore) Delete(_ context.Context, userID, subject, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userRecordKey(userID, subject, key))
	return nil
}

func (s *memoryUserStore) List(_ context.Context, userID, subject string) ([]*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.UserRecord
	for _, r := range s.records {
		if r.UserID == userID && r.Subject == subject {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// --- Clients ---

type fakeEODHD struct {
	quotes       map[string]*models.RealTimeQuote
	fundamentals map[string]*models.Fundamentals
	history      map[string][]models.EODBar
}

func (f *fakeEODHD) GetRealTimeQuote(_ context.Context, code string) (*models.RealTimeQuote, error) {
	if q, ok := f.quotes[code]; ok {
		return q, nil
	}
	return nil, errors.New("ticker not found")
}

func (f *fakeEODHD) GetEOD(_ context.Context, code string, _ ...interfaces.EODOption) (*models.EODResponse, error) {
	if bars, ok := f.history[code]; ok {
		return &models.EODResponse{Ticker: code, Data: bars}, nil
	}
	return nil, errors.New("no history")
}

func (f *fakeEODHD) GetFundamentals(_ context.Context, code string) (*models.Fundamentals, error) {
	if fd, ok := f.fundamentals[code]; ok {
		return fd, nil
	}
	return nil, errors.New("no fundamentals")
}

type fakeGemini struct {
	prompts []string
}

func (g *fakeGemini) GenerateContent(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return "  **Verdict:** concentrated in technology.  ", nil
}

func (g *fakeGemini) Model() string { return "gemini-test" }

func eodBar(day string, close float64) models.EODBar {
	d, _ := time.Parse("2006-01-02", day)
	return models.EODBar{Date: d, Close: close, AdjClose: close}
}

func newFakeEODHD() *fakeEODHD {
	return &fakeEODHD{
		quotes: map[string]*models.RealTimeQuote{
			"AAPL.US":      {Code: "AAPL.US", Close: 150},
			"KO.US":        {Code: "KO.US", Close: 60},
			"USDSGD.FOREX": {Code: "USDSGD.FOREX", Close: 1.3},
		},
		fundamentals: map[string]*models.Fundamentals{
			"AAPL.US": {Ticker: "AAPL.US", Currency: "USD", Sector: "Technology", Beta: 1.2, Growth5Y: 12, PEGRatio: 2.1, TotalCash: 60, TotalDebt: 100},
			"KO.US":   {Ticker: "KO.US", Currency: "USD", Sector: "Consumer Defensive", Beta: 0.6, Growth5Y: 4, PEGRatio: 3, TotalCash: 10, TotalDebt: 40},
		},
		history: map[string][]models.EODBar{
			"AAPL.US": {eodBar("2024-01-02", 110), eodBar("2024-01-03", 121)},
			"SPY.US":  {eodBar("2024-01-02", 400), eodBar("2024-01-03", 404)},
		},
	}
}

// newTestServer builds the real service graph over in-memory storage and
// fake clients.
func newTestServer(t *testing.T) (*Server, *fakeGemini) {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Auth.JWTSecret = testJWTSecret
	gem := &fakeGemini{}

	a := app.Build(config, common.NewSilentLogger(), newMemoryStorage(), newFakeEODHD(), gem)
	t.Cleanup(a.Close)

	return NewServer(a), gem
}

func newBareTestServer(t *testing.T) *Server {
	t.Helper()
	a := app.Build(common.NewDefaultConfig(), common.NewSilentLogger(), newMemoryStorage(), nil, nil)
	t.Cleanup(a.Close)
	return NewServer(a)
}

const testJWTSecret = "test-secret"

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}
