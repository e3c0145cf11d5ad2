package fx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type mockEODHD struct {
	rates map[string]float64
	err   error
	calls int
}

func (m *mockEODHD) GetRealTimeQuote(_ context.Context, code string) (*models.RealTimeQuote, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rates[code]
	if !ok {
		return nil, errors.New("unknown pair")
	}
	return &models.RealTimeQuote{Code: code, Close: r}, nil
}

func (m *mockEODHD) GetEOD(context.Context, string, ...interfaces.EODOption) (*models.EODResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEODHD) GetFundamentals(context.Context, string) (*models.Fundamentals, error) {
	return nil, errors.New("not implemented")
}

func newTestService(client interfaces.EODHDClient, cfg common.FXConfig) *Service {
	return NewService(client, cfg, common.NewSilentLogger())
}

func TestRate_USDIsOne(t *testing.T) {
	client := &mockEODHD{}
	svc := newTestService(client, common.FXConfig{CacheTTL: "1h"})

	assert.Equal(t, 1.0, svc.Rate(context.Background(), "usd"))
	assert.Equal(t, 1.0, svc.Rate(context.Background(), ""))
	assert.Zero(t, client.calls)
}

func TestRate_LiveRateCached(t *testing.T) {
	client := &mockEODHD{rates: map[string]float64{"USDEUR.FOREX": 0.9}}
	svc := newTestService(client, common.FXConfig{CacheTTL: "1h"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	assert.Equal(t, 0.9, svc.Rate(context.Background(), "eur"))
	assert.Equal(t, 0.9, svc.Rate(context.Background(), "EUR"))
	assert.Equal(t, 1, client.calls)

	now = now.Add(2 * time.Hour)
	client.rates["USDEUR.FOREX"] = 0.95
	assert.Equal(t, 0.95, svc.Rate(context.Background(), "EUR"))
	assert.Equal(t, 2, client.calls)
}

func TestRate_Fallbacks(t *testing.T) {
	client := &mockEODHD{err: errors.New("offline")}
	svc := newTestService(client, common.FXConfig{
		CacheTTL:  "1h",
		Fallbacks: map[string]float64{"aud": 1.52, "EUR": 0.93},
	})

	tests := []struct {
		code string
		want float64
	}{
		{"SGD", 1.35},
		{"GBP", 0.79},
		{"CNY", 7.20},
		{"EUR", 0.93},
		{"AUD", 1.52},
		{"JPY", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Rate(context.Background(), tt.code))
		})
	}
}

func TestRate_StaleCacheBeatsFallback(t *testing.T) {
	client := &mockEODHD{rates: map[string]float64{"USDSGD.FOREX": 1.30}}
	svc := newTestService(client, common.FXConfig{CacheTTL: "1h"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	assert.Equal(t, 1.30, svc.Rate(context.Background(), "SGD"))

	now = now.Add(3 * time.Hour)
	client.err = errors.New("offline")
	assert.Equal(t, 1.30, svc.Rate(context.Background(), "SGD"))
}

func TestRate_NilProvider(t *testing.T) {
	svc := newTestService(nil, common.FXConfig{})
	assert.Equal(t, 0.92, svc.Rate(context.Background(), "EUR"))
}
