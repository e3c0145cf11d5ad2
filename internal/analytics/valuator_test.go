package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/folio/internal/models"
)

func TestValueLot(t *testing.T) {
	lot := models.Lot{ID: "1", Ticker: "AAPL", Shares: 10, TotalCost: 1000, Category: "Compounders"}
	quote := models.Quote{Price: 120, Beta: 1.3, Sector: "Information Technology"}

	vl := ValueLot(lot, quote, 1.35)

	assert.InDelta(t, 1620.0, vl.CurrentValue, 1e-9)
	assert.InDelta(t, 1350.0, vl.Principal, 1e-9)
	assert.InDelta(t, 20.0, vl.Performance, 1e-9)
	assert.Equal(t, CategoryCompounder, vl.Category)
	assert.Equal(t, SectorTechnology, vl.Quote.Sector)
	assert.Equal(t, "Compounders", lot.Category, "input lot must not be modified")
}

func TestValueLot_ZeroPrincipalHasZeroPerformance(t *testing.T) {
	vl := ValueLot(models.Lot{Ticker: "X", Shares: 5}, models.Quote{Price: 10}, 1)
	assert.Equal(t, 50.0, vl.CurrentValue)
	assert.Equal(t, 0.0, vl.Performance)
}

func TestValueLot_InvalidRateTreatedAsOne(t *testing.T) {
	lot := models.Lot{Ticker: "X", Shares: 2, TotalCost: 10}
	for _, rate := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		vl := ValueLot(lot, models.Quote{Price: 10}, rate)
		assert.Equal(t, 20.0, vl.CurrentValue)
		assert.Equal(t, 10.0, vl.Principal)
	}
}

func TestValueLot_NonFiniteInputsCoerceToZero(t *testing.T) {
	lot := models.Lot{Ticker: "X", Shares: models.Number(math.NaN()), TotalCost: models.Number(math.Inf(1))}
	vl := ValueLot(lot, models.Quote{Price: math.NaN(), Beta: math.Inf(-1)}, 1)

	assert.Equal(t, 0.0, vl.CurrentValue)
	assert.Equal(t, 0.0, vl.Principal)
	assert.Equal(t, 0.0, vl.Performance)
	assert.Equal(t, 1.0, vl.Quote.Beta)
	assert.Equal(t, SectorUnknown, vl.Quote.Sector)
}
