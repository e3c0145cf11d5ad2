// Package analytics turns lots and market quotes into valued positions,
// concentration metrics, allocation breakdowns and a 0-100 health score.
//
// Every function in this package is pure: no I/O, no logging, no shared
// state. Callers fetch quotes, currency rates and TWR data and pass them in.
package analytics

import (
	"github.com/bobmcallan/folio/internal/models"
)

// Input is everything one engine run needs. Quotes is keyed by ticker (any
// case); missing tickers use models.DefaultQuote. TWR is optional.
type Input struct {
	Lots   []models.Lot
	Quotes map[string]models.Quote
	Rate   float64
	TWR    *models.TWRDataset
}

// Analyze runs the full pipeline and returns a fresh snapshot. It never
// mutates its input and returns identical output for identical input.
func Analyze(in Input) *models.PortfolioSnapshot {
	quotes := normalizeKeys(in.Quotes)

	valued := make([]models.ValuedLot, 0, len(in.Lots))
	for _, lot := range in.Lots {
		q, ok := quotes[TickerKey(lot.Ticker)]
		if !ok {
			q = models.DefaultQuote()
		}
		valued = append(valued, ValueLot(lot, q, in.Rate))
	}

	positions := AggregateByTicker(valued)
	metrics := ComputeMetrics(positions)
	allocation := ClassifyAllocation(positions)
	health := ScoreHealth(metrics.TotalValue, metrics, allocation)

	var totalCost float64
	for _, p := range positions {
		totalCost += p.Principal
	}

	snapshot := &models.PortfolioSnapshot{
		TotalValue:        metrics.TotalValue,
		TotalCost:         totalCost,
		TotalPerformance:  simpleReturn(metrics.TotalValue, totalCost),
		HHI:               metrics.HHI,
		WeightedBeta:      metrics.WeightedBeta,
		WeightedGrowth:    metrics.WeightedGrowth,
		WeightedPEG:       metrics.WeightedPEG,
		WeightedLiquidity: metrics.WeightedLiquidity,
		SectorData:        allocation.Sectors,
		CategoryData:      allocation.Categories,
		HealthScore:       health.Score,
		HealthCriteria:    health.Criteria,
		IsCriticalRisk:    health.IsCriticalRisk,
	}

	ApplyTWR(positions, snapshot, in.TWR)
	snapshot.Positions = positions

	return snapshot
}
