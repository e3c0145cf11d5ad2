package analytics

import (
	"github.com/bobmcallan/folio/internal/models"
)

// AggregateByTicker folds valued lots into one Position per ticker key, in
// order of first appearance. Descriptive fields take the last non-default
// value seen in the group. Weights and per-lot WeightPercent are relative to
// the whole portfolio.
func AggregateByTicker(valued []models.ValuedLot) []models.Position {
	index := make(map[string]int)
	positions := make([]models.Position, 0)

	for _, vl := range valued {
		key := TickerKey(vl.Ticker)
		i, ok := index[key]
		if !ok {
			i = len(positions)
			index[key] = i
			positions = append(positions, models.Position{
				Ticker:            key,
				Category:          CategoryUncategorized,
				Sector:            SectorUnknown,
				Beta:              1,
				PerformanceSource: models.PerformanceSimple,
				LotIDs:            []string{},
				Items:             []models.ValuedLot{},
			})
		}

		p := &positions[i]
		p.Shares += vl.Shares.Float()
		p.Principal += vl.Principal
		p.CurrentValue += vl.CurrentValue
		p.LotIDs = append(p.LotIDs, vl.ID)
		p.Items = append(p.Items, vl)

		if vl.Category != CategoryUncategorized && vl.Category != "" {
			p.Category = vl.Category
		}
		q := vl.Quote
		if q.Sector != SectorUnknown && q.Sector != "" {
			p.Sector = q.Sector
		}
		if q.Beta != 1 && q.Beta != 0 {
			p.Beta = q.Beta
		}
		if q.Growth != 0 {
			p.Growth = q.Growth
		}
		if q.PEGRatio != 0 {
			p.PEGRatio = q.PEGRatio
		}
		if q.TotalCash != 0 {
			p.TotalCash = q.TotalCash
		}
		if q.TotalDebt != 0 {
			p.TotalDebt = q.TotalDebt
		}
	}

	total := SumValue(positions)

	for i := range positions {
		p := &positions[i]
		p.Performance = simpleReturn(p.CurrentValue, p.Principal)
		if total > 0 {
			p.Weight = p.CurrentValue / total
		}
		for j := range p.Items {
			if total > 0 {
				p.Items[j].WeightPercent = p.Items[j].CurrentValue / total * 100
			} else {
				p.Items[j].WeightPercent = 0
			}
		}
	}

	return positions
}

// SumValue returns the total current value of positions.
func SumValue(positions []models.Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.CurrentValue
	}
	return total
}
