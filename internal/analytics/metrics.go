package analytics

import (
	"math"

	"github.com/bobmcallan/folio/internal/models"
)

// Fallbacks used when no position contributes to a weighted average.
const (
	DefaultBeta      = 1.0
	DefaultGrowth    = 0.0
	DefaultPEG       = 0.0
	DefaultLiquidity = 2.0 // cash/debt ratio assumed when a company reports no debt
)

// Metrics holds portfolio-level concentration and weighted averages.
type Metrics struct {
	TotalValue        float64
	HHI               float64
	WeightedBeta      float64
	WeightedGrowth    float64
	WeightedPEG       float64
	WeightedLiquidity float64
}

type weightedMean struct {
	sum, weight float64
}

func (m *weightedMean) add(w, v float64) {
	m.sum += w * v
	m.weight += w
}

func (m weightedMean) value(fallback float64) float64 {
	if m.weight <= 0 {
		return fallback
	}
	return finite(m.sum / m.weight)
}

// ComputeMetrics derives HHI and the weighted averages from positions. Only
// positions with a positive weight contribute. Beta and liquidity are
// averaged over every such position; growth and PEG only over positions
// reporting a strictly positive figure.
func ComputeMetrics(positions []models.Position) Metrics {
	total := SumValue(positions)
	m := Metrics{
		TotalValue:        total,
		WeightedBeta:      DefaultBeta,
		WeightedGrowth:    DefaultGrowth,
		WeightedPEG:       DefaultPEG,
		WeightedLiquidity: DefaultLiquidity,
	}
	if total <= 0 {
		return m
	}

	var beta, growth, peg, liquidity weightedMean
	for _, p := range positions {
		w := p.CurrentValue / total
		if w <= 0 {
			continue
		}
		m.HHI += w * w

		b := p.Beta
		if b == 0 {
			b = DefaultBeta
		}
		beta.add(w, b)

		if p.Growth > 0 {
			growth.add(w, p.Growth)
		}
		if p.PEGRatio > 0 {
			peg.add(w, p.PEGRatio)
		}
		liquidity.add(w, liquidityRatio(p.TotalCash, p.TotalDebt))
	}

	m.HHI = math.Min(math.Max(m.HHI, 0), 1)
	m.WeightedBeta = beta.value(DefaultBeta)
	m.WeightedGrowth = growth.value(DefaultGrowth)
	m.WeightedPEG = peg.value(DefaultPEG)
	m.WeightedLiquidity = liquidity.value(DefaultLiquidity)
	return m
}

func liquidityRatio(cash, debt float64) float64 {
	if debt > 0 {
		return cash / debt
	}
	return DefaultLiquidity
}
