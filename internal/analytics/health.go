package analytics

import (
	"fmt"
	"math"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// Criterion names, in scoring order.
const (
	CriterionConcentration = "HHI Concentration"
	CriterionCategory      = "Category Allocation"
	CriterionBeta          = "Portfolio Beta"
	CriterionSector        = "Sector Allocation"
	CriterionGrowth        = "Est. 5Y Growth"
	CriterionPEG           = "PEG Ratio"
	CriterionLiquidity     = "Liquidity (Cash/Debt)"
)

// Risk thresholds that flag a portfolio as critical.
const (
	CriticalHHI         = 0.15
	CriticalSpeculative = 15.0
)

// Health is the graded result of ScoreHealth.
type Health struct {
	Score          int
	Criteria       []models.Criterion
	IsCriticalRisk bool
}

// ScoreHealth grades a portfolio on seven criteria worth 100 points. An
// empty portfolio (totalValue <= 0) scores 100 with no criteria; that is a
// placeholder, not a grade.
func ScoreHealth(totalValue float64, m Metrics, a Allocation) Health {
	if !(totalValue > 0) {
		return Health{Score: 100, Criteria: []models.Criterion{}}
	}

	specPct := a.CategoryPercent(CategorySpeculative)

	criteria := []models.Criterion{
		scoreConcentration(m.HHI),
		scoreCategories(a, specPct),
		scoreBeta(m.WeightedBeta),
		scoreSectors(a),
		scoreGrowth(m.WeightedGrowth),
		scorePEG(m.WeightedPEG),
		scoreLiquidity(m.WeightedLiquidity),
	}

	var sum float64
	for _, c := range criteria {
		sum += c.Points
	}
	score := int(math.Round(sum))
	score = max(0, min(100, score))

	return Health{
		Score:          score,
		Criteria:       criteria,
		IsCriticalRisk: m.HHI > CriticalHHI || specPct > CriticalSpeculative,
	}
}

func criterion(name string, points, maxPoints float64, value, detail string) models.Criterion {
	points = math.Min(math.Max(points, 0), maxPoints)

	status := models.StatusWarning
	switch {
	case points >= maxPoints:
		status = models.StatusPass
	case points <= 0:
		status = models.StatusFail
	}

	return models.Criterion{
		Name:      name,
		Points:    points,
		MaxPoints: maxPoints,
		Status:    status,
		Value:     value,
		Detail:    detail,
	}
}

func scoreConcentration(hhi float64) models.Criterion {
	var pts float64
	switch {
	case hhi < 0.10:
		pts = 15
	case hhi <= 0.15:
		pts = 7
	}
	return criterion(CriterionConcentration, pts, 15, fmt.Sprintf("%.3f", hhi), "target below 0.10")
}

func scoreCategories(a Allocation, specPct float64) models.Criterion {
	var notes []string

	speculative := 10.0
	if specPct > 10+epsilon {
		steps := math.Ceil((specPct-10)/2 - epsilon)
		speculative = math.Max(0, 10-steps*5)
		notes = append(notes, fmt.Sprintf("Speculative %.1f%% over 10%%", specPct))
	}
	pts := speculative

	for _, name := range []string{CategoryGrowth, CategoryCore, CategoryCompounder, CategoryDefensive} {
		pct := a.CategoryPercent(name)
		band := CategoryTargets[name]
		if band.Contains(pct) {
			pts += 5
		} else {
			notes = append(notes, fmt.Sprintf("%s %.1f%% outside %g-%g%%", name, pct, band.Min, band.Max))
		}
	}

	// non-empty portfolio
	pts += 5

	return criterion(CriterionCategory, pts, 35, fmt.Sprintf("Speculative %.1f%%", specPct), strings.Join(notes, "; "))
}

func scoreBeta(beta float64) models.Criterion {
	var pts float64
	switch {
	case beta >= 0.8 && beta <= 1.2:
		pts = 10
	case beta >= 0.7 && beta <= 1.3:
		pts = 3
	}
	return criterion(CriterionBeta, pts, 10, fmt.Sprintf("%.2f", beta), "target 0.8-1.2")
}

func scoreSectors(a Allocation) models.Criterion {
	var breaches []string
	for _, s := range a.Sectors {
		pct := a.SectorPercent(s.Name)
		limit := SectorLimit(s.Name)
		if pct > limit+epsilon {
			breaches = append(breaches, fmt.Sprintf("%s %.1f%% > %g%%", s.Name, pct, limit))
		}
	}

	pts := 10 - 2*float64(len(breaches))
	return criterion(CriterionSector, pts, 10, fmt.Sprintf("%d over limit", len(breaches)), strings.Join(breaches, "; "))
}

func scoreGrowth(growth float64) models.Criterion {
	var pts float64
	switch {
	case growth > 10:
		pts = 10
	case growth >= 7:
		pts = 5
	}
	return criterion(CriterionGrowth, pts, 10, fmt.Sprintf("%.1f%%", growth), "target above 10%")
}

func scorePEG(peg float64) models.Criterion {
	var pts float64
	switch {
	case peg < 1.5:
		pts = 10
	case peg <= 2.0:
		pts = 5
	}
	return criterion(CriterionPEG, pts, 10, fmt.Sprintf("%.2f", peg), "target below 1.5")
}

func scoreLiquidity(ratio float64) models.Criterion {
	var pts float64
	switch {
	case ratio > 0.8:
		pts = 10
	case ratio >= 0.4:
		pts = 5
	}
	return criterion(CriterionLiquidity, pts, 10, fmt.Sprintf("%.2f", ratio), "target above 0.8")
}
