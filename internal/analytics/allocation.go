package analytics

import (
	"sort"

	"github.com/bobmcallan/folio/internal/models"
)

// Band is an inclusive target range in percent of portfolio value.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether pct lies inside the band.
func (b Band) Contains(pct float64) bool {
	return pct >= b.Min-epsilon && pct <= b.Max+epsilon
}

// CategoryTargets are the target bands per category.
var CategoryTargets = map[string]Band{
	CategorySpeculative: {Min: 0, Max: 10},
	CategoryGrowth:      {Min: 30, Max: 40},
	CategoryCore:        {Min: 20, Max: 30},
	CategoryCompounder:  {Min: 20, Max: 25},
	CategoryDefensive:   {Min: 15, Max: 20},
}

// SectorLimits are the maximum weights per sector; sectors not listed use
// DefaultSectorLimit.
var SectorLimits = map[string]float64{
	SectorTechnology:      30,
	SectorFinancials:      25,
	SectorHealthcare:      20,
	SectorCommunication:   20,
	SectorConsumerDefense: 20,
}

// DefaultSectorLimit applies to any sector without its own limit.
const DefaultSectorLimit = 15.0

// tolerance for percentage comparisons
const epsilon = 1e-9

// CategoryTarget returns the band for a category label (aliases accepted).
func CategoryTarget(category string) (Band, bool) {
	b, ok := CategoryTargets[NormalizeCategory(category)]
	return b, ok
}

// SectorLimit returns the maximum percent for a sector label (aliases accepted).
func SectorLimit(sector string) float64 {
	if l, ok := SectorLimits[NormalizeSector(sector)]; ok {
		return l
	}
	return DefaultSectorLimit
}

// Allocation is the category and sector breakdown of a portfolio.
type Allocation struct {
	TotalValue float64
	Categories []models.AllocationSlice
	Sectors    []models.AllocationSlice
}

// CategoryPercent returns the share of value in a category, in percent.
func (a Allocation) CategoryPercent(category string) float64 {
	return a.percent(a.Categories, NormalizeCategory(category))
}

// SectorPercent returns the share of value in a sector, in percent.
func (a Allocation) SectorPercent(sector string) float64 {
	return a.percent(a.Sectors, NormalizeSector(sector))
}

func (a Allocation) percent(slices []models.AllocationSlice, name string) float64 {
	if a.TotalValue <= 0 {
		return 0
	}
	for _, s := range slices {
		if s.Name == name {
			return s.Value / a.TotalValue * 100
		}
	}
	return 0
}

// ClassifyAllocation sums position values per category and per sector.
// Slices are ordered by value descending, then name.
func ClassifyAllocation(positions []models.Position) Allocation {
	categories := make(map[string]float64)
	sectors := make(map[string]float64)

	for _, p := range positions {
		categories[NormalizeCategory(p.Category)] += p.CurrentValue
		sectors[NormalizeSector(p.Sector)] += p.CurrentValue
	}

	return Allocation{
		TotalValue: SumValue(positions),
		Categories: toSlices(categories),
		Sectors:    toSlices(sectors),
	}
}

func toSlices(values map[string]float64) []models.AllocationSlice {
	out := make([]models.AllocationSlice, 0, len(values))
	for name, v := range values {
		out = append(out, models.AllocationSlice{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}
