package analytics

import (
	"math"
	"sort"

	"github.com/bobmcallan/folio/internal/models"
)

// ApplyTWR replaces simple returns with time-weighted returns wherever the
// dataset has a figure. Entries are matched by ticker key; a nil dataset or a
// nil TotalTWR leaves the simple figures in place.
func ApplyTWR(positions []models.Position, snapshot *models.PortfolioSnapshot, dataset *models.TWRDataset) {
	if dataset == nil {
		return
	}

	byKey := normalizeKeys(dataset.Tickers)
	for i := range positions {
		v, ok := byKey[TickerKey(positions[i].Ticker)]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		positions[i].Performance = v
		positions[i].PerformanceSource = models.PerformanceTWR
	}

	if snapshot != nil && dataset.TotalTWR != nil {
		total := *dataset.TotalTWR
		if !math.IsNaN(total) && !math.IsInf(total, 0) {
			snapshot.TotalPerformance = total
			snapshot.IsTotalTWR = true
		}
	}
}

// normalizeKeys re-keys a ticker map by TickerKey. When two keys collide the
// one already in canonical form wins, otherwise the lexically last.
func normalizeKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	if len(in) == 0 {
		return out
	}

	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if nk := TickerKey(k); nk != k {
			out[nk] = in[k]
		}
	}
	for _, k := range keys {
		if TickerKey(k) == k {
			out[k] = in[k]
		}
	}
	return out
}
