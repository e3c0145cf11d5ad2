package report

import (
	"github.com/bobmcallan/folio/internal/analytics"
)

// Status colours an allocation row against its target.
type Status string

const (
	StatusWithin Status = "within"
	StatusUnder  Status = "under"
	StatusOver   Status = "over"
)

// Allocation kinds accepted by AllocationStatus.
const (
	KindCategory = "category"
	KindSector   = "sector"
)

const epsilon = 1e-9

// AllocationStatus grades pct (percent of portfolio value) for a category
// or sector. Categories without a target band and unknown kinds are within.
// Sectors are only ever over or within their limit.
func AllocationStatus(kind, name string, pct float64) Status {
	switch kind {
	case KindCategory:
		band, ok := analytics.CategoryTarget(name)
		if !ok {
			return StatusWithin
		}
		if pct < band.Min-epsilon {
			return StatusUnder
		}
		if pct > band.Max+epsilon {
			return StatusOver
		}
		return StatusWithin
	case KindSector:
		if pct > analytics.SectorLimit(name)+epsilon {
			return StatusOver
		}
		return StatusWithin
	default:
		return StatusWithin
	}
}

func statusBadge(s Status) string {
	switch s {
	case StatusUnder:
		return "▼ under"
	case StatusOver:
		return "▲ over"
	default:
		return "✓ within"
	}
}
