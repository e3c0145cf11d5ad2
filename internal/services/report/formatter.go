package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// FormatSnapshot renders a snapshot as a markdown report.
func FormatSnapshot(name string, snap *models.PortfolioSnapshot, at time.Time) string {
	var sb strings.Builder
	cur := snap.Currency

	// Header
	sb.WriteString(fmt.Sprintf("# Portfolio Health: %s\n\n", name))
	sb.WriteString(fmt.Sprintf("**Date:** %s\n", at.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("**Total Value:** %s\n", common.FormatMoney(snap.TotalValue, cur)))
	sb.WriteString(fmt.Sprintf("**Total Cost:** %s\n", common.FormatMoney(snap.TotalCost, cur)))
	perfLabel := "Simple"
	if snap.IsTotalTWR {
		perfLabel = "TWR"
	}
	sb.WriteString(fmt.Sprintf("**Performance (%s):** %s\n", perfLabel, common.FormatSignedPct(snap.TotalPerformance)))
	sb.WriteString(fmt.Sprintf("**Health Score:** %d/100\n\n", snap.HealthScore))

	if snap.IsCriticalRisk {
		sb.WriteString("> **Critical risk:** the portfolio is heavily concentrated or over-allocated to speculative holdings.\n\n")
	}

	// Health criteria
	if len(snap.HealthCriteria) > 0 {
		sb.WriteString("## Health Criteria\n\n")
		sb.WriteString("| Criterion | Value | Points | Status |\n")
		sb.WriteString("|-----------|-------|--------|--------|\n")
		for _, c := range snap.HealthCriteria {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s / %s | %s |\n",
				c.Name, c.Value, formatPoints(c.Points), formatPoints(c.MaxPoints), c.Status))
		}
		sb.WriteString("\n")
	}

	// Risk metrics
	sb.WriteString("## Risk Metrics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| HHI | %.4f |\n", snap.HHI))
	sb.WriteString(fmt.Sprintf("| Weighted Beta | %.2f |\n", snap.WeightedBeta))
	sb.WriteString(fmt.Sprintf("| Weighted 5Y Growth | %s |\n", common.FormatPct(snap.WeightedGrowth)))
	sb.WriteString(fmt.Sprintf("| Weighted PEG | %.2f |\n", snap.WeightedPEG))
	sb.WriteString(fmt.Sprintf("| Weighted Cash/Debt | %.2f |\n\n", snap.WeightedLiquidity))

	// Positions
	if len(snap.Positions) > 0 {
		sb.WriteString("## Positions\n\n")
		sb.WriteString("| Ticker | Category | Sector | Shares | Cost | Value | Weight | Return | Source |\n")
		sb.WriteString("|--------|----------|--------|--------|------|-------|--------|--------|--------|\n")
		for _, p := range snap.Positions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %g | %s | %s | %s | %s | %s |\n",
				p.Ticker, p.Category, p.Sector, p.Shares,
				common.FormatMoney(p.Principal, cur), common.FormatMoney(p.CurrentValue, cur),
				common.FormatPct(p.Weight*100), common.FormatSignedPct(p.Performance), p.PerformanceSource))
		}
		sb.WriteString("\n")
	}

	writeAllocation(&sb, "Category Allocation", KindCategory, snap.CategoryData, snap.TotalValue, cur)
	writeAllocation(&sb, "Sector Allocation", KindSector, snap.SectorData, snap.TotalValue, cur)

	return sb.String()
}

func writeAllocation(sb *strings.Builder, title, kind string, slices []models.AllocationSlice, total float64, cur string) {
	if len(slices) == 0 || total <= 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	sb.WriteString("| Name | Value | Weight | Target | Status |\n")
	sb.WriteString("|------|-------|--------|--------|--------|\n")
	for _, s := range slices {
		pct := s.Value / total * 100
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			s.Name, common.FormatMoney(s.Value, cur), common.FormatPct(pct),
			targetLabel(kind, s.Name), statusBadge(AllocationStatus(kind, s.Name, pct))))
	}
	sb.WriteString("\n")
}

func targetLabel(kind, name string) string {
	switch kind {
	case KindCategory:
		if b, ok := analytics.CategoryTarget(name); ok {
			return fmt.Sprintf("%.0f-%.0f%%", b.Min, b.Max)
		}
		return "-"
	case KindSector:
		return fmt.Sprintf("≤ %.0f%%", analytics.SectorLimit(name))
	}
	return "-"
}

func formatPoints(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%.1f", p)
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a markdown report to HTML, tables included.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render report HTML: %w", err)
	}
	return buf.String(), nil
}
