package analysis

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/models"
)

// MajorSectors is the opportunity set used to suggest underweight sectors.
var MajorSectors = []string{
	"Technology",
	"Healthcare",
	"Financial Services",
	"Consumer Cyclical",
	"Consumer Defensive",
	"Industrials",
	"Communication Services",
	"Energy",
	"Utilities",
	"Real Estate",
	"Basic Materials",
}

const maxUnderweight = 4

// UnderweightSectors returns up to four major sectors the snapshot holds
// no value in, in MajorSectors order.
func UnderweightSectors(snapshot *models.PortfolioSnapshot) []string {
	held := make(map[string]bool, len(snapshot.SectorData))
	for _, s := range snapshot.SectorData {
		if s.Value > 0 {
			held[analytics.NormalizeSector(s.Name)] = true
		}
	}

	var missing []string
	for _, s := range MajorSectors {
		if held[analytics.NormalizeSector(s)] {
			continue
		}
		missing = append(missing, s)
		if len(missing) == maxUnderweight {
			break
		}
	}
	return missing
}

// BuildPrompt renders the portfolio manager prompt for a snapshot.
func BuildPrompt(snapshot *models.PortfolioSnapshot) string {
	var sb strings.Builder

	underweight := strings.Join(UnderweightSectors(snapshot), ", ")
	if underweight == "" {
		underweight = "None"
	}

	performance := "N/A"
	if snapshot.IsTotalTWR {
		performance = fmt.Sprintf("%.2f", snapshot.TotalPerformance)
	}

	sb.WriteString("You are a Senior Quantitative Portfolio Manager and Fiduciary Strategist.\n\n")
	sb.WriteString("MANDATE:\n")
	sb.WriteString("Optimize this portfolio for a 12-15% annual return (or higher) while minimizing downside volatility and concentration risk.\n\n")

	sb.WriteString("PORTFOLIO DATA CORE (Inward):\n")
	for _, p := range snapshot.Positions {
		sb.WriteString(holdingLine(p))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "- Weighted Portfolio Beta: %.2f\n", snapshot.WeightedBeta)
	fmt.Fprintf(&sb, "- Aggregate 5Y Growth Est: %.1f%%\n", snapshot.WeightedGrowth)
	fmt.Fprintf(&sb, "- Weighted PEG Ratio: %.2f\n", snapshot.WeightedPEG)
	fmt.Fprintf(&sb, "- Portfolio TWR (Performance to Date): %s%%\n", performance)
	fmt.Fprintf(&sb, "- Sector Allocation: %s\n", sectorAllocation(snapshot))
	fmt.Fprintf(&sb, "- Portfolio HHI (Concentration Index): %.0f\n", snapshot.HHI*10000)
	fmt.Fprintf(&sb, "- Health Score: %d/100\n\n", snapshot.HealthScore)

	sb.WriteString("OUTWARD LOOK (The Opportunity Set):\n")
	sb.WriteString("- Benchmark: S&P 500 (Beta 1.0)\n")
	fmt.Fprintf(&sb, "- Underweight Sectors: %s\n", underweight)
	sb.WriteString("- Risk-Free Rate Proxy (10Y Treasury): ~4.2%\n")
	sb.WriteString("- Target Return: 12-15% CAGR\n\n")

	sb.WriteString("ANALYSIS REQUIREMENTS (Clinical & Data-Driven):\n")
	sb.WriteString("1. **Allocation & Concentration Audit**: Evaluate the sector allocation and HHI. Below 1500 validates diversification; above 1500 (moderate) or 2500 (high) flags concentration risk with specific rebalancing. Check whether 1-2 volatile tickers skew the weighted growth.\n")
	sb.WriteString("2. **Growth-to-Value Efficiency**: Relate expected 5Y growth to the average PEG. Flag growth-at-any-price risk where PEG > 2.0.\n")
	sb.WriteString("3. **Holdings Audit (Inward)**: STAR = best PEG with strong cash-to-debt and >15% growth. LAGGARD = beta > 1.2 or heavy debt.\n")
	fmt.Fprintf(&sb, "4. **The \"Outward\" Strategy**: Define the selection basis for new entries in %s with high 5Y growth and lower portfolio beta, and list 5 illustrative peer tickers.\n", underweight)
	sb.WriteString("5. **Actionable Rebalancing Roadmap**: Trim/exit calls, tactical entries to close sector gaps, and 3 specific rebalancing moves.\n\n")

	sb.WriteString("FORMAT RULES:\n")
	sb.WriteString("- Use **bold headers** for the 5 sections above.\n")
	sb.WriteString("- Use bullet points for all details.\n")
	sb.WriteString("- **NO concluding summary** or generic advice after section 5.\n")
	sb.WriteString("- Keep it under 350 words.\n")

	return sb.String()
}

func holdingLine(p models.Position) string {
	peg := "N/A"
	if p.PEGRatio > 0 {
		peg = fmt.Sprintf("%.2f", p.PEGRatio)
	}
	growth := "N/A"
	if p.Growth > 0 {
		growth = fmt.Sprintf("%.1f%%", p.Growth)
	}
	cashToDebt := "N/A"
	switch {
	case p.TotalDebt > 0:
		cashToDebt = fmt.Sprintf("%.2f", p.TotalCash/p.TotalDebt)
	case p.TotalCash > 0:
		cashToDebt = "High (Net Cash)"
	}

	return fmt.Sprintf("- %s: %g shares. (Category: %s, Sector: %s, Weight: %.1f%%, Return: %.1f%% %s, PEG: %s, Beta: %.2f, 5Y Growth Est: %s, Cash/Debt: %s)",
		p.Ticker, p.Shares, p.Category, p.Sector, p.Weight*100, p.Performance, p.PerformanceSource, peg, p.Beta, growth, cashToDebt)
}

func sectorAllocation(snapshot *models.PortfolioSnapshot) string {
	if snapshot.TotalValue <= 0 || len(snapshot.SectorData) == 0 {
		return "N/A"
	}
	parts := make([]string, 0, len(snapshot.SectorData))
	for _, s := range snapshot.SectorData {
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", s.Name, s.Value/snapshot.TotalValue*100))
	}
	return strings.Join(parts, ", ")
}
