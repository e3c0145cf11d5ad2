package analytics

import "strings"

// Canonical category labels.
const (
	CategorySpeculative   = "Speculative"
	CategoryGrowth        = "Growth"
	CategoryCore          = "Core"
	CategoryCompounder    = "Compounder"
	CategoryDefensive     = "Defensive"
	CategoryUncategorized = "Uncategorized"
)

// Canonical sector labels that carry their own concentration limit or that
// providers commonly spell differently.
const (
	SectorTechnology      = "Technology"
	SectorFinancials      = "Financials"
	SectorHealthcare      = "Healthcare"
	SectorCommunication   = "Communication Services"
	SectorConsumerDefense = "Consumer Defensive"
	SectorConsumerCyclic  = "Consumer Cyclical"
	SectorBasicMaterials  = "Basic Materials"
	SectorUnknown         = "Unknown"
)

// Keys are lower-cased.
var categoryAliases = map[string]string{
	"speculative":   CategorySpeculative,
	"growth":        CategoryGrowth,
	"core":          CategoryCore,
	"compounder":    CategoryCompounder,
	"compounders":   CategoryCompounder,
	"defensive":     CategoryDefensive,
	"uncategorized": CategoryUncategorized,
}

var sectorAliases = map[string]string{
	"technology":             SectorTechnology,
	"information technology": SectorTechnology,
	"financials":             SectorFinancials,
	"financial services":     SectorFinancials,
	"healthcare":             SectorHealthcare,
	"health care":            SectorHealthcare,
	"communication services": SectorCommunication,
	"consumer defensive":     SectorConsumerDefense,
	"consumer non-cyclical":  SectorConsumerDefense,
	"consumer staples":       SectorConsumerDefense,
	"consumer cyclical":      SectorConsumerCyclic,
	"consumer discretionary": SectorConsumerCyclic,
	"basic materials":        SectorBasicMaterials,
	"materials":              SectorBasicMaterials,
	"unknown":                SectorUnknown,
}

// NormalizeCategory folds a user-entered category onto the closed set.
// Unrecognised or empty labels become Uncategorized.
func NormalizeCategory(category string) string {
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return CategoryUncategorized
}

// NormalizeSector folds provider sector names onto canonical labels. Sectors
// without an alias pass through trimmed; empty becomes Unknown.
func NormalizeSector(sector string) string {
	s := strings.TrimSpace(sector)
	if s == "" {
		return SectorUnknown
	}
	if c, ok := sectorAliases[strings.ToLower(s)]; ok {
		return c
	}
	return s
}

// TickerKey is the grouping key for a ticker: trimmed and upper-cased.
func TickerKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
