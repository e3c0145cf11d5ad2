package models

// Quote is the market data the engine consumes for one ticker. Growth is a
// percentage (12.5 means 12.5%). A zero Beta is read as "not reported".
type Quote struct {
	Price     float64 `json:"price"`
	Beta      float64 `json:"beta"`
	Sector    string  `json:"sector"`
	Growth    float64 `json:"growth"`
	PEGRatio  float64 `json:"peg_ratio"`
	TotalCash float64 `json:"total_cash"`
	TotalDebt float64 `json:"total_debt"`
}

// UnknownSector labels positions without sector data.
const UnknownSector = "Unknown"

// DefaultQuote is the quote used when the provider has nothing for a ticker.
func DefaultQuote() Quote {
	return Quote{Beta: 1, Sector: UnknownSector}
}

// PerformanceSource records which return figure a position or snapshot reports.
type PerformanceSource string

const (
	PerformanceSimple PerformanceSource = "simple"
	PerformanceTWR    PerformanceSource = "TWR"
)

// ValuedLot is a lot priced in the display currency.
type ValuedLot struct {
	Lot
	Quote         Quote   `json:"quote"`
	CurrentValue  float64 `json:"current_value"`
	Principal     float64 `json:"principal"`
	Performance   float64 `json:"performance"`
	WeightPercent float64 `json:"weight_percent"`
}

// Position aggregates every lot of one ticker.
type Position struct {
	Ticker            string            `json:"ticker"`
	Category          string            `json:"category"`
	Sector            string            `json:"sector"`
	Beta              float64           `json:"beta"`
	Growth            float64           `json:"growth"`
	PEGRatio          float64           `json:"peg_ratio"`
	TotalCash         float64           `json:"total_cash"`
	TotalDebt         float64           `json:"total_debt"`
	Shares            float64           `json:"shares"`
	Principal         float64           `json:"principal"`
	CurrentValue      float64           `json:"current_value"`
	Weight            float64           `json:"weight"`
	Performance       float64           `json:"performance"`
	PerformanceSource PerformanceSource `json:"performance_source"`
	LotIDs            []string          `json:"lot_ids"`
	Items             []ValuedLot       `json:"items"`
}

// CriterionStatus grades a single health criterion.
type CriterionStatus string

const (
	StatusPass    CriterionStatus = "Pass"
	StatusWarning CriterionStatus = "Warning"
	StatusFail    CriterionStatus = "Fail"
)

// Criterion is one line of the health score breakdown.
type Criterion struct {
	Name      string          `json:"name"`
	Points    float64         `json:"points"`
	MaxPoints float64         `json:"max_points"`
	Status    CriterionStatus `json:"status"`
	Value     string          `json:"value"`
	Detail    string          `json:"detail,omitempty"`
}

// AllocationSlice is one bucket of a category or sector breakdown.
type AllocationSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PortfolioSnapshot is the full result of one engine run.
type PortfolioSnapshot struct {
	TotalValue        float64           `json:"total_value"`
	TotalCost         float64           `json:"total_cost"`
	TotalPerformance  float64           `json:"total_performance"`
	IsTotalTWR        bool              `json:"is_total_twr"`
	HHI               float64           `json:"hhi"`
	WeightedBeta      float64           `json:"weighted_beta"`
	WeightedGrowth    float64           `json:"weighted_growth"`
	WeightedPEG       float64           `json:"weighted_peg"`
	WeightedLiquidity float64           `json:"weighted_liquidity"`
	SectorData        []AllocationSlice `json:"sector_data"`
	CategoryData      []AllocationSlice `json:"category_data"`
	HealthScore       int               `json:"health_score"`
	HealthCriteria    []Criterion       `json:"health_criteria"`
	IsCriticalRisk    bool              `json:"is_critical_risk"`
	Positions         []Position        `json:"positions"`

	// Set by the portfolio service, never by the engine.
	Currency string      `json:"currency,omitempty"`
	Rate     float64     `json:"rate,omitempty"`
	TWR      *TWRDataset `json:"twr,omitempty"`
}

// TWRPoint is one day of a cumulative return series, in percent.
type TWRPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TWRDataset is the time-weighted return data merged into a snapshot.
// TotalTWR is nil when the provider has no portfolio-level figure.
type TWRDataset struct {
	TotalTWR    *float64              `json:"total_twr"`
	Tickers     map[string]float64    `json:"tickers"`
	ChartData   []TWRPoint            `json:"chart_data,omitempty"`
	Comparisons map[string][]TWRPoint `json:"comparisons,omitempty"`
}
