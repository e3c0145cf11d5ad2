package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// SnapshotOptions controls how a portfolio snapshot is assembled.
type SnapshotOptions struct {
	Currency   string // display currency; empty means the configured default
	IncludeTWR bool
}

// PortfolioService manages named portfolios and computes their snapshots.
type PortfolioService interface {
	ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error)
	GetPortfolio(ctx context.Context, userID, name string) (*models.Portfolio, error)
	CreatePortfolio(ctx context.Context, userID, name string) (*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, userID, name string) error

	AddLot(ctx context.Context, userID, name string, lot models.Lot) (*models.Lot, error)
	UpdateLot(ctx context.Context, userID, name, lotID string, lot models.Lot) (*models.Lot, error)
	DeleteLot(ctx context.Context, userID, name, lotID string) error
	ClearLots(ctx context.Context, userID, name string) error

	// DeletePositionLot removes one lot of a ticker's position. lotID may be
	// empty only when the position holds exactly one lot.
	DeletePositionLot(ctx context.Context, userID, name, ticker, lotID string) error

	Snapshot(ctx context.Context, userID, name string, opts SnapshotOptions) (*models.PortfolioSnapshot, error)
	RenderAllocationChart(snapshot *models.PortfolioSnapshot, kind string) ([]byte, error)
}

// QuoteService resolves engine quotes for tickers. Tickers that cannot be
// fetched are absent from the result.
type QuoteService interface {
	GetQuotes(ctx context.Context, tickers []string) map[string]models.Quote
}

// FXService returns display-currency units per 1 USD. It never fails; USD is 1.
type FXService interface {
	Rate(ctx context.Context, currency string) float64
}

// TWRService computes time-weighted returns for a set of lots.
type TWRService interface {
	Compute(ctx context.Context, lots []models.Lot, userID string, comparisonTickers []string) (*models.TWRDataset, error)
}

// AnalysisService produces an AI-written review of a portfolio.
type AnalysisService interface {
	Analyze(ctx context.Context, userID, name string, refresh bool) (*models.PortfolioAnalysis, error)
}

// SnapshotPublisher emits computed snapshots to downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, userID, portfolio string, snapshot *models.PortfolioSnapshot) error
	Close() error
}

// ReportService renders snapshot reports.
type ReportService interface {
	GenerateReport(ctx context.Context, userID, name string, opts SnapshotOptions, withHTML bool) (*models.PortfolioReport, error)
}
