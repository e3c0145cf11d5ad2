// Package report renders portfolio snapshots as markdown and HTML reports.
package report

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Service implements ReportService
type Service struct {
	portfolios interfaces.PortfolioService
	logger     *common.Logger
	now        func() time.Time
}

// NewService creates a new report service
func NewService(portfolios interfaces.PortfolioService, logger *common.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		logger:     logger,
		now:        time.Now,
	}
}

// GenerateReport snapshots the named portfolio and renders it.
func (s *Service) GenerateReport(ctx context.Context, userID, name string, opts interfaces.SnapshotOptions, withHTML bool) (*models.PortfolioReport, error) {
	snap, err := s.portfolios.Snapshot(ctx, userID, name, opts)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	report := &models.PortfolioReport{
		Portfolio:   name,
		GeneratedAt: at,
		Markdown:    FormatSnapshot(name, snap, at),
		Snapshot:    snap,
	}

	if withHTML {
		html, err := RenderHTML(report.Markdown)
		if err != nil {
			return nil, err
		}
		report.HTML = html
	}

	s.logger.Debug().Str("portfolio", name).Int("bytes", len(report.Markdown)).Msg("Report generated")
	return report, nil
}

var _ interfaces.ReportService = (*Service)(nil)
