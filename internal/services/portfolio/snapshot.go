package portfolio

import (
	"context"
	"strings"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Snapshot values a stored portfolio. Quotes, the currency rate and TWR
// are gathered first; any of them failing degrades to defaults rather than
// an error. The computed snapshot is published when a publisher is set.
func (s *Service) Snapshot(ctx context.Context, userID, name string, opts interfaces.SnapshotOptions) (*models.PortfolioSnapshot, error) {
	p, err := s.GetPortfolio(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if len(currency) != 3 {
		currency = common.ResolveDisplayCurrency(ctx, s.defaultCurrency)
	}

	quotes := s.quotes.GetQuotes(ctx, lotTickers(p.Lots))
	rate := s.fx.Rate(ctx, currency)

	var dataset *models.TWRDataset
	if opts.IncludeTWR && s.twr != nil && len(p.Lots) > 0 {
		dataset, err = s.twr.Compute(ctx, p.Lots, userID, s.comparisonTickers)
		if err != nil {
			s.logger.Warn().Err(err).Str("portfolio", p.Name).Msg("TWR unavailable, using simple returns")
			dataset = nil
		}
	}

	snapshot := analytics.Analyze(analytics.Input{
		Lots:   p.Lots,
		Quotes: quotes,
		Rate:   rate,
		TWR:    dataset,
	})
	snapshot.Currency = currency
	snapshot.Rate = rate
	snapshot.TWR = dataset

	s.logger.Info().
		Str("user_id", userID).
		Str("portfolio", p.Name).
		Int("positions", len(snapshot.Positions)).
		Int("health_score", snapshot.HealthScore).
		Bool("critical", snapshot.IsCriticalRisk).
		Msg("Snapshot computed")

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(ctx, userID, p.Name, snapshot); err != nil {
			s.logger.Warn().Err(err).Str("portfolio", p.Name).Msg("Snapshot publish failed")
		}
	}

	return snapshot, nil
}

// lotTickers returns the distinct ticker keys of lots in first-seen order.
func lotTickers(lots []models.Lot) []string {
	seen := make(map[string]bool, len(lots))
	var tickers []string
	for _, lot := range lots {
		key := analytics.TickerKey(lot.Ticker)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		tickers = append(tickers, key)
	}
	return tickers
}
