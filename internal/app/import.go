package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type importPortfoliosFile struct {
	Portfolios []importPortfolio `json:"portfolios"`
}

type importPortfolio struct {
	Name string       `json:"name"`
	Lots []models.Lot `json:"lots"`
}

// ImportPortfoliosFromFile reads a portfolios JSON file and creates each
// portfolio for userID. Portfolios that already exist are skipped, as are
// individual lots that fail validation.
// Returns (imported count, skipped count, error).
func ImportPortfoliosFromFile(ctx context.Context, portfolios interfaces.PortfolioService, userID, filePath string, logger *common.Logger) (int, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read portfolios file %s: %w", filePath, err)
	}

	var file importPortfoliosFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, 0, fmt.Errorf("failed to parse portfolios file %s: %w", filePath, err)
	}

	imported, skipped := 0, 0
	for _, p := range file.Portfolios {
		if _, err := portfolios.CreatePortfolio(ctx, userID, p.Name); err != nil {
			if !errors.Is(err, models.ErrAlreadyExists) {
				logger.Warn().Err(err).Str("portfolio", p.Name).Msg("Failed to create portfolio during import")
			}
			skipped++
			continue
		}

		lots := 0
		for _, lot := range p.Lots {
			lot.ID = ""
			if _, err := portfolios.AddLot(ctx, userID, p.Name, lot); err != nil {
				logger.Warn().Err(err).Str("portfolio", p.Name).Str("ticker", lot.Ticker).Msg("Skipping lot during import")
				continue
			}
			lots++
		}

		logger.Info().Str("portfolio", p.Name).Int("lots", lots).Msg("Portfolio imported")
		imported++
	}
	return imported, skipped, nil
}
