package analytics

import (
	"fmt"

	"github.com/bobmcallan/folio/internal/models"
)

// SingleLotID returns the only lot id of a one-lot position.
func SingleLotID(p models.Position) (string, bool) {
	if len(p.LotIDs) != 1 {
		return "", false
	}
	return p.LotIDs[0], true
}

// ResolveLotID picks the lot an edit or delete against a position should
// touch. An explicit lotID must belong to the position. An empty lotID is
// only accepted for a one-lot position.
func ResolveLotID(p models.Position, lotID string) (string, error) {
	if lotID == "" {
		if id, ok := SingleLotID(p); ok {
			return id, nil
		}
		return "", fmt.Errorf("%w: %s holds %d lots, a lot id is required", models.ErrAmbiguousLot, p.Ticker, len(p.LotIDs))
	}
	for _, id := range p.LotIDs {
		if id == lotID {
			return id, nil
		}
	}
	return "", fmt.Errorf("lot %s in position %s: %w", lotID, p.Ticker, models.ErrNotFound)
}

// FindPosition returns the position for a ticker, matched by TickerKey.
func FindPosition(positions []models.Position, ticker string) (models.Position, bool) {
	key := TickerKey(ticker)
	for _, p := range positions {
		if p.Ticker == key {
			return p, true
		}
	}
	return models.Position{}, false
}
