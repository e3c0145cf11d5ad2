package app

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// startRateScheduler re-reads FX rates on a fixed interval. The FX service
// only goes to the provider for entries past their TTL.
func startRateScheduler(ctx context.Context, fxService interfaces.FXService, currencies []string, logger *common.Logger, interval time.Duration) {
	if len(currencies) == 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Rate scheduler: stopped")
			return
		case <-ticker.C:
			refreshRates(ctx, fxService, currencies, logger)
		}
	}
}

func refreshRates(ctx context.Context, fxService interfaces.FXService, currencies []string, logger *common.Logger) {
	start := time.Now()
	for _, code := range currencies {
		if ctx.Err() != nil {
			return
		}
		fxService.Rate(ctx, code)
	}

	logger.Debug().
		Int("currencies", len(currencies)).
		Dur("elapsed", time.Since(start)).
		Msg("Rate refresh: complete")
}
