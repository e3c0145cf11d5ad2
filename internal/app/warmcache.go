package app

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/fx"
)

// rateCurrencies lists the display currency plus every currency the FX
// service has a fallback for, built-in or configured, USD excluded.
func rateCurrencies(config *common.Config) []string {
	seen := map[string]bool{fx.BaseCurrency: true}
	var out []string

	add := func(code string) {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, code)
	}

	add(config.DisplayCurrency)
	extra := make([]string, 0, len(fx.DefaultFallbacks)+len(config.Clients.FX.Fallbacks))
	for code := range fx.DefaultFallbacks {
		extra = append(extra, code)
	}
	for code := range config.Clients.FX.Fallbacks {
		extra = append(extra, strings.ToUpper(strings.TrimSpace(code)))
	}
	sort.Strings(extra)
	for _, code := range extra {
		add(code)
	}
	return out
}

// warmRates pre-fetches FX rates on startup so the first snapshot in a
// non-USD currency does not wait on the provider.
func warmRates(ctx context.Context, fxService interfaces.FXService, currencies []string, logger *common.Logger) {
	if os.Getenv("FOLIO_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via FOLIO_WARM_CACHE=off")
		return
	}

	if len(currencies) == 0 {
		logger.Info().Msg("Warm cache: no non-USD currencies configured, skipping")
		return
	}

	start := time.Now()
	for _, code := range currencies {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("Warm cache: cancelled")
			return
		}
		rate := fxService.Rate(ctx, code)
		logger.Debug().Str("currency", code).Float64("rate", rate).Msg("Warm cache: rate loaded")
	}

	logger.Info().
		Int("currencies", len(currencies)).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
