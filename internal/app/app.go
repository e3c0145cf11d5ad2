// Package app wires configuration, storage, clients and services into the
// shared core used by cmd/folio-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/clients/gemini"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/events"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/analysis"
	"github.com/bobmcallan/folio/internal/services/fx"
	"github.com/bobmcallan/folio/internal/services/portfolio"
	"github.com/bobmcallan/folio/internal/services/quote"
	"github.com/bobmcallan/folio/internal/services/report"
	"github.com/bobmcallan/folio/internal/services/twr"
	"github.com/bobmcallan/folio/internal/storage/surrealdb"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	EODHDClient      interfaces.EODHDClient
	GeminiClient     interfaces.GeminiClient
	FXService        interfaces.FXService
	QuoteService     interfaces.QuoteService
	TWRService       interfaces.TWRService
	PortfolioService interfaces.PortfolioService
	AnalysisService  interfaces.AnalysisService
	ReportService    interfaces.ReportService
	Publisher        interfaces.SnapshotPublisher
	StartupTime      time.Time

	schedulerCancel context.CancelFunc
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, FOLIO_CONFIG, the binary
// directory, then config/folio.toml.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml"
		}
	}
	return configPath
}

// NewApp loads configuration, connects storage and the API clients, and
// builds every service. configPath may be empty.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	config, err := common.LoadConfig(resolveConfigPath(configPath, binDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	ctx := context.Background()
	storageManager, err := surrealdb.NewManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	internal := storageManager.InternalStore()

	// Interface-typed so an absent client stays a true nil.
	var eodhdClient interfaces.EODHDClient
	eodhdKey, err := common.ResolveAPIKey(ctx, internal, "eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil {
		logger.Warn().Msg("EODHD API key not configured - quotes, FX and TWR will use defaults")
	} else {
		eodhdClient = eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	}

	var geminiClient interfaces.GeminiClient
	geminiKey, err := common.ResolveAPIKey(ctx, internal, "gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - AI analysis will be unavailable")
	} else {
		c, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			geminiClient = c
		}
	}

	a := Build(config, logger, storageManager, eodhdClient, geminiClient)
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Build wires services over already-constructed storage and clients. Either
// client may be nil.
func Build(config *common.Config, logger *common.Logger, storage interfaces.StorageManager, eodhdClient interfaces.EODHDClient, geminiClient interfaces.GeminiClient) *App {
	userStore := storage.UserDataStore()
	suffix := config.Clients.EODHD.ExchangeSuffix

	fxService := fx.NewService(eodhdClient, config.Clients.FX, logger)
	quoteService := quote.NewService(eodhdClient, fxService, suffix, config.Analytics.QuoteConcurrency, logger)

	var twrService interfaces.TWRService
	if eodhdClient != nil {
		twrService = twr.NewService(eodhdClient, fxService, userStore, suffix, config.Analytics.TWRCache, logger)
	}

	publisher := events.NewPublisher(config.Events, logger)

	portfolioService := portfolio.NewService(userStore, quoteService, fxService, twrService, publisher, config, logger)
	analysisService := analysis.NewService(portfolioService, geminiClient, userStore, config.Analytics.GetAnalysisCacheTTL(), logger)
	reportService := report.NewService(portfolioService, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		Storage:          storage,
		EODHDClient:      eodhdClient,
		GeminiClient:     geminiClient,
		FXService:        fxService,
		QuoteService:     quoteService,
		TWRService:       twrService,
		PortfolioService: portfolioService,
		AnalysisService:  analysisService,
		ReportService:    reportService,
		Publisher:        publisher,
		StartupTime:      time.Now(),
	}
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, cancel warm cache, close publisher, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close snapshot publisher")
		}
		a.Publisher = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// StartWarmCache launches the background FX warm-up goroutine.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmRates(warmCtx, a.FXService, rateCurrencies(a.Config), a.Logger)
	}()
}

// StartRateScheduler refreshes FX rates once per cache TTL.
func (a *App) StartRateScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startRateScheduler(schedulerCtx, a.FXService, rateCurrencies(a.Config), a.Logger, a.Config.Clients.FX.GetCacheTTL())
}
