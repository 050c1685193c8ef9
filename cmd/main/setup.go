package main

import (
	"time"

	"market-dashboard/src/config"
	"market-dashboard/src/configstore"
	"market-dashboard/src/dashboard"
	datasource "market-dashboard/src/data_source"
	"market-dashboard/src/data_source/finnhub"
	"market-dashboard/src/data_source/openmeteo"
	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"
	"market-dashboard/src/music"
	"market-dashboard/src/network"
	"market-dashboard/src/storage"
	"market-dashboard/src/utils"

	"github.com/jonboulle/clockwork"
)

// providers groups the upstream clients built at startup.
type providers struct {
	Music *music.Client
}

// -----------------------------------------------------------------------------

// setupDatabase opens the snapshot history store; nil when disabled.
func setupDatabase(cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(cfg, appLogger.Named("Storage"))
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	if db == nil {
		appLogger.Info("Snapshot history disabled")
		return nil, nil
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupCalendar builds the market calendar and refresh scheduler.
func setupCalendar(cfg *models.MConfig) (*utils.MarketScheduler, error) {
	open, err := config.ParseClock(cfg.Market.Open)
	if err != nil {
		return nil, err
	}
	closing, err := config.ParseClock(cfg.Market.Close)
	if err != nil {
		return nil, err
	}

	cal, err := utils.NewTradingCalendar(cfg.Market.Timezone, open, closing)
	if err != nil {
		return nil, err
	}
	if cfg.Market.HolidayCalendar != "" {
		if err := cal.WithHolidays(cfg.Market.HolidayCalendar); err != nil {
			return nil, err
		}
	}
	return utils.NewMarketScheduler(cal, time.Duration(cfg.Market.ClosedRefreshSeconds)*time.Second), nil
}

// -----------------------------------------------------------------------------

// setupDashboard wires providers, data layer and the dashboard context.
func setupDashboard(cfg *models.MConfig, db interfaces.IDatabase, clock clockwork.Clock, appLogger *logger.Logger) (*dashboard.Dashboard, providers, error) {
	scheduler, err := setupCalendar(cfg)
	if err != nil {
		return nil, providers{}, err
	}

	// One network manager, and so one breaker, per provider.
	quotesNet := network.NewAsyncNetworkManager(cfg, finnhub.ProviderName, appLogger.Named("Network.finnhub"))
	weatherNet := network.NewAsyncNetworkManager(cfg, openmeteo.ProviderName, appLogger.Named("Network.openmeteo"))
	musicNet := network.NewAsyncNetworkManager(cfg, music.ProviderName, appLogger.Named("Network.spotify"))

	quotes := finnhub.NewSource(cfg, quotesNet, appLogger.Named("Finnhub"), clock)
	weather := openmeteo.NewSource(cfg, weatherNet, appLogger.Named("OpenMeteo"))
	if cfg.Providers.FinnhubAPIKey == "" {
		appLogger.Warning("FINNHUB_API_KEY is not set, stock quotes are disabled")
	}

	source := datasource.NewDashboardSource(quotes, weather, scheduler, clock, appLogger.Named("DashboardSource"))
	source.History = db

	store := configstore.NewStore(cfg.Dashboard.ConfigFile, appLogger.Named("ConfigStore"))
	dash := dashboard.New(cfg, store, source, clock, appLogger.Named("Dashboard"))
	dash.History = db

	musicClient := music.NewClient(cfg, musicNet, appLogger.Named("Music"))
	dash.Providers = []dashboard.ProviderProbe{
		{Name: finnhub.ProviderName, Configured: cfg.Providers.FinnhubAPIKey != "", Breaker: quotesNet},
		{Name: openmeteo.ProviderName, Configured: true, Breaker: weatherNet},
		{Name: music.ProviderName, Configured: musicClient.Configured(), Breaker: musicNet},
	}

	return dash, providers{Music: musicClient}, nil
}
