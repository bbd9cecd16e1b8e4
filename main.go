package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smc-trading-bot/config"
	"smc-trading-bot/internal/analysis"
	"smc-trading-bot/internal/api"
	"smc-trading-bot/internal/bot"
	"smc-trading-bot/internal/database"
	"smc-trading-bot/internal/events"
	"smc-trading-bot/internal/logging"
	"smc-trading-bot/internal/market"
	"smc-trading-bot/internal/orders"
	"smc-trading-bot/internal/scanner"
	sig "smc-trading-bot/internal/signal"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().
		Strs("symbols", cfg.TradingConfig.Symbols).
		Bool("dry_run", cfg.TradingConfig.DryRun).
		Msg("SMC trading bot starting")

	ctx := context.Background()

	// Database is optional; the bot runs without persistence when disabled.
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(cfg.DatabaseConfig, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		repo = database.NewRepository(db)
	}

	// Redis keeps pending orders across restarts when enabled.
	var store orders.Store
	if cfg.RedisConfig.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer client.Close()
		store = orders.NewRedisStore(client)
	}

	bus := events.NewEventBus()

	imbalances := analysis.NewImbalanceDetector(cfg.SMCConfig.MinGapSize)
	structure := analysis.NewStructureAnalyzer(cfg.SMCConfig.SwingLookback)
	zones := analysis.NewZoneDetector()
	liquidity := analysis.NewLiquidityAnalyzer(cfg.SMCConfig.SweepThreshold)
	mtf := analysis.NewMultiTimeframeAnalyzer(imbalances, structure, zones, liquidity, cfg.SMCConfig.ConfluenceConfidence, logger)
	generator := sig.NewGenerator(cfg.SMCConfig, mtf, logger)

	gateway := orders.NewLoggingGateway(logger)
	tracker := orders.NewTracker(gateway, store,
		cfg.OrdersConfig.MaxPendingPerSymbol,
		time.Duration(cfg.OrdersConfig.ExpiryHours)*time.Hour,
		logger)

	var scan *scanner.Scanner
	if cfg.ScannerConfig.Enabled {
		scan = scanner.New(cfg.ScannerConfig, logger)
	}

	feed := market.NewSimFeed()

	tradingBot := bot.New(cfg, feed, mtf, generator, tracker, gateway, scan, repo, bus, logger)
	if err := tradingBot.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("bot start failed")
	}

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(cfg.ServerConfig, repo, bus, tradingBot, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Fatal().Err(err).Msg("HTTP server failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutdown requested")

	tradingBot.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}

	logger.Info().Msg("shutdown complete")
}
