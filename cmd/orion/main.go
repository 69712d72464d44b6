// Command orion runs the cross-venue binary-market arbitrage engine:
// it polls both venues, matches equivalent events, sizes and risk-gates
// opportunities, and — when enabled — executes and journals them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/config"
	"github.com/alejandrodnm/orion-arb/internal/adapters/notify"
	"github.com/alejandrodnm/orion-arb/internal/adapters/secrets"
	"github.com/alejandrodnm/orion-arb/internal/adapters/storage"
	"github.com/alejandrodnm/orion-arb/internal/adapters/venuea"
	"github.com/alejandrodnm/orion-arb/internal/adapters/venueb"
	"github.com/alejandrodnm/orion-arb/internal/application/breaker"
	"github.com/alejandrodnm/orion-arb/internal/application/capital"
	"github.com/alejandrodnm/orion-arb/internal/application/detector"
	"github.com/alejandrodnm/orion-arb/internal/application/engine"
	"github.com/alejandrodnm/orion-arb/internal/application/executor"
	"github.com/alejandrodnm/orion-arb/internal/application/matcher"
	"github.com/alejandrodnm/orion-arb/internal/application/risk"
	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	autoExecute := flag.String("auto-execute", "", "true|false, overrides config trading.auto_execute")
	dryRun := flag.Bool("dry-run", false, "force paper mode regardless of config")
	threshold := flag.Float64("threshold", 0, "override trading.threshold_spread")
	logLevel := flag.String("log-level", "", "DEBUG|INFO|WARNING|ERROR, overrides config")
	testAlerts := flag.Bool("test-alerts", false, "send a test message to every configured channel and exit")
	initDB := flag.Bool("init-db", false, "create the journal schema and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *threshold > 0 {
		cfg.Trading.ThresholdSpread = *threshold
	}
	log := setupLogger(cfg.Log)

	mode := domain.ModeLive
	if *dryRun || !cfg.Trading.AutoExecute {
		mode = domain.ModePaper
	}
	autoExec := cfg.Trading.AutoExecute
	if *autoExecute != "" {
		autoExec = *autoExecute == "true"
	}
	if *dryRun {
		mode = domain.ModePaper
		autoExec = false
	}

	journal, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		log.Error("failed to open journal", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer journal.Close()

	if *initDB {
		log.Info("journal schema initialized", "dsn", cfg.Storage.DSN)
		return
	}

	store, err := secrets.NewStore(os.Getenv("MASTER_PASSWORD"))
	if err != nil {
		log.Error("failed to init secrets store", "err", err)
		os.Exit(1)
	}

	notifier, err := buildNotifier(store, cfg)
	if err != nil {
		log.Error("failed to build notifier", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *testAlerts {
		if err := notifier.Test(ctx); err != nil {
			log.Error("alert test failed", "err", err)
			os.Exit(1)
		}
		log.Info("alert test sent to every configured channel")
		return
	}

	venueAClient, venueBClient, err := buildVenueClients(store, cfg)
	if err != nil {
		log.Error("failed to init venue clients", "err", err)
		os.Exit(1)
	}

	ev := matcher.New(0.85, 1)
	riskAnalyzer := risk.New()
	det := detector.New(detector.Config{
		ThresholdSpread:      cfg.Trading.ThresholdSpread,
		MinTradeSizeUSD:      cfg.Trading.MinTradeSizeUSD,
		MaxTradeSizePct:      cfg.Trading.MaxTradeSizePct,
		TargetLiquidityDepth: cfg.Trading.TargetLiquidity,
		FeeAPct:              cfg.Fees.VenueAFeePct,
		FeeBPct:              cfg.Fees.VenueBFeePct,
		BlockchainCostUSD:    cfg.Fees.BlockchainCostUSD,
		MaxDaysToResolution:  cfg.Capital.MaxDaysToResolution,
		HighReturnThreshold:  cfg.Capital.HighReturnThreshold,
	}, riskAnalyzer)

	bankroll := decimal.NewFromFloat(cfg.Capital.InitialBankroll)
	initialA := bankroll.Mul(decimal.NewFromFloat(cfg.Capital.VenueAAllocationPct))
	initialB := bankroll.Mul(decimal.NewFromFloat(cfg.Capital.VenueBAllocationPct))
	capitalMgr := capital.New(capital.Config{
		ReservePct:          cfg.Capital.ReservePct,
		RebalanceThreshold:  cfg.Capital.RebalanceThreshold,
		MaxOpenPositions:    cfg.Risk.MaxOpenPositions,
		MaxExposurePerEvent: cfg.Risk.MaxExposurePerEvent,
		MaxDailyLossPct:     cfg.Risk.MaxDailyLossPct,
	}, initialA, initialB)

	circuitBreaker := breaker.New(breaker.Config{
		MaxDailyLossPct: cfg.Risk.MaxDailyLossPct,
		MaxDrawdownPct:  cfg.Risk.MaxDrawdownPct,
		ResetHourUTC:    cfg.Risk.ResetHourUTC,
	}, bankroll)

	exec := executor.New(venueAClient, venueBClient, mode, cfg.Trading.SlippageTolerance, log)

	eng := engine.New(
		engine.Config{
			PollInterval:        cfg.PollInterval(),
			MarketLimit:         100,
			AutoExecute:         autoExec,
			MaxConcurrentTrades: 5,
			ResetHourUTC:        cfg.Risk.ResetHourUTC,
		},
		venueAClient, venueBClient,
		ev, det, capitalMgr, circuitBreaker, exec, journal, notifier,
		mode, log,
	)

	log.Info("orion starting", "mode", mode, "auto_execute", autoExec, "config", *configPath)
	if err := eng.Run(ctx); err != nil {
		log.Error("engine exited with error", "err", err)
		os.Exit(1)
	}
	log.Info("orion stopped cleanly")
}

func buildVenueClients(store *secrets.Store, cfg *config.Config) (ports.VenueClient, ports.VenueClient, error) {
	apiKey, privateKeyPEM, err := store.VenueACredentials()
	if err != nil {
		return nil, nil, fmt.Errorf("venue A credentials: %w", err)
	}
	venueAClient, err := venuea.New(cfg.API.VenueABaseURL, apiKey, privateKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("venue A client: %w", err)
	}

	privateKeyHex, err := store.VenueBCredentials()
	if err != nil {
		return nil, nil, fmt.Errorf("venue B credentials: %w", err)
	}
	venueBClient, err := venueb.New(cfg.API.VenueBClobBase, cfg.API.VenueBGammaBase, privateKeyHex, cfg.API.VenueBRPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("venue B client: %w", err)
	}

	return venueAClient, venueBClient, nil
}

func buildNotifier(store *secrets.Store, cfg *config.Config) (ports.Notifier, error) {
	var channels []ports.Notifier
	for _, ch := range cfg.Monitoring.AlertChannels {
		switch ch {
		case "console":
			channels = append(channels, notify.NewConsole(true))
		case "telegram":
			token, chatID, ok := store.TelegramCredentials()
			if !ok {
				slog.Warn("telegram channel configured but credentials missing, skipping")
				continue
			}
			tg, err := notify.NewTelegram(token, chatID, cfg.Monitoring.AlertThresholdSpread, cfg.Monitoring.AlertMinOpportunityUSD)
			if err != nil {
				return nil, fmt.Errorf("telegram notifier: %w", err)
			}
			channels = append(channels, tg)
		default:
			slog.Warn("unknown alert channel, skipping", "channel", ch)
		}
	}
	if len(channels) == 0 {
		channels = append(channels, notify.NewConsole(true))
	}
	return notify.NewMulti(channels...), nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug", "DEBUG":
		level = slog.LevelDebug
	case "warn", "WARNING":
		level = slog.LevelWarn
	case "error", "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
