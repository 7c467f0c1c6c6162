// Command autotrader runs an AI-driven cryptocurrency trading bot. Every
// cycle it asks an interactive decision agent for a trade recommendation,
// then places a market order on OKX or simulates it.
//
// Usage:
//
//	autotrader [flags] [query...]
//	autotrader --config config.yaml
//
// Required environment variables for live trading:
//
//	OKX_API_KEY, OKX_API_SECRET, OKX_API_PASSPHRASE
//
// Without credentials the bot runs in simulation mode.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/temazzz/autotrader/config"
	"github.com/temazzz/autotrader/internal"
	"github.com/temazzz/autotrader/internal/clients"
	"github.com/temazzz/autotrader/internal/services/advisor"
	"github.com/temazzz/autotrader/internal/services/executor"
	"github.com/temazzz/autotrader/internal/storage/journal"
)

func main() {
	// A missing .env is fine, credentials may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	if cfg.Query == "" && isInteractive() {
		query, err := promptQuery()
		if err == nil && query != "" {
			cfg.Query = query
		}
	}
	if cfg.Query == "" {
		cfg.Query = config.DefaultQuery
	}

	simulate := cfg.Simulate
	if !cfg.Credentials.Complete() {
		if !simulate {
			logger.Warn("OKX credentials are not set, forcing simulation mode")
		}
		simulate = true
	}

	okx := clients.NewOKXClient(cfg.Credentials, cfg.Demo, logger)
	agent := advisor.New(cfg.AgentPath, logger)
	exec := executor.New(okx, logger)

	store, err := journal.NewWALStore(cfg.JournalDir)
	if err != nil {
		logger.Fatal("failed to open cycle journal", zap.Error(err))
	}
	defer store.Close()

	bot, err := internal.NewTradingBot(agent, exec, store, cfg.Query, cfg.Interval, simulate, logger)
	if err != nil {
		logger.Fatal("failed to create trading bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("trading bot stopped", zap.Error(err))
	}

	fmt.Println(internal.RenderFinalStatistics(bot.Statistics()))
}

func newLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	return logger
}

// promptQuery asks for the trading query when none was supplied on the
// command line.
func promptQuery() (string, error) {
	var query string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading query").
				Description("What should the decision agent be asked every cycle?").
				Placeholder(config.DefaultQuery).
				Value(&query),
		),
	).Run()
	if err != nil {
		return "", err
	}

	return query, nil
}

func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
