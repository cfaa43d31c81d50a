package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/engine"
	"github.com/helix-quant/cta-trading/internal/engine/engine_v1"
	"github.com/helix-quant/cta-trading/internal/logger"
	"github.com/helix-quant/cta-trading/internal/marketdata"
	"github.com/helix-quant/cta-trading/internal/router"
	"github.com/helix-quant/cta-trading/internal/strategy"
	"github.com/helix-quant/cta-trading/internal/version"
)

// runAction wires the runtime from the config file and blocks until a
// shutdown signal arrives.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := engine.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	var source marketdata.TickSource
	switch sourceFlag := cmd.String("source"); sourceFlag {
	case "binance":
		source = marketdata.NewBinanceSource()
	default:
		return fmt.Errorf("unknown tick source %q", sourceFlag)
	}

	signalRouter := router.NewSignalRouter(config.Execution.BaseURL, zapLogger)

	eng, err := engine_v1.NewCTAEngineV1(*config, strategy.DefaultRegistry(), signalRouter, source, zapLogger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	for _, strategyConfig := range config.Strategies {
		if err := eng.RegisterStrategy(strategyConfig); err != nil {
			return fmt.Errorf("failed to register strategy %s: %w", strategyConfig.Name, err)
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	zapLogger.Info("Runtime up",
		zap.String("config", configPath),
		zap.Int("strategies", len(config.Strategies)),
	)

	<-runCtx.Done()
	zapLogger.Info("Shutdown signal received")

	if err := eng.Stop(); err != nil {
		return fmt.Errorf("failed to stop engine: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "trading",
		Usage:   "Run the strategy execution runtime",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML engine configuration",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "source",
				Aliases:  []string{"s"},
				Usage:    "Tick source to poll (e.g., binance)",
				Value:    "binance",
				Required: false,
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
