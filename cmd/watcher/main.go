// ====================================
// File: cmd/watcher/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-bot/internal/bot"
	"github.com/rovshanmuradov/pumpfun-bot/internal/config"
	"github.com/rovshanmuradov/pumpfun-bot/internal/eventlistener"
	"github.com/rovshanmuradov/pumpfun-bot/internal/export"
	"github.com/rovshanmuradov/pumpfun-bot/internal/utils/logger"
	"github.com/rovshanmuradov/pumpfun-bot/internal/utils/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: watcher [-config path] [wallet...]\nmore wallets are read from stdin, one per line; \"exit\" stops")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, cancel := bot.SignalContext(context.Background(), log.Logger)
	defer cancel()

	wcfg := cfg.WatcherConfig()
	// Понг продлевает дедлайн; два пропущенных пинга = обрыв
	dialer := eventlistener.NewWSDialer(cfg.WebSocketURL, 2*wcfg.PingInterval)
	collector := metrics.NewCollector()
	handlers := []eventlistener.EventHandler{
		collector.EventHandler(),
		eventlistener.LogHandler(log.WithComponent("events")),
	}
	if cfg.EventsFile != "" {
		exporter, err := export.NewEventExporter(cfg.EventsFile, export.FormatFromPath(cfg.EventsFile), log.Logger)
		if err != nil {
			log.LogError("Failed to open events file", err)
			return 1
		}
		defer exporter.Close()
		handlers = append(handlers, exporter.Handle)
	}

	watcher := eventlistener.NewWatcher(dialer, wcfg, eventlistener.Chain(handlers...), log.Logger)
	watcher.OnStateChange(collector.ObserveState)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := collector.Serve(ctx, cfg.MetricsAddr, log.Logger); err != nil {
				log.LogError("Metrics server failed", err)
			}
		}()
	}

	for _, wallet := range flag.Args() {
		if err := watcher.Subscribe(ctx, wallet); err != nil {
			log.LogError("Skipping wallet", err, zap.String("wallet", wallet))
		}
	}

	log.Info("Watching for new tokens", zap.String("endpoint", cfg.WebSocketURL), zap.Int("wallets", len(watcher.Wallets())))
	if err := watcher.Run(ctx, os.Stdin); err != nil {
		log.LogError("Watcher stopped with error", err)
		return 1
	}
	return 0
}
