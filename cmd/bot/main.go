// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-bot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-bot/internal/bot"
	"github.com/rovshanmuradov/pumpfun-bot/internal/config"
	"github.com/rovshanmuradov/pumpfun-bot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-bot/internal/utils/logger"
	"github.com/rovshanmuradov/pumpfun-bot/internal/wallet"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), bot.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return bot.ExitFailure
	}

	cmd, err := bot.ParseCommand(flag.Args(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, bot.Usage)
		return bot.ExitFailure
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return bot.ExitFailure
	}
	defer log.Sync()

	ctx, cancel := bot.SignalContext(context.Background(), log.Logger)
	defer cancel()

	client := solbc.NewClient(cfg.RPCURL, log.Logger)
	accounts := pumpfun.NewChainAccounts(client, log.Logger)

	var trader bot.Trader
	if cmd.GetType() != "quote" {
		if err := cfg.RequirePrivateKey(); err != nil {
			log.LogError("Wallet is not configured", err)
			return bot.ExitFailure
		}
		w, err := wallet.NewWallet(cfg.PrivateKey)
		if err != nil {
			log.LogError("Failed to load wallet", err)
			return bot.ExitFailure
		}
		trader = pumpfun.NewTrader(accounts, client, w, cfg.TraderConfig(),
			log.WithTrade(cmd.GetType(), flag.Arg(1), w.PublicKey.String()))
	}

	end := log.TrackPerformance(cmd.GetType())
	res, err := bot.NewRunner(trader, accounts, os.Stdout, log.Logger).Run(ctx, cmd)
	end()

	code := bot.ExitCode(res, err)
	if res != nil {
		log.WithTransaction(res.Signature.String()).Info("Trade finished",
			zap.String("side", res.Side.String()),
			zap.String("outcome", res.Outcome.String()))
	}
	switch {
	case code == bot.ExitIndeterminate:
		log.WithTransaction(res.Signature.String()).Warn(
			"Transaction outcome is unknown, check the signature before retrying", zap.Error(err))
	case err != nil && errors.Is(err, context.Canceled):
		log.Warn("Interrupted", zap.Error(err))
	case err != nil:
		log.LogError("Command failed", err, zap.String("command", cmd.GetType()))
	}
	return code
}
