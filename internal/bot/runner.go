// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-bot/internal/dex/pumpfun"
)

// Exit codes of the bot command.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitIndeterminate = 2
)

// Trader is the part of pumpfun.Trader the runner drives.
type Trader interface {
	Buy(ctx context.Context, mint solana.PublicKey, solIn, slippage float64) (*pumpfun.TradeResult, error)
	Sell(ctx context.Context, mint solana.PublicKey, percentage, slippage float64) (*pumpfun.TradeResult, error)
}

// Quote is the expected result of buying SolIn SOL at the current curve state.
type Quote struct {
	Mint      solana.PublicKey
	SolIn     float64
	Tokens    float64
	SpotPrice float64 // SOL per token
	Complete  bool
}

type Runner struct {
	logger   *zap.Logger
	trader   Trader
	accounts pumpfun.AccountReader
	out      io.Writer
}

// NewRunner creates a Runner. trader may be nil when only quotes are needed.
func NewRunner(trader Trader, accounts pumpfun.AccountReader, out io.Writer, logger *zap.Logger) *Runner {
	return &Runner{
		logger:   logger.Named("runner"),
		trader:   trader,
		accounts: accounts,
		out:      out,
	}
}

// Run executes cmd and reports to out. The returned result is nil for quotes.
func (r *Runner) Run(ctx context.Context, cmd TradingCommand) (*pumpfun.TradeResult, error) {
	r.logger.Info("Running command", zap.String("command", cmd.GetType()))

	switch c := cmd.(type) {
	case QuoteCommand:
		q, err := r.Quote(ctx, c)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(r.out, "mint=%s sol_in=%g expected_tokens=%.6f spot_price=%.12f complete=%t\n",
			q.Mint, q.SolIn, q.Tokens, q.SpotPrice, q.Complete)
		return nil, nil
	case BuyCommand:
		if r.trader == nil {
			return nil, errors.New("trading requires a wallet")
		}
		res, err := r.trader.Buy(ctx, c.Mint, c.SolIn, c.Slippage)
		r.report(res)
		return res, err
	case SellCommand:
		if r.trader == nil {
			return nil, errors.New("trading requires a wallet")
		}
		res, err := r.trader.Sell(ctx, c.Mint, c.Percentage, c.Slippage)
		r.report(res)
		return res, err
	default:
		return nil, fmt.Errorf("unsupported command %q", cmd.GetType())
	}
}

// Quote prices a buy against the live curve without submitting anything.
func (r *Runner) Quote(ctx context.Context, cmd QuoteCommand) (*Quote, error) {
	coin, err := r.accounts.GetCoinState(ctx, cmd.Mint)
	if err != nil {
		return nil, err
	}
	vSol, vToken := pumpfun.ScaledReserves(coin)

	tokens, err := pumpfun.TokensForSol(cmd.SolIn, vSol, vToken)
	if err != nil {
		return nil, err
	}
	price, err := pumpfun.SpotPrice(vSol, vToken)
	if err != nil {
		return nil, err
	}
	if coin.Complete {
		r.logger.Warn("Bonding curve is complete, trading is closed", zap.String("mint", cmd.Mint.String()))
	}
	return &Quote{Mint: cmd.Mint, SolIn: cmd.SolIn, Tokens: tokens, SpotPrice: price, Complete: coin.Complete}, nil
}

func (r *Runner) report(res *pumpfun.TradeResult) {
	if res == nil {
		return
	}
	fmt.Fprintf(r.out, "side=%s mint=%s signature=%s outcome=%s token_amount=%d sol_bound=%d\n",
		res.Side, res.Mint, res.Signature, res.Outcome, res.Amounts.TokenAmountRaw, res.Amounts.SolBoundRaw)
}

// ExitCode maps a run result to the process exit code. A transaction that was
// sent but never observed is indeterminate even when polling was interrupted.
func ExitCode(res *pumpfun.TradeResult, err error) int {
	if res != nil && res.Outcome == pumpfun.OutcomeIndeterminate {
		return ExitIndeterminate
	}
	if err != nil {
		return ExitFailure
	}
	if res != nil && res.Outcome != pumpfun.OutcomeConfirmed {
		return ExitFailure
	}
	return ExitOK
}
