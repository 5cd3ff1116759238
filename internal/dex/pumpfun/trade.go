// =============================
// File: internal/dex/pumpfun/trade.go
// =============================
package pumpfun

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfun-bot/internal/blockchain"
	"github.com/rovshanmuradov/pumpfun-bot/internal/wallet"
	"go.uber.org/zap"
)

// Trader prepares, submits and confirms buys and sells. It holds no per-trade
// state and is safe for concurrent use.
type Trader struct {
	accounts  AccountReader
	transport Transport
	wallet    *wallet.Wallet
	config    TraderConfig
	logger    *zap.Logger
}

// NewTrader creates a Trader. Zero-valued config fields take their defaults.
func NewTrader(accounts AccountReader, transport Transport, w *wallet.Wallet, cfg TraderConfig, logger *zap.Logger) *Trader {
	return &Trader{
		accounts:  accounts,
		transport: transport,
		wallet:    w,
		config:    cfg.withDefaults(),
		logger:    logger.Named("pumpfun-trader"),
	}
}

// PrepareBuy builds the instruction list for buying mint with solIn SOL.
func (t *Trader) PrepareBuy(ctx context.Context, mint solana.PublicKey, solIn, slippage float64) (*Plan, error) {
	coin, err := t.accounts.GetCoinState(ctx, mint)
	if err != nil {
		return nil, err
	}

	instructions := t.computeBudgetInstructions()

	// ATA создаётся только если у кошелька ещё нет токен-аккаунта
	tokenAccount, err := t.accounts.GetAssociatedTokenAccount(ctx, t.wallet.PublicKey, mint)
	switch {
	case errors.Is(err, ErrTokenAccountNotFound):
		if tokenAccount, err = t.wallet.GetATA(mint); err != nil {
			return nil, fmt.Errorf("derive token account: %w", err)
		}
		instructions = append(instructions, t.wallet.CreateAssociatedTokenAccountInstruction(mint))
	case err != nil:
		return nil, err
	}

	swap, err := BuildBuyInstruction(BuyParams{
		Coin:         coin,
		User:         t.wallet.PublicKey,
		TokenAccount: tokenAccount,
		SolIn:        solIn,
		Slippage:     slippage,
	})
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, swap)
	t.logSwapData(swap)

	t.logger.Info("Prepared buy",
		zap.String("token_mint", mint.String()),
		zap.Float64("sol_in", solIn),
		zap.Float64("slippage", slippage),
		zap.Uint64("token_amount", swap.Amounts.TokenAmountRaw),
		zap.Uint64("max_sol_cost", swap.Amounts.SolBoundRaw))

	return &Plan{Side: SideBuy, Mint: mint, Amounts: swap.Amounts, Instructions: instructions}, nil
}

// PrepareSell builds the instruction list for selling percentage of the wallet's mint balance.
// Selling 100 percent also closes the token account.
func (t *Trader) PrepareSell(ctx context.Context, mint solana.PublicKey, percentage, slippage float64) (*Plan, error) {
	coin, err := t.accounts.GetCoinState(ctx, mint)
	if err != nil {
		return nil, err
	}

	tokenAccount, err := t.accounts.GetAssociatedTokenAccount(ctx, t.wallet.PublicKey, mint)
	if err != nil {
		return nil, err
	}
	balance, err := t.accounts.GetTokenBalance(ctx, t.wallet.PublicKey, mint)
	if err != nil {
		return nil, err
	}
	if !(balance > 0) {
		return nil, fmt.Errorf("%w: %s", ErrNoTokenBalance, mint)
	}

	swap, err := BuildSellInstruction(SellParams{
		Coin:         coin,
		User:         t.wallet.PublicKey,
		TokenAccount: tokenAccount,
		TokenBalance: balance,
		Percentage:   percentage,
		Slippage:     slippage,
	})
	if err != nil {
		return nil, err
	}

	instructions := append(t.computeBudgetInstructions(), swap)
	t.logSwapData(swap)
	// закрываем тот же аккаунт, который списывает swap
	if percentage == 100 {
		instructions = append(instructions, token.NewCloseAccountInstruction(
			tokenAccount,
			t.wallet.PublicKey,
			t.wallet.PublicKey,
			[]solana.PublicKey{},
		).Build())
	}

	t.logger.Info("Prepared sell",
		zap.String("token_mint", mint.String()),
		zap.Float64("balance", balance),
		zap.Float64("percentage", percentage),
		zap.Float64("slippage", slippage),
		zap.Uint64("token_amount", swap.Amounts.TokenAmountRaw),
		zap.Uint64("min_sol_output", swap.Amounts.SolBoundRaw))

	return &Plan{Side: SideSell, Mint: mint, Amounts: swap.Amounts, Instructions: instructions}, nil
}

// Buy prepares, submits and confirms a buy.
func (t *Trader) Buy(ctx context.Context, mint solana.PublicKey, solIn, slippage float64) (*TradeResult, error) {
	plan, err := t.PrepareBuy(ctx, mint, solIn, slippage)
	if err != nil {
		return nil, err
	}
	return t.Execute(ctx, plan)
}

// Sell prepares, submits and confirms a sell.
func (t *Trader) Sell(ctx context.Context, mint solana.PublicKey, percentage, slippage float64) (*TradeResult, error) {
	plan, err := t.PrepareSell(ctx, mint, percentage, slippage)
	if err != nil {
		return nil, err
	}
	return t.Execute(ctx, plan)
}

// Execute signs and submits plan, then polls for confirmation. Submission is
// never retried; a failure is returned wrapped in ErrTransportFailure.
func (t *Trader) Execute(ctx context.Context, plan *Plan) (*TradeResult, error) {
	sig, err := t.submit(ctx, plan.Instructions)
	if err != nil {
		return nil, err
	}

	outcome, err := t.Confirm(ctx, sig)
	result := &TradeResult{
		Signature: sig,
		Outcome:   outcome,
		Side:      plan.Side,
		Mint:      plan.Mint,
		Amounts:   plan.Amounts,
	}
	if err != nil {
		return result, err
	}

	switch outcome {
	case OutcomeConfirmed:
		t.logger.Info("✅ Transaction confirmed", zap.String("signature", sig.String()), zap.Stringer("side", plan.Side))
	case OutcomeFailed:
		t.logger.Warn("Transaction failed on chain", zap.String("signature", sig.String()), zap.Stringer("side", plan.Side))
	default:
		t.logger.Warn("Transaction confirmation timed out", zap.String("signature", sig.String()), zap.Stringer("side", plan.Side))
	}
	return result, nil
}

// logSwapData декодирует собранные данные swap для отладки
func (t *Trader) logSwapData(swap *Swap) {
	data, err := swap.Data()
	if err != nil {
		return
	}
	side, amounts, err := DecodeSwapData(data)
	if err != nil {
		t.logger.Debug("Undecodable swap data", zap.Error(err))
		return
	}
	accounts := swap.Accounts()
	t.logger.Debug("Swap instruction",
		zap.String("side", side.String()),
		zap.String("token_account", accounts[5].PublicKey.String()),
		zap.Uint64("token_amount", amounts.TokenAmountRaw),
		zap.Uint64("sol_bound", amounts.SolBoundRaw))
}

func (t *Trader) computeBudgetInstructions() []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(t.config.ComputeUnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(t.config.ComputeUnitPrice).Build(),
	}
}

// submit создает, подписывает и отправляет транзакцию.
func (t *Trader) submit(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	// 1) blockhash
	blockhash, err := t.transport.GetRecentBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: get recent blockhash: %w", ErrTransportFailure, err)
	}

	// 2) сборка транзакции
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(t.wallet.PublicKey))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("create transaction: %w", err)
	}

	// 3) подпись
	if err := t.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	// 4) отправка
	sig, err := t.transport.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       t.config.SkipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: send transaction: %w", ErrTransportFailure, err)
	}
	t.logger.Info("📤 Transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}
