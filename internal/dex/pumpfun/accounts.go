// =============================
// File: internal/dex/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ChainClient is the subset of the RPC client the account reader needs.
type ChainClient interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]*rpc.TokenAccount, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

// ChainAccounts reads bonding curves and token accounts from the cluster.
type ChainAccounts struct {
	client ChainClient
	logger *zap.Logger
}

// NewChainAccounts creates an AccountReader backed by client.
func NewChainAccounts(client ChainClient, logger *zap.Logger) *ChainAccounts {
	return &ChainAccounts{
		client: client,
		logger: logger.Named("pumpfun-accounts"),
	}
}

// GetCoinState derives the bonding curve of mint and decodes its current state.
func (a *ChainAccounts) GetCoinState(ctx context.Context, mint solana.PublicKey) (*CoinState, error) {
	bondingCurve, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	associatedBondingCurve, err := DeriveAssociatedBondingCurve(bondingCurve.Address, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}

	accountInfo, err := a.client.GetAccountInfo(ctx, bondingCurve.Address)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCoinNotFound, mint)
		}
		return nil, fmt.Errorf("%w: failed to get bonding curve account: %w", ErrTransportFailure, err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrCoinNotFound, mint)
	}

	bc, err := DecodeBondingCurve(accountInfo.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}

	state := NewCoinState(mint, bondingCurve.Address, associatedBondingCurve.Address, bc)
	a.logger.Debug("Fetched bonding curve",
		zap.String("token_mint", mint.String()),
		zap.String("bonding_curve", bondingCurve.Address.String()),
		zap.Uint64("virtual_sol_reserves", state.VirtualSolReserves),
		zap.Uint64("virtual_token_reserves", state.VirtualTokenReserves),
		zap.Bool("complete", state.Complete))
	return state, nil
}

// GetAssociatedTokenAccount returns the first token account owner holds for mint.
func (a *ChainAccounts) GetAssociatedTokenAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	accounts, err := a.client.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: failed to get token accounts: %w", ErrTransportFailure, err)
	}
	for _, acc := range accounts {
		if acc != nil {
			return acc.Pubkey, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("%w: owner %s, mint %s", ErrTokenAccountNotFound, owner, mint)
}

// GetTokenBalance returns the whole-unit balance of owner's token account for mint.
func (a *ChainAccounts) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (float64, error) {
	account, err := a.GetAssociatedTokenAccount(ctx, owner, mint)
	if err != nil {
		return 0, err
	}

	result, err := a.client.GetTokenAccountBalance(ctx, account, rpc.CommitmentProcessed)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get token account balance: %w", ErrTransportFailure, err)
	}
	if result == nil || result.Value == nil {
		return 0, fmt.Errorf("%w: empty balance for %s", ErrTokenAccountNotFound, account)
	}

	balance, err := uiAmount(result.Value)
	if err != nil {
		return 0, err
	}

	a.logger.Debug("Got token balance",
		zap.Float64("balance", balance),
		zap.String("token_mint", mint.String()),
		zap.String("token_account", account.String()))
	return balance, nil
}

func uiAmount(v *rpc.UiTokenAmount) (float64, error) {
	if v.UiAmount != nil {
		return *v.UiAmount, nil
	}
	raw, err := strconv.ParseUint(v.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token balance %q: %w", v.Amount, err)
	}
	return float64(raw) / math.Pow10(int(v.Decimals)), nil
}
