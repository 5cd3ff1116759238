// internal/dex/pumpfun/interfaces.go
package pumpfun

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfun-bot/internal/blockchain"
)

// AccountReader supplies on-chain state for a trade.
type AccountReader interface {
	// GetCoinState returns ErrCoinNotFound when the mint has no bonding curve.
	GetCoinState(ctx context.Context, mint solana.PublicKey) (*CoinState, error)
	// GetTokenBalance returns the whole-unit balance, or ErrTokenAccountNotFound.
	GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (float64, error)
	// GetAssociatedTokenAccount returns an existing token account, or ErrTokenAccountNotFound.
	GetAssociatedTokenAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error)
}

// Transport submits transactions and reports their status.
type Transport interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error)
	// GetTransactionStatus returns nil while the signature is unknown to the cluster.
	GetTransactionStatus(ctx context.Context, sig solana.Signature) (*blockchain.TransactionStatus, error)
}
