// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfun-bot/internal/blockchain"
	"go.uber.org/zap"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", ErrorFields(err)...)
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetTransactionStatus возвращает статус подписи или nil, если кластер её ещё не видел.
func (c *Client) GetTransactionStatus(ctx context.Context, sig solana.Signature) (*blockchain.TransactionStatus, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		c.logger.Debug("GetSignatureStatuses error",
			zap.String("signature", sig.String()),
			zap.Error(err))
		return nil, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}

	st := result.Value[0]
	confirmed := st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		st.ConfirmationStatus == rpc.ConfirmationStatusFinalized
	return &blockchain.TransactionStatus{
		Confirmed: confirmed,
		Err:       st.Err,
	}, nil
}

// GetAccountInfo получает информацию об аккаунте. Отсутствующий аккаунт даёт rpc.ErrNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetTokenAccountsByOwner возвращает токен-аккаунты владельца для указанного mint.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]*rpc.TokenAccount, error) {
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentProcessed,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		c.logger.Debug("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.String("mint", mint.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("empty getTokenAccountsByOwner response")
	}
	return result.Value, nil
}

// GetTokenAccountBalance получает баланс токен-аккаунта.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, commitment)
	if err != nil {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}
