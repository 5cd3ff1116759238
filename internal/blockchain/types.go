// internal/blockchain/types.go
package blockchain

import (
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// TransactionStatus is the cluster's view of a submitted signature.
type TransactionStatus struct {
	// Confirmed is set once the transaction reached confirmed or finalized commitment.
	Confirmed bool
	// Err is the on-chain execution error, nil on success.
	Err interface{}
}

// Failed reports whether a confirmed transaction errored during execution.
func (s *TransactionStatus) Failed() bool {
	return s != nil && s.Confirmed && s.Err != nil
}
