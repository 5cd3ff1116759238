// =============================
// File: internal/dex/pumpfun/types.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// BondingCurve mirrors the on-chain bonding curve account.
type BondingCurve struct {
	Discriminator        [8]byte
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              [32]byte
}

// bondingCurveMinSize covers every field up to and including Creator.
const bondingCurveMinSize = 8 + 5*8 + 1 + 32

// DecodeBondingCurve parses raw account data. Trailing bytes are ignored.
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	if len(data) < bondingCurveMinSize {
		return nil, fmt.Errorf("bonding curve data too short: %d bytes", len(data))
	}
	var bc BondingCurve
	if err := borsh.Deserialize(&bc, data[:bondingCurveMinSize]); err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
	}
	return &bc, nil
}

// CoinState is a snapshot of a token's bonding curve, fetched fresh for every trade.
type CoinState struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Creator                solana.PublicKey

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// NewCoinState combines derived addresses with the decoded account.
func NewCoinState(mint, bondingCurve, associatedBondingCurve solana.PublicKey, bc *BondingCurve) *CoinState {
	return &CoinState{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedBondingCurve,
		Creator:                solana.PublicKeyFromBytes(bc.Creator[:]),
		VirtualSolReserves:     bc.VirtualSolReserves,
		VirtualTokenReserves:   bc.VirtualTokenReserves,
		RealTokenReserves:      bc.RealTokenReserves,
		RealSolReserves:        bc.RealSolReserves,
		TokenTotalSupply:       bc.TokenTotalSupply,
		Complete:               bc.Complete,
	}
}

// Side of a swap.
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// TradeAmounts are the two integers encoded into a swap instruction.
// SolBoundRaw is the max SOL cost on buy and the min SOL output on sell.
type TradeAmounts struct {
	TokenAmountRaw uint64
	SolBoundRaw    uint64
}

// Swap is a ready buy or sell instruction together with the amounts it carries.
type Swap struct {
	solana.Instruction
	Side    Side
	Amounts TradeAmounts
}

// BuyParams describe a purchase of tokens for solIn whole SOL.
type BuyParams struct {
	Coin *CoinState
	User solana.PublicKey
	// TokenAccount receives the tokens; zero means the user's derived ATA
	TokenAccount solana.PublicKey
	SolIn        float64
	Slippage     float64 // percent
}

// SellParams describe selling Percentage of a whole-unit token balance.
type SellParams struct {
	Coin *CoinState
	User solana.PublicKey
	// TokenAccount is debited; zero means the user's derived ATA
	TokenAccount solana.PublicKey
	TokenBalance float64
	Percentage   float64
	Slippage     float64 // percent
}

// Outcome of polling a submitted transaction.
type Outcome int

const (
	OutcomeIndeterminate Outcome = iota
	OutcomeConfirmed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	default:
		return "indeterminate"
	}
}

// Plan is the full ordered instruction list for one trade.
type Plan struct {
	Side         Side
	Mint         solana.PublicKey
	Amounts      TradeAmounts
	Instructions []solana.Instruction
}

// TradeResult is returned by Trader.Buy and Trader.Sell.
type TradeResult struct {
	Signature solana.Signature
	Outcome   Outcome
	Side      Side
	Mint      solana.PublicKey
	Amounts   TradeAmounts
}
