// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor discriminators of the swap instructions
var (
	BuyDiscriminator  = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	SellDiscriminator = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// swapDataSize: discriminator + two u64 arguments
const swapDataSize = 8 + 8 + 8

// BuildBuyInstruction builds a buy for params.SolIn SOL with the given slippage.
func BuildBuyInstruction(params BuyParams) (*Swap, error) {
	if params.Coin == nil {
		return nil, fmt.Errorf("%w: missing coin state", ErrInvalidCurveState)
	}
	if params.Coin.Complete {
		return nil, ErrCurveBonded
	}
	if !(params.SolIn > 0) {
		return nil, fmt.Errorf("%w: sol in must be positive, got %v", ErrInvalidAmount, params.SolIn)
	}
	if err := checkSlippage(params.Slippage); err != nil {
		return nil, err
	}

	virtualSol, virtualToken := ScaledReserves(params.Coin)
	tokensOut, err := TokensForSol(params.SolIn, virtualSol, virtualToken)
	if err != nil {
		return nil, err
	}

	tokenAmount, err := toRaw(tokensOut, TokenUnit)
	if err != nil {
		return nil, fmt.Errorf("token amount: %w", err)
	}
	// Верхняя граница стоимости: solIn * (1 + slippage)
	maxSolCost, err := toRaw(params.SolIn*(1+params.Slippage/100), LamportsPerSol)
	if err != nil {
		return nil, fmt.Errorf("max sol cost: %w", err)
	}

	accounts, err := swapAccounts(SideBuy, params.Coin, params.User, params.TokenAccount)
	if err != nil {
		return nil, err
	}

	amounts := TradeAmounts{TokenAmountRaw: tokenAmount, SolBoundRaw: maxSolCost}
	return &Swap{
		Instruction: solana.NewInstruction(PumpFunProgramID, accounts, encodeSwapData(BuyDiscriminator, amounts)),
		Side:        SideBuy,
		Amounts:     amounts,
	}, nil
}

// BuildSellInstruction builds a sell of params.Percentage percent of params.TokenBalance.
func BuildSellInstruction(params SellParams) (*Swap, error) {
	if params.Coin == nil {
		return nil, fmt.Errorf("%w: missing coin state", ErrInvalidCurveState)
	}
	if params.Coin.Complete {
		return nil, ErrCurveBonded
	}
	if !(params.Percentage >= 1 && params.Percentage <= 100) {
		return nil, fmt.Errorf("%w: percentage must be within 1..100, got %v", ErrInvalidAmount, params.Percentage)
	}
	if !(params.TokenBalance > 0) {
		return nil, fmt.Errorf("%w: token balance must be positive, got %v", ErrInvalidAmount, params.TokenBalance)
	}
	if err := checkSlippage(params.Slippage); err != nil {
		return nil, err
	}

	tokensIn := params.TokenBalance * (params.Percentage / 100)
	virtualSol, virtualToken := ScaledReserves(params.Coin)
	solOut, err := SolForTokens(tokensIn, virtualSol, virtualToken)
	if err != nil {
		return nil, err
	}

	tokenAmount, err := toRaw(tokensIn, TokenUnit)
	if err != nil {
		return nil, fmt.Errorf("token amount: %w", err)
	}
	// Нижняя граница выручки: solOut * (1 - slippage)
	minSolOutput, err := toRaw(solOut*(1-params.Slippage/100), LamportsPerSol)
	if err != nil {
		return nil, fmt.Errorf("min sol output: %w", err)
	}

	accounts, err := swapAccounts(SideSell, params.Coin, params.User, params.TokenAccount)
	if err != nil {
		return nil, err
	}

	amounts := TradeAmounts{TokenAmountRaw: tokenAmount, SolBoundRaw: minSolOutput}
	return &Swap{
		Instruction: solana.NewInstruction(PumpFunProgramID, accounts, encodeSwapData(SellDiscriminator, amounts)),
		Side:        SideSell,
		Amounts:     amounts,
	}, nil
}

// DecodeSwapData reads back the side and amounts of an encoded swap.
func DecodeSwapData(data []byte) (Side, TradeAmounts, error) {
	if len(data) != swapDataSize {
		return 0, TradeAmounts{}, fmt.Errorf("invalid swap data length: %d", len(data))
	}

	var side Side
	switch {
	case bytes.Equal(data[:8], BuyDiscriminator):
		side = SideBuy
	case bytes.Equal(data[:8], SellDiscriminator):
		side = SideSell
	default:
		return 0, TradeAmounts{}, fmt.Errorf("unknown swap discriminator %x", data[:8])
	}

	dec := bin.NewBorshDecoder(data[8:])
	tokenAmount, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return 0, TradeAmounts{}, fmt.Errorf("failed to read token amount: %w", err)
	}
	solBound, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return 0, TradeAmounts{}, fmt.Errorf("failed to read sol bound: %w", err)
	}
	return side, TradeAmounts{TokenAmountRaw: tokenAmount, SolBoundRaw: solBound}, nil
}

func encodeSwapData(discriminator []byte, amounts TradeAmounts) []byte {
	data := make([]byte, swapDataSize)
	copy(data, discriminator)
	binary.LittleEndian.PutUint64(data[8:16], amounts.TokenAmountRaw)
	binary.LittleEndian.PutUint64(data[16:24], amounts.SolBoundRaw)
	return data
}

// swapAccounts returns the account list in the exact order the program expects.
// Buy and sell differ only in where the creator vault sits.
func swapAccounts(side Side, coin *CoinState, user, tokenAccount solana.PublicKey) ([]*solana.AccountMeta, error) {
	derived, err := DeriveTradeAccounts(coin.Mint, coin.Creator, user)
	if err != nil {
		return nil, err
	}
	if tokenAccount.IsZero() {
		tokenAccount = derived.AssociatedUser
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: PumpFunGlobal, IsSigner: false, IsWritable: false},
		{PublicKey: PumpFunFeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: coin.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: derived.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: derived.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: tokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}

	tokenProgram := &solana.AccountMeta{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false}
	creatorVault := &solana.AccountMeta{PublicKey: derived.CreatorVault, IsSigner: false, IsWritable: true}
	if side == SideBuy {
		accounts = append(accounts, tokenProgram, creatorVault)
	} else {
		accounts = append(accounts, creatorVault, tokenProgram)
	}

	accounts = append(accounts,
		&solana.AccountMeta{PublicKey: derived.EventAuthority, IsSigner: false, IsWritable: false},
		&solana.AccountMeta{PublicKey: PumpFunProgramID, IsSigner: false, IsWritable: false},
	)
	return accounts, nil
}

func checkSlippage(slippage float64) error {
	if !(slippage >= 0 && slippage <= 100) {
		return fmt.Errorf("%w: slippage must be within 0..100, got %v", ErrInvalidAmount, slippage)
	}
	return nil
}
