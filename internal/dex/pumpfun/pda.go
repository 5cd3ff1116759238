// =============================
// File: internal/dex/pumpfun/pda.go
// =============================
package pumpfun

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seeds used by the program
var (
	seedGlobal         = []byte("global")
	seedBondingCurve   = []byte("bonding-curve")
	seedCreatorVault   = []byte("creator-vault")
	seedEventAuthority = []byte("__event_authority")
)

// DerivedAddress is a program-derived address and the bump that produced it.
type DerivedAddress struct {
	Address solana.PublicKey
	Bump    uint8
}

// FindProgramAddress searches bumps from 255 down to 0 for an address off the
// ed25519 curve. The caller's seed slice is never modified.
func FindProgramAddress(seeds [][]byte, programID solana.PublicKey) (DerivedAddress, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := solana.CreateProgramAddress(withBump, programID)
		if err == nil {
			return DerivedAddress{Address: addr, Bump: uint8(bump)}, nil
		}
		// Ошибки сидов не зависят от bump
		if errors.Is(err, solana.ErrMaxSeedLengthExceeded) {
			return DerivedAddress{}, err
		}
	}
	return DerivedAddress{}, ErrNoValidAddress
}

// DeriveGlobal returns the program's global state account.
func DeriveGlobal() (DerivedAddress, error) {
	return FindProgramAddress([][]byte{seedGlobal}, PumpFunProgramID)
}

// DeriveBondingCurve returns the bonding curve account of mint.
func DeriveBondingCurve(mint solana.PublicKey) (DerivedAddress, error) {
	return FindProgramAddress([][]byte{seedBondingCurve, mint.Bytes()}, PumpFunProgramID)
}

// DeriveAssociatedTokenAccount returns the SPL associated token account of owner for mint.
func DeriveAssociatedTokenAccount(owner, mint solana.PublicKey) (DerivedAddress, error) {
	return FindProgramAddress(
		[][]byte{owner.Bytes(), solana.TokenProgramID.Bytes(), mint.Bytes()},
		solana.SPLAssociatedTokenAccountProgramID,
	)
}

// DeriveAssociatedBondingCurve returns the token account holding the curve's token reserve.
func DeriveAssociatedBondingCurve(bondingCurve, mint solana.PublicKey) (DerivedAddress, error) {
	return DeriveAssociatedTokenAccount(bondingCurve, mint)
}

// DeriveCreatorVault returns the account collecting creator fees for creator.
func DeriveCreatorVault(creator solana.PublicKey) (DerivedAddress, error) {
	return FindProgramAddress([][]byte{seedCreatorVault, creator.Bytes()}, PumpFunProgramID)
}

// DeriveEventAuthority returns the account the program emits events through.
func DeriveEventAuthority() (DerivedAddress, error) {
	return FindProgramAddress([][]byte{seedEventAuthority}, PumpFunProgramID)
}

// TradeAccounts are the derived accounts a swap instruction references.
type TradeAccounts struct {
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	CreatorVault           solana.PublicKey
	EventAuthority         solana.PublicKey
}

// DeriveTradeAccounts derives every account for a trade by user on mint.
func DeriveTradeAccounts(mint, creator, user solana.PublicKey) (*TradeAccounts, error) {
	bondingCurve, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	associatedBondingCurve, err := DeriveAssociatedBondingCurve(bondingCurve.Address, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	associatedUser, err := DeriveAssociatedTokenAccount(user, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	creatorVault, err := DeriveCreatorVault(creator)
	if err != nil {
		return nil, fmt.Errorf("failed to derive creator vault: %w", err)
	}
	eventAuthority, err := DeriveEventAuthority()
	if err != nil {
		return nil, fmt.Errorf("failed to derive event authority: %w", err)
	}
	return &TradeAccounts{
		BondingCurve:           bondingCurve.Address,
		AssociatedBondingCurve: associatedBondingCurve.Address,
		AssociatedUser:         associatedUser.Address,
		CreatorVault:           creatorVault.Address,
		EventAuthority:         eventAuthority.Address,
	}, nil
}
