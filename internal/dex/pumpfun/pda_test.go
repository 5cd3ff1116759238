package pumpfun

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKnownAccounts(t *testing.T) {
	global, err := DeriveGlobal()
	require.NoError(t, err)
	assert.Equal(t, PumpFunGlobal, global.Address)

	eventAuthority, err := DeriveEventAuthority()
	require.NoError(t, err)
	assert.Equal(t, PumpFunEventAuth, eventAuthority.Address)
}

func TestFindProgramAddress_MatchesSolanaGo(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	got, err := DeriveBondingCurve(mint)
	require.NoError(t, err)

	want, bump, err := solana.FindProgramAddress([][]byte{[]byte("bonding-curve"), mint.Bytes()}, PumpFunProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Address)
	assert.Equal(t, bump, got.Bump)
}

func TestDeriveAssociatedTokenAccount_MatchesSolanaGo(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	got, err := DeriveAssociatedTokenAccount(owner, mint)
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got.Address)
}

func TestDeriveCreatorVault_SeedOrder(t *testing.T) {
	creator := solana.NewWallet().PublicKey()

	vault, err := DeriveCreatorVault(creator)
	require.NoError(t, err)

	// Проверяем адрес напрямую по найденному bump
	addr, err := solana.CreateProgramAddress(
		[][]byte{[]byte("creator-vault"), creator.Bytes(), {vault.Bump}},
		PumpFunProgramID,
	)
	require.NoError(t, err)
	assert.Equal(t, addr, vault.Address)
}

func TestFindProgramAddress_DoesNotMutateSeeds(t *testing.T) {
	seeds := [][]byte{[]byte("bonding-curve"), bytes.Repeat([]byte{7}, 32)}
	snapshot := [][]byte{append([]byte(nil), seeds[0]...), append([]byte(nil), seeds[1]...)}

	_, err := FindProgramAddress(seeds, PumpFunProgramID)
	require.NoError(t, err)
	assert.Len(t, seeds, 2)
	assert.Equal(t, snapshot, seeds)
}

func TestFindProgramAddress_SeedTooLong(t *testing.T) {
	_, err := FindProgramAddress([][]byte{bytes.Repeat([]byte{1}, 33)}, PumpFunProgramID)
	assert.ErrorIs(t, err, solana.ErrMaxSeedLengthExceeded)
}

func TestDeriveTradeAccounts(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	accounts, err := DeriveTradeAccounts(mint, creator, user)
	require.NoError(t, err)

	bondingCurve, err := DeriveBondingCurve(mint)
	require.NoError(t, err)
	assert.Equal(t, bondingCurve.Address, accounts.BondingCurve)

	abc, _, err := solana.FindAssociatedTokenAddress(bondingCurve.Address, mint)
	require.NoError(t, err)
	assert.Equal(t, abc, accounts.AssociatedBondingCurve)

	userATA, _, err := solana.FindAssociatedTokenAddress(user, mint)
	require.NoError(t, err)
	assert.Equal(t, userATA, accounts.AssociatedUser)
	assert.Equal(t, PumpFunEventAuth, accounts.EventAuthority)
}
