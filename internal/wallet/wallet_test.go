package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewWallet(" " + key.String() + "\n")
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey)
	assert.Equal(t, key.PublicKey().String(), w.String())
}

func TestNewWallet_Invalid(t *testing.T) {
	_, err := NewWallet("not-base58-0OIl")
	assert.Error(t, err)

	_, err = NewWallet(solana.NewWallet().PublicKey().String())
	assert.ErrorContains(t, err, "invalid private key length")
}

func TestGetATA_Cached(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(key.String())
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	want, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)

	got, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestCreateAssociatedTokenAccountInstruction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(key.String())
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	ix := w.CreateAssociatedTokenAccountInstruction(mint)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

	ata, err := w.GetATA(mint)
	require.NoError(t, err)
	accounts := ix.Accounts()
	require.GreaterOrEqual(t, len(accounts), 4)
	assert.Equal(t, w.PublicKey, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, ata, accounts[1].PublicKey)
}

func TestSignTransaction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(key.String())
	require.NoError(t, err)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{w.CreateAssociatedTokenAccountInstruction(solana.NewWallet().PublicKey())},
		solana.Hash{7},
		solana.TransactionPayer(w.PublicKey),
	)
	require.NoError(t, err)
	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}
