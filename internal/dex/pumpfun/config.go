// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Known PumpFun protocol addresses
var (
	// Program ID for Pump.fun protocol
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Global state account of the program
	PumpFunGlobal = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")

	// Fee recipient for buy/sell
	PumpFunFeeRecipient = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")

	// Event authority for the Pump.fun protocol
	PumpFunEventAuth = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
)

// Масштабы базовых единиц
const (
	LamportsPerSol = 1_000_000_000
	TokenUnit      = 1_000_000
)

const (
	DefaultComputeUnitLimit uint32 = 100_000
	DefaultComputeUnitPrice uint64 = 1_000_000
	DefaultConfirmRetries          = 20
	DefaultConfirmInterval         = 3 * time.Second
)

// TraderConfig holds the transaction-level settings used by Trader.
type TraderConfig struct {
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64 // micro-lamports per compute unit
	SkipPreflight    bool

	ConfirmRetries  int
	ConfirmInterval time.Duration
}

// GetDefaultConfig returns the settings the bot ships with.
func GetDefaultConfig() TraderConfig {
	return TraderConfig{
		ComputeUnitLimit: DefaultComputeUnitLimit,
		ComputeUnitPrice: DefaultComputeUnitPrice,
		SkipPreflight:    true,
		ConfirmRetries:   DefaultConfirmRetries,
		ConfirmInterval:  DefaultConfirmInterval,
	}
}

func (cfg TraderConfig) withDefaults() TraderConfig {
	if cfg.ComputeUnitLimit == 0 {
		cfg.ComputeUnitLimit = DefaultComputeUnitLimit
	}
	if cfg.ConfirmRetries <= 0 {
		cfg.ConfirmRetries = DefaultConfirmRetries
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = DefaultConfirmInterval
	}
	return cfg
}
