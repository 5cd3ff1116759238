// =============================
// File: internal/dex/pumpfun/curve.go
// =============================
package pumpfun

import (
	"fmt"
	"math"
)

// TokensForSol returns how many whole tokens solIn buys against the curve.
// Reserves are in whole units (SOL and tokens, not base units).
func TokensForSol(solIn, virtualSol, virtualToken float64) (float64, error) {
	if err := checkCurve(virtualSol, virtualToken); err != nil {
		return 0, err
	}
	if !validAmount(solIn) {
		return 0, fmt.Errorf("%w: sol in %v", ErrInvalidAmount, solIn)
	}
	k := virtualSol * virtualToken
	return virtualToken - k/(virtualSol+solIn), nil
}

// SolForTokens returns how much whole SOL tokenIn tokens sell for.
func SolForTokens(tokenIn, virtualSol, virtualToken float64) (float64, error) {
	if err := checkCurve(virtualSol, virtualToken); err != nil {
		return 0, err
	}
	if !validAmount(tokenIn) {
		return 0, fmt.Errorf("%w: token in %v", ErrInvalidAmount, tokenIn)
	}
	k := virtualSol * virtualToken
	return virtualSol - k/(virtualToken+tokenIn), nil
}

// SpotPrice returns the marginal price in SOL per token.
func SpotPrice(virtualSol, virtualToken float64) (float64, error) {
	if err := checkCurve(virtualSol, virtualToken); err != nil {
		return 0, err
	}
	return virtualSol / virtualToken, nil
}

// ScaledReserves converts the raw virtual reserves of a coin to whole units.
func ScaledReserves(coin *CoinState) (virtualSol, virtualToken float64) {
	return float64(coin.VirtualSolReserves) / LamportsPerSol,
		float64(coin.VirtualTokenReserves) / TokenUnit
}

func checkCurve(virtualSol, virtualToken float64) error {
	if !(virtualSol > 0) || !(virtualToken > 0) || math.IsInf(virtualSol, 0) || math.IsInf(virtualToken, 0) {
		return fmt.Errorf("%w: virtual sol %v, virtual token %v", ErrInvalidCurveState, virtualSol, virtualToken)
	}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// toRaw scales a whole-unit value to base units, flooring.
func toRaw(v float64, scale float64) (uint64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, v)
	}
	scaled := math.Floor(v * scale)
	// 2^64 is exactly representable; anything at or above it overflows.
	if scaled >= math.Ldexp(1, 64) {
		return 0, fmt.Errorf("%w: %v overflows u64", ErrInvalidAmount, v)
	}
	return uint64(scaled), nil
}
