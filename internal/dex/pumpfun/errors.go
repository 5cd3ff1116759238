// internal/dex/pumpfun/errors.go
package pumpfun

import "errors"

var (
	// ErrInvalidAmount is returned for negative, NaN, infinite or out of range amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidCurveState is returned when virtual reserves are not strictly positive.
	ErrInvalidCurveState = errors.New("invalid bonding curve state")

	// ErrCurveBonded means the curve has completed and migrated; it no longer trades.
	ErrCurveBonded = errors.New("bonding curve is complete")

	ErrNoValidAddress = errors.New("unable to find a valid program address")

	// ErrTransportFailure wraps every submission or RPC error on the trade path.
	ErrTransportFailure = errors.New("transport failure")

	ErrCoinNotFound         = errors.New("bonding curve account not found")
	ErrTokenAccountNotFound = errors.New("token account not found")
	ErrNoTokenBalance       = errors.New("no token balance to sell")
)
