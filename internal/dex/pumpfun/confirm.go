// =============================
// File: internal/dex/pumpfun/confirm.go
// =============================
package pumpfun

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

var errNotConfirmed = errors.New("transaction not confirmed yet")

// Confirm polls the status of sig at a fixed interval. It returns
// OutcomeConfirmed or OutcomeFailed as soon as the cluster reports one, and
// OutcomeIndeterminate once every attempt is used up. An error is returned only
// when ctx ends first.
func (t *Trader) Confirm(ctx context.Context, sig solana.Signature) (Outcome, error) {
	attempt := 0
	operation := func() (Outcome, error) {
		attempt++
		status, err := t.transport.GetTransactionStatus(ctx, sig)
		if err != nil {
			// Ошибки RPC при опросе не фатальны
			return OutcomeIndeterminate, err
		}
		if status == nil || !status.Confirmed {
			return OutcomeIndeterminate, errNotConfirmed
		}
		if status.Failed() {
			t.logger.Debug("Transaction error", zap.String("signature", sig.String()), zap.Any("err", status.Err))
			return OutcomeFailed, nil
		}
		return OutcomeConfirmed, nil
	}

	outcome, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(t.config.ConfirmInterval)),
		backoff.WithMaxTries(uint(t.config.ConfirmRetries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.logger.Debug("Awaiting confirmation",
				zap.String("signature", sig.String()),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err == nil {
		return outcome, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return OutcomeIndeterminate, ctxErr
	}
	return OutcomeIndeterminate, nil
}
