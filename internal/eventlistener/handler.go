// internal/eventlistener/handler.go
package eventlistener

import (
	"go.uber.org/zap"
)

// LogHandler returns an EventHandler that reports every new token through logger.
func LogHandler(logger *zap.Logger) EventHandler {
	return func(event *CreationEvent) {
		logger.Info("New token created",
			zap.String("name", event.Name),
			zap.String("symbol", event.Symbol),
			zap.String("uri", event.URI),
			zap.String("mint", event.Mint),
			zap.String("bonding_curve", event.BondingCurve),
			zap.String("user", event.User),
			zap.String("creator", event.Creator),
			zap.String("signature", event.Signature))
	}
}

// Chain calls each handler in order.
func Chain(handlers ...EventHandler) EventHandler {
	return func(event *CreationEvent) {
		for _, h := range handlers {
			if h != nil {
				h(event)
			}
		}
	}
}
