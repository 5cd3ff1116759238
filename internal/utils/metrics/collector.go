// internal/utils/metrics/collector.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-bot/internal/eventlistener"
)

// Collector держит метрики watcher'а в собственном registry
type Collector struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	connects    prometheus.Counter
	connected   prometheus.Gauge
	lastEventAt prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pumpfun_watcher_events_total",
			Help: "Creation events delivered, by creator wallet.",
		}, []string{"creator"}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pumpfun_watcher_connects_total",
			Help: "Successful websocket connects, including reconnects.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pumpfun_watcher_connected",
			Help: "1 while the websocket is connected.",
		}),
		lastEventAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pumpfun_watcher_last_event_timestamp_seconds",
			Help: "Unix time of the last delivered creation event.",
		}),
	}
	c.registry.MustRegister(c.events, c.connects, c.connected, c.lastEventAt)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// EventHandler counts delivered events; chain it with the real handler.
func (c *Collector) EventHandler() eventlistener.EventHandler {
	return func(event *eventlistener.CreationEvent) {
		c.events.WithLabelValues(event.Creator).Inc()
		c.lastEventAt.Set(float64(time.Now().Unix()))
	}
}

// ObserveState tracks connection state changes of the watcher.
func (c *Collector) ObserveState(state eventlistener.ConnState) {
	if state == eventlistener.StateConnected {
		c.connects.Inc()
		c.connected.Set(1)
		return
	}
	c.connected.Set(0)
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx ends.
func (c *Collector) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
