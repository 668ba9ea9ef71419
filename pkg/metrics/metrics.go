// Package metrics exposes Prometheus counters for broadcasts.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
)

// Dispatch groups the send metrics. A nil *Dispatch records nothing.
type Dispatch struct {
	sends      *prometheus.CounterVec
	recipients prometheus.Histogram
	progress   prometheus.Gauge
}

// NewDispatch registers the send metrics on reg.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	factory := promauto.With(reg)
	return &Dispatch{
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_sends_total",
			Help: "Broadcast attempts by result",
		}, []string{"result"}),
		recipients: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_send_recipients",
			Help:    "Recipients per broadcast",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		progress: factory.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_send_progress",
			Help: "Last progress percentage reported by the sender",
		}),
	}
}

func (d *Dispatch) Result(result string) {
	if d == nil {
		return
	}
	d.sends.WithLabelValues(result).Inc()
}

func (d *Dispatch) Recipients(n int) {
	if d == nil {
		return
	}
	d.recipients.Observe(float64(n))
}

func (d *Dispatch) Progress(percent int) {
	if d == nil {
		return
	}
	d.progress.Set(float64(percent))
}

// Serve exposes gatherer on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")
	return srv
}
