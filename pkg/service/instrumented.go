package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/github-metrics-service/pkg/github"
	"github.com/Sternrassler/github-metrics-service/pkg/logging"
)

// Prometheus metrics for use case executions.
var (
	usecaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghm_usecase_duration_seconds",
		Help:    "Use case duration in seconds",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"usecase"})

	usecaseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghm_usecase_total",
		Help: "Total use case executions by status",
	}, []string{"usecase", "status"})
)

// MetricsProvider is the inbound contract of the metrics use case.
type MetricsProvider interface {
	GetMetrics(ctx context.Context, username string) (*Summary, error)
}

// ProfileProvider is the inbound contract of the profile use case.
type ProfileProvider interface {
	GetProfile(ctx context.Context, username string) (*github.Profile, error)
}

// InstrumentedMetrics wraps a MetricsProvider with start/end logging and
// duration metrics. The use case itself stays free of this cross-cutting
// concern; the wrapper is applied at the boundary.
type InstrumentedMetrics struct {
	inner  MetricsProvider
	logger zerolog.Logger
}

// NewInstrumentedMetrics wraps inner with logging and metrics.
func NewInstrumentedMetrics(inner MetricsProvider) *InstrumentedMetrics {
	return &InstrumentedMetrics{
		inner:  inner,
		logger: logging.NewLogger("usecase-metrics"),
	}
}

// GetMetrics implements MetricsProvider.
func (i *InstrumentedMetrics) GetMetrics(ctx context.Context, username string) (*Summary, error) {
	start := time.Now()
	i.logger.Info().Str("usecase", "metrics").Str("username", username).Msg("Use case started")

	summary, err := i.inner.GetMetrics(ctx, username)

	finish(i.logger, "metrics", username, start, err)
	return summary, err
}

// InstrumentedProfiles wraps a ProfileProvider with start/end logging and
// duration metrics.
type InstrumentedProfiles struct {
	inner  ProfileProvider
	logger zerolog.Logger
}

// NewInstrumentedProfiles wraps inner with logging and metrics.
func NewInstrumentedProfiles(inner ProfileProvider) *InstrumentedProfiles {
	return &InstrumentedProfiles{
		inner:  inner,
		logger: logging.NewLogger("usecase-profile"),
	}
}

// GetProfile implements ProfileProvider.
func (i *InstrumentedProfiles) GetProfile(ctx context.Context, username string) (*github.Profile, error) {
	start := time.Now()
	i.logger.Info().Str("usecase", "profile").Str("username", username).Msg("Use case started")

	profile, err := i.inner.GetProfile(ctx, username)

	finish(i.logger, "profile", username, start, err)
	return profile, err
}

// finish records the end-of-use-case log line and metrics.
func finish(logger zerolog.Logger, usecase, username string, start time.Time, err error) {
	duration := time.Since(start)
	status := "success"
	evt := logger.Info()
	if err != nil {
		status = "failure"
		evt = logger.Error().Err(err).Str("error_kind", string(github.KindOf(err)))
	}

	usecaseDuration.WithLabelValues(usecase).Observe(duration.Seconds())
	usecaseTotal.WithLabelValues(usecase, status).Inc()

	evt.Str("usecase", usecase).
		Str("username", username).
		Str("status", status).
		Dur("duration", duration).
		Msg("Use case finished")
}
