package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	storeConnectRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_store_connect_retries_total",
		Help: "Total number of connection retries by backing store",
	}, []string{"store"})

	storeConnectBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_store_connect_backoff_seconds",
		Help:    "Backoff duration before connection retries by backing store",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"store"})
)

// ErrNotReady is returned when a store stays unreachable for every attempt.
var ErrNotReady = errors.New("store not ready")

// PingFunc checks whether a backing store accepts requests.
type PingFunc func(ctx context.Context) error

// RetryConfig controls WaitReady.
type RetryConfig struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig suits a container starting next to the server.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       8,
		InitialBackoff:    250 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// WaitReady pings a store until it answers, backing off exponentially with
// jitter between attempts.
func WaitReady(ctx context.Context, name string, ping PingFunc, cfg RetryConfig) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := ping(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("store", name).
					Int("attempt", attempt).
					Msg("Store reachable after retry")
			}
			return nil
		}
		lastErr = err

		if attempt >= cfg.MaxAttempts {
			break
		}

		storeConnectRetriesTotal.WithLabelValues(name).Inc()

		// ±20% jitter
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		storeConnectBackoffSeconds.WithLabelValues(name).Observe(wait.Seconds())

		log.Warn().
			Err(err).
			Str("store", name).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Store not reachable, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", name, ctx.Err())
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	log.Error().
		Err(lastErr).
		Str("store", name).
		Int("attempts", cfg.MaxAttempts).
		Msg("Store unreachable")
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrNotReady, name, cfg.MaxAttempts, lastErr)
}
