// Package ratelimit provides the single gate every upstream catalog call
// passes through.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"music-search-api-go/logcolors"
	"music-search-api-go/metrics"
)

// Gate blocks until the caller may issue one upstream request
type Gate interface {
	Wait(ctx context.Context) error
}

// IntervalGate spaces calls at least interval apart across all callers.
// Share one instance per process.
type IntervalGate struct {
	limiter  *rate.Limiter
	interval time.Duration
	waiting  atomic.Int64
}

// NewIntervalGate creates a gate admitting one call per interval, with no burst
func NewIntervalGate(interval time.Duration) *IntervalGate {
	return &IntervalGate{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait queues behind earlier callers. It fails only if ctx ends first.
func (g *IntervalGate) Wait(ctx context.Context) error {
	g.waiting.Add(1)
	defer g.waiting.Add(-1)

	start := time.Now()
	err := g.limiter.Wait(ctx)
	waited := time.Since(start)
	metrics.RateGateWait.Observe(waited.Seconds())

	if err != nil {
		return err
	}
	if waited > g.interval {
		log.Debugf("%s Waited %v for an upstream slot", logcolors.LogRateGate, waited.Round(time.Millisecond))
	}
	return nil
}

// Interval returns the minimum spacing between calls
func (g *IntervalGate) Interval() time.Duration {
	return g.interval
}

// Waiting returns how many callers are queued
func (g *IntervalGate) Waiting() int64 {
	return g.waiting.Load()
}

// NoopGate admits every call immediately
type NoopGate struct{}

func (NoopGate) Wait(ctx context.Context) error {
	return ctx.Err()
}
