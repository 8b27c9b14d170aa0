package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalGate_SpacesConcurrentCallers(t *testing.T) {
	const (
		interval = 50 * time.Millisecond
		callers  = 6
		// timer and scheduler jitter when stamping after Wait returns
		slack = 10 * time.Millisecond
	)

	gate := NewIntervalGate(interval)

	var (
		mu     sync.Mutex
		stamps []time.Time
		wg     sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Wait(context.Background()))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), interval-slack, "gap %d", i)
	}
	assert.GreaterOrEqual(t, time.Since(start), time.Duration(callers-1)*interval-slack)
}

func TestIntervalGate_FirstCallIsImmediate(t *testing.T) {
	gate := NewIntervalGate(time.Hour)

	start := time.Now()
	require.NoError(t, gate.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestIntervalGate_ContextCancelled(t *testing.T) {
	gate := NewIntervalGate(time.Hour)
	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, gate.Wait(ctx))
	assert.Equal(t, int64(0), gate.Waiting())
}

func TestNoopGate(t *testing.T) {
	assert.NoError(t, NoopGate{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NoopGate{}.Wait(ctx), context.Canceled)
}
