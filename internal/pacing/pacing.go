// Package pacing supplies the waits that keep downloads polite: a jittered
// pre-fetch delay and an injectable sleeper so retry backoff can be tested
// without real time passing.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Sleeper blocks for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper waits on the wall clock.
type RealSleeper struct{}

// Sleep returns ctx.Err() when the context ends before d elapses.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter draws delays uniformly from [Min, Max].
type Jitter struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitter returns a Jitter over [minDelay, maxDelay]. A nil rng uses a
// time-seeded source.
func NewJitter(minDelay, maxDelay time.Duration, rng *rand.Rand) *Jitter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Jitter{Min: minDelay, Max: maxDelay, rng: rng}
}

// Next returns the next delay.
func (j *Jitter) Next() time.Duration {
	if j == nil {
		return 0
	}
	span := j.Max - j.Min
	if span <= 0 {
		return j.Min
	}
	j.mu.Lock()
	offset := j.rng.Int64N(int64(span) + 1)
	j.mu.Unlock()
	return j.Min + time.Duration(offset)
}

// Wait sleeps for the next jittered delay.
func (j *Jitter) Wait(ctx context.Context, sleeper Sleeper) error {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return sleeper.Sleep(ctx, j.Next())
}
