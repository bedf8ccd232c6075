/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"time"
)

const (
	connectFloor  time.Duration = 10 * time.Millisecond
	connectCap    time.Duration = 30 * time.Second
	sendFloor     time.Duration = 50 * time.Millisecond
	sendCap       time.Duration = 5 * time.Second
	growthFactor  float64       = 1.2
	shrinkFactor  float64       = 1.05
	noShrinkValue float64       = 1
)

// Backoff is a multiplicative retry delay. Failures grow it, successes shrink
// it back toward the floor. It is safe for concurrent use.
type Backoff struct {
	mu      sync.Mutex
	floor   time.Duration
	ceiling time.Duration
	growth  float64
	shrink  float64
	current time.Duration
}

func newBackoff(floor, ceiling time.Duration, growth, shrink float64) *Backoff {
	if growth <= 1 {
		panic("backoff growth factor must be greater than 1")
	}
	if shrink < 1 {
		panic("backoff shrink factor must be at least 1")
	}

	return &Backoff{
		floor:   floor,
		ceiling: ceiling,
		growth:  growth,
		shrink:  shrink,
		current: floor,
	}
}

func newConnectBackoff() *Backoff {
	return newBackoff(connectFloor, connectCap, growthFactor, shrinkFactor)
}

// Send retries restart from the floor for every event, so they never shrink.
func newSendBackoff() *Backoff {
	return newBackoff(sendFloor, sendCap, growthFactor, noShrinkValue)
}

func (b *Backoff) Delay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// Grow records a failure and returns the new delay.
func (b *Backoff) Grow() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := time.Duration(float64(b.current) * b.growth)
	if next <= b.current {
		next = b.current + 1
	}
	if b.ceiling > 0 && next > b.ceiling {
		next = b.ceiling
	}
	b.current = next

	return b.current
}

// Shrink records a success and returns the new delay, never below the floor.
func (b *Backoff) Shrink() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current <= b.floor {
		return b.current
	}

	next := time.Duration(float64(b.current) / b.shrink)
	if next >= b.current {
		next = b.current - 1
	}
	if next < b.floor {
		next = b.floor
	}
	b.current = next

	return b.current
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.floor
}

// Wait sleeps for the current delay. It returns false if ctx ended first.
func (b *Backoff) Wait(ctx context.Context) bool {
	t := time.NewTimer(b.Delay())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
