/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"testing"
	"time"
)

func TestBackoffGrowIsMonotonicAndCapped(t *testing.T) {
	b := newConnectBackoff()

	prev := b.Delay()
	if prev != connectFloor {
		t.Fatalf("initial delay = %s, want %s", prev, connectFloor)
	}

	for i := 0; i < 200; i++ {
		d := b.Grow()
		if d < prev {
			t.Fatalf("close %d: delay went from %s down to %s", i, prev, d)
		}
		if d < connectFloor {
			t.Fatalf("close %d: delay %s below floor", i, d)
		}
		if d > connectCap {
			t.Fatalf("close %d: delay %s above cap", i, d)
		}
		prev = d
	}

	if prev != connectCap {
		t.Fatalf("delay after many closes = %s, want cap %s", prev, connectCap)
	}
}

func TestBackoffGrowFactor(t *testing.T) {
	b := newBackoff(100*time.Millisecond, time.Minute, growthFactor, shrinkFactor)

	if got, want := b.Grow(), 120*time.Millisecond; got != want {
		t.Fatalf("Grow = %s, want %s", got, want)
	}
	shrink := shrinkFactor
	if got, want := b.Shrink(), time.Duration(float64(120*time.Millisecond)/shrink); got != want {
		t.Fatalf("Shrink = %s, want %s", got, want)
	}
}

func TestBackoffShrinkRecovers(t *testing.T) {
	b := newConnectBackoff()
	for i := 0; i < 20; i++ {
		b.Grow()
	}

	prev := b.Delay()
	for prev > connectFloor {
		d := b.Shrink()
		if d >= prev {
			t.Fatalf("frame did not decrease delay: %s -> %s", prev, d)
		}
		if d < connectFloor {
			t.Fatalf("delay %s below floor", d)
		}
		prev = d
	}

	if got := b.Shrink(); got != connectFloor {
		t.Fatalf("delay at floor moved to %s", got)
	}
}

func TestBackoffReset(t *testing.T) {
	b := newSendBackoff()
	b.Grow()
	b.Grow()
	b.Reset()

	if got := b.Delay(); got != sendFloor {
		t.Fatalf("delay after reset = %s, want %s", got, sendFloor)
	}
}

func TestBackoffRejectsBadFactors(t *testing.T) {
	cases := []struct {
		name           string
		growth, shrink float64
	}{
		{"no growth", 1, 1.05},
		{"shrink grows", 1.2, 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()

			newBackoff(time.Millisecond, time.Second, tc.growth, tc.shrink)
		})
	}
}

func TestBackoffWait(t *testing.T) {
	b := newBackoff(5*time.Millisecond, time.Second, growthFactor, shrinkFactor)

	if !b.Wait(context.Background()) {
		t.Fatal("Wait returned false without cancellation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b = newBackoff(time.Hour, time.Hour, growthFactor, shrinkFactor)
	if b.Wait(ctx) {
		t.Fatal("Wait returned true on a cancelled context")
	}
}
