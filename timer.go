/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"math"
	"sync"
	"time"
)

const frameInterval = time.Second / 30

// tick is what the countdown posts to the session. seq tells a live
// countdown apart from one that was already replaced.
type tick struct {
	seq     uint64
	round   int
	left    int
	expired bool
}

// Countdown runs the local round clock. At most one is live at a time;
// starting a new one cancels the old.
type Countdown struct {
	mu     sync.Mutex
	seq    uint64
	round  int
	cancel context.CancelFunc

	interval time.Duration
	now      func() time.Time
}

func newCountdown() *Countdown {
	return &Countdown{
		round:    noRound,
		interval: frameInterval,
		now:      time.Now,
	}
}

// Start begins counting d for round, posting to out. Expiry is delivered
// unless ctx ends or the countdown is stopped first; per-second ticks are
// dropped when out is full.
func (c *Countdown) Start(ctx context.Context, round int, d time.Duration, out chan<- tick) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	c.round = round
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	deadline := c.now().Add(d)

	go func() {
		defer cancel()

		t := time.NewTicker(c.interval)
		defer t.Stop()

		last := -1
		for ctx.Err() == nil {
			remaining := deadline.Sub(c.now())
			if remaining <= 0 {
				select {
				case out <- tick{seq: seq, round: round, expired: true}:
				case <-ctx.Done():
				}

				return
			}

			if left := int(math.Ceil(remaining.Seconds())); left != last {
				last = left
				select {
				case out <- tick{seq: seq, round: round, left: left}:
				default:
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.round = noRound
}

// Live reports whether t came from the countdown currently running.
func (c *Countdown) Live(t tick) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cancel != nil && t.seq == c.seq
}

// Round returns the round being counted, or noRound when idle.
func (c *Countdown) Round() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.round
}
