/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// transport is the part of the Connector the Outbox writes through.
type transport interface {
	State() ConnState
	WriteText(data []byte) error
}

type pending struct {
	event OutEvent
	frame []byte
}

// Outbox is an unbounded FIFO of outbound events. Send never blocks and
// never drops; a single writer goroutine transmits in order once the
// transport is open.
type Outbox struct {
	conn transport
	log  zerolog.Logger

	mu     sync.Mutex
	queue  []pending
	gameID string

	notify  chan struct{}
	backoff func() *Backoff
}

func newOutbox(conn transport, log zerolog.Logger) *Outbox {
	return &Outbox{
		conn:    conn,
		log:     log,
		notify:  make(chan struct{}, 1),
		backoff: newSendBackoff,
	}
}

func (o *Outbox) SetGameID(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.gameID = id
}

func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.queue)
}

// Send encodes payload and queues it. The payload must encode to a JSON
// object; the current game id is added to it when one is known.
func (o *Outbox) Send(event OutEvent, payload any) error {
	o.mu.Lock()
	gameID := o.gameID
	o.mu.Unlock()

	frame, err := encodeFrame(event, payload, gameID)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.queue = append(o.queue, pending{event: event, frame: frame})
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}

	return nil
}

func encodeFrame(event OutEvent, payload any, gameID string) ([]byte, error) {
	if payload == nil {
		payload = emptyData{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}

	if gameID != "" {
		fields := make(map[string]json.RawMessage)
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("encode %s: payload is not an object: %w", event, err)
		}

		id, _ := json.Marshal(gameID)
		fields["gameId"] = id

		raw, err = json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
	}

	return json.Marshal(Envelope{Event: string(event), Data: raw})
}

func (o *Outbox) head() (pending, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.queue) == 0 {
		return pending{}, false
	}

	return o.queue[0], true
}

func (o *Outbox) pop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.queue[0] = pending{}
	o.queue = o.queue[1:]
}

// Run transmits queued events until ctx ends.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.notify:
		}

		for {
			p, ok := o.head()
			if !ok {
				break
			}

			if !o.transmit(ctx, p) {
				return
			}

			o.pop()
		}
	}
}

// transmit polls until p is written. Every event starts from the send
// backoff floor.
func (o *Outbox) transmit(ctx context.Context, p pending) bool {
	b := o.backoff()

	for {
		if o.conn.State() == Connected {
			err := o.conn.WriteText(p.frame)
			if err == nil {
				o.log.Debug().Str("event", string(p.event)).Msg("SEND: Event")

				return true
			}

			logError(o.log, err, "SEND: Write failed")
		}

		if !b.Wait(ctx) {
			return false
		}
		b.Grow()
	}
}
