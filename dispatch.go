/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
)

type handler func(data json.RawMessage) error

// Dispatcher routes decoded frames to the handler registered for their
// event. It is not safe for concurrent use; the session calls it from its
// own loop only.
type Dispatcher struct {
	handlers map[InEvent]handler
}

func newDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[InEvent]handler),
	}
}

// on binds a typed handler to ev. The payload is decoded into T before fn
// runs, so fn never sees raw JSON.
func on[T any](d *Dispatcher, ev InEvent, fn func(T) error) {
	d.handlers[ev] = func(data json.RawMessage) error {
		var payload T
		if len(data) > 0 && string(data) != "null" {
			if err := json.Unmarshal(data, &payload); err != nil {
				return protocolError(string(ev), fmt.Errorf("%w: %v", ErrMalformedFrame, err))
			}
		}

		return fn(payload)
	}
}

func (d *Dispatcher) Handles(ev InEvent) bool {
	_, ok := d.handlers[ev]

	return ok
}

// Dispatch decodes one frame and runs its handler to completion.
func (d *Dispatcher) Dispatch(frame []byte) error {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return protocolError("", fmt.Errorf("%w: %v", ErrMalformedFrame, err))
	}
	if env.Event == "" {
		return protocolError("", fmt.Errorf("%w: missing event name", ErrMalformedFrame))
	}

	h, ok := d.handlers[InEvent(env.Event)]
	if !ok {
		return protocolError(env.Event, ErrUnknownEvent)
	}

	return h(env.Data)
}
