/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubTransport records writes and can be switched on and off.
type stubTransport struct {
	mu      sync.Mutex
	state   ConnState
	fails   int
	written []Envelope
}

func (s *stubTransport) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *stubTransport) set(state ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}

func (s *stubTransport) WriteText(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected {
		return ErrNotConnected
	}
	if s.fails > 0 {
		s.fails--

		return &TransportError{Op: "write", Err: errors.New("broken pipe")}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	s.written = append(s.written, env)

	return nil
}

func (s *stubTransport) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.written))
	for _, env := range s.written {
		out = append(out, env.Event)
	}

	return out
}

func (s *stubTransport) data(i int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]any
	_ = json.Unmarshal(s.written[i].Data, &m)

	return m
}

func runOutbox(t *testing.T, conn transport) *Outbox {
	t.Helper()

	o := newOutbox(conn, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go o.Run(ctx)

	return o
}

func TestOutboxHoldsEventsUntilConnected(t *testing.T) {
	conn := &stubTransport{state: Connecting}
	o := runOutbox(t, conn)

	sent := []OutEvent{OutGameCreated, OutPlayerJoined, OutWordGuessed, OutRoundComplete}
	for _, ev := range sent {
		if err := o.Send(ev, emptyData{}); err != nil {
			t.Fatalf("Send(%s): %v", ev, err)
		}
	}

	time.Sleep(100 * time.Millisecond)
	if n := len(conn.events()); n != 0 {
		t.Fatalf("%d events written while disconnected", n)
	}
	if n := o.Pending(); n != len(sent) {
		t.Fatalf("pending = %d, want %d", n, len(sent))
	}

	conn.set(Connected)

	eventually(t, "queue to drain", func() bool { return o.Pending() == 0 })

	got := conn.events()
	if len(got) != len(sent) {
		t.Fatalf("written %v, want %v", got, sent)
	}
	for i := range sent {
		if got[i] != string(sent[i]) {
			t.Fatalf("written %v, want %v", got, sent)
		}
	}
}

func TestOutboxRetriesFailedWriteAtHead(t *testing.T) {
	conn := &stubTransport{state: Connected, fails: 2}
	o := runOutbox(t, conn)

	_ = o.Send(OutRoundConfirmed, roundNumberData{RoundNumber: 4})
	_ = o.Send(OutWordGuessed, emptyData{})

	eventually(t, "queue to drain", func() bool { return o.Pending() == 0 })

	got := conn.events()
	if len(got) != 2 || got[0] != string(OutRoundConfirmed) || got[1] != string(OutWordGuessed) {
		t.Fatalf("written %v", got)
	}
	if n := conn.data(0)["roundNumber"]; n != float64(4) {
		t.Fatalf("roundNumber = %v, want 4", n)
	}
}

func TestOutboxAnnotatesGameID(t *testing.T) {
	conn := &stubTransport{state: Connected}
	o := runOutbox(t, conn)

	_ = o.Send(OutGameCreated, createGameData{Player: playerIntro{Name: "Alice"}})
	o.SetGameID("g42")
	_ = o.Send(OutPlayerJoined, joinGameData{Player: playerIntro{Name: "Alice"}})

	eventually(t, "queue to drain", func() bool { return o.Pending() == 0 })

	if _, ok := conn.data(0)["gameId"]; ok {
		t.Error("gameId added before one was known")
	}
	if id := conn.data(1)["gameId"]; id != "g42" {
		t.Errorf("gameId = %v, want g42", id)
	}
	if player, ok := conn.data(1)["player"].(map[string]any); !ok || player["name"] != "Alice" {
		t.Errorf("payload lost its fields: %v", conn.data(1))
	}
}

func TestEncodeFrameRejectsNonObjects(t *testing.T) {
	if _, err := encodeFrame(OutWordGuessed, []string{"x"}, "g1"); err == nil {
		t.Fatal("expected an error for a non-object payload")
	}

	frame, err := encodeFrame(OutWordGuessed, nil, "")
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	if string(frame) != `{"event":"wordGuessed","data":{}}` {
		t.Fatalf("frame = %s", frame)
	}
}
