/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const waitFor = 3 * time.Second

// fakeServer speaks just enough of the Hat protocol to drive a client.
// Each accepted socket gets a pump pair like a real hub member.
type fakeServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	accepted chan *fakeConn

	mu      sync.Mutex
	conns   []*fakeConn
	cookies []string
}

type fakeConn struct {
	conn *websocket.Conn
	send chan Envelope
	recv chan Envelope
	gone chan struct{}
	once sync.Once
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	s := &fakeServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		accepted: make(chan *fakeConn, 8),
	}

	mux := httprouter.New()
	mux.GET(wsPath, s.serveWS)

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.close)

	return s
}

func (s *fakeServer) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *fakeServer) serveWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	fc := &fakeConn{
		conn: conn,
		send: make(chan Envelope, 16),
		recv: make(chan Envelope, 16),
		gone: make(chan struct{}),
	}

	s.mu.Lock()
	s.conns = append(s.conns, fc)
	s.cookies = append(s.cookies, r.Header.Get("Cookie"))
	s.mu.Unlock()

	s.accepted <- fc

	go fc.writePump()
	fc.readPump()
}

func (s *fakeServer) close() {
	s.mu.Lock()
	conns := s.conns
	s.mu.Unlock()

	for _, fc := range conns {
		fc.drop()
	}
	s.srv.Close()
}

func (s *fakeServer) lastCookie() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cookies) == 0 {
		return ""
	}

	return s.cookies[len(s.cookies)-1]
}

func (s *fakeServer) accept(t *testing.T) *fakeConn {
	t.Helper()

	select {
	case fc := <-s.accepted:
		return fc
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a client connection")

		return nil
	}
}

func (fc *fakeConn) readPump() {
	defer fc.drop()

	for {
		var env Envelope
		if err := fc.conn.ReadJSON(&env); err != nil {
			return
		}

		select {
		case fc.recv <- env:
		case <-fc.gone:
			return
		}
	}
}

func (fc *fakeConn) writePump() {
	for {
		select {
		case env := <-fc.send:
			if err := fc.conn.WriteJSON(env); err != nil {
				fc.drop()

				return
			}
		case <-fc.gone:
			return
		}
	}
}

func (fc *fakeConn) drop() {
	fc.once.Do(func() {
		close(fc.gone)
		_ = fc.conn.Close()
	})
}

// emit sends one server event to the client.
func (fc *fakeConn) emit(t *testing.T, event InEvent, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", event, err)
	}

	fc.emitRaw(t, Envelope{Event: string(event), Data: raw})
}

func (fc *fakeConn) emitRaw(t *testing.T, env Envelope) {
	t.Helper()

	select {
	case fc.send <- env:
	case <-time.After(waitFor):
		t.Fatalf("timed out sending %s", env.Event)
	}
}

// expect reads the next client event, fails unless it is event, and returns
// its payload as a generic object.
func (fc *fakeConn) expect(t *testing.T, event OutEvent) map[string]any {
	t.Helper()

	select {
	case env := <-fc.recv:
		if env.Event != string(event) {
			t.Fatalf("got event %q, want %q (data %s)", env.Event, event, env.Data)
		}

		var data map[string]any
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("payload of %s is not an object: %v", event, err)
		}

		return data
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for %s", event)

		return nil
	}
}

func (fc *fakeConn) expectNothing(t *testing.T, d time.Duration) {
	t.Helper()

	select {
	case env := <-fc.recv:
		t.Fatalf("unexpected event %q (data %s)", env.Event, env.Data)
	case <-time.After(d):
	}
}

// eventually polls cond until it holds or the wait runs out.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}
