package scnet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReply is what a fake handler answers; a nil *fakeReply means no answer at all
type fakeReply struct {
	Status  bool
	Payload interface{}
	Errors  interface{}
}

func okReply(payload interface{}) *fakeReply { return &fakeReply{Status: true, Payload: payload} }

type handlerFunc func(t *testing.T, payload json.RawMessage) *fakeReply

type received struct {
	Type    string
	Payload json.RawMessage
}

// fakeServer speaks the Graph Service JSON protocol over a real websocket
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]handlerFunc
	requests []received
	conns    []*websocket.Conn
	writeMu  sync.Mutex
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	s := &fakeServer{t: t, handlers: map[string]handlerFunc{}}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.serve(conn)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fakeServer) serve(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			ID      int64           `json:"id"`
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, received{Type: req.Type, Payload: req.Payload})
		handler := s.handlers[req.Type]
		s.mu.Unlock()
		if handler == nil {
			continue
		}
		rep := handler(s.t, req.Payload)
		if rep == nil {
			continue
		}
		s.write(conn, map[string]interface{}{
			"id":      req.ID,
			"event":   false,
			"status":  rep.Status,
			"payload": rep.Payload,
			"errors":  rep.Errors,
		})
	}
}

func (s *fakeServer) write(conn *websocket.Conn, v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.WriteJSON(v)
}

func (s *fakeServer) on(requestType string, fn handlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[requestType] = fn
}

// emit sends an event for subscription id to every connection
func (s *fakeServer) emit(id int64, addrs ...uint64) {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()
	for _, conn := range conns {
		s.write(conn, map[string]interface{}{"id": id, "event": true, "status": true, "payload": addrs})
	}
}

// drop closes every server side connection
func (s *fakeServer) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
}

func (s *fakeServer) requestsOf(requestType string) []received {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []received
	for _, r := range s.requests {
		if r.Type == requestType {
			out = append(out, r)
		}
	}
	return out
}

func (s *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.DialTimeout = 2 * time.Second
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

func dial(t *testing.T, s *fakeServer, cfg Config) *GraphService {
	t.Helper()
	client, err := Dial(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewGraphService(client, 4, zap.NewNop())
}
