package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/inkwell-dev/inkwell/pkg/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Registerer = prometheus.NewRegistry()
	cfg.Session.PingInterval = 0
	srv := New(cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Manager().CloseAll()
		ts.Close()
	})
	return srv, ts
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWebSocketRejectsGarbageFrame(t *testing.T) {
	srv, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// No hello: the server waits briefly, then starts the read loop.
	// A truncated frame must come back as a protocol error, not kill
	// the session.
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xFF}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("no error frame: %v", err)
	}
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != protocol.FrameError {
		t.Fatalf("frame type = %v, want error", f.Type)
	}
	em, err := protocol.DecodeErrorMessage(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrCodeInvalidFrame {
		t.Errorf("code = %v, want invalid frame", em.Code)
	}

	if got := srv.Manager().Len(); got != 1 {
		t.Errorf("sessions = %d, want the surviving 1", got)
	}
}

func TestWebSocketSessionLifecycle(t *testing.T) {
	srv, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}

	hello := protocol.NewFrame(protocol.FrameHello,
		protocol.EncodeHello(&protocol.Hello{SessionID: "client-1"})).Encode()
	if err := conn.WriteMessage(websocket.BinaryMessage, hello); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for srv.Manager().Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()
	for srv.Manager().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never cleaned up after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
