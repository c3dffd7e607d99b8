package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// flakyServer accepts websocket sessions and hands them to the test, so
// connections can be dropped server-side on demand.
type flakyServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newFlakyServer(t *testing.T) *flakyServer {
	t.Helper()
	f := &flakyServer{conns: make(chan *websocket.Conn, 8)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- c
	}))
	t.Cleanup(func() {
		for {
			select {
			case c := <-f.conns:
				c.Close(websocket.StatusNormalClosure, "")
			default:
				f.srv.Close()
				return
			}
		}
	})
	return f
}

func (f *flakyServer) url() string { return "ws" + strings.TrimPrefix(f.srv.URL, "http") }

func (f *flakyServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection reached the server")
		return nil
	}
}

func waitStatus(t *testing.T, c *Client, want Status) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status never reached %s, stuck at %s", want, c.Status())
}

func TestReconnectsAfterTransportDrop(t *testing.T) {
	f := newFlakyServer(t)

	var refreshes int32
	reconnected := make(chan struct{}, 4)
	c, err := Dial(context.Background(), Options{
		URL: f.url(),
		RefreshToken: func(context.Context) (string, error) {
			atomic.AddInt32(&refreshes, 1)
			return "tok", nil
		},
		BaseBackoff: 10 * time.Millisecond,
		OnReconnect: func() { reconnected <- struct{}{} },
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	first := f.accept(t)
	first.Close(websocket.StatusInternalError, "drop")

	select {
	case <-reconnected:
	case <-time.After(3 * time.Second):
		t.Fatal("client never reconnected")
	}
	f.accept(t)
	if got := c.Status(); got != StatusConnected {
		t.Fatalf("want connected after the reconnect, got %s", got)
	}
	if n := atomic.LoadInt32(&refreshes); n < 2 {
		t.Fatalf("credential must refresh before every attempt, saw %d", n)
	}
}

func TestRefreshFailureTerminatesSession(t *testing.T) {
	f := newFlakyServer(t)

	var fail atomic.Bool
	c, err := Dial(context.Background(), Options{
		URL: f.url(),
		RefreshToken: func(context.Context) (string, error) {
			if fail.Load() {
				return "", errors.New("credential revoked")
			}
			return "tok", nil
		},
		BaseBackoff: 5 * time.Millisecond,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	conn := f.accept(t)

	// Park a request in flight, then kill the transport under it.
	errs := make(chan error, 1)
	go func() {
		_, err := c.GetTables(context.Background())
		errs <- err
	}()
	rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := conn.Read(rctx); err != nil {
		t.Fatal(err)
	}

	fail.Store(true)
	conn.Close(websocket.StatusInternalError, "drop")

	select {
	case err := <-errs:
		if !errors.Is(err, ErrDisconnected) {
			t.Fatalf("in-flight request must be rejected, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("pending request never rejected")
	}

	// The refresh failure is terminal: no further attempts, requests
	// fail immediately.
	waitStatus(t, c, StatusDisconnected)
	if _, err := c.GetTables(context.Background()); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("terminated session must reject requests, got %v", err)
	}
}

func TestReconnectBudgetExhausted(t *testing.T) {
	f := newFlakyServer(t)

	var refreshes int32
	c, err := Dial(context.Background(), Options{
		URL: f.url(),
		RefreshToken: func(context.Context) (string, error) {
			atomic.AddInt32(&refreshes, 1)
			return "tok", nil
		},
		MaxReconnects: 2,
		BaseBackoff:   5 * time.Millisecond,
		Logger:        zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	conn := f.accept(t)
	f.srv.Close()
	conn.Close(websocket.StatusInternalError, "drop")

	// One refresh for the dial, one per bounded attempt.
	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt32(&refreshes) != 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := atomic.LoadInt32(&refreshes); n != 3 {
		t.Fatalf("want exactly 3 refreshes (dial + 2 retries), saw %d", n)
	}
	waitStatus(t, c, StatusDisconnected)
}

func TestDialRefreshFailure(t *testing.T) {
	_, err := Dial(context.Background(), Options{
		URL: "ws://127.0.0.1:1",
		RefreshToken: func(context.Context) (string, error) {
			return "", errors.New("no credential")
		},
	})
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("want ErrAuthFailure, got %v", err)
	}
}
