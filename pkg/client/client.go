// Package client is the Go client for the table server's realtime
// gateway. It owns the connection lifecycle (disconnected, connecting,
// connected, bounded reconnects with doubling backoff, credential refresh
// before every attempt), correlates request/reply pairs by id with a
// deadline on every pending request, and fans pushed table state and chat
// out to attached listeners.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/feltworks/tableserver/pkg/types"
)

var (
	ErrRequestTimeout = errors.New("request timed out")
	ErrAuthFailure    = errors.New("auth failure")
	ErrDisconnected   = errors.New("disconnected")
	ErrServer         = errors.New("server rejected request")
)

// Status is the connection lifecycle state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// TokenProvider supplies a fresh bearer credential. It runs before every
// connection attempt, including reconnects; a failure terminates the
// session.
type TokenProvider func(ctx context.Context) (string, error)

type Options struct {
	URL            string
	RefreshToken   TokenProvider
	MaxReconnects  int           // attempts after a transport drop, default 5
	BaseBackoff    time.Duration // doubled per failed attempt, default 500ms
	RequestTimeout time.Duration // deadline for correlated requests, default 10s
	OnReconnect    func()        // runs after a successful automatic reconnect
	Logger         *zap.Logger
}

type pendingReply struct {
	env types.Envelope
	err error
}

type Client struct {
	opts Options
	log  *zap.Logger

	mu          sync.Mutex
	status      Status
	conn        *websocket.Conn
	pending     map[string]chan pendingReply
	stateSubs   map[int]func(*types.TableSnapshot)
	chatSubs    map[int]func(*types.ChatMessage)
	nextSub     int
	lastVersion int64
	closed      bool

	done chan struct{}
}

// Dial connects and starts the session. The returned client reconnects
// by itself on transport failure; Close ends it for good.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.RefreshToken == nil {
		return nil, errors.New("RefreshToken is required")
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = 5
	}
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		opts:      opts,
		log:       opts.Logger,
		status:    StatusDisconnected,
		pending:   make(map[string]chan pendingReply),
		stateSubs: make(map[int]func(*types.TableSnapshot)),
		chatSubs:  make(map[int]func(*types.ChatMessage)),
		done:      make(chan struct{}),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	go c.run()
	return c, nil
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close ends the session and rejects every in-flight request.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.status = StatusDisconnected
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
	c.rejectPending(ErrDisconnected)
}

// connect runs one Connecting pass: refresh the credential, then dial.
func (c *Client) connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	token, err := c.opts.RefreshToken(ctx)
	if err != nil {
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("%w: refresh: %v", ErrAuthFailure, err)
	}

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.Dial(ctx, c.opts.URL, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		c.setStatus(StatusDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.status = StatusConnected
	c.mu.Unlock()
	return nil
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// run reads frames until the transport drops, then retries within the
// reconnect budget. Refresh failure or an exhausted budget terminates the
// session permanently.
func (c *Client) run() {
	for {
		c.readLoop()
		if c.isClosed() {
			return
		}
		// The transport dropped with requests possibly in flight; they
		// cannot complete on a new connection.
		c.rejectPending(ErrDisconnected)

		if err := c.reconnect(); err != nil {
			c.log.Warn("session terminated", zap.Error(err))
			c.mu.Lock()
			already := c.closed
			c.closed = true
			c.status = StatusDisconnected
			c.mu.Unlock()
			if !already {
				close(c.done)
			}
			c.rejectPending(err)
			return
		}
		if c.opts.OnReconnect != nil {
			c.opts.OnReconnect()
		}
	}
}

func (c *Client) reconnect() error {
	backoff := c.opts.BaseBackoff
	for attempt := 1; attempt <= c.opts.MaxReconnects; attempt++ {
		c.log.Info("reconnecting", zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
		select {
		case <-time.After(backoff):
		case <-c.done:
			return ErrDisconnected
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrAuthFailure) {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: reconnect budget exhausted", ErrDisconnected)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			c.setStatus(StatusDisconnected)
			return
		}
		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Debug("bad frame", zap.Error(err))
			continue
		}

		if env.ReqID != "" {
			c.resolve(env)
			continue
		}
		c.dispatchPush(env)
	}
}

func (c *Client) resolve(env types.Envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ReqID]
	if ok {
		delete(c.pending, env.ReqID)
	}
	c.mu.Unlock()
	if ok {
		ch <- pendingReply{env: env}
	}
}

func (c *Client) dispatchPush(env types.Envelope) {
	switch env.Type {
	case types.EvtTableState:
		var snap types.TableSnapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			return
		}
		c.mu.Lock()
		// Every push is a full snapshot, so a gap never corrupts state;
		// it still gets logged because it means broadcasts were dropped.
		if c.lastVersion != 0 && snap.Version > c.lastVersion+1 {
			c.log.Warn("snapshot gap", zap.Int64("from", c.lastVersion), zap.Int64("to", snap.Version))
		}
		c.lastVersion = snap.Version
		subs := make([]func(*types.TableSnapshot), 0, len(c.stateSubs))
		for _, fn := range c.stateSubs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()
		for _, fn := range subs {
			fn(&snap)
		}

	case types.EvtChatMessage:
		var msg types.ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		c.mu.Lock()
		subs := make([]func(*types.ChatMessage), 0, len(c.chatSubs))
		for _, fn := range c.chatSubs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()
		for _, fn := range subs {
			fn(&msg)
		}

	case types.EvtError:
		var em types.ErrorMsg
		_ = json.Unmarshal(env.Data, &em)
		c.log.Warn("server error", zap.String("message", em.Message))
	}
}

func (c *Client) rejectPending(err error) {
	c.mu.Lock()
	pend := c.pending
	c.pending = make(map[string]chan pendingReply)
	c.mu.Unlock()
	for _, ch := range pend {
		ch <- pendingReply{err: err}
	}
}

// OnTableState attaches a listener to the table-state stream and returns
// a detach func. Detaching twice is a no-op.
func (c *Client) OnTableState(fn func(*types.TableSnapshot)) (detach func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.stateSubs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.stateSubs, id)
		c.mu.Unlock()
	}
}

// OnChat attaches a listener to the chat stream; same detach semantics
// as OnTableState.
func (c *Client) OnChat(fn func(*types.ChatMessage)) (detach func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.chatSubs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.chatSubs, id)
		c.mu.Unlock()
	}
}

func (c *Client) write(ctx context.Context, env types.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	status := c.status
	c.mu.Unlock()
	if status != StatusConnected || conn == nil {
		return ErrDisconnected
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, frame)
}
