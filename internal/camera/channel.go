package camera

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kozaktomas/attendance-dashboard/internal/constants"
	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
)

// ChannelState is the connection state of an AI result channel.
type ChannelState int

const (
	Disconnected ChannelState = iota
	Connecting
	Open
	ClosedPendingRetry
)

func (s ChannelState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case ClosedPendingRetry:
		return "closed_pending_retry"
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON responses.
func (s ChannelState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *ChannelState) UnmarshalText(text []byte) error {
	for _, st := range []ChannelState{Disconnected, Connecting, Open, ClosedPendingRetry} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown channel state %q", text)
}

// Conn is the subset of a WebSocket connection used by a Channel.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens WebSocket connections. The context cancels an in-flight dial.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, header http.Header) (Conn, error)
}

// WebSocketDialer adapts a gorilla websocket.Dialer to Dialer.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
}

// DialContext dials urlStr with the wrapped dialer.
func (d WebSocketDialer) DialContext(ctx context.Context, urlStr string, header http.Header) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, urlStr, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	// URL returns the WebSocket URL for a camera id.
	URL        func(cameraID string) string
	Dialer     Dialer
	RetryDelay time.Duration
	Metrics    *metrics.Metrics
	// Reference is used for messages without ai_width/ai_height.
	Reference Reference
}

// Channel keeps one AI result socket per camera open while a source key is
// set and exposes the latest detection frame.
//
// Every connect attempt runs under its own generation. Teardown bumps the
// generation, cancels the in-flight dial, stops the pending retry timer and
// closes the socket with a normal closure, so callbacks of an older
// generation never touch the current state.
type Channel struct {
	cameraID   string
	url        func(cameraID string) string
	dialer     Dialer
	retryDelay time.Duration
	metrics    *metrics.Metrics
	ref        Reference

	mu     sync.Mutex
	key    string
	state  ChannelState
	gen    uint64
	cancel context.CancelFunc
	conn   Conn
	retry  *time.Timer
	frame  Frame
	subs   map[uuid.UUID]chan Frame
	closed bool
}

// NewChannel creates a disconnected channel for cameraID.
func NewChannel(cameraID string, opts ChannelOptions) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = constants.DefaultReconnectDelay
	}
	ref := opts.Reference.orDefault()
	c := &Channel{
		cameraID:   cameraID,
		ref:        ref,
		url:        opts.URL,
		dialer:     opts.Dialer,
		retryDelay: opts.RetryDelay,
		metrics:    opts.Metrics,
		state:      Disconnected,
		frame:      EmptyFrame(ref),
		subs:       make(map[uuid.UUID]chan Frame),
	}
	c.metrics.ChannelState(cameraID, int(Disconnected))
	return c
}

// CameraID returns the camera this channel belongs to.
func (c *Channel) CameraID() string {
	return c.cameraID
}

// State returns the current connection state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Key returns the current source key.
func (c *Channel) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Snapshot returns the latest frame.
func (c *Channel) Snapshot() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// SetSource switches the channel to key. The current socket is closed and
// the frame reset before a new connection is attempted; an empty key leaves
// the channel disconnected.
func (c *Channel) SetSource(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	old := c.teardownLocked()
	c.key = key
	c.setFrameLocked(EmptyFrame(c.ref))
	// the old reader blocks on mu until this returns and then sees a stale gen
	closeNormal(old)
	if key != "" {
		c.connectLocked()
	}
}

// Connect opens the socket for the current key. It is a no-op while a
// connection is open or being established, or when no key is set.
func (c *Channel) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.connectLocked()
}

// Close tears the channel down for good and ends all subscriptions.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	old := c.teardownLocked()
	c.key = ""
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()

	closeNormal(old)
}

// Subscribe returns a channel that receives the current frame immediately
// and every later frame. Slow subscribers only see the latest frame.
// The returned cancel func must be called to release the subscription.
func (c *Channel) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 1)
	id := uuid.New()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[id] = ch
	ch <- c.frame
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Channel) setStateLocked(s ChannelState) {
	c.state = s
	c.metrics.ChannelState(c.cameraID, int(s))
}

func (c *Channel) setFrameLocked(f Frame) {
	c.frame = f
	for _, ch := range c.subs {
		select {
		case ch <- f:
		default:
			// drop the stale frame so the newest one wins
			select {
			case <-ch:
			default:
			}
			ch <- f
		}
	}
}

// teardownLocked invalidates the current generation and returns the socket
// that must be closed once the lock is released.
func (c *Channel) teardownLocked() Conn {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	old := c.conn
	c.conn = nil
	c.setStateLocked(Disconnected)
	return old
}

func (c *Channel) connectLocked() {
	if c.key == "" || c.state == Open || c.state == Connecting {
		return
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setStateLocked(Connecting)

	go c.run(ctx, gen, c.url(c.cameraID))
}

func (c *Channel) run(ctx context.Context, gen uint64, url string) {
	conn, err := c.dialer.DialContext(ctx, url, nil)

	c.mu.Lock()
	if c.gen != gen {
		// superseded while dialing
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		log.Printf("[camera %s] AI channel dial failed: %v", c.cameraID, err)
		c.scheduleRetryLocked(gen)
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.setStateLocked(Open)
	key := c.key
	c.mu.Unlock()

	log.Printf("[camera %s] AI channel connected (source: %s)", c.cameraID, key)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.gen == gen {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, context.Canceled) {
					log.Printf("[camera %s] AI channel closed: %v", c.cameraID, err)
				}
				c.conn = nil
				conn.Close()
				c.scheduleRetryLocked(gen)
			}
			c.mu.Unlock()
			return
		}
		c.handleMessage(gen, data)
	}
}

func (c *Channel) handleMessage(gen uint64, data []byte) {
	frame, err := parseMessage(data, c.ref)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	if err != nil {
		c.metrics.ChannelDropped(c.cameraID)
		return
	}
	c.metrics.ChannelMessage(c.cameraID)
	c.setFrameLocked(frame)
}

// scheduleRetryLocked resets the frame and arms the reconnect timer for gen.
func (c *Channel) scheduleRetryLocked(gen uint64) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setFrameLocked(EmptyFrame(c.ref))
	if c.key == "" {
		c.setStateLocked(Disconnected)
		return
	}
	c.setStateLocked(ClosedPendingRetry)
	c.retry = time.AfterFunc(c.retryDelay, func() { c.retryFire(gen) })
}

func (c *Channel) retryFire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// the timer may fire concurrently with Stop; re-check ownership
	if c.closed || c.gen != gen || c.state != ClosedPendingRetry || c.key == "" {
		return
	}
	c.retry = nil
	c.metrics.ChannelReconnect(c.cameraID)
	c.connectLocked()
}

// closeNormal closes conn with a normal closure frame.
func closeNormal(conn Conn) {
	if conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, constants.NormalClosureReason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	conn.Close()
}
