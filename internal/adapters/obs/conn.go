package obs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/app"
	"github.com/frank005/broadcastaway-sub000/internal/core"
)

// State is the connection's position in the handshake.
type State int

const (
	StateDisconnected State = iota
	StateHelloReceived
	StateAuthenticating
	StateIdentified
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHelloReceived:
		return "hello_received"
	case StateAuthenticating:
		return "authenticating"
	case StateIdentified:
		return "identified"
	default:
		return "unknown"
	}
}

// RequestTimeout bounds every request. The tool's socket may silently drop
// messages, so an unanswered request must reject locally rather than hang.
const RequestTimeout = 5 * time.Second

var ErrBackpressure = errors.New("backpressure")

// Socket is the indirection over *websocket.Conn to ease testing.
type Socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Event is one unsolicited frame from the tool.
type Event struct {
	Type string
	Data json.RawMessage
}

type pendingResult struct {
	resp responseFrame
	err  error
}

// Client drives the production tool's control socket: handshake with
// optional challenge auth, request/reply with per-request timeout, event
// fanout, and pollers bound to the connection lifetime.
type Client struct {
	password string
	timeout  time.Duration

	mu      sync.Mutex
	state   State
	sock    Socket
	closed  bool
	pending map[string]chan pendingResult
	cancel  context.CancelFunc

	send       chan []byte
	identified chan struct{}

	events *app.Bus[Event]
	states *app.Bus[State]

	status     *statusPoller
	screenshot *screenshotPoller
}

// NewClient wraps an already-open socket. Use Dial for the full connect.
func NewClient(sock Socket, password string) *Client {
	c := &Client{
		password:   password,
		timeout:    RequestTimeout,
		sock:       sock,
		pending:    make(map[string]chan pendingResult),
		send:       make(chan []byte, 32),
		identified: make(chan struct{}),
		events:     app.NewBus[Event](),
		states:     app.NewBus[State](),
	}
	c.status = newStatusPoller(c)
	c.screenshot = newScreenshotPoller(c)
	return c
}

// Dial connects, performs the handshake, and returns once the client is
// identified and usable.
func Dial(ctx context.Context, url, password string) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := NewClient(ws, password)
	c.Run(ctx)

	select {
	case <-c.identified:
		return c, nil
	case <-time.After(c.timeout):
		c.Close()
		return nil, fmt.Errorf("handshake: %w", core.ErrRequestTimeout)
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

// Run starts the read and write pumps. The connection and everything it
// owns (pollers, pending requests) stops when ctx ends or the socket drops.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	go c.writePump(ctx)
	go c.readPump(ctx)
}

// State returns the current handshake state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identified reports whether the socket is usable for requests.
func (c *Client) Identified() bool {
	return c.State() == StateIdentified
}

// OnEvent registers a listener for unsolicited events.
func (c *Client) OnEvent(fn func(Event)) func() {
	return c.events.Subscribe(fn)
}

// OnStateChange registers a listener for handshake state transitions.
func (c *Client) OnStateChange(fn func(State)) func() {
	return c.states.Subscribe(fn)
}

// OnStatus registers a listener for the low-frequency scene/stream poller.
func (c *Client) OnStatus(fn func(Status)) func() {
	return c.status.updates.Subscribe(fn)
}

// OnScreenshot registers a listener for the program-output thumbnail poller.
func (c *Client) OnScreenshot(fn func(Screenshot)) func() {
	return c.screenshot.updates.Subscribe(fn)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		log.Info().Str("module", "obs").
			Str("from", prev.String()).Str("to", s.String()).
			Msg("connection state")
		c.states.Publish(s)
	}
}

// Request sends one request and waits for its reply. A non-success status
// rejects with a RequestError; no reply within the timeout rejects with
// core.ErrRequestTimeout and evicts the pending entry.
func (c *Client) Request(ctx context.Context, reqType string, data any) (json.RawMessage, error) {
	if !c.Identified() {
		return nil, fmt.Errorf("request %s before identified: %w", reqType, core.ErrConnectionLost)
	}

	id := uuid.NewString()
	ch := make(chan pendingResult, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, core.ErrConnectionLost
	}
	c.pending[id] = ch
	c.mu.Unlock()

	frame, err := encodeFrame(OpRequest, requestFrame{
		RequestType: reqType,
		RequestID:   id,
		RequestData: data,
	})
	if err != nil {
		c.removePending(id)
		return nil, fmt.Errorf("encode %s: %w", reqType, err)
	}
	if err := c.trySend(frame); err != nil {
		c.removePending(id)
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.resp.RequestStatus.Code != StatusSuccess {
			return nil, fmt.Errorf("%s: %w", reqType, &RequestError{
				Code:    res.resp.RequestStatus.Code,
				Comment: res.resp.RequestStatus.Comment,
			})
		}
		return res.resp.ResponseData, nil
	case <-timer.C:
		c.removePending(id)
		return nil, fmt.Errorf("%s: %w", reqType, core.ErrRequestTimeout)
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

func (c *Client) removePending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) trySend(frame []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return core.ErrConnectionLost
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.sock.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "obs").Msg("writePump set deadline")
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "obs").Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer c.teardown()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.sock.ReadMessage()
			if err != nil {
				log.Warn().Err(err).Str("module", "obs").Msg("readPump read error")
				return
			}
			c.handleFrame(ctx, data)
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "obs").Msg("bad frame")
		return
	}

	switch env.Op {
	case OpHello:
		c.handleHello(env.D)
	case OpIdentified:
		c.handleIdentified(ctx, env.D)
	case OpEvent:
		c.handleEvent(env.D)
	case OpRequestResponse:
		c.handleResponse(env.D)
	default:
		log.Warn().Str("module", "obs").Int("op", int(env.Op)).Msg("unknown op")
	}
}

func (c *Client) handleHello(d json.RawMessage) {
	var hello helloData
	if err := json.Unmarshal(d, &hello); err != nil {
		log.Error().Err(err).Str("module", "obs").Msg("bad hello")
		return
	}
	c.setState(StateHelloReceived)

	identify := identifyData{RPCVersion: rpcVersion}
	if hello.Authentication != nil {
		// Auth enabled: answer the challenge before identifying.
		c.setState(StateAuthenticating)
		identify.Authentication = authResponse(
			c.password,
			hello.Authentication.Salt,
			hello.Authentication.Challenge,
		)
	}

	frame, err := encodeFrame(OpIdentify, identify)
	if err != nil {
		log.Error().Err(err).Str("module", "obs").Msg("encode identify")
		return
	}
	if err := c.trySend(frame); err != nil {
		log.Error().Err(err).Str("module", "obs").Msg("send identify")
	}
}

func (c *Client) handleIdentified(ctx context.Context, d json.RawMessage) {
	var ident identifiedData
	_ = json.Unmarshal(d, &ident)
	c.setState(StateIdentified)

	c.mu.Lock()
	select {
	case <-c.identified:
	default:
		close(c.identified)
	}
	c.mu.Unlock()

	log.Info().Str("module", "obs").
		Int("rpc_version", ident.NegotiatedRPCVersion).
		Msg("identified")

	c.status.start(ctx)
	c.screenshot.start(ctx)
}

func (c *Client) handleEvent(d json.RawMessage) {
	var ev eventFrame
	if err := json.Unmarshal(d, &ev); err != nil {
		log.Error().Err(err).Str("module", "obs").Msg("bad event")
		return
	}
	c.events.Publish(Event{Type: ev.EventType, Data: ev.EventData})
}

func (c *Client) handleResponse(d json.RawMessage) {
	var resp responseFrame
	if err := json.Unmarshal(d, &resp); err != nil {
		log.Error().Err(err).Str("module", "obs").Msg("bad response")
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	if ok {
		delete(c.pending, resp.RequestID)
	}
	c.mu.Unlock()
	if !ok {
		// Reply for a request we no longer track (timed out, or never ours).
		log.Warn().Str("module", "obs").
			Str("request_id", resp.RequestID).
			Msg("response for unknown request, dropping")
		return
	}
	ch <- pendingResult{resp: resp}
}

// Close tears the connection down: pollers stop, every pending request is
// rejected rather than left dangling, and state returns to Disconnected.
func (c *Client) Close() {
	c.teardown()
}

func (c *Client) teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	stale := c.pending
	c.pending = make(map[string]chan pendingResult)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for id, ch := range stale {
		log.Debug().Str("module", "obs").Str("request_id", id).Msg("rejecting pending request on close")
		ch <- pendingResult{err: core.ErrConnectionLost}
	}
	_ = c.sock.Close()
	c.setState(StateDisconnected)
}
