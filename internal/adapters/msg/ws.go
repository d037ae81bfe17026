// Package msg binds the messaging-session interface to a WebSocket
// gateway. Presence, control messages, and the media signaling relay share
// the socket; delivery order is the gateway's publish order.
package msg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type frame struct {
	Type      string                   `json:"type"`
	ID        domain.MessagingID       `json:"id,omitempty"`
	Name      string                   `json:"name,omitempty"`
	Joined    bool                     `json:"joined,omitempty"`
	Token     string                   `json:"token,omitempty"`
	Control   *core.ControlMessage     `json:"control,omitempty"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

const defaultPingPeriod = 54 * time.Second

// WSMessaging implements core.MessagingSession over one WebSocket. The
// connection is kept alive with pings every pingPeriod; a peer that stops
// answering is treated as gone when the read deadline expires.
type WSMessaging struct {
	url        string
	pingPeriod time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
	closed bool

	onMessage   func(core.ControlMessage)
	onPresence  func(core.PresenceEvent)
	onOffer     func(webrtc.SessionDescription)
	onCandidate func(webrtc.ICECandidateInit)
	onClosed    func()
}

func NewWSMessaging(url string, pingPeriod time.Duration) *WSMessaging {
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	return &WSMessaging{url: url, pingPeriod: pingPeriod}
}

// pongWait leaves the peer a grace window beyond one ping period.
func (m *WSMessaging) pongWait() time.Duration {
	return m.pingPeriod * 10 / 9
}

func (m *WSMessaging) OnMessage(fn func(core.ControlMessage)) { m.onMessage = fn }
func (m *WSMessaging) OnPresence(fn func(core.PresenceEvent)) { m.onPresence = fn }
func (m *WSMessaging) OnClosed(fn func())                     { m.onClosed = fn }

// OnOffer registers the callback for media offers relayed by the gateway.
func (m *WSMessaging) OnOffer(fn func(webrtc.SessionDescription)) { m.onOffer = fn }

// OnRemoteCandidate registers the callback for trickled remote candidates.
func (m *WSMessaging) OnRemoteCandidate(fn func(webrtc.ICECandidateInit)) { m.onCandidate = fn }

// Login dials the gateway and announces the identity. A gateway rejection
// surfaces as ErrAuthFailure.
func (m *WSMessaging) Login(ctx context.Context, token string, id domain.MessagingID) error {
	m.mu.Lock()
	if m.conn != nil {
		m.mu.Unlock()
		return fmt.Errorf("already logged in")
	}
	m.mu.Unlock()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("messaging login: %w", core.ErrAuthFailure)
		}
		return fmt.Errorf("messaging dial: %w", err)
	}

	login, err := json.Marshal(frame{Type: "login", ID: id, Token: token})
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, login); err != nil {
		_ = conn.Close()
		return fmt.Errorf("messaging login write: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(m.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.pongWait()))
	})

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.conn = conn
	m.cancel = cancel
	m.closed = false
	m.send = make(chan []byte, 32)
	m.mu.Unlock()

	go m.writePump(ctx)
	go m.readPump(ctx)
	return nil
}

// Logout closes the socket. Safe when not logged in.
func (m *WSMessaging) Logout(ctx context.Context) error {
	m.teardown(false)
	return nil
}

// Publish sends one control message to the channel.
func (m *WSMessaging) Publish(ctx context.Context, msg core.ControlMessage) error {
	return m.sendFrame(frame{Type: "control", Control: &msg})
}

// SendAnswer relays the local media answer back through the gateway.
func (m *WSMessaging) SendAnswer(ctx context.Context, answer webrtc.SessionDescription) error {
	return m.sendFrame(frame{Type: "answer", SDP: answer.SDP})
}

// SendCandidate relays one local ICE candidate through the gateway.
func (m *WSMessaging) SendCandidate(ctx context.Context, ci webrtc.ICECandidateInit) error {
	return m.sendFrame(frame{Type: "candidate", Candidate: &ci})
}

func (m *WSMessaging) sendFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	m.mu.Lock()
	closed := m.closed || m.conn == nil
	send := m.send
	m.mu.Unlock()
	if closed {
		return core.ErrConnectionLost
	}
	select {
	case send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (m *WSMessaging) writePump(ctx context.Context) {
	ticker := time.NewTicker(m.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn := m.currentConn()
			if conn == nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("module", "msg").Msg("writePump ping error")
				return
			}
		case data, ok := <-m.send:
			if !ok {
				return
			}
			conn := m.currentConn()
			if conn == nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "msg").Msg("writePump write error")
				return
			}
		}
	}
}

func (m *WSMessaging) currentConn() *websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *WSMessaging) readPump(ctx context.Context) {
	defer m.teardown(true)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			m.mu.Lock()
			conn := m.conn
			m.mu.Unlock()
			if conn == nil {
				return
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Warn().Err(err).Str("module", "msg").Msg("readPump read error")
				return
			}
			m.handle(data)
		}
	}
}

func (m *WSMessaging) handle(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Error().Err(err).Str("module", "msg").Msg("bad frame")
		return
	}
	switch f.Type {
	case "control":
		if f.Control != nil && m.onMessage != nil {
			m.onMessage(*f.Control)
		}
	case "presence":
		if m.onPresence != nil {
			m.onPresence(core.PresenceEvent{
				ID:          f.ID,
				DisplayName: f.Name,
				Joined:      f.Joined,
			})
		}
	case "offer":
		if f.SDP != "" && m.onOffer != nil {
			m.onOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: f.SDP})
		}
	case "candidate":
		if f.Candidate != nil && m.onCandidate != nil {
			m.onCandidate(*f.Candidate)
		}
	case "ban":
		// Gateway-originated eviction. Surfaced as a control message so the
		// session layer handles it on the same path as stage control.
		log.Warn().Str("module", "msg").Str("id", string(f.ID)).Msg("ban frame")
		if m.onMessage != nil {
			m.onMessage(core.ControlMessage{Kind: core.ControlBanned, Target: string(f.ID)})
		}
	default:
		log.Warn().Str("module", "msg").Str("type", f.Type).Msg("unknown frame")
	}
}

func (m *WSMessaging) teardown(notify bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	cancel := m.cancel
	m.conn = nil
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if notify && m.onClosed != nil {
		m.onClosed()
	}
}
