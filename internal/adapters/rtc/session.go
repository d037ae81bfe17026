// Package rtc binds the media-session interface to a WebRTC peer
// connection. It is the production implementation; tests drive the
// orchestrator through fakes instead.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// MediaConn implements core.MediaSession over a pion PeerConnection.
// Remote identities are carried in the remote track's stream id.
type MediaConn struct {
	cfg webrtc.Configuration

	mu        sync.Mutex
	pc        *webrtc.PeerConnection
	id        domain.MediaID
	channel   string
	publisher bool
	senders   []*webrtc.RTPSender
	cancel    context.CancelFunc
	remotes   map[domain.MediaID]struct{}

	onUserJoined func(domain.MediaID)
	onUserLeft   func(domain.MediaID)
	onICE        func(webrtc.ICECandidateInit)
	onClosed     func()
}

func NewMediaConn(cfg webrtc.Configuration) *MediaConn {
	return &MediaConn{
		cfg:     cfg,
		remotes: make(map[domain.MediaID]struct{}),
	}
}

func (c *MediaConn) OnUserJoined(fn func(domain.MediaID)) { c.onUserJoined = fn }
func (c *MediaConn) OnUserLeft(fn func(domain.MediaID))   { c.onUserLeft = fn }
func (c *MediaConn) OnClosed(fn func())                   { c.onClosed = fn }

// OnICECandidate registers the callback relaying local candidates to the
// signaling channel. Set before Join.
func (c *MediaConn) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICE = fn }

// Join opens the peer connection under the given media identity. The token
// is carried to the signaling exchange out of band; this adapter only needs
// the connection lifecycle.
func (c *MediaConn) Join(ctx context.Context, channel, token string, id domain.MediaID) error {
	if token == "" {
		return errors.New("join without token")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pc != nil {
		return fmt.Errorf("already joined %s", c.channel)
	}

	pc, err := webrtc.NewPeerConnection(c.cfg)
	if err != nil {
		return fmt.Errorf("new peer connection: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.pc = pc
	c.id = id
	c.channel = channel
	c.cancel = cancel

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").
			Uint32("media_id", uint32(id)).
			Str("ice_state", s.String()).
			Msg("ICE state")
		if s == webrtc.ICEConnectionStateDisconnected ||
			s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			if c.onClosed != nil {
				c.onClosed()
			}
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		c.handleRemoteTrack(ctx, track)
	})

	log.Info().Str("module", "rtc").
		Str("channel", channel).
		Uint32("media_id", uint32(id)).
		Msg("joined media channel")
	return nil
}

// handleRemoteTrack maps a remote track to its media identity and drains its
// RTP until it ends, reporting join/leave around the read loop.
func (c *MediaConn) handleRemoteTrack(ctx context.Context, track *webrtc.TrackRemote) {
	remoteID, err := strconv.ParseUint(track.StreamID(), 10, 32)
	if err != nil {
		log.Warn().Str("module", "rtc").
			Str("stream_id", track.StreamID()).
			Msg("remote track without numeric identity, ignoring")
		return
	}
	id := domain.MediaID(remoteID)

	c.mu.Lock()
	_, known := c.remotes[id]
	c.remotes[id] = struct{}{}
	c.mu.Unlock()
	if !known && c.onUserJoined != nil {
		c.onUserJoined(id)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if _, _, err := track.ReadRTP(); err != nil {
				c.mu.Lock()
				delete(c.remotes, id)
				c.mu.Unlock()
				if c.onUserLeft != nil {
					c.onUserLeft(id)
				}
				return
			}
		}
	}()
}

// ApplyOfferAndCreateAnswer negotiates against a remote offer from the
// signaling channel. The answer is returned after candidate gathering
// completes, so it carries the full local candidate set even when the
// trickle path is lossy.
func (c *MediaConn) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()
	if pc == nil {
		return nil, errors.New("not joined")
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	<-gatherComplete

	log.Info().Str("module", "rtc").
		Uint32("media_id", uint32(c.id)).
		Msg("answer created")
	return pc.LocalDescription(), nil
}

// AddRemoteCandidate feeds one trickled remote candidate into the peer
// connection. Valid only after the remote description was applied.
func (c *MediaConn) AddRemoteCandidate(ci webrtc.ICECandidateInit) error {
	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()
	if pc == nil {
		return errors.New("not joined")
	}
	return pc.AddICECandidate(ci)
}

// SetPublisher flips the session between publisher and subscriber roles.
func (c *MediaConn) SetPublisher(ctx context.Context, publisher bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pc == nil {
		return errors.New("not joined")
	}
	c.publisher = publisher
	return nil
}

// Publish attaches local tracks. Requires publisher role.
func (c *MediaConn) Publish(tracks ...*webrtc.TrackLocalStaticRTP) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pc == nil {
		return errors.New("not joined")
	}
	if !c.publisher {
		return errors.New("publish as subscriber")
	}
	for _, t := range tracks {
		sender, err := c.pc.AddTrack(t)
		if err != nil {
			return fmt.Errorf("add track %s: %w", t.ID(), err)
		}
		c.senders = append(c.senders, sender)
	}
	log.Info().Str("module", "rtc").
		Uint32("media_id", uint32(c.id)).
		Int("tracks", len(tracks)).
		Msg("published")
	return nil
}

// Unpublish removes all local tracks. Idempotent.
func (c *MediaConn) Unpublish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pc == nil {
		return nil
	}
	for _, s := range c.senders {
		if err := c.pc.RemoveTrack(s); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Msg("remove track")
		}
	}
	c.senders = nil
	return nil
}

// Leave closes the peer connection. Safe when not joined.
func (c *MediaConn) Leave(ctx context.Context) error {
	c.mu.Lock()
	pc := c.pc
	cancel := c.cancel
	c.pc = nil
	c.cancel = nil
	c.senders = nil
	c.remotes = make(map[domain.MediaID]struct{})
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pc == nil {
		return nil
	}
	if err := pc.Close(); err != nil {
		return fmt.Errorf("close peer connection: %w", err)
	}
	log.Info().Str("module", "rtc").Uint32("media_id", uint32(c.id)).Msg("left media channel")
	return nil
}
