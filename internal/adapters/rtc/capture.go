package rtc

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// TrackCapture implements core.Capture with static RTP tracks. The actual
// sample producer (device reader, encoder) feeds packets in through
// WriteRTP; the orchestrator only cares about acquire/release semantics.
// The media identity is resolved at Acquire time because captures are wired
// before the session identity exists.
type TrackCapture struct {
	idFn  func() domain.MediaID
	kinds []webrtc.RTPCodecCapability

	mu     sync.Mutex
	tracks []*webrtc.TrackLocalStaticRTP
}

// NewMicCapture builds a capture producing a single opus audio track.
func NewMicCapture(idFn func() domain.MediaID) *TrackCapture {
	return &TrackCapture{
		idFn: idFn,
		kinds: []webrtc.RTPCodecCapability{
			{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		},
	}
}

// NewCameraCapture builds a capture producing opus audio plus VP8 video.
func NewCameraCapture(idFn func() domain.MediaID) *TrackCapture {
	return &TrackCapture{
		idFn: idFn,
		kinds: []webrtc.RTPCodecCapability{
			{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		},
	}
}

// NewScreenCapture builds a capture producing a single VP8 video track.
func NewScreenCapture(idFn func() domain.MediaID) *TrackCapture {
	return &TrackCapture{
		idFn: idFn,
		kinds: []webrtc.RTPCodecCapability{
			{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		},
	}
}

// Acquire creates the local tracks. The stream id carries the numeric media
// identity so receivers can map tracks back to participants.
func (c *TrackCapture) Acquire(ctx context.Context) ([]*webrtc.TrackLocalStaticRTP, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracks != nil {
		return c.tracks, nil
	}
	streamID := strconv.FormatUint(uint64(c.idFn()), 10)
	tracks := make([]*webrtc.TrackLocalStaticRTP, 0, len(c.kinds))
	for i, codec := range c.kinds {
		track, err := webrtc.NewTrackLocalStaticRTP(codec, fmt.Sprintf("track-%d", i), streamID)
		if err != nil {
			return nil, fmt.Errorf("create local track: %w", err)
		}
		tracks = append(tracks, track)
	}
	c.tracks = tracks
	return tracks, nil
}

// Release drops the tracks so the next Acquire starts fresh.
func (c *TrackCapture) Release() {
	c.mu.Lock()
	c.tracks = nil
	c.mu.Unlock()
}

// WriteRTP forwards one produced packet to the nth acquired track. No-op
// when nothing is acquired.
func (c *TrackCapture) WriteRTP(n int, pkt *rtp.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 || n >= len(c.tracks) {
		return nil
	}
	return c.tracks[n].WriteRTP(pkt)
}
