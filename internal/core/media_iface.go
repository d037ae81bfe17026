package core

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// MediaSession is the narrow surface the orchestrator needs from a media
// channel connection. The vendor stack behind it is not reimplemented here;
// the adapter owns the real connection and must Close() it.
type MediaSession interface {
	// Join connects to the channel under the given media identity. The token
	// must be fetched beforehand.
	Join(ctx context.Context, channel, token string, id domain.MediaID) error
	// Leave disconnects. Safe to call when not joined.
	Leave(ctx context.Context) error

	// SetPublisher switches the session between publisher and subscriber
	// roles. Must be called before Publish.
	SetPublisher(ctx context.Context, publisher bool) error
	// Publish attaches local tracks to the session.
	Publish(tracks ...*webrtc.TrackLocalStaticRTP) error
	// Unpublish detaches all local tracks. Idempotent.
	Unpublish() error

	// OnUserJoined sets a callback for remote media identities appearing.
	OnUserJoined(func(domain.MediaID))
	// OnUserLeft sets a callback for remote media identities disappearing.
	OnUserLeft(func(domain.MediaID))
	// OnClosed sets a callback for session teardown, expected or not.
	OnClosed(func())
}

// Capture acquires local capture devices and hands out publishable tracks.
// Acquire failures surface as ErrDeviceUnavailable.
type Capture interface {
	Acquire(ctx context.Context) ([]*webrtc.TrackLocalStaticRTP, error)
	Release()
}
