package app

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// fakeMedia records calls against core.MediaSession and lets tests fail
// individual steps.
type fakeMedia struct {
	mu sync.Mutex

	joined     bool
	channel    string
	publisher  bool
	published  bool
	joinErr    error
	pubErr     error
	setRoleErr error

	onJoined func(domain.MediaID)
	onLeft   func(domain.MediaID)
	onClosed func()
}

func (f *fakeMedia) Join(ctx context.Context, channel, token string, id domain.MediaID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = true
	f.channel = channel
	return nil
}

func (f *fakeMedia) Leave(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = false
	return nil
}

func (f *fakeMedia) SetPublisher(ctx context.Context, publisher bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setRoleErr != nil {
		return f.setRoleErr
	}
	f.publisher = publisher
	return nil
}

func (f *fakeMedia) Publish(tracks ...*webrtc.TrackLocalStaticRTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = true
	return nil
}

func (f *fakeMedia) Unpublish() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = false
	return nil
}

func (f *fakeMedia) OnUserJoined(fn func(domain.MediaID)) { f.onJoined = fn }
func (f *fakeMedia) OnUserLeft(fn func(domain.MediaID))   { f.onLeft = fn }
func (f *fakeMedia) OnClosed(fn func())                   { f.onClosed = fn }

func (f *fakeMedia) isPublishing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published
}

// fakeCapture implements core.Capture without touching real devices.
type fakeCapture struct {
	mu       sync.Mutex
	acquired bool
	fail     bool
}

func (f *fakeCapture) Acquire(ctx context.Context) ([]*webrtc.TrackLocalStaticRTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("device busy")
	}
	f.acquired = true
	return nil, nil
}

func (f *fakeCapture) Release() {
	f.mu.Lock()
	f.acquired = false
	f.mu.Unlock()
}

func (f *fakeCapture) isAcquired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired
}

// fakeTokens hands out static tokens and records requests.
type fakeTokens struct {
	mu    sync.Mutex
	calls []core.TokenKind
	err   error
}

func (f *fakeTokens) Token(ctx context.Context, channel string, id domain.MediaID,
	role domain.Role, messagingID domain.MessagingID, kind core.TokenKind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, kind)
	return "token", nil
}
