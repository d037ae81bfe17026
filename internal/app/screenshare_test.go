package app

import (
	"context"
	"errors"
	"testing"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

func newTestScreenShare(role domain.Role, capture *fakeCapture) (*ScreenShare, *Registry, *[]*fakeMedia) {
	reg := NewRegistry()
	sessions := &[]*fakeMedia{}
	s := NewScreenShare(
		"room", "member-1", "Alice",
		func() domain.Role { return role },
		&fakeTokens{},
		func() core.MediaSession {
			m := &fakeMedia{}
			*sessions = append(*sessions, m)
			return m
		},
		capture,
		reg,
	)
	return s, reg, sessions
}

func TestScreenShareStartStop(t *testing.T) {
	ctx := context.Background()
	capture := &fakeCapture{}
	s, reg, sessions := newTestScreenShare(domain.RoleHost, capture)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Active() {
		t.Fatal("not active after start")
	}
	wantID := domain.DeriveMediaID(domain.ScreenIdentity("member-1"))
	if s.MediaID() != wantID {
		t.Fatalf("media id %d, want %d", s.MediaID(), wantID)
	}
	if !reg.IsScreen(wantID) {
		t.Fatal("screen identity not registered")
	}
	if len(*sessions) != 1 || !(*sessions)[0].isPublishing() {
		t.Fatal("secondary session not publishing")
	}

	s.Stop(ctx)
	if s.Active() || s.MediaID() != 0 {
		t.Fatal("still active after stop")
	}
	if capture.isAcquired() {
		t.Fatal("capture held after stop")
	}
	if reg.IsScreen(wantID) {
		t.Fatal("screen identity not forgotten")
	}
}

func TestScreenShareStartIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _, sessions := newTestScreenShare(domain.RoleHost, &fakeCapture{})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if len(*sessions) != 1 {
		t.Fatalf("duplicate sessions created: %d", len(*sessions))
	}
}

func TestScreenShareRoleGate(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestScreenShare(domain.RoleAudience, &fakeCapture{})
	if err := s.Start(ctx); !errors.Is(err, core.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestScreenShareCaptureFailure(t *testing.T) {
	ctx := context.Background()
	capture := &fakeCapture{fail: true}
	s, _, sessions := newTestScreenShare(domain.RolePromoted, capture)

	if err := s.Start(ctx); !errors.Is(err, core.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if s.Active() {
		t.Fatal("active after failed start")
	}
	if len(*sessions) != 1 || (*sessions)[0].joined {
		t.Fatal("failed start left session joined")
	}

	// Startable again once the device frees up.
	capture.fail = false
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
}

func TestScreenShareStopWhenIdle(t *testing.T) {
	s, _, _ := newTestScreenShare(domain.RoleHost, &fakeCapture{})
	s.Stop(context.Background())
	if s.Active() {
		t.Fatal("idle stop changed state")
	}
}
