package app

import (
	"context"
	"errors"
	"testing"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

func TestRoleMachineInitialRole(t *testing.T) {
	if got := NewRoleMachine(true, &fakeMedia{}, &fakeCapture{}).Role(); got != domain.RoleHost {
		t.Fatalf("creator starts as %s", got)
	}
	if got := NewRoleMachine(false, &fakeMedia{}, &fakeCapture{}).Role(); got != domain.RoleAudience {
		t.Fatalf("non-creator starts as %s", got)
	}
}

func TestApplyThenPromote(t *testing.T) {
	ctx := context.Background()
	media := &fakeMedia{}
	capture := &fakeCapture{}
	m := NewRoleMachine(false, media, capture)

	var changes []RoleChange
	cancel := m.OnChange(func(c RoleChange) { changes = append(changes, c) })
	defer cancel()

	if err := m.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if m.Role() != domain.RolePromotionRequested {
		t.Fatalf("role after apply: %s", m.Role())
	}

	// Re-applying while pending is rejected.
	if err := m.Apply(); !errors.Is(err, core.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if err := m.Promote(ctx); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if m.Role() != domain.RolePromoted {
		t.Fatalf("role after promote: %s", m.Role())
	}
	if !capture.isAcquired() || !media.isPublishing() {
		t.Fatal("promote did not publish")
	}

	want := []RoleChange{
		{From: domain.RoleAudience, To: domain.RolePromotionRequested},
		{From: domain.RolePromotionRequested, To: domain.RolePromoted},
	}
	if len(changes) != len(want) || changes[0] != want[0] || changes[1] != want[1] {
		t.Fatalf("unexpected transitions: %+v", changes)
	}
}

func TestPromoteIdempotent(t *testing.T) {
	ctx := context.Background()
	media := &fakeMedia{}
	m := NewRoleMachine(false, media, &fakeCapture{})

	if err := m.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := m.Promote(ctx); err != nil {
		t.Fatalf("first promote: %v", err)
	}
	if err := m.Promote(ctx); err != nil {
		t.Fatalf("second promote: %v", err)
	}
	if m.Role() != domain.RolePromoted {
		t.Fatalf("role after double promote: %s", m.Role())
	}
}

func TestPromoteCaptureFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	media := &fakeMedia{}
	capture := &fakeCapture{fail: true}
	m := NewRoleMachine(false, media, capture)

	if err := m.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	err := m.Promote(ctx)
	if !errors.Is(err, core.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if m.Role() != domain.RoleAudience {
		t.Fatalf("role after failed promote: %s", m.Role())
	}
	if media.isPublishing() {
		t.Fatal("failed promote left media published")
	}

	// The participant may apply again after the rollback.
	capture.fail = false
	if err := m.Apply(); err != nil {
		t.Fatalf("re-apply after rollback: %v", err)
	}
}

func TestPromotePublishFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	media := &fakeMedia{pubErr: errors.New("boom")}
	capture := &fakeCapture{}
	m := NewRoleMachine(false, media, capture)

	if err := m.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := m.Promote(ctx); err == nil {
		t.Fatal("expected publish failure")
	}
	if m.Role() != domain.RoleAudience {
		t.Fatalf("role after failed promote: %s", m.Role())
	}
	if capture.isAcquired() {
		t.Fatal("failed promote kept capture")
	}
}

func TestDemote(t *testing.T) {
	ctx := context.Background()
	media := &fakeMedia{}
	capture := &fakeCapture{}
	m := NewRoleMachine(false, media, capture)

	// Demoting an audience member is a no-op.
	if err := m.Demote(ctx); err != nil {
		t.Fatalf("demote audience: %v", err)
	}

	if err := m.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Demote clears a pending request.
	if err := m.Demote(ctx); err != nil {
		t.Fatalf("demote pending: %v", err)
	}
	if m.Role() != domain.RoleAudience {
		t.Fatalf("role after clearing request: %s", m.Role())
	}

	if err := m.Apply(); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if err := m.Promote(ctx); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := m.Demote(ctx); err != nil {
		t.Fatalf("demote promoted: %v", err)
	}
	if m.Role() != domain.RoleAudience {
		t.Fatalf("role after demote: %s", m.Role())
	}
	if media.isPublishing() || capture.isAcquired() {
		t.Fatal("demote left resources held")
	}
}

func TestStartEndShow(t *testing.T) {
	ctx := context.Background()
	media := &fakeMedia{}
	capture := &fakeCapture{}
	m := NewRoleMachine(true, media, capture)

	if err := m.StartShow(ctx); err != nil {
		t.Fatalf("start show: %v", err)
	}
	if !media.isPublishing() {
		t.Fatal("start show did not publish")
	}

	if err := m.EndShow(ctx); err != nil {
		t.Fatalf("end show: %v", err)
	}
	if media.isPublishing() || capture.isAcquired() {
		t.Fatal("end show left resources held")
	}
	if m.Role() != domain.RoleHost {
		t.Fatalf("host lost role on end show: %s", m.Role())
	}
}

func TestShowHostOnly(t *testing.T) {
	ctx := context.Background()
	m := NewRoleMachine(false, &fakeMedia{}, &fakeCapture{})
	if err := m.StartShow(ctx); !errors.Is(err, core.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := m.EndShow(ctx); !errors.Is(err, core.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}
