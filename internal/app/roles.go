package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// RoleChange is published after every successful transition.
type RoleChange struct {
	From domain.Role
	To   domain.Role
}

// RoleMachine tracks the local participant's stage role and drives the media
// side effects of transitions. Publish/unpublish is always a consequence of a
// transition, never a trigger. Transitions are serialized by an in-flight
// flag; a second transition while one is running fails with core.ErrBusy
// instead of producing duplicate publishes.
type RoleMachine struct {
	mu       sync.Mutex
	role     domain.Role
	inFlight bool

	media   core.MediaSession
	capture core.Capture
	changes *Bus[RoleChange]
}

// NewRoleMachine starts in RoleHost iff the local participant created the
// channel, RoleAudience otherwise.
func NewRoleMachine(creator bool, media core.MediaSession, capture core.Capture) *RoleMachine {
	role := domain.RoleAudience
	if creator {
		role = domain.RoleHost
	}
	return &RoleMachine{
		role:    role,
		media:   media,
		capture: capture,
		changes: NewBus[RoleChange](),
	}
}

func (m *RoleMachine) Role() domain.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.role
}

// OnChange registers a transition listener. Returns the cancel function.
func (m *RoleMachine) OnChange(fn func(RoleChange)) func() {
	return m.changes.Subscribe(fn)
}

// begin claims the in-flight flag or fails with ErrBusy.
func (m *RoleMachine) begin() (domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return m.role, core.ErrBusy
	}
	m.inFlight = true
	return m.role, nil
}

// finish releases the flag and commits the new role, publishing the change.
func (m *RoleMachine) finish(from, to domain.Role) {
	m.mu.Lock()
	m.role = to
	m.inFlight = false
	m.mu.Unlock()
	if from != to {
		log.Info().Str("module", "app.roles").
			Str("from", from.String()).Str("to", to.String()).
			Msg("role transition")
		m.changes.Publish(RoleChange{From: from, To: to})
	}
}

// Apply requests promotion: Audience → PromotionRequested. Re-applying while
// a request is pending is rejected, as is applying from the stage.
func (m *RoleMachine) Apply() error {
	from, err := m.begin()
	if err != nil {
		return err
	}
	if from != domain.RoleAudience {
		m.finish(from, from)
		return fmt.Errorf("apply from %s: %w", from, core.ErrNotAuthorized)
	}
	m.finish(from, domain.RolePromotionRequested)
	return nil
}

// Promote moves the local participant onto the stage: acquire capture,
// switch to publisher, publish. Promoting an already-promoted participant or
// a host is a no-op. Capture failure aborts the transition and rolls back to
// Audience so the participant may re-apply.
func (m *RoleMachine) Promote(ctx context.Context) error {
	from, err := m.begin()
	if err != nil {
		return err
	}
	if from == domain.RolePromoted || from == domain.RoleHost {
		m.finish(from, from)
		return nil
	}

	tracks, err := m.capture.Acquire(ctx)
	if err != nil {
		m.finish(from, domain.RoleAudience)
		return fmt.Errorf("acquire capture: %w", core.ErrDeviceUnavailable)
	}
	if err := m.media.SetPublisher(ctx, true); err != nil {
		m.capture.Release()
		m.finish(from, domain.RoleAudience)
		return fmt.Errorf("switch to publisher: %w", err)
	}
	if err := m.media.Publish(tracks...); err != nil {
		m.capture.Release()
		_ = m.media.SetPublisher(ctx, false)
		m.finish(from, domain.RoleAudience)
		return fmt.Errorf("publish: %w", err)
	}
	m.finish(from, domain.RolePromoted)
	return nil
}

// Demote takes the local participant off the stage: unpublish, release
// capture, back to subscriber. Demoting an audience member is a no-op. The
// promotion request is reset so the participant may re-apply.
func (m *RoleMachine) Demote(ctx context.Context) error {
	from, err := m.begin()
	if err != nil {
		return err
	}
	if from != domain.RolePromoted {
		// A pending request is also cleared by a demote.
		to := from
		if from == domain.RolePromotionRequested {
			to = domain.RoleAudience
		}
		m.finish(from, to)
		return nil
	}

	if err := m.media.Unpublish(); err != nil {
		log.Warn().Err(err).Str("module", "app.roles").Msg("unpublish on demote")
	}
	m.capture.Release()
	if err := m.media.SetPublisher(ctx, false); err != nil {
		log.Warn().Err(err).Str("module", "app.roles").Msg("role switch on demote")
	}
	m.finish(from, domain.RoleAudience)
	return nil
}

// StartShow publishes the host's media. Host only.
func (m *RoleMachine) StartShow(ctx context.Context) error {
	from, err := m.begin()
	if err != nil {
		return err
	}
	if from != domain.RoleHost {
		m.finish(from, from)
		return fmt.Errorf("start show as %s: %w", from, core.ErrNotAuthorized)
	}

	tracks, err := m.capture.Acquire(ctx)
	if err != nil {
		m.finish(from, from)
		return fmt.Errorf("acquire capture: %w", core.ErrDeviceUnavailable)
	}
	if err := m.media.SetPublisher(ctx, true); err != nil {
		m.capture.Release()
		m.finish(from, from)
		return fmt.Errorf("switch to publisher: %w", err)
	}
	if err := m.media.Publish(tracks...); err != nil {
		m.capture.Release()
		m.finish(from, from)
		return fmt.Errorf("publish: %w", err)
	}
	m.finish(from, from)
	return nil
}

// EndShow unpublishes the host's media while keeping the Host role and the
// channel membership. Teardown steps are best-effort: failures are logged,
// never fatal.
func (m *RoleMachine) EndShow(ctx context.Context) error {
	from, err := m.begin()
	if err != nil {
		return err
	}
	if from != domain.RoleHost {
		m.finish(from, from)
		return fmt.Errorf("end show as %s: %w", from, core.ErrNotAuthorized)
	}
	if err := m.media.Unpublish(); err != nil {
		log.Warn().Err(err).Str("module", "app.roles").Msg("unpublish on end show")
	}
	m.capture.Release()
	m.finish(from, from)
	return nil
}
