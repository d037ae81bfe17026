package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// ScreenShare manages the auxiliary media session used for screen sharing.
// The session is fully independent of the primary one: own identity, own
// token, own join/leave. A failure here never touches the primary session.
type ScreenShare struct {
	channel     string
	primary     domain.MessagingID
	displayName string

	roleFn     func() domain.Role
	tokens     core.TokenProvider
	newSession func() core.MediaSession
	capture    core.Capture
	registry   *Registry

	mu       sync.Mutex
	active   bool
	inFlight bool
	session  core.MediaSession
	mediaID  domain.MediaID
}

// NewScreenShare wires a manager for the given primary identity. newSession
// must return a fresh, unjoined media session on every call so Stop can
// always restore a startable state.
func NewScreenShare(
	channel string,
	primary domain.MessagingID,
	displayName string,
	roleFn func() domain.Role,
	tokens core.TokenProvider,
	newSession func() core.MediaSession,
	capture core.Capture,
	registry *Registry,
) *ScreenShare {
	return &ScreenShare{
		channel:     channel,
		primary:     primary,
		displayName: displayName,
		roleFn:      roleFn,
		tokens:      tokens,
		newSession:  newSession,
		capture:     capture,
		registry:    registry,
	}
}

// Active reports whether the secondary session is up.
func (s *ScreenShare) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// MediaID returns the secondary session's media identity, 0 when inactive.
func (s *ScreenShare) MediaID() domain.MediaID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0
	}
	return s.mediaID
}

// Start opens the secondary session and publishes one captured source. Only
// a Host or Promoted participant may share. Starting while already started
// is a no-op.
func (s *ScreenShare) Start(ctx context.Context) error {
	if role := s.roleFn(); !role.CanPublish() {
		return fmt.Errorf("screen share as %s: %w", role, core.ErrNotAuthorized)
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	if s.inFlight {
		s.mu.Unlock()
		return core.ErrBusy
	}
	s.inFlight = true
	s.mu.Unlock()

	screenID := domain.ScreenIdentity(s.primary)
	mediaID := domain.DeriveMediaID(screenID)

	err := s.start(ctx, screenID, mediaID)

	s.mu.Lock()
	s.inFlight = false
	s.active = err == nil
	if err == nil {
		s.mediaID = mediaID
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.registry.BindScreen(mediaID, screenID, s.displayName)
	log.Info().Str("module", "app.screenshare").
		Uint32("media_id", uint32(mediaID)).
		Msg("screen share started")
	return nil
}

func (s *ScreenShare) start(ctx context.Context, screenID domain.MessagingID, mediaID domain.MediaID) error {
	token, err := s.tokens.Token(ctx, s.channel, mediaID, domain.RoleHost, screenID, core.TokenMedia)
	if err != nil {
		return fmt.Errorf("screen token: %w", err)
	}

	session := s.newSession()
	if err := session.Join(ctx, s.channel, token, mediaID); err != nil {
		return fmt.Errorf("screen join: %w", err)
	}
	if err := session.SetPublisher(ctx, true); err != nil {
		_ = session.Leave(ctx)
		return fmt.Errorf("screen role: %w", err)
	}

	tracks, err := s.capture.Acquire(ctx)
	if err != nil {
		_ = session.Leave(ctx)
		return fmt.Errorf("screen capture: %w", core.ErrDeviceUnavailable)
	}
	if err := session.Publish(tracks...); err != nil {
		s.capture.Release()
		_ = session.Leave(ctx)
		return fmt.Errorf("screen publish: %w", err)
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return nil
}

// Stop tears the secondary session down unconditionally. Every step is
// best-effort; whatever fails, the manager ends up startable again.
func (s *ScreenShare) Stop(ctx context.Context) {
	s.mu.Lock()
	session := s.session
	mediaID := s.mediaID
	wasActive := s.active
	s.session = nil
	s.active = false
	s.mediaID = 0
	s.mu.Unlock()

	if !wasActive && session == nil {
		return
	}
	if session != nil {
		if err := session.Unpublish(); err != nil {
			log.Warn().Err(err).Str("module", "app.screenshare").Msg("unpublish on stop")
		}
		if err := session.Leave(ctx); err != nil {
			log.Warn().Err(err).Str("module", "app.screenshare").Msg("leave on stop")
		}
	}
	s.capture.Release()
	if mediaID != 0 {
		s.registry.Forget(mediaID)
	}
	log.Info().Str("module", "app.screenshare").Msg("screen share stopped")
}
