// Package orch is the session facade: the one object the UI talks to. It
// owns the identity registry, the role machine, the caption router, and the
// screen-share manager, and wires the media and messaging sessions into one
// consistent view of who is on stage and in what layout.
package orch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/adapters/obs"
	"github.com/frank005/broadcastaway-sub000/internal/app"
	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// Login readiness is polled with a bounded retry rather than waiting
// forever on a stack that never comes up.
const (
	loginAttempts = 5
	loginRetryGap = 200 * time.Millisecond
)

// Deps are the external collaborators. All of them are narrow interfaces so
// the facade can be exercised against fakes.
type Deps struct {
	Media         core.MediaSession
	NewMedia      func() core.MediaSession // fresh sessions for screen share
	Messaging     core.MessagingSession
	Tokens        core.TokenProvider
	Converters    core.ConverterClient
	Captions      core.CaptionSessionClient
	Evictor       core.Evictor
	Capture       core.Capture
	ScreenCapture core.Capture
	CanvasW       int
	CanvasH       int
}

// Orchestrator coordinates one channel membership.
type Orchestrator struct {
	deps Deps

	Registry *app.Registry
	Router   *app.CaptionRouter

	mu             sync.Mutex
	joined         bool
	joining        bool
	channel        string
	me             domain.Participant
	roles          *app.RoleMachine
	screen         *app.ScreenShare
	converters     map[core.ConverterID]struct{}
	captionSession string
	tool           *obs.Client

	joinedEvents *app.Bus[domain.Participant]
	leftEvents   *app.Bus[domain.Participant]
	applications *app.Bus[domain.Participant]
	terminated   *app.Bus[string]
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:         deps,
		Registry:     app.NewRegistry(),
		Router:       app.NewCaptionRouter(),
		converters:   make(map[core.ConverterID]struct{}),
		joinedEvents: app.NewBus[domain.Participant](),
		leftEvents:   app.NewBus[domain.Participant](),
		applications: app.NewBus[domain.Participant](),
		terminated:   app.NewBus[string](),
	}
}

// OnParticipantJoined registers a listener for channel joins.
func (o *Orchestrator) OnParticipantJoined(fn func(domain.Participant)) func() {
	return o.joinedEvents.Subscribe(fn)
}

// OnParticipantLeft registers a listener for channel leaves.
func (o *Orchestrator) OnParticipantLeft(fn func(domain.Participant)) func() {
	return o.leftEvents.Subscribe(fn)
}

// OnApplication registers a listener for promotion requests (host UI).
func (o *Orchestrator) OnApplication(fn func(domain.Participant)) func() {
	return o.applications.Subscribe(fn)
}

// OnTerminated registers a listener for forced session end.
func (o *Orchestrator) OnTerminated(fn func(string)) func() {
	return o.terminated.Subscribe(fn)
}

// Me returns the local identity. Zero value before Join.
func (o *Orchestrator) Me() domain.Participant {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.me
}

// Role returns the local stage role.
func (o *Orchestrator) Role() domain.Role {
	o.mu.Lock()
	roles := o.roles
	o.mu.Unlock()
	if roles == nil {
		return domain.RoleAudience
	}
	return roles.Role()
}

// Join connects both sessions under a fresh identity. creator marks the
// participant that opened the channel; it starts as Host. Re-entrant calls
// while a join is in flight fail with ErrBusy instead of producing duplicate
// sessions.
func (o *Orchestrator) Join(ctx context.Context, channel, displayName string, creator bool) error {
	if err := domain.ValidDisplayName(displayName); err != nil {
		return err
	}

	o.mu.Lock()
	if o.joined {
		o.mu.Unlock()
		return fmt.Errorf("already joined %s", o.channel)
	}
	if o.joining {
		o.mu.Unlock()
		return core.ErrBusy
	}
	o.joining = true
	o.mu.Unlock()

	messagingID := domain.NewMessagingID()
	mediaID := domain.DeriveMediaID(messagingID)
	me := domain.Participant{
		MediaID:     mediaID,
		MessagingID: messagingID,
		DisplayName: displayName,
	}

	err := o.connect(ctx, channel, me, creator)

	o.mu.Lock()
	o.joining = false
	if err == nil {
		o.joined = true
		o.channel = channel
		o.me = me
	}
	o.mu.Unlock()

	if err != nil {
		return err
	}
	o.Registry.Bind(mediaID, messagingID, displayName)
	log.Info().Str("module", "orch").
		Str("channel", channel).
		Uint32("media_id", uint32(mediaID)).
		Bool("creator", creator).
		Msg("joined channel")
	return nil
}

func (o *Orchestrator) connect(ctx context.Context, channel string, me domain.Participant, creator bool) error {
	role := domain.RoleAudience
	if creator {
		role = domain.RoleHost
	}

	mediaToken, err := o.deps.Tokens.Token(ctx, channel, me.MediaID, role, me.MessagingID, core.TokenMedia)
	if err != nil {
		return fmt.Errorf("media token: %w", err)
	}
	messagingToken, err := o.deps.Tokens.Token(ctx, channel, me.MediaID, role, me.MessagingID, core.TokenMessaging)
	if err != nil {
		return fmt.Errorf("messaging token: %w", err)
	}

	// Wire callbacks before joining so no early event is missed.
	o.deps.Media.OnUserJoined(o.onMediaJoined)
	o.deps.Media.OnUserLeft(o.onMediaLeft)
	o.deps.Media.OnClosed(func() { o.onSessionClosed("media session closed") })
	o.deps.Messaging.OnMessage(o.onControl)
	o.deps.Messaging.OnPresence(o.onPresence)
	o.deps.Messaging.OnClosed(func() { o.onSessionClosed("messaging session closed") })

	if err := o.deps.Media.Join(ctx, channel, mediaToken, me.MediaID); err != nil {
		if errors.Is(err, core.ErrAuthFailure) {
			return err
		}
		return fmt.Errorf("media join: %w", err)
	}

	if err := o.loginWithRetry(ctx, messagingToken, me.MessagingID); err != nil {
		_ = o.deps.Media.Leave(ctx)
		return err
	}

	roles := app.NewRoleMachine(creator, o.deps.Media, o.deps.Capture)
	screen := app.NewScreenShare(
		channel, me.MessagingID, me.DisplayName,
		roles.Role,
		o.deps.Tokens, o.deps.NewMedia, o.deps.ScreenCapture,
		o.Registry,
	)

	o.mu.Lock()
	o.roles = roles
	o.screen = screen
	o.mu.Unlock()
	return nil
}

// loginWithRetry polls messaging login readiness a bounded number of times.
// Auth rejections are final; only transient errors are retried.
func (o *Orchestrator) loginWithRetry(ctx context.Context, token string, id domain.MessagingID) error {
	var last error
	for attempt := 1; attempt <= loginAttempts; attempt++ {
		err := o.deps.Messaging.Login(ctx, token, id)
		if err == nil {
			return nil
		}
		if errors.Is(err, core.ErrAuthFailure) {
			return err
		}
		last = err
		log.Warn().Err(err).Str("module", "orch").
			Int("attempt", attempt).
			Msg("messaging login failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginRetryGap):
		}
	}
	return fmt.Errorf("messaging login after %d attempts: %w", loginAttempts, last)
}

// Leave tears the whole membership down. A leaving host first broadcasts the
// termination notice, and after leaving evicts any stragglers through the
// backend in case the notice was lost. Every step is best-effort: an error
// in one never blocks the rest of the teardown.
func (o *Orchestrator) Leave(ctx context.Context) error {
	o.mu.Lock()
	if !o.joined {
		o.mu.Unlock()
		return nil
	}
	channel := o.channel
	me := o.me
	roles := o.roles
	screen := o.screen
	converterIDs := make([]core.ConverterID, 0, len(o.converters))
	for id := range o.converters {
		converterIDs = append(converterIDs, id)
	}
	o.converters = make(map[core.ConverterID]struct{})
	captionSession := o.captionSession
	o.captionSession = ""
	o.joined = false
	o.channel = ""
	o.me = domain.Participant{}
	o.mu.Unlock()

	isHost := roles != nil && roles.Role() == domain.RoleHost
	if isHost {
		if err := o.deps.Messaging.Publish(ctx, core.ControlMessage{
			Kind:     core.ControlShowTerminated,
			From:     me.MessagingID,
			FromName: me.DisplayName,
		}); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("termination notice")
		}
	}

	if screen != nil {
		screen.Stop(ctx)
	}
	for _, id := range converterIDs {
		if err := o.deps.Converters.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("converter", string(id)).Msg("converter delete on leave")
		}
	}
	if captionSession != "" {
		if err := o.deps.Captions.Stop(ctx, captionSession); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("caption stop on leave")
		}
	}
	if err := o.deps.Media.Leave(ctx); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("media leave")
	}
	if err := o.deps.Messaging.Logout(ctx); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("messaging logout")
	}

	if isHost {
		if err := o.deps.Evictor.Evict(ctx, channel); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("eviction call")
		}
	}

	o.Router.Reset()
	log.Info().Str("module", "orch").Str("channel", channel).Msg("left channel")
	return nil
}

// onSessionClosed handles an unexpected drop of either session.
func (o *Orchestrator) onSessionClosed(reason string) {
	o.mu.Lock()
	wasJoined := o.joined
	o.mu.Unlock()
	if !wasJoined {
		return
	}
	log.Warn().Str("module", "orch").Str("reason", reason).Msg("session lost")
	o.terminated.Publish(reason)
}
