package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

type identityEntry struct {
	participant domain.Participant
	screen      bool
	resolved    bool // display name known, not synthesized
}

// Registry is the bidirectional identity map for one channel membership:
// media id ↔ messaging id ↔ display name. Lookups never fail; unresolved
// identities get a synthesized placeholder so the UI never blocks on
// resolution. When a real name arrives later the update is fanned out to
// listeners so rendered entries catch up.
type Registry struct {
	mu          sync.RWMutex
	byMedia     map[domain.MediaID]*identityEntry
	byMessaging map[domain.MessagingID]domain.MediaID
	updates     *Bus[domain.Participant]
}

func NewRegistry() *Registry {
	return &Registry{
		byMedia:     make(map[domain.MediaID]*identityEntry),
		byMessaging: make(map[domain.MessagingID]domain.MediaID),
		updates:     NewBus[domain.Participant](),
	}
}

// OnUpdate registers a listener for late identity resolution. Returns the
// cancel function.
func (r *Registry) OnUpdate(fn func(domain.Participant)) func() {
	return r.updates.Subscribe(fn)
}

// Bind records the identity triple. Idempotent: rebinding the same pair is a
// no-op, and a displayName of "" leaves any known name untouched. Binding a
// display name onto a previously-unresolved entry fans the update out.
func (r *Registry) Bind(mediaID domain.MediaID, messagingID domain.MessagingID, displayName string) {
	r.bind(mediaID, messagingID, displayName, false)
}

// BindScreen records a screen-share identity, tagged so it is never listed
// as a regular participant.
func (r *Registry) BindScreen(mediaID domain.MediaID, messagingID domain.MessagingID, displayName string) {
	r.bind(mediaID, messagingID, displayName, true)
}

func (r *Registry) bind(mediaID domain.MediaID, messagingID domain.MessagingID, displayName string, screen bool) {
	r.mu.Lock()
	e, ok := r.byMedia[mediaID]
	if !ok {
		e = &identityEntry{
			participant: domain.Participant{
				MediaID:     mediaID,
				MessagingID: messagingID,
				DisplayName: domain.PlaceholderName(mediaID),
			},
			screen: screen,
		}
		r.byMedia[mediaID] = e
		log.Debug().Str("module", "app.registry").
			Uint32("media_id", uint32(mediaID)).
			Str("messaging_id", string(messagingID)).
			Bool("screen", screen).
			Msg("identity bound")
	}
	// A media-channel join can precede the messaging metadata; fill the
	// messaging id in whenever it becomes known.
	if messagingID != "" {
		e.participant.MessagingID = messagingID
		r.byMessaging[messagingID] = mediaID
	}
	resolvedNow := displayName != "" && !e.resolved
	if displayName != "" {
		e.participant.DisplayName = displayName
		e.resolved = true
	}
	p := e.participant
	r.mu.Unlock()

	if resolvedNow {
		r.updates.Publish(p)
	}
}

// Resolve returns the participant for a media id, synthesizing a placeholder
// when the id was never bound.
func (r *Registry) Resolve(mediaID domain.MediaID) domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byMedia[mediaID]; ok {
		return e.participant
	}
	return domain.Participant{
		MediaID:     mediaID,
		DisplayName: domain.PlaceholderName(mediaID),
	}
}

// ResolveMessaging returns the participant for a messaging id. Unknown ids
// resolve through the deterministic media-id derivation, so the result is
// still usable as an addressable identity.
func (r *Registry) ResolveMessaging(messagingID domain.MessagingID) domain.Participant {
	r.mu.RLock()
	if mediaID, ok := r.byMessaging[messagingID]; ok {
		if e, ok := r.byMedia[mediaID]; ok {
			p := e.participant
			r.mu.RUnlock()
			return p
		}
	}
	r.mu.RUnlock()
	mediaID := domain.DeriveMediaID(messagingID)
	return domain.Participant{
		MediaID:     mediaID,
		MessagingID: messagingID,
		DisplayName: domain.PlaceholderName(mediaID),
	}
}

// Resolved reports whether the display name for mediaID is known rather than
// synthesized.
func (r *Registry) Resolved(mediaID domain.MediaID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byMedia[mediaID]
	return ok && e.resolved
}

// Forget drops the binding for a media id and reports whether one existed.
func (r *Registry) Forget(mediaID domain.MediaID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byMedia[mediaID]
	if !ok {
		return false
	}
	delete(r.byMessaging, e.participant.MessagingID)
	delete(r.byMedia, mediaID)
	log.Debug().Str("module", "app.registry").
		Uint32("media_id", uint32(mediaID)).
		Msg("identity forgotten")
	return true
}

// ForgetMessaging drops the binding for a messaging id and reports whether
// one existed.
func (r *Registry) ForgetMessaging(messagingID domain.MessagingID) bool {
	r.mu.Lock()
	mediaID, ok := r.byMessaging[messagingID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return r.Forget(mediaID)
}

// Snapshot lists all bound participants, screen-share identities excluded.
func (r *Registry) Snapshot() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Participant, 0, len(r.byMedia))
	for _, e := range r.byMedia {
		if e.screen {
			continue
		}
		out = append(out, e.participant)
	}
	return out
}

// IsScreen reports whether the media id belongs to a screen-share session.
func (r *Registry) IsScreen(mediaID domain.MediaID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byMedia[mediaID]
	return ok && e.screen
}

// Count returns the number of bound participants, screens excluded.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.byMedia {
		if !e.screen {
			n++
		}
	}
	return n
}
