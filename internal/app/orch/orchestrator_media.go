package orch

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/app"
	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// Media and presence events feed the registry from two independent channels
// with no relative ordering guarantee. Either side may create the binding;
// the other completes it.

func (o *Orchestrator) onMediaJoined(id domain.MediaID) {
	// Messaging id unknown until presence metadata arrives.
	o.Registry.Bind(id, "", "")
	p := o.Registry.Resolve(id)
	log.Info().Str("module", "orch").
		Uint32("media_id", uint32(id)).
		Str("name", p.DisplayName).
		Msg("participant media joined")
	o.joinedEvents.Publish(p)
	o.pushLayouts(context.Background())
}

func (o *Orchestrator) onMediaLeft(id domain.MediaID) {
	p := o.Registry.Resolve(id)
	o.Registry.Forget(id)
	o.Router.Unsubscribe(id)
	log.Info().Str("module", "orch").
		Uint32("media_id", uint32(id)).
		Msg("participant media left")
	o.leftEvents.Publish(p)
	o.pushLayouts(context.Background())
}

func (o *Orchestrator) onPresence(ev core.PresenceEvent) {
	mediaID := domain.DeriveMediaID(ev.ID)
	if ev.Joined {
		if domain.IsScreenIdentity(ev.ID) {
			o.Registry.BindScreen(mediaID, ev.ID, ev.DisplayName)
			return
		}
		o.Registry.Bind(mediaID, ev.ID, ev.DisplayName)
		return
	}
	// A presence-side leave can beat the media-side one; report the
	// departure here too, but only when the binding still existed.
	p := o.Registry.ResolveMessaging(ev.ID)
	if o.Registry.ForgetMessaging(ev.ID) {
		o.Router.Unsubscribe(p.MediaID)
		log.Info().Str("module", "orch").
			Str("messaging_id", string(ev.ID)).
			Msg("participant presence left")
		o.leftEvents.Publish(p)
	}
	o.pushLayouts(context.Background())
}

// StartConverter provisions a transcoding session for the current
// membership and starts keeping its layout current.
func (o *Orchestrator) StartConverter(ctx context.Context) (core.ConverterID, error) {
	layout, err := o.currentLayout()
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	channel := o.channel
	o.mu.Unlock()

	id, err := o.deps.Converters.Create(ctx, channel, layout)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	o.converters[id] = struct{}{}
	o.mu.Unlock()
	log.Info().Str("module", "orch").Str("converter", string(id)).Msg("converter started")
	return id, nil
}

// StopConverter deletes a transcoding session. Deleting one that is already
// gone counts as success.
func (o *Orchestrator) StopConverter(ctx context.Context, id core.ConverterID) error {
	o.mu.Lock()
	delete(o.converters, id)
	o.mu.Unlock()
	return o.deps.Converters.Delete(ctx, id)
}

// currentLayout recomputes the full layout for the present membership. The
// screen share, when active, leads as the priority source.
func (o *Orchestrator) currentLayout() (domain.Layout, error) {
	participants := o.Registry.Snapshot()
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].MediaID < participants[j].MediaID
	})

	sources := make([]domain.Source, 0, len(participants)+1)
	o.mu.Lock()
	screen := o.screen
	o.mu.Unlock()
	if screen != nil {
		if id := screen.MediaID(); id != 0 {
			sources = append(sources, domain.Source{ID: id, Priority: true})
		}
	}
	for _, p := range participants {
		sources = append(sources, domain.Source{ID: p.MediaID})
	}

	return app.ComputeLayout(sources, o.deps.CanvasW, o.deps.CanvasH)
}

// pushLayouts recomputes and replaces the layout on every active converter.
// Nothing to do while no converter runs. The update call is idempotent, so
// racing membership changes settle on the last full recomputation.
func (o *Orchestrator) pushLayouts(ctx context.Context) {
	o.mu.Lock()
	ids := make([]core.ConverterID, 0, len(o.converters))
	for id := range o.converters {
		ids = append(ids, id)
	}
	o.mu.Unlock()
	if len(ids) == 0 {
		return
	}

	layout, err := o.currentLayout()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("layout recompute")
		return
	}
	for _, id := range ids {
		if err := o.deps.Converters.UpdateLayout(ctx, id, layout); err != nil {
			log.Warn().Err(err).Str("module", "orch").
				Str("converter", string(id)).
				Msg("layout push")
		}
	}
}
