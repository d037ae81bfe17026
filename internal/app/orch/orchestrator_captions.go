package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// Caption flow: the backend session produces the shared feed; the router
// narrows it to this viewer's language selection.

// StartCaptions opens the server-side captioning session.
func (o *Orchestrator) StartCaptions(ctx context.Context, langs []string) error {
	o.mu.Lock()
	if o.captionSession != "" {
		o.mu.Unlock()
		return nil
	}
	channel := o.channel
	o.mu.Unlock()
	if channel == "" {
		return fmt.Errorf("captions before join")
	}

	sessionID, err := o.deps.Captions.Start(ctx, channel, langs)
	if err != nil {
		return fmt.Errorf("caption session start: %w", err)
	}
	o.mu.Lock()
	o.captionSession = sessionID
	o.mu.Unlock()
	log.Info().Str("module", "orch").Str("session", sessionID).Msg("captions started")
	return nil
}

// UpdateCaptionLanguages replaces the language set of the running session.
func (o *Orchestrator) UpdateCaptionLanguages(ctx context.Context, langs []string) error {
	o.mu.Lock()
	sessionID := o.captionSession
	o.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("captions not started")
	}
	return o.deps.Captions.Update(ctx, sessionID, langs)
}

// StopCaptions ends the server-side session. Stopping an absent session is
// success.
func (o *Orchestrator) StopCaptions(ctx context.Context) error {
	o.mu.Lock()
	sessionID := o.captionSession
	o.captionSession = ""
	o.mu.Unlock()
	if sessionID == "" {
		return nil
	}
	return o.deps.Captions.Stop(ctx, sessionID)
}

// SubscribeCaptions selects the languages surfaced for one source.
func (o *Orchestrator) SubscribeCaptions(sourceID domain.MediaID, transcriptionLangs []string, translationTargets map[string][]string) {
	o.Router.Subscribe(sourceID, transcriptionLangs, translationTargets)
}

// DeliverCaption feeds one transcription event from the shared feed.
func (o *Orchestrator) DeliverCaption(ev domain.CaptionEvent) {
	o.Router.Deliver(ev)
}

// DeliverTranslation feeds one translation event from the shared feed.
func (o *Orchestrator) DeliverTranslation(ev domain.TranslationEvent) {
	o.Router.DeliverTranslation(ev)
}
