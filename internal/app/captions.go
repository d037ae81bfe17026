package app

import (
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// CaptionRouter filters the shared caption feed down to this viewer's
// language selection, per source. The feed itself is broadcast-like and
// carries every language; selection is purely local.
type CaptionRouter struct {
	mu    sync.Mutex
	subs  map[domain.MediaID]domain.CaptionSubscription
	cache map[domain.MediaID]string

	captions     *Bus[domain.CaptionEvent]
	translations *Bus[domain.TranslationEvent]
}

func NewCaptionRouter() *CaptionRouter {
	return &CaptionRouter{
		subs:         make(map[domain.MediaID]domain.CaptionSubscription),
		cache:        make(map[domain.MediaID]string),
		captions:     NewBus[domain.CaptionEvent](),
		translations: NewBus[domain.TranslationEvent](),
	}
}

// OnCaption registers a listener for forwarded transcription events.
func (r *CaptionRouter) OnCaption(fn func(domain.CaptionEvent)) func() {
	return r.captions.Subscribe(fn)
}

// OnTranslation registers a listener for forwarded translation events.
func (r *CaptionRouter) OnTranslation(fn func(domain.TranslationEvent)) func() {
	return r.translations.Subscribe(fn)
}

// Subscribe selects the languages to surface for one source. Changing the
// transcription language set clears any cached text for that source, so a
// stale-language caption is never shown under the new language label.
func (r *CaptionRouter) Subscribe(sourceID domain.MediaID, transcriptionLangs []string, translationTargets map[string][]string) {
	sub := domain.CaptionSubscription{
		TranscriptionLangs: transcriptionLangs,
		TranslationTargets: translationTargets,
	}
	r.mu.Lock()
	prev, had := r.subs[sourceID]
	r.subs[sourceID] = sub
	if had && !reflect.DeepEqual(prev.TranscriptionLangs, transcriptionLangs) {
		delete(r.cache, sourceID)
	}
	r.mu.Unlock()
	log.Debug().Str("module", "app.captions").
		Uint32("source", uint32(sourceID)).
		Strs("langs", transcriptionLangs).
		Msg("caption subscription updated")
}

// Unsubscribe drops the selection and cached text for a source.
func (r *CaptionRouter) Unsubscribe(sourceID domain.MediaID) {
	r.mu.Lock()
	delete(r.subs, sourceID)
	delete(r.cache, sourceID)
	r.mu.Unlock()
}

// Deliver routes one transcription event. Events for sources without a
// subscription are still forwarded, language replaced by the unknown
// sentinel, so the UI can auto-provision a subscription. Language mismatches
// are dropped.
func (r *CaptionRouter) Deliver(ev domain.CaptionEvent) {
	r.mu.Lock()
	sub, ok := r.subs[ev.SourceID]
	if !ok {
		r.mu.Unlock()
		ev.Language = domain.LangUnknown
		r.captions.Publish(ev)
		return
	}
	if !sub.WantsTranscription(ev.Language) {
		r.mu.Unlock()
		return
	}
	r.cache[ev.SourceID] = ev.Text
	r.mu.Unlock()
	r.captions.Publish(ev)
}

// DeliverTranslation routes one translation event. Forwarded only when the
// target language is among the subscribed targets for its source language.
func (r *CaptionRouter) DeliverTranslation(ev domain.TranslationEvent) {
	r.mu.Lock()
	sub, ok := r.subs[ev.SourceID]
	r.mu.Unlock()
	if !ok || !sub.WantsTranslation(ev.SourceLang, ev.TargetLang) {
		return
	}
	r.translations.Publish(ev)
}

// CachedText returns the last forwarded transcription for a source, for the
// overlay to render between events.
func (r *CaptionRouter) CachedText(sourceID domain.MediaID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.cache[sourceID]
	return text, ok
}

// Reset drops all subscriptions and cached text. Used on channel leave.
func (r *CaptionRouter) Reset() {
	r.mu.Lock()
	r.subs = make(map[domain.MediaID]domain.CaptionSubscription)
	r.cache = make(map[domain.MediaID]string)
	r.mu.Unlock()
}
