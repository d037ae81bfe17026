package app

import (
	"testing"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

func TestDeliverMatching(t *testing.T) {
	r := NewCaptionRouter()
	r.Subscribe(7, []string{"en"}, nil)

	var got []domain.CaptionEvent
	cancel := r.OnCaption(func(ev domain.CaptionEvent) { got = append(got, ev) })
	defer cancel()

	r.Deliver(domain.CaptionEvent{SourceID: 7, Text: "hello", Language: "en"})
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("matching event not forwarded: %+v", got)
	}
	if text, ok := r.CachedText(7); !ok || text != "hello" {
		t.Fatalf("cache not updated: %q %v", text, ok)
	}
}

func TestDeliverMismatchDropped(t *testing.T) {
	r := NewCaptionRouter()
	r.Subscribe(7, []string{"en"}, nil)

	var got []domain.CaptionEvent
	cancel := r.OnCaption(func(ev domain.CaptionEvent) { got = append(got, ev) })
	defer cancel()

	r.Deliver(domain.CaptionEvent{SourceID: 7, Text: "hola", Language: "es"})
	if len(got) != 0 {
		t.Fatalf("mismatched language forwarded: %+v", got)
	}
	if _, ok := r.CachedText(7); ok {
		t.Fatal("dropped event cached")
	}
}

func TestDeliverWithoutSubscription(t *testing.T) {
	r := NewCaptionRouter()

	var got []domain.CaptionEvent
	cancel := r.OnCaption(func(ev domain.CaptionEvent) { got = append(got, ev) })
	defer cancel()

	r.Deliver(domain.CaptionEvent{SourceID: 7, Text: "hello", Language: "en"})
	if len(got) != 1 {
		t.Fatalf("unsubscribed event not forwarded: %+v", got)
	}
	if got[0].Language != domain.LangUnknown {
		t.Fatalf("language not replaced by sentinel: %q", got[0].Language)
	}
}

func TestResubscribeClearsCache(t *testing.T) {
	r := NewCaptionRouter()
	r.Subscribe(7, []string{"en"}, nil)
	r.Deliver(domain.CaptionEvent{SourceID: 7, Text: "hello", Language: "en"})

	// Changing the language set must drop the stale text.
	r.Subscribe(7, []string{"es"}, nil)
	if _, ok := r.CachedText(7); ok {
		t.Fatal("cache survived language change")
	}

	// Re-subscribing with the same set keeps it.
	r.Subscribe(8, []string{"en"}, nil)
	r.Deliver(domain.CaptionEvent{SourceID: 8, Text: "hi", Language: "en"})
	r.Subscribe(8, []string{"en"}, map[string][]string{"en": {"fr"}})
	if text, ok := r.CachedText(8); !ok || text != "hi" {
		t.Fatalf("cache dropped without language change: %q %v", text, ok)
	}
}

func TestDeliverTranslation(t *testing.T) {
	r := NewCaptionRouter()
	r.Subscribe(7, []string{"en"}, map[string][]string{"en": {"fr"}})

	var got []domain.TranslationEvent
	cancel := r.OnTranslation(func(ev domain.TranslationEvent) { got = append(got, ev) })
	defer cancel()

	r.DeliverTranslation(domain.TranslationEvent{SourceID: 7, Text: "bonjour", SourceLang: "en", TargetLang: "fr"})
	if len(got) != 1 {
		t.Fatalf("subscribed translation not forwarded: %+v", got)
	}

	r.DeliverTranslation(domain.TranslationEvent{SourceID: 7, Text: "hallo", SourceLang: "en", TargetLang: "de"})
	r.DeliverTranslation(domain.TranslationEvent{SourceID: 9, Text: "bonjour", SourceLang: "en", TargetLang: "fr"})
	if len(got) != 1 {
		t.Fatalf("unsubscribed translations forwarded: %+v", got)
	}
}

func TestUnsubscribeAndReset(t *testing.T) {
	r := NewCaptionRouter()
	r.Subscribe(7, []string{"en"}, nil)
	r.Deliver(domain.CaptionEvent{SourceID: 7, Text: "hello", Language: "en"})

	r.Unsubscribe(7)
	if _, ok := r.CachedText(7); ok {
		t.Fatal("cache survived unsubscribe")
	}

	r.Subscribe(8, []string{"en"}, nil)
	r.Deliver(domain.CaptionEvent{SourceID: 8, Text: "hi", Language: "en"})
	r.Reset()
	if _, ok := r.CachedText(8); ok {
		t.Fatal("cache survived reset")
	}
}
