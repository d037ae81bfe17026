package domain

// LangUnknown marks caption events that arrived before any subscription
// existed for their source; the UI uses it to auto-provision one.
const LangUnknown = "unknown"

// CaptionEvent is one transcription fragment from the shared caption feed.
// The feed is broadcast-like; filtering happens on the receiving side.
type CaptionEvent struct {
	SourceID MediaID `json:"source_id"`
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Final    bool    `json:"final,omitempty"`
}

// TranslationEvent is one translated fragment.
type TranslationEvent struct {
	SourceID   MediaID `json:"source_id"`
	Text       string  `json:"text"`
	SourceLang string  `json:"source_lang"`
	TargetLang string  `json:"target_lang"`
}

// CaptionSubscription is one viewer's language selection for one source.
type CaptionSubscription struct {
	TranscriptionLangs []string            `json:"transcription_langs"`
	TranslationTargets map[string][]string `json:"translation_targets,omitempty"`
}

// WantsTranscription reports whether lang is among the subscribed
// transcription languages.
func (s CaptionSubscription) WantsTranscription(lang string) bool {
	for _, l := range s.TranscriptionLangs {
		if l == lang {
			return true
		}
	}
	return false
}

// WantsTranslation reports whether the source→target pair is subscribed.
func (s CaptionSubscription) WantsTranslation(sourceLang, targetLang string) bool {
	for _, t := range s.TranslationTargets[sourceLang] {
		if t == targetLang {
			return true
		}
	}
	return false
}
