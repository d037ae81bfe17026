// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 64

	// ScreenSuffix tags the messaging identity of a screen-share session so it
	// is never confused with the primary identity of the same participant.
	ScreenSuffix = "-screen"
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

type (
	// MediaID is the numeric identity inside the media channel.
	MediaID uint32
	// MessagingID is the unique identity inside the messaging channel,
	// stable for the lifetime of a channel membership.
	MessagingID string
)

// Participant binds the three names one member goes by.
type Participant struct {
	MediaID     MediaID     `json:"media_id"`
	MessagingID MessagingID `json:"messaging_id"`
	DisplayName string      `json:"display_name"`
}

// NewMessagingID mints a fresh messaging identity.
func NewMessagingID() MessagingID {
	return MessagingID(uuid.NewString())
}

// DeriveMediaID maps a messaging identity to its media-channel identity.
// The mapping is deterministic so same-name participants never collide at the
// media layer. The result stays in the positive int32 range (vendor media
// channels treat ids as signed) and never yields 0, which is reserved.
func DeriveMediaID(id MessagingID) MediaID {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	v := h.Sum32() & 0x7fffffff
	if v == 0 {
		v = 1
	}
	return MediaID(v)
}

// ScreenIdentity derives the messaging identity of the screen-share session
// that belongs to primary.
func ScreenIdentity(primary MessagingID) MessagingID {
	return primary + ScreenSuffix
}

// IsScreenIdentity reports whether id names a screen-share session.
func IsScreenIdentity(id MessagingID) bool {
	return strings.HasSuffix(string(id), ScreenSuffix)
}

// PlaceholderName is what the UI shows until a display name resolves.
func PlaceholderName(id MediaID) string {
	return fmt.Sprintf("User-%d", id)
}

// ValidDisplayName rejects names the registry will not store.
func ValidDisplayName(name string) error {
	if name == "" {
		return ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	return nil
}
