package core

import (
	"context"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// TokenKind selects which session a token is minted for.
type TokenKind string

const (
	TokenMedia     TokenKind = "media"
	TokenMessaging TokenKind = "messaging"
)

// TokenProvider fetches a join token from the token-issuing backend.
// Required before every join or login.
type TokenProvider interface {
	Token(ctx context.Context, channel string, id domain.MediaID,
		role domain.Role, messagingID domain.MessagingID, kind TokenKind) (string, error)
}

// ConverterID names one backend transcoding session.
type ConverterID string

// ConverterClient manages backend transcoding sessions. UpdateLayout is a
// full replace and idempotent; deleting an absent converter is success.
type ConverterClient interface {
	Create(ctx context.Context, channel string, layout domain.Layout) (ConverterID, error)
	UpdateLayout(ctx context.Context, id ConverterID, layout domain.Layout) error
	Delete(ctx context.Context, id ConverterID) error
}

// CaptionSessionClient drives the server-side captioning feed lifecycle.
type CaptionSessionClient interface {
	Start(ctx context.Context, channel string, langs []string) (string, error)
	Update(ctx context.Context, sessionID string, langs []string) error
	Stop(ctx context.Context, sessionID string) error
}

// Evictor forcibly removes remaining participants from a channel. Used by a
// leaving host as defense against the termination notice getting lost.
type Evictor interface {
	Evict(ctx context.Context, channel string) error
}
