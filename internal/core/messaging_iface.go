package core

import (
	"context"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// PresenceEvent reports a messaging-channel membership change. Presence and
// the corresponding media-channel join arrive in no fixed relative order.
type PresenceEvent struct {
	ID          domain.MessagingID
	DisplayName string
	Joined      bool
}

// MessagingSession is the narrow surface of the presence/control channel.
// Message delivery is in publish order per channel; there is no ordering
// guarantee against the media session.
type MessagingSession interface {
	Login(ctx context.Context, token string, id domain.MessagingID) error
	Logout(ctx context.Context) error

	// Publish sends a control message to the channel. Target addressing is
	// advisory; every member receives it and filters locally.
	Publish(ctx context.Context, msg ControlMessage) error

	OnMessage(func(ControlMessage))
	OnPresence(func(PresenceEvent))
	OnClosed(func())
}
