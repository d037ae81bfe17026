package rest

import (
	"context"
	"fmt"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// TokenClient fetches join tokens from the token-issuing backend.
type TokenClient struct {
	*Client
}

func NewTokenClient(base string) *TokenClient {
	return &TokenClient{Client: NewClient(base)}
}

type tokenRequest struct {
	ChannelName string `json:"channelName"`
	UID         uint32 `json:"uid"`
	Role        string `json:"role"`
	MessagingID string `json:"messagingId"`
	TokenType   string `json:"tokenType"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Token implements core.TokenProvider. A rejection here is an auth failure:
// surfaced, never retried.
func (c *TokenClient) Token(ctx context.Context, channel string, id domain.MediaID,
	role domain.Role, messagingID domain.MessagingID, kind core.TokenKind) (string, error) {

	var resp tokenResponse
	status, err := c.postJSON(ctx, "/token", tokenRequest{
		ChannelName: channel,
		UID:         uint32(id),
		Role:        role.String(),
		MessagingID: string(messagingID),
		TokenType:   string(kind),
	}, &resp)
	if err != nil {
		if status == 401 || status == 403 {
			return "", fmt.Errorf("token for %s: %w", channel, core.ErrAuthFailure)
		}
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("empty token for %s: %w", channel, core.ErrAuthFailure)
	}
	return resp.Token, nil
}
