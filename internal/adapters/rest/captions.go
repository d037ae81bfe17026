package rest

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// CaptionRESTClient drives the server-side captioning session lifecycle.
type CaptionRESTClient struct {
	*Client
}

func NewCaptionClient(base string) *CaptionRESTClient {
	return &CaptionRESTClient{Client: NewClient(base)}
}

type captionStartRequest struct {
	ChannelName string   `json:"channelName"`
	Languages   []string `json:"languages"`
}

type captionStartResponse struct {
	SessionID string `json:"sessionId"`
}

// Start opens a captioning session transcribing the given languages.
func (c *CaptionRESTClient) Start(ctx context.Context, channel string, langs []string) (string, error) {
	var resp captionStartResponse
	if _, err := c.postJSON(ctx, "/caption/start", captionStartRequest{
		ChannelName: channel,
		Languages:   langs,
	}, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Update replaces the language set of a running session.
func (c *CaptionRESTClient) Update(ctx context.Context, sessionID string, langs []string) error {
	_, err := c.postJSON(ctx, "/caption/update", map[string]any{
		"sessionId": sessionID,
		"languages": langs,
	}, nil)
	return err
}

// Stop ends a captioning session. Stopping one that is already gone is
// treated as success.
func (c *CaptionRESTClient) Stop(ctx context.Context, sessionID string) error {
	status, err := c.postJSON(ctx, "/caption/stop", map[string]string{
		"sessionId": sessionID,
	}, nil)
	if err != nil && status == http.StatusNotFound {
		log.Debug().Str("module", "rest.caption").
			Str("session_id", sessionID).
			Msg("stop of absent session, treating as success")
		return nil
	}
	return err
}
