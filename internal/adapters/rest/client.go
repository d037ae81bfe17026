// Package rest holds the request/response collaborators the orchestrator
// calls over HTTPS: token issuing, transcode converters, caption sessions,
// channel eviction. They are opaque remote procedures; only the JSON shapes
// are known here.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/frank005/broadcastaway-sub000/internal/core"
)

const clientTimeout = 10 * time.Second

// Client is the shared HTTP plumbing for all backend collaborators.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: clientTimeout},
	}
}

// postJSON sends a JSON body and decodes a JSON reply into out (which may be
// nil). Non-2xx statuses are returned for the caller to classify.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, core.ErrRemoteOp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// Evict forcibly removes all remaining participants from the channel. A
// leaving host calls this after broadcasting the termination notice, as
// defense against the notice getting lost.
func (c *Client) Evict(ctx context.Context, channel string) error {
	_, err := c.postJSON(ctx, "/channel/evict", map[string]string{
		"channelName": channel,
	}, nil)
	return err
}
