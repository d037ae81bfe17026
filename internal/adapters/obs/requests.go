package obs

import (
	"context"
	"encoding/json"
	"fmt"
)

// Typed wrappers around the request surface the orchestrator uses.

// CurrentProgramScene returns the name of the scene on program output.
func (c *Client) CurrentProgramScene(ctx context.Context) (string, error) {
	raw, err := c.Request(ctx, "GetCurrentProgramScene", nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		CurrentProgramSceneName string `json:"currentProgramSceneName"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode scene: %w", err)
	}
	return resp.CurrentProgramSceneName, nil
}

// SetCurrentProgramScene switches program output to the named scene.
func (c *Client) SetCurrentProgramScene(ctx context.Context, name string) error {
	_, err := c.Request(ctx, "SetCurrentProgramScene", map[string]string{
		"sceneName": name,
	})
	return err
}

// SceneList returns the names of all configured scenes.
func (c *Client) SceneList(ctx context.Context) ([]string, error) {
	raw, err := c.Request(ctx, "GetSceneList", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Scenes []struct {
			SceneName string `json:"sceneName"`
		} `json:"scenes"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode scene list: %w", err)
	}
	names := make([]string, 0, len(resp.Scenes))
	for _, s := range resp.Scenes {
		names = append(names, s.SceneName)
	}
	return names, nil
}

// StreamActive reports whether the tool is currently streaming.
func (c *Client) StreamActive(ctx context.Context) (bool, error) {
	raw, err := c.Request(ctx, "GetStreamStatus", nil)
	if err != nil {
		return false, err
	}
	var resp struct {
		OutputActive bool `json:"outputActive"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, fmt.Errorf("decode stream status: %w", err)
	}
	return resp.OutputActive, nil
}

// StartStream starts the tool's stream output.
func (c *Client) StartStream(ctx context.Context) error {
	_, err := c.Request(ctx, "StartStream", nil)
	return err
}

// StopStream stops the tool's stream output.
func (c *Client) StopStream(ctx context.Context) error {
	_, err := c.Request(ctx, "StopStream", nil)
	return err
}

// SourceScreenshot fetches a compressed snapshot of the named source as a
// base64 data URI.
func (c *Client) SourceScreenshot(ctx context.Context, sourceName string) (string, error) {
	raw, err := c.Request(ctx, "GetSourceScreenshot", map[string]any{
		"sourceName":              sourceName,
		"imageFormat":             "jpg",
		"imageCompressionQuality": 50,
		"imageWidth":              480,
	})
	if err != nil {
		return "", err
	}
	var resp struct {
		ImageData string `json:"imageData"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	return resp.ImageData, nil
}
