package rest

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// ConverterRESTClient manages backend transcoding sessions.
type ConverterRESTClient struct {
	*Client
}

func NewConverterClient(base string) *ConverterRESTClient {
	return &ConverterRESTClient{Client: NewClient(base)}
}

type converterRequest struct {
	ChannelName string        `json:"channelName"`
	Layout      domain.Layout `json:"layout"`
}

type converterResponse struct {
	ConverterID string `json:"converterId"`
}

type converterUpdateRequest struct {
	ConverterID string        `json:"converterId"`
	Layout      domain.Layout `json:"layout"`
}

// Create provisions a transcoding session compositing per the given layout.
func (c *ConverterRESTClient) Create(ctx context.Context, channel string, layout domain.Layout) (core.ConverterID, error) {
	var resp converterResponse
	if _, err := c.postJSON(ctx, "/converter/create", converterRequest{
		ChannelName: channel,
		Layout:      layout,
	}, &resp); err != nil {
		return "", err
	}
	return core.ConverterID(resp.ConverterID), nil
}

// UpdateLayout replaces the converter's layout wholesale. Idempotent:
// sending the same layout twice is harmless.
func (c *ConverterRESTClient) UpdateLayout(ctx context.Context, id core.ConverterID, layout domain.Layout) error {
	_, err := c.postJSON(ctx, "/converter/update", converterUpdateRequest{
		ConverterID: string(id),
		Layout:      layout,
	}, nil)
	return err
}

// Delete tears a converter down. Deleting one that is already gone is
// treated as success.
func (c *ConverterRESTClient) Delete(ctx context.Context, id core.ConverterID) error {
	status, err := c.postJSON(ctx, "/converter/delete", map[string]string{
		"converterId": string(id),
	}, nil)
	if err != nil {
		if status == http.StatusNotFound {
			log.Debug().Str("module", "rest.converter").
				Str("converter_id", string(id)).
				Msg("delete of absent converter, treating as success")
			return nil
		}
		return err
	}
	return nil
}
