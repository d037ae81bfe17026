package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/app"
)

// Poll cadences. The status indicator can lag; the thumbnail should not.
const (
	statusInterval     = 2 * time.Second
	screenshotInterval = 500 * time.Millisecond
)

// Status is the low-frequency poller's snapshot for the status indicator.
type Status struct {
	SceneName string
	Streaming bool
}

// Screenshot is one program-output thumbnail frame, a base64 data URI.
type Screenshot struct {
	SceneName string
	ImageData string
}

// Both pollers are owned by the connection: they start on Identified and the
// connection context cancels them on disconnect, so they never run against a
// closed socket.

type statusPoller struct {
	c       *Client
	updates *app.Bus[Status]
}

func newStatusPoller(c *Client) *statusPoller {
	return &statusPoller{c: c, updates: app.NewBus[Status]()}
}

func (p *statusPoller) start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Debug().Str("module", "obs.poll").Msg("status poller stopped")
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

func (p *statusPoller) poll(ctx context.Context) {
	scene, err := p.c.CurrentProgramScene(ctx)
	if err != nil {
		log.Debug().Err(err).Str("module", "obs.poll").Msg("scene poll")
		return
	}
	streaming, err := p.c.StreamActive(ctx)
	if err != nil {
		log.Debug().Err(err).Str("module", "obs.poll").Msg("stream status poll")
		return
	}
	p.updates.Publish(Status{SceneName: scene, Streaming: streaming})
}

type screenshotPoller struct {
	c       *Client
	updates *app.Bus[Screenshot]
}

func newScreenshotPoller(c *Client) *screenshotPoller {
	return &screenshotPoller{c: c, updates: app.NewBus[Screenshot]()}
}

func (p *screenshotPoller) start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(screenshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Debug().Str("module", "obs.poll").Msg("screenshot poller stopped")
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

func (p *screenshotPoller) poll(ctx context.Context) {
	// Nobody rendering the thumbnail means no reason to burn a request.
	if p.updates.Len() == 0 {
		return
	}
	scene, err := p.c.CurrentProgramScene(ctx)
	if err != nil {
		return
	}
	img, err := p.c.SourceScreenshot(ctx, scene)
	if err != nil {
		log.Debug().Err(err).Str("module", "obs.poll").Msg("screenshot poll")
		return
	}
	p.updates.Publish(Screenshot{SceneName: scene, ImageData: img})
}
