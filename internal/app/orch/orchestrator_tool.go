package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/adapters/obs"
	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// Production-tool control. Only the host mirrors the tool's output into the
// channel, but anyone may connect for the status indicator.

// ConnectTool dials the tool's control socket and performs the handshake.
// Connecting while connected is a no-op.
func (o *Orchestrator) ConnectTool(ctx context.Context, url, password string) error {
	o.mu.Lock()
	if o.tool != nil && o.tool.Identified() {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	client, err := obs.Dial(ctx, url, password)
	if err != nil {
		return fmt.Errorf("connect production tool: %w", err)
	}

	o.mu.Lock()
	o.tool = client
	o.mu.Unlock()

	client.OnStateChange(func(s obs.State) {
		if s == obs.StateDisconnected {
			log.Warn().Str("module", "orch").Msg("production tool disconnected")
			o.mu.Lock()
			o.tool = nil
			o.mu.Unlock()
		}
	})
	return nil
}

// DisconnectTool closes the control socket, stopping its pollers and
// rejecting any in-flight requests.
func (o *Orchestrator) DisconnectTool() {
	o.mu.Lock()
	tool := o.tool
	o.tool = nil
	o.mu.Unlock()
	if tool != nil {
		tool.Close()
	}
}

// Tool exposes the protocol client for status/thumbnail subscriptions.
// Nil while disconnected.
func (o *Orchestrator) Tool() *obs.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tool
}

// StartMirror asks the tool to start streaming its output into the channel.
// Host only.
func (o *Orchestrator) StartMirror(ctx context.Context) error {
	if o.Role() != domain.RoleHost {
		return fmt.Errorf("mirror as %s: %w", o.Role(), core.ErrNotAuthorized)
	}
	tool := o.Tool()
	if tool == nil {
		return fmt.Errorf("mirror: %w", core.ErrConnectionLost)
	}
	return tool.StartStream(ctx)
}

// StopMirror stops the tool's stream output. Best-effort.
func (o *Orchestrator) StopMirror(ctx context.Context) {
	tool := o.Tool()
	if tool == nil {
		return
	}
	if err := tool.StopStream(ctx); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("stop mirror")
	}
}
