package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/app"
	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// Stage flow. Promote/demote are advisory control messages addressed to a
// target identity; only the addressee acts on them. Nothing verifies the
// sender's authority (see core.ControlMessage).

func (o *Orchestrator) roleMachine() (*app.RoleMachine, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.roles == nil {
		return nil, fmt.Errorf("not joined: %w", core.ErrNotAuthorized)
	}
	return o.roles, nil
}

// ApplyToHost asks the host for promotion.
func (o *Orchestrator) ApplyToHost(ctx context.Context) error {
	roles, err := o.roleMachine()
	if err != nil {
		return err
	}
	if err := roles.Apply(); err != nil {
		return err
	}
	me := o.Me()
	if err := o.deps.Messaging.Publish(ctx, core.ControlMessage{
		Kind:     core.ControlApply,
		From:     me.MessagingID,
		FromName: me.DisplayName,
	}); err != nil {
		return fmt.Errorf("send application: %w", err)
	}
	return nil
}

// Promote sends a promote message to the target. Host only.
func (o *Orchestrator) Promote(ctx context.Context, target domain.MessagingID) error {
	return o.sendStageControl(ctx, core.ControlPromote, target)
}

// Demote sends a demote message to the target. Host only. Demoting an
// absent participant is not an error; the message just goes unanswered.
func (o *Orchestrator) Demote(ctx context.Context, target domain.MessagingID) error {
	return o.sendStageControl(ctx, core.ControlDemote, target)
}

func (o *Orchestrator) sendStageControl(ctx context.Context, kind core.ControlKind, target domain.MessagingID) error {
	if o.Role() != domain.RoleHost {
		return fmt.Errorf("%s as %s: %w", kind, o.Role(), core.ErrNotAuthorized)
	}
	me := o.Me()
	return o.deps.Messaging.Publish(ctx, core.ControlMessage{
		Kind:     kind,
		From:     me.MessagingID,
		FromName: me.DisplayName,
		Target:   string(target),
	})
}

// LeaveStage demotes the local participant on its own initiative.
func (o *Orchestrator) LeaveStage(ctx context.Context) error {
	roles, err := o.roleMachine()
	if err != nil {
		return err
	}
	return roles.Demote(ctx)
}

// StartShow publishes the host's media.
func (o *Orchestrator) StartShow(ctx context.Context) error {
	roles, err := o.roleMachine()
	if err != nil {
		return err
	}
	if err := roles.StartShow(ctx); err != nil {
		return err
	}
	o.pushLayouts(ctx)
	return nil
}

// EndShow stops the broadcast while keeping the channel membership: host
// unpublishes, one show-ended notice is broadcast so promoted participants
// demote themselves, and the screen share stops if active. A lost notice is
// logged, never fatal.
func (o *Orchestrator) EndShow(ctx context.Context) error {
	roles, err := o.roleMachine()
	if err != nil {
		return err
	}
	if err := roles.EndShow(ctx); err != nil {
		return err
	}

	me := o.Me()
	if err := o.deps.Messaging.Publish(ctx, core.ControlMessage{
		Kind:     core.ControlShowEnded,
		From:     me.MessagingID,
		FromName: me.DisplayName,
	}); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("show-ended notice")
	}

	o.mu.Lock()
	screen := o.screen
	o.mu.Unlock()
	if screen != nil && screen.Active() {
		screen.Stop(ctx)
	}

	log.Info().Str("module", "orch").Msg("show ended")
	return nil
}

// StartScreenShare opens the secondary session. Host or Promoted only.
func (o *Orchestrator) StartScreenShare(ctx context.Context) error {
	o.mu.Lock()
	screen := o.screen
	o.mu.Unlock()
	if screen == nil {
		return fmt.Errorf("not joined: %w", core.ErrNotAuthorized)
	}
	if err := screen.Start(ctx); err != nil {
		return err
	}
	o.pushLayouts(ctx)
	return nil
}

// StopScreenShare tears the secondary session down.
func (o *Orchestrator) StopScreenShare(ctx context.Context) {
	o.mu.Lock()
	screen := o.screen
	o.mu.Unlock()
	if screen == nil {
		return
	}
	screen.Stop(ctx)
	o.pushLayouts(ctx)
}

// onControl routes one control message from the messaging channel.
func (o *Orchestrator) onControl(msg core.ControlMessage) {
	me := o.Me()
	ctx := context.Background()

	switch msg.Kind {
	case core.ControlApply:
		if o.Role() == domain.RoleHost {
			o.applications.Publish(o.Registry.ResolveMessaging(msg.From))
		}
	case core.ControlPromote:
		if !msg.AddressedTo(me.MessagingID, me.DisplayName) {
			return
		}
		roles, err := o.roleMachine()
		if err != nil {
			return
		}
		if err := roles.Promote(ctx); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("promote failed")
			return
		}
		o.pushLayouts(ctx)
	case core.ControlDemote:
		if !msg.AddressedTo(me.MessagingID, me.DisplayName) {
			return
		}
		roles, err := o.roleMachine()
		if err != nil {
			return
		}
		if err := roles.Demote(ctx); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("demote failed")
			return
		}
		o.mu.Lock()
		screen := o.screen
		o.mu.Unlock()
		if screen != nil && screen.Active() {
			screen.Stop(ctx)
		}
		o.pushLayouts(ctx)
	case core.ControlShowEnded:
		switch o.Role() {
		case domain.RolePromoted, domain.RolePromotionRequested:
			roles, err := o.roleMachine()
			if err != nil {
				return
			}
			if err := roles.Demote(ctx); err != nil {
				log.Warn().Err(err).Str("module", "orch").Msg("demote on show end")
				return
			}
			o.mu.Lock()
			screen := o.screen
			o.mu.Unlock()
			if screen != nil && screen.Active() {
				screen.Stop(ctx)
			}
			o.pushLayouts(ctx)
		}
	case core.ControlBanned:
		if !msg.AddressedTo(me.MessagingID, me.DisplayName) {
			return
		}
		log.Warn().Str("module", "orch").Msg("evicted by gateway")
		if err := o.Leave(ctx); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("leave on ban")
		}
		o.terminated.Publish(core.ErrBanned.Error())
	case core.ControlShowTerminated:
		// Messages from ourselves echo back on the channel.
		if msg.From == me.MessagingID {
			return
		}
		log.Info().Str("module", "orch").Msg("show terminated by host")
		if err := o.Leave(ctx); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("leave on termination")
		}
		o.terminated.Publish("show terminated by host")
	default:
		log.Warn().Str("module", "orch").Str("kind", string(msg.Kind)).Msg("unknown control message")
	}
}
