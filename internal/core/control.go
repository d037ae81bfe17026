package core

import (
	"encoding/json"
	"errors"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// ControlKind discriminates the advisory stage-control messages.
type ControlKind string

const (
	// ControlApply: an audience member asks the host for promotion.
	ControlApply ControlKind = "apply"
	// ControlPromote: the host promotes the addressed member.
	ControlPromote ControlKind = "promote"
	// ControlDemote: the host demotes the addressed member.
	ControlDemote ControlKind = "demote"
	// ControlShowEnded: broadcast stopped, membership retained.
	ControlShowEnded ControlKind = "show_ended"
	// ControlShowTerminated: the host left; everyone must leave.
	ControlShowTerminated ControlKind = "show_terminated"
	// ControlBanned: the gateway evicted the addressed member. Terminal for
	// the addressee; synthesized by the messaging adapter, never sent by a
	// participant.
	ControlBanned ControlKind = "banned"
)

// ControlMessage is one stage-control frame on the messaging channel.
//
// Trust note: the sender is self-declared and nothing here is signed. A
// member honors promote/demote purely because the message is addressed to it;
// whether that is an acceptable trust model is inherited from the wire format,
// which carries no authorization proof.
type ControlMessage struct {
	Kind ControlKind        `json:"kind"`
	From domain.MessagingID `json:"from,omitempty"`
	// Target is a messaging id, or a display name from legacy senders.
	Target   string `json:"target,omitempty"`
	FromName string `json:"from_name,omitempty"`
}

// AddressedTo reports whether the message targets the given identity.
// Legacy senders address by display name, so both are accepted; the
// messaging id is the canonical match.
func (m ControlMessage) AddressedTo(id domain.MessagingID, displayName string) bool {
	if m.Target == "" {
		return false
	}
	if m.Target == string(id) {
		return true
	}
	return displayName != "" && m.Target == displayName
}

// EncodeControl serializes a control message for the wire.
func EncodeControl(m ControlMessage) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeControl parses a control message, rejecting frames without a kind.
func DecodeControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ControlMessage{}, err
	}
	if m.Kind == "" {
		return ControlMessage{}, errors.New("control message without kind")
	}
	return m, nil
}
