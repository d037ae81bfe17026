package domain

// Role is the stage role of the local participant. Exactly one role is held
// at a time; transitions are driven by control messages or local action,
// never by poking the media-publish state directly.
type Role int

const (
	RoleAudience Role = iota
	RolePromotionRequested
	RolePromoted
	RoleHost
)

func (r Role) String() string {
	switch r {
	case RoleAudience:
		return "audience"
	case RolePromotionRequested:
		return "promotion_requested"
	case RolePromoted:
		return "promoted"
	case RoleHost:
		return "host"
	default:
		return "unknown"
	}
}

// CanPublish reports whether the role is allowed to publish media.
func (r Role) CanPublish() bool {
	return r == RoleHost || r == RolePromoted
}

// OnStage reports whether the role occupies a layout slot.
func (r Role) OnStage() bool {
	return r.CanPublish()
}
