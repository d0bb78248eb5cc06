package presencesync

import (
	"community-bot/internal/common/logger"
	"community-bot/internal/common/observability"
	"community-bot/internal/membership"
)

// Actions reported in Output.Action.
const (
	ActionIgnored        = "IGNORED"
	ActionRolesCleared   = "ROLES_CLEARED"
	ActionProtected      = "SPECIAL"
	ActionUnchanged      = "UNCHANGED"
	ActionUsernameLinked = "USERNAME_LINKED"
	ActionLinkFailed     = "LINK_FAILED"
	ActionFailed         = "FAILED"
)

type Input struct {
	GuildID string
	UserID  string
	Status  string
}

type Output struct {
	Action          string
	SubscriptionIDs []int64
}

type ServiceDependencies struct {
	Store         membership.SubscriptionStore
	Directory     membership.MemberDirectory
	Reconciler    *membership.Reconciler
	Linker        *membership.Linker
	Observability *observability.Observability
	Logger        logger.Logger
}
