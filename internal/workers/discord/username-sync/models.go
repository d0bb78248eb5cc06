package usernamesync

import (
	"community-bot/internal/common/logger"
	"community-bot/internal/membership"
)

const (
	ActionIgnored         = "IGNORED"
	ActionNoSubscriptions = "NO_SUBSCRIPTIONS"
	ActionUsernameLinked  = "USERNAME_LINKED"
	ActionCompensated     = "ROLES_CLEARED_AFTER_LINK_FAILURE"
	ActionLinkFailed      = "LINK_FAILED"
	ActionFailed          = "FAILED"
)

// Input is a username change observed on a guild member update.
type Input struct {
	// Member is the state after the update.
	Member         *membership.Member
	BeforeUsername string
	BotUserID      string
}

type Output struct {
	Action          string
	SubscriptionIDs []int64
}

type ServiceDependencies struct {
	Store      membership.SubscriptionStore
	Reconciler *membership.Reconciler
	Linker     *membership.Linker
	Logger     logger.Logger
}
