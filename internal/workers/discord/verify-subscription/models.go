package verifysubscription

import (
	"community-bot/internal/common/logger"
	"community-bot/internal/common/observability"
	"community-bot/internal/membership"
)

const (
	StatusNotFound        = "NOT_FOUND"
	StatusAlreadyVerified = "ALREADY_VERIFIED"
	StatusLinkFailed      = "LINK_FAILED"
	StatusPendingRole     = "PENDING_ROLE"
	StatusVerified        = "VERIFIED"
)

// Replies shown to the member. Markdown bold is rendered by Discord.
const (
	ReplyNotFound        = "Your subscription **could not** be verified."
	ReplyAlreadyVerified = "This subscription has **already been verified** by another user."
	ReplyTryLater        = "Your subscription **could not** be verified right now. Please try again later."
	ReplyRoleFailed      = "Your subscription was verified, but **something went wrong** while assigning your role. A moderator has been notified."
	replySuccess         = "Your subscription to **%s** was verified successfully!"
)

type Input struct {
	Key    string
	Member *membership.Member
}

type Output struct {
	Status         string
	Reply          string
	SubscriptionID int64
	SKU            string
	RoleID         string
}

type ServiceDependencies struct {
	Store         membership.SubscriptionStore
	Reconciler    *membership.Reconciler
	Linker        *membership.Linker
	Pending       membership.PendingLinks
	Notifier      membership.Notifier
	Observability *observability.Observability
	Logger        logger.Logger
}
