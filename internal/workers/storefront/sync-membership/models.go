package syncmembership

import (
	"community-bot/internal/common/logger"
	"community-bot/internal/common/observability"
	"community-bot/internal/membership"
)

// Status values reported in Output.Status besides the membership outcomes.
const (
	StatusNotVerified       = "NOT_VERIFIED"
	StatusGuildNotFound     = "GUILD_NOT_FOUND"
	StatusMemberNotFound    = "MEMBER_NOT_FOUND"
	StatusFetchFailed       = "SUBSCRIPTIONS_UNAVAILABLE"
	StatusRoleNotConfigured = "ROLE_NOT_CONFIGURED"
	StatusRoleNotFound      = "ROLE_NOT_FOUND"
	StatusAssignmentFailed  = "ROLE_ASSIGNMENT_FAILED"
)

type Input struct {
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

// Output is returned for every outcome, failures included. Message is the
// operator-facing text.
type Output struct {
	Status  string `json:"membershipStatus"`
	Message string `json:"membershipMessage"`
	UserID  string `json:"discordUserId,omitempty"`
	RoleID  string `json:"discordRoleId,omitempty"`
}

type ServiceDependencies struct {
	Store         membership.SubscriptionStore
	Directory     membership.MemberDirectory
	Reconciler    *membership.Reconciler
	Observability *observability.Observability
	Logger        logger.Logger
}
