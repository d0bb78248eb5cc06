package membership

import (
	"context"
	"time"

	"community-bot/internal/common/logger"
)

// PendingLink records a verification that linked a subscription to a
// Discord user but could not assign the matching role.
type PendingLink struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Tag            string    `json:"tag"`
	GuildID        string    `json:"guildId"`
	SubscriptionID int64     `json:"subscriptionId"`
	SKU            string    `json:"sku"`
	Reason         string    `json:"reason"`
	FlaggedAt      time.Time `json:"flaggedAt"`
}

// PendingLinks is the operator ledger of half-finished verifications.
type PendingLinks interface {
	Flag(ctx context.Context, link PendingLink) error
	Resolve(ctx context.Context, userID string) error
	List(ctx context.Context) ([]PendingLink, error)
}

// Notifier alerts operators.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// LogPendingLinks is used when no Redis is configured: flags are only
// logged and List is always empty.
type LogPendingLinks struct {
	Logger logger.Logger
}

func (l LogPendingLinks) Flag(ctx context.Context, link PendingLink) error {
	l.Logger.Warn("Pending link flagged", map[string]interface{}{
		"userId":         link.UserID,
		"tag":            link.Tag,
		"subscriptionId": link.SubscriptionID,
		"sku":            link.SKU,
		"reason":         link.Reason,
	})
	return nil
}

func (l LogPendingLinks) Resolve(ctx context.Context, userID string) error {
	return nil
}

func (l LogPendingLinks) List(ctx context.Context) ([]PendingLink, error) {
	return []PendingLink{}, nil
}

type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, subject, message string) error {
	return nil
}
