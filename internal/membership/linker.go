package membership

import (
	"context"

	"community-bot/internal/common/logger"
)

// LinkResult reports the outcome of writing a Discord identity back onto
// subscriptions. A zero-length ID list is a successful no-op.
type LinkResult struct {
	SubscriptionIDs []int64
	Identity        Identity
	Err             error
}

func (r LinkResult) OK() bool {
	return r.Err == nil
}

// Linker writes identities back to the subscription store. It never
// retries; the caller decides whether a failure needs compensation.
type Linker struct {
	store  SubscriptionStore
	logger logger.Logger
}

func NewLinker(store SubscriptionStore, log logger.Logger) *Linker {
	return &Linker{store: store, logger: log}
}

func (l *Linker) Link(ctx context.Context, ids []int64, identity Identity) LinkResult {
	result := LinkResult{SubscriptionIDs: ids, Identity: identity}
	if len(ids) == 0 {
		return result
	}

	if err := l.store.LinkIdentity(ctx, ids, identity); err != nil {
		result.Err = err
		l.logger.Error("Failed to write identity to subscriptions", map[string]interface{}{
			"subscriptionIds": ids,
			"userId":          identity.UserID,
			"username":        identity.Username,
			"error":           err.Error(),
		})
		return result
	}

	l.logger.Info("Wrote identity to subscriptions", map[string]interface{}{
		"subscriptionIds": ids,
		"userId":          identity.UserID,
		"username":        identity.Username,
	})
	return result
}
