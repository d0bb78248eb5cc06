package membership

import "context"

// Subscription is one WordPress product entitlement. WordPress owns it; the
// bot fetches a fresh copy for every event and never caches it.
type Subscription struct {
	ID         int64  `json:"id"`
	SKU        string `json:"mlc_subscription_sku"`
	Name       string `json:"mlc_subscription_name"`
	CustomerID int64  `json:"customer_id"`
	UserID     string `json:"mlc_community_user_id"`
	Username   string `json:"mlc_community_username"`
	Active     bool   `json:"mlc_subscription_active"`
}

// Identity is the Discord account written back onto subscriptions.
// Username carries the display tag.
type Identity struct {
	UserID   string
	Username string
}

// Member is a snapshot of a Discord guild member.
type Member struct {
	GuildID  string
	UserID   string
	Username string
	Tag      string
	Bot      bool
	RoleIDs  []string
}

// SubscriptionStore is the read/write surface of the WordPress store.
type SubscriptionStore interface {
	ActiveByKey(ctx context.Context, key string) ([]Subscription, error)
	ActiveByCustomerID(ctx context.Context, customerID string) ([]Subscription, error)
	AllByUserID(ctx context.Context, userID string) ([]Subscription, error)
	IDsByUserID(ctx context.Context, userID string) ([]int64, error)
	UserIDBySubscriptionID(ctx context.Context, subscriptionID string) (string, error)
	LinkIdentity(ctx context.Context, subscriptionIDs []int64, identity Identity) error
}

// RoleAssigner mutates guild member roles.
type RoleAssigner interface {
	RoleExists(ctx context.Context, guildID, roleID string) (bool, error)
	SetMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
}

// MemberDirectory resolves guilds and members.
type MemberDirectory interface {
	GuildExists(ctx context.Context, guildID string) (bool, error)
	Member(ctx context.Context, guildID, userID string) (*Member, error)
}

// ActiveOnly returns the active subset of subs, preserving order.
func ActiveOnly(subs []Subscription) []Subscription {
	active := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// StaleUsernames returns the subscriptions whose stored username differs
// from tag.
func StaleUsernames(subs []Subscription, tag string) []Subscription {
	stale := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if s.Username != tag {
			stale = append(stale, s)
		}
	}
	return stale
}

func IDs(subs []Subscription) []int64 {
	ids := make([]int64, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
	}
	return ids
}
