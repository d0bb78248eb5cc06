package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"community-bot/internal/membership"

	"github.com/redis/go-redis/v9"
)

const pendingLinksKey = "pending-links"

// PendingLinkStore keeps flagged verifications in a Redis hash keyed by
// Discord user id. A user has at most one open flag; a newer flag replaces
// the older one.
type PendingLinkStore struct {
	client redis.Cmdable
	key    string
}

var _ membership.PendingLinks = (*PendingLinkStore)(nil)

func NewPendingLinkStore(rc *RedisClient) *PendingLinkStore {
	return &PendingLinkStore{client: rc.Client, key: rc.Key(pendingLinksKey)}
}

// NewPendingLinkStoreWithClient is used when the caller owns the client.
func NewPendingLinkStoreWithClient(client redis.Cmdable, key string) *PendingLinkStore {
	return &PendingLinkStore{client: client, key: key}
}

func (s *PendingLinkStore) Flag(ctx context.Context, link membership.PendingLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode pending link: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, link.UserID, data).Err(); err != nil {
		return fmt.Errorf("flag pending link for %s: %w", link.UserID, err)
	}
	return nil
}

func (s *PendingLinkStore) Resolve(ctx context.Context, userID string) error {
	if err := s.client.HDel(ctx, s.key, userID).Err(); err != nil {
		return fmt.Errorf("resolve pending link for %s: %w", userID, err)
	}
	return nil
}

// List returns open flags, oldest first.
func (s *PendingLinkStore) List(ctx context.Context) ([]membership.PendingLink, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending links: %w", err)
	}

	links := make([]membership.PendingLink, 0, len(values))
	for userID, raw := range values {
		var link membership.PendingLink
		if err := json.Unmarshal([]byte(raw), &link); err != nil {
			return nil, fmt.Errorf("decode pending link for %s: %w", userID, err)
		}
		links = append(links, link)
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].FlaggedAt.Before(links[j].FlaggedAt)
	})
	return links, nil
}
