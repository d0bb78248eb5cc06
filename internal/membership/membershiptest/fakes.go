// Package membershiptest provides test doubles for the membership
// interfaces.
package membershiptest

import (
	"context"
	"sync"

	"community-bot/internal/common/errors"
	"community-bot/internal/membership"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of membership.SubscriptionStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ActiveByKey(ctx context.Context, key string) ([]membership.Subscription, error) {
	args := m.Called(ctx, key)
	return subs(args.Get(0)), args.Error(1)
}

func (m *MockStore) ActiveByCustomerID(ctx context.Context, customerID string) ([]membership.Subscription, error) {
	args := m.Called(ctx, customerID)
	return subs(args.Get(0)), args.Error(1)
}

func (m *MockStore) AllByUserID(ctx context.Context, userID string) ([]membership.Subscription, error) {
	args := m.Called(ctx, userID)
	return subs(args.Get(0)), args.Error(1)
}

func (m *MockStore) IDsByUserID(ctx context.Context, userID string) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockStore) UserIDBySubscriptionID(ctx context.Context, subscriptionID string) (string, error) {
	args := m.Called(ctx, subscriptionID)
	return args.String(0), args.Error(1)
}

func (m *MockStore) LinkIdentity(ctx context.Context, subscriptionIDs []int64, identity membership.Identity) error {
	args := m.Called(ctx, subscriptionIDs, identity)
	return args.Error(0)
}

func subs(v interface{}) []membership.Subscription {
	if v == nil {
		return nil
	}
	return v.([]membership.Subscription)
}

// RoleCall is one recorded SetMemberRoles invocation.
type RoleCall struct {
	GuildID string
	UserID  string
	RoleIDs []string
}

// Guild is an in-memory guild implementing membership.RoleAssigner and
// membership.MemberDirectory.
type Guild struct {
	ID      string
	Roles   map[string]bool
	Members map[string]*membership.Member

	// SetErr, when set, is returned by every SetMemberRoles call.
	SetErr error

	mu    sync.Mutex
	calls []RoleCall
}

func NewGuild(id string, roleIDs ...string) *Guild {
	g := &Guild{
		ID:      id,
		Roles:   map[string]bool{},
		Members: map[string]*membership.Member{},
	}
	for _, r := range roleIDs {
		g.Roles[r] = true
	}
	return g
}

// AddMember registers a member and returns it.
func (g *Guild) AddMember(userID, username string, roleIDs ...string) *membership.Member {
	m := &membership.Member{
		GuildID:  g.ID,
		UserID:   userID,
		Username: username,
		Tag:      username,
		RoleIDs:  append([]string{}, roleIDs...),
	}
	g.Members[userID] = m
	return m
}

func (g *Guild) GuildExists(ctx context.Context, guildID string) (bool, error) {
	return guildID == g.ID, nil
}

func (g *Guild) Member(ctx context.Context, guildID, userID string) (*membership.Member, error) {
	m, ok := g.Members[userID]
	if !ok || guildID != g.ID {
		return nil, errors.NewMemberNotFoundError(guildID, userID)
	}
	copied := *m
	return &copied, nil
}

func (g *Guild) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	return g.Roles[roleID], nil
}

func (g *Guild) SetMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, RoleCall{GuildID: guildID, UserID: userID, RoleIDs: append([]string{}, roleIDs...)})
	if g.SetErr != nil {
		return g.SetErr
	}
	if m, ok := g.Members[userID]; ok {
		m.RoleIDs = append([]string{}, roleIDs...)
	}
	return nil
}

// Calls returns the recorded SetMemberRoles invocations.
func (g *Guild) Calls() []RoleCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]RoleCall{}, g.calls...)
}

// RolesOf returns the current roles of a member, or nil when unknown.
func (g *Guild) RolesOf(userID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.Members[userID]; ok {
		return m.RoleIDs
	}
	return nil
}

// MemoryPendingLinks is an in-memory membership.PendingLinks.
type MemoryPendingLinks struct {
	mu    sync.Mutex
	Links map[string]membership.PendingLink
}

func NewMemoryPendingLinks() *MemoryPendingLinks {
	return &MemoryPendingLinks{Links: map[string]membership.PendingLink{}}
}

func (p *MemoryPendingLinks) Flag(ctx context.Context, link membership.PendingLink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Links[link.UserID] = link
	return nil
}

func (p *MemoryPendingLinks) Resolve(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.Links, userID)
	return nil
}

func (p *MemoryPendingLinks) List(ctx context.Context) ([]membership.PendingLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]membership.PendingLink, 0, len(p.Links))
	for _, l := range p.Links {
		out = append(out, l)
	}
	return out, nil
}

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu       sync.Mutex
	Subjects []string
	Messages []string
}

func (n *RecordingNotifier) Notify(ctx context.Context, subject, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Subjects = append(n.Subjects, subject)
	n.Messages = append(n.Messages, message)
	return nil
}
