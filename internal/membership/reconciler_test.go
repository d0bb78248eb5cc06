package membership_test

import (
	"context"
	stderrors "errors"
	"testing"

	"community-bot/internal/common/errors"
	"community-bot/internal/common/logger"
	"community-bot/internal/membership"
	"community-bot/internal/membership/membershiptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func createTestPolicy(t *testing.T) *membership.Policy {
	t.Helper()
	policy, err := membership.NewPolicy("SKU1:role100;SKU4:role400;SKU5:role213", "pqr,xyz")
	require.NoError(t, err)
	return policy
}

func createTestReconciler(t *testing.T, guild *membershiptest.Guild) *membership.Reconciler {
	t.Helper()
	return membership.NewReconciler(createTestPolicy(t), guild, logger.NewTestLogger(t))
}

func sub(id int64, sku string) membership.Subscription {
	return membership.Subscription{ID: id, SKU: sku, Name: "Plan " + sku, CustomerID: 365, Active: true}
}

// ==========================
// HighestSKU
// ==========================

func TestHighestSKU(t *testing.T) {
	tests := []struct {
		name    string
		subs    []membership.Subscription
		wantID  int64
		wantSKU string
		wantOK  bool
	}{
		{name: "empty", subs: nil, wantOK: false},
		{name: "single", subs: []membership.Subscription{sub(1, "SKU1")}, wantID: 1, wantSKU: "SKU1", wantOK: true},
		{name: "picks greatest", subs: []membership.Subscription{sub(1, "SKU1"), sub(2, "SKU4")}, wantID: 2, wantSKU: "SKU4", wantOK: true},
		{name: "order independent", subs: []membership.Subscription{sub(2, "SKU4"), sub(1, "SKU1")}, wantID: 2, wantSKU: "SKU4", wantOK: true},
		{name: "ties keep first", subs: []membership.Subscription{sub(7, "SKU4"), sub(8, "SKU4")}, wantID: 7, wantSKU: "SKU4", wantOK: true},
		{name: "string order not numeric", subs: []membership.Subscription{sub(10, "SKU10"), sub(9, "SKU9")}, wantID: 9, wantSKU: "SKU9", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := membership.HighestSKU(tt.subs)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.ID)
				assert.Equal(t, tt.wantSKU, got.SKU)
			}
		})
	}
}

// ==========================
// Reconcile
// ==========================

func TestReconciler_AssignsHighestSKURole(t *testing.T) {
	guild := membershiptest.NewGuild("213guild", "role100", "role400")
	member := guild.AddMember("u1", "alice", "role100", "other")
	r := createTestReconciler(t, guild)

	result, err := r.Reconcile(context.Background(), member, []membership.Subscription{sub(1, "SKU1"), sub(2, "SKU4")})
	require.NoError(t, err)

	assert.Equal(t, membership.OutcomeRoleAssigned, result.Outcome)
	assert.Equal(t, "SKU4", result.SKU)
	assert.Equal(t, "role400", result.RoleID)
	assert.Equal(t, []string{"role400"}, guild.RolesOf("u1"), "role set is replaced, not merged")
}

func TestReconciler_UnmappedSKU(t *testing.T) {
	guild := membershiptest.NewGuild("213guild", "role100")
	member := guild.AddMember("u1", "alice", "role100")
	r := createTestReconciler(t, guild)

	result, err := r.Reconcile(context.Background(), member, []membership.Subscription{sub(1, "SKU1"), sub(2, "SKU9")})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRoleNotConfigured))
	assert.Contains(t, err.Error(), "SKU9")
	assert.Empty(t, guild.Calls(), "no mutation on configuration error")
}

func TestReconciler_RoleMissingFromGuild(t *testing.T) {
	guild := membershiptest.NewGuild("213guild")
	member := guild.AddMember("u1", "alice")
	r := createTestReconciler(t, guild)

	_, err := r.Reconcile(context.Background(), member, []membership.Subscription{sub(1, "SKU5")})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRoleNotFound))
	assert.Empty(t, guild.Calls())
}

func TestReconciler_AssignmentRejected(t *testing.T) {
	guild := membershiptest.NewGuild("213guild", "role213")
	guild.SetErr = stderrors.New("HTTP 403 Forbidden, Missing Permissions")
	member := guild.AddMember("u1", "alice")
	r := createTestReconciler(t, guild)

	_, err := r.Reconcile(context.Background(), member, []membership.Subscription{sub(1, "SKU5")})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRoleAssignmentFailed))
	assert.Contains(t, err.Error(), "Missing Permissions")
	assert.Len(t, guild.Calls(), 1, "no retry")
}

func TestReconciler_EmptySubscriptions(t *testing.T) {
	tests := []struct {
		name        string
		roles       []string
		wantOutcome membership.Outcome
		wantCalls   int
		wantRoles   []string
	}{
		{
			name:        "no special role clears roles",
			roles:       []string{"role213", "other"},
			wantOutcome: membership.OutcomeRolesCleared,
			wantCalls:   1,
			wantRoles:   []string{},
		},
		{
			name:        "special role blocks removal",
			roles:       []string{"role213", "xyz"},
			wantOutcome: membership.OutcomeProtected,
			wantCalls:   0,
			wantRoles:   []string{"role213", "xyz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guild := membershiptest.NewGuild("213guild", "role213")
			member := guild.AddMember("u1", "alice", tt.roles...)
			r := createTestReconciler(t, guild)

			result, err := r.Reconcile(context.Background(), member, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOutcome, result.Outcome)
			assert.Len(t, guild.Calls(), tt.wantCalls)
			assert.Equal(t, tt.wantRoles, guild.RolesOf("u1"))
		})
	}
}

func TestReconciler_GrantSKU(t *testing.T) {
	tests := []struct {
		name      string
		roles     []string
		wantRoles []string
	}{
		{name: "adds to existing roles", roles: []string{"mod"}, wantRoles: []string{"mod", "role213"}},
		{name: "keeps special role", roles: []string{"pqr", "role100"}, wantRoles: []string{"pqr", "role100", "role213"}},
		{name: "role already held", roles: []string{"role213", "mod"}, wantRoles: []string{"mod", "role213"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guild := membershiptest.NewGuild("213guild", "role213")
			member := guild.AddMember("u1", "alice", tt.roles...)
			r := createTestReconciler(t, guild)

			result, err := r.GrantSKU(context.Background(), member, "SKU5")
			require.NoError(t, err)

			assert.Equal(t, membership.OutcomeRoleAssigned, result.Outcome)
			assert.Equal(t, "role213", result.RoleID)
			assert.Equal(t, tt.wantRoles, guild.RolesOf("u1"))
		})
	}
}

func TestReconciler_GrantSKU_UnmappedSKU(t *testing.T) {
	guild := membershiptest.NewGuild("213guild", "role213")
	member := guild.AddMember("u1", "alice", "pqr")
	r := createTestReconciler(t, guild)

	_, err := r.GrantSKU(context.Background(), member, "SKU9")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRoleNotConfigured))
	assert.Empty(t, guild.Calls())
}

func TestReconciler_ResolveRole(t *testing.T) {
	guild := membershiptest.NewGuild("213guild", "role213")
	r := createTestReconciler(t, guild)

	roleID, err := r.ResolveRole(context.Background(), "213guild", "SKU5")
	require.NoError(t, err)
	assert.Equal(t, "role213", roleID)

	_, err = r.ResolveRole(context.Background(), "213guild", "SKU404")
	assert.True(t, errors.HasCode(err, errors.ErrCodeRoleNotConfigured))
}
