package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    RoleMap
		wantErr string
	}{
		{name: "empty", raw: "", want: RoleMap{}},
		{name: "single", raw: "SKU5:role213", want: RoleMap{"SKU5": "role213"}},
		{name: "several with spaces", raw: " SKU1:role1 ; SKU2:role2;", want: RoleMap{"SKU1": "role1", "SKU2": "role2"}},
		{name: "duplicate same role", raw: "SKU1:role1;SKU1:role1", want: RoleMap{"SKU1": "role1"}},
		{name: "missing colon", raw: "SKU1role1", wantErr: "want sku:roleId"},
		{name: "missing role", raw: "SKU1:", wantErr: "want sku:roleId"},
		{name: "conflicting duplicate", raw: "SKU1:role1;SKU1:role2", wantErr: "mapped to both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoleMap(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_IsProtected(t *testing.T) {
	policy, err := NewPolicy("SKU5:role213", "pqr, xyz,,")
	require.NoError(t, err)

	assert.Len(t, policy.Special, 2)
	assert.True(t, policy.IsProtected([]string{"abc", "xyz"}))
	assert.False(t, policy.IsProtected([]string{"abc", "role213"}))
	assert.False(t, policy.IsProtected(nil))
	assert.Equal(t, []string{"SKU5"}, policy.SKUs())
}

func TestSubscriptionHelpers(t *testing.T) {
	subs := []Subscription{
		{ID: 1, Username: "alice", Active: true},
		{ID: 2, Username: "old-alice", Active: false},
		{ID: 3, Username: "", Active: true},
	}

	assert.Equal(t, []int64{1, 3}, IDs(ActiveOnly(subs)))
	assert.Equal(t, []int64{2, 3}, IDs(StaleUsernames(subs, "alice")))
	assert.Empty(t, ActiveOnly(nil))
}
