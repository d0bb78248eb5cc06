package httpapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"community-bot/internal/common/config"
	"community-bot/internal/common/logger"
	"community-bot/internal/membership"
	"community-bot/internal/membership/membershiptest"
	syncmembership "community-bot/internal/workers/storefront/sync-membership"
)

const testGuildID = "guild1"

// ==========================
// Test Helpers
// ==========================

type testServer struct {
	store   *membershiptest.MockStore
	guild   *membershiptest.Guild
	pending *membershiptest.MemoryPendingLinks
	handler http.Handler
}

func createTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	log := logger.NewTestLogger(t)
	policy, err := membership.NewPolicy("SKU1:role100;SKU5:role213", "pqr")
	require.NoError(t, err)

	ts := &testServer{
		store:   &membershiptest.MockStore{},
		guild:   membershiptest.NewGuild(testGuildID, "role100", "role213"),
		pending: membershiptest.NewMemoryPendingLinks(),
	}

	cfg := syncmembership.DefaultConfig()
	cfg.GuildID = testGuildID
	service := syncmembership.NewService(syncmembership.ServiceDependencies{
		Store:      ts.store,
		Directory:  ts.guild,
		Reconciler: membership.NewReconciler(policy, ts.guild, log),
		Logger:     log,
	}, cfg)

	opts := Options{
		Sync:    service,
		Pending: ts.pending,
		AppName: "community-bot",
		Version: "test",
		Logger:  log,
	}
	if mutate != nil {
		mutate(&opts)
	}
	ts.handler = NewRouter(opts)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var payload map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func active(id int64, sku, userID string) membership.Subscription {
	return membership.Subscription{ID: id, SKU: sku, Name: sku, CustomerID: 365, UserID: userID, Active: true}
}

// ==========================
// Sync endpoint
// ==========================

func TestSyncMembership_NotVerified(t *testing.T) {
	ts := createTestServer(t, nil)
	ts.store.On("ActiveByCustomerID", mock.Anything, "365").Return([]membership.Subscription{}, nil)
	ts.store.On("UserIDBySubscriptionID", mock.Anything, "9001").Return("", nil)

	rec, _ := ts.do(t, http.MethodPut, "/v1/customers/365/syncMembership", `{"subscriptionId": 9001}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Member not verified.", rec.Body.String())
	assert.Equal(t, "NOT_VERIFIED", rec.Header().Get("X-Membership-Status"))
	assert.Empty(t, ts.guild.Calls())
}

func TestSyncMembership_AssignsHighestSKURole(t *testing.T) {
	ts := createTestServer(t, nil)
	ts.guild.AddMember("u365", "buyer", "role100", "stale")
	ts.store.On("ActiveByCustomerID", mock.Anything, "365").Return([]membership.Subscription{
		active(1, "SKU1", "u365"),
		active(2, "SKU5", "u365"),
	}, nil)

	rec, _ := ts.do(t, http.MethodPut, "/v1/customers/365/syncMembership", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ROLE_ASSIGNED", rec.Header().Get("X-Membership-Status"))
	assert.Equal(t, "Customer 365 synced with role role213.", rec.Body.String())
	assert.Equal(t, []string{"role213"}, ts.guild.RolesOf("u365"))
}

func TestSyncMembership_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(ts *testServer)
		wantStatus int
		wantMsg    string
	}{
		{
			name: "member not in guild",
			setup: func(ts *testServer) {
				ts.store.On("ActiveByCustomerID", mock.Anything, "365").Return([]membership.Subscription{active(1, "SKU5", "ghost")}, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "Customer 365 could not be updated.",
		},
		{
			name: "wordpress down",
			setup: func(ts *testServer) {
				ts.store.On("ActiveByCustomerID", mock.Anything, "365").Return(nil, stderrors.New("connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Subscriptions could not be fetched.",
		},
		{
			name: "unmapped sku",
			setup: func(ts *testServer) {
				ts.guild.AddMember("u365", "buyer")
				ts.store.On("ActiveByCustomerID", mock.Anything, "365").Return([]membership.Subscription{active(1, "SKU7", "u365")}, nil)
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Role for sku SKU7 not configured.",
		},
		{
			name: "discord rejects update",
			setup: func(ts *testServer) {
				ts.guild.AddMember("u365", "buyer")
				ts.guild.SetErr = stderrors.New("Missing Permissions")
				ts.store.On("ActiveByCustomerID", mock.Anything, "365").Return([]membership.Subscription{active(1, "SKU5", "u365")}, nil)
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Role cannot be assigned: unknown error. Missing Permissions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := createTestServer(t, nil)
			tt.setup(ts)

			rec, _ := ts.do(t, http.MethodPut, "/v1/customers/365/syncMembership", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, rec.Body.String())
		})
	}
}

func TestSyncMembership_RejectsBadInput(t *testing.T) {
	ts := createTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodPut, "/v1/customers/abc/syncMembership", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPut, "/v1/customers/365/syncMembership", `{"subscriptionId": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPut, "/v1/customers/365/syncMembership", `{"subscriptionId": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.store.AssertNotCalled(t, "ActiveByCustomerID", mock.Anything, mock.Anything)
}

// ==========================
// Operator endpoints
// ==========================

func TestPendingLinks_ListAndResolve(t *testing.T) {
	ts := createTestServer(t, nil)
	require.NoError(t, ts.pending.Flag(context.Background(), membership.PendingLink{ID: "p1", UserID: "u1", SKU: "SKU5"}))

	rec, body := ts.do(t, http.MethodGet, "/v1/pending-links", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["pendingLinks"], 1)

	rec, _ = ts.do(t, http.MethodDelete, "/v1/pending-links/u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.pending.Links)
}

func TestBasicAuthGuardsV1(t *testing.T) {
	ts := createTestServer(t, func(o *Options) {
		o.BasicAuth = config.BasicAuthConfig{Username: "ops", Password: "secret"}
	})

	rec, _ := ts.do(t, http.MethodGet, "/v1/pending-links", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/pending-links", nil)
	req.SetBasicAuth("ops", "secret")
	authed := httptest.NewRecorder()
	ts.handler.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)

	rec, _ = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ==========================
// Probes
// ==========================

func TestProbes(t *testing.T) {
	ts := createTestServer(t, func(o *Options) {
		o.Checks = map[string]ReadinessCheck{
			"redis": func(ctx context.Context) error { return stderrors.New("dial tcp: refused") },
		}
	})

	rec, _ := ts.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "community-bot", body["service"])

	rec, body = ts.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body["status"])

	rec, _ = ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
