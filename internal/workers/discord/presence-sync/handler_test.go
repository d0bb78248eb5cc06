package presencesync

import (
	"context"
	"errors"
	"testing"

	"community-bot/internal/common/logger"
	"community-bot/internal/membership"
	"community-bot/internal/membership/membershiptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testGuildID = "g1"

// ==========================
// Test Helpers
// ==========================

func createTestHandler(t *testing.T, store *membershiptest.MockStore, guild *membershiptest.Guild) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	policy, err := membership.NewPolicy("SKU1:role100;SKU5:role213", "pqr,xyz")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.GuildID = testGuildID
	h, err := NewHandler(ServiceDependencies{
		Store:      store,
		Directory:  guild,
		Reconciler: membership.NewReconciler(policy, guild, log),
		Linker:     membership.NewLinker(store, log),
		Logger:     log,
	}, cfg)
	require.NoError(t, err)
	return h
}

func online(userID string) *Input {
	return &Input{GuildID: testGuildID, UserID: userID, Status: "online"}
}

// ==========================
// Filtering
// ==========================

func TestExecute_IgnoresOtherStatuses(t *testing.T) {
	store := &membershiptest.MockStore{}
	guild := membershiptest.NewGuild(testGuildID)
	h := createTestHandler(t, store, guild)

	for _, status := range []string{"idle", "dnd", "invisible", ""} {
		out, err := h.Execute(context.Background(), &Input{GuildID: testGuildID, UserID: "u1", Status: status})
		require.NoError(t, err)
		assert.Equal(t, ActionIgnored, out.Action, status)
	}
	store.AssertNotCalled(t, "AllByUserID", mock.Anything, mock.Anything)
}

func TestExecute_IgnoresBots(t *testing.T) {
	store := &membershiptest.MockStore{}
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("bot1", "helper").Bot = true

	out, err := createTestHandler(t, store, guild).Execute(context.Background(), online("bot1"))

	require.NoError(t, err)
	assert.Equal(t, ActionIgnored, out.Action)
	store.AssertNotCalled(t, "AllByUserID", mock.Anything, mock.Anything)
}

func TestExecute_IgnoresOtherGuilds(t *testing.T) {
	store := &membershiptest.MockStore{}
	h := createTestHandler(t, store, membershiptest.NewGuild(testGuildID))

	out, err := h.Execute(context.Background(), &Input{GuildID: "elsewhere", UserID: "u1", Status: "offline"})
	require.NoError(t, err)
	assert.Equal(t, ActionIgnored, out.Action)
}

// ==========================
// Role clearing
// ==========================

func TestExecute_NoActiveSubscriptionClearsRoles(t *testing.T) {
	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return([]membership.Subscription{
		{ID: 7, SKU: "SKU5", UserID: "u1", Username: "alice", Active: false},
	}, nil)
	guild := membershiptest.NewGuild(testGuildID, "role213")
	guild.AddMember("u1", "alice", "role213", "role100")

	out, err := createTestHandler(t, store, guild).Execute(context.Background(), online("u1"))

	require.NoError(t, err)
	assert.Equal(t, ActionRolesCleared, out.Action)
	assert.Empty(t, guild.RolesOf("u1"))
	store.AssertNotCalled(t, "LinkIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_NoSubscriptionsAtAllClearsRoles(t *testing.T) {
	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return([]membership.Subscription{}, nil)
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("u1", "alice", "role213")

	out, err := createTestHandler(t, store, guild).Execute(context.Background(), online("u1"))

	require.NoError(t, err)
	assert.Equal(t, ActionRolesCleared, out.Action)
	require.Len(t, guild.Calls(), 1)
	assert.Equal(t, []string{}, guild.Calls()[0].RoleIDs)
}

func TestExecute_SpecialRoleKeepsRolesAndSkipsWriteBack(t *testing.T) {
	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return([]membership.Subscription{
		{ID: 7, SKU: "SKU5", UserID: "u1", Username: "old-name", Active: false},
	}, nil)
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("u1", "alice", "pqr")

	out, err := createTestHandler(t, store, guild).Execute(context.Background(), online("u1"))

	require.NoError(t, err)
	assert.Equal(t, ActionProtected, out.Action)
	assert.Empty(t, guild.Calls())
	store.AssertNotCalled(t, "LinkIdentity", mock.Anything, mock.Anything, mock.Anything)
}

// ==========================
// Username write-back
// ==========================

func TestExecute_WritesBackOnlyStaleUsernames(t *testing.T) {
	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return([]membership.Subscription{
		{ID: 1, SKU: "SKU1", UserID: "u1", Username: "alice", Active: true},
		{ID: 2, SKU: "SKU5", UserID: "u1", Username: "alice_old", Active: true},
		{ID: 3, SKU: "SKU5", UserID: "u1", Username: "", Active: false},
	}, nil)
	store.On("LinkIdentity", mock.Anything, []int64{2, 3}, membership.Identity{UserID: "u1", Username: "alice"}).Return(nil).Once()
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("u1", "alice", "role213")

	out, err := createTestHandler(t, store, guild).Execute(context.Background(), &Input{GuildID: testGuildID, UserID: "u1", Status: "offline"})

	require.NoError(t, err)
	assert.Equal(t, ActionUsernameLinked, out.Action)
	assert.Equal(t, []int64{2, 3}, out.SubscriptionIDs)
	assert.Empty(t, guild.Calls())
	store.AssertExpectations(t)
}

func TestExecute_UsernameUnchanged(t *testing.T) {
	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return([]membership.Subscription{
		{ID: 1, SKU: "SKU1", UserID: "u1", Username: "alice", Active: true},
	}, nil)
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("u1", "alice")

	out, err := createTestHandler(t, store, guild).Execute(context.Background(), online("u1"))

	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, out.Action)
	store.AssertNotCalled(t, "LinkIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_LinkFailureIsReportedNotReturned(t *testing.T) {
	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return([]membership.Subscription{
		{ID: 2, SKU: "SKU5", UserID: "u1", Username: "alice_old", Active: true},
	}, nil)
	store.On("LinkIdentity", mock.Anything, []int64{2}, mock.Anything).Return(errors.New("502 bad gateway")).Once()
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("u1", "alice", "role213")

	out, err := createTestHandler(t, store, guild).Execute(context.Background(), online("u1"))

	require.NoError(t, err)
	assert.Equal(t, ActionLinkFailed, out.Action)
	assert.Equal(t, []string{"role213"}, guild.RolesOf("u1"))
	store.AssertNumberOfCalls(t, "LinkIdentity", 1)
}

func TestExecute_StoreErrorIsReturned(t *testing.T) {
	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return(nil, errors.New("timeout"))
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("u1", "alice", "role213")

	_, err := createTestHandler(t, store, guild).Execute(context.Background(), online("u1"))

	require.Error(t, err)
	assert.Empty(t, guild.Calls())
}

// ==========================
// Tracing
// ==========================

func TestExecute_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	store := &membershiptest.MockStore{}
	store.On("AllByUserID", mock.Anything, "u1").Return(nil, errors.New("timeout"))
	guild := membershiptest.NewGuild(testGuildID)
	guild.AddMember("u1", "alice")

	_, err := createTestHandler(t, store, guild).Execute(context.Background(), online("u1"))
	require.Error(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	require.Contains(t, names, "membership.presence_sync")
	for _, s := range recorder.Ended() {
		if s.Name() == "membership.presence_sync" {
			assert.True(t, s.SpanContext().HasTraceID())
			assert.NotEmpty(t, s.Events(), "error recorded on span")
		}
	}
}
