package services

import (
	"context"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Gopher0727/InviteTracker/internal/models"
	"github.com/Gopher0727/InviteTracker/internal/platform"
	"github.com/Gopher0727/InviteTracker/internal/repositories"
	logger "github.com/Gopher0727/InviteTracker/middleware/log"
)

// stubPlatform serves a fixed invite list and counts fetches, so cache
// hits are observable.
type stubPlatform struct {
	mu      sync.Mutex
	invites []platform.Invite
	calls   int
}

func (s *stubPlatform) FetchInvites(ctx context.Context, guildID string) ([]platform.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.invites, nil
}

func (s *stubPlatform) FetchVanity(ctx context.Context, guildID string) (*platform.Vanity, error) {
	return nil, nil
}

func (s *stubPlatform) FetchBotAddLog(ctx context.Context, guildID string) (*platform.AuditLogEntry, error) {
	return nil, nil
}

func (s *stubPlatform) FetchOwner(ctx context.Context, guildID string) (string, error) {
	return "OWNER", nil
}

func setupInviteService(t *testing.T, stub *stubPlatform) *InviteService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Guild{},
		&models.GuildMember{},
		&models.Invite{},
		&models.JoinEvent{},
	))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log, err := logger.NewDevelopmentLogger()
	require.NoError(t, err)

	repo := repositories.NewInviteRepository(db, client)
	return NewInviteService(stub, repo, log, "https://discord.gg")
}

func TestInviteService_ListInvites(t *testing.T) {
	stub := &stubPlatform{invites: []platform.Invite{
		{Code: "abc", Uses: 5, CreatorID: "U1", ChannelID: "C1"},
		{Code: "def", Uses: 2, CreatorID: "U2", ChannelID: "C2"},
	}}
	svc := setupInviteService(t, stub)
	ctx := context.Background()

	infos, err := svc.ListInvites(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "https://discord.gg/abc", infos[0].URL)
	assert.Equal(t, 5, infos[0].Uses)

	// Second call is served from cache
	again, err := svc.ListInvites(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, infos, again)
	assert.Equal(t, 1, stub.calls)
}

func TestInviteService_GetInvite(t *testing.T) {
	stub := &stubPlatform{invites: []platform.Invite{
		{Code: "abc", Uses: 5, CreatorID: "U1"},
	}}
	svc := setupInviteService(t, stub)
	ctx := context.Background()

	info, err := svc.GetInvite(ctx, "g1", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", info.Code)

	_, err = svc.GetInvite(ctx, "g1", "nope")
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteService_MemberInvites(t *testing.T) {
	stub := &stubPlatform{invites: []platform.Invite{
		{Code: "a", Uses: 3, CreatorID: "U1"},
		{Code: "b", Uses: 4, CreatorID: "U2"},
		{Code: "c", Uses: 2, CreatorID: "U1"},
	}}
	svc := setupInviteService(t, stub)

	resp, err := svc.MemberInvites(context.Background(), "g1", "U1")
	require.NoError(t, err)
	assert.Equal(t, "U1", resp.UserID)
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, []string{"a", "c"}, resp.Codes)

	// No invites is an empty response, not an error
	resp, err = svc.MemberInvites(context.Background(), "g1", "U9")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.Codes)
}

func TestInviteService_TopInviters(t *testing.T) {
	stub := &stubPlatform{invites: []platform.Invite{
		{Code: "a", Uses: 3, CreatorID: "U2"},
		{Code: "b", Uses: 5, CreatorID: "U1"},
		{Code: "c", Uses: 2, CreatorID: "U2"},
		{Code: "widget", Uses: 9, CreatorID: ""},
		{Code: "d", Uses: 5, CreatorID: "U3"},
	}}
	svc := setupInviteService(t, stub)

	entries, err := svc.TopInviters(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// All three total 5 uses; the tie breaks by user ID, and the
	// inviter-less widget invite is excluded entirely
	assert.Equal(t, "U1", entries[0].UserID)
	assert.Equal(t, 5, entries[0].Count)
	assert.Equal(t, "U2", entries[1].UserID)
	assert.Equal(t, 5, entries[1].Count)
	assert.Equal(t, []string{"a", "c"}, entries[1].Codes)
	assert.Equal(t, "U3", entries[2].UserID)
}

func TestInviteService_RecentJoins_LimitClamp(t *testing.T) {
	stub := &stubPlatform{}
	svc := setupInviteService(t, stub)

	for i := range 3 {
		event := &models.JoinEvent{ID: int64(i + 1), GuildID: "g1", UserID: "M1", InviteCode: ""}
		require.NoError(t, svc.repo.RecordAttribution(event))
	}

	joins, err := svc.RecentJoins("g1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, joins, 3)

	joins, err = svc.RecentJoins("g1", 2, 0)
	require.NoError(t, err)
	assert.Len(t, joins, 2)
}
