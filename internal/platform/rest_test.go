package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTClient(srv.URL, "test-token", 2*time.Second, nil, 0, 0, zap.NewNop())
}

func TestRESTClient_FetchInvites(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/g1/invites", r.URL.Path)
		assert.Equal(t, "Bot test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"code": "abc", "uses": 5, "inviter": {"id": "U1"}, "channel_id": "C1"},
			{"code": "widget", "uses": 0, "channel_id": "C2"}
		]`))
	})

	invites, err := client.FetchInvites(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, invites, 2)

	assert.Equal(t, Invite{Code: "abc", Uses: 5, CreatorID: "U1", ChannelID: "C1"}, invites[0])
	// Inviter-less invites keep an empty creator ID.
	assert.Equal(t, Invite{Code: "widget", Uses: 0, CreatorID: "", ChannelID: "C2"}, invites[1])
}

func TestRESTClient_FetchVanity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/g1/vanity-url", r.URL.Path)
		w.Write([]byte(`{"code": "myvanity", "uses": 12}`))
	})

	vanity, err := client.FetchVanity(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, vanity)
	assert.Equal(t, "myvanity", vanity.Code)
	assert.Equal(t, 12, vanity.Uses)
}

// 404 on the vanity endpoint means "no vanity configured", which is
// absence rather than an error.
func TestRESTClient_FetchVanity_NotConfigured(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	vanity, err := client.FetchVanity(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, vanity)
}

// Some guilds answer 200 with a null code when the feature is enabled
// but no vanity was ever set.
func TestRESTClient_FetchVanity_NullCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": null, "uses": 0}`))
	})

	vanity, err := client.FetchVanity(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, vanity)
}

func TestRESTClient_FetchBotAddLog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/g1/audit-logs", r.URL.Path)
		assert.Equal(t, "28", r.URL.Query().Get("action_type"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		w.Write([]byte(`{"audit_log_entries": [{"user_id": "ADMIN", "target_id": "BOT1"}]}`))
	})

	entry, err := client.FetchBotAddLog(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "ADMIN", entry.ExecutorID)
	assert.Equal(t, "BOT1", entry.TargetID)
}

func TestRESTClient_FetchBotAddLog_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"audit_log_entries": []}`))
	})

	entry, err := client.FetchBotAddLog(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRESTClient_FetchOwner(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/g1", r.URL.Path)
		w.Write([]byte(`{"id": "g1", "name": "Test Guild", "owner_id": "OWNER"}`))
	})

	owner, err := client.FetchOwner(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "OWNER", owner)
}

func TestRESTClient_NotFoundError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchInvites(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "fetch_invites", fetchErr.Op)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
}

func TestRESTClient_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message": "oops"}`))
	})

	_, err := client.FetchInvites(context.Background(), "g1")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusInternalServerError, fetchErr.Status)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestRESTClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.FetchInvites(ctx, "g1")
	require.Error(t, err)
}
