package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/InviteTracker/utils/ratelimit"
)

const (
	// auditActionBotAdd is the platform's action type for "bot added to guild".
	auditActionBotAdd = 28

	defaultTimeout = 10 * time.Second
)

// RESTClient implements Client against the platform's HTTP API. Every
// call runs under the configured timeout and passes through the shared
// rate limiter (fail-open), so a burst of joins cannot exhaust the
// platform quota the REST layer also draws from.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewRESTClient creates a platform client. limiter may be nil, in
// which case calls are not throttled locally.
func NewRESTClient(baseURL, token string, timeout time.Duration, limiter ratelimit.Limiter, limit int, window time.Duration, logger *zap.Logger) *RESTClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// wireInvite matches the invite list payload. The inviter is a nested
// user object and may be absent for vanity or widget invites.
type wireInvite struct {
	Code    string `json:"code"`
	Uses    int    `json:"uses"`
	Inviter *struct {
		ID string `json:"id"`
	} `json:"inviter"`
	ChannelID string `json:"channel_id"`
}

func (c *RESTClient) FetchInvites(ctx context.Context, guildID string) ([]Invite, error) {
	var wire []wireInvite
	if err := c.get(ctx, "fetch_invites", guildID, fmt.Sprintf("/guilds/%s/invites", guildID), &wire); err != nil {
		return nil, err
	}

	invites := make([]Invite, 0, len(wire))
	for _, w := range wire {
		inv := Invite{
			Code:      w.Code,
			Uses:      w.Uses,
			ChannelID: w.ChannelID,
		}
		if w.Inviter != nil {
			inv.CreatorID = w.Inviter.ID
		}
		invites = append(invites, inv)
	}
	return invites, nil
}

func (c *RESTClient) FetchVanity(ctx context.Context, guildID string) (*Vanity, error) {
	var wire struct {
		Code string `json:"code"`
		Uses int    `json:"uses"`
	}
	err := c.get(ctx, "fetch_vanity", guildID, fmt.Sprintf("/guilds/%s/vanity-url", guildID), &wire)
	if err != nil {
		// No vanity configured is absence, not failure
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if wire.Code == "" {
		return nil, nil
	}
	return &Vanity{Code: wire.Code, Uses: wire.Uses}, nil
}

func (c *RESTClient) FetchBotAddLog(ctx context.Context, guildID string) (*AuditLogEntry, error) {
	var wire struct {
		Entries []struct {
			UserID   string `json:"user_id"`
			TargetID string `json:"target_id"`
		} `json:"audit_log_entries"`
	}
	path := fmt.Sprintf("/guilds/%s/audit-logs?action_type=%d&limit=1", guildID, auditActionBotAdd)
	if err := c.get(ctx, "fetch_audit_log", guildID, path, &wire); err != nil {
		return nil, err
	}
	if len(wire.Entries) == 0 {
		return nil, nil
	}
	return &AuditLogEntry{
		ExecutorID: wire.Entries[0].UserID,
		TargetID:   wire.Entries[0].TargetID,
	}, nil
}

func (c *RESTClient) FetchOwner(ctx context.Context, guildID string) (string, error) {
	var wire struct {
		OwnerID string `json:"owner_id"`
	}
	if err := c.get(ctx, "fetch_owner", guildID, fmt.Sprintf("/guilds/%s", guildID), &wire); err != nil {
		return "", err
	}
	return wire.OwnerID, nil
}

func (c *RESTClient) get(ctx context.Context, op, guildID, path string, out any) error {
	if c.limiter != nil {
		allowed, err := c.limiter.Allow(ctx, "platform:"+guildID, c.limit, c.window)
		if err != nil {
			return &FetchError{Op: op, GuildID: guildID, Err: err}
		}
		if !allowed {
			return &FetchError{Op: op, GuildID: guildID, Err: errors.New("local rate limit exceeded")}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &FetchError{Op: op, GuildID: guildID, Err: err}
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: op, GuildID: guildID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return &FetchError{Op: op, GuildID: guildID, Status: resp.StatusCode, Err: ErrNotFound}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("platform call failed",
			zap.String("op", op),
			zap.String("guild_id", guildID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return &FetchError{
			Op:      op,
			GuildID: guildID,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, GuildID: guildID, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
