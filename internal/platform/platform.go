package platform

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports that the referenced guild or resource is no
// longer resolvable on the platform.
var ErrNotFound = errors.New("platform: not found")

// Invite is one entry of a guild's live invite list. Uses is zero when
// the platform does not report a counter for the invite.
type Invite struct {
	Code      string
	Uses      int
	CreatorID string
	ChannelID string
}

// Vanity is the state of a guild's custom vanity invite.
type Vanity struct {
	Code string
	Uses int
}

// AuditLogEntry is a single bot-add audit log record.
type AuditLogEntry struct {
	ExecutorID string
	TargetID   string
}

// Client is the capability surface the attribution pipeline needs from
// the chat platform. Implementations may fail any call with a
// *FetchError; absence (no vanity configured, empty audit log) is
// reported as a nil result with a nil error.
type Client interface {
	// FetchInvites returns the guild's current invite list.
	FetchInvites(ctx context.Context, guildID string) ([]Invite, error)

	// FetchVanity returns the guild's vanity invite, or nil if the
	// guild has none.
	FetchVanity(ctx context.Context, guildID string) (*Vanity, error)

	// FetchBotAddLog returns the most recent bot-add audit log entry,
	// or nil if there is none.
	FetchBotAddLog(ctx context.Context, guildID string) (*AuditLogEntry, error)

	// FetchOwner returns the ID of the guild owner.
	FetchOwner(ctx context.Context, guildID string) (string, error)
}

// FetchError wraps a failed platform call with enough context to log
// and classify it. It satisfies errors.Is(err, ErrNotFound) when the
// platform reported the resource gone.
type FetchError struct {
	Op      string
	GuildID string
	Status  int
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("platform: %s for guild %s failed with status %d: %v", e.Op, e.GuildID, e.Status, e.Err)
	}
	return fmt.Sprintf("platform: %s for guild %s failed: %v", e.Op, e.GuildID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
