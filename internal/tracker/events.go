package tracker

// EventType discriminates the gateway events the tracker consumes.
type EventType string

const (
	EventMemberJoin       EventType = "member_join"
	EventGuildAvailable   EventType = "guild_available"
	EventGuildUnavailable EventType = "guild_unavailable"
	EventInviteCreated    EventType = "invite_created"
	EventInviteDeleted    EventType = "invite_deleted"
)

// Member identifies the joining account on a member_join event.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsBot    bool   `json:"is_bot"`
}

// Event is one decoded gateway event. Exactly the fields the pipeline
// needs survive decoding; everything else the gateway sends is dropped
// at the edge.
type Event struct {
	Type    EventType `json:"type"`
	GuildID string    `json:"guild_id"`

	// Member is set for member_join events.
	Member *Member `json:"member,omitempty"`

	// InviteCode is set for invite_created / invite_deleted events.
	InviteCode string `json:"invite_code,omitempty"`

	// VanityCapable reports whether the guild has the vanity-URL
	// feature enabled, as seen by the gateway at event time.
	VanityCapable bool `json:"vanity_capable,omitempty"`
}

// UnknownInvite is the sentinel code used when no invite could be
// attributed for a join.
const UnknownInvite = "Unknown"

// Result is the outcome of attributing one member join. Exactly one
// Result is emitted per join event.
type Result struct {
	GuildID  string `json:"guild_id"`
	MemberID string `json:"member_id"`

	// InviteCode is the code believed responsible, or UnknownInvite.
	InviteCode string `json:"invite_code"`
	InviteURL  string `json:"invite_url"`

	// CreatorID is the member owning the attributed invite, the
	// bot-add executor, or the guild owner as ultimate fallback.
	CreatorID string `json:"creator_id,omitempty"`

	// TotalUses sums uses across all invites created by CreatorID,
	// or the vanity use count when IsVanity is set.
	TotalUses int  `json:"total_uses"`
	IsVanity  bool `json:"is_vanity,omitempty"`

	// Error is set when attribution could not complete, typically a
	// platform fetch failure.
	Error string `json:"error,omitempty"`
}

// Failed reports whether attribution terminated on a fetch failure.
func (r Result) Failed() bool {
	return r.Error != ""
}
