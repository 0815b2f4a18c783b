package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/InviteTracker/internal/platform"
	"github.com/Gopher0727/InviteTracker/internal/snapshot"
	logger "github.com/Gopher0727/InviteTracker/middleware/log"
)

// ResultHandler receives exactly one Result per member-join event.
type ResultHandler func(ctx context.Context, res Result)

// ErrorHandler receives fetch failures that are not tied to a specific
// join, e.g. during guild-available snapshotting.
type ErrorHandler func(guildID string, err error)

// Options configures a Tracker.
type Options struct {
	// InviteBaseURL prefixes invite codes when building display URLs.
	InviteBaseURL string

	// FetchTimeout bounds every platform call made for one event.
	FetchTimeout time.Duration

	// Shards / QueueSize size the event dispatcher.
	Shards    int
	QueueSize int

	OnResult ResultHandler
	OnError  ErrorHandler
}

// Tracker is the attribution pipeline. It consumes gateway events,
// keeps per-guild invite snapshots fresh, and decides on every member
// join which invite was responsible.
type Tracker struct {
	store  *snapshot.Store
	client platform.Client
	log    *logger.Logger

	inviteBase   string
	fetchTimeout time.Duration

	dispatcher *Dispatcher
	onResult   ResultHandler
	onError    ErrorHandler
}

func New(store *snapshot.Store, client platform.Client, log *logger.Logger, opts Options) *Tracker {
	if opts.InviteBaseURL == "" {
		opts.InviteBaseURL = "https://discord.gg"
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}

	t := &Tracker{
		store:        store,
		client:       client,
		log:          log,
		inviteBase:   opts.InviteBaseURL,
		fetchTimeout: opts.FetchTimeout,
		onResult:     opts.OnResult,
		onError:      opts.OnError,
	}
	t.dispatcher = NewDispatcher(opts.Shards, opts.QueueSize, t.handle, log.Logger)
	return t
}

// Start launches the dispatcher workers.
func (t *Tracker) Start() {
	t.dispatcher.Start()
}

// Stop shuts the dispatcher down.
func (t *Tracker) Stop() {
	t.dispatcher.Stop()
}

// Submit queues a gateway event for processing on its guild's shard.
func (t *Tracker) Submit(ev Event) {
	t.dispatcher.Submit(ev)
}

// handle runs on a shard worker; one guild's events arrive here in
// strict order.
func (t *Tracker) handle(ev Event) {
	ctx := logger.WithTraceID(context.Background(), "")
	ctx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	switch ev.Type {
	case EventMemberJoin:
		if ev.Member == nil {
			t.log.WarnContext(ctx, "member_join event without member", zap.String("guild_id", ev.GuildID))
			return
		}
		res := t.attribute(ctx, ev)
		t.emit(ctx, res)

	case EventGuildAvailable, EventInviteCreated, EventInviteDeleted:
		t.snapshotGuild(ctx, ev.GuildID, ev.VanityCapable)

	case EventGuildUnavailable:
		t.store.DropGuild(ev.GuildID)
		t.log.InfoContext(ctx, "dropped guild snapshot", zap.String("guild_id", ev.GuildID))

	default:
		t.log.WarnContext(ctx, "unknown event type",
			zap.String("event_type", string(ev.Type)),
			zap.String("guild_id", ev.GuildID),
		)
	}
}

// attribute runs the per-join state machine and returns exactly one
// Result. Whatever branch fires, a successful invite fetch always
// refreshes the stored snapshot before the function returns, so the
// next join diffs against current truth.
func (t *Tracker) attribute(ctx context.Context, ev Event) Result {
	res := Result{
		GuildID:    ev.GuildID,
		MemberID:   ev.Member.ID,
		InviteCode: UnknownInvite,
		InviteURL:  UnknownInvite,
	}

	// Bots don't consume invites; the audit log says who added them.
	if ev.Member.IsBot {
		entry, err := t.client.FetchBotAddLog(ctx, ev.GuildID)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if entry != nil && entry.TargetID == ev.Member.ID {
			res.CreatorID = entry.ExecutorID
			return res
		}
		return t.ownerFallback(ctx, res)
	}

	fresh, err := t.client.FetchInvites(ctx, ev.GuildID)
	if err != nil {
		// Snapshot stays untouched; the stale copy remains valid for
		// the next attempt.
		res.Error = err.Error()
		return res
	}
	records := t.toRecords(fresh)
	old := t.store.GetSnapshot(ev.GuildID)
	defer t.store.ReplaceSnapshot(ev.GuildID, records)

	if used, ok := ResolveUsedInvite(old, records); ok {
		res.InviteCode = used.Code
		res.InviteURL = used.URL
		res.CreatorID = used.CreatorID
		res.TotalUses = SumUsesByCreator(records, used.CreatorID)
		return res
	}

	if ev.VanityCapable {
		owner, err := t.client.FetchOwner(ctx, ev.GuildID)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		vanity, err := t.client.FetchVanity(ctx, ev.GuildID)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if vanity != nil {
			t.store.SetVanity(ev.GuildID, vanity.Code, vanity.Uses)
			res.InviteCode = vanity.Code
			res.InviteURL = t.inviteBase + "/" + vanity.Code
			res.CreatorID = owner
			res.TotalUses = vanity.Uses
			res.IsVanity = true
			return res
		}
		res.CreatorID = owner
		return res
	}

	return t.ownerFallback(ctx, res)
}

func (t *Tracker) ownerFallback(ctx context.Context, res Result) Result {
	owner, err := t.client.FetchOwner(ctx, res.GuildID)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.CreatorID = owner
	return res
}

// snapshotGuild re-fetches a guild's invites and replaces the stored
// snapshot wholesale, plus the vanity snapshot when applicable. Fetch
// failures go to the error handler; the old snapshot stays in place.
func (t *Tracker) snapshotGuild(ctx context.Context, guildID string, vanityCapable bool) {
	fresh, err := t.client.FetchInvites(ctx, guildID)
	if err != nil {
		t.notifyError(guildID, err)
		return
	}
	t.store.ReplaceSnapshot(guildID, t.toRecords(fresh))

	if vanityCapable {
		vanity, err := t.client.FetchVanity(ctx, guildID)
		if err != nil {
			t.notifyError(guildID, err)
			return
		}
		if vanity != nil {
			t.store.SetVanity(guildID, vanity.Code, vanity.Uses)
		}
	}

	t.log.DebugContext(ctx, "refreshed guild snapshot",
		zap.String("guild_id", guildID),
		zap.Int("invites", len(fresh)),
	)
}

func (t *Tracker) emit(ctx context.Context, res Result) {
	if res.Failed() {
		t.log.ErrorContext(ctx, "invite attribution failed",
			zap.String("guild_id", res.GuildID),
			zap.String("member_id", res.MemberID),
			zap.String("error", res.Error),
		)
	} else {
		t.log.InfoContext(ctx, "member join attributed",
			zap.String("guild_id", res.GuildID),
			zap.String("member_id", res.MemberID),
			zap.String("invite_code", res.InviteCode),
			zap.String("inviter_id", res.CreatorID),
			zap.Bool("is_vanity", res.IsVanity),
			zap.Int("total_uses", res.TotalUses),
		)
	}

	if t.onResult != nil {
		t.onResult(ctx, res)
	}
}

func (t *Tracker) notifyError(guildID string, err error) {
	t.log.Error("snapshot refresh failed",
		zap.String("guild_id", guildID),
		zap.Error(err),
	)
	if t.onError != nil {
		t.onError(guildID, err)
	}
}

// toRecords converts a fetched invite list into snapshot records with
// display URLs attached.
func (t *Tracker) toRecords(invites []platform.Invite) []snapshot.InviteRecord {
	records := make([]snapshot.InviteRecord, 0, len(invites))
	for _, inv := range invites {
		records = append(records, snapshot.InviteRecord{
			Code:      inv.Code,
			URL:       t.inviteBase + "/" + inv.Code,
			Uses:      inv.Uses,
			CreatorID: inv.CreatorID,
		})
	}
	return records
}
