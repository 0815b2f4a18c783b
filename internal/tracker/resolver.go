package tracker

import (
	"github.com/Gopher0727/InviteTracker/internal/snapshot"
)

// ResolveUsedInvite decides which invite was consumed between the old
// snapshot and a freshly fetched invite list.
//
// Primary rule: a code present in both lists whose use count grew. If
// several codes qualify (concurrent joins between snapshots), the one
// with the largest delta wins; equal deltas break toward the
// lexicographically smallest code, so the outcome never depends on the
// order the platform returned the lists in.
//
// Secondary rule: if no counter grew, a brand-new invite fetched with
// exactly one use was just created and consumed; the first such entry
// in fetched order wins.
//
// Pure function: no I/O, deterministic for fixed inputs.
func ResolveUsedInvite(old, fresh []snapshot.InviteRecord) (snapshot.InviteRecord, bool) {
	oldUses := make(map[string]int, len(old))
	for _, rec := range old {
		oldUses[rec.Code] = rec.Uses
	}

	var (
		best      snapshot.InviteRecord
		bestDelta int
	)
	for _, rec := range fresh {
		prev, seen := oldUses[rec.Code]
		if !seen {
			continue
		}
		delta := rec.Uses - prev
		if delta <= 0 {
			continue
		}
		if delta > bestDelta || (delta == bestDelta && rec.Code < best.Code) {
			best = rec
			bestDelta = delta
		}
	}
	if bestDelta > 0 {
		return best, true
	}

	for _, rec := range fresh {
		if _, seen := oldUses[rec.Code]; seen {
			continue
		}
		if rec.Uses == 1 {
			return rec, true
		}
	}

	return snapshot.InviteRecord{}, false
}

// SumUsesByCreator totals the use counters of every invite owned by
// the given creator. An empty creator ID matches invites the platform
// reported without an inviter.
func SumUsesByCreator(records []snapshot.InviteRecord, creatorID string) int {
	total := 0
	for _, rec := range records {
		if rec.CreatorID == creatorID {
			total += rec.Uses
		}
	}
	return total
}
