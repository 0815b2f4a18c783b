package tracker

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Gopher0727/InviteTracker/internal/snapshot"
)

// genSnapshot builds an invite list of n codes with use counts derived
// from the seed, so shrinking stays reproducible.
func genSnapshot(n int, seed int64) []snapshot.InviteRecord {
	rng := rand.New(rand.NewSource(seed))
	records := make([]snapshot.InviteRecord, 0, n)
	for i := range n {
		records = append(records, snapshot.InviteRecord{
			Code:      fmt.Sprintf("inv%03d", i),
			Uses:      rng.Intn(50),
			CreatorID: fmt.Sprintf("U%d", rng.Intn(5)),
		})
	}
	return records
}

func TestProperty_ResolverDeterministic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("same inputs always give the same answer", prop.ForAll(
		func(n int, seed int64, bumped int) bool {
			old := genSnapshot(n, seed)
			fresh := genSnapshot(n, seed)
			fresh[bumped%n].Uses++

			first, ok1 := ResolveUsedInvite(old, fresh)
			second, ok2 := ResolveUsedInvite(old, fresh)
			return ok1 == ok2 && first == second
		},
		gen.IntRange(1, 50),
		gen.Int64(),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ResolverOrderIndependent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("fresh list order does not change a counter-increase match", prop.ForAll(
		func(n int, seed int64, bumped int, shuffleSeed int64) bool {
			old := genSnapshot(n, seed)
			fresh := genSnapshot(n, seed)
			fresh[bumped%n].Uses++

			used, ok := ResolveUsedInvite(old, fresh)
			if !ok {
				return false
			}

			shuffled := make([]snapshot.InviteRecord, len(fresh))
			copy(shuffled, fresh)
			rng := rand.New(rand.NewSource(shuffleSeed))
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			usedShuffled, ok := ResolveUsedInvite(old, shuffled)
			return ok && used == usedShuffled
		},
		gen.IntRange(1, 50),
		gen.Int64(),
		gen.IntRange(0, 1000),
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ResolverSingleBumpFound(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("exactly one grown counter is always attributed to that code", prop.ForAll(
		func(n int, seed int64, bumped int, delta int) bool {
			old := genSnapshot(n, seed)
			fresh := genSnapshot(n, seed)
			idx := bumped % n
			fresh[idx].Uses += delta

			used, ok := ResolveUsedInvite(old, fresh)
			return ok && used.Code == fresh[idx].Code
		},
		gen.IntRange(1, 50),
		gen.Int64(),
		gen.IntRange(0, 1000),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ResolverResultComesFromFreshList(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any match is an entry of the fresh list", prop.ForAll(
		func(nOld, nFresh int, seedOld, seedFresh int64) bool {
			old := genSnapshot(nOld, seedOld)
			fresh := genSnapshot(nFresh, seedFresh)

			used, ok := ResolveUsedInvite(old, fresh)
			if !ok {
				return true
			}
			for _, rec := range fresh {
				if rec == used {
					return true
				}
			}
			return false
		},
		gen.IntRange(0, 30),
		gen.IntRange(0, 30),
		gen.Int64(),
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
