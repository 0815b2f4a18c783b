package snapshot

import "sync"

// InviteRecord is the last-known state of a single invite inside a
// guild snapshot. At most one record per code exists in a snapshot.
type InviteRecord struct {
	Code      string `json:"code"`
	URL       string `json:"url"`
	Uses      int    `json:"uses"`
	CreatorID string `json:"creator_id"`
}

// VanityRecord is the last-known state of a guild's vanity invite.
type VanityRecord struct {
	Code string `json:"code"`
	Uses int    `json:"uses"`
}

// Store holds the "before" picture of every guild's invites so the
// tracker has something to diff a fresh fetch against. Snapshots are
// only ever replaced wholesale; there is no per-entry mutation API.
// All operations are synchronous and in-memory.
type Store struct {
	mu      sync.RWMutex
	invites map[string][]InviteRecord
	vanity  map[string]VanityRecord
}

func NewStore() *Store {
	return &Store{
		invites: make(map[string][]InviteRecord),
		vanity:  make(map[string]VanityRecord),
	}
}

// GetSnapshot returns a copy of the current snapshot for a guild, or
// an empty slice if none has been taken yet. It never errors.
func (s *Store) GetSnapshot(guildID string) []InviteRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.invites[guildID]
	if !ok {
		return nil
	}
	out := make([]InviteRecord, len(entries))
	copy(out, entries)
	return out
}

// ReplaceSnapshot atomically swaps the stored snapshot for a guild.
// Callers always supply the complete, freshly fetched list.
func (s *Store) ReplaceSnapshot(guildID string, entries []InviteRecord) {
	stored := make([]InviteRecord, len(entries))
	copy(stored, entries)

	s.mu.Lock()
	s.invites[guildID] = stored
	s.mu.Unlock()
}

// GetVanity returns the stored vanity snapshot for a guild, if any.
func (s *Store) GetVanity(guildID string) (VanityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vanity[guildID]
	return v, ok
}

// SetVanity stores the vanity snapshot for a guild.
func (s *Store) SetVanity(guildID, code string, uses int) {
	s.mu.Lock()
	s.vanity[guildID] = VanityRecord{Code: code, Uses: uses}
	s.mu.Unlock()
}

// DropGuild removes all snapshot state for a guild. Called when the
// bot leaves or loses access to the guild.
func (s *Store) DropGuild(guildID string) {
	s.mu.Lock()
	delete(s.invites, guildID)
	delete(s.vanity, guildID)
	s.mu.Unlock()
}

// Len reports how many guilds currently have a snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invites)
}
