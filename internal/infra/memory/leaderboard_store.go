package memory

import (
	"context"
	"sync"

	"blitz-trivia-service/internal/domain"
)

// LeaderboardStore keeps one entry per fid; insertion order breaks full ties.
type LeaderboardStore struct {
	mu      sync.RWMutex
	order   []int64
	entries map[int64]domain.LeaderboardEntry
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{entries: make(map[int64]domain.LeaderboardEntry)}
}

func (s *LeaderboardStore) Upsert(_ context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Fid]; !ok {
		s.order = append(s.order, entry.Fid)
	}
	s.entries[entry.Fid] = entry
	return nil
}

func (s *LeaderboardStore) Top(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	all := make([]domain.LeaderboardEntry, 0, len(s.order))
	for _, fid := range s.order {
		all = append(all, s.entries[fid])
	}
	s.mu.RUnlock()

	domain.SortLeaderboard(all)
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}
