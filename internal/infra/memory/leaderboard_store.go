package memory

import (
	"context"
	"sort"
	"sync"

	"space-quiz-bot/internal/domain"
)

// LeaderboardStore keeps one personal-best entry per user in memory.
type LeaderboardStore struct {
	mu      sync.RWMutex
	entries map[int64]domain.LeaderboardEntry
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{entries: make(map[int64]domain.LeaderboardEntry)}
}

// Submit stores the entry only on strict improvement. Ties keep the
// existing entry so the earliest achiever of a time holds its position.
func (s *LeaderboardStore) Submit(_ context.Context, entry domain.LeaderboardEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[entry.UserID]
	if ok && current.TotalTime <= entry.TotalTime {
		return false, nil
	}
	s.entries[entry.UserID] = entry
	return true, nil
}

func (s *LeaderboardStore) Get(_ context.Context, userID int64) (domain.LeaderboardEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[userID]
	return entry, ok, nil
}

func (s *LeaderboardStore) Top(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LeaderboardEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTime != out[j].TotalTime {
			return out[i].TotalTime < out[j].TotalTime
		}
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// RankOf is 1 plus the number of strictly better entries, so equal times
// share a rank.
func (s *LeaderboardStore) RankOf(_ context.Context, userID int64) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mine, ok := s.entries[userID]
	if !ok {
		return 0, false, nil
	}
	rank := 1
	for _, entry := range s.entries {
		if entry.TotalTime < mine.TotalTime {
			rank++
		}
	}
	return rank, true, nil
}

// Delete removes a user's entry, if present.
func (s *LeaderboardStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
