package memory

import (
	"context"
	"sort"
	"sync"

	"space-quiz-bot/internal/domain"
)

// UserStore keeps player identities in memory. Delete cascades into the
// progress and leaderboard stores it was constructed with.
type UserStore struct {
	mu          sync.RWMutex
	users       map[int64]domain.User
	progress    *ProgressStore
	leaderboard *LeaderboardStore
}

func NewUserStore(progress *ProgressStore, leaderboard *LeaderboardStore) *UserStore {
	return &UserStore{
		users:       make(map[int64]domain.User),
		progress:    progress,
		leaderboard: leaderboard,
	}
}

// Ensure creates the user or refreshes the display name.
func (s *UserStore) Ensure(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) Get(_ context.Context, userID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) All(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()

	if err := s.progress.ClearAll(ctx, userID); err != nil {
		return err
	}
	return s.leaderboard.Delete(ctx, userID)
}
