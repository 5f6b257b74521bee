package memory

import (
	"context"
	"sync"
	"time"

	"space-quiz-bot/internal/domain"
)

type progressKey struct {
	userID     int64
	questionID int64
}

// ProgressStore keeps progress records in a map keyed by (user, question).
type ProgressStore struct {
	mu      sync.RWMutex
	records map[progressKey]domain.ProgressRecord
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[progressKey]domain.ProgressRecord)}
}

func (s *ProgressStore) Get(_ context.Context, userID, questionID int64) (domain.ProgressRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[progressKey{userID, questionID}]
	return rec, ok, nil
}

func (s *ProgressStore) Start(_ context.Context, userID, questionID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{userID, questionID}
	if _, ok := s.records[key]; ok {
		return nil
	}
	s.records[key] = domain.ProgressRecord{
		UserID:     userID,
		QuestionID: questionID,
		StartedAt:  now,
	}
	return nil
}

func (s *ProgressStore) Complete(_ context.Context, userID, questionID int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{userID, questionID}
	rec, ok := s.records[key]
	if !ok || rec.Completed {
		return false, nil
	}
	rec.Completed = true
	rec.CompletedAt = now
	s.records[key] = rec
	return true, nil
}

func (s *ProgressStore) ClearAll(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.records {
		if key.userID == userID {
			delete(s.records, key)
		}
	}
	return nil
}

func (s *ProgressStore) ListCompleted(_ context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for key, rec := range s.records {
		if key.userID == userID && rec.Completed {
			out = append(out, key.questionID)
		}
	}
	return out, nil
}

func (s *ProgressStore) Active(_ context.Context, userID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active int64
	found := false
	for key := range s.records {
		if key.userID == userID && key.questionID > active {
			active = key.questionID
			found = true
		}
	}
	return active, found, nil
}
