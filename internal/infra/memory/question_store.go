package memory

import (
	"context"
	"sync"

	"space-quiz-bot/internal/domain"
)

// QuestionStore is an in-memory question catalog, ordered by position.
type QuestionStore struct {
	mu        sync.RWMutex
	questions []domain.Question
}

func NewQuestionStore(questions ...domain.Question) *QuestionStore {
	s := &QuestionStore{}
	for _, q := range questions {
		q.Position = int64(len(s.questions) + 1)
		s.questions = append(s.questions, q)
	}
	return s
}

func (s *QuestionStore) Get(_ context.Context, position int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if position < 1 || position > int64(len(s.questions)) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return s.questions[position-1], nil
}

func (s *QuestionStore) All(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}

func (s *QuestionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions), nil
}

func (s *QuestionStore) Add(_ context.Context, q domain.Question) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.Position = int64(len(s.questions) + 1)
	s.questions = append(s.questions, q)
	return q.Position, nil
}

// Delete removes the question and renumbers everything above it, keeping
// positions contiguous.
func (s *QuestionStore) Delete(_ context.Context, position int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 1 || position > int64(len(s.questions)) {
		return false, nil
	}
	s.questions = append(s.questions[:position-1], s.questions[position:]...)
	for i := range s.questions {
		s.questions[i].Position = int64(i + 1)
	}
	return true, nil
}
