package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"space-quiz-bot/internal/domain"
)

// QuestionStore holds the ordered question catalog (memory, Postgres,
// or a cache layered over either).
type QuestionStore interface {
	Get(ctx context.Context, position int64) (domain.Question, error)
	All(ctx context.Context) ([]domain.Question, error)
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, q domain.Question) (int64, error)
	Delete(ctx context.Context, position int64) (bool, error)
}

// ProgressStore persists per-user per-question progress records.
type ProgressStore interface {
	Get(ctx context.Context, userID, questionID int64) (domain.ProgressRecord, bool, error)
	// Start creates the record with the given start time, or does nothing
	// if one already exists. An existing start timestamp is never overwritten.
	Start(ctx context.Context, userID, questionID int64, now time.Time) error
	// Complete sets the completion timestamp once. It reports whether this
	// call performed the transition, so callers can suppress duplicate
	// side effects.
	Complete(ctx context.Context, userID, questionID int64, now time.Time) (bool, error)
	ClearAll(ctx context.Context, userID int64) error
	ListCompleted(ctx context.Context, userID int64) ([]int64, error)
	// Active returns the highest started question for the user.
	Active(ctx context.Context, userID int64) (int64, bool, error)
}

// LeaderboardStore keeps one personal-best entry per user.
type LeaderboardStore interface {
	// Submit stores the entry iff the user has none yet or the new total
	// time is strictly smaller. Ties keep the existing entry.
	Submit(ctx context.Context, entry domain.LeaderboardEntry) (bool, error)
	Get(ctx context.Context, userID int64) (domain.LeaderboardEntry, bool, error)
	// Top returns up to n entries ascending by time, ties broken by
	// earliest submission, then display name.
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	RankOf(ctx context.Context, userID int64) (int, bool, error)
}

// UserStore persists player identities.
type UserStore interface {
	Ensure(ctx context.Context, user domain.User) error
	Get(ctx context.Context, userID int64) (domain.User, error)
	All(ctx context.Context) ([]domain.User, error)
	// Delete removes the user and everything keyed to them (progress,
	// leaderboard entry).
	Delete(ctx context.Context, userID int64) error
}

// QuizService is the progression state machine and ranking engine. All
// mutations for one user are serialized through a per-user lock; users
// are otherwise independent.
type QuizService struct {
	questions   QuestionStore
	progress    ProgressStore
	leaderboard LeaderboardStore
	users       UserStore
	topSize     int
	now         func() time.Time

	locks userLocks

	mu          sync.Mutex
	subscribers map[chan []domain.RankedEntry]struct{}
}

func NewQuizService(questions QuestionStore, progress ProgressStore, leaderboard LeaderboardStore, users UserStore, topSize int) *QuizService {
	return NewQuizServiceWithClock(questions, progress, leaderboard, users, topSize, time.Now)
}

// NewQuizServiceWithClock allows deterministic timestamps in tests.
func NewQuizServiceWithClock(questions QuestionStore, progress ProgressStore, leaderboard LeaderboardStore, users UserStore, topSize int, now func() time.Time) *QuizService {
	if topSize <= 0 {
		topSize = 10
	}
	return &QuizService{
		questions:   questions,
		progress:    progress,
		leaderboard: leaderboard,
		users:       users,
		topSize:     topSize,
		now:         now,
		subscribers: make(map[chan []domain.RankedEntry]struct{}),
	}
}

// Begin starts (or restarts) a quiz run. Any prior progress is discarded;
// the leaderboard entry is untouched.
func (s *QuizService) Begin(ctx context.Context, userID int64, displayName string) (domain.Render, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.progress.ClearAll(ctx, userID); err != nil {
		return domain.Render{}, fmt.Errorf("clear progress: %w", err)
	}
	if err := s.users.Ensure(ctx, domain.User{ID: userID, DisplayName: displayName}); err != nil {
		return domain.Render{}, fmt.Errorf("ensure user: %w", err)
	}

	first, err := s.questions.Get(ctx, 1)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.Render{Kind: domain.RenderNoQuestions}, nil
	}
	if err != nil {
		return domain.Render{}, fmt.Errorf("load first question: %w", err)
	}

	if err := s.progress.Start(ctx, userID, first.Position, s.now()); err != nil {
		return domain.Render{}, fmt.Errorf("start progress: %w", err)
	}
	return domain.Render{Kind: domain.RenderQuestion, Question: first}, nil
}

// Answer applies a submitted option against the user's active question.
// Answers for any other question are dropped as stale; duplicate taps on
// an already-completed question never re-fire completion side effects.
func (s *QuizService) Answer(ctx context.Context, userID, questionID int64, option int) (domain.Render, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	active, ok, err := s.progress.Active(ctx, userID)
	if err != nil {
		return domain.Render{}, fmt.Errorf("active question: %w", err)
	}
	if !ok || active != questionID {
		return domain.Render{Kind: domain.RenderStale}, nil
	}

	question, err := s.questions.Get(ctx, questionID)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		// Question deleted mid-run; the rendered message is obsolete.
		return domain.Render{Kind: domain.RenderStale}, nil
	}
	if err != nil {
		return domain.Render{}, fmt.Errorf("load question: %w", err)
	}

	if option != question.CorrectOption {
		return domain.Render{Kind: domain.RenderIncorrect, Question: question}, nil
	}

	transitioned, err := s.progress.Complete(ctx, userID, questionID, s.now())
	if err != nil {
		return domain.Render{}, fmt.Errorf("complete progress: %w", err)
	}

	next, err := s.questions.Get(ctx, questionID+1)
	if err == nil {
		if err := s.progress.Start(ctx, userID, next.Position, s.now()); err != nil {
			return domain.Render{}, fmt.Errorf("start next: %w", err)
		}
		return domain.Render{Kind: domain.RenderQuestion, Question: next}, nil
	}
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.Render{}, fmt.Errorf("load next question: %w", err)
	}

	return s.finish(ctx, userID, questionID, transitioned)
}

// finish computes the total time and submits it once per completed run.
// Total time is the wall-clock span of the attempt: completion of the
// last question minus start of the first.
func (s *QuizService) finish(ctx context.Context, userID, lastQuestionID int64, transitioned bool) (domain.Render, error) {
	last, ok, err := s.progress.Get(ctx, userID, lastQuestionID)
	if err != nil || !ok {
		return domain.Render{}, fmt.Errorf("final record: %w", err)
	}
	first, ok, err := s.progress.Get(ctx, userID, 1)
	if err != nil || !ok {
		return domain.Render{}, fmt.Errorf("first record: %w", err)
	}
	total := last.CompletedAt.Sub(first.StartedAt)

	newBest := false
	if transitioned {
		user, err := s.users.Get(ctx, userID)
		if err != nil {
			return domain.Render{}, fmt.Errorf("load user: %w", err)
		}
		accepted, err := s.leaderboard.Submit(ctx, domain.LeaderboardEntry{
			UserID:      userID,
			DisplayName: user.DisplayName,
			TotalTime:   total,
			SubmittedAt: s.now(),
		})
		if err != nil {
			return domain.Render{}, fmt.Errorf("submit leaderboard: %w", err)
		}
		newBest = accepted
		if accepted {
			s.broadcastTop(ctx)
		}
	}
	return domain.Render{
		Kind:   domain.RenderFinished,
		Result: domain.QuizResult{TotalTime: total, NewBest: newBest},
	}, nil
}

// ProgressSummary reports completed-out-of-total without side effects.
func (s *QuizService) ProgressSummary(ctx context.Context, userID int64) (domain.ProgressSummary, error) {
	completed, err := s.progress.ListCompleted(ctx, userID)
	if err != nil {
		return domain.ProgressSummary{}, fmt.Errorf("list completed: %w", err)
	}
	total, err := s.questions.Count(ctx)
	if err != nil {
		return domain.ProgressSummary{}, fmt.Errorf("count questions: %w", err)
	}
	return domain.ProgressSummary{Completed: len(completed), Total: total}, nil
}

// Stats returns the user's personal best and rank, if any.
func (s *QuizService) Stats(ctx context.Context, userID int64) (domain.PlayerStats, error) {
	entry, ok, err := s.leaderboard.Get(ctx, userID)
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("leaderboard entry: %w", err)
	}
	if !ok {
		return domain.PlayerStats{}, nil
	}
	rank, _, err := s.leaderboard.RankOf(ctx, userID)
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("rank: %w", err)
	}
	return domain.PlayerStats{Ranked: true, TotalTime: entry.TotalTime, Rank: rank}, nil
}

// Top returns the first n leaderboard rows with competition ranks.
func (s *QuizService) Top(ctx context.Context, n int) ([]domain.RankedEntry, error) {
	entries, err := s.leaderboard.Top(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	return rankEntries(entries), nil
}

// rankEntries assigns competition ranks to a time-ordered slice: equal
// times share a rank, the next distinct time jumps past them.
func rankEntries(entries []domain.LeaderboardEntry) []domain.RankedEntry {
	ranked := make([]domain.RankedEntry, 0, len(entries))
	for i, e := range entries {
		rank := i + 1
		if i > 0 && e.TotalTime == entries[i-1].TotalTime {
			rank = ranked[i-1].Rank
		}
		ranked = append(ranked, domain.RankedEntry{
			Rank:        rank,
			DisplayName: e.DisplayName,
			TotalTime:   e.TotalTime,
		})
	}
	return ranked
}

// AddQuestion validates and appends a question at the end of the catalog.
func (s *QuizService) AddQuestion(ctx context.Context, q domain.Question) (int64, error) {
	if !q.Valid() {
		return 0, domain.ErrInvalidQuestion
	}
	position, err := s.questions.Add(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("add question: %w", err)
	}
	return position, nil
}

// DeleteQuestion removes a question; the store renumbers the catalog so
// positions stay contiguous.
func (s *QuizService) DeleteQuestion(ctx context.Context, position int64) (bool, error) {
	return s.questions.Delete(ctx, position)
}

// ListQuestions returns the full ordered catalog.
func (s *QuizService) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.questions.All(ctx)
}

// ListUsers returns every known player.
func (s *QuizService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.All(ctx)
}

// DeleteUser removes the user and all state keyed to them.
func (s *QuizService) DeleteUser(ctx context.Context, userID int64) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.users.Delete(ctx, userID)
}

// Subscribe returns a channel fed with the current top rows whenever a
// new personal best lands. The caller must invoke cancel to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context) (<-chan []domain.RankedEntry, func(), error) {
	top, err := s.Top(ctx, s.topSize)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []domain.RankedEntry, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- top

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *QuizService) broadcastTop(ctx context.Context) {
	top, err := s.Top(ctx, s.topSize)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- top:
		default:
			// Drop the stale snapshot so a slow subscriber never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- top
		}
	}
}

// userLocks serializes state transitions per user id. Entries are tiny
// and bounded by the player population, so they are never reclaimed.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
