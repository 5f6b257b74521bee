package app_test

import (
	"context"
	"testing"
	"time"

	"space-quiz-bot/internal/app"
	"space-quiz-bot/internal/domain"
	"space-quiz-bot/internal/infra/memory"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type fixture struct {
	service     *app.QuizService
	leaderboard *memory.LeaderboardStore
	clock       *fakeClock
}

func newFixture(questions ...domain.Question) *fixture {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	progress := memory.NewProgressStore()
	leaderboard := memory.NewLeaderboardStore()
	users := memory.NewUserStore(progress, leaderboard)
	service := app.NewQuizServiceWithClock(
		memory.NewQuestionStore(questions...), progress, leaderboard, users, 10, clock.Now)
	return &fixture{service: service, leaderboard: leaderboard, clock: clock}
}

func threeQuestions() []domain.Question {
	return []domain.Question{
		{Prompt: "first", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 2},
		{Prompt: "second", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 1, Hint: "try the first one"},
		{Prompt: "third", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 3},
	}
}

func TestBeginShowsFirstQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	render, err := f.service.Begin(ctx, 1, "Alice")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if render.Kind != domain.RenderQuestion || render.Question.Position != 1 {
		t.Fatalf("expected question 1, got %+v", render)
	}
}

func TestBeginEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	render, err := f.service.Begin(ctx, 1, "Alice")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if render.Kind != domain.RenderNoQuestions {
		t.Fatalf("expected no-questions render, got %+v", render)
	}

	summary, err := f.service.ProgressSummary(ctx, 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Completed != 0 {
		t.Fatalf("expected no progress records, got %d completed", summary.Completed)
	}
}

func TestFullRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	if _, err := f.service.Begin(ctx, 1, "Alice"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	f.clock.Advance(10 * time.Second)
	render, err := f.service.Answer(ctx, 1, 1, 2)
	if err != nil {
		t.Fatalf("answer 1: %v", err)
	}
	if render.Kind != domain.RenderQuestion || render.Question.Position != 2 {
		t.Fatalf("expected question 2, got %+v", render)
	}

	// Wrong option: no advancement, hint surfaced.
	f.clock.Advance(5 * time.Second)
	render, err = f.service.Answer(ctx, 1, 2, 4)
	if err != nil {
		t.Fatalf("answer 2 wrong: %v", err)
	}
	if render.Kind != domain.RenderIncorrect || render.Question.Hint != "try the first one" {
		t.Fatalf("expected incorrect render with hint, got %+v", render)
	}

	f.clock.Advance(5 * time.Second)
	render, err = f.service.Answer(ctx, 1, 2, 1)
	if err != nil {
		t.Fatalf("answer 2: %v", err)
	}
	if render.Kind != domain.RenderQuestion || render.Question.Position != 3 {
		t.Fatalf("expected question 3, got %+v", render)
	}

	f.clock.Advance(10 * time.Second)
	render, err = f.service.Answer(ctx, 1, 3, 3)
	if err != nil {
		t.Fatalf("answer 3: %v", err)
	}
	if render.Kind != domain.RenderFinished {
		t.Fatalf("expected finished render, got %+v", render)
	}
	// Wall-clock span from starting question 1 to completing question 3.
	if render.Result.TotalTime != 30*time.Second {
		t.Fatalf("expected total 30s, got %s", render.Result.TotalTime)
	}
	if !render.Result.NewBest {
		t.Fatalf("first finish should be a new best")
	}

	entry, ok, err := f.leaderboard.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected leaderboard entry, ok=%v err=%v", ok, err)
	}
	if entry.TotalTime != 30*time.Second || entry.DisplayName != "Alice" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestStaleAnswersIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	// Answer before any quiz started.
	render, err := f.service.Answer(ctx, 1, 1, 2)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if render.Kind != domain.RenderStale {
		t.Fatalf("expected stale, got %+v", render)
	}

	if _, err := f.service.Begin(ctx, 1, "Alice"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := f.service.Answer(ctx, 1, 1, 2); err != nil {
		t.Fatalf("answer 1: %v", err)
	}

	// A duplicate tap on the superseded question must not advance.
	render, err = f.service.Answer(ctx, 1, 1, 2)
	if err != nil {
		t.Fatalf("duplicate answer: %v", err)
	}
	if render.Kind != domain.RenderStale {
		t.Fatalf("expected stale on superseded question, got %+v", render)
	}

	summary, err := f.service.ProgressSummary(ctx, 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("expected exactly 1 completed, got %d", summary.Completed)
	}
}

func TestRepeatedFinalAnswerDoesNotResubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	finishQuiz(t, f, 1, "Alice")
	entry, _, _ := f.leaderboard.Get(ctx, 1)

	// The final question stays active after the run; a duplicate tap must
	// re-render the finished state without touching the leaderboard.
	f.clock.Advance(time.Minute)
	render, err := f.service.Answer(ctx, 1, 3, 3)
	if err != nil {
		t.Fatalf("repeat answer: %v", err)
	}
	if render.Kind != domain.RenderFinished {
		t.Fatalf("expected finished, got %+v", render)
	}
	if render.Result.NewBest {
		t.Fatalf("duplicate completion must not report a new best")
	}
	if render.Result.TotalTime != entry.TotalTime {
		t.Fatalf("total changed on duplicate completion: %s vs %s", render.Result.TotalTime, entry.TotalTime)
	}

	after, _, _ := f.leaderboard.Get(ctx, 1)
	if !after.SubmittedAt.Equal(entry.SubmittedAt) {
		t.Fatalf("leaderboard entry was resubmitted")
	}
}

func TestBestOnlyAcrossRuns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	finishQuizIn(t, f, 1, "Alice", 30*time.Second)
	render := finishQuizIn(t, f, 1, "Alice", 90*time.Second)
	if render.Result.NewBest {
		t.Fatalf("slower run must not be a new best")
	}
	entry, _, _ := f.leaderboard.Get(ctx, 1)
	if entry.TotalTime != 30*time.Second {
		t.Fatalf("expected best 30s kept, got %s", entry.TotalTime)
	}

	render = finishQuizIn(t, f, 1, "Alice", 15*time.Second)
	if !render.Result.NewBest {
		t.Fatalf("faster run should be a new best")
	}
	entry, _, _ = f.leaderboard.Get(ctx, 1)
	if entry.TotalTime != 15*time.Second {
		t.Fatalf("expected best 15s, got %s", entry.TotalTime)
	}
}

func TestResetKeepsLeaderboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	finishQuiz(t, f, 1, "Alice")

	if _, err := f.service.Begin(ctx, 1, "Alice"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	summary, err := f.service.ProgressSummary(ctx, 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Completed != 0 {
		t.Fatalf("expected progress cleared, got %d completed", summary.Completed)
	}
	if _, ok, _ := f.leaderboard.Get(ctx, 1); !ok {
		t.Fatalf("leaderboard entry must survive a reset")
	}
}

func TestRankSharedBetweenTies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	base := time.Unix(1_700_000_000, 0)
	times := map[int64]time.Duration{10: 50 * time.Second, 20: 80 * time.Second, 30: 80 * time.Second, 40: 120 * time.Second}
	for userID, total := range times {
		_, err := f.leaderboard.Submit(ctx, domain.LeaderboardEntry{
			UserID: userID, DisplayName: "user", TotalTime: total, SubmittedAt: base.Add(time.Duration(userID) * time.Second),
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	for _, userID := range []int64{20, 30} {
		rank, ok, err := f.leaderboard.RankOf(ctx, userID)
		if err != nil || !ok {
			t.Fatalf("rank of %d: ok=%v err=%v", userID, ok, err)
		}
		if rank != 2 {
			t.Fatalf("expected rank 2 for user %d, got %d", userID, rank)
		}
	}

	top, err := f.service.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	wantRanks := []int{1, 2, 2, 4}
	if len(top) != len(wantRanks) {
		t.Fatalf("expected %d rows, got %d", len(wantRanks), len(top))
	}
	for i, want := range wantRanks {
		if top[i].Rank != want {
			t.Fatalf("row %d: expected rank %d, got %d", i, want, top[i].Rank)
		}
	}
}

func TestStatsUnrankedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(threeQuestions()...)

	stats, err := f.service.Stats(ctx, 99)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Ranked {
		t.Fatalf("expected unranked stats, got %+v", stats)
	}
}

func TestAddQuestionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.AddQuestion(ctx, domain.Question{Prompt: "bad", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 5})
	if err != domain.ErrInvalidQuestion {
		t.Fatalf("expected invalid question error, got %v", err)
	}

	position, err := f.service.AddQuestion(ctx, domain.Question{Prompt: "ok", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if position != 1 {
		t.Fatalf("expected position 1, got %d", position)
	}
}

// finishQuiz runs a full correct pass for the three-question fixture.
func finishQuiz(t *testing.T, f *fixture, userID int64, name string) domain.Render {
	return finishQuizIn(t, f, userID, name, 30*time.Second)
}

// finishQuizIn completes the quiz spending the given wall-clock total.
func finishQuizIn(t *testing.T, f *fixture, userID int64, name string, total time.Duration) domain.Render {
	t.Helper()
	ctx := context.Background()
	if _, err := f.service.Begin(ctx, userID, name); err != nil {
		t.Fatalf("begin: %v", err)
	}
	answers := []struct {
		question int64
		option   int
	}{{1, 2}, {2, 1}, {3, 3}}

	step := total / time.Duration(len(answers))
	var render domain.Render
	var err error
	for i, a := range answers {
		advance := step
		if i == len(answers)-1 {
			advance = total - step*time.Duration(len(answers)-1)
		}
		f.clock.Advance(advance)
		render, err = f.service.Answer(ctx, userID, a.question, a.option)
		if err != nil {
			t.Fatalf("answer %d: %v", a.question, err)
		}
	}
	if render.Kind != domain.RenderFinished {
		t.Fatalf("expected finished run, got %+v", render)
	}
	return render
}
