package domain

import "time"

// User identifies a quiz player. The ID is the stable chat identity
// assigned by the transport; it is never generated locally.
type User struct {
	ID          int64
	DisplayName string
}

// Question is one step of the quiz. Positions are 1-based and contiguous;
// "next question" is always Position+1.
type Question struct {
	Position      int64     `json:"position"`
	Prompt        string    `json:"prompt"`
	Options       [4]string `json:"options"`
	CorrectOption int       `json:"correctOption"` // 1..4
	Hint          string    `json:"hint,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
	MediaPath     string    `json:"mediaPath,omitempty"`
}

// Valid reports whether the question can be stored.
func (q Question) Valid() bool {
	if q.Prompt == "" {
		return false
	}
	for _, opt := range q.Options {
		if opt == "" {
			return false
		}
	}
	return q.CorrectOption >= 1 && q.CorrectOption <= 4
}

// ProgressRecord is the persisted fact that a user started (and possibly
// completed) a question. StartedAt is written once and never overwritten;
// CompletedAt is set exactly once, on the first correct answer.
type ProgressRecord struct {
	UserID      int64
	QuestionID  int64
	StartedAt   time.Time
	CompletedAt time.Time
	Completed   bool
}

// LeaderboardEntry is a user's personal best: the smallest total
// completion time they have ever submitted.
type LeaderboardEntry struct {
	UserID      int64
	DisplayName string
	TotalTime   time.Duration
	SubmittedAt time.Time
}

// RankedEntry is a leaderboard row ready for display. Rank uses
// competition ranking: 1 + the number of strictly better entries, so
// equal times share a rank.
type RankedEntry struct {
	Rank        int           `json:"rank"`
	DisplayName string        `json:"displayName"`
	TotalTime   time.Duration `json:"totalTime"`
}

// ProgressSummary counts completed questions against the catalog size.
type ProgressSummary struct {
	Completed int
	Total     int
}

// PlayerStats is a user's best time and leaderboard position.
// Ranked is false when the user has never finished a quiz.
type PlayerStats struct {
	Ranked    bool
	TotalTime time.Duration
	Rank      int
}

// QuizResult describes a finished run. NewBest is true only when this
// run improved (or created) the user's leaderboard entry.
type QuizResult struct {
	TotalTime time.Duration
	NewBest   bool
}

// RenderKind enumerates what the interface layer should show next.
type RenderKind int

const (
	// RenderQuestion asks the interface to present Render.Question.
	RenderQuestion RenderKind = iota
	// RenderNoQuestions means the catalog is empty; nothing was started.
	RenderNoQuestions
	// RenderIncorrect means the answer was wrong; the same question stays
	// active and Render.Question carries it (with hint/explanation).
	RenderIncorrect
	// RenderStale means the answer targeted a question that is no longer
	// active. State is unchanged and no feedback is required.
	RenderStale
	// RenderFinished means the quiz is complete; Render.Result is set.
	RenderFinished
)

// Render is the engine's instruction to the interface layer.
type Render struct {
	Kind     RenderKind
	Question Question
	Result   QuizResult
}
