package telegram

import (
	"testing"
	"time"

	"space-quiz-bot/internal/domain"
)

func TestParseAnswerCallback(t *testing.T) {
	cases := []struct {
		data       string
		questionID int64
		option     int
		ok         bool
	}{
		{"answer_3_2", 3, 2, true},
		{"answer_10_4", 10, 4, true},
		{"answer_3", 0, 0, false},
		{"answer_x_2", 0, 0, false},
		{"answer_3_y", 0, 0, false},
		{"admin_questions", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, c := range cases {
		questionID, option, ok := parseAnswerCallback(c.data)
		if questionID != c.questionID || option != c.option || ok != c.ok {
			t.Errorf("parseAnswerCallback(%q) = (%d, %d, %v), want (%d, %d, %v)",
				c.data, questionID, option, ok, c.questionID, c.option, c.ok)
		}
	}
}

func TestAnswerCallbackRoundTrip(t *testing.T) {
	data := answerCallbackData(7, 3)
	questionID, option, ok := parseAnswerCallback(data)
	if !ok || questionID != 7 || option != 3 {
		t.Fatalf("round trip failed: %q -> (%d, %d, %v)", data, questionID, option, ok)
	}
}

func TestParseTrailingID(t *testing.T) {
	if id, ok := parseTrailingID("delete_question_7", "delete_question_"); !ok || id != 7 {
		t.Fatalf("expected 7, got (%d, %v)", id, ok)
	}
	if _, ok := parseTrailingID("delete_question_x", "delete_question_"); ok {
		t.Fatalf("non-numeric suffix must not parse")
	}
	if _, ok := parseTrailingID("delete_user_7", "delete_question_"); ok {
		t.Fatalf("wrong prefix must not parse")
	}
}

func TestParseQuestionInput(t *testing.T) {
	q, err := parseQuestionInput("What orbits Earth?; Mars; The Moon; The Sun; Venus; 2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Prompt != "What orbits Earth?" || q.Options[1] != "The Moon" || q.CorrectOption != 2 {
		t.Fatalf("unexpected question %+v", q)
	}

	if _, err := parseQuestionInput("too; few; fields"); err == nil {
		t.Fatalf("expected error for wrong field count")
	}
	if _, err := parseQuestionInput("p; a; b; c; d; nine"); err == nil {
		t.Fatalf("expected error for non-numeric correct option")
	}
	if _, err := parseQuestionInput("p; a; b; c; d; 5"); err != domain.ErrInvalidQuestion {
		t.Fatalf("expected invalid question for out-of-range option, got %v", err)
	}
	if _, err := parseQuestionInput("; a; b; c; d; 1"); err != domain.ErrInvalidQuestion {
		t.Fatalf("expected invalid question for empty prompt, got %v", err)
	}
}

func TestAdminSessionsExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	sessions := newAdminSessions(time.Minute)
	sessions.clock = func() time.Time { return now }

	if _, ok := sessions.take(1); ok {
		t.Fatalf("empty sessions must not yield input")
	}

	sessions.set(1, pendingAddQuestion)
	kind, ok := sessions.take(1)
	if !ok || kind != pendingAddQuestion {
		t.Fatalf("expected pending %q, got (%q, %v)", pendingAddQuestion, kind, ok)
	}
	// take clears the entry
	if _, ok := sessions.take(1); ok {
		t.Fatalf("pending input must be single-use")
	}

	sessions.set(1, pendingAddQuestion)
	now = now.Add(2 * time.Minute)
	if _, ok := sessions.take(1); ok {
		t.Fatalf("expired input must be dropped")
	}
}
