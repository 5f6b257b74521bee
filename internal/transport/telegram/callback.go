package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"space-quiz-bot/internal/domain"
)

// answerCallbackData encodes an answer intent as "answer_<question>_<option>".
func answerCallbackData(questionID int64, option int) string {
	return fmt.Sprintf("answer_%d_%d", questionID, option)
}

// parseAnswerCallback decodes "answer_<question>_<option>" callback data.
func parseAnswerCallback(data string) (questionID int64, option int, ok bool) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 || parts[0] != "answer" {
		return 0, 0, false
	}
	questionID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	option, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return questionID, option, true
}

// parseTrailingID extracts the numeric suffix of callbacks like
// "delete_question_7" or "delete_user_42".
func parseTrailingID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseQuestionInput parses the admin add-question format:
// "prompt; option1; option2; option3; option4; correct".
func parseQuestionInput(input string) (domain.Question, error) {
	parts := strings.Split(input, ";")
	if len(parts) != 6 {
		return domain.Question{}, fmt.Errorf("expected 6 fields separated by ';', got %d", len(parts))
	}
	correct, err := strconv.Atoi(strings.TrimSpace(parts[5]))
	if err != nil {
		return domain.Question{}, fmt.Errorf("correct option must be a number: %w", err)
	}
	q := domain.Question{
		Prompt:        strings.TrimSpace(parts[0]),
		CorrectOption: correct,
	}
	for i := 0; i < 4; i++ {
		q.Options[i] = strings.TrimSpace(parts[i+1])
	}
	if !q.Valid() {
		return domain.Question{}, domain.ErrInvalidQuestion
	}
	return q, nil
}
