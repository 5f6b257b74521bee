package domain

import "errors"

var (
	// ErrNoQuestions is returned when a quiz is started against an empty catalog.
	ErrNoQuestions = errors.New("no questions available")
	// ErrQuestionNotFound indicates a lookup for a position that does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates the user has no stored row.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidQuestion is returned by admin CRUD for malformed questions.
	ErrInvalidQuestion = errors.New("invalid question")
)
