package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"space-quiz-bot/internal/domain"
)

// QuestionStore is the Postgres question catalog. Positions are kept
// contiguous: Delete shifts every question above the removed one down in
// a single transaction.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

const questionColumns = `position, prompt, option1, option2, option3, option4, correct_option, hint, explanation, media_path`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.Position, &q.Prompt, &q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3],
		&q.CorrectOption, &q.Hint, &q.Explanation, &q.MediaPath)
	return q, err
}

func (s *QuestionStore) Get(ctx context.Context, position int64) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE position=$1`, position)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *QuestionStore) All(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *QuestionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (s *QuestionStore) Add(ctx context.Context, q domain.Question) (int64, error) {
	var position int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO questions (position, prompt, option1, option2, option3, option4, correct_option, hint, explanation, media_path)
		SELECT COALESCE(MAX(position), 0) + 1, $1, $2, $3, $4, $5, $6, $7, $8, $9 FROM questions
		RETURNING position`,
		q.Prompt, q.Options[0], q.Options[1], q.Options[2], q.Options[3],
		q.CorrectOption, q.Hint, q.Explanation, q.MediaPath,
	).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return position, nil
}

func (s *QuestionStore) Delete(ctx context.Context, position int64) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM questions WHERE position=$1`, position)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	// Renumber in two passes through negative positions so the shift
	// never collides with the primary key.
	if _, err := tx.Exec(ctx, `UPDATE questions SET position = -position WHERE position > $1`, position); err != nil {
		return false, fmt.Errorf("renumber: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE questions SET position = -position - 1 WHERE position < 0`); err != nil {
		return false, fmt.Errorf("renumber: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
