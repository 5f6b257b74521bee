package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"space-quiz-bot/internal/domain"
)

// ProgressStore persists progress rows keyed by (user_id, question_id).
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) Get(ctx context.Context, userID, questionID int64) (domain.ProgressRecord, bool, error) {
	var rec domain.ProgressRecord
	var completedAt sql.NullTime
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, question_id, started_at, completed_at
		FROM progress WHERE user_id=$1 AND question_id=$2`,
		userID, questionID,
	).Scan(&rec.UserID, &rec.QuestionID, &rec.StartedAt, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressRecord{}, false, nil
	}
	if err != nil {
		return domain.ProgressRecord{}, false, fmt.Errorf("get progress: %w", err)
	}
	if completedAt.Valid {
		rec.Completed = true
		rec.CompletedAt = completedAt.Time
	}
	return rec, true, nil
}

// Start inserts the record; an existing row keeps its start timestamp.
func (s *ProgressStore) Start(ctx context.Context, userID, questionID int64, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO progress (user_id, question_id, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, question_id) DO NOTHING`,
		userID, questionID, now)
	if err != nil {
		return fmt.Errorf("start progress: %w", err)
	}
	return nil
}

// Complete sets completed_at once; the guard makes repeat calls no-ops.
func (s *ProgressStore) Complete(ctx context.Context, userID, questionID int64, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE progress SET completed_at=$3
		WHERE user_id=$1 AND question_id=$2 AND completed_at IS NULL`,
		userID, questionID, now)
	if err != nil {
		return false, fmt.Errorf("complete progress: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *ProgressStore) ClearAll(ctx context.Context, userID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM progress WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) ListCompleted(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question_id FROM progress
		WHERE user_id=$1 AND completed_at IS NOT NULL
		ORDER BY question_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list completed: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *ProgressStore) Active(ctx context.Context, userID int64) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		SELECT question_id FROM progress
		WHERE user_id=$1 ORDER BY question_id DESC LIMIT 1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("active question: %w", err)
	}
	return id, true, nil
}
