package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"space-quiz-bot/internal/domain"
)

// UserStore persists player identities.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Ensure(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (tg_id, display_name) VALUES ($1, $2)
		ON CONFLICT (tg_id) DO UPDATE SET display_name=EXCLUDED.display_name`,
		user.ID, user.DisplayName)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, userID int64) (domain.User, error) {
	var user domain.User
	err := s.pool.QueryRow(ctx, `SELECT tg_id, display_name FROM users WHERE tg_id=$1`, userID).
		Scan(&user.ID, &user.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserStore) All(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT tg_id, display_name FROM users ORDER BY tg_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.DisplayName); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// Delete removes the user row together with their progress and
// leaderboard entry, atomically.
func (s *UserStore) Delete(ctx context.Context, userID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM progress WHERE user_id=$1`,
		`DELETE FROM leaderboard WHERE user_id=$1`,
		`DELETE FROM users WHERE tg_id=$1`,
	} {
		if _, err := tx.Exec(ctx, stmt, userID); err != nil {
			return fmt.Errorf("delete user data: %w", err)
		}
	}
	return tx.Commit(ctx)
}
