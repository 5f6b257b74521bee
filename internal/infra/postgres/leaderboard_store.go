package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"space-quiz-bot/internal/domain"
)

// LeaderboardStore keeps one personal-best row per user. Times are
// stored as milliseconds.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// Submit upserts only on strict improvement; the conditional update makes
// the best-only rule atomic under concurrent finishes.
func (s *LeaderboardStore) Submit(ctx context.Context, entry domain.LeaderboardEntry) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO leaderboard (user_id, display_name, total_ms, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name=EXCLUDED.display_name, total_ms=EXCLUDED.total_ms, submitted_at=EXCLUDED.submitted_at
		WHERE leaderboard.total_ms > EXCLUDED.total_ms`,
		entry.UserID, entry.DisplayName, entry.TotalTime.Milliseconds(), entry.SubmittedAt)
	if err != nil {
		return false, fmt.Errorf("submit leaderboard: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *LeaderboardStore) Get(ctx context.Context, userID int64) (domain.LeaderboardEntry, bool, error) {
	var entry domain.LeaderboardEntry
	var totalMS int64
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, display_name, total_ms, submitted_at
		FROM leaderboard WHERE user_id=$1`, userID,
	).Scan(&entry.UserID, &entry.DisplayName, &totalMS, &entry.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeaderboardEntry{}, false, nil
	}
	if err != nil {
		return domain.LeaderboardEntry{}, false, fmt.Errorf("get leaderboard entry: %w", err)
	}
	entry.TotalTime = time.Duration(totalMS) * time.Millisecond
	return entry, true, nil
}

func (s *LeaderboardStore) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, display_name, total_ms, submitted_at
		FROM leaderboard
		ORDER BY total_ms ASC, submitted_at ASC, display_name ASC
		LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		var totalMS int64
		if err := rows.Scan(&entry.UserID, &entry.DisplayName, &totalMS, &entry.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entry.TotalTime = time.Duration(totalMS) * time.Millisecond
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *LeaderboardStore) RankOf(ctx context.Context, userID int64) (int, bool, error) {
	var rank int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM leaderboard
		WHERE total_ms < (SELECT total_ms FROM leaderboard WHERE user_id=$1)`, userID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("rank: %w", err)
	}
	// The subquery returning no row surfaces as a NULL comparison and a
	// COUNT over zero rows; verify the entry actually exists.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leaderboard WHERE user_id=$1)`, userID).Scan(&exists); err != nil {
		return 0, false, fmt.Errorf("rank exists: %w", err)
	}
	if !exists {
		return 0, false, nil
	}
	return rank, true, nil
}
