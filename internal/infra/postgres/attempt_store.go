package postgres

import (
	"context"
	"errors"
	"fmt"

	"quiz-arena/internal/domain"

	"github.com/jackc/pgx/v4"
)

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_sessions (id, user_id, quiz_id, started_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)`,
		session.ID, session.UserID, session.QuizID, session.StartedAt)
	if name, ok := constraintOf(err); ok && name == "quiz_sessions_active_key" {
		return domain.ErrSessionExists
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) FindActiveSession(ctx context.Context, userID, quizID string) (domain.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var session domain.Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, quiz_id, started_at, is_active, completed_at
		FROM quiz_sessions
		WHERE user_id = $1 AND quiz_id = $2 AND is_active
		ORDER BY started_at DESC
		LIMIT 1`, userID, quizID).
		Scan(&session.ID, &session.UserID, &session.QuizID, &session.StartedAt, &session.Active, &session.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

func (s *Store) HasResult(ctx context.Context, userID, quizID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM results WHERE user_id = $1 AND quiz_id = $2)`, userID, quizID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return exists, nil
}

// CompleteAttempt inserts the result first so the unique constraint decides
// duplicate submissions before the session is touched.
func (s *Store) CompleteAttempt(ctx context.Context, result domain.Result, sessionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO results (id, user_id, quiz_id, player_name, score, total_questions, time_spent, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			result.ID, result.UserID, result.QuizID, result.PlayerName, result.Score, result.TotalQuestions, result.TimeSpent, result.CompletedAt)
		if name, ok := constraintOf(err); ok && name == "results_user_quiz_key" {
			return domain.ErrAlreadyAttempted
		}
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		if sessionID == "" {
			return nil
		}
		tag, err := tx.Exec(ctx, `
			UPDATE quiz_sessions SET is_active = FALSE, completed_at = $2
			WHERE id = $1 AND is_active`, sessionID, result.CompletedAt)
		if err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	})
}

const resultColumns = `id, user_id, quiz_id, player_name, score, total_questions, time_spent, completed_at`

func (s *Store) ListResults(ctx context.Context, quizID string) ([]domain.Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
		SELECT `+resultColumns+` FROM results
		WHERE $1 = '' OR quiz_id = $1`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Result, 0)
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.ID, &r.UserID, &r.QuizID, &r.PlayerName, &r.Score, &r.TotalQuestions, &r.TimeSpent, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteResults(ctx context.Context, quizID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `DELETE FROM results WHERE $1 = '' OR quiz_id = $1`, quizID)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	return tag.RowsAffected(), nil
}
