package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ app.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Store implements app.Store on Postgres. Every call runs under its own
// timeout so a stalled database surfaces as an error instead of a hang.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewStore(pool *pgxpool.Pool, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{pool: pool, timeout: timeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// constraintOf returns the violated unique constraint name, if any.
func constraintOf(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, phone, email, profile_url, password_hash, password_set, is_admin, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)`,
		user.ID, user.Name, user.Phone, user.Email, user.ProfileURL, user.PasswordHash, user.PasswordSet, user.IsAdmin, user.CreatedAt)
	if name, ok := constraintOf(err); ok {
		switch name {
		case "users_email_key":
			return domain.ErrEmailTaken
		case "users_profile_url_key":
			return domain.ErrProfileTaken
		default:
			return domain.ErrPhoneTaken
		}
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, name, phone, COALESCE(email, ''), COALESCE(profile_url, ''), COALESCE(password_hash, ''), password_set, is_admin, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.ProfileURL, &u.PasswordHash, &u.PasswordSet, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
}

func (s *Store) SetPasswordHash(ctx context.Context, userID, hash string, onlyIfUnset bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, password_set = TRUE
		WHERE id = $1 AND (NOT $3 OR NOT password_set)`, userID, hash, onlyIfUnset)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	return domain.ErrPasswordAlreadySet
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, title, description, status, total_time, total_questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		quiz.ID, quiz.Title, quiz.Description, string(quiz.Status), quiz.TotalTime, quiz.TotalQuestions, quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

const quizColumns = `id, title, description, status, total_time, total_questions, created_at`

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		q      domain.Quiz
		status string
	)
	if err := row.Scan(&q.ID, &q.Title, &q.Description, &status, &q.TotalTime, &q.TotalQuestions, &q.CreatedAt); err != nil {
		return domain.Quiz{}, err
	}
	q.Status = domain.QuizStatus(status)
	return q, nil
}

func (s *Store) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	quiz, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET title = $2, description = $3, status = $4 WHERE id = $1`,
		quiz.ID, quiz.Title, quiz.Description, string(quiz.Status))
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) UpdateQuizStats(ctx context.Context, id string, totalQuestions, totalTime int) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET total_questions = $2, total_time = $3 WHERE id = $1`, id, totalQuestions, totalTime)
	if err != nil {
		return fmt.Errorf("update quiz stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// DeleteQuiz relies on ON DELETE CASCADE to drop membership rows.
func (s *Store) DeleteQuiz(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO questions (id, text, options, correct_answer, category, difficulty, positive_points, negative_points, time_limit, created_at)
			VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8, $9, $10)`,
			q.ID, q.Text, string(options), q.CorrectAnswer, q.Category, string(q.Difficulty), q.PositivePoints, q.NegativePoints, q.TimeLimit, q.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return replaceMembership(ctx, tx, q.ID, q.QuizIDs)
	})
}

const questionSelect = `
	SELECT q.id, q.text, q.options, q.correct_answer, q.category, q.difficulty,
	       q.positive_points, q.negative_points, q.time_limit, q.created_at,
	       COALESCE(array_agg(m.quiz_id ORDER BY m.quiz_id) FILTER (WHERE m.quiz_id IS NOT NULL), '{}')
	FROM questions q
	LEFT JOIN question_quizzes m ON m.question_id = q.id`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q          domain.Question
		rawOptions []byte
		difficulty string
	)
	err := row.Scan(&q.ID, &q.Text, &rawOptions, &q.CorrectAnswer, &q.Category, &difficulty,
		&q.PositivePoints, &q.NegativePoints, &q.TimeLimit, &q.CreatedAt, &q.QuizIDs)
	if err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	return q, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	q, err := scanQuestion(s.pool.QueryRow(ctx, questionSelect+` WHERE q.id = $1 GROUP BY q.id`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, questionSelect+` GROUP BY q.id ORDER BY q.created_at, q.id`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE questions SET text = $2, options = $3::jsonb, correct_answer = $4, category = $5,
			       difficulty = $6, positive_points = $7, negative_points = $8, time_limit = $9
			WHERE id = $1`,
			q.ID, q.Text, string(options), q.CorrectAnswer, q.Category, string(q.Difficulty), q.PositivePoints, q.NegativePoints, q.TimeLimit)
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrQuestionNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM question_quizzes WHERE question_id = $1`, q.ID); err != nil {
			return fmt.Errorf("clear membership: %w", err)
		}
		return replaceMembership(ctx, tx, q.ID, q.QuizIDs)
	})
}

func replaceMembership(ctx context.Context, tx pgx.Tx, questionID string, quizIDs []string) error {
	for _, quizID := range quizIDs {
		_, err := tx.Exec(ctx, `INSERT INTO question_quizzes (question_id, quiz_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, questionID, quizID)
		if err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
	}
	return nil
}

func (s *Store) AttachQuestion(ctx context.Context, quizID, questionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO question_quizzes (question_id, quiz_id)
		SELECT id, $2 FROM questions WHERE id = $1
		ON CONFLICT DO NOTHING`, questionID, quizID)
	if err != nil {
		return fmt.Errorf("attach question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either already attached or the question does not exist.
		if _, err := s.GetQuestion(ctx, questionID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DetachQuestion(ctx context.Context, quizID, questionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `DELETE FROM question_quizzes WHERE question_id = $1 AND quiz_id = $2`, questionID, quizID)
	if err != nil {
		return fmt.Errorf("detach question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetQuestion(ctx, questionID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}
