package app

import (
	"context"
	"time"

	"quiz-arena/internal/domain"
)

// UserRepository stores registered users. CreateUser enforces phone
// uniqueness and email/profile uniqueness when those are non-empty.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByPhone(ctx context.Context, phone string) (domain.User, error)
	// SetPasswordHash stores hash. With onlyIfUnset it fails with
	// domain.ErrPasswordAlreadySet when a password already exists.
	SetPasswordHash(ctx context.Context, userID, hash string, onlyIfUnset bool) error
}

// QuizRepository stores quiz rows. Questions are never stored on the quiz;
// they are derived from question membership.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	UpdateQuizStats(ctx context.Context, id string, totalQuestions, totalTime int) error
	// DeleteQuiz removes the quiz and its id from every membership set.
	DeleteQuiz(ctx context.Context, id string) error
}

// QuestionRepository stores questions together with their membership sets.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question domain.Question) error
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, question domain.Question) error
	AttachQuestion(ctx context.Context, quizID, questionID string) error
	DetachQuestion(ctx context.Context, quizID, questionID string) error
	DeleteQuestion(ctx context.Context, id string) error
}

// SessionRepository stores attempt timers. CreateSession fails with
// domain.ErrSessionExists when an active session for (user, quiz) exists.
type SessionRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	// FindActiveSession returns the most recent active session or
	// domain.ErrSessionNotFound.
	FindActiveSession(ctx context.Context, userID, quizID string) (domain.Session, error)
}

// ResultRepository stores completed attempts.
type ResultRepository interface {
	HasResult(ctx context.Context, userID, quizID string) (bool, error)
	// CompleteAttempt inserts result and, when sessionID is non-empty, closes
	// that session at result.CompletedAt, atomically. A second result for the
	// same (user, quiz) fails with domain.ErrAlreadyAttempted and changes nothing.
	CompleteAttempt(ctx context.Context, result domain.Result, sessionID string) error
	// ListResults returns results for quizID, or all results when quizID is empty.
	ListResults(ctx context.Context, quizID string) ([]domain.Result, error)
	DeleteResults(ctx context.Context, quizID string) (int64, error)
}

// Store is the full persistence surface; memory and postgres implement it.
type Store interface {
	UserRepository
	QuizRepository
	QuestionRepository
	SessionRepository
	ResultRepository
}

// TokenRecord is written to the audit log on every token issuance.
type TokenRecord struct {
	TokenID   string    `json:"tokenId"`
	UserID    string    `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuditLog records token issuance. It is write-only; nothing reads it to
// authorize a request.
type AuditLog interface {
	RecordToken(ctx context.Context, record TokenRecord) error
}

// CatalogCache holds the player-facing active quiz list between catalog
// edits. A miss or a failing cache falls back to the store.
type CatalogCache interface {
	ActiveQuizzes(ctx context.Context) ([]domain.PlayerQuiz, bool)
	StoreActiveQuizzes(ctx context.Context, quizzes []domain.PlayerQuiz) error
	Invalidate(ctx context.Context) error
}
