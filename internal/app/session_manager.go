package app

import (
	"context"
	"errors"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// SessionManager starts and resumes timed attempts and is the only authority
// on elapsed time. Sessions live in the store; nothing is cached here.
type SessionManager struct {
	users    UserRepository
	quizzes  QuizRepository
	sessions SessionRepository
	results  ResultRepository
	now      func() time.Time
	sf       singleflight.Group
	log      *logger.Logger
}

// NewSessionManager builds a manager. A nil clock means time.Now.
func NewSessionManager(users UserRepository, quizzes QuizRepository, sessions SessionRepository, results ResultRepository, now func() time.Time, log *logger.Logger) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		users:    users,
		quizzes:  quizzes,
		sessions: sessions,
		results:  results,
		now:      now,
		log:      log.With("service", "SessionManager"),
	}
}

// Start returns the active session for (user, quiz), creating one when none
// exists. A repeated call returns the same session and start time.
func (m *SessionManager) Start(ctx context.Context, userID, quizID string) (domain.Session, error) {
	if _, err := m.users.GetUser(ctx, userID); err != nil {
		return domain.Session{}, err
	}
	quiz, err := m.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Session{}, err
	}
	if quiz.Status != domain.QuizActive {
		return domain.Session{}, domain.ErrQuizNotActive
	}
	attempted, err := m.results.HasResult(ctx, userID, quizID)
	if err != nil {
		return domain.Session{}, err
	}
	if attempted {
		return domain.Session{}, domain.ErrAlreadyAttempted
	}

	// Concurrent starts in this process share one store round trip; across
	// processes the store's active-session constraint decides.
	v, err, _ := m.sf.Do(userID+"|"+quizID, func() (interface{}, error) {
		return m.startOrResume(ctx, userID, quizID)
	})
	if err != nil {
		return domain.Session{}, err
	}
	return v.(domain.Session), nil
}

func (m *SessionManager) startOrResume(ctx context.Context, userID, quizID string) (domain.Session, error) {
	existing, err := m.sessions.FindActiveSession(ctx, userID, quizID)
	if err == nil {
		m.log.Debug("session resumed", "session_id", existing.ID, "quiz_id", quizID)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Session{}, err
	}

	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		QuizID:    quizID,
		StartedAt: m.now().UTC(),
		Active:    true,
	}
	if err := m.sessions.CreateSession(ctx, session); err != nil {
		if errors.Is(err, domain.ErrSessionExists) {
			return m.sessions.FindActiveSession(ctx, userID, quizID)
		}
		return domain.Session{}, err
	}
	m.log.Info("session started", "session_id", session.ID, "quiz_id", quizID)
	return session, nil
}

// Active returns the most recent active session for (user, quiz).
func (m *SessionManager) Active(ctx context.Context, userID, quizID string) (domain.Session, error) {
	return m.sessions.FindActiveSession(ctx, userID, quizID)
}

// ElapsedSeconds is whole seconds since the session started, measured now.
func (m *SessionManager) ElapsedSeconds(session domain.Session) int {
	elapsed := m.now().Sub(session.StartedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Second)
}

// Close marks the session completed while persisting result. It is only
// called by a successful scoring.
func (m *SessionManager) Close(ctx context.Context, session domain.Session, result domain.Result) error {
	if err := m.results.CompleteAttempt(ctx, result, session.ID); err != nil {
		return err
	}
	m.log.Info("session closed", "session_id", session.ID, "quiz_id", session.QuizID)
	return nil
}
