package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/platform/logger"

	"github.com/google/uuid"
)

// LegacySubmissionWarning accompanies results recorded without a session.
const LegacySubmissionWarning = "no active session: result recorded without server timing; sessionless submissions are deprecated"

// ScoringConfig tunes submission handling.
type ScoringConfig struct {
	// GracePeriod is added to the quiz time budget before a submission is late.
	GracePeriod time.Duration
	// AllowLegacy accepts submissions that have no active session.
	AllowLegacy bool
}

// Submitted is the outcome of a successful submission.
type Submitted struct {
	Result  domain.Result
	Warning string
}

// ScoringService grades submissions. The server's question data and clock
// are authoritative; client-reported totals are ignored whenever answers are
// present.
type ScoringService struct {
	users    UserRepository
	catalog  *CatalogService
	sessions *SessionManager
	results  ResultRepository
	cfg      ScoringConfig
	now      func() time.Time
	log      *logger.Logger
}

// NewScoringService builds a scoring service. A nil clock means time.Now.
func NewScoringService(users UserRepository, catalog *CatalogService, sessions *SessionManager, results ResultRepository, cfg ScoringConfig, now func() time.Time, log *logger.Logger) *ScoringService {
	if now == nil {
		now = time.Now
	}
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = 0
	}
	return &ScoringService{
		users:    users,
		catalog:  catalog,
		sessions: sessions,
		results:  results,
		cfg:      cfg,
		now:      now,
		log:      log.With("service", "ScoringService"),
	}
}

// Submit grades and persists an attempt for the authenticated user.
func (s *ScoringService) Submit(ctx context.Context, authUserID string, sub domain.Submission) (Submitted, error) {
	if sub.UserID != authUserID {
		return Submitted{}, domain.ErrForbidden
	}
	if err := validateSubmission(sub); err != nil {
		return Submitted{}, err
	}

	user, err := s.users.GetUser(ctx, sub.UserID)
	if err != nil {
		return Submitted{}, err
	}
	quiz, err := s.catalog.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return Submitted{}, err
	}
	if quiz.Status != domain.QuizActive {
		return Submitted{}, domain.ErrQuizNotActive
	}
	attempted, err := s.results.HasResult(ctx, user.ID, quiz.ID)
	if err != nil {
		return Submitted{}, err
	}
	if attempted {
		return Submitted{}, domain.ErrAlreadyAttempted
	}

	session, err := s.sessions.Active(ctx, user.ID, quiz.ID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return s.submitWithoutSession(ctx, user, quiz, sub)
	case err != nil:
		return Submitted{}, err
	}

	elapsed := s.sessions.ElapsedSeconds(session)
	maxTime := quiz.TotalTime
	if maxTime <= 0 {
		maxTime = quiz.QuestionTime()
	}
	grace := int(s.cfg.GracePeriod / time.Second)
	if elapsed > maxTime+grace {
		s.log.Warn("late submission rejected", "session_id", session.ID, "quiz_id", quiz.ID, "elapsed", elapsed, "max_time", maxTime)
		return Submitted{}, domain.ErrTimeLimitExceeded
	}

	result := s.newResult(user, quiz, ScoreAnswers(quiz.Questions, sub.Answers), elapsed)
	if err := s.sessions.Close(ctx, session, result); err != nil {
		return Submitted{}, err
	}
	s.log.Info("result recorded", "result_id", result.ID, "quiz_id", quiz.ID, "score", result.Score, "elapsed", elapsed)
	return Submitted{Result: result}, nil
}

// submitWithoutSession is the deprecated path for clients that never called
// start. Elapsed time is recorded as zero.
func (s *ScoringService) submitWithoutSession(ctx context.Context, user domain.User, quiz domain.Quiz, sub domain.Submission) (Submitted, error) {
	if !s.cfg.AllowLegacy {
		return Submitted{}, domain.ErrNoActiveSession
	}
	score := 0
	switch {
	case len(sub.Answers) > 0:
		score = ScoreAnswers(quiz.Questions, sub.Answers)
	case sub.Score != nil:
		score = *sub.Score
	}
	result := s.newResult(user, quiz, score, 0)
	if err := s.results.CompleteAttempt(ctx, result, ""); err != nil {
		return Submitted{}, err
	}
	s.log.Warn("sessionless result recorded", "result_id", result.ID, "quiz_id", quiz.ID, "score", score)
	return Submitted{Result: result, Warning: LegacySubmissionWarning}, nil
}

func (s *ScoringService) newResult(user domain.User, quiz domain.Quiz, score, elapsed int) domain.Result {
	return domain.Result{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		QuizID:         quiz.ID,
		PlayerName:     user.Name,
		Score:          score,
		TotalQuestions: len(quiz.Questions),
		TimeSpent:      elapsed,
		CompletedAt:    s.now().UTC(),
	}
}

func validateSubmission(sub domain.Submission) error {
	if strings.TrimSpace(sub.UserID) == "" {
		return domain.Invalid("userId", "is required")
	}
	if strings.TrimSpace(sub.QuizID) == "" {
		return domain.Invalid("quizId", "is required")
	}
	for _, a := range sub.Answers {
		if strings.TrimSpace(a.QuestionID) == "" {
			return domain.Invalid("answers.questionId", "is required")
		}
	}
	return nil
}
