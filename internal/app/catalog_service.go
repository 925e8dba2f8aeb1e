package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CatalogService reads and edits quizzes and questions. It owns question
// hydration and keeps each quiz's aggregate stats equal to a recomputation
// over its current membership.
type CatalogService struct {
	quizzes   QuizRepository
	questions QuestionRepository
	cache     CatalogCache
	log       *logger.Logger
	now       func() time.Time
	sf        singleflight.Group
}

func NewCatalogService(quizzes QuizRepository, questions QuestionRepository, log *logger.Logger) *CatalogService {
	return &CatalogService{
		quizzes:   quizzes,
		questions: questions,
		log:       log.With("service", "CatalogService"),
		now:       time.Now,
	}
}

// WithCache puts cache in front of the active quiz listing. Every catalog
// write invalidates it.
func (s *CatalogService) WithCache(cache CatalogCache) *CatalogService {
	s.cache = cache
	return s
}

// QuizInput carries editable quiz fields.
type QuizInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.QuizStatus `json:"status"`
}

// QuestionInput carries editable question fields including membership.
type QuestionInput struct {
	Text           string            `json:"text"`
	Options        []string          `json:"options"`
	CorrectAnswer  *int              `json:"correctAnswer"`
	Category       string            `json:"category"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	PositivePoints int               `json:"positivePoints"`
	NegativePoints int               `json:"negativePoints"`
	TimeLimit      int               `json:"time"`
	QuizIDs        []string          `json:"quizIds"`
}

// GetQuiz returns the quiz with its member questions, answer keys included.
func (s *CatalogService) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	all, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = membersOf(quiz.ID, all)
	return quiz, nil
}

// ListQuizzes returns every quiz hydrated from a single question read.
func (s *CatalogService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range quizzes {
		quizzes[i].Questions = membersOf(quizzes[i].ID, all)
	}
	return quizzes, nil
}

// ActiveQuizzes lists active quizzes in player form.
func (s *CatalogService) ActiveQuizzes(ctx context.Context) ([]domain.PlayerQuiz, error) {
	if s.cache == nil {
		return s.loadActive(ctx)
	}
	if cached, ok := s.cache.ActiveQuizzes(ctx); ok {
		return activeOrEmpty(cached)
	}
	v, err, _ := s.sf.Do("active", func() (interface{}, error) {
		// Another caller may have filled the cache while we waited.
		if cached, ok := s.cache.ActiveQuizzes(ctx); ok {
			return cached, nil
		}
		out, err := s.loadActive(ctx)
		if err != nil && !errors.Is(err, domain.ErrNoActiveQuizzes) {
			return nil, err
		}
		if err := s.cache.StoreActiveQuizzes(ctx, out); err != nil {
			s.log.Warn("catalog cache fill failed", "error", err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return activeOrEmpty(v.([]domain.PlayerQuiz))
}

func activeOrEmpty(quizzes []domain.PlayerQuiz) ([]domain.PlayerQuiz, error) {
	if len(quizzes) == 0 {
		return nil, domain.ErrNoActiveQuizzes
	}
	return quizzes, nil
}

func (s *CatalogService) loadActive(ctx context.Context) ([]domain.PlayerQuiz, error) {
	quizzes, err := s.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PlayerQuiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		if quiz.Status == domain.QuizActive {
			out = append(out, MapQuizForPlayer(quiz))
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNoActiveQuizzes
	}
	return out, nil
}

// PlayerQuiz returns one quiz in player form.
func (s *CatalogService) PlayerQuiz(ctx context.Context, id string) (domain.PlayerQuiz, error) {
	quiz, err := s.GetQuiz(ctx, id)
	if err != nil {
		return domain.PlayerQuiz{}, err
	}
	return MapQuizForPlayer(quiz), nil
}

func (s *CatalogService) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.questions.ListQuestions(ctx)
}

func (s *CatalogService) CreateQuiz(ctx context.Context, in QuizInput) (domain.Quiz, error) {
	if in.Status == "" {
		in.Status = domain.QuizInactive
	}
	if err := validateQuizInput(in); err != nil {
		return domain.Quiz{}, err
	}
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		CreatedAt:   s.now().UTC(),
		Questions:   []domain.Question{},
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx)
	s.log.Info("quiz created", "quiz_id", quiz.ID)
	return quiz, nil
}

// UpdateQuiz edits title, description and status. Stats are not editable.
func (s *CatalogService) UpdateQuiz(ctx context.Context, id string, in QuizInput) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if in.Title == "" {
		in.Title = quiz.Title
	}
	if in.Status == "" {
		in.Status = quiz.Status
	}
	if err := validateQuizInput(in); err != nil {
		return domain.Quiz{}, err
	}
	quiz.Title = strings.TrimSpace(in.Title)
	quiz.Description = strings.TrimSpace(in.Description)
	quiz.Status = in.Status
	if err := s.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx)
	s.log.Info("quiz updated", "quiz_id", id, "status", quiz.Status)
	return s.GetQuiz(ctx, id)
}

func (s *CatalogService) DeleteQuiz(ctx context.Context, id string) error {
	if err := s.quizzes.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("quiz deleted", "quiz_id", id)
	return nil
}

func (s *CatalogService) CreateQuestion(ctx context.Context, in QuestionInput) (domain.Question, error) {
	if err := validateQuestionInput(in); err != nil {
		return domain.Question{}, err
	}
	quizIDs, err := s.existingQuizIDs(ctx, in.QuizIDs)
	if err != nil {
		return domain.Question{}, err
	}
	question := domain.Question{
		ID:             uuid.NewString(),
		Text:           strings.TrimSpace(in.Text),
		Options:        in.Options,
		CorrectAnswer:  *in.CorrectAnswer,
		Category:       strings.TrimSpace(in.Category),
		Difficulty:     in.Difficulty,
		PositivePoints: in.PositivePoints,
		NegativePoints: in.NegativePoints,
		TimeLimit:      in.TimeLimit,
		QuizIDs:        quizIDs,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.questions.CreateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	if err := s.recalculateAll(ctx, quizIDs); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

// UpdateQuestion replaces the question body and membership set and
// recomputes stats for every quiz in the old or new set.
func (s *CatalogService) UpdateQuestion(ctx context.Context, id string, in QuestionInput) (domain.Question, error) {
	if err := validateQuestionInput(in); err != nil {
		return domain.Question{}, err
	}
	current, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	quizIDs, err := s.existingQuizIDs(ctx, in.QuizIDs)
	if err != nil {
		return domain.Question{}, err
	}
	updated := current
	updated.Text = strings.TrimSpace(in.Text)
	updated.Options = in.Options
	updated.CorrectAnswer = *in.CorrectAnswer
	updated.Category = strings.TrimSpace(in.Category)
	updated.Difficulty = in.Difficulty
	updated.PositivePoints = in.PositivePoints
	updated.NegativePoints = in.NegativePoints
	updated.TimeLimit = in.TimeLimit
	updated.QuizIDs = quizIDs
	if err := s.questions.UpdateQuestion(ctx, updated); err != nil {
		return domain.Question{}, err
	}
	if err := s.recalculateAll(ctx, union(current.QuizIDs, quizIDs)); err != nil {
		return domain.Question{}, err
	}
	return updated, nil
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, id string) error {
	current, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	return s.recalculateAll(ctx, current.QuizIDs)
}

func (s *CatalogService) AttachQuestion(ctx context.Context, quizID, questionID string) (domain.Quiz, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.questions.AttachQuestion(ctx, quizID, questionID); err != nil {
		return domain.Quiz{}, err
	}
	return s.RecalculateQuizStats(ctx, quizID)
}

func (s *CatalogService) DetachQuestion(ctx context.Context, quizID, questionID string) (domain.Quiz, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.questions.DetachQuestion(ctx, quizID, questionID); err != nil {
		return domain.Quiz{}, err
	}
	return s.RecalculateQuizStats(ctx, quizID)
}

// RecalculateQuizStats recomputes total question count and total time from
// current membership and persists them on the quiz.
func (s *CatalogService) RecalculateQuizStats(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.TotalQuestions = len(quiz.Questions)
	quiz.TotalTime = quiz.QuestionTime()
	if err := s.quizzes.UpdateQuizStats(ctx, quizID, quiz.TotalQuestions, quiz.TotalTime); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx)
	s.log.Debug("quiz stats recalculated", "quiz_id", quizID, "total_questions", quiz.TotalQuestions, "total_time", quiz.TotalTime)
	return quiz, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("catalog cache invalidation failed", "error", err)
	}
}

func (s *CatalogService) recalculateAll(ctx context.Context, quizIDs []string) error {
	for _, id := range quizIDs {
		if _, err := s.RecalculateQuizStats(ctx, id); err != nil {
			// A quiz deleted concurrently has no stats left to maintain.
			if errors.Is(err, domain.ErrQuizNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}

func (s *CatalogService) existingQuizIDs(ctx context.Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range union(nil, ids) {
		if _, err := s.quizzes.GetQuiz(ctx, id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// MapQuestionForAdmin returns the question unchanged, answer key included.
func MapQuestionForAdmin(q domain.Question) domain.Question {
	return q
}

// MapQuestionForPlayer strips the answer key and membership.
func MapQuestionForPlayer(q domain.Question) domain.PlayerQuestion {
	return domain.PlayerQuestion{
		ID:             q.ID,
		Text:           q.Text,
		Options:        q.Options,
		Category:       q.Category,
		Difficulty:     q.Difficulty,
		PositivePoints: q.PositivePoints,
		NegativePoints: q.NegativePoints,
		TimeLimit:      q.TimeLimit,
	}
}

func MapQuizForPlayer(quiz domain.Quiz) domain.PlayerQuiz {
	questions := make([]domain.PlayerQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, MapQuestionForPlayer(q))
	}
	return domain.PlayerQuiz{
		ID:             quiz.ID,
		Title:          quiz.Title,
		Description:    quiz.Description,
		Status:         quiz.Status,
		TotalTime:      quiz.TotalTime,
		TotalQuestions: quiz.TotalQuestions,
		CreatedAt:      quiz.CreatedAt,
		Questions:      questions,
	}
}

func membersOf(quizID string, all []domain.Question) []domain.Question {
	out := make([]domain.Question, 0)
	for _, q := range all {
		if q.BelongsTo(quizID) {
			out = append(out, q)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func validateQuizInput(in QuizInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Invalid("title", "is required")
	}
	if !in.Status.Valid() {
		return domain.Invalid("status", "must be inactive, active or completed")
	}
	return nil
}

func validateQuestionInput(in QuestionInput) error {
	switch {
	case strings.TrimSpace(in.Text) == "":
		return domain.Invalid("text", "is required")
	case len(in.Options) < 2:
		return domain.Invalid("options", "at least two options are required")
	case in.CorrectAnswer == nil:
		return domain.Invalid("correctAnswer", "is required")
	case *in.CorrectAnswer < 0 || *in.CorrectAnswer >= len(in.Options):
		return domain.Invalid("correctAnswer", "must index an option")
	case !in.Difficulty.Valid():
		return domain.Invalid("difficulty", "must be easy, medium or hard")
	case in.PositivePoints <= 0:
		return domain.Invalid("positivePoints", "must be positive")
	case in.NegativePoints < 0:
		return domain.Invalid("negativePoints", "must not be negative")
	case in.TimeLimit <= 0:
		return domain.Invalid("time", "must be positive")
	}
	for i, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			return domain.Invalid("options", fmt.Sprintf("option %d is empty", i))
		}
	}
	return nil
}
