package memory

import (
	"context"
	"slices"
	"sync"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"
)

var _ app.Store = (*Store)(nil)

// Store is an in-memory implementation of app.Store. A single mutex
// serializes writers, which gives it the same uniqueness guarantees the
// Postgres constraints provide.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	quizzes   map[string]domain.Quiz
	questions map[string]domain.Question
	sessions  map[string]domain.Session
	results   map[string]domain.Result
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string]domain.Question),
		sessions:  make(map[string]domain.Session),
		results:   make(map[string]domain.Result),
	}
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		switch {
		case existing.Phone == user.Phone:
			return domain.ErrPhoneTaken
		case user.Email != "" && existing.Email == user.Email:
			return domain.ErrEmailTaken
		case user.ProfileURL != "" && existing.ProfileURL == user.ProfileURL:
			return domain.ErrProfileTaken
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByPhone(_ context.Context, phone string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Phone == phone {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) SetPasswordHash(_ context.Context, userID, hash string, onlyIfUnset bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if onlyIfUnset && user.PasswordSet {
		return domain.ErrPasswordAlreadySet
	}
	user.PasswordHash = hash
	user.PasswordSet = true
	s.users[userID] = user
	return nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.Questions = nil
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) GetQuiz(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		out = append(out, quiz)
	}
	slices.SortFunc(out, func(a, b domain.Quiz) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	current.Title = quiz.Title
	current.Description = quiz.Description
	current.Status = quiz.Status
	s.quizzes[quiz.ID] = current
	return nil
}

func (s *Store) UpdateQuizStats(_ context.Context, id string, totalQuestions, totalTime int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.TotalQuestions = totalQuestions
	quiz.TotalTime = totalTime
	s.quizzes[id] = quiz
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	for qid, q := range s.questions {
		if q.BelongsTo(id) {
			q.QuizIDs = slices.DeleteFunc(slices.Clone(q.QuizIDs), func(v string) bool { return v == id })
			s.questions[qid] = q
		}
	}
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = cloneQuestion(question)
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *Store) ListQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, cloneQuestion(q))
	}
	slices.SortFunc(out, func(a, b domain.Question) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) UpdateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[question.ID] = cloneQuestion(question)
	return nil
}

func (s *Store) AttachQuestion(_ context.Context, quizID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !q.BelongsTo(quizID) {
		q.QuizIDs = append(slices.Clone(q.QuizIDs), quizID)
		s.questions[questionID] = q
	}
	return nil
}

func (s *Store) DetachQuestion(_ context.Context, quizID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.QuizIDs = slices.DeleteFunc(slices.Clone(q.QuizIDs), func(v string) bool { return v == quizID })
	s.questions[questionID] = q
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = slices.Clone(q.Options)
	q.QuizIDs = slices.Clone(q.QuizIDs)
	if q.QuizIDs == nil {
		q.QuizIDs = []string{}
	}
	return q
}
