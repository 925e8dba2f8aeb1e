package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/infra/memory"
	"quiz-arena/internal/platform/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store       *memory.Store
	clock       *fakeClock
	catalog     *app.CatalogService
	sessions    *app.SessionManager
	scoring     *app.ScoringService
	leaderboard *app.LeaderboardService
}

func newFixture(t *testing.T, allowLegacy bool) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock()
	log := logger.Nop()
	catalog := app.NewCatalogService(store, store, log)
	sessions := app.NewSessionManager(store, store, store, store, clock.Now, log)
	scoring := app.NewScoringService(store, catalog, sessions, store, app.ScoringConfig{
		GracePeriod: 5 * time.Second,
		AllowLegacy: allowLegacy,
	}, clock.Now, log)
	return &fixture{
		store:       store,
		clock:       clock,
		catalog:     catalog,
		sessions:    sessions,
		scoring:     scoring,
		leaderboard: app.NewLeaderboardService(store, log),
	}
}

func (f *fixture) addUser(t *testing.T, id, name string) {
	t.Helper()
	if err := f.store.CreateUser(context.Background(), domain.User{ID: id, Name: name, Phone: "+1555" + id}); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

// addQuiz creates an active quiz with the given questions attached.
func (f *fixture) addQuiz(t *testing.T, questions ...app.QuestionInput) (domain.Quiz, []domain.Question) {
	t.Helper()
	ctx := context.Background()
	quiz, err := f.catalog.CreateQuiz(ctx, app.QuizInput{Title: "General", Status: domain.QuizActive})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	created := make([]domain.Question, 0, len(questions))
	for _, in := range questions {
		in.QuizIDs = append(in.QuizIDs, quiz.ID)
		q, err := f.catalog.CreateQuestion(ctx, in)
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
		created = append(created, q)
	}
	quiz, err = f.catalog.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	return quiz, created
}

func question(text string, correct, positive, negative, seconds int) app.QuestionInput {
	return app.QuestionInput{
		Text:           text,
		Options:        []string{"A", "B", "C", "D"},
		CorrectAnswer:  intPtr(correct),
		Category:       "general",
		Difficulty:     domain.DifficultyMedium,
		PositivePoints: positive,
		NegativePoints: negative,
		TimeLimit:      seconds,
	}
}

func intPtr(v int) *int { return &v }
