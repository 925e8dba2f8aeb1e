package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/auth"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/infra/postgres"
	pgmigrations "quiz-arena/internal/infra/postgres/migrations"
	infraredis "quiz-arena/internal/infra/redis"
	"quiz-arena/internal/platform/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
)

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool, 5*time.Second)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	audit := infraredis.NewAuditLog(redisClient)

	log := logger.Nop()
	identity := app.NewIdentityService(store, auth.NewIssuer("it-secret", time.Hour), auth.NewHasher(bcrypt.MinCost), audit, []string{"+15550000"}, log)
	catalog := app.NewCatalogService(store, store, log).WithCache(infraredis.NewCatalogCache(redisClient, time.Minute))
	sessions := app.NewSessionManager(store, store, store, store, nil, log)
	scoring := app.NewScoringService(store, catalog, sessions, store, app.ScoringConfig{GracePeriod: 5 * time.Second, AllowLegacy: true}, nil, log)

	alice, _, err := identity.Register(ctx, app.RegisterInput{Name: "Alice", Phone: "+15550101", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := identity.Register(ctx, app.RegisterInput{Name: "Alias", Phone: "+15550102", Email: "alice@example.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email conflict from constraint, got %v", err)
	}
	if _, _, err := identity.Register(ctx, app.RegisterInput{Name: "Twin", Phone: "+15550101"}); !errors.Is(err, domain.ErrPhoneTaken) {
		t.Fatalf("expected phone conflict from constraint, got %v", err)
	}
	tokens, err := audit.TokensFor(ctx, alice.ID)
	if err != nil || len(tokens) != 1 {
		t.Fatalf("expected one audited token, got %v (%v)", tokens, err)
	}

	quiz, err := catalog.CreateQuiz(ctx, app.QuizInput{Title: "Arithmetic", Status: domain.QuizActive})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	correct := 1
	q1, err := catalog.CreateQuestion(ctx, app.QuestionInput{
		Text:           "What is 2 + 2?",
		Options:        []string{"3", "4", "5"},
		CorrectAnswer:  &correct,
		Difficulty:     domain.DifficultyEasy,
		PositivePoints: 10,
		NegativePoints: 2,
		TimeLimit:      30,
		QuizIDs:        []string{quiz.ID},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	hydrated, err := catalog.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if hydrated.TotalTime != 30 || hydrated.TotalQuestions != 1 || len(hydrated.Questions) != 1 {
		t.Fatalf("expected stats 30/1 with one question, got %+v", hydrated)
	}
	if got := hydrated.Questions[0].Options; len(got) != 3 || got[1] != "4" {
		t.Fatalf("options did not round-trip: %v", got)
	}
	if _, err := catalog.ActiveQuizzes(ctx); err != nil {
		t.Fatalf("active quizzes: %v", err)
	}

	// concurrent starts resolve to one session
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]struct{}{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := sessions.Start(ctx, alice.ID, quiz.ID)
			if err != nil {
				t.Errorf("start: %v", err)
				return
			}
			mu.Lock()
			ids[session.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(ids) != 1 {
		t.Fatalf("expected a single session, got %d", len(ids))
	}

	selected, spent := 1, 6
	submitted, err := scoring.Submit(ctx, alice.ID, domain.Submission{
		UserID:  alice.ID,
		QuizID:  quiz.ID,
		Answers: []domain.Answer{{QuestionID: q1.ID, SelectedAnswer: &selected, TimeSpent: &spent}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Result.Score != 18 || submitted.Result.PlayerName != "Alice" {
		t.Fatalf("unexpected result %+v", submitted.Result)
	}
	if _, err := sessions.Active(ctx, alice.ID, quiz.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session closed, got %v", err)
	}

	// a raced duplicate bypassing the pre-check still hits the constraint
	dup := submitted.Result
	dup.ID = "dup-result"
	if err := store.CompleteAttempt(ctx, dup, ""); !errors.Is(err, domain.ErrAlreadyAttempted) {
		t.Fatalf("expected constraint to reject duplicate, got %v", err)
	}

	board, err := app.NewLeaderboardService(store, log).ListResults(ctx, quiz.ID)
	if err != nil || len(board) != 1 {
		t.Fatalf("expected one leaderboard row, got %v (%v)", board, err)
	}

	if err := catalog.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	orphan, err := store.GetQuestion(ctx, q1.ID)
	if err != nil {
		t.Fatalf("question should survive quiz deletion: %v", err)
	}
	if len(orphan.QuizIDs) != 0 {
		t.Fatalf("expected membership cleared, got %v", orphan.QuizIDs)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
