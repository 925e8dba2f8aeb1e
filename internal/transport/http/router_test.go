package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/auth"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/infra/memory"
	"quiz-arena/internal/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminPhone = "+15550000"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	log := logger.Nop()
	identity := app.NewIdentityService(store, auth.NewIssuer("test-secret", time.Hour), auth.NewHasher(bcrypt.MinCost), memory.NewAuditLog(), []string{adminPhone}, log)
	catalog := app.NewCatalogService(store, store, log)
	sessions := app.NewSessionManager(store, store, store, store, nil, log)
	scoring := app.NewScoringService(store, catalog, sessions, store, app.ScoringConfig{GracePeriod: 5 * time.Second, AllowLegacy: true}, nil, log)
	h := NewHandler(Services{
		Identity:    identity,
		Catalog:     catalog,
		Sessions:    sessions,
		Scoring:     scoring,
		Leaderboard: app.NewLeaderboardService(store, log),
	}, log)
	return NewRouter(h, RouterConfig{}, log)
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func register(t *testing.T, r *gin.Engine, name, phone string) tokenResponse {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/auth/register", "", app.RegisterInput{Name: name, Phone: phone})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tokenResponse](t, rec)
}

// seedQuiz creates an active quiz with one 30s question whose answer is 1.
func seedQuiz(t *testing.T, r *gin.Engine, adminToken string) (domain.Quiz, domain.Question) {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/quiz", adminToken, app.QuizInput{Title: "Capitals", Status: domain.QuizActive})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	quiz := decode[domain.Quiz](t, rec)

	correct := 1
	rec = do(t, r, http.MethodPost, "/questions", adminToken, app.QuestionInput{
		Text:           "Capital of France?",
		Options:        []string{"Lyon", "Paris", "Nice"},
		CorrectAnswer:  &correct,
		Category:       "geo",
		Difficulty:     domain.DifficultyEasy,
		PositivePoints: 10,
		NegativePoints: 2,
		TimeLimit:      30,
		QuizIDs:        []string{quiz.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return quiz, decode[domain.Question](t, rec)
}

func TestAttemptFlow(t *testing.T) {
	r := newTestRouter(t)
	admin := register(t, r, "Admin", adminPhone)
	require.True(t, admin.User.IsAdmin)
	player := register(t, r, "Alice", "+15550101")

	quiz, question := seedQuiz(t, r, admin.Token)

	rec := do(t, r, http.MethodGet, "/quiz/active", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correctAnswer")
	active := decode[[]domain.PlayerQuiz](t, rec)
	require.Len(t, active, 1)
	assert.Equal(t, 30, active[0].TotalTime)

	rec = do(t, r, http.MethodPost, "/quiz/"+quiz.ID+"/start", player.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[domain.Session](t, rec)
	assert.True(t, session.Active)

	rec = do(t, r, http.MethodPost, "/quiz/"+quiz.ID+"/start", player.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ID, decode[domain.Session](t, rec).ID)

	selected, spent := 1, 6
	sub := domain.Submission{
		UserID:  player.User.ID,
		QuizID:  quiz.ID,
		Answers: []domain.Answer{{QuestionID: question.ID, SelectedAnswer: &selected, TimeSpent: &spent}},
	}
	rec = do(t, r, http.MethodPost, "/results", player.Token, sub)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[submissionResponse](t, rec)
	assert.Equal(t, 18, result.Score)
	assert.Equal(t, "Alice", result.PlayerName)
	assert.Equal(t, 1, result.TotalQuestions)
	assert.Empty(t, result.Warning)

	rec = do(t, r, http.MethodPost, "/results", player.Token, sub)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrAlreadyAttempted.Error(), decode[errorResponse](t, rec).Error)

	rec = do(t, r, http.MethodGet, "/results/"+quiz.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Result](t, rec), 1)

	rec = do(t, r, http.MethodGet, "/user/"+player.User.ID+"/attempts/"+quiz.ID, player.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]bool](t, rec)["hasAttempted"])

	rec = do(t, r, http.MethodGet, "/user/"+player.User.ID+"/attempts/"+quiz.ID, admin.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitRejections(t *testing.T) {
	r := newTestRouter(t)
	admin := register(t, r, "Admin", adminPhone)
	player := register(t, r, "Bob", "+15550102")
	quiz, _ := seedQuiz(t, r, admin.Token)

	sub := domain.Submission{UserID: player.User.ID, QuizID: quiz.ID}

	rec := do(t, r, http.MethodPost, "/results", "", sub)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodPost, "/results", "not-a-token", sub)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodPost, "/results", admin.Token, sub)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, r, http.MethodPost, "/quiz/missing/start", player.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPut, "/quiz/"+quiz.ID, admin.Token, app.QuizInput{Status: domain.QuizCompleted})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, r, http.MethodPost, "/quiz/"+quiz.ID+"/start", player.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrQuizNotActive.Error(), decode[errorResponse](t, rec).Error)

	rec = do(t, r, http.MethodGet, "/quiz/active", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLegacySubmissionCarriesWarning(t *testing.T) {
	r := newTestRouter(t)
	admin := register(t, r, "Admin", adminPhone)
	player := register(t, r, "Carol", "+15550103")
	quiz, _ := seedQuiz(t, r, admin.Token)

	declared := 7
	rec := do(t, r, http.MethodPost, "/results", player.Token, domain.Submission{UserID: player.User.ID, QuizID: quiz.ID, Score: &declared})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[submissionResponse](t, rec)
	assert.Equal(t, 7, result.Score)
	assert.Equal(t, 0, result.TimeSpent)
	assert.Equal(t, app.LegacySubmissionWarning, result.Warning)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	r := newTestRouter(t)
	admin := register(t, r, "Admin", adminPhone)
	player := register(t, r, "Dave", "+15550104")

	rec := do(t, r, http.MethodPost, "/quiz", player.Token, app.QuizInput{Title: "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, r, http.MethodDelete, "/results", player.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, r, http.MethodGet, "/questions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodDelete, "/results", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode[map[string]float64](t, rec)["deleted"])
}

func TestPasswordLifecycle(t *testing.T) {
	r := newTestRouter(t)
	admin := register(t, r, "Admin", adminPhone)
	player := register(t, r, "Erin", "+15550105")

	rec := do(t, r, http.MethodPost, "/auth/login", "", loginRequest{Phone: "+15550105", Password: "secret-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/auth/password", player.Token, passwordRequest{Password: "secret-1"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = do(t, r, http.MethodPost, "/auth/password", player.Token, passwordRequest{Password: "secret-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/auth/login", "", loginRequest{Phone: "+15550105", Password: "wrong-pw"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodPut, "/admin/users/"+player.User.ID+"/password", admin.Token, passwordRequest{Password: "reset-pw"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/auth/login", "", loginRequest{Phone: "+15550105", Password: "reset-pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[tokenResponse](t, rec)

	rec = do(t, r, http.MethodGet, "/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "$2a$")
	assert.Equal(t, player.User.ID, decode[domain.User](t, rec).ID)

	rec = do(t, r, http.MethodPost, "/auth/register", "", app.RegisterInput{Name: "Dup", Phone: "+15550105"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{log: logger.Nop()}

	cases := []struct {
		err  error
		want int
	}{
		{domain.Invalid("title", "is required"), http.StatusBadRequest},
		{domain.ErrTimeLimitExceeded, http.StatusBadRequest},
		{domain.ErrNoActiveSession, http.StatusBadRequest},
		{domain.ErrQuestionNotFound, http.StatusNotFound},
		{domain.ErrEmailTaken, http.StatusConflict},
		{errors.New("dial tcp 10.0.0.5:5432: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		h.writeError(c, tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
		if tc.want == http.StatusInternalServerError {
			assert.Equal(t, "internal server error", decode[errorResponse](t, rec).Error)
		}
	}
}
