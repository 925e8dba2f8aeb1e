package http

import (
	"errors"
	"net/http"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler wires the HTTP surface to the application services.
type Handler struct {
	identity    *app.IdentityService
	catalog     *app.CatalogService
	sessions    *app.SessionManager
	scoring     *app.ScoringService
	leaderboard *app.LeaderboardService
	log         *logger.Logger
}

// Services groups the use cases the handler exposes.
type Services struct {
	Identity    *app.IdentityService
	Catalog     *app.CatalogService
	Sessions    *app.SessionManager
	Scoring     *app.ScoringService
	Leaderboard *app.LeaderboardService
}

func NewHandler(svc Services, log *logger.Logger) *Handler {
	return &Handler{
		identity:    svc.Identity,
		catalog:     svc.Catalog,
		sessions:    svc.Sessions,
		scoring:     svc.Scoring,
		leaderboard: svc.Leaderboard,
		log:         log.With("component", "http"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain failures to status codes. Anything unrecognised is
// logged and reported as a bare 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrNoActiveQuizzes),
		errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrQuizNotActive),
		errors.Is(err, domain.ErrAlreadyAttempted),
		errors.Is(err, domain.ErrTimeLimitExceeded),
		errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, domain.ErrPasswordNotSet):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPhoneTaken),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrProfileTaken),
		errors.Is(err, domain.ErrPasswordAlreadySet),
		errors.Is(err, domain.ErrSessionExists):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// bind decodes a JSON body, reporting malformed input as a validation error.
func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, domain.Invalid("body", "malformed JSON"))
		return false
	}
	return true
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
