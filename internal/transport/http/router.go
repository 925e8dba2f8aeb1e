package http

import (
	"quiz-arena/internal/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds transport-level settings.
type RouterConfig struct {
	Mode        string
	CORSOrigins []string
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler, cfg RouterConfig, log *logger.Logger) *gin.Engine {
	if cfg.Mode == "prod" || cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsCfg))

	// public
	router.GET("/healthz", h.Health)
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.GET("/quiz/active", h.ActiveQuizzes)
	router.GET("/quiz/:quizId", h.GetQuiz)
	router.GET("/results", h.ListResults)
	router.GET("/results/:quizId", h.ListResults)

	// authenticated
	authed := router.Group("/")
	authed.Use(h.RequireAuth())
	authed.POST("/auth/password", h.SetPassword)
	authed.GET("/me", h.Me)
	authed.POST("/quiz/:quizId/start", h.StartQuiz)
	authed.POST("/results", h.SubmitResult)
	authed.GET("/user/:userId/attempts/:quizId", h.HasAttempted)

	// admin
	admin := router.Group("/")
	admin.Use(h.RequireAuth(), h.RequireAdmin())
	admin.PUT("/admin/users/:userId/password", h.AdminSetPassword)
	admin.DELETE("/results", h.ResetResults)
	admin.DELETE("/results/:quizId", h.ResetResults)
	admin.GET("/quiz", h.ListQuizzes)
	admin.POST("/quiz", h.CreateQuiz)
	admin.PUT("/quiz/:quizId", h.UpdateQuiz)
	admin.DELETE("/quiz/:quizId", h.DeleteQuiz)
	admin.POST("/quiz/:quizId/questions/:questionId", h.AttachQuestion)
	admin.DELETE("/quiz/:quizId/questions/:questionId", h.DetachQuestion)
	admin.GET("/questions", h.ListQuestions)
	admin.POST("/questions", h.CreateQuestion)
	admin.PUT("/questions/:questionId", h.UpdateQuestion)
	admin.DELETE("/questions/:questionId", h.DeleteQuestion)

	return router
}
