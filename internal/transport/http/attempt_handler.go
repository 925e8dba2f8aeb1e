package http

import (
	"net/http"

	"quiz-arena/internal/domain"

	"github.com/gin-gonic/gin"
)

type submissionResponse struct {
	domain.Result
	Warning string `json:"warning,omitempty"`
}

// StartQuiz starts or resumes the caller's timed attempt.
func (h *Handler) StartQuiz(c *gin.Context) {
	session, err := h.sessions.Start(c.Request.Context(), callerID(c), c.Param("quizId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) SubmitResult(c *gin.Context) {
	var sub domain.Submission
	if !h.bind(c, &sub) {
		return
	}
	submitted, err := h.scoring.Submit(c.Request.Context(), callerID(c), sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submissionResponse{Result: submitted.Result, Warning: submitted.Warning})
}

// ListResults serves the per-quiz leaderboard, or the global feed when no
// quiz id is in the path.
func (h *Handler) ListResults(c *gin.Context) {
	results, err := h.leaderboard.ListResults(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) ResetResults(c *gin.Context) {
	deleted, err := h.leaderboard.ResetResults(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) HasAttempted(c *gin.Context) {
	attempted, err := h.leaderboard.HasAttempted(c.Request.Context(), callerID(c), c.Param("userId"), c.Param("quizId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasAttempted": attempted})
}
