package http

import (
	"net/http"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ActiveQuizzes(c *gin.Context) {
	quizzes, err := h.catalog.ActiveQuizzes(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

// GetQuiz returns the player view; answer keys never leave through here.
func (h *Handler) GetQuiz(c *gin.Context) {
	quiz, err := h.catalog.PlayerQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.catalog.ListQuizzes(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) CreateQuiz(c *gin.Context) {
	var in app.QuizInput
	if !h.bind(c, &in) {
		return
	}
	quiz, err := h.catalog.CreateQuiz(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) UpdateQuiz(c *gin.Context) {
	var in app.QuizInput
	if !h.bind(c, &in) {
		return
	}
	quiz, err := h.catalog.UpdateQuiz(c.Request.Context(), c.Param("quizId"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(c *gin.Context) {
	if err := h.catalog.DeleteQuiz(c.Request.Context(), c.Param("quizId")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AttachQuestion(c *gin.Context) {
	quiz, err := h.catalog.AttachQuestion(c.Request.Context(), c.Param("quizId"), c.Param("questionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) DetachQuestion(c *gin.Context) {
	quiz, err := h.catalog.DetachQuestion(c.Request.Context(), c.Param("quizId"), c.Param("questionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) ListQuestions(c *gin.Context) {
	questions, err := h.catalog.ListQuestions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		out = append(out, app.MapQuestionForAdmin(q))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateQuestion(c *gin.Context) {
	var in app.QuestionInput
	if !h.bind(c, &in) {
		return
	}
	question, err := h.catalog.CreateQuestion(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.MapQuestionForAdmin(question))
}

func (h *Handler) UpdateQuestion(c *gin.Context) {
	var in app.QuestionInput
	if !h.bind(c, &in) {
		return
	}
	question, err := h.catalog.UpdateQuestion(c.Request.Context(), c.Param("questionId"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.MapQuestionForAdmin(question))
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	if err := h.catalog.DeleteQuestion(c.Request.Context(), c.Param("questionId")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
