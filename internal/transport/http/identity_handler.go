package http

import (
	"net/http"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/auth"
	"quiz-arena/internal/domain"

	"github.com/gin-gonic/gin"
)

type tokenResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func newTokenResponse(user domain.User, token auth.Token) tokenResponse {
	return tokenResponse{User: user, Token: token.Value, ExpiresAt: token.ExpiresAt}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var in app.RegisterInput
	if !h.bind(c, &in) {
		return
	}
	user, token, err := h.identity.Register(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTokenResponse(user, token))
}

func (h *Handler) Login(c *gin.Context) {
	var in loginRequest
	if !h.bind(c, &in) {
		return
	}
	user, token, err := h.identity.Login(c.Request.Context(), in.Phone, in.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(user, token))
}

func (h *Handler) SetPassword(c *gin.Context) {
	var in passwordRequest
	if !h.bind(c, &in) {
		return
	}
	if err := h.identity.SetPassword(c.Request.Context(), callerID(c), in.Password); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AdminSetPassword(c *gin.Context) {
	var in passwordRequest
	if !h.bind(c, &in) {
		return
	}
	if err := h.identity.AdminSetPassword(c.Request.Context(), callerID(c), c.Param("userId"), in.Password); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.identity.User(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
