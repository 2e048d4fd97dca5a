package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-sys/internal/service"
)

// AuthHandler mantiene dependencias para el endpoint de login.
type AuthHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
	}
}

type loginResult struct {
	Token     string           `json:"token"`
	ExpiresIn int64            `json:"expires_in"`
	User      service.UserView `json:"user"`
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		LoginID  string `json:"login_id" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		Fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.LoginID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			Fail(c, http.StatusUnauthorized, "invalid credentials")
			return
		case errors.Is(err, service.ErrUserLocked):
			Fail(c, http.StatusUnauthorized, "user locked")
			return
		default:
			h.logger.Error("login failed", zap.Error(err))
			Fail(c, http.StatusInternalServerError, "could not login")
			return
		}
	}

	token, err := h.jwtServ.GenerateAccessToken(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		Fail(c, http.StatusInternalServerError, "could not issue token")
		return
	}

	OK(c, loginResult{
		Token:     token,
		ExpiresIn: int64(h.jwtServ.AccessTTL().Seconds()),
		User:      user,
	})
}
