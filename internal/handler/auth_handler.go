package handler

import (
	"net/http"

	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates an account and logs it in.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	logger.Log.Info("User registration attempt",
		zap.String("public_name", req.PublicName),
		zap.String("email", req.Email),
		zap.String("ip", c.ClientIP()),
	)

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Name:       req.Name,
		PublicName: req.PublicName,
		Email:      req.Email,
		Password:   req.Password,
		Province:   req.Province,
		City:       req.City,
	})
	if err != nil {
		logger.Log.Warn("Registration failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, dto.AuthResponseFrom(result.AccessToken, result.RefreshToken, result.User))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.Warn("Login failed",
			zap.String("email", req.Email),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, dto.AuthResponseFrom(result.AccessToken, result.RefreshToken, result.User))
}

// Refresh trades a refresh token for a new access token.
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Log.Info("Token refresh rejected", zap.String("ip", c.ClientIP()), zap.Error(err))
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, dto.AuthResponseFrom(result.AccessToken, result.RefreshToken, result.User))
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
