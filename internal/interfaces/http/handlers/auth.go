// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/user"
)

// AuthHandler handles authentication and profile endpoints
type AuthHandler struct {
	userService *user.Service
	log         *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *user.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		log:         logger,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "User registered successfully", response)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Login successful", response)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req user.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Token refreshed successfully", response)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	if err := h.userService.Logout(c.Request.Context(), session); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Logout successful", nil)
}

// GetProfile handles GET /auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Profile retrieved successfully", profile)
}

// UpdateProfile handles PUT /auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), session.UserID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Profile updated successfully", profile)
}
