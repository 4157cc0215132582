// internal/interfaces/http/handlers/user_admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/user"
)

// UserAdminHandler handles admin user management endpoints
type UserAdminHandler struct {
	adminService *user.AdminService
	log          *logrus.Logger
}

// NewUserAdminHandler creates a new user admin handler
func NewUserAdminHandler(adminService *user.AdminService, logger *logrus.Logger) *UserAdminHandler {
	return &UserAdminHandler{
		adminService: adminService,
		log:          logger,
	}
}

// GetUsers handles GET /admin/users
func (h *UserAdminHandler) GetUsers(c *gin.Context) {
	var req user.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.adminService.GetUsers(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Users retrieved successfully", response)
}

// UpdateUserStatus handles PUT /admin/users/:id/status
func (h *UserAdminHandler) UpdateUserStatus(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req user.UserStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.adminService.UpdateUserStatus(c.Request.Context(), id, &req, session.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "User status updated successfully", updated)
}

// ToggleUserAdmin handles PUT /admin/users/:id/admin
func (h *UserAdminHandler) ToggleUserAdmin(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req user.UserAdminToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.adminService.ToggleUserAdmin(c.Request.Context(), id, &req, session.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "User admin status updated successfully", updated)
}

// ExportUsers handles GET /admin/users/export
func (h *UserAdminHandler) ExportUsers(c *gin.Context) {
	var req user.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	data, filename, err := h.adminService.ExportUsers(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "text/csv", filename, data)
}
