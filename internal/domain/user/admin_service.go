// internal/domain/user/admin_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/export"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/money"
)

var (
	ErrSelfDeactivation = errors.New("cannot deactivate your own account")
	ErrSelfDemotion     = errors.New("cannot remove your own admin privileges")
	ErrLastAdmin        = errors.New("at least one admin must remain")
)

// AdminService handles back office account management
type AdminService struct {
	db     *gorm.DB
	config *config.Config
	log    *logrus.Logger
}

// NewAdminService creates a new admin user service
func NewAdminService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *AdminService {
	return &AdminService{
		db:     db,
		config: cfg,
		log:    logger,
	}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Search string `form:"search"`
	Status string `form:"status"` // active, inactive, all
	Role   string `form:"role"`   // admin, user, all
}

// UserListResponse represents user list with pagination
type UserListResponse struct {
	Users      []UserWithStats `json:"users"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// UserWithStats is a user with their paid order totals
type UserWithStats struct {
	User
	OrderCount  int64      `json:"order_count"`
	TotalSpent  int64      `json:"total_spent"` // In cents
	LastOrderAt *time.Time `json:"last_order_at"`
}

// UserStatusUpdateRequest represents user status update data
type UserStatusUpdateRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UserAdminToggleRequest represents admin status toggle data
type UserAdminToggleRequest struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

type orderStats struct {
	UserID      uint
	OrderCount  int64
	TotalSpent  int64
	LastOrderAt *time.Time
}

// GetUsers retrieves users with filtering and pagination
func (s *AdminService) GetUsers(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.filtered(ctx, req.Search, req.Status, req.Role)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var users []User
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}

	withStats, err := s.attachStats(ctx, users)
	if err != nil {
		return nil, err
	}

	return &UserListResponse{
		Users:      withStats,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: int((total + int64(req.Limit) - 1) / int64(req.Limit)),
	}, nil
}

// UpdateUserStatus activates or deactivates an account
func (s *AdminService) UpdateUserStatus(ctx context.Context, userID uint, req *UserStatusUpdateRequest, adminID uint) (*User, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userID == adminID && !*req.IsActive {
		return nil, ErrSelfDeactivation
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", *req.IsActive).Error; err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "is_active": *req.IsActive, "admin_id": adminID}).Info("user status changed")
	return user, nil
}

// ToggleUserAdmin grants or removes admin rights
func (s *AdminService) ToggleUserAdmin(ctx context.Context, userID uint, req *UserAdminToggleRequest, adminID uint) (*User, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userID == adminID && !*req.IsAdmin {
		return nil, ErrSelfDemotion
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !*req.IsAdmin {
			var others int64
			if err := tx.Model(&User{}).Where("is_admin = ? AND id <> ?", true, userID).Count(&others).Error; err != nil {
				return err
			}
			if others == 0 {
				return ErrLastAdmin
			}
		}
		return tx.Model(user).Update("is_admin", *req.IsAdmin).Error
	})
	if err != nil {
		if errors.Is(err, ErrLastAdmin) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update admin status: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "is_admin": *req.IsAdmin, "admin_id": adminID}).Info("user role changed")
	return user, nil
}

// ExportUsers renders the filtered accounts as CSV
func (s *AdminService) ExportUsers(ctx context.Context, req *UserListRequest) ([]byte, string, error) {
	var users []User
	if err := s.filtered(ctx, req.Search, req.Status, req.Role).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, "", fmt.Errorf("failed to retrieve users for export: %w", err)
	}

	withStats, err := s.attachStats(ctx, users)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{Headers: []string{
		"ID", "Email", "First Name", "Last Name", "Phone", "Active", "Admin",
		"Paid Orders", "Total Spent", "Last Order", "Created At",
	}}
	for _, u := range withStats {
		table.AddRow(
			strconv.FormatUint(uint64(u.ID), 10),
			u.Email, u.FirstName, u.LastName, u.Phone,
			strconv.FormatBool(u.IsActive), strconv.FormatBool(u.IsAdmin),
			strconv.FormatInt(u.OrderCount, 10),
			money.Format(u.TotalSpent),
			export.Time(u.LastOrderAt),
			export.Time(&u.CreatedAt),
		)
	}

	data, err := table.CSV()
	if err != nil {
		return nil, "", err
	}
	return data, export.Filename("users", time.Now()), nil
}

func (s *AdminService) filtered(ctx context.Context, search, status, role string) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&User{})

	if search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR phone LIKE ?",
			term, term, term, "%"+search+"%",
		)
	}

	switch status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	switch role {
	case "admin":
		query = query.Where("is_admin = ?", true)
	case "user":
		query = query.Where("is_admin = ?", false)
	}
	return query
}

// attachStats loads paid order totals for the given users in one query
func (s *AdminService) attachStats(ctx context.Context, users []User) ([]UserWithStats, error) {
	result := make([]UserWithStats, 0, len(users))
	if len(users) == 0 {
		return result, nil
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var rows []orderStats
	err := s.db.WithContext(ctx).Table("orders").
		Select("user_id, COUNT(*) AS order_count, COALESCE(SUM(total_amount), 0) AS total_spent, MAX(paid_at) AS last_order_at").
		Where("user_id IN ? AND payment_status = ?", ids, "paid").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load order stats: %w", err)
	}

	byUser := make(map[uint]orderStats, len(rows))
	for _, r := range rows {
		byUser[r.UserID] = r
	}
	for _, u := range users {
		stats := byUser[u.ID]
		result = append(result, UserWithStats{
			User:        u,
			OrderCount:  stats.OrderCount,
			TotalSpent:  stats.TotalSpent,
			LastOrderAt: stats.LastOrderAt,
		})
	}
	return result, nil
}

func (s *AdminService) get(ctx context.Context, userID uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
