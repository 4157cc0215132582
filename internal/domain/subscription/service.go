// internal/domain/subscription/service.go
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
)

var (
	ErrNotFound          = errors.New("subscription not found")
	ErrInvalidTransition = errors.New("subscription cannot change to that status")
	ErrInvalidStatus     = errors.New("invalid subscription status")
	ErrInvalidResumeDate = errors.New("auto-resume date must be a future YYYY-MM-DD date")
)

// Service manages subscription state and answers the pricing gate
type Service struct {
	db     *gorm.DB
	config *config.Config
	log    *logrus.Logger
	now    func() time.Time
}

// NewService creates a new subscription service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		log:    logger,
		now:    time.Now,
	}
}

// PauseRequest carries an optional reason and resume date
type PauseRequest struct {
	Reason         string `json:"reason" binding:"max=1000"`
	AutoResumeDate string `json:"auto_resume_date"`
}

// CancelRequest carries an optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// ActivateRequest describes a subscription started by a completed checkout
type ActivateRequest struct {
	UserID                 uint
	BoxSize                string
	ProviderSubscriptionID string
	ProviderCustomerID     string
}

// HasActiveSubscription reports whether the user is subscriber-covered.
// Exactly one active row counts; duplicates resolve to false.
func (s *Service) HasActiveSubscription(ctx context.Context, userID uint) (bool, error) {
	return HasActive(s.db.WithContext(ctx), userID)
}

// HasActive runs the subscriber check against db, which may be a transaction
func HasActive(db *gorm.DB, userID uint) (bool, error) {
	var count int64
	err := db.Model(&UserSubscription{}).
		Where("user_id = ? AND status = ?", userID, StatusActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return count == 1, nil
}

// Get returns the user's current subscription, preferring a live row over
// cancelled history
func (s *Service) Get(ctx context.Context, userID uint) (*UserSubscription, error) {
	var sub UserSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(fmt.Sprintf("CASE WHEN status = '%s' THEN 1 ELSE 0 END, updated_at DESC, id DESC", StatusCancelled)).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// Activate starts or reactivates the user's subscription. A live row is
// reused so the user never ends up with two active rows.
func (s *Service) Activate(ctx context.Context, req ActivateRequest) (*UserSubscription, error) {
	var result UserSubscription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing UserSubscription
		err := tx.Where("user_id = ? AND status <> ?", req.UserID, StatusCancelled).
			Order("id DESC").First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.now().UTC()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = UserSubscription{
				UserID:                 req.UserID,
				BoxSize:                req.BoxSize,
				Status:                 StatusActive,
				StartedAt:              now,
				ProviderSubscriptionID: req.ProviderSubscriptionID,
				ProviderCustomerID:     req.ProviderCustomerID,
			}
			return tx.Create(&result).Error
		}

		existing.Status = StatusActive
		existing.BoxSize = req.BoxSize
		existing.PausedAt = nil
		existing.AutoResumeDate = nil
		existing.PauseReason = ""
		if req.ProviderSubscriptionID != "" {
			existing.ProviderSubscriptionID = req.ProviderSubscriptionID
		}
		if req.ProviderCustomerID != "" {
			existing.ProviderCustomerID = req.ProviderCustomerID
		}
		result = existing
		return tx.Save(&result).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": req.UserID, "box_size": req.BoxSize}).Info("subscription activated")
	return &result, nil
}

// Pause moves an active subscription to paused
func (s *Service) Pause(ctx context.Context, userID uint, req *PauseRequest) (*UserSubscription, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusActive {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	var resume *string
	if req.AutoResumeDate != "" {
		date, err := time.ParseInLocation(week.DateLayout, req.AutoResumeDate, s.config.Storefront.Location())
		if err != nil || !date.After(now) {
			return nil, ErrInvalidResumeDate
		}
		resume = &req.AutoResumeDate
	}

	pausedAt := now.UTC()
	sub.Status = StatusPaused
	sub.PausedAt = &pausedAt
	sub.AutoResumeDate = resume
	sub.PauseReason = req.Reason

	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to pause subscription: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "auto_resume_date": req.AutoResumeDate}).Info("subscription paused")
	return sub, nil
}

// Resume moves a paused subscription back to active
func (s *Service) Resume(ctx context.Context, userID uint) (*UserSubscription, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusPaused {
		return nil, ErrInvalidTransition
	}

	clearPause(sub)
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to resume subscription: %w", err)
	}

	s.log.WithField("user_id", userID).Info("subscription resumed")
	return sub, nil
}

// Cancel ends an active or paused subscription
func (s *Service) Cancel(ctx context.Context, userID uint, req *CancelRequest) (*UserSubscription, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusActive && sub.Status != StatusPaused {
		return nil, ErrInvalidTransition
	}

	cancelledAt := s.now().UTC()
	sub.Status = StatusCancelled
	sub.CancelledAt = &cancelledAt
	sub.CancellationReason = req.Reason
	sub.AutoResumeDate = nil

	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	s.log.WithField("user_id", userID).Info("subscription cancelled")
	return sub, nil
}

// ResumeDue reactivates paused subscriptions whose auto-resume date has
// arrived in the store timezone. It returns the number resumed.
func (s *Service) ResumeDue(ctx context.Context) (int64, error) {
	today := s.now().In(s.config.Storefront.Location()).Format(week.DateLayout)

	result := s.db.WithContext(ctx).Model(&UserSubscription{}).
		Where("status = ? AND auto_resume_date IS NOT NULL AND auto_resume_date <= ?", StatusPaused, today).
		Updates(map[string]interface{}{
			"status":           StatusActive,
			"paused_at":        nil,
			"auto_resume_date": nil,
			"pause_reason":     "",
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to resume subscriptions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.log.WithFields(logrus.Fields{"count": result.RowsAffected, "date": today}).Info("paused subscriptions auto-resumed")
	}
	return result.RowsAffected, nil
}

// ListFilter narrows the admin subscription listing
type ListFilter struct {
	Status Status `form:"status"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=50"`
}

// List returns subscriptions for the back office
func (s *Service) List(ctx context.Context, filter ListFilter) ([]UserSubscription, int64, error) {
	query := s.db.WithContext(ctx).Model(&UserSubscription{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	var subs []UserSubscription
	if err := query.Order("updated_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&subs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, total, nil
}

// SetStatus lets an admin force a status, e.g. suspend for a failed payment
func (s *Service) SetStatus(ctx context.Context, id uint, status Status) (*UserSubscription, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var sub UserSubscription
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	now := s.now().UTC()
	switch status {
	case StatusActive:
		clearPause(&sub)
	case StatusPaused:
		if sub.PausedAt == nil {
			sub.PausedAt = &now
		}
	case StatusCancelled:
		if sub.CancelledAt == nil {
			sub.CancelledAt = &now
		}
	}
	sub.Status = status

	if err := s.db.WithContext(ctx).Save(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.log.WithFields(logrus.Fields{"subscription_id": id, "status": status}).Info("subscription status set by admin")
	return &sub, nil
}

func clearPause(sub *UserSubscription) {
	sub.Status = StatusActive
	sub.PausedAt = nil
	sub.AutoResumeDate = nil
	sub.PauseReason = ""
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return page, limit
}
