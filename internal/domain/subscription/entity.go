// internal/domain/subscription/entity.go
package subscription

import "time"

// Status is the lifecycle state of a subscription
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusSuspended:
		return true
	}
	return false
}

// UserSubscription is a recurring box subscription
type UserSubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;index" json:"user_id"`
	BoxSize                string     `gorm:"not null;size:20" json:"box_size"`
	Status                 Status     `gorm:"not null;size:20;index" json:"status"`
	StartedAt              time.Time  `json:"started_at"`
	PausedAt               *time.Time `json:"paused_at"`
	AutoResumeDate         *string    `gorm:"size:10" json:"auto_resume_date"` // YYYY-MM-DD
	PauseReason            string     `gorm:"type:text" json:"pause_reason"`
	CancelledAt            *time.Time `json:"cancelled_at"`
	CancellationReason     string     `gorm:"type:text" json:"cancellation_reason"`
	ProviderSubscriptionID string     `gorm:"size:255;index" json:"provider_subscription_id"`
	ProviderCustomerID     string     `gorm:"size:255" json:"provider_customer_id"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (UserSubscription) TableName() string { return "user_subscriptions" }
