// internal/domain/inquiry/entity.go
package inquiry

import "time"

// ApplicationStatus tracks a partner application through review
type ApplicationStatus string

const (
	ApplicationNew       ApplicationStatus = "new"
	ApplicationReviewing ApplicationStatus = "reviewing"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// BouquetStatus tracks a custom bouquet request
type BouquetStatus string

const (
	BouquetNew       BouquetStatus = "new"
	BouquetQuoted    BouquetStatus = "quoted"
	BouquetConfirmed BouquetStatus = "confirmed"
	BouquetCompleted BouquetStatus = "completed"
	BouquetCancelled BouquetStatus = "cancelled"
)

// PartnerApplication is a farm or producer asking to sell through the box
type PartnerApplication struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	BusinessName string            `gorm:"not null;size:255" json:"business_name"`
	ContactName  string            `gorm:"not null;size:255" json:"contact_name"`
	Email        string            `gorm:"not null;size:255;index" json:"email"`
	Phone        string            `gorm:"size:20" json:"phone"`
	BusinessType string            `gorm:"size:100" json:"business_type"`
	Website      string            `gorm:"size:500" json:"website"`
	Message      string            `gorm:"type:text" json:"message"`
	Status       ApplicationStatus `gorm:"not null;size:20;index" json:"status"`
	AdminNotes   string            `gorm:"type:text" json:"admin_notes"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// FishAlert subscribes a customer to fresh-catch notifications
type FishAlert struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:255" json:"name"`
	Email            string     `gorm:"size:255;index" json:"email"`
	Phone            string     `gorm:"size:20;index" json:"phone"`
	PreferredSpecies string     `gorm:"size:500" json:"preferred_species"`
	IsActive         bool       `gorm:"not null;index" json:"is_active"`
	LastNotifiedAt   *time.Time `json:"last_notified_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BouquetRequest is a quote request for a custom flower arrangement
type BouquetRequest struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"not null;size:255" json:"name"`
	Email        string        `gorm:"not null;size:255;index" json:"email"`
	Phone        string        `gorm:"size:20" json:"phone"`
	Occasion     string        `gorm:"size:100" json:"occasion"`
	DeliveryDate string        `gorm:"not null;size:10;index" json:"delivery_date"`
	Budget       int64         `gorm:"not null" json:"budget"` // In cents
	Notes        string        `gorm:"type:text" json:"notes"`
	Status       BouquetStatus `gorm:"not null;size:20;index" json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (PartnerApplication) TableName() string { return "partner_applications" }
func (FishAlert) TableName() string          { return "fish_alerts" }
func (BouquetRequest) TableName() string     { return "bouquet_requests" }

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationNew, ApplicationReviewing, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

func (s BouquetStatus) Valid() bool {
	switch s {
	case BouquetNew, BouquetQuoted, BouquetConfirmed, BouquetCompleted, BouquetCancelled:
		return true
	}
	return false
}
