// internal/domain/delivery/entity.go
package delivery

import "time"

// ZipCode is a ZIP the farm delivers to
type ZipCode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Zip         string    `gorm:"uniqueIndex;not null;size:5" json:"zip"`
	City        string    `gorm:"size:100" json:"city"`
	DeliveryDay string    `gorm:"size:20" json:"delivery_day"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ZipCode) TableName() string { return "zip_codes" }

// CheckResult answers "do you deliver to me?"
type CheckResult struct {
	Zip         string `json:"zip"`
	Served      bool   `json:"served"`
	City        string `json:"city,omitempty"`
	DeliveryDay string `json:"delivery_day,omitempty"`
}
