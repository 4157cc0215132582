// internal/domain/boxtemplate/entity.go
package boxtemplate

import (
	"time"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
)

// TemplateWeek is the single holder of confirmation state for one
// (week, box size) key. Line items hang off it, so every row of a key
// shares one confirmation state by construction.
type TemplateWeek struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	WeekStartDate string        `gorm:"not null;size:10;uniqueIndex:idx_template_weeks_key" json:"week_start_date"`
	BoxSize       string        `gorm:"not null;size:20;uniqueIndex:idx_template_weeks_key" json:"box_size"`
	IsConfirmed   bool          `gorm:"not null" json:"is_confirmed"`
	ConfirmedAt   *time.Time    `json:"confirmed_at"`
	ConfirmedBy   *uint         `json:"confirmed_by"`
	Version       int           `gorm:"not null" json:"version"`
	Items         []BoxTemplate `gorm:"foreignKey:TemplateWeekID;constraint:OnDelete:CASCADE;" json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// BoxTemplate is one product line of a week's box
type BoxTemplate struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	TemplateWeekID uint             `gorm:"not null;uniqueIndex:idx_box_templates_week_product" json:"template_week_id"`
	ProductID      uint             `gorm:"not null;uniqueIndex:idx_box_templates_week_product;index" json:"product_id"`
	Quantity       int              `gorm:"not null" json:"quantity"`
	Product        *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TableName overrides
func (TemplateWeek) TableName() string { return "box_template_weeks" }
func (BoxTemplate) TableName() string  { return "box_templates" }

// Row is a template line as shown to admins, carrying the key's
// confirmation state alongside the product details
type Row struct {
	ID            uint       `json:"id"`
	WeekStartDate string     `json:"week_start_date"`
	BoxSize       string     `json:"box_size"`
	ProductID     uint       `json:"product_id"`
	ProductName   string     `json:"product_name"`
	Category      string     `json:"category"`
	UnitPrice     int64      `json:"unit_price"`
	Quantity      int        `json:"quantity"`
	LineValue     int64      `json:"line_value"`
	IsConfirmed   bool       `json:"is_confirmed"`
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	ConfirmedBy   *uint      `json:"confirmed_by"`
}

// View is the full template for one key
type View struct {
	WeekStartDate string     `json:"week_start_date"`
	BoxSize       string     `json:"box_size"`
	Exists        bool       `json:"exists"`
	IsConfirmed   bool       `json:"is_confirmed"`
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	ConfirmedBy   *uint      `json:"confirmed_by"`
	Version       int        `json:"version"`
	BoxBasePrice  int64      `json:"box_base_price"`
	ItemsValue    int64      `json:"items_value"`
	TotalValue    int64      `json:"total_value"`
	Rows          []Row      `json:"rows"`
}

// TransitionResult reports a confirm/unconfirm. AffectedBags is the number
// of unconfirmed user bags for the key; it is informational only.
type TransitionResult struct {
	View         *View  `json:"template"`
	AffectedBags int64  `json:"affected_bags"`
	Message      string `json:"message"`
}

// CopyResult reports a copy from the previous week
type CopyResult struct {
	SourceWeek string `json:"source_week"`
	Copied     int    `json:"copied"`
	Notice     string `json:"notice,omitempty"`
}
