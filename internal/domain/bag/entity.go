// internal/domain/bag/entity.go
package bag

import (
	"time"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
)

// ItemType distinguishes template-driven box lines from paid extras
type ItemType string

const (
	ItemTypeBox   ItemType = "box_item"
	ItemTypeAddon ItemType = "addon"
)

// State is the edit state of a bag, derived from the clock and confirmation
type State string

const (
	StateDraft     State = "draft"
	StateLocked    State = "locked"
	StateConfirmed State = "confirmed"
)

// TemplateStatus describes the template backing a bag's box items
type TemplateStatus string

const (
	TemplateNone      TemplateStatus = "none"
	TemplatePending   TemplateStatus = "pending"
	TemplateConfirmed TemplateStatus = "confirmed"
)

// WeeklyBag is one user's box for one delivery week
type WeeklyBag struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"not null;uniqueIndex:idx_weekly_bags_user_week" json:"user_id"`
	WeekStartDate     string          `gorm:"not null;size:10;uniqueIndex:idx_weekly_bags_user_week;index:idx_weekly_bags_week_size" json:"week_start_date"`
	WeekEndDate       string          `gorm:"not null;size:10" json:"week_end_date"`
	CutoffTime        time.Time       `gorm:"not null" json:"cutoff_time"`
	BoxSize           string          `gorm:"not null;size:20;index:idx_weekly_bags_week_size" json:"box_size"`
	BoxPrice          int64           `gorm:"not null" json:"box_price"` // In cents
	Subtotal          int64           `gorm:"not null" json:"subtotal"`
	AddonsTotal       int64           `gorm:"not null" json:"addons_total"`
	DeliveryFee       int64           `gorm:"not null" json:"delivery_fee"`
	TotalAmount       int64           `gorm:"not null" json:"total_amount"`
	IsConfirmed       bool            `gorm:"not null" json:"is_confirmed"`
	ConfirmedAt       *time.Time      `json:"confirmed_at"`
	SubscriberCovered bool            `gorm:"not null" json:"subscriber_covered"`
	Items             []WeeklyBagItem `gorm:"foreignKey:WeeklyBagID;constraint:OnDelete:CASCADE;" json:"items,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// WeeklyBagItem is a line of a bag. PriceAtTime is snapshotted when the
// line is written and never follows later product price changes.
type WeeklyBagItem struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	WeeklyBagID uint             `gorm:"not null;uniqueIndex:idx_bag_items_line" json:"weekly_bag_id"`
	ProductID   uint             `gorm:"not null;uniqueIndex:idx_bag_items_line;index" json:"product_id"`
	ItemType    ItemType         `gorm:"not null;size:20;uniqueIndex:idx_bag_items_line" json:"item_type"`
	Quantity    int              `gorm:"not null" json:"quantity"`
	PriceAtTime int64            `gorm:"not null" json:"price_at_time"`
	IsPaid      bool             `gorm:"not null" json:"is_paid"`
	Product     *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (WeeklyBag) TableName() string     { return "weekly_bags" }
func (WeeklyBagItem) TableName() string { return "weekly_bag_items" }

// LineTotal is the snapshotted price times quantity
func (i *WeeklyBagItem) LineTotal() int64 {
	return i.PriceAtTime * int64(i.Quantity)
}

// UnpaidAddons returns the add-on lines not yet settled by a checkout
func (b *WeeklyBag) UnpaidAddons() []WeeklyBagItem {
	var unpaid []WeeklyBagItem
	for _, item := range b.Items {
		if item.ItemType == ItemTypeAddon && !item.IsPaid {
			unpaid = append(unpaid, item)
		}
	}
	return unpaid
}

// BagView is the bag as the storefront renders it
type BagView struct {
	Bag            *WeeklyBag     `json:"bag"`
	BoxItems       []ItemView     `json:"box_items"`
	Addons         []ItemView     `json:"addons"`
	State          State          `json:"state"`
	TemplateStatus TemplateStatus `json:"template_status"`
	IsSubscriber   bool           `json:"is_subscriber"`
	CanEditBox     bool           `json:"can_edit_box"`
	CanEditAddons  bool           `json:"can_edit_addons"`
	UnpaidAddons   int64          `json:"unpaid_addons_total"`
}

// ItemView is a bag line with product details
type ItemView struct {
	ID          uint   `json:"id"`
	ProductID   uint   `json:"product_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	Quantity    int    `json:"quantity"`
	PriceAtTime int64  `json:"price_at_time"`
	LineTotal   int64  `json:"line_total"`
	IsPaid      bool   `json:"is_paid"`
}
