// internal/domain/catalog/entity.go
package catalog

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// Category groups products on the storefront
type Category string

const (
	CategoryProduce   Category = "produce"
	CategoryProtein   Category = "protein"
	CategoryPantry    Category = "pantry"
	CategoryAddon     Category = "addon"
	CategorySpecialty Category = "specialty"
	CategoryPremium   Category = "premium"
	CategoryLocal     Category = "local"
)

// Categories lists every valid product category
var Categories = []Category{
	CategoryProduce, CategoryProtein, CategoryPantry, CategoryAddon,
	CategorySpecialty, CategoryPremium, CategoryLocal,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Product is a sellable item. Templates and bags reference products but
// never own them.
type Product struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	Name        string                      `gorm:"not null;size:255" json:"name"`
	Description string                      `gorm:"type:text" json:"description"`
	Category    Category                    `gorm:"not null;size:30;index" json:"category"`
	Price       int64                       `gorm:"not null" json:"price"` // In cents
	Unit        string                      `gorm:"size:50" json:"unit"`
	ImageURL    string                      `gorm:"size:500" json:"image_url"`
	IsAvailable bool                        `gorm:"index" json:"is_available"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	SortOrder   int                         `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// HasTag reports whether the product carries the tag slug
func (p *Product) HasTag(slug string) bool {
	return slices.Contains(p.Tags, slug)
}

// AddonTag labels add-on products ("organic", "local", "seasonal")
type AddonTag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null;size:100" json:"slug"`
	Color     string    `gorm:"size:20" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// BoxSize defines a box tier and its base price
type BoxSize struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"uniqueIndex;not null;size:20" json:"name"`
	DisplayName   string    `gorm:"not null;size:100" json:"display_name"`
	Description   string    `gorm:"type:text" json:"description"`
	BasePrice     int64     `gorm:"not null" json:"base_price"` // In cents
	ItemCountHint int       `gorm:"default:0" json:"item_count_hint"`
	IsActive      bool      `json:"is_active"`
	SortOrder     int       `gorm:"default:0" json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (AddonTag) TableName() string { return "addon_tags" }
func (BoxSize) TableName() string  { return "box_sizes" }
