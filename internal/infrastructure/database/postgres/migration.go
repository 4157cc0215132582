// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/bag"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/boxtemplate"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/delivery"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/inquiry"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/user"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},

		&catalog.Product{},
		&catalog.AddonTag{},
		&catalog.BoxSize{},

		&boxtemplate.TemplateWeek{},
		&boxtemplate.BoxTemplate{},

		&bag.WeeklyBag{},
		&bag.WeeklyBagItem{},

		&subscription.UserSubscription{},

		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		&delivery.ZipCode{},

		&inquiry.PartnerApplication{},
		&inquiry.FishAlert{},
		&inquiry.BouquetRequest{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	for _, model := range Models() {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates the indexes gorm tags cannot express
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// At most one live subscription per user
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_subscriptions_live
			ON user_subscriptions (user_id) WHERE status <> 'cancelled'`,

		`CREATE INDEX IF NOT EXISTS idx_orders_user_created
			ON orders (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_week_payment
			ON orders (week_start_date, payment_status)`,

		`CREATE INDEX IF NOT EXISTS idx_products_available_category
			ON products (category, sort_order, name) WHERE is_available`,

		`CREATE INDEX IF NOT EXISTS idx_weekly_bags_week_confirmed
			ON weekly_bags (week_start_date, is_confirmed)`,

		`CREATE INDEX IF NOT EXISTS idx_fish_alerts_active
			ON fish_alerts (created_at) WHERE is_active`,
	}

	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Additional database indexes created successfully")
	return nil
}

// SeedInitialData inserts reference data. Every seeder is idempotent and
// never overwrites rows an admin has edited.
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	seeders := []struct {
		name string
		fn   func() error
	}{
		{"box sizes", m.seedBoxSizes},
		{"addon tags", m.seedAddonTags},
		{"products", m.seedProducts},
		{"zip codes", m.seedZipCodes},
	}

	for _, s := range seeders {
		if err := s.fn(); err != nil {
			return fmt.Errorf("failed to seed %s: %w", s.name, err)
		}
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedBoxSizes() error {
	sizes := []catalog.BoxSize{
		{Name: "small", DisplayName: "Small Box", Description: "A week of greens for one or two", BasePrice: 3500, ItemCountHint: 6, IsActive: true, SortOrder: 1},
		{Name: "medium", DisplayName: "Medium Box", Description: "Our most popular box for a small household", BasePrice: 5000, ItemCountHint: 9, IsActive: true, SortOrder: 2},
		{Name: "large", DisplayName: "Large Box", Description: "Feeds a family of four", BasePrice: 6500, ItemCountHint: 12, IsActive: true, SortOrder: 3},
	}

	for i := range sizes {
		var existing catalog.BoxSize
		if err := m.db.Where(catalog.BoxSize{Name: sizes[i].Name}).
			Attrs(sizes[i]).
			FirstOrCreate(&existing).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) seedAddonTags() error {
	tags := []catalog.AddonTag{
		{Name: "Organic", Slug: "organic", Color: "#2e7d32"},
		{Name: "Local", Slug: "local", Color: "#1565c0"},
		{Name: "Seasonal", Slug: "seasonal", Color: "#ef6c00"},
	}

	for i := range tags {
		var existing catalog.AddonTag
		if err := m.db.Where(catalog.AddonTag{Slug: tags[i].Slug}).
			Attrs(tags[i]).
			FirstOrCreate(&existing).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	if err := m.db.Model(&catalog.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Printf("⏭️  Products already present (%d), skipping", count)
		return nil
	}

	products := []catalog.Product{
		{Name: "Lacinato Kale", Category: catalog.CategoryProduce, Price: 400, Unit: "bunch", IsAvailable: true, Tags: []string{"organic"}, SortOrder: 1},
		{Name: "Rainbow Carrots", Category: catalog.CategoryProduce, Price: 350, Unit: "lb", IsAvailable: true, Tags: []string{"organic", "local"}, SortOrder: 2},
		{Name: "Heirloom Tomatoes", Category: catalog.CategoryProduce, Price: 550, Unit: "lb", IsAvailable: true, Tags: []string{"seasonal"}, SortOrder: 3},
		{Name: "Butter Lettuce", Category: catalog.CategoryProduce, Price: 300, Unit: "head", IsAvailable: true, SortOrder: 4},
		{Name: "Pasture Eggs", Category: catalog.CategoryProtein, Price: 700, Unit: "dozen", IsAvailable: true, Tags: []string{"local"}, SortOrder: 1},
		{Name: "Gulf Red Snapper", Category: catalog.CategoryProtein, Price: 1800, Unit: "lb", IsAvailable: true, Tags: []string{"local", "seasonal"}, SortOrder: 2},
		{Name: "Stone-Ground Grits", Category: catalog.CategoryPantry, Price: 650, Unit: "bag", IsAvailable: true, SortOrder: 1},
		{Name: "Wildflower Honey", Category: catalog.CategoryAddon, Price: 1200, Unit: "jar", IsAvailable: true, Tags: []string{"local"}, SortOrder: 1},
		{Name: "Sourdough Loaf", Category: catalog.CategoryAddon, Price: 800, Unit: "loaf", IsAvailable: true, SortOrder: 2},
		{Name: "Microgreens Mix", Category: catalog.CategorySpecialty, Price: 500, Unit: "clamshell", IsAvailable: true, Tags: []string{"organic"}, SortOrder: 1},
	}

	if err := m.db.Create(&products).Error; err != nil {
		return err
	}
	log.Printf("✅ Seeded %d products", len(products))
	return nil
}

func (m *Migration) seedZipCodes() error {
	zips := []delivery.ZipCode{
		{Zip: "32501", City: "Pensacola", DeliveryDay: "Thursday", IsActive: true},
		{Zip: "32502", City: "Pensacola", DeliveryDay: "Thursday", IsActive: true},
		{Zip: "32503", City: "Pensacola", DeliveryDay: "Thursday", IsActive: true},
		{Zip: "32561", City: "Gulf Breeze", DeliveryDay: "Friday", IsActive: true},
	}

	for i := range zips {
		var existing delivery.ZipCode
		if err := m.db.Where(delivery.ZipCode{Zip: zips[i].Zip}).
			Attrs(zips[i]).
			FirstOrCreate(&existing).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetTableInfo logs the row count of every table
func (m *Migration) GetTableInfo() error {
	log.Println("📊 Database table information:")

	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("failed to parse %T: %w", model, err)
		}

		var count int64
		err := m.db.Model(model).Count(&count).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("  ❌ %s: %v", stmt.Schema.Table, err)
			continue
		}
		log.Printf("  📋 %s: %d records", stmt.Schema.Table, count)
	}

	return nil
}
