// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/export"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
)

// Service builds the back office dashboard and packing sheets
type Service struct {
	db     *gorm.DB
	config *config.Config
	log    *logrus.Logger
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		log:    logger,
		now:    time.Now,
	}
}

// DashboardStats is the weekly overview shown on the admin home page
type DashboardStats struct {
	WeekStartDate string `json:"week_start_date"`

	// Bag metrics
	TotalBags     int64          `json:"total_bags"`
	ConfirmedBags int64          `json:"confirmed_bags"`
	PendingBags   int64          `json:"pending_bags"`
	BoxSizes      []BoxSizeCount `json:"box_sizes"`

	// Template metrics
	Templates []TemplateState `json:"templates"`

	// Order metrics (cents)
	PaidOrders       int64 `json:"paid_orders"`
	PaidRevenue      int64 `json:"paid_revenue"`
	PendingCheckouts int64 `json:"pending_checkouts"`
	AvgOrderValue    int64 `json:"avg_order_value"`

	// Subscription metrics
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	PausedSubscriptions int64 `json:"paused_subscriptions"`

	// Inbox
	NewPartnerApplications int64 `json:"new_partner_applications"`
	NewBouquetRequests     int64 `json:"new_bouquet_requests"`
	ActiveFishAlerts       int64 `json:"active_fish_alerts"`
}

// BoxSizeCount counts the week's bags of one size
type BoxSizeCount struct {
	BoxSize   string `json:"box_size"`
	Bags      int64  `json:"bags"`
	Confirmed int64  `json:"confirmed"`
}

// TemplateState is whether a size's template is ready for the week
type TemplateState struct {
	BoxSize     string `json:"box_size"`
	IsConfirmed bool   `json:"is_confirmed"`
	Items       int64  `json:"items"`
}

// WeeklyRevenue is paid revenue for one delivery week
type WeeklyRevenue struct {
	WeekStartDate string `json:"week_start_date"`
	Orders        int64  `json:"orders"`
	Revenue       int64  `json:"revenue"`
}

// PackingLine is the total of one product to pack for a week
type PackingLine struct {
	ProductID     uint   `json:"product_id"`
	ProductName   string `json:"product_name"`
	Category      string `json:"category"`
	BoxQuantity   int64  `json:"box_quantity"`
	AddonQuantity int64  `json:"addon_quantity"`
	TotalQuantity int64  `json:"total_quantity"`
	Bags          int64  `json:"bags"`
}

// resolveWeek defaults an empty key to the current week and validates
// anything else
func (s *Service) resolveWeek(key string) (string, error) {
	if key == "" {
		return week.Key(s.now().In(s.config.Storefront.Location())), nil
	}
	if _, err := week.Parse(key, time.UTC); err != nil {
		return "", err
	}
	return key, nil
}

// GetDashboardStats returns the overview for the given week
func (s *Service) GetDashboardStats(ctx context.Context, weekKey string) (*DashboardStats, error) {
	key, err := s.resolveWeek(weekKey)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{WeekStartDate: key, BoxSizes: []BoxSizeCount{}, Templates: []TemplateState{}}
	db := s.db.WithContext(ctx)

	err = db.Raw(`
		SELECT box_size,
			COUNT(*) AS bags,
			COALESCE(SUM(CASE WHEN is_confirmed THEN 1 ELSE 0 END), 0) AS confirmed
		FROM weekly_bags
		WHERE week_start_date = ?
		GROUP BY box_size
		ORDER BY box_size
	`, key).Scan(&stats.BoxSizes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count bags: %w", err)
	}
	for _, size := range stats.BoxSizes {
		stats.TotalBags += size.Bags
		stats.ConfirmedBags += size.Confirmed
	}
	stats.PendingBags = stats.TotalBags - stats.ConfirmedBags

	err = db.Raw(`
		SELECT tw.box_size, tw.is_confirmed, COUNT(bt.id) AS items
		FROM box_template_weeks tw
		LEFT JOIN box_templates bt ON bt.template_week_id = tw.id
		WHERE tw.week_start_date = ?
		GROUP BY tw.box_size, tw.is_confirmed
		ORDER BY tw.box_size
	`, key).Scan(&stats.Templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	var paid struct {
		Orders  int64
		Revenue int64
	}
	err = db.Raw(`
		SELECT COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS revenue
		FROM orders
		WHERE week_start_date = ? AND payment_status = 'paid'
	`, key).Scan(&paid).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	stats.PaidOrders = paid.Orders
	stats.PaidRevenue = paid.Revenue
	if paid.Orders > 0 {
		stats.AvgOrderValue = paid.Revenue / paid.Orders
	}

	counts := []struct {
		dest  *int64
		query string
		args  []interface{}
	}{
		{&stats.PendingCheckouts, "SELECT COUNT(*) FROM orders WHERE week_start_date = ? AND payment_status = 'pending'", []interface{}{key}},
		{&stats.ActiveSubscriptions, "SELECT COUNT(*) FROM user_subscriptions WHERE status = 'active'", nil},
		{&stats.PausedSubscriptions, "SELECT COUNT(*) FROM user_subscriptions WHERE status = 'paused'", nil},
		{&stats.NewPartnerApplications, "SELECT COUNT(*) FROM partner_applications WHERE status = 'new'", nil},
		{&stats.NewBouquetRequests, "SELECT COUNT(*) FROM bouquet_requests WHERE status = 'new'", nil},
		{&stats.ActiveFishAlerts, "SELECT COUNT(*) FROM fish_alerts WHERE is_active = ?", []interface{}{true}},
	}
	for _, c := range counts {
		if err := db.Raw(c.query, c.args...).Scan(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load dashboard counts: %w", err)
		}
	}

	return stats, nil
}

// GetWeeklyRevenue returns paid revenue per delivery week for the last
// weeks, oldest first. Weeks without sales are omitted.
func (s *Service) GetWeeklyRevenue(ctx context.Context, weeks int) ([]WeeklyRevenue, error) {
	if weeks <= 0 || weeks > 104 {
		weeks = 12
	}
	current := week.Start(s.now().In(s.config.Storefront.Location()))
	from := current.AddDate(0, 0, -7*(weeks-1)).Format(week.DateLayout)

	series := []WeeklyRevenue{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT week_start_date, COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS revenue
		FROM orders
		WHERE payment_status = 'paid' AND week_start_date >= ?
		GROUP BY week_start_date
		ORDER BY week_start_date
	`, from).Scan(&series).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly revenue: %w", err)
	}
	return series, nil
}

// GetPackingList totals every product across the week's confirmed bags
func (s *Service) GetPackingList(ctx context.Context, weekKey string) ([]PackingLine, error) {
	key, err := s.resolveWeek(weekKey)
	if err != nil {
		return nil, err
	}

	lines := []PackingLine{}
	err = s.db.WithContext(ctx).Raw(`
		SELECT p.id AS product_id,
			p.name AS product_name,
			p.category AS category,
			COALESCE(SUM(CASE WHEN i.item_type = 'box_item' THEN i.quantity ELSE 0 END), 0) AS box_quantity,
			COALESCE(SUM(CASE WHEN i.item_type = 'addon' THEN i.quantity ELSE 0 END), 0) AS addon_quantity,
			COALESCE(SUM(i.quantity), 0) AS total_quantity,
			COUNT(DISTINCT b.id) AS bags
		FROM weekly_bag_items i
		JOIN weekly_bags b ON b.id = i.weekly_bag_id
		JOIN products p ON p.id = i.product_id
		WHERE b.week_start_date = ? AND b.is_confirmed = ?
		GROUP BY p.id, p.name, p.category
		ORDER BY p.category, p.name
	`, key, true).Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build packing list: %w", err)
	}
	return lines, nil
}

// ExportPackingList writes the week's packing list as CSV
func (s *Service) ExportPackingList(ctx context.Context, weekKey string) ([]byte, string, error) {
	key, err := s.resolveWeek(weekKey)
	if err != nil {
		return nil, "", err
	}
	lines, err := s.GetPackingList(ctx, key)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{Headers: []string{
		"Product ID", "Product", "Category", "Box Qty", "Add-on Qty", "Total Qty", "Bags",
	}}
	for _, l := range lines {
		table.AddRow(
			fmt.Sprint(l.ProductID),
			l.ProductName,
			l.Category,
			fmt.Sprint(l.BoxQuantity),
			fmt.Sprint(l.AddonQuantity),
			fmt.Sprint(l.TotalQuantity),
			fmt.Sprint(l.Bags),
		)
	}

	data, err := table.CSV()
	if err != nil {
		return nil, "", err
	}

	s.log.WithFields(logrus.Fields{"week": key, "products": len(lines)}).Info("packing list exported")
	return data, fmt.Sprintf("packing_list_%s.csv", key), nil
}
