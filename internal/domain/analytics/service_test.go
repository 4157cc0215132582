package analytics

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/bag"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/boxtemplate"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/inquiry"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

var wednesday = time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t,
		&catalog.Product{}, &catalog.BoxSize{},
		&boxtemplate.TemplateWeek{}, &boxtemplate.BoxTemplate{},
		&bag.WeeklyBag{}, &bag.WeeklyBagItem{},
		&order.Order{}, &order.OrderItem{},
		&subscription.UserSubscription{},
		&inquiry.PartnerApplication{}, &inquiry.FishAlert{}, &inquiry.BouquetRequest{},
	)
	svc := NewService(db, testutil.Config(), logger.Discard())
	svc.now = testutil.Clock(wednesday)
	return svc, db
}

func seedWeek(t *testing.T, db *gorm.DB) (catalog.Product, catalog.Product) {
	t.Helper()
	kale := catalog.Product{Name: "Kale", Category: catalog.CategoryProduce, Price: 400, IsAvailable: true}
	honey := catalog.Product{Name: "Honey", Category: catalog.CategoryAddon, Price: 1200, IsAvailable: true}
	require.NoError(t, db.Create(&kale).Error)
	require.NoError(t, db.Create(&honey).Error)

	cutoff := time.Date(2024, 1, 18, 23, 59, 0, 0, time.UTC)
	bags := []bag.WeeklyBag{
		{
			UserID: 1, WeekStartDate: "2024-01-15", WeekEndDate: "2024-01-21", CutoffTime: cutoff,
			BoxSize: "medium", IsConfirmed: true,
			Items: []bag.WeeklyBagItem{
				{ProductID: kale.ID, ItemType: bag.ItemTypeBox, Quantity: 2, PriceAtTime: 400},
				{ProductID: honey.ID, ItemType: bag.ItemTypeAddon, Quantity: 1, PriceAtTime: 1200, IsPaid: true},
			},
		},
		{
			UserID: 2, WeekStartDate: "2024-01-15", WeekEndDate: "2024-01-21", CutoffTime: cutoff,
			BoxSize: "medium", IsConfirmed: true,
			Items: []bag.WeeklyBagItem{
				{ProductID: kale.ID, ItemType: bag.ItemTypeBox, Quantity: 2, PriceAtTime: 400},
			},
		},
		{
			UserID: 3, WeekStartDate: "2024-01-15", WeekEndDate: "2024-01-21", CutoffTime: cutoff,
			BoxSize: "small",
			Items: []bag.WeeklyBagItem{
				{ProductID: kale.ID, ItemType: bag.ItemTypeBox, Quantity: 5, PriceAtTime: 400},
			},
		},
		{
			UserID: 1, WeekStartDate: "2024-01-08", WeekEndDate: "2024-01-14", CutoffTime: cutoff.AddDate(0, 0, -7),
			BoxSize: "medium", IsConfirmed: true,
			Items: []bag.WeeklyBagItem{
				{ProductID: kale.ID, ItemType: bag.ItemTypeBox, Quantity: 9, PriceAtTime: 400},
			},
		},
	}
	require.NoError(t, db.Create(&bags).Error)
	return kale, honey
}

func createOrder(t *testing.T, db *gorm.DB, n int, weekKey string, status order.PaymentStatus, total int64) {
	t.Helper()
	o := order.Order{
		OrderNumber:       fmt.Sprintf("FB-%d", n),
		WeekStartDate:     weekKey,
		CheckoutMode:      order.CheckoutModeBag,
		Status:            order.OrderStatusConfirmed,
		PaymentStatus:     status,
		TotalAmount:       total,
		ProviderSessionID: fmt.Sprintf("cs_%d", n),
	}
	require.NoError(t, db.Create(&o).Error)
}

func TestGetDashboardStats(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedWeek(t, db)

	require.NoError(t, db.Create(&boxtemplate.TemplateWeek{WeekStartDate: "2024-01-15", BoxSize: "medium", IsConfirmed: true}).Error)
	createOrder(t, db, 1, "2024-01-15", order.PaymentStatusPaid, 6200)
	createOrder(t, db, 2, "2024-01-15", order.PaymentStatusPaid, 5000)
	createOrder(t, db, 3, "2024-01-15", order.PaymentStatusPending, 3500)
	createOrder(t, db, 4, "2024-01-08", order.PaymentStatusPaid, 9900)

	require.NoError(t, db.Create(&[]subscription.UserSubscription{
		{UserID: 1, BoxSize: "medium", Status: subscription.StatusActive, StartedAt: wednesday},
		{UserID: 2, BoxSize: "small", Status: subscription.StatusPaused, StartedAt: wednesday},
	}).Error)
	require.NoError(t, db.Create(&inquiry.PartnerApplication{BusinessName: "Hill Farm", ContactName: "Jo", Email: "jo@hill.farm", Status: inquiry.ApplicationNew}).Error)
	require.NoError(t, db.Create(&inquiry.FishAlert{Email: "fish@example.com", IsActive: true}).Error)

	stats, err := svc.GetDashboardStats(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15", stats.WeekStartDate)
	assert.Equal(t, int64(3), stats.TotalBags)
	assert.Equal(t, int64(2), stats.ConfirmedBags)
	assert.Equal(t, int64(1), stats.PendingBags)
	require.Len(t, stats.BoxSizes, 2)
	assert.Equal(t, BoxSizeCount{BoxSize: "medium", Bags: 2, Confirmed: 2}, stats.BoxSizes[0])
	assert.Equal(t, BoxSizeCount{BoxSize: "small", Bags: 1, Confirmed: 0}, stats.BoxSizes[1])

	require.Len(t, stats.Templates, 1)
	assert.True(t, stats.Templates[0].IsConfirmed)
	assert.Equal(t, int64(0), stats.Templates[0].Items)

	assert.Equal(t, int64(2), stats.PaidOrders)
	assert.Equal(t, int64(11200), stats.PaidRevenue)
	assert.Equal(t, int64(5600), stats.AvgOrderValue)
	assert.Equal(t, int64(1), stats.PendingCheckouts)
	assert.Equal(t, int64(1), stats.ActiveSubscriptions)
	assert.Equal(t, int64(1), stats.PausedSubscriptions)
	assert.Equal(t, int64(1), stats.NewPartnerApplications)
	assert.Equal(t, int64(0), stats.NewBouquetRequests)
	assert.Equal(t, int64(1), stats.ActiveFishAlerts)
}

func TestGetDashboardStatsRejectsBadWeek(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetDashboardStats(context.Background(), "2024-01-16")
	assert.ErrorIs(t, err, week.ErrInvalidWeek)
}

func TestGetWeeklyRevenue(t *testing.T) {
	svc, db := newTestService(t)
	createOrder(t, db, 1, "2024-01-15", order.PaymentStatusPaid, 6200)
	createOrder(t, db, 2, "2024-01-08", order.PaymentStatusPaid, 5000)
	createOrder(t, db, 3, "2024-01-08", order.PaymentStatusPaid, 2500)
	createOrder(t, db, 4, "2024-01-08", order.PaymentStatusFailed, 9999)
	createOrder(t, db, 5, "2023-06-05", order.PaymentStatusPaid, 4000)

	series, err := svc.GetWeeklyRevenue(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []WeeklyRevenue{
		{WeekStartDate: "2024-01-08", Orders: 2, Revenue: 7500},
		{WeekStartDate: "2024-01-15", Orders: 1, Revenue: 6200},
	}, series)
}

func TestGetPackingList(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	kale, honey := seedWeek(t, db)

	lines, err := svc.GetPackingList(ctx, "2024-01-15")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	byProduct := map[uint]PackingLine{}
	for _, l := range lines {
		byProduct[l.ProductID] = l
	}
	assert.Equal(t, int64(4), byProduct[kale.ID].BoxQuantity)
	assert.Equal(t, int64(4), byProduct[kale.ID].TotalQuantity)
	assert.Equal(t, int64(2), byProduct[kale.ID].Bags)
	assert.Equal(t, int64(1), byProduct[honey.ID].AddonQuantity)
	assert.Equal(t, int64(1), byProduct[honey.ID].Bags)

	data, filename, err := svc.ExportPackingList(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "packing_list_2024-01-15.csv", filename)
	rows := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, rows, 3)
	assert.Equal(t, "Product ID,Product,Category,Box Qty,Add-on Qty,Total Qty,Bags", rows[0])
}
