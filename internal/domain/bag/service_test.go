package bag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/boxtemplate"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

var (
	monday    = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	afterLock = time.Date(2024, 1, 19, 8, 0, 0, 0, time.UTC)
	admin     = &auth.Session{UserID: 99, IsAdmin: true}
	thisWeek  = boxtemplate.Key{WeekStartDate: "2024-01-15", BoxSize: "medium"}
)

type fixture struct {
	db        *gorm.DB
	svc       *Service
	templates *boxtemplate.Service
	carrots   catalog.Product
	eggs      catalog.Product
	honey     catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t,
		&catalog.Product{}, &catalog.BoxSize{},
		&boxtemplate.TemplateWeek{}, &boxtemplate.BoxTemplate{},
		&subscription.UserSubscription{},
		&WeeklyBag{}, &WeeklyBagItem{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
	)
	cfg := testutil.Config()
	catalogService := catalog.NewService(db, nil, cfg, logger.Discard())
	templates := boxtemplate.NewService(db, catalogService, cfg, logger.Discard())
	svc := NewService(db, catalogService, templates, cfg, logger.Discard())
	svc.now = testutil.Clock(monday)

	sizes := []catalog.BoxSize{
		{Name: "small", DisplayName: "Small Box", BasePrice: 3500, IsActive: true},
		{Name: "medium", DisplayName: "Medium Box", BasePrice: 5000, IsActive: true},
		{Name: "large", DisplayName: "Large Box", BasePrice: 6500, IsActive: true},
	}
	require.NoError(t, db.Create(&sizes).Error)

	f := &fixture{
		db:        db,
		svc:       svc,
		templates: templates,
		carrots:   catalog.Product{Name: "Carrots", Category: catalog.CategoryProduce, Price: 300, IsAvailable: true},
		eggs:      catalog.Product{Name: "Eggs", Category: catalog.CategoryProtein, Price: 650, IsAvailable: true},
		honey:     catalog.Product{Name: "Honey", Category: catalog.CategoryAddon, Price: 1250, IsAvailable: true},
	}
	require.NoError(t, db.Create(&f.carrots).Error)
	require.NoError(t, db.Create(&f.eggs).Error)
	require.NoError(t, db.Create(&f.honey).Error)
	return f
}

func (f *fixture) confirmTemplate(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	row, err := f.templates.AddProduct(ctx, &boxtemplate.AddProductRequest{Key: thisWeek, ProductID: f.carrots.ID})
	require.NoError(t, err)
	_, err = f.templates.SetQuantity(ctx, row.ID, 2)
	require.NoError(t, err)
	_, err = f.templates.AddProduct(ctx, &boxtemplate.AddProductRequest{Key: thisWeek, ProductID: f.eggs.ID})
	require.NoError(t, err)
	_, err = f.templates.Confirm(ctx, admin, thisWeek)
	require.NoError(t, err)
}

func (f *fixture) bag(t *testing.T, id uint) WeeklyBag {
	t.Helper()
	var b WeeklyBag
	require.NoError(t, f.db.Preload("Items").First(&b, id).Error)
	return b
}

func assertTotals(t *testing.T, b WeeklyBag) {
	t.Helper()
	box := b.BoxPrice
	if b.SubscriberCovered {
		box = 0
	}
	assert.Equal(t, box+b.AddonsTotal+b.DeliveryFee, b.TotalAmount)
}

func TestGetOrCreateCurrentWeekBagIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "")
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "large")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, f.db.Model(&WeeklyBag{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	b := f.bag(t, first)
	assert.Equal(t, "2024-01-15", b.WeekStartDate)
	assert.Equal(t, "2024-01-21", b.WeekEndDate)
	assert.True(t, time.Date(2024, 1, 18, 23, 59, 0, 0, time.UTC).Equal(b.CutoffTime))
	assert.Equal(t, "medium", b.BoxSize)
	assert.Equal(t, int64(5000), b.BoxPrice)
	assert.Equal(t, int64(5000), b.TotalAmount)

	_, err = f.svc.GetOrCreateCurrentWeekBag(ctx, 2, "jumbo")
	assert.ErrorIs(t, err, catalog.ErrBoxSizeNotFound)
}

func TestGetCurrentBagFollowsTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.GetCurrentBag(ctx, 1, "medium")
	require.NoError(t, err)
	assert.Equal(t, TemplateNone, view.TemplateStatus)
	assert.Equal(t, StateDraft, view.State)
	assert.Empty(t, view.BoxItems)

	f.confirmTemplate(t)

	view, err = f.svc.GetCurrentBag(ctx, 1, "medium")
	require.NoError(t, err)
	assert.Equal(t, TemplateConfirmed, view.TemplateStatus)
	require.Len(t, view.BoxItems, 2)
	assert.Equal(t, "Carrots", view.BoxItems[0].Name)
	assert.Equal(t, 2, view.BoxItems[0].Quantity)
	assert.Equal(t, int64(300), view.BoxItems[0].PriceAtTime)
	assert.Equal(t, int64(600+650), view.Bag.Subtotal)
	assert.Equal(t, int64(5000), view.Bag.TotalAmount)

	_, err = f.templates.Unconfirm(ctx, admin, thisWeek)
	require.NoError(t, err)

	view, err = f.svc.GetCurrentBag(ctx, 1, "medium")
	require.NoError(t, err)
	assert.Equal(t, TemplatePending, view.TemplateStatus)
	assert.Empty(t, view.BoxItems)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)

	applied, err := f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 2)
	require.NoError(t, err)
	assert.True(t, applied)

	b := f.bag(t, id)
	assert.Equal(t, int64(2500), b.AddonsTotal)
	assert.Equal(t, int64(7500), b.TotalAmount)
	assertTotals(t, b)

	// a price change only reaches the line on the next write
	require.NoError(t, f.db.Model(&catalog.Product{}).Where("id = ?", f.honey.ID).Update("price", 1400).Error)
	applied, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 1)
	require.NoError(t, err)
	assert.True(t, applied)
	b = f.bag(t, id)
	require.Len(t, b.Items, 1)
	assert.Equal(t, int64(1400), b.Items[0].PriceAtTime)
	assertTotals(t, b)

	applied, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 0)
	require.NoError(t, err)
	assert.True(t, applied)

	var zeroRows int64
	require.NoError(t, f.db.Model(&WeeklyBagItem{}).Where("quantity <= 0").Count(&zeroRows).Error)
	assert.Zero(t, zeroRows)
	b = f.bag(t, id)
	assert.Empty(t, b.Items)
	assert.Equal(t, int64(5000), b.TotalAmount)

	_, err = f.svc.UpdateItemQuantity(ctx, 2, id, f.honey.ID, 1)
	assert.ErrorIs(t, err, ErrBagNotFound)
}

func TestUpdateItemQuantityNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)
	_, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 1)
	require.NoError(t, err)

	b := f.bag(t, id)
	marked, err := f.svc.MarkAddonsPaid(ctx, id, []PaidAddon{{ItemID: b.Items[0].ID, Quantity: 1, Price: 1250}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	applied, err := f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 5)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, f.bag(t, id).Items[0].Quantity)

	require.NoError(t, f.svc.ConfirmBag(ctx, id, monday))
	applied, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.eggs.ID, 1)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Len(t, f.bag(t, id).Items, 1)
}

func TestSubscriberBagCoversBoxPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.config.Storefront.DeliveryFee = 500

	require.NoError(t, f.db.Create(&subscription.UserSubscription{
		UserID: 1, BoxSize: "medium", Status: subscription.StatusActive, StartedAt: monday,
	}).Error)

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)
	_, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 1)
	require.NoError(t, err)

	b := f.bag(t, id)
	assert.True(t, b.SubscriberCovered)
	assert.Equal(t, int64(1250+500), b.TotalAmount)
	assertTotals(t, b)

	require.NoError(t, f.db.Model(&subscription.UserSubscription{}).Where("user_id = ?", 1).
		Update("status", subscription.StatusPaused).Error)
	require.NoError(t, f.svc.UpdateBagTotals(ctx, id))

	b = f.bag(t, id)
	assert.False(t, b.SubscriberCovered)
	assert.Equal(t, int64(5000+1250+500), b.TotalAmount)
}

func TestLockedBagKeepsAddonsEditable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)

	f.svc.now = testutil.Clock(afterLock)

	view, err := f.svc.GetCurrentBag(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, StateLocked, view.State)
	assert.False(t, view.CanEditBox)
	assert.True(t, view.CanEditAddons)

	_, err = f.svc.ChangeBoxSize(ctx, 1, id, "large")
	assert.ErrorIs(t, err, ErrBagLocked)

	applied, err := f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 1)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestChangeBoxSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)

	view, err := f.svc.ChangeBoxSize(ctx, 1, id, "Large")
	require.NoError(t, err)
	assert.Equal(t, "large", view.Bag.BoxSize)
	assert.Equal(t, int64(6500), view.Bag.BoxPrice)
	assert.Equal(t, int64(6500), view.Bag.TotalAmount)

	require.NoError(t, f.svc.ConfirmBag(ctx, id, monday))
	_, err = f.svc.ChangeBoxSize(ctx, 1, id, "small")
	assert.ErrorIs(t, err, ErrBagConfirmed)
}

func TestListBags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, user := range []uint{1, 2, 3} {
		size := "medium"
		if user == 3 {
			size = "small"
		}
		_, err := f.svc.GetOrCreateCurrentWeekBag(ctx, user, size)
		require.NoError(t, err)
	}

	bags, total, err := f.svc.ListBags(ctx, ListFilter{WeekStartDate: "2024-01-15", BoxSize: "medium"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, bags, 2)
}

func TestStateAt(t *testing.T) {
	cutoff := time.Date(2024, 1, 18, 23, 59, 0, 0, time.UTC)
	b := &WeeklyBag{CutoffTime: cutoff}

	assert.Equal(t, StateDraft, StateAt(b, cutoff.Add(-time.Minute)))
	assert.Equal(t, StateDraft, StateAt(b, cutoff))
	assert.Equal(t, StateLocked, StateAt(b, cutoff.Add(time.Second)))

	b.IsConfirmed = true
	assert.Equal(t, StateConfirmed, StateAt(b, cutoff.Add(-time.Hour)))
}

func TestViewBagIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirmTemplate(t)

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)

	view, err := f.svc.ViewBag(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, id, view.Bag.ID)
	assert.Len(t, view.BoxItems, 2)
	assert.Equal(t, TemplateConfirmed, view.TemplateStatus)

	_, err = f.svc.ViewBag(ctx, 2, id)
	assert.ErrorIs(t, err, ErrBagNotFound)
}

func TestDraftBagKeepsBoxPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirmTemplate(t)

	view, err := f.svc.GetCurrentBag(ctx, 1, "medium")
	require.NoError(t, err)
	require.Len(t, view.BoxItems, 2)
	firstID := view.BoxItems[0].ID

	require.NoError(t, f.db.Model(&catalog.Product{}).Where("id = ?", f.carrots.ID).Update("price", 999).Error)

	view, err = f.svc.GetCurrentBag(ctx, 1, "medium")
	require.NoError(t, err)
	require.Len(t, view.BoxItems, 2)
	assert.Equal(t, firstID, view.BoxItems[0].ID)
	assert.Equal(t, int64(300), view.BoxItems[0].PriceAtTime)
}

func TestLockedBagKeepsBoxItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirmTemplate(t)

	view, err := f.svc.GetCurrentBag(ctx, 1, "medium")
	require.NoError(t, err)
	require.Len(t, view.BoxItems, 2)

	f.svc.now = testutil.Clock(afterLock)
	_, err = f.templates.Unconfirm(ctx, admin, thisWeek)
	require.NoError(t, err)

	view, err = f.svc.GetCurrentBag(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, StateLocked, view.State)
	assert.Equal(t, TemplatePending, view.TemplateStatus)
	require.Len(t, view.BoxItems, 2)
	assert.Equal(t, "Carrots", view.BoxItems[0].Name)
	assert.Equal(t, 2, view.BoxItems[0].Quantity)
	assert.Equal(t, int64(600+650), view.Bag.Subtotal)
}

func TestLockedBagFillsEmptyBoxOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)

	f.svc.now = testutil.Clock(afterLock)
	f.confirmTemplate(t)

	view, err := f.svc.GetCurrentBag(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, StateLocked, view.State)
	assert.Len(t, view.BoxItems, 2)
}

func TestPendingCheckoutFreezesBag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)
	_, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 1)
	require.NoError(t, err)

	expires := monday.Add(time.Hour)
	require.NoError(t, f.db.Create(&order.Order{
		OrderNumber:       "FB-1",
		WeeklyBagID:       &id,
		CheckoutMode:      order.CheckoutModeBag,
		Status:            order.OrderStatusPending,
		PaymentStatus:     order.PaymentStatusPending,
		ProviderSessionID: "cs_open",
		SessionExpiresAt:  &expires,
	}).Error)

	_, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 10)
	assert.ErrorIs(t, err, ErrCheckoutPending)
	_, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 0)
	assert.ErrorIs(t, err, ErrCheckoutPending)
	_, err = f.svc.ChangeBoxSize(ctx, 1, id, "large")
	assert.ErrorIs(t, err, ErrCheckoutPending)
	assert.Equal(t, 1, f.bag(t, id).Items[0].Quantity)

	// the session can no longer be paid once it expires
	f.svc.now = testutil.Clock(expires.Add(time.Minute))
	applied, err := f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 3)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestMarkAddonsPaidRequiresMatchingLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.GetOrCreateCurrentWeekBag(ctx, 1, "medium")
	require.NoError(t, err)
	_, err = f.svc.UpdateItemQuantity(ctx, 1, id, f.honey.ID, 10)
	require.NoError(t, err)
	line := f.bag(t, id).Items[0]

	marked, err := f.svc.MarkAddonsPaid(ctx, id, []PaidAddon{{ItemID: line.ID, Quantity: 1, Price: 1250}})
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.False(t, f.bag(t, id).Items[0].IsPaid)

	marked, err = f.svc.MarkAddonsPaid(ctx, id, []PaidAddon{{ItemID: line.ID, Quantity: 10, Price: 1250}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
	assert.True(t, f.bag(t, id).Items[0].IsPaid)
}
