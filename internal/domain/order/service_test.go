package order

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/pdf"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

var paidAt = time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewDB(t, &Order{}, &OrderItem{}, &OrderStatusHistory{})
	cfg := testutil.Config()
	svc := NewService(db, cfg, pdf.NewService(cfg), logger.Discard())
	svc.now = testutil.Clock(paidAt)
	return svc
}

func pendingOrder(userID uint, sessionID string) *Order {
	bagItemID := uint(11)
	productID := uint(4)
	return &Order{
		UserID:            &userID,
		WeekStartDate:     "2024-01-15",
		CheckoutMode:      CheckoutModeBag,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusPending,
		Contact:           Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "5551234567"},
		Delivery:          Address{AddressLine1: "1 Orchard Lane", City: "Springfield", State: "IL", Zip: "62704"},
		BoxSize:           "medium",
		BoxPrice:          5000,
		AddonsTotal:       1250,
		Subtotal:          6250,
		TotalAmount:       6250,
		ProviderSessionID: sessionID,
		Items: []OrderItem{
			{ProductName: "Medium Box", ItemType: ItemTypeBox, Quantity: 1, Price: 5000, TotalPrice: 5000},
			{ProductID: &productID, WeeklyBagItemID: &bagItemID, ProductName: "Honey", ItemType: ItemTypeAddon, Quantity: 1, Price: 1250, TotalPrice: 1250},
		},
	}
}

func TestCreateAssignsNumberAndCurrency(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	o := pendingOrder(1, "cs_1")
	require.NoError(t, svc.Create(ctx, o))
	assert.True(t, strings.HasPrefix(o.OrderNumber, "FB-"))
	assert.Equal(t, "USD", o.Currency)
	assert.NotEqual(t, svc.NewOrderNumber(), svc.NewOrderNumber())

	found, err := svc.FindBySessionID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)
	addons := found.AddonLines()
	require.Len(t, addons, 1)
	assert.Equal(t, uint(11), *addons[0].WeeklyBagItemID)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, pendingOrder(1, "cs_1")))

	changed, err := svc.MarkPaid(ctx, "cs_1", "pi_1", []byte(`{"id":"cs_1"}`))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.MarkPaid(ctx, "cs_1", "pi_1", nil)
	require.NoError(t, err)
	assert.False(t, changed)

	o, err := svc.FindBySessionID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusConfirmed, o.Status)
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, "pi_1", o.PaymentIntentID)
	require.NotNil(t, o.PaidAt)
	assert.Len(t, o.StatusHistory, 1)

	_, err = svc.MarkPaid(ctx, "cs_missing", "", nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkExpiredOnlyTouchesPending(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, pendingOrder(1, "cs_1")))
	require.NoError(t, svc.Create(ctx, pendingOrder(1, "cs_2")))

	_, err := svc.MarkPaid(ctx, "cs_2", "pi_2", nil)
	require.NoError(t, err)

	changed, err := svc.MarkExpired(ctx, "cs_1")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = svc.MarkExpired(ctx, "cs_2")
	require.NoError(t, err)
	assert.False(t, changed)

	o, err := svc.FindBySessionID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, o.Status)
	assert.Equal(t, PaymentStatusFailed, o.PaymentStatus)
}

func TestUserScopedReads(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	mine := pendingOrder(1, "cs_1")
	require.NoError(t, svc.Create(ctx, mine))
	require.NoError(t, svc.Create(ctx, pendingOrder(2, "cs_2")))

	_, err := svc.GetUserOrder(ctx, 2, mine.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.GetBySession(ctx, 2, "cs_1")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	got, err := svc.GetBySession(ctx, 1, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	list, err := svc.ListUserOrders(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Pagination.Total)
	assert.Len(t, list.Orders, 1)
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	o := pendingOrder(1, "cs_1")
	require.NoError(t, svc.Create(ctx, o))

	_, err := svc.UpdateOrderStatus(ctx, o.ID, &UpdateStatusRequest{Status: "lost"}, 9)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateOrderStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, 9)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := svc.UpdateOrderStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusConfirmed, Comment: "manual"}, 9)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusConfirmed, updated.Status)
	require.Len(t, updated.StatusHistory, 1)
	require.NotNil(t, updated.StatusHistory[0].CreatedBy)
	assert.Equal(t, uint(9), *updated.StatusHistory[0].CreatedBy)

	refunded, err := svc.UpdateOrderStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusRefunded}, 9)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, refunded.PaymentStatus)

	_, err = svc.UpdateOrderStatus(ctx, 999, &UpdateStatusRequest{Status: OrderStatusConfirmed}, 9)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestExportCSV(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, pendingOrder(1, "cs_1")))
	require.NoError(t, svc.Create(ctx, pendingOrder(2, "cs_2")))
	_, err := svc.MarkPaid(ctx, "cs_2", "pi_2", nil)
	require.NoError(t, err)

	data, filename, err := svc.ExportCSV(ctx, &OrderListRequest{PaymentStatus: PaymentStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, "orders_2024-01-16.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Order Number,Created At,Customer"))
	assert.Contains(t, lines[1], "Ada Lovelace")
	assert.Contains(t, lines[1], "62.50")
	assert.Contains(t, lines[1], "paid")
}

func TestReceiptData(t *testing.T) {
	svc := newService(t)
	o := pendingOrder(1, "cs_1")
	o.OrderNumber = "FB-1"
	o.CreatedAt = paidAt

	receipt := svc.ReceiptData(o)
	assert.Equal(t, "FB-1", receipt.OrderNumber)
	assert.Equal(t, "January 16, 2024", receipt.OrderDate)
	assert.Equal(t, "Ada Lovelace", receipt.CustomerName)
	assert.Equal(t, []string{"1 Orchard Lane", "Springfield, IL 62704"}, receipt.AddressLines)
	require.Len(t, receipt.Lines, 2)
	assert.Equal(t, int64(6250), receipt.Total)
}
