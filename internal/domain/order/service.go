// internal/domain/order/service.go
package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/export"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/money"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/pdf"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	pdf    *pdf.Service
	node   *snowflake.Node
	log    *logrus.Logger
	now    func() time.Time
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, pdfService *pdf.Service, logger *logrus.Logger) *Service {
	node, err := snowflake.NewNode(1)
	if err != nil {
		logger.WithError(err).Fatal("failed to create order number generator")
	}
	return &Service{
		db:     db,
		config: cfg,
		pdf:    pdfService,
		node:   node,
		log:    logger,
		now:    time.Now,
	}
}

// WithDB returns a copy of the service bound to db, typically a transaction
// owned by the caller
func (s *Service) WithDB(db *gorm.DB) *Service {
	clone := *s
	clone.db = db
	return &clone
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page          int           `form:"page,default=1"`
	Limit         int           `form:"limit,default=20"`
	Status        OrderStatus   `form:"status"`
	PaymentStatus PaymentStatus `form:"payment_status"`
	WeekStartDate string        `form:"week"`
	Mode          CheckoutMode  `form:"mode"`
	UserID        uint          `form:"-"`
	SortBy        string        `form:"sort_by,default=created_at"`
	SortOrder     string        `form:"sort_order,default=desc"`
}

// UpdateStatusRequest is an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewOrderNumber allocates an order number before the row exists
func (s *Service) NewOrderNumber() string {
	return "FB-" + s.node.Generate().String()
}

// Create inserts an order with its items
func (s *Service) Create(ctx context.Context, order *Order) error {
	if order.OrderNumber == "" {
		order.OrderNumber = s.NewOrderNumber()
	}
	if order.Currency == "" {
		order.Currency = strings.ToUpper(s.config.Stripe.Currency)
	}
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// FindBySessionID returns the order created for a provider session
func (s *Service) FindBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	return s.first(ctx, s.db.WithContext(ctx).Where("provider_session_id = ?", sessionID))
}

// MarkPaid moves a pending order to confirmed/paid. It reports false when
// the order was already settled, so replays change nothing.
func (s *Service) MarkPaid(ctx context.Context, sessionID, paymentIntentID string, snapshot []byte) (bool, error) {
	now := s.now().UTC()
	updates := map[string]interface{}{
		"status":            OrderStatusConfirmed,
		"payment_status":    PaymentStatusPaid,
		"payment_intent_id": paymentIntentID,
		"paid_at":           now,
	}
	if len(snapshot) > 0 {
		updates["session_snapshot"] = datatypes.JSON(snapshot)
	}

	return s.settle(ctx, sessionID, updates, OrderStatusConfirmed, "Payment received")
}

// MarkExpired cancels a pending order whose session expired unpaid
func (s *Service) MarkExpired(ctx context.Context, sessionID string) (bool, error) {
	updates := map[string]interface{}{
		"status":         OrderStatusCancelled,
		"payment_status": PaymentStatusFailed,
	}
	return s.settle(ctx, sessionID, updates, OrderStatusCancelled, "Checkout session expired")
}

func (s *Service) settle(ctx context.Context, sessionID string, updates map[string]interface{}, status OrderStatus, comment string) (bool, error) {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order Order
		if err := tx.Where("provider_session_id = ?", sessionID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		res := tx.Model(&Order{}).
			Where("id = ? AND payment_status = ?", order.ID, PaymentStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true

		return tx.Create(&OrderStatusHistory{
			OrderID:   order.ID,
			Status:    status,
			Comment:   comment,
			CreatedAt: s.now().UTC(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return false, err
		}
		return false, fmt.Errorf("failed to update order payment: %w", err)
	}
	return changed, nil
}

// ListUserOrders retrieves orders for a specific user
func (s *Service) ListUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderResponse, error) {
	return s.GetOrders(ctx, &OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

// GetUserOrder returns one of the user's orders
func (s *Service) GetUserOrder(ctx context.Context, userID, id uint) (*Order, error) {
	return s.first(ctx, s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

// GetBySession returns the user's order for a checkout session, used by the
// checkout success page
func (s *Service) GetBySession(ctx context.Context, userID uint, sessionID string) (*Order, error) {
	return s.first(ctx, s.db.WithContext(ctx).Where("provider_session_id = ? AND user_id = ?", sessionID, userID))
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	return s.first(ctx, s.db.WithContext(ctx).Where("id = ?", id))
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.filtered(ctx, req)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	err := query.Preload("Items").
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// UpdateOrderStatus applies an admin status change and records it
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, req *UpdateStatusRequest, updatedBy uint) (*Order, error) {
	if !slices.Contains(ValidStatuses, req.Status) {
		return nil, ErrInvalidStatus
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isValidStatusTransition(order.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, req.Status)
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Status == OrderStatusRefunded {
		updates["payment_status"] = PaymentStatusRefunded
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Create(&OrderStatusHistory{
			OrderID:   orderID,
			Status:    req.Status,
			Comment:   req.Comment,
			CreatedBy: &updatedBy,
			CreatedAt: s.now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": orderID, "from": order.Status, "to": req.Status, "admin_id": updatedBy,
	}).Info("order status changed")
	return s.GetOrder(ctx, orderID)
}

// ExportCSV writes every order matching the filter as CSV
func (s *Service) ExportCSV(ctx context.Context, req *OrderListRequest) ([]byte, string, error) {
	var orders []Order
	err := s.filtered(ctx, req).
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Find(&orders).Error
	if err != nil {
		return nil, "", fmt.Errorf("failed to retrieve orders: %w", err)
	}

	table := &export.Table{Headers: []string{
		"Order Number", "Created At", "Customer", "Email", "Phone",
		"Address", "City", "State", "ZIP", "Week", "Mode", "Box Size",
		"Box Price", "Add-ons", "Delivery", "Total", "Status", "Payment Status", "Paid At",
	}}
	for _, o := range orders {
		table.AddRow(
			o.OrderNumber,
			o.CreatedAt.UTC().Format(time.RFC3339),
			o.Contact.FullName(),
			o.Contact.Email,
			o.Contact.Phone,
			strings.TrimSpace(o.Delivery.AddressLine1+" "+o.Delivery.AddressLine2),
			o.Delivery.City,
			o.Delivery.State,
			o.Delivery.Zip,
			o.WeekStartDate,
			string(o.CheckoutMode),
			o.BoxSize,
			money.Format(o.BoxPrice),
			money.Format(o.AddonsTotal),
			money.Format(o.DeliveryFee),
			money.Format(o.TotalAmount),
			string(o.Status),
			string(o.PaymentStatus),
			export.Time(o.PaidAt),
		)
	}

	data, err := table.CSV()
	if err != nil {
		return nil, "", err
	}
	return data, export.Filename("orders", s.now()), nil
}

// ReceiptData maps an order onto the printable receipt
func (s *Service) ReceiptData(o *Order) *pdf.Receipt {
	receipt := &pdf.Receipt{
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.CreatedAt.In(s.config.Storefront.Location()).Format("January 2, 2006"),
		WeekOf:        o.WeekStartDate,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		CustomerName:  o.Contact.FullName(),
		Email:         o.Contact.Email,
		Phone:         o.Contact.Phone,
		AddressLines:  o.Delivery.Lines(),
		DeliveryNotes: o.Delivery.DeliveryNotes,
		BoxPrice:      o.BoxPrice,
		AddonsTotal:   o.AddonsTotal,
		DeliveryFee:   o.DeliveryFee,
		Total:         o.TotalAmount,
	}
	for _, item := range o.Items {
		receipt.Lines = append(receipt.Lines, pdf.ReceiptLine{
			Name:      item.ProductName,
			Kind:      string(item.ItemType),
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Total:     item.TotalPrice,
		})
	}
	return receipt
}

// Receipt renders the order receipt as PDF
func (s *Service) Receipt(o *Order) (*bytes.Buffer, string, error) {
	buf, err := s.pdf.GenerateReceipt(s.ReceiptData(o))
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("receipt_%s.pdf", o.OrderNumber), nil
}

func (s *Service) first(ctx context.Context, query *gorm.DB) (*Order, error) {
	var order Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

func (s *Service) filtered(ctx context.Context, req *OrderListRequest) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&Order{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}
	if req.WeekStartDate != "" {
		query = query.Where("week_start_date = ?", req.WeekStartDate)
	}
	if req.Mode != "" {
		query = query.Where("checkout_mode = ?", req.Mode)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	return query
}

func isValidStatusTransition(from, to OrderStatus) bool {
	validTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed:      {OrderStatusPacked, OrderStatusCancelled, OrderStatusRefunded},
		OrderStatusPacked:         {OrderStatusOutForDelivery, OrderStatusCancelled},
		OrderStatusOutForDelivery: {OrderStatusDelivered},
		OrderStatusDelivered:      {OrderStatusRefunded},
	}
	return slices.Contains(validTransitions[from], to)
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":      true,
		"updated_at":      true,
		"total_amount":    true,
		"status":          true,
		"order_number":    true,
		"week_start_date": true,
	}
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}
	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}
