// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/bag"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/boxtemplate"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/delivery"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/payment"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
)

var (
	ErrNothingToCharge   = errors.New("nothing to charge")
	ErrTemplateNotReady  = errors.New("this week's box has not been finalized yet")
	ErrZipNotServed      = errors.New("we do not deliver to this ZIP code yet")
	ErrInvalidCustomer   = errors.New("invalid customer details")
	ErrAlreadySubscribed = errors.New("you already have an active subscription")
	ErrUnauthorized      = errors.New("sign in to check out")
)

// Notifier tells the customer their order went through
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, o *order.Order) error
}

// Services are the domain collaborators checkout drives
type Services struct {
	Catalog       *catalog.Service
	Templates     *boxtemplate.Service
	Bags          *bag.Service
	Subscriptions *subscription.Service
	Orders        *order.Service
	Delivery      *delivery.Service
	Notifier      Notifier
}

// Service handles checkout business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	log         *logrus.Logger
	provider    payment.Provider
	Services
	now func() time.Time
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger, provider payment.Provider, services Services) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		log:         logger,
		provider:    provider,
		Services:    services,
		now:         time.Now,
	}
}

// CheckoutRequest carries the delivery contact for a checkout
type CheckoutRequest struct {
	Customer Customer `json:"customer" binding:"required"`
}

// SubscribeRequest starts a weekly subscription
type SubscribeRequest struct {
	BoxSize  string   `json:"box_size" binding:"required"`
	Customer Customer `json:"customer" binding:"required"`
}

// Result is the outcome of a checkout. Either a hosted session to redirect
// to, or a direct confirmation that needed no payment.
type Result struct {
	SessionID   string `json:"session_id,omitempty"`
	URL         string `json:"url,omitempty"`
	Confirmed   bool   `json:"confirmed"`
	OrderNumber string `json:"order_number,omitempty"`
	Total       int64  `json:"total"`
}

// charge is a priced checkout ready to become a session and an order
type charge struct {
	mode        order.CheckoutMode
	userID      uint
	bagID       *uint
	weekStart   string
	boxSize     string
	boxPrice    int64
	addonsTotal int64
	deliveryFee int64
	lines       []payment.LineItem
	items       []order.OrderItem
	recurring   bool
	covered     bool
}

func (c *charge) total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Total()
	}
	return total
}

func (c *charge) addLine(line payment.LineItem, item order.OrderItem) {
	c.lines = append(c.lines, line)
	item.ProductName = line.Name
	item.Quantity = int(line.Quantity)
	item.Price = line.UnitAmount
	item.TotalPrice = line.Total()
	c.items = append(c.items, item)
}

// CheckoutBag charges for a weekly bag. Subscribers with nothing extra to
// pay have the bag confirmed directly without a payment session.
func (s *Service) CheckoutBag(ctx context.Context, session *auth.Session, bagID uint, req *CheckoutRequest, origin string) (*Result, error) {
	if session == nil {
		return nil, ErrUnauthorized
	}
	if _, err := s.Bags.GetBag(ctx, session.UserID, bagID); err != nil {
		return nil, err
	}
	if err := s.Bags.UpdateBagTotals(ctx, bagID); err != nil {
		return nil, err
	}
	b, err := s.Bags.GetBag(ctx, session.UserID, bagID)
	if err != nil {
		return nil, err
	}

	subscriber, err := s.Subscriptions.HasActiveSubscription(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	unpaid := b.UnpaidAddons()
	if b.IsConfirmed && len(unpaid) == 0 {
		return nil, ErrNothingToCharge
	}

	if subscriber && len(unpaid) == 0 {
		return s.confirmDirect(ctx, b)
	}

	c := &charge{
		mode:      order.CheckoutModeBag,
		userID:    session.UserID,
		bagID:     &b.ID,
		weekStart: b.WeekStartDate,
		boxSize:   b.BoxSize,
	}

	if !subscriber && !b.IsConfirmed {
		name := b.BoxSize
		if size, err := s.Catalog.GetBoxSize(ctx, b.BoxSize); err == nil {
			name = size.DisplayName
		}
		c.boxPrice = b.BoxPrice
		c.addLine(
			payment.LineItem{Name: name, UnitAmount: b.BoxPrice, Quantity: 1},
			order.OrderItem{ItemType: order.ItemTypeBox},
		)
	}

	for _, item := range unpaid {
		productID, itemID := item.ProductID, item.ID
		name := fmt.Sprintf("Add-on #%d", item.ProductID)
		if item.Product != nil {
			name = item.Product.Name
		}
		line := payment.LineItem{Name: name, UnitAmount: item.PriceAtTime, Quantity: int64(item.Quantity)}
		c.addonsTotal += line.Total()
		c.addLine(line, order.OrderItem{ItemType: order.ItemTypeAddon, ProductID: &productID, WeeklyBagItemID: &itemID})
	}

	if fee := s.config.Storefront.DeliveryFee; fee > 0 && !subscriber && !b.IsConfirmed {
		c.addDelivery(fee)
	}

	return s.startCharge(ctx, session, c, &req.Customer, origin)
}

func (c *charge) addDelivery(fee int64) {
	c.deliveryFee = fee
	c.addLine(
		payment.LineItem{Name: "Delivery", UnitAmount: fee, Quantity: 1},
		order.OrderItem{ItemType: order.ItemTypeDelivery},
	)
}

func (s *Service) confirmDirect(ctx context.Context, b *bag.WeeklyBag) (*Result, error) {
	lines, err := s.Templates.LinesFor(ctx, b.WeekStartDate, b.BoxSize)
	if err != nil {
		return nil, err
	}
	if !lines.IsConfirmed {
		return nil, ErrTemplateNotReady
	}

	if err := s.Bags.ConfirmBag(ctx, b.ID, s.now()); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": b.UserID, "bag_id": b.ID}).Info("subscriber bag confirmed without payment")
	return &Result{Confirmed: true}, nil
}

// StartSubscription opens a subscription-mode session billing the box base
// price weekly
func (s *Service) StartSubscription(ctx context.Context, session *auth.Session, req *SubscribeRequest, origin string) (*Result, error) {
	if session == nil {
		return nil, ErrUnauthorized
	}

	active, err := s.Subscriptions.HasActiveSubscription(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrAlreadySubscribed
	}

	size, err := s.Catalog.GetBoxSize(ctx, req.BoxSize)
	if err != nil {
		return nil, err
	}

	c := &charge{
		mode:      order.CheckoutModeSubscription,
		userID:    session.UserID,
		weekStart: s.currentWeek(),
		boxSize:   size.Name,
		boxPrice:  size.BasePrice,
		recurring: true,
	}
	c.addLine(
		payment.LineItem{Name: size.DisplayName + " (weekly)", UnitAmount: size.BasePrice, Quantity: 1, Recurring: true},
		order.OrderItem{ItemType: order.ItemTypeBox},
	)

	return s.startCharge(ctx, session, c, &req.Customer, origin)
}

// startCharge validates the customer, opens the provider session and then
// records the pending order keyed by the session id
func (s *Service) startCharge(ctx context.Context, session *auth.Session, c *charge, customer *Customer, origin string) (*Result, error) {
	total := c.total()
	if total <= 0 {
		return nil, ErrNothingToCharge
	}

	if err := customer.Normalize(); err != nil {
		return nil, err
	}
	served, err := s.Delivery.IsServed(ctx, customer.Zip)
	if err != nil {
		return nil, err
	}
	if !served {
		return nil, ErrZipNotServed
	}

	number := s.Orders.NewOrderNumber()
	metadata := map[string]string{
		"user_id":       strconv.FormatUint(uint64(c.userID), 10),
		"order_number":  number,
		"checkout_mode": string(c.mode),
		"box_size":      c.boxSize,
		"week":          c.weekStart,
	}
	if c.bagID != nil {
		metadata["weekly_bag_id"] = strconv.FormatUint(uint64(*c.bagID), 10)
	}

	mode := payment.ModePayment
	if c.recurring {
		mode = payment.ModeSubscription
	}

	var expiresAt *time.Time
	if ttl := s.config.Stripe.SessionTTL; ttl > 0 {
		at := s.now().Add(ttl).UTC()
		expiresAt = &at
	}

	base := strings.TrimRight(origin, "/")
	req := &payment.SessionRequest{
		CustomerEmail: customer.Email,
		Mode:          mode,
		Currency:      s.config.Stripe.Currency,
		LineItems:     c.lines,
		SuccessURL:    base + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     base + "/checkout/cancel",
		Metadata:      metadata,
	}
	if expiresAt != nil {
		req.ExpiresAt = *expiresAt
	}
	ps, err := s.provider.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}

	userID := c.userID
	o := &order.Order{
		OrderNumber:       number,
		UserID:            &userID,
		WeeklyBagID:       c.bagID,
		WeekStartDate:     c.weekStart,
		CheckoutMode:      c.mode,
		Status:            order.OrderStatusPending,
		PaymentStatus:     order.PaymentStatusPending,
		Contact:           customer.Contact,
		Delivery:          customer.Address,
		BoxSize:           c.boxSize,
		BoxPrice:          c.boxPrice,
		AddonsTotal:       c.addonsTotal,
		DeliveryFee:       c.deliveryFee,
		Subtotal:          c.boxPrice + c.addonsTotal,
		TotalAmount:       total,
		ProviderSessionID: ps.ID,
		SessionExpiresAt:  expiresAt,
		Items:             c.items,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Orders.WithDB(tx).Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": c.userID, "session_id": ps.ID, "order_number": number, "mode": c.mode, "total": total,
	}).Info("checkout session created")

	return &Result{SessionID: ps.ID, URL: ps.URL, OrderNumber: number, Total: total}, nil
}

func (s *Service) currentWeek() string {
	return week.Key(s.now().In(s.config.Storefront.Location()))
}
