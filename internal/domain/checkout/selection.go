// internal/domain/checkout/selection.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/payment"
	redisstore "github.com/chancecaccamise/farm-box-canvas-sub000/internal/infrastructure/database/redis"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
)

var ErrSelectionNotFound = errors.New("no saved selection")

// SelectionAddon is one add-on pick in a pre-bag selection
type SelectionAddon struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=99"`
}

// Selection is a box size plus add-ons picked before a bag exists
type Selection struct {
	BoxSize string           `json:"box_size" binding:"required"`
	Addons  []SelectionAddon `json:"addons" binding:"dive"`
}

// QuoteLine is a priced selection line
type QuoteLine struct {
	ProductID uint   `json:"product_id,omitempty"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Total     int64  `json:"total"`
}

// Quote is a selection priced at current catalog prices
type Quote struct {
	BoxSize      string      `json:"box_size"`
	IsSubscriber bool        `json:"is_subscriber"`
	BoxPrice     int64       `json:"box_price"`
	AddonsTotal  int64       `json:"addons_total"`
	DeliveryFee  int64       `json:"delivery_fee"`
	Total        int64       `json:"total"`
	Lines        []QuoteLine `json:"lines"`
}

func selectionKey(userID uint) string {
	return fmt.Sprintf("checkout:selection:%d", userID)
}

// SaveSelection stores the selection after validating the box size and
// products. Repeated product ids are merged.
func (s *Service) SaveSelection(ctx context.Context, userID uint, sel *Selection) (*Quote, error) {
	merged := make(map[uint]int)
	for _, a := range sel.Addons {
		merged[a.ProductID] += a.Quantity
	}
	clean := Selection{BoxSize: sel.BoxSize}
	for id, qty := range merged {
		clean.Addons = append(clean.Addons, SelectionAddon{ProductID: id, Quantity: qty})
	}
	sort.Slice(clean.Addons, func(i, j int) bool { return clean.Addons[i].ProductID < clean.Addons[j].ProductID })

	c, err := s.priceSelection(ctx, userID, &clean)
	if err != nil {
		return nil, err
	}

	clean.BoxSize = c.boxSize
	if err := redisstore.SetJSON(ctx, s.redisClient, selectionKey(userID), clean, s.config.Storefront.SelectionTTL); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}
	return c.quote(), nil
}

// GetSelection returns the saved selection priced at current prices
func (s *Service) GetSelection(ctx context.Context, userID uint) (*Quote, error) {
	sel, err := s.loadSelection(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, err := s.priceSelection(ctx, userID, sel)
	if err != nil {
		return nil, err
	}
	return c.quote(), nil
}

// ClearSelection drops the saved selection
func (s *Service) ClearSelection(ctx context.Context, userID uint) error {
	if err := s.redisClient.Del(ctx, selectionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}

// CheckoutSelection charges for the saved selection. Subscribers pay for
// add-ons only; the delivery fee applies to everyone.
func (s *Service) CheckoutSelection(ctx context.Context, session *auth.Session, req *CheckoutRequest, origin string) (*Result, error) {
	if session == nil {
		return nil, ErrUnauthorized
	}
	sel, err := s.loadSelection(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	c, err := s.priceSelection(ctx, session.UserID, sel)
	if err != nil {
		return nil, err
	}
	return s.startCharge(ctx, session, c, &req.Customer, origin)
}

func (s *Service) loadSelection(ctx context.Context, userID uint) (*Selection, error) {
	var sel Selection
	found, err := redisstore.GetJSON(ctx, s.redisClient, selectionKey(userID), &sel)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}
	if !found {
		return nil, ErrSelectionNotFound
	}
	return &sel, nil
}

// priceSelection resolves live prices for a selection
func (s *Service) priceSelection(ctx context.Context, userID uint, sel *Selection) (*charge, error) {
	size, err := s.Catalog.GetBoxSize(ctx, sel.BoxSize)
	if err != nil {
		return nil, err
	}
	subscriber, err := s.Subscriptions.HasActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(sel.Addons))
	for _, a := range sel.Addons {
		ids = append(ids, a.ProductID)
	}
	products, err := s.Catalog.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	c := &charge{
		mode:      order.CheckoutModeSelection,
		userID:    userID,
		weekStart: s.currentWeek(),
		boxSize:   size.Name,
		covered:   subscriber,
	}
	if !subscriber {
		c.boxPrice = size.BasePrice
		c.addLine(
			payment.LineItem{Name: size.DisplayName, UnitAmount: size.BasePrice, Quantity: 1},
			order.OrderItem{ItemType: order.ItemTypeBox},
		)
	}

	for _, a := range sel.Addons {
		p, ok := products[a.ProductID]
		if !ok || !p.IsAvailable {
			s.log.WithFields(logrus.Fields{"user_id": userID, "product_id": a.ProductID}).Warn("dropping unavailable product from selection")
			continue
		}
		productID := p.ID
		line := payment.LineItem{Name: p.Name, UnitAmount: p.Price, Quantity: int64(a.Quantity)}
		c.addonsTotal += line.Total()
		c.addLine(line, order.OrderItem{ItemType: order.ItemTypeAddon, ProductID: &productID})
	}

	if fee := s.config.Storefront.DeliveryFee; fee > 0 {
		c.addDelivery(fee)
	}
	return c, nil
}

func (c *charge) quote() *Quote {
	q := &Quote{
		BoxSize:      c.boxSize,
		IsSubscriber: c.covered,
		BoxPrice:     c.boxPrice,
		AddonsTotal:  c.addonsTotal,
		DeliveryFee:  c.deliveryFee,
		Total:        c.total(),
		Lines:        make([]QuoteLine, 0, len(c.items)),
	}
	for _, item := range c.items {
		line := QuoteLine{
			Name:      item.ProductName,
			Kind:      string(item.ItemType),
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			Total:     item.TotalPrice,
		}
		if item.ProductID != nil {
			line.ProductID = *item.ProductID
		}
		q.Lines = append(q.Lines, line)
	}
	return q
}
