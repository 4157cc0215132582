// internal/domain/bag/service.go
package bag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/boxtemplate"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
)

var (
	ErrBagNotFound  = errors.New("bag not found")
	ErrBagConfirmed = errors.New("bag is already confirmed")
	ErrBagLocked    = errors.New("bag is locked for this week")

	ErrCheckoutPending = errors.New("a checkout for this bag is awaiting payment")
)

// Service manages weekly bags
type Service struct {
	db        *gorm.DB
	catalog   *catalog.Service
	templates *boxtemplate.Service
	config    *config.Config
	log       *logrus.Logger
	now       func() time.Time
}

// NewService creates a new bag service
func NewService(db *gorm.DB, catalogService *catalog.Service, templateService *boxtemplate.Service, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		catalog:   catalogService,
		templates: templateService,
		config:    cfg,
		log:       logger,
		now:       time.Now,
	}
}

// WithDB returns a copy of the service bound to db, typically a transaction
// owned by the caller
func (s *Service) WithDB(db *gorm.DB) *Service {
	clone := *s
	clone.db = db
	return &clone
}

// UpdateItemRequest sets the quantity of an add-on
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// ChangeBoxSizeRequest switches the box size of a draft bag
type ChangeBoxSizeRequest struct {
	BoxSize string `json:"box_size" binding:"required"`
}

// ListFilter narrows the admin bag listing
type ListFilter struct {
	WeekStartDate string `form:"week"`
	BoxSize       string `form:"box_size"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
}

// StateAt derives the edit state of a bag at the given time
func StateAt(b *WeeklyBag, now time.Time) State {
	switch {
	case b.IsConfirmed:
		return StateConfirmed
	case now.After(b.CutoffTime):
		return StateLocked
	default:
		return StateDraft
	}
}

// State derives the edit state of a bag from the service clock
func (s *Service) State(b *WeeklyBag) State {
	return StateAt(b, s.now())
}

// GetOrCreateCurrentWeekBag returns the id of the user's bag for the current
// week, creating it on first call. An empty box size uses the store default.
func (s *Service) GetOrCreateCurrentWeekBag(ctx context.Context, userID uint, boxSize string) (uint, error) {
	loc := s.config.Storefront.Location()
	start := week.Start(s.now().In(loc))
	key := start.Format(week.DateLayout)

	var existing WeeklyBag
	err := s.db.WithContext(ctx).Where("user_id = ? AND week_start_date = ?", userID, key).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to get bag: %w", err)
	}

	if strings.TrimSpace(boxSize) == "" {
		boxSize = s.config.Storefront.DefaultBoxSize
	}
	size, err := s.catalog.GetBoxSize(ctx, boxSize)
	if err != nil {
		return 0, err
	}

	bag := WeeklyBag{
		UserID:        userID,
		WeekStartDate: key,
		WeekEndDate:   week.End(start),
		CutoffTime:    week.Cutoff(start, s.config.Storefront.CutoffOffset).UTC(),
		BoxSize:       size.Name,
		BoxPrice:      size.BasePrice,
		DeliveryFee:   s.config.Storefront.DeliveryFee,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "week_start_date"}}, DoNothing: true}).
		Create(&bag)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to create bag: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// lost the race to a concurrent create
		if err := s.db.WithContext(ctx).Where("user_id = ? AND week_start_date = ?", userID, key).First(&existing).Error; err != nil {
			return 0, fmt.Errorf("failed to get bag: %w", err)
		}
		return existing.ID, nil
	}

	if err := s.UpdateBagTotals(ctx, bag.ID); err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID, "bag_id": bag.ID, "week": key, "box_size": size.Name,
	}).Info("weekly bag created")
	return bag.ID, nil
}

// GetCurrentBag loads the user's bag for this week, mirrors the confirmed
// template into its box items and recomputes totals
func (s *Service) GetCurrentBag(ctx context.Context, userID uint, boxSize string) (*BagView, error) {
	id, err := s.GetOrCreateCurrentWeekBag(ctx, userID, boxSize)
	if err != nil {
		return nil, err
	}

	bag, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, bag)
}

// GetBag returns a bag with its items, scoped to its owner
func (s *Service) GetBag(ctx context.Context, userID, bagID uint) (*WeeklyBag, error) {
	bag, err := s.load(ctx, bagID)
	if err != nil {
		return nil, err
	}
	if bag.UserID != userID {
		return nil, ErrBagNotFound
	}
	return bag, nil
}

// ViewBag returns the owner's bag by id with template state and totals
// refreshed
func (s *Service) ViewBag(ctx context.Context, userID, bagID uint) (*BagView, error) {
	bag, err := s.GetBag(ctx, userID, bagID)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, bag)
}

// UpdateItemQuantity sets an add-on line. It reports applied=false without
// error when the bag is confirmed or the add-on has already been paid for.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, bagID, productID uint, qty int) (bool, error) {
	bag, err := s.GetBag(ctx, userID, bagID)
	if err != nil {
		return false, err
	}
	if bag.IsConfirmed {
		return false, nil
	}
	if err := s.ensureNoPendingCheckout(ctx, bagID); err != nil {
		return false, err
	}

	var product *catalog.Product
	if qty > 0 {
		if product, err = s.catalog.GetAvailableProduct(ctx, productID); err != nil {
			return false, err
		}
	}

	applied := true
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var line WeeklyBagItem
		err := tx.Where("weekly_bag_id = ? AND product_id = ? AND item_type = ?", bagID, productID, ItemTypeAddon).
			First(&line).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if found && line.IsPaid {
			applied = false
			return nil
		}

		switch {
		case qty <= 0:
			if found {
				if err := tx.Delete(&line).Error; err != nil {
					return err
				}
			}
		case found:
			line.Quantity = qty
			line.PriceAtTime = product.Price
			if err := tx.Save(&line).Error; err != nil {
				return err
			}
		default:
			line = WeeklyBagItem{
				WeeklyBagID: bagID,
				ProductID:   productID,
				ItemType:    ItemTypeAddon,
				Quantity:    qty,
				PriceAtTime: product.Price,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		return recalculate(tx, bagID, s.config.Storefront.DeliveryFee)
	})
	if err != nil {
		return false, fmt.Errorf("failed to update bag item: %w", err)
	}
	return applied, nil
}

// ChangeBoxSize moves a draft bag to another box size and re-syncs it
func (s *Service) ChangeBoxSize(ctx context.Context, userID, bagID uint, boxSize string) (*BagView, error) {
	bag, err := s.GetBag(ctx, userID, bagID)
	if err != nil {
		return nil, err
	}
	switch s.State(bag) {
	case StateConfirmed:
		return nil, ErrBagConfirmed
	case StateLocked:
		return nil, ErrBagLocked
	}
	if err := s.ensureNoPendingCheckout(ctx, bagID); err != nil {
		return nil, err
	}

	size, err := s.catalog.GetBoxSize(ctx, boxSize)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&WeeklyBag{}).Where("id = ?", bagID).
		Updates(map[string]interface{}{"box_size": size.Name, "box_price": size.BasePrice}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to change box size: %w", err)
	}
	bag.BoxSize = size.Name
	bag.BoxPrice = size.BasePrice

	return s.refresh(ctx, bag)
}

// UpdateBagTotals recomputes the money fields of a bag from its lines
func (s *Service) UpdateBagTotals(ctx context.Context, bagID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return recalculate(tx, bagID, s.config.Storefront.DeliveryFee)
	})
	if err != nil {
		return fmt.Errorf("failed to update bag totals: %w", err)
	}
	return nil
}

// ConfirmBag marks the bag confirmed at the given time
func (s *Service) ConfirmBag(ctx context.Context, bagID uint, at time.Time) error {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&WeeklyBag{}).
		Where("id = ? AND is_confirmed = ?", bagID, false).
		Updates(map[string]interface{}{"is_confirmed": true, "confirmed_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to confirm bag: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.WithFields(logrus.Fields{"bag_id": bagID}).Info("weekly bag confirmed")
	}
	return nil
}

// PaidAddon is an add-on line as it was charged
type PaidAddon struct {
	ItemID   uint
	Quantity int
	Price    int64
}

// MarkAddonsPaid flags add-on lines as paid. A line is only settled while
// its quantity and price still equal what was charged; anything else stays
// unpaid so it is billed again on the next checkout.
func (s *Service) MarkAddonsPaid(ctx context.Context, bagID uint, paid []PaidAddon) (int64, error) {
	var marked int64
	for _, p := range paid {
		res := s.db.WithContext(ctx).Model(&WeeklyBagItem{}).
			Where("id = ? AND weekly_bag_id = ? AND item_type = ? AND quantity = ? AND price_at_time = ? AND is_paid = ?",
				p.ItemID, bagID, ItemTypeAddon, p.Quantity, p.Price, false).
			Update("is_paid", true)
		if res.Error != nil {
			return marked, fmt.Errorf("failed to mark add-ons paid: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			s.log.WithFields(logrus.Fields{
				"bag_id": bagID, "item_id": p.ItemID, "quantity": p.Quantity, "price": p.Price,
			}).Warn("add-on line no longer matches the charge, leaving it unpaid")
			continue
		}
		marked += res.RowsAffected
	}
	return marked, nil
}

// ensureNoPendingCheckout rejects edits while an unexpired checkout session
// holds the bag's current lines
func (s *Service) ensureNoPendingCheckout(ctx context.Context, bagID uint) error {
	var open int64
	err := s.db.WithContext(ctx).Model(&order.Order{}).
		Where("weekly_bag_id = ? AND payment_status = ? AND status = ? AND session_expires_at > ?",
			bagID, order.PaymentStatusPending, order.OrderStatusPending, s.now().UTC()).
		Count(&open).Error
	if err != nil {
		return fmt.Errorf("failed to check pending checkout: %w", err)
	}
	if open > 0 {
		return ErrCheckoutPending
	}
	return nil
}

// ListBags returns bags for the back office, newest first
func (s *Service) ListBags(ctx context.Context, filter ListFilter) ([]WeeklyBag, int64, error) {
	query := s.db.WithContext(ctx).Model(&WeeklyBag{})
	if filter.WeekStartDate != "" {
		query = query.Where("week_start_date = ?", filter.WeekStartDate)
	}
	if filter.BoxSize != "" {
		query = query.Where("box_size = ?", strings.ToLower(filter.BoxSize))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bags: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var bags []WeeklyBag
	err := query.Preload("Items").
		Order("week_start_date DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&bags).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bags: %w", err)
	}
	return bags, total, nil
}

func (s *Service) load(ctx context.Context, bagID uint) (*WeeklyBag, error) {
	var bag WeeklyBag
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("weekly_bag_items.id ASC") }).
		Preload("Items.Product").
		First(&bag, bagID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBagNotFound
		}
		return nil, fmt.Errorf("failed to get bag: %w", err)
	}
	return &bag, nil
}

// refresh syncs box items from the template unless the bag is confirmed,
// recomputes totals and builds the view. Locked bags keep their box items.
func (s *Service) refresh(ctx context.Context, bag *WeeklyBag) (*BagView, error) {
	lines, err := s.templates.LinesFor(ctx, bag.WeekStartDate, bag.BoxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	status := TemplateNone
	if lines.Exists {
		status = TemplatePending
		if lines.IsConfirmed {
			status = TemplateConfirmed
		}
	}

	if !bag.IsConfirmed {
		state := s.State(bag)
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := syncBoxItems(tx, bag.ID, lines, state); err != nil {
				return err
			}
			return recalculate(tx, bag.ID, s.config.Storefront.DeliveryFee)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to sync bag: %w", err)
		}
	}

	fresh, err := s.load(ctx, bag.ID)
	if err != nil {
		return nil, err
	}
	return s.view(fresh, status), nil
}

func (s *Service) view(bag *WeeklyBag, status TemplateStatus) *BagView {
	state := s.State(bag)
	v := &BagView{
		Bag:            bag,
		BoxItems:       []ItemView{},
		Addons:         []ItemView{},
		State:          state,
		TemplateStatus: status,
		IsSubscriber:   bag.SubscriberCovered,
		CanEditBox:     state == StateDraft,
		CanEditAddons:  state != StateConfirmed,
	}

	for _, item := range bag.Items {
		iv := ItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			PriceAtTime: item.PriceAtTime,
			LineTotal:   item.LineTotal(),
			IsPaid:      item.IsPaid,
		}
		if item.Product != nil {
			iv.Name = item.Product.Name
			iv.Category = string(item.Product.Category)
			iv.ImageURL = item.Product.ImageURL
		}

		if item.ItemType == ItemTypeBox {
			v.BoxItems = append(v.BoxItems, iv)
			continue
		}
		v.Addons = append(v.Addons, iv)
		if !item.IsPaid {
			v.UnpaidAddons += iv.LineTotal
		}
	}
	return v
}

// syncBoxItems mirrors the confirmed template into the box lines of a
// draft bag. Lines that survive keep their price snapshot; only new lines
// take the current product price. An unconfirmed or missing template leaves
// a draft bag with no box lines. A locked bag is only filled when it has no
// box lines yet.
func syncBoxItems(tx *gorm.DB, bagID uint, lines *boxtemplate.Lines, state State) error {
	var current []WeeklyBagItem
	if err := tx.Where("weekly_bag_id = ? AND item_type = ?", bagID, ItemTypeBox).Find(&current).Error; err != nil {
		return err
	}

	switch state {
	case StateConfirmed:
		return nil
	case StateLocked:
		if len(current) > 0 || !lines.IsConfirmed {
			return nil
		}
	}

	want := make(map[uint]boxtemplate.BoxTemplate)
	if lines.IsConfirmed {
		for _, line := range lines.Items {
			want[line.ProductID] = line
		}
	}

	for i := range current {
		item := &current[i]
		line, ok := want[item.ProductID]
		if !ok {
			if err := tx.Delete(item).Error; err != nil {
				return err
			}
			continue
		}
		delete(want, item.ProductID)
		if item.Quantity != line.Quantity {
			if err := tx.Model(item).Update("quantity", line.Quantity).Error; err != nil {
				return err
			}
		}
	}

	if len(want) == 0 {
		return nil
	}
	items := make([]WeeklyBagItem, 0, len(want))
	for _, line := range lines.Items {
		if _, ok := want[line.ProductID]; !ok {
			continue
		}
		var price int64
		if line.Product != nil {
			price = line.Product.Price
		}
		items = append(items, WeeklyBagItem{
			WeeklyBagID: bagID,
			ProductID:   line.ProductID,
			ItemType:    ItemTypeBox,
			Quantity:    line.Quantity,
			PriceAtTime: price,
		})
	}
	return tx.Create(&items).Error
}

// recalculate writes subtotal, addons_total, delivery_fee, total_amount and
// subscriber_covered for one bag. Confirmed bags keep their delivery fee.
func recalculate(tx *gorm.DB, bagID uint, deliveryFee int64) error {
	var bag WeeklyBag
	if err := tx.Preload("Items").First(&bag, bagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBagNotFound
		}
		return err
	}

	covered, err := subscription.HasActive(tx, bag.UserID)
	if err != nil {
		return err
	}

	var subtotal, addons int64
	for _, item := range bag.Items {
		subtotal += item.LineTotal()
		if item.ItemType == ItemTypeAddon {
			addons += item.LineTotal()
		}
	}

	fee := bag.DeliveryFee
	if !bag.IsConfirmed {
		fee = deliveryFee
	}

	total := bag.BoxPrice + addons + fee
	if covered {
		total = addons + fee
	}

	return tx.Model(&WeeklyBag{}).Where("id = ?", bagID).Updates(map[string]interface{}{
		"subtotal":           subtotal,
		"addons_total":       addons,
		"delivery_fee":       fee,
		"total_amount":       total,
		"subscriber_covered": covered,
	}).Error
}
