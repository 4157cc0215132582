// internal/domain/boxtemplate/service.go
package boxtemplate

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
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
)

var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrRowNotFound       = errors.New("template item not found")
	ErrAlreadyInTemplate = errors.New("product is already in this template")
	ErrTemplateConfirmed = errors.New("template is confirmed; unconfirm it before editing")
	ErrEmptyTemplate     = errors.New("cannot confirm a template with no items")
	ErrConcurrentUpdate  = errors.New("template was changed by someone else; reload and retry")
	ErrForbidden         = errors.New("admin access required")
)

// Service is the box template engine
type Service struct {
	db      *gorm.DB
	catalog *catalog.Service
	config  *config.Config
	log     *logrus.Logger
	now     func() time.Time
}

// NewService creates a new template service
func NewService(db *gorm.DB, catalogService *catalog.Service, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		catalog: catalogService,
		config:  cfg,
		log:     logger,
		now:     time.Now,
	}
}

// Key identifies a template
type Key struct {
	WeekStartDate string `form:"week" json:"week_start_date" binding:"required"`
	BoxSize       string `form:"box_size" json:"box_size" binding:"required"`
}

// normalized matches the stored form of box size names
func (k Key) normalized() Key {
	k.WeekStartDate = strings.TrimSpace(k.WeekStartDate)
	k.BoxSize = strings.ToLower(strings.TrimSpace(k.BoxSize))
	return k
}

// AddProductRequest adds a product to a template
type AddProductRequest struct {
	Key
	ProductID uint `json:"product_id" binding:"required"`
}

// SetQuantityRequest changes a template line
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// List returns the template rows and totals for a key. A key with no
// template yet returns an empty view rather than an error.
func (s *Service) List(ctx context.Context, key Key) (*View, error) {
	key, size, err := s.validateKey(ctx, key)
	if err != nil {
		return nil, err
	}

	view := &View{
		WeekStartDate: key.WeekStartDate,
		BoxSize:       size.Name,
		BoxBasePrice:  size.BasePrice,
		Rows:          []Row{},
	}

	tw, err := s.findWeek(s.db.WithContext(ctx), key, true)
	if errors.Is(err, ErrTemplateNotFound) {
		view.TotalValue = view.BoxBasePrice
		return view, nil
	}
	if err != nil {
		return nil, err
	}

	view.Exists = true
	view.IsConfirmed = tw.IsConfirmed
	view.ConfirmedAt = tw.ConfirmedAt
	view.ConfirmedBy = tw.ConfirmedBy
	view.Version = tw.Version

	for _, item := range tw.Items {
		row := Row{
			ID:            item.ID,
			WeekStartDate: tw.WeekStartDate,
			BoxSize:       tw.BoxSize,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			IsConfirmed:   tw.IsConfirmed,
			ConfirmedAt:   tw.ConfirmedAt,
			ConfirmedBy:   tw.ConfirmedBy,
		}
		if item.Product != nil {
			row.ProductName = item.Product.Name
			row.Category = string(item.Product.Category)
			row.UnitPrice = item.Product.Price
			row.LineValue = item.Product.Price * int64(item.Quantity)
		}
		view.ItemsValue += row.LineValue
		view.Rows = append(view.Rows, row)
	}
	view.TotalValue = view.BoxBasePrice + view.ItemsValue

	return view, nil
}

// TotalValue is the box base price plus the value of every template line
func (s *Service) TotalValue(ctx context.Context, key Key) (int64, error) {
	view, err := s.List(ctx, key)
	if err != nil {
		return 0, err
	}
	return view.TotalValue, nil
}

// CandidateProducts lists available products not yet in the template
func (s *Service) CandidateProducts(ctx context.Context, key Key) ([]catalog.Product, error) {
	view, err := s.List(ctx, key)
	if err != nil {
		return nil, err
	}

	products, err := s.catalog.ListProducts(ctx, catalog.ProductFilter{AvailableOnly: true})
	if err != nil {
		return nil, err
	}

	present := make(map[uint]bool, len(view.Rows))
	for _, row := range view.Rows {
		present[row.ProductID] = true
	}

	candidates := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if !present[p.ID] {
			candidates = append(candidates, p)
		}
	}
	return candidates, nil
}

// AddProduct creates a quantity=1 line for the product
func (s *Service) AddProduct(ctx context.Context, req *AddProductRequest) (*BoxTemplate, error) {
	key, _, err := s.validateKey(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetAvailableProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	var row BoxTemplate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tw, err := s.ensureWeek(tx, key)
		if err != nil {
			return err
		}
		if tw.IsConfirmed {
			return ErrTemplateConfirmed
		}

		var existing int64
		if err := tx.Model(&BoxTemplate{}).
			Where("template_week_id = ? AND product_id = ?", tw.ID, req.ProductID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyInTemplate
		}

		row = BoxTemplate{TemplateWeekID: tw.ID, ProductID: req.ProductID, Quantity: 1}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, wrap("failed to add template item", err)
	}
	return &row, nil
}

// SetQuantity updates a line in place; qty <= 0 deletes it. The returned
// row is nil when the line was deleted.
func (s *Service) SetQuantity(ctx context.Context, rowID uint, qty int) (*BoxTemplate, error) {
	var result *BoxTemplate

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row BoxTemplate
		if err := tx.First(&row, rowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRowNotFound
			}
			return err
		}

		var tw TemplateWeek
		if err := tx.First(&tw, row.TemplateWeekID).Error; err != nil {
			return err
		}
		if tw.IsConfirmed {
			return ErrTemplateConfirmed
		}

		if qty <= 0 {
			return tx.Delete(&row).Error
		}

		row.Quantity = qty
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		result = &row
		return nil
	})
	if err != nil {
		return nil, wrap("failed to update template item", err)
	}
	return result, nil
}

// CopyFromPreviousWeek replaces the key's lines with the lines of the same
// box size one week earlier. An empty source week changes nothing.
func (s *Service) CopyFromPreviousWeek(ctx context.Context, key Key) (*CopyResult, error) {
	key, _, err := s.validateKey(ctx, key)
	if err != nil {
		return nil, err
	}
	prev, err := week.Previous(key.WeekStartDate)
	if err != nil {
		return nil, err
	}
	result := &CopyResult{SourceWeek: prev}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source []BoxTemplate
		err := tx.Joins("JOIN box_template_weeks ON box_template_weeks.id = box_templates.template_week_id").
			Where("box_template_weeks.week_start_date = ? AND box_template_weeks.box_size = ?", prev, key.BoxSize).
			Order("box_templates.id ASC").
			Find(&source).Error
		if err != nil {
			return err
		}
		if len(source) == 0 {
			result.Notice = fmt.Sprintf("No template items found for %s (%s); nothing copied", prev, key.BoxSize)
			return nil
		}

		tw, err := s.ensureWeek(tx, key)
		if err != nil {
			return err
		}
		if tw.IsConfirmed {
			return ErrTemplateConfirmed
		}

		if err := tx.Where("template_week_id = ?", tw.ID).Delete(&BoxTemplate{}).Error; err != nil {
			return err
		}

		copies := make([]BoxTemplate, 0, len(source))
		for _, src := range source {
			copies = append(copies, BoxTemplate{TemplateWeekID: tw.ID, ProductID: src.ProductID, Quantity: src.Quantity})
		}
		if err := tx.Create(&copies).Error; err != nil {
			return err
		}
		result.Copied = len(copies)
		return nil
	})
	if err != nil {
		return nil, wrap("failed to copy template", err)
	}

	s.log.WithFields(logrus.Fields{
		"week": key.WeekStartDate, "box_size": key.BoxSize, "source_week": prev, "copied": result.Copied,
	}).Info("template copied from previous week")
	return result, nil
}

// Confirm marks the template confirmed by the acting admin. Confirming an
// already confirmed template is a no-op.
func (s *Service) Confirm(ctx context.Context, session *auth.Session, key Key) (*TransitionResult, error) {
	return s.transition(ctx, session, key, true)
}

// Unconfirm reverses Confirm, clearing the confirmation stamp
func (s *Service) Unconfirm(ctx context.Context, session *auth.Session, key Key) (*TransitionResult, error) {
	return s.transition(ctx, session, key, false)
}

func (s *Service) transition(ctx context.Context, session *auth.Session, key Key, confirm bool) (*TransitionResult, error) {
	if session == nil || !session.IsAdmin {
		return nil, ErrForbidden
	}
	key, _, err := s.validateKey(ctx, key)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tw, err := s.findWeek(tx, key, true)
		if err != nil {
			return err
		}
		if tw.IsConfirmed == confirm {
			return nil
		}
		if confirm && len(tw.Items) == 0 {
			return ErrEmptyTemplate
		}

		updates := map[string]interface{}{
			"is_confirmed": confirm,
			"confirmed_at": nil,
			"confirmed_by": nil,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   s.now().UTC(),
		}
		if confirm {
			updates["confirmed_at"] = s.now().UTC()
			updates["confirmed_by"] = session.UserID
		}

		res := tx.Model(&TemplateWeek{}).
			Where("id = ? AND version = ?", tw.ID, tw.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		return nil
	})
	if err != nil {
		return nil, wrap("failed to change template confirmation", err)
	}

	var pending int64
	err = s.db.WithContext(ctx).Table("weekly_bags").
		Where("week_start_date = ? AND box_size = ? AND is_confirmed = ?", key.WeekStartDate, key.BoxSize, false).
		Count(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count affected bags: %w", err)
	}

	view, err := s.List(ctx, key)
	if err != nil {
		return nil, err
	}

	action := "unconfirmed"
	if confirm {
		action = "confirmed"
	}
	s.log.WithFields(logrus.Fields{
		"week": key.WeekStartDate, "box_size": key.BoxSize, "admin_id": session.UserID, "affected_bags": pending,
	}).Infof("template %s", action)

	return &TransitionResult{
		View:         view,
		AffectedBags: pending,
		Message:      fmt.Sprintf("Template %s; %d unconfirmed bag(s) for this week and size will pick it up on next load", action, pending),
	}, nil
}

// DeleteWeek removes the template and all its lines
func (s *Service) DeleteWeek(ctx context.Context, key Key) error {
	key = key.normalized()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tw, err := s.findWeek(tx, key, false)
		if err != nil {
			return err
		}
		if tw.IsConfirmed {
			return ErrTemplateConfirmed
		}
		if err := tx.Where("template_week_id = ?", tw.ID).Delete(&BoxTemplate{}).Error; err != nil {
			return err
		}
		return tx.Delete(tw).Error
	})
	if err != nil {
		return wrap("failed to delete template", err)
	}
	return nil
}

// Lines is what a bag needs from a template to mirror it
type Lines struct {
	Exists      bool
	IsConfirmed bool
	Items       []BoxTemplate
}

// LinesFor returns the template lines with products for a key
func (s *Service) LinesFor(ctx context.Context, weekStart, boxSize string) (*Lines, error) {
	key := Key{WeekStartDate: weekStart, BoxSize: boxSize}.normalized()
	tw, err := s.findWeek(s.db.WithContext(ctx), key, true)
	if errors.Is(err, ErrTemplateNotFound) {
		return &Lines{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Lines{Exists: true, IsConfirmed: tw.IsConfirmed, Items: tw.Items}, nil
}

// validateKey checks the week and box size and returns the key in its
// stored form
func (s *Service) validateKey(ctx context.Context, key Key) (Key, *catalog.BoxSize, error) {
	key = key.normalized()
	if _, err := week.Parse(key.WeekStartDate, time.UTC); err != nil {
		return key, nil, err
	}
	size, err := s.catalog.GetBoxSize(ctx, key.BoxSize)
	if err != nil {
		return key, nil, err
	}
	key.BoxSize = size.Name
	return key, size, nil
}

func (s *Service) findWeek(db *gorm.DB, key Key, withItems bool) (*TemplateWeek, error) {
	query := db.Where("week_start_date = ? AND box_size = ?", key.WeekStartDate, key.BoxSize)
	if withItems {
		query = query.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("box_templates.id ASC")
		}).Preload("Items.Product")
	}

	var tw TemplateWeek
	if err := query.First(&tw).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &tw, nil
}

func (s *Service) ensureWeek(tx *gorm.DB, key Key) (*TemplateWeek, error) {
	tw := TemplateWeek{WeekStartDate: key.WeekStartDate, BoxSize: key.BoxSize, Version: 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tw).Error; err != nil {
		return nil, err
	}
	return s.findWeek(tx, key, false)
}

func wrap(msg string, err error) error {
	for _, sentinel := range []error{
		ErrTemplateNotFound, ErrRowNotFound, ErrAlreadyInTemplate, ErrTemplateConfirmed,
		ErrEmptyTemplate, ErrConcurrentUpdate,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
