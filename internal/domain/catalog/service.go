// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	redisstore "github.com/chancecaccamise/farm-box-canvas-sub000/internal/infrastructure/database/redis"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrBoxSizeNotFound    = errors.New("box size not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrDuplicateTag       = errors.New("tag with this slug already exists")
	ErrInvalidCategory    = errors.New("invalid product category")
	ErrInvalidPrice       = errors.New("price cannot be negative")
	ErrProductUnavailable = errors.New("product is not available")
)

const (
	productsCachePrefix = "catalog:products:"
	boxSizesCacheKey    = "catalog:box_sizes"
)

// Service serves catalog reference data
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	log         *logrus.Logger
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		log:         logger,
	}
}

// ProductFilter narrows product listings
type ProductFilter struct {
	Category      Category `form:"category"`
	Tag           string   `form:"tag"`
	AvailableOnly bool     `form:"available"`
}

func (f ProductFilter) cacheKey() string {
	return fmt.Sprintf("%s%s:%s:%t", productsCachePrefix, f.Category, f.Tag, f.AvailableOnly)
}

// ProductRequest is the admin payload for creating or updating a product
type ProductRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Description string   `json:"description"`
	Category    Category `json:"category" binding:"required"`
	Price       int64    `json:"price" binding:"min=0"`
	Unit        string   `json:"unit" binding:"max=50"`
	ImageURL    string   `json:"image_url" binding:"omitempty,url"`
	IsAvailable *bool    `json:"is_available"`
	Tags        []string `json:"tags"`
	SortOrder   int      `json:"sort_order"`
}

// BoxSizeRequest is the admin payload for a box tier
type BoxSizeRequest struct {
	Name          string `json:"name" binding:"required,max=20"`
	DisplayName   string `json:"display_name" binding:"required"`
	Description   string `json:"description"`
	BasePrice     int64  `json:"base_price" binding:"min=0"`
	ItemCountHint int    `json:"item_count_hint"`
	IsActive      *bool  `json:"is_active"`
	SortOrder     int    `json:"sort_order"`
}

// TagRequest is the admin payload for an add-on tag
type TagRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Slug  string `json:"slug" binding:"omitempty,max=100"`
	Color string `json:"color" binding:"max=20"`
}

// ListProducts returns products matching the filter, served from cache when possible
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var products []Product
	if s.cacheGet(ctx, filter.cacheKey(), &products) {
		return products, nil
	}

	query := s.db.WithContext(ctx).Model(&Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	if err := query.Order("sort_order ASC, name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if filter.Tag != "" {
		tagged := products[:0]
		for _, p := range products {
			if p.HasTag(filter.Tag) {
				tagged = append(tagged, p)
			}
		}
		products = tagged
	}

	s.cacheSet(ctx, filter.cacheKey(), products)
	return products, nil
}

// GetProduct returns a product by id
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// GetAvailableProduct returns a product that can currently be added to a bag
func (s *Service) GetAvailableProduct(ctx context.Context, id uint) (*Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable {
		return nil, ErrProductUnavailable
	}
	return product, nil
}

// ProductsByID loads the given products keyed by id
func (s *Service) ProductsByID(ctx context.Context, ids []uint) (map[uint]Product, error) {
	result := make(map[uint]Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// CreateProduct adds a product to the catalog
func (s *Service) CreateProduct(ctx context.Context, req *ProductRequest) (*Product, error) {
	product := Product{}
	if err := applyProductRequest(&product, req); err != nil {
		return nil, err
	}
	if req.IsAvailable == nil {
		product.IsAvailable = true
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidateProducts(ctx)
	s.log.WithFields(logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("product created")
	return &product, nil
}

// UpdateProduct replaces the editable fields of a product
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductRequest) (*Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyProductRequest(product, req); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidateProducts(ctx)
	return product, nil
}

// DeleteProduct removes a product. Products still referenced by a bag or
// template are only marked unavailable so historical rows keep resolving.
// It reports whether the row was actually deleted.
func (s *Service) DeleteProduct(ctx context.Context, id uint) (bool, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return false, err
	}

	var refs int64
	for _, table := range []string{"weekly_bag_items", "box_templates"} {
		var n int64
		if err := s.db.WithContext(ctx).Table(table).Where("product_id = ?", id).Count(&n).Error; err != nil {
			return false, fmt.Errorf("failed to check product references: %w", err)
		}
		refs += n
	}

	deleted := refs == 0
	if deleted {
		err = s.db.WithContext(ctx).Delete(product).Error
	} else {
		err = s.db.WithContext(ctx).Model(product).Update("is_available", false).Error
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	s.invalidateProducts(ctx)
	return deleted, nil
}

// ListBoxSizes returns the box tiers ordered for display
func (s *Service) ListBoxSizes(ctx context.Context, activeOnly bool) ([]BoxSize, error) {
	var sizes []BoxSize
	if !s.cacheGet(ctx, boxSizesCacheKey, &sizes) {
		if err := s.db.WithContext(ctx).Order("sort_order ASC, base_price ASC").Find(&sizes).Error; err != nil {
			return nil, fmt.Errorf("failed to list box sizes: %w", err)
		}
		s.cacheSet(ctx, boxSizesCacheKey, sizes)
	}

	if !activeOnly {
		return sizes, nil
	}
	active := make([]BoxSize, 0, len(sizes))
	for _, size := range sizes {
		if size.IsActive {
			active = append(active, size)
		}
	}
	return active, nil
}

// GetBoxSize returns an active box size by name
func (s *Service) GetBoxSize(ctx context.Context, name string) (*BoxSize, error) {
	var size BoxSize
	err := s.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(name)), true).
		First(&size).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoxSizeNotFound
		}
		return nil, fmt.Errorf("failed to get box size: %w", err)
	}
	return &size, nil
}

// UpsertBoxSize creates or updates a box tier by name. Price changes only
// affect bags created afterwards since bags snapshot box_price.
func (s *Service) UpsertBoxSize(ctx context.Context, req *BoxSizeRequest) (*BoxSize, error) {
	size := BoxSize{
		Name:          strings.ToLower(strings.TrimSpace(req.Name)),
		DisplayName:   req.DisplayName,
		Description:   req.Description,
		BasePrice:     req.BasePrice,
		ItemCountHint: req.ItemCountHint,
		IsActive:      req.IsActive == nil || *req.IsActive,
		SortOrder:     req.SortOrder,
	}
	if size.BasePrice < 0 {
		return nil, ErrInvalidPrice
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "description", "base_price", "item_count_hint", "is_active", "sort_order", "updated_at"}),
	}).Create(&size).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save box size: %w", err)
	}

	s.cacheDel(ctx, boxSizesCacheKey)

	var saved BoxSize
	if err := s.db.WithContext(ctx).Where("name = ?", size.Name).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("failed to reload box size: %w", err)
	}
	return &saved, nil
}

// ListTags returns all add-on tags
func (s *Service) ListTags(ctx context.Context) ([]AddonTag, error) {
	var tags []AddonTag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// CreateTag adds an add-on tag; the slug defaults to the slugified name
func (s *Service) CreateTag(ctx context.Context, req *TagRequest) (*AddonTag, error) {
	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&AddonTag{}).Where("slug = ?", slug).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check tag: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateTag
	}

	tag := AddonTag{Name: req.Name, Slug: slug, Color: req.Color}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return &tag, nil
}

// DeleteTag removes a tag and strips it from every product carrying it
func (s *Service) DeleteTag(ctx context.Context, id uint) error {
	var tag AddonTag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return fmt.Errorf("failed to get tag: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products []Product
		if err := tx.Find(&products).Error; err != nil {
			return err
		}
		for _, p := range products {
			if !p.HasTag(tag.Slug) {
				continue
			}
			kept := make([]string, 0, len(p.Tags))
			for _, t := range p.Tags {
				if t != tag.Slug {
					kept = append(kept, t)
				}
			}
			if err := tx.Model(&Product{}).Where("id = ?", p.ID).Update("tags", datatypes.NewJSONSlice(kept)).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&tag).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	s.invalidateProducts(ctx)
	return nil
}

// Slugify lowercases a name and joins its words with dashes
func Slugify(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}

func applyProductRequest(product *Product, req *ProductRequest) error {
	if !req.Category.Valid() {
		return ErrInvalidCategory
	}
	if req.Price < 0 {
		return ErrInvalidPrice
	}

	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		if slug := Slugify(t); slug != "" && !slices.Contains(tags, slug) {
			tags = append(tags, slug)
		}
	}
	sort.Strings(tags)

	product.Name = strings.TrimSpace(req.Name)
	product.Description = req.Description
	product.Category = req.Category
	product.Price = req.Price
	product.Unit = req.Unit
	product.ImageURL = req.ImageURL
	product.Tags = datatypes.NewJSONSlice(tags)
	product.SortOrder = req.SortOrder
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}
	return nil
}

// Cache helpers. A missing or failing Redis never fails a read.

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.redisClient == nil {
		return false
	}
	found, err := redisstore.GetJSON(ctx, s.redisClient, key, dest)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("catalog cache read failed")
		return false
	}
	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.redisClient == nil {
		return
	}
	if err := redisstore.SetJSON(ctx, s.redisClient, key, value, s.config.Storefront.CatalogCacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("catalog cache write failed")
	}
}

func (s *Service) cacheDel(ctx context.Context, key string) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("catalog cache invalidation failed")
	}
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := redisstore.DeletePattern(ctx, s.redisClient, productsCachePrefix+"*"); err != nil {
		s.log.WithError(err).Warn("catalog cache invalidation failed")
	}
}
