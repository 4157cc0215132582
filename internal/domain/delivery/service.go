// internal/domain/delivery/service.go
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/contact"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/export"
)

var (
	ErrZipNotFound  = errors.New("zip code not found")
	ErrDuplicateZip = errors.New("zip code already exists")
)

const servedZipsKey = "delivery:zips:active"

// Service manages serviceable ZIP codes
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	log         *logrus.Logger
}

// NewService creates a new delivery service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		log:         logger,
	}
}

// ZipCodeRequest creates or updates a ZIP code
type ZipCodeRequest struct {
	Zip         string `json:"zip" binding:"required"`
	City        string `json:"city" binding:"max=100"`
	DeliveryDay string `json:"delivery_day" binding:"max=20"`
	IsActive    *bool  `json:"is_active"`
}

// ListFilter narrows the admin listing
type ListFilter struct {
	Search     string `form:"search"`
	ActiveOnly bool   `form:"active_only"`
}

// Check reports whether the farm delivers to zip
func (s *Service) Check(ctx context.Context, zip string) (*CheckResult, error) {
	zip, err := contact.NormalizeZip(zip)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Zip: zip}
	var row ZipCode
	err = s.db.WithContext(ctx).Where("zip = ? AND is_active = ?", zip, true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check zip code: %w", err)
	}

	result.Served = true
	result.City = row.City
	result.DeliveryDay = row.DeliveryDay
	return result, nil
}

// IsServed is Check reduced to a bool. The active set is cached in Redis
// as a set and rebuilt from the database on a miss.
func (s *Service) IsServed(ctx context.Context, zip string) (bool, error) {
	zip, err := contact.NormalizeZip(zip)
	if err != nil {
		return false, err
	}

	if s.redisClient != nil {
		if ok, err := s.cachedMember(ctx, zip); err == nil {
			return ok, nil
		} else if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).Warn("zip cache unavailable, falling back to database")
		}
	}

	result, err := s.Check(ctx, zip)
	if err != nil {
		return false, err
	}
	return result.Served, nil
}

// cachedMember returns redis.Nil when the cache has not been built yet
func (s *Service) cachedMember(ctx context.Context, zip string) (bool, error) {
	exists, err := s.redisClient.Exists(ctx, servedZipsKey).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		if err := s.rebuildCache(ctx); err != nil {
			return false, err
		}
	}
	return s.redisClient.SIsMember(ctx, servedZipsKey, zip).Result()
}

func (s *Service) rebuildCache(ctx context.Context) error {
	var zips []string
	if err := s.db.WithContext(ctx).Model(&ZipCode{}).Where("is_active = ?", true).Pluck("zip", &zips).Error; err != nil {
		return err
	}
	if len(zips) == 0 {
		return redis.Nil
	}

	members := make([]interface{}, len(zips))
	for i, z := range zips {
		members[i] = z
	}
	pipe := s.redisClient.TxPipeline()
	pipe.Del(ctx, servedZipsKey)
	pipe.SAdd(ctx, servedZipsKey, members...)
	pipe.Expire(ctx, servedZipsKey, s.config.Storefront.CatalogCacheTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Service) invalidate(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, servedZipsKey).Err(); err != nil {
		s.log.WithError(err).Warn("failed to invalidate zip cache")
	}
}

// List returns ZIP codes ordered by zip
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ZipCode, error) {
	query := s.db.WithContext(ctx).Model(&ZipCode{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("zip LIKE ? OR LOWER(city) LIKE ?", like, like)
	}

	var zips []ZipCode
	if err := query.Order("zip ASC").Find(&zips).Error; err != nil {
		return nil, fmt.Errorf("failed to list zip codes: %w", err)
	}
	return zips, nil
}

// Create adds a ZIP code; new codes are active unless stated otherwise
func (s *Service) Create(ctx context.Context, req *ZipCodeRequest) (*ZipCode, error) {
	zip, err := contact.NormalizeZip(req.Zip)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&ZipCode{}).Where("zip = ?", zip).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check zip code: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateZip
	}

	row := ZipCode{
		Zip:         zip,
		City:        strings.TrimSpace(req.City),
		DeliveryDay: strings.TrimSpace(req.DeliveryDay),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create zip code: %w", err)
	}

	s.invalidate(ctx)
	return &row, nil
}

// Update changes a ZIP code in place
func (s *Service) Update(ctx context.Context, id uint, req *ZipCodeRequest) (*ZipCode, error) {
	zip, err := contact.NormalizeZip(req.Zip)
	if err != nil {
		return nil, err
	}

	row, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if zip != row.Zip {
		var count int64
		if err := s.db.WithContext(ctx).Model(&ZipCode{}).Where("zip = ? AND id <> ?", zip, id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check zip code: %w", err)
		}
		if count > 0 {
			return nil, ErrDuplicateZip
		}
	}

	row.Zip = zip
	row.City = strings.TrimSpace(req.City)
	row.DeliveryDay = strings.TrimSpace(req.DeliveryDay)
	if req.IsActive != nil {
		row.IsActive = *req.IsActive
	}
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, fmt.Errorf("failed to update zip code: %w", err)
	}

	s.invalidate(ctx)
	return row, nil
}

// Delete removes a ZIP code
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&ZipCode{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete zip code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrZipNotFound
	}

	s.invalidate(ctx)
	return nil
}

// ExportCSV writes every ZIP code as CSV
func (s *Service) ExportCSV(ctx context.Context) ([]byte, string, error) {
	zips, err := s.List(ctx, ListFilter{})
	if err != nil {
		return nil, "", err
	}

	table := &export.Table{Headers: []string{"ZIP", "City", "Delivery Day", "Active", "Created At"}}
	for _, z := range zips {
		table.AddRow(z.Zip, z.City, z.DeliveryDay, fmt.Sprintf("%t", z.IsActive), z.CreatedAt.UTC().Format(time.RFC3339))
	}

	data, err := table.CSV()
	if err != nil {
		return nil, "", err
	}
	return data, export.Filename("zip_codes", time.Now()), nil
}

func (s *Service) get(ctx context.Context, id uint) (*ZipCode, error) {
	var row ZipCode
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZipNotFound
		}
		return nil, fmt.Errorf("failed to get zip code: %w", err)
	}
	return &row, nil
}
