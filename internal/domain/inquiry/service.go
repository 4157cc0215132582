// internal/domain/inquiry/service.go
package inquiry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/contact"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/export"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/money"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
)

var (
	ErrNotFound           = errors.New("inquiry not found")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrContactRequired    = errors.New("an email address or phone number is required")
	ErrInvalidBudget      = errors.New("budget must be a non-negative dollar amount")
	ErrInvalidDate        = errors.New("delivery date must be a YYYY-MM-DD date")
	ErrDeliveryDateInPast = errors.New("delivery date cannot be in the past")
)

// Service handles the storefront's public forms and their admin consoles
type Service struct {
	db     *gorm.DB
	config *config.Config
	log    *logrus.Logger
	now    func() time.Time
}

// NewService creates a new inquiry service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		log:    logger,
		now:    time.Now,
	}
}

// PartnerApplicationRequest is the public partner form
type PartnerApplicationRequest struct {
	BusinessName string `json:"business_name" binding:"required,max=255"`
	ContactName  string `json:"contact_name" binding:"required,max=255"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	BusinessType string `json:"business_type" binding:"max=100"`
	Website      string `json:"website" binding:"omitempty,url"`
	Message      string `json:"message" binding:"max=5000"`
}

// FishAlertRequest is the public fish alert signup
type FishAlertRequest struct {
	Name             string `json:"name" binding:"max=255"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	PreferredSpecies string `json:"preferred_species" binding:"max=500"`
}

// BouquetRequestInput is the public bouquet form. Budget is in dollars.
type BouquetRequestInput struct {
	Name         string `json:"name" binding:"required,max=255"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	Occasion     string `json:"occasion" binding:"max=100"`
	DeliveryDate string `json:"delivery_date" binding:"required"`
	Budget       string `json:"budget"`
	Notes        string `json:"notes" binding:"max=5000"`
}

// StatusUpdateRequest moves an application or bouquet request along
type StatusUpdateRequest struct {
	Status     string  `json:"status" binding:"required"`
	AdminNotes *string `json:"admin_notes"`
}

// SubmitPartnerApplication stores a new application
func (s *Service) SubmitPartnerApplication(ctx context.Context, req *PartnerApplicationRequest) (*PartnerApplication, error) {
	email, err := contact.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := optionalPhone(req.Phone)
	if err != nil {
		return nil, err
	}

	app := PartnerApplication{
		BusinessName: strings.TrimSpace(req.BusinessName),
		ContactName:  strings.TrimSpace(req.ContactName),
		Email:        email,
		Phone:        phone,
		BusinessType: strings.TrimSpace(req.BusinessType),
		Website:      strings.TrimSpace(req.Website),
		Message:      strings.TrimSpace(req.Message),
		Status:       ApplicationNew,
	}
	if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
		return nil, fmt.Errorf("failed to save partner application: %w", err)
	}

	s.log.WithFields(logrus.Fields{"application_id": app.ID, "business": app.BusinessName}).Info("partner application received")
	return &app, nil
}

// ListPartnerApplications returns applications, newest first
func (s *Service) ListPartnerApplications(ctx context.Context, status string) ([]PartnerApplication, error) {
	var apps []PartnerApplication
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list partner applications: %w", err)
	}
	return apps, nil
}

// UpdatePartnerApplication sets the review status and optionally the notes
func (s *Service) UpdatePartnerApplication(ctx context.Context, id uint, req *StatusUpdateRequest) (*PartnerApplication, error) {
	status := ApplicationStatus(req.Status)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var app PartnerApplication
	if err := s.find(ctx, &app, id); err != nil {
		return nil, err
	}

	app.Status = status
	if req.AdminNotes != nil {
		app.AdminNotes = strings.TrimSpace(*req.AdminNotes)
	}
	if err := s.db.WithContext(ctx).Save(&app).Error; err != nil {
		return nil, fmt.Errorf("failed to update partner application: %w", err)
	}
	return &app, nil
}

// DeletePartnerApplication removes an application
func (s *Service) DeletePartnerApplication(ctx context.Context, id uint) error {
	return s.delete(ctx, &PartnerApplication{}, id)
}

// ExportPartnerApplications writes every application as CSV
func (s *Service) ExportPartnerApplications(ctx context.Context) ([]byte, string, error) {
	apps, err := s.ListPartnerApplications(ctx, "")
	if err != nil {
		return nil, "", err
	}

	table := &export.Table{Headers: []string{
		"Business Name", "Contact Name", "Email", "Phone", "Business Type", "Website", "Message", "Status", "Admin Notes", "Submitted At",
	}}
	for _, a := range apps {
		table.AddRow(a.BusinessName, a.ContactName, a.Email, a.Phone, a.BusinessType, a.Website, a.Message,
			string(a.Status), a.AdminNotes, a.CreatedAt.UTC().Format(time.RFC3339))
	}
	return s.csv(table, "partner_applications")
}

// SubscribeFishAlert signs a customer up for fish alerts. Signing up again
// with the same email or phone reactivates the existing alert.
func (s *Service) SubscribeFishAlert(ctx context.Context, req *FishAlertRequest) (*FishAlert, error) {
	var email, phone string
	var err error
	if strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.Phone) == "" {
		return nil, ErrContactRequired
	}
	if strings.TrimSpace(req.Email) != "" {
		if email, err = contact.NormalizeEmail(req.Email); err != nil {
			return nil, err
		}
	}
	if phone, err = optionalPhone(req.Phone); err != nil {
		return nil, err
	}

	var alert FishAlert
	query := s.db.WithContext(ctx)
	switch {
	case email != "" && phone != "":
		query = query.Where("email = ? OR phone = ?", email, phone)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		query = query.Where("phone = ?", phone)
	}
	err = query.First(&alert).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up fish alert: %w", err)
	}

	alert.Name = strings.TrimSpace(req.Name)
	alert.PreferredSpecies = strings.TrimSpace(req.PreferredSpecies)
	alert.IsActive = true
	if email != "" {
		alert.Email = email
	}
	if phone != "" {
		alert.Phone = phone
	}
	if err := s.db.WithContext(ctx).Save(&alert).Error; err != nil {
		return nil, fmt.Errorf("failed to save fish alert: %w", err)
	}
	return &alert, nil
}

// ListFishAlerts returns alerts, newest first
func (s *Service) ListFishAlerts(ctx context.Context, activeOnly bool) ([]FishAlert, error) {
	var alerts []FishAlert
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list fish alerts: %w", err)
	}
	return alerts, nil
}

// SetFishAlertActive turns an alert on or off
func (s *Service) SetFishAlertActive(ctx context.Context, id uint, active bool) (*FishAlert, error) {
	var alert FishAlert
	if err := s.find(ctx, &alert, id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&alert).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update fish alert: %w", err)
	}
	alert.IsActive = active
	return &alert, nil
}

// MarkFishAlertsNotified stamps last_notified_at on the given alerts, or on
// every active alert when ids is empty
func (s *Service) MarkFishAlertsNotified(ctx context.Context, ids []uint) (int64, error) {
	query := s.db.WithContext(ctx).Model(&FishAlert{}).Where("is_active = ?", true)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	res := query.Update("last_notified_at", s.now().UTC())
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark fish alerts notified: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteFishAlert removes an alert
func (s *Service) DeleteFishAlert(ctx context.Context, id uint) error {
	return s.delete(ctx, &FishAlert{}, id)
}

// ExportFishAlerts writes every alert as CSV
func (s *Service) ExportFishAlerts(ctx context.Context) ([]byte, string, error) {
	alerts, err := s.ListFishAlerts(ctx, false)
	if err != nil {
		return nil, "", err
	}

	table := &export.Table{Headers: []string{"Name", "Email", "Phone", "Preferred Species", "Active", "Last Notified", "Signed Up At"}}
	for _, a := range alerts {
		table.AddRow(a.Name, a.Email, a.Phone, a.PreferredSpecies, fmt.Sprintf("%t", a.IsActive),
			export.Time(a.LastNotifiedAt), a.CreatedAt.UTC().Format(time.RFC3339))
	}
	return s.csv(table, "fish_alerts")
}

// SubmitBouquetRequest validates and stores a bouquet request
func (s *Service) SubmitBouquetRequest(ctx context.Context, req *BouquetRequestInput) (*BouquetRequest, error) {
	email, err := contact.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := optionalPhone(req.Phone)
	if err != nil {
		return nil, err
	}

	loc := s.config.Storefront.Location()
	date, err := time.ParseInLocation(week.DateLayout, strings.TrimSpace(req.DeliveryDate), loc)
	if err != nil {
		return nil, ErrInvalidDate
	}
	y, m, d := s.now().In(loc).Date()
	if date.Before(time.Date(y, m, d, 0, 0, 0, 0, loc)) {
		return nil, ErrDeliveryDateInPast
	}

	var budget int64
	if b := strings.TrimSpace(req.Budget); b != "" {
		if budget, err = money.ParseDollars(b); err != nil || budget < 0 {
			return nil, ErrInvalidBudget
		}
	}

	bouquet := BouquetRequest{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        phone,
		Occasion:     strings.TrimSpace(req.Occasion),
		DeliveryDate: date.Format(week.DateLayout),
		Budget:       budget,
		Notes:        strings.TrimSpace(req.Notes),
		Status:       BouquetNew,
	}
	if err := s.db.WithContext(ctx).Create(&bouquet).Error; err != nil {
		return nil, fmt.Errorf("failed to save bouquet request: %w", err)
	}

	s.log.WithFields(logrus.Fields{"bouquet_id": bouquet.ID, "delivery_date": bouquet.DeliveryDate}).Info("bouquet request received")
	return &bouquet, nil
}

// ListBouquetRequests returns requests by delivery date
func (s *Service) ListBouquetRequests(ctx context.Context, status string) ([]BouquetRequest, error) {
	var requests []BouquetRequest
	query := s.db.WithContext(ctx).Order("delivery_date ASC, id ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list bouquet requests: %w", err)
	}
	return requests, nil
}

// UpdateBouquetStatus moves a bouquet request to another status
func (s *Service) UpdateBouquetStatus(ctx context.Context, id uint, req *StatusUpdateRequest) (*BouquetRequest, error) {
	status := BouquetStatus(req.Status)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var bouquet BouquetRequest
	if err := s.find(ctx, &bouquet, id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&bouquet).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update bouquet request: %w", err)
	}
	bouquet.Status = status
	return &bouquet, nil
}

// DeleteBouquetRequest removes a request
func (s *Service) DeleteBouquetRequest(ctx context.Context, id uint) error {
	return s.delete(ctx, &BouquetRequest{}, id)
}

// ExportBouquetRequests writes every request as CSV
func (s *Service) ExportBouquetRequests(ctx context.Context) ([]byte, string, error) {
	requests, err := s.ListBouquetRequests(ctx, "")
	if err != nil {
		return nil, "", err
	}

	table := &export.Table{Headers: []string{"Name", "Email", "Phone", "Occasion", "Delivery Date", "Budget", "Notes", "Status", "Submitted At"}}
	for _, r := range requests {
		table.AddRow(r.Name, r.Email, r.Phone, r.Occasion, r.DeliveryDate, money.Format(r.Budget), r.Notes,
			string(r.Status), r.CreatedAt.UTC().Format(time.RFC3339))
	}
	return s.csv(table, "bouquet_requests")
}

func (s *Service) find(ctx context.Context, dest interface{}, id uint) error {
	if err := s.db.WithContext(ctx).First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get inquiry: %w", err)
	}
	return nil
}

func (s *Service) delete(ctx context.Context, model interface{}, id uint) error {
	res := s.db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete inquiry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) csv(table *export.Table, prefix string) ([]byte, string, error) {
	data, err := table.CSV()
	if err != nil {
		return nil, "", err
	}
	return data, export.Filename(prefix, s.now()), nil
}

func optionalPhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return contact.NormalizePhone(raw)
}
