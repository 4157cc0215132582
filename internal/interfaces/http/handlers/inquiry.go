// internal/interfaces/http/handlers/inquiry.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/inquiry"
)

// InquiryHandler serves the public intake forms and their admin consoles
type InquiryHandler struct {
	inquiryService *inquiry.Service
	log            *logrus.Logger
}

// NewInquiryHandler creates a new inquiry handler
func NewInquiryHandler(inquiryService *inquiry.Service, logger *logrus.Logger) *InquiryHandler {
	return &InquiryHandler{
		inquiryService: inquiryService,
		log:            logger,
	}
}

// FishAlertActiveRequest toggles a fish alert
type FishAlertActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// NotifyFishAlertsRequest lists the alerts that were just notified. An
// empty list means every active alert.
type NotifyFishAlertsRequest struct {
	IDs []uint `json:"ids"`
}

// SubmitPartnerApplication handles POST /partner-applications
func (h *InquiryHandler) SubmitPartnerApplication(c *gin.Context) {
	var req inquiry.PartnerApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	app, err := h.inquiryService.SubmitPartnerApplication(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "Application received, we will be in touch soon", app)
}

// ListPartnerApplications handles GET /admin/partner-applications
func (h *InquiryHandler) ListPartnerApplications(c *gin.Context) {
	apps, err := h.inquiryService.ListPartnerApplications(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Partner applications retrieved successfully", apps)
}

// UpdatePartnerApplication handles PUT /admin/partner-applications/:id
func (h *InquiryHandler) UpdatePartnerApplication(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inquiry.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	app, err := h.inquiryService.UpdatePartnerApplication(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Partner application updated", app)
}

// DeletePartnerApplication handles DELETE /admin/partner-applications/:id
func (h *InquiryHandler) DeletePartnerApplication(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.inquiryService.DeletePartnerApplication(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Partner application deleted", nil)
}

// ExportPartnerApplications handles GET /admin/partner-applications/export
func (h *InquiryHandler) ExportPartnerApplications(c *gin.Context) {
	data, filename, err := h.inquiryService.ExportPartnerApplications(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "text/csv", filename, data)
}

// SubscribeFishAlert handles POST /fish-alerts
func (h *InquiryHandler) SubscribeFishAlert(c *gin.Context) {
	var req inquiry.FishAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	alert, err := h.inquiryService.SubscribeFishAlert(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "You're on the list for fresh catch alerts", alert)
}

// ListFishAlerts handles GET /admin/fish-alerts
func (h *InquiryHandler) ListFishAlerts(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"

	alerts, err := h.inquiryService.ListFishAlerts(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Fish alerts retrieved successfully", alerts)
}

// SetFishAlertActive handles PUT /admin/fish-alerts/:id
func (h *InquiryHandler) SetFishAlertActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req FishAlertActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	alert, err := h.inquiryService.SetFishAlertActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Fish alert updated", alert)
}

// MarkFishAlertsNotified handles POST /admin/fish-alerts/notified
func (h *InquiryHandler) MarkFishAlertsNotified(c *gin.Context) {
	var req NotifyFishAlertsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	marked, err := h.inquiryService.MarkFishAlertsNotified(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Fish alerts marked as notified",
		"marked":  marked,
	})
}

// DeleteFishAlert handles DELETE /admin/fish-alerts/:id
func (h *InquiryHandler) DeleteFishAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.inquiryService.DeleteFishAlert(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Fish alert deleted", nil)
}

// ExportFishAlerts handles GET /admin/fish-alerts/export
func (h *InquiryHandler) ExportFishAlerts(c *gin.Context) {
	data, filename, err := h.inquiryService.ExportFishAlerts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "text/csv", filename, data)
}

// SubmitBouquetRequest handles POST /bouquet-requests
func (h *InquiryHandler) SubmitBouquetRequest(c *gin.Context) {
	var req inquiry.BouquetRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.inquiryService.SubmitBouquetRequest(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "Bouquet request received", request)
}

// ListBouquetRequests handles GET /admin/bouquet-requests
func (h *InquiryHandler) ListBouquetRequests(c *gin.Context) {
	requests, err := h.inquiryService.ListBouquetRequests(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Bouquet requests retrieved successfully", requests)
}

// UpdateBouquetRequest handles PUT /admin/bouquet-requests/:id
func (h *InquiryHandler) UpdateBouquetRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inquiry.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.inquiryService.UpdateBouquetStatus(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Bouquet request updated", request)
}

// DeleteBouquetRequest handles DELETE /admin/bouquet-requests/:id
func (h *InquiryHandler) DeleteBouquetRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.inquiryService.DeleteBouquetRequest(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Bouquet request deleted", nil)
}

// ExportBouquetRequests handles GET /admin/bouquet-requests/export
func (h *InquiryHandler) ExportBouquetRequests(c *gin.Context) {
	data, filename, err := h.inquiryService.ExportBouquetRequests(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "text/csv", filename, data)
}
