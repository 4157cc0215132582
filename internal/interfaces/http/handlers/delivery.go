// internal/interfaces/http/handlers/delivery.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/delivery"
)

// DeliveryHandler serves the delivery ZIP lookup and its admin console
type DeliveryHandler struct {
	deliveryService *delivery.Service
	log             *logrus.Logger
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryService *delivery.Service, logger *logrus.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		log:             logger,
	}
}

// CheckZip handles GET /zip-codes/:zip/check
func (h *DeliveryHandler) CheckZip(c *gin.Context) {
	result, err := h.deliveryService.Check(c.Request.Context(), c.Param("zip"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	message := "We deliver to this ZIP code"
	if !result.Served {
		message = "We do not deliver to this ZIP code yet"
	}
	respondOK(c, message, result)
}

// ListZipCodes handles GET /admin/zip-codes
func (h *DeliveryHandler) ListZipCodes(c *gin.Context) {
	var filter delivery.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	zips, err := h.deliveryService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "ZIP codes retrieved successfully", zips)
}

// CreateZipCode handles POST /admin/zip-codes
func (h *DeliveryHandler) CreateZipCode(c *gin.Context) {
	var req delivery.ZipCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	zip, err := h.deliveryService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "ZIP code created successfully", zip)
}

// UpdateZipCode handles PUT /admin/zip-codes/:id
func (h *DeliveryHandler) UpdateZipCode(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req delivery.ZipCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	zip, err := h.deliveryService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "ZIP code updated successfully", zip)
}

// DeleteZipCode handles DELETE /admin/zip-codes/:id
func (h *DeliveryHandler) DeleteZipCode(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.deliveryService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "ZIP code deleted successfully", nil)
}

// ExportZipCodes handles GET /admin/zip-codes/export
func (h *DeliveryHandler) ExportZipCodes(c *gin.Context) {
	data, filename, err := h.deliveryService.ExportCSV(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "text/csv", filename, data)
}
