// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/analytics"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/money"
)

// AnalyticsHandler handles the admin dashboard and packing sheets
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	log              *logrus.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		log:              logger,
	}
}

// GetDashboard handles GET /admin/dashboard?week=
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context(), c.Query("week"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard statistics retrieved successfully",
		"data":    stats,
		"display": gin.H{
			"paid_revenue":    money.FormatUSD(stats.PaidRevenue),
			"avg_order_value": money.FormatUSD(stats.AvgOrderValue),
		},
	})
}

// GetWeeklyRevenue handles GET /admin/dashboard/revenue?weeks=
func (h *AnalyticsHandler) GetWeeklyRevenue(c *gin.Context) {
	weeks, _ := strconv.Atoi(c.DefaultQuery("weeks", "12"))

	series, err := h.analyticsService.GetWeeklyRevenue(c.Request.Context(), weeks)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Weekly revenue retrieved successfully", series)
}

// GetPackingList handles GET /admin/packing-list?week=
func (h *AnalyticsHandler) GetPackingList(c *gin.Context) {
	lines, err := h.analyticsService.GetPackingList(c.Request.Context(), c.Query("week"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Packing list retrieved successfully", lines)
}

// ExportPackingList handles GET /admin/packing-list/export?week=
func (h *AnalyticsHandler) ExportPackingList(c *gin.Context) {
	data, filename, err := h.analyticsService.ExportPackingList(c.Request.Context(), c.Query("week"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "text/csv", filename, data)
}
