// internal/interfaces/http/handlers/subscription.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
)

// SubscriptionHandler serves subscription self-service and admin endpoints
type SubscriptionHandler struct {
	subscriptionService *subscription.Service
	log                 *logrus.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionService *subscription.Service, logger *logrus.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		log:                 logger,
	}
}

// StatusRequest is an admin status override
type StatusRequest struct {
	Status subscription.Status `json:"status" binding:"required"`
}

// GetSubscription handles GET /subscription. A user without a subscription
// gets an empty result, not a 404.
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Get(c.Request.Context(), session.UserID)
	if err != nil && !errors.Is(err, subscription.ErrNotFound) {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Subscription retrieved successfully",
		"subscribed": sub != nil && sub.Status == subscription.StatusActive,
		"data":       sub,
	})
}

// Pause handles POST /subscription/pause
func (h *SubscriptionHandler) Pause(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req subscription.PauseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	sub, err := h.subscriptionService.Pause(c.Request.Context(), session.UserID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Subscription paused", sub)
}

// Resume handles POST /subscription/resume
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Resume(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Subscription resumed", sub)
}

// Cancel handles POST /subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req subscription.CancelRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	sub, err := h.subscriptionService.Cancel(c.Request.Context(), session.UserID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Subscription cancelled", sub)
}

// ListSubscriptions handles GET /admin/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	var filter subscription.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	subs, total, err := h.subscriptionService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Subscriptions retrieved successfully",
		"data":    subs,
		"total":   total,
	})
}

// SetStatus handles PUT /admin/subscriptions/:id/status
func (h *SubscriptionHandler) SetStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sub, err := h.subscriptionService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Subscription status updated", sub)
}

// ResumeDue handles POST /admin/subscriptions/resume-due, resuming paused
// subscriptions whose auto-resume date has arrived
func (h *SubscriptionHandler) ResumeDue(c *gin.Context) {
	resumed, err := h.subscriptionService.ResumeDue(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Due subscriptions resumed",
		"resumed": resumed,
	})
}
