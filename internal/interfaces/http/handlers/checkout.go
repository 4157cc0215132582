// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/checkout"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/payment"
)

// maxWebhookBytes bounds the Stripe payload read
const maxWebhookBytes = 64 << 10

// CheckoutHandler starts hosted checkouts and receives payment webhooks
type CheckoutHandler struct {
	checkoutService *checkout.Service
	config          *config.Config
	log             *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service, cfg *config.Config, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		config:          cfg,
		log:             logger,
	}
}

// CheckoutBag handles POST /bag/:id/checkout
func (h *CheckoutHandler) CheckoutBag(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	bagID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req checkout.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.checkoutService.CheckoutBag(c.Request.Context(), session, bagID, &req, requestOrigin(c, h.config))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.respondResult(c, result)
}

// GetSelection handles GET /checkout/selection
func (h *CheckoutHandler) GetSelection(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	quote, err := h.checkoutService.GetSelection(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Selection retrieved successfully", quote)
}

// SaveSelection handles PUT /checkout/selection
func (h *CheckoutHandler) SaveSelection(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var sel checkout.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.checkoutService.SaveSelection(c.Request.Context(), session.UserID, &sel)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Selection saved successfully", quote)
}

// ClearSelection handles DELETE /checkout/selection
func (h *CheckoutHandler) ClearSelection(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	if err := h.checkoutService.ClearSelection(c.Request.Context(), session.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Selection cleared", nil)
}

// CheckoutSelection handles POST /checkout/selection/session
func (h *CheckoutHandler) CheckoutSelection(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req checkout.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.checkoutService.CheckoutSelection(c.Request.Context(), session, &req, requestOrigin(c, h.config))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.respondResult(c, result)
}

// Subscribe handles POST /checkout/subscribe
func (h *CheckoutHandler) Subscribe(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req checkout.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.checkoutService.StartSubscription(c.Request.Context(), session, &req, requestOrigin(c, h.config))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.respondResult(c, result)
}

func (h *CheckoutHandler) respondResult(c *gin.Context, result *checkout.Result) {
	if result.Confirmed {
		respondOK(c, "Bag confirmed", result)
		return
	}
	respondCreated(c, "Checkout session created", result)
}

// StripeWebhook handles POST /webhooks/stripe. Bad signatures get a 400.
// Processing failures surface as 500 and Stripe retries them.
func (h *CheckoutHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	err = h.checkoutService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.log.WithError(err).Warn("rejected webhook with bad signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
