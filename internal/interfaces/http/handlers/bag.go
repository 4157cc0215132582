// internal/interfaces/http/handlers/bag.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/bag"
)

// BagHandler serves the shopper's weekly bag
type BagHandler struct {
	bagService *bag.Service
	log        *logrus.Logger
}

// NewBagHandler creates a new bag handler
func NewBagHandler(bagService *bag.Service, logger *logrus.Logger) *BagHandler {
	return &BagHandler{
		bagService: bagService,
		log:        logger,
	}
}

// GetCurrentBag handles GET /bag?box_size=
func (h *BagHandler) GetCurrentBag(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	view, err := h.bagService.GetCurrentBag(c.Request.Context(), session.UserID, c.Query("box_size"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Bag retrieved successfully", view)
}

// UpdateItem handles PUT /bag/:id/items/:product_id. A quantity of zero
// removes the add-on.
func (h *BagHandler) UpdateItem(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	bagID, ok := parseID(c, "id")
	if !ok {
		return
	}
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	var req bag.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	applied, err := h.bagService.UpdateItemQuantity(ctx, session.UserID, bagID, productID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	view, err := h.bagService.ViewBag(ctx, session.UserID, bagID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	message := "Bag updated successfully"
	if !applied {
		message = "Item can no longer be changed"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"applied": applied,
		"data":    view,
	})
}

// ChangeBoxSize handles PUT /bag/:id/box-size
func (h *BagHandler) ChangeBoxSize(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	bagID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req bag.ChangeBoxSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.bagService.ChangeBoxSize(c.Request.Context(), session.UserID, bagID, req.BoxSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Box size updated successfully", view)
}

// ListBags handles GET /admin/bags
func (h *BagHandler) ListBags(c *gin.Context) {
	var filter bag.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	bags, total, err := h.bagService.ListBags(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bags retrieved successfully",
		"data":    bags,
		"total":   total,
	})
}
