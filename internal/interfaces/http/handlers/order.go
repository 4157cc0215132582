// internal/interfaces/http/handlers/order.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	log          *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          logger,
	}
}

// GetOrders handles GET /orders (user's own orders)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	orders, err := h.orderService.ListUserOrders(c.Request.Context(), session.UserID, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Orders retrieved successfully", orders)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetUserOrder(c.Request.Context(), session.UserID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Order retrieved successfully", o)
}

// GetOrderBySession handles GET /orders/session/:session_id for the
// checkout success page. The order stays pending until the webhook lands.
func (h *OrderHandler) GetOrderBySession(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	o, err := h.orderService.GetBySession(c.Request.Context(), session.UserID, c.Param("session_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Order retrieved successfully", o)
}

// DownloadReceipt handles GET /orders/:id/receipt
func (h *OrderHandler) DownloadReceipt(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetUserOrder(c.Request.Context(), session.UserID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	buf, filename, err := h.orderService.Receipt(o)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "application/pdf", filename, buf.Bytes())
}

// AdminGetOrders handles GET /admin/orders
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	orders, err := h.orderService.GetOrders(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Orders retrieved successfully", orders)
}

// AdminGetOrder handles GET /admin/orders/:id
func (h *OrderHandler) AdminGetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Order retrieved successfully", o)
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orderService.UpdateOrderStatus(c.Request.Context(), id, &req, session.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Order status updated successfully", o)
}

// ExportOrders handles GET /admin/orders/export
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	data, filename, err := h.orderService.ExportCSV(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondFile(c, "text/csv", filename, data)
}
