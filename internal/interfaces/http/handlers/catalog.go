// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
)

// CatalogHandler serves products, box sizes and add-on tags
type CatalogHandler struct {
	catalogService *catalog.Service
	log            *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *catalog.Service, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		log:            logger,
	}
}

// ListProducts handles GET /catalog/products. Shoppers only see available
// products.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	h.listProducts(c, true)
}

// AdminListProducts handles GET /admin/products
func (h *CatalogHandler) AdminListProducts(c *gin.Context) {
	h.listProducts(c, false)
}

func (h *CatalogHandler) listProducts(c *gin.Context, availableOnly bool) {
	var filter catalog.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}
	if availableOnly {
		filter.AvailableOnly = true
	}

	products, err := h.catalogService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Products retrieved successfully", products)
}

// GetProduct handles GET /catalog/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetAvailableProduct(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrProductUnavailable) {
		err = catalog.ErrProductNotFound
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Product retrieved successfully", product)
}

// AdminGetProduct handles GET /admin/products/:id
func (h *CatalogHandler) AdminGetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Product retrieved successfully", product)
}

// CreateProduct handles POST /admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req catalog.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "Product created successfully", product)
}

// UpdateProduct handles PUT /admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req catalog.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Product updated successfully", product)
}

// DeleteProduct handles DELETE /admin/products/:id. Products still in use
// are retired instead of deleted.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.catalogService.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	message := "Product deleted successfully"
	if !deleted {
		message = "Product is in use and was marked unavailable"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"deleted": deleted,
	})
}

// ListBoxSizes handles GET /catalog/box-sizes
func (h *CatalogHandler) ListBoxSizes(c *gin.Context) {
	sizes, err := h.catalogService.ListBoxSizes(c.Request.Context(), true)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Box sizes retrieved successfully", sizes)
}

// AdminListBoxSizes handles GET /admin/box-sizes, including inactive tiers
func (h *CatalogHandler) AdminListBoxSizes(c *gin.Context) {
	sizes, err := h.catalogService.ListBoxSizes(c.Request.Context(), false)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Box sizes retrieved successfully", sizes)
}

// UpsertBoxSize handles PUT /admin/box-sizes
func (h *CatalogHandler) UpsertBoxSize(c *gin.Context) {
	var req catalog.BoxSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	size, err := h.catalogService.UpsertBoxSize(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Box size saved successfully", size)
}

// ListTags handles GET /catalog/tags
func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.catalogService.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Tags retrieved successfully", tags)
}

// CreateTag handles POST /admin/tags
func (h *CatalogHandler) CreateTag(c *gin.Context) {
	var req catalog.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tag, err := h.catalogService.CreateTag(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "Tag created successfully", tag)
}

// DeleteTag handles DELETE /admin/tags/:id
func (h *CatalogHandler) DeleteTag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteTag(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Tag deleted successfully", nil)
}
