// internal/interfaces/http/handlers/template.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/boxtemplate"
)

// TemplateHandler serves the admin box template editor
type TemplateHandler struct {
	templateService *boxtemplate.Service
	log             *logrus.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateService *boxtemplate.Service, logger *logrus.Logger) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		log:             logger,
	}
}

// GetTemplate handles GET /admin/templates?week=&box_size=
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	var key boxtemplate.Key
	if err := c.ShouldBindQuery(&key); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.templateService.List(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Template retrieved successfully", view)
}

// Candidates handles GET /admin/templates/candidates
func (h *TemplateHandler) Candidates(c *gin.Context) {
	var key boxtemplate.Key
	if err := c.ShouldBindQuery(&key); err != nil {
		respondBindError(c, err)
		return
	}

	products, err := h.templateService.CandidateProducts(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Candidate products retrieved successfully", products)
}

// AddItem handles POST /admin/templates/items
func (h *TemplateHandler) AddItem(c *gin.Context) {
	var req boxtemplate.AddProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	row, err := h.templateService.AddProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondCreated(c, "Product added to template", row)
}

// UpdateItem handles PUT /admin/templates/items/:id. A quantity of zero
// removes the line.
func (h *TemplateHandler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req boxtemplate.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	row, err := h.templateService.SetQuantity(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if row == nil {
		respondOK(c, "Product removed from template", nil)
		return
	}
	respondOK(c, "Template item updated", row)
}

// CopyPrevious handles POST /admin/templates/copy-previous
func (h *TemplateHandler) CopyPrevious(c *gin.Context) {
	var key boxtemplate.Key
	if err := c.ShouldBindJSON(&key); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.templateService.CopyFromPreviousWeek(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Template copied from previous week", result)
}

// Confirm handles POST /admin/templates/confirm
func (h *TemplateHandler) Confirm(c *gin.Context) {
	h.transition(c, true)
}

// Unconfirm handles POST /admin/templates/unconfirm
func (h *TemplateHandler) Unconfirm(c *gin.Context) {
	h.transition(c, false)
}

func (h *TemplateHandler) transition(c *gin.Context, confirm bool) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var key boxtemplate.Key
	if err := c.ShouldBindJSON(&key); err != nil {
		respondBindError(c, err)
		return
	}

	var (
		result *boxtemplate.TransitionResult
		err    error
	)
	if confirm {
		result, err = h.templateService.Confirm(c.Request.Context(), session, key)
	} else {
		result, err = h.templateService.Unconfirm(c.Request.Context(), session, key)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, result.Message, result)
}

// DeleteTemplate handles DELETE /admin/templates?week=&box_size=
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	var key boxtemplate.Key
	if err := c.ShouldBindQuery(&key); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.templateService.DeleteWeek(c.Request.Context(), key); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Template deleted", nil)
}
