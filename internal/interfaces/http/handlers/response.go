// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/bag"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/boxtemplate"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/checkout"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/delivery"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/inquiry"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/payment"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/user"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/interfaces/http/middleware"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/contact"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/week"
)

// errorStatuses maps domain sentinels to HTTP statuses. Anything not listed
// is reported as a 500 with a generic message.
var errorStatuses = []struct {
	err    error
	status int
}{
	// 400
	{catalog.ErrInvalidCategory, http.StatusBadRequest},
	{catalog.ErrInvalidPrice, http.StatusBadRequest},
	{catalog.ErrProductUnavailable, http.StatusBadRequest},
	{boxtemplate.ErrEmptyTemplate, http.StatusBadRequest},
	{checkout.ErrNothingToCharge, http.StatusBadRequest},
	{checkout.ErrInvalidCustomer, http.StatusBadRequest},
	{checkout.ErrZipNotServed, http.StatusBadRequest},
	{payment.ErrNoLineItems, http.StatusBadRequest},
	{payment.ErrInvalidSignature, http.StatusBadRequest},
	{inquiry.ErrInvalidStatus, http.StatusBadRequest},
	{inquiry.ErrContactRequired, http.StatusBadRequest},
	{inquiry.ErrInvalidBudget, http.StatusBadRequest},
	{inquiry.ErrInvalidDate, http.StatusBadRequest},
	{inquiry.ErrDeliveryDateInPast, http.StatusBadRequest},
	{order.ErrInvalidStatus, http.StatusBadRequest},
	{subscription.ErrInvalidStatus, http.StatusBadRequest},
	{subscription.ErrInvalidResumeDate, http.StatusBadRequest},
	{user.ErrPasswordMismatch, http.StatusBadRequest},
	{user.ErrWeakPassword, http.StatusBadRequest},
	{user.ErrSelfDeactivation, http.StatusBadRequest},
	{user.ErrSelfDemotion, http.StatusBadRequest},
	{contact.ErrInvalidPhone, http.StatusBadRequest},
	{contact.ErrInvalidZip, http.StatusBadRequest},
	{contact.ErrInvalidEmail, http.StatusBadRequest},
	{week.ErrInvalidWeek, http.StatusBadRequest},

	// 401
	{user.ErrInvalidCredentials, http.StatusUnauthorized},
	{user.ErrInvalidToken, http.StatusUnauthorized},
	{checkout.ErrUnauthorized, http.StatusUnauthorized},

	// 403
	{boxtemplate.ErrForbidden, http.StatusForbidden},

	// 404
	{catalog.ErrProductNotFound, http.StatusNotFound},
	{catalog.ErrBoxSizeNotFound, http.StatusNotFound},
	{catalog.ErrTagNotFound, http.StatusNotFound},
	{boxtemplate.ErrTemplateNotFound, http.StatusNotFound},
	{boxtemplate.ErrRowNotFound, http.StatusNotFound},
	{bag.ErrBagNotFound, http.StatusNotFound},
	{checkout.ErrSelectionNotFound, http.StatusNotFound},
	{delivery.ErrZipNotFound, http.StatusNotFound},
	{inquiry.ErrNotFound, http.StatusNotFound},
	{order.ErrOrderNotFound, http.StatusNotFound},
	{subscription.ErrNotFound, http.StatusNotFound},
	{user.ErrUserNotFound, http.StatusNotFound},

	// 409
	{catalog.ErrDuplicateTag, http.StatusConflict},
	{boxtemplate.ErrAlreadyInTemplate, http.StatusConflict},
	{boxtemplate.ErrTemplateConfirmed, http.StatusConflict},
	{boxtemplate.ErrConcurrentUpdate, http.StatusConflict},
	{bag.ErrBagConfirmed, http.StatusConflict},
	{bag.ErrBagLocked, http.StatusConflict},
	{bag.ErrCheckoutPending, http.StatusConflict},
	{checkout.ErrTemplateNotReady, http.StatusConflict},
	{checkout.ErrAlreadySubscribed, http.StatusConflict},
	{delivery.ErrDuplicateZip, http.StatusConflict},
	{order.ErrInvalidTransition, http.StatusConflict},
	{subscription.ErrInvalidTransition, http.StatusConflict},
	{user.ErrEmailTaken, http.StatusConflict},
	{user.ErrLastAdmin, http.StatusConflict},
}

// statusFor returns the HTTP status for err and the sentinel that matched
func statusFor(err error) (int, error) {
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			return entry.status, entry.err
		}
	}
	return http.StatusInternalServerError, nil
}

// respondError writes an error response. Known errors surface their own
// message; unexpected ones are logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, sentinel := statusFor(err)
	if sentinel == nil {
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).WithError(err).Error("request failed")
		c.JSON(status, gin.H{"error": "Something went wrong, please try again"})
		return
	}
	c.JSON(status, gin.H{"error": sentinel.Error()})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

// bindOptionalJSON binds a JSON body when one was sent
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    data,
	})
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"data":    data,
	})
}

// respondFile sends an attachment such as a CSV export or a PDF receipt
func respondFile(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, contentType, data)
}

// parseID reads a positive numeric path parameter, writing a 400 when it
// is malformed
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid %s", strings.ReplaceAll(name, "_", " ")),
		})
		return 0, false
	}
	return uint(id), true
}

// requireSession returns the caller's session or writes a 401
func requireSession(c *gin.Context) (*auth.Session, bool) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return nil, false
	}
	return session, true
}

// requestOrigin picks the storefront origin used for checkout redirects.
// A browser Origin header wins when it is an allowed CORS origin.
func requestOrigin(c *gin.Context, cfg *config.Config) string {
	origin := strings.TrimRight(c.GetHeader("Origin"), "/")
	if origin != "" {
		for _, allowed := range cfg.Security.CORSAllowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return origin
			}
		}
	}
	return strings.TrimRight(cfg.App.FrontendURL, "/")
}
