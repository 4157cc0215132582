// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/analytics"
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
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/interfaces/http/handlers"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/interfaces/http/middleware"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/email"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/pdf"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	Config *config.Config
	Logger *logrus.Logger

	Users         *user.Service
	Admins        *user.AdminService
	Catalog       *catalog.Service
	Templates     *boxtemplate.Service
	Bags          *bag.Service
	Subscriptions *subscription.Service
	Orders        *order.Service
	Delivery      *delivery.Service
	Inquiries     *inquiry.Service
	Checkout      *checkout.Service
	Analytics     *analytics.Service
}

// NewDependencies wires every domain service against the shared stores
func NewDependencies(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger, provider payment.Provider) *Dependencies {
	catalogService := catalog.NewService(db, redisClient, cfg, logger)
	templateService := boxtemplate.NewService(db, catalogService, cfg, logger)
	bagService := bag.NewService(db, catalogService, templateService, cfg, logger)
	subscriptionService := subscription.NewService(db, cfg, logger)
	orderService := order.NewService(db, cfg, pdf.NewService(cfg), logger)
	deliveryService := delivery.NewService(db, redisClient, cfg, logger)

	checkoutService := checkout.NewService(db, redisClient, cfg, logger, provider, checkout.Services{
		Catalog:       catalogService,
		Templates:     templateService,
		Bags:          bagService,
		Subscriptions: subscriptionService,
		Orders:        orderService,
		Delivery:      deliveryService,
		Notifier:      email.NewEmailService(cfg, logger),
	})

	return &Dependencies{
		Config:        cfg,
		Logger:        logger,
		Users:         user.NewService(db, redisClient, cfg, logger),
		Admins:        user.NewAdminService(db, cfg, logger),
		Catalog:       catalogService,
		Templates:     templateService,
		Bags:          bagService,
		Subscriptions: subscriptionService,
		Orders:        orderService,
		Delivery:      deliveryService,
		Inquiries:     inquiry.NewService(db, cfg, logger),
		Checkout:      checkoutService,
		Analytics:     analytics.NewService(db, cfg, logger),
	}
}

func (d *Dependencies) authRequired() gin.HandlerFunc {
	return middleware.AuthMiddleware(d.Config, d.Users, d.Logger)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, d *Dependencies) {
	authHandler := handlers.NewAuthHandler(d.Users, d.Logger)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(d.authRequired())
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
		}
	}
}

// SetupCatalogRoutes sets up the public storefront catalog
func SetupCatalogRoutes(rg *gin.RouterGroup, d *Dependencies) {
	catalogHandler := handlers.NewCatalogHandler(d.Catalog, d.Logger)

	catalog := rg.Group("/catalog")
	{
		catalog.GET("/products", catalogHandler.ListProducts)
		catalog.GET("/products/:id", catalogHandler.GetProduct)
		catalog.GET("/box-sizes", catalogHandler.ListBoxSizes)
		catalog.GET("/tags", catalogHandler.ListTags)
	}
}

// SetupPublicFormRoutes sets up ZIP lookup and the public intake forms
func SetupPublicFormRoutes(rg *gin.RouterGroup, d *Dependencies) {
	deliveryHandler := handlers.NewDeliveryHandler(d.Delivery, d.Logger)
	inquiryHandler := handlers.NewInquiryHandler(d.Inquiries, d.Logger)

	rg.GET("/zip-codes/:zip/check", deliveryHandler.CheckZip)
	rg.POST("/partner-applications", inquiryHandler.SubmitPartnerApplication)
	rg.POST("/fish-alerts", inquiryHandler.SubscribeFishAlert)
	rg.POST("/bouquet-requests", inquiryHandler.SubmitBouquetRequest)
}

// SetupBagRoutes sets up the shopper's weekly bag routes
func SetupBagRoutes(rg *gin.RouterGroup, d *Dependencies) {
	bagHandler := handlers.NewBagHandler(d.Bags, d.Logger)
	checkoutHandler := handlers.NewCheckoutHandler(d.Checkout, d.Config, d.Logger)

	bags := rg.Group("/bag")
	bags.Use(d.authRequired())
	{
		bags.GET("", bagHandler.GetCurrentBag)
		bags.PUT("/:id/items/:product_id", bagHandler.UpdateItem)
		bags.PUT("/:id/box-size", bagHandler.ChangeBoxSize)
		bags.POST("/:id/checkout", checkoutHandler.CheckoutBag)
	}
}

// SetupCheckoutRoutes sets up ad-hoc selection checkout and subscription signup
func SetupCheckoutRoutes(rg *gin.RouterGroup, d *Dependencies) {
	checkoutHandler := handlers.NewCheckoutHandler(d.Checkout, d.Config, d.Logger)

	checkout := rg.Group("/checkout")
	checkout.Use(d.authRequired())
	{
		checkout.GET("/selection", checkoutHandler.GetSelection)
		checkout.PUT("/selection", checkoutHandler.SaveSelection)
		checkout.DELETE("/selection", checkoutHandler.ClearSelection)
		checkout.POST("/selection/session", checkoutHandler.CheckoutSelection)
		checkout.POST("/subscribe", checkoutHandler.Subscribe)
	}
}

// SetupSubscriptionRoutes sets up subscription self-service
func SetupSubscriptionRoutes(rg *gin.RouterGroup, d *Dependencies) {
	subscriptionHandler := handlers.NewSubscriptionHandler(d.Subscriptions, d.Logger)

	subscription := rg.Group("/subscription")
	subscription.Use(d.authRequired())
	{
		subscription.GET("", subscriptionHandler.GetSubscription)
		subscription.POST("/pause", subscriptionHandler.Pause)
		subscription.POST("/resume", subscriptionHandler.Resume)
		subscription.POST("/cancel", subscriptionHandler.Cancel)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, d *Dependencies) {
	orderHandler := handlers.NewOrderHandler(d.Orders, d.Logger)

	orders := rg.Group("/orders")
	orders.Use(d.authRequired())
	{
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/session/:session_id", orderHandler.GetOrderBySession)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/receipt", orderHandler.DownloadReceipt)
	}
}

// SetupWebhookRoutes sets up payment provider webhooks. They authenticate
// by signature, not by token.
func SetupWebhookRoutes(rg *gin.RouterGroup, d *Dependencies) {
	checkoutHandler := handlers.NewCheckoutHandler(d.Checkout, d.Config, d.Logger)

	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/stripe", checkoutHandler.StripeWebhook)
	}
}

// SetupAdminRoutes sets up the back office
func SetupAdminRoutes(rg *gin.RouterGroup, d *Dependencies) {
	catalogHandler := handlers.NewCatalogHandler(d.Catalog, d.Logger)
	templateHandler := handlers.NewTemplateHandler(d.Templates, d.Logger)
	bagHandler := handlers.NewBagHandler(d.Bags, d.Logger)
	orderHandler := handlers.NewOrderHandler(d.Orders, d.Logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(d.Subscriptions, d.Logger)
	deliveryHandler := handlers.NewDeliveryHandler(d.Delivery, d.Logger)
	inquiryHandler := handlers.NewInquiryHandler(d.Inquiries, d.Logger)
	userAdminHandler := handlers.NewUserAdminHandler(d.Admins, d.Logger)
	analyticsHandler := handlers.NewAnalyticsHandler(d.Analytics, d.Logger)

	admin := rg.Group("/admin")
	admin.Use(d.authRequired())
	admin.Use(middleware.AdminMiddleware())
	{
		// Dashboard
		admin.GET("/dashboard", analyticsHandler.GetDashboard)
		admin.GET("/dashboard/revenue", analyticsHandler.GetWeeklyRevenue)
		admin.GET("/packing-list", analyticsHandler.GetPackingList)
		admin.GET("/packing-list/export", analyticsHandler.ExportPackingList)

		// Catalog
		admin.GET("/products", catalogHandler.AdminListProducts)
		admin.GET("/products/:id", catalogHandler.AdminGetProduct)
		admin.POST("/products", catalogHandler.CreateProduct)
		admin.PUT("/products/:id", catalogHandler.UpdateProduct)
		admin.DELETE("/products/:id", catalogHandler.DeleteProduct)
		admin.GET("/box-sizes", catalogHandler.AdminListBoxSizes)
		admin.PUT("/box-sizes", catalogHandler.UpsertBoxSize)
		admin.GET("/tags", catalogHandler.ListTags)
		admin.POST("/tags", catalogHandler.CreateTag)
		admin.DELETE("/tags/:id", catalogHandler.DeleteTag)

		// Box templates
		templates := admin.Group("/templates")
		{
			templates.GET("", templateHandler.GetTemplate)
			templates.DELETE("", templateHandler.DeleteTemplate)
			templates.GET("/candidates", templateHandler.Candidates)
			templates.POST("/items", templateHandler.AddItem)
			templates.PUT("/items/:id", templateHandler.UpdateItem)
			templates.POST("/copy-previous", templateHandler.CopyPrevious)
			templates.POST("/confirm", templateHandler.Confirm)
			templates.POST("/unconfirm", templateHandler.Unconfirm)
		}

		// Bags
		admin.GET("/bags", bagHandler.ListBags)

		// Orders
		admin.GET("/orders", orderHandler.AdminGetOrders)
		admin.GET("/orders/export", orderHandler.ExportOrders)
		admin.GET("/orders/:id", orderHandler.AdminGetOrder)
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)

		// Subscriptions
		admin.GET("/subscriptions", subscriptionHandler.ListSubscriptions)
		admin.PUT("/subscriptions/:id/status", subscriptionHandler.SetStatus)
		admin.POST("/subscriptions/resume-due", subscriptionHandler.ResumeDue)

		// Delivery ZIP codes
		admin.GET("/zip-codes", deliveryHandler.ListZipCodes)
		admin.GET("/zip-codes/export", deliveryHandler.ExportZipCodes)
		admin.POST("/zip-codes", deliveryHandler.CreateZipCode)
		admin.PUT("/zip-codes/:id", deliveryHandler.UpdateZipCode)
		admin.DELETE("/zip-codes/:id", deliveryHandler.DeleteZipCode)

		// Inquiries
		admin.GET("/partner-applications", inquiryHandler.ListPartnerApplications)
		admin.GET("/partner-applications/export", inquiryHandler.ExportPartnerApplications)
		admin.PUT("/partner-applications/:id", inquiryHandler.UpdatePartnerApplication)
		admin.DELETE("/partner-applications/:id", inquiryHandler.DeletePartnerApplication)

		admin.GET("/fish-alerts", inquiryHandler.ListFishAlerts)
		admin.GET("/fish-alerts/export", inquiryHandler.ExportFishAlerts)
		admin.POST("/fish-alerts/notified", inquiryHandler.MarkFishAlertsNotified)
		admin.PUT("/fish-alerts/:id", inquiryHandler.SetFishAlertActive)
		admin.DELETE("/fish-alerts/:id", inquiryHandler.DeleteFishAlert)

		admin.GET("/bouquet-requests", inquiryHandler.ListBouquetRequests)
		admin.GET("/bouquet-requests/export", inquiryHandler.ExportBouquetRequests)
		admin.PUT("/bouquet-requests/:id", inquiryHandler.UpdateBouquetRequest)
		admin.DELETE("/bouquet-requests/:id", inquiryHandler.DeleteBouquetRequest)

		// Users
		admin.GET("/users", userAdminHandler.GetUsers)
		admin.GET("/users/export", userAdminHandler.ExportUsers)
		admin.PUT("/users/:id/status", userAdminHandler.UpdateUserStatus)
		admin.PUT("/users/:id/admin", userAdminHandler.ToggleUserAdmin)
	}
}

// SetupRoutes registers every API route group
func SetupRoutes(rg *gin.RouterGroup, d *Dependencies) {
	SetupAuthRoutes(rg, d)
	SetupCatalogRoutes(rg, d)
	SetupPublicFormRoutes(rg, d)
	SetupBagRoutes(rg, d)
	SetupCheckoutRoutes(rg, d)
	SetupSubscriptionRoutes(rg, d)
	SetupOrderRoutes(rg, d)
	SetupWebhookRoutes(rg, d)
	SetupAdminRoutes(rg, d)
}
