// internal/router/router.go
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cisnetsa/cisnet-backend/internal/config"
	"github.com/cisnetsa/cisnet-backend/internal/handlers"
	"github.com/cisnetsa/cisnet-backend/internal/middleware"
	"github.com/cisnetsa/cisnet-backend/internal/services"
	"github.com/cisnetsa/cisnet-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, grants services.FileGrantProvider) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(cfg)
	storageService, _ := services.NewStorageService(cfg)

	authService := services.NewAuthService(db, cfg, notificationService)
	googleService := services.NewGoogleAuthService(db, cfg, authService)
	productService := services.NewProductService(db)
	cartService := services.NewCartService(db, productService)
	orderService := services.NewOrderService(db, grants, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, googleService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	purchaseHandler := handlers.NewPurchaseHandler(orderService, authService)
	adminHandler := handlers.NewAdminHandler(productService, orderService, storageService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Grants that failed at checkout get another chance shortly after boot.
	go orderService.RetryPendingGrants(context.Background())

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "healthy",
				"version": "1.0.0",
			})
		})

		// Authentication routes
		auth := api.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google-verify", authHandler.GoogleVerify)
			auth.POST("/google-login", authHandler.GoogleLogin)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/profile", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Public catalog routes
		products := api.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/featured", productHandler.Featured)
			products.GET("/search", productHandler.Search)
			products.GET("/:id", productHandler.Get)
		}

		// Cart routes
		cart := api.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items/:id", cartHandler.UpdateItem)
			cart.DELETE("/items/:id", cartHandler.RemoveItem)
			cart.GET("/total", cartHandler.GetTotal)
			cart.GET("/count", cartHandler.GetCount)
			cart.POST("/merge", cartHandler.MergeCart)
		}

		// Purchase routes
		purchases := api.Group("/purchases")
		purchases.Use(middleware.AuthRequired())
		{
			purchases.GET("", purchaseHandler.ListOrders)
			purchases.GET("/library", purchaseHandler.GetLibrary)
			purchases.POST("/create-order", purchaseHandler.CreateOrder)
			purchases.POST("/check-access", purchaseHandler.CheckAccess)
			purchases.POST("/get-download-url", purchaseHandler.GetDownloadURL)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/products", adminHandler.ListProducts)
			admin.POST("/products", adminHandler.CreateProduct)
			admin.GET("/products/:id", adminHandler.GetProduct)
			admin.PUT("/products/:id", adminHandler.UpdateProduct)
			admin.DELETE("/products/:id", adminHandler.DeleteProduct)
			admin.POST("/products/:id/image", middleware.UploadRateLimit(), adminHandler.UploadProductImage)
			admin.GET("/orders", adminHandler.ListOrders)
			admin.POST("/grants/:id/retry", adminHandler.RetryGrant)
			admin.POST("/grants/:id/revoke", adminHandler.RevokeGrant)
		}
	}

	return r
}
