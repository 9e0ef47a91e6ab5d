package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridedispatch/internal/handler"
	"ridedispatch/internal/middleware"
	internalRedis "ridedispatch/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	TripHandler    *handler.TripHandler
	PaymentHandler *handler.PaymentHandler
	PolicyHandler  *handler.PolicyHandler
	ReportHandler  *handler.ReportHandler
	Idempotency    internalRedis.ResponseStoreInterface
	NewRelicApp    *newrelic.Application
	Logger         *slog.Logger
	CORSOrigins    []string
	DefaultTenant  string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(deps.CORSOrigins) == 0 || (len(deps.CORSOrigins) == 1 && deps.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.CORSOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Tenant-ID"}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.TenantMiddleware(deps.DefaultTenant))
	router.Use(middleware.RequestLogger(deps.Logger))

	// Health check and metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.IdempotencyMiddleware(deps.Idempotency))
	{
		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.Create)
			bookings.GET("", deps.BookingHandler.List)
			bookings.GET("/estimate", deps.BookingHandler.Estimate)
			bookings.GET("/:id", deps.BookingHandler.Get)
			bookings.GET("/:id/events", deps.BookingHandler.History)
			bookings.GET("/:id/receipt", deps.BookingHandler.Receipt)

			bookings.PATCH("/:id/status", deps.TripHandler.UpdateStatus)
			bookings.POST("/:id/advance", deps.TripHandler.Advance)
			bookings.POST("/:id/revert", deps.TripHandler.Revert)
			bookings.POST("/:id/cancel", deps.TripHandler.Cancel)
			bookings.POST("/:id/restore", deps.TripHandler.Restore)

			bookings.PATCH("/:id/payment", deps.PaymentHandler.MarkPaid)
			bookings.POST("/:id/payments", deps.PaymentHandler.Record)
			bookings.GET("/:id/payments", deps.PaymentHandler.List)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("/:id/confirm", deps.PaymentHandler.Confirm)
			payments.POST("/:id/fail", deps.PaymentHandler.Fail)
			payments.POST("/razorpay/order", deps.PaymentHandler.RazorpayOrder)
			payments.POST("/razorpay/verify", deps.PaymentHandler.RazorpayVerify)
			payments.POST("/stripe/intent", deps.PaymentHandler.StripeIntent)
			payments.POST("/stripe/confirm", deps.PaymentHandler.StripeConfirm)
		}

		// Policy routes.
		policies := v1.Group("/policies")
		{
			policies.POST("", deps.PolicyHandler.Create)
			policies.GET("", deps.PolicyHandler.List)
			policies.GET("/active", deps.PolicyHandler.Active)
		}

		// Report routes.
		reports := v1.Group("/reports")
		{
			reports.GET("/commissions", deps.ReportHandler.Commissions)
			reports.GET("/payments", deps.ReportHandler.Payments)
		}
	}

	return router
}
