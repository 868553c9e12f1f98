package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/atpstore/storefront-gateway/internal/config"
	"github.com/atpstore/storefront-gateway/internal/http/handler"
	httpmiddleware "github.com/atpstore/storefront-gateway/internal/http/middleware"
	"github.com/atpstore/storefront-gateway/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	authHandler *handler.AuthHandler,
	membershipHandler *handler.MembershipHandler,
	webhookHandler *handler.WebhookHandler,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.GET("/login", authHandler.Login)
			auth.GET("/callback", authHandler.Callback)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
		}

		api.GET("/membership/status", membershipHandler.Status)

		webhooks := api.Group("/webhooks/shopify")
		{
			webhooks.POST("/orders/paid", webhookHandler.OrdersPaid)
			webhooks.POST("/customers/update", webhookHandler.CustomersUpdate)
		}

		// Retired password-account endpoints. Kept registered so old
		// storefront builds get an explicit answer instead of a 404.
		legacy := api.Group("/customer")
		{
			legacy.POST("/login", authHandler.LegacyGone)
			legacy.POST("/logout", authHandler.LegacyGone)
			legacy.POST("/register", authHandler.LegacyGone)
			legacy.POST("/password-reset", authHandler.LegacyGone)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
