package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/handlers"
	"github.com/foodbridge/foodbridge/internal/ledger"
	"github.com/foodbridge/foodbridge/internal/matching"
	"github.com/foodbridge/foodbridge/internal/middleware"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/realtime"
)

// Deps bundles the shared collaborators the route handlers need.
type Deps struct {
	DB         *gorm.DB
	JWT        *iauth.JWTService
	Hub        *realtime.Hub
	Dispatcher *notify.Dispatcher
	Ledger     ledger.Ledger
	Matcher    matching.Optimizer
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("realtime hub must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))
	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler, err := handlers.NewAuthHandler(deps.DB, deps.JWT)
	if err != nil {
		return nil, err
	}
	registerAuthRoutes(r, authHandler, deps.JWT)

	// Websocket upgrades authenticate via token, not the HTTP middleware chain.
	r.GET("/ws", handlers.NewRealtimeHandler(deps.Hub, deps.JWT).Serve)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	listingHandler, err := handlers.NewListingHandler(deps.DB, deps.Matcher)
	if err != nil {
		return nil, err
	}
	registerListingRoutes(api, listingHandler)

	claimHandler, err := handlers.NewClaimHandler(deps.DB, deps.Dispatcher)
	if err != nil {
		return nil, err
	}
	registerClaimRoutes(api, claimHandler)

	tradeHandler, err := handlers.NewTradeHandler(deps.DB, deps.Dispatcher, deps.Ledger)
	if err != nil {
		return nil, err
	}
	registerTradeRoutes(api, tradeHandler)

	taskHandler, err := handlers.NewTaskHandler(deps.DB, deps.Dispatcher, deps.Matcher)
	if err != nil {
		return nil, err
	}
	registerTaskRoutes(api, taskHandler)

	notificationHandler, err := handlers.NewNotificationHandler(deps.DB)
	if err != nil {
		return nil, err
	}
	registerNotificationRoutes(api, notificationHandler)

	return r, nil
}
