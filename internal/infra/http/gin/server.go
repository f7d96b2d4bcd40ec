package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/obs"
)

type BookingHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Reschedule(c *gin.Context)
}

type ListingHTTP interface {
	Bookings(c *gin.Context)
	Availability(c *gin.Context)
}

type AdminHTTP interface {
	CompletionSweep(c *gin.Context)
	ExpirySweep(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	Listing        ListingHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
	// RateLimit guards state-changing booking routes; nil disables it.
	RateLimit gin.HandlerFunc
}

type ServerConfig struct {
	Env  string
	Addr string
}

func NewServer(cfg ServerConfig, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg ServerConfig, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	limited := []gin.HandlerFunc{}
	if h.RateLimit != nil {
		limited = append(limited, h.RateLimit)
	}
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, limited...), handler)
	}

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.GET("/bookings", h.Booking.List)
		api.POST("/bookings", with(h.Booking.Create)...)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/confirm", with(h.Booking.Confirm)...)
		api.POST("/bookings/:id/cancel", with(h.Booking.Cancel)...)
		api.PUT("/bookings/:id/dates", with(h.Booking.Reschedule)...)
	}
	if h.Listing != nil {
		api.GET("/listings/:id/bookings", h.Listing.Bookings)
		api.GET("/listings/:id/availability", h.Listing.Availability)
	}
	if h.Admin != nil {
		adminGroup := api.Group("/admin/sweeps")
		adminGroup.POST("/completion", h.Admin.CompletionSweep)
		adminGroup.POST("/expiry", h.Admin.ExpirySweep)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
