package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hotelbook/internal/infra/config"
	"hotelbook/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	ListMine(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
}

type AdminBookingHTTP interface {
	List(c *gin.Context)
	UpdateStatus(c *gin.Context)
}

type RoomHTTP interface {
	Availability(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	AdminBooking   AdminBookingHTTP
	Room           RoomHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the route table without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api")
	if h.Room != nil {
		api.GET("/rooms/:id/availability", h.Room.Availability)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings", h.Booking.ListMine)
		api.GET("/bookings/:id", h.Booking.Get)
		api.PUT("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.AdminBooking != nil {
		admin := api.Group("/admin")
		admin.GET("/bookings", h.AdminBooking.List)
		admin.PUT("/bookings/:id/status", h.AdminBooking.UpdateStatus)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "debug":
		gin.SetMode(gin.DebugMode)
	case "test", "testing":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	return gin.Mode()
}

var (
	_ BookingHTTP      = BookingHandler{}
	_ AdminBookingHTTP = AdminBookingHandler{}
	_ RoomHTTP         = RoomHandler{}
)
