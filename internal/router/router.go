// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Handlers groups every HTTP handler served under /api.
type Handlers struct {
	Users        *handler.UserHandler
	Cinemas      *handler.CinemaHandler
	Halls        *handler.HallHandler
	Movies       *handler.MovieHandler
	Screenings   *handler.ScreeningHandler
	Reservations *handler.ReservationHandler
}

// Deps carries what the routes need besides the handlers. Redis is optional;
// without it the rate limiter runs in memory and responses are not cached.
type Deps struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Metrics   *metrics.Metrics
	DB        handler.Pinger
	ImageDir  string
}

// guards bundles the per-route authorization middleware.
type guards struct {
	auth       echo.MiddlewareFunc
	admin      echo.MiddlewareFunc
	catalogers echo.MiddlewareFunc
}

// Register installs the global middleware and every route.
func Register(e *echo.Echo, h Handlers, d Deps) {
	e.Use(d.Metrics.Middleware())
	e.Use(middleware.RequestLogger())

	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	if d.ImageDir != "" {
		e.Static("/images", d.ImageDir)
	}

	api := e.Group("/api",
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	)
	g := guards{
		auth:       middleware.JWTAuth(d.JWTSecret),
		admin:      middleware.RequireRole(model.RoleAdmin),
		catalogers: middleware.RequireRole(model.RoleAdmin, model.RoleSales),
	}

	registerUsers(api, h, g)
	registerCatalog(api, h, g)
	registerScreenings(api, h.Screenings, g)
	registerReservations(api, h.Reservations, g)
}
