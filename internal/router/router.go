// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/kafaat/airline-seat-inventory/internal/config"
	"github.com/kafaat/airline-seat-inventory/internal/handler"
	"github.com/kafaat/airline-seat-inventory/internal/middleware"
)

// Register mounts every route of the allocation engine on the Echo
// instance.  The availability read is public and cached; everything else
// under /v1 requires a valid bearer token, and the admin group additionally
// requires the ADMIN role.  The write-heavy shopper endpoints sit behind
// the Redis rate limiter.
func Register(e *echo.Echo, jwtSecret string, rdb *redis.Client, alloc *handler.AllocationHandler, waitlist *handler.WaitlistHandler, admin *handler.AdminHandler) {
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Validator = handler.NewValidator()

	e.GET("/healthz", handler.Health)

	cacheMW := middleware.CacheGET(config.LoadCacheConfig(), rdb)
	e.GET("/v1/flights/:id/inventory/:cabin", alloc.Availability, cacheMW)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	limited := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	// Shopper surface.
	auth.POST("/flights/:id/allocate", alloc.Allocate, limited)
	auth.DELETE("/holds/:token", alloc.Release)
	auth.POST("/holds/:token/convert", alloc.Convert)
	auth.POST("/flights/:id/waitlist", waitlist.Join, limited)
	auth.DELETE("/waitlist/:id", waitlist.Cancel)
	auth.GET("/waitlist/:id/position", waitlist.Position)
	auth.POST("/waitlist/:id/accept", waitlist.Accept, limited)
	auth.POST("/waitlist/:id/decline", waitlist.Decline)
	auth.GET("/my-waitlist", waitlist.MyEntries)
	auth.GET("/my-holds", alloc.MyHolds)

	// Admin surface.
	adm := auth.Group("", middleware.RequireRole("ADMIN"))
	adm.POST("/flights", alloc.Schedule)
	adm.PUT("/flights/:id/inventory/:cabin/allowance", alloc.SetAllowance)
	adm.GET("/flights/:id/waitlist", waitlist.FlightEntries)
	adm.POST("/flights/:id/waitlist/process", waitlist.Process)
	adm.GET("/flights/:id/overbooking", admin.Recommendation)
	adm.GET("/flights/:id/forecast", admin.Forecast)
	adm.POST("/flights/:id/denied-boarding", admin.ResolveDeniedBoarding)
	adm.GET("/flights/:id/denied-boarding", admin.ListRecords)
	adm.PUT("/denied-boarding/:id/status", admin.UpdateRecordStatus)
	adm.POST("/sweeps/holds", alloc.SweepHolds)
	adm.POST("/sweeps/offers", waitlist.SweepOffers)
}
