// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/artround/engagement-ledger/internal/config"
	"github.com/artround/engagement-ledger/internal/handler"
	"github.com/artround/engagement-ledger/internal/middleware"
	"github.com/artround/engagement-ledger/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently this is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterEngagement wires the member and admin route groups. Member
// routes require a valid access token with the MEMBER or ADMIN role;
// moderation routes require ADMIN. Mutating member routes additionally
// pass through the Redis token bucket so a stuck client retry loop
// cannot hammer the ledger (the store-level constraints keep retries
// harmless, the limiter keeps them cheap).
func RegisterEngagement(e *echo.Echo, rh *handler.ReviewHandler, ph *handler.PointsHandler, th *handler.TicketHandler, jwtSecret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	member := e.Group("/v1")
	member.Use(middleware.JWTAuth(jwtSecret))
	member.Use(middleware.RequireRole(model.RoleMember, model.RoleAdmin))

	member.POST("/reviews", rh.SubmitReview, limiter)
	member.GET("/points/balance", ph.Balance)
	member.GET("/points/history", ph.History)
	member.POST("/exhibitions/:id/free-ticket", th.IssueFreeTicket, limiter)
	member.GET("/my-tickets", th.ListMyTickets)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.GET("/points/pending", ph.ListPending)
	admin.POST("/points/:id/approve", ph.Approve)
	admin.POST("/points/:id/reject", ph.Reject)
}
