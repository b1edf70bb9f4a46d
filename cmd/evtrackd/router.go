package main

import (
	"evtrack-backend/services/automation"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewRouter wires the facade: unauthenticated health check, an api-key
// gate over everything else, per-IP rate limiting, and the single
// progress websocket.
func NewRouter(service *automation.Service, hub *progressHub, apiKeys []string) *gin.Engine {
	r := gin.Default()
	handler := NewHandler(service, hub)

	r.GET("/healthz", handler.Health)

	authed := r.Group("/")
	authed.Use(rateLimiter(rate.Limit(10), 5))
	authed.Use(apiKeyAuth(apiKeys))
	{
		authed.POST("/auth/test", handler.AuthTest)

		authed.GET("/visitors", handler.ListVisitors)
		authed.POST("/visitors", handler.CreateVisitor)
		authed.POST("/visitors/update", handler.UpdateVisitor)
		authed.GET("/visitors/:id", handler.GetVisitor)
		authed.POST("/visitors/profile", handler.GetProfile)
		authed.POST("/visitors/badge", handler.GetBadge)
		authed.POST("/visitors/invite", handler.InviteVisitor)

		authed.POST("/vehicles/add", handler.AddVehicle)
		authed.POST("/vehicles/update", handler.UpdateVehicle)

		authed.POST("/credentials/add", handler.AddCredential)
		authed.POST("/credentials/update", handler.UpdateCredential)

		authed.POST("/sheets/visitors/create", handler.NotImplemented)
		authed.POST("/sheets/visitors/update", handler.NotImplemented)
		authed.POST("/sheets/visitors/search", handler.NotImplemented)
		authed.POST("/drive/photos/process", handler.NotImplemented)
		authed.POST("/drive/files/batch", handler.NotImplemented)

		authed.GET("/ws", hub.Handle)
	}

	return r
}
