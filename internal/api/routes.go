package api

import (
	"net/http"

	"github.com/askwhyharsh/fogofearth/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, handler *Handler, wsHandler WebSocketHandler, rlMiddleware *ratelimit.Middleware, metricsHandler http.Handler) {
	// Apply global middleware
	r.Use(CORSMiddleware())
	r.Use(RequestTimeMiddleware())
	r.Use(RecoveryMiddleware())

	// Health check (no rate limit)
	r.GET("/api/health", handler.Health)

	// API routes
	api := r.Group("/api")
	api.Use(rlMiddleware.IPRateLimit(), rlMiddleware.DeviceID())
	{
		location := api.Group("/location")
		{
			location.POST("/update", handler.UpdateLocation)
		}

		fog := api.Group("/fog")
		{
			fog.GET("/export", handler.Export)
			fog.POST("/import", handler.Import)
			fog.GET("/coverage", handler.Coverage)
			fog.GET("/mask", handler.Mask)
			fog.GET("/stats", handler.Stats)
			fog.POST("/flush", handler.Flush)
		}
		api.DELETE("/fog", handler.Reset)

		session := api.Group("/session")
		{
			session.POST("/start", handler.StartSession)
			session.POST("/end", handler.EndSession)
		}
	}

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// WebSocket route
	r.GET("/ws", wsHandler.HandleWebSocket)
}

type WebSocketHandler interface {
	HandleWebSocket(c *gin.Context)
}
