package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/delivery"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	auth := delivery.AuthMiddleware(h.authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", h.authHandler.Login)
			authRoutes.GET("/me", auth, h.authHandler.Me)
		}

		conversations := api.Group("/conversations")
		conversations.Use(auth)
		{
			conversations.GET("", h.messagingHandler.ListConversations)
			conversations.POST("", h.messagingHandler.StartConversation)
			conversations.GET("/search", h.messagingHandler.SearchConversations)
			conversations.GET("/:id/messages", h.messagingHandler.ConversationMessages)
			conversations.POST("/:id/messages", h.messagingHandler.SendAdminMessage)
			conversations.GET("/:id/messages/stream", h.messagingHandler.StreamConversation)
		}

		users := api.Group("/users")
		users.Use(auth)
		{
			users.GET("/:id/messages", h.messagingHandler.UserMessages)
			users.POST("/:id/messages", h.messagingHandler.SendUserMessage)
		}

		api.PATCH("/messages/status", auth, h.messagingHandler.UpdateStatus)

		presence := api.Group("/presence")
		presence.Use(auth)
		{
			presence.POST("/sessions", h.presenceHandler.StartSession)
			presence.POST("/sessions/:id/events", h.presenceHandler.SessionEvent)
			presence.GET("/stream", h.presenceHandler.Stream)
			presence.GET("/:userId", h.presenceHandler.GetPresence)
		}

		notifications := api.Group("/notifications")
		notifications.Use(auth, h.notifyLimiter.Middleware())
		{
			notifications.POST("/send", h.notificationHandler.Send)
			notifications.POST("/multicast", h.notificationHandler.Multicast)
			notifications.POST("/users/:id", h.notificationHandler.NotifyUser)
			notifications.GET("/deliveries", h.notificationHandler.Deliveries)
		}

		tokens := api.Group("/tokens")
		tokens.Use(auth)
		{
			tokens.POST("/generate", h.tokenHandler.Generate)
			tokens.GET("/:userId", h.tokenHandler.List)
			tokens.DELETE("/:userId", h.tokenHandler.Invalidate)
		}
	}
}

func requestLogger() gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}
