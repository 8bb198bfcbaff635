package api

import (
	"github.com/gin-gonic/gin"

	authDelivery "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/delivery"
	authUsecase "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/usecase"
	messagingDelivery "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/delivery"
	messagingUsecase "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/usecase"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/notification"
	notificationDelivery "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/notification/delivery"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/presence"
	presenceDelivery "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/presence/delivery"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/token"
	tokenDelivery "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/token/delivery"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/config"
)

type Handler struct {
	authUsecase         authUsecase.AuthUsecase
	config              *config.Config
	authHandler         *authDelivery.AuthHandler
	messagingHandler    *messagingDelivery.MessagingHandler
	presenceHandler     *presenceDelivery.PresenceHandler
	notificationHandler *notificationDelivery.NotificationHandler
	tokenHandler        *tokenDelivery.TokenHandler
	notifyLimiter       *IPRateLimiter
}

func NewHandler(authUc authUsecase.AuthUsecase, messagingUc messagingUsecase.MessagingUsecase, tracker *presence.Tracker, notifService *notification.Service, registry *token.Registry, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase:         authUc,
		config:              cfg,
		authHandler:         authDelivery.NewAuthHandler(authUc),
		messagingHandler:    messagingDelivery.NewMessagingHandler(messagingUc),
		presenceHandler:     presenceDelivery.NewPresenceHandler(tracker),
		notificationHandler: notificationDelivery.NewNotificationHandler(notifService),
		tokenHandler:        tokenDelivery.NewTokenHandler(registry, cfg.LocalTokensEnabled),
		notifyLimiter:       NewIPRateLimiter(cfg.NotifyRatePerMinute),
	}
}

// Engine builds the gin engine with CORS and every route mounted.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	return h.Engine().Run(addr)
}
