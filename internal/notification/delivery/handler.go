package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/notification"
)

type NotificationHandler struct {
	service *notification.Service
}

func NewNotificationHandler(service *notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type SendRequest struct {
	Token string `json:"token" binding:"required"`
	notification.Payload
}

type MulticastRequest struct {
	Tokens []string `json:"tokens" binding:"required,min=1"`
	notification.Payload
}

// Send pushes to one device token.
// POST /api/notifications/send
func (h *NotificationHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.Send(c.Request.Context(), req.Token, req.Payload))
}

// Multicast pushes to many tokens; per-token outcomes are in the body.
// POST /api/notifications/multicast
func (h *NotificationHandler) Multicast(c *gin.Context) {
	var req MulticastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.SendMulticast(c.Request.Context(), req.Tokens, req.Payload))
}

// NotifyUser pushes to the user's current token.
// POST /api/notifications/users/:id
func (h *NotificationHandler) NotifyUser(c *gin.Context) {
	var req notification.Payload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.service.NotifyUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, notification.ErrNoDeviceToken) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Deliveries lists the delivery log.
// GET /api/notifications/deliveries?user_id=&outcome=&limit=50&offset=0
func (h *NotificationHandler) Deliveries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total, err := h.service.Deliveries(c.Request.Context(), notification.DeliveryFilter{
		UserID:  c.Query("user_id"),
		Outcome: notification.Outcome(c.Query("outcome")),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deliveries": records,
		"total":      total,
	})
}
