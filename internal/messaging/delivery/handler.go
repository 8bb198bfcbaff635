package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/resolver"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/usecase"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/sse"
)

// MessagingHandler serves conversations and inbox messages.
type MessagingHandler struct {
	usecase usecase.MessagingUsecase
}

func NewMessagingHandler(uc usecase.MessagingUsecase) *MessagingHandler {
	return &MessagingHandler{usecase: uc}
}

type SendMessageRequest struct {
	Message        string `json:"message" binding:"required"`
	SenderName     string `json:"senderName"`
	SenderEmail    string `json:"senderEmail"`
	SenderAvatar   string `json:"senderAvatar"`
	ConversationID string `json:"conversationId"`
	Notify         bool   `json:"notify"`
}

type UpdateStatusRequest struct {
	Path   string        `json:"path" binding:"required"`
	Status domain.Status `json:"status" binding:"required"`
}

// ListConversations
// GET /api/conversations?limit=50
func (h *MessagingHandler) ListConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	convs, err := h.usecase.ListConversations(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// SearchConversations
// GET /api/conversations/search?q=ann&limit=20
func (h *MessagingHandler) SearchConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	convs, err := h.usecase.SearchConversations(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// StartConversation opens (or returns) the conversation with a known customer.
// POST /api/conversations
func (h *MessagingHandler) StartConversation(c *gin.Context) {
	var req resolver.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.usecase.StartConversation(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created() {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversationId": res.ConversationID, "created": res.Created()})
}

// GET /api/conversations/:id/messages
func (h *MessagingHandler) ConversationMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	msgs, err := h.usecase.ConversationMessages(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendAdminMessage
// POST /api/conversations/:id/messages
func (h *MessagingHandler) SendAdminMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.usecase.SendAdminMessage(c.Request.Context(), c.Param("id"), usecase.SendInput{
		SenderID:     c.GetString("userID"),
		SenderName:   req.SenderName,
		SenderEmail:  req.SenderEmail,
		SenderAvatar: req.SenderAvatar,
		Message:      req.Message,
		Notify:       req.Notify,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// StreamConversation pushes the full message list on every change.
// GET /api/conversations/:id/messages/stream
func (h *MessagingHandler) StreamConversation(c *gin.Context) {
	feed := sse.NewFeed[[]domain.Message](8)
	stop, err := h.usecase.WatchConversation(c.Request.Context(), c.Param("id"), feed.Push)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer stop()
	feed.Serve(c, "messages")
}

// SendUserMessage writes into a customer's inbox, as the storefront does.
// POST /api/users/:id/messages
func (h *MessagingHandler) SendUserMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.usecase.SendUserMessage(c.Request.Context(), c.Param("id"), usecase.SendInput{
		SenderName:     req.SenderName,
		SenderEmail:    req.SenderEmail,
		SenderAvatar:   req.SenderAvatar,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GET /api/users/:id/messages
func (h *MessagingHandler) UserMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	msgs, err := h.usecase.UserMessages(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// UpdateStatus
// PATCH /api/messages/status
func (h *MessagingHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.usecase.AdvanceStatus(c.Request.Context(), req.Path, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrConversationNotFound), errors.Is(err, usecase.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrEmptyMessage), errors.Is(err, usecase.ErrNotMessagePath),
		errors.Is(err, resolver.ErrMissingCustomer):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
