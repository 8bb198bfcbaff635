package delivery

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/presence"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/sse"
)

type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

type StartSessionRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type SessionEventRequest struct {
	Event string `json:"event" binding:"required"`
}

// StartSession opens a presence session for a client tab.
// POST /api/presence/sessions
func (h *PresenceHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := h.tracker.Start(req.UserID)
	c.JSON(http.StatusCreated, gin.H{"sessionId": s.ID, "state": s.State()})
}

// SessionEvent reports hide, show, blur, focus, heartbeat or unload. Open
// clients send heartbeat at least once per heartbeat interval.
// POST /api/presence/sessions/:id/events
func (h *PresenceHandler) SessionEvent(c *gin.Context) {
	var req SessionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := h.tracker.Handle(c.Param("id"), strings.ToLower(req.Event))
	if err != nil {
		switch {
		case errors.Is(err, presence.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, presence.ErrUnknownEvent):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// GET /api/presence/:userId
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	rec, err := h.tracker.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Stream follows several users' presence.
// GET /api/presence/stream?ids=u1,u2
func (h *PresenceHandler) Stream(c *gin.Context) {
	var ids []string
	for _, id := range strings.Split(c.Query("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids query parameter required"})
		return
	}

	feed := sse.NewFeed[map[string]presence.Record](16)
	sub, err := h.tracker.SubscribeMany(c.Request.Context(), ids, feed.Push)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer sub.Close()
	feed.Serve(c, "presence")
}
