package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/token"
)

type TokenHandler struct {
	registry   *token.Registry
	allowLocal bool
}

func NewTokenHandler(registry *token.Registry, allowLocal bool) *TokenHandler {
	return &TokenHandler{registry: registry, allowLocal: allowLocal}
}

type GenerateRequest struct {
	UserID     string `json:"userId" binding:"required"`
	Email      string `json:"email"`
	Permission string `json:"permission"`
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	Local      bool   `json:"local"`
}

// Generate returns the user's active token or stores the one the client
// obtained.
// POST /api/tokens/generate
func (h *TokenHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var registrar token.Registrar = token.ClientRegistrar{
		Permission: req.Permission,
		Token:      req.Token,
		Platform:   req.Platform,
	}
	if req.Local {
		if !h.allowLocal {
			c.JSON(http.StatusBadRequest, gin.H{"error": "local tokens are disabled"})
			return
		}
		registrar = token.LocalRegistrar{}
	}

	t, created, err := h.registry.GenerateForUser(c.Request.Context(), req.UserID, req.Email, registrar)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, token.ErrNoToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"token": t, "created": created})
}

// Invalidate retires a token, the current one when ?token= is absent.
// DELETE /api/tokens/:userId
func (h *TokenHandler) Invalidate(c *gin.Context) {
	if err := h.registry.Invalidate(c.Request.Context(), c.Param("userId"), c.Query("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token invalidated"})
}

// List returns a user's token history.
// GET /api/tokens/:userId
func (h *TokenHandler) List(c *gin.Context) {
	tokens, err := h.registry.Tokens(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tokens == nil {
		tokens = []token.DeviceToken{}
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}
