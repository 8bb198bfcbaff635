package dto

import (
	"time"

	authdomain "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/domain"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type TokenResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Admin       *authdomain.Admin `json:"admin"`
}
