package token

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrNoToken          = errors.New("registration returned no token")
)

const (
	PlatformWeb   = "web"
	PlatformLocal = "local"
)

// Registration is what a push registration primitive hands back.
type Registration struct {
	Token    string
	Platform string
}

// Registrar obtains a fresh push token for a user.
type Registrar interface {
	Register(ctx context.Context, userID, email string) (Registration, error)
}

// ClientRegistrar carries the outcome of the browser's permission prompt and
// token request, reported by the client itself.
type ClientRegistrar struct {
	Permission string
	Token      string
	Platform   string
}

func (r ClientRegistrar) Register(_ context.Context, _, _ string) (Registration, error) {
	switch strings.ToLower(r.Permission) {
	case "granted", "":
	default:
		return Registration{}, ErrPermissionDenied
	}
	if strings.TrimSpace(r.Token) == "" {
		return Registration{}, ErrNoToken
	}
	platform := r.Platform
	if platform == "" {
		platform = PlatformWeb
	}
	return Registration{Token: r.Token, Platform: platform}, nil
}

// LocalRegistrar issues opaque stand-in tokens for environments without a
// push service. Pushes to them are classified as invalid by the gateway.
type LocalRegistrar struct{}

func (LocalRegistrar) Register(_ context.Context, _, _ string) (Registration, error) {
	return Registration{Token: "local-" + uuid.New().String(), Platform: PlatformLocal}, nil
}
