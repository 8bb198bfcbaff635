package usecase

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authdto "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/dto"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/config"
)

func newTestUsecase(t *testing.T) AuthUsecase {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthUsecase(&config.Config{
		JWTSecret:         "test-secret",
		JWTAccessExpiry:   time.Hour,
		AdminEmail:        "admin@shop.test",
		AdminPasswordHash: string(hash),
	})
}

func TestLoginAndValidate(t *testing.T) {
	uc := newTestUsecase(t)

	resp, err := uc.Login(&authdto.LoginRequest{Email: "Admin@Shop.test", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "admin", resp.Admin.ID)

	admin, err := uc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.ID)
	assert.Equal(t, "admin@shop.test", admin.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	uc := newTestUsecase(t)

	_, err := uc.Login(&authdto.LoginRequest{Email: "admin@shop.test", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = uc.Login(&authdto.LoginRequest{Email: "other@shop.test", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	uc := NewAuthUsecase(&config.Config{JWTSecret: "x", AdminEmail: "admin@shop.test"})
	_, err := uc.Login(&authdto.LoginRequest{Email: "admin@shop.test", Password: "whatever"})
	assert.ErrorIs(t, err, ErrLoginDisabled)
}

func TestValidateTokenRejects(t *testing.T) {
	uc := newTestUsecase(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "admin",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredStr, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	foreignStr, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", expiredStr, foreignStr} {
		_, err := uc.ValidateToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
