package usecase

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	authdomain "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/domain"
	authdto "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/dto"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)

// AuthUsecase signs in the single dashboard admin and validates its tokens.
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	ValidateToken(tokenString string) (*authdomain.Admin, error)
}

type authUsecase struct {
	config *config.Config
	now    func() time.Time
}

func NewAuthUsecase(cfg *config.Config) AuthUsecase {
	return &authUsecase{config: cfg, now: time.Now}
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	if u.config.AdminEmail == "" || u.config.AdminPasswordHash == "" {
		return nil, ErrLoginDisabled
	}
	if !strings.EqualFold(req.Email, u.config.AdminEmail) {
		return nil, ErrInvalidCredentials
	}
	if !CheckPasswordHash(req.Password, u.config.AdminPasswordHash) {
		return nil, ErrInvalidCredentials
	}

	admin := &authdomain.Admin{ID: authdomain.AdminID, Email: u.config.AdminEmail}
	expiresAt := u.now().Add(u.config.JWTAccessExpiry)
	accessToken, err := u.generateAccessToken(admin, expiresAt)
	if err != nil {
		return nil, err
	}
	return &authdto.TokenResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Admin:       admin,
	}, nil
}

func (u *authUsecase) generateAccessToken(admin *authdomain.Admin, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": admin.ID,
		"email":   admin.Email,
		"exp":     expiresAt.Unix(),
		"iat":     u.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.Admin, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return &authdomain.Admin{ID: userID, Email: email}, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
