package jwt

import (
	"errors"
	"sync"
	"time"

	"tripadmin/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "tripadmin"

// Token types carried in the claims so an access token can never be replayed as a refresh token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTClaims JWT claims
type JWTClaims struct {
	UserID    uint   `json:"user_id"`
	RoleID    *uint  `json:"role_id,omitempty"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair issued on login and refresh
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// JWTManager JWT manager
type JWTManager struct {
	secretKey       string
	refreshKey      string
	tokenDuration   time.Duration
	refreshDuration time.Duration
}

// NewJWTManager creates a JWT manager
func NewJWTManager(secretKey, refreshKey string, tokenDuration, refreshDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       secretKey,
		refreshKey:      refreshKey,
		tokenDuration:   tokenDuration,
		refreshDuration: refreshDuration,
	}
}

// GenerateTokenPair issues an access and a refresh token for the user
func (manager *JWTManager) GenerateTokenPair(userID uint, roleID *uint, email string) (*TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(manager.tokenDuration)
	refreshExp := now.Add(manager.refreshDuration)

	access, err := manager.sign(manager.secretKey, JWTClaims{
		UserID:           userID,
		RoleID:           roleID,
		Email:            email,
		TokenType:        TokenTypeAccess,
		RegisteredClaims: manager.registered(email, now, accessExp),
	})
	if err != nil {
		return nil, err
	}

	refresh, err := manager.sign(manager.refreshKey, JWTClaims{
		UserID:           userID,
		Email:            email,
		TokenType:        TokenTypeRefresh,
		RegisteredClaims: manager.registered(email, now, refreshExp),
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (manager *JWTManager) registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   subject,
	}
}

func (manager *JWTManager) sign(key string, claims JWTClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

// VerifyToken verifies an access token
func (manager *JWTManager) VerifyToken(tokenString string) (*JWTClaims, error) {
	return manager.verify(tokenString, manager.secretKey, TokenTypeAccess)
}

// VerifyRefreshToken verifies a refresh token
func (manager *JWTManager) VerifyRefreshToken(tokenString string) (*JWTClaims, error) {
	return manager.verify(tokenString, manager.refreshKey, TokenTypeRefresh)
}

func (manager *JWTManager) verify(tokenString, key, tokenType string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(key), nil
		},
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, errors.New("cannot parse token claims")
	}
	if claims.TokenType != tokenType {
		return nil, errors.New("wrong token type")
	}

	return claims, nil
}

// GetTokenDuration access token lifetime
func (manager *JWTManager) GetTokenDuration() time.Duration {
	return manager.tokenDuration
}

var (
	defaultManager *JWTManager
	once           sync.Once
)

// GetJWTManager returns the process-wide manager built from config
func GetJWTManager() *JWTManager {
	once.Do(func() {
		cfg := config.GetConfig()
		tokenDuration, err := time.ParseDuration(cfg.JWT.TokenDuration)
		if err != nil {
			tokenDuration = time.Hour
		}
		refreshDuration, err := time.ParseDuration(cfg.JWT.RefreshDuration)
		if err != nil {
			refreshDuration = 7 * 24 * time.Hour
		}
		defaultManager = NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.RefreshSecretKey, tokenDuration, refreshDuration)
	})
	return defaultManager
}
