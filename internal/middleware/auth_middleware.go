package middleware

import (
	"context"
	"strings"

	"tripadmin/internal/models"
	"tripadmin/pkg/jwt"
	"tripadmin/pkg/logger"
	"tripadmin/pkg/response"
	"tripadmin/pkg/tokenstore"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Context keys set by RequireLogin
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextClaims = "claims"
)

// UserLoader loads the account behind a token
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// PermissionChecker answers whether a user currently holds a permission
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID uint, name string) (bool, error)
}

// AuthMiddleware authentication and permission gate
type AuthMiddleware struct {
	users       UserLoader
	permissions PermissionChecker
	jwtManager  *jwt.JWTManager
	tokens      tokenstore.Store
}

func NewAuthMiddleware(users UserLoader, permissions PermissionChecker, jwtManager *jwt.JWTManager, tokens tokenstore.Store) *AuthMiddleware {
	if tokens == nil {
		tokens = tokenstore.Noop{}
	}
	return &AuthMiddleware{
		users:       users,
		permissions: permissions,
		jwtManager:  jwtManager,
		tokens:      tokens,
	}
}

// RequireLogin verifies the bearer token and loads the active user onto the context
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		revoked, err := m.tokens.IsRevoked(ctx, claims.ID)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Token revocation check failed")
			response.ServerError(c, "Internal server error")
			c.Abort()
			return
		}
		if revoked {
			response.Unauthorized(c, "Token has been revoked")
			c.Abort()
			return
		}

		user, err := m.users.GetByID(ctx, claims.UserID)
		if err != nil {
			response.Unauthorized(c, "User does not exist")
			c.Abort()
			return
		}
		if !user.IsActive() {
			response.Unauthorized(c, "User account is not active")
			c.Abort()
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// RequirePermission lets the request through only when the authenticated user holds name.
// An empty name means the route needs no permission. The check reads current link state on
// every request.
func (m *AuthMiddleware) RequirePermission(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if name == "" {
			c.Next()
			return
		}

		userID, ok := CurrentUserID(c)
		if !ok {
			response.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		allowed, err := m.permissions.HasPermission(c.Request.Context(), userID, name)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("permission", name).Error("Permission check failed")
			response.ServerError(c, "Internal server error")
			c.Abort()
			return
		}

		if !allowed {
			logger.GetLogger().WithFields(logrus.Fields{
				"user_id":    userID,
				"permission": name,
				"path":       c.FullPath(),
			}).Warn("Permission denied")
			response.Forbidden(c, "Access denied. Required permission: "+name)
			c.Abort()
			return
		}

		c.Next()
	}
}

// Protected login followed by the permission gate
func (m *AuthMiddleware) Protected(name string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.RequireLogin(),
		m.RequirePermission(name),
	}
}

// CurrentUserID returns the id RequireLogin stored on the context
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// CurrentClaims returns the verified token claims
func CurrentClaims(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok
}
