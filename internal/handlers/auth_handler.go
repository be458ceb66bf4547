package handlers

import (
	"context"
	"time"

	"tripadmin/internal/middleware"
	"tripadmin/internal/models"
	"tripadmin/internal/services"
	"tripadmin/pkg/jwt"
	"tripadmin/pkg/logger"
	"tripadmin/pkg/response"
	"tripadmin/pkg/tokenstore"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	userService       *services.UserService
	permissionService *services.PermissionService
	jwtManager        *jwt.JWTManager
	tokens            tokenstore.Store
}

func NewAuthHandler(userService *services.UserService, permissionService *services.PermissionService, jwtManager *jwt.JWTManager, tokens tokenstore.Store) *AuthHandler {
	if tokens == nil {
		tokens = tokenstore.Noop{}
	}
	return &AuthHandler{
		userService:       userService,
		permissionService: permissionService,
		jwtManager:        jwtManager,
		tokens:            tokens,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	*jwt.TokenPair
	User UserInfo `json:"user"`
}

type UserInfo struct {
	ID          uint     `json:"id"`
	Email       string   `json:"email"`
	StaffID     string   `json:"staff_id"`
	FullName    string   `json:"full_name"`
	UserType    string   `json:"user_type"`
	RoleCode    string   `json:"role_code,omitempty"`
	Permissions []string `json:"permissions"`
}

// Login exchanges email and password for a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.userService.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		logger.GetLogger().WithFields(logrus.Fields{
			"email":     req.Email,
			"client_ip": c.ClientIP(),
		}).Warn("Login failed")
		response.HandleError(c, err)
		return
	}

	pair, err := h.jwtManager.GenerateTokenPair(user.ID, user.RoleID, user.Email)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	info, err := h.userInfo(ctx, user)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	logger.GetLogger().WithField("user_id", user.ID).Info("User logged in")
	response.Success(c, LoginResponse{TokenPair: pair, User: info})
}

// Refresh rotates a refresh token into a new pair. The used refresh token is revoked.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	claims, err := h.jwtManager.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "Invalid or expired refresh token")
		return
	}

	ctx := c.Request.Context()
	revoked, err := h.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	if revoked {
		response.Unauthorized(c, "Refresh token has been revoked")
		return
	}

	user, err := h.userService.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive() {
		response.Unauthorized(c, "User account is not active")
		return
	}

	pair, err := h.jwtManager.GenerateTokenPair(user.ID, user.RoleID, user.Email)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	if err := h.revoke(ctx, claims); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, pair)
}

// Logout revokes the access token of the request and, when given, the refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if claims, ok := middleware.CurrentClaims(c); ok {
		if err := h.revoke(ctx, claims); err != nil {
			response.HandleError(c, err)
			return
		}
	}

	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}
	if req.RefreshToken != "" {
		if claims, err := h.jwtManager.VerifyRefreshToken(req.RefreshToken); err == nil {
			if err := h.revoke(ctx, claims); err != nil {
				response.HandleError(c, err)
				return
			}
		}
	}

	logger.GetLogger().WithField("user_id", actorID(c)).Info("User logged out")
	response.SuccessWithMessage(c, "Logged out", nil)
}

// Me returns the caller's profile with its current permissions
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.userService.GetByID(ctx, actorID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	info, err := h.userInfo(ctx, user)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, info)
}

func (h *AuthHandler) userInfo(ctx context.Context, user *models.User) (UserInfo, error) {
	names, err := h.permissionService.UserPermissionNames(ctx, user.ID)
	if err != nil {
		return UserInfo{}, err
	}

	info := UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		StaffID:     user.StaffID,
		FullName:    user.FullName,
		UserType:    string(user.UserType),
		Permissions: names,
	}
	if user.Role != nil {
		info.RoleCode = user.Role.RoleCode
	}
	return info, nil
}

// revoke keeps the token id in the store until the token would have expired anyway
func (h *AuthHandler) revoke(ctx context.Context, claims *jwt.JWTClaims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	return h.tokens.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}
