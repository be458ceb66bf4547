package handlers

import (
	"strings"

	"tripadmin/internal/models"
	"tripadmin/internal/services"
	"tripadmin/pkg/pagination"
	"tripadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Email           string `json:"email" binding:"required,email,max=150"`
	StaffID         string `json:"staff_id" binding:"required,max=50"`
	FullName        string `json:"full_name" binding:"required,max=150"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	UserType        string `json:"user_type" binding:"omitempty,oneof=ADMIN STAFF"`
	RoleCode        string `json:"role_code" binding:"max=100"`
	DepartmentCode  string `json:"department_code" binding:"max=100"`
}

type UpdateUserRequest struct {
	Email          *string `json:"email" binding:"omitempty,email,max=150"`
	StaffID        *string `json:"staff_id" binding:"omitempty,max=50"`
	FullName       *string `json:"full_name" binding:"omitempty,max=150"`
	RoleCode       *string `json:"role_code" binding:"omitempty,max=100"`
	DepartmentCode *string `json:"department_code" binding:"omitempty,max=100"`
	Status         *string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

type UserHandler struct {
	service     *services.UserService
	permissions *services.PermissionService
}

func NewUserHandler(service *services.UserService, permissions *services.PermissionService) *UserHandler {
	return &UserHandler{
		service:     service,
		permissions: permissions,
	}
}

// ========== Account management ==========

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.Create(c.Request.Context(), actorID(c), services.CreateUserInput{
		Email:           req.Email,
		StaffID:         req.StaffID,
		FullName:        req.FullName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		UserType:        models.UserType(req.UserType),
		RoleCode:        req.RoleCode,
		DepartmentCode:  req.DepartmentCode,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Created(c, user)
}

func (h *UserHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	users, total, err := h.service.List(c.Request.Context(), services.UserFilter{
		FullName:       c.Query("full_name"),
		Email:          c.Query("email"),
		StaffID:        c.Query("staff_id"),
		Status:         c.Query("status"),
		RoleCode:       c.Query("role_code"),
		DepartmentCode: c.Query("department_code"),
		StartDate:      c.Query("start_date"),
		EndDate:        c.Query("end_date"),
		Page:           params.Page,
		Limit:          params.Limit,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithPage(c, users, pagination.NewPageInfo(params.Page, params.Limit, total))
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.UpdateUserInput{
		Email:          req.Email,
		StaffID:        req.StaffID,
		FullName:       req.FullName,
		RoleCode:       req.RoleCode,
		DepartmentCode: req.DepartmentCode,
	}
	if req.Status != nil {
		status := models.Status(strings.ToUpper(*req.Status))
		in.Status = &status
	}

	user, err := h.service.Update(c.Request.Context(), actorID(c), id, in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.service.Delete(c.Request.Context(), actorID(c), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "User deleted", nil)
}

// ========== Current user ==========

// MyPermissions returns the flattened permission names the caller holds right now
func (h *UserHandler) MyPermissions(c *gin.Context) {
	names, err := h.permissions.UserPermissionNames(c.Request.Context(), actorID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, names)
}

// MyMenu returns the tree of the caller's role for rendering navigation
func (h *UserHandler) MyMenu(c *gin.Context) {
	tree, err := h.service.RoleTreeForUser(c.Request.Context(), actorID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, tree)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), actorID(c), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Password changed", nil)
}
