package handlers

import (
	"strings"

	"tripadmin/internal/models"
	"tripadmin/internal/permtree"
	"tripadmin/internal/services"
	"tripadmin/pkg/pagination"
	"tripadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateRoleRequest struct {
	RoleCode    string        `json:"role_code" binding:"required,max=100"`
	RoleName    string        `json:"role_name" binding:"required,max=100"`
	Permissions permtree.Tree `json:"permissions"`
}

// UpdateRoleRequest a present permissions field replaces the whole tree
type UpdateRoleRequest struct {
	RoleCode    *string        `json:"role_code" binding:"omitempty,max=100"`
	RoleName    *string        `json:"role_name" binding:"omitempty,max=100"`
	Permissions *permtree.Tree `json:"permissions"`
	Status      *string        `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type RoleHandler struct {
	service *services.RoleService
}

func NewRoleHandler(service *services.RoleService) *RoleHandler {
	return &RoleHandler{
		service: service,
	}
}

// Create adds a role and links its permissions
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.service.Create(c.Request.Context(), actorID(c), services.CreateRoleInput{
		RoleCode:    req.RoleCode,
		RoleName:    req.RoleName,
		Permissions: req.Permissions,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Created(c, role)
}

// List pages through the roles
func (h *RoleHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	roles, total, err := h.service.List(c.Request.Context(), services.RoleFilter{
		RoleCode:  c.Query("role_code"),
		RoleName:  c.Query("role_name"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Page:      params.Page,
		Limit:     params.Limit,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithPage(c, roles, pagination.NewPageInfo(params.Page, params.Limit, total))
}

// ListCommon returns the roles assignable to users
func (h *RoleHandler) ListCommon(c *gin.Context) {
	roles, err := h.service.ListCommon(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, roles)
}

// GetByID returns one role
func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	role, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, role)
}

// Update changes a role
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.UpdateRoleInput{
		RoleCode:    req.RoleCode,
		RoleName:    req.RoleName,
		Permissions: req.Permissions,
	}
	if req.Status != nil {
		status := models.Status(strings.ToUpper(*req.Status))
		in.Status = &status
	}

	role, err := h.service.Update(c.Request.Context(), actorID(c), id, in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, role)
}

// Delete soft-deletes a role and removes its links
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.service.Delete(c.Request.Context(), actorID(c), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Role deleted", nil)
}

// GetPermissions returns the role's tree as stored
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	tree, err := h.service.Tree(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, tree)
}
