package handlers

import (
	"strings"

	"tripadmin/internal/models"
	"tripadmin/internal/services"
	"tripadmin/pkg/pagination"
	"tripadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreatePermissionRequest struct {
	Module      string `json:"module" binding:"required,max=100"`
	Action      string `json:"action" binding:"required,max=50"`
	Description string `json:"description" binding:"max=255"`
}

type UpdatePermissionRequest struct {
	Module      *string `json:"module" binding:"omitempty,max=100"`
	Action      *string `json:"action" binding:"omitempty,max=50"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	Status      *string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type PermissionHandler struct {
	service *services.PermissionService
}

func NewPermissionHandler(service *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{
		service: service,
	}
}

// Create adds a catalog entry
func (h *PermissionHandler) Create(c *gin.Context) {
	var req CreatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}

	permission, err := h.service.Create(c.Request.Context(), actorID(c), services.CreatePermissionInput{
		Module:      req.Module,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Created(c, permission)
}

// List pages through the catalog
func (h *PermissionHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	permissions, total, err := h.service.List(c.Request.Context(), services.PermissionFilter{
		Name:      c.Query("name"),
		Module:    c.Query("module"),
		Action:    c.Query("action"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Page:      params.Page,
		Limit:     params.Limit,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithPage(c, permissions, pagination.NewPageInfo(params.Page, params.Limit, total))
}

// GetByID returns one entry
func (h *PermissionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	permission, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, permission)
}

// Update changes module, action, description or status
func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.UpdatePermissionInput{
		Module:      req.Module,
		Action:      req.Action,
		Description: req.Description,
	}
	if req.Status != nil {
		status := models.Status(strings.ToUpper(*req.Status))
		in.Status = &status
	}

	permission, err := h.service.Update(c.Request.Context(), actorID(c), id, in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, permission)
}

// Delete soft-deletes an entry
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.service.Delete(c.Request.Context(), actorID(c), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Permission deleted", nil)
}

// ListByModule returns every entry of one module
func (h *PermissionHandler) ListByModule(c *gin.Context) {
	permissions, err := h.service.ListByModule(c.Request.Context(), c.Param("module"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, permissions)
}

// ListModules returns the distinct module names
func (h *PermissionHandler) ListModules(c *gin.Context) {
	modules, err := h.service.ListModules(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, modules)
}
