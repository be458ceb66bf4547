package handlers

import (
	"strings"

	"tripadmin/internal/models"
	"tripadmin/internal/services"
	"tripadmin/pkg/pagination"
	"tripadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateDepartmentRequest struct {
	DepartmentCode string `json:"department_code" binding:"required,max=100"`
	DepartmentName string `json:"department_name" binding:"required,max=150"`
}

type UpdateDepartmentRequest struct {
	DepartmentCode *string `json:"department_code" binding:"omitempty,max=100"`
	DepartmentName *string `json:"department_name" binding:"omitempty,max=150"`
	Status         *string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type DepartmentHandler struct {
	service *services.DepartmentService
}

func NewDepartmentHandler(service *services.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{
		service: service,
	}
}

func (h *DepartmentHandler) Create(c *gin.Context) {
	var req CreateDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}

	department, err := h.service.Create(c.Request.Context(), actorID(c), req.DepartmentCode, req.DepartmentName)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Created(c, department)
}

func (h *DepartmentHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	departments, total, err := h.service.List(c.Request.Context(), services.DepartmentFilter{
		DepartmentCode: c.Query("department_code"),
		DepartmentName: c.Query("department_name"),
		StartDate:      c.Query("start_date"),
		EndDate:        c.Query("end_date"),
		Page:           params.Page,
		Limit:          params.Limit,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithPage(c, departments, pagination.NewPageInfo(params.Page, params.Limit, total))
}

func (h *DepartmentHandler) ListCommon(c *gin.Context) {
	departments, err := h.service.ListCommon(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, departments)
}

func (h *DepartmentHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	department, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, department)
}

func (h *DepartmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.DepartmentInput{
		DepartmentCode: req.DepartmentCode,
		DepartmentName: req.DepartmentName,
	}
	if req.Status != nil {
		status := models.Status(strings.ToUpper(*req.Status))
		in.Status = &status
	}

	department, err := h.service.Update(c.Request.Context(), actorID(c), id, in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, department)
}

func (h *DepartmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.service.Delete(c.Request.Context(), actorID(c), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Department deleted", nil)
}
