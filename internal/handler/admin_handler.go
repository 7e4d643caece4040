package handler

import (
	"strconv"

	"casinha-go/internal/model"
	"casinha-go/internal/service"
	"casinha-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理董事与管理员专属的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers 分页列出全部用户。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	users, total, err := h.adminService.ListUsers(page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"users": users,
		"total": total,
	})
}

// ListPendingRegistrations 列出待审核的注册申请。
func (h *AdminHandler) ListPendingRegistrations(c *gin.Context) {
	list, err := h.adminService.ListPendingRegistrations()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// ReviewRegistrationsRequest 定义了批量注册审核 API 的请求体结构。
type ReviewRegistrationsRequest struct {
	Decisions []service.RegistrationDecision `json:"decisions" binding:"required"`
}

// ReviewRegistrations 批量审核注册申请，单条失败不阻断其余条目。
func (h *AdminHandler) ReviewRegistrations(c *gin.Context) {
	var req ReviewRegistrationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("ReviewRegistrations: Invalid request payload, error: %v", err)
		respondBadRequest(c, "无效的请求负载：decisions 不能为空")
		return
	}

	user := mustUser(c)
	result, err := h.adminService.ReviewRegistrations(req.Decisions, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// SetUserRoleRequest 定义了角色调整 API 的请求体结构。
type SetUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetUserRole 调整用户角色（管理员操作）。
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的用户 id")
		return
	}
	var req SetUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：role 不能为空")
		return
	}
	user, err := h.adminService.SetUserRole(id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

// DeactivateUser 将成员标记为退出状态。
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的用户 id")
		return
	}
	user, err := h.adminService.DeactivateUser(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

// CreateActionTypeRequest 定义了创建行为类型 API 的请求体结构。
type CreateActionTypeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateActionType 创建行为类型。
func (h *AdminHandler) CreateActionType(c *gin.Context) {
	var req CreateActionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：name 不能为空")
		return
	}
	at, err := h.adminService.CreateActionType(req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, at)
}

// ListActionTypes 列出全部行为类型。
func (h *AdminHandler) ListActionTypes(c *gin.Context) {
	list, err := h.adminService.ListActionTypes()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// DeleteActionType 删除行为类型。
func (h *AdminHandler) DeleteActionType(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的行为类型 id")
		return
	}
	if err := h.adminService.DeleteActionType(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// TemplateRequest 定义了积分模板创建/更新 API 的请求体结构。
type TemplateRequest struct {
	Name                 string  `json:"name" binding:"required"`
	Description          string  `json:"description"`
	BaseValue            float64 `json:"baseValue"`
	ActionTypeID         uint    `json:"actionTypeId" binding:"required"`
	IsScalable           bool    `json:"isScalable"`
	EscalationValue      float64 `json:"escalationValue"`
	EscalationStreakDays int     `json:"escalationStreakDays"`
	EscalationCondition  string  `json:"escalationCondition"`
	Areas                string  `json:"areas"`
}

func (r *TemplateRequest) toModel() *model.TagTemplate {
	return &model.TagTemplate{
		Name:                 r.Name,
		Description:          r.Description,
		BaseValue:            r.BaseValue,
		ActionTypeID:         r.ActionTypeID,
		IsScalable:           r.IsScalable,
		EscalationValue:      r.EscalationValue,
		EscalationStreakDays: r.EscalationStreakDays,
		EscalationCondition:  r.EscalationCondition,
		Areas:                r.Areas,
	}
}

// CreateTemplate 创建积分模板。
func (h *AdminHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：name 和 actionTypeId 不能为空")
		return
	}
	t, err := h.adminService.CreateTemplate(req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, t)
}

// UpdateTemplate 更新积分模板。
func (h *AdminHandler) UpdateTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的模板 id")
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：name 和 actionTypeId 不能为空")
		return
	}
	t := req.toModel()
	t.ID = id
	updated, err := h.adminService.UpdateTemplate(t)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// ListTemplates 列出全部积分模板。
func (h *AdminHandler) ListTemplates(c *gin.Context) {
	list, err := h.adminService.ListTemplates()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// DeleteTemplate 删除积分模板。
func (h *AdminHandler) DeleteTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的模板 id")
		return
	}
	if err := h.adminService.DeleteTemplate(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
