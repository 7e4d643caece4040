package handler

import (
	"encoding/json"
	"strconv"
	"time"

	"casinha-go/internal/service"
	"casinha-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// PointsHandler 负责处理积分台账相关的 API 请求。
type PointsHandler struct {
	pointsService service.PointsService
}

// NewPointsHandler 创建一个新的 PointsHandler 实例。
func NewPointsHandler(pointsService service.PointsService) *PointsHandler {
	return &PointsHandler{pointsService: pointsService}
}

// AssignTagsRequest 定义了批量授予 API 的请求体结构。
type AssignTagsRequest struct {
	UserIDs           []uint    `json:"userIds"`
	IncludeEnterprise bool      `json:"includeEnterprise"`
	TemplateIDs       []uint    `json:"templateIds" binding:"required"`
	DatePerformed     time.Time `json:"datePerformed" binding:"required"`
	Description       string    `json:"description"`
	AllowExMembers    bool      `json:"allowExMembers"`
}

// AssignTags 处理批量授予请求：为每个目标按模板落账。
func (h *PointsHandler) AssignTags(c *gin.Context) {
	var req AssignTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("AssignTags: Invalid request payload, error: %v", err)
		respondBadRequest(c, "无效的请求负载：templateIds 和 datePerformed 不能为空")
		return
	}

	user := mustUser(c)
	result, err := h.pointsService.AssignTemplates(service.AssignRequest{
		UserIDs:           req.UserIDs,
		IncludeEnterprise: req.IncludeEnterprise,
		TemplateIDs:       req.TemplateIDs,
		DatePerformed:     req.DatePerformed,
		Description:       req.Description,
		AssignerID:        user.ID,
		AllowExMembers:    req.AllowExMembers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// AttachToEnterpriseRequest 定义了企业积分挂载 API 的请求体结构。
type AttachToEnterpriseRequest struct {
	TagIDs []uint `json:"tagIds" binding:"required"`
}

// AttachTagsToEnterprise 将既有的未分配 Tag 计入企业积分。
func (h *PointsHandler) AttachTagsToEnterprise(c *gin.Context) {
	var req AttachToEnterpriseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：tagIds 不能为空")
		return
	}

	user := mustUser(c)
	if err := h.pointsService.AttachTagsToEnterprise(req.TagIDs, user.ID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// CreateTagRequest 定义了创建未分配 Tag API 的请求体结构。
type CreateTagRequest struct {
	Description   string    `json:"description" binding:"required"`
	Value         float64   `json:"value"`
	ActionTypeID  uint      `json:"actionTypeId"`
	DatePerformed time.Time `json:"datePerformed" binding:"required"`
}

// CreateTag 创建一条未分配聚合的 Tag。
func (h *PointsHandler) CreateTag(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：description 和 datePerformed 不能为空")
		return
	}

	user := mustUser(c)
	tag, err := h.pointsService.CreateUnassignedTag(req.Description, req.Value, req.ActionTypeID, req.DatePerformed, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tag)
}

// PatchTag 部分更新 Tag。
// 请求体携带显式的 "userPointsId": null 或 "enterprisePointsId": null 时解除聚合关联并冲销分值。
func (h *PointsHandler) PatchTag(c *gin.Context) {
	tagID, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的 tag id")
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondBadRequest(c, "无效的请求负载")
		return
	}

	patch := service.TagPatch{}
	// 显式 null 表示解除关联
	if v, ok := raw["userPointsId"]; ok && string(v) == "null" {
		patch.UnlinkFromAggregate = true
	}
	if v, ok := raw["enterprisePointsId"]; ok && string(v) == "null" {
		patch.UnlinkFromAggregate = true
	}
	if v, ok := raw["description"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			patch.Description = &s
		}
	}
	if v, ok := raw["value"]; ok && string(v) != "null" {
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			patch.Value = &f
		}
	}
	if v, ok := raw["datePerformed"]; ok && string(v) != "null" {
		var t time.Time
		if err := json.Unmarshal(v, &t); err == nil {
			patch.DatePerformed = &t
		}
	}

	tag, err := h.pointsService.PatchTag(tagID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tag)
}

// DeleteTag 冲销并删除一条 Tag。
func (h *PointsHandler) DeleteTag(c *gin.Context) {
	tagID, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的 tag id")
		return
	}
	if err := h.pointsService.DeleteTag(tagID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// GetJRPointsData 返回积分系统的聚合读：排行榜、企业总分与历史、未分配 Tag、行为类型统计。
func (h *PointsHandler) GetJRPointsData(c *gin.Context) {
	snapshot, err := h.pointsService.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snapshot)
}

// parseUintParam 解析路径参数为 uint。
func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
