package handler

import (
	"casinha-go/internal/service"
	"casinha-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// PlanningHandler 负责处理战略规划内容相关的 API 请求。
type PlanningHandler struct {
	planningService service.PlanningService
}

// NewPlanningHandler 创建一个新的 PlanningHandler 实例。
func NewPlanningHandler(planningService service.PlanningService) *PlanningHandler {
	return &PlanningHandler{planningService: planningService}
}

// Create 创建一条文本型规划内容（董事操作）。
func (h *PlanningHandler) Create(c *gin.Context) {
	var req service.PlanningContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：title 和 kind 不能为空")
		return
	}

	user := mustUser(c)
	content, err := h.planningService.Create(req, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, content)
}

// CreateFromDocument 上传文档作为规划内容（董事操作）。
// multipart 表单：file + title + kind + area。
func (h *PlanningHandler) CreateFromDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "缺少 file 字段")
		return
	}
	req := service.PlanningContentRequest{
		Title: c.PostForm("title"),
		Kind:  c.PostForm("kind"),
		Area:  c.PostForm("area"),
	}
	if req.Title == "" || req.Kind == "" {
		respondBadRequest(c, "title 和 kind 不能为空")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	user := mustUser(c)
	content, err := h.planningService.CreateFromDocument(
		c.Request.Context(), req, user.ID,
		fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		log.Errorf("CreateFromDocument: 处理文档上传失败: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, content)
}

// Get 返回一条规划内容。
func (h *PlanningHandler) Get(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的内容 id")
		return
	}
	content, err := h.planningService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, content)
}

// List 按种类/领域过滤列出规划内容。
func (h *PlanningHandler) List(c *gin.Context) {
	list, err := h.planningService.List(c.Query("kind"), c.Query("area"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// Update 更新一条规划内容（董事操作）。
func (h *PlanningHandler) Update(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的内容 id")
		return
	}
	// 部分更新：空字段不变更，不复用带 required 校验的创建结构
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Kind  string `json:"kind"`
		Area  string `json:"area"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载")
		return
	}

	user := mustUser(c)
	content, err := h.planningService.Update(id, service.PlanningContentRequest{
		Title: req.Title,
		Body:  req.Body,
		Kind:  req.Kind,
		Area:  req.Area,
	}, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, content)
}

// Delete 删除一条规划内容及其知识库索引（董事操作）。
func (h *PlanningHandler) Delete(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的内容 id")
		return
	}
	if err := h.planningService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
