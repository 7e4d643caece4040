package handler

import (
	"time"

	"casinha-go/internal/config"
	"casinha-go/internal/service"
	"casinha-go/pkg/log"
	"casinha-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

// RequestHandler 负责处理积分申请与申诉相关的 API 请求。
type RequestHandler struct {
	reviewService service.ReviewService
}

// NewRequestHandler 创建一个新的 RequestHandler 实例。
func NewRequestHandler(reviewService service.ReviewService) *RequestHandler {
	return &RequestHandler{reviewService: reviewService}
}

// CreateSolicitationRequest 定义了创建积分申请 API 的请求体结构。
type CreateSolicitationRequest struct {
	Description     string    `json:"description"`
	IsForEnterprise bool      `json:"isForEnterprise"`
	DatePerformed   time.Time `json:"datePerformed" binding:"required"`
	TemplateIDs     []uint    `json:"templateIds" binding:"required"`
	AttachmentKeys  []string  `json:"attachmentKeys"`
}

// CreateSolicitation 提交一条积分申请。
func (h *RequestHandler) CreateSolicitation(c *gin.Context) {
	var req CreateSolicitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CreateSolicitation: Invalid request payload, error: %v", err)
		respondBadRequest(c, "无效的请求负载：templateIds 和 datePerformed 不能为空")
		return
	}

	user := mustUser(c)
	sol, err := h.reviewService.CreateSolicitation(service.SolicitationRequest{
		RequesterID:     user.ID,
		Description:     req.Description,
		IsForEnterprise: req.IsForEnterprise,
		DatePerformed:   req.DatePerformed,
		TemplateIDs:     req.TemplateIDs,
		AttachmentKeys:  req.AttachmentKeys,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sol)
}

// ListSolicitations 按状态列出积分申请（董事视角）。
func (h *RequestHandler) ListSolicitations(c *gin.Context) {
	list, err := h.reviewService.ListSolicitations(c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// MySolicitations 列出当前用户提交的积分申请。
func (h *RequestHandler) MySolicitations(c *gin.Context) {
	user := mustUser(c)
	list, err := h.reviewService.MySolicitations(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// ReviewDecisionRequest 定义了审核 API 的请求体结构。
type ReviewDecisionRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// ReviewSolicitation 审核一条积分申请。
func (h *RequestHandler) ReviewSolicitation(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的申请 id")
		return
	}
	var req ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载")
		return
	}

	user := mustUser(c)
	sol, assignResult, err := h.reviewService.ReviewSolicitation(id, req.Approve, req.Notes, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"solicitation": sol,
		"assignResult": assignResult,
	})
}

// CreateReportRequest 定义了创建申诉 API 的请求体结构。
type CreateReportRequest struct {
	TagID                uint     `json:"tagId" binding:"required"`
	Description          string   `json:"description" binding:"required"`
	RecipientID          uint     `json:"recipientId" binding:"required"`
	CorrectedValue       *float64 `json:"correctedValue"`
	CorrectedDescription string   `json:"correctedDescription"`
	AttachmentKeys       []string `json:"attachmentKeys"`
}

// CreateReport 提交一条对既有 Tag 的申诉。
func (h *RequestHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CreateReport: Invalid request payload, error: %v", err)
		respondBadRequest(c, "无效的请求负载：tagId、description 和 recipientId 不能为空")
		return
	}

	user := mustUser(c)
	rep, err := h.reviewService.CreateReport(service.ReportRequest{
		RequesterID:          user.ID,
		TagID:                req.TagID,
		Description:          req.Description,
		RecipientID:          req.RecipientID,
		CorrectedValue:       req.CorrectedValue,
		CorrectedDescription: req.CorrectedDescription,
		AttachmentKeys:       req.AttachmentKeys,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rep)
}

// MyReports 列出当前用户提交的申诉。
func (h *RequestHandler) MyReports(c *gin.Context) {
	user := mustUser(c)
	list, err := h.reviewService.MyReports(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// ReportsToReview 列出当前董事受理的申诉。
func (h *RequestHandler) ReportsToReview(c *gin.Context) {
	user := mustUser(c)
	list, err := h.reviewService.ReportsForRecipient(user.ID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// ReviewReport 审核一条申诉。
func (h *RequestHandler) ReviewReport(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的申诉 id")
		return
	}
	var req ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载")
		return
	}

	user := mustUser(c)
	rep, err := h.reviewService.ReviewReport(id, req.Approve, req.Notes, user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rep)
}

// UploadAttachment 上传一个申请/申诉附件到对象存储，返回对象键。
func (h *RequestHandler) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "缺少 file 字段")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	objectKey := storage.NewObjectKey("attachments", fileHeader.Filename)
	bucket := config.Conf.MinIO.BucketName
	contentType := fileHeader.Header.Get("Content-Type")
	if err := storage.UploadObject(c.Request.Context(), bucket, objectKey, file, fileHeader.Size, contentType); err != nil {
		log.Errorf("UploadAttachment: 上传附件失败: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"objectKey": objectKey})
}

// PresignAttachment 为附件生成临时下载链接。
func (h *RequestHandler) PresignAttachment(c *gin.Context) {
	objectKey := c.Query("key")
	if objectKey == "" {
		respondBadRequest(c, "缺少 key 参数")
		return
	}
	url, err := storage.GetPresignedURL(config.Conf.MinIO.BucketName, objectKey, 15*time.Minute)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"url": url})
}
