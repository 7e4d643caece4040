package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/log"

	"gorm.io/gorm"
)

// SolicitationRequest 是积分申请的输入。
type SolicitationRequest struct {
	RequesterID     uint
	Description     string
	IsForEnterprise bool
	DatePerformed   time.Time
	TemplateIDs     []uint
	AttachmentKeys  []string
}

// ReportRequest 是 Tag 申诉的输入。
type ReportRequest struct {
	RequesterID          uint
	TagID                uint
	Description          string
	RecipientID          uint
	CorrectedValue       *float64
	CorrectedDescription string
	AttachmentKeys       []string
}

// ReviewService 接口定义了积分申请与申诉的提交和审核流程。
// 两类请求共享同一状态机：PENDING -> APPROVED | REJECTED，终态不可再审。
type ReviewService interface {
	CreateSolicitation(req SolicitationRequest) (*model.Solicitation, error)
	ListSolicitations(status string) ([]model.Solicitation, error)
	MySolicitations(requesterID uint) ([]model.Solicitation, error)
	// ReviewSolicitation 审核积分申请；通过时走授予编排器落账，落账失败保持 PENDING。
	ReviewSolicitation(id uint, approve bool, notes string, reviewerID uint) (*model.Solicitation, *AssignResult, error)

	CreateReport(req ReportRequest) (*model.Report, error)
	ReportsForRecipient(recipientID uint, status string) ([]model.Report, error)
	MyReports(requesterID uint) ([]model.Report, error)
	// ReviewReport 审核申诉；通过且携带修正值时按 (新值-旧值) 调整被申诉 Tag 的聚合。
	ReviewReport(id uint, approve bool, notes string, reviewer *model.User) (*model.Report, error)
}

type reviewService struct {
	requestRepo   repository.RequestRepository
	templateRepo  repository.TemplateRepository
	userRepo      repository.UserRepository
	pointsRepo    repository.PointsRepository
	pointsService PointsService
}

// NewReviewService 创建一个新的 ReviewService 实例。
func NewReviewService(
	requestRepo repository.RequestRepository,
	templateRepo repository.TemplateRepository,
	userRepo repository.UserRepository,
	pointsRepo repository.PointsRepository,
	pointsService PointsService,
) ReviewService {
	return &reviewService{
		requestRepo:   requestRepo,
		templateRepo:  templateRepo,
		userRepo:      userRepo,
		pointsRepo:    pointsRepo,
		pointsService: pointsService,
	}
}

// CreateSolicitation 登记积分申请，模板在提交时即整体校验。
func (s *reviewService) CreateSolicitation(req SolicitationRequest) (*model.Solicitation, error) {
	if len(req.TemplateIDs) == 0 {
		return nil, fmt.Errorf("%w: 模板列表不能为空", ErrValidation)
	}
	if req.DatePerformed.IsZero() {
		return nil, fmt.Errorf("%w: 执行日期无效", ErrValidation)
	}
	templates, err := s.templateRepo.FindTemplatesBatch(req.TemplateIDs)
	if err != nil {
		return nil, err
	}
	if len(templates) != len(uniqueIDs(req.TemplateIDs)) {
		missing := missingIDs(req.TemplateIDs, templateIDSet(templates))
		return nil, fmt.Errorf("%w: 模板不存在: %v", ErrNotFound, missing)
	}

	sol := &model.Solicitation{
		RequesterID:     req.RequesterID,
		Description:     req.Description,
		IsForEnterprise: req.IsForEnterprise,
		DatePerformed:   req.DatePerformed,
		TemplateIDs:     joinIDs(req.TemplateIDs),
		AttachmentKeys:  strings.Join(req.AttachmentKeys, ","),
		Status:          model.RequestStatusPending,
	}
	if err := s.requestRepo.CreateSolicitation(sol); err != nil {
		return nil, err
	}
	return sol, nil
}

func (s *reviewService) ListSolicitations(status string) ([]model.Solicitation, error) {
	if status == "" {
		status = model.RequestStatusPending
	}
	return s.requestRepo.FindSolicitationsByStatus(status)
}

func (s *reviewService) MySolicitations(requesterID uint) ([]model.Solicitation, error) {
	return s.requestRepo.FindSolicitationsByRequester(requesterID)
}

// ReviewSolicitation 审核积分申请。
// 通过时先落账后置终态：授予失败则申请保持 PENDING，可修正后重审。
func (s *reviewService) ReviewSolicitation(id uint, approve bool, notes string, reviewerID uint) (*model.Solicitation, *AssignResult, error) {
	sol, err := s.requestRepo.FindSolicitationByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: 申请不存在", ErrNotFound)
		}
		return nil, nil, err
	}
	if sol.Status != model.RequestStatusPending {
		return nil, nil, fmt.Errorf("%w: 申请已审核，不能重复处理", ErrConflict)
	}

	var assignResult *AssignResult
	if approve {
		templateIDs, err := splitIDs(sol.TemplateIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: 申请携带的模板列表损坏", ErrValidation)
		}
		assignReq := AssignRequest{
			TemplateIDs:   templateIDs,
			DatePerformed: sol.DatePerformed,
			Description:   sol.Description,
			AssignerID:    reviewerID,
		}
		if sol.IsForEnterprise {
			assignReq.IncludeEnterprise = true
		} else {
			assignReq.UserIDs = []uint{sol.RequesterID}
		}
		assignResult, err = s.pointsService.AssignTemplates(assignReq)
		if err != nil {
			return nil, nil, err
		}
		if assignResult.SucceededTargets == 0 {
			// collect 策略下单目标失败体现在 Failures 里，保持 PENDING
			return nil, assignResult, fmt.Errorf("积分落账失败: %s", assignResult.Failures[0].Reason)
		}
		sol.Status = model.RequestStatusApproved
	} else {
		sol.Status = model.RequestStatusRejected
	}

	now := time.Now()
	sol.ReviewerID = &reviewerID
	sol.ReviewerNotes = notes
	sol.ReviewedAt = &now
	if err := s.requestRepo.UpdateSolicitation(sol); err != nil {
		log.Errorf("[ReviewService] 申请 %d 状态落库失败: %v", sol.ID, err)
		return nil, assignResult, err
	}
	return sol, assignResult, nil
}

// CreateReport 登记对既有 Tag 的申诉，受理人必须是董事。
func (s *reviewService) CreateReport(req ReportRequest) (*model.Report, error) {
	if _, err := s.pointsRepo.FindTagByID(req.TagID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 被申诉的 tag 不存在", ErrNotFound)
		}
		return nil, err
	}
	recipient, err := s.userRepo.FindByID(req.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 受理人不存在", ErrNotFound)
		}
		return nil, err
	}
	if !recipient.IsDirector() {
		return nil, fmt.Errorf("%w: 受理人必须是董事", ErrValidation)
	}

	rep := &model.Report{
		RequesterID:          req.RequesterID,
		TagID:                req.TagID,
		Description:          req.Description,
		RecipientID:          req.RecipientID,
		CorrectedValue:       req.CorrectedValue,
		CorrectedDescription: req.CorrectedDescription,
		AttachmentKeys:       strings.Join(req.AttachmentKeys, ","),
		Status:               model.RequestStatusPending,
	}
	if err := s.requestRepo.CreateReport(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *reviewService) ReportsForRecipient(recipientID uint, status string) ([]model.Report, error) {
	return s.requestRepo.FindReportsByRecipient(recipientID, status)
}

func (s *reviewService) MyReports(requesterID uint) ([]model.Report, error) {
	return s.requestRepo.FindReportsByRequester(requesterID)
}

// ReviewReport 审核申诉，仅指定受理人或管理员可处理。
// 通过时先应用修正再置终态，修正失败保持 PENDING。
func (s *reviewService) ReviewReport(id uint, approve bool, notes string, reviewer *model.User) (*model.Report, error) {
	rep, err := s.requestRepo.FindReportByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 申诉不存在", ErrNotFound)
		}
		return nil, err
	}
	if rep.Status != model.RequestStatusPending {
		return nil, fmt.Errorf("%w: 申诉已审核，不能重复处理", ErrConflict)
	}
	if reviewer.ID != rep.RecipientID && reviewer.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: 只有指定受理人可处理该申诉", ErrForbidden)
	}

	if approve {
		if rep.CorrectedValue != nil || rep.CorrectedDescription != "" {
			if _, err := s.pointsService.ApplyCorrection(rep.TagID, rep.CorrectedValue, rep.CorrectedDescription); err != nil {
				return nil, err
			}
		}
		rep.Status = model.RequestStatusApproved
	} else {
		rep.Status = model.RequestStatusRejected
	}

	now := time.Now()
	rep.ReviewerID = &reviewer.ID
	rep.ReviewerNotes = notes
	rep.ReviewedAt = &now
	if err := s.requestRepo.UpdateReport(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// joinIDs 把 id 列表序列化为逗号分隔串。
func joinIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ",")
}

// splitIDs 解析逗号分隔的 id 串。
func splitIDs(s string) ([]uint, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(v))
	}
	return ids, nil
}
