package service

import (
	"errors"
	"fmt"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/log"

	"gorm.io/gorm"
)

// RegistrationDecision 是单条注册申请的审核指令。
type RegistrationDecision struct {
	RequestID uint   `json:"requestId" binding:"required"`
	Approve   bool   `json:"approve"`
	Notes     string `json:"notes"`
}

// RegistrationReviewResult 汇总批量注册审核的结果，失败逐条收集不阻断。
type RegistrationReviewResult struct {
	Processed int             `json:"processed"`
	Failures  []TargetFailure `json:"failures"`
}

// AdminService 接口定义了董事与管理员专属的管理操作。
type AdminService interface {
	ListUsers(page, pageSize int) ([]model.User, int64, error)
	ListPendingRegistrations() ([]model.RegistrationRequest, error)
	// ReviewRegistrations 批量审核注册申请：通过则激活用户，拒绝则保持 PENDING 用户不可登录。
	// 单条失败不影响其余条目，失败原因随结果返回。
	ReviewRegistrations(decisions []RegistrationDecision, reviewerID uint) (*RegistrationReviewResult, error)
	// SetUserRole 调整用户角色。
	SetUserRole(userID uint, role string) (*model.User, error)
	// DeactivateUser 将成员标记为 EX_MEMBER，其历史积分保留但退出排行。
	DeactivateUser(userID uint) (*model.User, error)

	CreateActionType(name, description string) (*model.ActionType, error)
	ListActionTypes() ([]model.ActionType, error)
	DeleteActionType(id uint) error

	CreateTemplate(t *model.TagTemplate) (*model.TagTemplate, error)
	UpdateTemplate(t *model.TagTemplate) (*model.TagTemplate, error)
	ListTemplates() ([]model.TagTemplate, error)
	DeleteTemplate(id uint) error
}

type adminService struct {
	userRepo     repository.UserRepository
	requestRepo  repository.RequestRepository
	templateRepo repository.TemplateRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	templateRepo repository.TemplateRepository,
) AdminService {
	return &adminService{
		userRepo:     userRepo,
		requestRepo:  requestRepo,
		templateRepo: templateRepo,
	}
}

// ListUsers 分页列出全部用户。
func (s *adminService) ListUsers(page, pageSize int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.userRepo.FindWithPagination((page-1)*pageSize, pageSize)
}

// ListPendingRegistrations 返回所有待审核的注册申请。
func (s *adminService) ListPendingRegistrations() ([]model.RegistrationRequest, error) {
	return s.requestRepo.FindRegistrationsByStatus(model.RequestStatusPending)
}

// ReviewRegistrations 批量审核注册申请。
// 每条独立处理：已终态的申请记为冲突，其余条目照常继续。
func (s *adminService) ReviewRegistrations(decisions []RegistrationDecision, reviewerID uint) (*RegistrationReviewResult, error) {
	if len(decisions) == 0 {
		return nil, fmt.Errorf("%w: 审核列表不能为空", ErrValidation)
	}

	result := &RegistrationReviewResult{}
	for _, d := range decisions {
		if err := s.reviewOne(d, reviewerID); err != nil {
			result.Failures = append(result.Failures, TargetFailure{
				Target: fmt.Sprintf("request:%d", d.RequestID),
				Reason: err.Error(),
			})
			log.Errorf("[AdminService] 注册申请 %d 审核失败: %v", d.RequestID, err)
			continue
		}
		result.Processed++
	}
	return result, nil
}

func (s *adminService) reviewOne(d RegistrationDecision, reviewerID uint) error {
	req, err := s.requestRepo.FindRegistrationByID(d.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 注册申请不存在", ErrNotFound)
		}
		return err
	}
	if req.Status != model.RequestStatusPending {
		return fmt.Errorf("%w: 申请已审核，不能重复处理", ErrConflict)
	}

	now := time.Now()
	req.ReviewerID = &reviewerID
	req.ReviewerNotes = d.Notes
	req.ReviewedAt = &now
	if d.Approve {
		req.Status = model.RequestStatusApproved
	} else {
		req.Status = model.RequestStatusRejected
	}
	if err := s.requestRepo.UpdateRegistration(req); err != nil {
		return err
	}

	if d.Approve {
		user, err := s.userRepo.FindByID(req.UserID)
		if err != nil {
			return err
		}
		user.Status = model.UserStatusActive
		return s.userRepo.Update(user)
	}
	return nil
}

// SetUserRole 调整用户角色。
func (s *adminService) SetUserRole(userID uint, role string) (*model.User, error) {
	switch role {
	case model.RoleMember, model.RoleDirector, model.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: 未知角色 %s", ErrValidation, role)
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 用户不存在", ErrNotFound)
		}
		return nil, err
	}
	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeactivateUser 将成员标记为 EX_MEMBER。
// 历史 Tag 与聚合原样保留，排行榜查询负责排除该状态。
func (s *adminService) DeactivateUser(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 用户不存在", ErrNotFound)
		}
		return nil, err
	}
	if user.Status == model.UserStatusExMember {
		return nil, fmt.Errorf("%w: 用户已是退出状态", ErrConflict)
	}
	user.Status = model.UserStatusExMember
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateActionType 创建行为类型。
func (s *adminService) CreateActionType(name, description string) (*model.ActionType, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: 名称不能为空", ErrValidation)
	}
	at := &model.ActionType{Name: name, Description: description}
	if err := s.templateRepo.CreateActionType(at); err != nil {
		return nil, err
	}
	return at, nil
}

func (s *adminService) ListActionTypes() ([]model.ActionType, error) {
	return s.templateRepo.FindAllActionTypes()
}

func (s *adminService) DeleteActionType(id uint) error {
	if _, err := s.templateRepo.FindActionTypeByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 行为类型不存在", ErrNotFound)
		}
		return err
	}
	return s.templateRepo.DeleteActionType(id)
}

// CreateTemplate 创建积分模板，行为类型必须已存在。
func (s *adminService) CreateTemplate(t *model.TagTemplate) (*model.TagTemplate, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("%w: 名称不能为空", ErrValidation)
	}
	if _, err := s.templateRepo.FindActionTypeByID(t.ActionTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 行为类型不存在", ErrNotFound)
		}
		return nil, err
	}
	if err := s.templateRepo.CreateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTemplate 整体保存模板；修改不影响既有 Tag 的已落账分值。
func (s *adminService) UpdateTemplate(t *model.TagTemplate) (*model.TagTemplate, error) {
	if _, err := s.templateRepo.FindTemplateByID(t.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 模板不存在", ErrNotFound)
		}
		return nil, err
	}
	if err := s.templateRepo.UpdateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *adminService) ListTemplates() ([]model.TagTemplate, error) {
	return s.templateRepo.FindAllTemplates()
}

func (s *adminService) DeleteTemplate(id uint) error {
	if _, err := s.templateRepo.FindTemplateByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 模板不存在", ErrNotFound)
		}
		return err
	}
	return s.templateRepo.DeleteTemplate(id)
}
