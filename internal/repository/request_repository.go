package repository

import (
	"casinha-go/internal/model"

	"gorm.io/gorm"
)

// RequestRepository 接口定义了三类审核请求（注册、积分申请、申诉）的数据操作方法。
// 请求记录只追加和审核更新，从不删除，保留审计痕迹。
type RequestRepository interface {
	CreateRegistration(req *model.RegistrationRequest) error
	FindRegistrationByID(id uint) (*model.RegistrationRequest, error)
	FindRegistrationsByStatus(status string) ([]model.RegistrationRequest, error)
	UpdateRegistration(req *model.RegistrationRequest) error

	CreateSolicitation(s *model.Solicitation) error
	FindSolicitationByID(id uint) (*model.Solicitation, error)
	FindSolicitationsByStatus(status string) ([]model.Solicitation, error)
	FindSolicitationsByRequester(requesterID uint) ([]model.Solicitation, error)
	UpdateSolicitation(s *model.Solicitation) error

	CreateReport(rep *model.Report) error
	FindReportByID(id uint) (*model.Report, error)
	FindReportsByRecipient(recipientID uint, status string) ([]model.Report, error)
	FindReportsByRequester(requesterID uint) ([]model.Report, error)
	UpdateReport(rep *model.Report) error
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建一个新的 RequestRepository 实例。
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) CreateRegistration(req *model.RegistrationRequest) error {
	return r.db.Create(req).Error
}

func (r *requestRepository) FindRegistrationByID(id uint) (*model.RegistrationRequest, error) {
	var req model.RegistrationRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindRegistrationsByStatus(status string) ([]model.RegistrationRequest, error) {
	var reqs []model.RegistrationRequest
	err := r.db.Where("status = ?", status).Order("created_at ASC").Find(&reqs).Error
	return reqs, err
}

func (r *requestRepository) UpdateRegistration(req *model.RegistrationRequest) error {
	return r.db.Save(req).Error
}

func (r *requestRepository) CreateSolicitation(s *model.Solicitation) error {
	return r.db.Create(s).Error
}

func (r *requestRepository) FindSolicitationByID(id uint) (*model.Solicitation, error) {
	var s model.Solicitation
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *requestRepository) FindSolicitationsByStatus(status string) ([]model.Solicitation, error) {
	var list []model.Solicitation
	err := r.db.Where("status = ?", status).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *requestRepository) FindSolicitationsByRequester(requesterID uint) ([]model.Solicitation, error) {
	var list []model.Solicitation
	err := r.db.Where("requester_id = ?", requesterID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *requestRepository) UpdateSolicitation(s *model.Solicitation) error {
	return r.db.Save(s).Error
}

func (r *requestRepository) CreateReport(rep *model.Report) error {
	return r.db.Create(rep).Error
}

func (r *requestRepository) FindReportByID(id uint) (*model.Report, error) {
	var rep model.Report
	if err := r.db.First(&rep, id).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *requestRepository) FindReportsByRecipient(recipientID uint, status string) ([]model.Report, error) {
	var list []model.Report
	q := r.db.Where("recipient_id = ?", recipientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *requestRepository) FindReportsByRequester(requesterID uint) ([]model.Report, error) {
	var list []model.Report
	err := r.db.Where("requester_id = ?", requesterID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *requestRepository) UpdateReport(rep *model.Report) error {
	return r.db.Save(rep).Error
}
