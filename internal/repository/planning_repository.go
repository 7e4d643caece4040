package repository

import (
	"casinha-go/internal/model"

	"gorm.io/gorm"
)

// PlanningRepository 接口定义了战略规划内容的数据操作方法。
type PlanningRepository interface {
	Create(content *model.PlanningContent) error
	FindByID(id uint) (*model.PlanningContent, error)
	FindAll(kind, area string) ([]model.PlanningContent, error)
	FindBatchByIDs(ids []uint) ([]model.PlanningContent, error)
	Update(content *model.PlanningContent) error
	Delete(id uint) error
}

type planningRepository struct {
	db *gorm.DB
}

// NewPlanningRepository 创建一个新的 PlanningRepository 实例。
func NewPlanningRepository(db *gorm.DB) PlanningRepository {
	return &planningRepository{db: db}
}

func (r *planningRepository) Create(content *model.PlanningContent) error {
	return r.db.Create(content).Error
}

func (r *planningRepository) FindByID(id uint) (*model.PlanningContent, error) {
	var content model.PlanningContent
	if err := r.db.First(&content, id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

// FindAll 按种类/领域过滤检索规划内容，空参数表示不过滤。
func (r *planningRepository) FindAll(kind, area string) ([]model.PlanningContent, error) {
	var list []model.PlanningContent
	q := r.db.Order("updated_at DESC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if area != "" {
		q = q.Where("area = ?", area)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *planningRepository) FindBatchByIDs(ids []uint) ([]model.PlanningContent, error) {
	var list []model.PlanningContent
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *planningRepository) Update(content *model.PlanningContent) error {
	return r.db.Save(content).Error
}

func (r *planningRepository) Delete(id uint) error {
	return r.db.Delete(&model.PlanningContent{}, id).Error
}
