package repository

import (
	"casinha-go/internal/model"

	"gorm.io/gorm"
)

// TemplateRepository 接口定义了积分模板与行为类型的数据操作方法。
type TemplateRepository interface {
	CreateTemplate(t *model.TagTemplate) error
	FindTemplateByID(id uint) (*model.TagTemplate, error)
	FindTemplatesBatch(ids []uint) ([]model.TagTemplate, error)
	FindAllTemplates() ([]model.TagTemplate, error)
	UpdateTemplate(t *model.TagTemplate) error
	DeleteTemplate(id uint) error

	CreateActionType(at *model.ActionType) error
	FindActionTypeByID(id uint) (*model.ActionType, error)
	FindAllActionTypes() ([]model.ActionType, error)
	DeleteActionType(id uint) error
}

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建一个新的 TemplateRepository 实例。
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) CreateTemplate(t *model.TagTemplate) error {
	return r.db.Create(t).Error
}

func (r *templateRepository) FindTemplateByID(id uint) (*model.TagTemplate, error) {
	var t model.TagTemplate
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTemplatesBatch 批量查找模板，调用方负责校验缺失的 id。
func (r *templateRepository) FindTemplatesBatch(ids []uint) ([]model.TagTemplate, error) {
	var templates []model.TagTemplate
	if len(ids) == 0 {
		return templates, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&templates).Error
	return templates, err
}

func (r *templateRepository) FindAllTemplates() ([]model.TagTemplate, error) {
	var templates []model.TagTemplate
	err := r.db.Find(&templates).Error
	return templates, err
}

func (r *templateRepository) UpdateTemplate(t *model.TagTemplate) error {
	return r.db.Save(t).Error
}

func (r *templateRepository) CreateActionType(at *model.ActionType) error {
	return r.db.Create(at).Error
}

func (r *templateRepository) FindActionTypeByID(id uint) (*model.ActionType, error) {
	var at model.ActionType
	if err := r.db.First(&at, id).Error; err != nil {
		return nil, err
	}
	return &at, nil
}

func (r *templateRepository) FindAllActionTypes() ([]model.ActionType, error) {
	var types []model.ActionType
	err := r.db.Find(&types).Error
	return types, err
}

// DeleteTemplate 删除模板；引用它的既有 Tag 保留历史快照值不受影响。
func (r *templateRepository) DeleteTemplate(id uint) error {
	return r.db.Delete(&model.TagTemplate{}, id).Error
}

func (r *templateRepository) DeleteActionType(id uint) error {
	return r.db.Delete(&model.ActionType{}, id).Error
}
