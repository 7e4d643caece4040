package repository

import (
	"casinha-go/internal/model"

	"gorm.io/gorm"
)

// KnowledgeRepository 接口定义了知识分块的数据操作方法。
// 分块是 ES 索引的落库副本，索引重建时按内容 id 幂等清理。
type KnowledgeRepository interface {
	BatchCreate(chunks []*model.KnowledgeChunk) error
	FindByContentID(contentID uint) ([]model.KnowledgeChunk, error)
	DeleteByContentID(contentID uint) error
}

type knowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建一个新的 KnowledgeRepository 实例。
func NewKnowledgeRepository(db *gorm.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

func (r *knowledgeRepository) BatchCreate(chunks []*model.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.Create(&chunks).Error
}

func (r *knowledgeRepository) FindByContentID(contentID uint) ([]model.KnowledgeChunk, error) {
	var chunks []model.KnowledgeChunk
	err := r.db.Where("content_id = ?", contentID).Order("chunk_id ASC").Find(&chunks).Error
	return chunks, err
}

func (r *knowledgeRepository) DeleteByContentID(contentID uint) error {
	return r.db.Where("content_id = ?", contentID).Delete(&model.KnowledgeChunk{}).Error
}
