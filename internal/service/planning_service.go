package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"casinha-go/internal/config"
	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/es"
	"casinha-go/pkg/log"
	"casinha-go/pkg/storage"
	"casinha-go/pkg/tasks"

	"gorm.io/gorm"
)

// PlanningContentRequest 是规划内容创建/更新的输入。
type PlanningContentRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
	Kind  string `json:"kind" binding:"required"`
	Area  string `json:"area"`
}

// PlanningService 接口定义了战略规划内容的业务操作。
// 每次写入都会投递一条索引任务，由 pipeline 异步更新 AI 助手的知识库。
type PlanningService interface {
	Create(req PlanningContentRequest, authorID uint) (*model.PlanningContent, error)
	// CreateFromDocument 上传文档（PDF/DOCX 等）作为规划内容，文本抽取在消费端完成。
	CreateFromDocument(ctx context.Context, req PlanningContentRequest, authorID uint, fileName string, reader io.Reader, size int64, contentType string) (*model.PlanningContent, error)
	Get(id uint) (*model.PlanningContent, error)
	List(kind, area string) ([]model.PlanningContent, error)
	Update(id uint, req PlanningContentRequest, actorID uint) (*model.PlanningContent, error)
	// Delete 删除规划内容及其知识分块，并清理 ES 索引。
	Delete(ctx context.Context, id uint) error
}

type planningService struct {
	planningRepo  repository.PlanningRepository
	knowledgeRepo repository.KnowledgeRepository
	produce       func(task tasks.ContentIndexTask) error
}

// NewPlanningService 创建一个新的 PlanningService 实例。
// produce 注入索引任务的投递方（生产环境为 kafka.ProduceIndexTask）。
func NewPlanningService(
	planningRepo repository.PlanningRepository,
	knowledgeRepo repository.KnowledgeRepository,
	produce func(task tasks.ContentIndexTask) error,
) PlanningService {
	return &planningService{
		planningRepo:  planningRepo,
		knowledgeRepo: knowledgeRepo,
		produce:       produce,
	}
}

func validKind(kind string) bool {
	switch kind {
	case model.PlanningKindMission, model.PlanningKindValue, model.PlanningKindGoal, model.PlanningKindStrategy:
		return true
	}
	return false
}

// Create 创建文本型规划内容并投递索引任务。
func (s *planningService) Create(req PlanningContentRequest, authorID uint) (*model.PlanningContent, error) {
	if !validKind(req.Kind) {
		return nil, fmt.Errorf("%w: 未知内容种类 %s", ErrValidation, req.Kind)
	}
	if req.Body == "" {
		return nil, fmt.Errorf("%w: 正文不能为空", ErrValidation)
	}

	content := &model.PlanningContent{
		Title:    req.Title,
		Body:     req.Body,
		Kind:     req.Kind,
		Area:     req.Area,
		AuthorID: authorID,
	}
	if err := s.planningRepo.Create(content); err != nil {
		return nil, err
	}
	s.enqueueIndexTask(content)
	return content, nil
}

// CreateFromDocument 先上传文档到对象存储，再落库并投递 document 型索引任务。
func (s *planningService) CreateFromDocument(ctx context.Context, req PlanningContentRequest, authorID uint, fileName string, reader io.Reader, size int64, contentType string) (*model.PlanningContent, error) {
	if !validKind(req.Kind) {
		return nil, fmt.Errorf("%w: 未知内容种类 %s", ErrValidation, req.Kind)
	}
	if fileName == "" {
		return nil, fmt.Errorf("%w: 文件名不能为空", ErrValidation)
	}

	objectKey := storage.NewObjectKey("planning", fileName)
	bucket := config.Conf.MinIO.BucketName
	if err := storage.UploadObject(ctx, bucket, objectKey, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("上传文档失败: %w", err)
	}

	content := &model.PlanningContent{
		Title:       req.Title,
		Body:        req.Body,
		Kind:        req.Kind,
		Area:        req.Area,
		AuthorID:    authorID,
		DocumentKey: objectKey,
		FileName:    fileName,
	}
	if err := s.planningRepo.Create(content); err != nil {
		return nil, err
	}
	s.enqueueIndexTask(content)
	return content, nil
}

func (s *planningService) Get(id uint) (*model.PlanningContent, error) {
	content, err := s.planningRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 规划内容不存在", ErrNotFound)
		}
		return nil, err
	}
	return content, nil
}

func (s *planningService) List(kind, area string) ([]model.PlanningContent, error) {
	return s.planningRepo.FindAll(kind, area)
}

// Update 更新规划内容并重新投递索引任务，旧分块由 pipeline 按内容 id 清理。
func (s *planningService) Update(id uint, req PlanningContentRequest, actorID uint) (*model.PlanningContent, error) {
	content, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if req.Kind != "" && !validKind(req.Kind) {
		return nil, fmt.Errorf("%w: 未知内容种类 %s", ErrValidation, req.Kind)
	}

	if req.Title != "" {
		content.Title = req.Title
	}
	if req.Body != "" {
		content.Body = req.Body
	}
	if req.Kind != "" {
		content.Kind = req.Kind
	}
	if req.Area != "" {
		content.Area = req.Area
	}
	if err := s.planningRepo.Update(content); err != nil {
		return nil, err
	}
	s.enqueueIndexTask(content)
	return content, nil
}

// Delete 删除规划内容，级联清理落库分块与 ES 文档。
// ES 清理失败只记日志：数据库是事实来源，残留文档会在下次重建时覆盖。
func (s *planningService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.knowledgeRepo.DeleteByContentID(id); err != nil {
		return err
	}
	if err := s.planningRepo.Delete(id); err != nil {
		return err
	}
	if es.ESClient != nil {
		if err := es.DeleteByContentID(ctx, config.Conf.Elasticsearch.IndexName, id); err != nil {
			log.Errorf("[PlanningService] 清理 ES 文档失败: contentID=%d, %v", id, err)
		}
	}
	return nil
}

// enqueueIndexTask 投递索引任务，失败不阻塞主流程。
func (s *planningService) enqueueIndexTask(content *model.PlanningContent) {
	if s.produce == nil {
		return
	}
	task := tasks.ContentIndexTask{
		ContentID: content.ID,
		Source:    tasks.SourceContent,
		Area:      content.Area,
		AuthorID:  content.AuthorID,
	}
	if content.DocumentKey != "" {
		task.Source = tasks.SourceDocument
		task.ObjectKey = content.DocumentKey
		task.FileName = content.FileName
	}
	if err := s.produce(task); err != nil {
		log.Errorf("[PlanningService] 投递索引任务失败: contentID=%d, %v", content.ID, err)
	}
}
