// Package pipeline 定义了知识索引任务的核心处理流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"casinha-go/internal/config"
	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/embedding"
	"casinha-go/pkg/es"
	"casinha-go/pkg/log"
	"casinha-go/pkg/storage"
	"casinha-go/pkg/tasks"
	"casinha-go/pkg/tika"
)

// Processor 封装了知识索引的所有依赖和逻辑。
// 消费 ContentIndexTask：取正文（数据库或 MinIO+Tika）、切块、落库、向量化、索引到 ES。
type Processor struct {
	tikaClient      *tika.Client
	embeddingClient embedding.Client
	esCfg           config.ElasticsearchConfig
	minioCfg        config.MinIOConfig
	embeddingCfg    config.EmbeddingConfig
	planningRepo    repository.PlanningRepository
	knowledgeRepo   repository.KnowledgeRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	embeddingClient embedding.Client,
	esCfg config.ElasticsearchConfig,
	minioCfg config.MinIOConfig,
	embeddingCfg config.EmbeddingConfig,
	planningRepo repository.PlanningRepository,
	knowledgeRepo repository.KnowledgeRepository,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		esCfg:           esCfg,
		minioCfg:        minioCfg,
		embeddingCfg:    embeddingCfg,
		planningRepo:    planningRepo,
		knowledgeRepo:   knowledgeRepo,
	}
}

// Process 是索引任务处理的主函数，满足 kafka.TaskProcessor 接口。
func (p *Processor) Process(ctx context.Context, task tasks.ContentIndexTask) error {
	log.Infof("[Processor] 开始处理索引任务, ContentID: %d, Source: %s", task.ContentID, task.Source)

	// 1. 获取原始文本
	textContent, err := p.resolveText(ctx, task)
	if err != nil {
		return err
	}
	if textContent == "" {
		log.Warnf("[Processor] 内容 %d 的文本为空, 处理中止", task.ContentID)
		return errors.New("内容文本为空")
	}
	log.Infof("[Processor] 步骤1: 文本获取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 2. 文本切块
	chunks := SplitText(textContent, 1000, 100)
	log.Infof("[Processor] 步骤2: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		return errors.New("未生成任何文本分块")
	}

	// 3. 幂等清理旧分块后落库
	// 内容更新会重投任务，先按内容 id 清理数据库与 ES 的既有分块
	if err := p.knowledgeRepo.DeleteByContentID(task.ContentID); err != nil {
		log.Warnf("[Processor] 清理 knowledge_chunks 旧记录失败 (content_id=%d): %v", task.ContentID, err)
	}
	if err := es.DeleteByContentID(ctx, p.esCfg.IndexName, task.ContentID); err != nil {
		log.Warnf("[Processor] 清理 ES 旧文档失败 (content_id=%d): %v", task.ContentID, err)
	}

	dbChunks := make([]*model.KnowledgeChunk, 0, len(chunks))
	for i, chunk := range chunks {
		dbChunks = append(dbChunks, &model.KnowledgeChunk{
			ContentID:    task.ContentID,
			ChunkID:      i,
			TextContent:  chunk,
			ModelVersion: p.embeddingCfg.Model,
			Area:         task.Area,
			AuthorID:     task.AuthorID,
		})
	}
	if err := p.knowledgeRepo.BatchCreate(dbChunks); err != nil {
		log.Errorf("[Processor] 批量保存文本分块到数据库失败, Error: %v", err)
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}
	log.Infof("[Processor] 步骤3: 成功将 %d 个分块存入数据库", len(dbChunks))

	// 4. 向量化并索引到 ES
	for i, chunk := range dbChunks {
		vector, err := p.embeddingClient.CreateEmbedding(ctx, chunk.TextContent)
		if err != nil {
			log.Errorf("[Processor] 分块 %d 向量化失败, Error: %v", chunk.ChunkID, err)
			return fmt.Errorf("块 %d 向量化失败: %w", chunk.ChunkID, err)
		}

		esDoc := model.EsKnowledgeDoc{
			ChunkKey:     fmt.Sprintf("%d_%d", chunk.ContentID, chunk.ChunkID),
			ContentID:    chunk.ContentID,
			ChunkID:      chunk.ChunkID,
			TextContent:  chunk.TextContent,
			Vector:       vector,
			ModelVersion: p.embeddingCfg.Model,
			Area:         chunk.Area,
			AuthorID:     chunk.AuthorID,
		}
		if err := es.IndexDocument(ctx, p.esCfg.IndexName, esDoc); err != nil {
			log.Errorf("[Processor] 索引分块 %d 到Elasticsearch失败, Error: %v", chunk.ChunkID, err)
			return fmt.Errorf("索引块 %d 到 Elasticsearch 失败: %w", chunk.ChunkID, err)
		}
		log.Infof("[Processor] 分块 %d/%d 向量化并索引成功", i+1, len(dbChunks))
	}

	log.Infof("[Processor] 索引任务处理成功完成, ContentID: %d", task.ContentID)
	return nil
}

// resolveText 按任务来源解析原始文本：content 直接取数据库正文，document 从 MinIO 下载后用 Tika 抽取。
func (p *Processor) resolveText(ctx context.Context, task tasks.ContentIndexTask) (string, error) {
	switch task.Source {
	case tasks.SourceContent:
		content, err := p.planningRepo.FindByID(task.ContentID)
		if err != nil {
			return "", fmt.Errorf("读取规划内容失败: %w", err)
		}
		// 标题并入索引文本，标题词也能被检索命中
		return content.Title + "\n" + content.Body, nil

	case tasks.SourceDocument:
		object, err := storage.GetObject(ctx, p.minioCfg.BucketName, task.ObjectKey)
		if err != nil {
			return "", fmt.Errorf("从 MinIO 下载文档失败: %w", err)
		}
		defer object.Close()

		buf := new(bytes.Buffer)
		size, err := buf.ReadFrom(object)
		if err != nil {
			return "", fmt.Errorf("读取 MinIO 对象流失败: %w", err)
		}
		if size == 0 {
			return "", errors.New("文档内容为空")
		}

		textContent, err := p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), task.FileName)
		if err != nil {
			return "", fmt.Errorf("使用 Tika 提取文本失败: %w", err)
		}
		return textContent, nil

	default:
		return "", fmt.Errorf("未知任务来源: %s", task.Source)
	}
}

// SplitText 将长文本按指定大小和重叠进行切分，按 rune 计数避免截断多字节字符。
func SplitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= chunkOverlap {
		return simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func simpleSplit(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
