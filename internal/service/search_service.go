// 知识库检索：两阶段混合搜索（kNN 召回 + BM25 重排）。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/embedding"
	"casinha-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchService 接口定义了知识库搜索操作。
type SearchService interface {
	// HybridSearch 对知识库执行混合搜索，area 非空时限定领域。
	HybridSearch(ctx context.Context, query string, topK int, area string) ([]model.SearchResponseDTO, error)
}

type searchService struct {
	embeddingClient embedding.Client
	esClient        *elasticsearch.Client
	planningRepo    repository.PlanningRepository
	indexName       string
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embeddingClient embedding.Client, esClient *elasticsearch.Client, planningRepo repository.PlanningRepository, indexName string) SearchService {
	return &searchService{
		embeddingClient: embeddingClient,
		esClient:        esClient,
		planningRepo:    planningRepo,
		indexName:       indexName,
	}
}

// HybridSearch 执行两阶段混合搜索。
// 第一阶段用查询向量做 kNN 召回，第二阶段用 BM25 对召回窗口重排。
func (s *searchService) HybridSearch(ctx context.Context, query string, topK int, area string) ([]model.SearchResponseDTO, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: 查询不能为空", ErrValidation)
	}
	if topK <= 0 {
		topK = 5
	}
	log.Infof("[SearchService] 开始执行混合搜索, query: '%s', topK: %d, area: '%s'", query, topK, area)

	// 1. 向量化查询
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[SearchService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	// 2. 构建 kNN + BM25 rescore 查询
	boolQuery := map[string]interface{}{
		"must": map[string]interface{}{
			"match": map[string]interface{}{
				"text_content": query,
			},
		},
	}
	if area != "" {
		boolQuery["filter"] = map[string]interface{}{
			"term": map[string]interface{}{"area": area},
		}
	}

	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   queryVector,
			"k":              topK * 30,
			"num_candidates": topK * 30,
		},
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"rescore": map[string]interface{}{
			"window_size": topK * 30,
			"query": map[string]interface{}{
				"rescore_query": map[string]interface{}{
					"match": map[string]interface{}{
						"text_content": map[string]interface{}{
							"query":    query,
							"operator": "and",
						},
					},
				},
				"query_weight":         0.2, // 保留部分 k-NN 分数
				"rescore_query_weight": 1.0, // BM25 分数权重
			},
		},
		"size": topK,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	// 3. 执行搜索
	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.indexName),
		s.esClient.Search.WithBody(&buf),
		s.esClient.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		log.Errorf("[SearchService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SearchService] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	// 4. 解析结果
	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsKnowledgeDoc `json:"_source"`
				Score  float64              `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	if len(esResponse.Hits.Hits) == 0 {
		log.Infof("[SearchService] Elasticsearch 返回 0 条命中结果")
		return []model.SearchResponseDTO{}, nil
	}

	// 5. 回表补齐内容标题
	contentIDs := make([]uint, 0, len(esResponse.Hits.Hits))
	seen := make(map[uint]struct{})
	for _, hit := range esResponse.Hits.Hits {
		if _, ok := seen[hit.Source.ContentID]; ok {
			continue
		}
		seen[hit.Source.ContentID] = struct{}{}
		contentIDs = append(contentIDs, hit.Source.ContentID)
	}
	contents, err := s.planningRepo.FindBatchByIDs(contentIDs)
	if err != nil {
		log.Errorf("[SearchService] 回表查询规划内容失败: %v", err)
		contents = nil
	}
	titleByID := make(map[uint]string, len(contents))
	for _, c := range contents {
		titleByID[c.ID] = c.Title
	}

	results := make([]model.SearchResponseDTO, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.SearchResponseDTO{
			ContentID:   hit.Source.ContentID,
			Title:       titleByID[hit.Source.ContentID],
			ChunkID:     hit.Source.ChunkID,
			TextContent: hit.Source.TextContent,
			Score:       hit.Score,
			Area:        hit.Source.Area,
		})
	}
	log.Infof("[SearchService] 混合搜索命中 %d 条", len(results))
	return results, nil
}
