package model

// EsKnowledgeDoc 定义了存储在 Elasticsearch 知识库索引中的文档结构。
type EsKnowledgeDoc struct {
	// ChunkKey 是唯一标识，形如 "{contentID}_{chunkID}"。
	ChunkKey     string    `json:"chunk_key"`
	ContentID    uint      `json:"content_id"`
	ChunkID      int       `json:"chunk_id"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
	Area         string    `json:"area"`
	AuthorID     uint      `json:"author_id"`
}

// SearchResponseDTO 定义了返回给前端的知识检索结果结构。
type SearchResponseDTO struct {
	ContentID   uint    `json:"contentId"`
	Title       string  `json:"title"`
	ChunkID     int     `json:"chunkId"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
	Area        string  `json:"area"`
}
