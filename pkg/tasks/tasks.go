// Package tasks 定义了投递到 Kafka 的异步任务结构。
package tasks

// 任务来源：regular 内容直接取自数据库，document 需要先从 MinIO 下载并用 Tika 抽取文本。
const (
	SourceContent  = "content"
	SourceDocument = "document"
)

// ContentIndexTask 表示一条知识索引任务。
// 规划内容创建/更新后投递，由 pipeline 消费端完成切块、向量化与 ES 索引。
type ContentIndexTask struct {
	ContentID uint   `json:"content_id"`
	Source    string `json:"source"`
	ObjectKey string `json:"object_key,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	Area      string `json:"area"`
	AuthorID  uint   `json:"author_id"`
}
