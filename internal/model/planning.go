package model

import "time"

// 规划内容的种类。
const (
	PlanningKindMission  = "MISSION"
	PlanningKindValue    = "VALUE"
	PlanningKindGoal     = "GOAL"
	PlanningKindStrategy = "STRATEGY"
)

// PlanningContent 是战略规划内容条目（使命、价值观、目标、战略）。
// 创建/更新后会投递一条索引任务，进入 AI 助手的知识库。
type PlanningContent struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	Body     string `gorm:"type:text" json:"body"`
	Kind     string `gorm:"type:varchar(20);not null" json:"kind"`
	Area     string `gorm:"type:varchar(50)" json:"area"`
	AuthorID uint   `gorm:"index;not null" json:"authorId"`
	// DocumentKey 非空时表示内容来自上传的文档（MinIO 对象键），索引时经 Tika 抽取文本。
	DocumentKey string    `gorm:"type:varchar(255)" json:"documentKey"`
	FileName    string    `gorm:"type:varchar(255)" json:"fileName"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (PlanningContent) TableName() string {
	return "planning_contents"
}

// KnowledgeChunk 对应于数据库中的 knowledge_chunks 表。
// 它保存规划内容切块后的文本，是 ES 索引的落库副本。
type KnowledgeChunk struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID    uint   `gorm:"not null;index" json:"contentId"`
	ChunkID      int    `gorm:"not null" json:"chunkId"`
	TextContent  string `gorm:"type:text" json:"textContent"`
	ModelVersion string `gorm:"type:varchar(50)" json:"modelVersion"`
	Area         string `gorm:"type:varchar(50)" json:"area"`
	AuthorID     uint   `gorm:"not null" json:"authorId"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}
