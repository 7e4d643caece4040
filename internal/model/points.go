package model

import "time"

// ActionType 是积分行为的分类（如 "Evento Interno"、"Capacitação"）。
type ActionType struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ActionType) TableName() string {
	return "action_types"
}

// TagTemplate 是可复用的积分授予模板，定义默认分值与元数据。
// 由管理员创建，被多条 Tag 引用。
type TagTemplate struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	BaseValue   float64 `gorm:"not null" json:"baseValue"`
	ActionTypeID uint   `gorm:"not null;index" json:"actionTypeId"`
	// 递增规则（可选）：连续满足条件时按 EscalationValue 递增。
	IsScalable           bool    `gorm:"not null;default:false" json:"isScalable"`
	EscalationValue      float64 `json:"escalationValue"`
	EscalationStreakDays int     `json:"escalationStreakDays"`
	EscalationCondition  string  `gorm:"type:text" json:"escalationCondition"`
	// Areas 是适用领域的逗号分隔列表。
	Areas     string    `gorm:"type:varchar(255)" json:"areas"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (TagTemplate) TableName() string {
	return "tag_templates"
}

// Tag 是一条积分台账记录：某个时间点授予单一目标的一笔分值（可为负，表示扣分）。
// UserPointsID 与 EnterprisePointsID 至多一个非空；两者皆空表示未分配的模板式 Tag。
// 不变量：已结算 Tag 的分值恰好已计入其关联的聚合计数器；解除关联或删除必须原样冲销。
type Tag struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Description   string    `gorm:"type:text" json:"description"`
	Value         float64   `gorm:"not null" json:"value"`
	DatePerformed time.Time `gorm:"not null" json:"datePerformed"`
	ActionTypeID  uint      `gorm:"index" json:"actionTypeId"`
	// TemplateID 记录来源模板，ad hoc 创建时为空。
	TemplateID         *uint `gorm:"index" json:"templateId"`
	UserPointsID       *uint `gorm:"index" json:"userPointsId"`
	EnterprisePointsID *uint `gorm:"index" json:"enterprisePointsId"`
	// AssignerID 记录授予人，用于审计。
	AssignerID uint      `gorm:"index" json:"assignerId"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Tag) TableName() string {
	return "tags"
}

// UserPoints 是成员积分的聚合计数器，首次授予时懒创建。
// 不变量：TotalPoints == SUM(tags.value) WHERE user_points_id = id。
// 聚合是派生缓存，Tag 行才是事实来源。
type UserPoints struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"userId"`
	TotalPoints float64   `gorm:"not null;default:0" json:"totalPoints"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (UserPoints) TableName() string {
	return "user_points"
}

// EnterprisePoints 是企业整体的积分聚合，按固定业务键寻址，与用户聚合类型上严格区分。
type EnterprisePoints struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Key         string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"key"`
	TotalPoints float64   `gorm:"not null;default:0" json:"totalPoints"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (EnterprisePoints) TableName() string {
	return "enterprise_points"
}

// RankingEntry 是排行榜的单行投影（user_points 联 users）。
type RankingEntry struct {
	UserID      uint    `json:"userId"`
	Name        string  `json:"name"`
	Area        string  `json:"area"`
	TotalPoints float64 `json:"totalPoints"`
}

// ActionTypeCount 是行为类型及其 Tag 数量的投影。
type ActionTypeCount struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TagCount    int64  `json:"tagCount"`
}
