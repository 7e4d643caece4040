package model

import "time"

// 审核态请求的状态机：PENDING -> APPROVED | REJECTED，均为终态。
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// RegistrationRequest 是成员注册申请，董事审核通过后用户才被激活。
type RegistrationRequest struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"userId"`
	Status string `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`
	// ReviewerID 与 ReviewerNotes 在审核时写入。
	ReviewerID    *uint      `json:"reviewerId"`
	ReviewerNotes string     `gorm:"type:text" json:"reviewerNotes"`
	ReviewedAt    *time.Time `json:"reviewedAt"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (RegistrationRequest) TableName() string {
	return "registration_requests"
}

// Solicitation 是成员发起的积分申请。
// 审核通过时按申请的模板走授予编排器；申请记录永不删除，作为审计痕迹。
type Solicitation struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID uint   `gorm:"index;not null" json:"requesterId"`
	Description string `gorm:"type:text" json:"description"`
	// IsForEnterprise 为 true 时积分授予企业而非申请人。
	IsForEnterprise bool      `gorm:"not null;default:false" json:"isForEnterprise"`
	DatePerformed   time.Time `gorm:"not null" json:"datePerformed"`
	// TemplateIDs 是申请的模板 id 逗号分隔列表。
	TemplateIDs string `gorm:"type:varchar(255);not null" json:"templateIds"`
	// AttachmentKeys 是 MinIO 对象键的逗号分隔列表。
	AttachmentKeys string     `gorm:"type:text" json:"attachmentKeys"`
	Status         string     `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`
	ReviewerID     *uint      `json:"reviewerId"`
	ReviewerNotes  string     `gorm:"type:text" json:"reviewerNotes"`
	ReviewedAt     *time.Time `json:"reviewedAt"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Solicitation) TableName() string {
	return "solicitations"
}

// Report 是成员对既有 Tag 的申诉（recurso）。
// 审核通过时可携带修正值：聚合按 (新值 - 旧值) 调整，而非整笔重记。
type Report struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID uint   `gorm:"index;not null" json:"requesterId"`
	TagID       uint   `gorm:"index;not null" json:"tagId"`
	Description string `gorm:"type:text" json:"description"`
	// RecipientID 是指定的受理董事。
	RecipientID uint `gorm:"index;not null" json:"recipientId"`
	// 修正字段（可选）：审核通过时应用到被申诉的 Tag。
	CorrectedValue       *float64   `json:"correctedValue"`
	CorrectedDescription string     `gorm:"type:text" json:"correctedDescription"`
	AttachmentKeys       string     `gorm:"type:text" json:"attachmentKeys"`
	Status               string     `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`
	ReviewerID           *uint      `json:"reviewerId"`
	ReviewerNotes        string     `gorm:"type:text" json:"reviewerNotes"`
	ReviewedAt           *time.Time `json:"reviewedAt"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Report) TableName() string {
	return "reports"
}
