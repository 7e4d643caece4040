// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 用户角色。
const (
	RoleMember   = "MEMBER"
	RoleDirector = "DIRECTOR"
	RoleAdmin    = "ADMIN"
)

// 用户状态。PENDING 表示注册申请尚未通过审核，EX_MEMBER 表示已退出的老成员。
const (
	UserStatusPending  = "PENDING"
	UserStatusActive   = "ACTIVE"
	UserStatusExMember = "EX_MEMBER"
)

// User 对应于数据库中的 'users' 表，代表一名企业成员。
type User struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	// Email 是登录标识，全局唯一。
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(255);not null" json:"-"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	// Role 取值为 MEMBER / DIRECTOR / ADMIN。
	Role string `gorm:"type:varchar(20);not null;default:MEMBER" json:"role"`
	// Area 是成员所属的职能领域（如 DIRETORIA、PROJETOS、MARKETING）。
	Area string `gorm:"type:varchar(50)" json:"area"`
	// Status 控制成员生命周期，PENDING 的用户不能登录。
	Status    string    `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// IsDirector 判断用户是否具有审批权限（董事或管理员）。
func (u *User) IsDirector() bool {
	return u.Role == RoleDirector || u.Role == RoleAdmin
}
