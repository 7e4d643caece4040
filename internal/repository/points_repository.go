// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"errors"

	"casinha-go/internal/model"

	"gorm.io/gorm"
)

// LedgerTx 是积分台账的事务上下文。
// 它只暴露台账需要的写原语，隐藏完整的 ORM 表面；
// 所有方法都在同一个数据库事务内执行，保证 Tag 行与聚合计数器的原子一致。
type LedgerTx interface {
	// CreateTag 在事务内插入一条台账记录。
	CreateTag(tag *model.Tag) error
	// UpdateTag 在事务内整行保存 Tag。
	UpdateTag(tag *model.Tag) error
	// LinkTagToEnterprise 仅当 Tag 仍未关联任何聚合时设置企业关联。
	// 条件更新不命中（已被并发挂载）时返回 false，调用方不得调整聚合。
	LinkTagToEnterprise(tagID, enterprisePointsID, assignerID uint) (bool, error)
	// UnlinkTag 仅当 Tag 的关联仍与给定值一致时清空关联，使其回到未分配状态。
	// 关联已被并发变更时返回 false。
	UnlinkTag(tagID uint, userPointsID, enterprisePointsID *uint) (bool, error)
	// DeleteTag 仅当 Tag 的关联仍与给定值一致时硬删除，语义同 UnlinkTag。
	DeleteTag(tagID uint, userPointsID, enterprisePointsID *uint) (bool, error)
	// UpsertUserPoints 不存在则以 total=delta 创建，存在则原子自增 delta（可为负）。
	UpsertUserPoints(userID uint, delta float64) (*model.UserPoints, error)
	// UpsertEnterprisePoints 同上，针对按固定业务键寻址的企业聚合。
	UpsertEnterprisePoints(key string, delta float64) (*model.EnterprisePoints, error)
	// AdjustUserPoints 对已存在的用户聚合做原子增量。
	AdjustUserPoints(id uint, delta float64) error
	// AdjustEnterprisePoints 对已存在的企业聚合做原子增量。
	AdjustEnterprisePoints(id uint, delta float64) error
}

// PointsRepository 接口定义了积分台账的数据操作方法。
type PointsRepository interface {
	// Ledger 在单个数据库事务内执行 fn，fn 返回错误时整体回滚。
	Ledger(fn func(tx LedgerTx) error) error

	FindTagByID(id uint) (*model.Tag, error)
	FindUnassignedTags() ([]model.Tag, error)
	FindTagsByUserPointsID(userPointsID uint) ([]model.Tag, error)
	FindTagsByEnterprisePointsID(enterprisePointsID uint) ([]model.Tag, error)
	FindUserPointsByUserID(userID uint) (*model.UserPoints, error)
	FindUserPointsByID(id uint) (*model.UserPoints, error)
	FindEnterprisePoints(key string) (*model.EnterprisePoints, error)
	FindEnterprisePointsByID(id uint) (*model.EnterprisePoints, error)
	// SumTagValues 按聚合列从 Tag 行重新求和，用于校验派生聚合。
	SumUserTagValues(userPointsID uint) (float64, error)
	SumEnterpriseTagValues(enterprisePointsID uint) (float64, error)
	// Ranking 返回按总分降序的成员排行。
	Ranking() ([]model.RankingEntry, error)
	// ActionTypeCounts 返回各行为类型及其 Tag 数量。
	ActionTypeCounts() ([]model.ActionTypeCount, error)
}

type pointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建一个新的 PointsRepository 实例。
func NewPointsRepository(db *gorm.DB) PointsRepository {
	return &pointsRepository{db: db}
}

// ledgerTx 是 LedgerTx 的 GORM 实现，持有事务句柄。
type ledgerTx struct {
	tx *gorm.DB
}

// Ledger 在单个事务内执行 fn。
func (r *pointsRepository) Ledger(fn func(tx LedgerTx) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{tx: tx})
	})
}

func (t *ledgerTx) CreateTag(tag *model.Tag) error {
	return t.tx.Create(tag).Error
}

func (t *ledgerTx) UpdateTag(tag *model.Tag) error {
	return t.tx.Save(tag).Error
}

// scopeTagLink 把期望的关联状态编译成 WHERE 条件；nil 表示该侧必须为空。
func scopeTagLink(q *gorm.DB, userPointsID, enterprisePointsID *uint) *gorm.DB {
	if userPointsID != nil {
		q = q.Where("user_points_id = ?", *userPointsID)
	} else {
		q = q.Where("user_points_id IS NULL")
	}
	if enterprisePointsID != nil {
		q = q.Where("enterprise_points_id = ?", *enterprisePointsID)
	} else {
		q = q.Where("enterprise_points_id IS NULL")
	}
	return q
}

func (t *ledgerTx) LinkTagToEnterprise(tagID, enterprisePointsID, assignerID uint) (bool, error) {
	res := scopeTagLink(t.tx.Model(&model.Tag{}).Where("id = ?", tagID), nil, nil).
		Updates(map[string]interface{}{
			"enterprise_points_id": enterprisePointsID,
			"assigner_id":          assignerID,
		})
	return res.RowsAffected > 0, res.Error
}

func (t *ledgerTx) UnlinkTag(tagID uint, userPointsID, enterprisePointsID *uint) (bool, error) {
	res := scopeTagLink(t.tx.Model(&model.Tag{}).Where("id = ?", tagID), userPointsID, enterprisePointsID).
		Updates(map[string]interface{}{
			"user_points_id":       nil,
			"enterprise_points_id": nil,
		})
	return res.RowsAffected > 0, res.Error
}

func (t *ledgerTx) DeleteTag(tagID uint, userPointsID, enterprisePointsID *uint) (bool, error) {
	res := scopeTagLink(t.tx.Where("id = ?", tagID), userPointsID, enterprisePointsID).
		Delete(&model.Tag{})
	return res.RowsAffected > 0, res.Error
}

// UpsertUserPoints 实现缺席即建、在位即增的聚合原语。
// 自增通过 SQL 表达式完成，由数据库的行锁保证并发安全。
func (t *ledgerTx) UpsertUserPoints(userID uint, delta float64) (*model.UserPoints, error) {
	var up model.UserPoints
	err := t.tx.Where("user_id = ?", userID).First(&up).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		up = model.UserPoints{UserID: userID, TotalPoints: delta}
		if createErr := t.tx.Create(&up).Error; createErr != nil {
			// 并发首次授予：user_id 唯一索引拦截了重复行，退化为对已有行自增
			if findErr := t.tx.Where("user_id = ?", userID).First(&up).Error; findErr != nil {
				return nil, createErr
			}
			if adjErr := t.AdjustUserPoints(up.ID, delta); adjErr != nil {
				return nil, adjErr
			}
			up.TotalPoints += delta
		}
		return &up, nil
	}
	if err != nil {
		return nil, err
	}
	if err := t.AdjustUserPoints(up.ID, delta); err != nil {
		return nil, err
	}
	up.TotalPoints += delta
	return &up, nil
}

// UpsertEnterprisePoints 与 UpsertUserPoints 相同的原语，作用于企业聚合。
func (t *ledgerTx) UpsertEnterprisePoints(key string, delta float64) (*model.EnterprisePoints, error) {
	var ep model.EnterprisePoints
	err := t.tx.Where("`key` = ?", key).First(&ep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ep = model.EnterprisePoints{Key: key, TotalPoints: delta}
		if createErr := t.tx.Create(&ep).Error; createErr != nil {
			if findErr := t.tx.Where("`key` = ?", key).First(&ep).Error; findErr != nil {
				return nil, createErr
			}
			if adjErr := t.AdjustEnterprisePoints(ep.ID, delta); adjErr != nil {
				return nil, adjErr
			}
			ep.TotalPoints += delta
		}
		return &ep, nil
	}
	if err != nil {
		return nil, err
	}
	if err := t.AdjustEnterprisePoints(ep.ID, delta); err != nil {
		return nil, err
	}
	ep.TotalPoints += delta
	return &ep, nil
}

func (t *ledgerTx) AdjustUserPoints(id uint, delta float64) error {
	return t.tx.Model(&model.UserPoints{}).Where("id = ?", id).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", delta)).Error
}

func (t *ledgerTx) AdjustEnterprisePoints(id uint, delta float64) error {
	return t.tx.Model(&model.EnterprisePoints{}).Where("id = ?", id).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", delta)).Error
}

// FindTagByID 根据 id 查找一条台账记录。
func (r *pointsRepository) FindTagByID(id uint) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindUnassignedTags 返回未关联任何聚合的模板式 Tag。
func (r *pointsRepository) FindUnassignedTags() ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.Where("user_points_id IS NULL AND enterprise_points_id IS NULL").Find(&tags).Error
	return tags, err
}

func (r *pointsRepository) FindTagsByUserPointsID(userPointsID uint) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.Where("user_points_id = ?", userPointsID).Order("date_performed DESC").Find(&tags).Error
	return tags, err
}

func (r *pointsRepository) FindTagsByEnterprisePointsID(enterprisePointsID uint) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.Where("enterprise_points_id = ?", enterprisePointsID).Order("date_performed DESC").Find(&tags).Error
	return tags, err
}

func (r *pointsRepository) FindUserPointsByUserID(userID uint) (*model.UserPoints, error) {
	var up model.UserPoints
	if err := r.db.Where("user_id = ?", userID).First(&up).Error; err != nil {
		return nil, err
	}
	return &up, nil
}

func (r *pointsRepository) FindUserPointsByID(id uint) (*model.UserPoints, error) {
	var up model.UserPoints
	if err := r.db.First(&up, id).Error; err != nil {
		return nil, err
	}
	return &up, nil
}

func (r *pointsRepository) FindEnterprisePoints(key string) (*model.EnterprisePoints, error) {
	var ep model.EnterprisePoints
	if err := r.db.Where("`key` = ?", key).First(&ep).Error; err != nil {
		return nil, err
	}
	return &ep, nil
}

func (r *pointsRepository) FindEnterprisePointsByID(id uint) (*model.EnterprisePoints, error) {
	var ep model.EnterprisePoints
	if err := r.db.First(&ep, id).Error; err != nil {
		return nil, err
	}
	return &ep, nil
}

// SumUserTagValues 从 Tag 行重算某用户聚合的总分。
func (r *pointsRepository) SumUserTagValues(userPointsID uint) (float64, error) {
	var sum float64
	err := r.db.Model(&model.Tag{}).Where("user_points_id = ?", userPointsID).
		Select("COALESCE(SUM(value), 0)").Scan(&sum).Error
	return sum, err
}

func (r *pointsRepository) SumEnterpriseTagValues(enterprisePointsID uint) (float64, error) {
	var sum float64
	err := r.db.Model(&model.Tag{}).Where("enterprise_points_id = ?", enterprisePointsID).
		Select("COALESCE(SUM(value), 0)").Scan(&sum).Error
	return sum, err
}

// Ranking 联表返回按总分降序的成员排行。
func (r *pointsRepository) Ranking() ([]model.RankingEntry, error) {
	var entries []model.RankingEntry
	err := r.db.Model(&model.UserPoints{}).
		Select("user_points.user_id, users.name, users.area, user_points.total_points").
		Joins("JOIN users ON users.id = user_points.user_id").
		Where("users.status <> ?", model.UserStatusExMember).
		Order("user_points.total_points DESC").
		Scan(&entries).Error
	return entries, err
}

// ActionTypeCounts 返回各行为类型及其 Tag 数量。
func (r *pointsRepository) ActionTypeCounts() ([]model.ActionTypeCount, error) {
	var counts []model.ActionTypeCount
	err := r.db.Model(&model.ActionType{}).
		Select("action_types.id, action_types.name, action_types.description, COUNT(tags.id) AS tag_count").
		Joins("LEFT JOIN tags ON tags.action_type_id = action_types.id").
		Group("action_types.id, action_types.name, action_types.description").
		Scan(&counts).Error
	return counts, err
}
