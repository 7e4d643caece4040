package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 批量授予的失败策略。
const (
	PolicyCollect = "collect" // 逐目标独立提交，收集失败继续
	PolicyAbort   = "abort"   // 任一目标失败即中止剩余目标
)

// AssignRequest 是授予编排器的输入。
type AssignRequest struct {
	UserIDs           []uint
	IncludeEnterprise bool
	TemplateIDs       []uint
	DatePerformed     time.Time
	Description       string
	AssignerID        uint
	// AllowExMembers 为 true 时允许向 EX_MEMBER 授予（历史补录）。
	AllowExMembers bool
}

// TargetFailure 记录单个目标的失败原因。
type TargetFailure struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// AssignResult 汇总批量授予的结果。
type AssignResult struct {
	SucceededTargets int             `json:"succeededTargets"`
	CreatedTags      int             `json:"createdTags"`
	Failures         []TargetFailure `json:"failures"`
}

// PointsSnapshot 是 jr-points-data 聚合读的响应载体。
type PointsSnapshot struct {
	Ranking          []model.RankingEntry    `json:"ranking"`
	EnterpriseTotal  float64                 `json:"enterpriseTotal"`
	EnterpriseTags   []model.Tag             `json:"enterpriseTags"`
	UnassignedTags   []model.Tag             `json:"unassignedTags"`
	ActionTypeCounts []model.ActionTypeCount `json:"actionTypeCounts"`
}

// TagPatch 是 Tag 部分更新的输入。UnlinkFromAggregate 为 true 时执行反向冲销并解除关联。
type TagPatch struct {
	Description         *string
	Value               *float64
	DatePerformed       *time.Time
	UnlinkFromAggregate bool
}

// PointsService 接口定义了积分台账的所有业务操作。
type PointsService interface {
	// AssignTemplates 是授予编排器：为每个 (目标 × 模板) 创建一条 Tag，
	// 并在同一事务内将模板分值之和计入该目标的聚合计数器。
	AssignTemplates(req AssignRequest) (*AssignResult, error)
	// AttachTagsToEnterprise 将既有的未分配 Tag 关联到企业聚合并计入其分值。
	AttachTagsToEnterprise(tagIDs []uint, assignerID uint) error
	// CreateUnassignedTag 创建一条不关联任何聚合的模板式 Tag。
	CreateUnassignedTag(description string, value float64, actionTypeID uint, datePerformed time.Time, assignerID uint) (*model.Tag, error)
	// PatchTag 部分更新 Tag；值变更按 (新值-旧值) 修正聚合，解除关联按全额冲销。
	PatchTag(tagID uint, patch TagPatch) (*model.Tag, error)
	// DeleteTag 冲销 Tag 对聚合的影响后硬删除。
	DeleteTag(tagID uint) error
	// ApplyCorrection 按修正值调整已结算 Tag：聚合按 (新值-旧值) 增量调整。
	ApplyCorrection(tagID uint, newValue *float64, newDescription string) (*model.Tag, error)
	// UserPoints 返回某成员的聚合与台账历史。
	UserPoints(userID uint) (*model.UserPoints, []model.Tag, error)
	// Snapshot 返回排行榜、企业总分与历史、未分配 Tag、行为类型统计的聚合读。
	Snapshot(ctx context.Context) (*PointsSnapshot, error)
}

type pointsService struct {
	pointsRepo    repository.PointsRepository
	templateRepo  repository.TemplateRepository
	userRepo      repository.UserRepository
	rdb           *redis.Client
	policy        string
	enterpriseKey string
	cacheTTL      time.Duration
}

// NewPointsService 创建一个新的 PointsService 实例。
// rdb 可为 nil（测试环境），此时排行榜快照不走缓存。
func NewPointsService(
	pointsRepo repository.PointsRepository,
	templateRepo repository.TemplateRepository,
	userRepo repository.UserRepository,
	rdb *redis.Client,
	policy string,
	enterpriseKey string,
	cacheTTL time.Duration,
) PointsService {
	if policy != PolicyAbort {
		policy = PolicyCollect
	}
	return &pointsService{
		pointsRepo:    pointsRepo,
		templateRepo:  templateRepo,
		userRepo:      userRepo,
		rdb:           rdb,
		policy:        policy,
		enterpriseKey: enterpriseKey,
		cacheTTL:      cacheTTL,
	}
}

// AssignTemplates 实现授予编排。
// 模板与用户在写入前整体解析（未知 id 直接失败），跨目标按配置的策略处理失败；
// 单个目标内部的 Tag 插入与聚合自增始终在同一事务内，失败只回滚该目标。
func (s *pointsService) AssignTemplates(req AssignRequest) (*AssignResult, error) {
	if len(req.TemplateIDs) == 0 {
		return nil, fmt.Errorf("%w: 模板列表不能为空", ErrValidation)
	}
	if len(req.UserIDs) == 0 && !req.IncludeEnterprise {
		return nil, fmt.Errorf("%w: 目标列表不能为空", ErrValidation)
	}
	if req.DatePerformed.IsZero() {
		return nil, fmt.Errorf("%w: 执行日期无效", ErrValidation)
	}
	// 目标是集合语义，重复的用户 id 只授予一次
	req.UserIDs = uniqueIDs(req.UserIDs)

	// 1. 整体解析模板，缺失任何一个都在写入前中止
	templates, err := s.templateRepo.FindTemplatesBatch(req.TemplateIDs)
	if err != nil {
		return nil, err
	}
	if len(templates) != len(uniqueIDs(req.TemplateIDs)) {
		missing := missingIDs(req.TemplateIDs, templateIDSet(templates))
		return nil, fmt.Errorf("%w: 模板不存在: %v", ErrNotFound, missing)
	}

	// 2. 整体解析用户目标
	users, err := s.userRepo.FindBatchByIDs(req.UserIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[uint]model.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	for _, id := range req.UserIDs {
		u, ok := userByID[id]
		if !ok {
			return nil, fmt.Errorf("%w: 用户不存在: %d", ErrNotFound, id)
		}
		if u.Status == model.UserStatusExMember && !req.AllowExMembers {
			return nil, fmt.Errorf("%w: 用户 %d 已退出，不能授予积分", ErrValidation, id)
		}
	}

	var sum float64
	for _, t := range templates {
		sum += t.BaseValue
	}

	result := &AssignResult{}

	// 3. 企业分支：一个事务内 upsert 聚合 + 逐模板插入 Tag
	if req.IncludeEnterprise {
		created := 0
		err := s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
			created = 0
			ep, err := tx.UpsertEnterprisePoints(s.enterpriseKey, sum)
			if err != nil {
				return err
			}
			for i := range templates {
				tag := s.tagFromTemplate(&templates[i], req)
				tag.EnterprisePointsID = &ep.ID
				if err := tx.CreateTag(tag); err != nil {
					return err
				}
				created++
			}
			return nil
		})
		if err != nil {
			if s.policy == PolicyAbort {
				return result, fmt.Errorf("企业积分授予失败: %w", err)
			}
			result.Failures = append(result.Failures, TargetFailure{Target: "enterprise", Reason: err.Error()})
			log.Errorf("[PointsService] 企业积分授予失败: %v", err)
		} else {
			// 统计只在事务提交后计入，回滚的插入不算创建
			result.SucceededTargets++
			result.CreatedTags += created
		}
	}

	// 4. 用户分支：逐目标独立事务（目标间无跨事务原子性，见策略配置）
	for _, userID := range req.UserIDs {
		uid := userID
		created := 0
		err := s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
			created = 0
			up, err := tx.UpsertUserPoints(uid, sum)
			if err != nil {
				return err
			}
			for i := range templates {
				tag := s.tagFromTemplate(&templates[i], req)
				tag.UserPointsID = &up.ID
				if err := tx.CreateTag(tag); err != nil {
					return err
				}
				created++
			}
			return nil
		})
		if err != nil {
			if s.policy == PolicyAbort {
				return result, fmt.Errorf("用户 %d 积分授予失败: %w", uid, err)
			}
			result.Failures = append(result.Failures, TargetFailure{
				Target: fmt.Sprintf("user:%d", uid),
				Reason: err.Error(),
			})
			log.Errorf("[PointsService] 用户 %d 积分授予失败: %v", uid, err)
			continue
		}
		result.SucceededTargets++
		result.CreatedTags += created
	}

	s.invalidateSnapshot()
	return result, nil
}

// tagFromTemplate 由模板生成一条待落库的 Tag。
func (s *pointsService) tagFromTemplate(t *model.TagTemplate, req AssignRequest) *model.Tag {
	description := t.Name
	if req.Description != "" {
		description = req.Description
	}
	templateID := t.ID
	return &model.Tag{
		Description:   description,
		Value:         t.BaseValue,
		DatePerformed: req.DatePerformed,
		ActionTypeID:  t.ActionTypeID,
		TemplateID:    &templateID,
		AssignerID:    req.AssignerID,
	}
}

// AttachTagsToEnterprise 将未分配 Tag 批量挂到企业聚合，整批一个事务。
// 关联通过条件更新设置（仅当 Tag 仍未关联时生效），聚合只为生效的关联自增，
// 并发的重复挂载只有一个提交，另一个整体回滚并报冲突。
func (s *pointsService) AttachTagsToEnterprise(tagIDs []uint, assignerID uint) error {
	if len(tagIDs) == 0 {
		return fmt.Errorf("%w: tag 列表不能为空", ErrValidation)
	}
	tagIDs = uniqueIDs(tagIDs)

	// 事务前整体校验，给出明确的 NotFound/Conflict；关联状态以事务内的条件更新为准
	tags := make([]*model.Tag, 0, len(tagIDs))
	for _, id := range tagIDs {
		tag, err := s.pointsRepo.FindTagByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: tag %d 不存在", ErrNotFound, id)
			}
			return err
		}
		if tag.UserPointsID != nil || tag.EnterprisePointsID != nil {
			return fmt.Errorf("%w: tag %d 已关联聚合，不能重复计入", ErrConflict, id)
		}
		tags = append(tags, tag)
	}

	err := s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
		ep, err := tx.UpsertEnterprisePoints(s.enterpriseKey, 0)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			ok, err := tx.LinkTagToEnterprise(tag.ID, ep.ID, assignerID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: tag %d 已关联聚合，不能重复计入", ErrConflict, tag.ID)
			}
			if err := tx.AdjustEnterprisePoints(ep.ID, tag.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateSnapshot()
	return nil
}

// CreateUnassignedTag 创建一条未分配聚合的 Tag，不触碰任何计数器。
func (s *pointsService) CreateUnassignedTag(description string, value float64, actionTypeID uint, datePerformed time.Time, assignerID uint) (*model.Tag, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: 描述不能为空", ErrValidation)
	}
	tag := &model.Tag{
		Description:   description,
		Value:         value,
		DatePerformed: datePerformed,
		ActionTypeID:  actionTypeID,
		AssignerID:    assignerID,
	}
	err := s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
		return tx.CreateTag(tag)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// PatchTag 部分更新 Tag。
// 解除关联时按 Tag 全额反向冲销聚合；值变更时按 (新值-旧值) 修正聚合；两者都与链接变更同事务。
func (s *pointsService) PatchTag(tagID uint, patch TagPatch) (*model.Tag, error) {
	tag, err := s.pointsRepo.FindTagByID(tagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tag %d 不存在", ErrNotFound, tagID)
		}
		return nil, err
	}

	if patch.UnlinkFromAggregate {
		err := s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
			// 条件更新只在关联未被并发变更时生效，冲销与解除始终针对同一关联
			ok, err := tx.UnlinkTag(tag.ID, tag.UserPointsID, tag.EnterprisePointsID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: tag %d 的关联已变更", ErrConflict, tag.ID)
			}
			return s.reverseAggregate(tx, tag)
		})
		if err != nil {
			return nil, err
		}
		tag.UserPointsID = nil
		tag.EnterprisePointsID = nil
		s.invalidateSnapshot()
		return tag, nil
	}

	// 字段更新与聚合修正折叠进同一事务：值变更按 (新值-旧值) 调整关联的聚合，
	// 描述与执行日期的变更随同提交（显式空描述会清空字段）。
	err = s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
		if patch.Value != nil && *patch.Value != tag.Value {
			if err := s.adjustLinkedAggregate(tx, tag, *patch.Value-tag.Value); err != nil {
				return err
			}
			tag.Value = *patch.Value
		}
		if patch.Description != nil {
			tag.Description = *patch.Description
		}
		if patch.DatePerformed != nil {
			tag.DatePerformed = *patch.DatePerformed
		}
		return tx.UpdateTag(tag)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSnapshot()
	return tag, nil
}

// DeleteTag 先冲销再删除，两步在同一事务内。
func (s *pointsService) DeleteTag(tagID uint) error {
	tag, err := s.pointsRepo.FindTagByID(tagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: tag %d 不存在", ErrNotFound, tagID)
		}
		return err
	}

	err = s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
		// 条件删除只在关联未被并发变更时生效，保证冲销与删除针对同一关联
		ok, err := tx.DeleteTag(tag.ID, tag.UserPointsID, tag.EnterprisePointsID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: tag %d 的关联已变更", ErrConflict, tag.ID)
		}
		return s.reverseAggregate(tx, tag)
	})
	if err != nil {
		return err
	}
	s.invalidateSnapshot()
	return nil
}

// reverseAggregate 对 Tag 所关联的聚合做全额反向调整；未关联任何聚合时为 no-op。
func (s *pointsService) reverseAggregate(tx repository.LedgerTx, tag *model.Tag) error {
	return s.adjustLinkedAggregate(tx, tag, -tag.Value)
}

// adjustLinkedAggregate 对 Tag 关联的聚合做增量调整；未关联任何聚合时为 no-op。
func (s *pointsService) adjustLinkedAggregate(tx repository.LedgerTx, tag *model.Tag, delta float64) error {
	if tag.UserPointsID != nil {
		return tx.AdjustUserPoints(*tag.UserPointsID, delta)
	}
	if tag.EnterprisePointsID != nil {
		return tx.AdjustEnterprisePoints(*tag.EnterprisePointsID, delta)
	}
	return nil
}

// ApplyCorrection 按修正值调整已结算 Tag。
// 聚合的调整量是 (新值 - 旧值)，而不是整笔新值重记。
func (s *pointsService) ApplyCorrection(tagID uint, newValue *float64, newDescription string) (*model.Tag, error) {
	tag, err := s.pointsRepo.FindTagByID(tagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tag %d 不存在", ErrNotFound, tagID)
		}
		return nil, err
	}

	err = s.pointsRepo.Ledger(func(tx repository.LedgerTx) error {
		if newValue != nil && *newValue != tag.Value {
			if err := s.adjustLinkedAggregate(tx, tag, *newValue-tag.Value); err != nil {
				return err
			}
			tag.Value = *newValue
		}
		if newDescription != "" {
			tag.Description = newDescription
		}
		return tx.UpdateTag(tag)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSnapshot()
	return tag, nil
}

// UserPoints 返回某成员的聚合与台账历史；从未得分的成员返回零值聚合。
func (s *pointsService) UserPoints(userID uint) (*model.UserPoints, []model.Tag, error) {
	up, err := s.pointsRepo.FindUserPointsByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.UserPoints{UserID: userID}, []model.Tag{}, nil
		}
		return nil, nil, err
	}
	tags, err := s.pointsRepo.FindTagsByUserPointsID(up.ID)
	if err != nil {
		return nil, nil, err
	}
	return up, tags, nil
}

const snapshotCacheKey = "jrpoints:snapshot"

// Snapshot 组装 jr-points-data 聚合读，结果短暂缓存在 Redis。
func (s *pointsService) Snapshot(ctx context.Context) (*PointsSnapshot, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, snapshotCacheKey).Result()
		if err == nil {
			var snap PointsSnapshot
			if jsonErr := json.Unmarshal([]byte(cached), &snap); jsonErr == nil {
				return &snap, nil
			}
		}
	}

	ranking, err := s.pointsRepo.Ranking()
	if err != nil {
		return nil, err
	}

	snap := &PointsSnapshot{Ranking: ranking}

	ep, err := s.pointsRepo.FindEnterprisePoints(s.enterpriseKey)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if ep != nil {
		snap.EnterpriseTotal = ep.TotalPoints
		epTags, err := s.pointsRepo.FindTagsByEnterprisePointsID(ep.ID)
		if err != nil {
			return nil, err
		}
		snap.EnterpriseTags = epTags
	}

	unassigned, err := s.pointsRepo.FindUnassignedTags()
	if err != nil {
		return nil, err
	}
	snap.UnassignedTags = unassigned

	counts, err := s.pointsRepo.ActionTypeCounts()
	if err != nil {
		return nil, err
	}
	snap.ActionTypeCounts = counts

	if s.rdb != nil {
		if data, err := json.Marshal(snap); err == nil {
			_ = s.rdb.Set(ctx, snapshotCacheKey, data, s.cacheTTL).Err()
		}
	}
	return snap, nil
}

// invalidateSnapshot 在任何台账写入后清除排行榜缓存。
func (s *pointsService) invalidateSnapshot() {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(context.Background(), snapshotCacheKey).Err()
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func templateIDSet(templates []model.TagTemplate) map[uint]struct{} {
	set := make(map[uint]struct{}, len(templates))
	for _, t := range templates {
		set[t.ID] = struct{}{}
	}
	return set
}

func missingIDs(ids []uint, present map[uint]struct{}) []uint {
	var missing []uint
	for _, id := range uniqueIDs(ids) {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
