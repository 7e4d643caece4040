package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func userTotal(t *testing.T, db *gorm.DB, userID uint) float64 {
	t.Helper()
	var up model.UserPoints
	err := db.Where("user_id = ?", userID).First(&up).Error
	if err == gorm.ErrRecordNotFound {
		return 0
	}
	require.NoError(t, err)
	return up.TotalPoints
}

func enterpriseTotal(t *testing.T, db *gorm.DB) float64 {
	t.Helper()
	var ep model.EnterprisePoints
	err := db.Where("`key` = ?", "casinha").First(&ep).Error
	if err == gorm.ErrRecordNotFound {
		return 0
	}
	require.NoError(t, err)
	return ep.TotalPoints
}

func TestAssignTemplates(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("多目标授予：每个目标独立落账且聚合等于模板分值之和", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento Interno")
		t1 := seedTemplate(t, db, "presença em evento", 4, at.ID)
		t2 := seedTemplate(t, db, "organização de evento", 6, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)
		bob := seedUser(t, db, "bob@casinha.org", "Bob", model.RoleMember, model.UserStatusActive)
		director := seedUser(t, db, "dir@casinha.org", "Dir", model.RoleDirector, model.UserStatusActive)

		result, err := svc.AssignTemplates(AssignRequest{
			UserIDs:           []uint{alice.ID, bob.ID},
			IncludeEnterprise: true,
			TemplateIDs:       []uint{t1.ID, t2.ID},
			DatePerformed:     date,
			AssignerID:        director.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, result.SucceededTargets)
		assert.Empty(t, result.Failures)

		assert.Equal(t, 10.0, userTotal(t, db, alice.ID))
		assert.Equal(t, 10.0, userTotal(t, db, bob.ID))
		assert.Equal(t, 10.0, enterpriseTotal(t, db))

		var tagCount int64
		require.NoError(t, db.Model(&model.Tag{}).Count(&tagCount).Error)
		assert.Equal(t, int64(6), tagCount)
	})

	t.Run("聚合计数器与台账行保持一致", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Capacitação")
		tpl := seedTemplate(t, db, "workshop", 7.5, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		for i := 0; i < 3; i++ {
			_, err := svc.AssignTemplates(AssignRequest{
				UserIDs:       []uint{alice.ID},
				TemplateIDs:   []uint{tpl.ID},
				DatePerformed: date,
				AssignerID:    alice.ID,
			})
			require.NoError(t, err)
		}

		pointsRepo := repository.NewPointsRepository(db)
		up, err := pointsRepo.FindUserPointsByUserID(alice.ID)
		require.NoError(t, err)
		sum, err := pointsRepo.SumUserTagValues(up.ID)
		require.NoError(t, err)
		assert.Equal(t, up.TotalPoints, sum)
		assert.Equal(t, 22.5, up.TotalPoints)
	})

	t.Run("模板不存在时整体失败且不写入任何数据", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 4, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID},
			TemplateIDs:   []uint{tpl.ID, 999},
			DatePerformed: date,
		})
		assert.ErrorIs(t, err, ErrNotFound)

		var tagCount int64
		require.NoError(t, db.Model(&model.Tag{}).Count(&tagCount).Error)
		assert.Zero(t, tagCount)
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))
	})

	t.Run("用户不存在时整体失败", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 4, at.ID)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{12345},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("退出成员默认不能被授予", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 4, at.ID)
		ex := seedUser(t, db, "ex@casinha.org", "Ex", model.RoleMember, model.UserStatusExMember)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{ex.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
		})
		assert.ErrorIs(t, err, ErrValidation)

		// 显式允许时可以补录
		_, err = svc.AssignTemplates(AssignRequest{
			UserIDs:        []uint{ex.ID},
			TemplateIDs:    []uint{tpl.ID},
			DatePerformed:  date,
			AllowExMembers: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 4.0, userTotal(t, db, ex.ID))
	})

	t.Run("重复的目标 id 只授予一次", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 10, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		result, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID, alice.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.SucceededTargets)
		assert.Equal(t, 1, result.CreatedTags)
		assert.Equal(t, 10.0, userTotal(t, db, alice.ID))

		var tagCount int64
		require.NoError(t, db.Model(&model.Tag{}).Count(&tagCount).Error)
		assert.Equal(t, int64(1), tagCount)
	})

	t.Run("collect 策略下失败目标回滚后不计入创建数", func(t *testing.T) {
		db := newTestDB(t)
		repo := &failingLedgerRepo{PointsRepository: repository.NewPointsRepository(db), failOn: 1}
		svc := NewPointsService(
			repo,
			repository.NewTemplateRepository(db),
			repository.NewUserRepository(db),
			nil,
			PolicyCollect,
			"casinha",
			time.Minute,
		)
		at := seedActionType(t, db, "Evento")
		t1 := seedTemplate(t, db, "evento", 4, at.ID)
		t2 := seedTemplate(t, db, "organização", 6, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)
		bob := seedUser(t, db, "bob@casinha.org", "Bob", model.RoleMember, model.UserStatusActive)

		result, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID, bob.ID},
			TemplateIDs:   []uint{t1.ID, t2.ID},
			DatePerformed: date,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.SucceededTargets)
		require.Len(t, result.Failures, 1)
		// alice 的事务回滚：她的插入不计入创建数，只有 bob 的两条
		assert.Equal(t, 2, result.CreatedTags)
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))
		assert.Equal(t, 10.0, userTotal(t, db, bob.ID))

		var tagCount int64
		require.NoError(t, db.Model(&model.Tag{}).Count(&tagCount).Error)
		assert.Equal(t, int64(2), tagCount)
	})

	t.Run("目标或模板为空时报参数错误", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)

		_, err := svc.AssignTemplates(AssignRequest{TemplateIDs: []uint{1}, DatePerformed: date})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.AssignTemplates(AssignRequest{UserIDs: []uint{1}, DatePerformed: date})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

// failingLedgerRepo 在第 failOn 次 Ledger 调用提交前注入失败，使该目标整体回滚。
type failingLedgerRepo struct {
	repository.PointsRepository
	failOn int
	calls  int
}

func (f *failingLedgerRepo) Ledger(fn func(tx repository.LedgerTx) error) error {
	f.calls++
	if f.calls == f.failOn {
		return f.PointsRepository.Ledger(func(tx repository.LedgerTx) error {
			if err := fn(tx); err != nil {
				return err
			}
			return errors.New("injected ledger failure")
		})
	}
	return f.PointsRepository.Ledger(fn)
}

func TestTagReversal(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	setup := func(t *testing.T, value float64) (*gorm.DB, PointsService, *model.User, *model.Tag) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", value, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
			AssignerID:    alice.ID,
		})
		require.NoError(t, err)

		var tag model.Tag
		require.NoError(t, db.First(&tag).Error)
		return db, svc, alice, &tag
	}

	t.Run("解除关联时按全额冲销聚合", func(t *testing.T) {
		db, svc, alice, tag := setup(t, 8)
		updated, err := svc.PatchTag(tag.ID, TagPatch{UnlinkFromAggregate: true})
		require.NoError(t, err)
		assert.Nil(t, updated.UserPointsID)
		assert.Nil(t, updated.EnterprisePointsID)
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))
	})

	t.Run("负分 Tag 解除关联时聚合回升", func(t *testing.T) {
		db, svc, alice, tag := setup(t, -5)
		assert.Equal(t, -5.0, userTotal(t, db, alice.ID))

		_, err := svc.PatchTag(tag.ID, TagPatch{UnlinkFromAggregate: true})
		require.NoError(t, err)
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))
	})

	t.Run("删除 Tag 时先冲销后删除", func(t *testing.T) {
		db, svc, alice, tag := setup(t, 8)
		require.NoError(t, svc.DeleteTag(tag.ID))
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))

		var count int64
		require.NoError(t, db.Model(&model.Tag{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("删除不存在的 Tag 报 NotFound", func(t *testing.T) {
		_, svc, _, _ := setup(t, 8)
		assert.ErrorIs(t, svc.DeleteTag(999), ErrNotFound)
	})
}

func TestApplyCorrection(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*gorm.DB, PointsService, *model.User, *model.Tag) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 10, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
			AssignerID:    alice.ID,
		})
		require.NoError(t, err)

		var tag model.Tag
		require.NoError(t, db.First(&tag).Error)
		return db, svc, alice, &tag
	}

	t.Run("上调修正按差值调整聚合", func(t *testing.T) {
		db, svc, alice, tag := setup(t)
		newValue := 15.0
		updated, err := svc.ApplyCorrection(tag.ID, &newValue, "corrigido")
		require.NoError(t, err)
		assert.Equal(t, 15.0, updated.Value)
		assert.Equal(t, "corrigido", updated.Description)
		assert.Equal(t, 15.0, userTotal(t, db, alice.ID))
	})

	t.Run("下调修正按差值调整聚合", func(t *testing.T) {
		db, svc, alice, tag := setup(t)
		newValue := 5.0
		_, err := svc.ApplyCorrection(tag.ID, &newValue, "")
		require.NoError(t, err)
		assert.Equal(t, 5.0, userTotal(t, db, alice.ID))
	})

	t.Run("相同分值的修正不改变聚合", func(t *testing.T) {
		db, svc, alice, tag := setup(t)
		newValue := 10.0
		_, err := svc.ApplyCorrection(tag.ID, &newValue, "somente descrição")
		require.NoError(t, err)
		assert.Equal(t, 10.0, userTotal(t, db, alice.ID))
	})
}

func TestAttachTagsToEnterprise(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("未分配 Tag 挂载后计入企业聚合", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		director := seedUser(t, db, "dir@casinha.org", "Dir", model.RoleDirector, model.UserStatusActive)

		tag1, err := svc.CreateUnassignedTag("feira de talentos", 12, at.ID, date, director.ID)
		require.NoError(t, err)
		tag2, err := svc.CreateUnassignedTag("prêmio regional", 8, at.ID, date, director.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, enterpriseTotal(t, db))

		require.NoError(t, svc.AttachTagsToEnterprise([]uint{tag1.ID, tag2.ID}, director.ID))
		assert.Equal(t, 20.0, enterpriseTotal(t, db))
	})

	t.Run("已关联的 Tag 不能重复挂载", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		director := seedUser(t, db, "dir@casinha.org", "Dir", model.RoleDirector, model.UserStatusActive)

		tag, err := svc.CreateUnassignedTag("prêmio", 8, at.ID, date, director.ID)
		require.NoError(t, err)
		require.NoError(t, svc.AttachTagsToEnterprise([]uint{tag.ID}, director.ID))

		err = svc.AttachTagsToEnterprise([]uint{tag.ID}, director.ID)
		assert.ErrorIs(t, err, ErrConflict)
		// 冲突时不重复计入
		assert.Equal(t, 8.0, enterpriseTotal(t, db))
	})
}

func TestUserPointsRead(t *testing.T) {
	t.Run("从未得分的成员返回零值聚合", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		up, tags, err := svc.UserPoints(alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, up.TotalPoints)
		assert.Empty(t, tags)
	})
}

func TestSnapshot(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("排行榜按总分降序且排除退出成员", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 5, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)
		bob := seedUser(t, db, "bob@casinha.org", "Bob", model.RoleMember, model.UserStatusActive)
		ex := seedUser(t, db, "ex@casinha.org", "Ex", model.RoleMember, model.UserStatusActive)

		assign := func(userID uint, times int) {
			for i := 0; i < times; i++ {
				_, err := svc.AssignTemplates(AssignRequest{
					UserIDs:       []uint{userID},
					TemplateIDs:   []uint{tpl.ID},
					DatePerformed: date,
				})
				require.NoError(t, err)
			}
		}
		assign(alice.ID, 2)
		assign(bob.ID, 3)
		assign(ex.ID, 5)
		// 事后退出的成员不再出现在排行榜
		require.NoError(t, db.Model(&model.User{}).Where("id = ?", ex.ID).
			Update("status", model.UserStatusExMember).Error)

		snap, err := svc.Snapshot(context.Background())
		require.NoError(t, err)
		require.Len(t, snap.Ranking, 2)
		assert.Equal(t, bob.ID, snap.Ranking[0].UserID)
		assert.Equal(t, 15.0, snap.Ranking[0].TotalPoints)
		assert.Equal(t, alice.ID, snap.Ranking[1].UserID)
	})

	t.Run("快照包含企业历史、未分配 Tag 与行为类型统计", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 5, at.ID)
		director := seedUser(t, db, "dir@casinha.org", "Dir", model.RoleDirector, model.UserStatusActive)

		_, err := svc.AssignTemplates(AssignRequest{
			IncludeEnterprise: true,
			TemplateIDs:       []uint{tpl.ID},
			DatePerformed:     date,
			AssignerID:        director.ID,
		})
		require.NoError(t, err)
		_, err = svc.CreateUnassignedTag("pendente", 3, at.ID, date, director.ID)
		require.NoError(t, err)

		snap, err := svc.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5.0, snap.EnterpriseTotal)
		assert.Len(t, snap.EnterpriseTags, 1)
		assert.Len(t, snap.UnassignedTags, 1)
		require.Len(t, snap.ActionTypeCounts, 1)
		assert.Equal(t, int64(2), snap.ActionTypeCounts[0].TagCount)
	})
}

// 模拟并发窗口：基于旧快照的关联变更在关联已生效后重放，条件更新必须不命中。
func TestAggregateLinkGuards(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("已关联的 Tag 不会被旧快照二次挂载", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		repo := repository.NewPointsRepository(db)
		at := seedActionType(t, db, "Evento")
		director := seedUser(t, db, "dir@casinha.org", "Dir", model.RoleDirector, model.UserStatusActive)

		tag, err := svc.CreateUnassignedTag("prêmio", 8, at.ID, date, director.ID)
		require.NoError(t, err)
		stale, err := repo.FindTagByID(tag.ID)
		require.NoError(t, err)

		require.NoError(t, svc.AttachTagsToEnterprise([]uint{tag.ID}, director.ID))
		assert.Equal(t, 8.0, enterpriseTotal(t, db))

		// 重放基于旧快照（未关联）的挂载
		err = repo.Ledger(func(tx repository.LedgerTx) error {
			ep, err := tx.UpsertEnterprisePoints("casinha", 0)
			if err != nil {
				return err
			}
			ok, err := tx.LinkTagToEnterprise(stale.ID, ep.ID, director.ID)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 8.0, enterpriseTotal(t, db))
	})

	t.Run("关联已解除后旧快照的冲销不命中", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		repo := repository.NewPointsRepository(db)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 8, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
		})
		require.NoError(t, err)

		var tag model.Tag
		require.NoError(t, db.First(&tag).Error)
		stale, err := repo.FindTagByID(tag.ID)
		require.NoError(t, err)

		_, err = svc.PatchTag(tag.ID, TagPatch{UnlinkFromAggregate: true})
		require.NoError(t, err)
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))

		// 重放基于旧快照（仍关联）的解除：条件不命中，聚合不被二次冲销
		err = repo.Ledger(func(tx repository.LedgerTx) error {
			ok, err := tx.UnlinkTag(stale.ID, stale.UserPointsID, stale.EnterprisePointsID)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))
	})

	t.Run("关联变更后旧快照的删除不命中", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		repo := repository.NewPointsRepository(db)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 8, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
		})
		require.NoError(t, err)

		var tag model.Tag
		require.NoError(t, db.First(&tag).Error)
		stale, err := repo.FindTagByID(tag.ID)
		require.NoError(t, err)

		_, err = svc.PatchTag(tag.ID, TagPatch{UnlinkFromAggregate: true})
		require.NoError(t, err)

		err = repo.Ledger(func(tx repository.LedgerTx) error {
			ok, err := tx.DeleteTag(stale.ID, stale.UserPointsID, stale.EnterprisePointsID)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		})
		require.NoError(t, err)

		// Tag 仍在，且聚合没有被二次冲销
		var count int64
		require.NoError(t, db.Model(&model.Tag{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, 0.0, userTotal(t, db, alice.ID))
	})
}

func TestPatchTag(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*gorm.DB, PointsService, *model.User, *model.Tag) {
		db := newTestDB(t)
		svc := newTestPointsService(t, db, PolicyCollect)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 10, at.ID)
		alice := seedUser(t, db, "alice@casinha.org", "Alice", model.RoleMember, model.UserStatusActive)

		_, err := svc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{alice.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
			AssignerID:    alice.ID,
		})
		require.NoError(t, err)

		var tag model.Tag
		require.NoError(t, db.First(&tag).Error)
		return db, svc, alice, &tag
	}

	t.Run("同时修改分值与执行日期", func(t *testing.T) {
		db, svc, alice, tag := setup(t)
		newValue := 15.0
		newDate := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

		updated, err := svc.PatchTag(tag.ID, TagPatch{Value: &newValue, DatePerformed: &newDate})
		require.NoError(t, err)
		assert.Equal(t, 15.0, updated.Value)
		assert.True(t, updated.DatePerformed.Equal(newDate))
		assert.Equal(t, 15.0, userTotal(t, db, alice.ID))

		var got model.Tag
		require.NoError(t, db.First(&got, tag.ID).Error)
		assert.Equal(t, 15.0, got.Value)
		assert.True(t, got.DatePerformed.Equal(newDate))
	})

	t.Run("显式空描述会清空字段", func(t *testing.T) {
		db, svc, alice, tag := setup(t)
		empty := ""
		updated, err := svc.PatchTag(tag.ID, TagPatch{Description: &empty})
		require.NoError(t, err)
		assert.Equal(t, "", updated.Description)
		// 只改描述不触碰聚合
		assert.Equal(t, 10.0, userTotal(t, db, alice.ID))

		var got model.Tag
		require.NoError(t, db.First(&got, tag.ID).Error)
		assert.Equal(t, "", got.Description)
	})
}
