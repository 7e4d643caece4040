package service

import (
	"testing"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestReviewService(t *testing.T, db *gorm.DB) (ReviewService, PointsService) {
	t.Helper()
	pointsSvc := newTestPointsService(t, db, PolicyCollect)
	reviewSvc := NewReviewService(
		repository.NewRequestRepository(db),
		repository.NewTemplateRepository(db),
		repository.NewUserRepository(db),
		repository.NewPointsRepository(db),
		pointsSvc,
	)
	return reviewSvc, pointsSvc
}

func TestSolicitationFlow(t *testing.T) {
	date := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	t.Run("审核通过时为申请人落账", func(t *testing.T) {
		db := newTestDB(t)
		svc, _ := newTestReviewService(t, db)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 6, at.ID)
		member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)
		director := seedUser(t, db, "d@casinha.org", "Diretor", model.RoleDirector, model.UserStatusActive)

		sol, err := svc.CreateSolicitation(SolicitationRequest{
			RequesterID:   member.ID,
			Description:   "participei do evento",
			DatePerformed: date,
			TemplateIDs:   []uint{tpl.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusPending, sol.Status)

		reviewed, assignResult, err := svc.ReviewSolicitation(sol.ID, true, "ok", director.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusApproved, reviewed.Status)
		require.NotNil(t, reviewed.ReviewerID)
		assert.Equal(t, director.ID, *reviewed.ReviewerID)
		assert.NotNil(t, reviewed.ReviewedAt)
		assert.Equal(t, 1, assignResult.SucceededTargets)
		assert.Equal(t, 6.0, userTotal(t, db, member.ID))
	})

	t.Run("企业申请通过时落账到企业聚合", func(t *testing.T) {
		db := newTestDB(t)
		svc, _ := newTestReviewService(t, db)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "prêmio", 20, at.ID)
		member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)
		director := seedUser(t, db, "d@casinha.org", "Diretor", model.RoleDirector, model.UserStatusActive)

		sol, err := svc.CreateSolicitation(SolicitationRequest{
			RequesterID:     member.ID,
			IsForEnterprise: true,
			DatePerformed:   date,
			TemplateIDs:     []uint{tpl.ID},
		})
		require.NoError(t, err)

		_, _, err = svc.ReviewSolicitation(sol.ID, true, "", director.ID)
		require.NoError(t, err)
		assert.Equal(t, 20.0, enterpriseTotal(t, db))
		assert.Equal(t, 0.0, userTotal(t, db, member.ID))
	})

	t.Run("拒绝的申请不产生任何落账", func(t *testing.T) {
		db := newTestDB(t)
		svc, _ := newTestReviewService(t, db)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 6, at.ID)
		member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)
		director := seedUser(t, db, "d@casinha.org", "Diretor", model.RoleDirector, model.UserStatusActive)

		sol, err := svc.CreateSolicitation(SolicitationRequest{
			RequesterID:   member.ID,
			DatePerformed: date,
			TemplateIDs:   []uint{tpl.ID},
		})
		require.NoError(t, err)

		reviewed, _, err := svc.ReviewSolicitation(sol.ID, false, "sem evidência", director.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusRejected, reviewed.Status)
		assert.Equal(t, 0.0, userTotal(t, db, member.ID))

		var tagCount int64
		require.NoError(t, db.Model(&model.Tag{}).Count(&tagCount).Error)
		assert.Zero(t, tagCount)
	})

	t.Run("终态申请不能重复审核", func(t *testing.T) {
		db := newTestDB(t)
		svc, _ := newTestReviewService(t, db)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 6, at.ID)
		member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)
		director := seedUser(t, db, "d@casinha.org", "Diretor", model.RoleDirector, model.UserStatusActive)

		sol, err := svc.CreateSolicitation(SolicitationRequest{
			RequesterID:   member.ID,
			DatePerformed: date,
			TemplateIDs:   []uint{tpl.ID},
		})
		require.NoError(t, err)
		_, _, err = svc.ReviewSolicitation(sol.ID, true, "", director.ID)
		require.NoError(t, err)

		_, _, err = svc.ReviewSolicitation(sol.ID, true, "", director.ID)
		assert.ErrorIs(t, err, ErrConflict)
		// 重复审核不会二次落账
		assert.Equal(t, 6.0, userTotal(t, db, member.ID))

		_, _, err = svc.ReviewSolicitation(sol.ID, false, "", director.ID)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("提交时校验模板存在", func(t *testing.T) {
		db := newTestDB(t)
		svc, _ := newTestReviewService(t, db)
		member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)

		_, err := svc.CreateSolicitation(SolicitationRequest{
			RequesterID:   member.ID,
			DatePerformed: date,
			TemplateIDs:   []uint{42},
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReportFlow(t *testing.T) {
	date := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*gorm.DB, ReviewService, *model.User, *model.User, *model.Tag) {
		db := newTestDB(t)
		svc, pointsSvc := newTestReviewService(t, db)
		at := seedActionType(t, db, "Evento")
		tpl := seedTemplate(t, db, "evento", 10, at.ID)
		member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)
		director := seedUser(t, db, "d@casinha.org", "Diretor", model.RoleDirector, model.UserStatusActive)

		_, err := pointsSvc.AssignTemplates(AssignRequest{
			UserIDs:       []uint{member.ID},
			TemplateIDs:   []uint{tpl.ID},
			DatePerformed: date,
			AssignerID:    director.ID,
		})
		require.NoError(t, err)

		var tag model.Tag
		require.NoError(t, db.First(&tag).Error)
		return db, svc, member, director, &tag
	}

	t.Run("申诉通过时按差值修正聚合", func(t *testing.T) {
		db, svc, member, director, tag := setup(t)
		corrected := 14.0
		rep, err := svc.CreateReport(ReportRequest{
			RequesterID:    member.ID,
			TagID:          tag.ID,
			Description:    "valor menor que o combinado",
			RecipientID:    director.ID,
			CorrectedValue: &corrected,
		})
		require.NoError(t, err)

		reviewed, err := svc.ReviewReport(rep.ID, true, "procede", director)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusApproved, reviewed.Status)
		assert.Equal(t, 14.0, userTotal(t, db, member.ID))

		var updatedTag model.Tag
		require.NoError(t, db.First(&updatedTag, tag.ID).Error)
		assert.Equal(t, 14.0, updatedTag.Value)
	})

	t.Run("拒绝的申诉不改变 Tag 和聚合", func(t *testing.T) {
		db, svc, member, director, tag := setup(t)
		corrected := 14.0
		rep, err := svc.CreateReport(ReportRequest{
			RequesterID:    member.ID,
			TagID:          tag.ID,
			Description:    "discordo",
			RecipientID:    director.ID,
			CorrectedValue: &corrected,
		})
		require.NoError(t, err)

		_, err = svc.ReviewReport(rep.ID, false, "não procede", director)
		require.NoError(t, err)
		assert.Equal(t, 10.0, userTotal(t, db, member.ID))
	})

	t.Run("终态申诉不能重复审核", func(t *testing.T) {
		db, svc, member, director, tag := setup(t)
		corrected := 14.0
		rep, err := svc.CreateReport(ReportRequest{
			RequesterID:    member.ID,
			TagID:          tag.ID,
			Description:    "x",
			RecipientID:    director.ID,
			CorrectedValue: &corrected,
		})
		require.NoError(t, err)
		_, err = svc.ReviewReport(rep.ID, true, "", director)
		require.NoError(t, err)

		_, err = svc.ReviewReport(rep.ID, true, "", director)
		assert.ErrorIs(t, err, ErrConflict)
		// 重复审核不会二次应用修正
		assert.Equal(t, 14.0, userTotal(t, db, member.ID))
	})

	t.Run("仅指定受理人可审核", func(t *testing.T) {
		db, svc, member, director, tag := setup(t)
		other := seedUser(t, db, "o@casinha.org", "Outro", model.RoleDirector, model.UserStatusActive)
		rep, err := svc.CreateReport(ReportRequest{
			RequesterID: member.ID,
			TagID:       tag.ID,
			Description: "x",
			RecipientID: director.ID,
		})
		require.NoError(t, err)

		_, err = svc.ReviewReport(rep.ID, true, "", other)
		assert.ErrorIs(t, err, ErrForbidden)

		// 管理员不受限
		admin := seedUser(t, db, "a@casinha.org", "Admin", model.RoleAdmin, model.UserStatusActive)
		_, err = svc.ReviewReport(rep.ID, true, "", admin)
		require.NoError(t, err)
	})

	t.Run("受理人必须是董事", func(t *testing.T) {
		db, svc, member, _, tag := setup(t)
		plain := seedUser(t, db, "p@casinha.org", "Plain", model.RoleMember, model.UserStatusActive)
		_, err := svc.CreateReport(ReportRequest{
			RequesterID: member.ID,
			TagID:       tag.ID,
			Description: "x",
			RecipientID: plain.ID,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("被申诉的 Tag 必须存在", func(t *testing.T) {
		_, svc, member, director, _ := setup(t)
		_, err := svc.CreateReport(ReportRequest{
			RequesterID: member.ID,
			TagID:       999,
			Description: "x",
			RecipientID: director.ID,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
