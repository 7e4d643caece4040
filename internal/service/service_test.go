package service

import (
	"testing"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 创建一个内存 sqlite 数据库并迁移全部表结构。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.RegistrationRequest{},
		&model.ActionType{},
		&model.TagTemplate{},
		&model.Tag{},
		&model.UserPoints{},
		&model.EnterprisePoints{},
		&model.Solicitation{},
		&model.Report{},
		&model.Room{},
		&model.EquipmentItem{},
		&model.Reservation{},
		&model.PlanningContent{},
		&model.KnowledgeChunk{},
	))
	return db
}

// newTestPointsService 组装一个不带 Redis 缓存的 PointsService 及其依赖。
func newTestPointsService(t *testing.T, db *gorm.DB, policy string) PointsService {
	t.Helper()
	return NewPointsService(
		repository.NewPointsRepository(db),
		repository.NewTemplateRepository(db),
		repository.NewUserRepository(db),
		nil,
		policy,
		"casinha",
		time.Minute,
	)
}

// seedUser 插入一个测试用户。
func seedUser(t *testing.T, db *gorm.DB, email, name, role, status string) *model.User {
	t.Helper()
	user := &model.User{
		Email:    email,
		Password: "x",
		Name:     name,
		Role:     role,
		Status:   status,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedTemplate 插入一个行为类型（若不存在）和积分模板。
func seedTemplate(t *testing.T, db *gorm.DB, name string, value float64, actionTypeID uint) *model.TagTemplate {
	t.Helper()
	tpl := &model.TagTemplate{
		Name:         name,
		BaseValue:    value,
		ActionTypeID: actionTypeID,
	}
	require.NoError(t, db.Create(tpl).Error)
	return tpl
}

func seedActionType(t *testing.T, db *gorm.DB, name string) *model.ActionType {
	t.Helper()
	at := &model.ActionType{Name: name}
	require.NoError(t, db.Create(at).Error)
	return at
}
