package service

import (
	"testing"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestUserService(t *testing.T, db *gorm.DB) UserService {
	t.Helper()
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	return NewUserService(
		repository.NewUserRepository(db),
		repository.NewRequestRepository(db),
		jwtManager,
		nil,
	)
}

func TestRegisterAndLogin(t *testing.T) {
	register := RegisterRequest{
		Email:    "novo@casinha.org",
		Password: "senha-segura",
		Name:     "Novo Membro",
		Area:     "projetos",
	}

	t.Run("注册后用户处于待审核状态", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestUserService(t, db)

		user, err := svc.Register(register)
		require.NoError(t, err)
		assert.Equal(t, model.UserStatusPending, user.Status)
		assert.Equal(t, model.RoleMember, user.Role)
		// 密码只存散列
		assert.NotEqual(t, register.Password, user.Password)

		var reg model.RegistrationRequest
		require.NoError(t, db.Where("user_id = ?", user.ID).First(&reg).Error)
		assert.Equal(t, model.RequestStatusPending, reg.Status)
	})

	t.Run("重复邮箱注册被拒绝", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestUserService(t, db)
		_, err := svc.Register(register)
		require.NoError(t, err)

		_, err = svc.Register(register)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("待审核用户不能登录", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestUserService(t, db)
		_, err := svc.Register(register)
		require.NoError(t, err)

		_, err = svc.Login(register.Email, register.Password)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("审核通过后可登录并校验 token", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestUserService(t, db)
		adminSvc := newTestAdminService(t, db)
		admin := seedUser(t, db, "a@casinha.org", "Admin", model.RoleAdmin, model.UserStatusActive)

		user, err := svc.Register(register)
		require.NoError(t, err)

		var reg model.RegistrationRequest
		require.NoError(t, db.Where("user_id = ?", user.ID).First(&reg).Error)
		result, err := adminSvc.ReviewRegistrations([]RegistrationDecision{{RequestID: reg.ID, Approve: true}}, admin.ID)
		require.NoError(t, err)
		require.Equal(t, 1, result.Processed)

		resp, err := svc.Login(register.Email, register.Password)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, user.ID, resp.User.ID)

		claims, err := token.NewJWTManager("test-secret", 1, 7).VerifyToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, register.Email, claims.Email)
	})

	t.Run("错误凭据返回统一的校验错误", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestUserService(t, db)
		_, err := svc.Register(register)
		require.NoError(t, err)

		_, err = svc.Login(register.Email, "senha-errada")
		assert.ErrorIs(t, err, ErrValidation)
		// 不存在的邮箱与密码错误不可区分
		_, err = svc.Login("inexistente@casinha.org", register.Password)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("退出成员不能登录", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestUserService(t, db)
		user, err := svc.Register(register)
		require.NoError(t, err)
		user.Status = model.UserStatusExMember
		require.NoError(t, db.Save(user).Error)

		_, err = svc.Login(register.Email, register.Password)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestRefreshToken(t *testing.T) {
	db := newTestDB(t)
	svc := newTestUserService(t, db)
	adminSvc := newTestAdminService(t, db)
	admin := seedUser(t, db, "a@casinha.org", "Admin", model.RoleAdmin, model.UserStatusActive)

	user, err := svc.Register(RegisterRequest{
		Email:    "m@casinha.org",
		Password: "senha-segura",
		Name:     "Membro",
	})
	require.NoError(t, err)
	var reg model.RegistrationRequest
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&reg).Error)
	_, err = adminSvc.ReviewRegistrations([]RegistrationDecision{{RequestID: reg.ID, Approve: true}}, admin.ID)
	require.NoError(t, err)

	resp, err := svc.Login("m@casinha.org", "senha-segura")
	require.NoError(t, err)

	t.Run("有效 refresh token 换取新 access token", func(t *testing.T) {
		access, err := svc.RefreshToken(resp.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
	})

	t.Run("伪造的 token 被拒绝", func(t *testing.T) {
		_, err := svc.RefreshToken("not-a-token")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("退出成员不能续签", func(t *testing.T) {
		user.Status = model.UserStatusExMember
		require.NoError(t, db.Save(user).Error)
		_, err := svc.RefreshToken(resp.RefreshToken)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	svc := newTestUserService(t, db)
	user := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)

	updated, err := svc.UpdateProfile(user.ID, ProfileUpdate{Name: "Membro Renomeado"})
	require.NoError(t, err)
	assert.Equal(t, "Membro Renomeado", updated.Name)
	// 空字段不覆盖
	updated, err = svc.UpdateProfile(user.ID, ProfileUpdate{Area: "marketing"})
	require.NoError(t, err)
	assert.Equal(t, "Membro Renomeado", updated.Name)
	assert.Equal(t, "marketing", updated.Area)

	_, err = svc.GetProfile(999)
	assert.ErrorIs(t, err, ErrNotFound)
}
