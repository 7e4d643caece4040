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

func newTestReservationService(t *testing.T, db *gorm.DB) ReservationService {
	t.Helper()
	return NewReservationService(repository.NewReservationRepository(db))
}

func reserveAt(t *testing.T, svc ReservationService, kind string, resourceID, userID uint, startHour, endHour int) (*model.Reservation, error) {
	t.Helper()
	day := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	return svc.Reserve(ReservationRequest{
		ResourceKind: kind,
		ResourceID:   resourceID,
		UserID:       userID,
		StartTime:    day.Add(time.Duration(startHour) * time.Hour),
		EndTime:      day.Add(time.Duration(endHour) * time.Hour),
		Purpose:      "reunião",
	})
}

func TestReserveOverlap(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(t, db)
	member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)
	other := seedUser(t, db, "o@casinha.org", "Outro", model.RoleMember, model.UserStatusActive)
	room, err := svc.CreateRoom("Sala 1", "", 8)
	require.NoError(t, err)

	_, err = reserveAt(t, svc, model.ResourceKindRoom, room.ID, member.ID, 10, 12)
	require.NoError(t, err)

	t.Run("重叠时段被拒绝", func(t *testing.T) {
		_, err := reserveAt(t, svc, model.ResourceKindRoom, room.ID, other.ID, 11, 13)
		assert.ErrorIs(t, err, ErrConflict)
		_, err = reserveAt(t, svc, model.ResourceKindRoom, room.ID, other.ID, 9, 11)
		assert.ErrorIs(t, err, ErrConflict)
		// 完全覆盖既有预订
		_, err = reserveAt(t, svc, model.ResourceKindRoom, room.ID, other.ID, 9, 13)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("紧邻时段可预订", func(t *testing.T) {
		// 区间左闭右开，[10,12) 之后 [12,13) 不冲突
		_, err := reserveAt(t, svc, model.ResourceKindRoom, room.ID, other.ID, 12, 13)
		assert.NoError(t, err)
		_, err = reserveAt(t, svc, model.ResourceKindRoom, room.ID, other.ID, 9, 10)
		assert.NoError(t, err)
	})

	t.Run("不同资源互不影响", func(t *testing.T) {
		room2, err := svc.CreateRoom("Sala 2", "", 4)
		require.NoError(t, err)
		_, err = reserveAt(t, svc, model.ResourceKindRoom, room2.ID, other.ID, 10, 12)
		assert.NoError(t, err)
	})

	t.Run("结束时间必须晚于开始时间", func(t *testing.T) {
		_, err := reserveAt(t, svc, model.ResourceKindRoom, room.ID, member.ID, 15, 15)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("资源必须存在", func(t *testing.T) {
		_, err := reserveAt(t, svc, model.ResourceKindRoom, 999, member.ID, 15, 16)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReserveEquipment(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(t, db)
	member := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)

	item, err := svc.CreateEquipment("Projetor", "Epson")
	require.NoError(t, err)
	assert.True(t, item.Available)

	_, err = reserveAt(t, svc, model.ResourceKindEquipment, item.ID, member.ID, 10, 12)
	require.NoError(t, err)

	t.Run("下架设备不可预订", func(t *testing.T) {
		updated, err := svc.SetEquipmentAvailability(item.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.Available)

		_, err = reserveAt(t, svc, model.ResourceKindEquipment, item.ID, member.ID, 14, 15)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("重新上架后恢复可预订", func(t *testing.T) {
		_, err := svc.SetEquipmentAvailability(item.ID, true)
		require.NoError(t, err)
		_, err = reserveAt(t, svc, model.ResourceKindEquipment, item.ID, member.ID, 14, 15)
		assert.NoError(t, err)
	})

	t.Run("未知资源类型被拒绝", func(t *testing.T) {
		_, err := reserveAt(t, svc, "vehicle", item.ID, member.ID, 16, 17)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCancelReservation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(t, db)
	owner := seedUser(t, db, "m@casinha.org", "Membro", model.RoleMember, model.UserStatusActive)
	stranger := seedUser(t, db, "s@casinha.org", "Outro", model.RoleMember, model.UserStatusActive)
	director := seedUser(t, db, "d@casinha.org", "Diretor", model.RoleDirector, model.UserStatusActive)
	room, err := svc.CreateRoom("Sala 1", "", 8)
	require.NoError(t, err)

	res, err := reserveAt(t, svc, model.ResourceKindRoom, room.ID, owner.ID, 10, 12)
	require.NoError(t, err)

	t.Run("非本人且非董事不能取消", func(t *testing.T) {
		_, err := svc.Cancel(res.ID, stranger)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("本人可取消，取消后时段释放", func(t *testing.T) {
		cancelled, err := svc.Cancel(res.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)

		// 已取消的预订不再占用时段
		_, err = reserveAt(t, svc, model.ResourceKindRoom, room.ID, stranger.ID, 10, 12)
		assert.NoError(t, err)
	})

	t.Run("已取消的预订不能重复取消", func(t *testing.T) {
		_, err := svc.Cancel(res.ID, owner)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("董事可代为取消", func(t *testing.T) {
		res2, err := reserveAt(t, svc, model.ResourceKindRoom, room.ID, owner.ID, 14, 15)
		require.NoError(t, err)
		cancelled, err := svc.Cancel(res2.ID, director)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)
	})

	t.Run("取消不存在的预订", func(t *testing.T) {
		_, err := svc.Cancel(999, director)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
