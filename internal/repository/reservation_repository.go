package repository

import (
	"time"

	"casinha-go/internal/model"

	"gorm.io/gorm"
)

// ReservationRepository 接口定义了房间/设备及其预订的数据操作方法。
type ReservationRepository interface {
	CreateRoom(room *model.Room) error
	FindAllRooms() ([]model.Room, error)
	FindRoomByID(id uint) (*model.Room, error)

	CreateEquipment(item *model.EquipmentItem) error
	FindAllEquipment() ([]model.EquipmentItem, error)
	FindEquipmentByID(id uint) (*model.EquipmentItem, error)
	UpdateEquipment(item *model.EquipmentItem) error

	// CreateReservationIfFree 在单个事务内检查重叠并插入预订。
	// 已有 ACTIVE 预订与 [start,end) 重叠时不插入，conflict 返回 true。
	CreateReservationIfFree(res *model.Reservation) (conflict bool, err error)
	FindReservationByID(id uint) (*model.Reservation, error)
	FindReservations(kind string, resourceID uint, from, to time.Time) ([]model.Reservation, error)
	FindReservationsByUser(userID uint) ([]model.Reservation, error)
	UpdateReservation(res *model.Reservation) error
}

type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建一个新的 ReservationRepository 实例。
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) CreateRoom(room *model.Room) error {
	return r.db.Create(room).Error
}

func (r *reservationRepository) FindAllRooms() ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.Find(&rooms).Error
	return rooms, err
}

func (r *reservationRepository) FindRoomByID(id uint) (*model.Room, error) {
	var room model.Room
	if err := r.db.First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *reservationRepository) CreateEquipment(item *model.EquipmentItem) error {
	return r.db.Create(item).Error
}

func (r *reservationRepository) FindAllEquipment() ([]model.EquipmentItem, error) {
	var items []model.EquipmentItem
	err := r.db.Find(&items).Error
	return items, err
}

func (r *reservationRepository) FindEquipmentByID(id uint) (*model.EquipmentItem, error) {
	var item model.EquipmentItem
	if err := r.db.First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *reservationRepository) UpdateEquipment(item *model.EquipmentItem) error {
	return r.db.Save(item).Error
}

// CreateReservationIfFree 在事务内做重叠检测 + 插入。
// 重叠判定：start < existing.end AND end > existing.start，只看 ACTIVE 预订。
func (r *reservationRepository) CreateReservationIfFree(res *model.Reservation) (bool, error) {
	conflict := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Reservation{}).
			Where("resource_kind = ? AND resource_id = ? AND status = ?",
				res.ResourceKind, res.ResourceID, model.ReservationStatusActive).
			Where("start_time < ? AND end_time > ?", res.EndTime, res.StartTime).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			conflict = true
			return nil
		}
		return tx.Create(res).Error
	})
	return conflict, err
}

func (r *reservationRepository) FindReservationByID(id uint) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.db.First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// FindReservations 按资源和时间窗口检索预订。
func (r *reservationRepository) FindReservations(kind string, resourceID uint, from, to time.Time) ([]model.Reservation, error) {
	var list []model.Reservation
	q := r.db.Where("status = ?", model.ReservationStatusActive)
	if kind != "" {
		q = q.Where("resource_kind = ?", kind)
	}
	if resourceID != 0 {
		q = q.Where("resource_id = ?", resourceID)
	}
	if !from.IsZero() {
		q = q.Where("end_time > ?", from)
	}
	if !to.IsZero() {
		q = q.Where("start_time < ?", to)
	}
	err := q.Order("start_time ASC").Find(&list).Error
	return list, err
}

func (r *reservationRepository) FindReservationsByUser(userID uint) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.db.Where("user_id = ?", userID).Order("start_time DESC").Find(&list).Error
	return list, err
}

func (r *reservationRepository) UpdateReservation(res *model.Reservation) error {
	return r.db.Save(res).Error
}
