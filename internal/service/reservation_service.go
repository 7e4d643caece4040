package service

import (
	"errors"
	"fmt"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"

	"gorm.io/gorm"
)

// ReservationRequest 是预订的输入。
type ReservationRequest struct {
	ResourceKind string
	ResourceID   uint
	UserID       uint
	StartTime    time.Time
	EndTime      time.Time
	Purpose      string
}

// ReservationService 接口定义了房间/设备预订的业务操作。
type ReservationService interface {
	CreateRoom(name, description string, capacity int) (*model.Room, error)
	ListRooms() ([]model.Room, error)
	CreateEquipment(name, description string) (*model.EquipmentItem, error)
	ListEquipment() ([]model.EquipmentItem, error)
	// SetEquipmentAvailability 下架/上架设备；下架不影响既有预订。
	SetEquipmentAvailability(id uint, available bool) (*model.EquipmentItem, error)

	// Reserve 创建预订；与既有 ACTIVE 预订时间重叠时返回 Conflict。
	Reserve(req ReservationRequest) (*model.Reservation, error)
	ListReservations(kind string, resourceID uint, from, to time.Time) ([]model.Reservation, error)
	MyReservations(userID uint) ([]model.Reservation, error)
	// Cancel 取消预订，仅本人或董事可操作；已取消的预订返回 Conflict。
	Cancel(reservationID uint, actor *model.User) (*model.Reservation, error)
}

type reservationService struct {
	reservationRepo repository.ReservationRepository
}

// NewReservationService 创建一个新的 ReservationService 实例。
func NewReservationService(reservationRepo repository.ReservationRepository) ReservationService {
	return &reservationService{reservationRepo: reservationRepo}
}

func (s *reservationService) CreateRoom(name, description string, capacity int) (*model.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: 名称不能为空", ErrValidation)
	}
	room := &model.Room{Name: name, Description: description, Capacity: capacity}
	if err := s.reservationRepo.CreateRoom(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *reservationService) ListRooms() ([]model.Room, error) {
	return s.reservationRepo.FindAllRooms()
}

func (s *reservationService) CreateEquipment(name, description string) (*model.EquipmentItem, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: 名称不能为空", ErrValidation)
	}
	item := &model.EquipmentItem{Name: name, Description: description, Available: true}
	if err := s.reservationRepo.CreateEquipment(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *reservationService) ListEquipment() ([]model.EquipmentItem, error) {
	return s.reservationRepo.FindAllEquipment()
}

func (s *reservationService) SetEquipmentAvailability(id uint, available bool) (*model.EquipmentItem, error) {
	item, err := s.reservationRepo.FindEquipmentByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 设备不存在", ErrNotFound)
		}
		return nil, err
	}
	item.Available = available
	if err := s.reservationRepo.UpdateEquipment(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Reserve 创建预订。
// 时间窗口左闭右开，资源存在性与设备可用性在写入前校验，重叠检测在仓储事务内完成。
func (s *reservationService) Reserve(req ReservationRequest) (*model.Reservation, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("%w: 结束时间必须晚于开始时间", ErrValidation)
	}

	switch req.ResourceKind {
	case model.ResourceKindRoom:
		if _, err := s.reservationRepo.FindRoomByID(req.ResourceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: 房间不存在", ErrNotFound)
			}
			return nil, err
		}
	case model.ResourceKindEquipment:
		item, err := s.reservationRepo.FindEquipmentByID(req.ResourceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: 设备不存在", ErrNotFound)
			}
			return nil, err
		}
		if !item.Available {
			return nil, fmt.Errorf("%w: 设备已下架", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: 未知资源类型 %s", ErrValidation, req.ResourceKind)
	}

	res := &model.Reservation{
		ResourceKind: req.ResourceKind,
		ResourceID:   req.ResourceID,
		UserID:       req.UserID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Purpose:      req.Purpose,
		Status:       model.ReservationStatusActive,
	}
	conflict, err := s.reservationRepo.CreateReservationIfFree(res)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, fmt.Errorf("%w: 该时段已被预订", ErrConflict)
	}
	return res, nil
}

func (s *reservationService) ListReservations(kind string, resourceID uint, from, to time.Time) ([]model.Reservation, error) {
	return s.reservationRepo.FindReservations(kind, resourceID, from, to)
}

func (s *reservationService) MyReservations(userID uint) ([]model.Reservation, error) {
	return s.reservationRepo.FindReservationsByUser(userID)
}

// Cancel 取消预订：仅预订人本人或董事可操作。
func (s *reservationService) Cancel(reservationID uint, actor *model.User) (*model.Reservation, error) {
	res, err := s.reservationRepo.FindReservationByID(reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 预订不存在", ErrNotFound)
		}
		return nil, err
	}
	if res.UserID != actor.ID && !actor.IsDirector() {
		return nil, fmt.Errorf("%w: 只能取消自己的预订", ErrForbidden)
	}
	if res.Status == model.ReservationStatusCancelled {
		return nil, fmt.Errorf("%w: 预订已取消", ErrConflict)
	}
	res.Status = model.ReservationStatusCancelled
	if err := s.reservationRepo.UpdateReservation(res); err != nil {
		return nil, err
	}
	return res, nil
}
