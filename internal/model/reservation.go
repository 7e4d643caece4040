package model

import "time"

// 可预订资源的种类。
const (
	ResourceKindRoom      = "ROOM"
	ResourceKindEquipment = "EQUIPMENT"
)

// 预订状态。
const (
	ReservationStatusActive    = "ACTIVE"
	ReservationStatusCancelled = "CANCELLED"
)

// Room 是可预订的房间。
type Room struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Capacity    int       `gorm:"not null;default:0" json:"capacity"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Room) TableName() string {
	return "rooms"
}

// EquipmentItem 是可预订的设备（投影仪、摄像机等）。
type EquipmentItem struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	// Available 为 false 的设备不可再被预订（维修、报废）。
	Available bool      `gorm:"not null;default:true" json:"available"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (EquipmentItem) TableName() string {
	return "equipment_items"
}

// Reservation 是对单个资源的一段时间占用。
// 同一资源的 ACTIVE 预订之间不允许时间重叠。
type Reservation struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceKind string    `gorm:"type:varchar(20);not null;index:idx_resource" json:"resourceKind"`
	ResourceID   uint      `gorm:"not null;index:idx_resource" json:"resourceId"`
	UserID       uint      `gorm:"index;not null" json:"userId"`
	StartTime    time.Time `gorm:"not null" json:"startTime"`
	EndTime      time.Time `gorm:"not null" json:"endTime"`
	Purpose      string    `gorm:"type:text" json:"purpose"`
	Status       string    `gorm:"type:varchar(20);not null;default:ACTIVE" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Reservation) TableName() string {
	return "reservations"
}
