package handler

import (
	"strconv"
	"time"

	"casinha-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ReservationHandler 负责处理房间/设备预订相关的 API 请求。
type ReservationHandler struct {
	reservationService service.ReservationService
}

// NewReservationHandler 创建一个新的 ReservationHandler 实例。
func NewReservationHandler(reservationService service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// CreateRoomRequest 定义了创建房间 API 的请求体结构。
type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Capacity    int    `json:"capacity"`
}

// CreateRoom 创建一个可预订的房间（董事操作）。
func (h *ReservationHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：name 不能为空")
		return
	}
	room, err := h.reservationService.CreateRoom(req.Name, req.Description, req.Capacity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, room)
}

// ListRooms 列出所有房间。
func (h *ReservationHandler) ListRooms(c *gin.Context) {
	rooms, err := h.reservationService.ListRooms()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rooms)
}

// CreateEquipmentRequest 定义了创建设备 API 的请求体结构。
type CreateEquipmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateEquipment 创建一个可预订的设备（董事操作）。
func (h *ReservationHandler) CreateEquipment(c *gin.Context) {
	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：name 不能为空")
		return
	}
	item, err := h.reservationService.CreateEquipment(req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, item)
}

// ListEquipment 列出所有设备。
func (h *ReservationHandler) ListEquipment(c *gin.Context) {
	items, err := h.reservationService.ListEquipment()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

// SetEquipmentAvailabilityRequest 定义了设备上下架 API 的请求体结构。
type SetEquipmentAvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// SetEquipmentAvailability 上架/下架设备（董事操作）。
func (h *ReservationHandler) SetEquipmentAvailability(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的设备 id")
		return
	}
	var req SetEquipmentAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：available 不能为空")
		return
	}
	item, err := h.reservationService.SetEquipmentAvailability(id, *req.Available)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, item)
}

// ReserveRequest 定义了创建预订 API 的请求体结构。
type ReserveRequest struct {
	ResourceKind string    `json:"resourceKind" binding:"required"`
	ResourceID   uint      `json:"resourceId" binding:"required"`
	StartTime    time.Time `json:"startTime" binding:"required"`
	EndTime      time.Time `json:"endTime" binding:"required"`
	Purpose      string    `json:"purpose"`
}

// Reserve 创建一条预订，时间窗口冲突时返回 409。
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：resourceKind、resourceId、startTime 和 endTime 不能为空")
		return
	}

	user := mustUser(c)
	res, err := h.reservationService.Reserve(service.ReservationRequest{
		ResourceKind: req.ResourceKind,
		ResourceID:   req.ResourceID,
		UserID:       user.ID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Purpose:      req.Purpose,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, res)
}

// ListReservations 按资源与时间窗口检索预订。
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	var resourceID uint
	if v := c.Query("resourceId"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondBadRequest(c, "无效的 resourceId")
			return
		}
		resourceID = uint(parsed)
	}
	from, to := parseTimeQuery(c, "from"), parseTimeQuery(c, "to")

	list, err := h.reservationService.ListReservations(c.Query("kind"), resourceID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// MyReservations 列出当前用户的预订。
func (h *ReservationHandler) MyReservations(c *gin.Context) {
	user := mustUser(c)
	list, err := h.reservationService.MyReservations(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

// CancelReservation 取消一条预订。
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "无效的预订 id")
		return
	}
	user := mustUser(c)
	res, err := h.reservationService.Cancel(id, user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, res)
}

// parseTimeQuery 解析 RFC3339 格式的时间查询参数，缺失或非法时返回零值。
func parseTimeQuery(c *gin.Context, name string) time.Time {
	v := c.Query(name)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
