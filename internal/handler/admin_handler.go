package handler

import (
	"time"

	"github.com/belmonthotel/service-reservation/internal/application"
	"github.com/belmonthotel/service-reservation/internal/auth"
	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/belmonthotel/service-reservation/internal/middleware"
	"github.com/belmonthotel/service-reservation/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler exposes the staff-only operations: room administration,
// lifecycle advances, ledger reads, stats, and promo management.
type AdminHandler struct {
	reservationSvc *application.ReservationService
	roomSvc        *application.RoomService
	promoSvc       *application.PromoService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reservationSvc *application.ReservationService, roomSvc *application.RoomService, promoSvc *application.PromoService) *AdminHandler {
	return &AdminHandler{
		reservationSvc: reservationSvc,
		roomSvc:        roomSvc,
		promoSvc:       promoSvc,
	}
}

// RegisterRoutes registers all admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleStaff))
	{
		admin.POST("/rooms", h.CreateRoom)
		admin.POST("/rooms/:id/deactivate", h.DeactivateRoom)
		admin.GET("/rooms/:id/ledger", h.RoomLedger)

		admin.GET("/reservations/stats", h.ReservationStats)
		admin.GET("/reservations/arrivals", h.TodayArrivals)
		admin.POST("/reservations/process-check-ins", h.ProcessDueCheckIns)
		admin.POST("/reservations/:id/checkout", h.Checkout)
		admin.POST("/reservations/:id/no-show", h.MarkNoShow)
		admin.GET("/reservations/:id/ledger", h.ReservationLedger)

		admin.POST("/promos", h.CreatePromo)
		admin.POST("/promos/:id/deactivate", h.DeactivatePromo)
	}
}

// CreateRoom handles POST /api/v1/admin/rooms
func (h *AdminHandler) CreateRoom(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.roomSvc.CreateRoom(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// DeactivateRoom handles POST /api/v1/admin/rooms/:id/deactivate
func (h *AdminHandler) DeactivateRoom(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room ID")
		return
	}

	dto, err := h.roomSvc.DeactivateRoom(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// RoomLedger handles GET /api/v1/admin/rooms/:id/ledger
func (h *AdminHandler) RoomLedger(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room ID")
		return
	}

	dtos, err := h.roomSvc.RoomLedger(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dtos)
}

// ReservationLedger handles GET /api/v1/admin/reservations/:id/ledger
func (h *AdminHandler) ReservationLedger(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	dtos, err := h.roomSvc.ReservationLedger(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dtos)
}

// ReservationStats handles GET /api/v1/admin/reservations/stats
func (h *AdminHandler) ReservationStats(c *gin.Context) {
	var filter reservation.StatsFilter

	if v := c.Query("room_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid room_id")
			return
		}
		filter.RoomID = id
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(c, "invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.FromDate = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(c, "invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.ToDate = t
	}

	stats, err := h.reservationSvc.GetReservationStats(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// TodayArrivals handles GET /api/v1/admin/reservations/arrivals
func (h *AdminHandler) TodayArrivals(c *gin.Context) {
	dtos, err := h.reservationSvc.TodayArrivals(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dtos)
}

// ProcessDueCheckIns handles POST /api/v1/admin/reservations/process-check-ins
func (h *AdminHandler) ProcessDueCheckIns(c *gin.Context) {
	count, err := h.reservationSvc.ProcessDueCheckIns(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"processed": count})
}

// Checkout handles POST /api/v1/admin/reservations/:id/checkout
func (h *AdminHandler) Checkout(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	dto, err := h.reservationSvc.Checkout(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// MarkNoShow handles POST /api/v1/admin/reservations/:id/no-show
func (h *AdminHandler) MarkNoShow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	dto, err := h.reservationSvc.MarkNoShow(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// CreatePromo handles POST /api/v1/admin/promos
func (h *AdminHandler) CreatePromo(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.promoSvc.CreatePromo(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// DeactivatePromo handles POST /api/v1/admin/promos/:id/deactivate
func (h *AdminHandler) DeactivatePromo(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo ID")
		return
	}

	if err := h.promoSvc.DeactivatePromo(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deactivated": true})
}
