package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parkwise/service-reservation/internal/application"
	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/platform/auth"
	"github.com/parkwise/service-reservation/internal/platform/domain"
	"github.com/parkwise/service-reservation/internal/platform/middleware"
	"github.com/parkwise/service-reservation/internal/platform/response"
)

// ReservationHandler handles HTTP requests for reservation operations.
type ReservationHandler struct {
	reservations ReservationService
	refunds      RefundService
	clock        clock.Clock
	createLimit  gin.HandlerFunc
}

// NewReservationHandler creates a new ReservationHandler. createLimit may be nil
// to leave reservation creation unthrottled.
func NewReservationHandler(reservations ReservationService, refunds RefundService, clk clock.Clock, createLimit gin.HandlerFunc) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		refunds:      refunds,
		clock:        clk,
		createLimit:  createLimit,
	}
}

// RegisterRoutes registers all reservation routes on the given router group.
func (h *ReservationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	r.GET("/api/v1/policies", h.ListPolicies)

	create := []gin.HandlerFunc{middleware.RequireRole(auth.RoleSeeker)}
	if h.createLimit != nil {
		create = append(create, h.createLimit)
	}
	create = append(create, h.CreateReservation)

	reservations := r.Group("/api/v1/reservations")
	reservations.Use(authMW)
	{
		reservations.POST("", create...)
		reservations.GET("", h.ListReservations)
		reservations.GET("/:id", h.GetReservation)
		reservations.POST("/:id/confirm", middleware.RequireRole(auth.RoleHost), h.ConfirmReservation)
		reservations.POST("/:id/reject", middleware.RequireRole(auth.RoleHost), h.RejectReservation)
		reservations.POST("/:id/cancel", h.CancelReservation)
		reservations.POST("/:id/check-in", middleware.RequireRole(auth.RoleSeeker), h.CheckIn)
		reservations.POST("/:id/check-out", middleware.RequireRole(auth.RoleSeeker), h.CheckOut)
		reservations.GET("/:id/refund-quote", h.RefundQuote)
		reservations.POST("/:id/refund-requests", middleware.RequireRole(auth.RoleSeeker), h.RequestRefund)
	}
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type refundRequestBody struct {
	Reason string `json:"reason" binding:"omitempty,oneof=seeker_cancelled host_cancelled host_rejected no_show other"`
	Notes  string `json:"notes" binding:"max=1000"`
}

// CreateReservation handles POST /api/v1/reservations.
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.reservations.CreateReservation(c.Request.Context(), actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListReservations handles GET /api/v1/reservations. Seekers see their own, hosts their incoming.
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	status, ok := statusQuery(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	result, err := h.reservations.ListForActor(c.Request.Context(), actor, status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetReservation handles GET /api/v1/reservations/:id.
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	result, err := h.reservations.GetReservation(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmReservation handles POST /api/v1/reservations/:id/confirm.
func (h *ReservationHandler) ConfirmReservation(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	result, err := h.reservations.Confirm(c.Request.Context(), id, actor, h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RejectReservation handles POST /api/v1/reservations/:id/reject.
func (h *ReservationHandler) RejectReservation(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	body, ok := bindReason(c)
	if !ok {
		return
	}

	result, err := h.reservations.Reject(c.Request.Context(), id, actor, body.Reason, h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelReservation handles POST /api/v1/reservations/:id/cancel.
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	body, ok := bindReason(c)
	if !ok {
		return
	}

	result, err := h.reservations.Cancel(c.Request.Context(), id, actor, body.Reason, h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckIn handles POST /api/v1/reservations/:id/check-in.
func (h *ReservationHandler) CheckIn(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	result, err := h.reservations.CheckIn(c.Request.Context(), id, actor, h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckOut handles POST /api/v1/reservations/:id/check-out.
func (h *ReservationHandler) CheckOut(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	result, err := h.reservations.CheckOut(c.Request.Context(), id, actor, h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RefundQuote handles GET /api/v1/reservations/:id/refund-quote.
func (h *ReservationHandler) RefundQuote(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	result, err := h.refunds.QuoteRefund(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RequestRefund handles POST /api/v1/reservations/:id/refund-requests.
func (h *ReservationHandler) RequestRefund(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var body refundRequestBody
	if err := bindOptionalJSON(c, &body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.refunds.RequestRefund(c.Request.Context(), id, actor, refund.Reason(body.Reason), body.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListPolicies handles GET /api/v1/policies.
func (h *ReservationHandler) ListPolicies(c *gin.Context) {
	response.Success(c, h.refunds.Policies())
}

// --- helpers ---

func actorFrom(c *gin.Context) (application.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return application.Actor{}, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return application.Actor{}, false
	}
	return application.Actor{ID: userID, Role: role}, true
}

func actorAndID(c *gin.Context) (application.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		return application.Actor{}, uuid.Nil, false
	}
	id, ok := pathID(c)
	return actor, id, ok
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func bindReason(c *gin.Context) (reasonRequest, bool) {
	var body reasonRequest
	if err := bindOptionalJSON(c, &body); err != nil {
		response.BadRequest(c, err.Error())
		return body, false
	}
	return body, true
}

// bindOptionalJSON binds the body when one was sent.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}

func statusQuery(c *gin.Context) (*reservation.Status, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	status, err := reservation.ParseStatus(raw)
	if err != nil {
		response.Error(c, domain.NewValidationError(err.Error()))
		return nil, false
	}
	return &status, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
