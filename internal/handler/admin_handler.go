package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/platform/auth"
	"github.com/parkwise/service-reservation/internal/platform/domain"
	"github.com/parkwise/service-reservation/internal/platform/middleware"
	"github.com/parkwise/service-reservation/internal/platform/response"
)

// AdminHandler handles admin HTTP requests: the refund queue, reservation
// oversight and manual sweeps.
type AdminHandler struct {
	reservations ReservationService
	refunds      RefundService
	sweeps       SweepRunner
	clock        clock.Clock
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reservations ReservationService, refunds RefundService, sweeps SweepRunner, clk clock.Clock) *AdminHandler {
	return &AdminHandler{
		reservations: reservations,
		refunds:      refunds,
		sweeps:       sweeps,
		clock:        clk,
	}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/reservations", h.ListReservations)
		admin.GET("/stats/reservations", h.ReservationStats)
		admin.GET("/refund-requests", h.ListRefundRequests)
		admin.GET("/refund-requests/:id", h.GetRefundRequest)
		admin.POST("/refund-requests/:id/approve", h.ApproveRefund)
		admin.POST("/refund-requests/:id/reject", h.RejectRefund)
		admin.POST("/refund-requests/:id/retry", h.RetryRefund)
		admin.POST("/sweeps/auto-checkout", h.RunAutoCheckoutSweep)
		admin.POST("/sweeps/no-show", h.RunNoShowSweep)
	}
}

type approveRefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type rejectRefundRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListReservations handles GET /api/v1/admin/reservations.
// Supports status, seeker_id, host_id, resource_id and created_before (RFC 3339) filters.
func (h *AdminHandler) ListReservations(c *gin.Context) {
	filter, ok := reservationFilter(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	result, err := h.reservations.ListReservations(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ReservationStats handles GET /api/v1/admin/stats/reservations.
func (h *AdminHandler) ReservationStats(c *gin.Context) {
	stats, err := h.reservations.GetReservationStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// ListRefundRequests handles GET /api/v1/admin/refund-requests.
func (h *AdminHandler) ListRefundRequests(c *gin.Context) {
	var status *refund.Status
	if raw := c.Query("status"); raw != "" {
		s, err := refund.ParseStatus(raw)
		if err != nil {
			response.Error(c, domain.NewValidationError(err.Error()))
			return
		}
		status = &s
	}
	page, limit := parsePagination(c)

	result, err := h.refunds.ListRefundRequests(c.Request.Context(), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetRefundRequest handles GET /api/v1/admin/refund-requests/:id.
func (h *AdminHandler) GetRefundRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.refunds.GetRefundRequest(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ApproveRefund handles POST /api/v1/admin/refund-requests/:id/approve.
func (h *AdminHandler) ApproveRefund(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var body approveRefundRequest
	if err := bindOptionalJSON(c, &body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.refunds.ApproveRefund(c.Request.Context(), id, actor, body.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RejectRefund handles POST /api/v1/admin/refund-requests/:id/reject.
func (h *AdminHandler) RejectRefund(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var body rejectRefundRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, domain.NewRefundError(domain.CodeRejectionReasonMissing, "a rejection reason is required", err))
		return
	}

	result, err := h.refunds.RejectRefund(c.Request.Context(), id, actor, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RetryRefund handles POST /api/v1/admin/refund-requests/:id/retry.
func (h *AdminHandler) RetryRefund(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	result, err := h.refunds.RetryRefund(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RunAutoCheckoutSweep handles POST /api/v1/admin/sweeps/auto-checkout.
func (h *AdminHandler) RunAutoCheckoutSweep(c *gin.Context) {
	result, err := h.sweeps.RunAutoCheckoutSweep(c.Request.Context(), h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RunNoShowSweep handles POST /api/v1/admin/sweeps/no-show.
func (h *AdminHandler) RunNoShowSweep(c *gin.Context) {
	result, err := h.sweeps.RunNoShowSweep(c.Request.Context(), h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func reservationFilter(c *gin.Context) (reservation.ListFilter, bool) {
	var filter reservation.ListFilter

	status, ok := statusQuery(c)
	if !ok {
		return filter, false
	}
	filter.Status = status

	for param, dst := range map[string]**uuid.UUID{
		"seeker_id":   &filter.SeekerID,
		"host_id":     &filter.HostID,
		"resource_id": &filter.ResourceID,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid "+param)
			return filter, false
		}
		*dst = &id
	}

	if raw := c.Query("created_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "created_before must be RFC 3339")
			return filter, false
		}
		filter.CreatedBefore = &t
	}
	return filter, true
}
