package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zm-collect/service-booking/internal/application"
	bookingDomain "github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/platform/response"
)

// StaffBookingHandler handles staff requests for booking management.
type StaffBookingHandler struct {
	service *application.BookingService
}

// NewStaffBookingHandler creates a new StaffBookingHandler.
func NewStaffBookingHandler(service *application.BookingService) *StaffBookingHandler {
	return &StaffBookingHandler{service: service}
}

// RegisterRoutes registers staff booking routes.
func (h *StaffBookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	staff := r.Group("/api/staff")
	{
		staff.GET("/bookings", h.ListBookings)
		staff.GET("/bookings/summary", h.Summary)
		staff.PATCH("/bookings/:token/state", h.OverrideState)
		staff.DELETE("/bookings/:token", h.RemoveBooking)
	}
}

// ListBookings handles GET /api/staff/bookings.
func (h *StaffBookingHandler) ListBookings(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bookings)
}

// Summary handles GET /api/staff/bookings/summary.
func (h *StaffBookingHandler) Summary(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// OverrideState handles PATCH /api/staff/bookings/:token/state.
func (h *StaffBookingHandler) OverrideState(c *gin.Context) {
	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "request body must be {\"state\": \"<STATE>\"}")
		return
	}

	state, err := bookingDomain.ParseState(req.State)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.UpdateState(c.Request.Context(), c.Param("token"), bookingDomain.AdministrativeOverride(state))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RemoveBooking handles DELETE /api/staff/bookings/:token. With ?purge=true the
// record is deleted outright and its token retired.
func (h *StaffBookingHandler) RemoveBooking(c *gin.Context) {
	purge, err := strconv.ParseBool(c.DefaultQuery("purge", "false"))
	if err != nil {
		response.BadRequest(c, "purge must be true or false")
		return
	}

	token := c.Param("token")
	if purge {
		err = h.service.PurgeBooking(c.Request.Context(), token)
	} else {
		_, err = h.service.CancelOrRemove(c.Request.Context(), token, application.CallerStaff)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseFilter(c *gin.Context) (bookingDomain.Filter, error) {
	filter := bookingDomain.Filter{Municipality: c.Query("municipality")}
	if raw := c.Query("state"); raw != "" {
		state, err := bookingDomain.ParseState(raw)
		if err != nil {
			return bookingDomain.Filter{}, err
		}
		filter.State = state
	}
	return filter, nil
}
