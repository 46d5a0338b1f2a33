package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/zm-collect/service-booking/internal/application"
	bookingDomain "github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/platform/response"
)

// BookingHandler handles the customer-facing booking routes.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// CreateBookingResponse is the body of a successful POST /api/bookings.
type CreateBookingResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// UpdateStateRequest is the body of the state PATCH routes.
type UpdateStateRequest struct {
	State string `json:"state"`
}

// RegisterRoutes registers all customer routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	api := r.Group("/api")
	{
		api.GET("/municipalities", h.ListMunicipalities)
		api.GET("/municipalities/:name", h.ListByMunicipality)
		api.GET("/slots/:municipality/:date", h.SlotAvailability)

		api.POST("/bookings", h.CreateBooking)
		api.GET("/bookings/state/:state", h.ListByState)
		api.GET("/bookings/:token", h.GetBooking)
		api.DELETE("/bookings/:token", h.CancelBooking)
		api.PATCH("/bookings/:token/state", h.UpdateState)
	}
}

// ListMunicipalities handles GET /api/municipalities.
func (h *BookingHandler) ListMunicipalities(c *gin.Context) {
	response.Success(c, h.service.Municipalities())
}

// ListByMunicipality handles GET /api/municipalities/:name.
func (h *BookingHandler) ListByMunicipality(c *gin.Context) {
	result, err := h.service.ListBookings(c.Request.Context(), bookingDomain.Filter{Municipality: c.Param("name")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SlotAvailability handles GET /api/slots/:municipality/:date.
func (h *BookingHandler) SlotAvailability(c *gin.Context) {
	result, err := h.service.SlotAvailability(c.Request.Context(), c.Param("municipality"), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, CreateBookingResponse{Token: token, Message: "booking created"})
}

// GetBooking handles GET /api/bookings/:token.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.service.GetBooking(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListByState handles GET /api/bookings/state/:state.
func (h *BookingHandler) ListByState(c *gin.Context) {
	state, err := bookingDomain.ParseState(c.Param("state"))
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.ListBookings(c.Request.Context(), bookingDomain.Filter{State: state})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CancelBooking handles DELETE /api/bookings/:token.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	if _, err := h.service.CancelOrRemove(c.Request.Context(), c.Param("token"), application.CallerCustomer); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateState handles PATCH /api/bookings/:token/state. An empty body means ASSIGNED.
func (h *BookingHandler) UpdateState(c *gin.Context) {
	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}

	target := bookingDomain.StateAssigned
	if req.State != "" {
		state, err := bookingDomain.ParseState(req.State)
		if err != nil {
			response.Error(c, err)
			return
		}
		target = state
	}

	result, err := h.service.UpdateState(c.Request.Context(), c.Param("token"), bookingDomain.Normal(target))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
