package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"routelynk/internal/middleware"
	"routelynk/internal/models"
	"routelynk/internal/services"
	"routelynk/internal/utils"
)

type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	email := c.GetString(middleware.ContextEmailKey)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), email, &req)
	if err != nil {
		switch err {
		case services.ErrTicketNotFound:
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
		case services.ErrInsufficientStock:
			c.JSON(http.StatusConflict, utils.ErrorResponse("Not enough tickets left", ""))
		case services.ErrTicketExpired:
			c.JSON(http.StatusConflict, utils.ErrorResponse("Ticket departure date has passed", ""))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create booking", err.Error()))
		}
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Booking created", booking))
}

// ListMyBookings returns the caller's bookings across all statuses.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	email := c.GetString(middleware.ContextEmailKey)

	bookings, err := h.bookingService.ListUserBookings(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list bookings", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Bookings retrieved", bookings))
}

// ListVendorBookings returns the bookings made against the vendor's tickets.
func (h *BookingHandler) ListVendorBookings(c *gin.Context) {
	email := c.GetString(middleware.ContextEmailKey)

	bookings, err := h.bookingService.ListVendorBookings(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list bookings", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Bookings retrieved", bookings))
}

// SetStatus is the vendor accept/reject decision on a pending booking.
func (h *BookingHandler) SetStatus(c *gin.Context) {
	email := c.GetString(middleware.ContextEmailKey)

	var req models.SetBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	booking, err := h.bookingService.SetBookingStatus(c.Request.Context(), email, c.Param("id"), req.Status)
	if err != nil {
		switch {
		case err == services.ErrBookingNotFound:
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Booking not found", ""))
		case err == services.ErrForbidden:
			c.JSON(http.StatusForbidden, utils.ErrorResponse("forbidden access", ""))
		case err == services.ErrBookingConflict:
			c.JSON(http.StatusConflict, utils.ErrorResponse("Booking already decided", ""))
		case errors.Is(err, services.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update booking", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Booking updated", booking))
}
