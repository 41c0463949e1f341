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

type PaymentHandler struct {
	bookingService *services.BookingService
	stripeService  *services.StripeService
}

func NewPaymentHandler(bookingService *services.BookingService, stripeService *services.StripeService) *PaymentHandler {
	return &PaymentHandler{
		bookingService: bookingService,
		stripeService:  stripeService,
	}
}

// CreatePaymentIntent asks the gateway for a client secret the frontend
// confirms against. Nothing is persisted here; the booking only changes when
// RecordPayment lands.
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	var req models.PaymentIntentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	if req.Price <= 0 {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Price must be positive", ""))
		return
	}

	resp, err := h.stripeService.CreatePaymentIntent(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create payment intent", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment intent created", resp))
}

// RecordPayment finalizes a confirmed charge: payment row, booking to paid,
// stock decrement, all in one store transaction.
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	email := c.GetString(middleware.ContextEmailKey)

	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	result, err := h.bookingService.RecordPayment(c.Request.Context(), email, &req)
	if err != nil {
		switch {
		case err == services.ErrBookingNotFound:
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Booking not found", ""))
		case err == services.ErrForbidden:
			c.JSON(http.StatusForbidden, utils.ErrorResponse("forbidden access", ""))
		case err == services.ErrDuplicateTransaction:
			c.JSON(http.StatusConflict, utils.ErrorResponse("Payment already recorded for this transaction", ""))
		case err == services.ErrInsufficientStock:
			c.JSON(http.StatusConflict, utils.ErrorResponse("Not enough tickets left", ""))
		case err == services.ErrBookingConflict:
			c.JSON(http.StatusConflict, utils.ErrorResponse("Booking is not payable", ""))
		case errors.Is(err, services.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to record payment", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment recorded", result))
}

// ListMyPayments returns the caller's payment history, newest first.
func (h *PaymentHandler) ListMyPayments(c *gin.Context) {
	email := c.GetString(middleware.ContextEmailKey)

	payments, err := h.bookingService.ListUserPayments(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list payments", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payments retrieved", payments))
}
