package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingAccepted BookingStatus = "accepted"
	BookingRejected BookingStatus = "rejected"
	BookingPaid     BookingStatus = "paid"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID     string        `json:"bookingId" bun:"booking_id,pk"`
	TicketID      string        `json:"ticketId" bun:"ticket_id"`
	UserEmail     string        `json:"userEmail" bun:"user_email"`
	VendorEmail   string        `json:"vendorEmail" bun:"vendor_email"`
	Quantity      int           `json:"quantity" bun:"quantity"`
	Status        BookingStatus `json:"status" bun:"status"`
	TransactionID string        `json:"transactionId,omitempty" bun:"transaction_id"`
	BookedAt      time.Time     `json:"bookedAt" bun:"booked_at"`
}

type CreateBookingRequest struct {
	TicketID string `json:"ticketId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type SetBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}

type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	Booking   *Booking  `json:"booking"`
	Timestamp time.Time `json:"timestamp"`
}
