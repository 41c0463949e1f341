package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment is an append-only record of a completed charge. It is never
// mutated or deleted after insertion.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	PaymentID     string    `json:"paymentId" bun:"payment_id,pk"`
	BookingID     string    `json:"bookingId" bun:"booking_id"`
	TicketID      string    `json:"ticketId" bun:"ticket_id"`
	UserEmail     string    `json:"userEmail" bun:"user_email"`
	VendorEmail   string    `json:"vendorEmail" bun:"vendor_email"`
	Price         float64   `json:"price" bun:"price"`
	Quantity      int       `json:"quantity" bun:"quantity"`
	TransactionID string    `json:"transactionId" bun:"transaction_id"`
	Date          time.Time `json:"date" bun:"date"`
}

type RecordPaymentRequest struct {
	BookingID     string  `json:"bookingId" binding:"required"`
	TicketID      string  `json:"ticketId" binding:"required"`
	Price         float64 `json:"price" binding:"required,gt=0"`
	Quantity      int     `json:"quantity" binding:"required,gt=0"`
	TransactionID string  `json:"transactionId" binding:"required"`
}

// PaymentResult is what a successful payment commit returns: the inserted
// record plus the booking and ticket as they stand after the transaction.
type PaymentResult struct {
	Payment *Payment `json:"payment"`
	Booking *Booking `json:"booking"`
	Ticket  *Ticket  `json:"ticket"`
}

type PaymentIntentRequest struct {
	Price float64 `json:"price" binding:"required,gt=0"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type PaymentEvent struct {
	Type      string    `json:"type"`
	PaymentID string    `json:"payment_id"`
	Payment   *Payment  `json:"payment"`
	Timestamp time.Time `json:"timestamp"`
}

type TicketEvent struct {
	Type      string    `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Ticket    *Ticket   `json:"ticket"`
	Timestamp time.Time `json:"timestamp"`
}

type FraudEvent struct {
	Type            string    `json:"type"`
	VendorEmail     string    `json:"vendor_email"`
	TicketsRejected int       `json:"tickets_rejected"`
	Timestamp       time.Time `json:"timestamp"`
}

// VendorStats aggregates a vendor's marketplace activity.
type VendorStats struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalSold       int     `json:"totalSold"`
	TotalAdded      int     `json:"totalAdded"`
	PendingRequests int     `json:"pendingRequests"`
}
