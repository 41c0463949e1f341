package storage

import (
	"errors"
	"fmt"

	"routelynk/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrEditLocked is returned when a vendor edits a rejected ticket.
	ErrEditLocked = errors.New("ticket is rejected and locked for edits")
	// ErrStatusConflict is returned when a compare-and-set transition finds
	// the entity in a state other than the expected one.
	ErrStatusConflict = errors.New("status transition conflict")
	// ErrInsufficientStock is returned when a guarded decrement would drive
	// ticket quantity below zero.
	ErrInsufficientStock = errors.New("insufficient ticket stock")
	// ErrDuplicateTransaction is returned when a payment is submitted twice
	// with the same gateway transaction id.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
)

// PaymentStepError reports which step of the payment sequence refused. The
// whole sequence runs in one transaction, so a refusal rolls everything back;
// the step name tells the caller (and the operator) what to look at.
type PaymentStepError struct {
	Step string // "booking", "payment", "stock"
	Err  error
}

func (e *PaymentStepError) Error() string {
	return fmt.Sprintf("payment sequence refused at step %q: %v", e.Step, e.Err)
}

func (e *PaymentStepError) Unwrap() error { return e.Err }

// Store is the persistence boundary. Operations that the marketplace needs to
// be atomic (fraud cascade, advertisement cap, booking transitions, the
// payment sequence) are compound operations here, so each implementation can
// use its native transaction facility instead of read-then-write sequences.
type Store interface {
	// Users
	UpsertUser(user *models.User) (*models.User, error)
	GetUser(email string) (*models.User, error)
	ListUsers() ([]*models.User, error)
	SetUserRole(email string, role models.Role) error
	// MarkVendorFraud sets the user's role to fraud and rejects all of the
	// vendor's tickets in a single transaction. Returns how many tickets
	// were rejected.
	MarkVendorFraud(email string) (int, error)

	// Tickets
	CreateTicket(ticket *models.Ticket) error
	GetTicket(id string) (*models.Ticket, error)
	// UpdateTicket applies the patch only while the ticket is not rejected.
	// The condition and the write are a single statement.
	UpdateTicket(id string, patch *models.TicketPatch) (*models.Ticket, error)
	DeleteTicket(id string) error
	SetTicketStatus(id string, status models.TicketStatus) error
	// SetTicketAdvertised toggles the advertised flag. Turning it on checks
	// the global cap and the set atomically; applied=false reports the cap
	// was reached without treating it as an error.
	SetTicketAdvertised(id string, advertised bool) (applied bool, err error)
	SearchTickets(query *models.TicketQuery) (*models.TicketPage, error)
	ListTicketsByVendor(email string) ([]*models.Ticket, error)
	ListAdvertisedTickets() ([]*models.Ticket, error)

	// Bookings
	CreateBooking(booking *models.Booking) error
	GetBooking(id string) (*models.Booking, error)
	ListBookingsByUser(email string) ([]*models.Booking, error)
	ListBookingsByVendor(email string) ([]*models.Booking, error)
	// SetBookingStatus moves a booking to the target status only if its
	// current status is one of from (compare-and-set).
	SetBookingStatus(id string, from []models.BookingStatus, to models.BookingStatus) error

	// Payments. RecordPayment runs the full sequence in one transaction:
	// insert the append-only payment row (unique transaction id), move the
	// booking to paid with the transaction id attached, and decrement the
	// ticket stock guarded by quantity >= n.
	RecordPayment(payment *models.Payment) (*models.PaymentResult, error)
	ListPaymentsByUser(email string) ([]*models.Payment, error)
	VendorStats(email string) (*models.VendorStats, error)

	HealthCheck() error
	Close() error
}
