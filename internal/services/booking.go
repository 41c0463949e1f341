package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routelynk/internal/kafka"
	"routelynk/internal/logger"
	"routelynk/internal/models"
	"routelynk/internal/monitoring"
	"routelynk/internal/storage"
	"routelynk/internal/utils"
)

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrInsufficientStock    = errors.New("insufficient ticket stock")
	ErrTicketExpired        = errors.New("ticket departure date has passed")
	ErrBookingConflict      = errors.New("booking is not in a payable or decidable state")
	ErrDuplicateTransaction = errors.New("payment already recorded for this transaction")
)

// TransactionLock is the duplicate-submission gate in front of the payment
// sequence. The redis wrapper implements it in production.
type TransactionLock interface {
	ClaimTransaction(ctx context.Context, transactionID string) (bool, error)
	ReleaseTransaction(ctx context.Context, transactionID string) error
}

// BookingService drives a booking through its lifecycle:
// pending -> accepted/rejected by the vendor, pending/accepted -> paid by the
// payment flow. Stock is checked advisorily at booking time and decremented
// under guard at payment time; the second check is the binding one.
type BookingService struct {
	store    storage.Store
	producer *kafka.Producer
	lock     TransactionLock
	log      *logger.Logger
	monitor  *monitoring.Monitor
}

func NewBookingService(store storage.Store, producer *kafka.Producer, lock TransactionLock, log *logger.Logger, monitor *monitoring.Monitor) *BookingService {
	return &BookingService{store: store, producer: producer, lock: lock, log: log, monitor: monitor}
}

// CreateBooking validates capacity and expiry, then inserts a pending
// booking. The capacity check here is advisory: stock is only reserved by
// the guarded decrement when the payment lands.
func (s *BookingService) CreateBooking(ctx context.Context, userEmail string, req *models.CreateBookingRequest) (*models.Booking, error) {
	ticket, err := s.store.GetTicket(req.TicketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.monitor.TrackBooking("create", "not_found")
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if req.Quantity > ticket.Quantity {
		s.monitor.TrackBooking("create", "insufficient_stock")
		return nil, ErrInsufficientStock
	}

	departure, err := time.Parse("2006-01-02", ticket.DepartureDate)
	if err != nil {
		return nil, fmt.Errorf("%w: ticket has malformed departure date %q", ErrInvalidInput, ticket.DepartureDate)
	}
	// Date-only comparison in UTC, matching how the departure date parses:
	// a ticket departing today is still bookable.
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if departure.Before(today) {
		s.monitor.TrackBooking("create", "expired")
		return nil, ErrTicketExpired
	}

	booking := &models.Booking{
		BookingID:   utils.GenerateBookingID(),
		TicketID:    ticket.TicketID,
		UserEmail:   userEmail,
		VendorEmail: ticket.VendorEmail,
		Quantity:    req.Quantity,
		Status:      models.BookingPending,
		BookedAt:    time.Now(),
	}

	if err := s.store.CreateBooking(booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.monitor.TrackBooking("create", "ok")
	s.log.LogBooking("CREATE", booking.BookingID, fmt.Sprintf("User %s booked %d unit(s) of ticket %s", userEmail, req.Quantity, ticket.TicketID))
	s.publishBookingEvent("booking.created", booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.store.GetBooking(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, email string) ([]*models.Booking, error) {
	return s.store.ListBookingsByUser(email)
}

func (s *BookingService) ListVendorBookings(ctx context.Context, email string) ([]*models.Booking, error) {
	return s.store.ListBookingsByVendor(email)
}

// SetBookingStatus is the vendor accept/reject decision. Only the vendor who
// owns the referenced ticket may decide, and only a pending booking can be
// decided (compare-and-set in the store).
func (s *BookingService) SetBookingStatus(ctx context.Context, vendorEmail, bookingID string, status models.BookingStatus) (*models.Booking, error) {
	if status != models.BookingAccepted && status != models.BookingRejected {
		return nil, fmt.Errorf("%w: status must be accepted or rejected", ErrInvalidInput)
	}

	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.VendorEmail != vendorEmail {
		return nil, ErrForbidden
	}

	err = s.store.SetBookingStatus(bookingID, []models.BookingStatus{models.BookingPending}, status)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrBookingNotFound
		case errors.Is(err, storage.ErrStatusConflict):
			return nil, ErrBookingConflict
		default:
			return nil, err
		}
	}

	booking.Status = status
	s.monitor.TrackBooking("decide", string(status))
	s.log.LogBooking("DECIDE", bookingID, fmt.Sprintf("Vendor %s set booking to %s", vendorEmail, status))
	s.publishBookingEvent("booking."+string(status), booking)
	return booking, nil
}

// RecordPayment finalizes a charge: one store transaction inserts the
// append-only payment row, moves the booking to paid and decrements ticket
// stock under the quantity >= n guard. A transaction id can only be used
// once; duplicates are rejected before and inside the store.
func (s *BookingService) RecordPayment(ctx context.Context, userEmail string, req *models.RecordPaymentRequest) (*models.PaymentResult, error) {
	booking, err := s.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserEmail != userEmail {
		return nil, ErrForbidden
	}
	if booking.TicketID != req.TicketID {
		return nil, fmt.Errorf("%w: ticket does not match booking", ErrInvalidInput)
	}

	if s.lock != nil {
		claimed, err := s.lock.ClaimTransaction(ctx, req.TransactionID)
		if err != nil {
			// Redis being down must not block payments; the unique index
			// in the store still rejects duplicates.
			s.log.Warn("PAYMENT", fmt.Sprintf("Transaction lock unavailable: %v", err))
		} else if !claimed {
			s.monitor.TrackPayment("record", "duplicate")
			return nil, ErrDuplicateTransaction
		}
	}

	payment := &models.Payment{
		PaymentID:     utils.GeneratePaymentID(),
		BookingID:     booking.BookingID,
		TicketID:      booking.TicketID,
		UserEmail:     booking.UserEmail,
		VendorEmail:   booking.VendorEmail,
		Price:         req.Price,
		Quantity:      req.Quantity,
		TransactionID: req.TransactionID,
		Date:          time.Now(),
	}

	result, err := s.store.RecordPayment(payment)
	if err != nil {
		s.releaseClaim(ctx, req.TransactionID, err)

		var stepErr *storage.PaymentStepError
		if errors.As(err, &stepErr) {
			switch {
			case errors.Is(stepErr.Err, storage.ErrDuplicateTransaction):
				s.monitor.TrackPayment("record", "duplicate")
				return nil, ErrDuplicateTransaction
			case errors.Is(stepErr.Err, storage.ErrInsufficientStock):
				s.monitor.TrackPayment("record", "insufficient_stock")
				s.monitor.TrackStockRejection()
				s.log.LogPayment("REFUSED", payment.PaymentID, fmt.Sprintf("Stock guard refused %d unit(s) of ticket %s", req.Quantity, req.TicketID))
				return nil, ErrInsufficientStock
			case errors.Is(stepErr.Err, storage.ErrStatusConflict):
				s.monitor.TrackPayment("record", "conflict")
				return nil, ErrBookingConflict
			case errors.Is(stepErr.Err, storage.ErrNotFound):
				return nil, ErrBookingNotFound
			}
			s.monitor.TrackPayment("record", "error")
			return nil, fmt.Errorf("payment sequence failed at %s: %w", stepErr.Step, stepErr.Err)
		}
		s.monitor.TrackPayment("record", "error")
		return nil, err
	}

	s.monitor.TrackPayment("record", "ok")
	s.monitor.TrackPaymentAmount(req.Price)
	s.log.LogPayment("RECORDED", payment.PaymentID, fmt.Sprintf("Booking %s paid, ticket %s stock now %d",
		booking.BookingID, result.Ticket.TicketID, result.Ticket.Quantity))

	event := &models.PaymentEvent{
		Type:      "payment.recorded",
		PaymentID: payment.PaymentID,
		Payment:   payment,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishPaymentEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish payment event for %s: %v", payment.PaymentID, err))
	}

	return result, nil
}

// releaseClaim frees the transaction lock after a non-duplicate failure so
// the client can retry with the same gateway transaction id.
func (s *BookingService) releaseClaim(ctx context.Context, transactionID string, cause error) {
	if s.lock == nil {
		return
	}
	var stepErr *storage.PaymentStepError
	if errors.As(cause, &stepErr) && errors.Is(stepErr.Err, storage.ErrDuplicateTransaction) {
		return
	}
	if err := s.lock.ReleaseTransaction(ctx, transactionID); err != nil {
		s.log.Warn("PAYMENT", fmt.Sprintf("Failed to release transaction lock %s: %v", transactionID, err))
	}
}

func (s *BookingService) ListUserPayments(ctx context.Context, email string) ([]*models.Payment, error) {
	return s.store.ListPaymentsByUser(email)
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking) {
	event := &models.BookingEvent{
		Type:      eventType,
		BookingID: booking.BookingID,
		Booking:   booking,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishBookingEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for booking %s: %v", eventType, booking.BookingID, err))
	}
}
