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
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketLocked is returned when a vendor edits a rejected ticket.
	ErrTicketLocked  = errors.New("rejected tickets cannot be edited")
	ErrInvalidStatus = errors.New("invalid ticket status")
)

// CatalogService owns the ticket listing lifecycle: vendor CRUD, admin
// moderation, advertisement placement and the public search surface.
type CatalogService struct {
	store    storage.Store
	producer *kafka.Producer
	log      *logger.Logger
	monitor  *monitoring.Monitor
}

func NewCatalogService(store storage.Store, producer *kafka.Producer, log *logger.Logger, monitor *monitoring.Monitor) *CatalogService {
	return &CatalogService{store: store, producer: producer, log: log, monitor: monitor}
}

// CreateTicket inserts a vendor draft. Status, advertisement flag and
// creation time are server-owned: whatever the client sent is discarded.
func (s *CatalogService) CreateTicket(ctx context.Context, vendorEmail string, draft *models.TicketDraft) (*models.Ticket, error) {
	if _, err := time.Parse("2006-01-02", draft.DepartureDate); err != nil {
		return nil, fmt.Errorf("%w: departureDate must be YYYY-MM-DD", ErrInvalidInput)
	}

	ticket := &models.Ticket{
		TicketID:      utils.GenerateTicketID(),
		VendorEmail:   vendorEmail,
		Title:         draft.Title,
		From:          draft.From,
		To:            draft.To,
		TransportType: draft.TransportType,
		Price:         draft.Price,
		Quantity:      draft.Quantity,
		DepartureDate: draft.DepartureDate,
		DepartureTime: draft.DepartureTime,
		Description:   draft.Description,
		Perks:         draft.Perks,
		Image:         draft.Image,
		Status:        models.TicketPending,
		IsAdvertised:  false,
		CreatedAt:     time.Now(),
	}

	if err := s.store.CreateTicket(ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.log.Info("CATALOG", fmt.Sprintf("Ticket %s created by %s (%s -> %s)", ticket.TicketID, vendorEmail, ticket.From, ticket.To))
	return ticket, nil
}

func (s *CatalogService) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := s.store.GetTicket(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket applies a vendor edit. The rejected-lock is enforced by the
// store in the same statement as the write, so a concurrent rejection cannot
// race the check.
func (s *CatalogService) UpdateTicket(ctx context.Context, actorEmail string, isAdmin bool, id string, patch *models.TicketPatch) (*models.Ticket, error) {
	if patch.DepartureDate != nil {
		if _, err := time.Parse("2006-01-02", *patch.DepartureDate); err != nil {
			return nil, fmt.Errorf("%w: departureDate must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	if !isAdmin {
		ticket, err := s.GetTicket(ctx, id)
		if err != nil {
			return nil, err
		}
		if ticket.VendorEmail != actorEmail {
			return nil, ErrForbidden
		}
	}

	updated, err := s.store.UpdateTicket(id, patch)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrTicketNotFound
		case errors.Is(err, storage.ErrEditLocked):
			s.log.LogSecurity("EDIT_LOCKED", fmt.Sprintf("Edit of rejected ticket %s refused for %s", id, actorEmail))
			return nil, ErrTicketLocked
		default:
			return nil, err
		}
	}

	return updated, nil
}

func (s *CatalogService) DeleteTicket(ctx context.Context, actorEmail string, isAdmin bool, id string) error {
	if !isAdmin {
		ticket, err := s.GetTicket(ctx, id)
		if err != nil {
			return err
		}
		if ticket.VendorEmail != actorEmail {
			return ErrForbidden
		}
	}

	if err := s.store.DeleteTicket(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrTicketNotFound
		}
		return err
	}

	s.log.Info("CATALOG", fmt.Sprintf("Ticket %s deleted by %s", id, actorEmail))
	return nil
}

// SetStatus is the admin approve/reject transition.
func (s *CatalogService) SetStatus(ctx context.Context, id string, status models.TicketStatus) (*models.Ticket, error) {
	if status != models.TicketApproved && status != models.TicketRejected {
		return nil, ErrInvalidStatus
	}

	if err := s.store.SetTicketStatus(id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishTicketEvent("ticket."+string(status), ticket)
	return ticket, nil
}

// SetAdvertised toggles promotional placement. Turning it on is capped at
// AdvertisedLimit concurrent tickets; hitting the cap is a normal outcome,
// not an error, and leaves the flag untouched.
func (s *CatalogService) SetAdvertised(ctx context.Context, id string, advertised bool) (applied bool, err error) {
	applied, err = s.store.SetTicketAdvertised(id, advertised)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, ErrTicketNotFound
		}
		return false, err
	}

	if !applied {
		s.monitor.TrackAdvertiseLimit()
		s.log.Info("CATALOG", fmt.Sprintf("Advertise cap reached, ticket %s unchanged", id))
		return false, nil
	}

	if advertised {
		if ticket, err := s.GetTicket(ctx, id); err == nil {
			s.publishTicketEvent("ticket.advertised", ticket)
		}
	}
	return true, nil
}

// Search returns the public, approved-only view of the catalog.
func (s *CatalogService) Search(ctx context.Context, query *models.TicketQuery) (*models.TicketPage, error) {
	s.monitor.TrackSearch()
	return s.store.SearchTickets(query)
}

func (s *CatalogService) ListVendorTickets(ctx context.Context, vendorEmail string) ([]*models.Ticket, error) {
	return s.store.ListTicketsByVendor(vendorEmail)
}

func (s *CatalogService) ListAdvertised(ctx context.Context) ([]*models.Ticket, error) {
	return s.store.ListAdvertisedTickets()
}

// FraudCascade marks the vendor fraudulent and rejects all their tickets in
// one store transaction. Returns how many tickets were rejected.
func (s *CatalogService) FraudCascade(ctx context.Context, vendorEmail string) (int, error) {
	rejected, err := s.store.MarkVendorFraud(vendorEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("fraud cascade failed: %w", err)
	}

	s.log.LogSecurity("FRAUD_CASCADE", fmt.Sprintf("Vendor %s marked fraud, %d tickets rejected", vendorEmail, rejected))

	event := &models.FraudEvent{
		Type:            "vendor.fraud",
		VendorEmail:     vendorEmail,
		TicketsRejected: rejected,
		Timestamp:       time.Now(),
	}
	if err := s.producer.PublishFraudEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish fraud event for %s: %v", vendorEmail, err))
	}

	return rejected, nil
}

func (s *CatalogService) publishTicketEvent(eventType string, ticket *models.Ticket) {
	event := &models.TicketEvent{
		Type:      eventType,
		TicketID:  ticket.TicketID,
		Ticket:    ticket,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishTicketEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for ticket %s: %v", eventType, ticket.TicketID, err))
	}
}
