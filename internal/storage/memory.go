package storage

import (
	"sort"
	"strings"
	"sync"

	"routelynk/internal/models"
)

// InMemoryStore mirrors the MySQL store for tests and mock-mode runs. The
// compound operations hold the one mutex for their whole duration, which
// gives them the same atomicity the MySQL store gets from transactions.
type InMemoryStore struct {
	mutex    sync.RWMutex
	users    map[string]*models.User
	tickets  map[string]*models.Ticket
	bookings map[string]*models.Booking
	payments map[string]*models.Payment
	// transaction id -> payment id, the idempotency index
	transactions map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:        make(map[string]*models.User),
		tickets:      make(map[string]*models.Ticket),
		bookings:     make(map[string]*models.Booking),
		payments:     make(map[string]*models.Payment),
		transactions: make(map[string]string),
	}
}

func copyUser(u *models.User) *models.User          { c := *u; return &c }
func copyTicket(t *models.Ticket) *models.Ticket    { c := *t; return &c }
func copyBooking(b *models.Booking) *models.Booking { c := *b; return &c }
func copyPayment(p *models.Payment) *models.Payment { c := *p; return &c }

// --- Users ---

func (s *InMemoryStore) UpsertUser(user *models.User) (*models.User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if existing, ok := s.users[user.Email]; ok {
		existing.Name = user.Name
		existing.Image = user.Image
		existing.LastLogin = user.LastLogin
		return copyUser(existing), nil
	}

	s.users[user.Email] = copyUser(user)
	return copyUser(user), nil
}

func (s *InMemoryStore) GetUser(email string) (*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *InMemoryStore) ListUsers() ([]*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, copyUser(user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (s *InMemoryStore) SetUserRole(email string, role models.Role) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, ok := s.users[email]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	return nil
}

func (s *InMemoryStore) MarkVendorFraud(email string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, ok := s.users[email]
	if !ok {
		return 0, ErrNotFound
	}

	// Role change and ticket rejection happen under one lock hold; no caller
	// can observe the vendor marked fraud with tickets still live.
	user.Role = models.RoleFraud
	rejected := 0
	for _, ticket := range s.tickets {
		if ticket.VendorEmail == email && ticket.Status != models.TicketRejected {
			ticket.Status = models.TicketRejected
			rejected++
		}
	}
	return rejected, nil
}

// --- Tickets ---

func (s *InMemoryStore) CreateTicket(ticket *models.Ticket) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tickets[ticket.TicketID] = copyTicket(ticket)
	return nil
}

func (s *InMemoryStore) GetTicket(id string) (*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTicket(ticket), nil
}

func (s *InMemoryStore) UpdateTicket(id string, patch *models.TicketPatch) (*models.Ticket, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.Status == models.TicketRejected {
		return nil, ErrEditLocked
	}

	if patch.Title != nil {
		ticket.Title = *patch.Title
	}
	if patch.From != nil {
		ticket.From = *patch.From
	}
	if patch.To != nil {
		ticket.To = *patch.To
	}
	if patch.TransportType != nil {
		ticket.TransportType = *patch.TransportType
	}
	if patch.Price != nil {
		ticket.Price = *patch.Price
	}
	if patch.Quantity != nil {
		ticket.Quantity = *patch.Quantity
	}
	if patch.DepartureDate != nil {
		ticket.DepartureDate = *patch.DepartureDate
	}
	if patch.DepartureTime != nil {
		ticket.DepartureTime = *patch.DepartureTime
	}
	if patch.Description != nil {
		ticket.Description = *patch.Description
	}
	if patch.Perks != nil {
		ticket.Perks = *patch.Perks
	}
	if patch.Image != nil {
		ticket.Image = *patch.Image
	}

	return copyTicket(ticket), nil
}

func (s *InMemoryStore) DeleteTicket(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(s.tickets, id)
	return nil
}

func (s *InMemoryStore) SetTicketStatus(id string, status models.TicketStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ticket.Status = status
	return nil
}

func (s *InMemoryStore) SetTicketAdvertised(id string, advertised bool) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return false, ErrNotFound
	}

	if !advertised {
		ticket.IsAdvertised = false
		return true, nil
	}
	if ticket.IsAdvertised {
		return true, nil
	}

	count := 0
	for _, t := range s.tickets {
		if t.IsAdvertised {
			count++
		}
	}
	if count >= models.AdvertisedLimit {
		return false, nil
	}

	ticket.IsAdvertised = true
	return true, nil
}

func (s *InMemoryStore) SearchTickets(query *models.TicketQuery) (*models.TicketPage, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	matches := []*models.Ticket{}
	for _, ticket := range s.tickets {
		if ticket.Status != models.TicketApproved {
			continue
		}
		if query.From != "" && !containsFold(ticket.From, query.From) {
			continue
		}
		if query.To != "" && !containsFold(ticket.To, query.To) {
			continue
		}
		if query.TransportType != "" && ticket.TransportType != query.TransportType {
			continue
		}
		matches = append(matches, copyTicket(ticket))
	}

	switch query.Sort {
	case models.SortPriceAsc:
		sort.Slice(matches, func(i, j int) bool { return matches[i].Price < matches[j].Price })
	case models.SortPriceDesc:
		sort.Slice(matches, func(i, j int) bool { return matches[i].Price > matches[j].Price })
	default:
		sort.Slice(matches, func(i, j int) bool { return matches[i].DepartureDate < matches[j].DepartureDate })
	}

	page, pageSize := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 6
	}

	total := len(matches)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &models.TicketPage{
		Items:      matches[start:end],
		Total:      total,
		Page:       page,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *InMemoryStore) ListTicketsByVendor(email string) ([]*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var tickets []*models.Ticket
	for _, ticket := range s.tickets {
		if ticket.VendorEmail == email {
			tickets = append(tickets, copyTicket(ticket))
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	return tickets, nil
}

func (s *InMemoryStore) ListAdvertisedTickets() ([]*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var tickets []*models.Ticket
	for _, ticket := range s.tickets {
		if ticket.IsAdvertised && ticket.Status == models.TicketApproved {
			tickets = append(tickets, copyTicket(ticket))
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	return tickets, nil
}

// --- Bookings ---

func (s *InMemoryStore) CreateBooking(booking *models.Booking) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.bookings[booking.BookingID] = copyBooking(booking)
	return nil
}

func (s *InMemoryStore) GetBooking(id string) (*models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBooking(booking), nil
}

func (s *InMemoryStore) ListBookingsByUser(email string) ([]*models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var bookings []*models.Booking
	for _, booking := range s.bookings {
		if booking.UserEmail == email {
			bookings = append(bookings, copyBooking(booking))
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].BookedAt.After(bookings[j].BookedAt) })
	return bookings, nil
}

func (s *InMemoryStore) ListBookingsByVendor(email string) ([]*models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var bookings []*models.Booking
	for _, booking := range s.bookings {
		if booking.VendorEmail == email {
			bookings = append(bookings, copyBooking(booking))
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].BookedAt.After(bookings[j].BookedAt) })
	return bookings, nil
}

func (s *InMemoryStore) SetBookingStatus(id string, from []models.BookingStatus, to models.BookingStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return ErrNotFound
	}
	for _, status := range from {
		if booking.Status == status {
			booking.Status = to
			return nil
		}
	}
	return ErrStatusConflict
}

// --- Payments ---

func (s *InMemoryStore) RecordPayment(payment *models.Payment) (*models.PaymentResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.transactions[payment.TransactionID]; ok {
		return nil, &PaymentStepError{Step: "payment", Err: ErrDuplicateTransaction}
	}

	booking, ok := s.bookings[payment.BookingID]
	if !ok {
		return nil, &PaymentStepError{Step: "booking", Err: ErrNotFound}
	}
	if booking.Status != models.BookingPending && booking.Status != models.BookingAccepted {
		return nil, &PaymentStepError{Step: "booking", Err: ErrStatusConflict}
	}

	ticket, ok := s.tickets[payment.TicketID]
	if !ok {
		return nil, &PaymentStepError{Step: "stock", Err: ErrNotFound}
	}
	if ticket.Quantity < payment.Quantity {
		return nil, &PaymentStepError{Step: "stock", Err: ErrInsufficientStock}
	}

	s.payments[payment.PaymentID] = copyPayment(payment)
	s.transactions[payment.TransactionID] = payment.PaymentID
	booking.Status = models.BookingPaid
	booking.TransactionID = payment.TransactionID
	ticket.Quantity -= payment.Quantity

	return &models.PaymentResult{
		Payment: copyPayment(payment),
		Booking: copyBooking(booking),
		Ticket:  copyTicket(ticket),
	}, nil
}

func (s *InMemoryStore) ListPaymentsByUser(email string) ([]*models.Payment, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var payments []*models.Payment
	for _, payment := range s.payments {
		if payment.UserEmail == email {
			payments = append(payments, copyPayment(payment))
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].Date.After(payments[j].Date) })
	return payments, nil
}

func (s *InMemoryStore) VendorStats(email string) (*models.VendorStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := &models.VendorStats{}
	for _, payment := range s.payments {
		if payment.VendorEmail == email {
			stats.TotalRevenue += payment.Price
			stats.TotalSold += payment.Quantity
		}
	}
	for _, ticket := range s.tickets {
		if ticket.VendorEmail == email {
			stats.TotalAdded++
		}
	}
	for _, booking := range s.bookings {
		if booking.VendorEmail == email && booking.Status == models.BookingPending {
			stats.PendingRequests++
		}
	}
	return stats, nil
}

func (s *InMemoryStore) HealthCheck() error { return nil }
func (s *InMemoryStore) Close() error       { return nil }
