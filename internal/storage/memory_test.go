package storage_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routelynk/internal/models"
	"routelynk/internal/storage"
)

func newTicket(id, vendor string, qty int, status models.TicketStatus) *models.Ticket {
	return &models.Ticket{
		TicketID:      id,
		VendorEmail:   vendor,
		Title:         "Dhaka to Sylhet",
		From:          "Dhaka",
		To:            "Sylhet",
		TransportType: "bus",
		Price:         12.50,
		Quantity:      qty,
		DepartureDate: "2030-01-15",
		DepartureTime: "08:30",
		Status:        status,
		CreatedAt:     time.Now(),
	}
}

func newBooking(id, ticketID, user, vendor string, qty int, status models.BookingStatus) *models.Booking {
	return &models.Booking{
		BookingID:   id,
		TicketID:    ticketID,
		UserEmail:   user,
		VendorEmail: vendor,
		Quantity:    qty,
		Status:      status,
		BookedAt:    time.Now(),
	}
}

func newPayment(id, bookingID, ticketID, txn string, qty int) *models.Payment {
	return &models.Payment{
		PaymentID:     id,
		BookingID:     bookingID,
		TicketID:      ticketID,
		UserEmail:     "buyer@example.com",
		VendorEmail:   "vendor@example.com",
		Price:         25.00,
		Quantity:      qty,
		TransactionID: txn,
		Date:          time.Now(),
	}
}

func TestRecordPaymentHappyPath(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 10, models.TicketApproved)))
	require.NoError(t, store.CreateBooking(newBooking("bkg_1", "tkt_1", "buyer@example.com", "vendor@example.com", 3, models.BookingPending)))

	result, err := store.RecordPayment(newPayment("pay_1", "bkg_1", "tkt_1", "txn_1", 3))
	require.NoError(t, err)

	assert.Equal(t, models.BookingPaid, result.Booking.Status)
	assert.Equal(t, "txn_1", result.Booking.TransactionID)
	assert.Equal(t, 7, result.Ticket.Quantity)

	payments, err := store.ListPaymentsByUser("buyer@example.com")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "pay_1", payments[0].PaymentID)
}

func TestRecordPaymentFromAcceptedBooking(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 5, models.TicketApproved)))
	require.NoError(t, store.CreateBooking(newBooking("bkg_1", "tkt_1", "buyer@example.com", "vendor@example.com", 2, models.BookingAccepted)))

	result, err := store.RecordPayment(newPayment("pay_1", "bkg_1", "tkt_1", "txn_1", 2))
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaid, result.Booking.Status)
}

func TestRecordPaymentDuplicateTransaction(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 10, models.TicketApproved)))
	require.NoError(t, store.CreateBooking(newBooking("bkg_1", "tkt_1", "buyer@example.com", "vendor@example.com", 1, models.BookingPending)))
	require.NoError(t, store.CreateBooking(newBooking("bkg_2", "tkt_1", "buyer@example.com", "vendor@example.com", 1, models.BookingPending)))

	_, err := store.RecordPayment(newPayment("pay_1", "bkg_1", "tkt_1", "txn_same", 1))
	require.NoError(t, err)

	_, err = store.RecordPayment(newPayment("pay_2", "bkg_2", "tkt_1", "txn_same", 1))
	require.Error(t, err)

	var stepErr *storage.PaymentStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "payment", stepErr.Step)
	assert.ErrorIs(t, err, storage.ErrDuplicateTransaction)

	// The refused payment must not have touched stock or the booking.
	ticket, err := store.GetTicket("tkt_1")
	require.NoError(t, err)
	assert.Equal(t, 9, ticket.Quantity)

	booking, err := store.GetBooking("bkg_2")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
}

func TestRecordPaymentRefusesDecidedBooking(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 10, models.TicketApproved)))
	require.NoError(t, store.CreateBooking(newBooking("bkg_1", "tkt_1", "buyer@example.com", "vendor@example.com", 1, models.BookingRejected)))

	_, err := store.RecordPayment(newPayment("pay_1", "bkg_1", "tkt_1", "txn_1", 1))
	require.Error(t, err)

	var stepErr *storage.PaymentStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "booking", stepErr.Step)
	assert.ErrorIs(t, err, storage.ErrStatusConflict)
}

func TestRecordPaymentInsufficientStock(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 1, models.TicketApproved)))
	require.NoError(t, store.CreateBooking(newBooking("bkg_1", "tkt_1", "buyer@example.com", "vendor@example.com", 2, models.BookingPending)))

	_, err := store.RecordPayment(newPayment("pay_1", "bkg_1", "tkt_1", "txn_1", 2))
	require.Error(t, err)

	var stepErr *storage.PaymentStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "stock", stepErr.Step)
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)

	// Whole sequence rolls back: no payment row, booking untouched.
	booking, err := store.GetBooking("bkg_1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)

	payments, err := store.ListPaymentsByUser("buyer@example.com")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

// Ten buyers race for five seats, two at a time. Exactly two payments can
// land and stock can never go negative.
func TestRecordPaymentConcurrentStockGuard(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 5, models.TicketApproved)))

	const buyers = 10
	for i := 0; i < buyers; i++ {
		id := fmt.Sprintf("bkg_%d", i)
		require.NoError(t, store.CreateBooking(newBooking(id, "tkt_1", "buyer@example.com", "vendor@example.com", 2, models.BookingPending)))
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := newPayment(fmt.Sprintf("pay_%d", i), fmt.Sprintf("bkg_%d", i), "tkt_1", fmt.Sprintf("txn_%d", i), 2)
			_, errs[i] = store.RecordPayment(p)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, storage.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 2, succeeded)

	ticket, err := store.GetTicket("tkt_1")
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Quantity)
	assert.GreaterOrEqual(t, ticket.Quantity, 0)
}

func TestSetTicketAdvertisedCap(t *testing.T) {
	store := storage.NewInMemoryStore()
	for i := 0; i < 10; i++ {
		require.NoError(t, store.CreateTicket(newTicket(fmt.Sprintf("tkt_%d", i), "vendor@example.com", 5, models.TicketApproved)))
	}

	for i := 0; i < models.AdvertisedLimit; i++ {
		applied, err := store.SetTicketAdvertised(fmt.Sprintf("tkt_%d", i), true)
		require.NoError(t, err)
		assert.True(t, applied)
	}

	// Seventh request hits the cap: no error, nothing applied.
	applied, err := store.SetTicketAdvertised("tkt_6", true)
	require.NoError(t, err)
	assert.False(t, applied)

	// Advertising an already-advertised ticket is a no-op success.
	applied, err = store.SetTicketAdvertised("tkt_0", true)
	require.NoError(t, err)
	assert.True(t, applied)

	// Freeing a slot opens the cap again.
	applied, err = store.SetTicketAdvertised("tkt_0", false)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.SetTicketAdvertised("tkt_6", true)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestSetTicketAdvertisedConcurrentCap(t *testing.T) {
	store := storage.NewInMemoryStore()
	const tickets = 20
	for i := 0; i < tickets; i++ {
		require.NoError(t, store.CreateTicket(newTicket(fmt.Sprintf("tkt_%d", i), "vendor@example.com", 5, models.TicketApproved)))
	}

	var wg sync.WaitGroup
	for i := 0; i < tickets; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.SetTicketAdvertised(fmt.Sprintf("tkt_%d", i), true)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	advertised, err := store.ListAdvertisedTickets()
	require.NoError(t, err)
	assert.Len(t, advertised, models.AdvertisedLimit)
}

func TestUpdateTicketRejectedLock(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 5, models.TicketRejected)))

	title := "New title"
	_, err := store.UpdateTicket("tkt_1", &models.TicketPatch{Title: &title})
	assert.ErrorIs(t, err, storage.ErrEditLocked)

	ticket, err := store.GetTicket("tkt_1")
	require.NoError(t, err)
	assert.Equal(t, "Dhaka to Sylhet", ticket.Title)
}

func TestUpdateTicketPartialPatch(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 5, models.TicketPending)))

	price := 99.99
	updated, err := store.UpdateTicket("tkt_1", &models.TicketPatch{Price: &price})
	require.NoError(t, err)

	assert.Equal(t, 99.99, updated.Price)
	assert.Equal(t, "Dhaka to Sylhet", updated.Title)
	assert.Equal(t, 5, updated.Quantity)
}

func TestMarkVendorFraudCascade(t *testing.T) {
	store := storage.NewInMemoryStore()
	_, err := store.UpsertUser(&models.User{Email: "vendor@example.com", Name: "V", Role: models.RoleVendor, Status: models.AccountActive})
	require.NoError(t, err)

	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 5, models.TicketApproved)))
	require.NoError(t, store.CreateTicket(newTicket("tkt_2", "vendor@example.com", 5, models.TicketPending)))
	require.NoError(t, store.CreateTicket(newTicket("tkt_3", "vendor@example.com", 5, models.TicketRejected)))
	require.NoError(t, store.CreateTicket(newTicket("tkt_other", "other@example.com", 5, models.TicketApproved)))

	rejected, err := store.MarkVendorFraud("vendor@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, rejected)

	user, err := store.GetUser("vendor@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFraud, user.Role)

	for _, id := range []string{"tkt_1", "tkt_2", "tkt_3"} {
		ticket, err := store.GetTicket(id)
		require.NoError(t, err)
		assert.Equal(t, models.TicketRejected, ticket.Status)
	}

	other, err := store.GetTicket("tkt_other")
	require.NoError(t, err)
	assert.Equal(t, models.TicketApproved, other.Status)
}

func TestMarkVendorFraudUnknownUser(t *testing.T) {
	store := storage.NewInMemoryStore()
	_, err := store.MarkVendorFraud("ghost@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetBookingStatusCompareAndSet(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateBooking(newBooking("bkg_1", "tkt_1", "buyer@example.com", "vendor@example.com", 1, models.BookingPending)))

	err := store.SetBookingStatus("bkg_1", []models.BookingStatus{models.BookingPending}, models.BookingAccepted)
	require.NoError(t, err)

	// Second decision finds the booking already accepted.
	err = store.SetBookingStatus("bkg_1", []models.BookingStatus{models.BookingPending}, models.BookingRejected)
	assert.ErrorIs(t, err, storage.ErrStatusConflict)

	booking, err := store.GetBooking("bkg_1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingAccepted, booking.Status)
}

func TestSearchTickets(t *testing.T) {
	store := storage.NewInMemoryStore()

	mk := func(id, from, to, transport string, price float64, status models.TicketStatus) {
		ticket := newTicket(id, "vendor@example.com", 5, status)
		ticket.From = from
		ticket.To = to
		ticket.TransportType = transport
		ticket.Price = price
		require.NoError(t, store.CreateTicket(ticket))
	}

	mk("tkt_1", "Dhaka", "Sylhet", "bus", 10, models.TicketApproved)
	mk("tkt_2", "Dhaka", "Sylhet", "train", 30, models.TicketApproved)
	mk("tkt_3", "Dhaka", "Chittagong", "bus", 20, models.TicketApproved)
	mk("tkt_4", "Dhaka", "Sylhet", "bus", 5, models.TicketPending)
	mk("tkt_5", "Khulna", "Sylhet", "bus", 15, models.TicketApproved)

	t.Run("pending tickets are invisible", func(t *testing.T) {
		page, err := store.SearchTickets(&models.TicketQuery{})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
	})

	t.Run("route filter is case-insensitive", func(t *testing.T) {
		page, err := store.SearchTickets(&models.TicketQuery{From: "dhaka", To: "sylhet"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("transport filter", func(t *testing.T) {
		page, err := store.SearchTickets(&models.TicketQuery{TransportType: "bus"})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("price sort ascending", func(t *testing.T) {
		page, err := store.SearchTickets(&models.TicketQuery{Sort: models.SortPriceAsc})
		require.NoError(t, err)
		require.Len(t, page.Items, 4)
		assert.Equal(t, 10.0, page.Items[0].Price)
		assert.Equal(t, 30.0, page.Items[3].Price)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := store.SearchTickets(&models.TicketQuery{Sort: models.SortPriceAsc, Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Items, 1)
		assert.Equal(t, 30.0, page.Items[0].Price)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, err := store.SearchTickets(&models.TicketQuery{Page: 50, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 4, page.Total)
	})
}

func TestVendorStats(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.CreateTicket(newTicket("tkt_1", "vendor@example.com", 10, models.TicketApproved)))
	require.NoError(t, store.CreateTicket(newTicket("tkt_2", "vendor@example.com", 10, models.TicketPending)))
	require.NoError(t, store.CreateTicket(newTicket("tkt_x", "other@example.com", 10, models.TicketApproved)))

	require.NoError(t, store.CreateBooking(newBooking("bkg_1", "tkt_1", "a@example.com", "vendor@example.com", 2, models.BookingPending)))
	require.NoError(t, store.CreateBooking(newBooking("bkg_2", "tkt_1", "b@example.com", "vendor@example.com", 3, models.BookingPending)))

	_, err := store.RecordPayment(newPayment("pay_1", "bkg_1", "tkt_1", "txn_1", 2))
	require.NoError(t, err)

	stats, err := store.VendorStats("vendor@example.com")
	require.NoError(t, err)
	assert.Equal(t, 25.00, stats.TotalRevenue)
	assert.Equal(t, 2, stats.TotalSold)
	assert.Equal(t, 2, stats.TotalAdded)
	assert.Equal(t, 1, stats.PendingRequests)
}

func TestUpsertUserPreservesRole(t *testing.T) {
	store := storage.NewInMemoryStore()

	first, err := store.UpsertUser(&models.User{Email: "u@example.com", Name: "U", Role: models.RoleUser, Status: models.AccountActive, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, first.Role)

	require.NoError(t, store.SetUserRole("u@example.com", models.RoleVendor))

	// A later login upsert must not demote the promoted account.
	again, err := store.UpsertUser(&models.User{Email: "u@example.com", Name: "Updated", Role: models.RoleUser, Status: models.AccountActive, LastLogin: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, again.Role)
	assert.Equal(t, "Updated", again.Name)
}

func TestGetTicketNotFound(t *testing.T) {
	store := storage.NewInMemoryStore()
	_, err := store.GetTicket("missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
