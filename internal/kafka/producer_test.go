package kafka_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routelynk/internal/kafka"
	"routelynk/internal/logger"
	"routelynk/internal/models"
)

func TestMockProducerPublishes(t *testing.T) {
	log := logger.NewLogger()
	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)
	defer producer.Close()

	now := time.Now()

	assert.NoError(t, producer.PublishBookingEvent(&models.BookingEvent{
		Type:      "booking.created",
		BookingID: "bkg_1",
		Booking:   &models.Booking{BookingID: "bkg_1", Status: models.BookingPending},
		Timestamp: now,
	}))

	assert.NoError(t, producer.PublishPaymentEvent(&models.PaymentEvent{
		Type:      "payment.recorded",
		PaymentID: "pay_1",
		Payment:   &models.Payment{PaymentID: "pay_1"},
		Timestamp: now,
	}))

	assert.NoError(t, producer.PublishTicketEvent(&models.TicketEvent{
		Type:      "ticket.approved",
		TicketID:  "tkt_1",
		Ticket:    &models.Ticket{TicketID: "tkt_1", Status: models.TicketApproved},
		Timestamp: now,
	}))

	assert.NoError(t, producer.PublishFraudEvent(&models.FraudEvent{
		Type:            "vendor.fraud",
		VendorEmail:     "vendor@example.com",
		TicketsRejected: 3,
		Timestamp:       now,
	}))
}

func TestMockProducerCloseIsIdempotent(t *testing.T) {
	log := logger.NewLogger()
	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)

	assert.NoError(t, producer.Close())
	assert.NoError(t, producer.Close())
}
