package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"routelynk/internal/logger"
	"routelynk/internal/models"
)

// Producer publishes marketplace domain events. In mock mode (no broker
// available, local development) events are logged instead of sent.
type Producer struct {
	producer sarama.SyncProducer
	mockMode bool
	log      *logger.Logger
}

func NewProducer(brokers []string, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &Producer{producer: nil, mockMode: true, log: log}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return &Producer{producer: producer, mockMode: false, log: log}, nil
}

func (p *Producer) PublishBookingEvent(event *models.BookingEvent) error {
	return p.publish(topicForEvent(event.Type), event.BookingID, event)
}

func (p *Producer) PublishPaymentEvent(event *models.PaymentEvent) error {
	return p.publish(topicForEvent(event.Type), event.PaymentID, event)
}

func (p *Producer) PublishTicketEvent(event *models.TicketEvent) error {
	return p.publish(topicForEvent(event.Type), event.TicketID, event)
}

func (p *Producer) PublishFraudEvent(event *models.FraudEvent) error {
	return p.publish(topicForEvent(event.Type), event.VendorEmail, event)
}

func (p *Producer) publish(topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("Mock publishing event for key %s", key))
		p.log.LogKafka("MOCK_DATA", topic, string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to send message to topic %s: %v", topic, err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("Message sent to partition %d at offset %d for key %s", partition, offset, key))
	return nil
}

func topicForEvent(eventType string) string {
	switch eventType {
	case "booking.created", "booking.accepted", "booking.rejected":
		return "booking-events"
	case "payment.recorded":
		return "payment-events"
	case "ticket.approved", "ticket.rejected", "ticket.advertised":
		return "ticket-events"
	case "vendor.fraud":
		return "moderation-events"
	default:
		return "marketplace-events"
	}
}

func (p *Producer) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}
	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
