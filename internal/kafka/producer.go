package kafka

import (
	"context"
	"encoding/json"
	"time"

	"cinebook/internal/config"
	"cinebook/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer streams booking lifecycle events, one topic per transition.
type Producer struct {
	writer *kafka.Writer
	topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, topics: topics}
}

func (p *Producer) publish(topic, eventType string, b models.Booking) error {
	event := models.BookingEvent{
		Type:      eventType,
		BookingID: b.BookingID,
		ShowID:    b.ShowID,
		UserID:    b.UserID,
		Seats:     b.BookedSeats,
		Amount:    b.Amount,
		Timestamp: time.Now().UTC(),
	}
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(b.BookingID),
			Value: msgBytes,
		},
	)
}

// PublishBookingCreated streams the seat-hold commit to Kafka.
func (p *Producer) PublishBookingCreated(b models.Booking) error {
	return p.publish(p.topics.BookingCreated, "booking.created", b)
}

// PublishBookingPaid streams the payment confirmation to Kafka.
func (p *Producer) PublishBookingPaid(b models.Booking) error {
	return p.publish(p.topics.BookingPaid, "booking.paid", b)
}

// PublishBookingExpired streams the hold release to Kafka.
func (p *Producer) PublishBookingExpired(b models.Booking) error {
	return p.publish(p.topics.BookingExpired, "booking.expired", b)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events. Wired in place of the Producer when Kafka is
// disabled, so publish call sites do not error-log on every booking.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingCreated(models.Booking) error { return nil }
func (NoopPublisher) PublishBookingPaid(models.Booking) error    { return nil }
func (NoopPublisher) PublishBookingExpired(models.Booking) error { return nil }
