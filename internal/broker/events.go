package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"course-payment-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPaymentCreated publishes PaymentCreated event
func (ep *EventPublisher) PublishPaymentCreated(ctx context.Context, event *models.PaymentCreatedEvent) error {
	key := fmt.Sprintf("payment-%d", event.PaymentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentInvoiced publishes PaymentInvoiced event
func (ep *EventPublisher) PublishPaymentInvoiced(ctx context.Context, event *models.PaymentInvoicedEvent) error {
	key := fmt.Sprintf("payment-%d", event.PaymentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentConfirmed publishes PaymentConfirmed event
func (ep *EventPublisher) PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	key := fmt.Sprintf("payment-%d", event.PaymentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentRejected publishes PaymentRejected event
func (ep *EventPublisher) PublishPaymentRejected(ctx context.Context, event *models.PaymentRejectedEvent) error {
	key := fmt.Sprintf("payment-%d", event.PaymentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishCertificateIssued publishes CertificateIssued event
func (ep *EventPublisher) PublishCertificateIssued(ctx context.Context, event *models.CertificateIssuedEvent) error {
	key := fmt.Sprintf("certificate-%s", event.CertificateNumber)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onCourseCompleted func(context.Context, *models.CourseCompletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnCourseCompleted registers a handler for CourseCompleted events
func (eh *EventHandler) OnCourseCompleted(handler func(context.Context, *models.CourseCompletedEvent) error) {
	eh.onCourseCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeCourseCompleted:
		if eh.onCourseCompleted != nil {
			var event models.CourseCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CourseCompleted event: %w", err)
			}
			return eh.onCourseCompleted(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
