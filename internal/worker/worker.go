package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/broker"
	"course-payment-service/internal/models"
	"course-payment-service/internal/redisclient"
	"course-payment-service/internal/service"
	"course-payment-service/internal/store"
)

// CertificateWorker consumes course-completion events from the progress
// service and drives eligibility-gated certificate issuance.
type CertificateWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	certificates *service.CertificateService
	store        *store.Store
	redis        *redisclient.Client
}

// NewCertificateWorker creates a new certificate worker
func NewCertificateWorker(
	consumer *broker.Consumer,
	certificates *service.CertificateService,
	store *store.Store,
	redis *redisclient.Client,
) *CertificateWorker {
	w := &CertificateWorker{
		consumer:     consumer,
		certificates: certificates,
		store:        store,
		redis:        redis,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnCourseCompleted(w.handleCourseCompleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CertificateWorker) Start(ctx context.Context) error {
	log.Println("Starting certificate worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CertificateWorker) Stop() error {
	log.Println("Stopping certificate worker...")
	return w.consumer.Close()
}

func (w *CertificateWorker) handleCourseCompleted(ctx context.Context, event *models.CourseCompletedEvent) error {
	// Fast-path dedup; the processed_events table below stays authoritative.
	claimed, err := w.redis.ClaimEvent(ctx, event.EventID, time.Hour)
	if err != nil {
		log.Printf("Event claim failed, continuing with DB check: %v", err)
	} else if !claimed {
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		w.releaseClaim(ctx, event.EventID)
		return err
	}
	if processed {
		return nil
	}

	_, err = w.certificates.IssueIfEligible(ctx, event.UserID, event.CourseID)
	if err != nil {
		// An ineligible user is a settled outcome for this event; a later
		// completion arrives as a new event. Anything else is retried.
		if errors.Is(err, apperr.ErrCourseNotCompleted) || errors.Is(err, apperr.ErrTestsNotPassed) {
			log.Printf("Certificate not issued for user %d course %d: %v",
				event.UserID, event.CourseID, err)
		} else {
			w.releaseClaim(ctx, event.EventID)
			return err
		}
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		log.Printf("Failed to mark event processed: %v", err)
	}

	return nil
}

func (w *CertificateWorker) releaseClaim(ctx context.Context, eventID string) {
	if err := w.redis.ReleaseEvent(ctx, eventID); err != nil {
		log.Printf("Failed to release event claim: %v", err)
	}
}
