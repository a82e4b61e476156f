package service

import (
	"context"
	"fmt"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/models"
	"course-payment-service/internal/store"
	"course-payment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionStore is the persistence surface for status transitions. The
// conditional updates return whether a row was hit; zero rows is always a
// lost race or a terminal row, reported uniformly as AlreadyProcessed.
type TransitionStore interface {
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	SetInvoiced(ctx context.Context, paymentID int64, invoiceURL string) (bool, error)
	SetRejected(ctx context.Context, paymentID int64) (bool, error)
	InTx(ctx context.Context, fn func(tx store.PaymentTx) error) error
}

// PaymentStateMachine applies admin-driven transitions. Legality is checked
// with the pure transition table first, then enforced by the storage-level
// compare-and-swap, which is the real guard under concurrency.
type PaymentStateMachine struct {
	store          TransitionStore
	cache          AccessCache
	eventPublisher EventSink
	logger         *zap.Logger
}

// NewPaymentStateMachine creates a new payment state machine
func NewPaymentStateMachine(store TransitionStore, cache AccessCache, eventPublisher EventSink) *PaymentStateMachine {
	return &PaymentStateMachine{
		store:          store,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// Invoice attaches the bank-transfer invoice URL to a pending payment.
func (sm *PaymentStateMachine) Invoice(ctx context.Context, paymentID int64, invoiceURL string) error {
	ctx, span := util.StartSpan(ctx, "PaymentStateMachine.Invoice")
	defer span.End()

	payment, err := sm.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return apperr.ErrAlreadyProcessed
	}
	if _, err := models.Transition(payment.Status, models.PaymentEventInvoice); err != nil {
		return apperr.ErrAlreadyProcessed
	}

	ok, err := sm.store.SetInvoiced(ctx, paymentID, invoiceURL)
	if err != nil {
		return fmt.Errorf("failed to invoice payment: %w", err)
	}
	if !ok {
		util.TransitionConflictsTotal.WithLabelValues("invoice").Inc()
		return apperr.ErrAlreadyProcessed
	}

	util.PaymentsInvoicedTotal.Inc()
	sm.logger.Info("Payment invoiced",
		zap.Int64("payment_id", paymentID),
		zap.String("invoice_url", invoiceURL))

	event := &models.PaymentInvoicedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentInvoiced,
			Timestamp: time.Now(),
		},
		PaymentID:  paymentID,
		UserID:     payment.UserID,
		CourseID:   payment.CourseID,
		InvoiceURL: invoiceURL,
	}
	if err := sm.eventPublisher.PublishPaymentInvoiced(ctx, event); err != nil {
		sm.logger.Error("Failed to publish PaymentInvoiced event", zap.Error(err))
	}

	return nil
}

// Confirm moves a live payment to confirmed and grants course access, both
// inside one transaction. A payment is never left confirmed without its
// grant, and never grants access without being confirmed.
func (sm *PaymentStateMachine) Confirm(ctx context.Context, paymentID int64) error {
	ctx, span := util.StartSpan(ctx, "PaymentStateMachine.Confirm")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ConfirmLatency.Observe(time.Since(start).Seconds())
	}()

	var confirmed *models.Payment
	err := sm.store.InTx(ctx, func(tx store.PaymentTx) error {
		payment, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		now := time.Now()
		if now.After(payment.PaymentExpiresAt) {
			util.PaymentsExpiredSeenTotal.Inc()
			return apperr.ErrExpired
		}
		if _, err := models.Transition(payment.Status, models.PaymentEventConfirm); err != nil {
			return apperr.ErrAlreadyProcessed
		}

		if err := tx.MarkConfirmed(ctx, payment.ID, now); err != nil {
			return fmt.Errorf("failed to confirm payment: %w", err)
		}
		if err := tx.GrantAccess(ctx, payment.UserID, payment.CourseID, now); err != nil {
			return fmt.Errorf("failed to grant course access: %w", err)
		}

		payment.Status = models.PaymentStatusConfirmed
		payment.ConfirmedAt = &now
		confirmed = payment
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			util.TransitionConflictsTotal.WithLabelValues("confirm").Inc()
		}
		return err
	}

	util.PaymentsConfirmedTotal.Inc()
	util.AccessGrantsTotal.Inc()
	sm.logger.Info("Payment confirmed, access granted",
		zap.Int64("payment_id", confirmed.ID),
		zap.Int64("user_id", confirmed.UserID),
		zap.Int64("course_id", confirmed.CourseID))

	if sm.cache != nil {
		if err := sm.cache.InvalidateAccess(ctx, confirmed.UserID, confirmed.CourseID); err != nil {
			sm.logger.Warn("Failed to invalidate access cache", zap.Error(err))
		}
	}

	event := &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now(),
		},
		PaymentID:   confirmed.ID,
		UserID:      confirmed.UserID,
		CourseID:    confirmed.CourseID,
		Amount:      confirmed.Amount,
		ConfirmedAt: *confirmed.ConfirmedAt,
	}
	if err := sm.eventPublisher.PublishPaymentConfirmed(ctx, event); err != nil {
		sm.logger.Error("Failed to publish PaymentConfirmed event", zap.Error(err))
	}

	return nil
}

// Reject moves a live payment to the terminal rejected status. The buyer
// may later create a fresh request through retry.
func (sm *PaymentStateMachine) Reject(ctx context.Context, paymentID int64) error {
	ctx, span := util.StartSpan(ctx, "PaymentStateMachine.Reject")
	defer span.End()

	payment, err := sm.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return apperr.ErrAlreadyProcessed
	}
	if _, err := models.Transition(payment.Status, models.PaymentEventReject); err != nil {
		return apperr.ErrAlreadyProcessed
	}

	ok, err := sm.store.SetRejected(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to reject payment: %w", err)
	}
	if !ok {
		util.TransitionConflictsTotal.WithLabelValues("reject").Inc()
		return apperr.ErrAlreadyProcessed
	}

	util.PaymentsRejectedTotal.Inc()
	sm.logger.Info("Payment rejected", zap.Int64("payment_id", paymentID))

	event := &models.PaymentRejectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentRejected,
			Timestamp: time.Now(),
		},
		PaymentID: paymentID,
		UserID:    payment.UserID,
		CourseID:  payment.CourseID,
	}
	if err := sm.eventPublisher.PublishPaymentRejected(ctx, event); err != nil {
		sm.logger.Error("Failed to publish PaymentRejected event", zap.Error(err))
	}

	return nil
}
