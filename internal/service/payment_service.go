package service

import (
	"context"
	"fmt"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/models"
	"course-payment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventSink publishes lifecycle events for downstream collaborators (email,
// certificate rendering). Publish failures are logged, never surfaced: the
// database is the source of truth, events are notifications.
type EventSink interface {
	PublishPaymentCreated(ctx context.Context, event *models.PaymentCreatedEvent) error
	PublishPaymentInvoiced(ctx context.Context, event *models.PaymentInvoicedEvent) error
	PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error
	PublishPaymentRejected(ctx context.Context, event *models.PaymentRejectedEvent) error
	PublishCertificateIssued(ctx context.Context, event *models.CertificateIssuedEvent) error
}

// PaymentStore is the persistence surface the request manager needs.
type PaymentStore interface {
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentsByUserID(ctx context.Context, userID int64) ([]models.Payment, error)
	GetLatestPayment(ctx context.Context, userID, courseID int64) (*models.Payment, error)
	HasConfirmedPayment(ctx context.Context, userID, courseID int64) (bool, error)
	HasLivePayment(ctx context.Context, userID, courseID int64, now time.Time) (bool, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	DeletePaymentIfPending(ctx context.Context, paymentID int64) (bool, error)
}

// PaymentService creates and validates payment requests. It never mutates
// payment status; transitions belong to the state machine.
type PaymentService struct {
	store          PaymentStore
	catalog        CourseCatalog
	eventPublisher EventSink
	logger         *zap.Logger
	expiry         time.Duration
}

// NewPaymentService creates a new payment service
func NewPaymentService(store PaymentStore, catalog CourseCatalog, eventPublisher EventSink, expiry time.Duration) *PaymentService {
	return &PaymentService{
		store:          store,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		expiry:         expiry,
	}
}

// CreatePaymentRequest represents a purchase intent
type CreatePaymentRequest struct {
	UserID        int64  `json:"user_id" binding:"required"`
	CourseID      int64  `json:"course_id" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	PaymentMethod string `json:"payment_method"`
}

// CreatePayment records a new purchase attempt. The amount is snapshotted
// from the current course price so later price edits never change what the
// buyer owes.
func (s *PaymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePayment")
	defer span.End()

	return s.create(ctx, req, false)
}

// RetryPayment creates a fresh payment after a rejection or an expired
// window. The stale row is left untouched: history is append-only.
func (s *PaymentService) RetryPayment(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.RetryPayment")
	defer span.End()

	now := time.Now()

	owned, err := s.store.HasConfirmedPayment(ctx, req.UserID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check confirmed payments: %w", err)
	}
	if owned {
		util.PaymentsFailedTotal.WithLabelValues("already_owned").Inc()
		return nil, apperr.ErrAlreadyOwned
	}

	live, err := s.store.HasLivePayment(ctx, req.UserID, req.CourseID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check live payments: %w", err)
	}
	if live {
		util.PaymentsFailedTotal.WithLabelValues("already_active").Inc()
		return nil, apperr.ErrAlreadyActive
	}

	latest, err := s.store.GetLatestPayment(ctx, req.UserID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest payment: %w", err)
	}
	if latest == nil || (latest.Status != models.PaymentStatusRejected && !latest.ExpiredAt(now)) {
		util.PaymentsFailedTotal.WithLabelValues("not_eligible_for_retry").Inc()
		return nil, apperr.ErrNotEligibleForRetry
	}
	if latest.ExpiredAt(now) {
		util.PaymentsExpiredSeenTotal.Inc()
	}

	payment, err := s.create(ctx, req, true)
	if err != nil {
		return nil, err
	}

	util.PaymentsRetriedTotal.Inc()
	s.logger.Info("Payment retried",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("stale_payment_id", latest.ID))
	return payment, nil
}

func (s *PaymentService) create(ctx context.Context, req *CreatePaymentRequest, retry bool) (*models.Payment, error) {
	course, err := s.catalog.GetCourse(ctx, req.CourseID)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			util.PaymentsFailedTotal.WithLabelValues("course_not_found").Inc()
		}
		return nil, err
	}
	if !course.IsActive {
		util.PaymentsFailedTotal.WithLabelValues("course_not_found").Inc()
		return nil, apperr.ErrCourseNotFound
	}

	now := time.Now()

	owned, err := s.store.HasConfirmedPayment(ctx, req.UserID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check confirmed payments: %w", err)
	}
	if owned {
		util.PaymentsFailedTotal.WithLabelValues("already_owned").Inc()
		return nil, apperr.ErrAlreadyOwned
	}

	live, err := s.store.HasLivePayment(ctx, req.UserID, req.CourseID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check live payments: %w", err)
	}
	if live {
		util.PaymentsFailedTotal.WithLabelValues("duplicate_request").Inc()
		return nil, apperr.ErrDuplicateRequest
	}

	method := req.PaymentMethod
	if method == "" {
		method = "bank_transfer"
	}

	payment := &models.Payment{
		UserID:           req.UserID,
		CourseID:         req.CourseID,
		Amount:           course.Price,
		Currency:         course.Currency,
		Phone:            req.Phone,
		PaymentMethod:    method,
		Status:           models.PaymentStatusPending,
		PaymentExpiresAt: now.Add(s.expiry),
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		util.PaymentsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	util.PaymentsCreatedTotal.Inc()
	s.logger.Info("Payment created",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("user_id", payment.UserID),
		zap.Int64("course_id", payment.CourseID),
		zap.Int64("amount", payment.Amount))

	event := &models.PaymentCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentCreated,
			Timestamp: now,
		},
		PaymentID: payment.ID,
		UserID:    payment.UserID,
		CourseID:  payment.CourseID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		ExpiresAt: payment.PaymentExpiresAt,
		Retry:     retry,
	}
	if err := s.eventPublisher.PublishPaymentCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentCreated event", zap.Error(err))
	}

	return payment, nil
}

// DeletePayment hard-deletes a payment while it is still pending and owned
// by the caller. The conditional DELETE closes the race with a concurrent
// admin transition.
func (s *PaymentService) DeletePayment(ctx context.Context, userID, paymentID int64) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.DeletePayment")
	defer span.End()

	payment, err := s.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return apperr.ErrPaymentNotFound
	}
	if payment.UserID != userID {
		return apperr.ErrForbidden
	}
	if payment.Status != models.PaymentStatusPending {
		return apperr.ErrInvalidState
	}

	deleted, err := s.store.DeletePaymentIfPending(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if !deleted {
		return apperr.ErrInvalidState
	}

	s.logger.Info("Payment deleted",
		zap.Int64("payment_id", paymentID),
		zap.Int64("user_id", userID))
	return nil
}

// GetPayment retrieves one payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	payment, err := s.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperr.ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments retrieves the user's payment history, newest first. Retried
// attempts show up as separate rows.
func (s *PaymentService) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	return s.store.GetPaymentsByUserID(ctx, userID)
}
