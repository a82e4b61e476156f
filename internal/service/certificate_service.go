package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/models"
	"course-payment-service/internal/store"
	"course-payment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CertificateStore is the persistence surface for certificate issuance and
// the read-only progress and test-score aggregates.
type CertificateStore interface {
	GetCourseByID(ctx context.Context, id int64) (*models.Course, error)
	GetValidCertificate(ctx context.Context, userID, courseID int64) (*models.Certificate, error)
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	CourseProgress(ctx context.Context, userID, courseID int64) (completed, total int, err error)
	TestScore(ctx context.Context, userID, courseID int64) (scorePercent int, hasTests bool, err error)
}

// CertificateService gates certificate issuance on completion and test
// results, and guarantees at most one valid certificate per (user, course).
// Rendering is a downstream collaborator driven by the issued event.
type CertificateService struct {
	store          CertificateStore
	eventPublisher EventSink
	logger         *zap.Logger
	passingScore   int
}

// NewCertificateService creates a new certificate service
func NewCertificateService(store CertificateStore, eventPublisher EventSink, passingScore int) *CertificateService {
	return &CertificateService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		passingScore:   passingScore,
	}
}

// IssueIfEligible returns the existing certificate when one is already
// issued, otherwise checks eligibility and issues a new one. The unique
// index on non-revoked (user, course) makes concurrent calls converge on a
// single row: the loser of the insert race fetches and returns the winner.
func (cs *CertificateService) IssueIfEligible(ctx context.Context, userID, courseID int64) (*models.Certificate, error) {
	ctx, span := util.StartSpan(ctx, "CertificateService.IssueIfEligible")
	defer span.End()

	existing, err := cs.store.GetValidCertificate(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up certificate: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	course, err := cs.store.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	completed, total, err := cs.store.CourseProgress(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course progress: %w", err)
	}
	if total == 0 || completed < total {
		util.CertificateIssueRefused.WithLabelValues("course_not_completed").Inc()
		return nil, apperr.ErrCourseNotCompleted
	}

	score, hasTests, err := cs.store.TestScore(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test score: %w", err)
	}
	if hasTests && score < cs.passingScore {
		util.CertificateIssueRefused.WithLabelValues("tests_not_passed").Inc()
		cs.logger.Info("Certificate refused, score below threshold",
			zap.Int64("user_id", userID),
			zap.Int64("course_id", courseID),
			zap.Int("score", score),
			zap.Int("threshold", cs.passingScore))
		return nil, apperr.ErrTestsNotPassed
	}

	cert := &models.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: fmt.Sprintf("CERT-%s", uuid.New().String()[:8]),
		Hours:             course.Hours,
		IssuedAt:          time.Now(),
		IsValid:           true,
		Version:           1,
	}

	if err := cs.store.CreateCertificate(ctx, cert); err != nil {
		if errors.Is(err, store.ErrDuplicateCertificate) {
			winner, ferr := cs.store.GetValidCertificate(ctx, userID, courseID)
			if ferr != nil {
				return nil, fmt.Errorf("failed to fetch winning certificate: %w", ferr)
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	util.CertificatesIssuedTotal.Inc()
	cs.logger.Info("Certificate issued",
		zap.Int64("user_id", userID),
		zap.Int64("course_id", courseID),
		zap.String("certificate_number", cert.CertificateNumber))

	event := &models.CertificateIssuedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCertificateIssued,
			Timestamp: time.Now(),
		},
		CertificateID:     cert.ID,
		CertificateNumber: cert.CertificateNumber,
		UserID:            userID,
		CourseID:          courseID,
		Hours:             cert.Hours,
	}
	if err := cs.eventPublisher.PublishCertificateIssued(ctx, event); err != nil {
		cs.logger.Error("Failed to publish CertificateIssued event", zap.Error(err))
	}

	return cert, nil
}
