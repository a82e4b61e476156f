package service

import (
	"context"
	"sort"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/models"
	"course-payment-service/internal/store"
)

// fakeStore is an in-memory stand-in for the sqlx store, used so the
// precondition and transition logic can be exercised without a database.
type fakeStore struct {
	courses  map[int64]*models.Course
	payments map[int64]*models.Payment
	access   map[[2]int64]time.Time
	certs    map[[2]int64]*models.Certificate
	progress map[[2]int64][2]int // completed, total
	scores   map[[2]int64]fakeScore

	nextPaymentID int64
	nextCertID    int64

	// invoked at the top of CreateCertificate, lets a test interleave a
	// competing insert between the existence check and the insert
	onCreateCertificate func()
}

type fakeScore struct {
	percent  int
	hasTests bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses:  make(map[int64]*models.Course),
		payments: make(map[int64]*models.Payment),
		access:   make(map[[2]int64]time.Time),
		certs:    make(map[[2]int64]*models.Certificate),
		progress: make(map[[2]int64][2]int),
		scores:   make(map[[2]int64]fakeScore),
	}
}

func (s *fakeStore) addCourse(c *models.Course) {
	s.courses[c.ID] = c
}

func (s *fakeStore) addPayment(p *models.Payment) *models.Payment {
	s.nextPaymentID++
	p.ID = s.nextPaymentID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt
	s.payments[p.ID] = p
	return p
}

// CourseCatalog

func (s *fakeStore) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	return s.GetCourseByID(ctx, courseID)
}

// PaymentStore

func (s *fakeStore) GetCourseByID(_ context.Context, id int64) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, apperr.ErrCourseNotFound
	}
	return course, nil
}

func (s *fakeStore) GetPaymentByID(_ context.Context, id int64) (*models.Payment, error) {
	payment, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *payment
	return &cp, nil
}

func (s *fakeStore) GetPaymentsByUserID(_ context.Context, userID int64) ([]models.Payment, error) {
	var matched []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			matched = append(matched, *p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *fakeStore) GetLatestPayment(_ context.Context, userID, courseID int64) (*models.Payment, error) {
	var matched []*models.Payment
	for _, p := range s.payments {
		if p.UserID == userID && p.CourseID == courseID {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	cp := *matched[0]
	return &cp, nil
}

func (s *fakeStore) HasConfirmedPayment(_ context.Context, userID, courseID int64) (bool, error) {
	for _, p := range s.payments {
		if p.UserID == userID && p.CourseID == courseID && p.Status == models.PaymentStatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) HasLivePayment(_ context.Context, userID, courseID int64, now time.Time) (bool, error) {
	for _, p := range s.payments {
		if p.UserID != userID || p.CourseID != courseID {
			continue
		}
		if p.Status == models.PaymentStatusInvoiced {
			return true, nil
		}
		if p.Status == models.PaymentStatusPending && p.PaymentExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreatePayment(_ context.Context, payment *models.Payment) error {
	s.nextPaymentID++
	payment.ID = s.nextPaymentID
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	cp := *payment
	s.payments[payment.ID] = &cp
	return nil
}

func (s *fakeStore) DeletePaymentIfPending(_ context.Context, paymentID int64) (bool, error) {
	payment, ok := s.payments[paymentID]
	if !ok || payment.Status != models.PaymentStatusPending {
		return false, nil
	}
	delete(s.payments, paymentID)
	return true, nil
}

// TransitionStore

func (s *fakeStore) SetInvoiced(_ context.Context, paymentID int64, invoiceURL string) (bool, error) {
	payment, ok := s.payments[paymentID]
	if !ok || payment.Status != models.PaymentStatusPending {
		return false, nil
	}
	payment.Status = models.PaymentStatusInvoiced
	payment.InvoiceURL = &invoiceURL
	payment.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) SetRejected(_ context.Context, paymentID int64) (bool, error) {
	payment, ok := s.payments[paymentID]
	if !ok || (payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusInvoiced) {
		return false, nil
	}
	payment.Status = models.PaymentStatusRejected
	payment.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) InTx(_ context.Context, fn func(tx store.PaymentTx) error) error {
	tx := &fakeTx{s: s}
	if err := fn(tx); err != nil {
		return err // staged writes discarded, like a rollback
	}
	tx.commit()
	return nil
}

type fakeTx struct {
	s         *fakeStore
	confirmID int64
	confirmAt time.Time
	grantKey  *[2]int64
	grantAt   time.Time
}

func (t *fakeTx) GetPaymentForUpdate(_ context.Context, paymentID int64) (*models.Payment, error) {
	payment, ok := t.s.payments[paymentID]
	if !ok {
		return nil, apperr.ErrAlreadyProcessed
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusInvoiced {
		return nil, apperr.ErrAlreadyProcessed
	}
	cp := *payment
	return &cp, nil
}

func (t *fakeTx) MarkConfirmed(_ context.Context, paymentID int64, at time.Time) error {
	t.confirmID = paymentID
	t.confirmAt = at
	return nil
}

func (t *fakeTx) GrantAccess(_ context.Context, userID, courseID int64, at time.Time) error {
	t.grantKey = &[2]int64{userID, courseID}
	t.grantAt = at
	return nil
}

func (t *fakeTx) commit() {
	if t.confirmID != 0 {
		payment := t.s.payments[t.confirmID]
		payment.Status = models.PaymentStatusConfirmed
		at := t.confirmAt
		payment.ConfirmedAt = &at
		payment.UpdatedAt = at
	}
	if t.grantKey != nil {
		if _, exists := t.s.access[*t.grantKey]; !exists {
			t.s.access[*t.grantKey] = t.grantAt
		}
	}
}

// AccessStore

func (s *fakeStore) HasActiveAccess(_ context.Context, userID, courseID int64) (bool, error) {
	if _, ok := s.access[[2]int64{userID, courseID}]; !ok {
		return false, nil
	}
	course, ok := s.courses[courseID]
	return ok && course.IsActive, nil
}

func (s *fakeStore) ListAccessibleCourses(_ context.Context, userID int64) ([]models.Course, error) {
	type granted struct {
		course models.Course
		at     time.Time
	}
	var rows []granted
	for key, at := range s.access {
		if key[0] != userID {
			continue
		}
		course, ok := s.courses[key[1]]
		if !ok || !course.IsActive {
			continue
		}
		rows = append(rows, granted{course: *course, at: at})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].at.After(rows[j].at) })

	courses := make([]models.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course)
	}
	return courses, nil
}

// CertificateStore

func (s *fakeStore) GetValidCertificate(_ context.Context, userID, courseID int64) (*models.Certificate, error) {
	cert, ok := s.certs[[2]int64{userID, courseID}]
	if !ok || cert.RevokedAt != nil {
		return nil, nil
	}
	cp := *cert
	return &cp, nil
}

func (s *fakeStore) CreateCertificate(_ context.Context, cert *models.Certificate) error {
	if s.onCreateCertificate != nil {
		s.onCreateCertificate()
	}
	key := [2]int64{cert.UserID, cert.CourseID}
	if existing, ok := s.certs[key]; ok && existing.RevokedAt == nil {
		return store.ErrDuplicateCertificate
	}
	s.nextCertID++
	cert.ID = s.nextCertID
	cp := *cert
	s.certs[key] = &cp
	return nil
}

func (s *fakeStore) CourseProgress(_ context.Context, userID, courseID int64) (int, int, error) {
	row := s.progress[[2]int64{userID, courseID}]
	return row[0], row[1], nil
}

func (s *fakeStore) TestScore(_ context.Context, userID, courseID int64) (int, bool, error) {
	score := s.scores[[2]int64{userID, courseID}]
	return score.percent, score.hasTests, nil
}

// fakeSink records published event types.
type fakeSink struct {
	published []string
}

func (f *fakeSink) record(eventType string) error {
	f.published = append(f.published, eventType)
	return nil
}

func (f *fakeSink) PublishPaymentCreated(_ context.Context, e *models.PaymentCreatedEvent) error {
	return f.record(e.EventType)
}

func (f *fakeSink) PublishPaymentInvoiced(_ context.Context, e *models.PaymentInvoicedEvent) error {
	return f.record(e.EventType)
}

func (f *fakeSink) PublishPaymentConfirmed(_ context.Context, e *models.PaymentConfirmedEvent) error {
	return f.record(e.EventType)
}

func (f *fakeSink) PublishPaymentRejected(_ context.Context, e *models.PaymentRejectedEvent) error {
	return f.record(e.EventType)
}

func (f *fakeSink) PublishCertificateIssued(_ context.Context, e *models.CertificateIssuedEvent) error {
	return f.record(e.EventType)
}

// fakeCache is an in-memory AccessCache.
type fakeCache struct {
	entries     map[[2]int64]bool
	invalidated [][2]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[[2]int64]bool)}
}

func (c *fakeCache) GetAccess(_ context.Context, userID, courseID int64) (bool, bool, error) {
	hasAccess, found := c.entries[[2]int64{userID, courseID}]
	return hasAccess, found, nil
}

func (c *fakeCache) SetAccess(_ context.Context, userID, courseID int64, hasAccess bool) error {
	c.entries[[2]int64{userID, courseID}] = hasAccess
	return nil
}

func (c *fakeCache) InvalidateAccess(_ context.Context, userID, courseID int64) error {
	key := [2]int64{userID, courseID}
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}
