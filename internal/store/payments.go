package store

import (
	"context"
	"database/sql"
	"time"

	"course-payment-service/internal/models"
)

// CreatePayment inserts a new payment row
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (user_id, course_id, amount, currency, phone, payment_method, status, payment_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, payment, query,
		payment.UserID, payment.CourseID, payment.Amount, payment.Currency,
		payment.Phone, payment.PaymentMethod, payment.Status, payment.PaymentExpiresAt)
}

// GetPaymentByID retrieves a payment by ID; returns (nil, nil) when absent
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetLatestPayment retrieves the most recent payment for a (user, course)
// pair. History is append-only, so current-state reads must always take the
// newest row, never an arbitrary one.
func (s *Store) GetLatestPayment(ctx context.Context, userID, courseID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE user_id = $1 AND course_id = $2 ORDER BY created_at DESC, id DESC LIMIT 1",
		userID, courseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsByUserID retrieves payment history for a user
func (s *Store) GetPaymentsByUserID(ctx context.Context, userID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return payments, err
}

// HasConfirmedPayment reports whether any row for the pair is confirmed
func (s *Store) HasConfirmedPayment(ctx context.Context, userID, courseID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM payments WHERE user_id = $1 AND course_id = $2 AND status = 'confirmed')",
		userID, courseID)
	return exists, err
}

// HasLivePayment reports whether the pair has a payment an admin could still
// act on: invoiced, or pending inside its expiry window. A pending row past
// its window does not count (derived expiry).
func (s *Store) HasLivePayment(ctx context.Context, userID, courseID int64, now time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE user_id = $1 AND course_id = $2
			  AND (status = 'invoiced' OR (status = 'pending' AND payment_expires_at > $3)))`,
		userID, courseID, now)
	return exists, err
}

// SetInvoiced attaches the invoice URL iff the payment is still pending.
// The WHERE clause on current status is the compare-and-swap guard; zero
// rows affected means another transition won.
func (s *Store) SetInvoiced(ctx context.Context, paymentID int64, invoiceURL string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = 'invoiced', invoice_url = $1, updated_at = NOW() WHERE id = $2 AND status = 'pending'",
		invoiceURL, paymentID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// SetRejected moves a live payment to rejected, same CAS shape as SetInvoiced
func (s *Store) SetRejected(ctx context.Context, paymentID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = 'rejected', updated_at = NOW() WHERE id = $1 AND status IN ('pending', 'invoiced')",
		paymentID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// DeletePaymentIfPending hard-deletes a payment only while it is pending
func (s *Store) DeletePaymentIfPending(ctx context.Context, paymentID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM payments WHERE id = $1 AND status = 'pending'", paymentID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}
