package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetCourseByID retrieves a course by ID (read-only catalog view)
func (s *Store) GetCourseByID(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	err := s.db.GetContext(ctx, &course, "SELECT * FROM courses WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// PaymentTx is the unit of work handed to the confirm transition. The status
// update and the access grant either both commit or both roll back.
type PaymentTx interface {
	GetPaymentForUpdate(ctx context.Context, paymentID int64) (*models.Payment, error)
	MarkConfirmed(ctx context.Context, paymentID int64, at time.Time) error
	GrantAccess(ctx context.Context, userID, courseID int64, at time.Time) error
}

type paymentTx struct {
	tx *sqlx.Tx
}

// InTx runs fn inside a single database transaction. Any error (or panic
// unwound by the deferred rollback) leaves no partial state.
func (s *Store) InTx(ctx context.Context, fn func(tx PaymentTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&paymentTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// GetPaymentForUpdate locks the payment row if it is still in a live state.
// A missing row and a terminal row are indistinguishable to the caller.
func (t *paymentTx) GetPaymentForUpdate(ctx context.Context, paymentID int64) (*models.Payment, error) {
	var payment models.Payment
	err := t.tx.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE id = $1 AND status IN ('pending', 'invoiced') FOR UPDATE",
		paymentID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrAlreadyProcessed
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkConfirmed sets the terminal confirmed status
func (t *paymentTx) MarkConfirmed(ctx context.Context, paymentID int64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE payments SET status = 'confirmed', confirmed_at = $1, updated_at = NOW() WHERE id = $2",
		at, paymentID)
	return err
}

// GrantAccess inserts the entitlement row; re-entrant via the unique key
func (t *paymentTx) GrantAccess(ctx context.Context, userID, courseID int64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO course_access (user_id, course_id, granted_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, course_id) DO NOTHING",
		userID, courseID, at)
	return err
}

// IsEventProcessed checks if a broker event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks a broker event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
