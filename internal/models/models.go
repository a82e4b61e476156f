package models

import "time"

// Course is the read-only catalog view this service consumes. Courses are
// owned by the catalog service; this service never writes them.
type Course struct {
	ID       int64  `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	Price    int64  `db:"price" json:"price"`
	Currency string `db:"currency" json:"currency"`
	Hours    int    `db:"hours" json:"hours"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// Payment is one purchase attempt. Rows are append-only history: a retry
// creates a new row and never mutates or reuses an older one.
type Payment struct {
	ID               int64         `db:"id" json:"id"`
	UserID           int64         `db:"user_id" json:"user_id"`
	CourseID         int64         `db:"course_id" json:"course_id"`
	Amount           int64         `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	Phone            string        `db:"phone" json:"phone"`
	PaymentMethod    string        `db:"payment_method" json:"payment_method"`
	InvoiceURL       *string       `db:"invoice_url" json:"invoice_url,omitempty"`
	Status           PaymentStatus `db:"status" json:"status"`
	PaymentExpiresAt time.Time     `db:"payment_expires_at" json:"payment_expires_at"`
	ConfirmedAt      *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// ExpiredAt reports the derived expiry predicate: a pending payment past its
// window. Expiry is never stored as a status value.
func (p *Payment) ExpiredAt(now time.Time) bool {
	return p.Status == PaymentStatusPending && now.After(p.PaymentExpiresAt)
}

// CourseAccess is the entitlement created exactly once per confirmed payment.
// Unique on (user_id, course_id); never updated.
type CourseAccess struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	GrantedAt time.Time `db:"granted_at" json:"granted_at"`
}

// Certificate is an issued completion certificate. At most one non-revoked
// row per (user_id, course_id), enforced by a partial unique index.
type Certificate struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"user_id"`
	CourseID          int64      `db:"course_id" json:"course_id"`
	CertificateNumber string     `db:"certificate_number" json:"certificate_number"`
	Hours             int        `db:"hours" json:"hours"`
	IssuedAt          time.Time  `db:"issued_at" json:"issued_at"`
	FilePath          string     `db:"file_path" json:"file_path"`
	IsValid           bool       `db:"is_valid" json:"is_valid"`
	RevokedAt         *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	Version           int        `db:"version" json:"version"`
}

// ProcessedEvent records a consumed broker event for idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
