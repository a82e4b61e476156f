package models

import "time"

// Event types
const (
	EventTypePaymentCreated    = "PAYMENT_CREATED"
	EventTypePaymentInvoiced   = "PAYMENT_INVOICED"
	EventTypePaymentConfirmed  = "PAYMENT_CONFIRMED"
	EventTypePaymentRejected   = "PAYMENT_REJECTED"
	EventTypeCourseCompleted   = "COURSE_COMPLETED"
	EventTypeCertificateIssued = "CERTIFICATE_ISSUED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentCreatedEvent published when a new purchase attempt is recorded
type PaymentCreatedEvent struct {
	BaseEvent
	PaymentID int64     `json:"payment_id"`
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	ExpiresAt time.Time `json:"expires_at"`
	Retry     bool      `json:"retry"`
}

// PaymentInvoicedEvent published when an admin attaches an invoice
type PaymentInvoicedEvent struct {
	BaseEvent
	PaymentID  int64  `json:"payment_id"`
	UserID     int64  `json:"user_id"`
	CourseID   int64  `json:"course_id"`
	InvoiceURL string `json:"invoice_url"`
}

// PaymentConfirmedEvent published after the confirm transaction commits;
// the email service uses it to notify the buyer.
type PaymentConfirmedEvent struct {
	BaseEvent
	PaymentID   int64     `json:"payment_id"`
	UserID      int64     `json:"user_id"`
	CourseID    int64     `json:"course_id"`
	Amount      int64     `json:"amount"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// PaymentRejectedEvent published when an admin rejects a payment
type PaymentRejectedEvent struct {
	BaseEvent
	PaymentID int64 `json:"payment_id"`
	UserID    int64 `json:"user_id"`
	CourseID  int64 `json:"course_id"`
}

// CourseCompletedEvent consumed from the lesson-progress service when a
// student reaches 100% completion.
type CourseCompletedEvent struct {
	BaseEvent
	UserID      int64     `json:"user_id"`
	CourseID    int64     `json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// CertificateIssuedEvent published for the rendering service, which writes
// the file and is idempotent on certificate_number.
type CertificateIssuedEvent struct {
	BaseEvent
	CertificateID     int64  `json:"certificate_id"`
	CertificateNumber string `json:"certificate_number"`
	UserID            int64  `json:"user_id"`
	CourseID          int64  `json:"course_id"`
	Hours             int    `json:"hours"`
}
