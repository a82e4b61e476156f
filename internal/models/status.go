package models

import "fmt"

// PaymentStatus is the stored payment state.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusInvoiced  PaymentStatus = "invoiced"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// PaymentEvent is an admin-driven transition trigger.
type PaymentEvent string

const (
	PaymentEventInvoice PaymentEvent = "invoice"
	PaymentEventConfirm PaymentEvent = "confirm"
	PaymentEventReject  PaymentEvent = "reject"
)

// ErrIllegalTransition is returned by Transition for any (status, event)
// pair outside the table below.
type ErrIllegalTransition struct {
	From  PaymentStatus
	Event PaymentEvent
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal payment transition: %s on %s", e.Event, e.From)
}

var transitions = map[PaymentStatus]map[PaymentEvent]PaymentStatus{
	PaymentStatusPending: {
		PaymentEventInvoice: PaymentStatusInvoiced,
		PaymentEventConfirm: PaymentStatusConfirmed,
		PaymentEventReject:  PaymentStatusRejected,
	},
	PaymentStatusInvoiced: {
		PaymentEventConfirm: PaymentStatusConfirmed,
		PaymentEventReject:  PaymentStatusRejected,
	},
	// confirmed and rejected are terminal
}

// Transition returns the state reached by applying event to current.
// This is the readable form of the state machine; the storage layer still
// guards every write with a conditional UPDATE on the current status, which
// is the actual concurrency barrier.
func Transition(current PaymentStatus, event PaymentEvent) (PaymentStatus, error) {
	if next, ok := transitions[current][event]; ok {
		return next, nil
	}
	return "", &ErrIllegalTransition{From: current, Event: event}
}

// IsTerminal reports whether no event can leave the given status.
func IsTerminal(s PaymentStatus) bool {
	return len(transitions[s]) == 0
}
