package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionLegalPaths(t *testing.T) {
	next, err := Transition(PaymentStatusPending, PaymentEventInvoice)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusInvoiced, next)

	next, err = Transition(PaymentStatusPending, PaymentEventConfirm)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusConfirmed, next)

	next, err = Transition(PaymentStatusPending, PaymentEventReject)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRejected, next)

	next, err = Transition(PaymentStatusInvoiced, PaymentEventConfirm)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusConfirmed, next)

	next, err = Transition(PaymentStatusInvoiced, PaymentEventReject)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRejected, next)
}

func TestTransitionIllegalPaths(t *testing.T) {
	cases := []struct {
		from  PaymentStatus
		event PaymentEvent
	}{
		{PaymentStatusInvoiced, PaymentEventInvoice},
		{PaymentStatusConfirmed, PaymentEventInvoice},
		{PaymentStatusConfirmed, PaymentEventConfirm},
		{PaymentStatusConfirmed, PaymentEventReject},
		{PaymentStatusRejected, PaymentEventInvoice},
		{PaymentStatusRejected, PaymentEventConfirm},
		{PaymentStatusRejected, PaymentEventReject},
	}

	for _, tc := range cases {
		_, err := Transition(tc.from, tc.event)
		assert.Error(t, err, "expected %s on %s to be illegal", tc.event, tc.from)

		var terr *ErrIllegalTransition
		assert.ErrorAs(t, err, &terr)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(PaymentStatusPending))
	assert.False(t, IsTerminal(PaymentStatusInvoiced))
	assert.True(t, IsTerminal(PaymentStatusConfirmed))
	assert.True(t, IsTerminal(PaymentStatusRejected))
}

func TestExpiredAtIsDerivedFromPendingOnly(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	p := &Payment{Status: PaymentStatusPending, PaymentExpiresAt: past}
	assert.True(t, p.ExpiredAt(now))

	p.PaymentExpiresAt = future
	assert.False(t, p.ExpiredAt(now))

	// Only pending rows expire; the predicate never fires for other states.
	p.PaymentExpiresAt = past
	for _, status := range []PaymentStatus{PaymentStatusInvoiced, PaymentStatusConfirmed, PaymentStatusRejected} {
		p.Status = status
		assert.False(t, p.ExpiredAt(now))
	}
}
