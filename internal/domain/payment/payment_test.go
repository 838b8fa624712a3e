package payment

import (
	"testing"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestPayment() *Payment {
	return NewPayment(uuid.New(), "inv_123", "invoice", 250_000, "IDR", "https://pay.example/inv_123", testNow.Add(24*time.Hour))
}

func TestMarkPaid(t *testing.T) {
	p := newTestPayment()

	require.NoError(t, p.MarkPaid(testNow))
	assert.Equal(t, StatusPaid, p.Status())
	require.NotNil(t, p.PaidAt())
	assert.True(t, p.IsTerminal())

	// Terminal payments reject further transitions.
	assert.ErrorIs(t, p.MarkPaid(testNow), domain.ErrInvalidState)
	assert.ErrorIs(t, p.MarkExpired(testNow), domain.ErrInvalidState)
	assert.ErrorIs(t, p.MarkFailed(testNow, "late"), domain.ErrInvalidState)
}

func TestMarkFailed(t *testing.T) {
	p := newTestPayment()

	require.NoError(t, p.MarkFailed(testNow, "card declined"))
	assert.Equal(t, StatusFailed, p.Status())
	assert.Equal(t, "card declined", p.FailureReason())
	assert.True(t, p.IsTerminal())
}

func TestMarkExpired(t *testing.T) {
	p := newTestPayment()

	require.NoError(t, p.MarkExpired(testNow))
	assert.Equal(t, StatusExpired, p.Status())
	assert.ErrorIs(t, p.MarkPaid(testNow), domain.ErrInvalidState)
}

func TestMarkCancelled(t *testing.T) {
	p := newTestPayment()

	require.NoError(t, p.MarkCancelled(testNow, "superseded"))
	assert.Equal(t, StatusCancelled, p.Status())
	assert.Equal(t, "superseded", p.FailureReason())
}
