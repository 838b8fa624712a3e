package application

import (
	"context"
	"testing"
	"time"

	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/domain/ledger"
	"github.com/belmonthotel/service-reservation/internal/domain/payment"
	"github.com/belmonthotel/service-reservation/internal/domain/promo"
	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/belmonthotel/service-reservation/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleInvoicePaidConfirmsReservation(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)
	env.addPromo(t, "SPRING10", promo.DiscountTypePercentage, 10, 50)
	guestID := uuid.New()

	req := createRequest(rm.ID())
	req.PromoCode = "SPRING10"
	created, err := env.resSvc.CreateReservation(context.Background(), guestID, req)
	require.NoError(t, err)

	require.NoError(t, env.paySvc.HandleInvoicePaid(context.Background(), created.Payment.ProviderInvoiceID))

	res, err := env.reservations.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, res.Status())
	require.NotNil(t, res.ConfirmedAt())

	pay, err := env.payments.FindByProviderInvoiceID(context.Background(), created.Payment.ProviderInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, pay.Status())

	// confirmation holds the unit: no inventory movement beyond the reserve
	assert.Equal(t, 2, env.availableUnits(t, rm.ID()))
	assert.Equal(t, []ledger.Action{ledger.ActionReserve, ledger.ActionConfirm}, env.entries.actions())

	assert.Equal(t, 1, env.promos.usageCount())
	p, err := env.promos.FindByCode(context.Background(), "SPRING10")
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsedCount())

	assert.Equal(t, []string{events.EventReservationCreated, events.EventReservationConfirmed}, env.publisher.published())
}

func TestHandleInvoicePaidDuplicateCallback(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)
	env.addPromo(t, "SPRING10", promo.DiscountTypePercentage, 10, 50)

	req := createRequest(rm.ID())
	req.PromoCode = "SPRING10"
	created, err := env.resSvc.CreateReservation(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	require.NoError(t, env.paySvc.HandleInvoicePaid(context.Background(), created.Payment.ProviderInvoiceID))
	require.NoError(t, env.paySvc.HandleInvoicePaid(context.Background(), created.Payment.ProviderInvoiceID))

	assert.Equal(t, []ledger.Action{ledger.ActionReserve, ledger.ActionConfirm}, env.entries.actions())
	assert.Equal(t, 1, env.promos.usageCount())

	p, err := env.promos.FindByCode(context.Background(), "SPRING10")
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsedCount())
}

func TestHandleInvoicePaidLedgerFailureLeavesPending(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)

	created, err := env.resSvc.CreateReservation(context.Background(), uuid.New(), createRequest(rm.ID()))
	require.NoError(t, err)

	env.entries.failOn = ledger.ActionConfirm

	err = env.paySvc.HandleInvoicePaid(context.Background(), created.Payment.ProviderInvoiceID)
	require.Error(t, err)

	// the status flip was compensated: no confirmed record without its
	// audit entry
	res, err := env.reservations.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, res.Status())
	assert.Nil(t, res.ConfirmedAt())
	assert.Equal(t, []ledger.Action{ledger.ActionReserve}, env.entries.actions())

	pay, err := env.payments.FindByProviderInvoiceID(context.Background(), created.Payment.ProviderInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, pay.Status())

	assert.Equal(t, 0, env.promos.usageCount())
	assert.Equal(t, []string{events.EventReservationCreated}, env.publisher.published())
}

func TestHandleInvoicePaidUnknownInvoice(t *testing.T) {
	env := newTestEnv(t)

	err := env.paySvc.HandleInvoicePaid(context.Background(), "inv-does-not-exist")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandleInvoiceExpiredWithinWindowReissues(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)
	guestID := uuid.New()

	created, err := env.resSvc.CreateReservation(context.Background(), guestID, createRequest(rm.ID()))
	require.NoError(t, err)
	firstInvoice := created.Payment.ProviderInvoiceID

	env.clock.Advance(2 * time.Hour)
	require.NoError(t, env.paySvc.HandleInvoiceExpired(context.Background(), firstInvoice))

	old, err := env.payments.FindByProviderInvoiceID(context.Background(), firstInvoice)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusExpired, old.Status())

	fresh, err := env.payments.FindPendingByReservationID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, firstInvoice, fresh.ProviderInvoiceID())
	assert.Equal(t, created.TotalAmountCents, fresh.AmountCents())

	// reservation keeps its unit while the guest retries
	res, err := env.reservations.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, res.Status())
	assert.Equal(t, 2, env.availableUnits(t, rm.ID()))
	assert.Equal(t, []ledger.Action{ledger.ActionReserve}, env.entries.actions())
}

func TestHandleInvoiceExpiredOutsideWindowCancels(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)
	guestID := uuid.New()

	created, err := env.resSvc.CreateReservation(context.Background(), guestID, createRequest(rm.ID()))
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)
	require.NoError(t, env.paySvc.HandleInvoiceExpired(context.Background(), created.Payment.ProviderInvoiceID))

	res, err := env.reservations.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, res.Status())

	assert.Equal(t, 3, env.availableUnits(t, rm.ID()))
	assert.Equal(t, []ledger.Action{ledger.ActionReserve, ledger.ActionCancel}, env.entries.actions())

	_, err = env.payments.FindPendingByReservationID(context.Background(), created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []string{events.EventReservationCreated, events.EventReservationCancelled}, env.publisher.published())
}

func TestHandleInvoiceFailedRecordsReason(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)

	created, err := env.resSvc.CreateReservation(context.Background(), uuid.New(), createRequest(rm.ID()))
	require.NoError(t, err)

	require.NoError(t, env.paySvc.HandleInvoiceFailed(context.Background(), created.Payment.ProviderInvoiceID, "card declined"))

	old, err := env.payments.FindByProviderInvoiceID(context.Background(), created.Payment.ProviderInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, old.Status())
	assert.Equal(t, "card declined", old.FailureReason())

	// failure inside the retry window still reissues
	fresh, err := env.payments.FindPendingByReservationID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, created.Payment.ProviderInvoiceID, fresh.ProviderInvoiceID())
}

func TestHandleInvoiceExpiredAfterPaidIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)

	created, err := env.resSvc.CreateReservation(context.Background(), uuid.New(), createRequest(rm.ID()))
	require.NoError(t, err)

	require.NoError(t, env.paySvc.HandleInvoicePaid(context.Background(), created.Payment.ProviderInvoiceID))
	require.NoError(t, env.paySvc.HandleInvoiceExpired(context.Background(), created.Payment.ProviderInvoiceID))

	pay, err := env.payments.FindByProviderInvoiceID(context.Background(), created.Payment.ProviderInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, pay.Status())

	res, err := env.reservations.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, res.Status())
}

func TestListReservationPaymentsAuthz(t *testing.T) {
	env := newTestEnv(t)
	rm := env.addRoom(t, 3)
	guestID := uuid.New()

	created, err := env.resSvc.CreateReservation(context.Background(), guestID, createRequest(rm.ID()))
	require.NoError(t, err)

	_, err = env.paySvc.ListReservationPayments(context.Background(), Actor{ID: uuid.New()}, created.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	list, err := env.paySvc.ListReservationPayments(context.Background(), Actor{ID: guestID}, created.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.Payment.ProviderInvoiceID, list[0].ProviderInvoiceID)
}
