package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/belmonthotel/service-reservation/internal/adapter"
	"github.com/belmonthotel/service-reservation/internal/domain"
	"github.com/belmonthotel/service-reservation/internal/domain/ledger"
	"github.com/belmonthotel/service-reservation/internal/domain/payment"
	"github.com/belmonthotel/service-reservation/internal/domain/promo"
	"github.com/belmonthotel/service-reservation/internal/domain/reservation"
	"github.com/belmonthotel/service-reservation/internal/domain/room"
	"github.com/belmonthotel/service-reservation/internal/queue"
	"github.com/google/uuid"
)

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*room.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[uuid.UUID]*room.Room)}
}

func (r *fakeRoomRepo) FindByID(_ context.Context, id uuid.UUID) (*room.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[id]
	if !ok {
		return nil, domain.NewNotFoundError("Room", id.String())
	}
	return rm, nil
}

func (r *fakeRoomRepo) ListActive(_ context.Context) ([]*room.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*room.Room
	for _, rm := range r.rooms {
		if rm.IsActive() {
			out = append(out, rm)
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) Save(_ context.Context, rm *room.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[rm.ID()] = rm
	return nil
}

func (r *fakeRoomRepo) Update(_ context.Context, rm *room.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[rm.ID()]; !ok {
		return domain.NewNotFoundError("Room", rm.ID().String())
	}
	r.rooms[rm.ID()] = rm
	return nil
}

// cloneReservation detaches an aggregate from the store, the way a real
// repository rehydrates a fresh instance per read.
func cloneReservation(res *reservation.Reservation) *reservation.Reservation {
	return reservation.Reconstitute(
		res.ID(),
		res.ReservationNumber(),
		res.GuestID(), res.RoomID(),
		res.CheckInDate(), res.CheckOutDate(),
		res.Adults(), res.Children(),
		res.TotalAmountCents(), res.DiscountAmountCents(),
		res.PromoCode(),
		res.Status(),
		res.SpecialRequests(),
		res.CheckedInAt(), res.ConfirmedAt(), res.CancelledAt(),
		res.CancellationReason(),
		res.Version(),
		res.CreatedAt(), res.UpdatedAt(),
	)
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*reservation.Reservation

	// findOverride is returned by the next FindByID call, standing in for a
	// read that went stale while another writer committed.
	findOverride *reservation.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[uuid.UUID]*reservation.Reservation)}
}

func (r *fakeReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findOverride != nil && r.findOverride.ID() == id {
		stale := r.findOverride
		r.findOverride = nil
		return stale, nil
	}
	res, ok := r.reservations[id]
	if !ok {
		return nil, domain.NewNotFoundError("Reservation", id.String())
	}
	return cloneReservation(res), nil
}

func (r *fakeReservationRepo) FindByNumber(_ context.Context, number string) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.ReservationNumber() == number {
			return cloneReservation(res), nil
		}
	}
	return nil, domain.NewNotFoundError("Reservation", number)
}

func (r *fakeReservationRepo) ListByGuest(_ context.Context, guestID uuid.UUID) ([]*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reservation.Reservation
	for _, res := range r.reservations {
		if res.GuestID() == guestID {
			out = append(out, cloneReservation(res))
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) ListArrivals(_ context.Context, day time.Time) ([]*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day = day.UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var out []*reservation.Reservation
	for _, res := range r.reservations {
		if res.Status() == reservation.StatusConfirmed && res.CheckInDate().Equal(dayStart) && res.CheckedInAt() == nil {
			out = append(out, cloneReservation(res))
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) Stats(_ context.Context, filter reservation.StatsFilter) (map[reservation.Status]reservation.StatusStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := make(map[reservation.Status]reservation.StatusStats)
	for _, res := range r.reservations {
		if filter.RoomID != uuid.Nil && res.RoomID() != filter.RoomID {
			continue
		}
		if !filter.FromDate.IsZero() && res.CheckInDate().Before(filter.FromDate) {
			continue
		}
		if !filter.ToDate.IsZero() && res.CheckInDate().After(filter.ToDate) {
			continue
		}
		s := stats[res.Status()]
		s.Count++
		s.RevenueCents += res.TotalAmountCents()
		stats[res.Status()] = s
	}
	return stats, nil
}

func (r *fakeReservationRepo) Save(_ context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[res.ID()] = cloneReservation(res)
	return nil
}

func (r *fakeReservationRepo) Update(_ context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reservations[res.ID()]
	if !ok {
		return domain.NewNotFoundError("Reservation", res.ID().String())
	}
	if stored.Version() != res.Version()-1 {
		return domain.NewConflictError("reservation was modified by another transaction")
	}
	r.reservations[res.ID()] = cloneReservation(res)
	return nil
}

func (r *fakeReservationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reservations, id)
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*payment.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*payment.Payment)}
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, domain.NewNotFoundError("Payment", id.String())
	}
	return p, nil
}

func (r *fakePaymentRepo) FindByProviderInvoiceID(_ context.Context, invoiceID string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ProviderInvoiceID() == invoiceID {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("Payment", invoiceID)
}

func (r *fakePaymentRepo) FindPendingByReservationID(_ context.Context, reservationID uuid.UUID) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ReservationID() == reservationID && p.Status() == payment.StatusPending {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("Payment", reservationID.String())
}

func (r *fakePaymentRepo) ListByReservationID(_ context.Context, reservationID uuid.UUID) ([]*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.ReservationID() == reservationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID()] = p
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID()]; !ok {
		return domain.NewNotFoundError("Payment", p.ID().String())
	}
	r.payments[p.ID()] = p
	return nil
}

type fakePromoRepo struct {
	mu     sync.Mutex
	promos map[uuid.UUID]*promo.PromoCode
	usages []*promo.PromoUsage
}

func newFakePromoRepo() *fakePromoRepo {
	return &fakePromoRepo{promos: make(map[uuid.UUID]*promo.PromoCode)}
}

func (r *fakePromoRepo) Save(_ context.Context, p *promo.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promos[p.ID()] = p
	return nil
}

func (r *fakePromoRepo) Update(_ context.Context, p *promo.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promos[p.ID()] = p
	return nil
}

func (r *fakePromoRepo) FindByCode(_ context.Context, code string) (*promo.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range r.promos {
		if p.Code() == code {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("PromoCode", code)
}

func (r *fakePromoRepo) FindByID(_ context.Context, id uuid.UUID) (*promo.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.promos[id]
	if !ok {
		return nil, domain.NewNotFoundError("PromoCode", id.String())
	}
	return p, nil
}

func (r *fakePromoRepo) FindActive(_ context.Context, now time.Time) ([]*promo.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*promo.PromoCode
	for _, p := range r.promos {
		if p.IsActive() && !now.Before(p.StartsAt()) && !now.After(p.ExpiresAt()) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePromoRepo) SaveUsage(_ context.Context, usage *promo.PromoUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usages = append(r.usages, usage)
	return nil
}

func (r *fakePromoRepo) HasReservationUsage(_ context.Context, promoID, reservationID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usages {
		if u.PromoID == promoID && u.ReservationID == reservationID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePromoRepo) usageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.usages)
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []*ledger.Entry

	// failOn makes Append reject entries of one action, simulating a write
	// failure mid-saga.
	failOn ledger.Action
}

func (r *fakeLedgerRepo) Append(_ context.Context, e *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != "" && e.Action == r.failOn {
		return fmt.Errorf("ledger append rejected for action %s", e.Action)
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeLedgerRepo) ListByRoom(_ context.Context, roomID uuid.UUID) ([]*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.entries {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListByReservation(_ context.Context, reservationID uuid.UUID) ([]*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.entries {
		if e.ReservationID != nil && *e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListByAction(_ context.Context, action ledger.Action) ([]*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) actions() []ledger.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Action, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*queue.Entry
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: make(map[uuid.UUID]*queue.Entry)}
}

func (r *fakeQueueRepo) Save(_ context.Context, e *queue.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *fakeQueueRepo) Update(_ context.Context, e *queue.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *fakeQueueRepo) ListByRoom(_ context.Context, roomID uuid.UUID) ([]*queue.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*queue.Entry
	for _, e := range r.entries {
		if e.RoomID == roomID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recorderPublisher records published lifecycle event types in order.
type recorderPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recorderPublisher) Publish(_ context.Context, eventType string, _ *reservation.Reservation, _ time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recorderPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// countingGateway wraps the mock gateway and can be told to fail invoice
// creation.
type countingGateway struct {
	inner       adapter.InvoiceGateway
	mu          sync.Mutex
	created     int
	expired     []string
	failCreate  bool
	lastInvoice string
}

func newCountingGateway(inner adapter.InvoiceGateway) *countingGateway {
	return &countingGateway{inner: inner}
}

func (g *countingGateway) CreateInvoice(ctx context.Context, externalID string, amountCents int64, currency, description string) (string, string, error) {
	g.mu.Lock()
	fail := g.failCreate
	g.mu.Unlock()
	if fail {
		return "", "", fmt.Errorf("provider unreachable")
	}

	id, url, err := g.inner.CreateInvoice(ctx, externalID, amountCents, currency, description)
	g.mu.Lock()
	g.created++
	g.lastInvoice = id
	g.mu.Unlock()
	return id, url, err
}

func (g *countingGateway) ExpireInvoice(ctx context.Context, invoiceID string) error {
	g.mu.Lock()
	g.expired = append(g.expired, invoiceID)
	g.mu.Unlock()
	return g.inner.ExpireInvoice(ctx, invoiceID)
}
