package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/conflict"
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/pricing"
	"github.com/Freeeeeet/venue_booking/internal/refund"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// 2026-10-15 четверг
	testNow = time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)

	errNotifierDown = errors.New("smtp: connection refused")
)

func date(month time.Month, d, hour int) time.Time {
	return time.Date(2026, month, d, hour, 0, 0, 0, time.UTC)
}

// memBookingStore повторяет ограничения таблицы bookings
type memBookingStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Booking
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{rows: map[int64]*model.Booking{}}
}

func (m *memBookingStore) put(b *model.Booking) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	cp := *b
	m.rows[b.ID] = &cp
	return b
}

func (m *memBookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memBookingStore) ListOverlapping(_ context.Context, start, end time.Time, excludeID int64, statuses []model.BookingStatus) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.sorted() {
		if b.ID == excludeID || !conflict.Overlaps(start, end, b.CheckIn, b.CheckOut) {
			continue
		}
		for _, s := range statuses {
			if b.Status == s {
				cp := *b
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *memBookingStore) Create(_ context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if booking.Status.IsActive() && conflict.HasConflict(booking.CheckIn, booking.CheckOut, 0, m.sorted()) {
		return model.Conflict(model.ErrDatesUnavailable)
	}
	m.nextID++
	booking.ID = m.nextID
	booking.CreatedAt = testNow
	booking.UpdatedAt = testNow
	cp := *booking
	m.rows[booking.ID] = &cp
	return nil
}

func (m *memBookingStore) Update(_ context.Context, id int64, patch model.BookingPatch) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok || !patch.Matches(b) {
		return nil, nil
	}
	if patch.ExternalPaymentID != nil {
		for _, other := range m.rows {
			if other.ID != id && other.ExternalPaymentID != nil && *other.ExternalPaymentID == *patch.ExternalPaymentID {
				return nil, model.Conflict(model.ErrExternalPaymentInUse)
			}
		}
	}
	updated := patch.Apply(b)
	m.rows[id] = updated
	cp := *updated
	return &cp, nil
}

func (m *memBookingStore) CompleteCheckedOut(_ context.Context, cutoff time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.sorted() {
		if b.Status == model.BookingStatusConfirmed && b.CheckOut.Before(cutoff) {
			b.Status = model.BookingStatusCompleted
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBookingStore) ListCheckingIn(_ context.Context, from, to time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.sorted() {
		if b.Status == model.BookingStatusConfirmed && !b.CheckIn.Before(from) && b.CheckIn.Before(to) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBookingStore) ListAwaitingGateway(_ context.Context) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.sorted() {
		if b.Status.IsActive() && b.PaymentStatus == model.PaymentStatusPending && b.ExternalPaymentID != nil {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBookingStore) AnonymizeUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.rows {
		if b.UserID == userID {
			b.UserID = 0
			b.GuestName = "Deleted guest"
			b.GuestEmail = ""
			b.GuestPhone = ""
			n++
		}
	}
	return n, nil
}

func (m *memBookingStore) sorted() []*model.Booking {
	out := make([]*model.Booking, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memProofStore повторяет уникальный индекс на оплату остатка
type memProofStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.PaymentProof
}

func newMemProofStore() *memProofStore {
	return &memProofStore{rows: map[int64]*model.PaymentProof{}}
}

func (m *memProofStore) GetByID(_ context.Context, id int64) (*model.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProofStore) ListByBooking(_ context.Context, bookingID int64) ([]*model.PaymentProof, error) {
	return m.list(func(p *model.PaymentProof) bool { return p.BookingID == bookingID }), nil
}

func (m *memProofStore) ListPending(_ context.Context) ([]*model.PaymentProof, error) {
	return m.list(func(p *model.PaymentProof) bool { return p.Status == model.ProofStatusPending }), nil
}

func (m *memProofStore) list(keep func(*model.PaymentProof) bool) []*model.PaymentProof {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentProof
	for _, p := range m.rows {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memProofStore) Create(_ context.Context, proof *model.PaymentProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if proof.Method == model.PaymentMethodCashOnArrival {
		for _, p := range m.rows {
			if p.BookingID == proof.BookingID && p.Method == model.PaymentMethodCashOnArrival {
				return model.Conflict(model.ErrBalanceAlreadyRecorded)
			}
		}
	}
	m.nextID++
	proof.ID = m.nextID
	cp := *proof
	m.rows[proof.ID] = &cp
	return nil
}

func (m *memProofStore) Update(_ context.Context, id int64, patch model.ProofPatch) (*model.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || (patch.ExpectStatus != nil && p.Status != *patch.ExpectStatus) {
		return nil, nil
	}
	updated := patch.Apply(p)
	m.rows[id] = updated
	cp := *updated
	return &cp, nil
}

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event model.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) types() []model.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type countingLocker struct {
	mu    sync.Mutex
	calls []string
}

func (l *countingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	l.calls = append(l.calls, key)
	l.mu.Unlock()
	return func() {}, nil
}

type stubGateway struct {
	status   model.GatewayStatus
	amount   decimal.Decimal
	currency string
	err      error
	asked    []string
}

func (g *stubGateway) QueryPayment(_ context.Context, externalID string) (*model.GatewayPayment, error) {
	g.asked = append(g.asked, externalID)
	if g.err != nil {
		return nil, g.err
	}
	return &model.GatewayPayment{Status: g.status, Amount: g.amount, Currency: g.currency}, nil
}

type fixture struct {
	bookings *memBookingStore
	proofs   *memProofStore
	notifier *recordingNotifier
	locker   *countingLocker
	gateway  *stubGateway
	booking  *BookingService
	payment  *PaymentService
	sweeper  *Sweeper
}

// newFixture собирает сервисы на памяти. Все ночи по 5000, включено 15 гостей.
func newFixture() *fixture {
	f := &fixture{
		bookings: newMemBookingStore(),
		proofs:   newMemProofStore(),
		notifier: &recordingNotifier{},
		locker:   &countingLocker{},
		gateway: &stubGateway{
			status:   model.GatewayStatusProcessing,
			amount:   decimal.NewFromInt(10000),
			currency: model.Currency,
		},
	}
	rate := decimal.NewFromInt(5000)
	calc := pricing.NewCalculator(rate, rate, 15, decimal.NewFromInt(300))
	logger := zap.NewNop()

	f.booking = NewBookingService(f.bookings, calc, refund.DepositTier{}, f.locker, f.notifier, f.gateway, logger)
	f.payment = NewPaymentService(passTx{}, f.bookings, f.proofs, f.notifier, logger)
	f.sweeper = NewSweeper(f.bookings, f.notifier, logger)
	return f
}

func (f *fixture) seed(b model.Booking) *model.Booking {
	if b.UserID == 0 {
		b.UserID = 7
	}
	if b.GuestName == "" {
		b.GuestName = "Maria Santos"
	}
	if b.GuestCount == 0 {
		b.GuestCount = 10
	}
	if b.PaymentType == "" {
		b.PaymentType = model.PaymentTypeHalf
	}
	if b.Status == "" {
		b.Status = model.BookingStatusPending
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.PaymentStatusPending
	}
	if b.TotalAmount.IsZero() {
		b.TotalAmount = decimal.NewFromInt(10000)
	}
	if b.PaymentAmount.IsZero() {
		b.PaymentAmount = model.DepositAmount(b.TotalAmount, b.PaymentType)
	}
	return f.bookings.put(&b)
}
