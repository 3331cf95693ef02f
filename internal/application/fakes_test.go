package application

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/domain/payment"
	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/domain/resource"
	"github.com/parkwise/service-reservation/internal/lock"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// --- reservations ---

type memReservations struct {
	mu        sync.Mutex
	items     map[uuid.UUID]reservation.Reservation
	updateErr map[uuid.UUID]error
}

func newMemReservations() *memReservations {
	return &memReservations{
		items:     make(map[uuid.UUID]reservation.Reservation),
		updateErr: make(map[uuid.UUID]error),
	}
}

func (m *memReservations) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation", id.String())
	}
	return &r, nil
}

func (m *memReservations) FindByReference(_ context.Context, reference string) (*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.Reference() == reference {
			cp := r
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("reservation", reference)
}

func (m *memReservations) List(_ context.Context, f reservation.ListFilter, page, limit int) ([]*reservation.Reservation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reservation.Reservation
	for _, r := range m.items {
		if f.SeekerID != nil && r.SeekerID() != *f.SeekerID {
			continue
		}
		if f.HostID != nil && r.HostID() != *f.HostID {
			continue
		}
		if f.Status != nil && r.Status() != *f.Status {
			continue
		}
		cp := r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, int64(len(out)), nil
}

func (m *memReservations) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, r := range m.items {
		counts[string(r.Status())]++
	}
	return counts, nil
}

func (m *memReservations) ExistsOverlapping(_ context.Context, resourceID uuid.UUID, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ResourceID() == resourceID && r.Status().HoldsSlot() && r.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memReservations) FindDueForAutoCheckout(_ context.Context, checkedInBy time.Time, exclude []uuid.UUID, limit int) ([]*reservation.Reservation, error) {
	return m.filter(limit, exclude, func(r reservation.Reservation) bool {
		return r.Status() == reservation.StatusActive && r.CheckedInAt() != nil &&
			r.CheckedOutAt() == nil && !r.CheckedInAt().After(checkedInBy)
	}), nil
}

func (m *memReservations) FindDueForNoShow(_ context.Context, startedBy time.Time, exclude []uuid.UUID, limit int) ([]*reservation.Reservation, error) {
	return m.filter(limit, exclude, func(r reservation.Reservation) bool {
		return r.Status() == reservation.StatusConfirmed && r.CheckedInAt() == nil && !r.StartAt().After(startedBy)
	}), nil
}

// filter returns matches ordered by id so batch tests are deterministic.
func (m *memReservations) filter(limit int, exclude []uuid.UUID, keep func(reservation.Reservation) bool) []*reservation.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reservation.Reservation
	for _, r := range m.items {
		if keep(r) && !slices.Contains(exclude, r.ID()) {
			cp := r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memReservations) Save(_ context.Context, r *reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[r.ID()] = *r
	return nil
}

func (m *memReservations) Update(_ context.Context, r *reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[r.ID()]; err != nil {
		return err
	}
	stored, ok := m.items[r.ID()]
	if !ok || stored.Version() != r.Version()-1 {
		return domain.NewConflictError("reservation was modified concurrently")
	}
	m.items[r.ID()] = *r
	return nil
}

// --- resources ---

type memResources struct {
	mu    sync.Mutex
	items map[uuid.UUID]resource.Resource
}

func newMemResources() *memResources {
	return &memResources{items: make(map[uuid.UUID]resource.Resource)}
}

func (m *memResources) FindByID(_ context.Context, id uuid.UUID) (*resource.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("resource", id.String())
	}
	return &r, nil
}

func (m *memResources) FindForUpdate(ctx context.Context, id uuid.UUID) (*resource.Resource, error) {
	return m.FindByID(ctx, id)
}

func (m *memResources) Upsert(_ context.Context, r *resource.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[r.ID()] = *r
	return nil
}

// --- payments ---

type memPayments struct {
	mu    sync.Mutex
	items map[uuid.UUID]*payment.Payment
}

func newMemPayments() *memPayments {
	return &memPayments{items: make(map[uuid.UUID]*payment.Payment)}
}

func (m *memPayments) FindSucceededByReservation(_ context.Context, reservationID uuid.UUID) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ReservationID() == reservationID && p.Status() == payment.StatusSucceeded {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memPayments) Record(_ context.Context, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ProviderRef() == p.ProviderRef() {
			return nil
		}
	}
	m.items[p.ID()] = p
	return nil
}

// --- refund requests ---

type memRefunds struct {
	mu    sync.Mutex
	items map[uuid.UUID]refund.Request
}

func newMemRefunds() *memRefunds {
	return &memRefunds{items: make(map[uuid.UUID]refund.Request)}
}

func (m *memRefunds) FindByID(_ context.Context, id uuid.UUID) (*refund.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("refund request", id.String())
	}
	return &r, nil
}

func (m *memRefunds) FindOpenByReservation(_ context.Context, reservationID uuid.UUID) (*refund.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ReservationID() == reservationID && r.Status().IsOpen() {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRefunds) SumCommittedByPayment(_ context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, r := range m.items {
		if r.PaymentID() == paymentID && r.Status() != refund.StatusRejected {
			total = total.Add(r.PayableAmount())
		}
	}
	return total, nil
}

func (m *memRefunds) ListByStatus(_ context.Context, status *refund.Status, page, limit int) ([]*refund.Request, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*refund.Request
	for _, r := range m.items {
		if status != nil && r.Status() != *status {
			continue
		}
		cp := r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, int64(len(out)), nil
}

func (m *memRefunds) Save(_ context.Context, r *refund.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ReservationID() == r.ReservationID() && existing.Status().IsOpen() {
			return domain.NewRefundError(domain.CodeDuplicateRefund, "duplicate", nil)
		}
	}
	m.items[r.ID()] = *r
	return nil
}

func (m *memRefunds) Update(_ context.Context, r *refund.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[r.ID()]
	if !ok || stored.Version() != r.Version()-1 {
		return domain.NewConflictError("refund request was modified concurrently")
	}
	m.items[r.ID()] = *r
	return nil
}

func (m *memRefunds) all() []refund.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]refund.Request, 0, len(m.items))
	for _, r := range m.items {
		out = append(out, r)
	}
	return out
}

// --- collaborators ---

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type refundCall struct {
	PaymentRef     string
	Amount         decimal.Decimal
	IdempotencyKey string
}

type fakePayments struct {
	mu    sync.Mutex
	err   error
	calls []refundCall
}

func (f *fakePayments) ExecuteRefund(_ context.Context, paymentRef string, amount decimal.Decimal, _ string, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, refundCall{PaymentRef: paymentRef, Amount: amount, IdempotencyKey: idempotencyKey})
	if f.err != nil {
		return "", f.err
	}
	return "rfnd_" + idempotencyKey[:8], nil
}

type sentNotification struct {
	UserID    uuid.UUID
	EventType string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, eventType string, _ map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, EventType: eventType})
	return n.err
}

func (n *recordingNotifier) eventsFor(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s.EventType)
		}
	}
	return out
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

var errProviderDown = errors.New("provider unavailable")

// --- wiring ---

type harness struct {
	clock        *clock.Manual
	reservations *memReservations
	resources    *memResources
	payments     *memPayments
	refunds      *memRefunds
	collaborator *fakePayments
	notifier     *recordingNotifier
	publisher    *recordingPublisher
	cfg          EngineConfig

	admission   *AdmissionController
	reservation *ReservationService
	refund      *RefundService
	lifecycle   *LifecycleService
	projection  *ProjectionService
}

// 2030-01-07 is a Monday.
var baseTime = time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)

func newHarness() *harness {
	h := &harness{
		clock:        clock.NewManual(baseTime),
		reservations: newMemReservations(),
		resources:    newMemResources(),
		payments:     newMemPayments(),
		refunds:      newMemRefunds(),
		collaborator: &fakePayments{},
		notifier:     &recordingNotifier{},
		publisher:    &recordingPublisher{},
		cfg:          DefaultEngineConfig(),
	}
	log := zap.NewNop()
	pricing := reservation.NewStandardPricingStrategy(h.cfg.PlatformFeePercent)

	h.admission = NewAdmissionController(h.reservations, h.resources, pricing, lock.NewKeyedMutex(), noTx{}, h.clock, h.cfg, log)
	h.refund = NewRefundService(h.refunds, h.reservations, h.resources, h.payments, h.collaborator, noTx{}, h.clock, h.notifier, h.publisher, log)
	h.reservation = NewReservationService(h.admission, h.reservations, h.refund, noTx{}, h.notifier, h.publisher, h.cfg, log)
	h.lifecycle = NewLifecycleService(h.reservations, h.notifier, h.publisher, h.cfg, log)
	h.projection = NewProjectionService(h.resources, h.payments, h.clock, log)
	return h
}

// addResource projects an active resource at the given hourly rate.
func (h *harness) addResource(hostID uuid.UUID, rate int64, policy string, schedule resource.WeeklySchedule) uuid.UUID {
	id := uuid.New()
	res, err := resource.NewResource(id, hostID, "Bay 7", decimal.NewFromInt(rate), "MYR", policy, "UTC", schedule, h.clock.Now())
	if err != nil {
		panic(err)
	}
	_ = h.resources.Upsert(context.Background(), res)
	return id
}

// pay records a captured payment for the reservation's total.
func (h *harness) pay(r *ReservationDTO) {
	p, err := payment.NewSucceededPayment(uuid.New(), r.ID, "pay_"+r.Reference, r.Total, r.Currency, h.clock.Now())
	if err != nil {
		panic(err)
	}
	_ = h.payments.Record(context.Background(), p)
}
