package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/payments"
	"ridedispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// memData is one snapshot of everything the store holds.
type memData struct {
	trips        map[string]*domain.Trip // without events and payments
	events       map[string][]domain.Event
	payments     map[string]domain.Payment
	tripPayments map[string][]string
	policies     map[string][]domain.Policy
	seq          int
}

func newMemData() *memData {
	return &memData{
		trips:        make(map[string]*domain.Trip),
		events:       make(map[string][]domain.Event),
		payments:     make(map[string]domain.Payment),
		tripPayments: make(map[string][]string),
		policies:     make(map[string][]domain.Policy),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for id, t := range d.trips {
		cp := *t
		c.trips[id] = &cp
	}
	for id, evs := range d.events {
		c.events[id] = append([]domain.Event(nil), evs...)
	}
	for id, p := range d.payments {
		c.payments[id] = p
	}
	for id, ids := range d.tripPayments {
		c.tripPayments[id] = append([]string(nil), ids...)
	}
	for id, ps := range d.policies {
		c.policies[id] = append([]domain.Policy(nil), ps...)
	}
	c.seq = d.seq
	return c
}

// trip assembles a detached copy of a trip with its events and payments.
func (d *memData) trip(id string) (*domain.Trip, bool) {
	t, ok := d.trips[id]
	if !ok {
		return nil, false
	}
	cp := *t
	cp.Events = append([]domain.Event(nil), d.events[id]...)
	cp.Payments = nil
	for _, pid := range d.tripPayments[id] {
		cp.Payments = append(cp.Payments, d.payments[pid])
	}
	return &cp, true
}

// MemStore is an in-memory repository.Store. Transactions are serialized
// and run against a private copy that replaces the live data on commit.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *memData

	// Counters for verification
	TxCount     int32
	CommitCount int32
	UpdateCount int32

	// Error injection
	UpdateError error
	CreateError error
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: newMemData()}
}

func (s *MemStore) Repos() repository.Repositories {
	return (&memRepos{s: s}).repositories()
}

func (s *MemStore) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	atomic.AddInt32(&s.TxCount, 1)
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn((&memRepos{s: s, d: snapshot, tx: true}).repositories()); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	atomic.AddInt32(&s.CommitCount, 1)
	return nil
}

// GetTrip returns the committed trip for assertions.
func (s *MemStore) GetTrip(id string) *domain.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, _ := s.data.trip(id)
	return t
}

// CountTrips returns the number of committed trips.
func (s *MemStore) CountTrips() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.trips)
}

// CountPayments returns the number of committed payments.
func (s *MemStore) CountPayments() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.payments)
}

// SetTripVersion overwrites a committed trip's version, as a concurrent
// writer would.
func (s *MemStore) SetTripVersion(id string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.data.trips[id]; ok {
		t.Version = version
	}
}

// memRepos binds the repositories to a transaction snapshot, or to the
// live data when tx is false.
type memRepos struct {
	s  *MemStore
	d  *memData
	tx bool
}

func (r *memRepos) repositories() repository.Repositories {
	return repository.Repositories{
		Trips:    &memTrips{r},
		Events:   &memEvents{r},
		Payments: &memPayments{r},
		Policies: &memPolicies{r},
	}
}

func (r *memRepos) read(fn func(d *memData) error) error {
	if r.tx {
		return fn(r.d)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return fn(r.s.data)
}

func (r *memRepos) write(fn func(d *memData) error) error {
	if r.tx {
		return fn(r.d)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(r.s.data)
}

// ──────────────────────────────────────────────
// TRIPS
// ──────────────────────────────────────────────

type memTrips struct{ *memRepos }

func (m *memTrips) Create(ctx context.Context, trip *domain.Trip) error {
	if m.s.CreateError != nil {
		return m.s.CreateError
	}
	return m.write(func(d *memData) error {
		if _, ok := d.trips[trip.ID]; ok {
			return repository.ErrConflict
		}
		header := *trip
		header.Events, header.Payments = nil, nil
		d.trips[trip.ID] = &header
		d.events[trip.ID] = append([]domain.Event(nil), trip.Events...)
		for _, p := range trip.Payments {
			d.payments[p.ID] = p
			d.tripPayments[trip.ID] = append(d.tripPayments[trip.ID], p.ID)
		}
		return nil
	})
}

func (m *memTrips) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	var out *domain.Trip
	err := m.read(func(d *memData) error {
		t, ok := d.trip(id)
		if !ok {
			return repository.ErrNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (m *memTrips) GetForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return m.GetByID(ctx, id)
}

func (m *memTrips) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	var out []*domain.Trip
	err := m.read(func(d *memData) error {
		for _, t := range d.trips {
			if t.TenantID != filter.TenantID ||
				(filter.Status != "" && t.Status != filter.Status) ||
				(filter.DriverID != "" && t.DriverID != filter.DriverID) ||
				(filter.Unpaid && t.IsPaid) {
				continue
			}
			cp := *t
			out = append(out, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TransactionNumber > out[j].TransactionNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if filter.Offset >= len(out) {
		return []*domain.Trip{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTrips) Update(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	atomic.AddInt32(&m.s.UpdateCount, 1)
	if m.s.UpdateError != nil {
		return m.s.UpdateError
	}
	return m.write(func(d *memData) error {
		stored, ok := d.trips[trip.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Version != expectedVersion {
			return repository.ErrConflict
		}
		header := *trip
		header.Events, header.Payments = nil, nil
		header.Version = expectedVersion + 1
		d.trips[trip.ID] = &header
		trip.Version = header.Version
		return nil
	})
}

func (m *memTrips) NextTransactionNumber(ctx context.Context) (string, error) {
	var n int
	err := m.write(func(d *memData) error {
		d.seq++
		n = d.seq
		return nil
	})
	return fmt.Sprintf("TXN-%05d", n), err
}

// ──────────────────────────────────────────────
// EVENTS
// ──────────────────────────────────────────────

type memEvents struct{ *memRepos }

func (m *memEvents) Append(ctx context.Context, events ...domain.Event) error {
	return m.write(func(d *memData) error {
		for _, e := range events {
			d.events[e.TripID] = append(d.events[e.TripID], e)
		}
		return nil
	})
}

func (m *memEvents) ListByTrip(ctx context.Context, tripID string) ([]domain.Event, error) {
	var out []domain.Event
	err := m.read(func(d *memData) error {
		out = append(out, d.events[tripID]...)
		return nil
	})
	return out, err
}

// ──────────────────────────────────────────────
// PAYMENTS
// ──────────────────────────────────────────────

type memPayments struct{ *memRepos }

func (m *memPayments) Create(ctx context.Context, p *domain.Payment) error {
	return m.write(func(d *memData) error {
		if _, ok := d.payments[p.ID]; ok {
			return repository.ErrConflict
		}
		d.payments[p.ID] = *p
		d.tripPayments[p.TripID] = append(d.tripPayments[p.TripID], p.ID)
		return nil
	})
}

func (m *memPayments) Update(ctx context.Context, p *domain.Payment) error {
	return m.write(func(d *memData) error {
		if _, ok := d.payments[p.ID]; !ok {
			return repository.ErrNotFound
		}
		d.payments[p.ID] = *p
		return nil
	})
}

func (m *memPayments) find(match func(domain.Payment) bool) (*domain.Payment, error) {
	var out *domain.Payment
	err := m.read(func(d *memData) error {
		for _, p := range d.payments {
			if match(p) {
				cp := p
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (m *memPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return m.find(func(p domain.Payment) bool { return p.ID == id })
}

func (m *memPayments) GetByRazorpayOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	if orderID == "" {
		return nil, repository.ErrNotFound
	}
	return m.find(func(p domain.Payment) bool { return p.Gateway.RazorpayOrderID == orderID })
}

func (m *memPayments) GetByStripeIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	if intentID == "" {
		return nil, repository.ErrNotFound
	}
	return m.find(func(p domain.Payment) bool { return p.Gateway.StripePaymentIntentID == intentID })
}

func (m *memPayments) ListByTrip(ctx context.Context, tripID string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := m.read(func(d *memData) error {
		for _, id := range d.tripPayments[tripID] {
			out = append(out, d.payments[id])
		}
		return nil
	})
	return out, err
}

// ──────────────────────────────────────────────
// POLICIES
// ──────────────────────────────────────────────

type memPolicies struct{ *memRepos }

func (m *memPolicies) Create(ctx context.Context, p *domain.Policy) error {
	return m.write(func(d *memData) error {
		p.Version = len(d.policies[p.TenantID]) + 1
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		d.policies[p.TenantID] = append(d.policies[p.TenantID], *p)
		return nil
	})
}

func (m *memPolicies) Latest(ctx context.Context, tenantID string) (*domain.Policy, error) {
	var out *domain.Policy
	err := m.read(func(d *memData) error {
		ps := d.policies[tenantID]
		if len(ps) == 0 {
			return repository.ErrNotFound
		}
		cp := ps[len(ps)-1]
		out = &cp
		return nil
	})
	return out, err
}

func (m *memPolicies) List(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	var out []*domain.Policy
	err := m.read(func(d *memData) error {
		ps := d.policies[tenantID]
		for i := len(ps) - 1; i >= 0; i-- {
			cp := ps[i]
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

// ──────────────────────────────────────────────
// REPORTS
// ──────────────────────────────────────────────

func (s *MemStore) reportTrips(f repository.ReportFilter) []*domain.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Trip
	for id, t := range s.data.trips {
		if t.TenantID != f.TenantID ||
			(f.DriverID != "" && t.DriverID != f.DriverID) ||
			(f.DispatcherID != "" && t.DispatcherID != f.DispatcherID) ||
			(!f.From.IsZero() && t.CreatedAt.Before(f.From)) ||
			(!f.To.IsZero() && t.CreatedAt.After(f.To)) {
			continue
		}
		full, _ := s.data.trip(id)
		out = append(out, full)
	}
	return out
}

// CommissionSummary implements repository.ReportRepository.
func (s *MemStore) CommissionSummary(ctx context.Context, filter repository.ReportFilter) (*domain.CommissionSummary, error) {
	summary := domain.SummarizeCommissions(s.reportTrips(filter))
	return &summary, nil
}

// PaymentSummary implements repository.ReportRepository.
func (s *MemStore) PaymentSummary(ctx context.Context, filter repository.ReportFilter) ([]domain.PaymentSummaryRow, error) {
	type key struct {
		method domain.PaymentMethod
		status domain.PaymentStatus
	}
	rows := make(map[key]*domain.PaymentSummaryRow)
	for _, t := range s.reportTrips(filter) {
		for _, p := range t.Payments {
			k := key{p.Method, p.Status}
			row, ok := rows[k]
			if !ok {
				row = &domain.PaymentSummaryRow{Method: p.Method, Status: p.Status}
				rows[k] = row
			}
			row.Count++
			row.Amount = row.Amount.Add(p.Amount)
		}
	}

	out := make([]domain.PaymentSummaryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Method != out[j].Method {
			return out[i].Method < out[j].Method
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string
	next  int

	// Counters for verification
	AcquireCount int32
	ReleaseCount int32

	// Error injection
	Busy         bool
	AcquireError error
	// BusyAttempts makes the next N acquires find the lock held.
	BusyAttempts int
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

func (m *MockLockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (string, error) {
	atomic.AddInt32(&m.AcquireCount, 1)
	if m.AcquireError != nil {
		return "", m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Busy {
		return "", nil
	}
	if m.BusyAttempts > 0 {
		m.BusyAttempts--
		return "", nil
	}
	if _, held := m.locks[tripID]; held {
		return "", nil
	}
	m.next++
	token := fmt.Sprintf("token-%d", m.next)
	m.locks[tripID] = token
	return token, nil
}

func (m *MockLockStore) ReleaseTripLock(ctx context.Context, tripID, token string) error {
	atomic.AddInt32(&m.ReleaseCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[tripID] == token {
		delete(m.locks, tripID)
	}
	return nil
}

// Hold takes the lock on behalf of another writer.
func (m *MockLockStore) Hold(tripID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[tripID] = "other-writer"
}

// Held reports whether a trip's lock is held.
func (m *MockLockStore) Held(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK POLICY CACHE
// ──────────────────────────────────────────────

// MockPolicyCache is a mock implementation of PolicyCacheInterface.
type MockPolicyCache struct {
	mu       sync.RWMutex
	policies map[string]domain.Policy

	// Counters for verification
	GetCount        int32
	SetCount        int32
	InvalidateCount int32

	// Error injection
	GetError error
}

// NewMockPolicyCache creates a new mock policy cache.
func NewMockPolicyCache() *MockPolicyCache {
	return &MockPolicyCache{policies: make(map[string]domain.Policy)}
}

func (m *MockPolicyCache) GetPolicy(ctx context.Context, tenantID string) (*domain.Policy, error) {
	atomic.AddInt32(&m.GetCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[tenantID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockPolicyCache) SetPolicy(ctx context.Context, policy domain.Policy) error {
	atomic.AddInt32(&m.SetCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.TenantID] = policy
	return nil
}

func (m *MockPolicyCache) InvalidatePolicy(ctx context.Context, tenantID string) error {
	atomic.AddInt32(&m.InvalidateCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.policies, tenantID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published transitions.
type MockPublisher struct {
	mu          sync.Mutex
	transitions []domain.Transition

	// Error injection
	PublishError error
}

func (m *MockPublisher) Publish(ctx context.Context, tr domain.Transition) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, tr)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Transitions returns the published transitions in order.
func (m *MockPublisher) Transitions() []domain.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Transition(nil), m.transitions...)
}

// ──────────────────────────────────────────────
// MOCK GATEWAYS
// ──────────────────────────────────────────────

// ErrGatewayDown is a canned gateway error.
var ErrGatewayDown = errors.New("gateway unavailable")

// MockRazorpay is a mock Razorpay gateway.
type MockRazorpay struct {
	mu     sync.Mutex
	orders []payments.RazorpayOrder

	// Counters for verification
	CreateCount int32

	// Error injection
	CreateError    error
	ValidSignature bool
	// OnCreate runs while the order is being created, before the result.
	OnCreate func()
}

func (m *MockRazorpay) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*payments.RazorpayOrder, error) {
	n := atomic.AddInt32(&m.CreateCount, 1)
	if m.OnCreate != nil {
		m.OnCreate()
	}
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	order := payments.RazorpayOrder{
		ID:       fmt.Sprintf("order_%d", n),
		Amount:   payments.MinorUnits(amount),
		Currency: currency,
		KeyID:    "rzp_test_key",
	}
	m.mu.Lock()
	m.orders = append(m.orders, order)
	m.mu.Unlock()
	return &order, nil
}

func (m *MockRazorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return m.ValidSignature
}

// MockStripe is a mock Stripe gateway.
type MockStripe struct {
	mu      sync.Mutex
	intents map[string]payments.StripeIntent

	// Counters for verification
	CreateCount int32
	GetCount    int32

	// Error injection
	CreateError error
	GetError    error
}

// NewMockStripe creates a new mock Stripe gateway.
func NewMockStripe() *MockStripe {
	return &MockStripe{intents: make(map[string]payments.StripeIntent)}
}

func (m *MockStripe) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*payments.StripeIntent, error) {
	n := atomic.AddInt32(&m.CreateCount, 1)
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	intent := payments.StripeIntent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
		Status:       "requires_payment_method",
	}
	m.mu.Lock()
	m.intents[intent.ID] = intent
	m.mu.Unlock()
	return &intent, nil
}

func (m *MockStripe) GetIntent(ctx context.Context, id string) (*payments.StripeIntent, error) {
	atomic.AddInt32(&m.GetCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment_intent: %s", id)
	}
	return &intent, nil
}

// SetStatus moves an intent to a new status, as Stripe would.
func (m *MockStripe) SetStatus(id, status, chargeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent := m.intents[id]
	intent.Status = status
	intent.ChargeID = chargeID
	m.intents[id] = intent
}

// Decline records a declined attempt on an intent.
func (m *MockStripe) Decline(id, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent := m.intents[id]
	intent.Status = "requires_payment_method"
	intent.LastError = message
	m.intents[id] = intent
}
