package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

// Mock EventNotifier
type mockNotifier struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockNotifier) Notify(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

// Mock TokenService
type mockTokenService struct{}

func (mockTokenService) GenerateToken(ctx context.Context, user *domain.User, ttl time.Duration) (string, error) {
	return "token-" + user.Username, nil
}

func (mockTokenService) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	if token == "token-admin" {
		return &domain.Claims{Username: "admin", Role: domain.RoleAdmin}, nil
	}
	return nil, domain.ErrTokenInvalid
}

type nopLogger struct{}

func (nopLogger) Info(msg string, fields port.Fields)             {}
func (nopLogger) Warn(msg string, fields port.Fields)             {}
func (nopLogger) Error(msg string, err error, fields port.Fields) {}
func (nopLogger) Debug(msg string, fields port.Fields)            {}
func (l nopLogger) WithFields(fields port.Fields) port.LoggerPort { return l }

// lockingStore fails the first n transactions with an optimistic lock error.
type lockingStore struct {
	port.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *lockingStore) WithinTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return port.ErrOptimisticLock
	}
	return s.Store.WithinTx(ctx, fn)
}

var errBoom = errors.New("boom")

// recordingStore records the order of writes made inside transactions.
type recordingStore struct {
	port.Store
	mu     sync.Mutex
	writes []string
}

func (s *recordingStore) WithinTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	return s.Store.WithinTx(ctx, func(tx port.StoreTx) error {
		return fn(&recordingTx{StoreTx: tx, store: s})
	})
}

func (s *recordingStore) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, op)
}

func (s *recordingStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

type recordingTx struct {
	port.StoreTx
	store *recordingStore
}

func (t *recordingTx) UpdateApartmentStatus(ctx context.Context, id uuid.UUID, status domain.ApartmentStatus, expectedVersion int) error {
	t.store.record("apartment")
	return t.StoreTx.UpdateApartmentStatus(ctx, id, status, expectedVersion)
}

func (t *recordingTx) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	t.store.record("reservation")
	return t.StoreTx.DeleteReservation(ctx, id)
}

func (t *recordingTx) MarkReservationConfirmed(ctx context.Context, id uuid.UUID) error {
	t.store.record("reservation")
	return t.StoreTx.MarkReservationConfirmed(ctx, id)
}

func (t *recordingTx) InsertSale(ctx context.Context, sale domain.Sale) error {
	t.store.record("sale")
	return t.StoreTx.InsertSale(ctx, sale)
}
