package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"scooter/internal/backend"
	"scooter/internal/domain"
	"scooter/internal/redis"
	"scooter/internal/repository"
	"scooter/internal/service"
)

// Ensure mocks implement the interfaces they stand in for.
var (
	_ redis.SessionStoreInterface       = (*MockSessionStore)(nil)
	_ service.RentalAPI                 = (*MockRentalAPI)(nil)
	_ service.ScooterAPI                = (*MockRentalAPI)(nil)
	_ repository.SessionEventRepository = (*MockSessionEventRepository)(nil)
)

// ErrMockTransport simulates a network failure.
var ErrMockTransport = errors.New("mock transport failure")

// ──────────────────────────────────────────────
// MOCK SESSION STORE
// ──────────────────────────────────────────────

// MockSessionStore is an in-memory implementation of redis.SessionStoreInterface.
type MockSessionStore struct {
	mu     sync.RWMutex
	values map[string]string

	// Counters for verification
	GetCallCount int32
	SetCallCount int32

	// Error injection
	GetError error
	SetError error
}

// NewMockSessionStore creates a new mock session store.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{values: make(map[string]string)}
}

// Put writes a value directly, bypassing counters.
func (m *MockSessionStore) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Value reads a value directly, bypassing counters.
func (m *MockSessionStore) Value(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}

func (m *MockSessionStore) Get(ctx context.Context, key string) (string, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return "", m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

// Clear drops every value, as if the session had expired.
func (m *MockSessionStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
}

func (m *MockSessionStore) Set(ctx context.Context, key, value string) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// ──────────────────────────────────────────────
// MOCK RENTAL API
// ──────────────────────────────────────────────

// MockRentalAPI is a scriptable implementation of service.RentalAPI.
type MockRentalAPI struct {
	mu sync.Mutex

	unlockResult *backend.UnlockResult
	lockResult   *backend.LockResult
	onUnlock     func()
	rentals      map[string]*domain.Rental
	activeByUser map[string]*domain.Rental
	users        map[string]*domain.User
	scooters     map[string]*domain.Scooter
	pollResults  []domain.PollResult

	// Counters for verification
	UnlockCallCount       int32
	LockCallCount         int32
	GetRentalCallCount    int32
	ActiveRentalCallCount int32
	PollCallCount         int32
	GetUserCallCount      int32
	GetScooterCallCount   int32

	// Error injection
	UnlockError       error
	LockError         error
	GetRentalError    error
	ActiveRentalError error
	PollError         error
	GetUserError      error
}

// NewMockRentalAPI creates a new mock rental API. Unlock succeeds without a
// rental id and every poll reports ok until scripted otherwise.
func NewMockRentalAPI() *MockRentalAPI {
	return &MockRentalAPI{
		unlockResult: &backend.UnlockResult{},
		lockResult:   &backend.LockResult{},
		rentals:      make(map[string]*domain.Rental),
		activeByUser: make(map[string]*domain.Rental),
		users:        make(map[string]*domain.User),
		scooters:     make(map[string]*domain.Scooter),
	}
}

// SetUnlockRentalID makes Unlock report rentalID.
func (m *MockRentalAPI) SetUnlockRentalID(rentalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockResult = &backend.UnlockResult{RentalID: rentalID}
}

// SetLockRentalID makes Lock report rentalID.
func (m *MockRentalAPI) SetLockRentalID(rentalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockResult = &backend.LockResult{RentalID: rentalID}
}

// OnUnlock runs fn after the backend has accepted an unlock, before Unlock returns.
func (m *MockRentalAPI) OnUnlock(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUnlock = fn
}

// AddRental registers a rental for GetRental and, when active, for ActiveRental.
func (m *MockRentalAPI) AddRental(rental *domain.Rental) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rentals[rental.ID] = rental
	if rental.Active {
		m.activeByUser[rental.UserID] = rental
	}
}

// AddUser registers a user for GetUser.
func (m *MockRentalAPI) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// AddScooter registers a scooter for GetScooter.
func (m *MockRentalAPI) AddScooter(scooter *domain.Scooter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scooters[scooter.ID] = scooter
}

// QueuePollResults scripts the next poll responses. Once exhausted, the last
// result repeats; with none queued, polls report ok.
func (m *MockRentalAPI) QueuePollResults(results ...domain.PollResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollResults = append(m.pollResults, results...)
}

// SetPollError changes the poll error while polling may be running.
func (m *MockRentalAPI) SetPollError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollError = err
}

// Polls returns the number of PollStatus calls so far.
func (m *MockRentalAPI) Polls() int32 {
	return atomic.LoadInt32(&m.PollCallCount)
}

func (m *MockRentalAPI) Unlock(ctx context.Context, scooterID, userID string) (*backend.UnlockResult, error) {
	atomic.AddInt32(&m.UnlockCallCount, 1)
	if m.UnlockError != nil {
		return nil, m.UnlockError
	}
	m.mu.Lock()
	result := *m.unlockResult
	hook := m.onUnlock
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return &result, nil
}

func (m *MockRentalAPI) Lock(ctx context.Context, scooterID, userID string) (*backend.LockResult, error) {
	atomic.AddInt32(&m.LockCallCount, 1)
	if m.LockError != nil {
		return nil, m.LockError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := *m.lockResult
	return &result, nil
}

func (m *MockRentalAPI) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	atomic.AddInt32(&m.GetRentalCallCount, 1)
	if m.GetRentalError != nil {
		return nil, m.GetRentalError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rental, ok := m.rentals[rentalID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *rental
	return &copy, nil
}

func (m *MockRentalAPI) ActiveRental(ctx context.Context, userID string) (*domain.Rental, error) {
	atomic.AddInt32(&m.ActiveRentalCallCount, 1)
	if m.ActiveRentalError != nil {
		return nil, m.ActiveRentalError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rental, ok := m.activeByUser[userID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	copy := *rental
	return &copy, nil
}

func (m *MockRentalAPI) PollStatus(ctx context.Context, rentalID string) (domain.PollResult, error) {
	atomic.AddInt32(&m.PollCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PollError != nil {
		return domain.PollResult{}, m.PollError
	}
	switch len(m.pollResults) {
	case 0:
		return domain.PollResult{OK: true}, nil
	case 1:
		return m.pollResults[0], nil
	default:
		result := m.pollResults[0]
		m.pollResults = m.pollResults[1:]
		return result, nil
	}
}

func (m *MockRentalAPI) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	atomic.AddInt32(&m.GetUserCallCount, 1)
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockRentalAPI) GetScooter(ctx context.Context, scooterID string) (*domain.Scooter, error) {
	atomic.AddInt32(&m.GetScooterCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	scooter, ok := m.scooters[scooterID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	copy := *scooter
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK SESSION EVENT REPOSITORY
// ──────────────────────────────────────────────

// MockSessionEventRepository is a mock implementation of SessionEventRepository.
type MockSessionEventRepository struct {
	mu     sync.RWMutex
	events []*domain.SessionEvent

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockSessionEventRepository creates a new mock session event repository.
func NewMockSessionEventRepository() *MockSessionEventRepository {
	return &MockSessionEventRepository{}
}

func (m *MockSessionEventRepository) Create(ctx context.Context, event *domain.SessionEvent) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockSessionEventRepository) ListByRentalID(ctx context.Context, rentalID string) ([]*domain.SessionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.SessionEvent
	for _, event := range m.events {
		if event.RentalID == rentalID {
			events = append(events, event)
		}
	}
	return events, nil
}

// Phases returns the recorded phases in order.
func (m *MockSessionEventRepository) Phases() []domain.Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	phases := make([]domain.Phase, 0, len(m.events))
	for _, event := range m.events {
		phases = append(phases, event.Phase)
	}
	return phases
}
