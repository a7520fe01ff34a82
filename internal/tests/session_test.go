package tests

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scooter/internal/backend"
	"scooter/internal/config"
	"scooter/internal/domain"
	"scooter/internal/service"
)

const (
	testPollInterval  = 20 * time.Millisecond
	testClockInterval = 10 * time.Millisecond
)

func newTestDeps(api *MockRentalAPI, events *MockSessionEventRepository) service.SessionDeps {
	logger := zerolog.Nop()
	durations := service.NewDurationCalculator(-2 * time.Hour)
	deps := service.SessionDeps{
		API:       api,
		Summaries: service.NewSummaryService(api, durations, logger),
		Timing: config.RentalConfig{
			PollInterval:      testPollInterval,
			ClockInterval:     testClockInterval,
			EndTimeCorrection: -2 * time.Hour,
		},
		Logger: logger,
	}
	// Leave the interface nil rather than holding a typed nil pointer.
	if events != nil {
		deps.Events = events
	}
	return deps
}

func newTestSession(t *testing.T, store *MockSessionStore, api *MockRentalAPI, events *MockSessionEventRepository) *service.RentalSession {
	t.Helper()
	session := service.NewRentalSession("browser-1", "5", store, newTestDeps(api, events))
	t.Cleanup(session.Close)
	return session
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func rejection(reason string) error {
	return &backend.APIError{Operation: "unlock", StatusCode: http.StatusBadRequest, Reason: reason, Message: "declined"}
}

// ──────────────────────────────────────────────
// 3. UNLOCK
// ──────────────────────────────────────────────

func TestSession_UnlockValidatesUserID(t *testing.T) {
	t.Parallel()

	testCases := []string{"", "0", "007", "-1", "+3", "1.5", "abc", "12a", " 7"}

	for _, userID := range testCases {
		t.Run(userID, func(t *testing.T) {
			store := NewMockSessionStore()
			api := NewMockRentalAPI()
			session := newTestSession(t, store, api, nil)

			_, err := session.Unlock(context.Background(), userID)
			if !errors.Is(err, service.ErrInvalidUserID) {
				t.Errorf("expected ErrInvalidUserID for %q, got %v", userID, err)
			}
			if api.UnlockCallCount != 0 {
				t.Errorf("expected no unlock call, got %d", api.UnlockCallCount)
			}
		})
	}
}

func TestSession_UnlockRejectionLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.UnlockError = rejection("low-battery")
	session := newTestSession(t, store, api, nil)

	screen, err := session.Unlock(context.Background(), "7")
	if !errors.Is(err, service.ErrUnlockRejected) {
		t.Fatalf("expected ErrUnlockRejected, got %v", err)
	}
	if !errors.Is(err, backend.ErrRejected) {
		t.Errorf("expected error to wrap backend.ErrRejected, got %v", err)
	}
	if screen.Path() != "/error/low-battery" {
		t.Errorf("expected /error/low-battery, got %s", screen.Path())
	}

	// Give any wrongly started loop time to tick.
	time.Sleep(5 * testPollInterval)

	if store.SetCallCount != 0 {
		t.Errorf("expected no store writes, got %d", store.SetCallCount)
	}
	if store.Value(domain.SessionKeyUserID) != "" || store.Value(domain.SessionKeyRentalID) != "" {
		t.Error("expected session store to stay empty")
	}
	if api.Polls() != 0 {
		t.Errorf("expected no polls, got %d", api.Polls())
	}
	snapshot := session.Snapshot()
	if snapshot.ElapsedSeconds != 0 {
		t.Errorf("expected clock not started, got %d", snapshot.ElapsedSeconds)
	}
	if snapshot.Phase != domain.PhaseUnlocking {
		t.Errorf("expected phase %s, got %s", domain.PhaseUnlocking, snapshot.Phase)
	}
}

func TestSession_UnlockRejectionWithoutReason(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.UnlockError = rejection("")
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	screen, err := session.Unlock(context.Background(), "7")
	if err == nil {
		t.Fatal("expected error")
	}
	if screen.Reason != service.DefaultErrorReason {
		t.Errorf("expected reason %s, got %s", service.DefaultErrorReason, screen.Reason)
	}
}

func TestSession_UnlockTransportFailure(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.UnlockError = ErrMockTransport
	session := newTestSession(t, store, api, nil)

	screen, err := session.Unlock(context.Background(), "7")
	if !errors.Is(err, ErrMockTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if errors.Is(err, service.ErrUnlockRejected) {
		t.Error("transport failure must not be reported as a rejection")
	}
	if screen.Name != domain.ScreenError {
		t.Errorf("expected error screen, got %s", screen.Name)
	}
	if store.SetCallCount != 0 {
		t.Errorf("expected no store writes, got %d", store.SetCallCount)
	}

	// The rider may try again.
	api.UnlockError = nil
	api.SetUnlockRentalID("99")
	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if session.Phase() != domain.PhaseActive {
		t.Errorf("expected phase %s, got %s", domain.PhaseActive, session.Phase())
	}
}

func TestSession_UnlockSuccessPersistsAndStartsLoops(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	api.AddUser(&domain.User{ID: "7", Name: "Ada Lovelace", Balance: 12.5})
	events := NewMockSessionEventRepository()
	session := newTestSession(t, store, api, events)

	screen, err := session.Unlock(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Path() != "/scooter/5/active" {
		t.Errorf("expected /scooter/5/active, got %s", screen.Path())
	}
	if store.Value(domain.SessionKeyUserID) != "7" {
		t.Errorf("expected userId 7 persisted, got %q", store.Value(domain.SessionKeyUserID))
	}
	if store.Value(domain.SessionKeyRentalID) != "99" {
		t.Errorf("expected rentalId 99 persisted, got %q", store.Value(domain.SessionKeyRentalID))
	}

	waitFor(t, time.Second, func() bool { return session.Snapshot().ElapsedSeconds >= 2 }, "clock to tick")
	waitFor(t, time.Second, func() bool { return api.Polls() >= 1 }, "first poll")
	waitFor(t, time.Second, func() bool { return session.Snapshot().Greeting == "Ada" }, "greeting")

	if session.UserID(context.Background()) != "7" || session.RentalID(context.Background()) != "99" {
		t.Error("expected identifiers in memory after unlock")
	}
	if phases := events.Phases(); len(phases) != 1 || phases[0] != domain.PhaseActive {
		t.Errorf("expected one ACTIVE event, got %v", phases)
	}
}

func TestSession_UnlockDiscoversRentalID(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.AddRental(&domain.Rental{ID: "99", UserID: "7", ScooterID: "5", Active: true})
	session := newTestSession(t, store, api, nil)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Value(domain.SessionKeyRentalID) != "99" {
		t.Errorf("expected rentalId 99 persisted, got %q", store.Value(domain.SessionKeyRentalID))
	}
	if api.ActiveRentalCallCount != 1 {
		t.Errorf("expected 1 active rental lookup, got %d", api.ActiveRentalCallCount)
	}
}

func TestSession_RentalDiscoveryRetriesOnPollTicks(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	session := newTestSession(t, store, api, nil)

	// The backend does not know the rental yet; unlock still succeeds.
	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Phase() != domain.PhaseActive {
		t.Fatalf("expected phase %s, got %s", domain.PhaseActive, session.Phase())
	}
	if store.Value(domain.SessionKeyRentalID) != "" {
		t.Error("expected no rentalId persisted yet")
	}
	time.Sleep(3 * testPollInterval)
	if api.Polls() != 0 {
		t.Errorf("expected no polls without a rental id, got %d", api.Polls())
	}

	api.AddRental(&domain.Rental{ID: "99", UserID: "7", ScooterID: "5", Active: true})

	waitFor(t, time.Second, func() bool { return store.Value(domain.SessionKeyRentalID) == "99" }, "rental id discovery")
	waitFor(t, time.Second, func() bool { return api.Polls() >= 1 }, "poll after discovery")
}

func TestSession_GreetingFailureDoesNotBlockRide(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	api.GetUserError = ErrMockTransport
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&api.GetUserCallCount) >= 1 }, "greeting lookup")
	waitFor(t, time.Second, func() bool { return api.Polls() >= 2 }, "polling continues")

	snapshot := session.Snapshot()
	if snapshot.Greeting != "" {
		t.Errorf("expected empty greeting, got %q", snapshot.Greeting)
	}
	if snapshot.Phase != domain.PhaseActive {
		t.Errorf("expected phase %s, got %s", domain.PhaseActive, snapshot.Phase)
	}
}

func TestSession_UnlockTwiceIsRejected(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	screen, err := session.Unlock(context.Background(), "7")
	if !errors.Is(err, service.ErrSessionNotUnlocking) {
		t.Errorf("expected ErrSessionNotUnlocking, got %v", err)
	}
	if screen.Name != domain.ScreenActive {
		t.Errorf("expected active screen, got %s", screen.Name)
	}
	if api.UnlockCallCount != 1 {
		t.Errorf("expected 1 unlock call, got %d", api.UnlockCallCount)
	}
}

// ──────────────────────────────────────────────
// 4. ABORT POLLING
// ──────────────────────────────────────────────

func TestSession_EmergencyAbortStopsPolling(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	api.QueuePollResults(
		domain.PollResult{OK: true},
		domain.PollResult{OK: false, Reason: domain.AbortReasonDistress},
	)
	events := NewMockSessionEventRepository()
	session := newTestSession(t, NewMockSessionStore(), api, events)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, time.Second, func() bool { return session.Phase() == domain.PhaseAbortedEmergency }, "emergency abort")

	polls := api.Polls()
	elapsed := session.Snapshot().ElapsedSeconds
	time.Sleep(5 * testPollInterval)

	if api.Polls() != polls {
		t.Errorf("expected polling to stop at %d, got %d", polls, api.Polls())
	}
	if polls != 2 {
		t.Errorf("expected exactly 2 polls, got %d", polls)
	}

	snapshot := session.Snapshot()
	if snapshot.ElapsedSeconds != elapsed {
		t.Errorf("expected clock stopped at %d, got %d", elapsed, snapshot.ElapsedSeconds)
	}
	if snapshot.Summary != nil {
		t.Error("expected no summary for emergency abort")
	}
	if snapshot.Screen.Path() != "/abort/distress/99/7" {
		t.Errorf("expected /abort/distress/99/7, got %s", snapshot.Screen.Path())
	}
	if api.GetRentalCallCount != 0 {
		t.Errorf("expected no rental lookup for emergency, got %d", api.GetRentalCallCount)
	}

	phases := events.Phases()
	if len(phases) != 2 || phases[1] != domain.PhaseAbortedEmergency {
		t.Errorf("expected exactly one abort transition, got %v", phases)
	}
}

func TestSession_RepeatedNegativePollsTransitionOnce(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	// Every poll would report an abort.
	api.QueuePollResults(domain.PollResult{OK: false, Reason: "bad-weather"})
	events := NewMockSessionEventRepository()
	session := newTestSession(t, NewMockSessionStore(), api, events)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, time.Second, func() bool { return session.Phase() == domain.PhaseAbortedWeather }, "weather abort")
	time.Sleep(5 * testPollInterval)

	if api.Polls() != 1 {
		t.Errorf("expected a single poll, got %d", api.Polls())
	}
	if phases := events.Phases(); len(phases) != 2 {
		t.Errorf("expected ACTIVE and one abort event, got %v", phases)
	}
}

func TestSession_PollTransportErrorContinuesRide(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	api.SetPollError(ErrMockTransport)
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, time.Second, func() bool { return api.Polls() >= 3 }, "polls despite errors")
	if session.Phase() != domain.PhaseActive {
		t.Fatalf("expected phase %s, got %s", domain.PhaseActive, session.Phase())
	}

	api.QueuePollResults(domain.PollResult{OK: false, Reason: "volcano"})
	api.SetPollError(nil)

	waitFor(t, time.Second, func() bool { return session.Phase() == domain.PhaseAbortedWeather }, "unknown reason falls back to weather")
}

func TestSession_EndToEndWeatherAbort(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	api.AddUser(&domain.User{ID: "7", Name: "Ada Lovelace", Balance: 12.5})
	api.AddRental(&domain.Rental{
		ID:        "99",
		UserID:    "7",
		ScooterID: "5",
		StartTime: "2025-03-31T11:25:29",
		EndTime:   "2025-03-31T13:27:30",
		Price:     4.5,
	})
	session := service.NewRentalSession("browser-1", "5", store, service.SessionDeps{
		API:       api,
		Summaries: service.NewSummaryService(api, service.NewDurationCalculator(-2*time.Hour), zerolog.Nop()),
		Timing: config.RentalConfig{
			PollInterval:  150 * time.Millisecond,
			ClockInterval: 50 * time.Millisecond,
		},
		Logger: zerolog.Nop(),
	})
	t.Cleanup(session.Close)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := session.Snapshot()
	if start.Phase != domain.PhaseActive {
		t.Fatalf("expected phase %s, got %s", domain.PhaseActive, start.Phase)
	}
	if start.Clock != "00:00:00" {
		t.Errorf("expected clock to start at 00:00:00, got %s", start.Clock)
	}
	if store.Value(domain.SessionKeyUserID) != "7" || store.Value(domain.SessionKeyRentalID) != "99" {
		t.Error("expected userId 7 and rentalId 99 persisted")
	}
	waitFor(t, time.Second, func() bool { return session.Snapshot().ElapsedSeconds >= 2 }, "clock increments")

	api.QueuePollResults(domain.PollResult{OK: false, Reason: "bad-weather"})

	waitFor(t, 2*time.Second, func() bool { return session.Snapshot().Summary != nil }, "weather summary")

	snapshot := session.Snapshot()
	if snapshot.Phase != domain.PhaseAbortedWeather {
		t.Errorf("expected phase %s, got %s", domain.PhaseAbortedWeather, snapshot.Phase)
	}
	if snapshot.Summary.Duration == nil || snapshot.Summary.Duration.String() != "00:02:01" {
		t.Errorf("expected duration 00:02:01, got %v", snapshot.Summary.Duration)
	}
	if snapshot.Summary.Price != 4.5 {
		t.Errorf("expected price 4.5, got %v", snapshot.Summary.Price)
	}
	if snapshot.Summary.Balance != 12.5 {
		t.Errorf("expected balance 12.5, got %v", snapshot.Summary.Balance)
	}
	if snapshot.Screen.Path() != "/abort/bad-weather/99/7" {
		t.Errorf("expected /abort/bad-weather/99/7, got %s", snapshot.Screen.Path())
	}

	polls := api.Polls()
	time.Sleep(400 * time.Millisecond)
	if api.Polls() != polls {
		t.Errorf("expected polling stopped at %d, got %d", polls, api.Polls())
	}
}

// ──────────────────────────────────────────────
// 5. LOCK
// ──────────────────────────────────────────────

func TestSession_LockCompletesRide(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	events := NewMockSessionEventRepository()
	session := newTestSession(t, store, api, events)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return api.Polls() >= 1 }, "first poll")
	writes := store.SetCallCount

	screen, err := session.Lock(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Path() != "/scooter/5/inactive" {
		t.Errorf("expected /scooter/5/inactive, got %s", screen.Path())
	}
	if session.Phase() != domain.PhaseCompleted {
		t.Errorf("expected phase %s, got %s", domain.PhaseCompleted, session.Phase())
	}

	polls := api.Polls()
	elapsed := session.Snapshot().ElapsedSeconds
	time.Sleep(5 * testPollInterval)

	if api.Polls() != polls {
		t.Errorf("expected polling stopped at %d, got %d", polls, api.Polls())
	}
	if session.Snapshot().ElapsedSeconds != elapsed {
		t.Error("expected clock stopped after lock")
	}
	if store.SetCallCount != writes {
		t.Errorf("expected no store writes after lock, got %d more", store.SetCallCount-writes)
	}
	if phases := events.Phases(); len(phases) != 2 || phases[1] != domain.PhaseCompleted {
		t.Errorf("expected ACTIVE then COMPLETED, got %v", phases)
	}
}

func TestSession_LockRejectedKeepsRideActive(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	api.LockError = &backend.APIError{Operation: "lock", StatusCode: http.StatusBadRequest, Message: "declined"}
	screen, err := session.Lock(context.Background())
	if !errors.Is(err, service.ErrLockRejected) {
		t.Fatalf("expected ErrLockRejected, got %v", err)
	}
	if screen.Name != domain.ScreenActive {
		t.Errorf("expected active screen, got %s", screen.Name)
	}

	pollsBefore := api.Polls()
	waitFor(t, time.Second, func() bool { return api.Polls() > pollsBefore }, "polling continues after rejected lock")
	if session.Phase() != domain.PhaseActive {
		t.Errorf("expected phase %s, got %s", domain.PhaseActive, session.Phase())
	}
}

func TestSession_LockPersistsRentalIDWhenDiscoveryFailed(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.ActiveRentalError = ErrMockTransport
	api.SetLockRentalID("99")
	session := newTestSession(t, store, api, nil)

	ctx := context.Background()
	if _, err := session.Unlock(ctx, "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Value(domain.SessionKeyRentalID) != "" {
		t.Fatalf("expected no rentalId before lock, got %q", store.Value(domain.SessionKeyRentalID))
	}

	if _, err := session.Lock(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Phase() != domain.PhaseCompleted {
		t.Errorf("expected phase %s, got %s", domain.PhaseCompleted, session.Phase())
	}
	if store.Value(domain.SessionKeyRentalID) != "99" {
		t.Errorf("expected rentalId 99 persisted on lock, got %q", store.Value(domain.SessionKeyRentalID))
	}
	if got := session.RentalID(ctx); got != "99" {
		t.Errorf("expected rental 99 in memory, got %q", got)
	}
}

func TestSession_LockKeepsKnownRentalID(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	api.SetLockRentalID("100")
	session := newTestSession(t, store, api, nil)

	ctx := context.Background()
	if _, err := session.Unlock(ctx, "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := session.Lock(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Value(domain.SessionKeyRentalID) != "99" || session.RentalID(ctx) != "99" {
		t.Errorf("expected rental 99 kept, got store=%q memory=%q",
			store.Value(domain.SessionKeyRentalID), session.RentalID(ctx))
	}
}

func TestSession_UnlockPersistsAfterCallerGoesAway(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	session := newTestSession(t, store, api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api.OnUnlock(cancel)

	if _, err := session.Unlock(ctx, "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Phase() != domain.PhaseActive {
		t.Errorf("expected phase %s, got %s", domain.PhaseActive, session.Phase())
	}
	if store.Value(domain.SessionKeyUserID) != "7" {
		t.Errorf("expected userId 7 persisted, got %q", store.Value(domain.SessionKeyUserID))
	}
	if store.Value(domain.SessionKeyRentalID) != "99" {
		t.Errorf("expected rentalId 99 persisted, got %q", store.Value(domain.SessionKeyRentalID))
	}
}

func TestSession_LockBeforeUnlock(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	_, err := session.Lock(context.Background())
	if !errors.Is(err, service.ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive, got %v", err)
	}
	if api.LockCallCount != 0 {
		t.Errorf("expected no lock call, got %d", api.LockCallCount)
	}
}

func TestSession_LockAfterAbortReturnsAbortScreen(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	api.QueuePollResults(domain.PollResult{OK: false, Reason: domain.AbortReasonDistress})
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return session.Phase() == domain.PhaseAbortedEmergency }, "abort")

	screen, err := session.Lock(context.Background())
	if !errors.Is(err, service.ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive, got %v", err)
	}
	if screen.Name != domain.ScreenAbort {
		t.Errorf("expected abort screen, got %s", screen.Name)
	}
}

// ──────────────────────────────────────────────
// 6. SESSION IDENTITY AND TEARDOWN
// ──────────────────────────────────────────────

func TestSession_RestoreReadsStoreOnce(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	store.Put(domain.SessionKeyUserID, "42")
	session := newTestSession(t, store, NewMockRentalAPI(), nil)
	ctx := context.Background()

	if got := session.UserID(ctx); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}

	// Another tab writes a different value.
	store.Put(domain.SessionKeyUserID, "13")

	if got := session.UserID(ctx); got != "42" {
		t.Errorf("expected in-memory 42 to win, got %q", got)
	}
	if store.GetCallCount != 1 {
		t.Errorf("expected a single store read, got %d", store.GetCallCount)
	}
}

func TestSession_EmptyStoreIsReadOnce(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	session := newTestSession(t, store, NewMockRentalAPI(), nil)
	ctx := context.Background()

	if got := session.RentalID(ctx); got != "" {
		t.Fatalf("expected empty rental id, got %q", got)
	}
	store.Put(domain.SessionKeyRentalID, "99")
	if got := session.RentalID(ctx); got != "" {
		t.Errorf("expected store not to be consulted again, got %q", got)
	}
}

func TestSession_ResumeActiveRental(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	store.Put(domain.SessionKeyUserID, "7")
	store.Put(domain.SessionKeyRentalID, "99")
	api := NewMockRentalAPI()
	api.AddRental(&domain.Rental{ID: "99", UserID: "7", ScooterID: "5", Active: true})
	session := newTestSession(t, store, api, nil)

	if err := session.Resume(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Phase() != domain.PhaseActive {
		t.Fatalf("expected phase %s, got %s", domain.PhaseActive, session.Phase())
	}
	waitFor(t, time.Second, func() bool { return api.Polls() >= 1 }, "poll after resume")
	if api.UnlockCallCount != 0 {
		t.Errorf("expected no unlock call, got %d", api.UnlockCallCount)
	}
}

func TestSession_ResumeIgnoresFinishedRental(t *testing.T) {
	t.Parallel()

	store := NewMockSessionStore()
	store.Put(domain.SessionKeyUserID, "7")
	store.Put(domain.SessionKeyRentalID, "99")
	api := NewMockRentalAPI()
	api.AddRental(&domain.Rental{ID: "99", UserID: "7", ScooterID: "5", Active: false})
	session := newTestSession(t, store, api, nil)

	if err := session.Resume(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Phase() != domain.PhaseUnlocking {
		t.Errorf("expected phase %s, got %s", domain.PhaseUnlocking, session.Phase())
	}
}

func TestSession_CloseStopsLoops(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	session := service.NewRentalSession("browser-1", "5", NewMockSessionStore(), newTestDeps(api, nil))

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return api.Polls() >= 1 }, "first poll")

	session.Close()
	session.Close()

	polls := api.Polls()
	elapsed := session.Snapshot().ElapsedSeconds
	time.Sleep(5 * testPollInterval)

	if api.Polls() != polls {
		t.Errorf("expected no polls after close, got %d more", api.Polls()-polls)
	}
	if session.Snapshot().ElapsedSeconds != elapsed {
		t.Error("expected clock stopped after close")
	}

	updates, _ := session.Subscribe()
	if _, ok := <-updates; ok {
		t.Error("expected closed subscription after close")
	}
}

func TestSession_SubscribeReceivesTransitions(t *testing.T) {
	t.Parallel()

	api := NewMockRentalAPI()
	api.SetUnlockRentalID("99")
	session := newTestSession(t, NewMockSessionStore(), api, nil)

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	first := <-updates
	if first.Phase != domain.PhaseUnlocking {
		t.Fatalf("expected initial phase %s, got %s", domain.PhaseUnlocking, first.Phase)
	}

	if _, err := session.Unlock(context.Background(), "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timeout := time.After(time.Second)
	for {
		select {
		case snapshot := <-updates:
			if snapshot.Phase == domain.PhaseActive {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for ACTIVE snapshot")
		}
	}
}
