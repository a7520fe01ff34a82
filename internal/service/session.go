package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scooter/internal/backend"
	"scooter/internal/config"
	"scooter/internal/domain"
	"scooter/internal/metrics"
	"scooter/internal/redis"
	"scooter/internal/repository"
)

// userIDPattern matches positive integers without sign or leading zero.
var userIDPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

const subscriberBuffer = 8

// ValidateUserID checks that a user id is a positive integer string.
func ValidateUserID(userID string) error {
	if !userIDPattern.MatchString(userID) {
		return ErrInvalidUserID
	}
	return nil
}

// SessionDeps contains the collaborators shared by all rental sessions.
type SessionDeps struct {
	API       RentalAPI
	Summaries *SummaryService
	Events    repository.SessionEventRepository // optional
	Timing    config.RentalConfig
	Logger    zerolog.Logger
}

// RentalSession runs the rental lifecycle of one browser session:
// UNLOCKING, then ACTIVE, then one of COMPLETED, ABORTED_WEATHER or ABORTED_EMERGENCY.
// While ACTIVE it owns two background loops, the ride clock and the abort poll.
type RentalSession struct {
	browserSessionID string
	scooterID        string

	store     redis.SessionStoreInterface
	api       RentalAPI
	summaries *SummaryService
	events    repository.SessionEventRepository
	timing    config.RentalConfig
	logger    zerolog.Logger

	// ctx lives until Close; every goroutine the session starts derives from it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	elapsed atomic.Int64

	mu           sync.Mutex
	phase        domain.Phase
	userID       string
	userIDRead   bool
	rentalID     string
	rentalIDRead bool
	greeting     string
	abortReason  domain.AbortReason
	summary      *domain.RideSummary
	inFlight     bool
	stopLoops    context.CancelFunc
	stopPoll     context.CancelFunc
	closed       bool
	subscribers  map[chan domain.SessionSnapshot]struct{}
}

// NewRentalSession creates a session in the UNLOCKING phase.
func NewRentalSession(browserSessionID, scooterID string, store redis.SessionStoreInterface, deps SessionDeps) *RentalSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &RentalSession{
		browserSessionID: browserSessionID,
		scooterID:        scooterID,
		store:            store,
		api:              deps.API,
		summaries:        deps.Summaries,
		events:           deps.Events,
		timing:           deps.Timing,
		logger: deps.Logger.With().
			Str("browser_session_id", browserSessionID).
			Str("scooter_id", scooterID).
			Logger(),
		ctx:         ctx,
		cancel:      cancel,
		phase:       domain.PhaseUnlocking,
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

// ScooterID returns the scooter this session rents.
func (s *RentalSession) ScooterID() string {
	return s.scooterID
}

// Phase returns the current phase.
func (s *RentalSession) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// UserID returns the rider's id. The session store is consulted at most once;
// afterwards the in-memory value wins.
func (s *RentalSession) UserID(ctx context.Context) string {
	return s.readOnce(ctx, domain.SessionKeyUserID, &s.userID, &s.userIDRead)
}

// RentalID returns the rental id with the same read-once rule as UserID.
func (s *RentalSession) RentalID(ctx context.Context) string {
	return s.readOnce(ctx, domain.SessionKeyRentalID, &s.rentalID, &s.rentalIDRead)
}

func (s *RentalSession) readOnce(ctx context.Context, key string, value *string, read *bool) string {
	s.mu.Lock()
	if *value != "" || *read {
		v := *value
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()

	persisted, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("session store read failed")
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if *value == "" && !*read {
		*value = persisted
	}
	*read = true
	return *value
}

// Unlock asks the backend to unlock the scooter for userID. On success the
// identifiers are persisted and the session becomes ACTIVE. On rejection
// nothing is persisted and the returned screen is the reason-coded error page.
func (s *RentalSession) Unlock(ctx context.Context, userID string) (domain.Screen, error) {
	if err := ValidateUserID(userID); err != nil {
		return s.Screen(), err
	}

	s.mu.Lock()
	if err := s.checkLocked(domain.PhaseUnlocking, ErrSessionNotUnlocking); err != nil {
		screen := s.screenLocked()
		s.mu.Unlock()
		return screen, err
	}
	s.inFlight = true
	s.mu.Unlock()

	result, err := s.api.Unlock(ctx, s.scooterID, userID)
	if err != nil {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		return s.unlockFailed(userID, err)
	}

	// The backend has unlocked; a caller that goes away must not stop the ids
	// from being persisted.
	ctx = context.WithoutCancel(ctx)

	rentalID := result.RentalID
	if rentalID == "" {
		rentalID = s.discoverRentalID(ctx, userID)
	}

	if err := s.store.Set(ctx, domain.SessionKeyUserID, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to persist user id")
	}
	if rentalID != "" {
		if err := s.store.Set(ctx, domain.SessionKeyRentalID, rentalID); err != nil {
			s.logger.Warn().Err(err).Str("rental_id", rentalID).Msg("failed to persist rental id")
		}
	}

	s.mu.Lock()
	s.inFlight = false
	if s.closed {
		s.mu.Unlock()
		return domain.Screen{Name: domain.ScreenActive, ScooterID: s.scooterID}, ErrSessionClosed
	}
	s.userID, s.userIDRead = userID, true
	s.rentalID, s.rentalIDRead = rentalID, true
	s.enterActiveLocked()
	screen := s.screenLocked()
	s.mu.Unlock()

	s.logger.Info().Str("user_id", userID).Str("rental_id", rentalID).Msg("scooter unlocked")
	s.afterTransition(ctx, domain.PhaseActive, "")
	return screen, nil
}

func (s *RentalSession) unlockFailed(userID string, err error) (domain.Screen, error) {
	screen := domain.Screen{Name: domain.ScreenError, ScooterID: s.scooterID, Reason: DefaultErrorReason}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Reason != "" {
			screen.Reason = apiErr.Reason
		}
		s.logger.Info().Str("user_id", userID).Str("reason", apiErr.Reason).Msg("unlock rejected")
		return screen, fmt.Errorf("%w: %w", ErrUnlockRejected, err)
	}

	s.logger.Error().Err(err).Str("user_id", userID).Msg("unlock failed")
	return screen, err
}

// Lock ends the ride. A rejected lock leaves the session ACTIVE. If the ride
// was aborted while the lock was in flight, the abort screen is returned.
func (s *RentalSession) Lock(ctx context.Context) (domain.Screen, error) {
	s.mu.Lock()
	if err := s.checkLocked(domain.PhaseActive, ErrSessionNotActive); err != nil {
		screen := s.screenLocked()
		s.mu.Unlock()
		return screen, err
	}
	s.inFlight = true
	userID := s.userID
	s.mu.Unlock()

	result, err := s.api.Lock(ctx, s.scooterID, userID)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		screen := s.screenLocked()
		s.mu.Unlock()
		if errors.Is(err, backend.ErrRejected) {
			s.logger.Info().Err(err).Str("user_id", userID).Msg("lock rejected")
			return screen, fmt.Errorf("%w: %w", ErrLockRejected, err)
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("lock failed")
		return screen, err
	}
	if s.phase != domain.PhaseActive {
		screen := s.screenLocked()
		s.mu.Unlock()
		return screen, nil
	}
	// The lock response names the rental; keep it when discovery never found it
	// so the inactive page can still build the summary.
	learned := ""
	if s.rentalID == "" && result != nil && result.RentalID != "" {
		learned = result.RentalID
		s.rentalID, s.rentalIDRead = learned, true
	}
	s.phase = domain.PhaseCompleted
	s.stopLoopsLocked()
	screen := s.screenLocked()
	rentalID := s.rentalID
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if learned != "" {
		if err := s.store.Set(ctx, domain.SessionKeyRentalID, learned); err != nil {
			s.logger.Warn().Err(err).Str("rental_id", learned).Msg("failed to persist rental id")
		}
	}

	s.logger.Info().Str("user_id", userID).Str("rental_id", rentalID).Msg("scooter locked")
	s.afterTransition(ctx, domain.PhaseCompleted, "")
	return screen, nil
}

// Resume re-enters ACTIVE when the session store already identifies a rental
// that the backend still reports as active for this scooter. The clock restarts at zero.
func (s *RentalSession) Resume(ctx context.Context) error {
	if s.Phase() != domain.PhaseUnlocking {
		return nil
	}

	userID := s.UserID(ctx)
	rentalID := s.RentalID(ctx)
	if userID == "" || rentalID == "" {
		return nil
	}

	rental, err := s.api.GetRental(ctx, rentalID)
	if err != nil {
		return fmt.Errorf("resume rental %s: %w", rentalID, err)
	}
	if !rental.Active || (rental.ScooterID != "" && rental.ScooterID != s.scooterID) {
		return nil
	}

	s.mu.Lock()
	if s.closed || s.inFlight || s.phase != domain.PhaseUnlocking {
		s.mu.Unlock()
		return nil
	}
	s.enterActiveLocked()
	s.mu.Unlock()

	s.logger.Info().Str("user_id", userID).Str("rental_id", rentalID).Msg("rental resumed")
	s.afterTransition(ctx, domain.PhaseActive, "resumed")
	return nil
}

// Close stops both loops, waits for every session goroutine to exit and
// closes all subscriptions. It is safe to call more than once.
func (s *RentalSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLoopsLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// Screen returns the navigation decision for the current phase.
func (s *RentalSession) Screen() domain.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenLocked()
}

// Snapshot returns a point-in-time view of the session.
func (s *RentalSession) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot on every change, starting
// with the current one. Slow receivers miss intermediate snapshots.
func (s *RentalSession) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, subscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

func (s *RentalSession) checkLocked(want domain.Phase, wrongPhase error) error {
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.phase != want:
		return wrongPhase
	case s.inFlight:
		return ErrRequestInProgress
	}
	return nil
}

// enterActiveLocked switches to ACTIVE and starts the clock, the poll loop
// and the greeting lookup. The caller holds s.mu and has checked s.closed.
func (s *RentalSession) enterActiveLocked() {
	s.phase = domain.PhaseActive
	s.elapsed.Store(0)

	loopCtx, stopLoops := context.WithCancel(s.ctx)
	pollCtx, stopPoll := context.WithCancel(loopCtx)
	s.stopLoops = stopLoops
	s.stopPoll = stopPoll
	metrics.ActiveRentalsGauge.Inc()

	s.wg.Add(3)
	go s.runClock(loopCtx)
	go s.runPoll(pollCtx)
	go s.loadGreeting(s.userID)
}

func (s *RentalSession) stopLoopsLocked() {
	if s.stopLoops == nil {
		return
	}
	s.stopLoops()
	s.stopLoops = nil
	s.stopPoll = nil
	metrics.ActiveRentalsGauge.Dec()
}

func (s *RentalSession) runClock(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.timing.ClockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.elapsed.Add(1)
			s.notify()
		}
	}
}

// runPoll checks the rental status every poll interval. Transport errors
// count as "no abort this tick". The first ok=false result ends the loop.
func (s *RentalSession) runPoll(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.timing.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rentalID := s.pollTarget(ctx)
		if rentalID == "" {
			continue
		}

		result, err := s.api.PollStatus(ctx, rentalID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.PollFailuresTotal.Inc()
			s.logger.Warn().Err(err).Str("rental_id", rentalID).Msg("abort poll failed")
			continue
		}
		if result.OK {
			continue
		}

		s.abort(result.Reason)
		return
	}
}

// pollTarget returns the rental to poll, retrying discovery when the unlock
// did not yield a rental id.
func (s *RentalSession) pollTarget(ctx context.Context) string {
	s.mu.Lock()
	rentalID, userID := s.rentalID, s.userID
	s.mu.Unlock()
	if rentalID != "" {
		return rentalID
	}

	discovered := s.discoverRentalID(ctx, userID)
	if discovered == "" {
		return ""
	}
	if err := s.store.Set(ctx, domain.SessionKeyRentalID, discovered); err != nil {
		s.logger.Warn().Err(err).Str("rental_id", discovered).Msg("failed to persist rental id")
	}

	s.mu.Lock()
	if s.rentalID == "" {
		s.rentalID, s.rentalIDRead = discovered, true
	}
	rentalID = s.rentalID
	s.mu.Unlock()

	s.notify()
	return rentalID
}

func (s *RentalSession) discoverRentalID(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	rental, err := s.api.ActiveRental(ctx, userID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("active rental lookup failed")
		}
		return ""
	}
	return rental.ID
}

// abort performs the single ACTIVE to ABORTED_* transition. The poll is
// cancelled before the phase is checked so no later tick can act.
func (s *RentalSession) abort(reason domain.AbortReason) {
	s.mu.Lock()
	if s.stopPoll != nil {
		s.stopPoll()
	}
	if s.phase != domain.PhaseActive {
		s.mu.Unlock()
		return
	}
	branch := DispatchAbort(reason)
	s.phase = abortPhase(branch)
	s.abortReason = reason
	s.stopLoopsLocked()
	phase, userID, rentalID := s.phase, s.userID, s.rentalID
	s.mu.Unlock()

	s.logger.Warn().
		Str("user_id", userID).
		Str("rental_id", rentalID).
		Str("reason", string(reason)).
		Str("branch", string(branch)).
		Msg("ride aborted")
	metrics.AbortsTotal.WithLabelValues(string(branch)).Inc()
	s.afterTransition(s.ctx, phase, string(reason))

	if branch != domain.AbortBranchWeather || s.summaries == nil {
		return
	}
	summary := s.summaries.Build(s.ctx, rentalID, userID)
	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
	s.notify()
}

func (s *RentalSession) loadGreeting(userID string) {
	defer s.wg.Done()

	user, err := s.api.GetUser(s.ctx, userID)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("greeting lookup failed")
		}
		return
	}

	s.mu.Lock()
	s.greeting = user.FirstName()
	s.mu.Unlock()
	s.notify()
}

func (s *RentalSession) afterTransition(ctx context.Context, phase domain.Phase, reason string) {
	metrics.SessionTransitionsTotal.WithLabelValues(string(phase)).Inc()
	s.record(ctx, phase, reason)
	s.notify()
}

func (s *RentalSession) record(ctx context.Context, phase domain.Phase, reason string) {
	if s.events == nil {
		return
	}

	s.mu.Lock()
	event := &domain.SessionEvent{
		ID:               uuid.New().String(),
		BrowserSessionID: s.browserSessionID,
		ScooterID:        s.scooterID,
		UserID:           s.userID,
		RentalID:         s.rentalID,
		Phase:            phase,
		Reason:           reason,
		CreatedAt:        time.Now(),
	}
	s.mu.Unlock()

	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("phase", string(phase)).Msg("failed to record session event")
	}
}

func (s *RentalSession) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subscribers) == 0 {
		return
	}
	snapshot := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (s *RentalSession) screenLocked() domain.Screen {
	switch s.phase {
	case domain.PhaseActive:
		return domain.Screen{Name: domain.ScreenActive, ScooterID: s.scooterID}
	case domain.PhaseCompleted:
		return domain.Screen{Name: domain.ScreenInactive, ScooterID: s.scooterID}
	case domain.PhaseAbortedWeather, domain.PhaseAbortedEmergency:
		reason := string(s.abortReason)
		if reason == "" {
			reason = string(DispatchAbort(s.abortReason))
		}
		return domain.Screen{
			Name:      domain.ScreenAbort,
			ScooterID: s.scooterID,
			Reason:    reason,
			RentalID:  s.rentalID,
			UserID:    s.userID,
		}
	default:
		return domain.Screen{Name: domain.ScreenRent, ScooterID: s.scooterID}
	}
}

func (s *RentalSession) snapshotLocked() domain.SessionSnapshot {
	elapsed := s.elapsed.Load()
	return domain.SessionSnapshot{
		Phase:          s.phase,
		ScooterID:      s.scooterID,
		UserID:         s.userID,
		RentalID:       s.rentalID,
		Greeting:       s.greeting,
		ElapsedSeconds: elapsed,
		Clock:          FormatClock(elapsed),
		AbortReason:    s.abortReason,
		Summary:        s.summary,
		Screen:         s.screenLocked(),
	}
}
