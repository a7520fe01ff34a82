package service

import "errors"

var (
	// ErrInvalidUserID is returned when a user id is not a positive integer string.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidScooterID is returned when scooter ID is empty.
	ErrInvalidScooterID = errors.New("invalid scooter id")

	// ErrSessionNotUnlocking is returned when unlocking a session that already left UNLOCKING.
	ErrSessionNotUnlocking = errors.New("session is not awaiting unlock")

	// ErrSessionNotActive is returned when locking a session that is not ACTIVE.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrRequestInProgress is returned when an unlock or lock is already in flight.
	ErrRequestInProgress = errors.New("request already in progress")

	// ErrUnlockRejected is returned when the backend declines an unlock.
	ErrUnlockRejected = errors.New("unlock rejected")

	// ErrLockRejected is returned when the backend declines a lock.
	ErrLockRejected = errors.New("lock rejected")

	// ErrScooterMismatch is returned when a request names a scooter other than
	// the one the browser session is renting.
	ErrScooterMismatch = errors.New("session is renting a different scooter")

	// ErrSessionClosed is returned when operating on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrScooterNotFound is returned when the backend has no such scooter.
	ErrScooterNotFound = errors.New("scooter not found")

	// ErrNoRental is returned when the browser session holds no rental id.
	ErrNoRental = errors.New("no rental in this session")

	// ErrNoSession is returned when the browser session has no rental session.
	ErrNoSession = errors.New("no rental session")
)
