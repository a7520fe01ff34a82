package domain

import "time"

// Session store keys. They mirror the browser's sessionStorage entries.
const (
	SessionKeyUserID   = "userId"
	SessionKeyRentalID = "rentalId"
)

// Phase represents the current phase of a rental session.
type Phase string

const (
	PhaseUnlocking        Phase = "UNLOCKING"
	PhaseActive           Phase = "ACTIVE"
	PhaseCompleted        Phase = "COMPLETED"
	PhaseAbortedWeather   Phase = "ABORTED_WEATHER"
	PhaseAbortedEmergency Phase = "ABORTED_EMERGENCY"
)

// Terminal reports whether no further transition can leave this phase.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseAbortedWeather, PhaseAbortedEmergency:
		return true
	default:
		return false
	}
}

// AbortReason is the server-supplied code explaining why a ride was aborted.
type AbortReason string

const (
	AbortReasonWeather  AbortReason = "weather"
	AbortReasonDistress AbortReason = "distress"
)

// AbortBranch is the abort screen variant chosen for a reason.
type AbortBranch string

const (
	AbortBranchWeather   AbortBranch = "weather"
	AbortBranchEmergency AbortBranch = "emergency"
)

// PollResult is the outcome of one abort-status poll.
type PollResult struct {
	OK     bool
	Reason AbortReason
}

// SessionSnapshot is a point-in-time view of a rental session for rendering.
type SessionSnapshot struct {
	Phase          Phase        `json:"phase"`
	ScooterID      string       `json:"scooter_id"`
	UserID         string       `json:"user_id,omitempty"`
	RentalID       string       `json:"rental_id,omitempty"`
	Greeting       string       `json:"greeting"`
	ElapsedSeconds int64        `json:"elapsed_seconds"`
	Clock          string       `json:"clock"`
	AbortReason    AbortReason  `json:"abort_reason,omitempty"`
	Summary        *RideSummary `json:"summary,omitempty"`
	Screen         Screen       `json:"screen"`
}

// SessionEvent is a persisted record of a session entering a phase.
type SessionEvent struct {
	ID               string
	BrowserSessionID string
	ScooterID        string
	UserID           string
	RentalID         string
	Phase            Phase
	Reason           string
	CreatedAt        time.Time
}
