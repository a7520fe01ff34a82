package service

import "scooter/internal/domain"

// DispatchAbort picks the abort screen for a server-supplied reason.
// Only distress is an emergency; every other value, including empty or
// unrecognized codes, falls back to the weather screen.
func DispatchAbort(reason domain.AbortReason) domain.AbortBranch {
	if reason == domain.AbortReasonDistress {
		return domain.AbortBranchEmergency
	}
	return domain.AbortBranchWeather
}

// abortPhase maps an abort branch to the terminal session phase.
func abortPhase(branch domain.AbortBranch) domain.Phase {
	if branch == domain.AbortBranchEmergency {
		return domain.PhaseAbortedEmergency
	}
	return domain.PhaseAbortedWeather
}
