// Package lockout computes progressive account-lockout transitions. The
// policy is a pure function over the current state and the outcome of a
// password check; persisting the resulting state is the caller's job.
package lockout

import "time"

// Policy constants. A first threshold crossing locks for the initial
// duration; every later crossing (the counter survives lock expiry) locks
// for the escalated duration. The escalated duration is a cap: third and
// later crossings do not grow beyond it.
const (
	Threshold             = 5
	InitialLockDuration   = 5 * time.Minute
	EscalatedLockDuration = 15 * time.Minute
)

// State is the lockout portion of a user record. A nil LockedUntil means no
// lock has ever been set (or it was cleared by a successful login).
type State struct {
	FailedCount int
	LockedUntil *time.Time
}

// Kind enumerates attempt outcomes.
type Kind int

const (
	// Success resets the state.
	Success Kind = iota
	// Failure increments the counter without locking.
	Failure
	// Locked means this attempt crossed the threshold; LockFor is set.
	Locked
	// StillLocked refuses the attempt under an active lock; Remaining is set.
	StillLocked
)

// Outcome describes the decision for one attempt.
type Outcome struct {
	Kind      Kind
	LockFor   time.Duration // Locked only
	Remaining time.Duration // StillLocked only
}

// Remaining reports the active lock's remaining duration, if any. Callers
// use it to short-circuit before doing any password verification work.
func Remaining(now time.Time, s State) (time.Duration, bool) {
	if s.LockedUntil != nil && now.Before(*s.LockedUntil) {
		return s.LockedUntil.Sub(now), true
	}
	return 0, false
}

// Attempt computes the next state for one login attempt. The active-lock
// check runs first regardless of passwordValid: a lock takes precedence over
// a correct password.
func Attempt(now time.Time, s State, passwordValid bool) (State, Outcome) {
	if rem, locked := Remaining(now, s); locked {
		return s, Outcome{Kind: StillLocked, Remaining: rem}
	}

	if passwordValid {
		return State{}, Outcome{Kind: Success}
	}

	next := State{FailedCount: s.FailedCount + 1, LockedUntil: s.LockedUntil}
	if next.FailedCount < Threshold {
		return next, Outcome{Kind: Failure}
	}

	lockFor := InitialLockDuration
	if s.LockedUntil != nil {
		// A lock existed before and has expired; escalate.
		lockFor = EscalatedLockDuration
	}
	until := now.Add(lockFor)
	next.LockedUntil = &until
	return next, Outcome{Kind: Locked, LockFor: lockFor}
}
