// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// # Brute-Force Guard

// GuardPolicy holds the externally configured lockout policy knobs.
type GuardPolicy struct {
	// MaxAttempts is the number of failures that triggers a lockout. The Nth
	// failure both increments the counter and locks — no extra grace attempt.
	MaxAttempts int

	// AttemptWindow is the sliding window within which failures accumulate.
	// A failure outside the window restarts the count.
	AttemptWindow time.Duration

	// LockoutDuration is how long a locked key stays locked.
	LockoutDuration time.Duration
}

// LockStatus reports the lock state of a (address, username) key.
type LockStatus struct {
	Locked            bool
	RetryAfterSeconds int
}

// failureRecord tracks failed attempts for one (address, username) key.
type failureRecord struct {
	count        int
	firstAttempt time.Time
	lastAttempt  time.Time
	lockedUntil  time.Time // zero while unlocked
}

// LoginGuard tracks failed login attempts and enforces temporary lockouts.
//
// # Ownership & Concurrency
//
// The guard is an explicitly owned, mutex-guarded store: constructed once at
// process start and passed to the components that need it. The mutex makes
// the increment-and-compare in [LoginGuard.RecordFailure] atomic per key —
// concurrent failures can never slip past the threshold.
//
// # Durability
//
// State lives purely in process memory. A restart clears all lockouts; this
// is an accepted tradeoff, not a bug.
type LoginGuard struct {
	mu       sync.Mutex
	policy   GuardPolicy
	attempts map[string]*failureRecord

	// now is injectable for tests.
	now func() time.Time
}

// NewLoginGuard constructs a [LoginGuard] with the given policy.
func NewLoginGuard(policy GuardPolicy) *LoginGuard {
	return &LoginGuard{
		policy:   policy,
		attempts: make(map[string]*failureRecord),
		now:      time.Now,
	}
}

/*
IsLocked reports whether the key is currently locked out.

Description: Pure read with lazy expiry — a lockout that has elapsed is
deleted during the check rather than waiting for the background sweep.

Parameters:
  - address: string (client address)
  - username: string (lowercased internally)

Returns:
  - LockStatus: Locked flag plus the remaining lockout seconds
*/
func (guard *LoginGuard) IsLocked(address, username string) LockStatus {
	key := guardKey(address, username)
	currentTime := guard.now()

	guard.mu.Lock()
	defer guard.mu.Unlock()

	record, found := guard.attempts[key]
	if !found {
		return LockStatus{}
	}

	if record.lockedUntil.IsZero() {
		return LockStatus{}
	}

	// Lazy expiry: a stale lockout record read during the check is removed.
	if !currentTime.Before(record.lockedUntil) {
		delete(guard.attempts, key)
		return LockStatus{}
	}

	return LockStatus{
		Locked:            true,
		RetryAfterSeconds: remainingSeconds(record.lockedUntil, currentTime),
	}
}

/*
RecordFailure registers one failed login attempt for the key.

Description: Increments the failure count, restarting the window when the
prior first attempt has aged out. Crossing the configured threshold sets the
lockout in the same call — the Nth attempt both increments and triggers.

Parameters:
  - address: string
  - username: string

Returns:
  - LockStatus: Locked=true when this failure crossed (or hit during) a lockout
*/
func (guard *LoginGuard) RecordFailure(address, username string) LockStatus {
	key := guardKey(address, username)
	currentTime := guard.now()

	guard.mu.Lock()
	defer guard.mu.Unlock()

	record, found := guard.attempts[key]

	// Discard state that is no longer relevant: an elapsed lockout, or a
	// first attempt outside the sliding window.
	if found {
		lockExpired := !record.lockedUntil.IsZero() && !currentTime.Before(record.lockedUntil)
		windowExpired := record.lockedUntil.IsZero() && currentTime.Sub(record.firstAttempt) > guard.policy.AttemptWindow
		if lockExpired || windowExpired {
			found = false
		}
	}

	if !found {
		record = &failureRecord{firstAttempt: currentTime}
		guard.attempts[key] = record
	}

	// An attempt while locked does not extend the lock, it just reports it.
	if !record.lockedUntil.IsZero() && currentTime.Before(record.lockedUntil) {
		record.lastAttempt = currentTime
		return LockStatus{
			Locked:            true,
			RetryAfterSeconds: remainingSeconds(record.lockedUntil, currentTime),
		}
	}

	record.count++
	record.lastAttempt = currentTime

	if record.count >= guard.policy.MaxAttempts {
		record.lockedUntil = currentTime.Add(guard.policy.LockoutDuration)
		return LockStatus{
			Locked:            true,
			RetryAfterSeconds: remainingSeconds(record.lockedUntil, currentTime),
		}
	}

	return LockStatus{}
}

// ClearOnSuccess deletes the failure record for the key entirely.
func (guard *LoginGuard) ClearOnSuccess(address, username string) {
	key := guardKey(address, username)

	guard.mu.Lock()
	defer guard.mu.Unlock()

	delete(guard.attempts, key)
}

// RemainingAttempts returns how many failures the key has left before
// lockout, clamped to zero. Informational only.
func (guard *LoginGuard) RemainingAttempts(address, username string) int {
	key := guardKey(address, username)
	currentTime := guard.now()

	guard.mu.Lock()
	defer guard.mu.Unlock()

	record, found := guard.attempts[key]
	if !found {
		return guard.policy.MaxAttempts
	}

	// Aged-out windows count as a clean slate.
	if record.lockedUntil.IsZero() && currentTime.Sub(record.firstAttempt) > guard.policy.AttemptWindow {
		return guard.policy.MaxAttempts
	}

	remaining := guard.policy.MaxAttempts - record.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Run starts the background sweep that evicts stale records: expired windows
// without a lockout and elapsed lockouts. It blocks until the context is
// cancelled, so callers start it in a goroutine. Each sweep holds the mutex
// only for the duration of one map pass.
func (guard *LoginGuard) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			guard.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// sweep removes every record whose window or lockout has elapsed.
func (guard *LoginGuard) sweep() {
	currentTime := guard.now()

	guard.mu.Lock()
	defer guard.mu.Unlock()

	for key, record := range guard.attempts {
		if record.lockedUntil.IsZero() {
			if currentTime.Sub(record.firstAttempt) > guard.policy.AttemptWindow {
				delete(guard.attempts, key)
			}
			continue
		}
		if !currentTime.Before(record.lockedUntil) {
			delete(guard.attempts, key)
		}
	}
}

// guardKey builds the composite map key. Usernames are lowercased so that
// case variations cannot dodge the counter.
func guardKey(address, username string) string {
	return address + "|" + strings.ToLower(username)
}

// remainingSeconds converts a deadline into whole seconds, rounding up so a
// client never retries a moment too early.
func remainingSeconds(deadline, currentTime time.Time) int {
	seconds := int((deadline.Sub(currentTime) + time.Second - 1) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}
