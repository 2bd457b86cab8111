// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// RefreshTokenLength is the byte length of the random refresh token.
	// 32 bytes = 256 bits of entropy, double the 128-bit floor required to
	// make guessing infeasible.
	RefreshTokenLength = 32

	// SessionCleanupInterval is how often expired session rows are purged.
	// Expiry is enforced lazily on every lookup; this sweep only reclaims
	// storage.
	SessionCleanupInterval = 15 * time.Minute

	// GuardCleanupInterval is how often stale brute-force entries are evicted.
	GuardCleanupInterval = 1 * time.Minute

	// GeneratedPasswordLength is the byte length of the random bootstrap
	// admin password when none is configured.
	GeneratedPasswordLength = 18
)
