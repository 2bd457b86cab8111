// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByUsername returns the account with the given username.
		Usernames are case-sensitive as stored.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		Count returns the total number of user accounts. Used by the
		first-run bootstrap to decide whether to seed the admin.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Row count
		  - error: Retrieval failures
	*/
	Count(context context.Context) (int64, error)
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
//
// # Liveness
//
// A session is live iff it exists, has not expired, AND its owning user is
// active. Every lookup below enforces all three conditions inside a single
// query, so expiry, deletion, and deactivation can never race apart.
type SessionRepository interface {

	/*
		Create persists a new tracking session for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindActiveByTokenHash resolves a refresh-token hash into its live
		session and owning user. The hash column carries a unique index, so
		the lookup is a point read.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated session
		  - *User: The session's owner (guaranteed active)
		  - error: apperr.NotFound when absent/expired/owner-inactive
	*/
	FindActiveByTokenHash(context context.Context, tokenHash string) (*Session, *User, error)

	/*
		Validate checks session liveness for the given (sessionID, userID)
		pair in one atomic query.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - userID: string

		Returns:
		  - error: nil when live; apperr.NotFound otherwise
	*/
	Validate(context context.Context, sessionID, userID string) error

	/*
		Rotate atomically replaces the session's token hash and expiry,
		conditional on the stored hash still matching currentHash
		(compare-and-swap). Exactly one of several concurrent rotations of
		the same stale token can succeed.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - currentHash: string (CAS guard — the hash being rotated away)
		  - newHash: string
		  - newExpiry: time.Time

		Returns:
		  - bool: false when the session is gone or the hash no longer
		    matches — a normal outcome meaning "treat as logged out"
		  - error: Storage failures only
	*/
	Rotate(context context.Context, sessionID, currentHash, newHash string, newExpiry time.Time) (bool, error)

	/*
		Delete removes a session permanently (logout).

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, sessionID string) error

	/*
		DeleteOwned removes a session only when it belongs to userID.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - sessionID: string

		Returns:
		  - error: apperr.NotFound when absent or owned by someone else
	*/
	DeleteOwned(context context.Context, userID, sessionID string) error

	/*
		DeleteOthers removes every session belonging to userID except the
		current one. Used after password changes.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - currentSessionID: string

		Returns:
		  - error: Batch deletion failures
	*/
	DeleteOthers(context context.Context, userID, currentSessionID string) error

	/*
		ListByUser returns the user's live sessions, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Session: Live sessions
		  - error: Retrieval failures
	*/
	ListByUser(context context.Context, userID string) ([]*Session, error)

	/*
		DeleteExpired physically removes sessions whose ExpiresAt is in the
		past. Storage reclamation only — liveness never depends on it.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Number of rows removed
		  - error: Cleanup failures
	*/
	DeleteExpired(context context.Context) (int64, error)
}
