// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/redisboard/internal/platform/apperr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, passwordhash, role, isactive, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByUsername retrieves a user record by their unique username.

Description: Case-sensitive lookup used by the login flow.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `
		SELECT id, username, passwordhash, role, isactive, createdat, updatedat
		FROM users.account
		WHERE username = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", err)
	}

	return user, nil
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: Not found or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, username, passwordhash, role, isactive, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
UpdatePassword replaces only the stored password hash.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = "UPDATE users.account SET passwordhash = $2, updatedat = $3 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	return nil
}

/*
Count returns the total number of user accounts.

Parameters:
  - context: context.Context

Returns:
  - int64: Row count
  - error: Retrieval failures
*/
func (repository *PostgresUserRepository) Count(context context.Context) (int64, error) {
	const query = "SELECT COUNT(*) FROM users.account"

	var total int64
	if err := repository.pool.QueryRow(context, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}

	return total, nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the users.session table.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (
			id, userid, tokenhash, useragent, ipaddress, expiresat, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindActiveByTokenHash resolves a refresh-token hash into its live session and
owning user.

Description: Single query joining the account table so that expiry, existence,
and owner deactivation are checked as one atomicity unit. The unique index on
tokenhash makes this a point read.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Hydrated session metadata
  - *User: The active owning account
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindActiveByTokenHash(context context.Context, tokenHash string) (*Session, *User, error) {
	const query = `
		SELECT
			s.id, s.userid, s.tokenhash, s.useragent, s.ipaddress, s.expiresat, s.createdat,
			u.id, u.username, u.passwordhash, u.role, u.isactive, u.createdat, u.updatedat
		FROM users.session s
		JOIN users.account u ON u.id = s.userid
		WHERE s.tokenhash = $1 AND s.expiresat > NOW() AND u.isactive = TRUE`

	session := &Session{}
	user := &User{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperr.NotFound("Session")
		}
		return nil, nil, fmt.Errorf("postgres_session_repo_find_by_hash_failed: %w", err)
	}

	return session, user, nil
}

/*
Validate checks that the (sessionID, userID) pair identifies a live session.

Description: Existence, expiry, and owner-active are combined in one query to
avoid races between expiry and deletion.

Parameters:
  - context: context.Context
  - sessionID: string
  - userID: string

Returns:
  - error: nil when live; apperr.NotFound otherwise
*/
func (repository *PostgresSessionRepository) Validate(context context.Context, sessionID, userID string) error {
	const query = `
		SELECT 1
		FROM users.session s
		JOIN users.account u ON u.id = s.userid
		WHERE s.id = $1 AND s.userid = $2 AND s.expiresat > NOW() AND u.isactive = TRUE`

	var one int
	err := repository.pool.QueryRow(context, query, sessionID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Session")
		}
		return fmt.Errorf("postgres_session_repo_validate_failed: %w", err)
	}

	return nil
}

/*
Rotate atomically replaces the session's token hash and expiry.

Description: Single conditional UPDATE guarded on the current hash —
compare-and-swap at the storage layer. Under two concurrent refreshes with
the same stale token, exactly one UPDATE matches a row; the other observes
zero rows and must treat the session as logged out.

Parameters:
  - context: context.Context
  - sessionID: string
  - currentHash: string
  - newHash: string
  - newExpiry: time.Time

Returns:
  - bool: Whether the swap happened
  - error: Storage failures only
*/
func (repository *PostgresSessionRepository) Rotate(context context.Context, sessionID, currentHash, newHash string, newExpiry time.Time) (bool, error) {
	const query = `
		UPDATE users.session
		SET tokenhash = $3, expiresat = $4
		WHERE id = $1 AND tokenhash = $2`

	tag, err := repository.pool.Exec(context, query, sessionID, currentHash, newHash, newExpiry)
	if err != nil {
		return false, fmt.Errorf("postgres_session_repo_rotate_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

/*
Delete permanently removes a session (logout).

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Deletion failures
*/
func (repository *PostgresSessionRepository) Delete(context context.Context, sessionID string) error {
	const query = "DELETE FROM users.session WHERE id = $1"
	_, err := repository.pool.Exec(context, query, sessionID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_failed: %w", err)
	}
	return nil
}

/*
DeleteOwned removes a session only when it belongs to the given user.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: apperr.NotFound when absent or owned by another user
*/
func (repository *PostgresSessionRepository) DeleteOwned(context context.Context, userID, sessionID string) error {
	const query = "DELETE FROM users.session WHERE id = $1 AND userid = $2"

	tag, err := repository.pool.Exec(context, query, sessionID, userID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_owned_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Session")
	}

	return nil
}

/*
DeleteOthers removes every session of the user except the current one.

Parameters:
  - context: context.Context
  - userID: string
  - currentSessionID: string

Returns:
  - error: Batch deletion failures
*/
func (repository *PostgresSessionRepository) DeleteOthers(context context.Context, userID, currentSessionID string) error {
	const query = "DELETE FROM users.session WHERE userid = $1 AND id != $2"
	_, err := repository.pool.Exec(context, query, userID, currentSessionID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_others_failed: %w", err)
	}
	return nil
}

/*
ListByUser returns the user's live sessions, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Session: Live sessions
  - error: Retrieval failures
*/
func (repository *PostgresSessionRepository) ListByUser(context context.Context, userID string) ([]*Session, error) {
	const query = `
		SELECT id, userid, tokenhash, useragent, ipaddress, expiresat, createdat
		FROM users.session
		WHERE userid = $1 AND expiresat > NOW()
		ORDER BY createdat DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0, 8)
	for rows.Next() {
		session := &Session{}
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.TokenHash,
			&session.UserAgent,
			&session.IPAddress,
			&session.ExpiresAt,
			&session.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_session_repo_list_scan_failed: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_rows_failed: %w", err)
	}

	return sessions, nil
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Description: Cleanup task to reclaim storage from stale sessions. Liveness
checks already filter by expiry, so this can run at any cadence.

Parameters:
  - context: context.Context

Returns:
  - int64: Rows removed
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) (int64, error) {
	const query = "DELETE FROM users.session WHERE expiresat <= NOW()"

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
