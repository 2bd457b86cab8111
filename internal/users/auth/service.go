// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/redisboard/internal/audit"
	"github.com/taibuivan/redisboard/internal/platform/apperr"
	"github.com/taibuivan/redisboard/internal/platform/dberr"
	"github.com/taibuivan/redisboard/internal/platform/sec"
	"github.com/taibuivan/redisboard/pkg/uuid"
)

// # Contracts

// TokenProvider is the narrow signing contract the service depends on.
type TokenProvider interface {
	GenerateAccessToken(userID, username, role, sessionID string, timeToLive time.Duration) (string, error)
}

// Lifetimes bundles the configured token and session durations.
type Lifetimes struct {
	AccessTokenTTL     time.Duration
	SessionTTL         time.Duration
	RememberSessionTTL time.Duration
}

// # Inputs & Outputs

// LoginInput carries everything the login flow needs, including the client
// metadata recorded on the session.
type LoginInput struct {
	Username  string
	Password  string
	Remember  bool
	UserAgent string
	IPAddress string
}

// RegisterInput carries the fields for creating a new operator account.
type RegisterInput struct {
	Username string
	Password string
	Role     sec.UserRole
}

// LoginSession is the complete result of a successful login or refresh:
// both tokens, their expiries, and the authenticated user.
type LoginSession struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
	User             *User
}

// # Service

// Service implements the authentication and session lifecycle use-cases.
//
// # Responsibilities
//
//   - Login: credential check, lockout enforcement, session + token issuance.
//   - Refresh: single-use rotation of the opaque refresh token (CAS).
//   - Logout, session listing and revocation, password changes.
//   - Registration and first-run admin bootstrap.
//
// It also implements middleware.SessionValidator so the HTTP layer can
// cross-check access-token claims against session liveness.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	tokenProvider     TokenProvider
	guard             *LoginGuard
	auditRecorder     audit.Recorder
	logger            *slog.Logger
	lifetimes         Lifetimes
}

// NewService wires up an auth [Service] with its dependencies.
func NewService(
	userRepository UserRepository,
	sessionRepository SessionRepository,
	tokenProvider TokenProvider,
	guard *LoginGuard,
	auditRecorder audit.Recorder,
	logger *slog.Logger,
	lifetimes Lifetimes,
) *Service {
	return &Service{
		userRepository:    userRepository,
		sessionRepository: sessionRepository,
		tokenProvider:     tokenProvider,
		guard:             guard,
		auditRecorder:     auditRecorder,
		logger:            logger,
		lifetimes:         lifetimes,
	}
}

// # Login

/*
Login authenticates a username/password pair and opens a new session.

Description: The brute-force guard is consulted BEFORE credentials are
checked, so a locked key is rejected even with the correct password. Failed
attempts (unknown user or wrong password) are indistinguishable to the client
and both feed the guard. A disabled account responds with its own error and
does not count as a guard failure.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Tokens + user on success
  - error: apperr.Locked (423), apperr.Unauthorized (401),
    apperr.AccountDisabled (403), or wrapped storage failures
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {

	// ── 1. Lockout Gate ───────────────────────────────────────────────────
	if status := service.guard.IsLocked(input.IPAddress, input.Username); status.Locked {
		return nil, apperr.Locked(status.RetryAfterSeconds)
	}

	// ── 2. Credential Verification ────────────────────────────────────────
	user, err := service.userRepository.FindByUsername(ctx, input.Username)
	if err != nil {
		if apperr.As(err) != nil {
			return nil, service.loginFailure(ctx, input)
		}
		return nil, fmt.Errorf("auth_login_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, service.loginFailure(ctx, input)
	}

	if !user.IsActive {
		return nil, apperr.AccountDisabled()
	}

	service.guard.ClearOnSuccess(input.IPAddress, input.Username)

	// ── 3. Session Issuance ───────────────────────────────────────────────
	sessionTTL := service.lifetimes.SessionTTL
	if input.Remember {
		sessionTTL = service.lifetimes.RememberSessionTTL
	}

	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_login_token_generation_failed: %w", err)
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
		ExpiresAt: time.Now().Add(sessionTTL),
	}

	if err := service.sessionRepository.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("auth_login_session_create_failed: %w", err)
	}

	accessExpiresAt := time.Now().Add(service.lifetimes.AccessTokenTTL)
	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Username, string(user.Role), session.ID, service.lifetimes.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_login_token_signing_failed: %w", err)
	}

	service.record(ctx, audit.Event{
		Actor:     user.ID,
		Action:    audit.ActionLogin,
		Resource:  user.Username,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})

	return &LoginSession{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: session.ExpiresAt,
		SessionID:        session.ID,
		User:             user,
	}, nil
}

// loginFailure registers one failed attempt and returns either 423 (when
// this failure crossed the threshold) or the uniform 401. The error message
// never reveals whether the username exists.
func (service *Service) loginFailure(ctx context.Context, input LoginInput) error {
	status := service.guard.RecordFailure(input.IPAddress, input.Username)

	service.record(ctx, audit.Event{
		Action:    audit.ActionLoginFailed,
		Resource:  input.Username,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})

	if status.Locked {
		service.record(ctx, audit.Event{
			Action:    audit.ActionLockout,
			Resource:  input.Username,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		})
		return apperr.Locked(status.RetryAfterSeconds)
	}

	return apperr.Unauthorized("Invalid username or password")
}

// # Refresh

/*
Refresh rotates a refresh token: the presented token is spent and a fresh
access/refresh pair is issued for the same session.

Description: The raw token is hashed and resolved to a live session in one
query, then replaced via a conditional update guarded on the current hash.
Under concurrent reuse of the same token exactly one caller wins; the loser
gets a 401, never a duplicate session. The session expiry slides forward to
now + SessionTTL but never shrinks, so remember-me windows survive rotation.

Parameters:
  - ctx: context.Context
  - rawToken: string (opaque refresh token from the cookie, may be empty)
  - ipAddress: string (for audit)
  - userAgent: string (for audit)

Returns:
  - *LoginSession: New token pair on success
  - error: apperr.Unauthorized for every expected failure;
    wrapped storage errors otherwise
*/
func (service *Service) Refresh(ctx context.Context, rawToken, ipAddress, userAgent string) (*LoginSession, error) {
	if rawToken == "" {
		return nil, apperr.Unauthorized("Missing refresh token")
	}

	session, user, err := service.sessionRepository.FindActiveByTokenHash(ctx, sec.HashToken(rawToken))
	if err != nil {
		if apperr.As(err) != nil {
			return nil, apperr.Unauthorized("Session expired or revoked")
		}
		return nil, fmt.Errorf("auth_refresh_lookup_failed: %w", err)
	}

	newRefreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_refresh_token_generation_failed: %w", err)
	}

	// Sliding renewal that never shortens the session.
	newExpiry := time.Now().Add(service.lifetimes.SessionTTL)
	if session.ExpiresAt.After(newExpiry) {
		newExpiry = session.ExpiresAt
	}

	rotated, err := service.sessionRepository.Rotate(
		ctx, session.ID, session.TokenHash, sec.HashToken(newRefreshToken), newExpiry)
	if err != nil {
		return nil, fmt.Errorf("auth_refresh_rotate_failed: %w", err)
	}
	if !rotated {
		// Lost the CAS race or the session vanished: treat as logged out.
		return nil, apperr.Unauthorized("Session expired or revoked")
	}

	accessExpiresAt := time.Now().Add(service.lifetimes.AccessTokenTTL)
	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Username, string(user.Role), session.ID, service.lifetimes.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_refresh_token_signing_failed: %w", err)
	}

	service.record(ctx, audit.Event{
		Actor:     user.ID,
		Action:    audit.ActionRefresh,
		Resource:  session.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return &LoginSession{
		AccessToken:      accessToken,
		RefreshToken:     newRefreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: newExpiry,
		SessionID:        session.ID,
		User:             user,
	}, nil
}

// # Logout

/*
Logout terminates the session identified by the access-token claims.

Description: The session row is deleted outright. Logout is idempotent: a
session already gone is a success, not an error.

Parameters:
  - ctx: context.Context
  - claims: *sec.AuthClaims

Returns:
  - error: Storage failures only
*/
func (service *Service) Logout(ctx context.Context, claims *sec.AuthClaims) error {
	if err := service.sessionRepository.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("auth_logout_failed: %w", err)
	}

	service.record(ctx, audit.Event{
		Actor:    claims.UserID,
		Action:   audit.ActionLogout,
		Resource: claims.SessionID,
	})

	return nil
}

// # Registration

/*
Register creates a new operator account on behalf of an existing one.

Description: The actor must hold at least the editor role (enforced at the
router), and only an admin may mint another admin. Username uniqueness is
enforced by the database and surfaces as a 409.

Parameters:
  - ctx: context.Context
  - actorRole: sec.UserRole (role of the authenticated creator)
  - input: RegisterInput

Returns:
  - *User: The created account
  - error: apperr.Forbidden, apperr.ValidationError, apperr.Conflict,
    or wrapped storage failures
*/
func (service *Service) Register(ctx context.Context, actorRole sec.UserRole, input RegisterInput) (*User, error) {
	if !input.Role.IsValid() {
		return nil, apperr.ValidationError("Invalid role", apperr.FieldError{
			Field: FieldRole, Message: "Must be one of: admin, editor, viewer",
		})
	}

	if input.Role == sec.RoleAdmin && !actorRole.AtLeast(sec.RoleAdmin) {
		return nil, apperr.Forbidden("Only an admin can create admin accounts")
	}

	if ok, reason := sec.ValidatePasswordPolicy(input.Password); !ok {
		return nil, apperr.ValidationError("Password rejected", apperr.FieldError{
			Field: FieldPassword, Message: reason,
		})
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_register_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		PasswordHash: passwordHash,
		Role:         input.Role,
		IsActive:     true,
	}

	if err := service.userRepository.Create(ctx, user); err != nil {
		if wrapped := apperr.As(dberr.Wrap(err, "auth_register")); wrapped != nil && wrapped.Code == "CONFLICT" {
			return nil, apperr.Conflict("Username already taken")
		}
		return nil, fmt.Errorf("auth_register_create_failed: %w", err)
	}

	service.record(ctx, audit.Event{
		Actor:    user.ID,
		Action:   audit.ActionRegister,
		Resource: user.Username,
	})

	return user, nil
}

// # Session Management

// ValidateSession implements middleware.SessionValidator: it reports whether
// the (sessionID, userID) pair identifies a live session.
func (service *Service) ValidateSession(ctx context.Context, sessionID, userID string) error {
	return service.sessionRepository.Validate(ctx, sessionID, userID)
}

// Sessions lists the user's live sessions, newest first.
func (service *Service) Sessions(ctx context.Context, userID string) ([]*Session, error) {
	sessions, err := service.sessionRepository.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_sessions_list_failed: %w", err)
	}
	return sessions, nil
}

// RevokeOwnedSession deletes one of the user's own sessions. Revoking a
// session that belongs to someone else (or doesn't exist) yields a 404.
func (service *Service) RevokeOwnedSession(ctx context.Context, userID, sessionID string) error {
	return service.sessionRepository.DeleteOwned(ctx, userID, sessionID)
}

/*
ChangePassword verifies the current password, swaps in the new hash, and
revokes every other session of the user.

Parameters:
  - ctx: context.Context
  - claims: *sec.AuthClaims (the acting session)
  - currentPassword: string
  - newPassword: string

Returns:
  - error: apperr.Unauthorized when the current password is wrong,
    apperr.ValidationError on policy rejection, or storage failures
*/
func (service *Service) ChangePassword(ctx context.Context, claims *sec.AuthClaims, currentPassword, newPassword string) error {
	user, err := service.userRepository.FindByID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("auth_change_password_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	if ok, reason := sec.ValidatePasswordPolicy(newPassword); !ok {
		return apperr.ValidationError("Password rejected", apperr.FieldError{
			Field: FieldNewPassword, Message: reason,
		})
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("auth_change_password_update_failed: %w", err)
	}

	// Every other device must log in again with the new password.
	if err := service.sessionRepository.DeleteOthers(ctx, user.ID, claims.SessionID); err != nil {
		return fmt.Errorf("auth_change_password_revoke_failed: %w", err)
	}

	return nil
}

// # Bootstrap

/*
EnsureAdmin seeds the very first admin account on an empty user table.

Description: Runs once at startup. When no password is configured, a random
one is generated and printed to the startup log exactly once; it is not
recoverable afterwards.

Parameters:
  - ctx: context.Context
  - username: string
  - password: string (empty means generate)

Returns:
  - error: Storage or entropy failures
*/
func (service *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	total, err := service.userRepository.Count(ctx)
	if err != nil {
		return fmt.Errorf("auth_bootstrap_count_failed: %w", err)
	}
	if total > 0 {
		return nil
	}

	generated := false
	if password == "" {
		password, err = sec.GenerateSecureToken(GeneratedPasswordLength)
		if err != nil {
			return fmt.Errorf("auth_bootstrap_password_failed: %w", err)
		}
		generated = true
	}

	passwordHash, err := sec.HashPassword(password)
	if err != nil {
		return fmt.Errorf("auth_bootstrap_hash_failed: %w", err)
	}

	admin := &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         sec.RoleAdmin,
		IsActive:     true,
	}

	if err := service.userRepository.Create(ctx, admin); err != nil {
		return fmt.Errorf("auth_bootstrap_create_failed: %w", err)
	}

	if generated {
		// The only place the generated password is ever visible.
		service.logger.Warn("bootstrap_admin_created",
			slog.String("username", username),
			slog.String("password", password),
		)
	} else {
		service.logger.Info("bootstrap_admin_created", slog.String("username", username))
	}

	service.record(ctx, audit.Event{
		Actor:    admin.ID,
		Action:   audit.ActionBootstrap,
		Resource: admin.Username,
	})

	return nil
}

// # Maintenance

// RunSessionCleanup purges expired session rows on a fixed cadence until the
// context is cancelled. Callers start it in a goroutine.
func (service *Service) RunSessionCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := service.sessionRepository.DeleteExpired(ctx)
			if err != nil {
				service.logger.Error("session_cleanup_failed", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				service.logger.Info("session_cleanup_completed", slog.Int64("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

// record emits an audit event, fire-and-forget. Sink failures are logged at
// Warn and never affect the calling flow.
func (service *Service) record(ctx context.Context, event audit.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := service.auditRecorder.Record(ctx, event); err != nil {
		service.logger.Warn("audit_record_failed",
			slog.String("action", event.Action),
			slog.String("error", err.Error()),
		)
	}
}
