// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package middleware provides the HTTP middleware chain for the Redisboard API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This includes cross-cutting concerns
// like Logging, AuthZ/AuthN, Rate Limiting, and CORS.
package middleware

import (
	"context"
	"net/http"

	"github.com/taibuivan/redisboard/internal/platform/apperr"
	"github.com/taibuivan/redisboard/internal/platform/constants"
	"github.com/taibuivan/redisboard/internal/platform/ctxutil"
	"github.com/taibuivan/redisboard/internal/platform/respond"
	"github.com/taibuivan/redisboard/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the `sec`
// implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// SessionValidator checks session liveness against the session store.
//
// The access token alone proves recent authentication; liveness additionally
// proves the session has not been logged out, expired, or orphaned by a
// deactivated account. Protected handlers always go through this check.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID, userID string) error
}

// Authenticate extracts and verifies the JWT access token from cookies.
//
// # Flow
//  1. Look for the access-token cookie, current name first, then the
//     legacy fallback names in fixed precedence order.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenVerifier]. A malformed
//     or expired token is treated as "no token" — the request proceeds
//     anonymously and protected routes reject it downstream. This preserves
//     availability over strictness.
//  4. Inject [*sec.AuthClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Cookie Extraction (fixed precedence) ───────────────────────
			tokenStr := AccessTokenFromCookies(request)
			if tokenStr == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				// Anonymous path: downstream RequireAuth produces the 401.
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated with a live session.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.AuthClaims] exists in context.
//  2. Cross-check the embedded session ID against the session store: the
//     session must exist, be unexpired, and belong to an active user. This
//     is the authoritative check — the signature alone is only the fast path.
//  3. If either step fails, abort with HTTP 401 Unauthorized.
func RequireAuth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if err := sessions.ValidateSession(request.Context(), claims.SessionID, claims.UserID); err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Session expired or revoked"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically implies
// [RequireAuth] so you don't need to mount both.
//
// # Flow
//  1. Authentication + session liveness (same as [RequireAuth]).
//  2. Check if the user's role meets or exceeds the required target role
//     using [sec.UserRole.AtLeast] (admin ⊇ editor ⊇ viewer).
//  3. If insufficient, abort with HTTP 403 Forbidden — distinct from 401.
func RequireRole(role sec.UserRole, sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		requireRole := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())

			// RequireAuth already guaranteed claims are present.
			userRole := sec.UserRole(claims.Role)
			if !userRole.AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})

		return RequireAuth(sessions)(requireRole)
	}
}

// # Cookie Extraction

// AccessTokenFromCookies returns the raw access token using the fixed
// precedence order (current cookie name first, legacy names after).
// Returns an empty string when no candidate cookie is present.
func AccessTokenFromCookies(request *http.Request) string {
	return firstCookieValue(request, constants.AccessCookieReadOrder)
}

// RefreshTokenFromCookies returns the raw refresh token using the fixed
// precedence order (current cookie name first, legacy name after).
func RefreshTokenFromCookies(request *http.Request) string {
	return firstCookieValue(request, constants.RefreshCookieReadOrder)
}

// firstCookieValue returns the first non-empty cookie value in names order.
// Exactly one cookie is recognized per request; earlier names win.
func firstCookieValue(request *http.Request, names []string) string {
	for _, name := range names {
		cookie, err := request.Cookie(name)
		if err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}
