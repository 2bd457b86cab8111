// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuers and cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "redisboard-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "redisboard.app"
)

// # Cookies

// Current cookie names. Written on login/refresh, cleared on logout.
const (
	// CookieAccessToken is the cookie carrying the signed JWT access token.
	CookieAccessToken = "redisboard_access_token"

	// CookieRefreshToken is the cookie carrying the opaque refresh token.
	CookieRefreshToken = "redisboard_refresh_token"
)

// Legacy cookie names from the pre-rename single-cookie scheme. They are
// still READ (in the fixed precedence order below, after the current names)
// and cleared, but never written.
const (
	LegacyCookieAccessToken  = "access_token"
	LegacyCookieAuthToken    = "auth_token"
	LegacyCookieRefreshToken = "refresh_token"
)

// AccessCookieReadOrder is the fixed precedence for locating an access token.
var AccessCookieReadOrder = []string{CookieAccessToken, LegacyCookieAccessToken, LegacyCookieAuthToken}

// RefreshCookieReadOrder is the fixed precedence for locating a refresh token.
var RefreshCookieReadOrder = []string{CookieRefreshToken, LegacyCookieRefreshToken}

// AllAuthCookieNames lists every cookie name (current + legacy) that must be
// cleared on logout or failed refresh.
var AllAuthCookieNames = []string{
	CookieAccessToken,
	CookieRefreshToken,
	LegacyCookieAccessToken,
	LegacyCookieAuthToken,
	LegacyCookieRefreshToken,
}

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	// RedisAuditStream is the Redis Stream that receives audit events.
	RedisAuditStream = "audit:events"
)
