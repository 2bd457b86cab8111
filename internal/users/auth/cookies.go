// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/taibuivan/redisboard/internal/platform/constants"
)

// # Cookie Transport

// CookieWriter centralizes how auth cookies are written and cleared so that
// the login handler, refresh handler, and gateway all emit identical headers.
//
// All cookies are HttpOnly (no script access), SameSite=Strict, Path=/ and,
// in production, Secure.
type CookieWriter struct {
	secure bool
}

// NewCookieWriter constructs a [CookieWriter]. secure should be true in
// production so the Secure attribute is set on every cookie.
func NewCookieWriter(secure bool) *CookieWriter {
	return &CookieWriter{secure: secure}
}

/*
WriteAuthCookies sets the access-token and refresh-token cookies.

Description: Each cookie's Max-Age is derived from its own expiry, so the
short-lived access cookie and long-lived refresh cookie age independently.
Only the current cookie names are written; legacy names are read-and-clear
only.

Parameters:
  - writer: http.ResponseWriter
  - accessToken: string (signed JWT)
  - refreshToken: string (opaque random token)
  - accessExpiresAt: time.Time
  - refreshExpiresAt: time.Time
*/
func (cookies *CookieWriter) WriteAuthCookies(writer http.ResponseWriter, accessToken, refreshToken string, accessExpiresAt, refreshExpiresAt time.Time) {
	now := time.Now()
	http.SetCookie(writer, cookies.build(constants.CookieAccessToken, accessToken, maxAge(accessExpiresAt, now)))
	http.SetCookie(writer, cookies.build(constants.CookieRefreshToken, refreshToken, maxAge(refreshExpiresAt, now)))
}

/*
ClearAuthCookies expires every auth cookie, current and legacy alike.

Description: Emits one clearing Set-Cookie header per known cookie name with
an empty value and Max-Age=-1. Clearing legacy names here is what migrates
old clients off the pre-rename cookie scheme.

Parameters:
  - writer: http.ResponseWriter
*/
func (cookies *CookieWriter) ClearAuthCookies(writer http.ResponseWriter) {
	for _, name := range constants.AllAuthCookieNames {
		http.SetCookie(writer, cookies.build(name, "", -1))
	}
}

// build assembles a cookie with the shared security attributes.
func (cookies *CookieWriter) build(name, value string, maxAgeSeconds int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   cookies.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// maxAge converts an absolute expiry into whole seconds from now, clamped to
// a minimum of 1 so an already-past expiry still produces a deletable cookie.
func maxAge(expiresAt, now time.Time) int {
	seconds := int(expiresAt.Sub(now) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
