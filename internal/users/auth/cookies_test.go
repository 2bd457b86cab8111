// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/redisboard/internal/platform/constants"
	"github.com/taibuivan/redisboard/internal/users/auth"
)

func cookiesByName(recorder *httptest.ResponseRecorder) map[string]*http.Cookie {
	byName := map[string]*http.Cookie{}
	for _, cookie := range recorder.Result().Cookies() {
		byName[cookie.Name] = cookie
	}
	return byName
}

/*
TestCookieWriter_WriteAuthCookies verifies both cookies carry the hardened
attribute set and per-cookie Max-Age.
*/
func TestCookieWriter_WriteAuthCookies(t *testing.T) {
	writer := auth.NewCookieWriter(true)
	recorder := httptest.NewRecorder()

	now := time.Now()
	writer.WriteAuthCookies(recorder, "the-jwt", "the-refresh",
		now.Add(15*time.Minute), now.Add(24*time.Hour))

	byName := cookiesByName(recorder)
	require.Len(t, byName, 2)

	access := byName[constants.CookieAccessToken]
	require.NotNil(t, access)
	assert.Equal(t, "the-jwt", access.Value)
	assert.InDelta(t, int(15*time.Minute/time.Second), access.MaxAge, 2)

	refresh := byName[constants.CookieRefreshToken]
	require.NotNil(t, refresh)
	assert.Equal(t, "the-refresh", refresh.Value)
	assert.InDelta(t, int(24*time.Hour/time.Second), refresh.MaxAge, 2)

	for _, cookie := range byName {
		assert.True(t, cookie.HttpOnly, "%s must be HttpOnly", cookie.Name)
		assert.True(t, cookie.Secure, "%s must be Secure in production", cookie.Name)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite, "%s SameSite", cookie.Name)
		assert.Equal(t, "/", cookie.Path, "%s Path", cookie.Name)
	}
}

/*
TestCookieWriter_DevelopmentNotSecure verifies the Secure attribute tracks
the environment flag so local HTTP development works.
*/
func TestCookieWriter_DevelopmentNotSecure(t *testing.T) {
	writer := auth.NewCookieWriter(false)
	recorder := httptest.NewRecorder()

	now := time.Now()
	writer.WriteAuthCookies(recorder, "jwt", "refresh", now.Add(time.Minute), now.Add(time.Hour))

	for _, cookie := range recorder.Result().Cookies() {
		assert.False(t, cookie.Secure)
		assert.True(t, cookie.HttpOnly)
	}
}

/*
TestCookieWriter_ClearAuthCookies verifies every cookie name, current and
legacy, gets an expiring Set-Cookie header.
*/
func TestCookieWriter_ClearAuthCookies(t *testing.T) {
	writer := auth.NewCookieWriter(true)
	recorder := httptest.NewRecorder()

	writer.ClearAuthCookies(recorder)

	byName := cookiesByName(recorder)
	require.Len(t, byName, len(constants.AllAuthCookieNames))

	for _, name := range constants.AllAuthCookieNames {
		cookie := byName[name]
		require.NotNil(t, cookie, "missing clearing header for %s", name)
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)
	}
}
