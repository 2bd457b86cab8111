// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/redisboard/internal/platform/constants"
	"github.com/taibuivan/redisboard/internal/users/auth"
)

// gatewayHarness bundles a service harness with a gateway wrapping a probe
// handler that records whether (and with which cookies) it was reached.
type gatewayHarness struct {
	*serviceHarness
	gateway *auth.Gateway

	reached     bool
	seenCookies []*http.Cookie
}

func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()
	base := newServiceHarness(t, defaultLifetimes())
	h := &gatewayHarness{serviceHarness: base}
	h.gateway = auth.NewGateway(base.tokens, base.service, auth.NewCookieWriter(false))
	return h
}

func (h *gatewayHarness) serve(request *http.Request) *httptest.ResponseRecorder {
	h.reached = false
	h.seenCookies = nil

	probe := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		h.reached = true
		h.seenCookies = request.Cookies()
		writer.WriteHeader(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	h.gateway.Middleware(probe).ServeHTTP(recorder, request)
	return recorder
}

// login opens a real session and returns the issued pair.
func (h *gatewayHarness) login(t *testing.T) *auth.LoginSession {
	t.Helper()
	h.seedUser(t, "alice", "hunter2hunter2", "viewer", true)
	result, err := h.service.Login(context.Background(), loginInput("alice", "hunter2hunter2"))
	require.NoError(t, err)
	return result
}

/*
TestGateway_PublicRoutesPassThrough verifies the public prefixes are
forwarded untouched with no auth applied.
*/
func TestGateway_PublicRoutesPassThrough(t *testing.T) {
	h := newGatewayHarness(t)

	for _, path := range []string{"/api/v1/auth/login", "/health", "/ready", "/assets/app.js"} {
		recorder := h.serve(httptest.NewRequest(http.MethodGet, path, nil))

		assert.True(t, h.reached, "%s must reach the handler", path)
		assert.Equal(t, http.StatusOK, recorder.Code)
	}
}

/*
TestGateway_ProtectedRedirectsAnonymous verifies a cookieless navigation is
redirected to the login page with the original target preserved.
*/
func TestGateway_ProtectedRedirectsAnonymous(t *testing.T) {
	h := newGatewayHarness(t)

	recorder := h.serve(httptest.NewRequest(http.MethodGet, "/instances/prod-1?tab=keys", nil))

	assert.False(t, h.reached)
	assert.Equal(t, http.StatusSeeOther, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, "/instances/prod-1?tab=keys", location.Query().Get("next"))
}

/*
TestGateway_ProtectedAcceptsValidToken verifies a valid access token is
forwarded without side effects.
*/
func TestGateway_ProtectedAcceptsValidToken(t *testing.T) {
	h := newGatewayHarness(t)
	session := h.login(t)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: session.AccessToken})

	recorder := h.serve(request)

	assert.True(t, h.reached)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Result().Cookies(), "no rewrite needed for a valid token")
}

/*
TestGateway_LegacyCookieStillAccepted verifies the legacy access-token
cookie names authenticate page navigations during migration.
*/
func TestGateway_LegacyCookieStillAccepted(t *testing.T) {
	h := newGatewayHarness(t)
	session := h.login(t)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.LegacyCookieAuthToken, Value: session.AccessToken})

	h.serve(request)

	assert.True(t, h.reached)
}

/*
TestGateway_LoginPageRedirectsAuthenticated verifies a logged-in user is
bounced away from the login page.
*/
func TestGateway_LoginPageRedirectsAuthenticated(t *testing.T) {
	h := newGatewayHarness(t)
	session := h.login(t)

	request := httptest.NewRequest(http.MethodGet, "/login", nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: session.AccessToken})

	recorder := h.serve(request)

	assert.False(t, h.reached)
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/", recorder.Header().Get("Location"))
}

/*
TestGateway_LoginPageServesAnonymous verifies the login page renders for
anonymous visitors instead of redirect-looping.
*/
func TestGateway_LoginPageServesAnonymous(t *testing.T) {
	h := newGatewayHarness(t)

	recorder := h.serve(httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.True(t, h.reached)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestGateway_InlineRefresh verifies an expired access token with a live
refresh token is refreshed transparently: new cookies are set and the
forwarded request carries the fresh access token.
*/
func TestGateway_InlineRefresh(t *testing.T) {
	h := newGatewayHarness(t)
	session := h.login(t)

	expired, err := h.tokens.GenerateAccessToken("user", "alice", "viewer", session.SessionID, -time.Minute)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: expired})
	request.AddCookie(&http.Cookie{Name: constants.CookieRefreshToken, Value: session.RefreshToken})

	recorder := h.serve(request)

	require.True(t, h.reached)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// Response carries the rotated pair.
	byName := cookiesByName(recorder)
	require.NotNil(t, byName[constants.CookieAccessToken])
	require.NotNil(t, byName[constants.CookieRefreshToken])
	assert.NotEqual(t, session.RefreshToken, byName[constants.CookieRefreshToken].Value)

	// The forwarded request sees the fresh token, not the expired one.
	var forwardedAccess string
	for _, cookie := range h.seenCookies {
		if cookie.Name == constants.CookieAccessToken {
			forwardedAccess = cookie.Value
		}
	}
	require.NotEmpty(t, forwardedAccess)
	assert.NotEqual(t, expired, forwardedAccess)
	_, err = h.tokens.VerifyToken(forwardedAccess)
	assert.NoError(t, err)

	// The old refresh token was spent by the inline rotation.
	_, err = h.service.Refresh(context.Background(), session.RefreshToken, "10.0.0.1", "go-test")
	assert.Error(t, err)
}

/*
TestGateway_DeadRefreshRedirects verifies that when both tokens are dead the
cookies are cleared and the navigation lands on the login page.
*/
func TestGateway_DeadRefreshRedirects(t *testing.T) {
	h := newGatewayHarness(t)

	request := httptest.NewRequest(http.MethodGet, "/settings", nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: "garbage"})
	request.AddCookie(&http.Cookie{Name: constants.CookieRefreshToken, Value: "also-garbage"})

	recorder := h.serve(request)

	assert.False(t, h.reached)
	assert.Equal(t, http.StatusSeeOther, recorder.Code)

	byName := cookiesByName(recorder)
	assert.Len(t, byName, len(constants.AllAuthCookieNames))
	for _, cookie := range byName {
		assert.Empty(t, cookie.Value)
	}
}
