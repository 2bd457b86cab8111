// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/redisboard/internal/platform/constants"
	"github.com/taibuivan/redisboard/internal/platform/ctxutil"
	"github.com/taibuivan/redisboard/internal/platform/middleware"
	"github.com/taibuivan/redisboard/internal/platform/sec"
)

// fakeVerifier accepts any token present in its claims map.
type fakeVerifier struct {
	claims map[string]*sec.AuthClaims
}

func (verifier *fakeVerifier) VerifyToken(tokenStr string) (*sec.AuthClaims, error) {
	if claims, ok := verifier.claims[tokenStr]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// fakeSessions marks a set of session IDs as live.
type fakeSessions struct {
	live map[string]bool
}

func (sessions *fakeSessions) ValidateSession(_ context.Context, sessionID, userID string) error {
	if sessions.live[sessionID] {
		return nil
	}
	return errors.New("session not live")
}

func claimsProbe(captured **sec.AuthClaims) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		*captured = ctxutil.GetAuthUser(request.Context())
		writer.WriteHeader(http.StatusOK)
	})
}

/*
TestAuthenticate_CookiePrecedence verifies exactly one cookie is honored per
request, current name first, then the legacy names in fixed order.
*/
func TestAuthenticate_CookiePrecedence(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.AuthClaims{
		"current-token": {UserID: "current"},
		"legacy-access": {UserID: "legacy-access"},
		"legacy-auth":   {UserID: "legacy-auth"},
	}}

	tests := []struct {
		name       string
		cookies    map[string]string
		wantUserID string
	}{
		{
			"current_wins_over_legacy",
			map[string]string{
				constants.CookieAccessToken:       "current-token",
				constants.LegacyCookieAccessToken: "legacy-access",
				constants.LegacyCookieAuthToken:   "legacy-auth",
			},
			"current",
		},
		{
			"legacy_access_wins_over_auth",
			map[string]string{
				constants.LegacyCookieAccessToken: "legacy-access",
				constants.LegacyCookieAuthToken:   "legacy-auth",
			},
			"legacy-access",
		},
		{
			"legacy_auth_last_resort",
			map[string]string{constants.LegacyCookieAuthToken: "legacy-auth"},
			"legacy-auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			for name, value := range tt.cookies {
				request.AddCookie(&http.Cookie{Name: name, Value: value})
			}

			var captured *sec.AuthClaims
			recorder := httptest.NewRecorder()
			middleware.Authenticate(verifier)(claimsProbe(&captured)).ServeHTTP(recorder, request)

			require.NotNil(t, captured)
			assert.Equal(t, tt.wantUserID, captured.UserID)
		})
	}
}

/*
TestAuthenticate_InvalidTokenIsAnonymous verifies a malformed token degrades
to an anonymous request rather than an immediate rejection.
*/
func TestAuthenticate_InvalidTokenIsAnonymous(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.AuthClaims{}}

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: "garbage"})

	var captured *sec.AuthClaims
	recorder := httptest.NewRecorder()
	middleware.Authenticate(verifier)(claimsProbe(&captured)).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, captured)
}

/*
TestRequireAuth verifies both layers: claims must exist AND the session must
be live in the store.
*/
func TestRequireAuth(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.AuthClaims{
		"live-token": {UserID: "u1", SessionID: "s-live"},
		"dead-token": {UserID: "u1", SessionID: "s-dead"},
	}}
	sessions := &fakeSessions{live: map[string]bool{"s-live": true}}

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"revoked_session", "dead-token", http.StatusUnauthorized},
		{"live_session", "live-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: tt.token})
			}

			handler := middleware.Authenticate(verifier)(
				middleware.RequireAuth(sessions)(
					http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
						writer.WriteHeader(http.StatusOK)
					})))

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

/*
TestRequireRole verifies the hierarchy gate: 401 for anonymous, 403 for an
insufficient role, 200 for sufficient and higher roles.
*/
func TestRequireRole(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.AuthClaims{
		"viewer-token": {UserID: "u1", SessionID: "s1", Role: "viewer"},
		"editor-token": {UserID: "u2", SessionID: "s2", Role: "editor"},
		"admin-token":  {UserID: "u3", SessionID: "s3", Role: "admin"},
	}}
	sessions := &fakeSessions{live: map[string]bool{"s1": true, "s2": true, "s3": true}}

	tests := []struct {
		name       string
		token      string
		required   sec.UserRole
		wantStatus int
	}{
		{"anonymous", "", sec.RoleEditor, http.StatusUnauthorized},
		{"viewer_blocked_from_editor", "viewer-token", sec.RoleEditor, http.StatusForbidden},
		{"editor_allowed", "editor-token", sec.RoleEditor, http.StatusOK},
		{"admin_exceeds_editor", "admin-token", sec.RoleEditor, http.StatusOK},
		{"editor_blocked_from_admin", "editor-token", sec.RoleAdmin, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: tt.token})
			}

			handler := middleware.Authenticate(verifier)(
				middleware.RequireRole(tt.required, sessions)(
					http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
						writer.WriteHeader(http.StatusOK)
					})))

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

/*
TestRefreshTokenFromCookies verifies the refresh-token precedence order.
*/
func TestRefreshTokenFromCookies(t *testing.T) {
	request := httptest.NewRequest(http.MethodPost, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.LegacyCookieRefreshToken, Value: "legacy"})
	assert.Equal(t, "legacy", middleware.RefreshTokenFromCookies(request))

	request.AddCookie(&http.Cookie{Name: constants.CookieRefreshToken, Value: "current"})
	assert.Equal(t, "current", middleware.RefreshTokenFromCookies(request))
}
