// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/redisboard/internal/platform/constants"
	"github.com/taibuivan/redisboard/internal/platform/middleware"
	"github.com/taibuivan/redisboard/internal/platform/sec"
	"github.com/taibuivan/redisboard/internal/users/auth"
)

// httpHarness mounts the auth routes behind the real Authenticate middleware,
// mirroring the production router layout.
type httpHarness struct {
	*serviceHarness
	router chi.Router
}

func newHTTPHarness(t *testing.T) *httpHarness {
	t.Helper()
	base := newServiceHarness(t, defaultLifetimes())
	handler := auth.NewHandler(base.service, auth.NewCookieWriter(false))

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(base.tokens))
	router.Mount("/auth", handler.Routes())

	return &httpHarness{serviceHarness: base, router: router}
}

func (h *httpHarness) do(request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, request)
	return recorder
}

func jsonRequest(method, target, body string) *http.Request {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	return request
}

/*
TestHTTP_Login_SetsCookies verifies a successful login responds with both
auth cookies and a token-free JSON body.
*/
func TestHTTP_Login_SetsCookies(t *testing.T) {
	h := newHTTPHarness(t)
	h.seedUser(t, "alice", "hunter2hunter2", "editor", true)

	recorder := h.do(jsonRequest(http.MethodPost, "/auth/login",
		`{"username":"alice","password":"hunter2hunter2"}`))

	require.Equal(t, http.StatusOK, recorder.Code)

	byName := cookiesByName(recorder)
	require.NotNil(t, byName[constants.CookieAccessToken])
	require.NotNil(t, byName[constants.CookieRefreshToken])

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))

	user, ok := envelope.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "editor", user["role"])
	assert.NotEmpty(t, envelope.Data["access_expires_at"])
	assert.NotEmpty(t, envelope.Data["refresh_expires_at"])

	// Tokens travel only in cookies.
	assert.NotContains(t, recorder.Body.String(), byName[constants.CookieAccessToken].Value)
	assert.NotContains(t, recorder.Body.String(), byName[constants.CookieRefreshToken].Value)
}

/*
TestHTTP_Login_BadCredentials verifies the uniform 401 body.
*/
func TestHTTP_Login_BadCredentials(t *testing.T) {
	h := newHTTPHarness(t)
	h.seedUser(t, "alice", "hunter2hunter2", "viewer", true)

	recorder := h.do(jsonRequest(http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrongpass1"}`))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid username or password")
	assert.Empty(t, recorder.Result().Cookies())
}

/*
TestHTTP_Login_LockoutCarriesRetryAfter verifies the 423 response carries
the Retry-After header and machine-readable code.
*/
func TestHTTP_Login_LockoutCarriesRetryAfter(t *testing.T) {
	h := newHTTPHarness(t)
	h.seedUser(t, "alice", "hunter2hunter2", "viewer", true)

	var recorder *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		recorder = h.do(jsonRequest(http.MethodPost, "/auth/login",
			`{"username":"alice","password":"wrongpass1"}`))
	}

	assert.Equal(t, http.StatusLocked, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
	assert.Contains(t, recorder.Body.String(), "ACCOUNT_LOCKED")
	assert.Contains(t, recorder.Body.String(), "retry_after")
}

/*
TestHTTP_Login_MalformedBody verifies broken JSON is a 400, not a 500.
*/
func TestHTTP_Login_MalformedBody(t *testing.T) {
	h := newHTTPHarness(t)

	recorder := h.do(jsonRequest(http.MethodPost, "/auth/login", `{"username":`))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

/*
TestHTTP_Refresh_RotatesCookies verifies the refresh endpoint rotates both
cookies from the refresh cookie alone.
*/
func TestHTTP_Refresh_RotatesCookies(t *testing.T) {
	h := newHTTPHarness(t)
	h.seedUser(t, "alice", "hunter2hunter2", "viewer", true)
	login, err := h.service.Login(context.Background(), loginInput("alice", "hunter2hunter2"))
	require.NoError(t, err)

	request := jsonRequest(http.MethodPost, "/auth/refresh", "")
	request.AddCookie(&http.Cookie{Name: constants.CookieRefreshToken, Value: login.RefreshToken})

	recorder := h.do(request)

	require.Equal(t, http.StatusOK, recorder.Code)
	byName := cookiesByName(recorder)
	require.NotNil(t, byName[constants.CookieRefreshToken])
	assert.NotEqual(t, login.RefreshToken, byName[constants.CookieRefreshToken].Value)
}

/*
TestHTTP_Refresh_MissingCookieClears verifies a refresh without a cookie is
a 401 that clears every auth cookie.
*/
func TestHTTP_Refresh_MissingCookieClears(t *testing.T) {
	h := newHTTPHarness(t)

	recorder := h.do(jsonRequest(http.MethodPost, "/auth/refresh", ""))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Len(t, cookiesByName(recorder), len(constants.AllAuthCookieNames))
}

/*
TestHTTP_Refresh_StorageFailureKeepsCookies verifies infrastructure errors
return 500 and leave the client's cookies alone.
*/
func TestHTTP_Refresh_StorageFailureKeepsCookies(t *testing.T) {
	h := newHTTPHarness(t)
	h.sessions.failWith = errors.New("connection refused")

	request := jsonRequest(http.MethodPost, "/auth/refresh", "")
	request.AddCookie(&http.Cookie{Name: constants.CookieRefreshToken, Value: "some-token"})

	recorder := h.do(request)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Empty(t, recorder.Result().Cookies())
}

/*
TestHTTP_Logout verifies logout needs a live session and clears every
cookie, legacy names included.
*/
func TestHTTP_Logout(t *testing.T) {
	h := newHTTPHarness(t)
	h.seedUser(t, "alice", "hunter2hunter2", "viewer", true)
	login, err := h.service.Login(context.Background(), loginInput("alice", "hunter2hunter2"))
	require.NoError(t, err)

	// Without a token: 401.
	recorder := h.do(jsonRequest(http.MethodPost, "/auth/logout", ""))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// With a token: 200 + full cookie clear.
	request := jsonRequest(http.MethodPost, "/auth/logout", "")
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: login.AccessToken})

	recorder = h.do(request)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, cookiesByName(recorder), len(constants.AllAuthCookieNames))

	// The session is dead afterwards.
	request = jsonRequest(http.MethodPost, "/auth/logout", "")
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: login.AccessToken})
	recorder = h.do(request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestHTTP_Me verifies the identity endpoint and its session-liveness gate.
*/
func TestHTTP_Me(t *testing.T) {
	h := newHTTPHarness(t)
	user := h.seedUser(t, "alice", "hunter2hunter2", "viewer", true)
	login, err := h.service.Login(context.Background(), loginInput("alice", "hunter2hunter2"))
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: login.AccessToken})

	recorder := h.do(request)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), user.ID)
	assert.Contains(t, recorder.Body.String(), "alice")

	// A valid signature over a revoked session is not enough.
	require.NoError(t, h.service.Logout(context.Background(), mustClaims(t, h, login.AccessToken)))
	recorder = h.do(request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestHTTP_Register_RequiresEditor verifies role gating on the register route.
*/
func TestHTTP_Register_RequiresEditor(t *testing.T) {
	h := newHTTPHarness(t)
	h.seedUser(t, "viewer-user", "hunter2hunter2", "viewer", true)
	h.seedUser(t, "editor-user", "hunter2hunter2", "editor", true)

	viewerLogin, err := h.service.Login(context.Background(), loginInput("viewer-user", "hunter2hunter2"))
	require.NoError(t, err)
	editorLogin, err := h.service.Login(context.Background(), loginInput("editor-user", "hunter2hunter2"))
	require.NoError(t, err)

	body := `{"username":"newbie","password":"hunter2hunter2","role":"viewer"}`

	// Anonymous: 401.
	recorder := h.do(jsonRequest(http.MethodPost, "/auth/register", body))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Viewer: 403.
	request := jsonRequest(http.MethodPost, "/auth/register", body)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: viewerLogin.AccessToken})
	recorder = h.do(request)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Editor: 201.
	request = jsonRequest(http.MethodPost, "/auth/register", body)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: editorLogin.AccessToken})
	recorder = h.do(request)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	// Editor minting an admin: 403 from the service rule.
	request = jsonRequest(http.MethodPost, "/auth/register",
		`{"username":"boss","password":"hunter2hunter2","role":"admin"}`)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: editorLogin.AccessToken})
	recorder = h.do(request)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

/*
TestHTTP_Sessions_ListAndRevoke verifies session self-management endpoints.
*/
func TestHTTP_Sessions_ListAndRevoke(t *testing.T) {
	h := newHTTPHarness(t)
	user := h.seedUser(t, "alice", "hunter2hunter2", "viewer", true)

	first, err := h.service.Login(context.Background(), loginInput("alice", "hunter2hunter2"))
	require.NoError(t, err)
	second, err := h.service.Login(context.Background(), loginInput("alice", "hunter2hunter2"))
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/auth/sessions", nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: second.AccessToken})

	recorder := h.do(request)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), first.SessionID)
	assert.Contains(t, recorder.Body.String(), second.SessionID)
	// Hashes never leak.
	assert.NotContains(t, recorder.Body.String(), "token_hash")

	// Revoke the first session from the second.
	request = httptest.NewRequest(http.MethodDelete, "/auth/sessions/"+first.SessionID, nil)
	request.AddCookie(&http.Cookie{Name: constants.CookieAccessToken, Value: second.AccessToken})

	recorder = h.do(request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Error(t, h.service.ValidateSession(context.Background(), first.SessionID, user.ID))
}

// mustClaims parses an access token back into claims for test plumbing.
func mustClaims(t *testing.T, h *httpHarness, accessToken string) *sec.AuthClaims {
	t.Helper()
	claims, err := h.tokens.VerifyToken(accessToken)
	require.NoError(t, err)
	return claims
}
