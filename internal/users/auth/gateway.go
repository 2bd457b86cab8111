// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/taibuivan/redisboard/internal/platform/constants"
	"github.com/taibuivan/redisboard/internal/platform/middleware"
)

// # Page Gateway

// Gateway guards the browser-facing page routes of the dashboard.
//
// Unlike the JSON API (which answers 401 and lets the SPA react), page
// requests are navigations: the correct answer to "not logged in" is a
// redirect to the login page, and the correct answer to "expired access
// token but live refresh token" is a transparent inline refresh.
//
// # Route Classes
//
//   - Public: matched by prefix, always forwarded untouched.
//   - Auth-only: the login page. A logged-in user is redirected away.
//   - Protected: everything else. Requires a verifiable access token,
//     refreshing inline when possible.
type Gateway struct {
	verifier       middleware.TokenVerifier
	service        *Service
	cookies        *CookieWriter
	publicPrefixes []string
	loginPath      string
	homePath       string
}

// NewGateway constructs a [Gateway] with the default route classes.
func NewGateway(verifier middleware.TokenVerifier, service *Service, cookies *CookieWriter) *Gateway {
	return &Gateway{
		verifier: verifier,
		service:  service,
		cookies:  cookies,
		publicPrefixes: []string{
			"/api/",
			"/health",
			"/ready",
			"/assets/",
		},
		loginPath: "/login",
		homePath:  "/",
	}
}

// Middleware wraps a page handler with the gateway's auth flow.
func (gateway *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		path := request.URL.Path

		if gateway.isPublic(path) {
			next.ServeHTTP(writer, request)
			return
		}

		authenticated, refreshed := gateway.resolve(writer, request)

		if path == gateway.loginPath {
			// A logged-in user has no business on the login page.
			if authenticated {
				http.Redirect(writer, request, gateway.homePath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(writer, request)
			return
		}

		if !authenticated {
			gateway.cookies.ClearAuthCookies(writer)
			http.Redirect(writer, request, gateway.loginURL(request), http.StatusSeeOther)
			return
		}

		if refreshed != nil {
			request = requestWithAccessToken(request, refreshed.AccessToken)
		}
		next.ServeHTTP(writer, request)
	})
}

// resolve determines whether the request carries a usable identity, running
// the inline refresh when the access token is missing or stale. It returns
// the refresh result (nil when no refresh happened) so the caller can rewrite
// the forwarded request.
//
// Every token parse failure is treated exactly like an absent token.
func (gateway *Gateway) resolve(writer http.ResponseWriter, request *http.Request) (bool, *LoginSession) {
	if accessToken := middleware.AccessTokenFromCookies(request); accessToken != "" {
		if _, err := gateway.verifier.VerifyToken(accessToken); err == nil {
			return true, nil
		}
	}

	// Access token absent or dead: fall back to the refresh token.
	rawRefresh := middleware.RefreshTokenFromCookies(request)
	if rawRefresh == "" {
		return false, nil
	}

	result, err := gateway.service.Refresh(request.Context(),
		rawRefresh, middleware.RealIP(request), request.UserAgent())
	if err != nil {
		// Spent or expired refresh token. Storage failures land here too;
		// for a page navigation the safe degradation is the login screen.
		return false, nil
	}

	gateway.cookies.WriteAuthCookies(writer,
		result.AccessToken, result.RefreshToken,
		result.AccessExpiresAt, result.RefreshExpiresAt)

	return true, result
}

// isPublic reports whether the path belongs to a public route class.
func (gateway *Gateway) isPublic(path string) bool {
	for _, prefix := range gateway.publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// loginURL builds the login redirect target, preserving the originally
// requested path (query included) in the next parameter.
func (gateway *Gateway) loginURL(request *http.Request) string {
	target := request.URL.Path
	if request.URL.RawQuery != "" {
		target += "?" + request.URL.RawQuery
	}
	return gateway.loginPath + "?next=" + url.QueryEscape(target)
}

// requestWithAccessToken clones the request with its Cookie header rewritten
// so downstream middleware sees the freshly minted access token instead of
// the stale one the browser sent.
func requestWithAccessToken(request *http.Request, accessToken string) *http.Request {
	stale := map[string]bool{}
	for _, name := range constants.AllAuthCookieNames {
		stale[name] = true
	}

	kept := make([]string, 0, 4)
	for _, cookie := range request.Cookies() {
		if stale[cookie.Name] {
			continue
		}
		kept = append(kept, cookie.Name+"="+cookie.Value)
	}
	kept = append(kept, constants.CookieAccessToken+"="+accessToken)

	clone := request.Clone(request.Context())
	clone.Header.Set("Cookie", strings.Join(kept, "; "))
	return clone
}
