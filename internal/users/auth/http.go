// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/redisboard/internal/platform/apperr"
	"github.com/taibuivan/redisboard/internal/platform/middleware"
	requestutil "github.com/taibuivan/redisboard/internal/platform/request"
	"github.com/taibuivan/redisboard/internal/platform/respond"
	"github.com/taibuivan/redisboard/internal/platform/sec"
	"github.com/taibuivan/redisboard/internal/platform/validate"
)

// # HTTP Layer

// Handler exposes the authentication endpoints over HTTP.
//
// Token transport is cookie-based: the handler writes/clears the auth cookies
// and the JSON bodies carry only client-safe metadata, never the tokens.
type Handler struct {
	service *Service
	cookies *CookieWriter
}

// NewHandler creates the HTTP handler for the auth domain.
func NewHandler(service *Service, cookies *CookieWriter) *Handler {
	return &Handler{service: service, cookies: cookies}
}

// Routes assembles the router for the /auth subtree.
//
// # Layout
//
//   - Public: POST /login, POST /refresh
//   - Authenticated (live session required): POST /logout, GET /me,
//     GET /sessions, DELETE /sessions/{sessionID}, POST /change-password
//   - Editor and above: POST /register
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.Login)
	router.Post("/refresh", handler.Refresh)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth(handler.service))

		protected.Post("/logout", handler.Logout)
		protected.Get("/me", handler.Me)
		protected.Get("/sessions", handler.Sessions)
		protected.Delete("/sessions/{sessionID}", handler.RevokeSession)
		protected.Post("/change-password", handler.ChangePassword)
	})

	router.Group(func(elevated chi.Router) {
		elevated.Use(middleware.RequireRole(sec.RoleEditor, handler.service))

		elevated.Post("/register", handler.Register)
	})

	return router
}

// # Request Bodies

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// # Endpoints

/*
Login handles POST /auth/login.

Description: Authenticates the credentials and, on success, sets both auth
cookies and returns the user summary plus token expiries. Lockouts surface
as 423 with a Retry-After header; bad credentials as a uniform 401.
*/
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	var body loginRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required(FieldUsername, body.Username).
		MaxLen(FieldUsername, body.Username, 64).
		Required(FieldPassword, body.Password).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Login(request.Context(), LoginInput{
		Username:  body.Username,
		Password:  body.Password,
		Remember:  body.Remember,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.WriteAuthCookies(writer,
		result.AccessToken, result.RefreshToken,
		result.AccessExpiresAt, result.RefreshExpiresAt)

	respond.OK(writer, map[string]any{
		FieldUser:             result.User.Summary(),
		FieldAccessExpiresAt:  result.AccessExpiresAt,
		FieldRefreshExpiresAt: result.RefreshExpiresAt,
	})
}

/*
Refresh handles POST /auth/refresh.

Description: Rotates the refresh token from the cookie. Any expected failure
(missing token, spent token, dead session) clears every auth cookie and
returns 401, so a broken client converges on the login page instead of
looping. Storage failures return 500 and leave the cookies untouched.
*/
func (handler *Handler) Refresh(writer http.ResponseWriter, request *http.Request) {
	rawToken := middleware.RefreshTokenFromCookies(request)

	result, err := handler.service.Refresh(request.Context(),
		rawToken, middleware.RealIP(request), request.UserAgent())
	if err != nil {
		// Only the expected 401-class failures invalidate the cookies.
		if appError := apperr.As(err); appError != nil && appError.HTTPStatus == http.StatusUnauthorized {
			handler.cookies.ClearAuthCookies(writer)
		}
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.WriteAuthCookies(writer,
		result.AccessToken, result.RefreshToken,
		result.AccessExpiresAt, result.RefreshExpiresAt)

	respond.OK(writer, map[string]any{
		FieldUser:             result.User.Summary(),
		FieldAccessExpiresAt:  result.AccessExpiresAt,
		FieldRefreshExpiresAt: result.RefreshExpiresAt,
	})
}

/*
Logout handles POST /auth/logout.

Description: Deletes the session and clears every auth cookie, legacy names
included. Always clears cookies, even if the session row was already gone.
*/
func (handler *Handler) Logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Logout(request.Context(), claims); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.ClearAuthCookies(writer)
	respond.OK(writer, map[string]any{FieldMessage: "Logged out"})
}

/*
Me handles GET /auth/me.

Description: Returns the authenticated user's summary. Claims come from the
verified access token; session liveness was already enforced by the router.
*/
func (handler *Handler) Me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.userRepository.FindByID(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user.Summary())
}

/*
Sessions handles GET /auth/sessions.

Description: Lists the caller's live sessions so they can review where they
are logged in. Token hashes are never serialized.
*/
func (handler *Handler) Sessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.service.Sessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
RevokeSession handles DELETE /auth/sessions/{sessionID}.

Description: Revokes one of the caller's own sessions. A session belonging
to another user is indistinguishable from a missing one (404).
*/
func (handler *Handler) RevokeSession(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := requestutil.Param(request, FieldSessionID)

	validator := &validate.Validator{}
	if err := validator.UUID(FieldSessionID, sessionID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RevokeOwnedSession(request.Context(), userID, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
ChangePassword handles POST /auth/change-password.

Description: Requires the current password, applies the new one, and revokes
every other session of the user. The acting session stays logged in.
*/
func (handler *Handler) ChangePassword(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body changePasswordRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required(FieldCurrentPassword, body.CurrentPassword).
		Required(FieldNewPassword, body.NewPassword).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ChangePassword(request.Context(), claims, body.CurrentPassword, body.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: "Password changed"})
}

/*
Register handles POST /auth/register.

Description: Creates a new operator account. The router already requires the
editor role; the service additionally restricts admin creation to admins.
*/
func (handler *Handler) Register(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body registerRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required(FieldUsername, body.Username).
		MinLen(FieldUsername, body.Username, 3).
		MaxLen(FieldUsername, body.Username, 64).
		Username(FieldUsername, body.Username).
		Required(FieldPassword, body.Password).
		Required(FieldRole, body.Role).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Register(request.Context(), sec.UserRole(claims.Role), RegisterInput{
		Username: body.Username,
		Password: body.Password,
		Role:     sec.UserRole(body.Role),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user.Summary())
}
