// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and logic for
authentication, authorization, and the session lifecycle: login, refresh
rotation, logout, lockout.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"

	"github.com/taibuivan/redisboard/internal/platform/sec"
)

// # Domain Entities

// User represents a registered operator of the Redisboard dashboard.
//
// The auth core reads id/username/role/active and never mutates the record,
// except for the first-run bootstrap seed and password changes.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Summary returns the client-safe user projection used by login and /me responses.
func (user *User) Summary() map[string]any {
	return map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	}
}

// Session represents one authenticated login (1:1 with a device).
//
// # Lifecycle
//
// Created on login. On every successful refresh the stored hash and expiry
// are REPLACED in place (rotation) — never deleted and recreated — so the
// session id stays stable for its device. Deleted on logout, or lazily once
// expired.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername         = "username"
	FieldPassword         = "password"
	FieldRole             = "role"
	FieldRemember         = "remember"
	FieldCurrentPassword  = "current_password"
	FieldNewPassword      = "new_password"
	FieldUser             = "user"
	FieldMessage          = "message"
	FieldSessionID        = "sessionID"
	FieldAccessExpiresAt  = "access_expires_at"
	FieldRefreshExpiresAt = "refresh_expires_at"
)
