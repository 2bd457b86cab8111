// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package audit provides the structured audit-event sink for the platform.

Every security-relevant action (login, refresh, logout, registration,
lockout) emits an [Event]. Delivery is strictly fire-and-forget: a sink
failure is logged and discarded, and must never block or fail the auth flow
that produced the event.

Architecture:

  - Recorder: The narrow contract consumed by domain services.
  - RedisRecorder: Production sink appending events to a Redis Stream,
    where the audit-log subsystem consumes and persists them.
  - NopRecorder: Test/startup stand-in.
*/
package audit

import (
	"context"
	"time"
)

// # Event Model

// Event is one structured audit record.
type Event struct {
	// Actor is the user ID performing the action ("" for anonymous, e.g. failed logins).
	Actor string `json:"actor"`
	// Action is the dotted action name (e.g. "auth.login", "auth.lockout").
	Action string `json:"action"`
	// Resource identifies the target of the action (username, session ID).
	Resource string `json:"resource"`
	// IPAddress is the client address the action originated from.
	IPAddress string `json:"ip_address"`
	// UserAgent is the client's self-reported agent string.
	UserAgent string `json:"user_agent"`
	// OccurredAt is when the action happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// Well-known auth actions.
const (
	ActionLogin       = "auth.login"
	ActionLoginFailed = "auth.login_failed"
	ActionLockout     = "auth.lockout"
	ActionRefresh     = "auth.refresh"
	ActionLogout      = "auth.logout"
	ActionRegister    = "auth.register"
	ActionBootstrap   = "auth.bootstrap"
)

// # Contracts

// Recorder accepts audit events.
//
// # Contract
//
// Record must be safe for concurrent use and must never panic. Callers
// treat errors as advisory: they log and move on.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// # Nop Sink

// NopRecorder discards every event. Used in tests and as a safe default.
type NopRecorder struct{}

// Record implements [Recorder] by doing nothing.
func (NopRecorder) Record(ctx context.Context, event Event) error { return nil }
