// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/redisboard/internal/platform/constants"
)

// recordTimeout caps how long a single append may take. The auth flow never
// waits longer than this on the audit sink.
const recordTimeout = 2 * time.Second

// streamMaxLen bounds the stream with approximate trimming (XADD MAXLEN ~).
const streamMaxLen = 100_000

// RedisRecorder appends audit events to a Redis Stream.
//
// The audit-log subsystem (out of scope here) consumes the stream and
// persists entries for rendering in the dashboard.
type RedisRecorder struct {
	client *redis.Client
	stream string
}

// NewRedisRecorder creates a stream-backed [Recorder].
func NewRedisRecorder(client *redis.Client) *RedisRecorder {
	return &RedisRecorder{
		client: client,
		stream: constants.RedisAuditStream,
	}
}

/*
Record appends one event to the audit stream.

Description: Bounded both in time (recordTimeout) and in stream length
(streamMaxLen, approximate trimming) so the sink can never grow or stall
without limit.

Parameters:
  - ctx: context.Context
  - event: Event

Returns:
  - error: Stream append failures (advisory only — callers log and continue)
*/
func (recorder *RedisRecorder) Record(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	recordCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	err := recorder.client.XAdd(recordCtx, &redis.XAddArgs{
		Stream: recorder.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"actor":       event.Actor,
			"action":      event.Action,
			"resource":    event.Resource,
			"ip_address":  event.IPAddress,
			"user_agent":  event.UserAgent,
			"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()

	if err != nil {
		return fmt.Errorf("audit_redis_record_failed: %w", err)
	}

	return nil
}
