package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Trail records operator-relevant actions (who did what through the API).
// Every entry lands in the structured log; when a Redis client is wired the
// entry is also appended to a stream so external tooling can tail it. Both
// sinks are best effort, the durable audit record for ledger mutations is
// the ledger_events table.
type Trail struct {
	Agent  string
	Logger *zap.Logger
	Redis  *redis.Client
	Stream string
	MaxLen int64
}

type Entry struct {
	Action  string         `json:"action"`
	Level   string         `json:"level"`
	Actor   string         `json:"actor,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

func (t *Trail) Record(ctx context.Context, e Entry) error {
	if t == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if t.Logger != nil {
		fields := []zap.Field{
			zap.String("agent", t.Agent),
			zap.String("action", e.Action),
			zap.String("actor", e.Actor),
			zap.Any("details", e.Details),
		}
		switch e.Level {
		case "error":
			t.Logger.Error("audit", fields...)
		case "warn":
			t.Logger.Warn("audit", fields...)
		default:
			t.Logger.Info("audit", fields...)
		}
	}
	if t.Redis == nil {
		return nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	stream := t.Stream
	if stream == "" {
		stream = "jetson:audit"
	}
	return t.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: t.MaxLen,
		Approx: true,
		Values: map[string]any{
			"agent":  t.Agent,
			"action": e.Action,
			"level":  e.Level,
			"actor":  e.Actor,
			"entry":  string(raw),
		},
	}).Err()
}

// LevelFromStatus grades an HTTP response for the audit trail.
func LevelFromStatus(status int) string {
	if status >= 500 {
		return "error"
	}
	if status >= 400 {
		return "warn"
	}
	return "info"
}
