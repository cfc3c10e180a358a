package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LogSink mirrors every committed event into the service log.
type LogSink struct {
	Hub    *Hub
	Logger *zap.Logger
}

func (s *LogSink) Run(ctx context.Context) error {
	if s == nil || s.Hub == nil || s.Logger == nil {
		return nil
	}
	id, ch := s.Hub.Subscribe("")
	defer s.Hub.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			s.Logger.Info("ledger event",
				zap.Uint64("id", e.ID),
				zap.String("kind", e.Kind),
				zap.String("treasury", e.Treasury),
				zap.String("strategy", e.Strategy),
				zap.String("actor", e.Actor),
			)
		}
	}
}

// RedisSink appends committed events to a Redis stream for out-of-process
// consumers. Delivery is best effort; the durable record is the
// ledger_events table.
type RedisSink struct {
	Hub    *Hub
	Client *redis.Client
	Stream string
	MaxLen int64
	Logger *zap.Logger
}

func (s *RedisSink) Run(ctx context.Context) error {
	if s == nil || s.Hub == nil || s.Client == nil || s.Stream == "" {
		return nil
	}
	id, ch := s.Hub.Subscribe("")
	defer s.Hub.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			err := s.Client.XAdd(ctx, &redis.XAddArgs{
				Stream: s.Stream,
				MaxLen: s.MaxLen,
				Approx: true,
				Values: map[string]any{
					"id":         e.ID,
					"uid":        e.UID,
					"kind":       e.Kind,
					"treasury":   e.Treasury,
					"strategy":   e.Strategy,
					"actor":      e.Actor,
					"payload":    string(e.Payload),
					"emitted_at": e.EmittedAt.UTC().Format(time.RFC3339Nano),
				},
			}).Err()
			if err != nil && s.Logger != nil {
				s.Logger.Warn("redis sink append failed", zap.String("uid", e.UID), zap.Error(err))
			}
		}
	}
}
