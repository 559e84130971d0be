package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abex/clubes-abex/pkg/logger"
)

// commandLogger warns about slow commands and logs failures. redis.Nil is a
// normal miss and stays quiet.
type commandLogger struct {
	logg *logger.Logger
	slow time.Duration
	now  func() time.Time
}

func (h commandLogger) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

func (h commandLogger) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logg.Error(h.logg.WithField(ctx, "addr", addr), "redis.dial_failed", err)
		}
		return conn, err
	}
}

func (h commandLogger) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := h.clock()
		err := next(ctx, cmd)
		h.observe(ctx, cmd.Name(), 1, h.clock().Sub(start), err)
		return err
	}
}

func (h commandLogger) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := h.clock()
		err := next(ctx, cmds)
		h.observe(ctx, "pipeline", len(cmds), h.clock().Sub(start), err)
		return err
	}
}

func (h commandLogger) observe(ctx context.Context, name string, size int, took time.Duration, err error) {
	failed := err != nil && !errors.Is(err, redis.Nil)
	slow := h.slow > 0 && took >= h.slow
	if !failed && !slow {
		return
	}
	ctx = h.logg.WithFields(ctx, map[string]any{
		"redis_cmd":   name,
		"redis_cmds":  size,
		"duration_ms": took.Milliseconds(),
	})
	if failed {
		h.logg.Error(ctx, "redis.command_failed", err)
		return
	}
	h.logg.Warn(ctx, "redis.slow_command")
}
