// Package timeouts provides centralized timeout values for handler operations.
//
// Values feed context.WithTimeout around MongoDB, GridFS, and Redis calls.
// They can be overridden at startup with Configure or ConfigureFromEnv.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: simple single-document reads or lookups
//   - Medium: list queries, moderate writes, multi-step reads
//   - Long: document streaming, operations touching multiple collections
//   - Batch: user lifecycle sweeps and delete cascades across many projects
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EnvPrefix prefixes the environment variables read by ConfigureFromEnv.
const EnvPrefix = "PROJECTHUB_TIMEOUT_"

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

// Ping is for health endpoints and startup connectivity checks.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short is for single-document reads and writes.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium is for list queries and multi-step operations such as invites.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Long is for uploads and document streaming.
func Long() time.Duration { return get(func(c Config) time.Duration { return c.Long }) }

// Batch is for user lifecycle sweeps and index builds.
func Batch() time.Duration { return get(func(c Config) time.Duration { return c.Batch }) }

// fields pairs each Config field with its environment suffix.
func fields(c *Config) []struct {
	name string
	dst  *time.Duration
} {
	return []struct {
		name string
		dst  *time.Duration
	}{
		{"PING", &c.Ping},
		{"SHORT", &c.Short},
		{"MEDIUM", &c.Medium},
		{"LONG", &c.Long},
		{"BATCH", &c.Batch},
	}
}

// Configure overrides timeouts. Zero values in cfg keep the current value.
// Call it during startup before handlers run.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	src := fields(&cfg)
	for i, f := range fields(&cur) {
		if v := *src[i].dst; v > 0 {
			*f.dst = v
		}
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

// ConfigureFromEnv reads PROJECTHUB_TIMEOUT_PING, _SHORT, _MEDIUM, _LONG and
// _BATCH as Go durations ("2s", "500ms", "2m"). Unset or invalid values are
// skipped. It returns how many values were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for _, f := range fields(&cfg) {
		v := os.Getenv(EnvPrefix + f.name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*f.dst = d
			n++
		}
	}
	Configure(cfg)
	return n
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Batch(), log, "user global change")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
