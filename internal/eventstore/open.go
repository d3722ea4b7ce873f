package eventstore

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/model"
)

// Supported store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config selects and configures the record store backend.
type Config struct {
	Backend string
	LogFile string
	Redis   RedisConfig
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured reader. The returned closer releases backend
// resources and is always non-nil on success.
func Open(cfg Config, log *zap.Logger) (model.RecordReader, io.Closer, error) {
	switch cfg.Backend {
	case "", BackendFile:
		path := cfg.LogFile
		if path == "" {
			path = model.DefaultLogFile
		}
		return NewFileReader(path, log), nopCloser{}, nil
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, nil, fmt.Errorf("eventstore: redis backend requires an address")
		}
		r := NewRedisReader(cfg.Redis, log)
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("eventstore: unknown backend %q (want %q or %q)", cfg.Backend, BackendFile, BackendRedis)
	}
}
