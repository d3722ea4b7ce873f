package eventstore

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/logging"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

// DefaultRedisKey is the list producers RPUSH event documents onto.
const DefaultRedisKey = "honeywatch:events"

// RedisReader reads events from a Redis list, one JSON document per element.
type RedisReader struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

// RedisConfig holds connection settings for RedisReader.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisReader connects a reader to the configured Redis list. No
// connection is made until the first Read.
func NewRedisReader(cfg RedisConfig, log *zap.Logger) *RedisReader {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	return newRedisReader(client, cfg.Key, log)
}

func newRedisReader(client *redis.Client, key string, log *zap.Logger) *RedisReader {
	if key == "" {
		key = DefaultRedisKey
	}
	log = logging.OrNop(log)
	return &RedisReader{client: client, key: key, log: log}
}

// Read implements model.RecordReader. A missing key is an empty store.
func (r *RedisReader) Read(ctx context.Context) ([]model.EventRecord, error) {
	items, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.EventRecord{}, nil
		}
		return nil, apperr.StoreUnavailable("eventstore.redis", err)
	}

	records := make([]model.EventRecord, 0, len(items))
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		rec, err := DecodeLine(item)
		if err != nil {
			skipMalformed(r.log, "redis", i+1, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close releases the Redis connection pool.
func (r *RedisReader) Close() error {
	return r.client.Close()
}
