package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStoreConfig holds the configuration for the Redis client.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces cache paths inside a shared Redis instance.
	KeyPrefix string
	// TTL of zero stores artifacts without expiry.
	TTL time.Duration
}

// RedisStore keeps cached artifacts as byte values keyed by cache path.
// Suited to deployments where cache consumers do not share a filesystem.
type RedisStore struct {
	redisClient *redis.Client
	config      RedisStoreConfig
	logger      zerolog.Logger
}

// NewRedisStore creates and connects a RedisStore. It pings the Redis server
// to ensure connectivity before returning.
func NewRedisStore(ctx context.Context, config RedisStoreConfig, logger zerolog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", config.Addr).Msg("Successfully connected to Redis.")

	return &RedisStore{
		redisClient: rdb,
		config:      config,
		logger:      logger.With().Str("component", "RedisStore").Logger(),
	}, nil
}

// Read retrieves the artifact bytes for path. A redis.Nil reply is a normal
// absence and maps to ErrNotFound.
func (s *RedisStore) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := s.redisClient.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		s.logger.Error().Err(err).Str("path", path).Msg("Unexpected Redis error during read.")
		return nil, fmt.Errorf("failed to read %s from redis: %w", path, err)
	}
	return data, nil
}

// Write stores the artifact bytes for path with the configured TTL. Writes
// are synchronous: the engine's contract is that a completed create strategy
// has fully persisted its artifact.
func (s *RedisStore) Write(ctx context.Context, path string, data []byte) error {
	if err := s.redisClient.Set(ctx, s.key(path), data, s.config.TTL).Err(); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to write artifact to Redis.")
		return fmt.Errorf("failed to write %s to redis: %w", path, err)
	}
	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Successfully stored artifact in Redis.")
	return nil
}

// Exists reports key presence.
func (s *RedisStore) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.redisClient.Exists(ctx, s.key(path)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s in redis: %w", path, err)
	}
	return n > 0, nil
}

// EnsureParentDir is a no-op for a key-value namespace.
func (s *RedisStore) EnsureParentDir(_ context.Context, _ string) error {
	return nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	if s.redisClient != nil {
		s.logger.Info().Msg("Closing Redis client connection...")
		return s.redisClient.Close()
	}
	return nil
}

func (s *RedisStore) key(path string) string {
	if s.config.KeyPrefix == "" {
		return path
	}
	return s.config.KeyPrefix + ":" + path
}
