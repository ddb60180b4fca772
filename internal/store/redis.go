package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/testerhome/ruby-china-ios/internal/crypto"
	"github.com/testerhome/ruby-china-ios/internal/domain"
)

const redisOpTimeout = 2 * time.Second

// NewRedisClient creates a Redis client from a URL (e.g. "redis://localhost:6379")
// and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// RedisCredentialStore keeps the encrypted credential under
// <namespace>.oauth.accessToken.
type RedisCredentialStore struct {
	rdb    *goredis.Client
	key    string
	crypto crypto.Service
}

func NewRedisCredentialStore(rdb *goredis.Client, namespace string, svc crypto.Service) *RedisCredentialStore {
	return &RedisCredentialStore{
		rdb:    rdb,
		key:    namespace + credentialKeySuffix,
		crypto: svc,
	}
}

func (s *RedisCredentialStore) Get() (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	sealed, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("Credential read failed, treating as absent", "key", s.key, "error", err)
		return nil, nil
	}

	plain, err := s.crypto.Decrypt(sealed)
	if err != nil {
		slog.Warn("Credential decrypt failed, treating as absent", "key", s.key, "error", err)
		return nil, nil
	}

	var cred domain.Credential
	if err := json.Unmarshal([]byte(plain), &cred); err != nil {
		slog.Warn("Credential unmarshal failed, treating as absent", "key", s.key, "error", err)
		return nil, nil
	}
	if cred.AccessToken == "" {
		return nil, nil
	}
	return &cred, nil
}

func (s *RedisCredentialStore) Set(cred domain.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	sealed, err := s.crypto.Encrypt(string(data))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.rdb.Set(ctx, s.key, sealed, 0).Err()
}

func (s *RedisCredentialStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.rdb.Del(ctx, s.key).Err()
}

// RedisProfileCache keeps the serialized profile under <namespace>.loginUserJSON.
type RedisProfileCache struct {
	rdb *goredis.Client
	key string
}

func NewRedisProfileCache(rdb *goredis.Client, namespace string) *RedisProfileCache {
	return &RedisProfileCache{
		rdb: rdb,
		key: namespace + "." + profileKeyName,
	}
}

func (c *RedisProfileCache) Get() (*domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("Profile cache read failed, treating as absent", "key", c.key, "error", err)
		return nil, nil
	}

	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		slog.Warn("Profile cache unmarshal failed, treating as absent", "key", c.key, "error", err)
		return nil, nil
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (c *RedisProfileCache) Set(profile domain.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return c.rdb.Set(ctx, c.key, data, 0).Err()
}

func (c *RedisProfileCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return c.rdb.Del(ctx, c.key).Err()
}
