package tokenstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	defaultRedisKey  = "session:refreshToken"
	redisDialTimeout = 5 * time.Second
	redisOpTimeout   = 3 * time.Second
)

// RedisRepo stores the refresh token under a single Redis key, letting
// multiple hosts share one durable session slot.
type RedisRepo struct {
	client *redis.Client
	key    string
}

// RedisRepoOption modifies a RedisRepo.
type RedisRepoOption func(*RedisRepo)

// WithRedisKey overrides the key the refresh token is stored under.
func WithRedisKey(key string) RedisRepoOption {
	return func(r *RedisRepo) {
		r.key = key
	}
}

// NewRedisRepo connects to Redis at redisURL and verifies the connection.
func NewRedisRepo(redisURL string, options ...RedisRepoOption) (*RedisRepo, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewRedisRepo] invalid redis URL")
	}
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisOpTimeout
	opts.WriteTimeout = redisOpTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "[NewRedisRepo] ping")
	}

	repo := &RedisRepo{client: client, key: defaultRedisKey}
	for _, opt := range options {
		opt(repo)
	}
	return repo, nil
}

func (r *RedisRepo) Get() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	token, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[RedisRepo.Get] get")
	}
	return token, nil
}

func (r *RedisRepo) Set(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Set] set")
	}
	return nil
}

func (r *RedisRepo) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Clear] del")
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}
