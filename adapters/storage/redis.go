package storage

import (
	"context"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

const defaultRedisPrefix = "timbercalc:"

// RedisKV stores keys in Redis under a common prefix
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV connects to Redis and verifies the connection
func NewRedisKV(ctx context.Context, cfg config.RedisConfig) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Storage("connect to redis at "+cfg.Addr, err)
	}
	return NewRedisKVFromClient(client, cfg.Prefix), nil
}

// NewRedisKVFromClient wraps an existing client
func NewRedisKVFromClient(client *redis.Client, prefix string) *RedisKV {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisKV{client: client, prefix: prefix}
}

func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Storage("redis get "+key, err)
	}
	return data, true, nil
}

func (s *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Storage("redis set "+key, err)
	}
	return nil
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Storage("redis del "+key, err)
	}
	return nil
}

func (s *RedisKV) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Storage("redis scan", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *RedisKV) Close() error {
	return s.client.Close()
}
