package repository

import (
	"context"
	"errors"
	"fmt"

	"MilestoneMarket/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisConfig redis 连接参数
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore 集合以 JSON 字符串存放在单个 key 下，不设置过期
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore 连接 redis 并 ping 一次确认可用
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Key == "" {
		return nil, errors.New("redis store: key is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisStore{rdb: rdb, key: cfg.Key}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Load(ctx context.Context) ([]*model.Market, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*model.Market{}, nil
		}
		return nil, fmt.Errorf("redis: get %s: %w", s.key, err)
	}
	return decodeSnapshot(data)
}

func (s *RedisStore) Save(ctx context.Context, markets []*model.Market) error {
	data, err := encodeSnapshot(markets)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", s.key, err)
	}
	return nil
}
