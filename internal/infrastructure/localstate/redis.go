package localstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearthlabs/hearth/internal/infrastructure/env"
	"github.com/redis/go-redis/v9"
)

const (
	lastRoomKeyPrefix = "hearth:last_room:"

	defaultTimeout = 2 * time.Second
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

func NewRedisDefaultConfig() *RedisConfig {
	return &RedisConfig{
		Addr:     env.GetString("REDIS_ADDR", "localhost:6379"),
		Password: env.GetString("REDIS_PASSWORD", ""),
		DB:       env.GetInt("REDIS_DB", 0),
		Timeout:  defaultTimeout,
	}
}

// RedisSlot is the single durable key remembering the last-joined room
// for one user, read once at startup for auto-rejoin and cleared on
// explicit leave.
type RedisSlot struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisSlot(ctx context.Context, cfg *RedisConfig, userID string) (*RedisSlot, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisSlot{
		client:  client,
		key:     lastRoomKeyPrefix + userID,
		timeout: cfg.Timeout,
	}, nil
}

// Load returns the remembered room id, or "" when nothing is stored.
func (s *RedisSlot) Load(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	roomID, err := s.client.Get(opCtx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load last room: %w", err)
	}

	return roomID, nil
}

func (s *RedisSlot) Store(ctx context.Context, roomID string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(opCtx, s.key, roomID, 0).Err(); err != nil {
		return fmt.Errorf("failed to store last room: %w", err)
	}
	return nil
}

func (s *RedisSlot) Clear(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(opCtx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear last room: %w", err)
	}
	return nil
}

func (s *RedisSlot) Close() error {
	return s.client.Close()
}
