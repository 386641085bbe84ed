package repository

import (
	"context"
	"fmt"
	"time"

	"drivebook/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisAvailabilityRepository caches the availability flag in redis so
// read-heavy availability checks stay off the store.
type RedisAvailabilityRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisAvailabilityRepository(client *redis.Client, ttl time.Duration) *RedisAvailabilityRepository {
	return &RedisAvailabilityRepository{
		client: client,
		ttl:    ttl,
	}
}

func availabilityKey(vehicleID int64) string {
	return fmt.Sprintf("vehicle_availability:%d", vehicleID)
}

func (r *RedisAvailabilityRepository) GetAvailability(ctx context.Context, vehicleID int64) (*bool, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, availabilityKey(vehicleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability from redis: %w", err)
	}

	available := val == "1"
	return &available, nil
}

func (r *RedisAvailabilityRepository) SetAvailability(ctx context.Context, vehicleID int64, available bool) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	val := "0"
	if available {
		val = "1"
	}
	if err := r.client.Set(ctx, availabilityKey(vehicleID), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability in redis: %w", err)
	}
	return nil
}

func (r *RedisAvailabilityRepository) Invalidate(ctx context.Context, vehicleID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, availabilityKey(vehicleID)).Err(); err != nil {
		return fmt.Errorf("failed to delete availability from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
