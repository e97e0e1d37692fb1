package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitService counts failed login attempts per key (ip:<addr> or
// user:<id>) and blocks keys that exceed their window budget.
type RateLimitService interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) error
	Block(ctx context.Context, key string, duration time.Duration, reason string) error
	IsBlocked(ctx context.Context, key string) (bool, error)
	GetAttempts(ctx context.Context, key string) (int, error)
}

type rateLimitService struct {
	redisClient *redis.Client
	logger      *logrus.Logger
}

type Config struct {
	Enabled       bool
	RedisURL      string
	IPAttempts    int
	IPWindow      time.Duration
	BlockDuration time.Duration
}

func NewRateLimitService(config Config, logger *logrus.Logger) (RateLimitService, error) {
	if !config.Enabled {
		logger.Info("Rate limiting disabled")
		return &noopRateLimitService{}, nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"ip_attempts":    config.IPAttempts,
		"ip_window":      config.IPWindow,
		"block_duration": config.BlockDuration,
	}).Info("Rate limiting service initialized")

	return &rateLimitService{
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

func (s *rateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	current, err := s.GetAttempts(ctx, key)
	if err != nil {
		return false, err
	}
	return current < limit, nil
}

func (s *rateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	pipeline := s.redisClient.Pipeline()
	pipeline.Incr(ctx, attemptsKey(key))
	pipeline.Expire(ctx, attemptsKey(key), window)
	if _, err := pipeline.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return nil
}

func (s *rateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	if err := s.redisClient.Set(ctx, blockKey(key), reason, duration).Err(); err != nil {
		return fmt.Errorf("failed to block key: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"key":      key,
		"duration": duration,
		"reason":   reason,
	}).Warn("Rate limit block applied")
	return nil
}

func (s *rateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	err := s.redisClient.Get(ctx, blockKey(key)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	return true, nil
}

func (s *rateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	count, err := s.redisClient.Get(ctx, attemptsKey(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get attempt count: %w", err)
	}
	return count, nil
}

func attemptsKey(key string) string {
	return "ratelimit:attempts:" + key
}

func blockKey(key string) string {
	return "ratelimit:block:" + key
}

// noopRateLimitService is used when rate limiting is disabled.
type noopRateLimitService struct{}

func (n *noopRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func (n *noopRateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	return nil
}

func (n *noopRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return nil
}

func (n *noopRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (n *noopRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	return 0, nil
}
