// pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"classquiz/internal/models"
)

const (
	ttl = 24 * time.Hour
	// leaderboards change with every submission; keep them short-lived
	leaderboardTTL = 5 * time.Minute
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = redis.Nil

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{
		Addr: addr,
	}))
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func quizKey(id uint) string        { return fmt.Sprintf("quiz:%d", id) }
func leaderboardKey(id uint) string { return fmt.Sprintf("leaderboard:%d", id) }

func (c *RedisCache) SetQuiz(ctx context.Context, quiz *models.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(quiz.ID), data, ttl).Err()
}

func (c *RedisCache) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	data, err := c.client.Get(ctx, quizKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *RedisCache) DeleteQuiz(ctx context.Context, id uint) error {
	return c.client.Del(ctx, quizKey(id)).Err()
}

// SetLeaderboard replaces the quiz's sorted set with entries.
func (c *RedisCache) SetLeaderboard(ctx context.Context, quizID uint, entries []models.LeaderboardEntry) error {
	key := leaderboardKey(quizID)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, entry := range entries {
		pipe.ZAdd(ctx, key, &redis.Z{
			Score:  float64(entry.Score),
			Member: entry.Username,
		})
	}
	pipe.Expire(ctx, key, leaderboardTTL)

	_, err := pipe.Exec(ctx)
	return err
}

// GetLeaderboard returns ErrMiss when the quiz has no cached leaderboard.
// An empty leaderboard is never cached, so a missing key always means a miss.
func (c *RedisCache) GetLeaderboard(ctx context.Context, quizID uint) ([]models.LeaderboardEntry, error) {
	key := leaderboardKey(quizID)

	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrMiss
	}

	results, err := c.client.ZRevRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = models.LeaderboardEntry{
			Username: member,
			Score:    int(z.Score),
		}
	}
	return entries, nil
}

func (c *RedisCache) DeleteLeaderboard(ctx context.Context, quizID uint) error {
	return c.client.Del(ctx, leaderboardKey(quizID)).Err()
}
