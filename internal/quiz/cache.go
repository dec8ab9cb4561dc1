package quiz

import (
	"context"
	"log"

	"classquiz/internal/models"
)

// Cache is the optional read-through layer in front of the repository.
type Cache interface {
	GetQuiz(ctx context.Context, id uint) (*models.Quiz, error)
	SetQuiz(ctx context.Context, quiz *models.Quiz) error
	DeleteQuiz(ctx context.Context, id uint) error
	GetLeaderboard(ctx context.Context, quizID uint) ([]models.LeaderboardEntry, error)
	SetLeaderboard(ctx context.Context, quizID uint, entries []models.LeaderboardEntry) error
	DeleteLeaderboard(ctx context.Context, quizID uint) error
}

// cachedQuizzes serves quiz definitions from the cache and falls back to
// the repository, refilling the cache on a miss.
type cachedQuizzes struct {
	repo  *Repository
	cache Cache
}

func (c cachedQuizzes) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	if c.cache != nil {
		if quiz, err := c.cache.GetQuiz(ctx, id); err == nil {
			return quiz, nil
		}
	}

	quiz, err := c.repo.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.SetQuiz(ctx, quiz); err != nil {
			log.Printf("Error caching quiz %d: %v", id, err)
		}
	}
	return quiz, nil
}

func (c cachedQuizzes) forget(ctx context.Context, id uint) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeleteQuiz(ctx, id); err != nil {
		log.Printf("Error evicting quiz %d from cache: %v", id, err)
	}
	if err := c.cache.DeleteLeaderboard(ctx, id); err != nil {
		log.Printf("Error evicting leaderboard %d from cache: %v", id, err)
	}
}
