package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"

	"github.com/redis/go-redis/v9"
)

var _ app.CatalogCache = (*CatalogCache)(nil)

const activeQuizzesKey = "quiz:catalog:active"

// CatalogCache stores the player-facing active quiz list as one JSON value.
// Answer keys are never part of the cached payload.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
	rnd    *rand.Rand
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) ActiveQuizzes(ctx context.Context) ([]domain.PlayerQuiz, bool) {
	raw, err := c.client.Get(ctx, activeQuizzesKey).Bytes()
	if err != nil {
		return nil, false
	}
	var quizzes []domain.PlayerQuiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return nil, false
	}
	return quizzes, true
}

func (c *CatalogCache) StoreActiveQuizzes(ctx context.Context, quizzes []domain.PlayerQuiz) error {
	if quizzes == nil {
		quizzes = []domain.PlayerQuiz{}
	}
	raw, err := json.Marshal(quizzes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeQuizzesKey, raw, c.ttlWithJitter()).Err()
}

func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, activeQuizzesKey).Err()
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
