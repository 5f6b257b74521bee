package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"space-quiz-bot/internal/app"
	"space-quiz-bot/internal/domain"
)

const catalogKey = "quiz:catalog"

// CatalogCache is a read-through Redis cache in front of a question
// store. The whole catalog lives in one hash (field = position, value =
// JSON question) so a single fill serves every lookup; admin mutations
// pass through to the backing store and drop the hash.
type CatalogCache struct {
	client *redis.Client
	inner  app.QuestionStore
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogCache(client *redis.Client, inner app.QuestionStore, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) Get(ctx context.Context, position int64) (domain.Question, error) {
	raw, err := c.client.HGet(ctx, catalogKey, strconv.FormatInt(position, 10)).Result()
	if err == nil {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err == nil {
			return q, nil
		}
	}

	questions, err := c.load(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.Position == position {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (c *CatalogCache) All(ctx context.Context) ([]domain.Question, error) {
	fields, err := c.client.HGetAll(ctx, catalogKey).Result()
	if err == nil && len(fields) > 0 {
		questions := make([]domain.Question, 0, len(fields))
		for _, raw := range fields {
			var q domain.Question
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				return c.load(ctx)
			}
			questions = append(questions, q)
		}
		sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
		return questions, nil
	}
	return c.load(ctx)
}

func (c *CatalogCache) Count(ctx context.Context) (int, error) {
	n, err := c.client.HLen(ctx, catalogKey).Result()
	if err == nil && n > 0 {
		return int(n), nil
	}
	questions, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(questions), nil
}

func (c *CatalogCache) Add(ctx context.Context, q domain.Question) (int64, error) {
	position, err := c.inner.Add(ctx, q)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx)
	return position, nil
}

func (c *CatalogCache) Delete(ctx context.Context, position int64) (bool, error) {
	deleted, err := c.inner.Delete(ctx, position)
	if err != nil {
		return false, err
	}
	if deleted {
		c.invalidate(ctx)
	}
	return deleted, nil
}

// load fetches the catalog from the backing store and fills the hash.
// Concurrent misses coalesce through singleflight.
func (c *CatalogCache) load(ctx context.Context) ([]domain.Question, error) {
	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the hash already.
		fields, err := c.client.HGetAll(ctx, catalogKey).Result()
		if err == nil && len(fields) > 0 {
			questions := make([]domain.Question, 0, len(fields))
			for _, raw := range fields {
				var q domain.Question
				if err := json.Unmarshal([]byte(raw), &q); err != nil {
					questions = nil
					break
				}
				questions = append(questions, q)
			}
			if questions != nil {
				sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
				return questions, nil
			}
		}

		questions, err := c.inner.All(ctx)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		pipe := c.client.Pipeline()
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, catalogKey, strconv.FormatInt(q.Position, 10), data)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, catalogKey, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CatalogCache) invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, catalogKey).Err()
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
