package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader generates question sets from a backing source.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, skill string) ([]string, error)
}

// QuestionCache caches generated question sets in Redis (one list per
// skill) and falls back to a loader on cache miss.
// Questions are stored as: RPUSH assessment:questions:{skill} q1 q2 ...
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Questions(ctx context.Context, skill string) ([]string, error) {
	key := c.key(skill)

	cached, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err == nil && len(cached) > 0 {
		return cached, nil
	}

	result, err, _ := c.sf.Do(skill, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.LRange(ctx, key, 0, -1).Result()
		if err == nil && len(cached) > 0 {
			return cached, nil
		}

		questions, err := c.loader.LoadQuestions(ctx, skill)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		values := make([]interface{}, len(questions))
		for i, q := range questions {
			values[i] = q
		}
		pipe := c.client.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (c *QuestionCache) key(skill string) string {
	return "assessment:questions:" + skill
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
