package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"skill-assessment-service/internal/domain"
)

// QuestionLoader generates question sets from a backing source (the
// interview model, a fixture, etc).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, skill string) ([]string, error)
}

// QuestionCache caches generated question sets per skill with TTL, so
// repeated attempts at the same skill do not regenerate questions.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []string
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (c *QuestionCache) Questions(ctx context.Context, skill string) ([]string, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[skill]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(skill, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[skill]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadQuestions(ctx, skill)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[skill] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves fixed question sets from a map (useful for
// tests/demos).
type StaticQuestionLoader struct {
	questions map[string][]string
}

func NewStaticQuestionLoader(questions map[string][]string) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, skill string) ([]string, error) {
	if qs, ok := l.questions[skill]; ok {
		return qs, nil
	}
	return nil, domain.ErrNoQuestions
}
