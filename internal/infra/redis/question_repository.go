package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"contest-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question content from a backing store (e.g., document DB).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets in Redis as JSON and falls back to
// a loader on cache miss.
// Sets are stored as: SET contest:questions:{round}:{variant} {json}
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error) {
	key := r.key(round, variant)
	if set, ok := r.cached(ctx, key); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.cached(ctx, key); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestions(ctx, round, variant)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		raw, err := json.Marshal(set)
		if err != nil {
			return domain.QuestionSet{}, fmt.Errorf("marshal question set: %w", err)
		}
		_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops a cached set so the next read reloads it.
func (r *QuestionRepository) Invalidate(ctx context.Context, round domain.Round, variant string) error {
	return r.client.Del(ctx, r.key(round, variant)).Err()
}

func (r *QuestionRepository) cached(ctx context.Context, key string) (domain.QuestionSet, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *QuestionRepository) key(round domain.Round, variant string) string {
	return fmt.Sprintf("contest:questions:%d:%s", round, variant)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
