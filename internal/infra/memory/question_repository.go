package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"contest-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question content from a backing store (e.g., document DB).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error) {
	key := setKey(round, variant)
	if set, ok := r.lookup(key, r.clock()); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		if set, ok := r.lookup(key, now); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestions(ctx, round, variant)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedSet{set: set, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) lookup(key string, now time.Time) (domain.QuestionSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return domain.QuestionSet{}, false
	}
	return entry.set, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by in-memory sets (useful for tests/demos).
type StaticQuestionLoader struct {
	sets map[string]domain.QuestionSet
}

func NewStaticQuestionLoader(sets ...domain.QuestionSet) *StaticQuestionLoader {
	l := &StaticQuestionLoader{sets: make(map[string]domain.QuestionSet, len(sets))}
	for _, set := range sets {
		l.sets[setKey(set.Round, set.Variant)] = set
	}
	return l
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, round domain.Round, variant string) (domain.QuestionSet, error) {
	if set, ok := l.sets[setKey(round, variant)]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionsNotFound
}

func setKey(round domain.Round, variant string) string {
	return fmt.Sprintf("%d:%s", round, variant)
}
