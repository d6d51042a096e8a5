package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/config"
	"contest-service/internal/domain"
	"contest-service/internal/infra/memory"
	"contest-service/internal/infra/postgres"
	"contest-service/internal/infra/rabbitmq"
	redisinfra "contest-service/internal/infra/redis"
	"contest-service/internal/session"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// stack is the wired backend. Adapters fall back to memory when their
// backing service is not configured.
type stack struct {
	service  *app.ContestService
	registry session.Registry
	loader   *postgres.QuestionLoader
	cache    *redisinfra.QuestionRepository
	closers  []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildStack(ctx context.Context, cfg config.Config) (*stack, error) {
	st := &stack{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { redisClient.Close() })
	}

	participants := memory.NewParticipantStore()
	repos := app.Repositories{
		Participants: participants,
		Access:       memory.NewAccessStore(),
		Results:      memory.NewResultStore(participants),
		Submissions:  memory.NewSubmissionStore(),
	}
	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionSets()...)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.loader = postgres.NewQuestionLoader(pool)
		loader = st.loader

		db := postgres.OpenDB(cfg.Postgres.URL)
		st.closers = append(st.closers, func() { db.Close() })
		repos.Participants = postgres.NewParticipantRepository(db)
		repos.Access = postgres.NewAccessRepository(db)
		repos.Results = postgres.NewResultRepository(db)
		repos.Submissions = postgres.NewSubmissionRepository(db)
	} else {
		log.Printf("postgres not configured: using in-memory stores and sample questions")
	}

	questionTTL := config.Duration(cfg.Questions.TTL, 5*time.Minute)
	if redisClient != nil {
		st.cache = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
		repos.Questions = st.cache
		st.registry = redisinfra.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, time.Minute))
	} else {
		repos.Questions = memory.NewQuestionRepository(loader, questionTTL)
		st.registry = memory.NewSessionStore()
	}

	opts := []app.Option{app.WithRules(rulesFrom(cfg))}
	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, func() { pub.Close() })
		opts = append(opts, app.WithEventPublisher(pub))
	}

	st.service = app.NewContestService(repos, opts...)
	return st, nil
}

// buildPersistentStack is used by the operator commands, which are pointless
// against in-memory state.
func buildPersistentStack(ctx context.Context, configPath string) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("postgres url not configured")
	}
	return buildStack(ctx, cfg)
}

func rulesFrom(cfg config.Config) app.Rules {
	rules := app.DefaultRules()
	rules.Variants = make(map[domain.Round][]string)
	for round, rc := range cfg.Rounds {
		if len(rc.Variants) > 0 {
			rules.Variants[domain.Round(round)] = rc.Variants
		}
	}
	if cfg.Questions.Limit > 0 {
		rules.QuestionLimit = cfg.Questions.Limit
	}
	if cfg.Policy.PassRatio > 0 {
		rules.Pass = domain.PassPolicy{Ratio: cfg.Policy.PassRatio}
	}
	if cfg.Policy.AdvancementMinimums != nil {
		minimums := make(map[domain.Round]int, len(cfg.Policy.AdvancementMinimums))
		for round, min := range cfg.Policy.AdvancementMinimums {
			minimums[domain.Round(round)] = min
		}
		rules.Advancement = domain.AdvancementPolicy{Minimums: minimums}
	}
	return rules
}

func sessionConfigFrom(cfg config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.Rounds = make(map[domain.Round]session.RoundSettings, len(cfg.Rounds))
	sc.Variants = make(map[domain.Round][]string)
	for round, rc := range cfg.Rounds {
		sc.Rounds[domain.Round(round)] = session.RoundSettings{
			Mode:            session.Mode(rc.Mode),
			QuestionSeconds: rc.QuestionSeconds,
			BudgetSeconds:   rc.BudgetSeconds,
		}
		if len(rc.Variants) > 0 {
			sc.Variants[domain.Round(round)] = rc.Variants
		}
	}
	sc.ActivePoll = config.Duration(cfg.Watcher.ActivePoll, sc.ActivePoll)
	sc.IdlePoll = config.Duration(cfg.Watcher.IdlePoll, sc.IdlePoll)
	return sc
}
