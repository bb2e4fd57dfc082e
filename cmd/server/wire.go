package main

import (
	"context"
	"fmt"

	"github.com/Rrens/event-assistant/internal/api"
	"github.com/Rrens/event-assistant/internal/api/handler"
	"github.com/Rrens/event-assistant/internal/config"
	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/embedding"
	embedGemini "github.com/Rrens/event-assistant/internal/embedding/gemini"
	embedOllama "github.com/Rrens/event-assistant/internal/embedding/ollama"
	embedOpenAI "github.com/Rrens/event-assistant/internal/embedding/openai"
	"github.com/Rrens/event-assistant/internal/llm"
	"github.com/Rrens/event-assistant/internal/llm/anthropic"
	"github.com/Rrens/event-assistant/internal/llm/gemini"
	"github.com/Rrens/event-assistant/internal/llm/ollama"
	"github.com/Rrens/event-assistant/internal/llm/openai"
	"github.com/Rrens/event-assistant/internal/repository/memory"
	"github.com/Rrens/event-assistant/internal/repository/mongo"
	"github.com/Rrens/event-assistant/internal/repository/postgres"
	"github.com/Rrens/event-assistant/internal/repository/redis"
	"github.com/Rrens/event-assistant/internal/repository/sqlite"
	"github.com/Rrens/event-assistant/internal/security"
	"github.com/Rrens/event-assistant/internal/service"
	"github.com/Rrens/event-assistant/internal/txn"
	"github.com/rs/zerolog/log"
)

type application struct {
	deps    api.Dependencies
	closers []func()
}

func (a *application) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// storage is the relational backend the services run against
type storage struct {
	beginner txn.Beginner
	users    domain.UserRepository
	events   domain.EventRepository
	guests   domain.GuestRepository
	db       *postgres.DB
}

func build(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{}
	fail := func(err error) (*application, error) {
		app.close()
		return nil, err
	}

	store, err := openStorage(ctx, cfg, app)
	if err != nil {
		return fail(err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		app.onClose(func() { _ = redisClient.Close() })
	}

	history, err := openHistory(ctx, cfg, store, redisClient, app)
	if err != nil {
		return fail(err)
	}

	embedder, err := newEmbedder(ctx, cfg, redisClient, app)
	if err != nil {
		return fail(err)
	}

	llmRouter := newLLMRouter(cfg)
	provider, err := llmRouter.Select("")
	if err != nil {
		return fail(fmt.Errorf("default llm provider unavailable: %w", err))
	}

	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	exec := txn.NewExecutor(store.beginner, txn.NewRetrier(cfg.Concurrency.MaxAttempts, cfg.Concurrency.Backoff))

	counter := service.NewCountExtractor(provider, cfg.LLM.Model, generation(cfg.LLM.Extract),
		cfg.Retrieval.DefaultK, cfg.Retrieval.MaxK)
	assistant := service.NewAssistantService(embedder, counter, store.events, provider, history, service.AssistantConfig{
		Model:      cfg.LLM.Model,
		Options:    generation(cfg.LLM.Answer),
		Probes:     cfg.Retrieval.Probes,
		MaxHistory: cfg.Retrieval.MaxHistoryInContext,
	})

	app.deps = api.Dependencies{
		JWTManager: jwtManager,
		Users:      service.NewUserService(exec, store.users),
		Auth:       service.NewAuthService(store.users, jwtManager),
		Events:     service.NewEventService(exec, store.events, store.users, store.guests, embedder),
		Guests:     service.NewGuestService(exec, store.events, store.users, store.guests),
		Assistant:  assistant,
		LLMRouter:  llmRouter,
		Stores:     map[string]handler.Pinger{},
		Timeout:    cfg.Server.MiddlewareTimeout,
	}
	if store.db != nil {
		app.deps.Stores["database"] = store.db
	}
	if redisClient != nil {
		app.deps.Stores["redis"] = redisClient
		app.deps.Limiter = redis.NewRateLimiter(redisClient, cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
		app.deps.Cache = redis.NewEmbeddingCache(redisClient)
	}

	return app, nil
}

func openStorage(ctx context.Context, cfg *config.Config, app *application) (*storage, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		mem := memory.NewStore()
		return &storage{beginner: mem, users: mem.Users(), events: mem.Events(), guests: mem.Guests()}, nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.onClose(db.Close)

	return &storage{
		beginner: db,
		users:    postgres.NewUserRepository(db),
		events:   postgres.NewEventRepository(db),
		guests:   postgres.NewGuestRepository(db),
		db:       db,
	}, nil
}

func openHistory(ctx context.Context, cfg *config.Config, store *storage, redisClient *redis.Client, app *application) (domain.HistoryStore, error) {
	capacity := cfg.History.Capacity

	var history domain.HistoryStore
	switch cfg.History.Backend {
	case "none":
		return nil, nil
	case "", "memory":
		history = memory.NewHistoryStore(capacity)
	case "sqlite":
		sqliteStore, err := sqlite.Open(ctx, cfg.History.SQLitePath, capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite history: %w", err)
		}
		app.onClose(func() { _ = sqliteStore.Close() })
		history = sqliteStore
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("history.backend redis requires redis.enabled")
		}
		history = redis.NewHistoryStore(redisClient, capacity, cfg.History.TTL)
	case "mongo":
		mongoStore, err := mongo.Connect(ctx, cfg.Mongo, capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		app.onClose(func() { _ = mongoStore.Close() })
		history = mongoStore
	case "postgres":
		if store.db == nil {
			return nil, fmt.Errorf("history.backend postgres requires database.driver postgres")
		}
		history = postgres.NewHistoryStore(store.db, capacity)
	default:
		return nil, fmt.Errorf("unknown history.backend %q", cfg.History.Backend)
	}

	if cfg.History.EncryptionKey == "" {
		return history, nil
	}
	enc, err := security.NewEncryptorFromSecret(cfg.History.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid history encryption key: %w", err)
	}
	return security.NewEncryptedHistoryStore(history, enc), nil
}

func newEmbedder(ctx context.Context, cfg *config.Config, redisClient *redis.Client, app *application) (*embedding.Service, error) {
	var provider embedding.Provider
	switch cfg.Embedding.Provider {
	case "", "local":
		provider = embedOpenAI.NewProvider("local", cfg.LLM.Local.BaseURL, cfg.LLM.Local.APIKey, cfg.Embedding.Model, cfg.LLM.RequestTimeout)
	case "openai":
		provider = embedOpenAI.NewProvider("openai", cfg.LLM.OpenAI.BaseURL, cfg.LLM.OpenAI.APIKey, cfg.Embedding.Model, cfg.LLM.RequestTimeout)
	case "ollama":
		provider = embedOllama.NewProvider(cfg.LLM.Ollama.Host, cfg.Embedding.Model)
	case "gemini":
		p, err := embedGemini.NewProvider(ctx, cfg.LLM.Gemini.APIKey, cfg.Embedding.Model)
		if err != nil {
			return nil, err
		}
		app.onClose(func() { _ = p.Close() })
		provider = p
	default:
		return nil, fmt.Errorf("unknown embedding.provider %q", cfg.Embedding.Provider)
	}

	svc := embedding.NewService(provider, cfg.Embedding.Dimension)
	if redisClient != nil && cfg.Embedding.CacheTTL > 0 {
		svc = svc.WithCache(redis.NewEmbeddingCache(redisClient), cfg.Embedding.CacheTTL)
	}
	return svc, nil
}

func newLLMRouter(cfg *config.Config) *llm.Router {
	router := llm.NewRouter(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	router.Register(openai.NewLocalProvider(cfg.LLM.Local.BaseURL, cfg.LLM.Local.APIKey, cfg.LLM.Local.Model))
	router.Register(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.BaseURL, cfg.LLM.OpenAI.Model))
	router.Register(openai.NewDeepSeekProvider(cfg.LLM.DeepSeek.APIKey, cfg.LLM.DeepSeek.Model))
	router.Register(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
	router.Register(gemini.NewProvider(cfg.LLM.Gemini))
	if cfg.LLM.Ollama.Host != "" {
		router.Register(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}

	return router
}

func generation(g config.GenerationConfig) llm.Options {
	return llm.Options{
		Temperature:      g.Temperature,
		TopP:             g.TopP,
		FrequencyPenalty: g.FrequencyPenalty,
		PresencePenalty:  g.PresencePenalty,
		MaxTokens:        g.MaxTokens,
	}
}
