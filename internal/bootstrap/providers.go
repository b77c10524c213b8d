package bootstrap

import (
	"context"
	"net/http"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"

	"phi/internal/adapters/ai"
	"phi/internal/adapters/badgerdb"
	"phi/internal/adapters/config"
	"phi/internal/adapters/contentstore"
	errnoop "phi/internal/adapters/errors/noop"
	"phi/internal/adapters/errors/sentry"
	"phi/internal/adapters/kafka"
	pgclient "phi/internal/adapters/postgres"
	redisclient "phi/internal/adapters/redis"
	"phi/internal/adapters/search"
	"phi/internal/agents"
	"phi/internal/api"
	forecastapi "phi/internal/api/forecast"
	"phi/internal/api/health"
	"phi/internal/domain/persona"
	"phi/internal/domain/reasoning"
	"phi/internal/events"
	"phi/internal/ledger"
	"phi/internal/metrics"
	"phi/internal/repository/cache"
	filerepo "phi/internal/repository/file"
	pgrepo "phi/internal/repository/postgres"
	"phi/internal/services/anchoring"
	"phi/internal/services/forecast"
	"phi/internal/tools"
	"phi/internal/tools/middleware"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects the configured stores. Postgres and Redis
// are optional; the ledger and content stores are local badger databases.
func (c *Container) MustInitInfrastructure() {
	var err error

	if c.Config.Postgres.Enabled() {
		c.PG, err = pgclient.NewClient(c.Context, c.Config.Postgres)
		if err != nil {
			c.Log.Fatalf("failed to connect postgres: %v", err)
		}
		if err := pgrepo.Migrate(c.Context, c.PG.DB()); err != nil {
			c.Log.Fatalf("failed to migrate postgres: %v", err)
		}
		c.Log.Info("PostgreSQL connected")
	}

	if c.Config.Redis.Enabled() {
		c.Redis, err = redisclient.NewClient(c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Log.Info("Redis connected")
	}

	if c.Config.Ledger.Enabled {
		c.LedgerDB, err = badgerdb.Open(c.Config.Ledger.Path, c.Config.Ledger.InMemory)
		if err != nil {
			c.Log.Fatalf("failed to open ledger: %v", err)
		}
		c.ContentDB, err = badgerdb.Open(c.Config.Content.Path, c.Config.Content.InMemory)
		if err != nil {
			c.Log.Fatalf("failed to open content store: %v", err)
		}
		c.Log.Infow("Ledger opened", "path", c.Config.Ledger.Path, "in_memory", c.Config.Ledger.InMemory)
	}
}

// ========================================
// Phase 3: Repositories
// ========================================

// MustInitRepositories selects the persona and prediction stores
func (c *Container) MustInitRepositories() {
	switch c.Config.Storage.Backend {
	case "postgres":
		personas := pgrepo.NewPersonaRepository(c.PG.DB())
		predictions := pgrepo.NewPredictionRepository(c.PG.DB())
		c.Repos.Persona = personas
		c.Repos.Prediction = predictions
		c.Repos.Counters["personas"] = personas
		c.Repos.Counters["predictions"] = predictions
	default:
		personas := filerepo.NewPersonaRepository(c.Config.Storage.DataDir)
		predictions := filerepo.NewPredictionRepository(c.Config.Storage.DataDir)
		c.Repos.Persona = personas
		c.Repos.Prediction = predictions
		c.Repos.Counters["personas"] = personas
		c.Repos.Counters["predictions"] = predictions
	}

	if c.PG != nil {
		c.Repos.Reasoning = pgrepo.NewReasoningRepository(c.PG.DB())
	}

	if c.Redis != nil {
		c.Repos.Persona = cache.NewPersonaRepository(c.Repos.Persona, c.Redis, c.Config.Storage.PersonaCacheTTL)
	}

	c.Log.Infow("Repositories initialized",
		"backend", c.Config.Storage.Backend,
		"persona_cache", c.Redis != nil,
		"reasoning_log", c.Repos.Reasoning != nil,
	)
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters builds the model, search, ledger and event adapters
func (c *Container) MustInitAdapters() {
	c.Adapters.Provider = ai.NewOpenAIProvider(c.Config.AI)
	if c.Config.AI.OpenAIKey == "" {
		c.Log.Warn("OPENAI_API_KEY not set; every forecast will use the fallback")
	}

	if c.Config.Search.Enabled() {
		c.Adapters.Search = search.NewTavilyClient(c.Config.Search)
	}

	if c.Config.Kafka.Enabled() {
		c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{Brokers: c.Config.Kafka.Brokers})
		c.Adapters.Publisher = events.NewPublisher(c.Adapters.KafkaProducer)
	}

	if c.LedgerDB != nil {
		c.Adapters.Ledger = ledger.NewRegistry(c.LedgerDB, nil)
		c.Adapters.Content = contentstore.New(c.ContentDB)
		c.Adapters.Signer = provideSigner(c.Config.Ledger, c.Log)
		c.Repos.Counters["ledger_records"] = c.Adapters.Ledger
		c.Repos.Counters["content_objects"] = c.Adapters.Content
	}

	prometheus.MustRegister(metrics.NewStoreCollector(c.Repos.Counters))
}

// ========================================
// Phase 5: Business Logic
// ========================================

// MustInitBusiness builds the tool registry and the orchestrator
func (c *Container) MustInitBusiness() {
	c.Business.ToolRegistry = provideToolRegistry(c.Adapters.Search, c.Config.Search.Timeout)
	c.Business.Orchestrator = agents.NewOrchestrator(
		c.Adapters.Provider,
		c.Business.ToolRegistry,
		agents.NewConfig(c.Config.AI, c.Config.Agent),
	)

	c.Log.Infow("Agent initialized",
		"model", c.Config.AI.Model,
		"max_steps", c.Config.Agent.MaxSteps,
		"tools", c.Business.ToolRegistry.List(),
	)
}

// ========================================
// Phase 6: Services
// ========================================

// MustInitServices wires the persona, anchoring and forecast services.
// Optional collaborators are only assigned when constructed so the
// forecast service never sees a typed nil.
func (c *Container) MustInitServices() {
	c.Services.Persona = persona.NewService(c.Repos.Persona)

	deps := forecast.Deps{
		Personas:  c.Services.Persona,
		Store:     c.Repos.Prediction,
		Generator: c.Business.Orchestrator,
		Builder:   forecast.NewRecordBuilder(c.Config.Agent.Version),
	}

	if c.Adapters.Ledger != nil {
		c.Services.Anchoring = anchoring.NewService(c.Adapters.Ledger, c.Adapters.Content, c.Adapters.Signer)
		deps.Anchorer = c.Services.Anchoring
	}
	if c.Repos.Reasoning != nil {
		c.Services.Reasoning = reasoning.NewService(c.Repos.Reasoning)
		deps.Traces = c.Services.Reasoning
	}
	if c.Adapters.Publisher != nil {
		deps.Events = c.Adapters.Publisher
	}

	c.Services.Forecast = forecast.NewService(deps)
	c.Log.Infow("Services initialized",
		"anchoring", deps.Anchorer != nil,
		"events", deps.Events != nil,
	)
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication builds the health checks and the HTTP server
func (c *Container) MustInitApplication() {
	c.Application.HealthHandler = health.New(c.Config.App.Name, c.Config.App.Version, c.healthChecks())
	c.Application.HTTPServer = api.NewServer(
		api.ServerConfig{
			Port:        c.Config.App.HTTPPort,
			ServiceName: c.Config.App.Name,
			Version:     c.Config.App.Version,
		},
		c.Application.HealthHandler,
		forecastapi.NewHandler(c.Services.Persona, c.Services.Forecast),
		c.Log,
	)
}

// Handler exposes the HTTP routes; useful for in-process tests
func (c *Container) Handler() http.Handler {
	return c.Application.HTTPServer.Handler()
}

func (c *Container) healthChecks() map[string]health.Checker {
	checks := map[string]health.Checker{}
	if c.PG != nil {
		checks["postgres"] = c.PG.Health
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Health
	}
	if c.LedgerDB != nil {
		checks["ledger"] = badgerCheck(c.LedgerDB)
		checks["content_store"] = badgerCheck(c.ContentDB)
	}
	return checks
}

func badgerCheck(db *badger.DB) health.Checker {
	return func(context.Context) error { return badgerdb.Ping(db) }
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// provideSigner loads the configured ledger key or generates an ephemeral one
func provideSigner(cfg config.LedgerConfig, log *logger.Logger) *ledger.Signer {
	if cfg.SignerKey != "" {
		signer, err := ledger.NewSigner(cfg.SignerKey)
		if err != nil {
			log.Fatalf("invalid LEDGER_SIGNER_KEY: %v", err)
		}
		return signer
	}

	signer, err := ledger.GenerateSigner()
	if err != nil {
		log.Fatalf("failed to generate ledger signer: %v", err)
	}
	log.Warnw("LEDGER_SIGNER_KEY not set; using an ephemeral signer", "address", signer.Address().Hex())
	return signer
}

// provideToolRegistry registers the search tool when a client is configured
func provideToolRegistry(client *search.TavilyClient, timeout time.Duration) *tools.Registry {
	registry := tools.NewRegistry()
	if client == nil {
		return registry
	}

	registry.Register(middleware.Chain(client.Tool(),
		middleware.TimeoutMiddleware{Timeout: timeout},
		middleware.MetricsMiddleware{},
	))
	return registry
}
