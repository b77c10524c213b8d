package bootstrap

import (
	"context"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"phi/internal/adapters/ai"
	"phi/internal/adapters/config"
	"phi/internal/adapters/contentstore"
	"phi/internal/adapters/kafka"
	pgclient "phi/internal/adapters/postgres"
	redisclient "phi/internal/adapters/redis"
	"phi/internal/adapters/search"
	"phi/internal/agents"
	"phi/internal/api"
	"phi/internal/api/health"
	"phi/internal/domain/persona"
	"phi/internal/domain/prediction"
	"phi/internal/domain/reasoning"
	"phi/internal/events"
	"phi/internal/ledger"
	"phi/internal/metrics"
	"phi/internal/services/anchoring"
	"phi/internal/services/forecast"
	"phi/internal/tools"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (optional data stores)
	PG        *pgclient.Client
	Redis     *redisclient.Client
	LedgerDB  *badger.DB
	ContentDB *badger.DB

	Repos       *Repositories
	Adapters    *Adapters
	Business    *Business
	Services    *Services
	Application *Application

	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	Persona    persona.Repository
	Prediction prediction.Repository
	Reasoning  reasoning.Repository // nil unless postgres is configured

	// Counters feed the store size gauges
	Counters map[string]metrics.Counter
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer *kafka.Producer
	Publisher     *events.Publisher
	Provider      ai.ChatProvider
	Search        *search.TavilyClient
	Ledger        *ledger.Registry
	Content       *contentstore.Store
	Signer        *ledger.Signer
}

// Business groups the reasoning components
type Business struct {
	ToolRegistry *tools.Registry
	Orchestrator *agents.Orchestrator
}

// Services groups all domain and application services
type Services struct {
	Persona   *persona.Service
	Reasoning *reasoning.Service
	Anchoring *anchoring.Service
	Forecast  *forecast.Service
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{Counters: map[string]metrics.Counter{}},
		Adapters:    &Adapters{},
		Business:    &Business{},
		Services:    &Services{},
		Application: &Application{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes everything the forecast pipeline needs.
// The HTTP layer is separate; see MustInitApplication.
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitBusiness()
	c.MustInitServices()
}

// Start serves HTTP in the background. Requires MustInitApplication.
func (c *Container) Start() error {
	if c.Application.HTTPServer == nil {
		return errors.Wrap(errors.ErrInternal, "http server not initialized")
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")
	c.Cancel()

	c.Lifecycle.Shutdown(ShutdownTargets{
		WG:            c.WG,
		HTTPServer:    c.Application.HTTPServer,
		KafkaProducer: c.Adapters.KafkaProducer,
		LedgerDB:      c.LedgerDB,
		ContentDB:     c.ContentDB,
		PG:            c.PG,
		Redis:         c.Redis,
		ErrorTracker:  c.ErrorTracker,
	}, c.Log)
}
