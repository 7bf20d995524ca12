package app

import (
	"context"
	"path/filepath"
	"strings"

	appconfig "github.com/doeshing/skip-go/internal/application/config"
	"github.com/doeshing/skip-go/internal/application/decode"
	"github.com/doeshing/skip-go/internal/application/doctor"
	"github.com/doeshing/skip-go/internal/application/features"
	"github.com/doeshing/skip-go/internal/application/graph"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/application/workspace"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/config"
	"github.com/doeshing/skip-go/internal/infrastructure/fingerprint"
	"github.com/doeshing/skip-go/internal/infrastructure/history"
	"github.com/doeshing/skip-go/internal/infrastructure/pipeline"
	"github.com/doeshing/skip-go/internal/infrastructure/staleness"
	"github.com/doeshing/skip-go/internal/infrastructure/toolchain"
	"github.com/doeshing/skip-go/internal/pkg/logger"
	"github.com/doeshing/skip-go/internal/ports"
)

// Options tunes container construction.
type Options struct {
	ConfigPath string
	Verbose    bool
	Context    string
}

// DefaultContext is used when no context is named.
const DefaultContext = "default"

// Container wires up application services with infrastructure adapters.
type Container struct {
	Options        Options
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         ports.Logger
	Store          ports.FingerprintStore
	Tools          *toolchain.Locator
	HistoryStore   ports.HistoryRepository
	Engine         *recipe.Engine
	Recipes        workspace.Recipes
	Workspace      *workspace.Manager
	DoctorService  *doctor.Service
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return NewContainer(cfg, cfgLoader, opts), nil
}

// NewContainer wires services around an already loaded configuration.
func NewContainer(cfg domain.Config, cfgLoader *config.FileLoader, opts Options) *Container {
	if opts.Context == "" {
		opts.Context = DefaultContext
	}
	var log *logger.StdLogger
	if opts.Verbose {
		log = logger.NewStd(true)
	} else {
		log = logger.NewLeveled(cfg.LogLevel)
	}

	store := fingerprint.NewStore(log)
	locator := toolchain.NewLocator(cfg)
	runner := pipeline.NewRunner(locator, log)
	historyStore := newHistoryStore(cfg.History)
	engine := recipe.NewEngine(store, staleness.NewTracker(), runner, historyStore, log)

	symbols := cfg.Symbols.WithSymbolDefaults()
	recipes := workspace.Recipes{
		Graph:    graph.NewService(engine, symbols),
		Features: features.NewService(engine),
		Decode:   decode.NewService(engine, symbols),
	}

	c := &Container{
		Options:      opts,
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Store:        store,
		Tools:        locator,
		HistoryStore: historyStore,
		Engine:       engine,
		Recipes:      recipes,
		Workspace:    workspace.NewManager(cfg.ContextsDir, store, recipes),
	}
	if cfgLoader != nil {
		c.ConfigProvider = cfgLoader
	}
	c.DoctorService = &doctor.Service{
		ConfigProvider: c.ConfigProvider,
		Tools:          locator,
		History:        historyStore,
	}
	return c
}

// newHistoryStore picks the backend from the configured path: a jsonl
// file for .jsonl paths, SQLite otherwise.
func newHistoryStore(settings domain.HistorySettings) ports.HistoryRepository {
	if !settings.Enabled || settings.Path == "" {
		return history.Noop{}
	}
	if strings.EqualFold(filepath.Ext(settings.Path), ".jsonl") {
		return history.NewFileStore(settings.Path)
	}
	return history.NewSQLiteStore(settings.Path)
}
