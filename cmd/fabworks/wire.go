package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/agent"
	"github.com/tmcgann/fabworks/internal/artifact"
	"github.com/tmcgann/fabworks/internal/config"
	"github.com/tmcgann/fabworks/internal/llm"
	"github.com/tmcgann/fabworks/internal/router"
	"github.com/tmcgann/fabworks/internal/schema"
	"github.com/tmcgann/fabworks/internal/supervisor"
	"github.com/tmcgann/fabworks/internal/toolbox"
	"github.com/tmcgann/fabworks/internal/tracker"
)

// app holds the assembled components behind the CLI commands.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	tracker *tracker.Client
	store   *artifact.Store
	sup     *supervisor.Supervisor
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

// buildApp loads configuration and assembles the full pipeline.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateTracker(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateModel(); err != nil {
		return nil, err
	}

	log := newLogger(cfg.Log.Level)

	trk, err := tracker.NewClient(tracker.Config{
		BaseURL:      cfg.Tracker.BaseURL,
		Organization: cfg.Tracker.Organization,
		Project:      cfg.Tracker.Project,
		PAT:          cfg.Tracker.PAT,
		Timeout:      cfg.Tracker.Timeout,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	store, err := artifact.NewStore(cfg.Workspace.RequirementsPath(), log)
	if err != nil {
		return nil, fmt.Errorf("opening requirements store: %w", err)
	}
	if err := store.Watch(); err != nil {
		log.Warn().Err(err).Msg("requirements watcher unavailable")
	}

	var discoverer *schema.Discoverer
	if cfg.Schema.DSN != "" {
		discoverer, err = schema.NewDiscoverer(cfg.Schema.Driver, cfg.Schema.DSN, log)
		if err != nil {
			return nil, err
		}
	}

	client, err := llm.NewClient(llm.Config{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, err
	}

	registry, err := agent.LoadRegistry(cfg.Agents.OverlayFile)
	if err != nil {
		return nil, fmt.Errorf("loading agent registry: %w", err)
	}

	executor := toolbox.NewExecutor(toolbox.Config{
		Tracker:    trk,
		Store:      store,
		Discoverer: discoverer,
		Workspace: toolbox.Workspace{
			Dir:          cfg.Workspace.Dir,
			SOWPath:      cfg.Workspace.SOWPath(),
			RulesPath:    cfg.Workspace.RulesPath(),
			SnapshotPath: cfg.Workspace.SnapshotPath(),
			ProjectDir:   filepath.Join(cfg.Workspace.Dir, cfg.PBIP.OutDir),
			ProjectName:  cfg.PBIP.ProjectName,
			ServerName:   cfg.PBIP.ServerName,
			DatabaseName: cfg.PBIP.DatabaseName,
		},
		Logger: log,
	})

	loop := agent.NewLoop(agent.LoopConfig{
		Client:        client,
		Toolbox:       executor,
		MaxIterations: cfg.Agents.MaxIterations,
		Logger:        log,
	})

	sup := supervisor.New(supervisor.Config{
		Classifier: router.NewLLMClassifier(client, log),
		Registry:   registry,
		Loop:       loop,
		Logger:     log,
	})

	return &app{
		cfg:     cfg,
		log:     log,
		tracker: trk,
		store:   store,
		sup:     sup,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
