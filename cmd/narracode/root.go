package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/narracode/internal/audit"
	"github.com/HerbHall/narracode/internal/config"
	"github.com/HerbHall/narracode/internal/generation"
	"github.com/HerbHall/narracode/internal/llm/hfhub"
	"github.com/HerbHall/narracode/internal/llm/together"
	"github.com/HerbHall/narracode/internal/prompt"
	"github.com/HerbHall/narracode/internal/session"
	"github.com/HerbHall/narracode/internal/store"
	"github.com/HerbHall/narracode/internal/tasks"
	"github.com/HerbHall/narracode/internal/version"
	"github.com/HerbHall/narracode/pkg/llm"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	service     string
	model       string
	task        string
	user        string
	temperature float64
	params      map[string]string
	metricsFile string
}

// newBackend constructs the backend client of a service. Tests replace it.
var newBackend = func(svc session.Service, cfg *config.Config, logger *zap.Logger) (llm.Provider, error) {
	switch svc {
	case session.ServiceFree:
		return together.New(cfg.Services.Together, logger.Named("together"))
	case session.ServicePrivate:
		return hfhub.New(cfg.Services.HuggingFace, logger.Named("hfhub"))
	}
	return nil, fmt.Errorf("%w: %q", session.ErrUnknownService, svc)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "narracode",
		Short: "LLM-assisted coding of memory narratives",
		Long: `narracode annotates patient-written memory narratives with a coding scheme
(segment locus/valence, sentence coherence) using a hosted language model,
and records every exchange in a generation log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to configuration file")
	pf.StringVar(&opts.service, "service", "", "backend service (TogetherAI or HuggingFaceHub)")
	pf.StringVar(&opts.model, "model", "", "base model; defaults to the service's first model")
	pf.StringVar(&opts.task, "task", "", "coding task")
	pf.StringVar(&opts.user, "user", "", "user recorded in the generation log (default $USER)")
	pf.Float64Var(&opts.temperature, "temperature", 0, "sampling temperature (default from configuration)")
	pf.StringToStringVar(&opts.params, "param", nil, "additional sampling parameter as key=value; repeatable")
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "write generation metrics in Prometheus text format to this file on exit")

	root.AddCommand(
		newCodeCmd(opts),
		newBatchCmd(opts),
		newChatCmd(opts),
		newTasksCmd(),
		newLogsCmd(opts),
		newServicesCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

// app is the wiring of one command invocation.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *tasks.Registry
	catalog    *session.Catalog
	db         *store.Store
	sink       *audit.Sink
	dispatcher *generation.Dispatcher
	session    *session.Session
	params     llm.Params
	metrics    *prometheus.Registry
	opts       *rootOptions
}

// setup loads configuration and builds the session, the generation log and
// the dispatcher. cmd supplies flag state for the temperature default.
func (o *rootOptions) setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	v, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg, err := config.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Debug("no configuration file found, using defaults", zap.String("component", "config"))
	}

	a := &app{cfg: cfg, logger: logger, opts: o, registry: tasks.MustDefault()}

	a.catalog, err = session.NewCatalog(
		session.Offering{Service: session.ServiceFree, Models: cfg.Services.Together.Models},
		session.Offering{Service: session.ServicePrivate, Models: cfg.Services.HuggingFace.Models},
	)
	if err != nil {
		return nil, err
	}

	if err := a.openLog(ctx); err != nil {
		return nil, err
	}

	a.metrics = prometheus.NewRegistry()
	a.dispatcher = generation.New(a.registry, prompt.NewComposer(nil), a.sink, logger.Named("generation"),
		generation.WithMetrics(generation.NewMetrics(a.metrics)),
		generation.WithBatchLimits(cfg.Batch.Concurrency, cfg.Batch.RequestsPerSecond, cfg.Batch.Burst),
	)

	if a.session, err = a.newSession(); err != nil {
		a.Close()
		return nil, err
	}

	a.params = llm.Params{Temperature: cfg.Defaults.Temperature}
	if cmd.Flags().Changed("temperature") {
		a.params.Temperature = o.temperature
	}
	if len(o.params) > 0 {
		a.params.Extra = make(map[string]any, len(o.params))
		for k, raw := range o.params {
			a.params.Extra[k] = parseParam(raw)
		}
	}
	return a, nil
}

func (a *app) openLog(ctx context.Context) error {
	path := a.cfg.Database.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return err
	}
	applied, err := db.Migrate(ctx, audit.Component, audit.Migrations())
	if err != nil {
		db.Close()
		return err
	}
	a.logger.Debug("database initialized",
		zap.String("component", "database"),
		zap.String("path", path),
		zap.Int("migrations_applied", applied),
	)

	a.db = db
	a.sink = audit.NewSink(audit.NewSQLiteSheet(db), a.logger.Named("audit"), audit.WithReadTTL(a.cfg.Audit.ReadTTL))
	return nil
}

func (a *app) newSession() (*session.Session, error) {
	defaults := session.Config{CodingTask: tasks.Name(a.cfg.Defaults.CodingTask)}
	if defaults.CodingTask != "" && !a.registry.Has(defaults.CodingTask) {
		return nil, fmt.Errorf("defaults.coding_task: %w: %q", tasks.ErrUnknownTask, defaults.CodingTask)
	}
	if a.cfg.Defaults.Service != "" {
		svc, err := session.ParseService(a.cfg.Defaults.Service)
		if err != nil {
			return nil, fmt.Errorf("defaults.service: %w", err)
		}
		defaults.Service = svc
	}

	user := a.opts.user
	if user == "" {
		user = os.Getenv("USER")
	}
	opts := []session.Option{
		session.WithDefaults(defaults),
		session.WithLogger(a.logger.Named("session")),
	}
	if user != "" {
		opts = append(opts, session.WithUser(user))
	}

	cfg := a.cfg
	logger := a.logger
	sess := session.New(a.catalog, func(svc session.Service) (llm.Provider, error) {
		return newBackend(svc, cfg, logger)
	}, opts...)

	var u session.Update
	if a.opts.service != "" {
		svc, err := session.ParseService(a.opts.service)
		if err != nil {
			return nil, err
		}
		u = u.WithService(svc)
	}
	if a.opts.model != "" {
		u = u.WithBaseModel(a.opts.model)
	}
	if a.opts.task != "" {
		name := tasks.Name(a.opts.task)
		if !a.registry.Has(name) {
			return nil, fmt.Errorf("%w: %q (see \"narracode tasks list\")", tasks.ErrUnknownTask, name)
		}
		u = u.WithCodingTask(name)
	}
	sess.Apply(u)
	return sess, nil
}

// Close flushes metrics and releases the database.
func (a *app) Close() {
	if a.opts.metricsFile != "" && a.metrics != nil {
		if err := prometheus.WriteToTextfile(a.opts.metricsFile, a.metrics); err != nil {
			a.logger.Warn("failed to write metrics file", zap.String("path", a.opts.metricsFile), zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// parseParam interprets a --param value as a JSON scalar when it is one
// (numbers, booleans) and as a plain string otherwise.
func parseParam(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch v.(type) {
		case float64, bool:
			return v
		}
	}
	return raw
}
