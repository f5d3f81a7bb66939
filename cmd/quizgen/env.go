package main

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/quizgen/bootstrap"
	"github.com/kbukum/quizgen/config"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/observability"
	"github.com/kbukum/quizgen/version"
)

type globals struct {
	configFile  string
	envFile     string
	logLevel    string
	errorFormat string
}

// env is what a command needs: resolved config and secrets, the provider
// registry and optional metrics. Providers it creates are closed when the
// command ends.
type env struct {
	globals
	out    io.Writer
	errOut io.Writer

	app      *bootstrap.App[*config.AppConfig]
	cfg      *config.AppConfig
	secrets  *config.Secrets
	registry *llm.Registry
	metrics  *observability.Metrics
	log      *logger.Logger
}

// runTask loads configuration, starts observability when enabled and runs
// task inside the bootstrap lifecycle.
func (e *env) runTask(ctx context.Context, task func(ctx context.Context) error) error {
	var secretOpts []config.SecretsOption
	var loadOpts []config.LoaderOption
	if e.envFile != "" {
		secretOpts = append(secretOpts, config.WithEnvFiles(e.envFile))
		loadOpts = append(loadOpts, config.WithEnvFile(e.envFile))
	}
	if e.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(e.configFile))
	}

	e.secrets = config.LoadSecrets(secretOpts...)
	cfg, err := config.Load(e.secrets, loadOpts...)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Logging.Level = e.logLevel
	}
	e.cfg = cfg

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	e.app = app
	e.log = app.Logger.WithComponent("cli")
	e.registry = llm.DefaultRegistry()

	if cfg.Observability.Enabled {
		if err := e.startObservability(ctx); err != nil {
			e.log.Warn("observability disabled", logger.Fields(logger.FieldError, err.Error()))
		}
	}
	return app.RunTask(ctx, task)
}

func (e *env) startObservability(ctx context.Context) error {
	oc := observability.DefaultConfig(e.cfg.Name)
	oc.ServiceVersion = e.cfg.Version
	if oc.ServiceVersion == "" {
		oc.ServiceVersion = version.Get().Short()
	}
	oc.Environment = e.cfg.Environment
	oc.Endpoint = e.cfg.Observability.Endpoint
	oc.SampleRate = e.cfg.Observability.SampleRate
	shutdown, err := observability.Setup(ctx, oc)
	if err != nil {
		return err
	}
	e.app.OnStop(shutdown)

	m, err := observability.NewMetrics(observability.Meter(e.cfg.Name))
	if err != nil {
		return err
	}
	e.metrics = m
	return nil
}

// providerOptions maps configuration onto llm.Options for id.
func (e *env) providerOptions(id string) llm.Options {
	l := e.cfg.LLM
	opts := llm.Options{
		CallTimeout:   l.CallTimeout,
		StreamTimeout: l.StreamTimeout,
		Workers:       l.Workers,
	}
	switch id {
	case "gemini":
		opts.Model = l.Gemini.Model
		opts.Timeout = l.Gemini.Timeout
		opts.MaxRetries = l.Gemini.MaxRetries
		opts.RequestsPerMinute = l.Gemini.RequestsPerMinute
	case "local":
		opts.Model = l.Local.Model
		opts.Endpoint = l.Local.Endpoint
		opts.Timeout = l.Local.Timeout
		opts.ConnectTimeout = l.Local.ConnectTimeout
		opts.TLS = &l.Local.TLS
	}
	return opts
}

// provider creates the provider id, or the configured default when id is
// empty, and closes it when the command ends.
func (e *env) provider(id string) (llm.Provider, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		id = e.cfg.LLM.DefaultProvider
	}
	p, err := e.registry.Create(id, e.secrets.CredentialFor(id), e.providerOptions(id))
	if err != nil {
		return nil, err
	}
	e.app.OnStop(p.Close)
	return p, nil
}

// parseFlags parses args, turning flag errors into usage errors.
func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usagef("%v", err)
	}
	if fs.NArg() > 0 {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}
