package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cooltabs/autorebase/internal/autorebase"
	"github.com/cooltabs/autorebase/internal/cfg"
	"github.com/cooltabs/autorebase/internal/evloop"
	"github.com/cooltabs/autorebase/internal/githubclt"
	"github.com/cooltabs/autorebase/internal/gitrebase"
	"github.com/cooltabs/autorebase/internal/logfields"
	"github.com/cooltabs/autorebase/internal/provider/github"
)

const appName = "autorebase"

// shutdown priorities, handlers with lower values run first
const (
	shutdownPrioHTTPServer = iota
	shutdownPrioEventLoop
	shutdownPrioLogger
)

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)

	}
}

func startHTTPSServer(listenAddr string, certFile, keyFile string, mux *http.ServeMux) {
	httpsServer := http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	goodbye.RegisterWithPriority(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating https server",
			logfields.Event("https_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		err := httpsServer.Shutdown(ctx)
		if err != nil {
			logger.Warn(
				"shutting down https server failed",
				logfields.Event("https_server_termination_failed"),
				zap.Error(err),
			)
		}
}, shutdownPrioHTTPServer)

	go func() {
		defer panicHandler()

		logger.Info(
			"https server started",
			logfields.Event("https_server_started"),
			zap.String("listenAddr", listenAddr),
		)

		err := httpsServer.ListenAndServeTLS(certFile, keyFile)
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("https server terminated", logfields.Event("https_server_terminated"))
			return
		}

		logger.Fatal(
			"https server terminated unexpectedly",
			logfields.Event("https_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

func startHTTPServer(listenAddr string, mux *http.ServeMux) {
	httpServer := http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	goodbye.RegisterWithPriority(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating http server",
			logfields.Event("http_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		err := httpServer.Shutdown(ctx)
		if err != nil {
			logger.Warn(
				"shutting down http server failed",
				logfields.Event("http_server_termination_failed"),
				zap.Error(err),
			)
		}
}, shutdownPrioHTTPServer)

	go func() {
		defer panicHandler()

		logger.Info(
			"http server started",
			logfields.Event("http_server_started"),
			zap.String("listenAddr", listenAddr),
		)

		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("http server terminated", logfields.Event("http_server_terminated"))
			return
		}

		logger.Fatal(
			"http server terminated unexpectedly",
			logfields.Event("http_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

type arguments struct {
	Verbose     *bool
	ConfigFile  *string
	EnvFile     *string
	ShowVersion *bool
}

var args arguments

const defConfigFile = "/etc/autorebase/config.toml"

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			defConfigFile,
			"path to the autorebase configuration file",
		),
		EnvFile: pflag.String(
			"env-file",
			"",
			fmt.Sprintf("load environment variables from a dotenv file, %s and %s overwrite the secrets of the configuration file",
				cfg.EnvGithubAPIToken, cfg.EnvGithubWebhookSecret),
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nRebase and merge GitHub pull requests automatically.\n", appName)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	file, err := os.Open(*args.ConfigFile)
	exitOnErr("could not open configuration files", err)
	defer file.Close()

	config, err := cfg.Load(file)
	if err != nil {
		exitOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)
	}

	if *args.EnvFile != "" {
		err := godotenv.Load(*args.EnvFile)
		exitOnErr(fmt.Sprintf("could not load env file: %s", *args.EnvFile), err)
	}

	config.OverrideFromEnv(os.LookupEnv)

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.RegisterWithPriority(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	}, shutdownPrioLogger)
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func mustNewEngine(config *cfg.Config, githubClient *githubclt.Client) *autorebase.Engine {
	var clt autorebase.GithubClient = githubClient
	var rebaser autorebase.Rebaser = gitrebase.New(
		githubClient,
		gitrebase.WithWorkDir(config.Autorebase.Git.WorkDir),
		gitrebase.WithCommitter(config.Autorebase.Git.CommitterName, config.Autorebase.Git.CommitterEmail),
		gitrebase.WithAPIToken(config.GithubAPIToken),
	)

	if config.DryRun {
		clt = autorebase.NewDryGithubClient(clt, logger)
		rebaser = autorebase.NewDryRebaser(rebaser, logger)
	}

	retryCfg := config.Autorebase.MergeableStateRetry
	policy := autorebase.DefaultBackoffPolicy()
	policy.InitialInterval = retryCfg.InitialIntervalDuration
	policy.MaxInterval = retryCfg.MaxIntervalDuration
	policy.MaxRetries = retryCfg.MaxAttempts

	return autorebase.NewEngine(
		clt,
		rebaser,
		config.Autorebase.Label,
		autorebase.WithSearchSettleDelay(config.Autorebase.SearchSettleDelayDuration),
		autorebase.WithBackoffPolicy(policy),
		autorebase.WithOneTimeRebasePredicate(
			autorebase.RequirePermission(config.Autorebase.OneTimeRebasePermissions...),
		),
	)
}

func mustNewEventLoop(config *cfg.Config, engine evloop.Engine) *evloop.EvLoop {
	handlers, err := evloop.HandlersFromCfg(config)
	exitOnErr(fmt.Sprintf("could not parse action handlers from configuration file: %s", *args.ConfigFile), err)

	opts := []evloop.Option{
		evloop.WithActionRoutineDeferFunc(panicHandler),
		evloop.WithActionHandlers(handlers...),
		evloop.WithMaxConcurrentEvents(config.Autorebase.MaxConcurrentEvents),
	}

	if config.Autorebase.ForceRebaseQuery != "" {
		hook, err := evloop.NewForceRebaseHook(config.Autorebase.ForceRebaseQuery)
		exitOnErr("could not parse autorebase.force_rebase_query", err)

		opts = append(opts, evloop.WithForceRebaseHook(hook))
	}

	for _, r := range config.Autorebase.Repositories {
		opts = append(opts, evloop.WithRepositories(autorebase.Repository{
			Owner:          r.Owner,
			RepositoryName: r.RepositoryName,
		}))
	}

	for _, h := range handlers {
		logger.Debug(
			"loaded action handler",
			logfields.Event("action_handler_loaded"),
			zap.String("action_handler", h.DetailedString()),
		)
	}

	return evloop.NewEventLoop(engine, opts...)
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	config := mustParseCfg()

	mustInitLogger(config)

	logger.Info(
		"loaded cfg file",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("http_server_listen_addr", config.HTTPListenAddr),
		zap.String("https_server_listen_addr", config.HTTPSListenAddr),
		zap.String("github_webhook_endpoint", config.HTTPGithubWebhookEndpoint),
		zap.String("github_webhook_secret", hide(config.GithubWebHookSecret)),
		zap.String("github_api_token", hide(config.GithubAPIToken)),
		zap.String("prometheus_metrics_endpoint", config.PrometheusMetricsEndpoint),
		zap.String("log_format", config.LogFormat),
		zap.String("log_time_key", config.LogTimeKey),
		zap.String("log_level", config.LogLevel),
		zap.Bool("dry_run", config.DryRun),
		logfields.Label(config.Autorebase.Label),
		zap.Strings("one_time_rebase_permissions", config.Autorebase.OneTimeRebasePermissions),
		zap.String("force_rebase_query", config.Autorebase.ForceRebaseQuery),
		zap.Duration("search_settle_delay", config.Autorebase.SearchSettleDelayDuration),
		zap.Int("max_concurrent_events", config.Autorebase.MaxConcurrentEvents),
		zap.Int("repositories", len(config.Autorebase.Repositories)),
	)

	if config.Autorebase.Label == "" {
		logger.Warn(
			"autorebase label is not configured, only one-time rebase commands are processed",
			logfields.Event("autorebase_label_unset"),
		)
	}

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
	})

	if config.HTTPListenAddr == "" && config.HTTPSListenAddr == "" {
		fmt.Fprintf(os.Stderr, "https_server_listen_addr or http_server_listen_addr must be defined in the config file, both are unset")
		os.Exit(1)
	}

	githubClient := githubclt.New(config.GithubAPIToken)
	engine := mustNewEngine(config, githubClient)

	evLoop := mustNewEventLoop(config, engine)
	go evLoop.Start()

	goodbye.RegisterWithPriority(func(context.Context, os.Signal) {
		logger.Debug(
			"stopping event loop",
			logfields.Event("event_loop_stopping"),
		)

		evLoop.Stop()
	}, shutdownPrioEventLoop)

	gh := github.New(
		[]chan<- *github.Event{evLoop.C()},
		github.WithPayloadSecret(config.GithubWebHookSecret),
	)

	mux := http.NewServeMux()

	mux.HandleFunc(config.HTTPGithubWebhookEndpoint, gh.HTTPHandler)
	logger.Info(
		"registered github webhook event http endpoint",
		logfields.Event("github_http_handler_registered"),
		zap.String("endpoint", config.HTTPGithubWebhookEndpoint),
	)

	mux.Handle(config.PrometheusMetricsEndpoint, promhttp.Handler())
	logger.Info(
		"registered prometheus metrics http endpoint",
		logfields.Event("metrics_http_handler_registered"),
		zap.String("endpoint", config.PrometheusMetricsEndpoint),
	)

	if config.HTTPListenAddr != "" {
		startHTTPServer(config.HTTPListenAddr, mux)
	}

	if config.HTTPSListenAddr != "" {
		startHTTPSServer(
			config.HTTPSListenAddr,
			config.HTTPSCertFile,
			config.HTTPSKeyFile,
			mux,
		)
	}

	select {}
}
