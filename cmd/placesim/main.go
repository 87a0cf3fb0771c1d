// Package main is the entry point for placesim.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/limiquantix/placesim/internal/config"
	"github.com/limiquantix/placesim/internal/experiment"
	"github.com/limiquantix/placesim/internal/metrics"
	"github.com/limiquantix/placesim/internal/server"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	app = kingpin.New("placesim", "Traffic-aware VM consolidation experiments")

	configPath = app.Flag("config", "Path to the YAML config file").Short('c').String()
	logLevel   = app.Flag("log-level", "Override logging.level").Enum("debug", "info", "warn", "error")

	runCmd      = app.Command("run", "Run experiments and print their reports")
	experiments = runCmd.Flag("experiment", "Experiment to run; repeat for several (default: all configured)").Short('e').Strings()
	outputJSON  = runCmd.Flag("json", "Print runs as JSON instead of tables").Bool()

	serveCmd      = app.Command("serve", "Serve the HTTP API")
	algorithmsCmd = app.Command("algorithms", "List the registered placement algorithms")
	versionCmd    = app.Command("version", "Show version information")
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command and returns the process exit code. Deferred
// cleanup runs before main exits.
func run(args []string) int {
	command, err := app.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "placesim:", err)
		return 2
	}

	if command == versionCmd.FullCommand() {
		fmt.Println("placesim")
		fmt.Println("Version:", version)
		fmt.Println("Commit:", commit)
		fmt.Println("Build Date:", buildDate)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := setupLogger(cfg.Logging)
	defer logger.Sync()

	scope, scopeCloser := metrics.InitMetricScope(cfg.Metrics, logger)
	defer scopeCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Received signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := newStack(ctx, cfg, logger, scope)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return 1
	}
	defer st.Close()

	switch command {
	case runCmd.FullCommand():
		err = runExperiments(ctx, st.runner, selectSpecs(cfg.Experiments, *experiments))
	case serveCmd.FullCommand():
		err = serve(ctx, cfg, st, logger)
	case algorithmsCmd.FullCommand():
		for _, name := range st.runner.Algorithms() {
			fmt.Println(name)
		}
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", command), zap.Error(err))
		return 1
	}
	return 0
}

// selectSpecs keeps the configured specs named in names, in configuration
// order. An empty names list keeps all of them.
func selectSpecs(specs []experiment.Spec, names []string) []experiment.Spec {
	if len(names) == 0 {
		return specs
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	out := make([]experiment.Spec, 0, len(names))
	for _, s := range specs {
		if wanted[s.Name] {
			out = append(out, s)
			delete(wanted, s.Name)
		}
	}
	for n := range wanted {
		fmt.Fprintf(os.Stderr, "unknown experiment %q\n", n)
	}
	return out
}

func runExperiments(ctx context.Context, runner *experiment.Runner, specs []experiment.Spec) error {
	if len(specs) == 0 {
		return fmt.Errorf("no experiments selected")
	}

	runs, err := runner.RunAll(ctx, specs)
	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(runs); encErr != nil {
			return encErr
		}
		return err
	}

	for _, run := range runs {
		if renderErr := experiment.Render(os.Stdout, run); renderErr != nil {
			return renderErr
		}
	}
	return err
}

func serve(ctx context.Context, cfg *config.Config, st *stack, logger *zap.Logger) error {
	opts := []server.ServerOption{server.WithExperiments(cfg.Experiments)}
	if st.db != nil {
		opts = append(opts, server.WithHealthCheck("postgres", st.db))
	}
	if st.cache != nil {
		opts = append(opts, server.WithHealthCheck("redis", st.cache))
	}

	srv := server.New(cfg.Server, st.runner, st.repo, logger, opts...)
	return srv.Run(ctx)
}

// setupLogger configures the zap logger based on configuration.
func setupLogger(cfg config.LoggingConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)
	// Reports go to stdout.
	zapConfig.OutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()
	if err != nil {
		panic("Failed to create logger: " + err.Error())
	}

	return logger
}
