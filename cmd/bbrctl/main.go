package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bbrctl/internal/app"
	"bbrctl/internal/backup"
	"bbrctl/internal/config"
	"bbrctl/internal/detector"
	"bbrctl/internal/kernel"
	"bbrctl/internal/sysctl"
)

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:           "bbrctl",
	Short:         "Manage BBR congestion control and related kernel tuning",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "configuration file (default: $"+config.ConfigEnvVar+" or "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "text", "log format: text or json")
}

func main() {
	ctx, cancel := signalContext()

	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err == nil {
		return
	}

	var oerr *outcomeError
	if errors.As(err, &oerr) {
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// outcomeError marks a command whose operation finished without success. The outcome
// has already been printed.
type outcomeError struct {
	outcome app.Outcome
}

func (e *outcomeError) Error() string {
	return e.outcome.String()
}

func (e *outcomeError) Unwrap() error {
	return e.outcome.Err()
}

func checkOutcome(outcomes ...app.Outcome) error {
	for _, o := range outcomes {
		if o != app.OutcomeSuccess {
			return &outcomeError{outcome: o}
		}
	}
	return nil
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

type environment struct {
	logger *slog.Logger
	cfg    config.Config
	orch   *app.Orchestrator
}

// setup loads the configuration and wires the orchestrator. Mutating commands also
// require root and the sysctl and modprobe binaries.
func setup(mutating bool) (*environment, error) {
	logger, err := newLogger(logLevelFlag, logFormatFlag)
	if err != nil {
		return nil, err
	}

	path := config.ResolvePath(configFlag)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Info("configuration loaded", slog.String("path", path))
	}

	if mutating {
		if err := detector.ValidateRuntime(logger); err != nil {
			return nil, fmt.Errorf("runtime validation failed: %w", err)
		}
	}

	gateway := sysctl.NewGateway(logger, sysctl.Options{
		ProcRoot:       cfg.Kernel.ProcSys,
		Module:         cfg.Congestion.Module,
		CommandTimeout: cfg.CommandTimeout(),
	})

	moduleDetector := detector.NewModuleDetector(logger, gateway, detector.ModuleOptions{
		Algorithm:  cfg.Congestion.Algorithm,
		Module:     cfg.Congestion.Module,
		ModulesDir: cfg.Kernel.ModulesDir,
	})

	orch := app.NewOrchestrator(app.Dependencies{
		Config:   cfg,
		Gateway:  gateway,
		Detector: moduleDetector,
		Qdisc:    sysctl.NewQdiscReporter(logger),
		Backups:  backup.NewManager(logger),
		Release:  kernel.UnameRelease,
		Logger:   logger,
	})

	return &environment{logger: logger, cfg: cfg, orch: orch}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
	}
}
