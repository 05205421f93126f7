package sysctl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	terr "bbrctl/internal/errors"
)

const (
	// CongestionControlParam names the active TCP congestion control algorithm.
	CongestionControlParam = "net.ipv4.tcp_congestion_control"
	// AvailableCongestionControlParam lists the algorithms the kernel can use right now.
	AvailableCongestionControlParam = "net.ipv4.tcp_available_congestion_control"
	// DefaultQdiscParam names the qdisc attached to newly created interfaces.
	DefaultQdiscParam = "net.core.default_qdisc"

	defaultProcRoot   = "/proc/sys"
	defaultCmdTimeout = 5 * time.Second
)

// reloadWarnings marks per-line sysctl failures that leave the rest of the file applied.
var reloadWarnings = []string{
	"cannot stat",
	"unknown key",
	"invalid argument",
	"no such file or directory",
	"permission denied",
}

// Options configures a Gateway.
type Options struct {
	ProcRoot       string
	Module         string
	CommandTimeout time.Duration
	Executor       CommandExecutor
}

// Gateway reads and writes live kernel parameters of the current boot.
type Gateway struct {
	logger         *slog.Logger
	procRoot       string
	module         string
	commandTimeout time.Duration
	executor       CommandExecutor
}

// NewGateway constructs a Gateway over /proc/sys unless opts say otherwise.
func NewGateway(logger *slog.Logger, opts Options) *Gateway {
	g := &Gateway{
		logger:         logger,
		procRoot:       opts.ProcRoot,
		module:         opts.Module,
		commandTimeout: opts.CommandTimeout,
		executor:       ensureExecutor(opts.Executor),
	}
	if g.procRoot == "" {
		g.procRoot = defaultProcRoot
	}
	if g.commandTimeout <= 0 {
		g.commandTimeout = defaultCmdTimeout
	}
	return g
}

// ReadParameter returns the current value of a dotted parameter name. When the kernel
// does not expose the parameter it returns ok=false and a nil error.
func (g *Gateway) ReadParameter(name string) (string, bool, error) {
	path, err := g.paramPath(name)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, terr.WrapRecoverable(
			fmt.Errorf("read %s: %w", name, err),
			"read_parameter",
			terr.ErrorContext{Parameter: name, Path: path},
		)
	}

	return strings.Join(strings.Fields(string(data)), " "), true, nil
}

// SetParameter writes value to a runtime-mutable parameter.
func (g *Gateway) SetParameter(name, value string) error {
	path, err := g.paramPath(name)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		return terr.WrapRecoverable(
			fmt.Errorf("set %s=%s: %w", name, value, err),
			"set_parameter",
			terr.ErrorContext{Parameter: name, Path: path, Expected: value},
		)
	}

	if g.logger != nil {
		g.logger.Info("kernel parameter set", slog.String("parameter", name), slog.String("value", value))
	}
	return nil
}

// AvailableCongestionControl lists the algorithms the kernel currently offers.
func (g *Gateway) AvailableCongestionControl() ([]string, error) {
	value, ok, err := g.ReadParameter(AvailableCongestionControlParam)
	if err != nil || !ok {
		return nil, err
	}
	return strings.Fields(value), nil
}

// ApplyFromFile reloads every parameter in path with `sysctl -e -p`. Lines naming
// parameters this kernel lacks, or carrying bad values, are logged and skipped; only a
// failure to run sysctl at all is returned.
func (g *Gateway) ApplyFromFile(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, g.commandTimeout)
	defer cancel()

	args := []string{"-e", "-p", path}
	output, err := g.executor.Run(ctx, "sysctl", args)
	trimmed := strings.TrimSpace(output)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if containsAny(trimmed, reloadWarnings) {
			if g.logger != nil {
				g.logger.Warn("sysctl reload completed with skipped parameters",
					slog.String("path", path),
					slog.String("details", trimmed))
			}
			return nil
		}
		cause := fmt.Errorf("sysctl -e -p %s: %w", path, err)
		if trimmed != "" {
			cause = fmt.Errorf("sysctl -e -p %s: %w: %s", path, err, trimmed)
		}
		return terr.WrapRecoverable(cause, "reload_parameters",
			terr.ErrorContext{Path: path, Command: "sysctl " + strings.Join(args, " ")})
	}

	if g.logger != nil {
		g.logger.Debug("sysctl reload output", slog.String("path", path), slog.String("details", trimmed))
	}
	return nil
}

// LoadCongestionModule runs modprobe for the configured module. Failure is normal on
// kernels with the algorithm built in, so it is reported as false and logged at debug.
func (g *Gateway) LoadCongestionModule(ctx context.Context) bool {
	if g.module == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, g.commandTimeout)
	defer cancel()

	output, err := g.executor.Run(ctx, "modprobe", []string{g.module})
	if err != nil {
		if g.logger != nil {
			g.logger.Debug("modprobe failed",
				slog.String("module", g.module),
				slog.String("error", err.Error()),
				slog.String("output", strings.TrimSpace(output)))
		}
		return false
	}

	if g.logger != nil {
		g.logger.Debug("kernel module loaded", slog.String("module", g.module))
	}
	return true
}

// paramPath maps "net.ipv4.tcp_ecn" to <procRoot>/net/ipv4/tcp_ecn.
func (g *Gateway) paramPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/ \t") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid parameter name %q", name)
	}
	return filepath.Join(g.procRoot, filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))), nil
}

func containsAny(message string, substrings []string) bool {
	if message == "" || len(substrings) == 0 {
		return false
	}
	lower := strings.ToLower(message)
	for _, sub := range substrings {
		if sub == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
