package detector

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	terr "bbrctl/internal/errors"
)

var (
	requiredCommands = []string{"sysctl", "modprobe"}

	lookPath = exec.LookPath
	geteuid  = os.Geteuid
)

// ValidateRuntime ensures the tool runs as root and the commands it shells out to are
// installed. Returns a categorized critical error on failure.
func ValidateRuntime(logger *slog.Logger) error {
	if logger != nil {
		logger.Debug("runtime prerequisite check started")
	}

	var issues []string

	if uid := geteuid(); uid != 0 {
		issues = append(issues, fmt.Sprintf("must run as root (euid %d)", uid))
	}

	for _, cmd := range requiredCommands {
		if _, err := lookPath(cmd); err != nil {
			issues = append(issues, fmt.Sprintf("missing command %q: %v", cmd, err))
		}
	}

	if len(issues) > 0 {
		description := strings.Join(issues, "; ")
		if logger != nil {
			logger.Error("runtime prerequisite check failed", slog.String("issues", description))
		}
		return terr.New(
			terr.CategoryCritical,
			errors.New("runtime prerequisites missing"),
			terr.ErrorContext{Operation: "runtime_validation", Actual: description},
		)
	}

	if logger != nil {
		logger.Debug("runtime prerequisite check passed")
	}
	return nil
}
