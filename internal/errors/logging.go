package errors

import (
	"errors"
	"log/slog"
)

// AttrsToArgs converts slog.Attr slice to []any for use with structured logging.
func AttrsToArgs(attrs []slog.Attr) []any {
	if len(attrs) == 0 {
		return nil
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// Log writes err at a level derived from its category: optional errors go to debug,
// recoverable ones to warn, everything else to error.
func Log(logger *slog.Logger, message string, err error, defaultCategory Category) {
	if logger == nil || err == nil {
		return
	}

	category := CategoryOf(err, defaultCategory)
	var ctxMap map[string]any
	var typed *Error
	if errors.As(err, &typed) && typed != nil {
		ctxMap = typed.Context.ToMap()
	}

	attrs := []slog.Attr{
		slog.String("category", category.String()),
		slog.String("error", err.Error()),
	}
	if len(ctxMap) > 0 {
		attrs = append(attrs, slog.Any("context", ctxMap))
	}

	switch category {
	case CategoryOptional:
		logger.Debug(message, AttrsToArgs(attrs)...)
	case CategoryRecoverable:
		logger.Warn(message, AttrsToArgs(attrs)...)
	default:
		logger.Error(message, AttrsToArgs(attrs)...)
	}
}
