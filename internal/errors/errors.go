package errors

import (
	"errors"
	"fmt"
)

// Sentinel causes shared across packages. Match them with errors.Is.
var (
	ErrUnsupportedKernel            = errors.New("kernel does not support the congestion control algorithm")
	ErrActivationVerificationFailed = errors.New("congestion control did not activate")
	ErrFileWrite                    = errors.New("managed file write failed")
	ErrManagedFileMissing           = errors.New("managed file does not exist")
	ErrNothingToRestore             = errors.New("no backup to restore")
	ErrOperationFailed              = errors.New("operation failed")
)

// Category classifies an error to guide handling strategy.
type Category int

const (
	CategoryCritical Category = iota
	CategoryRecoverable
	CategoryOptional
)

func (c Category) String() string {
	switch c {
	case CategoryCritical:
		return "critical"
	case CategoryRecoverable:
		return "recoverable"
	case CategoryOptional:
		return "optional"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Error wraps an underlying error with a handling category and optional context.
type Error struct {
	Category Category
	Err      error
	Context  ErrorContext
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	ctxMap := e.Context.ToMap()
	if len(ctxMap) == 0 {
		return fmt.Sprintf("[%s] %v", e.Category, e.Err)
	}
	return fmt.Sprintf("[%s] %v (context=%v)", e.Category, e.Err, ctxMap)
}

// Unwrap exposes the wrapped root cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New constructs an Error with the provided category, cause, and context.
func New(category Category, err error, context ErrorContext) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category: category,
		Err:      err,
		Context:  context,
	}
}

// WrapRecoverable wraps an existing error as recoverable while merging context maps.
func WrapRecoverable(err error, operation string, contexts ...ErrorContext) *Error {
	if err == nil {
		return nil
	}
	ctx := ErrorContext{Operation: operation}
	for _, c := range contexts {
		ctx = ctx.Merge(c)
	}
	return New(CategoryRecoverable, err, ctx)
}

// FileWriteError annotates an I/O failure on a managed file. The result matches ErrFileWrite.
func FileWriteError(err error, path, operation string) error {
	if err == nil {
		return nil
	}
	return New(
		CategoryCritical,
		fmt.Errorf("%w: %w", ErrFileWrite, err),
		ErrorContext{Operation: operation, Path: path},
	)
}

// CategoryOf returns the category of the first categorized error in the chain,
// or fallback when none is present.
func CategoryOf(err error, fallback Category) Category {
	var typed *Error
	if errors.As(err, &typed) && typed != nil {
		return typed.Category
	}
	return fallback
}
