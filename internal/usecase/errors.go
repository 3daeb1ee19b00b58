package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// Kind classifies export failures. The names are part of the HTTP contract:
// they are returned verbatim in the "error" field of a 500 response.
type Kind string

const (
	KindLaunch             Kind = "LaunchFailure"
	KindNavigation         Kind = "NavigationFailure"
	KindContentNotRendered Kind = "ContentNotRendered"
	KindReadyFlagTimeout   Kind = "ReadyFlagTimeout"
	KindRender             Kind = "RenderFailure"
	KindCleanup            Kind = "CleanupFailure"
	KindUnexpected         Kind = "UnexpectedFailure"
)

// Fatal reports whether a failure of this kind aborts the export. Soft kinds
// are only logged.
func (k Kind) Fatal() bool {
	return k != KindReadyFlagTimeout && k != KindCleanup
}

// ExportError is the error returned by Processor.Process for every failed
// export.
type ExportError struct {
	Kind    Kind
	Message string
	// Detail carries diagnostics gathered at failure time, such as a body
	// snapshot when the marker never appeared.
	Detail string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// NativeType names the Go type of the innermost cause.
func (e *ExportError) NativeType() string {
	root := rootCause(e.Err)
	if root == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%T", root)
}

// Code is a short machine-readable code for the cause, when one exists.
func (e *ExportError) Code() string {
	return errorCode(e.Err)
}

func newExportError(kind Kind, err error, format string, args ...any) *ExportError {
	return &ExportError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsExportError extracts the ExportError from err, wrapping foreign errors as
// unexpected failures.
func AsExportError(err error) *ExportError {
	if err == nil {
		return nil
	}
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee
	}
	return &ExportError{Kind: KindUnexpected, Message: err.Error(), Err: err}
}

func rootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			if joined, ok := err.(interface{ Unwrap() []error }); ok {
				if errs := joined.Unwrap(); len(errs) > 0 {
					next = errs[0]
				}
			}
		}
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var errno syscall.Errno
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	case errors.Is(err, context.Canceled):
		return "ECANCELED"
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return "ENOENT"
	case errors.As(err, &exitErr):
		return "EXIT_" + strconv.Itoa(exitErr.ExitCode())
	case errors.As(err, &errno):
		return "ERRNO_" + strconv.Itoa(int(errno))
	}
	return ""
}
