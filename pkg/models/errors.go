package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a file-scoped processing failure.
type ErrorKind string

const (
	ErrorKindInputInvalid ErrorKind = "input_invalid"
	ErrorKindGeometry     ErrorKind = "geometry_mismatch"
	ErrorKindComposition  ErrorKind = "composition_failed"
	ErrorKindIO           ErrorKind = "io_error"
	ErrorKindTool         ErrorKind = "tool_unavailable"
)

// ErrCapabilityUnavailable means the raster-processing capability cannot be
// invoked at all. It is fatal: the run aborts before any file is touched.
var ErrCapabilityUnavailable = errors.New("raster capability unavailable")

// PipelineError is a file-scoped failure carrying its classification. It is
// recorded against the file's ProcessingResult and never aborts sibling work.
type PipelineError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Errf builds a classified, formatted PipelineError.
func Errf(kind ErrorKind, path, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// WrapErr classifies an existing error against a path.
func WrapErr(kind ErrorKind, path string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Path: path, Err: err}
}

// KindOf extracts the classification from an error chain, defaulting to
// composition_failed for unclassified errors out of the raster boundary.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorKindComposition
}
