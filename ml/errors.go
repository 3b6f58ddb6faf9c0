package ml

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrMissingColumn   = errors.New("missing column")
	ErrInference       = errors.New("inference failed")
	ErrArtifactLoad    = errors.New("artifact load failed")
)

// UnknownCategoryError is returned when a categorical value has no trained code.
type UnknownCategoryError struct {
	Column Column
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for column %s", e.Value, e.Column)
}

func (e *UnknownCategoryError) Is(target error) bool { return target == ErrUnknownCategory }

// MissingColumnError means the encoded row and the feature order disagree,
// which points at drift between the training and serving schema.
type MissingColumnError struct {
	Column Column
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %s", e.Column)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }

type ArtifactLoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("loading %s: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("loading %s from %q: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

func (e *ArtifactLoadError) Is(target error) bool { return target == ErrArtifactLoad }

// ErrorKind names the taxonomy kind of err, or "" if it has none.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, ErrMissingColumn):
		return "missing_column"
	case errors.Is(err, ErrInference):
		return "inference_error"
	case errors.Is(err, ErrArtifactLoad):
		return "artifact_load_error"
	}
	return ""
}
