// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"errors"
	"fmt"
)

// Stage names a step of the ranking pipeline in error messages.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageModelLoad  Stage = "model load"
	StageSimilarity Stage = "similarity"
	StageRules      Stage = "rules"
	StageRanking    Stage = "ranking"
)

var (
	// ErrInvalidParameter means a run parameter is out of range
	// (semantic weight outside [0,1], negative top-k).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrModelLoad means no usable embedding provider is available.
	ErrModelLoad = errors.New("embedding model unavailable")

	// ErrDimensionMismatch means two non-empty vectors differ in length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingCount means the provider returned a different number of
	// vectors than texts.
	ErrEmbeddingCount = errors.New("embedding count mismatch")
)

// StageError reports which pipeline stage failed. It unwraps to the cause.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
