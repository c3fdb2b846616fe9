package domain

import (
	"errors"
	"fmt"
)

// Error categories. Wrap them with fmt.Errorf("...: %w", ErrX) or StageError
// and test with errors.Is.
var (
	// ErrTransientProvider is a single failed provider attempt (network,
	// non-2xx, undecodable payload). Recovered by retry or fallback.
	ErrTransientProvider = errors.New("transient provider error")

	// ErrValidation means a produced artifact failed its decode or duration
	// probe. The artifact is deleted and the attempt counts as failed.
	ErrValidation = errors.New("artifact validation failed")

	// ErrExhausted means every provider and every attempt failed for a unit.
	ErrExhausted = errors.New("generation exhausted")

	// ErrConfiguration covers empty visual pools, missing script or prompt and
	// unknown provider identities.
	ErrConfiguration = errors.New("configuration error")

	// ErrConsistency covers mismatched per-sentence artifact counts.
	ErrConsistency = errors.New("consistency error")
)

// Stage names used in StageError.
const (
	StageScript   = "script"
	StageSegment  = "segment"
	StageSpeech   = "speech"
	StageImage    = "image"
	StagePrompts  = "image_prompts"
	StageStock    = "stock"
	StageTimeline = "timeline"
	StageSubtitle = "subtitle"
	StageRender   = "render"
	StagePublish  = "publish"
)

// StageError is the terminal error of a job. It names the stage and, when
// known, the unit (sentence index, clip url) that failed.
type StageError struct {
	Stage string
	Unit  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Unit, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with stage context. A nil err returns nil.
func NewStageError(stage, unit string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Unit: unit, Err: err}
}

// SentenceUnit formats a sentence index as a StageError unit.
func SentenceUnit(index int) string {
	return fmt.Sprintf("sentence %d", index)
}

// Configurationf builds an ErrConfiguration with a message.
func Configurationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Consistencyf builds an ErrConsistency with a message.
func Consistencyf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}
