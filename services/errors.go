package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies which pipeline stage failed.
type ErrorKind int

const (
	FetchFailed ErrorKind = iota + 1
	DeserializeFailed
	NormalizeFailed
	UploadFailed
)

func (k ErrorKind) String() string {
	switch k {
	case FetchFailed:
		return "fetch failed"
	case DeserializeFailed:
		return "deserialize failed"
	case NormalizeFailed:
		return "normalize failed"
	case UploadFailed:
		return "upload failed"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// Label is the metric label value for the kind.
func (k ErrorKind) Label() string {
	switch k {
	case FetchFailed:
		return "fetch"
	case DeserializeFailed:
		return "deserialize"
	case NormalizeFailed:
		return "normalize"
	case UploadFailed:
		return "upload"
	default:
		return "unknown"
	}
}

// PipelineError wraps the cause of a failed invocation with its stage.
type PipelineError struct {
	Kind ErrorKind
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func wrapKind(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{Kind: kind, Err: err}
}

// KindOf reports the stage of a pipeline error, if err carries one.
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
