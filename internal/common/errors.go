package common

import (
	"errors"
	"fmt"
)

// Kind tags a pipeline error with its failure stage. The pipeline raises
// exactly these four kinds; anything else escaping it is a bug.
type Kind string

const (
	KindRasterization       Kind = "RASTERIZATION"
	KindRecognition         Kind = "RECOGNITION"
	KindExtractionService   Kind = "EXTRACTION_SERVICE"
	KindMalformedExtraction Kind = "MALFORMED_EXTRACTION"
)

// PipelineError is the tagged error every pipeline stage aborts with.
type PipelineError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Error constructors, one per stage.
func NewRasterizationError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindRasterization, Message: message, Cause: cause}
}

func NewRecognitionError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindRecognition, Message: message, Cause: cause}
}

func NewExtractionServiceError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindExtractionService, Message: message, Cause: cause}
}

func NewMalformedExtractionError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindMalformedExtraction, Message: message, Cause: cause}
}

// KindOf extracts the stage tag from an error chain.
func KindOf(err error) (Kind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given stage tag.
func IsKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

// AppError represents workflow-level errors outside the pipeline's taxonomy.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)
