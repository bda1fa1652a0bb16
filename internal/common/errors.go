package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Pipeline stage names used in errors and log events.
const (
	StageExtract = "extract"
	StageModel   = "model"
	StageParse   = "parse"
)

// Sentinel kinds for the pipeline error taxonomy. Classify with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailed  = errors.New("text extraction failed")
	ErrModelRejected     = errors.New("model backend rejected the request")
	ErrModelUnavailable  = errors.New("model backend unavailable")
	ErrMalformedResponse = errors.New("malformed model response")
)

// PipelineError tags a stage failure with its taxonomy kind. A stage produces
// it at the point of failure and the orchestrator returns it unchanged.
type PipelineError struct {
	Kind    error  // one of the Err* sentinels above
	Stage   string // stage that failed
	Message string // human-readable cause
	Cause   error  // underlying error, may be nil
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes both the taxonomy kind and the underlying cause, so
// errors.Is matches the sentinels and errors.As still reaches the cause.
func (e *PipelineError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Error constructors, one per taxonomy kind. The stage is fixed by the kind.
func UnsupportedFormat(message string) *PipelineError {
	return &PipelineError{Kind: ErrUnsupportedFormat, Stage: StageExtract, Message: message}
}

func ExtractionFailed(message string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrExtractionFailed, Stage: StageExtract, Message: message, Cause: cause}
}

func ModelRejected(message string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrModelRejected, Stage: StageModel, Message: message, Cause: cause}
}

func ModelUnavailable(message string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrModelUnavailable, Stage: StageModel, Message: message, Cause: cause}
}

func MalformedResponse(message string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrMalformedResponse, Stage: StageParse, Message: message, Cause: cause}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode returns the stable machine-readable code for an error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.Is(err, ErrExtractionFailed):
		return "EXTRACTION_FAILED"
	case errors.Is(err, ErrModelRejected):
		return "MODEL_REJECTED"
	case errors.Is(err, ErrModelUnavailable):
		return "MODEL_UNAVAILABLE"
	case errors.Is(err, ErrMalformedResponse):
		return "MALFORMED_RESPONSE"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps an error to the status code the HTTP layer reports.
// Validation-class failures map to 4xx, service-class failures to 5xx.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrModelRejected), errors.Is(err, ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
