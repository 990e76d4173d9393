// Package errors provides standardized error handling for the recommender
// core and its BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Content scoring
	ErrCodeEmptyQuery       ErrorCode = "EMPTY_QUERY"
	ErrCodeEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"
	ErrCodeEmbeddingTimeout ErrorCode = "EMBEDDING_TIMEOUT"
	ErrCodeRetrievalFailed  ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeRetrievalTimeout ErrorCode = "RETRIEVAL_TIMEOUT"

	// Training and model lifecycle
	ErrCodeInsufficientData   ErrorCode = "INSUFFICIENT_DATA"
	ErrCodeTrainingInProgress ErrorCode = "TRAINING_IN_PROGRESS"
	ErrCodeModelNotFound      ErrorCode = "MODEL_NOT_FOUND"
	ErrCodeModelPersistFailed ErrorCode = "MODEL_PERSIST_FAILED"
	ErrCodeModelCorrupted     ErrorCode = "MODEL_CORRUPTED"

	// Relational store
	ErrCodeInteractionQueryFailed ErrorCode = "INTERACTION_QUERY_FAILED"
	ErrCodePostingQueryFailed     ErrorCode = "POSTING_QUERY_FAILED"

	// Indexing
	ErrCodeIndexingFailed ErrorCode = "INDEXING_FAILED"

	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the collaborator error that produced e, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a StandardError with the same code, so that
// errors.Is(err, ErrEmbedding) matches any embedding failure.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns e after attaching a metadata key.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyQuery         = &StandardError{Code: ErrCodeEmptyQuery}
	ErrEmbedding          = &StandardError{Code: ErrCodeEmbeddingFailed}
	ErrEmbeddingTimeout   = &StandardError{Code: ErrCodeEmbeddingTimeout}
	ErrRetrieval          = &StandardError{Code: ErrCodeRetrievalFailed}
	ErrRetrievalTimeout   = &StandardError{Code: ErrCodeRetrievalTimeout}
	ErrInsufficientData   = &StandardError{Code: ErrCodeInsufficientData}
	ErrTrainingInProgress = &StandardError{Code: ErrCodeTrainingInProgress}
	ErrModelNotFound      = &StandardError{Code: ErrCodeModelNotFound}
	ErrInvalidInput       = &StandardError{Code: ErrCodeInvalidInput}
)

// HasCode reports whether any error in err's chain is a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	var se *StandardError
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Code == code
}

// CodeOf returns the code of the first StandardError in err's chain.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternalError
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewEmptyQueryError is returned when a profile yields no text to embed.
func NewEmptyQueryError() *StandardError {
	return newError(ErrCodeEmptyQuery, "Profile has no text to embed", "", false, nil)
}

// NewEmbeddingError wraps a failure of the embedding collaborator.
func NewEmbeddingError(err error) *StandardError {
	return newError(ErrCodeEmbeddingFailed, "Embedding service error", detailsOf(err), true, err)
}

// NewEmbeddingTimeoutError is returned when the embedding call exceeds its deadline.
func NewEmbeddingTimeoutError(timeout time.Duration, err error) *StandardError {
	return newError(ErrCodeEmbeddingTimeout, "Embedding service timeout",
		fmt.Sprintf("timeout: %s", timeout), true, err)
}

// NewRetrievalError wraps a failure of the ANN vector search collaborator.
func NewRetrievalError(err error) *StandardError {
	return newError(ErrCodeRetrievalFailed, "Vector search error", detailsOf(err), true, err)
}

// NewRetrievalTimeoutError is returned when the vector search exceeds its deadline.
func NewRetrievalTimeoutError(timeout time.Duration, err error) *StandardError {
	return newError(ErrCodeRetrievalTimeout, "Vector search timeout",
		fmt.Sprintf("timeout: %s", timeout), true, err)
}

// NewInsufficientDataError is returned when training preconditions are not met.
func NewInsufficientDataError(users, jobs int) *StandardError {
	return newError(ErrCodeInsufficientData, "Not enough interaction data to train",
		fmt.Sprintf("users: %d, jobs: %d (need at least 2 of each)", users, jobs), false, nil).
		WithMetadata("users", users).
		WithMetadata("jobs", jobs)
}

// NewTrainingInProgressError is returned when another training run holds the lock.
func NewTrainingInProgressError() *StandardError {
	return newError(ErrCodeTrainingInProgress, "A training run is already in progress", "", true, nil)
}

// NewModelNotFoundError is returned when no persisted bundle exists.
func NewModelNotFoundError(details string) *StandardError {
	return newError(ErrCodeModelNotFound, "No trained model available", details, false, nil)
}

// NewModelPersistFailedError wraps a failure to write a model bundle.
func NewModelPersistFailedError(err error) *StandardError {
	return newError(ErrCodeModelPersistFailed, "Failed to persist model bundle", detailsOf(err), true, err)
}

// NewModelCorruptedError is returned when a bundle fails to decode or verify.
func NewModelCorruptedError(path string, err error) *StandardError {
	return newError(ErrCodeModelCorrupted, "Model bundle is corrupted",
		fmt.Sprintf("path: %s, error: %s", path, detailsOf(err)), false, err)
}

// NewInteractionQueryFailedError wraps a failure reading the feedback log.
func NewInteractionQueryFailedError(err error) *StandardError {
	return newError(ErrCodeInteractionQueryFailed, "Failed to read interaction history", detailsOf(err), true, err)
}

// NewPostingQueryFailedError wraps a failure reading job postings.
func NewPostingQueryFailedError(err error) *StandardError {
	return newError(ErrCodePostingQueryFailed, "Failed to read job postings", detailsOf(err), true, err)
}

// NewIndexingFailedError wraps a failure writing to the vector index.
func NewIndexingFailedError(jobID int64, err error) *StandardError {
	return newError(ErrCodeIndexingFailed, "Failed to index job posting",
		fmt.Sprintf("jobId: %d, error: %s", jobID, detailsOf(err)), true, err).
		WithMetadata("jobId", jobID)
}

// NewInvalidInputError is returned for malformed requests.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternalError, "Unexpected error", detailsOf(err), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeEmptyQuery:             "EMPTY_QUERY",
	ErrCodeEmbeddingFailed:        "EMBEDDING_FAILED",
	ErrCodeEmbeddingTimeout:       "EMBEDDING_TIMEOUT",
	ErrCodeRetrievalFailed:        "RETRIEVAL_FAILED",
	ErrCodeRetrievalTimeout:       "RETRIEVAL_TIMEOUT",
	ErrCodeInsufficientData:       "INSUFFICIENT_DATA",
	ErrCodeTrainingInProgress:     "TRAINING_IN_PROGRESS",
	ErrCodeModelNotFound:          "MODEL_NOT_FOUND",
	ErrCodeModelPersistFailed:     "MODEL_PERSIST_FAILED",
	ErrCodeModelCorrupted:         "MODEL_CORRUPTED",
	ErrCodeInteractionQueryFailed: "INTERACTION_QUERY_FAILED",
	ErrCodePostingQueryFailed:     "POSTING_QUERY_FAILED",
	ErrCodeIndexingFailed:         "INDEXING_FAILED",
	ErrCodeInvalidInput:           "INVALID_INPUT",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEmbeddingFailed,
		ErrCodeRetrievalFailed,
		ErrCodeInteractionQueryFailed,
		ErrCodePostingQueryFailed,
		ErrCodeModelPersistFailed,
		ErrCodeIndexingFailed:
		return 3

	case ErrCodeEmbeddingTimeout,
		ErrCodeRetrievalTimeout:
		return 2

	case ErrCodeTrainingInProgress:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsTimeout reports whether err is a collaborator timeout.
func IsTimeout(err error) bool {
	return HasCode(err, ErrCodeEmbeddingTimeout) || HasCode(err, ErrCodeRetrievalTimeout)
}

// GetErrorCategory names the collaborator or subsystem a code belongs to.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "EMBEDDING"), code == ErrCodeEmptyQuery:
		return "EMBEDDING"
	case strings.HasPrefix(codeStr, "RETRIEVAL"), code == ErrCodeIndexingFailed:
		return "RETRIEVAL"
	case strings.Contains(codeStr, "QUERY_FAILED"):
		return "DATABASE"
	case strings.HasPrefix(codeStr, "MODEL"), strings.HasPrefix(codeStr, "TRAINING"), code == ErrCodeInsufficientData:
		return "MODEL"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
