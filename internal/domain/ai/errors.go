package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage means the provider rejected the image payload (4xx).
	ErrInvalidImage = errors.New("image rejected by inference service")
	// ErrServiceUnavailable covers transport and availability failures.
	ErrServiceUnavailable = errors.New("inference service unavailable")
	// ErrSchemaViolation means the assembled response failed validation.
	ErrSchemaViolation = errors.New("inference response violates schema")
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = fmt.Errorf("ai quota exceeded: %w", ErrServiceUnavailable)
)

// Kind returns a short label for metrics and event payloads.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	default:
		return "error"
	}
}

// Classified reports whether err already carries one of the inference kinds.
func Classified(err error) bool {
	return errors.Is(err, ErrInvalidImage) || errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrSchemaViolation)
}

// UserMessage is the guidance shown to end users for an inference failure.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidImage):
		return "The uploaded image could not be processed. It may be invalid or corrupted. Please try a different image."
	case errors.Is(err, ErrSchemaViolation):
		return "The analysis came back incomplete or inconsistent. Please run the analysis again."
	case errors.Is(err, ErrServiceUnavailable):
		return "Failed to get analysis from AI. The service may be temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred during analysis."
	}
}
