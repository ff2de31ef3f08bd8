package vaulterr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrAmbiguous        = errors.New("ambiguous category")
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrStorage          = errors.New("storage error")
	ErrPersistence      = errors.New("persistence error")
	ErrConflict         = errors.New("conflict")
	ErrConfiguration    = errors.New("configuration error")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Kind names used by ErrorKind and the HTTP error payloads.
const (
	KindValidation       = "validation"
	KindAmbiguous        = "ambiguous"
	KindNotFound         = "not_found"
	KindCapacityExceeded = "capacity_exceeded"
	KindStorage          = "storage"
	KindPersistence      = "persistence"
	KindConflict         = "conflict"
	KindConfiguration    = "configuration"
	KindUnauthorized     = "unauthorized"
	KindInternal         = "internal"
)

// ErrorClassifier allows errors to declare their classification.
type ErrorClassifier interface {
	ErrorKind() string
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrPersistence
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Validation is shorthand for a validation failure with a user-facing message.
func Validation(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

// NotFound is shorthand for a missing entity with a user-facing message.
func NotFound(message string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, message)
}

// Conflict is shorthand for a state conflict with a user-facing message.
func Conflict(message string) error {
	return fmt.Errorf("%w: %s", ErrConflict, message)
}

// Unauthorized reports a caller outside the allow-list.
func Unauthorized(message string) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, message)
}

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAmbiguous):
		return KindAmbiguous
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAmbiguous, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindCapacityExceeded:
		return http.StatusTooManyRequests
	case KindStorage:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusForbidden
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage renders err as a short human-readable reason, without the
// marker prefixes that Wrap adds.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ambiguous *AmbiguousCategoryError
	if errors.As(err, &ambiguous) {
		return ambiguous.Error()
	}
	var missing *CategoryNotFoundError
	if errors.As(err, &missing) {
		return missing.Error()
	}
	var capacity *CapacityExceededError
	if errors.As(err, &capacity) {
		return capacity.Error()
	}
	msg := err.Error()
	for _, marker := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrStorage, ErrPersistence, ErrConfiguration, ErrUnauthorized} {
		msg = strings.TrimPrefix(msg, marker.Error()+": ")
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "vault failure"
	}
	return strings.Join(parts, ": ")
}
