package vaulterr

import (
	"fmt"
	"strings"
)

// AmbiguousCategoryError reports an input that partially matched several
// categories. Candidates holds display names in resolver order.
type AmbiguousCategoryError struct {
	Input      string
	Candidates []string
}

func (e *AmbiguousCategoryError) Error() string {
	return "Multiple matches: " + strings.Join(e.Candidates, ", ")
}

func (e *AmbiguousCategoryError) ErrorKind() string { return KindAmbiguous }

func (e *AmbiguousCategoryError) Unwrap() error { return ErrAmbiguous }

// CategoryNotFoundError reports an input that matched no category.
// Suggestions are optional near misses.
type CategoryNotFoundError struct {
	Input       string
	Suggestions []string
}

func (e *CategoryNotFoundError) Error() string {
	msg := "Model not found: " + e.Input
	if len(e.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

func (e *CategoryNotFoundError) ErrorKind() string { return KindNotFound }

func (e *CategoryNotFoundError) Unwrap() error { return ErrNotFound }

// CapacityExceededError reports a grouped upload that hit its item limit.
type CapacityExceededError struct {
	Capacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("upload group is full (max %d items)", e.Capacity)
}

func (e *CapacityExceededError) ErrorKind() string { return KindCapacityExceeded }

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }
