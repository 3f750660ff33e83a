package shoptl

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoHandles is returned when a selection is requested without any handle.
var ErrNoHandles = errors.New("no handles given")

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates a translation service failure (API error, quota, rate limit, etc.).
type ProviderError struct {
	Message     string
	Cause       error
	Retryable   bool          // Whether the operation can be retried
	RateLimited bool          // The service rejected the request for exceeding its rate
	RetryAfter  time.Duration // Wait requested by the service, if any
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a content processing failure.
type ProcessorError struct {
	Message string
	Cause   error
	Field   string // The field that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.Field, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// TokenCollisionError indicates source text already contains a protection token verbatim.
type TokenCollisionError struct {
	Token string
}

func (e *TokenCollisionError) Error() string {
	return fmt.Sprintf("source text contains reserved token %q", e.Token)
}

// MaskMismatchError indicates the translator dropped or altered masked spans.
type MaskMismatchError struct {
	Expected int
	Got      int
}

func (e *MaskMismatchError) Error() string {
	return fmt.Sprintf("masked span mismatch: expected %d, got %d", e.Expected, e.Got)
}

// CountMismatchError indicates the service returned a different number of translations than expected.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// InputError indicates the export could not be read (malformed CSV, missing columns).
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("input error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("input error: %s", e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// NoMatchError indicates none of the requested handles exist in the export.
type NoMatchError struct {
	Handles []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no products found for handles: %s", strings.Join(e.Handles, ", "))
}

// RowError is a per-row translation failure. It never aborts a run.
type RowError struct {
	Index  int    // Position in the processed rows
	ID     string // Identification of the row
	Locale string
	Cause  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (ID %s, %s): %v", e.Index, e.ID, e.Locale, e.Cause)
}

func (e *RowError) Unwrap() error {
	return e.Cause
}
