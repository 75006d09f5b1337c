package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/augr/internal/patch"
)

var (
	// ErrNoStartTimes means every start of an event has been removed.
	ErrNoStartTimes = errors.New("event has no start times")

	// ErrMultipleStartTimes means concurrent edits left an event with more
	// than one start.
	ErrMultipleStartTimes = errors.New("event has multiple start times")

	// ErrUnknownEvent is returned by the edit builders for an event ref the
	// timesheet does not contain.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrUnknownTags is returned by UntagPatch when asked to remove tags the
	// event does not carry.
	ErrUnknownTags = errors.New("event does not have tags")
)

// ErrorCode categorizes replay and flatten errors.
type ErrorCode string

const (
	// ErrCodePatchNotFound indicates the store could not return a patch.
	ErrCodePatchNotFound ErrorCode = "PATCH_NOT_FOUND"

	// ErrCodeUnknownEvent indicates an operation names an event that was
	// never created.
	ErrCodeUnknownEvent ErrorCode = "UNKNOWN_EVENT"

	// ErrCodeDuplicateEventID indicates a create reuses an existing event id.
	ErrCodeDuplicateEventID ErrorCode = "DUPLICATE_EVENT_ID"

	// ErrCodeDependencyFailed indicates a parent patch failed to load.
	ErrCodeDependencyFailed ErrorCode = "DEPENDENCY_FAILED"

	// ErrCodeCycleDetected indicates patches whose parents can never load
	// because they depend on each other.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeIterationLimit indicates the replay hit its iteration bound.
	ErrCodeIterationLimit ErrorCode = "ITERATION_LIMIT"

	// ErrCodeFlattenEvent indicates an event without exactly one start.
	ErrCodeFlattenEvent ErrorCode = "FLATTEN_EVENT"

	// ErrCodeDuplicateEventTime indicates two events share a start time.
	ErrCodeDuplicateEventTime ErrorCode = "DUPLICATE_EVENT_TIME"
)

// Error is a single replay or flatten failure.
//
// Only the fields relevant to the Code are set:
//   - PATCH_NOT_FOUND: Patch, Err
//   - UNKNOWN_EVENT: Patch, Event
//   - DUPLICATE_EVENT_ID: Patch, Event
//   - DEPENDENCY_FAILED / CYCLE_DETECTED: Patch, Parent
//   - ITERATION_LIMIT: Patch
//   - FLATTEN_EVENT: Event, Err
//   - DUPLICATE_EVENT_TIME: Event, OtherEvent
type Error struct {
	Code       ErrorCode
	Patch      patch.PatchRef
	Event      patch.EventRef
	OtherEvent patch.EventRef
	Parent     patch.PatchRef
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case ErrCodePatchNotFound:
		return fmt.Sprintf("%s: unable to load patch %s: %v", e.Code, e.Patch, e.Err)
	case ErrCodeUnknownEvent:
		return fmt.Sprintf("%s: event %s, referenced from patch %s, was not found", e.Code, e.Event, e.Patch)
	case ErrCodeDuplicateEventID:
		return fmt.Sprintf("%s: patch %s creates event %s which already exists", e.Code, e.Patch, e.Event)
	case ErrCodeDependencyFailed:
		return fmt.Sprintf("%s: patch %s depends on %s which failed to load", e.Code, e.Patch, e.Parent)
	case ErrCodeCycleDetected:
		return fmt.Sprintf("%s: patch %s waits on %s which can never load", e.Code, e.Patch, e.Parent)
	case ErrCodeIterationLimit:
		return fmt.Sprintf("%s: patch %s was not loaded before the iteration limit", e.Code, e.Patch)
	case ErrCodeFlattenEvent:
		return fmt.Sprintf("%s: could not flatten event %s: %v", e.Code, e.Event, e.Err)
	case ErrCodeDuplicateEventTime:
		return fmt.Sprintf("%s: events %q and %q have the same start time", e.Code, e.Event, e.OtherEvent)
	}
	return string(e.Code)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errors is the accumulated error list of a replay or flatten.
// A nil or empty Errors is never returned as a non-nil error.
type Errors []*Error

// Error joins every message, one per line.
func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Has reports whether any error carries code.
func (es Errors) Has(code ErrorCode) bool {
	for _, e := range es {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Filter returns the errors carrying code.
func (es Errors) Filter(code ErrorCode) Errors {
	var out Errors
	for _, e := range es {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

// Codes returns the code of every error, in order.
func (es Errors) Codes() []ErrorCode {
	out := make([]ErrorCode, len(es))
	for i, e := range es {
		out[i] = e.Code
	}
	return out
}

func (es Errors) orNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// AsErrors extracts the error list from err. A lone *Error is returned as a
// one-element list. Returns nil if err carries neither.
func AsErrors(err error) Errors {
	var es Errors
	if errors.As(err, &es) {
		return es
	}
	var e *Error
	if errors.As(err, &e) {
		return Errors{e}
	}
	return nil
}

// IsConflict reports whether err contains a flatten-time conflict: an event
// without exactly one start, or two events sharing a start.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	es := AsErrors(err)
	return es.Has(ErrCodeFlattenEvent) || es.Has(ErrCodeDuplicateEventTime)
}
