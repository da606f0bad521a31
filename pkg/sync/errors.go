package sync

import (
	"errors"
	"fmt"
)

// Fatal conditions. Everything else is recovered and reported through
// the action summary.
var (
	// ErrMalformedTarget means the existing schematic could not be
	// parsed. The run aborts with no partial sync.
	ErrMalformedTarget = errors.New("malformed target schematic")

	// ErrNamespaceViolation means two nets constructed in different
	// scopes resolved to one rendered name-group. This is an internal
	// invariant failure: silently merging scoped nets would connect
	// pins the source never connected.
	ErrNamespaceViolation = errors.New("net namespace violation")
)

// NamespaceViolationError carries the colliding scopes for diagnostics.
type NamespaceViolationError struct {
	Sheet    string
	Rendered string
	ScopeA   string
	ScopeB   string
}

func (e *NamespaceViolationError) Error() string {
	return fmt.Sprintf("net namespace violation in sheet %q: name %q claimed by scopes %q and %q",
		e.Sheet, e.Rendered, e.ScopeA, e.ScopeB)
}

func (e *NamespaceViolationError) Unwrap() error { return ErrNamespaceViolation }
