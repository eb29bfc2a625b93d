package lazyinit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrLazyInit is the sentinel all lazyinit error types unwrap to.
// Callers can distinguish library failures from cached user computation
// errors with errors.Is(err, lazyinit.ErrLazyInit), then match the concrete
// type with errors.As.
var ErrLazyInit = errors.New("lazyinit error")

// TimeoutError is returned (and cached) when a bounded computation exceeds
// its allotted duration. It replaces, rather than wraps, whatever the
// underlying computation would have raised.
type TimeoutError struct {
	Attribute string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("computation of %q timed out after %v", e.Attribute, e.Timeout)
	}
	return fmt.Sprintf("computation timed out after %v", e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrLazyInit
}

// DependencyCycleError is returned when resolution encounters a name that is
// already on the in-progress resolution stack. Path holds the full cycle,
// ending with the repeated name.
type DependencyCycleError struct {
	Path []string
}

func (e *DependencyCycleError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Path, " -> ")
}

func (e *DependencyCycleError) Unwrap() error {
	return ErrLazyInit
}

// InvalidIdentifierError is returned at registration time for malformed
// attribute or dependency names.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid attribute name %q: must start with a letter or underscore, contain only alphanumerics/underscores, with an optional trailing ? or !", e.Name)
}

func (e *InvalidIdentifierError) Unwrap() error {
	return ErrLazyInit
}

// UnknownAttributeError is returned when an instance is asked about a name
// its registry never defined.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q", e.Name)
}

func (e *UnknownAttributeError) Unwrap() error {
	return ErrLazyInit
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*[?!]?$`)

func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return &InvalidIdentifierError{Name: name}
	}
	return nil
}

// SafeTypeAssertion performs safe type assertion with proper error
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}

	return typed, nil
}
