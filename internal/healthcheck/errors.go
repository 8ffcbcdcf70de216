package healthcheck

import (
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

var (
	// ErrNotFound is returned by a Client when the remote health check does not exist.
	ErrNotFound = errors.New("health check not found")
	// ErrImmutableFieldRejected is returned by a Client when the provider refuses the
	// submitted configuration.
	ErrImmutableFieldRejected = errors.New("health check configuration rejected by provider")
)

// ImmutableFieldConflictError means the declared configuration changes a field the
// provider does not allow to change on an existing health check.
type ImmutableFieldConflictError struct {
	Field   string
	Desired any
	Current any
}

func (e *ImmutableFieldConflictError) Error() string {
	return fmt.Sprintf("cannot change %s from %v to %v: the provider forbids changing %s on an existing health check, "+
		"and recreating it under a new id would orphan every reference to the current id",
		e.Field, e.Current, e.Desired, e.Field)
}

// StaleIdentityError means a stored remote id no longer resolves to a health check.
type StaleIdentityError struct {
	Name     string
	RemoteID string
}

func (e *StaleIdentityError) Error() string {
	return fmt.Sprintf("health check %q is recorded as %s but it no longer exists remotely; "+
		"forget the stored identity to allow it to be recreated", e.Name, e.RemoteID)
}

func (e *StaleIdentityError) Unwrap() error { return ErrNotFound }

// IsNotFound returns true if err reports a missing remote health check.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsImmutableConflict returns true if err is an immutable field conflict.
func IsImmutableConflict(err error) bool {
	return anyError(err, func(err error) bool {
		var conflict *ImmutableFieldConflictError
		return errors.As(err, &conflict)
	})
}

// IsStaleIdentity returns true if err reports a stored id without a remote object.
func IsStaleIdentity(err error) bool {
	return anyError(err, func(err error) bool {
		var stale *StaleIdentityError
		return errors.As(err, &stale)
	})
}

// IsConfigurationError returns true if err is caused by the declared configuration
// rather than by a failed provider call.
func IsConfigurationError(err error) bool {
	return IsImmutableConflict(err) || IsStaleIdentity(err) || IsValidationError(err)
}

// ValidationError wraps the field errors returned by Validate.
type ValidationError struct {
	Name string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid health check %q: %v", e.Name, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	return anyError(err, func(err error) bool {
		var v *ValidationError
		return errors.As(err, &v)
	})
}

// anyError applies match to err and, if err carries an aggregate, to each of its errors.
func anyError(err error, match func(error) bool) bool {
	if err == nil {
		return false
	}
	if match(err) {
		return true
	}
	var agg utilerrors.Aggregate
	if errors.As(err, &agg) {
		for _, e := range agg.Errors() {
			if anyError(e, match) {
				return true
			}
		}
	}
	return false
}
