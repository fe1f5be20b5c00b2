package service

import (
	"context"
	"errors"
	"fmt"

	"members/internal/permission"
	"members/internal/repository"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrAuthentication  = errors.New("invalid email or password")
)

// AuthenticationError is returned for every failed login. Its message never
// says which check failed; Reason is kept for server-side logs only.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return ErrAuthentication.Error()
}

func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundAs turns a repository miss into ErrNotFound naming the entity.
func notFoundAs(entity string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return err
}

// conflictAs turns a unique index violation into ErrConflict.
func conflictAs(msg string, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	}
	return err
}

// Authorizer decides permission checks for a resolved actor.
type Authorizer interface {
	Check(ctx context.Context, actor permission.Actor, scope permission.Scope) (bool, error)
}

// authorize turns a denial into ErrUnauthenticated or ErrForbidden. Resolver
// errors are returned unchanged.
func authorize(ctx context.Context, authz Authorizer, actor permission.Actor, scope permission.Scope) error {
	allowed, err := authz.Check(ctx, actor, scope)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	if !actor.Authenticated {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// allowed reports a check outcome, treating errors as denial.
func allowed(ctx context.Context, authz Authorizer, actor permission.Actor, scope permission.Scope) bool {
	ok, err := authz.Check(ctx, actor, scope)
	return err == nil && ok
}

func actorID(actor permission.Actor) *uint {
	if !actor.Authenticated {
		return nil
	}
	id := actor.UserID()
	return &id
}
