// Package permission resolves callers to roles and evaluates scoped
// authorization checks against roles and resource membership.
package permission

import (
	"context"
	"errors"
	"fmt"

	"members/internal/model"
	"members/internal/repository"
)

var (
	ErrResolution           = errors.New("permission: actor could not be resolved")
	ErrInvalidScope         = errors.New("permission: scope requires a resource reference")
	ErrUnknownScope         = errors.New("permission: unknown scope")
	ErrAnonymousRoleMissing = errors.New("permission: anonymous role is missing")
	ErrResourceNotFound     = errors.New("permission: resource not found")
)

// Scoped checks evaluated against a resource. Every other scope type is a
// capability flag name looked up on the role.
const (
	ScopeUserView       = "USER_VIEW"
	ScopeChangePassword = "CHANGE_PASSWORD"
	ScopeGroupOrganize  = "GROUP_ORGANIZE"
	ScopeActivityView   = "ACTIVITY_VIEW"
	ScopeActivityEdit   = "ACTIVITY_EDIT"
)

// Scope names a check and optionally the resource it is evaluated against.
type Scope struct {
	Type  string
	Value *uint
}

// Flag returns a scope for a plain capability flag.
func Flag(name string) Scope {
	return Scope{Type: name}
}

// On returns a scope evaluated against the resource with the given id.
func On(scopeType string, id uint) Scope {
	return Scope{Type: scopeType, Value: &id}
}

func (s Scope) resource() (uint, error) {
	if s.Value == nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidScope, s.Type)
	}
	return *s.Value, nil
}

type refKind int

const (
	refAnonymous refKind = iota
	refID
	refUser
)

// ActorRef identifies the caller of a check before it is resolved.
type ActorRef struct {
	kind refKind
	id   uint
	user *model.User
}

// Anonymous refers to a caller without a session.
func Anonymous() ActorRef { return ActorRef{kind: refAnonymous} }

// ByID refers to a user by primary key.
func ByID(id uint) ActorRef { return ActorRef{kind: refID, id: id} }

// ByUser refers to an already loaded user. A nil user is anonymous.
func ByUser(u *model.User) ActorRef {
	if u == nil {
		return Anonymous()
	}
	return ActorRef{kind: refUser, user: u}
}

// Actor is a resolved caller. User is nil when Authenticated is false.
type Actor struct {
	User          *model.User
	Role          *model.Role
	Authenticated bool
}

// UserID returns the caller's id, or 0 when anonymous.
func (a Actor) UserID() uint {
	if a.User == nil {
		return 0
	}
	return a.User.ID
}

type Roles interface {
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindByID(ctx context.Context, id uint) (*model.Role, error)
}

type Users interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

type Groups interface {
	FindWithMembers(ctx context.Context, id uint) (*model.Group, error)
}

type Activities interface {
	FindWithOrganizer(ctx context.Context, id uint) (*model.Activity, error)
}

// Outcome labels reported to a DecisionHook.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

// DecisionHook observes every completed check.
type DecisionHook func(scopeType, outcome string)

type Option func(*Resolver)

// WithDecisionHook registers fn to observe check outcomes.
func WithDecisionHook(fn DecisionHook) Option {
	return func(r *Resolver) { r.hook = fn }
}

// Resolver evaluates permission checks. It holds no state besides its stores
// and is safe for concurrent use.
type Resolver struct {
	roles      Roles
	users      Users
	groups     Groups
	activities Activities
	hook       DecisionHook
}

func NewResolver(roles Roles, users Users, groups Groups, activities Activities, opts ...Option) *Resolver {
	r := &Resolver{roles: roles, users: users, groups: groups, activities: activities}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveActor loads the role for ref. An anonymous ref resolves to the
// well-known anonymous role, which must exist.
func (r *Resolver) ResolveActor(ctx context.Context, ref ActorRef) (Actor, error) {
	switch ref.kind {
	case refID:
		user, err := r.users.FindByID(ctx, ref.id)
		if errors.Is(err, repository.ErrNotFound) {
			return Actor{}, fmt.Errorf("%w: user %d not found", ErrResolution, ref.id)
		}
		if err != nil {
			return Actor{}, fmt.Errorf("load user %d: %w", ref.id, err)
		}
		return r.resolveUser(ctx, user)
	case refUser:
		return r.resolveUser(ctx, ref.user)
	}

	role, err := r.roles.FindByName(ctx, model.AnonymousRoleName)
	if errors.Is(err, repository.ErrNotFound) {
		return Actor{}, ErrAnonymousRoleMissing
	}
	if err != nil {
		return Actor{}, fmt.Errorf("load anonymous role: %w", err)
	}
	return Actor{Role: role}, nil
}

func (r *Resolver) resolveUser(ctx context.Context, user *model.User) (Actor, error) {
	role, err := r.roles.FindByID(ctx, user.RoleID)
	if errors.Is(err, repository.ErrNotFound) {
		return Actor{}, fmt.Errorf("%w: role %d of user %d not found", ErrResolution, user.RoleID, user.ID)
	}
	if err != nil {
		return Actor{}, fmt.Errorf("load role %d: %w", user.RoleID, err)
	}
	return Actor{User: user, Role: role, Authenticated: true}, nil
}

// CheckPermission resolves ref and evaluates scope for it.
func (r *Resolver) CheckPermission(ctx context.Context, ref ActorRef, scope Scope) (bool, error) {
	actor, err := r.ResolveActor(ctx, ref)
	if err != nil {
		r.observe(scope.Type, false, err)
		return false, err
	}
	return r.Check(ctx, actor, scope)
}

// Check evaluates scope for an already resolved actor. A false result is a
// denial; errors mean the check could not be decided.
func (r *Resolver) Check(ctx context.Context, actor Actor, scope Scope) (bool, error) {
	allowed, err := r.check(ctx, actor, scope)
	r.observe(scope.Type, allowed, err)
	return allowed, err
}

func (r *Resolver) observe(scopeType string, allowed bool, err error) {
	if r.hook == nil {
		return
	}
	switch {
	case err != nil:
		r.hook(scopeType, OutcomeError)
	case allowed:
		r.hook(scopeType, OutcomeAllow)
	default:
		r.hook(scopeType, OutcomeDeny)
	}
}

func (r *Resolver) check(ctx context.Context, actor Actor, scope Scope) (bool, error) {
	if actor.Role == nil {
		return false, fmt.Errorf("%w: actor has no role", ErrResolution)
	}
	perms := actor.Role.Permissions

	switch scope.Type {
	case ScopeUserView:
		return r.selfOr(ctx, actor, scope, perms.UserViewAll)
	case ScopeChangePassword:
		return r.selfOr(ctx, actor, scope, perms.ChangeAllPasswords)
	case ScopeGroupOrganize:
		id, err := scope.resource()
		if err != nil {
			return false, err
		}
		if !actor.Authenticated {
			return false, nil
		}
		group, err := r.groups.FindWithMembers(ctx, id)
		if err != nil {
			return false, notFound("group", id, err)
		}
		if group.CanOrganize && group.HasMember(actor.UserID()) {
			return true, nil
		}
		return perms.GroupOrganizeWithAll, nil
	case ScopeActivityView:
		id, err := scope.resource()
		if err != nil {
			return false, err
		}
		activity, err := r.activities.FindWithOrganizer(ctx, id)
		if err != nil {
			return false, notFound("activity", id, err)
		}
		return ActivityVisible(actor, activity), nil
	case ScopeActivityEdit:
		id, err := scope.resource()
		if err != nil {
			return false, err
		}
		if !actor.Authenticated {
			return false, nil
		}
		activity, err := r.activities.FindWithOrganizer(ctx, id)
		if err != nil {
			return false, notFound("activity", id, err)
		}
		return ActivityEditable(actor, activity), nil
	}

	allowed, err := perms.Flag(scope.Type)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownScope, scope.Type)
	}
	return allowed, nil
}

// ActivityVisible evaluates ACTIVITY_VIEW for an activity whose organizer
// memberships are loaded.
func ActivityVisible(actor Actor, activity *model.Activity) bool {
	if actor.Role == nil {
		return false
	}
	if activity.Published {
		return actor.Role.Permissions.ActivityViewPublished
	}
	if !actor.Authenticated {
		return false
	}
	if activity.Organizer.HasMember(actor.UserID()) {
		return true
	}
	return actor.Role.Permissions.ActivityViewAllUnpublished
}

// ActivityEditable evaluates ACTIVITY_EDIT for an activity whose organizer
// memberships are loaded.
func ActivityEditable(actor Actor, activity *model.Activity) bool {
	if actor.Role == nil || !actor.Authenticated {
		return false
	}
	if activity.Organizer.HasMember(actor.UserID()) {
		return true
	}
	return actor.Role.Permissions.ActivityManage
}

// selfOr allows an authenticated caller acting on their own account, and
// otherwise falls back to flag.
func (r *Resolver) selfOr(ctx context.Context, actor Actor, scope Scope, flag bool) (bool, error) {
	id, err := scope.resource()
	if err != nil {
		return false, err
	}
	if !actor.Authenticated {
		return false, nil
	}
	target, err := r.users.FindByID(ctx, id)
	if err != nil {
		return false, notFound("user", id, err)
	}
	if target.ID == actor.UserID() {
		return true, nil
	}
	return flag, nil
}

func notFound(kind string, id uint, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrResourceNotFound, kind, id)
	}
	return fmt.Errorf("load %s %d: %w", kind, id, err)
}
