package pods

import (
	"context"
	"fmt"
	"reflect"
)

// Scope names understood by the registry itself.
const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

type creationScope struct{}

// CreationScope returns the scope name of the pod being created on ctx. It
// is set for processor callbacks and empty outside of a creation.
func CreationScope(ctx context.Context) string {
	scope, _ := ctx.Value(creationScope{}).(string)

	return scope
}

// CreationState is the lifecycle state of one pod name.
type CreationState int

const (
	// StateAbsent means no instance is cached (the name may still have a lazy registration).
	StateAbsent CreationState = iota
	// StateInCreation means the factory for the name is currently running.
	StateInCreation
	// StateCached means an instance is cached.
	StateCached
	// StateDestroyed means the pod was removed or torn down and must be registered again.
	StateDestroyed
)

// String returns the state name.
func (s CreationState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateInCreation:
		return "in_creation"
	case StateCached:
		return "cached"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PodInstance holds a pod value together with its provenance.
type PodInstance struct {
	// Value is the pod itself.
	Value any
	// Type is the declared type; it defaults to the dynamic type of Value.
	Type reflect.Type
	// Origin describes where the pod was defined, e.g. a file or constructor name.
	Origin string
}

// Of wraps a value into a PodInstance typed by its dynamic type.
func Of(value any) PodInstance {
	return PodInstance{Value: value, Type: reflect.TypeOf(value)}
}

// OfOrigin wraps a value into a PodInstance with a resource description.
func OfOrigin(value any, origin string) PodInstance {
	return PodInstance{Value: value, Type: reflect.TypeOf(value), Origin: origin}
}

// TypeName returns a printable form of the declared type.
func (p PodInstance) TypeName() string {
	if p.Type != nil {
		return p.Type.String()
	}

	if p.Value != nil {
		return fmt.Sprintf("%T", p.Value)
	}

	return "<nil>"
}

// Factory produces a pod. It receives the registry so that it can request
// its own dependencies; nested requests must use the ctx it was given.
type Factory func(ctx context.Context, r *SingletonRegistry) (PodInstance, error)

// ObjectFactory produces a scoped object on demand.
type ObjectFactory func(ctx context.Context) (any, error)

// EarlyReferenceFunc exposes a pod before its initialization has finished.
type EarlyReferenceFunc func(ctx context.Context) (any, error)

// DisposablePod is the destroy side of a registered pod.
type DisposablePod interface {
	Destroy(ctx context.Context) error
}

// DisposableFunc adapts a function to DisposablePod.
type DisposableFunc func(ctx context.Context) error

// Destroy implements DisposablePod.
func (f DisposableFunc) Destroy(ctx context.Context) error {
	return f(ctx)
}

// PodInfo contains diagnostic information about one pod name.
type PodInfo struct {
	Name         string
	Type         string
	Origin       string
	State        CreationState
	Aliases      []string
	Dependents   []string
	Dependencies []string
	Disposable   bool
}
