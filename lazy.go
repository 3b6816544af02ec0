package pods

import (
	"context"
	"fmt"
	"sync"
)

// Lazy wraps a singleton that is resolved on first access.
// This is useful for breaking circular dependencies or deferring
// creation of expensive pods until they're actually needed.
type Lazy[T any] struct {
	registry *SingletonRegistry
	name     string
	mu       sync.Mutex
	value    T
	resolved bool
}

// NewLazy creates a new lazy pod wrapper.
func NewLazy[T any](r *SingletonRegistry, name string) *Lazy[T] {
	return &Lazy[T]{
		registry: r,
		name:     name,
	}
}

// Get resolves the pod and returns it. A successful resolution is cached;
// a failed one is retried on the next call.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resolved {
		return l.value, nil
	}

	value, err := Get[T](ctx, l.registry, l.name)
	if err != nil {
		return value, err
	}

	l.value = value
	l.resolved = true

	return value, nil
}

// MustGet resolves the pod and returns it, panicking on error.
func (l *Lazy[T]) MustGet(ctx context.Context) T {
	value, err := l.Get(ctx)
	if err != nil {
		panic(fmt.Sprintf("lazy pod %s failed: %v", l.name, err))
	}

	return value
}

// IsResolved returns true if the pod has been resolved.
func (l *Lazy[T]) IsResolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.resolved
}

// Name returns the name of the pod.
func (l *Lazy[T]) Name() string {
	return l.name
}

// OptionalLazy wraps an optional singleton. A pod that cannot be found
// resolves to the zero value without error.
type OptionalLazy[T any] struct {
	lazy  Lazy[T]
	found bool
}

// NewOptionalLazy creates a new optional lazy pod wrapper.
func NewOptionalLazy[T any](r *SingletonRegistry, name string) *OptionalLazy[T] {
	return &OptionalLazy[T]{lazy: Lazy[T]{registry: r, name: name}}
}

// Get resolves the pod; a missing pod yields the zero value and no error.
func (l *OptionalLazy[T]) Get(ctx context.Context) (T, error) {
	value, err := l.lazy.Get(ctx)
	if err != nil {
		var zero T
		// Only the pod itself may be missing, not something it needs.
		if ErrorCode(err) == CodeLookup && PodName(err) == l.lazy.registry.CanonicalName(l.lazy.name) {
			return zero, nil
		}

		return zero, err
	}

	l.lazy.mu.Lock()
	l.found = true
	l.lazy.mu.Unlock()

	return value, nil
}

// IsFound returns true if the pod was found (only valid after resolution).
func (l *OptionalLazy[T]) IsFound() bool {
	l.lazy.mu.Lock()
	defer l.lazy.mu.Unlock()

	return l.found
}

// Name returns the name of the pod.
func (l *OptionalLazy[T]) Name() string {
	return l.lazy.name
}

// Provider creates a new prototype pod on each access.
type Provider[T any] struct {
	registry *SingletonRegistry
	desc     PodDescriptor
	factory  Factory
}

// NewProvider creates a provider that runs factory through the full
// lifecycle on every Provide call.
func NewProvider[T any](r *SingletonRegistry, desc PodDescriptor, factory Factory) *Provider[T] {
	desc.Scope = ScopePrototype

	return &Provider[T]{
		registry: r,
		desc:     desc,
		factory:  factory,
	}
}

// Provide creates and returns a new instance.
func (p *Provider[T]) Provide(ctx context.Context) (T, error) {
	var zero T

	desc := p.desc

	instance, err := p.registry.GetOrCreate(ctx, &desc, p.factory)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, ErrPodTypeMismatch(p.desc.Name, typeNameOf[T](), instance)
	}

	return typed, nil
}

// MustProvide creates and returns a new instance, panicking on error.
func (p *Provider[T]) MustProvide(ctx context.Context) T {
	value, err := p.Provide(ctx)
	if err != nil {
		panic(fmt.Sprintf("provider %s failed: %v", p.desc.Name, err))
	}

	return value
}

// Name returns the name of the pod.
func (p *Provider[T]) Name() string {
	return p.desc.Name
}
