package pods

import (
	"context"
	"reflect"
)

// PodKey provides type-safe pod identification.
//
// Example:
//
//	var DatabaseKey = NewPodKey[*Database]("database")
type PodKey[T any] struct {
	name string
}

// NewPodKey creates a typed key for the pod registered under name.
func NewPodKey[T any](name string) PodKey[T] {
	return PodKey[T]{name: name}
}

// Name returns the pod name behind the key.
func (k PodKey[T]) Name() string {
	return k.name
}

// Named pairs a pod with the name it is registered under.
type Named[T any] struct {
	Name string
	Pod  T
}

// Get resolves a singleton with type safety. A registered factory runs on
// the first request.
func Get[T any](ctx context.Context, r *SingletonRegistry, name string) (T, error) {
	var zero T

	instance, err := r.GetSingleton(ctx, name, nil)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, ErrPodTypeMismatch(r.CanonicalName(name), typeNameOf[T](), instance)
	}

	return typed, nil
}

// MustGet resolves or panics - use only during startup.
func MustGet[T any](ctx context.Context, r *SingletonRegistry, name string) T {
	instance, err := Get[T](ctx, r, name)
	if err != nil {
		panic(err)
	}

	return instance
}

// GetWithKey resolves a singleton through a typed key.
//
// Example:
//
//	db, err := GetWithKey(ctx, r, DatabaseKey)
func GetWithKey[T any](ctx context.Context, r *SingletonRegistry, key PodKey[T]) (T, error) {
	return Get[T](ctx, r, key.name)
}

// RegisterWithKey registers a typed factory under key. The pod is created on
// the first request.
func RegisterWithKey[T any](r *SingletonRegistry, key PodKey[T], factory func(ctx context.Context, r *SingletonRegistry) (T, error)) error {
	if factory == nil {
		return NewConfigurationError(key.name, "an instance or a factory is required")
	}

	return r.RegisterSingletonFactory(key.name, func(ctx context.Context, r *SingletonRegistry) (PodInstance, error) {
		v, err := factory(ctx, r)
		if err != nil {
			return PodInstance{}, err
		}

		return PodInstance{Value: v, Type: typeOf[T]()}, nil
	})
}

// SingletonsOfType returns every cached singleton assignable to T, in
// registration order. Lazy registrations that were never requested are not
// considered.
func SingletonsOfType[T any](r *SingletonRegistry) []Named[T] {
	var result []Named[T]

	for _, entry := range r.snapshot() {
		if typed, ok := entry.pod.Value.(T); ok {
			result = append(result, Named[T]{Name: entry.name, Pod: typed})
		}
	}

	return result
}

// SingletonOfType returns the only cached singleton assignable to T. It fails
// with a lookup error when there is none and with a not-unique error when
// there are several.
func SingletonOfType[T any](r *SingletonRegistry) (Named[T], error) {
	matches := SingletonsOfType[T](r)

	switch len(matches) {
	case 0:
		return Named[T]{}, ErrPodOfTypeNotFound(typeNameOf[T]())
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}

		return Named[T]{}, ErrPodNotUnique(typeNameOf[T](), names)
	}
}

type namedInstance struct {
	name string
	pod  PodInstance
}

// snapshot copies the cached singletons in registration order.
func (r *SingletonRegistry) snapshot() []namedInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]namedInstance, 0, len(r.singletons))
	for _, name := range r.order {
		if pod, ok := r.singletons[name]; ok {
			result = append(result, namedInstance{name: name, pod: pod})
		}
	}

	return result
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func typeNameOf[T any]() string {
	return typeOf[T]().String()
}
