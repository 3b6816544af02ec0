package pods

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Scope is a lifetime strategy for pods. The registry itself provides the
// singleton scope; request, session and similar scopes plug in through this
// interface.
type Scope interface {
	// Get returns the object bound to name, creating it with factory if absent.
	Get(ctx context.Context, name string, factory ObjectFactory) (any, error)

	// Remove unbinds name and returns the removed object, if any.
	Remove(ctx context.Context, name string) (any, bool)

	// RegisterDestructionCallback binds a cleanup action to name.
	RegisterDestructionCallback(name string, callback func())

	// ResolveContextualObject returns a scope-specific object for key.
	ResolveContextualObject(key string) (any, bool)

	// ConversationID identifies the current conversation, empty if none.
	ConversationID() string
}

// SimpleScope is a map-backed scope, suitable for request or session
// lifetimes. Call End when the lifetime is over.
type SimpleScope struct {
	id         string
	instances  map[string]any
	order      []string
	callbacks  map[string]*destructionCallback
	contextual map[string]any
	ended      bool
	mu         sync.Mutex
}

// NewSimpleScope creates a scope with a fresh conversation id.
func NewSimpleScope() *SimpleScope {
	return &SimpleScope{
		id:         uuid.NewString(),
		instances:  make(map[string]any),
		callbacks:  make(map[string]*destructionCallback),
		contextual: make(map[string]any),
	}
}

// Get returns the object bound to name, creating it once with factory.
func (s *SimpleScope) Get(ctx context.Context, name string, factory ObjectFactory) (any, error) {
	s.mu.Lock()

	if s.ended {
		s.mu.Unlock()

		return nil, ErrScopeEnded
	}

	if instance, ok := s.instances[name]; ok {
		s.mu.Unlock()

		return instance, nil
	}

	s.mu.Unlock()

	if factory == nil {
		return nil, ErrPodNotFound(name)
	}

	// Factory runs unlocked: it may request other objects from this scope.
	instance, err := factory(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, ErrScopeEnded
	}

	if existing, ok := s.instances[name]; ok {
		return existing, nil
	}

	s.instances[name] = instance
	s.order = append(s.order, name)

	return instance, nil
}

// Remove unbinds name without running its destruction callback.
func (s *SimpleScope) Remove(ctx context.Context, name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	instance, ok := s.instances[name]
	if !ok {
		return nil, false
	}

	delete(s.instances, name)
	delete(s.callbacks, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })

	return instance, true
}

// RegisterDestructionCallback binds callback to name; it runs once on End.
func (s *SimpleScope) RegisterDestructionCallback(name string, callback func()) {
	if callback == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.callbacks[name] = newDestructionCallback(name, callback)
}

// ResolveContextualObject returns a contextual object set with SetContextualObject.
// The key "conversationId" always resolves to the scope id.
func (s *SimpleScope) ResolveContextualObject(key string) (any, bool) {
	if key == "conversationId" {
		return s.id, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.contextual[key]

	return v, ok
}

// SetContextualObject stores a scope-specific object under key.
func (s *SimpleScope) SetContextualObject(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contextual[key] = value
}

// ConversationID returns the scope id.
func (s *SimpleScope) ConversationID() string {
	return s.id
}

// End runs the destruction callbacks in reverse creation order and closes the scope.
func (s *SimpleScope) End() error {
	s.mu.Lock()

	if s.ended {
		s.mu.Unlock()

		return ErrScopeEnded
	}

	order := slices.Clone(s.order)
	callbacks := s.callbacks

	s.instances = nil
	s.callbacks = nil
	s.order = nil
	s.ended = true
	s.mu.Unlock()

	var err error

	for i := len(order) - 1; i >= 0; i-- {
		cb, ok := callbacks[order[i]]
		if !ok {
			continue
		}

		delete(callbacks, order[i])
		err = multierr.Append(err, cb.run())
	}

	// Callbacks registered for names that were never created through Get.
	for _, cb := range callbacks {
		err = multierr.Append(err, cb.run())
	}

	return err
}

// destructionCallback runs a cleanup action at most once.
type destructionCallback struct {
	name string
	fn   func()
	once sync.Once
}

func newDestructionCallback(name string, fn func()) *destructionCallback {
	return &destructionCallback{name: name, fn: fn}
}

// run executes the callback, turning a panic into an error.
func (d *destructionCallback) run() (err error) {
	d.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				err = NewDestructionError(d.name, fmt.Errorf("destruction callback panicked: %v", r))
			}
		}()

		d.fn()
	})

	return err
}

// Destroy implements DisposablePod.
func (d *destructionCallback) Destroy(ctx context.Context) error {
	return d.run()
}

// singletonScope exposes the registry's singleton behaviour as a Scope.
type singletonScope struct {
	registry *SingletonRegistry
}

// Get implements Scope on top of GetSingleton.
func (s singletonScope) Get(ctx context.Context, name string, factory ObjectFactory) (any, error) {
	var f Factory
	if factory != nil {
		f = func(ctx context.Context, _ *SingletonRegistry) (PodInstance, error) {
			v, err := factory(ctx)
			if err != nil {
				return PodInstance{}, err
			}

			return Of(v), nil
		}
	}

	return s.registry.GetSingleton(ctx, name, f)
}

// Remove implements Scope by destroying the singleton.
func (s singletonScope) Remove(ctx context.Context, name string) (any, bool) {
	inst, ok := s.registry.RemoveSingleton(ctx, name)

	return inst.Value, ok
}

// RegisterDestructionCallback implements Scope.
func (s singletonScope) RegisterDestructionCallback(name string, callback func()) {
	s.registry.RegisterDestructionCallback(name, callback)
}

// ResolveContextualObject implements Scope; the singleton scope has no contextual objects.
func (s singletonScope) ResolveContextualObject(string) (any, bool) {
	return nil, false
}

// ConversationID implements Scope; singletons live outside any conversation.
func (s singletonScope) ConversationID() string {
	return ""
}
