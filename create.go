package pods

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// currentPod carries the name of the singleton whose factory is running.
type currentPod struct {
	registry *SingletonRegistry
}

// prototypesInCreation carries the prototype names being created on a call path.
type prototypesInCreation struct {
	registry *SingletonRegistry
}

// GetOrCreate returns the pod described by desc, running factory inside the
// full lifecycle when the pod has to be created:
//
//  1. before-instantiation processors may supply the pod outright
//  2. factory instantiates the raw pod
//  3. an early reference is exposed for circular requests
//  4. properties are processed and applied
//  5. before-init processors, init methods and after-init processors run
//  6. the destroy side is registered when there is anything to destroy
//
// Pods named in desc.DependsOn are resolved first and must be registered
// with the registry (cached or through RegisterSingletonFactory).
func (r *SingletonRegistry) GetOrCreate(ctx context.Context, desc *PodDescriptor, factory Factory) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if desc == nil {
		return nil, NewConfigurationError("", "descriptor must not be nil")
	}

	name := r.aliases.CanonicalName(desc.Name)

	if desc.scope() == ScopeSingleton && name != "" {
		r.mu.RLock()
		pod, ok := r.singletons[name]
		r.mu.RUnlock()

		if ok {
			r.recordDependency(ctx, name)

			return pod.Value, nil
		}
	}

	if err := r.invoker.ValidateDescriptor(desc); err != nil {
		return nil, err
	}

	// Early references only serve the call path that owns the running creation.
	if desc.scope() == ScopeSingleton && r.owns(ctx) {
		if v, ok := r.GetSingletonCache(ctx, name, true); ok {
			r.recordDependency(ctx, name)

			return v, nil
		}
	}

	if err := r.resolveDependsOn(ctx, name, desc); err != nil {
		return nil, err
	}

	switch scope := desc.scope(); scope {
	case ScopeSingleton:
		return r.GetSingleton(ctx, name, func(ctx context.Context, _ *SingletonRegistry) (PodInstance, error) {
			return r.createPod(ctx, name, desc, factory, nil)
		})

	case ScopePrototype:
		pod, err := r.createPrototype(ctx, name, desc, factory, nil)

		return pod.Value, err

	default:
		custom, ok := r.Scope(scope)
		if !ok {
			return nil, NewConfigurationError(name, fmt.Sprintf("no scope registered for scope name '%s'", scope))
		}

		return custom.Get(ctx, name, func(ctx context.Context) (any, error) {
			pod, err := r.createPrototype(ctx, name, desc, factory, custom)

			return pod.Value, err
		})
	}
}

// GetScoped resolves name in the scope registered under scopeName, creating
// the object with factory when the scope has none yet.
func (r *SingletonRegistry) GetScoped(ctx context.Context, scopeName, name string, factory ObjectFactory) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	scope, ok := r.Scope(scopeName)
	if !ok {
		return nil, NewConfigurationError(name, fmt.Sprintf("no scope registered for scope name '%s'", scopeName))
	}

	return scope.Get(ctx, r.aliases.CanonicalName(name), factory)
}

// resolveDependsOn creates every declared depends-on pod and records the
// edge so teardown destroys name first.
func (r *SingletonRegistry) resolveDependsOn(ctx context.Context, name string, desc *PodDescriptor) error {
	for _, dep := range desc.DependsOn {
		dep = r.aliases.CanonicalName(dep)

		if dep == name || r.IsDependent(name, dep) {
			return ErrCircularDependsOn(name, dep)
		}

		r.RegisterDependentPod(dep, name)

		if _, err := r.GetSingleton(ctx, dep, nil); err != nil {
			return NewCreationError(name, desc.Origin, err, nil)
		}
	}

	return nil
}

// createPrototype creates a non-singleton pod, rejecting a prototype that
// requests itself on the same call path.
func (r *SingletonRegistry) createPrototype(ctx context.Context, name string, desc *PodDescriptor, factory Factory, scope Scope) (PodInstance, error) {
	active, _ := ctx.Value(prototypesInCreation{registry: r}).([]string)
	if slices.Contains(active, name) {
		return PodInstance{}, ErrCurrentlyInCreation(name)
	}

	ctx = context.WithValue(ctx, prototypesInCreation{registry: r}, append(slices.Clone(active), name))

	return r.createPod(ctx, name, desc, factory, scope)
}

// createPod runs the lifecycle around factory. scope is nil for singletons
// and prototypes.
func (r *SingletonRegistry) createPod(ctx context.Context, name string, desc *PodDescriptor, factory Factory, scope Scope) (PodInstance, error) {
	origin := desc.origin()
	ctx = context.WithValue(ctx, creationScope{}, desc.scope())

	if r.pipeline.HasInstantiationAware() {
		substitute, err := r.pipeline.ApplyBeforeInstantiation(ctx, desc.Type, name)
		if err != nil {
			return PodInstance{}, r.failure(name, origin, err)
		}

		if substitute != nil {
			r.logger.Debug("pod supplied before instantiation", zap.String("pod", name))

			pod, err := r.pipeline.ApplyAfterInitialization(ctx, substitute, name)
			if err != nil {
				return PodInstance{}, r.failure(name, origin, err)
			}

			return PodInstance{Value: pod, Type: reflect.TypeOf(pod), Origin: origin}, nil
		}
	}

	if factory == nil {
		return PodInstance{}, NewConfigurationError(name, "no factory to create the pod with")
	}

	inst, err := callFactory(ctx, r, name, factory)
	if err != nil {
		return PodInstance{}, r.failure(name, origin, err)
	}

	if inst.Origin == "" {
		inst.Origin = origin
	}

	raw := inst.Value

	exposeEarly := desc.scope() == ScopeSingleton && r.cfg.AllowCircularRefs && r.IsSingletonInCreation(name)
	if exposeEarly {
		err := r.AddSingletonFactory(name, func(ctx context.Context) (any, error) {
			return r.pipeline.ApplyEarlyReference(ctx, raw, name)
		})
		if err != nil {
			r.logger.Debug("early reference not exposed", zap.String("pod", name), zap.Error(err))
		}
	}

	if err := r.populate(ctx, name, desc, raw); err != nil {
		return PodInstance{}, r.failure(name, inst.Origin, err)
	}

	pod, err := r.initialize(ctx, name, desc, raw)
	if err != nil {
		return PodInstance{}, r.failure(name, inst.Origin, err)
	}

	if exposeEarly {
		if early, ok := r.earlyReference(name); ok {
			switch {
			case sameInstance(pod, raw):
				pod = early
			case !sameInstance(pod, early):
				return PodInstance{}, ErrRawEarlyReference(name, r.DependentPods(name))
			}
		}
	}

	if !sameInstance(pod, raw) {
		inst.Type = reflect.TypeOf(pod)
	}

	inst.Value = pod

	if err := r.registerDestruction(name, pod, desc, scope); err != nil {
		return PodInstance{}, err
	}

	return inst, nil
}

// populate runs the instantiation-aware processors and applies the properties.
func (r *SingletonRegistry) populate(ctx context.Context, name string, desc *PodDescriptor, pod any) error {
	pv := desc.Properties

	if r.pipeline.HasInstantiationAware() {
		proceed, err := r.pipeline.ApplyAfterInstantiation(ctx, pod, name)
		if err != nil || !proceed {
			return err
		}

		pv, err = r.pipeline.ApplyProcessProperties(ctx, pv, pod, name)
		if err != nil || pv == nil {
			return err
		}
	}

	if desc.ApplyProperties == nil {
		return nil
	}

	return desc.ApplyProperties(ctx, pod, pv)
}

// initialize runs the init methods between the initialization processors.
func (r *SingletonRegistry) initialize(ctx context.Context, name string, desc *PodDescriptor, pod any) (any, error) {
	pod, err := r.pipeline.ApplyBeforeInitialization(ctx, pod, name)
	if err != nil {
		return nil, err
	}

	if err := r.invoker.InvokeInitMethods(ctx, name, pod, desc); err != nil {
		return nil, err
	}

	return r.pipeline.ApplyAfterInitialization(ctx, pod, name)
}

// registerDestruction binds the destroy side of pod. Prototypes are not
// tracked; the caller owns them.
func (r *SingletonRegistry) registerDestruction(name string, pod any, desc *PodDescriptor, scope Scope) error {
	if desc.scope() == ScopePrototype || !needsDestruction(pod, desc, r.pipeline) {
		return nil
	}

	disposer := newPodDisposer(name, pod, desc, r.invoker)

	if scope == nil {
		return r.RegisterDisposablePod(name, disposer)
	}

	// Scoped pods are not in the singleton cache, so the callback notifies
	// the destruction-aware processors itself.
	scope.RegisterDestructionCallback(name, func() {
		ctx := context.Background()

		err := r.pipeline.ApplyBeforeDestruction(ctx, pod, name)
		err = multierr.Append(err, disposer.Destroy(ctx))
		err = multierr.Append(err, r.pipeline.ApplyAfterDestruction(ctx, pod, name))

		if err != nil {
			r.logger.Error("scoped pod destruction failed", zap.String("pod", name), zap.Error(err))
			r.OnSuppressedError(NewDestructionError(name, err))
		}
	})

	return nil
}

// earlyReference returns an early reference that has been handed out for name.
func (r *SingletonRegistry) earlyReference(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.early[name]

	return ref, ok
}

// failure keeps errors that already describe this pod and wraps the rest.
func (r *SingletonRegistry) failure(name, origin string, err error) error {
	if PodName(err) == name {
		return err
	}

	return NewCreationError(name, origin, err, nil)
}

func (r *SingletonRegistry) withCurrentPod(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, currentPod{registry: r}, name)
}

// recordDependency registers the singleton whose factory is running on ctx
// as a dependent of name.
func (r *SingletonRegistry) recordDependency(ctx context.Context, name string) {
	parent, _ := ctx.Value(currentPod{registry: r}).(string)
	if parent == "" || parent == name {
		return
	}

	r.RegisterDependentPod(name, parent)
}

// sameInstance compares pods by identity where they have one and by value otherwise.
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}

	if va.Comparable() {
		return va.Equal(vb)
	}

	return false
}
