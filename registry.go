package pods

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SingletonRegistry creates, caches and destroys shared pods.
//
// Creation of singletons is serialized: the outermost GetSingleton call owns
// the creation lock and passes ownership down through the context it hands
// to factories, so nested requests on the same call path do not block and
// re-entrant requests for a name already in creation are detected.
type SingletonRegistry struct {
	id       string
	cfg      *config
	logger   *zap.Logger
	aliases  *AliasRegistry
	pipeline *Pipeline
	invoker  *LifecycleInvoker

	singletons     map[string]PodInstance
	early          map[string]any
	earlyFactories map[string]EarlyReferenceFunc
	lazy           map[string]Factory
	order          []string // registration order of cached and disposable names
	inCreation     map[string]struct{}
	destroyed      map[string]struct{}
	destroying     map[string]struct{}
	disposables    map[string]DisposablePod
	graph          *dependencyGraph
	scopes         map[string]Scope

	suppressed          []error
	recording           bool
	inDestruction       bool
	destructionComplete bool

	mu         sync.RWMutex
	creationMu sync.Mutex
}

// creationOwner marks a context whose call path holds the creation lock.
type creationOwner struct {
	registry *SingletonRegistry
}

// New creates a registry.
func New(opts ...Option) (*SingletonRegistry, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	r := &SingletonRegistry{
		id:             uuid.NewString(),
		cfg:            cfg,
		aliases:        NewAliasRegistry(cfg.AllowAliasOverriding),
		pipeline:       NewPipeline(),
		singletons:     make(map[string]PodInstance),
		early:          make(map[string]any),
		earlyFactories: make(map[string]EarlyReferenceFunc),
		lazy:           make(map[string]Factory),
		inCreation:     make(map[string]struct{}),
		destroyed:      make(map[string]struct{}),
		destroying:     make(map[string]struct{}),
		disposables:    make(map[string]DisposablePod),
		graph:          newDependencyGraph(),
		scopes:         make(map[string]Scope),
	}

	r.logger = cfg.Logger.With(zap.String("registry", r.id))
	r.invoker = NewLifecycleInvoker(r.logger, cfg.EnforceInitMethods, cfg.EnforceDestroyMethods)

	for _, p := range cfg.Processors {
		if err := r.pipeline.Add(p); err != nil {
			return nil, err
		}
	}

	for name, scope := range cfg.Scopes {
		if err := r.RegisterScope(name, scope); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ID returns the registry id used in log fields.
func (r *SingletonRegistry) ID() string { return r.id }

// Aliases returns the alias registry owned by this registry.
func (r *SingletonRegistry) Aliases() *AliasRegistry { return r.aliases }

// Pipeline returns the processor pipeline.
func (r *SingletonRegistry) Pipeline() *Pipeline { return r.pipeline }

// Invoker returns the lifecycle invoker.
func (r *SingletonRegistry) Invoker() *LifecycleInvoker { return r.invoker }

// RegisterAlias is a shortcut for Aliases().RegisterAlias.
func (r *SingletonRegistry) RegisterAlias(target, alias string) error {
	return r.aliases.RegisterAlias(target, alias)
}

// CanonicalName resolves aliases of name.
func (r *SingletonRegistry) CanonicalName(name string) string {
	return r.aliases.CanonicalName(name)
}

// =============================================================================
// REGISTRATION
// =============================================================================

// RegisterSingleton caches a ready instance under name. The name must not be
// bound already; remove the existing pod first.
func (r *SingletonRegistry) RegisterSingleton(name string, pod PodInstance) error {
	if name == "" {
		return NewConfigurationError("", "pod name must not be empty")
	}

	if pod.Value == nil {
		return NewConfigurationError(name, "an instance or a factory is required")
	}

	name = r.aliases.CanonicalName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRegistrable(name); err != nil {
		return err
	}

	if pod.Type == nil {
		pod.Type = reflect.TypeOf(pod.Value)
	}

	r.addSingleton(name, pod)
	r.logger.Debug("registered singleton", zap.String("pod", name), zap.String("type", pod.TypeName()))

	return nil
}

// RegisterSingletonFactory registers a factory that creates the singleton on
// the first GetSingleton call for name.
func (r *SingletonRegistry) RegisterSingletonFactory(name string, factory Factory) error {
	if name == "" {
		return NewConfigurationError("", "pod name must not be empty")
	}

	if factory == nil {
		return NewConfigurationError(name, "an instance or a factory is required")
	}

	name = r.aliases.CanonicalName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRegistrable(name); err != nil {
		return err
	}

	r.lazy[name] = factory
	delete(r.destroyed, name)

	return nil
}

// checkRegistrable rejects names that are bound or a registry in teardown (must hold mu).
func (r *SingletonRegistry) checkRegistrable(name string) error {
	if r.inDestruction || r.destructionComplete {
		return ErrCreationNotAllowed(name, "registry is being destroyed")
	}

	if existing, ok := r.singletons[name]; ok {
		return ErrAlreadyRegistered(name, existing.Value)
	}

	if _, ok := r.lazy[name]; ok {
		return ErrAlreadyRegistered(name, Factory(nil))
	}

	if _, ok := r.inCreation[name]; ok {
		return ErrCurrentlyInCreation(name)
	}

	return nil
}

// addSingleton caches pod and drops early-reference state (must hold mu).
func (r *SingletonRegistry) addSingleton(name string, pod PodInstance) {
	r.singletons[name] = pod
	delete(r.early, name)
	delete(r.earlyFactories, name)
	delete(r.lazy, name)
	delete(r.destroyed, name)
	r.track(name)
}

func (r *SingletonRegistry) track(name string) {
	if !slices.Contains(r.order, name) {
		r.order = append(r.order, name)
	}
}

// AddSingletonFactory registers a callback producing an early reference for
// a pod that is in creation.
func (r *SingletonRegistry) AddSingletonFactory(name string, factory EarlyReferenceFunc) error {
	if factory == nil {
		return NewConfigurationError(name, "early reference factory must not be nil")
	}

	name = r.aliases.CanonicalName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.singletons[name]; !ok {
		r.earlyFactories[name] = factory
		delete(r.early, name)
	}

	return nil
}

// RegisterScope registers a custom scope. The built-in scope names are reserved.
func (r *SingletonRegistry) RegisterScope(name string, scope Scope) error {
	if name == ScopeSingleton || name == ScopePrototype {
		return NewConfigurationError("", fmt.Sprintf("cannot replace built-in scope '%s'", name))
	}

	if name == "" || scope == nil {
		return NewConfigurationError("", "scope name and scope are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.scopes[name] = scope

	return nil
}

// Scope returns a registered scope. "singleton" returns the registry itself.
func (r *SingletonRegistry) Scope(name string) (Scope, bool) {
	if name == ScopeSingleton {
		return r.SingletonScope(), true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scopes[name]

	return s, ok
}

// SingletonScope exposes the registry's singleton behaviour as a Scope.
func (r *SingletonRegistry) SingletonScope() Scope {
	return singletonScope{registry: r}
}

// =============================================================================
// RETRIEVAL AND CREATION
// =============================================================================

// GetSingleton returns the singleton for name, creating it with factory on a
// cache miss. A nil factory falls back to a factory registered with
// RegisterSingletonFactory.
func (r *SingletonRegistry) GetSingleton(ctx context.Context, name string, factory Factory) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	if pod, ok := r.singletons[name]; ok {
		r.mu.RUnlock()
		r.recordDependency(ctx, name)

		return pod.Value, nil
	}

	if factory == nil {
		factory = r.lazy[name]
	}

	forbidden := r.creationForbidden(name)
	r.mu.RUnlock()

	if factory == nil {
		return nil, ErrPodNotFound(name)
	}

	if forbidden != nil {
		return nil, forbidden
	}

	if !r.owns(ctx) {
		r.creationMu.Lock()
		defer r.creationMu.Unlock()

		ctx = context.WithValue(ctx, creationOwner{registry: r}, true)
	}

	v, err := r.createSingleton(ctx, name, factory)
	if err != nil {
		return nil, err
	}

	r.recordDependency(ctx, name)

	return v, nil
}

// GetSingletonCache returns a cached singleton or, for a pod in creation, an
// early reference. It never starts a new creation. Errors raised while
// producing an early reference are reported as suppressed errors.
func (r *SingletonRegistry) GetSingletonCache(ctx context.Context, name string, allowEarlyReference bool) (any, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	if pod, ok := r.singletons[name]; ok {
		r.mu.RUnlock()

		return pod.Value, true
	}

	_, creating := r.inCreation[name]
	if !creating {
		r.mu.RUnlock()

		return nil, false
	}

	if ref, ok := r.early[name]; ok {
		r.mu.RUnlock()

		return ref, true
	}

	factory := r.earlyFactories[name]
	r.mu.RUnlock()

	if !allowEarlyReference || factory == nil {
		return nil, false
	}

	ref, err := factory(ctx)
	if err != nil {
		r.OnSuppressedError(NewCreationError(name, "", err, nil))

		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if pod, ok := r.singletons[name]; ok {
		return pod.Value, true
	}

	if existing, ok := r.early[name]; ok {
		return existing, true
	}

	r.early[name] = ref
	delete(r.earlyFactories, name)

	return ref, true
}

// createSingleton runs factory for name between the creation brackets.
func (r *SingletonRegistry) createSingleton(ctx context.Context, name string, factory Factory) (any, error) {
	r.mu.Lock()

	if pod, ok := r.singletons[name]; ok {
		r.mu.Unlock()

		return pod.Value, nil
	}

	if err := r.creationForbidden(name); err != nil {
		r.mu.Unlock()

		return nil, err
	}

	if err := r.beforeCreation(name); err != nil {
		r.mu.Unlock()

		return nil, err
	}

	outermost := !r.recording
	if outermost {
		r.recording = true
		r.suppressed = nil
	}

	r.mu.Unlock()

	r.logger.Debug("creating singleton", zap.String("pod", name))

	pod, err := callFactory(r.withCurrentPod(ctx, name), r, name, factory)

	r.mu.Lock()

	var related []error
	if outermost {
		related = r.suppressed
		r.suppressed = nil
		r.recording = false
	}

	if bracketErr := r.afterCreation(name); bracketErr != nil {
		r.logger.Debug("creation bracket already closed", zap.String("pod", name), zap.Error(bracketErr))
	}

	if err == nil {
		if pod.Type == nil {
			pod.Type = reflect.TypeOf(pod.Value)
		}

		r.addSingleton(name, pod)
		r.mu.Unlock()

		return pod.Value, nil
	}

	delete(r.early, name)
	delete(r.earlyFactories, name)

	// Pods that already hold an early reference to the failed pod are torn down.
	var stale []string
	for _, dependent := range r.graph.dependentsOf(name) {
		if _, creating := r.inCreation[dependent]; creating {
			continue
		}

		_, cached := r.singletons[dependent]
		_, disposable := r.disposables[dependent]

		if cached || disposable {
			stale = append(stale, dependent)
		}
	}

	r.graph.removeNode(name)
	r.mu.Unlock()

	r.logger.Debug("singleton creation failed", zap.String("pod", name), zap.Error(err))

	for _, dependent := range stale {
		if destroyErr := r.destroyPod(ctx, dependent); destroyErr != nil {
			related = append(related, destroyErr)
		}
	}

	return nil, creationFailure(name, err, related)
}

// callFactory invokes factory, turning a panic or a nil pod into an error.
func callFactory(ctx context.Context, r *SingletonRegistry, name string, factory Factory) (pod PodInstance, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory for pod '%s' panicked: %v", name, rec)
		}
	}()

	pod, err = factory(ctx, r)
	if err == nil && pod.Value == nil {
		err = fmt.Errorf("factory for pod '%s' returned no instance", name)
	}

	return pod, err
}

// creationFailure passes through errors that already describe this pod and
// wraps everything else into a creation failure.
func creationFailure(name string, err error, related []error) error {
	if len(related) == 0 && PodName(err) == name {
		return err
	}

	return NewCreationError(name, "", err, related)
}

func (r *SingletonRegistry) owns(ctx context.Context) bool {
	return ctx.Value(creationOwner{registry: r}) != nil
}

// creationForbidden rejects creation during or after teardown (must hold mu).
func (r *SingletonRegistry) creationForbidden(name string) error {
	switch {
	case r.destructionComplete:
		return ErrCreationNotAllowed(name, "registry has been destroyed")
	case r.inDestruction:
		return ErrCreationNotAllowed(name, "singletons of this registry are currently in destruction")
	default:
		return nil
	}
}

// BeforeSingletonCreation marks name as in creation. It fails if the name is
// already in creation, which means a circular reference.
func (r *SingletonRegistry) BeforeSingletonCreation(name string) error {
	name = r.aliases.CanonicalName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.beforeCreation(name)
}

// AfterSingletonCreation clears the in-creation mark of name.
func (r *SingletonRegistry) AfterSingletonCreation(name string) error {
	name = r.aliases.CanonicalName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.afterCreation(name)
}

func (r *SingletonRegistry) beforeCreation(name string) error {
	if _, ok := r.inCreation[name]; ok {
		return ErrCurrentlyInCreation(name)
	}

	r.inCreation[name] = struct{}{}

	return nil
}

func (r *SingletonRegistry) afterCreation(name string) error {
	if _, ok := r.inCreation[name]; !ok {
		return NewConfigurationError(name, "singleton is not currently in creation")
	}

	delete(r.inCreation, name)

	return nil
}

// IsSingletonInCreation reports whether the factory for name is running.
func (r *SingletonRegistry) IsSingletonInCreation(name string) bool {
	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.inCreation[name]

	return ok
}

// =============================================================================
// QUERIES
// =============================================================================

// ContainsSingleton reports whether an instance is cached for name.
func (r *SingletonRegistry) ContainsSingleton(name string) bool {
	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.singletons[name]

	return ok
}

// State returns the creation state of name.
func (r *SingletonRegistry) State(name string) CreationState {
	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state(name)
}

func (r *SingletonRegistry) state(name string) CreationState {
	if _, ok := r.inCreation[name]; ok {
		return StateInCreation
	}

	if _, ok := r.singletons[name]; ok {
		return StateCached
	}

	if _, ok := r.destroyed[name]; ok {
		return StateDestroyed
	}

	return StateAbsent
}

// SingletonNames returns the cached names in registration order.
func (r *SingletonRegistry) SingletonNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.singletons))
	for _, name := range r.order {
		if _, ok := r.singletons[name]; ok {
			names = append(names, name)
		}
	}

	return names
}

// SingletonCount returns the number of cached singletons.
func (r *SingletonRegistry) SingletonCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.singletons)
}

// Inspect returns diagnostic information about name.
func (r *SingletonRegistry) Inspect(name string) PodInfo {
	name = r.aliases.CanonicalName(name)
	aliases := r.aliases.Aliases(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	info := PodInfo{
		Name:         name,
		Type:         "unknown",
		State:        r.state(name),
		Aliases:      aliases,
		Dependents:   r.graph.dependentsOf(name),
		Dependencies: r.graph.dependenciesOf(name),
	}

	if pod, ok := r.singletons[name]; ok {
		info.Type = pod.TypeName()
		info.Origin = pod.Origin
	}

	_, info.Disposable = r.disposables[name]

	return info
}

// =============================================================================
// DEPENDENCIES
// =============================================================================

// RegisterDependentPod records that dependent must be destroyed before dependency.
func (r *SingletonRegistry) RegisterDependentPod(dependency, dependent string) {
	dependency = r.aliases.CanonicalName(dependency)
	dependent = r.aliases.CanonicalName(dependent)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.graph.addDependent(dependency, dependent)
}

// RegisterContainedPod records an inner pod; destroying the container destroys it too.
func (r *SingletonRegistry) RegisterContainedPod(contained, container string) {
	contained = r.aliases.CanonicalName(contained)
	container = r.aliases.CanonicalName(container)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.graph.addContained(contained, container)
}

// IsDependent reports whether dependent depends on name, directly or transitively.
func (r *SingletonRegistry) IsDependent(name, dependent string) bool {
	name = r.aliases.CanonicalName(name)
	dependent = r.aliases.CanonicalName(dependent)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.graph.isDependent(name, dependent)
}

// DependentPods returns the direct dependents of name.
func (r *SingletonRegistry) DependentPods(name string) []string {
	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.graph.dependentsOf(name)
}

// DependenciesForPod returns the direct dependencies of name.
func (r *SingletonRegistry) DependenciesForPod(name string) []string {
	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.graph.dependenciesOf(name)
}

// =============================================================================
// SUPPRESSED ERRORS
// =============================================================================

// OnSuppressedError records a non-fatal error. While a creation is running
// the error is kept (up to the configured limit) and attached to a later
// creation failure; it is always passed to the suppressed error handler.
func (r *SingletonRegistry) OnSuppressedError(err error) {
	if err == nil {
		return
	}

	r.mu.Lock()
	if r.recording && len(r.suppressed) < r.cfg.MaxSuppressedErrors {
		r.suppressed = append(r.suppressed, err)
	}

	handler := r.cfg.SuppressedHandler
	r.mu.Unlock()

	if handler != nil {
		handler(err)
	}
}

// SuppressedErrors returns the errors recorded by the creation in progress.
func (r *SingletonRegistry) SuppressedErrors() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.suppressed)
}

// =============================================================================
// DESTRUCTION
// =============================================================================

// RegisterDisposablePod binds the destroy side of a pod to name.
func (r *SingletonRegistry) RegisterDisposablePod(name string, disposable DisposablePod) error {
	if disposable == nil {
		return NewConfigurationError(name, "disposable must not be nil")
	}

	name = r.aliases.CanonicalName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inDestruction || r.destructionComplete {
		return ErrCreationNotAllowed(name, "registry is being destroyed")
	}

	if existing, ok := r.disposables[name]; ok {
		r.disposables[name] = compositeDisposable{existing, disposable}
	} else {
		r.disposables[name] = disposable
	}

	r.track(name)

	return nil
}

// RegisterDestructionCallback binds a callback that runs once when name is destroyed.
func (r *SingletonRegistry) RegisterDestructionCallback(name string, callback func()) {
	if callback == nil {
		return
	}

	if err := r.RegisterDisposablePod(name, newDestructionCallback(name, callback)); err != nil {
		r.logger.Warn("destruction callback ignored", zap.String("pod", name), zap.Error(err))
	}
}

// RemoveSingleton destroys name and returns the instance that was cached.
// Destruction failures are reported as suppressed errors.
func (r *SingletonRegistry) RemoveSingleton(ctx context.Context, name string) (PodInstance, bool) {
	name = r.aliases.CanonicalName(name)

	r.mu.RLock()
	pod, ok := r.singletons[name]
	r.mu.RUnlock()

	_ = r.DestroySingleton(ctx, name)

	return pod, ok
}

// DestroySingleton destroys name: processors are notified, every dependent
// pod is destroyed, then the pod's own destroy steps and contained pods run,
// and finally all bookkeeping for the name is dropped.
func (r *SingletonRegistry) DestroySingleton(ctx context.Context, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return r.destroyPod(ctx, r.aliases.CanonicalName(name))
}

func (r *SingletonRegistry) destroyPod(ctx context.Context, name string) error {
	r.mu.Lock()
	if _, busy := r.destroying[name]; busy {
		// Reached again through a dependency cycle.
		r.mu.Unlock()

		return nil
	}

	r.destroying[name] = struct{}{}
	pod, cached := r.singletons[name]
	disposable, disposableOK := r.disposables[name]
	delete(r.disposables, name)
	dependents := r.graph.takeDependents(name)
	r.mu.Unlock()

	var err error

	report := func(stepErr error) {
		if stepErr == nil {
			return
		}

		wrapped := NewDestructionError(name, stepErr)
		r.logger.Error("pod destruction step failed", zap.String("pod", name), zap.Error(stepErr))
		r.OnSuppressedError(wrapped)
		err = multierr.Append(err, wrapped)
	}

	if cached {
		report(r.pipeline.ApplyBeforeDestruction(ctx, pod.Value, name))
	}

	for _, dependent := range dependents {
		if dependent != name {
			err = multierr.Append(err, r.destroyPod(ctx, dependent))
		}
	}

	if disposableOK {
		r.logger.Debug("destroying pod", zap.String("pod", name))
		report(disposable.Destroy(ctx))
	}

	r.mu.Lock()
	contained := r.graph.takeContained(name)
	r.mu.Unlock()

	for _, inner := range contained {
		if inner != name {
			err = multierr.Append(err, r.destroyPod(ctx, inner))
		}
	}

	if cached {
		report(r.pipeline.ApplyAfterDestruction(ctx, pod.Value, name))
	}

	r.mu.Lock()
	delete(r.destroying, name)
	delete(r.singletons, name)
	delete(r.early, name)
	delete(r.earlyFactories, name)
	delete(r.lazy, name)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == name })
	r.graph.removeNode(name)

	if cached || disposableOK {
		r.destroyed[name] = struct{}{}
	}
	r.mu.Unlock()

	if cached || disposableOK {
		r.aliases.removeAliasesFor(name)
	}

	return err
}

// DestroySingletons tears the registry down. It repeatedly destroys a pod
// that no live pod depends on; pods caught in a dependency cycle are
// destroyed in registration order. Failures are collected and returned, they
// never stop the sweep. Afterwards the registry refuses to create pods.
func (r *SingletonRegistry) DestroySingletons(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if r.destructionComplete || r.inDestruction {
		r.mu.Unlock()

		return nil
	}

	r.inDestruction = true
	r.mu.Unlock()

	// Wait for creations on other call paths to finish.
	if !r.owns(ctx) {
		r.creationMu.Lock()
		defer r.creationMu.Unlock()
	}

	r.logger.Debug("destroying singletons", zap.Int("count", r.SingletonCount()))

	var err error

	for {
		r.mu.RLock()
		candidates := slices.Clone(r.order)
		alive := func(name string) bool {
			_, cached := r.singletons[name]
			_, disposable := r.disposables[name]

			return cached || disposable
		}

		next, ok := r.graph.nextRemovable(candidates, alive)
		r.mu.RUnlock()

		if len(candidates) == 0 {
			break
		}

		if !ok {
			next = candidates[0]
			r.logger.Warn("dependency cycle during teardown, destroying in registration order",
				zap.String("pod", next),
				zap.Strings("remaining", candidates))
		}

		err = multierr.Append(err, r.destroyPod(ctx, next))
	}

	r.mu.Lock()
	r.singletons = make(map[string]PodInstance)
	r.early = make(map[string]any)
	r.earlyFactories = make(map[string]EarlyReferenceFunc)
	r.lazy = make(map[string]Factory)
	r.disposables = make(map[string]DisposablePod)
	r.destroyed = make(map[string]struct{})
	r.order = nil
	r.graph.clear()
	r.destructionComplete = true
	r.mu.Unlock()

	r.aliases.clear()

	return err
}

// IsDestructionComplete reports whether DestroySingletons has finished.
func (r *SingletonRegistry) IsDestructionComplete() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.destructionComplete
}
