package pods

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/multierr"
)

// PropertyValues are the named values a pod is populated with.
type PropertyValues map[string]any

// InitializationProcessor transforms pods around their init methods.
type InitializationProcessor interface {
	// BeforeInitialization runs before init methods. Returning nil keeps the current pod.
	BeforeInitialization(ctx context.Context, pod any, name string) (any, error)

	// AfterInitialization runs after init methods. Returning nil keeps the current pod.
	AfterInitialization(ctx context.Context, pod any, name string) (any, error)
}

// InstantiationAwareProcessor hooks into instantiation and population.
type InstantiationAwareProcessor interface {
	// BeforeInstantiation may return a substitute pod, skipping default construction.
	BeforeInstantiation(ctx context.Context, typ reflect.Type, name string) (any, error)

	// AfterInstantiation returns false to skip property population.
	AfterInstantiation(ctx context.Context, pod any, name string) (bool, error)

	// ProcessProperties may replace the property values. Returning nil skips population.
	ProcessProperties(ctx context.Context, pv PropertyValues, pod any, name string) (PropertyValues, error)
}

// EarlyReferenceProcessor decides what a circular reference to a pod in
// creation receives, e.g. a proxy around the raw instance.
type EarlyReferenceProcessor interface {
	EarlyReference(ctx context.Context, pod any, name string) (any, error)
}

// DestructionAwareProcessor is notified around pod destruction.
type DestructionAwareProcessor interface {
	BeforeDestruction(ctx context.Context, pod any, name string) error
	AfterDestruction(ctx context.Context, pod any, name string) error

	// RequiresDestruction reports whether this processor cares about pod at all.
	RequiresDestruction(pod any) bool
}

// Pipeline holds the registered processors and one view per capability.
// Views are rebuilt on every change, so iteration works on a snapshot.
type Pipeline struct {
	hooks          []any
	initialization []InitializationProcessor
	instantiation  []InstantiationAwareProcessor
	earlyReference []EarlyReferenceProcessor
	destruction    []DestructionAwareProcessor
	mu             sync.RWMutex
}

// NewPipeline creates an empty processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add registers a processor. A processor that is already registered moves to the end.
func (p *Pipeline) Add(processor any) error {
	if processor == nil {
		return NewConfigurationError("", "processor must not be nil")
	}

	if !reflect.TypeOf(processor).Comparable() {
		return NewConfigurationError("", "processor of type "+reflect.TypeOf(processor).String()+" is not comparable")
	}

	if !hasCapability(processor) {
		return NewConfigurationError("", "processor of type "+reflect.TypeOf(processor).String()+" implements no processor capability")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	hooks := slices.DeleteFunc(slices.Clone(p.hooks), func(h any) bool { return h == processor })
	p.rebuild(append(hooks, processor))

	return nil
}

// Remove unregisters a processor and reports whether it was present.
func (p *Pipeline) Remove(processor any) bool {
	if processor == nil || !reflect.TypeOf(processor).Comparable() {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	hooks := slices.DeleteFunc(slices.Clone(p.hooks), func(h any) bool { return h == processor })
	if len(hooks) == len(p.hooks) {
		return false
	}

	p.rebuild(hooks)

	return true
}

// Len returns the number of registered processors.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.hooks)
}

// Processors returns the registered processors in order.
func (p *Pipeline) Processors() []any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return slices.Clone(p.hooks)
}

// HasInstantiationAware reports whether any instantiation-aware processor is registered.
func (p *Pipeline) HasInstantiationAware() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.instantiation) > 0
}

// HasDestructionAware reports whether any destruction-aware processor is registered.
func (p *Pipeline) HasDestructionAware() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.destruction) > 0
}

// ApplyBeforeInstantiation returns the first non-nil substitute supplied by a processor.
func (p *Pipeline) ApplyBeforeInstantiation(ctx context.Context, typ reflect.Type, name string) (any, error) {
	for _, proc := range p.instantiationView() {
		pod, err := proc.BeforeInstantiation(ctx, typ, name)
		if err != nil {
			return nil, err
		}

		if pod != nil {
			return pod, nil
		}
	}

	return nil, nil
}

// ApplyAfterInstantiation reports whether property population should continue.
func (p *Pipeline) ApplyAfterInstantiation(ctx context.Context, pod any, name string) (bool, error) {
	for _, proc := range p.instantiationView() {
		proceed, err := proc.AfterInstantiation(ctx, pod, name)
		if err != nil {
			return false, err
		}

		if !proceed {
			return false, nil
		}
	}

	return true, nil
}

// ApplyProcessProperties composes the property transforms. A nil result means
// population is skipped.
func (p *Pipeline) ApplyProcessProperties(ctx context.Context, pv PropertyValues, pod any, name string) (PropertyValues, error) {
	current := pv
	if current == nil {
		current = PropertyValues{}
	}

	for _, proc := range p.instantiationView() {
		next, err := proc.ProcessProperties(ctx, current, pod, name)
		if err != nil {
			return nil, err
		}

		if next == nil {
			return nil, nil
		}

		current = next
	}

	return current, nil
}

// ApplyEarlyReference passes the raw pod through every early-reference processor.
func (p *Pipeline) ApplyEarlyReference(ctx context.Context, pod any, name string) (any, error) {
	p.mu.RLock()
	view := p.earlyReference
	p.mu.RUnlock()

	current := pod
	for _, proc := range view {
		next, err := proc.EarlyReference(ctx, current, name)
		if err != nil {
			return nil, err
		}

		current = next
	}

	return current, nil
}

// ApplyBeforeInitialization runs the before-init transforms.
func (p *Pipeline) ApplyBeforeInitialization(ctx context.Context, pod any, name string) (any, error) {
	return p.applyInitialization(ctx, pod, name, InitializationProcessor.BeforeInitialization)
}

// ApplyAfterInitialization runs the after-init transforms.
func (p *Pipeline) ApplyAfterInitialization(ctx context.Context, pod any, name string) (any, error) {
	return p.applyInitialization(ctx, pod, name, InitializationProcessor.AfterInitialization)
}

// RequiresDestruction reports whether any destruction-aware processor wants pod.
func (p *Pipeline) RequiresDestruction(pod any) bool {
	for _, proc := range p.destructionView() {
		if proc.RequiresDestruction(pod) {
			return true
		}
	}

	return false
}

// ApplyBeforeDestruction notifies every interested processor. Errors are
// collected, they never stop the remaining notifications.
func (p *Pipeline) ApplyBeforeDestruction(ctx context.Context, pod any, name string) error {
	var err error

	for _, proc := range p.destructionView() {
		if proc.RequiresDestruction(pod) {
			err = multierr.Append(err, proc.BeforeDestruction(ctx, pod, name))
		}
	}

	return err
}

// ApplyAfterDestruction notifies every interested processor after destruction.
func (p *Pipeline) ApplyAfterDestruction(ctx context.Context, pod any, name string) error {
	var err error

	for _, proc := range p.destructionView() {
		if proc.RequiresDestruction(pod) {
			err = multierr.Append(err, proc.AfterDestruction(ctx, pod, name))
		}
	}

	return err
}

func (p *Pipeline) applyInitialization(
	ctx context.Context,
	pod any,
	name string,
	step func(InitializationProcessor, context.Context, any, string) (any, error),
) (any, error) {
	p.mu.RLock()
	view := p.initialization
	p.mu.RUnlock()

	current := pod
	for _, proc := range view {
		next, err := step(proc, ctx, current, name)
		if err != nil {
			return nil, err
		}

		if next == nil {
			return current, nil
		}

		current = next
	}

	return current, nil
}

func (p *Pipeline) instantiationView() []InstantiationAwareProcessor {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.instantiation
}

func (p *Pipeline) destructionView() []DestructionAwareProcessor {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.destruction
}

// rebuild replaces the hook list and recomputes every view (must hold mu).
func (p *Pipeline) rebuild(hooks []any) {
	var (
		initialization []InitializationProcessor
		instantiation  []InstantiationAwareProcessor
		earlyReference []EarlyReferenceProcessor
		destruction    []DestructionAwareProcessor
	)

	for _, h := range hooks {
		if proc, ok := h.(InitializationProcessor); ok {
			initialization = append(initialization, proc)
		}

		if proc, ok := h.(InstantiationAwareProcessor); ok {
			instantiation = append(instantiation, proc)
		}

		if proc, ok := h.(EarlyReferenceProcessor); ok {
			earlyReference = append(earlyReference, proc)
		}

		if proc, ok := h.(DestructionAwareProcessor); ok {
			destruction = append(destruction, proc)
		}
	}

	p.hooks = hooks
	p.initialization = initialization
	p.instantiation = instantiation
	p.earlyReference = earlyReference
	p.destruction = destruction
}

func hasCapability(h any) bool {
	switch h.(type) {
	case InitializationProcessor, InstantiationAwareProcessor, EarlyReferenceProcessor, DestructionAwareProcessor:
		return true
	default:
		return false
	}
}

// FuncProcessor wraps functions as a processor. Unset functions leave the pod untouched.
type FuncProcessor struct {
	BeforeInstantiationFunc  func(ctx context.Context, typ reflect.Type, name string) (any, error)
	AfterInstantiationFunc   func(ctx context.Context, pod any, name string) (bool, error)
	ProcessPropertiesFunc    func(ctx context.Context, pv PropertyValues, pod any, name string) (PropertyValues, error)
	EarlyReferenceFunc       func(ctx context.Context, pod any, name string) (any, error)
	BeforeInitializationFunc func(ctx context.Context, pod any, name string) (any, error)
	AfterInitializationFunc  func(ctx context.Context, pod any, name string) (any, error)
	BeforeDestructionFunc    func(ctx context.Context, pod any, name string) error
	AfterDestructionFunc     func(ctx context.Context, pod any, name string) error
	RequiresDestructionFunc  func(pod any) bool
}

// BeforeInstantiation implements InstantiationAwareProcessor.
func (f *FuncProcessor) BeforeInstantiation(ctx context.Context, typ reflect.Type, name string) (any, error) {
	if f.BeforeInstantiationFunc != nil {
		return f.BeforeInstantiationFunc(ctx, typ, name)
	}
	return nil, nil
}

// AfterInstantiation implements InstantiationAwareProcessor.
func (f *FuncProcessor) AfterInstantiation(ctx context.Context, pod any, name string) (bool, error) {
	if f.AfterInstantiationFunc != nil {
		return f.AfterInstantiationFunc(ctx, pod, name)
	}
	return true, nil
}

// ProcessProperties implements InstantiationAwareProcessor.
func (f *FuncProcessor) ProcessProperties(ctx context.Context, pv PropertyValues, pod any, name string) (PropertyValues, error) {
	if f.ProcessPropertiesFunc != nil {
		return f.ProcessPropertiesFunc(ctx, pv, pod, name)
	}
	return pv, nil
}

// EarlyReference implements EarlyReferenceProcessor.
func (f *FuncProcessor) EarlyReference(ctx context.Context, pod any, name string) (any, error) {
	if f.EarlyReferenceFunc != nil {
		return f.EarlyReferenceFunc(ctx, pod, name)
	}
	return pod, nil
}

// BeforeInitialization implements InitializationProcessor.
func (f *FuncProcessor) BeforeInitialization(ctx context.Context, pod any, name string) (any, error) {
	if f.BeforeInitializationFunc != nil {
		return f.BeforeInitializationFunc(ctx, pod, name)
	}
	return pod, nil
}

// AfterInitialization implements InitializationProcessor.
func (f *FuncProcessor) AfterInitialization(ctx context.Context, pod any, name string) (any, error) {
	if f.AfterInitializationFunc != nil {
		return f.AfterInitializationFunc(ctx, pod, name)
	}
	return pod, nil
}

// BeforeDestruction implements DestructionAwareProcessor.
func (f *FuncProcessor) BeforeDestruction(ctx context.Context, pod any, name string) error {
	if f.BeforeDestructionFunc != nil {
		return f.BeforeDestructionFunc(ctx, pod, name)
	}
	return nil
}

// AfterDestruction implements DestructionAwareProcessor.
func (f *FuncProcessor) AfterDestruction(ctx context.Context, pod any, name string) error {
	if f.AfterDestructionFunc != nil {
		return f.AfterDestructionFunc(ctx, pod, name)
	}
	return nil
}

// RequiresDestruction implements DestructionAwareProcessor.
func (f *FuncProcessor) RequiresDestruction(pod any) bool {
	if f.RequiresDestructionFunc != nil {
		return f.RequiresDestructionFunc(pod)
	}
	return f.BeforeDestructionFunc != nil || f.AfterDestructionFunc != nil
}
