package pods

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/xraph/go-utils/di"
	"github.com/xraph/go-utils/errs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Initializer is implemented by pods that need to run code once they are
// fully populated.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Destroyer is implemented by pods that release resources on teardown.
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// PodDescriptor is the lifecycle metadata the definition layer hands to the core.
type PodDescriptor struct {
	// Name is the pod name (aliases are canonicalized).
	Name string `validate:"required"`

	// Type is the declared type, used for validation ahead of creation and
	// for before-instantiation processors.
	Type reflect.Type

	// Scope is "singleton" (default), "prototype" or a registered custom scope.
	Scope string

	// Origin describes where the pod is defined; it is attached to errors.
	Origin string

	// DependsOn names pods that must be created first and destroyed after this one.
	DependsOn []string `validate:"dive,required"`

	// InitMethods are zero-argument methods invoked after population, in order.
	InitMethods []string `validate:"dive,required"`

	// DestroyMethods are zero-argument methods invoked on destruction, in order.
	DestroyMethods []string `validate:"dive,required"`

	// Properties are handed to ApplyProperties after processors have seen them.
	Properties PropertyValues

	// ApplyProperties populates the pod. Nil means nothing to populate.
	ApplyProperties func(ctx context.Context, pod any, pv PropertyValues) error
}

func (d *PodDescriptor) scope() string {
	if d == nil || d.Scope == "" {
		return ScopeSingleton
	}

	return d.Scope
}

func (d *PodDescriptor) origin() string {
	if d == nil {
		return ""
	}

	return d.Origin
}

// LifecycleInvoker runs init and destroy methods on pods.
type LifecycleInvoker struct {
	logger         *zap.Logger
	enforceInit    bool
	enforceDestroy bool
}

// NewLifecycleInvoker creates an invoker. Enforcement turns a missing
// declared method into an error instead of a logged warning.
func NewLifecycleInvoker(logger *zap.Logger, enforceInit, enforceDestroy bool) *LifecycleInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LifecycleInvoker{
		logger:         logger,
		enforceInit:    enforceInit,
		enforceDestroy: enforceDestroy,
	}
}

// InvokeInitMethods calls Initializer.Initialize and then every declared init method.
func (l *LifecycleInvoker) InvokeInitMethods(ctx context.Context, name string, pod any, desc *PodDescriptor) error {
	initializer, isInitializer := pod.(Initializer)
	if isInitializer {
		l.logger.Debug("invoking Initialize", zap.String("pod", name))

		if err := initializer.Initialize(ctx); err != nil {
			return lifecycleFailure(name, desc.origin(), err)
		}
	}

	if desc == nil {
		return nil
	}

	for _, method := range desc.InitMethods {
		if isInitializer && method == "Initialize" {
			continue
		}

		if err := l.invoke(ctx, name, pod, method, l.enforceInit); err != nil {
			return lifecycleFailure(name, desc.origin(), err)
		}
	}

	return nil
}

// InvokeDestroyMethods calls Destroyer.Destroy, di.Disposable.Dispose and then
// every declared destroy method. Every step runs even if an earlier one failed.
func (l *LifecycleInvoker) InvokeDestroyMethods(ctx context.Context, name string, pod any, desc *PodDescriptor) error {
	var (
		err     error
		skipped []string
	)

	if d, ok := pod.(Destroyer); ok {
		err = multierr.Append(err, d.Destroy(ctx))
		skipped = append(skipped, "Destroy")
	}

	if d, ok := pod.(di.Disposable); ok {
		err = multierr.Append(err, d.Dispose())
		skipped = append(skipped, "Dispose")
	}

	if desc != nil {
		for _, method := range desc.DestroyMethods {
			if slices.Contains(skipped, method) {
				continue
			}

			err = multierr.Append(err, l.invoke(ctx, name, pod, method, l.enforceDestroy))
		}
	}

	return err
}

// ValidateDescriptor checks a descriptor without an instance: structural
// rules first, then that every declared lifecycle method exists on Type and
// takes no parameters.
func (l *LifecycleInvoker) ValidateDescriptor(desc *PodDescriptor) error {
	if desc == nil {
		return NewConfigurationError("", "descriptor must not be nil")
	}

	if err := validate.Struct(desc); err != nil {
		return NewConfigurationError(desc.Name, "invalid descriptor: "+err.Error())
	}

	if desc.Type == nil {
		return nil
	}

	var err error

	check := func(methods []string, enforce bool) {
		for _, method := range methods {
			arity, found := methodArity(desc.Type, method, 0)

			switch {
			case !found && enforce:
				err = multierr.Append(err, NewLifecycleMethodError(desc.Name, method,
					fmt.Sprintf("no such method on type %s", desc.Type)))
			case !found:
				l.logger.Warn("declared lifecycle method not found",
					zap.String("pod", desc.Name),
					zap.String("method", method),
					zap.Stringer("type", desc.Type))
			case arity != 0:
				err = multierr.Append(err, NewLifecycleMethodError(desc.Name, method,
					fmt.Sprintf("must not take parameters, declares %d", arity)))
			}
		}
	}

	check(desc.InitMethods, l.enforceInit)
	check(desc.DestroyMethods, l.enforceDestroy)

	return err
}

// invoke resolves and calls one declared method, awaiting asynchronous results.
func (l *LifecycleInvoker) invoke(ctx context.Context, name string, pod any, method string, enforce bool) error {
	fn, found := findMethod(reflect.ValueOf(pod), method, 0)
	if !found {
		if enforce {
			return NewLifecycleMethodError(name, method, fmt.Sprintf("no such method on %T", pod))
		}

		l.logger.Warn("declared lifecycle method not found, skipping",
			zap.String("pod", name),
			zap.String("method", method),
			zap.String("type", fmt.Sprintf("%T", pod)))

		return nil
	}

	if n := fn.Type().NumIn(); n != 0 {
		return NewLifecycleMethodError(name, method, fmt.Sprintf("must not take parameters, declares %d", n))
	}

	l.logger.Debug("invoking lifecycle method", zap.String("pod", name), zap.String("method", method))

	return await(ctx, fn.Call(nil))
}

// lifecycleFailure keeps domain errors intact (adding the pod name) and
// wraps anything else into a creation failure.
func lifecycleFailure(name, origin string, err error) error {
	var de *errs.Error
	if errors.As(err, &de) {
		return withPodContext(de, name)
	}

	return NewCreationError(name, origin, err, nil)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// waiter is a pending completion, e.g. *errgroup.Group.
type waiter interface {
	Wait() error
}

// await inspects method results: an error fails, a channel or waiter is
// awaited before returning.
func await(ctx context.Context, results []reflect.Value) error {
	for _, r := range results {
		if r.Type() == errorType {
			if !r.IsNil() {
				return r.Interface().(error)
			}

			continue
		}

		if (r.Kind() == reflect.Chan || r.Kind() == reflect.Interface || r.Kind() == reflect.Pointer) && r.IsNil() {
			continue
		}

		switch v := r.Interface().(type) {
		case <-chan error:
			if err := awaitChan(ctx, v); err != nil {
				return err
			}
		case chan error:
			if err := awaitChan(ctx, v); err != nil {
				return err
			}
		case waiter:
			done := make(chan error, 1)
			go func() { done <- v.Wait() }()

			if err := awaitChan(ctx, done); err != nil {
				return err
			}
		}
	}

	return nil
}

func awaitChan(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maxEmbedDepth bounds the walk through embedded fields.
const maxEmbedDepth = 8

// findMethod resolves method on v: its own method set first, then embedded
// structs, then embedded interfaces, in field order.
func findMethod(v reflect.Value, method string, depth int) (reflect.Value, bool) {
	if !v.IsValid() || depth > maxEmbedDepth {
		return reflect.Value{}, false
	}

	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && v.IsNil() {
		return reflect.Value{}, false
	}

	if m := v.MethodByName(method); m.IsValid() {
		return m, true
	}

	if v.Kind() != reflect.Pointer && v.CanAddr() {
		if m := v.Addr().MethodByName(method); m.IsValid() {
			return m, true
		}
	}

	s := v
	for s.Kind() == reflect.Pointer || s.Kind() == reflect.Interface {
		if s.IsNil() {
			return reflect.Value{}, false
		}

		s = s.Elem()
	}

	if s.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	for _, wantInterface := range []bool{false, true} {
		for i := 0; i < s.NumField(); i++ {
			f := s.Type().Field(i)
			if !f.Anonymous || !f.IsExported() || (f.Type.Kind() == reflect.Interface) != wantInterface {
				continue
			}

			if m, ok := findMethod(s.Field(i), method, depth+1); ok {
				return m, true
			}
		}
	}

	return reflect.Value{}, false
}

// methodArity resolves method on t using the same order as findMethod and
// returns its parameter count, receiver excluded.
func methodArity(t reflect.Type, method string, depth int) (int, bool) {
	if t == nil || depth > maxEmbedDepth {
		return 0, false
	}

	if m, ok := t.MethodByName(method); ok {
		if t.Kind() == reflect.Interface {
			return m.Type.NumIn(), true
		}

		return m.Type.NumIn() - 1, true
	}

	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		if m, ok := reflect.PointerTo(t).MethodByName(method); ok {
			return m.Type.NumIn() - 1, true
		}
	}

	s := t
	for s.Kind() == reflect.Pointer {
		s = s.Elem()
	}

	if s.Kind() != reflect.Struct {
		return 0, false
	}

	for _, wantInterface := range []bool{false, true} {
		for i := 0; i < s.NumField(); i++ {
			f := s.Field(i)
			if !f.Anonymous || !f.IsExported() || (f.Type.Kind() == reflect.Interface) != wantInterface {
				continue
			}

			if arity, ok := methodArity(f.Type, method, depth+1); ok {
				return arity, true
			}
		}
	}

	return 0, false
}
