package pods

import "context"

// Registration holds a singleton to be registered, either as a ready
// instance or as a factory invoked on first request.
type Registration struct {
	Name     string
	Instance any
	Factory  Factory
	Origin   string
	Aliases  []string
}

// Instance creates a Registration for a ready instance.
//
// Example:
//
//	pods.RegisterSingletons(r,
//	    pods.Instance("config", cfg),
//	    pods.Lazily("db", newDatabase, "db-alias"),
//	)
func Instance(name string, value any, aliases ...string) Registration {
	return Registration{Name: name, Instance: value, Aliases: aliases}
}

// Lazily creates a Registration whose factory runs on first request.
func Lazily(name string, factory Factory, aliases ...string) Registration {
	return Registration{Name: name, Factory: factory, Aliases: aliases}
}

// RegisterSingletons registers several singletons in one call.
// Processing stops at the first error; earlier registrations stay in place.
func RegisterSingletons(r *SingletonRegistry, registrations ...Registration) error {
	for _, reg := range registrations {
		if err := r.Register(reg); err != nil {
			return err
		}
	}

	return nil
}

// Register registers one singleton and its aliases.
func (r *SingletonRegistry) Register(reg Registration) error {
	var err error

	switch {
	case reg.Instance != nil && reg.Factory != nil:
		return NewConfigurationError(reg.Name, "either an instance or a factory is allowed, not both")
	case reg.Instance != nil:
		pod := Of(reg.Instance)
		pod.Origin = reg.Origin
		err = r.RegisterSingleton(reg.Name, pod)
	case reg.Factory != nil:
		factory := reg.Factory
		if reg.Origin != "" {
			factory = withOrigin(factory, reg.Origin)
		}

		err = r.RegisterSingletonFactory(reg.Name, factory)
	default:
		return NewConfigurationError(reg.Name, "an instance or a factory is required")
	}

	if err != nil {
		return err
	}

	for _, alias := range reg.Aliases {
		if err := r.RegisterAlias(reg.Name, alias); err != nil {
			return err
		}
	}

	return nil
}

// withOrigin stamps origin onto the pods produced by factory.
func withOrigin(factory Factory, origin string) Factory {
	return func(ctx context.Context, r *SingletonRegistry) (PodInstance, error) {
		pod, err := factory(ctx, r)
		if err != nil {
			return PodInstance{}, err
		}

		if pod.Origin == "" {
			pod.Origin = origin
		}

		return pod, nil
	}
}
