package pods

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultMaxSuppressedErrors caps the suppressed errors kept for one creation.
const DefaultMaxSuppressedErrors = 100

// Option configures a SingletonRegistry.
type Option func(*config)

// config holds the registry settings collected from options.
type config struct {
	Logger                *zap.Logger `validate:"required"`
	AllowAliasOverriding  bool
	AllowCircularRefs     bool
	EnforceInitMethods    bool
	EnforceDestroyMethods bool
	MaxSuppressedErrors   int `validate:"gte=1,lte=10000"`
	SuppressedHandler     func(error)
	Processors            []any
	Scopes                map[string]Scope `validate:"dive,keys,required,endkeys,required"`
}

func defaultConfig() *config {
	return &config{
		Logger:               zap.NewNop(),
		AllowAliasOverriding: true,
		AllowCircularRefs:    true,
		EnforceInitMethods:   true,
		MaxSuppressedErrors:  DefaultMaxSuppressedErrors,
		Scopes:               make(map[string]Scope),
	}
}

// WithLogger sets the structured logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithAliasOverriding controls whether an alias may be rebound to another target.
func WithAliasOverriding(allow bool) Option {
	return func(c *config) {
		c.AllowAliasOverriding = allow
	}
}

// WithCircularReferences controls whether pods created through GetOrCreate
// expose early references to break circular dependencies.
func WithCircularReferences(allow bool) Option {
	return func(c *config) {
		c.AllowCircularRefs = allow
	}
}

// WithEnforcedInitMethods makes a missing declared init method a hard error.
func WithEnforcedInitMethods(enforce bool) Option {
	return func(c *config) {
		c.EnforceInitMethods = enforce
	}
}

// WithEnforcedDestroyMethods makes a missing declared destroy method a hard error.
func WithEnforcedDestroyMethods(enforce bool) Option {
	return func(c *config) {
		c.EnforceDestroyMethods = enforce
	}
}

// WithMaxSuppressedErrors caps the suppressed errors recorded per creation.
func WithMaxSuppressedErrors(n int) Option {
	return func(c *config) {
		c.MaxSuppressedErrors = n
	}
}

// WithSuppressedErrorHandler observes every suppressed error, including
// destruction failures during teardown.
func WithSuppressedErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.SuppressedHandler = fn
	}
}

// WithProcessors registers lifecycle hooks in order.
func WithProcessors(processors ...any) Option {
	return func(c *config) {
		c.Processors = append(c.Processors, processors...)
	}
}

// WithScope registers a custom scope under name.
func WithScope(name string, scope Scope) Option {
	return func(c *config) {
		c.Scopes[name] = scope
	}
}

var validate = validator.New()

// buildConfig applies opts over the defaults and validates the result.
func buildConfig(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigurationError("", "invalid registry options: "+err.Error())
	}

	return cfg, nil
}
